// Package csvstore stores attendance events in a flat, append-only CSV file
// with a header row.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// Store is a CSV-file backed ledger.EventStore.
type Store struct {
	path string
	loc  *time.Location
	mu   sync.Mutex
}

// Open prepares the file at path, creating it with only the header row when
// it does not exist yet. Timestamps are written and read in loc.
func Open(path string, loc *time.Location) (*Store, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Store{path: path, loc: loc}

	if _, err := os.Stat(path); err == nil {
		return s, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("checking ledger file: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating ledger file: %w", err)
	}
	if err := writeRows(f, [][]string{ledger.Header}); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing ledger file: %w", err)
	}
	return s, nil
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// Append writes events at the end of the file.
func (s *Store) Append(ctx context.Context, events ...ledger.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([][]string, len(events))
	for i, e := range events {
		rows[i] = ledger.EncodeRow(e, s.loc)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("opening ledger file: %w", err)
	}
	if err := ensureTrailingNewline(f); err != nil {
		f.Close()
		return err
	}
	if err := writeRows(f, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing ledger file: %w", err)
	}
	return nil
}

// Scan reads the file and calls fn for every well-formed row. The header row
// and rows that cannot be decoded are skipped; the latter are counted.
func (s *Store) Scan(ctx context.Context, fn func(ledger.Event)) (ledger.LoadReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report ledger.LoadReport
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("opening ledger file: %w", err)
	}
	defer f.Close()

	err = eachRow(f, func(row []string, rowErr error) {
		if rowErr != nil {
			report.Skipped++
			return
		}
		if report.Loaded == 0 && report.Skipped == 0 && ledger.IsHeader(row) {
			return
		}
		e, err := ledger.DecodeRow(row, s.loc)
		if err != nil {
			report.Skipped++
			return
		}
		report.Loaded++
		fn(e)
	})
	if err != nil {
		return report, fmt.Errorf("reading ledger file: %w", err)
	}
	return report, nil
}

// Purge rewrites the file without the rows of studentID. Rows with the wrong
// shape are kept; lines the CSV reader cannot parse at all are dropped.
func (s *Store) Purge(ctx context.Context, studentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, err := os.Open(s.path)
	if err != nil {
		return 0, fmt.Errorf("opening ledger file: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".attendance-*.csv")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	removed := 0
	w := csv.NewWriter(tmp)
	err = eachRow(in, func(row []string, rowErr error) {
		if rowErr == nil && len(row) > 0 && row[0] == studentID && !ledger.IsHeader(row) {
			removed++
			return
		}
		if rowErr == nil {
			_ = w.Write(row)
		}
	})
	w.Flush()
	if err == nil {
		err = w.Error()
	}
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("rewriting ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing temp file: %w", err)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return 0, fmt.Errorf("replacing ledger file: %w", err)
	}
	return removed, nil
}

// Close is a no-op; the file is only held open during individual operations.
func (s *Store) Close() error {
	return nil
}

// ensureTrailingNewline terminates a last line left open by an external editor
// so the next row does not get glued onto it.
func ensureTrailingNewline(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("checking ledger file: %w", err)
	}
	if info.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return fmt.Errorf("reading ledger file: %w", err)
	}
	if last[0] == '\n' {
		return nil
	}
	if _, err := f.Write([]byte("\n")); err != nil {
		return fmt.Errorf("writing ledger file: %w", err)
	}
	return nil
}

func writeRows(f *os.File, rows [][]string) error {
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("writing ledger rows: %w", err)
	}
	return nil
}

// eachRow calls fn for every record of r. Records the CSV reader rejects are
// reported through rowErr instead of aborting the read.
func eachRow(r io.Reader, fn func(row []string, rowErr error)) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	first := true
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			fn(nil, err)
			continue
		}
		if err != nil {
			return err
		}
		if first && len(row) > 0 {
			row[0] = strings.TrimPrefix(row[0], "\ufeff")
		}
		first = false
		fn(row, nil)
	}
}
