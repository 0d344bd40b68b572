package csvstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

var ict = time.FixedZone("ICT", 7*3600)

func scanAll(t *testing.T, s *Store) ([]ledger.Event, ledger.LoadReport) {
	t.Helper()
	var events []ledger.Event
	report, err := s.Scan(context.Background(), func(e ledger.Event) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	return events, report
}

func TestOpen_CreatesFileWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "attendance.csv")

	s, err := Open(path, ict)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	if string(data) != "Student ID,Name,Date,Status,Note\n" {
		t.Errorf("file content = %q, want header only", data)
	}

	events, report := scanAll(t, s)
	if len(events) != 0 || report.Loaded != 0 || report.Skipped != 0 {
		t.Errorf("Scan() of fresh file = %d events, %+v", len(events), report)
	}
}

func TestOpen_KeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.csv")
	content := "Student ID,Name,Date,Status,Note\nA001,Alice,2024-05-02 07:45:00,1,\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path, ict)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	events, _ := scanAll(t, s)
	if len(events) != 1 || events[0].StudentID != "A001" {
		t.Errorf("Scan() = %+v, want the existing row", events)
	}
}

func TestAppendAndScan(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "attendance.csv")
	s, err := Open(path, ict)
	if err != nil {
		t.Fatal(err)
	}

	in := []ledger.Event{
		{StudentID: "A001", Name: "Nguyễn Văn Đức", Timestamp: time.Date(2024, 5, 2, 7, 45, 0, 0, ict), Status: ledger.Present},
		{StudentID: "A002", Name: "Bob", Timestamp: time.Date(2024, 5, 2, 0, 0, 0, 0, ict), Status: ledger.Absent, Note: "Sick, \"flu\""},
	}
	if err := s.Append(ctx, in[0]); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if err := s.Append(ctx, in[1]); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	out, report := scanAll(t, s)
	if report.Loaded != 2 || report.Skipped != 0 {
		t.Errorf("LoadReport = %+v, want {2 0}", report)
	}
	if len(out) != len(in) {
		t.Fatalf("Scan() returned %d events, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].StudentID != in[i].StudentID || out[i].Name != in[i].Name ||
			out[i].Status != in[i].Status || out[i].Note != in[i].Note ||
			!out[i].Timestamp.Equal(in[i].Timestamp) {
			t.Errorf("event %d = %+v, want %+v", i, out[i], in[i])
		}
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "A001,Nguyễn Văn Đức,2024-05-02 07:45:00,1,\n") {
		t.Errorf("persisted form not as expected:\n%s", data)
	}
}

func TestScan_SkipsMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.csv")
	content := strings.Join([]string{
		"\ufeffStudent ID,Name,Date,Status,Note",
		"A001,Alice,2024-05-02 07:45:00,1,",
		"A002,Bob,2024-05-02",
		"A003,Carol,yesterday,1,",
		"A004,Dan,2024-05-02 08:00:00,maybe,",
		"A005,Eve,2024-05-02 08:01:00,1,,extra",
		"A006,Frank,2024-05-02 00:00:00,0,Sick",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path, ict)
	if err != nil {
		t.Fatal(err)
	}
	events, report := scanAll(t, s)

	if report.Loaded != 2 || report.Skipped != 4 {
		t.Errorf("LoadReport = %+v, want {2 4}", report)
	}
	if len(events) != 2 || events[0].StudentID != "A001" || events[1].StudentID != "A006" {
		t.Errorf("Scan() = %+v, want A001 and A006", events)
	}
}

func TestAppend_AfterMissingTrailingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.csv")
	content := "Student ID,Name,Date,Status,Note\nA001,Alice,2024-05-02 07:45:00,1,"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path, ict)
	if err != nil {
		t.Fatal(err)
	}

	err = s.Append(context.Background(), ledger.Event{
		StudentID: "A002", Name: "Bob", Timestamp: time.Date(2024, 5, 2, 8, 0, 0, 0, ict), Status: ledger.Present,
	})
	if err != nil {
		t.Fatal(err)
	}

	events, report := scanAll(t, s)
	if len(events) != 2 || report.Skipped != 0 {
		t.Errorf("Scan() = %d events, %+v; want 2 clean rows", len(events), report)
	}
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "attendance.csv")
	s, err := Open(path, ict)
	if err != nil {
		t.Fatal(err)
	}
	day := time.Date(2024, 5, 2, 8, 0, 0, 0, ict)
	for _, id := range []string{"A001", "A002", "A001"} {
		if err := s.Append(ctx, ledger.Event{StudentID: id, Name: id, Timestamp: day, Status: ledger.Present}); err != nil {
			t.Fatal(err)
		}
		day = day.Add(24 * time.Hour)
	}

	removed, err := s.Purge(ctx, "A001")
	if err != nil {
		t.Fatalf("Purge() error: %v", err)
	}
	if removed != 2 {
		t.Errorf("Purge() = %d, want 2", removed)
	}

	events, _ := scanAll(t, s)
	if len(events) != 1 || events[0].StudentID != "A002" {
		t.Errorf("Scan() after purge = %+v, want only A002", events)
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "Student ID,Name,Date,Status,Note\n") {
		t.Errorf("header lost after purge:\n%s", data)
	}

	removed, err = s.Purge(ctx, "nobody")
	if err != nil || removed != 0 {
		t.Errorf("Purge(nobody) = %d, %v; want 0, nil", removed, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestScan_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.csv")
	s, err := Open(path, ict)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	events, report := scanAll(t, s)
	if len(events) != 0 || report != (ledger.LoadReport{}) {
		t.Errorf("Scan() of removed file = %d events, %+v", len(events), report)
	}
}

func TestLedgerOverCSV_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "attendance.csv")
	s, err := Open(path, ict)
	if err != nil {
		t.Fatal(err)
	}
	l, err := ledger.Open(ctx, s, ict)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := l.Mark(ctx, "A001", "Alice", time.Date(2024, 5, 2, 9, 0, 0, 0, ict)); got != ledger.Marked {
		t.Fatalf("Mark() = %v, want Marked", got)
	}

	s2, err := Open(path, ict)
	if err != nil {
		t.Fatal(err)
	}
	l2, err := ledger.Open(ctx, s2, ict)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := l2.Mark(ctx, "A001", "Alice", time.Date(2024, 5, 2, 15, 0, 0, 0, ict)); got != ledger.AlreadyMarked {
		t.Errorf("Mark() after restart = %v, want AlreadyMarked", got)
	}
}
