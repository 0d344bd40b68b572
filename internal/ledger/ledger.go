// Package ledger keeps the append-only record of attendance events and
// enforces that a person is marked present at most once per calendar day.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// MarkOutcome is the result of Mark. Neither outcome is an error.
type MarkOutcome int

const (
	Marked MarkOutcome = iota + 1
	AlreadyMarked
)

func (o MarkOutcome) String() string {
	switch o {
	case Marked:
		return "marked"
	case AlreadyMarked:
		return "already_marked"
	default:
		return "invalid"
	}
}

var (
	ErrEmptyStudentID = errors.New("student id is required")
	ErrPresentInBatch = errors.New("present events must go through Mark")
)

type presenceKey struct {
	studentID string
	date      Date
}

// Filter selects events for Query. A zero Date matches every date; an empty
// Class or "All" matches every class.
type Filter struct {
	Date  Date
	Class string
}

// Ledger is the single owner of attendance events. Writes go to the backing
// store first and are mirrored in memory; reads are served from the mirror
// under a read lock so they never observe half of a write.
type Ledger struct {
	store   EventStore
	loc     *time.Location
	mu      sync.RWMutex
	events  []Event
	present map[presenceKey]struct{}
	report  LoadReport
	version uint64
}

// Open loads every event from store. Dates are derived in loc.
func Open(ctx context.Context, store EventStore, loc *time.Location) (*Ledger, error) {
	if loc == nil {
		loc = time.Local
	}
	l := &Ledger{store: store, loc: loc}
	if err := l.Reload(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload replaces the in-memory mirror with the current store contents.
// Needed after an external bulk operation such as a purge. Writers wait for
// the scan so that no write lands in the store without reaching the mirror.
func (l *Ledger) Reload(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var events []Event
	present := make(map[presenceKey]struct{})
	report, err := l.store.Scan(ctx, func(e Event) {
		events = append(events, e)
		if e.Status == Present {
			present[presenceKey{e.StudentID, DateOf(e.Timestamp, l.loc)}] = struct{}{}
		}
	})
	if err != nil {
		return fmt.Errorf("loading ledger: %w", err)
	}

	l.events = events
	l.present = present
	l.report = report
	l.version++
	return nil
}

// Mark records studentID as present at the given instant unless they are
// already present on that calendar date, in which case nothing is written.
func (l *Ledger) Mark(ctx context.Context, studentID, name string, at time.Time) (MarkOutcome, error) {
	if studentID == "" {
		return 0, ErrEmptyStudentID
	}
	at = at.In(l.loc).Truncate(time.Second)
	key := presenceKey{studentID, DateOf(at, l.loc)}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.present[key]; ok {
		return AlreadyMarked, nil
	}

	e := Event{StudentID: studentID, Name: name, Timestamp: at, Status: Present}
	if err := l.store.Append(ctx, e); err != nil {
		return 0, fmt.Errorf("appending attendance event: %w", err)
	}
	l.events = append(l.events, e)
	l.present[key] = struct{}{}
	l.version++
	return Marked, nil
}

// AppendAbsences writes a batch of Absent events atomically with respect to readers.
func (l *Ledger) AppendAbsences(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := make([]Event, len(events))
	for i, e := range events {
		if e.Status != Absent {
			return ErrPresentInBatch
		}
		if e.StudentID == "" {
			return ErrEmptyStudentID
		}
		e.Timestamp = e.Timestamp.In(l.loc).Truncate(time.Second)
		batch[i] = e
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Append(ctx, batch...); err != nil {
		return fmt.Errorf("appending absence events: %w", err)
	}
	l.events = append(l.events, batch...)
	l.version++
	return nil
}

// RecordAbsences appends one Absent event, timestamped at 00:00:00 of date,
// for every person of class in g without a Present event on date. Absentees
// are computed and written under the same lock, so a concurrent Mark either
// lands before (and the person is skipped) or after. An empty note records
// nothing. It returns the number of events written.
func (l *Ledger) RecordAbsences(ctx context.Context, date Date, class, note string, g *gallery.Gallery) (int, error) {
	if note == "" {
		return 0, nil
	}
	candidates := g.Filter(class)
	midnight := date.Start(l.loc)

	l.mu.Lock()
	defer l.mu.Unlock()

	batch := make([]Event, 0, len(candidates))
	for _, p := range candidates {
		if _, ok := l.present[presenceKey{p.ID, date}]; ok {
			continue
		}
		batch = append(batch, Event{StudentID: p.ID, Name: p.Name, Timestamp: midnight, Status: Absent, Note: note})
	}
	if len(batch) == 0 {
		return 0, nil
	}

	if err := l.store.Append(ctx, batch...); err != nil {
		return 0, fmt.Errorf("appending absence events: %w", err)
	}
	l.events = append(l.events, batch...)
	l.version++
	return len(batch), nil
}

// IsPresent reports whether studentID has a Present event on date.
func (l *Ledger) IsPresent(studentID string, date Date) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.present[presenceKey{studentID, date}]
	return ok
}

// Query returns copies of the events matching f in insertion order. Classes
// are resolved through g; ids missing from g belong to the Unknown class.
func (l *Ledger) Query(f Filter, g *gallery.Gallery) []Event {
	allClasses := gallery.IsAllClasses(f.Class)

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Event, 0)
	for _, e := range l.events {
		if !f.Date.IsZero() && DateOf(e.Timestamp, l.loc) != f.Date {
			continue
		}
		if !allClasses && g.ClassOf(e.StudentID) != f.Class {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Absentees returns the enrolled people of class (all when empty or "All")
// without a Present event on date, in gallery order. Absent rows do not count
// as presence.
func (l *Ledger) Absentees(date Date, class string, g *gallery.Gallery) []gallery.EnrolledPerson {
	candidates := g.Filter(class)

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]gallery.EnrolledPerson, 0)
	for _, p := range candidates {
		if _, ok := l.present[presenceKey{p.ID, date}]; !ok {
			out = append(out, p)
		}
	}
	return out
}

// Events returns a copy of every event in insertion order.
func (l *Ledger) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Event(nil), l.events...)
}

// Rows returns the header followed by every event in persisted form, for
// export collaborators.
func (l *Ledger) Rows() [][]string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows := make([][]string, 0, len(l.events)+1)
	rows = append(rows, append([]string(nil), Header...))
	for _, e := range l.events {
		rows = append(rows, EncodeRow(e, l.loc))
	}
	return rows
}

// Len returns the number of events.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Version changes whenever the ledger contents change.
func (l *Ledger) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// LoadReport describes the last load from the store.
func (l *Ledger) LoadReport() LoadReport {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.report
}

// Location is the time zone calendar dates are derived in.
func (l *Ledger) Location() *time.Location {
	return l.loc
}

// Today returns the calendar date of now in the ledger's time zone.
func (l *Ledger) Today(now time.Time) Date {
	return DateOf(now, l.loc)
}

// Close closes the backing store.
func (l *Ledger) Close() error {
	if err := l.store.Close(); err != nil {
		return fmt.Errorf("closing ledger store: %w", err)
	}
	return nil
}
