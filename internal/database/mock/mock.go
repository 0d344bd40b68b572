// Package mock provides in-memory implementations of the storage interfaces
// for tests and for the "memory" ledger backend.
package mock

import (
	"context"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// MockEventStore is an in-memory implementation of ledger.EventStore and ledger.Purger
type MockEventStore struct {
	mu      sync.RWMutex
	events  []ledger.Event
	skipped int
	appends int
	closed  bool

	// Error injection. AppendError is returned once AppendErrorAfter
	// successful appends have been made (zero fails every append).
	AppendError      error
	AppendErrorAfter int
	ScanError   error
	PurgeError  error
	CloseError  error
}

// NewMockEventStore creates a new mock event store
func NewMockEventStore() *MockEventStore {
	return &MockEventStore{}
}

// AddEvents seeds the store without counting as an Append call
func (m *MockEventStore) AddEvents(events ...ledger.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
}

// SetSkipped sets the number of malformed rows reported by Scan
func (m *MockEventStore) SetSkipped(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped = n
}

// Append stores events in order
func (m *MockEventStore) Append(ctx context.Context, events ...ledger.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendError != nil && m.appends >= m.AppendErrorAfter {
		return m.AppendError
	}
	m.appends++
	m.events = append(m.events, events...)
	return nil
}

// Scan calls fn for every stored event in insertion order
func (m *MockEventStore) Scan(ctx context.Context, fn func(ledger.Event)) (ledger.LoadReport, error) {
	if m.ScanError != nil {
		return ledger.LoadReport{}, m.ScanError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.events {
		fn(e)
	}
	return ledger.LoadReport{Loaded: len(m.events), Skipped: m.skipped}, nil
}

// Purge removes every event of studentID
func (m *MockEventStore) Purge(ctx context.Context, studentID string) (int, error) {
	if m.PurgeError != nil {
		return 0, m.PurgeError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	removed := 0
	for _, e := range m.events {
		if e.StudentID == studentID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return removed, nil
}

// Close marks the store closed
func (m *MockEventStore) Close() error {
	if m.CloseError != nil {
		return m.CloseError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Events returns a copy of the stored events
func (m *MockEventStore) Events() []ledger.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ledger.Event(nil), m.events...)
}

// AppendCalls returns how many successful Append calls were made
func (m *MockEventStore) AppendCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.appends
}

// Closed reports whether Close was called
func (m *MockEventStore) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// MockGallerySource is an in-memory implementation of gallery.Source
type MockGallerySource struct {
	mu     sync.Mutex
	people []gallery.EnrolledPerson
	loads  int

	// Error injection
	LoadError error
}

// NewMockGallerySource creates a source serving people
func NewMockGallerySource(people ...gallery.EnrolledPerson) *MockGallerySource {
	return &MockGallerySource{people: people}
}

// SetPeople replaces the people served on the next load
func (m *MockGallerySource) SetPeople(people ...gallery.EnrolledPerson) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.people = people
}

// LoadGallery builds a fresh gallery snapshot
func (m *MockGallerySource) LoadGallery(ctx context.Context) (*gallery.Gallery, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	return gallery.New(m.people)
}

// Loads returns how many times LoadGallery succeeded
func (m *MockGallerySource) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}
