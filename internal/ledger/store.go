package ledger

import "context"

// EventStore is the append-only backing store of a Ledger. Implementations
// live in the database packages (flat file, PostgreSQL, MariaDB, in-memory).
type EventStore interface {
	// Append persists events in order. Either all events are stored or an error is returned.
	Append(ctx context.Context, events ...Event) error
	// Scan calls fn for every stored event in insertion order. Rows that cannot
	// be decoded are skipped and counted in the report.
	Scan(ctx context.Context, fn func(Event)) (LoadReport, error)
	// Close releases the underlying resources.
	Close() error
}

// Purger removes every event of one person. It backs the external
// "delete student" operation and is never used by the ledger itself.
type Purger interface {
	Purge(ctx context.Context, studentID string) (int, error)
}

// LoadReport summarises a Scan.
type LoadReport struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}
