package mariadb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// EventRepository stores attendance events in MariaDB. occurred_at holds the
// wall clock of loc.
type EventRepository struct {
	pool *Pool
	loc  *time.Location
}

// NewEventRepository creates a MariaDB event repository.
func NewEventRepository(pool *Pool, loc *time.Location) *EventRepository {
	if loc == nil {
		loc = time.Local
	}
	return &EventRepository{pool: pool, loc: loc}
}

// Append inserts events in one transaction.
func (r *EventRepository) Append(ctx context.Context, events ...ledger.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO attendance_events (student_id, name, occurred_at, status, note) VALUES (?, ?, ?, ?, ?)`
	for _, e := range events {
		_, err := tx.ExecContext(ctx, query,
			e.StudentID,
			e.Name,
			e.Timestamp.In(r.loc).Format(ledger.TimestampLayout),
			int(e.Status),
			e.Note,
		)
		if err != nil {
			return fmt.Errorf("insert event for %s: %w", e.StudentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit events: %w", err)
	}
	return nil
}

// Scan streams every event in insertion order.
func (r *EventRepository) Scan(ctx context.Context, fn func(ledger.Event)) (ledger.LoadReport, error) {
	var report ledger.LoadReport

	rows, err := r.pool.db.QueryContext(ctx, `SELECT student_id, name, occurred_at, status, note FROM attendance_events ORDER BY seq`)
	if err != nil {
		return report, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			studentID, name, note string
			occurredAt            time.Time
			status                int
		)
		if err := rows.Scan(&studentID, &name, &occurredAt, &status, &note); err != nil {
			return report, fmt.Errorf("scan event: %w", err)
		}
		st, err := ledger.ParseStatus(strconv.Itoa(status))
		if err != nil || studentID == "" {
			report.Skipped++
			continue
		}
		report.Loaded++
		fn(ledger.Event{
			StudentID: studentID,
			Name:      name,
			Timestamp: time.Date(occurredAt.Year(), occurredAt.Month(), occurredAt.Day(),
				occurredAt.Hour(), occurredAt.Minute(), occurredAt.Second(), 0, r.loc),
			Status: st,
			Note:   note,
		})
	}
	if err := rows.Err(); err != nil {
		return report, fmt.Errorf("iterate events: %w", err)
	}
	return report, nil
}

// Purge deletes every event of studentID.
func (r *EventRepository) Purge(ctx context.Context, studentID string) (int, error) {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM attendance_events WHERE student_id = ?`, studentID)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return int(n), nil
}

// Close is a no-op; the pool is closed by its owner.
func (r *EventRepository) Close() error {
	return nil
}
