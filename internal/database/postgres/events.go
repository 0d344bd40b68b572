package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// EventRepository provides PostgreSQL-backed attendance event storage.
// Timestamps are stored as wall clock time of loc, matching the flat-file ledger.
type EventRepository struct {
	pool *Pool
	loc  *time.Location
}

// NewEventRepository creates a new PostgreSQL event repository.
func NewEventRepository(pool *Pool, loc *time.Location) *EventRepository {
	if loc == nil {
		loc = time.Local
	}
	return &EventRepository{pool: pool, loc: loc}
}

// Append inserts events in a single transaction.
func (r *EventRepository) Append(ctx context.Context, events ...ledger.Event) error {
	if len(events) == 0 {
		return nil
	}

	query := `
		INSERT INTO attendance_events (id, student_id, name, occurred_at, status, note)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	return r.pool.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare insert event: %w", err)
		}
		defer stmt.Close()

		for _, e := range events {
			_, err := stmt.ExecContext(ctx,
				uuid.New(),
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
		return nil
	})
}

// Scan streams every event in insertion order.
func (r *EventRepository) Scan(ctx context.Context, fn func(ledger.Event)) (ledger.LoadReport, error) {
	var report ledger.LoadReport

	rows, err := r.pool.Query(ctx, `
		SELECT student_id, name, occurred_at, status, note
		FROM attendance_events
		ORDER BY seq
	`)
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
			Timestamp: wallClockIn(occurredAt, r.loc),
			Status:    st,
			Note:      note,
		})
	}
	if err := rows.Err(); err != nil {
		return report, fmt.Errorf("iterate events: %w", err)
	}
	return report, nil
}

// Purge deletes every event of studentID.
func (r *EventRepository) Purge(ctx context.Context, studentID string) (int, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM attendance_events WHERE student_id = $1", studentID)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return int(count), nil
}

// Close is a no-op; the pool is shared and closed by its owner.
func (r *EventRepository) Close() error {
	return nil
}

// wallClockIn reinterprets the wall clock of a zone-less TIMESTAMP value in loc.
func wallClockIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}
