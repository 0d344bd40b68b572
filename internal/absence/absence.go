// Package absence records Absent events for people who have not been marked
// present on a given day.
package absence

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// Recorder appends absence notes to a ledger.
type Recorder struct {
	ledger *ledger.Ledger
}

// NewRecorder creates a recorder writing to l.
func NewRecorder(l *ledger.Ledger) *Recorder {
	return &Recorder{ledger: l}
}

// RecordAbsences appends one Absent event, timestamped at 00:00:00 of date,
// for every person in class (all when empty or "All") who has no Present
// event on date. It returns the number of events written.
//
// Earlier Absent rows are not taken into account: calling it twice for the
// same date appends a second row per absentee.
func (r *Recorder) RecordAbsences(ctx context.Context, date ledger.Date, class, note string, g *gallery.Gallery) (int, error) {
	n, err := r.ledger.RecordAbsences(ctx, date, class, note, g)
	if err != nil {
		return 0, fmt.Errorf("recording absences for %s: %w", date, err)
	}
	return n, nil
}
