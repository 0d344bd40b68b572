// Package stats reduces attendance events into per-day present and absent counts.
package stats

import (
	"slices"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// DailyStat holds the counts of one calendar date.
type DailyStat struct {
	Date    ledger.Date `json:"date" yaml:"date"`
	Present int         `json:"present" yaml:"present"`
	Absent  int         `json:"absent" yaml:"absent"`
}

// Aggregate counts Present and Absent events per calendar date (derived in
// loc) for dates in [ref-windowDays, ref]. Only dates with at least one event
// are returned, in ascending order. A person with both a Present and an
// Absent event on a date counts in both columns.
func Aggregate(events []ledger.Event, windowDays int, ref ledger.Date, loc *time.Location) []DailyStat {
	if windowDays < 0 {
		windowDays = 0
	}
	from := ref.AddDays(-windowDays)

	byDate := make(map[ledger.Date]*DailyStat)
	for _, e := range events {
		d := ledger.DateOf(e.Timestamp, loc)
		if d.Compare(from) < 0 || d.Compare(ref) > 0 {
			continue
		}
		s, ok := byDate[d]
		if !ok {
			s = &DailyStat{Date: d}
			byDate[d] = s
		}
		switch e.Status {
		case ledger.Present:
			s.Present++
		case ledger.Absent:
			s.Absent++
		}
	}

	out := make([]DailyStat, 0, len(byDate))
	for _, s := range byDate {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b DailyStat) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

// Totals sums the counts of stats.
func Totals(stats []DailyStat) (present, absent int) {
	for _, s := range stats {
		present += s.Present
		absent += s.Absent
	}
	return present, absent
}
