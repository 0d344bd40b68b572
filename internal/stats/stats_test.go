package stats

import (
	"context"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

func date(t *testing.T, s string) ledger.Date {
	t.Helper()
	d, err := ledger.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func event(t *testing.T, id, day string, hour int, status ledger.Status) ledger.Event {
	t.Helper()
	return ledger.Event{
		StudentID: id,
		Timestamp: date(t, day).Start(time.UTC).Add(time.Duration(hour) * time.Hour),
		Status:    status,
	}
}

func TestAggregate(t *testing.T) {
	events := []ledger.Event{
		event(t, "A001", "2024-05-02", 8, ledger.Present),
		event(t, "A002", "2024-05-02", 0, ledger.Absent),
		event(t, "A002", "2024-05-02", 10, ledger.Present), // late arrival counts in both columns
		event(t, "A001", "2024-04-30", 8, ledger.Present),
		event(t, "A001", "2024-04-02", 8, ledger.Present), // exactly 30 days back
		event(t, "A001", "2024-04-01", 8, ledger.Present), // 31 days back
		event(t, "A001", "2024-05-03", 8, ledger.Present), // after the reference date
	}

	got := Aggregate(events, 30, date(t, "2024-05-02"), time.UTC)
	want := []DailyStat{
		{Date: date(t, "2024-04-02"), Present: 1},
		{Date: date(t, "2024-04-30"), Present: 1},
		{Date: date(t, "2024-05-02"), Present: 2, Absent: 1},
	}

	if len(got) != len(want) {
		t.Fatalf("Aggregate() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Aggregate()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAggregate_WindowBoundary(t *testing.T) {
	ref := date(t, "2024-03-01")

	tests := []struct {
		name    string
		day     string
		window  int
		wantLen int
	}{
		{"reference date", "2024-03-01", 0, 1},
		{"exactly window days back", "2024-02-24", 6, 1},
		{"one day past the window", "2024-02-23", 6, 0},
		{"across a leap day", "2024-02-29", 1, 1},
		{"negative window acts as zero", "2024-02-29", -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate([]ledger.Event{event(t, "A001", tt.day, 23, ledger.Present)}, tt.window, ref, time.UTC)
			if len(got) != tt.wantLen {
				t.Errorf("Aggregate() = %+v, want %d entries", got, tt.wantLen)
			}
		})
	}
}

func TestAggregate_UsesLocation(t *testing.T) {
	ict := time.FixedZone("ICT", 7*3600)
	// 20:00 UTC on May 1st is May 2nd in ICT.
	e := ledger.Event{StudentID: "A001", Timestamp: time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC), Status: ledger.Present}

	got := Aggregate([]ledger.Event{e}, 0, date(t, "2024-05-02"), ict)
	if len(got) != 1 || got[0].Date != date(t, "2024-05-02") {
		t.Errorf("Aggregate() = %+v, want one entry on 2024-05-02", got)
	}
	if got := Aggregate([]ledger.Event{e}, 0, date(t, "2024-05-02"), time.UTC); len(got) != 0 {
		t.Errorf("Aggregate(UTC) = %+v, want empty", got)
	}
}

func TestAggregate_NoData(t *testing.T) {
	got := Aggregate(nil, 30, date(t, "2024-05-02"), time.UTC)
	if got == nil || len(got) != 0 {
		t.Errorf("Aggregate(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestAggregate_Scenario(t *testing.T) {
	ctx := context.Background()
	g := gallery.MustNew([]gallery.EnrolledPerson{
		{ID: "A001", Name: "Alice"},
		{ID: "A002", Name: "Bob"},
	})
	l, err := ledger.Open(ctx, mock.NewMockEventStore(), time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	at := func(hh, mm int) time.Time { return time.Date(2024, 1, 1, hh, mm, 0, 0, time.UTC) }

	steps := []struct {
		id, name string
		at       time.Time
		want     ledger.MarkOutcome
	}{
		{"A001", "Alice", at(9, 0), ledger.Marked},
		{"A001", "Alice", at(9, 5), ledger.AlreadyMarked},
		{"A002", "Bob", at(9, 10), ledger.Marked},
	}
	for _, s := range steps {
		got, err := l.Mark(ctx, s.id, s.name, s.at)
		if err != nil {
			t.Fatal(err)
		}
		if got != s.want {
			t.Errorf("Mark(%s, %s) = %v, want %v", s.id, s.at.Format(time.Kitchen), got, s.want)
		}
	}

	if absentees := l.Absentees(date(t, "2024-01-01"), "All", g); len(absentees) != 0 {
		t.Errorf("Absentees() = %+v, want empty", absentees)
	}

	got := Aggregate(l.Events(), 30, date(t, "2024-01-01"), time.UTC)
	want := DailyStat{Date: date(t, "2024-01-01"), Present: 2}
	if len(got) != 1 || got[0] != want {
		t.Errorf("Aggregate() = %+v, want [%+v]", got, want)
	}
}

func TestTotals(t *testing.T) {
	present, absent := Totals([]DailyStat{{Present: 2, Absent: 1}, {Present: 3}})
	if present != 5 || absent != 1 {
		t.Errorf("Totals() = %d, %d; want 5, 1", present, absent)
	}
}
