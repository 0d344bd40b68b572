package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

func exportFixture() []ledger.Event {
	return []ledger.Event{
		{StudentID: "A001", Name: "Alice", Timestamp: time.Date(2024, 5, 2, 8, 15, 0, 0, time.UTC), Status: ledger.Present},
		{StudentID: "A002", Name: "Bob, Jr.", Timestamp: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), Status: ledger.Absent, Note: "sick"},
	}
}

func TestWriteEventsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := writeEvents(&buf, "csv", exportFixture(), time.UTC); err != nil {
		t.Fatalf("writeEvents() error: %v", err)
	}

	want := "Student ID,Name,Date,Status,Note\n" +
		"A001,Alice,2024-05-02 08:15:00,1,\n" +
		"A002,\"Bob, Jr.\",2024-05-02 00:00:00,0,sick\n"
	if buf.String() != want {
		t.Errorf("csv output =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteEventsFormats(t *testing.T) {
	tests := []struct {
		format   string
		contains []string
	}{
		{format: "json", contains: []string{`"student_id": "A001"`, `"status": "present"`, `"note": "sick"`}},
		{format: "yaml", contains: []string{"student_id: A001", "status: absent", "note: sick"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeEvents(&buf, tt.format, exportFixture(), time.UTC); err != nil {
				t.Fatalf("writeEvents() error: %v", err)
			}
			for _, s := range tt.contains {
				if !strings.Contains(buf.String(), s) {
					t.Errorf("output missing %q:\n%s", s, buf.String())
				}
			}
		})
	}
}

func TestWriteEventsUnknownFormat(t *testing.T) {
	if err := writeEvents(&bytes.Buffer{}, "xml", nil, time.UTC); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestCountFrames(t *testing.T) {
	in := "{\"faces\":[]}\n\n   \n{\"faces\":[]}\n{\"faces\":[]}"
	n, err := countFrames(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("countFrames() = %d, want 3", n)
	}
}
