package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status of an attendance event. The persisted encoding is "1" for Present
// and "0" for Absent.
type Status int

const (
	Absent Status = iota
	Present
)

func (s Status) String() string {
	if s == Present {
		return "Present"
	}
	return "Absent"
}

// Code returns the persisted encoding.
func (s Status) Code() string {
	if s == Present {
		return "1"
	}
	return "0"
}

// ParseStatus decodes the persisted encoding.
func ParseStatus(code string) (Status, error) {
	switch strings.TrimSpace(code) {
	case "1":
		return Present, nil
	case "0":
		return Absent, nil
	default:
		return Absent, fmt.Errorf("%w: status %q", ErrMalformedRow, code)
	}
}

// Event is one attendance record. Events are never mutated once appended.
type Event struct {
	StudentID string    `json:"student_id" yaml:"student_id"`
	Name      string    `json:"name" yaml:"name"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Status    Status    `json:"status" yaml:"status"`
	Note      string    `json:"note,omitempty" yaml:"note,omitempty"`
}

// Persisted row layout.
const (
	TimestampLayout = "2006-01-02 15:04:05"
	rowColumns      = 5
)

// Header is the first row of the persisted ledger.
var Header = []string{"Student ID", "Name", "Date", "Status", "Note"}

var ErrMalformedRow = errors.New("malformed ledger row")

// EncodeRow renders an event in persisted column order.
func EncodeRow(e Event, loc *time.Location) []string {
	return []string{
		e.StudentID,
		e.Name,
		e.Timestamp.In(loc).Format(TimestampLayout),
		e.Status.Code(),
		e.Note,
	}
}

// DecodeRow parses a persisted row. Timestamps carry no zone and are read in loc.
func DecodeRow(row []string, loc *time.Location) (Event, error) {
	if len(row) != rowColumns {
		return Event{}, fmt.Errorf("%w: %d columns", ErrMalformedRow, len(row))
	}
	if row[0] == "" {
		return Event{}, fmt.Errorf("%w: empty student id", ErrMalformedRow)
	}
	ts, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(row[2]), loc)
	if err != nil {
		return Event{}, fmt.Errorf("%w: timestamp %q", ErrMalformedRow, row[2])
	}
	status, err := ParseStatus(row[3])
	if err != nil {
		return Event{}, err
	}
	return Event{
		StudentID: row[0],
		Name:      row[1],
		Timestamp: ts,
		Status:    status,
		Note:      row[4],
	}, nil
}

// IsHeader reports whether row is the persisted header row.
func IsHeader(row []string) bool {
	return len(row) > 0 && row[0] == Header[0]
}

// MarshalText encodes the status as "present" or "absent".
func (s Status) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// UnmarshalText accepts "present"/"absent" as well as the persisted "1"/"0".
func (s *Status) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "present", "1":
		*s = Present
	case "absent", "0":
		*s = Absent
	default:
		return fmt.Errorf("unknown status %q", string(b))
	}
	return nil
}
