package ledger

import (
	"testing"
	"time"
)

func TestDateOf(t *testing.T) {
	ict := time.FixedZone("ICT", 7*3600)
	instant := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

	if got := DateOf(instant, time.UTC).String(); got != "2024-05-01" {
		t.Errorf("DateOf(UTC) = %s, want 2024-05-01", got)
	}
	if got := DateOf(instant, ict).String(); got != "2024-05-02" {
		t.Errorf("DateOf(ICT) = %s, want 2024-05-02", got)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{"2024-05-02", Date{2024, time.May, 2}, false},
		{"2024-02-29", Date{2024, time.February, 29}, false},
		{"2023-02-29", Date{}, true},
		{"02-05-2024", Date{}, true},
		{"", Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDate_AddDays(t *testing.T) {
	tests := []struct {
		from string
		n    int
		want string
	}{
		{"2024-05-02", 0, "2024-05-02"},
		{"2024-05-02", -30, "2024-04-02"},
		{"2024-03-01", -1, "2024-02-29"},
		{"2024-12-31", 1, "2025-01-01"},
	}

	for _, tt := range tests {
		d, _ := ParseDate(tt.from)
		if got := d.AddDays(tt.n).String(); got != tt.want {
			t.Errorf("%s.AddDays(%d) = %s, want %s", tt.from, tt.n, got, tt.want)
		}
	}
}

func TestDate_Compare(t *testing.T) {
	a := Date{2024, time.May, 2}
	tests := []struct {
		b    Date
		want int
	}{
		{Date{2024, time.May, 2}, 0},
		{Date{2024, time.May, 3}, -1},
		{Date{2024, time.April, 30}, 1},
		{Date{2025, time.January, 1}, -1},
		{Date{2023, time.December, 31}, 1},
	}
	for _, tt := range tests {
		if got := a.Compare(tt.b); got != tt.want {
			t.Errorf("%s.Compare(%s) = %d, want %d", a, tt.b, got, tt.want)
		}
	}
}

func TestDate_Start(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	start := Date{2024, time.May, 2}.Start(loc)
	if start.Format(TimestampLayout) != "2024-05-02 00:00:00" || start.Location() != loc {
		t.Errorf("Start() = %v", start)
	}
	if !(Date{}).IsZero() || (Date{2024, time.May, 2}).IsZero() {
		t.Error("IsZero() wrong")
	}
}
