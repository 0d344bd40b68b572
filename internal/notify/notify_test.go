package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var day = ledger.Date{Year: 2024, Month: 5, Day: 2}

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf)

	err := n.NotifyMarked(context.Background(), day, []MarkedPerson{
		{StudentID: "A001", Name: "Alice"},
		{StudentID: "A002", Name: "Bob"},
	})
	if err != nil {
		t.Fatalf("NotifyMarked() error: %v", err)
	}

	want := `{"date":"2024-05-02","people":[{"student_id":"A001","name":"Alice"},{"student_id":"A002","name":"Bob"}]}` + "\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewLogNotifier(logging.FromZap(zap.New(core)))

	if err := n.NotifyMarked(context.Background(), day, []MarkedPerson{{StudentID: "A001", Name: "Alice"}}); err != nil {
		t.Fatal(err)
	}
	entries := logs.FilterMessage("attendance marked").All()
	if len(entries) != 1 || entries[0].ContextMap()["student_id"] != "A001" {
		t.Errorf("log entries = %+v", entries)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("pipe closed") }

func TestMulti(t *testing.T) {
	var buf bytes.Buffer
	m := Multi{NewWriterNotifier(failingWriter{}), NewWriterNotifier(&buf)}

	err := m.NotifyMarked(context.Background(), day, []MarkedPerson{{StudentID: "A001"}})
	if err == nil || !strings.Contains(err.Error(), "pipe closed") {
		t.Errorf("Multi error = %v, want the first failure", err)
	}
	if buf.Len() == 0 {
		t.Error("later notifier skipped after an earlier failure")
	}
}
