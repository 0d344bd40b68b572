// Package notify hands the people marked present in one batch to an
// outbound notification channel.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

// MarkedPerson is one person newly marked present.
type MarkedPerson struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
}

// Notifier receives the people newly marked present by one batch. Batches
// where nobody was newly marked are not delivered.
type Notifier interface {
	NotifyMarked(ctx context.Context, date ledger.Date, people []MarkedPerson) error
}

// LogNotifier writes each batch to a structured logger.
type LogNotifier struct {
	log *logging.Logger
}

func NewLogNotifier(log *logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyMarked(ctx context.Context, date ledger.Date, people []MarkedPerson) error {
	for _, p := range people {
		n.log.Info("attendance marked", "date", date.String(), "student_id", p.StudentID, "name", p.Name)
	}
	return nil
}

// WriterNotifier writes each batch as one JSON line, for piping into an
// external mailer.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

type batchLine struct {
	Date   ledger.Date    `json:"date"`
	People []MarkedPerson `json:"people"`
}

func (n *WriterNotifier) NotifyMarked(ctx context.Context, date ledger.Date, people []MarkedPerson) error {
	data, err := json.Marshal(batchLine{Date: date, People: people})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := n.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing notification: %w", err)
	}
	return nil
}

// Multi fans a batch out to several notifiers, returning the first error.
type Multi []Notifier

func (m Multi) NotifyMarked(ctx context.Context, date ledger.Date, people []MarkedPerson) error {
	var firstErr error
	for _, n := range m {
		if err := n.NotifyMarked(ctx, date, people); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
