// Package capture drives attendance marking from camera frames: it matches
// the faces of each frame and marks the identified people, either on demand
// or from a debounced scheduler tick.
package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/notify"
)

// BatchResult describes one marking pass over a frame.
type BatchResult struct {
	Faces         []facematch.FaceMatch `json:"faces"`
	Marked        []notify.MarkedPerson `json:"marked"`
	AlreadyMarked []notify.MarkedPerson `json:"already_marked"`
	Unknown       int                   `json:"unknown"`
}

// Session is one attendance-taking session. It owns the debounce timestamp
// of the auto-mark mode; the ledger itself knows nothing about it.
type Session struct {
	matcher  *facematch.Matcher
	ledger   *ledger.Ledger
	gallery  *gallery.Holder
	interval time.Duration
	notifier notify.Notifier
	metrics  *metrics.Recorder
	log      *logging.Logger

	mu       sync.Mutex
	lastMark time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithInterval sets the minimum time between two auto-mark passes.
func WithInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Session) { s.metrics = m }
}

func WithLogger(l *logging.Logger) Option {
	return func(s *Session) { s.log = l }
}

// NewSession creates a session matching against the snapshots of holder.
func NewSession(m *facematch.Matcher, l *ledger.Ledger, holder *gallery.Holder, opts ...Option) *Session {
	s := &Session{
		matcher:  m,
		ledger:   l,
		gallery:  holder,
		interval: constants.DefaultAutoMarkInterval,
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identify matches every face of a frame against the current gallery
// snapshot without touching the ledger.
func (s *Session) Identify(detections []facematch.Detection) []facematch.FaceMatch {
	faces := s.matcher.MatchFrame(detections, s.gallery.Current())
	for _, f := range faces {
		s.metrics.ObserveMatch(f.Result.Matched())
	}
	return faces
}

// MarkNow matches the frame and marks every identified person, ignoring the
// debounce. This is the manual "mark" action.
func (s *Session) MarkNow(ctx context.Context, now time.Time, detections []facematch.Detection) (BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mark(ctx, now, detections)
}

// Tick is one auto-mark scheduler tick. Frames without faces, and ticks
// within the interval of the last pass that marked someone, are skipped
// before any matching happens. ran reports whether a pass took place.
func (s *Session) Tick(ctx context.Context, now time.Time, detections []facematch.Detection) (result BatchResult, ran bool, err error) {
	if len(detections) == 0 {
		return BatchResult{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastMark.IsZero() && now.Sub(s.lastMark) <= s.interval {
		return BatchResult{}, false, nil
	}
	result, err = s.mark(ctx, now, detections)
	return result, true, err
}

// LastMark returns when a pass last marked someone new.
func (s *Session) LastMark() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMark
}

// Interval returns the auto-mark debounce interval.
func (s *Session) Interval() time.Duration {
	return s.interval
}

// mark marks every identified face of a frame. When the store fails partway,
// the people already written are still notified and still advance the
// debounce before the error is returned.
func (s *Session) mark(ctx context.Context, now time.Time, detections []facematch.Detection) (BatchResult, error) {
	result := BatchResult{
		Faces:         s.Identify(detections),
		Marked:        []notify.MarkedPerson{},
		AlreadyMarked: []notify.MarkedPerson{},
	}

	var markErr error
	for _, f := range result.Faces {
		if !f.Result.Matched() {
			result.Unknown++
			continue
		}
		person := notify.MarkedPerson{StudentID: f.Result.StudentID, Name: f.Result.Name}
		outcome, err := s.ledger.Mark(ctx, person.StudentID, person.Name, now)
		if err != nil {
			s.metrics.ObserveMark("error")
			markErr = fmt.Errorf("marking %s: %w", person.StudentID, err)
			break
		}
		s.metrics.ObserveMark(outcome.String())

		switch outcome {
		case ledger.Marked:
			result.Marked = append(result.Marked, person)
			s.log.Info("marked present", "student_id", person.StudentID, "name", person.Name, "distance", f.Result.Distance)
		case ledger.AlreadyMarked:
			result.AlreadyMarked = append(result.AlreadyMarked, person)
		}
	}

	if len(result.Marked) > 0 {
		s.lastMark = now
		s.metrics.SetLedger(s.ledger.Len(), s.ledger.LoadReport().Skipped)
		if s.notifier != nil {
			date := s.ledger.Today(now)
			if err := s.notifier.NotifyMarked(ctx, date, result.Marked); err != nil {
				s.log.Warn("notification failed", "date", date.String(), "error", err)
			}
		}
	}
	return result, markErr
}
