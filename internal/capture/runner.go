package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// Frame is the output of the face-recognition collaborator for one camera
// frame. A zero Time means "when the frame is processed".
type Frame struct {
	Time  time.Time             `json:"time"`
	Faces []facematch.Detection `json:"faces"`
}

// FrameSource yields frames until it returns io.EOF.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
}

// maxFrameLine bounds one JSON frame line; 128 floats per face leave room
// for dozens of faces.
const maxFrameLine = 4 << 20

// JSONLSource reads one JSON frame per line. Blank lines are ignored.
type JSONLSource struct {
	scanner *bufio.Scanner
	line    int
}

func NewJSONLSource(r io.Reader) *JSONLSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxFrameLine)
	return &JSONLSource{scanner: sc}
}

func (s *JSONLSource) Next(ctx context.Context) (Frame, error) {
	for s.scanner.Scan() {
		s.line++
		text := strings.TrimSpace(s.scanner.Text())
		if text == "" {
			continue
		}
		var f Frame
		if err := json.Unmarshal([]byte(text), &f); err != nil {
			return Frame{}, fmt.Errorf("line %d: decoding frame: %w", s.line, err)
		}
		return f, nil
	}
	if err := s.scanner.Err(); err != nil {
		return Frame{}, fmt.Errorf("reading frames: %w", err)
	}
	return Frame{}, io.EOF
}

// Line returns the number of the last line read.
func (s *JSONLSource) Line() int {
	return s.line
}

// Summary accumulates the results of a run.
type Summary struct {
	Frames        int `json:"frames"`
	Passes        int `json:"passes"`
	Marked        int `json:"marked"`
	AlreadyMarked int `json:"already_marked"`
	Unknown       int `json:"unknown"`
}

// Runner issues scheduler ticks for every frame of a source. Stopping is
// cancelling the context; a tick in progress always completes.
type Runner struct {
	session *Session
	source  FrameSource
	pace    time.Duration
	clock   func() time.Time
	onFrame func(Frame, BatchResult, bool)
}

// NewRunner creates a runner. pace is the delay between frames; zero replays
// frames as fast as possible.
func NewRunner(session *Session, source FrameSource, pace time.Duration) *Runner {
	return &Runner{session: session, source: source, pace: pace, clock: time.Now}
}

// OnFrame registers a callback invoked after every frame with the tick result
// and whether a marking pass ran.
func (r *Runner) OnFrame(fn func(frame Frame, result BatchResult, ran bool)) {
	r.onFrame = fn
}

// Run processes frames until the source is exhausted or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	var ticker *time.Ticker
	if r.pace > 0 {
		ticker = time.NewTicker(r.pace)
		defer ticker.Stop()
	}

	for {
		if err := ctx.Err(); err != nil {
			return sum, nil
		}

		frame, err := r.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return sum, nil
		}
		if err != nil {
			return sum, err
		}
		if frame.Time.IsZero() {
			frame.Time = r.clock()
		}

		result, ran, err := r.session.Tick(ctx, frame.Time, frame.Faces)
		sum.Frames++
		if ran {
			sum.Passes++
			sum.Marked += len(result.Marked)
			sum.AlreadyMarked += len(result.AlreadyMarked)
			sum.Unknown += result.Unknown
		}
		if err != nil {
			return sum, err
		}
		if r.onFrame != nil {
			r.onFrame(frame, result, ran)
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return sum, nil
			case <-ticker.C:
			}
		}
	}
}
