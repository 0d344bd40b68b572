package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var markCmd = &cobra.Command{
	Use:   "mark",
	Short: "Replay captured frames through the auto-mark scheduler",
	Long: `Replay a file of captured frames through the auto-mark scheduler and
record everyone identified in the ledger.

The file holds one JSON frame per line:
  {"time":"2024-05-02T08:00:00Z","faces":[{"embedding":[...128 values...],"bbox":[x1,y1,x2,y2]}]}

Frames keep their recorded time, so the debounce between marking passes is
applied as it was during capture. Frames without a time are stamped with the
current time. Use "-" to read frames from stdin.

Examples:
  face-attendance mark --frames capture.jsonl
  face-attendance mark --frames - --json < capture.jsonl`,
	RunE: runMark,
}

func init() {
	rootCmd.AddCommand(markCmd)

	markCmd.Flags().String("frames", "", "JSON lines file of captured frames (\"-\" for stdin)")
	markCmd.Flags().Bool("json", false, "Print the summary as JSON")
	markCmd.Flags().String("notify-file", "", "Append every marked batch to this file as a JSON line")
	_ = markCmd.MarkFlagRequired("frames")
}

// openFrames opens a frames file, or stdin for "-".
func openFrames(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening frames: %w", err)
	}
	return f, nil
}

// countFrames counts the non-blank lines of r.
func countFrames(r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4<<20)
	n := 0
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) > 0 {
			n++
		}
	}
	return n, sc.Err()
}

func runMark(cmd *cobra.Command, args []string) error {
	framesPath := mustGetString(cmd, "frames")
	jsonOutput := mustGetBool(cmd, "json")
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	session, closeNotify, err := a.newSession(mustGetString(cmd, "notify-file"))
	if err != nil {
		return err
	}
	defer closeNotify()

	in, err := openFrames(framesPath)
	if err != nil {
		return err
	}
	defer in.Close()

	// A known frame count gives the progress bar a total; stdin is replayed
	// without one.
	total := -1
	if seeker, ok := in.(io.Seeker); ok {
		if n, err := countFrames(in); err == nil {
			total = n
		}
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("rewinding frames: %w", err)
		}
	}

	if !jsonOutput {
		fmt.Printf("Gallery: %d people, threshold %.2f, debounce %s\n",
			a.gallery.Current().Len(), a.cfg.Attendance.MatchThreshold, session.Interval())
	}

	runner := capture.NewRunner(session, capture.NewJSONLSource(in), 0)

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Replaying frames"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("frames"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
		runner.OnFrame(func(capture.Frame, capture.BatchResult, bool) {
			_ = bar.Add(1)
		})
	}

	summary, err := runner.Run(ctx)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("replaying frames: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("Frames:         %d\n", summary.Frames)
	fmt.Printf("Marking passes: %d\n", summary.Passes)
	fmt.Printf("Marked present: %d\n", summary.Marked)
	fmt.Printf("Already marked: %d\n", summary.AlreadyMarked)
	fmt.Printf("Unknown faces:  %d\n", summary.Unknown)
	return nil
}
