package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run auto-mark mode on a live frame stream",
	Long: `Run the auto-mark scheduler on a stream of frames, one tick per frame.

Frames are read as JSON lines (see "mark --help") from a file or from stdin,
typically piped from the face-recognition process. Frames without a time are
stamped on arrival. After a pass marks someone, further passes are skipped for
AUTO_MARK_INTERVAL (3s by default). Stop with Ctrl+C.

Example:
  face-detector --camera 0 | face-attendance watch --frames -`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("frames", "-", "JSON lines frame stream (\"-\" for stdin)")
	watchCmd.Flags().Duration("pace", constants.DefaultFrameInterval, "Delay between two scheduler ticks")
	watchCmd.Flags().String("notify-file", "", "Append every marked batch to this file as a JSON line")
}

func runWatch(cmd *cobra.Command, args []string) error {
	pace, err := cmd.Flags().GetDuration("pace")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	in, err := openFrames(mustGetString(cmd, "frames"))
	if err != nil {
		return err
	}
	defer in.Close()

	runner := capture.NewRunner(session, capture.NewJSONLSource(in), pace)
	runner.OnFrame(func(frame capture.Frame, result capture.BatchResult, ran bool) {
		if !ran {
			return
		}
		stamp := frame.Time.In(a.loc).Format(time.TimeOnly)
		for _, p := range result.Marked {
			fmt.Printf("%s  marked present  %s (%s)\n", stamp, p.Name, p.StudentID)
		}
		for _, p := range result.AlreadyMarked {
			fmt.Printf("%s  already marked  %s (%s)\n", stamp, p.Name, p.StudentID)
		}
		if result.Unknown > 0 {
			fmt.Printf("%s  unknown faces   %d\n", stamp, result.Unknown)
		}
	})

	fmt.Printf("Watching frames (gallery: %d people, debounce %s). Press Ctrl+C to stop.\n",
		a.gallery.Current().Len(), session.Interval())

	summary, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("watching frames: %w", err)
	}
	fmt.Printf("\nStopped after %d frames: %d marked, %d already marked, %d unknown\n",
		summary.Frames, summary.Marked, summary.AlreadyMarked, summary.Unknown)
	return nil
}
