package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/stats"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show daily present and absent counts",
	Long: `Show the number of Present and Absent events per day over a trailing window
ending at the given date. Days without events are not listed.

Examples:
  face-attendance stats
  face-attendance stats --window 7 --date 2024-05-02 --json`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Int("window", 0, "Trailing window in days, 0 for the given date only (default STATS_WINDOW_DAYS)")
	statsCmd.Flags().String("date", "", "Last day of the window (YYYY-MM-DD, default today)")
	statsCmd.Flags().Bool("json", false, "Output as JSON")
}

type statsOutput struct {
	Date         ledger.Date       `json:"date"`
	WindowDays   int               `json:"window_days"`
	Days         []stats.DailyStat `json:"days"`
	TotalPresent int               `json:"total_present"`
	TotalAbsent  int               `json:"total_absent"`
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	date, err := parseDateFlag(mustGetString(cmd, "date"), a.ledger)
	if err != nil {
		return err
	}
	window, err := statsWindow(cmd, a.cfg.Attendance.StatsWindowDays)
	if err != nil {
		return err
	}

	days := stats.Aggregate(a.ledger.Events(), window, date, a.loc)
	present, absent := stats.Totals(days)

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(statsOutput{
			Date: date, WindowDays: window, Days: days,
			TotalPresent: present, TotalAbsent: absent,
		})
	}

	fmt.Printf("Attendance from %s to %s\n\n", date.AddDays(-window), date)
	if len(days) == 0 {
		fmt.Println("No attendance recorded in this window.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tPRESENT\tABSENT")
	fmt.Fprintln(w, "----\t-------\t------")
	for _, d := range days {
		fmt.Fprintf(w, "%s\t%d\t%d\n", d.Date, d.Present, d.Absent)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d present, %d absent over %d day(s)\n", present, absent, len(days))
	return nil
}

// statsWindow returns --window when it was given, otherwise fallback.
func statsWindow(cmd *cobra.Command, fallback int) (int, error) {
	if !cmd.Flags().Changed("window") {
		return fallback, nil
	}
	window := mustGetInt(cmd, "window")
	if window < 0 {
		return 0, fmt.Errorf("--window must not be negative, got %d", window)
	}
	return window, nil
}
