package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/absence"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/spf13/cobra"
)

var absentCmd = &cobra.Command{
	Use:   "absent",
	Short: "Record an absence note for everyone not marked present",
	Long: `Append an Absent event, timestamped at midnight, for every enrolled person
of a class who has no Present event on the given date.

Running the command twice for the same date appends a second row per absentee.

Examples:
  face-attendance absent --note "school trip"
  face-attendance absent --date 2024-05-02 --class 10A --note "sick leave"`,
	RunE: runAbsent,
}

func init() {
	rootCmd.AddCommand(absentCmd)

	absentCmd.Flags().String("date", "", "Date (YYYY-MM-DD, default today)")
	absentCmd.Flags().String("class", constants.AllClasses, "Class to record (\"All\" for every class)")
	absentCmd.Flags().String("note", "", "Absence note")
	_ = absentCmd.MarkFlagRequired("note")
}

// parseDateFlag parses a YYYY-MM-DD flag; empty means today in the ledger's
// time zone.
func parseDateFlag(value string, l *ledger.Ledger) (ledger.Date, error) {
	if value == "" {
		return l.Today(time.Now()), nil
	}
	d, err := ledger.ParseDate(value)
	if err != nil {
		return ledger.Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return d, nil
}

func runAbsent(cmd *cobra.Command, args []string) error {
	note := mustGetString(cmd, "note")
	if note == "" {
		return errors.New("--note must not be empty")
	}
	class := mustGetString(cmd, "class")
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

	n, err := absence.NewRecorder(a.ledger).RecordAbsences(ctx, date, class, note, a.gallery.Current())
	if err != nil {
		return err
	}
	a.metrics.AddAbsences(n)

	if n == 0 {
		fmt.Printf("Everyone in %s was present on %s, nothing recorded.\n", class, date)
		return nil
	}
	fmt.Printf("Recorded %d absence(s) for %s on %s: %q\n", n, class, date, note)
	return nil
}
