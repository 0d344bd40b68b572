package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List attendance events of a day",
	Long: `List the attendance events of one day, optionally limited to a class.

With --absentees, list the enrolled people who have not been marked present
instead.

Examples:
  face-attendance list
  face-attendance list --date 2024-05-02 --class 10A
  face-attendance list --absentees --class 10B`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("date", "", "Date (YYYY-MM-DD, default today)")
	listCmd.Flags().String("class", constants.AllClasses, "Class filter (\"All\" for every class)")
	listCmd.Flags().Bool("absentees", false, "List people not marked present instead of events")
}

func runList(cmd *cobra.Command, args []string) error {
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
	g := a.gallery.Current()

	if mustGetBool(cmd, "absentees") {
		people := a.ledger.Absentees(date, class, g)
		if len(people) == 0 {
			fmt.Printf("Nobody in %s is missing on %s.\n", class, date)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCLASS")
		fmt.Fprintln(w, "--\t----\t-----")
		for _, p := range people {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.ClassTag)
		}
		w.Flush()
		fmt.Printf("\nTotal: %d not marked present\n", len(people))
		return nil
	}

	events := a.ledger.Query(ledger.Filter{Date: date, Class: class}, g)
	if len(events) == 0 {
		fmt.Printf("No attendance recorded for %s on %s.\n", class, date)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCLASS\tTIME\tSTATUS\tNOTE")
	fmt.Fprintln(w, "--\t----\t-----\t----\t------\t----")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.StudentID, e.Name, g.ClassOf(e.StudentID),
			e.Timestamp.In(a.loc).Format(ledger.TimestampLayout), e.Status, e.Note)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d events\n", len(events))
	return nil
}
