package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge <student-id>",
	Short: "Delete every attendance event of a person",
	Long: `Delete every attendance event of one person from the ledger, for example
when a student leaves the school.

With --unenroll the person is also removed from a database gallery source.

Example:
  face-attendance purge A001
  face-attendance purge A001 --yes --unenroll`,
	Args: cobra.ExactArgs(1),
	RunE: runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)

	purgeCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	purgeCmd.Flags().Bool("unenroll", false, "Also remove the person from the gallery source")
}

// galleryDeleter is implemented by the database gallery sources.
type galleryDeleter interface {
	Delete(ctx context.Context, id string) error
}

func confirmAction(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func runPurge(cmd *cobra.Command, args []string) error {
	studentID := strings.TrimSpace(args[0])
	if studentID == "" {
		return errors.New("student id must not be empty")
	}
	skipConfirm := mustGetBool(cmd, "yes")
	unenroll := mustGetBool(cmd, "unenroll")
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	purger := a.purger()
	if purger == nil {
		return fmt.Errorf("ledger backend %q does not support purging", a.cfg.Ledger.Backend)
	}
	var deleter galleryDeleter
	if unenroll {
		d, ok := a.source.(galleryDeleter)
		if !ok {
			return fmt.Errorf("gallery source %q does not support unenrolling", a.cfg.Gallery.Source)
		}
		deleter = d
	}

	if p, ok := a.gallery.Current().Lookup(studentID); ok {
		fmt.Printf("Person: %s (%s, class %s)\n", p.Name, p.ID, p.ClassTag)
	} else {
		fmt.Printf("Person: %s (not enrolled)\n", studentID)
	}

	if !skipConfirm && !confirmAction(fmt.Sprintf("\nDelete every attendance event of %s? [y/N]: ", studentID)) {
		fmt.Println("Cancelled.")
		return nil
	}

	removed, err := purger.Purge(ctx, studentID)
	if err != nil {
		return fmt.Errorf("purging events: %w", err)
	}
	fmt.Printf("Removed %d event(s) of %s\n", removed, studentID)

	if deleter != nil {
		if err := deleter.Delete(ctx, studentID); err != nil {
			return fmt.Errorf("unenrolling %s: %w", studentID, err)
		}
		fmt.Printf("Removed %s from the %s gallery\n", studentID, a.cfg.Gallery.Source)
	}
	return nil
}
