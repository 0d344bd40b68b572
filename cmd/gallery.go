package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Inspect and import the enrolled-people gallery",
}

var galleryClassesCmd = &cobra.Command{
	Use:   "classes",
	Short: "List the classes of the gallery with their head counts",
	RunE:  runGalleryClasses,
}

var galleryDuplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Find enrolled people whose embeddings would match each other",
	Long: `Find pairs of enrolled people whose embeddings are within the match
threshold of each other. Such pairs can be mistaken for one another when
marking attendance; the earlier enrollment always wins.

Example:
  face-attendance gallery duplicates --threshold 0.5`,
	RunE: runGalleryDuplicates,
}

var galleryImportCmd = &cobra.Command{
	Use:   "import <gallery.yaml>",
	Short: "Import a YAML gallery into the configured database source",
	Long: `Validate a YAML gallery file and upsert every person into the gallery
source configured by GALLERY_SOURCE (postgres or mariadb). People already
stored keep their enrollment order.

With --check the file is only validated and checked for duplicate enrollments.

Example:
  face-attendance gallery import enrolled.yaml --check
  GALLERY_SOURCE=postgres face-attendance gallery import enrolled.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runGalleryImport,
}

var galleryNearestCmd = &cobra.Command{
	Use:   "nearest <frames.jsonl>",
	Short: "Show the enrolled people nearest to the faces of a frame",
	Long: `Show the k enrolled people nearest to every face of the first frame of a
frames file. Useful for tuning MATCH_THRESHOLD.

Distances are computed by the database when GALLERY_SOURCE is postgres and by
an in-memory HNSW index otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: runGalleryNearest,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryClassesCmd, galleryDuplicatesCmd, galleryImportCmd, galleryNearestCmd)

	galleryDuplicatesCmd.Flags().Float64("threshold", 0, "Distance threshold (default MATCH_THRESHOLD)")
	galleryDuplicatesCmd.Flags().Bool("json", false, "Output as JSON")

	galleryImportCmd.Flags().Bool("check", false, "Only validate the file, do not import")

	galleryNearestCmd.Flags().Int("k", 3, "Number of people to show per face")
}

// gallerySaver is implemented by the database gallery sources.
type gallerySaver interface {
	SaveGallery(ctx context.Context, g *gallery.Gallery) (int, error)
}

// nearestFinder is implemented by gallery sources that search by distance.
type nearestFinder interface {
	Nearest(ctx context.Context, embedding []float32, k int) ([]gallery.EnrolledPerson, []float64, error)
}

func runGalleryClasses(cmd *cobra.Command, args []string) error {
	a, err := openApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	g := a.gallery.Current()
	classes := g.Classes()
	if len(classes) == 0 {
		fmt.Println("The gallery is empty.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLASS\tPEOPLE")
	fmt.Fprintln(w, "-----\t------")
	for _, class := range classes {
		fmt.Fprintf(w, "%s\t%d\n", class, len(g.Filter(class)))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d people in %d classes\n", g.Len(), len(classes))
	return nil
}

func printDuplicates(pairs []database.DuplicatePair, threshold float64) {
	if len(pairs) == 0 {
		fmt.Printf("No enrollments within %.2f of each other.\n", threshold)
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIRST\tSECOND\tDISTANCE")
	fmt.Fprintln(w, "-----\t------\t--------")
	for _, p := range pairs {
		fmt.Fprintf(w, "%s (%s)\t%s (%s)\t%.4f\n", p.First.Name, p.First.ID, p.Second.Name, p.Second.ID, p.Distance)
	}
	w.Flush()
	fmt.Printf("\nTotal: %d possible duplicates\n", len(pairs))
}

func runGalleryDuplicates(cmd *cobra.Command, args []string) error {
	a, err := openApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	threshold := mustGetFloat64(cmd, "threshold")
	if threshold <= 0 {
		threshold = a.cfg.Attendance.MatchThreshold
	}

	pairs := database.FindDuplicates(a.gallery.Current(), threshold)
	if mustGetBool(cmd, "json") {
		if pairs == nil {
			pairs = []database.DuplicatePair{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pairs)
	}
	printDuplicates(pairs, threshold)
	return nil
}

func runGalleryImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	g, err := gallery.NewFileSource(args[0]).LoadGallery(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Read %d people in %d classes from %s\n", g.Len(), len(g.Classes()), args[0])

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if pairs := database.FindDuplicates(g, a.cfg.Attendance.MatchThreshold); len(pairs) > 0 {
		fmt.Println("\nWarning: some enrollments would match each other:")
		printDuplicates(pairs, a.cfg.Attendance.MatchThreshold)
	}

	if mustGetBool(cmd, "check") {
		fmt.Println("Check only, nothing imported.")
		return nil
	}

	saver, ok := a.source.(gallerySaver)
	if !ok {
		return fmt.Errorf("gallery source %q does not support importing (use postgres or mariadb)", a.cfg.Gallery.Source)
	}
	n, err := saver.SaveGallery(ctx, g)
	if err != nil {
		return fmt.Errorf("importing gallery: %w", err)
	}
	fmt.Printf("Imported %d people into the %s gallery\n", n, a.cfg.Gallery.Source)
	return nil
}

func runGalleryNearest(cmd *cobra.Command, args []string) error {
	k := mustGetInt(cmd, "k")
	if k <= 0 {
		return errors.New("--k must be positive")
	}
	ctx := context.Background()

	in, err := openFrames(args[0])
	if err != nil {
		return err
	}
	defer in.Close()
	frame, err := capture.NewJSONLSource(in).Next(ctx)
	if err != nil {
		return fmt.Errorf("reading first frame: %w", err)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var search func(embedding []float32) ([]gallery.EnrolledPerson, []float64, error)
	if finder, ok := a.source.(nearestFinder); ok {
		search = func(embedding []float32) ([]gallery.EnrolledPerson, []float64, error) {
			return finder.Nearest(ctx, embedding, k)
		}
	} else {
		idx := database.NewGalleryIndex()
		idx.Build(a.gallery.Current())
		search = func(embedding []float32) ([]gallery.EnrolledPerson, []float64, error) {
			return idx.Search(embedding, k)
		}
	}

	for i, face := range frame.Faces {
		people, distances, err := search(face.Embedding)
		if err != nil {
			return fmt.Errorf("face %d: %w", i, err)
		}
		fmt.Printf("Face %d:\n", i)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for j, p := range people {
			match := ""
			if distances[j] <= a.cfg.Attendance.MatchThreshold {
				match = "match"
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%.4f\t%s\n", p.ID, p.Name, p.ClassTag, distances[j], match)
		}
		w.Flush()
	}
	return nil
}
