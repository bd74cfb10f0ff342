package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Manage the known faces dataset",
	Long:  `Commands for loading reference photos into the face index and inspecting known faces.`,
}

var datasetLoadCmd = &cobra.Command{
	Use:   "load [dir]",
	Short: "Load reference photos into the face index",
	Long: `Scan a directory of reference photos named <person>_<n>.jpg, index the
face found in each and persist new faces to the database. Without an
argument the configured DATASET_PATH is scanned.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDatasetLoad,
}

var datasetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known people and their face samples",
	RunE:  runDatasetList,
}

func init() {
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetLoadCmd)
	datasetCmd.AddCommand(datasetListCmd)
}

func runDatasetLoad(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	dir := cfg.Recognition.DatasetDir
	if len(args) > 0 {
		dir = args[0]
	}

	if err := initDatabase(cfg); err != nil {
		return err
	}

	pipe, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	faces, err := database.GetFaceWriter()
	if err != nil {
		return err
	}

	fmt.Printf("Loading dataset from %s\n", dir)

	// The bar is created on the first callback, once the file count is known.
	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Indexing faces"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("photos"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionFullWidth(),
			)
		}
		_ = bar.Set(done)
	}

	result, err := pipe.recognizer.LoadDataset(context.Background(), dir, faces, progress)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	if bar != nil {
		fmt.Println()
	}

	fmt.Printf("Indexed %d faces for %d people\n", result.FacesLoaded, result.UniquePeople)
	return nil
}

func runDatasetList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if err := initDatabase(cfg); err != nil {
		return err
	}

	faces, err := database.GetFaceReader()
	if err != nil {
		return err
	}

	all, err := faces.ListFaces(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list faces: %w", err)
	}

	if len(all) == 0 {
		fmt.Println("No known faces stored. Run 'face-attend dataset load' first.")
		return nil
	}

	samples := make(map[string]int)
	for _, f := range all {
		samples[f.PersonName]++
	}

	names := make([]string, 0, len(samples))
	for name := range samples {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PERSON\tSAMPLES")
	fmt.Fprintln(w, "------\t-------")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%d\n", name, samples[name])
	}
	w.Flush()

	fmt.Printf("\nTotal: %d faces, %d people\n", len(all), len(names))
	return nil
}
