package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/apiclient"
	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show processing statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().String("server", "", "Read via a running server (e.g. http://localhost:5000)")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	serverURL := mustGetString(cmd, "server")

	var stats database.Stats

	if serverURL != "" {
		client, err := apiclient.NewWithCapture(serverURL, cfg.Security.APIToken, captureDir)
		if err != nil {
			return err
		}
		remote, err := client.Stats()
		if err != nil {
			return fmt.Errorf("failed to fetch stats: %w", err)
		}
		stats = database.Stats{
			TotalFaces:        remote.TotalFaces,
			TotalRecordings:   remote.TotalRecordings,
			TotalFrames:       remote.TotalFrames,
			TotalDetections:   remote.TotalDetections,
			TotalAttendance:   remote.TotalAttendance,
			UniquePeople:      remote.UniquePeople,
			AverageConfidence: remote.AverageConfidence,
		}
	} else {
		if err := initDatabase(cfg); err != nil {
			return err
		}
		reader, err := database.GetStatsReader()
		if err != nil {
			return err
		}
		got, err := reader.ProcessingStats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}
		stats = *got
	}

	fmt.Printf("Known faces:        %d (%d people)\n", stats.TotalFaces, stats.UniquePeople)
	fmt.Printf("Recordings:         %d\n", stats.TotalRecordings)
	fmt.Printf("Frames:             %d\n", stats.TotalFrames)
	fmt.Printf("Detections:         %d\n", stats.TotalDetections)
	fmt.Printf("Attendance records: %d\n", stats.TotalAttendance)
	fmt.Printf("Avg confidence:     %.2f\n", stats.AverageConfidence)
	return nil
}
