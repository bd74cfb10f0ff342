package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/apiclient"
	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/processor"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run face recognition over the frames of a recording",
	Long: `Process the registered frames of a recording through detection,
recognition and the stability engine, writing detections and attendance
to the database. With --interval set, frames are extracted first.

With --server the work runs as a background job on a running Face Attend
server and this command watches its progress.`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().Int64("recording", 0, "Recording ID (0 = most recent)")
	processCmd.Flags().Int("interval", 0, "Extract every Nth frame first (0 = skip extraction)")
	processCmd.Flags().Int("workers", 0, "Parallel workers (0 = default)")
	processCmd.Flags().String("server", "", "Process via a running server (e.g. http://localhost:5000)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	recordingID := mustGetInt64(cmd, "recording")
	interval := mustGetInt(cmd, "interval")
	workers := mustGetInt(cmd, "workers")
	serverURL := mustGetString(cmd, "server")

	if serverURL != "" {
		return processViaServer(cfg, serverURL, recordingID, interval, workers)
	}
	return processLocally(cfg, recordingID, interval, workers)
}

func processLocally(cfg *config.Config, recordingID int64, interval, workers int) error {
	if err := initDatabase(cfg); err != nil {
		return err
	}

	pipe, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := loadKnownFaces(ctx, pipe.recognizer, cfg); err != nil {
		return err
	}

	recordings, err := database.GetRecordingStore()
	if err != nil {
		return err
	}
	frames, err := database.GetFrameStore()
	if err != nil {
		return err
	}
	sessions, err := database.GetSessionStore()
	if err != nil {
		return err
	}

	if interval > 0 {
		extractor := processor.NewExtractor(recordings, frames, cfg.Storage.Dir)
		extracted, err := extractor.Extract(ctx, recordingID, interval)
		if err != nil {
			return fmt.Errorf("failed to extract frames: %w", err)
		}
		fmt.Printf("Registered %d frames from recording %d\n", extracted.FramesSaved, extracted.RecordingID)
		if recordingID == 0 {
			recordingID = extracted.RecordingID
		}
	}

	batch := processor.NewBatch(pipe.processor, recordings, frames, sessions)
	result, err := batch.Process(ctx, processor.BatchOptions{
		RecordingID:  recordingID,
		Workers:      workers,
		ShowProgress: true,
	})
	if err != nil {
		return fmt.Errorf("failed to process frames: %w", err)
	}

	printProcessResult(result.SessionID, result.TotalFrames, result.ProcessedFrames,
		result.FacesDetected, result.AttendanceRecorded, len(result.Errors))
	for _, e := range result.Errors {
		fmt.Printf("  error: %v\n", e)
	}
	return nil
}

// processViaServer enqueues a processing job on a running server and polls
// its status until the job finishes.
func processViaServer(cfg *config.Config, serverURL string, recordingID int64, interval, workers int) error {
	client, err := apiclient.NewWithCapture(serverURL, cfg.Security.APIToken, captureDir)
	if err != nil {
		return err
	}

	accepted, err := client.ProcessAllFrames(apiclient.ProcessAllRequest{
		RecordingID:   recordingID,
		FrameInterval: interval,
		Workers:       workers,
	})
	if err != nil {
		return fmt.Errorf("failed to start processing job: %w", err)
	}

	fmt.Printf("Job %s queued on %s\n", accepted.JobID, serverURL)

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("Processing frames"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	for {
		time.Sleep(time.Second)

		job, err := client.JobStatus(accepted.JobID)
		if err != nil {
			return fmt.Errorf("failed to poll job: %w", err)
		}

		_ = bar.Set(job.Progress)
		if !job.Terminal() {
			continue
		}
		fmt.Println()

		switch job.Status {
		case "failed":
			return fmt.Errorf("job failed: %s", job.Error)
		case "cancelled":
			return errors.New("job was cancelled")
		}

		if job.Result != nil {
			printProcessResult(job.Result.SessionID, job.Result.TotalFrames, job.Result.ProcessedFrames,
				job.Result.FacesDetected, job.Result.AttendanceRecorded, len(job.Result.Errors))
			for _, e := range job.Result.Errors {
				fmt.Printf("  error: %s\n", e)
			}
		}
		return nil
	}
}

func printProcessResult(sessionID string, total, processed, faces, attendance, errs int) {
	fmt.Printf("Session %s\n", sessionID)
	fmt.Printf("  Frames:     %d/%d processed\n", processed, total)
	fmt.Printf("  Faces:      %d detected\n", faces)
	fmt.Printf("  Attendance: %d recorded\n", attendance)
	if errs > 0 {
		fmt.Printf("  Errors:     %d\n", errs)
	}
}
