package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/processor"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Capture a recording session from a camera source",
	Long: `Capture frames from an MJPEG stream URL or a directory of images into
a recording session. Frames land under the storage directory, one
subdirectory per session, and the session is registered in the database
for later extraction and processing.`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().String("source", "", "Camera source: MJPEG URL or image directory (defaults to CAMERA_SOURCE)")
	recordCmd.Flags().Float64("duration", 0, "Capture duration in seconds (0 = default)")
	recordCmd.Flags().Int("fps", 0, "Capture frame rate (0 = default)")
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	source := mustGetString(cmd, "source")
	if source == "" {
		source = cfg.Camera.URL
	}
	if source == "" {
		return errors.New("no camera source: pass --source or set CAMERA_SOURCE")
	}
	duration := mustGetFloat64(cmd, "duration")
	fps := mustGetInt(cmd, "fps")
	if fps <= 0 {
		fps = cfg.Camera.FPS
	}

	if err := initDatabase(cfg); err != nil {
		return err
	}
	recordings, err := database.GetRecordingStore()
	if err != nil {
		return err
	}

	recorder := processor.NewRecorder(recordings, cfg.Storage.Dir)

	opts := processor.RecordOptions{
		Source:   source,
		Duration: time.Duration(duration * float64(time.Second)),
		FPS:      fps,
		OnFrame: func(captured int) {
			// Overwrite the same line to keep long captures readable.
			fmt.Printf("\rCaptured %d frames", captured)
		},
	}

	rec, err := recorder.Start(context.Background(), opts)
	if err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}

	fmt.Printf("Recording %d (session %s) from %s\n", rec.ID, rec.SessionID, source)

	<-recorder.Wait()
	status := recorder.Status()

	fmt.Printf("\rCaptured %d frames\n", status.FramesCaptured)
	fmt.Printf("Recording finished. Extract frames with:\n")
	fmt.Printf("  face-attend extract --recording %d\n", rec.ID)
	return nil
}
