package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/camera"
	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/processor"
	"github.com/kozaktomas/face-attend/internal/vision"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a camera source and record attendance live",
	Long: `Run the realtime loop: capture frames from the source, detect and
recognize faces and feed the stability engine. Stable sightings and
attendance records are printed as they happen. Stops on Ctrl+C, or when
a directory source runs out of images.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("source", "", "Camera source: MJPEG URL or image directory (defaults to CAMERA_SOURCE)")
	watchCmd.Flags().Int("interval", 0, "Process every Nth frame (0 = FRAME_INTERVAL default)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	source := mustGetString(cmd, "source")
	if source == "" {
		source = cfg.Camera.URL
	}
	if source == "" {
		return errors.New("no camera source: pass --source or set CAMERA_SOURCE")
	}
	interval := mustGetInt(cmd, "interval")
	if interval <= 0 {
		interval = cfg.Camera.FrameInterval
	}

	if err := initDatabase(cfg); err != nil {
		return err
	}

	pipe, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := loadKnownFaces(ctx, pipe.recognizer, cfg); err != nil {
		return err
	}

	src, err := camera.Open(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to open camera source: %w", err)
	}
	defer src.Close()

	fmt.Printf("Watching %s (every %d. frame). Press Ctrl+C to stop.\n", source, interval)

	var frames, stable, recorded int
	for {
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("capture failed: %w", err)
		}
		if (frame.Number-1)%interval != 0 {
			continue
		}
		frames++

		img, err := vision.DecodeImage(frame.Data)
		if err != nil {
			fmt.Printf("Warning: skipping undecodable frame %d: %v\n", frame.Number, err)
			continue
		}

		result, err := pipe.processor.ProcessImage(ctx, img, processor.FrameMeta{CapturedAt: frame.CapturedAt})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			fmt.Printf("Warning: frame %d failed: %v\n", frame.Number, err)
			continue
		}

		stamp := frame.CapturedAt.Format(time.TimeOnly)
		for _, d := range result.Detections {
			if !d.Stable {
				continue
			}
			stable++
			fmt.Printf("[%s] %s (%.2f)\n", stamp, d.Name, d.Confidence)
		}
		for _, a := range result.Attendance {
			recorded++
			fmt.Printf("[%s] attendance #%d recorded for %s (%.2f)\n",
				stamp, a.AttendanceID, a.PersonName, a.Confidence)
		}
	}

	fmt.Printf("\nProcessed %d frames: %d stable sightings, %d attendance records\n",
		frames, stable, recorded)
	return nil
}
