package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/metrics"
	"github.com/kozaktomas/face-attend/internal/processor"
	"github.com/kozaktomas/face-attend/internal/recognizer"
	"github.com/kozaktomas/face-attend/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance web server",
	Long: `Start the Face Attend web server.
The server exposes recording, frame extraction, recognition and attendance
endpoints under /api/v1 and Prometheus metrics on /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides PORT)")
}

// initRecognizerIndex fills the face index at startup: a persisted index file
// when one is configured and present, otherwise a rebuild from the store or
// the dataset directory. Failures leave recognition offline but the server
// still starts; POST /api/v1/dataset/load retries the load.
func initRecognizerIndex(ctx context.Context, rec *recognizer.Recognizer, cfg *config.Config) {
	if path := cfg.Database.HNSWIndexPath; path != "" {
		fmt.Printf("Loading face index from %s...\n", path)
		if err := rec.LoadIndex(path); err != nil {
			fmt.Printf("Warning: failed to load face index: %v\n", err)
		}
		if rec.Loaded() {
			fmt.Printf("Face index ready with %d faces (%d people)\n", rec.KnownFaces(), rec.People())
			return
		}
	}

	faces, err := database.GetFaceWriter()
	if err != nil {
		fmt.Printf("Warning: %v\n", err)
		return
	}
	result, err := rec.Reload(ctx, cfg.Recognition.DatasetDir, faces)
	if err != nil {
		fmt.Printf("Warning: failed to load known faces: %v\n", err)
		fmt.Printf("Recognition stays offline until a dataset load succeeds\n")
		return
	}
	fmt.Printf("Loaded %d known faces (%d people) from %s\n",
		result.FacesLoaded, result.UniquePeople, result.Source)
}

// saveRecognizerIndex persists the face index during shutdown when a path is
// configured.
func saveRecognizerIndex(rec *recognizer.Recognizer, cfg *config.Config) {
	path := cfg.Database.HNSWIndexPath
	if path == "" || !rec.Loaded() {
		return
	}
	if err := rec.SaveIndex(path); err != nil {
		fmt.Printf("Warning: failed to save face index: %v\n", err)
	} else {
		fmt.Println("Face index saved to disk")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Server.Port = port
	}

	if err := initDatabase(cfg); err != nil {
		return err
	}

	pipe, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	initRecognizerIndex(context.Background(), pipe.recognizer, cfg)

	faces, err := database.GetFaceWriter()
	if err != nil {
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
	attendance, err := database.GetAttendanceStore()
	if err != nil {
		return err
	}
	stats, err := database.GetStatsReader()
	if err != nil {
		return err
	}

	recorder := processor.NewRecorder(recordings, cfg.Storage.Dir)
	extractor := processor.NewExtractor(recordings, frames, cfg.Storage.Dir)
	batch := processor.NewBatch(pipe.processor, recordings, frames, sessions)

	m := metrics.New()
	m.RegisterPipeline(pipe.processor.ActiveTracks, pipe.recognizer.KnownFaces)

	server := web.NewServer(cfg, web.Deps{
		Processor:  pipe.processor,
		Recorder:   recorder,
		Extractor:  extractor,
		Batch:      batch,
		Recognizer: pipe.recognizer,
		Faces:      faces,
		Recordings: recordings,
		Attendance: attendance,
		Stats:      stats,
		Metrics:    m,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		// Stop an in-flight recording so the capture goroutine finishes
		// its bookkeeping before the process exits.
		if st := recorder.Status(); st.IsRecording {
			if _, err := recorder.Stop(); err != nil {
				fmt.Printf("Warning: failed to stop recording: %v\n", err)
			}
		}
		saveRecognizerIndex(pipe.recognizer, cfg)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attend API on http://0.0.0.0:%d\n", cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
