package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/engine"
	"github.com/kozaktomas/face-attend/internal/processor"
	"github.com/kozaktomas/face-attend/internal/recognizer"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// pipeline bundles the recognition components the processing commands share.
type pipeline struct {
	detector   vision.Detector
	recognizer *recognizer.Recognizer
	processor  *processor.Processor
}

// buildPipeline constructs detector, recognizer, aggregation engine and
// processor from the configuration. Requires a registered database backend.
func buildPipeline(cfg *config.Config) (*pipeline, error) {
	detector, err := vision.NewCascadeDetector(cfg.Recognition.CascadeFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load face detection cascade: %w", err)
	}

	rec := recognizer.New(detector, cfg.Recognition.Threshold, cfg.Recognition.SearchCandidates)

	eng, err := engine.New(engine.Config{
		WindowCapacity:     cfg.Engine.WindowCapacity,
		StabilityThreshold: cfg.Engine.StabilityThreshold,
		MinConfidence:      cfg.Engine.MinConfidence,
		Cooldown:           cfg.Engine.Cooldown,
		TrackMaxAge:        cfg.Engine.TrackMaxAge,
		BucketSize:         cfg.Engine.BucketSize,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}

	detections, err := database.GetDetectionWriter()
	if err != nil {
		return nil, err
	}
	attendance, err := database.GetAttendanceStore()
	if err != nil {
		return nil, err
	}

	proc, err := processor.New(processor.Config{
		Detector:   detector,
		Recognizer: rec,
		Engine:     eng,
		Detections: detections,
		Attendance: attendance,
		Location:   cfg.Camera.Location,
	})
	if err != nil {
		return nil, err
	}

	return &pipeline{detector: detector, recognizer: rec, processor: proc}, nil
}

// loadKnownFaces fills the recognizer index, preferring stored faces over the
// dataset directory. Processing commands refuse to run with an empty index.
func loadKnownFaces(ctx context.Context, rec *recognizer.Recognizer, cfg *config.Config) error {
	faces, err := database.GetFaceWriter()
	if err != nil {
		return err
	}

	result, err := rec.Reload(ctx, cfg.Recognition.DatasetDir, faces)
	if err != nil {
		return fmt.Errorf("failed to load known faces: %w", err)
	}
	if result.FacesLoaded == 0 {
		return fmt.Errorf("no known faces found in the database or %s", cfg.Recognition.DatasetDir)
	}

	fmt.Printf("Loaded %d known faces (%d people) from %s\n",
		result.FacesLoaded, result.UniquePeople, result.Source)
	return nil
}
