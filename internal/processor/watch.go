package processor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attend/internal/camera"
)

// WatchOptions controls a live capture-and-recognize loop.
type WatchOptions struct {
	Source    string
	MaxFrames int // stop after this many frames, 0 means run until the source or context ends
	OnFrame   func(frameNumber int, result *FrameResult)
}

// WatchResult summarizes one live run.
type WatchResult struct {
	FramesProcessed int
	FacesDetected   int
	Attendance      []AttendanceEvent
}

// Watch reads frames from the source and runs each through the pipeline
// until the source is exhausted, the context ends or MaxFrames is reached.
// Frames that fail to decode or process are skipped so a transient camera
// glitch cannot end the loop; cancellation returns the partial result.
func (p *Processor) Watch(ctx context.Context, opts WatchOptions) (*WatchResult, error) {
	if opts.Source == "" {
		return nil, fmt.Errorf("watch requires a camera source")
	}

	src, err := camera.Open(ctx, opts.Source)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	sessionID := uuid.NewString()
	result := &WatchResult{}

	for {
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return result, nil
			}
			return result, fmt.Errorf("read frame: %w", err)
		}

		res, err := p.ProcessData(ctx, frame.Data, FrameMeta{
			SessionID:  sessionID,
			CapturedAt: frame.CapturedAt,
		})
		if err != nil {
			if ctx.Err() != nil {
				return result, nil
			}
			fmt.Printf("Skipping frame %d: %v\n", frame.Number, err)
			continue
		}

		result.FramesProcessed++
		result.FacesDetected += res.FacesFound
		result.Attendance = append(result.Attendance, res.Attendance...)

		if opts.OnFrame != nil {
			opts.OnFrame(frame.Number, res)
		}
		if opts.MaxFrames > 0 && result.FramesProcessed >= opts.MaxFrames {
			return result, nil
		}
	}
}
