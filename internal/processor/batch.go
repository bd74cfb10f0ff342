package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// ProgressInfo carries progress updates during batch processing.
type ProgressInfo struct {
	Phase     string // e.g. "processing"
	Current   int    // current frame number (1-based)
	Total     int    // total number of frames
	FramePath string // path of the frame just finished
	Message   string // optional message (set for failures)
}

// BatchOptions controls one batch processing run.
type BatchOptions struct {
	RecordingID  int64 // 0 selects the most recent recording
	Workers      int   // number of parallel workers, default applies when <= 0
	ShowProgress bool  // render a terminal progress bar
	OnProgress   func(ProgressInfo)
}

// BatchResult summarizes one batch processing run.
type BatchResult struct {
	SessionID          string
	RecordingID        int64
	TotalFrames        int
	ProcessedFrames    int
	FacesDetected      int
	AttendanceRecorded int
	Errors             []error
}

// Batch runs the recognition pipeline over the unprocessed frames of a
// recording with a bounded worker pool. Workers decode and match in
// parallel; the engine pass inside the processor is serialized by its mutex.
type Batch struct {
	proc       *Processor
	recordings database.RecordingStore
	frames     database.FrameStore
	sessions   database.SessionStore
}

// NewBatch creates a batch runner on top of an existing processor.
func NewBatch(proc *Processor, recordings database.RecordingStore, frames database.FrameStore, sessions database.SessionStore) *Batch {
	return &Batch{proc: proc, recordings: recordings, frames: frames, sessions: sessions}
}

// Process runs all unprocessed frames of the selected recording through the
// pipeline and tracks counters in a processing session. Individual frame
// failures are collected in the result; only setup and session bookkeeping
// errors abort the run.
func (b *Batch) Process(ctx context.Context, opts BatchOptions) (*BatchResult, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = constants.WorkerPoolSize
	}

	rec, err := resolveRecording(ctx, b.recordings, opts.RecordingID)
	if err != nil {
		return nil, err
	}

	frames, err := b.frames.ListFrames(ctx, rec.ID, true)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}

	result := &BatchResult{
		SessionID:   uuid.NewString(),
		RecordingID: rec.ID,
		TotalFrames: len(frames),
	}
	if len(frames) == 0 {
		return result, nil
	}

	session := &database.ProcessingSession{
		SessionID:   result.SessionID,
		Status:      database.SessionStatusRunning,
		TotalFrames: len(frames),
		StartedAt:   time.Now(),
		Metadata: map[string]any{
			"recording_id": rec.ID,
			"workers":      workers,
		},
	}
	if _, err := b.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create processing session: %w", err)
	}

	// Progress bar only for interactive runs; the web job reports through
	// OnProgress instead.
	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.NewOptions(len(frames),
			progressbar.OptionSetDescription("Processing frames"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("frames"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}

	var (
		progressMu sync.Mutex
		processed  int
		faces      int
		recorded   int
	)
	reportProgress := func(framePath string, res *FrameResult, message string) {
		progressMu.Lock()
		processed++
		if res != nil {
			faces += res.FacesFound
			recorded += len(res.Attendance)
		}
		current, f, a := processed, faces, recorded
		progressMu.Unlock()

		if bar != nil {
			_ = bar.Add(1)
		}
		if opts.OnProgress != nil {
			opts.OnProgress(ProgressInfo{
				Phase:     "processing",
				Current:   current,
				Total:     len(frames),
				FramePath: framePath,
				Message:   message,
			})
		}
		// Progress rows are advisory; the final counters are written below.
		_ = b.sessions.UpdateSessionProgress(ctx, result.SessionID, current, f, a)
	}

	type frameOutcome struct {
		index  int
		result *FrameResult
		err    error
	}

	resultsChan := make(chan frameOutcome, len(frames))
	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, frame := range frames {
		wg.Add(1)
		go func(index int, frame database.Frame) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if err := ctx.Err(); err != nil {
				resultsChan <- frameOutcome{index: index, err: err}
				return
			}

			res, err := b.processFrame(ctx, result.SessionID, frame)
			resultsChan <- frameOutcome{index: index, result: res, err: err}
			if err != nil {
				reportProgress(frame.FramePath, nil, fmt.Sprintf("failed: %v", err))
			} else {
				reportProgress(frame.FramePath, res, "")
			}
		}(i, frame)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for outcome := range resultsChan {
		if outcome.err != nil {
			result.Errors = append(result.Errors,
				fmt.Errorf("frame %s: %w", frames[outcome.index].FramePath, outcome.err))
			continue
		}
		result.ProcessedFrames++
		result.FacesDetected += outcome.result.FacesFound
		result.AttendanceRecorded += len(outcome.result.Attendance)
	}

	if bar != nil {
		fmt.Println()
	}

	// Final bookkeeping survives caller cancellation.
	finishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status := database.SessionStatusCompleted
	if result.ProcessedFrames == 0 && len(result.Errors) > 0 {
		status = database.SessionStatusFailed
	}
	if err := b.sessions.UpdateSessionProgress(finishCtx, result.SessionID,
		result.ProcessedFrames, result.FacesDetected, result.AttendanceRecorded); err != nil {
		return result, fmt.Errorf("update processing session: %w", err)
	}
	if err := b.sessions.CompleteSession(finishCtx, result.SessionID, status, time.Now()); err != nil {
		return result, fmt.Errorf("complete processing session: %w", err)
	}

	return result, nil
}

// processFrame loads one frame from disk, runs it through the pipeline and
// marks it processed.
func (b *Batch) processFrame(ctx context.Context, sessionID string, frame database.Frame) (*FrameResult, error) {
	img, err := vision.LoadImage(frame.FramePath)
	if err != nil {
		return nil, err
	}

	res, err := b.proc.ProcessImage(ctx, img, FrameMeta{
		FrameID:    &frame.ID,
		SessionID:  sessionID,
		CapturedAt: frame.CapturedAt,
	})
	if err != nil {
		return nil, err
	}

	if err := b.frames.MarkFrameProcessed(ctx, frame.ID); err != nil {
		return nil, fmt.Errorf("mark frame processed: %w", err)
	}
	return res, nil
}

// ErrRecordingNotFound reports that no recording matched the request.
var ErrRecordingNotFound = errors.New("recording not found")

// resolveRecording picks a recording by ID, or the latest when the ID is
// zero.
func resolveRecording(ctx context.Context, store database.RecordingStore, recordingID int64) (*database.Recording, error) {
	if recordingID > 0 {
		rec, err := store.GetRecording(ctx, recordingID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, fmt.Errorf("recording %d: %w", recordingID, ErrRecordingNotFound)
		}
		return rec, nil
	}

	rec, err := store.LatestRecording(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecordingNotFound
	}
	return rec, nil
}
