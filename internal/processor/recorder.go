package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attend/internal/camera"
	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/database"
)

// Recorder lifecycle errors, matched by handlers to pick status codes.
var (
	ErrAlreadyRecording = errors.New("a recording is already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
)

// SessionDir returns the directory holding the captured frames of a session.
func SessionDir(root, sessionID string) string {
	return filepath.Join(root, sessionID)
}

// RecordOptions controls one capture run. Duration and FPS fall back to the
// capture defaults when unset. OnFrame, when set, is called after every
// stored frame with the running count. Metadata entries are stored on the
// recordings row alongside the duration.
type RecordOptions struct {
	Source   string
	Duration time.Duration
	FPS      int
	OnFrame  func(captured int)
	Metadata map[string]any
}

// RecorderStatus is a snapshot of the recorder, also reported after Stop.
// Outside an active run the fields describe the most recent recording.
type RecorderStatus struct {
	IsRecording    bool
	RecordingID    int64
	SessionID      string
	FramesCaptured int
	Timestamp      time.Time
}

// Recorder captures frames from a camera source into a session directory and
// a recordings row. At most one capture runs at a time; Start reports
// ErrAlreadyRecording while one is active. The capture itself runs on its own
// goroutine so Start returns as soon as the recording row exists.
type Recorder struct {
	store      database.RecordingStore
	storageDir string

	mu      sync.Mutex
	active  bool
	cancel  context.CancelFunc
	done    chan struct{}
	recID   int64
	session string
	frames  int
}

// NewRecorder creates a recorder storing frames under storageDir, one
// subdirectory per session.
func NewRecorder(store database.RecordingStore, storageDir string) *Recorder {
	return &Recorder{store: store, storageDir: storageDir}
}

// Start begins capturing from the source. The recordings row is created
// synchronously; frames are then captured in the background for the
// configured duration, or until Stop or the source runs out of frames.
func (r *Recorder) Start(ctx context.Context, opts RecordOptions) (*database.Recording, error) {
	if opts.Source == "" {
		return nil, fmt.Errorf("recording requires a camera source")
	}
	if opts.Duration <= 0 {
		opts.Duration = constants.DefaultRecordingDuration
	}
	if opts.FPS <= 0 {
		opts.FPS = constants.DefaultCaptureFPS
	}

	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return nil, ErrAlreadyRecording
	}
	r.mu.Unlock()

	metadata := map[string]any{
		"duration_seconds": opts.Duration.Seconds(),
	}
	for k, v := range opts.Metadata {
		metadata[k] = v
	}

	rec := &database.Recording{
		SessionID: uuid.NewString(),
		Source:    opts.Source,
		Status:    database.RecordingStatusRecording,
		FPS:       opts.FPS,
		StartedAt: time.Now(),
		Metadata:  metadata,
	}
	id, err := r.store.CreateRecording(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	rec.ID = id

	dir := SessionDir(r.storageDir, rec.SessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		_ = r.store.FinishRecording(ctx, id, database.RecordingStatusFailed, 0, time.Now())
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	// The capture must outlive the caller's request context; Stop cancels it.
	captureCtx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		cancel()
		_ = r.store.FinishRecording(ctx, id, database.RecordingStatusFailed, 0, time.Now())
		return nil, ErrAlreadyRecording
	}
	r.active = true
	r.cancel = cancel
	r.done = make(chan struct{})
	r.recID = id
	r.session = rec.SessionID
	r.frames = 0
	done := r.done
	r.mu.Unlock()

	go func() {
		defer close(done)
		r.capture(captureCtx, rec, opts, dir)
	}()

	return rec, nil
}

// capture runs the frame loop and finalizes the recordings row.
func (r *Recorder) capture(ctx context.Context, rec *database.Recording, opts RecordOptions, dir string) {
	status := database.RecordingStatusCompleted
	captured := 0

	defer func() {
		finishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.store.FinishRecording(finishCtx, rec.ID, status, captured, time.Now()); err != nil {
			fmt.Printf("Failed to finish recording %s: %v\n", rec.SessionID, err)
		}
		r.mu.Lock()
		r.active = false
		r.cancel = nil
		r.mu.Unlock()
	}()

	src, err := camera.Open(ctx, opts.Source)
	if err != nil {
		fmt.Printf("Recording %s: open source: %v\n", rec.SessionID, err)
		status = database.RecordingStatusFailed
		return
	}
	defer src.Close()

	deadline := time.NewTimer(opts.Duration)
	defer deadline.Stop()
	ticker := time.NewTicker(time.Second / time.Duration(opts.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			status = database.RecordingStatusStopped
			return
		case <-deadline.C:
			return
		case <-ticker.C:
			frame, err := src.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					status = database.RecordingStatusStopped
					return
				}
				fmt.Printf("Recording %s: read frame: %v\n", rec.SessionID, err)
				status = database.RecordingStatusFailed
				return
			}

			path := filepath.Join(dir, fmt.Sprintf("frame_%06d.jpg", captured))
			if err := os.WriteFile(path, frame.Data, 0o644); err != nil {
				fmt.Printf("Recording %s: write frame: %v\n", rec.SessionID, err)
				status = database.RecordingStatusFailed
				return
			}
			captured++

			r.mu.Lock()
			r.frames = captured
			r.mu.Unlock()
			if opts.OnFrame != nil {
				opts.OnFrame(captured)
			}
		}
	}
}

// Stop cancels the active capture and waits for it to finish. The returned
// status carries the final frame count.
func (r *Recorder) Stop() (RecorderStatus, error) {
	r.mu.Lock()
	if !r.active {
		status := r.statusLocked()
		r.mu.Unlock()
		return status, ErrNotRecording
	}
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	cancel()
	<-done
	return r.Status(), nil
}

// Status returns a snapshot of the recorder state.
func (r *Recorder) Status() RecorderStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked()
}

func (r *Recorder) statusLocked() RecorderStatus {
	return RecorderStatus{
		IsRecording:    r.active,
		RecordingID:    r.recID,
		SessionID:      r.session,
		FramesCaptured: r.frames,
		Timestamp:      time.Now(),
	}
}

// Wait returns a channel closed when the active capture finishes. When no
// capture is running the channel is already closed.
func (r *Recorder) Wait() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil || !r.active {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return r.done
}
