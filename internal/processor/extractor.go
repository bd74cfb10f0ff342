package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/security"
)

// Extractor registers every Nth captured frame of a recording as a frames
// row, making it eligible for batch processing.
type Extractor struct {
	recordings database.RecordingStore
	frames     database.FrameStore
	storageDir string
}

// NewExtractor creates an extractor reading session directories under
// storageDir.
func NewExtractor(recordings database.RecordingStore, frames database.FrameStore, storageDir string) *Extractor {
	return &Extractor{recordings: recordings, frames: frames, storageDir: storageDir}
}

// ExtractResult summarizes one extraction run.
type ExtractResult struct {
	RecordingID int64
	SessionID   string
	Interval    int
	FramesSeen  int
	FramesSaved int
}

// Extract walks the captured frames of a recording in order and registers
// every Nth one, starting with the first. A recordingID of 0 selects the
// most recent recording; an interval below 1 applies the default. Frame
// numbers already registered for the recording are skipped, so Extract can
// run again with a smaller interval to densify.
func (e *Extractor) Extract(ctx context.Context, recordingID int64, interval int) (*ExtractResult, error) {
	if interval <= 0 {
		interval = constants.DefaultFrameInterval
	}

	rec, err := resolveRecording(ctx, e.recordings, recordingID)
	if err != nil {
		return nil, err
	}

	registered, err := e.frames.ListFrames(ctx, rec.ID, false)
	if err != nil {
		return nil, fmt.Errorf("list registered frames: %w", err)
	}
	seen := make(map[int]bool, len(registered))
	for _, f := range registered {
		seen[f.FrameNumber] = true
	}

	dir := SessionDir(e.storageDir, rec.SessionID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read session directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jpg") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	result := &ExtractResult{
		RecordingID: rec.ID,
		SessionID:   rec.SessionID,
		Interval:    interval,
		FramesSeen:  len(names),
	}

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i%interval != 0 || seen[i] {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read frame %s: %w", name, err)
		}

		frame := &database.Frame{
			RecordingID: rec.ID,
			FrameNumber: i,
			FramePath:   path,
			FrameHash:   security.HashBytes(data),
			CapturedAt:  frameTime(rec, i),
		}
		if _, err := e.frames.SaveFrame(ctx, frame); err != nil {
			return nil, fmt.Errorf("register frame %s: %w", name, err)
		}
		result.FramesSaved++
	}

	return result, nil
}

// frameTime reconstructs when the Nth frame of a recording was captured from
// the start time and the capture rate.
func frameTime(rec *database.Recording, frameNumber int) time.Time {
	if rec.FPS <= 0 {
		return rec.StartedAt
	}
	return rec.StartedAt.Add(time.Duration(frameNumber) * time.Second / time.Duration(rec.FPS))
}
