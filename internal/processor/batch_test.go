package processor

import (
	"context"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/database/mock"
)

// seedExtractedFrames records a session on disk and registers every frame.
func seedExtractedFrames(t *testing.T, backend *mock.Backend, storage, sessionID string, frames int) int64 {
	t.Helper()
	recID := seedRecording(t, backend, storage, sessionID, frames, 30, time.Now())
	extractor := NewExtractor(backend, backend, storage)
	if _, err := extractor.Extract(context.Background(), recID, 1); err != nil {
		t.Fatalf("extract frames: %v", err)
	}
	return recID
}

func newTestBatch(t *testing.T, backend *mock.Backend) *Batch {
	t.Helper()
	proc := newTestProcessor(t, backend, newAliceRecognizer(t))
	return NewBatch(proc, backend, backend, backend)
}

func TestBatch_ProcessesAllFrames(t *testing.T) {
	backend := mock.New()
	storage := t.TempDir()
	recID := seedExtractedFrames(t, backend, storage, "sess-batch", 4)

	var progressMu sync.Mutex
	var seen []int

	batch := newTestBatch(t, backend)
	result, err := batch.Process(context.Background(), BatchOptions{
		RecordingID: recID,
		Workers:     2,
		OnProgress: func(info ProgressInfo) {
			progressMu.Lock()
			seen = append(seen, info.Current)
			progressMu.Unlock()
			if info.Total != 4 {
				t.Errorf("expected total 4, got %d", info.Total)
			}
			if info.Phase != "processing" {
				t.Errorf("expected phase processing, got %s", info.Phase)
			}
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TotalFrames != 4 {
		t.Errorf("expected 4 total frames, got %d", result.TotalFrames)
	}
	if result.ProcessedFrames != 4 {
		t.Errorf("expected 4 processed frames, got %d", result.ProcessedFrames)
	}
	if result.FacesDetected != 4 {
		t.Errorf("expected 4 faces detected, got %d", result.FacesDetected)
	}
	if result.AttendanceRecorded != 1 {
		t.Errorf("expected 1 attendance record, got %d", result.AttendanceRecorded)
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected no errors, got %v", result.Errors)
	}

	progressMu.Lock()
	sort.Ints(seen)
	progressMu.Unlock()
	if len(seen) != 4 || seen[0] != 1 || seen[3] != 4 {
		t.Errorf("expected progress 1..4, got %v", seen)
	}

	// All frames are marked processed.
	remaining, err := backend.ListFrames(context.Background(), recID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected no unprocessed frames, got %d", len(remaining))
	}

	session, err := backend.GetSession(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session == nil {
		t.Fatal("expected a processing session row")
	}
	if session.Status != database.SessionStatusCompleted {
		t.Errorf("expected status completed, got %s", session.Status)
	}
	if session.TotalFrames != 4 || session.ProcessedFrames != 4 {
		t.Errorf("expected 4/4 frames, got %d/%d", session.ProcessedFrames, session.TotalFrames)
	}
	if session.FacesDetected != 4 {
		t.Errorf("expected 4 faces on session, got %d", session.FacesDetected)
	}
	if session.AttendanceRecorded != 1 {
		t.Errorf("expected 1 attendance on session, got %d", session.AttendanceRecorded)
	}
	if session.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	count, err := backend.CountAttendance(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 attendance row, got %d", count)
	}
}

func TestBatch_CollectsFrameErrors(t *testing.T) {
	backend := mock.New()
	storage := t.TempDir()
	recID := seedExtractedFrames(t, backend, storage, "sess-errs", 3)

	frames, err := backend.ListFrames(context.Background(), recID, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(frames[1].FramePath); err != nil {
		t.Fatal(err)
	}

	batch := newTestBatch(t, backend)
	result, err := batch.Process(context.Background(), BatchOptions{RecordingID: recID, Workers: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ProcessedFrames != 2 {
		t.Errorf("expected 2 processed frames, got %d", result.ProcessedFrames)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(result.Errors))
	}

	session, err := backend.GetSession(context.Background(), result.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if session.Status != database.SessionStatusCompleted {
		t.Errorf("expected status completed despite frame errors, got %s", session.Status)
	}
}

func TestBatch_FailsSessionWhenNothingProcessed(t *testing.T) {
	backend := mock.New()
	storage := t.TempDir()
	recID := seedExtractedFrames(t, backend, storage, "sess-fail", 2)

	frames, err := backend.ListFrames(context.Background(), recID, true)
	if err != nil {
		t.Fatal(err)
	}
	for _, frame := range frames {
		if err := os.Remove(frame.FramePath); err != nil {
			t.Fatal(err)
		}
	}

	batch := newTestBatch(t, backend)
	result, err := batch.Process(context.Background(), BatchOptions{RecordingID: recID, Workers: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d", len(result.Errors))
	}

	session, err := backend.GetSession(context.Background(), result.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if session.Status != database.SessionStatusFailed {
		t.Errorf("expected status failed, got %s", session.Status)
	}
}

func TestBatch_NoFrames(t *testing.T) {
	backend := mock.New()
	storage := t.TempDir()
	recID := seedRecording(t, backend, storage, "sess-empty", 0, 30, time.Now())

	batch := newTestBatch(t, backend)
	result, err := batch.Process(context.Background(), BatchOptions{RecordingID: recID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalFrames != 0 {
		t.Errorf("expected 0 total frames, got %d", result.TotalFrames)
	}

	// No session row is created for an empty run.
	session, err := backend.GetSession(context.Background(), result.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if session != nil {
		t.Error("expected no session row for an empty run")
	}
}

func TestBatch_SecondRunSeesNothingLeft(t *testing.T) {
	backend := mock.New()
	storage := t.TempDir()
	recID := seedExtractedFrames(t, backend, storage, "sess-rerun", 2)

	batch := newTestBatch(t, backend)
	first, err := batch.Process(context.Background(), BatchOptions{RecordingID: recID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ProcessedFrames != 2 {
		t.Errorf("expected 2 processed frames, got %d", first.ProcessedFrames)
	}

	second, err := batch.Process(context.Background(), BatchOptions{RecordingID: recID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.TotalFrames != 0 {
		t.Errorf("expected nothing left to process, got %d", second.TotalFrames)
	}
}

func TestBatch_MissingRecording(t *testing.T) {
	batch := newTestBatch(t, mock.New())
	if _, err := batch.Process(context.Background(), BatchOptions{RecordingID: 999}); err == nil {
		t.Error("expected error for unknown recording")
	}
}

func TestBatch_LatestRecordingWhenZero(t *testing.T) {
	backend := mock.New()
	storage := t.TempDir()
	recID := seedExtractedFrames(t, backend, storage, "sess-latest", 1)

	batch := newTestBatch(t, backend)
	result, err := batch.Process(context.Background(), BatchOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RecordingID != recID {
		t.Errorf("expected recording %d, got %d", recID, result.RecordingID)
	}
}
