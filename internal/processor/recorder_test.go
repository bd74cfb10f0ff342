package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/database/mock"
)

// writeFrameFiles renders n gradient frames into a fresh source directory.
func writeFrameFiles(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		writeJPEG(t, filepath.Join(dir, fmt.Sprintf("capture_%03d.jpg", i)), horizontalPattern(60, 60))
	}
	return dir
}

func TestRecorder_CapturesFromDirectory(t *testing.T) {
	backend := mock.New()
	storage := t.TempDir()
	recorder := NewRecorder(backend, storage)

	source := writeFrameFiles(t, 3)
	rec, err := recorder.Start(context.Background(), RecordOptions{
		Source:   source,
		Duration: 5 * time.Second,
		FPS:      100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("expected recording ID to be set")
	}
	if rec.SessionID == "" {
		t.Fatal("expected a session ID")
	}

	<-recorder.Wait()

	status := recorder.Status()
	if status.IsRecording {
		t.Error("expected recording to be finished")
	}
	if status.FramesCaptured != 3 {
		t.Errorf("expected 3 frames captured, got %d", status.FramesCaptured)
	}

	stored, err := backend.GetRecording(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != database.RecordingStatusCompleted {
		t.Errorf("expected status completed, got %s", stored.Status)
	}
	if stored.FrameCount != 3 {
		t.Errorf("expected frame count 3, got %d", stored.FrameCount)
	}
	if stored.StoppedAt == nil {
		t.Error("expected stopped_at to be set")
	}

	for i := 0; i < 3; i++ {
		path := filepath.Join(SessionDir(storage, rec.SessionID), fmt.Sprintf("frame_%06d.jpg", i))
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected frame file %s: %v", path, err)
		}
	}
}

func TestRecorder_StopEndsCaptureEarly(t *testing.T) {
	backend := mock.New()
	recorder := NewRecorder(backend, t.TempDir())

	var once sync.Once
	captured := make(chan struct{})
	rec, err := recorder.Start(context.Background(), RecordOptions{
		Source:   writeFrameFiles(t, 50),
		Duration: 30 * time.Second,
		FPS:      20,
		OnFrame: func(n int) {
			if n >= 2 {
				once.Do(func() { close(captured) })
			}
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	<-captured
	status, err := recorder.Stop()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.IsRecording {
		t.Error("expected recording to be stopped")
	}
	if status.FramesCaptured < 2 || status.FramesCaptured >= 50 {
		t.Errorf("expected an early stop, got %d frames", status.FramesCaptured)
	}

	stored, err := backend.GetRecording(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != database.RecordingStatusStopped {
		t.Errorf("expected status stopped, got %s", stored.Status)
	}
	if stored.FrameCount != status.FramesCaptured {
		t.Errorf("expected frame count %d, got %d", status.FramesCaptured, stored.FrameCount)
	}
}

func TestRecorder_SecondStartRejected(t *testing.T) {
	backend := mock.New()
	recorder := NewRecorder(backend, t.TempDir())

	var once sync.Once
	captured := make(chan struct{})
	_, err := recorder.Start(context.Background(), RecordOptions{
		Source:   writeFrameFiles(t, 50),
		Duration: 30 * time.Second,
		FPS:      20,
		OnFrame: func(int) {
			once.Do(func() { close(captured) })
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-captured

	if _, err := recorder.Start(context.Background(), RecordOptions{Source: "elsewhere"}); err != ErrAlreadyRecording {
		t.Errorf("expected ErrAlreadyRecording, got %v", err)
	}

	if _, err := recorder.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecorder_StopWithoutStart(t *testing.T) {
	recorder := NewRecorder(mock.New(), t.TempDir())
	if _, err := recorder.Stop(); err != ErrNotRecording {
		t.Errorf("expected ErrNotRecording, got %v", err)
	}
}

func TestRecorder_RequiresSource(t *testing.T) {
	recorder := NewRecorder(mock.New(), t.TempDir())
	if _, err := recorder.Start(context.Background(), RecordOptions{}); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestRecorder_FailsWhenSourceMissing(t *testing.T) {
	backend := mock.New()
	recorder := NewRecorder(backend, t.TempDir())

	rec, err := recorder.Start(context.Background(), RecordOptions{
		Source: filepath.Join(t.TempDir(), "does-not-exist"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	<-recorder.Wait()

	stored, err := backend.GetRecording(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != database.RecordingStatusFailed {
		t.Errorf("expected status failed, got %s", stored.Status)
	}
	if stored.FrameCount != 0 {
		t.Errorf("expected no frames, got %d", stored.FrameCount)
	}
}

func TestRecorder_AppliesDefaults(t *testing.T) {
	backend := mock.New()
	recorder := NewRecorder(backend, t.TempDir())

	rec, err := recorder.Start(context.Background(), RecordOptions{
		Source: writeFrameFiles(t, 1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	<-recorder.Wait()

	if rec.FPS != constants.DefaultCaptureFPS {
		t.Errorf("expected default FPS %d, got %d", constants.DefaultCaptureFPS, rec.FPS)
	}
	seconds, ok := rec.Metadata["duration_seconds"].(float64)
	if !ok || seconds != constants.DefaultRecordingDuration.Seconds() {
		t.Errorf("expected default duration in metadata, got %v", rec.Metadata["duration_seconds"])
	}

	stored, err := backend.GetRecording(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != database.RecordingStatusCompleted {
		t.Errorf("expected status completed, got %s", stored.Status)
	}
	if stored.FrameCount != 1 {
		t.Errorf("expected 1 frame, got %d", stored.FrameCount)
	}
}

func TestSessionDir(t *testing.T) {
	got := SessionDir("storage", "abc-123")
	want := filepath.Join("storage", "abc-123")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
