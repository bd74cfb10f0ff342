package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attend/internal/database/mock"
	"github.com/kozaktomas/face-attend/internal/metrics"
	"github.com/kozaktomas/face-attend/internal/processor"
)

func newRecordingsFixture(t *testing.T, backend *mock.Backend, defaultSource string) (*RecordingsHandler, *processor.Recorder, *metrics.Metrics) {
	t.Helper()
	recorder := processor.NewRecorder(backend, t.TempDir())
	m := metrics.New()
	handler := NewRecordingsHandler(recorder, defaultSource, 0, m, NewStatsHandler(backend))
	return handler, recorder, m
}

func TestRecordingsStart_FromDirectory(t *testing.T) {
	backend := mock.New()
	handler, recorder, m := newRecordingsFixture(t, backend, "")

	source := writeFrameFiles(t, 3)
	body := strings.NewReader(`{"source": "` + source + `", "duration": 5, "fps": 100}`)
	req := httptest.NewRequest("POST", "/api/v1/recordings/start", body)
	rec := httptest.NewRecorder()
	handler.Start(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp RecordingStartResponse
	parseJSONResponse(t, rec, &resp)

	if !resp.Success {
		t.Error("expected success")
	}
	if resp.RecordingID == 0 {
		t.Error("expected a recording ID")
	}
	if resp.SessionID == "" {
		t.Error("expected a session ID")
	}
	if resp.DurationSeconds != 5 {
		t.Errorf("expected duration 5s, got %v", resp.DurationSeconds)
	}

	<-recorder.Wait()

	if got := m.FramesCaptured.Load(); got != 3 {
		t.Errorf("expected 3 captured frames counted, got %d", got)
	}

	// The gauge is cleared by a watcher goroutine, give it a moment.
	deadline := time.Now().Add(time.Second)
	for m.RecordingActive.Load() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := m.RecordingActive.Load(); got != 0 {
		t.Errorf("expected recording gauge cleared after capture, got %d", got)
	}
}

func TestRecordingsStart_ConflictWhileActive(t *testing.T) {
	backend := mock.New()
	handler, recorder, _ := newRecordingsFixture(t, backend, "")

	source := writeFrameFiles(t, 50)
	body := strings.NewReader(`{"source": "` + source + `", "duration": 30, "fps": 10}`)
	rec := httptest.NewRecorder()
	handler.Start(rec, httptest.NewRequest("POST", "/api/v1/recordings/start", body))
	assertStatusCode(t, rec, http.StatusOK)

	second := httptest.NewRecorder()
	body2 := strings.NewReader(`{"source": "` + source + `"}`)
	handler.Start(second, httptest.NewRequest("POST", "/api/v1/recordings/start", body2))
	assertStatusCode(t, second, http.StatusConflict)

	if _, err := recorder.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	<-recorder.Wait()
}

func TestRecordingsStart_RequiresSource(t *testing.T) {
	backend := mock.New()
	handler, _, _ := newRecordingsFixture(t, backend, "")

	rec := httptest.NewRecorder()
	handler.Start(rec, httptest.NewRequest("POST", "/api/v1/recordings/start", nil))

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestRecordingsStart_FallsBackToConfiguredSource(t *testing.T) {
	backend := mock.New()
	source := writeFrameFiles(t, 2)
	handler, recorder, _ := newRecordingsFixture(t, backend, source)

	rec := httptest.NewRecorder()
	handler.Start(rec, httptest.NewRequest("POST", "/api/v1/recordings/start", nil))
	assertStatusCode(t, rec, http.StatusOK)

	var resp RecordingStartResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Source != source {
		t.Errorf("expected configured source %s, got %s", source, resp.Source)
	}

	<-recorder.Wait()
}

func TestRecordingsStart_StoresCameraIndex(t *testing.T) {
	backend := mock.New()
	handler, recorder, _ := newRecordingsFixture(t, backend, "")

	source := writeFrameFiles(t, 2)
	body := strings.NewReader(`{"source": "` + source + `", "camera_index": 1, "duration": 5, "fps": 100}`)
	rec := httptest.NewRecorder()
	handler.Start(rec, httptest.NewRequest("POST", "/api/v1/recordings/start", body))
	assertStatusCode(t, rec, http.StatusOK)

	var resp RecordingStartResponse
	parseJSONResponse(t, rec, &resp)
	<-recorder.Wait()

	stored, err := backend.GetRecording(context.Background(), resp.RecordingID)
	if err != nil {
		t.Fatalf("get recording: %v", err)
	}
	if got, ok := stored.Metadata["camera_index"].(int); !ok || got != 1 {
		t.Errorf("expected camera_index 1 in metadata, got %v", stored.Metadata["camera_index"])
	}
}

func TestRecordingsStop_NoActiveRecording(t *testing.T) {
	backend := mock.New()
	handler, _, _ := newRecordingsFixture(t, backend, "")

	rec := httptest.NewRecorder()
	handler.Stop(rec, httptest.NewRequest("POST", "/api/v1/recordings/stop", nil))

	assertStatusCode(t, rec, http.StatusConflict)
	assertJSONError(t, rec, "no recording in progress")
}

func TestRecordingsStopAndStatus(t *testing.T) {
	backend := mock.New()
	handler, recorder, _ := newRecordingsFixture(t, backend, "")

	source := writeFrameFiles(t, 50)
	body := strings.NewReader(`{"source": "` + source + `", "duration": 30, "fps": 10}`)
	rec := httptest.NewRecorder()
	handler.Start(rec, httptest.NewRequest("POST", "/api/v1/recordings/start", body))
	assertStatusCode(t, rec, http.StatusOK)

	statusRec := httptest.NewRecorder()
	handler.Status(statusRec, httptest.NewRequest("GET", "/api/v1/recordings/status", nil))
	assertStatusCode(t, statusRec, http.StatusOK)

	var status RecordingStatusResponse
	parseJSONResponse(t, statusRec, &status)
	if !status.IsRecording {
		t.Error("expected status to report an active recording")
	}

	stopRec := httptest.NewRecorder()
	handler.Stop(stopRec, httptest.NewRequest("POST", "/api/v1/recordings/stop", nil))
	assertStatusCode(t, stopRec, http.StatusOK)

	var stop RecordingStopResponse
	parseJSONResponse(t, stopRec, &stop)
	if !stop.Success {
		t.Error("expected success")
	}
	if stop.SessionID == "" {
		t.Error("expected a session ID")
	}
	<-recorder.Wait()

	afterRec := httptest.NewRecorder()
	handler.Status(afterRec, httptest.NewRequest("GET", "/api/v1/recordings/status", nil))
	var after RecordingStatusResponse
	parseJSONResponse(t, afterRec, &after)
	if after.IsRecording {
		t.Error("expected recording to be stopped")
	}
}
