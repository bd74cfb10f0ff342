package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attend/internal/database/mock"
	"github.com/kozaktomas/face-attend/internal/engine"
	"github.com/kozaktomas/face-attend/internal/processor"
	"github.com/kozaktomas/face-attend/internal/recognizer"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// fakeDetector reports a fixed box for every frame.
type fakeDetector struct {
	boxes []vision.Detection
}

func (f *fakeDetector) Detect(img image.Image) []vision.Detection {
	return f.boxes
}

func horizontalPattern(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(float64(x) / float64(w) * 255)})
		}
	}
	return img
}

func verticalPattern(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(float64(y) / float64(h) * 255)})
		}
	}
	return img
}

// writeJPEG renders an image to a JPEG file.
func writeJPEG(t *testing.T, path string, img image.Image) {
	t.Helper()
	data, err := vision.EncodeJPEG(img)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// writeFrameFiles renders n gradient frames into a fresh source directory.
func writeFrameFiles(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		writeJPEG(t, filepath.Join(dir, fmt.Sprintf("capture_%03d.jpg", i)), horizontalPattern(60, 60))
	}
	return dir
}

// newTestRecognizer builds a recognizer knowing Alice (horizontal pattern)
// and Bob (vertical pattern) from a temporary dataset.
func newTestRecognizer(t *testing.T) *recognizer.Recognizer {
	t.Helper()
	dir := t.TempDir()
	writeJPEG(t, filepath.Join(dir, "alice_1.jpg"), horizontalPattern(120, 120))
	writeJPEG(t, filepath.Join(dir, "bob_1.jpg"), verticalPattern(120, 120))

	r := recognizer.New(nil, 0.6, 5)
	if _, err := r.LoadDataset(context.Background(), dir, nil, nil); err != nil {
		t.Fatalf("load dataset: %v", err)
	}
	return r
}

// newTestProcessor wires a processor that recognizes Alice in the full frame.
// The engine stabilizes after two agreeing frames.
func newTestProcessor(t *testing.T, backend *mock.Backend, rec *recognizer.Recognizer) *processor.Processor {
	t.Helper()
	eng, err := engine.New(engine.Config{
		WindowCapacity:     5,
		StabilityThreshold: 2,
		MinConfidence:      0.5,
		Cooldown:           time.Hour,
		TrackMaxAge:        time.Minute,
		BucketSize:         50,
	})
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	proc, err := processor.New(processor.Config{
		Detector:   &fakeDetector{boxes: []vision.Detection{{Box: image.Rect(0, 0, 120, 120), Quality: 10}}},
		Recognizer: rec,
		Engine:     eng,
		Detections: backend,
		Attendance: backend,
		Location:   "TestCam",
	})
	if err != nil {
		t.Fatalf("build processor: %v", err)
	}
	return proc
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
