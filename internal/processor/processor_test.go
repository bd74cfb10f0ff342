package processor

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/database/mock"
	"github.com/kozaktomas/face-attend/internal/engine"
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

// newAliceRecognizer builds a recognizer knowing Alice (horizontal pattern)
// and Bob (vertical pattern) from a temporary dataset.
func newAliceRecognizer(t *testing.T) *recognizer.Recognizer {
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

// newTestEngine builds an engine that stabilizes after two agreeing frames.
func newTestEngine(t *testing.T) *engine.Engine {
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
	return eng
}

// newTestProcessor wires a processor that recognizes Alice in the full frame.
func newTestProcessor(t *testing.T, backend *mock.Backend, rec *recognizer.Recognizer) *Processor {
	t.Helper()
	proc, err := New(Config{
		Detector:   &fakeDetector{boxes: []vision.Detection{{Box: image.Rect(0, 0, 120, 120), Quality: 10}}},
		Recognizer: rec,
		Engine:     newTestEngine(t),
		Detections: backend,
		Attendance: backend,
		Location:   "TestCam",
	})
	if err != nil {
		t.Fatalf("build processor: %v", err)
	}
	return proc
}

func TestNew_RequiresStages(t *testing.T) {
	rec := recognizer.New(nil, 0.6, 5)
	eng := newTestEngine(t)
	det := &fakeDetector{}

	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing detector", Config{Recognizer: rec, Engine: eng}},
		{"missing recognizer", Config{Detector: det, Engine: eng}},
		{"missing engine", Config{Detector: det, Recognizer: rec}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestNew_DefaultLocation(t *testing.T) {
	proc, err := New(Config{
		Detector:   &fakeDetector{},
		Recognizer: recognizer.New(nil, 0.6, 5),
		Engine:     newTestEngine(t),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proc.location != constants.DefaultLocation {
		t.Errorf("expected default location %q, got %q", constants.DefaultLocation, proc.location)
	}
}

func TestProcessImage_FirstSightingIsTentative(t *testing.T) {
	backend := mock.New()
	proc := newTestProcessor(t, backend, newAliceRecognizer(t))

	res, err := proc.ProcessImage(context.Background(), horizontalPattern(120, 120), FrameMeta{
		SessionID:  "sess-1",
		CapturedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.FacesFound != 1 {
		t.Fatalf("expected 1 face, got %d", res.FacesFound)
	}
	if res.Detections[0].Name != "Alice" {
		t.Errorf("expected Alice, got %s", res.Detections[0].Name)
	}
	if res.Detections[0].Stable {
		t.Error("expected first sighting to be unstable")
	}
	if len(res.Attendance) != 0 {
		t.Errorf("expected no attendance yet, got %d", len(res.Attendance))
	}

	dets := backend.Detections()
	if len(dets) != 1 {
		t.Fatalf("expected 1 logged detection, got %d", len(dets))
	}
	if dets[0].PersonName != "Alice" {
		t.Errorf("expected logged name Alice, got %s", dets[0].PersonName)
	}
	if dets[0].FrameID != nil {
		t.Error("expected nil frame ID for ad-hoc frame")
	}
	if dets[0].TrackKey == "" {
		t.Error("expected a track key")
	}
}

func TestProcessImage_RecordsAttendanceOnceStable(t *testing.T) {
	backend := mock.New()
	proc := newTestProcessor(t, backend, newAliceRecognizer(t))

	ctx := context.Background()
	frame := horizontalPattern(120, 120)
	start := time.Now()

	var last *FrameResult
	for i := 0; i < 3; i++ {
		var err error
		last, err = proc.ProcessImage(ctx, frame, FrameMeta{
			SessionID:  "sess-2",
			CapturedAt: start.Add(time.Duration(i) * 100 * time.Millisecond),
		})
		if err != nil {
			t.Fatalf("frame %d: unexpected error: %v", i, err)
		}

		switch i {
		case 0:
			if len(last.Attendance) != 0 {
				t.Errorf("frame 0: expected no attendance, got %d", len(last.Attendance))
			}
		case 1:
			if len(last.Attendance) != 1 {
				t.Fatalf("frame 1: expected 1 attendance event, got %d", len(last.Attendance))
			}
			if last.Attendance[0].PersonName != "Alice" {
				t.Errorf("expected Alice, got %s", last.Attendance[0].PersonName)
			}
			if last.Attendance[0].AttendanceID == 0 {
				t.Error("expected attendance ID to be set")
			}
		case 2:
			if len(last.Attendance) != 0 {
				t.Errorf("frame 2: expected cooldown to suppress attendance, got %d", len(last.Attendance))
			}
		}
	}

	if !last.Detections[0].Stable {
		t.Error("expected track to be stable after three frames")
	}

	count, err := backend.CountAttendance(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 attendance row, got %d", count)
	}

	records, err := backend.ListAttendance(ctx, "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := records[0]
	if rec.PersonName != "Alice" {
		t.Errorf("expected Alice, got %s", rec.PersonName)
	}
	if rec.SessionID != "sess-2" {
		t.Errorf("expected session sess-2, got %s", rec.SessionID)
	}
	if rec.Location != "TestCam" {
		t.Errorf("expected location TestCam, got %s", rec.Location)
	}
	if rec.DeviceInfo["detection_method"] != "stable_face_recognition" {
		t.Errorf("unexpected device info: %v", rec.DeviceInfo)
	}
	if rec.LastConfidence < 0.6 {
		t.Errorf("expected confidence above threshold, got %f", rec.LastConfidence)
	}

	if proc.ActiveTracks() != 1 {
		t.Errorf("expected 1 active track, got %d", proc.ActiveTracks())
	}
	if proc.RecordedToday() != 1 {
		t.Errorf("expected 1 person recorded today, got %d", proc.RecordedToday())
	}
}

func TestProcessImage_UnknownIsNeverRecorded(t *testing.T) {
	backend := mock.New()
	// Empty index: every face matches the Unknown sentinel.
	proc := newTestProcessor(t, backend, recognizer.New(nil, 0.6, 5))

	ctx := context.Background()
	frame := horizontalPattern(120, 120)
	start := time.Now()

	for i := 0; i < 3; i++ {
		res, err := proc.ProcessImage(ctx, frame, FrameMeta{
			CapturedAt: start.Add(time.Duration(i) * 100 * time.Millisecond),
		})
		if err != nil {
			t.Fatalf("frame %d: unexpected error: %v", i, err)
		}
		if res.Detections[0].Name != constants.UnknownPerson {
			t.Errorf("frame %d: expected %s, got %s", i, constants.UnknownPerson, res.Detections[0].Name)
		}
		if len(res.Attendance) != 0 {
			t.Errorf("frame %d: expected no attendance for unknown faces", i)
		}
	}

	count, err := backend.CountAttendance(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no attendance rows, got %d", count)
	}

	// Unknown detections are still logged for auditing.
	if len(backend.Detections()) != 3 {
		t.Errorf("expected 3 logged detections, got %d", len(backend.Detections()))
	}
}

func TestProcessImage_NoFaces(t *testing.T) {
	backend := mock.New()
	proc, err := New(Config{
		Detector:   &fakeDetector{},
		Recognizer: newAliceRecognizer(t),
		Engine:     newTestEngine(t),
		Detections: backend,
		Attendance: backend,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := proc.ProcessImage(context.Background(), horizontalPattern(120, 120), FrameMeta{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FacesFound != 0 {
		t.Errorf("expected no faces, got %d", res.FacesFound)
	}
	if len(backend.Detections()) != 0 {
		t.Errorf("expected no logged detections, got %d", len(backend.Detections()))
	}
}

func TestProcessImage_FrameIDFlowsToDetections(t *testing.T) {
	backend := mock.New()
	proc := newTestProcessor(t, backend, newAliceRecognizer(t))

	frameID := int64(42)
	_, err := proc.ProcessImage(context.Background(), horizontalPattern(120, 120), FrameMeta{
		FrameID:    &frameID,
		CapturedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dets := backend.Detections()
	if len(dets) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(dets))
	}
	if dets[0].FrameID == nil || *dets[0].FrameID != 42 {
		t.Errorf("expected frame ID 42, got %v", dets[0].FrameID)
	}
}

func TestProcessImage_BoundingBoxShape(t *testing.T) {
	backend := mock.New()
	proc, err := New(Config{
		Detector:   &fakeDetector{boxes: []vision.Detection{{Box: image.Rect(10, 20, 70, 90), Quality: 10}}},
		Recognizer: newAliceRecognizer(t),
		Engine:     newTestEngine(t),
		Detections: backend,
		Attendance: backend,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := proc.ProcessImage(context.Background(), horizontalPattern(120, 120), FrameMeta{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	box := res.Detections[0].Box
	if box.X != 10 || box.Y != 20 {
		t.Errorf("expected origin (10,20), got (%d,%d)", box.X, box.Y)
	}
	if box.Width != 60 || box.Height != 70 {
		t.Errorf("expected size 60x70, got %dx%d", box.Width, box.Height)
	}
}

func TestProcessImage_WithoutStores(t *testing.T) {
	proc, err := New(Config{
		Detector:   &fakeDetector{boxes: []vision.Detection{{Box: image.Rect(0, 0, 120, 120), Quality: 10}}},
		Recognizer: newAliceRecognizer(t),
		Engine:     newTestEngine(t),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	frame := horizontalPattern(120, 120)
	start := time.Now()
	for i := 0; i < 2; i++ {
		res, err := proc.ProcessImage(ctx, frame, FrameMeta{
			CapturedAt: start.Add(time.Duration(i) * 100 * time.Millisecond),
		})
		if err != nil {
			t.Fatalf("frame %d: unexpected error: %v", i, err)
		}
		if res.FacesFound != 1 {
			t.Errorf("frame %d: expected 1 face, got %d", i, res.FacesFound)
		}
	}
}

func TestProcessData(t *testing.T) {
	backend := mock.New()
	proc := newTestProcessor(t, backend, newAliceRecognizer(t))

	data, err := vision.EncodeJPEG(horizontalPattern(120, 120))
	if err != nil {
		t.Fatal(err)
	}

	res, err := proc.ProcessData(context.Background(), data, FrameMeta{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FacesFound != 1 {
		t.Errorf("expected 1 face, got %d", res.FacesFound)
	}

	if _, err := proc.ProcessData(context.Background(), []byte("not an image"), FrameMeta{}); err == nil {
		t.Error("expected error for undecodable data")
	}
}
