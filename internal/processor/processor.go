// Package processor runs frames through detection, recognition and the
// aggregation engine, and persists what comes out: face detections, and
// attendance rows for gate record decisions. It glues the camera, vision,
// recognizer and engine packages to the stores.
package processor

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/engine"
	"github.com/kozaktomas/face-attend/internal/recognizer"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// Config wires a Processor to its pipeline stages and sinks. Detector,
// Recognizer and Engine are required; nil stores disable the corresponding
// writes, which keeps ad-hoc processing usable without a database.
type Config struct {
	Detector   vision.Detector
	Recognizer *recognizer.Recognizer
	Engine     *engine.Engine
	Detections database.DetectionWriter
	Attendance database.AttendanceStore
	Location   string // stamped on attendance rows, defaults to the camera location constant
}

// Processor turns decoded frames into tracked detections and attendance
// records. It is safe for concurrent use: the engine is single-threaded by
// contract and every frame pass holds the processor's mutex around it.
type Processor struct {
	detector   vision.Detector
	recognizer *recognizer.Recognizer
	engine     *engine.Engine
	detections database.DetectionWriter
	attendance database.AttendanceStore
	location   string
	deviceInfo map[string]any

	engineMu sync.Mutex
}

// New creates a processor from the given configuration.
func New(cfg Config) (*Processor, error) {
	if cfg.Detector == nil {
		return nil, fmt.Errorf("processor requires a face detector")
	}
	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("processor requires a recognizer")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("processor requires an aggregation engine")
	}
	location := cfg.Location
	if location == "" {
		location = constants.DefaultLocation
	}
	return &Processor{
		detector:   cfg.Detector,
		recognizer: cfg.Recognizer,
		engine:     cfg.Engine,
		detections: cfg.Detections,
		attendance: cfg.Attendance,
		location:   location,
		deviceInfo: map[string]any{
			"detection_method": "stable_face_recognition",
			"system":           "real_time_attendance",
		},
	}, nil
}

// FrameMeta carries the identity of the frame being processed. FrameID is nil
// for ad-hoc frames that were never registered in the frames table. A zero
// CapturedAt means the frame is live and observed now.
type FrameMeta struct {
	FrameID    *int64
	SessionID  string
	CapturedAt time.Time
}

// Detection is one recognized face of a processed frame, in API shape.
type Detection struct {
	Name       string
	Confidence float64
	Box        database.BoundingBox
	TrackKey   string
	Stable     bool
}

// AttendanceEvent reports one attendance row written for a record decision.
type AttendanceEvent struct {
	AttendanceID int64
	PersonName   string
	Confidence   float64
}

// FrameResult is everything processing a single frame produced.
type FrameResult struct {
	FacesFound  int
	Detections  []Detection
	Attendance  []AttendanceEvent
	ProcessedAt time.Time
}

// ProcessImage runs one decoded frame through the full pipeline: detect
// faces, match each against the index, feed the labelled detections to the
// engine under the mutex, then log detections and write attendance for
// record decisions. Store writes happen after the engine pass so a slow sink
// cannot stall tracking.
func (p *Processor) ProcessImage(ctx context.Context, img image.Image, meta FrameMeta) (*FrameResult, error) {
	at := meta.CapturedAt
	if at.IsZero() {
		at = time.Now()
	}

	found := p.detector.Detect(img)
	labelled := make([]engine.Detection, len(found))
	for i, f := range found {
		template := vision.TemplateFromRegion(img, f.Box)
		match := p.recognizer.Recognize(template)
		labelled[i] = engine.Detection{
			Box: engine.BoundingBox{
				X: f.Box.Min.X,
				Y: f.Box.Min.Y,
				W: f.Box.Dx(),
				H: f.Box.Dy(),
			},
			Name:       match.Name,
			Confidence: match.Score,
		}
	}

	p.engineMu.Lock()
	tracked := p.engine.ProcessFrame(labelled, at)
	p.engineMu.Unlock()

	result := &FrameResult{
		FacesFound:  len(tracked),
		Detections:  make([]Detection, 0, len(tracked)),
		ProcessedAt: at,
	}

	for _, td := range tracked {
		det := Detection{
			Name:       td.Name,
			Confidence: td.Confidence,
			Box: database.BoundingBox{
				X:      td.Box.X,
				Y:      td.Box.Y,
				Width:  td.Box.W,
				Height: td.Box.H,
			},
			TrackKey: td.TrackKey,
			Stable:   td.Verdict.Stable,
		}
		result.Detections = append(result.Detections, det)

		if p.detections != nil {
			_, err := p.detections.SaveDetection(ctx, &database.FaceDetection{
				FrameID:     meta.FrameID,
				PersonName:  td.Name,
				Confidence:  td.Confidence,
				BoundingBox: det.Box,
				TrackKey:    td.TrackKey,
				Stable:      td.Verdict.Stable,
				CreatedAt:   at,
			})
			if err != nil {
				return nil, fmt.Errorf("save detection: %w", err)
			}
		}

		if td.Decision.Kind != engine.DecisionRecord || p.attendance == nil {
			continue
		}
		id, err := p.attendance.RecordAttendance(ctx, &database.AttendanceRecord{
			PersonName:     td.Decision.PersonName,
			FirstSeen:      at,
			LastSeen:       at,
			LastConfidence: td.Decision.Confidence,
			SessionID:      meta.SessionID,
			Location:       p.location,
			DeviceInfo:     p.deviceInfo,
		})
		if err != nil {
			return nil, fmt.Errorf("record attendance for %s: %w", td.Decision.PersonName, err)
		}
		result.Attendance = append(result.Attendance, AttendanceEvent{
			AttendanceID: id,
			PersonName:   td.Decision.PersonName,
			Confidence:   td.Decision.Confidence,
		})
	}

	return result, nil
}

// ProcessData decodes raw image bytes and processes them as one frame.
func (p *Processor) ProcessData(ctx context.Context, data []byte, meta FrameMeta) (*FrameResult, error) {
	img, err := vision.DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return p.ProcessImage(ctx, img, meta)
}

// ActiveTracks reports the engine's live track count after the last frame.
func (p *Processor) ActiveTracks() int {
	p.engineMu.Lock()
	defer p.engineMu.Unlock()
	return p.engine.ActiveTracks()
}

// RecordedToday reports how many distinct people the gate recorded today.
func (p *Processor) RecordedToday() int {
	p.engineMu.Lock()
	defer p.engineMu.Unlock()
	return p.engine.RecordedToday(time.Now())
}
