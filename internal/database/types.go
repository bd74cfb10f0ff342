package database

import (
	"time"
)

// StoredFace is a known face kept for recognition. The image is encrypted at
// rest; ImageData holds the decrypted bytes and is only populated by getters
// that explicitly load it. Template is the flattened normalized grayscale
// patch used for matching and is stored in the clear for similarity search.
type StoredFace struct {
	ID         int64
	PersonName string
	ImageData  []byte
	ImageHash  string
	Template   []float32
	Metadata   map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Recording represents one capture session: a sequence of frames grabbed
// from a camera source and written to the storage directory.
type Recording struct {
	ID         int64
	SessionID  string
	Source     string
	Status     string
	FPS        int
	FrameCount int
	StartedAt  time.Time
	StoppedAt  *time.Time
	Metadata   map[string]any
}

// Recording lifecycle states.
const (
	RecordingStatusRecording = "recording"
	RecordingStatusCompleted = "completed"
	RecordingStatusStopped   = "stopped"
	RecordingStatusFailed    = "failed"
)

// Frame is a single extracted frame registered for processing.
type Frame struct {
	ID          int64
	RecordingID int64
	FrameNumber int
	FramePath   string
	FrameHash   string
	CapturedAt  time.Time
	Processed   bool
}

// BoundingBox locates a face within a frame. Stored as JSONB and returned
// over the API in the same shape.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FaceDetection is one recognition result logged for a frame. FrameID is nil
// for detections on ad-hoc frames submitted over the API that were never
// registered as frames.
type FaceDetection struct {
	ID          int64
	FrameID     *int64
	PersonName  string
	Confidence  float64
	BoundingBox BoundingBox
	TrackKey    string
	Stable      bool
	CreatedAt   time.Time
}

// AttendanceRecord is one person's presence on one day. A person has at most
// one row per attendance_date; repeated recordings on the same day fold into
// the counters instead of creating new rows.
type AttendanceRecord struct {
	ID             int64
	PersonName     string
	AttendanceDate string
	FirstSeen      time.Time
	LastSeen       time.Time
	DetectionCount int
	ConfidenceSum  float64
	LastConfidence float64
	SessionID      string
	Location       string
	DeviceInfo     map[string]any
	CreatedAt      time.Time
}

// AverageConfidence returns the mean confidence across all recordings folded
// into this row, or 0 before anything was recorded.
func (r AttendanceRecord) AverageConfidence() float64 {
	if r.DetectionCount == 0 {
		return 0
	}
	return r.ConfidenceSum / float64(r.DetectionCount)
}

// AttendanceSummaryRow is one line of the per-day attendance summary.
type AttendanceSummaryRow struct {
	PersonName        string
	TotalDetections   int
	AverageConfidence float64
}

// ProcessingSession tracks the progress of one batch processing run.
type ProcessingSession struct {
	ID                 int64
	SessionID          string
	Status             string
	TotalFrames        int
	ProcessedFrames    int
	FacesDetected      int
	AttendanceRecorded int
	Metadata           map[string]any
	StartedAt          time.Time
	CompletedAt        *time.Time
}

// Processing session lifecycle states.
const (
	SessionStatusRunning   = "running"
	SessionStatusCompleted = "completed"
	SessionStatusFailed    = "failed"
)

// Stats summarizes the contents of the store for the stats endpoint and CLI.
type Stats struct {
	TotalFaces        int
	TotalRecordings   int
	TotalFrames       int
	TotalDetections   int
	TotalAttendance   int
	UniquePeople      int
	AverageConfidence float64
}
