package database

import (
	"context"
	"time"
)

// FaceReader provides read-only access to known faces.
type FaceReader interface {
	// GetFace retrieves a face by ID with the image decrypted, returns nil if not found
	GetFace(ctx context.Context, id int64) (*StoredFace, error)
	// ListFaces returns all faces with templates but without image data,
	// ordered by person name
	ListFaces(ctx context.Context) ([]StoredFace, error)
	// ListFacesByPerson returns all faces for one person, without image data
	ListFacesByPerson(ctx context.Context, personName string) ([]StoredFace, error)
	// CountFaces returns the total number of face samples stored
	CountFaces(ctx context.Context) (int, error)
	// CountPeople returns the number of distinct people with at least one face
	CountPeople(ctx context.Context) (int, error)
	// FindSimilar returns the faces closest to the template by cosine
	// distance together with the distances, nearest first
	FindSimilar(ctx context.Context, template []float32, limit int) ([]StoredFace, []float64, error)
}

// FaceWriter provides write access to known faces.
type FaceWriter interface {
	FaceReader

	// SaveFace stores a face (image encrypted at rest) and returns its ID
	SaveFace(ctx context.Context, face *StoredFace) (int64, error)
	// DeleteFacesByPerson removes all faces for a person, returns the number deleted
	DeleteFacesByPerson(ctx context.Context, personName string) (int64, error)
}

// RecordingStore manages capture sessions.
type RecordingStore interface {
	// CreateRecording inserts a recording in the "recording" state and returns its ID
	CreateRecording(ctx context.Context, rec *Recording) (int64, error)
	// FinishRecording sets the final status, frame count and stop time
	FinishRecording(ctx context.Context, id int64, status string, frameCount int, stoppedAt time.Time) error
	// GetRecording retrieves a recording by ID, returns nil if not found
	GetRecording(ctx context.Context, id int64) (*Recording, error)
	// LatestRecording returns the most recently started recording, nil if none exist
	LatestRecording(ctx context.Context) (*Recording, error)
	// CountRecordings returns the total number of recordings
	CountRecordings(ctx context.Context) (int, error)
}

// FrameStore manages extracted frames.
type FrameStore interface {
	// SaveFrame registers an extracted frame and returns its ID
	SaveFrame(ctx context.Context, frame *Frame) (int64, error)
	// ListFrames returns frames of a recording in frame order. With
	// unprocessedOnly set, frames already processed are skipped.
	ListFrames(ctx context.Context, recordingID int64, unprocessedOnly bool) ([]Frame, error)
	// MarkFrameProcessed flags a frame as processed
	MarkFrameProcessed(ctx context.Context, id int64) error
	// CountFrames returns the total number of frames registered
	CountFrames(ctx context.Context) (int, error)
}

// DetectionWriter logs per-frame recognition results.
type DetectionWriter interface {
	// SaveDetection stores one detection and returns its ID
	SaveDetection(ctx context.Context, det *FaceDetection) (int64, error)
	// CountDetections returns the total number of detections logged
	CountDetections(ctx context.Context) (int, error)
}

// AttendanceStore is the attendance sink and its query surface.
type AttendanceStore interface {
	// RecordAttendance upserts a person's attendance for the record's date.
	// The first recording of a person+date inserts a row with
	// detection_count=1; later recordings on the same date increment the
	// counter, accumulate confidence_sum and refresh last_seen and
	// last_confidence. Returns the row ID either way.
	RecordAttendance(ctx context.Context, rec *AttendanceRecord) (int64, error)
	// AttendanceSummary returns per-person totals for one date (YYYY-MM-DD),
	// ordered by detection count descending
	AttendanceSummary(ctx context.Context, date string) ([]AttendanceSummaryRow, error)
	// ListAttendance returns raw records, newest first. Empty date means all
	// dates; limit <= 0 applies the default limit.
	ListAttendance(ctx context.Context, date string, limit int) ([]AttendanceRecord, error)
	// CountAttendance returns the total number of attendance rows
	CountAttendance(ctx context.Context) (int, error)
}

// SessionStore tracks batch processing runs.
type SessionStore interface {
	// CreateSession inserts a processing session in the "running" state and returns its ID
	CreateSession(ctx context.Context, session *ProcessingSession) (int64, error)
	// UpdateSessionProgress overwrites the live counters of a running session
	UpdateSessionProgress(ctx context.Context, sessionID string, processedFrames, facesDetected, attendanceRecorded int) error
	// CompleteSession sets the terminal status and completion time
	CompleteSession(ctx context.Context, sessionID string, status string, completedAt time.Time) error
	// GetSession retrieves a session by its session_id, returns nil if not found
	GetSession(ctx context.Context, sessionID string) (*ProcessingSession, error)
}

// StatsReader aggregates store-wide processing statistics.
type StatsReader interface {
	// ProcessingStats returns row counts per table, distinct people and the
	// mean detection confidence
	ProcessingStats(ctx context.Context) (*Stats, error)
}
