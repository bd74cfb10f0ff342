package apiclient

import "time"

// Health is the server health report
type Health struct {
	Status                string    `json:"status"`
	Timestamp             time.Time `json:"timestamp"`
	FaceRecognitionLoaded bool      `json:"face_recognition_loaded"`
}

// Stats aggregates processing counters across the whole database
type Stats struct {
	TotalFaces        int     `json:"total_faces"`
	TotalRecordings   int     `json:"total_recordings"`
	TotalFrames       int     `json:"total_frames"`
	TotalDetections   int     `json:"total_detections"`
	TotalAttendance   int     `json:"total_attendance"`
	UniquePeople      int     `json:"unique_people"`
	AverageConfidence float64 `json:"average_confidence"`
}

// DatasetLoadRequest asks the server to (re)load the face index
type DatasetLoadRequest struct {
	DatasetDir string `json:"dataset_dir,omitempty"`
}

// DatasetLoadResult reports how many faces the server loaded
type DatasetLoadResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	FacesLoaded  int    `json:"faces_loaded"`
	UniquePeople int    `json:"unique_people"`
}

// RecordingStartRequest configures a capture session
type RecordingStartRequest struct {
	Source      string  `json:"source,omitempty"`
	CameraIndex *int    `json:"camera_index,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	FPS         int     `json:"fps,omitempty"`
}

// RecordingStarted is the response to a successful recording start
type RecordingStarted struct {
	Success         bool    `json:"success"`
	Message         string  `json:"message"`
	RecordingID     int64   `json:"recording_id"`
	SessionID       string  `json:"session_id"`
	Source          string  `json:"source"`
	DurationSeconds float64 `json:"duration_seconds"`
	FPS             int     `json:"fps"`
}

// RecordingStopped is the response to a recording stop
type RecordingStopped struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	RecordingID    int64  `json:"recording_id"`
	SessionID      string `json:"session_id"`
	FramesCaptured int    `json:"frames_captured"`
}

// RecordingStatus reports whether a capture session is running
type RecordingStatus struct {
	IsRecording    bool      `json:"is_recording"`
	RecordingID    int64     `json:"recording_id,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	FramesCaptured int       `json:"frames_captured"`
	Timestamp      time.Time `json:"timestamp"`
}

// FrameExtractRequest selects a recording to extract frames from
type FrameExtractRequest struct {
	RecordingID   int64 `json:"recording_id,omitempty"`
	FrameInterval int   `json:"frame_interval,omitempty"`
}

// FrameExtractResult reports the outcome of a frame extraction
type FrameExtractResult struct {
	Success       bool   `json:"success"`
	RecordingID   int64  `json:"recording_id"`
	SessionID     string `json:"session_id"`
	FrameInterval int    `json:"frame_interval"`
	FramesSeen    int    `json:"frames_seen"`
	FramesSaved   int    `json:"frames_saved"`
}

// FrameProcessRequest submits a single frame for recognition.
// Exactly one of FramePath or FrameBase64 should be set.
type FrameProcessRequest struct {
	FramePath   string `json:"frame_path,omitempty"`
	FrameBase64 string `json:"frame_base64,omitempty"`
}

// BoundingBox is a detected face region in pixel coordinates
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Detection is one recognized face in a processed frame
type Detection struct {
	Name       string      `json:"name"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
	TrackKey   string      `json:"track_key"`
	Stable     bool        `json:"stable"`
}

// AttendanceEvent is an attendance row written while processing a frame
type AttendanceEvent struct {
	AttendanceID int64   `json:"attendance_id"`
	PersonName   string  `json:"person_name"`
	Confidence   float64 `json:"confidence"`
}

// FrameProcessResult is the recognition outcome for a single frame
type FrameProcessResult struct {
	Success              bool              `json:"success"`
	Detections           []Detection       `json:"detections"`
	FacesFound           int               `json:"faces_found"`
	Attendance           []AttendanceEvent `json:"attendance"`
	AnnotatedFrameBase64 string            `json:"annotated_frame_base64,omitempty"`
	Timestamp            time.Time         `json:"timestamp"`
}

// ProcessAllRequest starts a background job over a whole recording
type ProcessAllRequest struct {
	RecordingID   int64 `json:"recording_id,omitempty"`
	FrameInterval int   `json:"frame_interval,omitempty"`
	Workers       int   `json:"workers,omitempty"`
}

// JobAccepted is returned when a background job has been enqueued
type JobAccepted struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ProcessAllResult summarizes a finished batch job
type ProcessAllResult struct {
	SessionID          string   `json:"session_id"`
	RecordingID        int64    `json:"recording_id"`
	TotalFrames        int      `json:"total_frames"`
	ProcessedFrames    int      `json:"processed_frames"`
	FacesDetected      int      `json:"faces_detected"`
	AttendanceRecorded int      `json:"attendance_recorded"`
	Errors             []string `json:"errors,omitempty"`
}

// Job mirrors the server-side job record
type Job struct {
	ID              string            `json:"id"`
	Kind            string            `json:"kind"`
	Status          string            `json:"status"`
	Progress        int               `json:"progress"`
	TotalFrames     int               `json:"total_frames"`
	ProcessedFrames int               `json:"processed_frames"`
	Error           string            `json:"error,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	Result          *ProcessAllResult `json:"result,omitempty"`
}

// Terminal reports whether the job has finished (successfully or not)
func (j *Job) Terminal() bool {
	switch j.Status {
	case "completed", "failed", "cancelled":
		return true
	}
	return false
}

// AttendanceRecordRequest manually records attendance for a person
type AttendanceRecordRequest struct {
	PersonName string         `json:"person_name"`
	Confidence float64        `json:"confidence"`
	Location   string         `json:"location,omitempty"`
	DeviceInfo map[string]any `json:"device_info,omitempty"`
}

// AttendanceRecorded confirms a manual attendance write
type AttendanceRecorded struct {
	Success      bool    `json:"success"`
	AttendanceID int64   `json:"attendance_id"`
	PersonName   string  `json:"person_name"`
	Confidence   float64 `json:"confidence"`
}

// AttendanceSummaryEntry is one person's row in a day summary
type AttendanceSummaryEntry struct {
	PersonName        string  `json:"person_name"`
	TotalDetections   int     `json:"total_detections"`
	AverageConfidence float64 `json:"average_confidence"`
}

// AttendanceSummary is the per-person roll-up for one day
type AttendanceSummary struct {
	Date        string                   `json:"date"`
	TotalPeople int                      `json:"total_people"`
	Summary     []AttendanceSummaryEntry `json:"summary"`
}

// AttendanceRecord is one attendance row as served by the API
type AttendanceRecord struct {
	ID                int64          `json:"id"`
	PersonName        string         `json:"person_name"`
	AttendanceDate    string         `json:"attendance_date"`
	FirstSeen         time.Time      `json:"first_seen"`
	LastSeen          time.Time      `json:"last_seen"`
	DetectionCount    int            `json:"detection_count"`
	AverageConfidence float64        `json:"average_confidence"`
	LastConfidence    float64        `json:"last_confidence"`
	SessionID         string         `json:"session_id,omitempty"`
	Location          string         `json:"location,omitempty"`
	DeviceInfo        map[string]any `json:"device_info,omitempty"`
}

// AttendanceRecords is a page of attendance rows
type AttendanceRecords struct {
	Count   int                `json:"count"`
	Records []AttendanceRecord `json:"records"`
}
