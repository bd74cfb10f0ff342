// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// UnknownPerson is the sentinel identity returned by the recognizer when no
// known face scores above the recognition threshold. It takes part in
// stability voting like any other name but is never recorded as attendance.
const UnknownPerson = "Unknown"

// Stability engine defaults
const (
	// DefaultWindowCapacity is the number of observations kept per track
	DefaultWindowCapacity = 10

	// DefaultStabilityThreshold is how many of the most recent observations
	// must agree before a track counts as stable
	DefaultStabilityThreshold = 7

	// DefaultMinAttendanceConfidence is the minimum verdict confidence for
	// an attendance recording decision
	DefaultMinAttendanceConfidence = 0.6

	// DefaultAttendanceCooldown is the minimum time between two recording
	// decisions for the same person
	DefaultAttendanceCooldown = 5 * time.Second

	// DefaultTrackMaxAge is how long a track survives without new observations
	DefaultTrackMaxAge = 3 * time.Second

	// DefaultBucketSize is the grid cell size in pixels for position-based
	// track keys
	DefaultBucketSize = 50
)

// Recognition constants
const (
	// TemplateSize is the side length of the square grayscale template a face
	// region is normalized to before matching
	TemplateSize = 100

	// TemplateDim is the flattened template vector length
	TemplateDim = TemplateSize * TemplateSize

	// DefaultRecognitionThreshold is the minimum correlation score for a
	// match; below it the recognizer returns UnknownPerson
	DefaultRecognitionThreshold = 0.6

	// DefaultSearchCandidates is how many index neighbors are rescored with
	// the exact correlation before picking the best match
	DefaultSearchCandidates = 5
)

// Detection constants
const (
	// MinFaceSize is the smallest face side length the detector reports
	MinFaceSize = 30

	// MaxFaceSize is the largest face side length the detector reports
	MaxFaceSize = 300
)

// Capture and processing constants
const (
	// DefaultFrameInterval selects every Nth captured frame for processing
	DefaultFrameInterval = 3

	// DefaultCaptureFPS is the target capture rate for recording sessions
	DefaultCaptureFPS = 30

	// DefaultRecordingDuration bounds a recording session that is never
	// stopped explicitly
	DefaultRecordingDuration = 10 * time.Second

	// WorkerPoolSize is the default number of parallel workers for batch
	// frame processing
	WorkerPoolSize = 4
)

// Attendance defaults
const (
	// DefaultLocation is recorded when the caller does not provide one
	DefaultLocation = "Camera_1"

	// DefaultRecordsLimit caps the attendance records listing
	DefaultRecordsLimit = 100
)
