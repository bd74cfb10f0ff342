package database

import (
	"fmt"
)

// Repositories bundles the repository constructors a backend registers.
// Constructors are funcs so backends can hand out per-call values without
// the provider knowing the concrete types.
type Repositories struct {
	Faces      func() FaceWriter
	Recordings func() RecordingStore
	Frames     func() FrameStore
	Detections func() DetectionWriter
	Attendance func() AttendanceStore
	Sessions   func() SessionStore
	Stats      func() StatsReader
}

var (
	registered  Repositories
	initialized bool
)

// RegisterBackend registers a set of repository constructors. Called by the
// postgres package after migrations (and by the mock backend in tests) to
// avoid import cycles between handlers and the concrete backend.
func RegisterBackend(repos Repositories) {
	registered = repos
	initialized = true
}

// IsInitialized returns whether a backend has been registered.
func IsInitialized() bool {
	return initialized
}

// GetFaceReader returns a FaceReader from the registered backend.
func GetFaceReader() (FaceReader, error) {
	if !initialized {
		return nil, fmt.Errorf("database backend not initialized: DATABASE_URL is required")
	}
	if registered.Faces == nil {
		return nil, fmt.Errorf("face repository not registered")
	}
	return registered.Faces(), nil
}

// GetFaceWriter returns a FaceWriter from the registered backend.
func GetFaceWriter() (FaceWriter, error) {
	if !initialized {
		return nil, fmt.Errorf("database backend not initialized: DATABASE_URL is required")
	}
	if registered.Faces == nil {
		return nil, fmt.Errorf("face repository not registered")
	}
	return registered.Faces(), nil
}

// GetRecordingStore returns a RecordingStore from the registered backend.
func GetRecordingStore() (RecordingStore, error) {
	if !initialized {
		return nil, fmt.Errorf("database backend not initialized: DATABASE_URL is required")
	}
	if registered.Recordings == nil {
		return nil, fmt.Errorf("recording repository not registered")
	}
	return registered.Recordings(), nil
}

// GetFrameStore returns a FrameStore from the registered backend.
func GetFrameStore() (FrameStore, error) {
	if !initialized {
		return nil, fmt.Errorf("database backend not initialized: DATABASE_URL is required")
	}
	if registered.Frames == nil {
		return nil, fmt.Errorf("frame repository not registered")
	}
	return registered.Frames(), nil
}

// GetDetectionWriter returns a DetectionWriter from the registered backend.
func GetDetectionWriter() (DetectionWriter, error) {
	if !initialized {
		return nil, fmt.Errorf("database backend not initialized: DATABASE_URL is required")
	}
	if registered.Detections == nil {
		return nil, fmt.Errorf("detection repository not registered")
	}
	return registered.Detections(), nil
}

// GetAttendanceStore returns an AttendanceStore from the registered backend.
func GetAttendanceStore() (AttendanceStore, error) {
	if !initialized {
		return nil, fmt.Errorf("database backend not initialized: DATABASE_URL is required")
	}
	if registered.Attendance == nil {
		return nil, fmt.Errorf("attendance repository not registered")
	}
	return registered.Attendance(), nil
}

// GetSessionStore returns a SessionStore from the registered backend.
func GetSessionStore() (SessionStore, error) {
	if !initialized {
		return nil, fmt.Errorf("database backend not initialized: DATABASE_URL is required")
	}
	if registered.Sessions == nil {
		return nil, fmt.Errorf("session repository not registered")
	}
	return registered.Sessions(), nil
}

// GetStatsReader returns a StatsReader from the registered backend.
func GetStatsReader() (StatsReader, error) {
	if !initialized {
		return nil, fmt.Errorf("database backend not initialized: DATABASE_URL is required")
	}
	if registered.Stats == nil {
		return nil, fmt.Errorf("stats repository not registered")
	}
	return registered.Stats(), nil
}
