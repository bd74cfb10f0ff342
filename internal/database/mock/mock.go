// Package mock provides an in-memory implementation of the database
// interfaces for handler tests and database-less development.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/security"
)

// Backend implements every repository interface over in-memory maps. Safe
// for concurrent use. The zero value is not usable; call New.
type Backend struct {
	mu sync.RWMutex

	faces      []*database.StoredFace
	recordings map[int64]*database.Recording
	frames     map[int64]*database.Frame
	detections []*database.FaceDetection
	attendance map[string]*database.AttendanceRecord
	sessions   map[string]*database.ProcessingSession

	nextFaceID       int64
	nextRecordingID  int64
	nextFrameID      int64
	nextDetectionID  int64
	nextAttendanceID int64
	nextSessionID    int64

	// Error injection for tests
	SaveFaceError         error
	ListFacesError        error
	FindSimilarError      error
	CreateRecordingError  error
	SaveFrameError        error
	SaveDetectionError    error
	RecordAttendanceError error
	SummaryError          error
	ListAttendanceError   error
	StatsError            error
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{
		recordings: make(map[int64]*database.Recording),
		frames:     make(map[int64]*database.Frame),
		attendance: make(map[string]*database.AttendanceRecord),
		sessions:   make(map[string]*database.ProcessingSession),
	}
}

// Register creates a backend, wires it into the provider and returns it for
// seeding. Tests call this instead of postgres.Initialize.
func Register() *Backend {
	b := New()
	database.RegisterBackend(database.Repositories{
		Faces:      func() database.FaceWriter { return b },
		Recordings: func() database.RecordingStore { return b },
		Frames:     func() database.FrameStore { return b },
		Detections: func() database.DetectionWriter { return b },
		Attendance: func() database.AttendanceStore { return b },
		Sessions:   func() database.SessionStore { return b },
		Stats:      func() database.StatsReader { return b },
	})
	return b
}

// --- FaceReader / FaceWriter ---

// GetFace retrieves a face by ID including image data.
func (b *Backend) GetFace(ctx context.Context, id int64) (*database.StoredFace, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, f := range b.faces {
		if f.ID == id {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

// ListFaces returns all faces without image data, ordered by person name.
func (b *Backend) ListFaces(ctx context.Context) ([]database.StoredFace, error) {
	if b.ListFacesError != nil {
		return nil, b.ListFacesError
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]database.StoredFace, 0, len(b.faces))
	for _, f := range b.faces {
		cp := *f
		cp.ImageData = nil
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PersonName != out[j].PersonName {
			return out[i].PersonName < out[j].PersonName
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ListFacesByPerson returns all faces for one person, without image data.
func (b *Backend) ListFacesByPerson(ctx context.Context, personName string) ([]database.StoredFace, error) {
	all, err := b.ListFaces(ctx)
	if err != nil {
		return nil, err
	}
	var out []database.StoredFace
	for _, f := range all {
		if f.PersonName == personName {
			out = append(out, f)
		}
	}
	return out, nil
}

// CountFaces returns the total number of face samples stored.
func (b *Backend) CountFaces(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.faces), nil
}

// CountPeople returns the number of distinct people with at least one face.
func (b *Backend) CountPeople(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	people := make(map[string]struct{})
	for _, f := range b.faces {
		people[f.PersonName] = struct{}{}
	}
	return len(people), nil
}

// FindSimilar returns faces ordered by cosine distance to the template.
func (b *Backend) FindSimilar(
	ctx context.Context, template []float32, limit int,
) ([]database.StoredFace, []float64, error) {
	if b.FindSimilarError != nil {
		return nil, nil, b.FindSimilarError
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	type scored struct {
		face     database.StoredFace
		distance float64
	}
	candidates := make([]scored, 0, len(b.faces))
	for _, f := range b.faces {
		cp := *f
		cp.ImageData = nil
		candidates = append(candidates, scored{cp, database.CosineDistance(template, f.Template)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	faces := make([]database.StoredFace, len(candidates))
	distances := make([]float64, len(candidates))
	for i, c := range candidates {
		faces[i] = c.face
		distances[i] = c.distance
	}
	return faces, distances, nil
}

// SaveFace stores a face and returns its ID.
func (b *Backend) SaveFace(ctx context.Context, face *database.StoredFace) (int64, error) {
	if b.SaveFaceError != nil {
		return 0, b.SaveFaceError
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextFaceID++
	cp := *face
	cp.ID = b.nextFaceID
	cp.ImageHash = security.HashBytes(face.ImageData)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.UpdatedAt = cp.CreatedAt
	b.faces = append(b.faces, &cp)
	return cp.ID, nil
}

// DeleteFacesByPerson removes all faces for a person.
func (b *Backend) DeleteFacesByPerson(ctx context.Context, personName string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.faces[:0]
	var deleted int64
	for _, f := range b.faces {
		if f.PersonName == personName {
			deleted++
			continue
		}
		kept = append(kept, f)
	}
	b.faces = kept
	return deleted, nil
}

// --- RecordingStore ---

// CreateRecording inserts a recording in the "recording" state.
func (b *Backend) CreateRecording(ctx context.Context, rec *database.Recording) (int64, error) {
	if b.CreateRecordingError != nil {
		return 0, b.CreateRecordingError
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextRecordingID++
	cp := *rec
	cp.ID = b.nextRecordingID
	if cp.Status == "" {
		cp.Status = database.RecordingStatusRecording
	}
	if cp.StartedAt.IsZero() {
		cp.StartedAt = time.Now()
	}
	b.recordings[cp.ID] = &cp
	return cp.ID, nil
}

// FinishRecording sets the final status, frame count and stop time.
func (b *Backend) FinishRecording(
	ctx context.Context, id int64, status string, frameCount int, stoppedAt time.Time,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.recordings[id]
	if !ok {
		return fmt.Errorf("recording %d not found", id)
	}
	rec.Status = status
	rec.FrameCount = frameCount
	rec.StoppedAt = &stoppedAt
	return nil
}

// GetRecording retrieves a recording by ID, returns nil if not found.
func (b *Backend) GetRecording(ctx context.Context, id int64) (*database.Recording, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.recordings[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// LatestRecording returns the most recently started recording.
func (b *Backend) LatestRecording(ctx context.Context) (*database.Recording, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var latest *database.Recording
	for _, rec := range b.recordings {
		if latest == nil || rec.StartedAt.After(latest.StartedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// CountRecordings returns the total number of recordings.
func (b *Backend) CountRecordings(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.recordings), nil
}

// --- FrameStore ---

// SaveFrame registers an extracted frame and returns its ID.
func (b *Backend) SaveFrame(ctx context.Context, frame *database.Frame) (int64, error) {
	if b.SaveFrameError != nil {
		return 0, b.SaveFrameError
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextFrameID++
	cp := *frame
	cp.ID = b.nextFrameID
	if cp.CapturedAt.IsZero() {
		cp.CapturedAt = time.Now()
	}
	b.frames[cp.ID] = &cp
	return cp.ID, nil
}

// ListFrames returns frames of a recording in frame order.
func (b *Backend) ListFrames(
	ctx context.Context, recordingID int64, unprocessedOnly bool,
) ([]database.Frame, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []database.Frame
	for _, f := range b.frames {
		if f.RecordingID != recordingID {
			continue
		}
		if unprocessedOnly && f.Processed {
			continue
		}
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FrameNumber < out[j].FrameNumber })
	return out, nil
}

// MarkFrameProcessed flags a frame as processed.
func (b *Backend) MarkFrameProcessed(ctx context.Context, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, ok := b.frames[id]
	if !ok {
		return fmt.Errorf("frame %d not found", id)
	}
	f.Processed = true
	return nil
}

// CountFrames returns the total number of frames registered.
func (b *Backend) CountFrames(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.frames), nil
}

// --- DetectionWriter ---

// SaveDetection stores one detection and returns its ID.
func (b *Backend) SaveDetection(ctx context.Context, det *database.FaceDetection) (int64, error) {
	if b.SaveDetectionError != nil {
		return 0, b.SaveDetectionError
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextDetectionID++
	cp := *det
	cp.ID = b.nextDetectionID
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	b.detections = append(b.detections, &cp)
	return cp.ID, nil
}

// CountDetections returns the total number of detections logged.
func (b *Backend) CountDetections(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.detections), nil
}

// Detections returns a snapshot of all logged detections, oldest first.
// Test helper, not part of any repository interface.
func (b *Backend) Detections() []database.FaceDetection {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]database.FaceDetection, len(b.detections))
	for i, d := range b.detections {
		out[i] = *d
	}
	return out
}

// --- AttendanceStore ---

func attendanceKey(personName, date string) string {
	return personName + "|" + date
}

// RecordAttendance upserts a person's attendance for the record's date,
// mirroring the SQL ON CONFLICT behavior.
func (b *Backend) RecordAttendance(ctx context.Context, rec *database.AttendanceRecord) (int64, error) {
	if b.RecordAttendanceError != nil {
		return 0, b.RecordAttendanceError
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	firstSeen := rec.FirstSeen
	if firstSeen.IsZero() {
		firstSeen = now
	}
	lastSeen := rec.LastSeen
	if lastSeen.IsZero() {
		lastSeen = firstSeen
	}
	date := rec.AttendanceDate
	if date == "" {
		date = lastSeen.Format("2006-01-02")
	}

	key := attendanceKey(rec.PersonName, date)
	if existing, ok := b.attendance[key]; ok {
		existing.DetectionCount++
		existing.ConfidenceSum += rec.LastConfidence
		existing.LastSeen = lastSeen
		existing.LastConfidence = rec.LastConfidence
		return existing.ID, nil
	}

	b.nextAttendanceID++
	cp := *rec
	cp.ID = b.nextAttendanceID
	cp.AttendanceDate = date
	cp.FirstSeen = firstSeen
	cp.LastSeen = lastSeen
	cp.DetectionCount = 1
	cp.ConfidenceSum = rec.LastConfidence
	cp.CreatedAt = now
	b.attendance[key] = &cp
	return cp.ID, nil
}

// AttendanceSummary returns per-person totals for one date.
func (b *Backend) AttendanceSummary(ctx context.Context, date string) ([]database.AttendanceSummaryRow, error) {
	if b.SummaryError != nil {
		return nil, b.SummaryError
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	var summary []database.AttendanceSummaryRow
	for _, rec := range b.attendance {
		if rec.AttendanceDate != date {
			continue
		}
		summary = append(summary, database.AttendanceSummaryRow{
			PersonName:        rec.PersonName,
			TotalDetections:   rec.DetectionCount,
			AverageConfidence: rec.AverageConfidence(),
		})
	}
	sort.Slice(summary, func(i, j int) bool {
		if summary[i].TotalDetections != summary[j].TotalDetections {
			return summary[i].TotalDetections > summary[j].TotalDetections
		}
		return summary[i].PersonName < summary[j].PersonName
	})
	return summary, nil
}

// ListAttendance returns raw records, newest first.
func (b *Backend) ListAttendance(
	ctx context.Context, date string, limit int,
) ([]database.AttendanceRecord, error) {
	if b.ListAttendanceError != nil {
		return nil, b.ListAttendanceError
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if limit <= 0 {
		limit = constants.DefaultRecordsLimit
	}

	var records []database.AttendanceRecord
	for _, rec := range b.attendance {
		if date != "" && rec.AttendanceDate != date {
			continue
		}
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].LastSeen.After(records[j].LastSeen) })
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// CountAttendance returns the total number of attendance rows.
func (b *Backend) CountAttendance(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.attendance), nil
}

// --- SessionStore ---

// CreateSession inserts a processing session in the "running" state.
func (b *Backend) CreateSession(ctx context.Context, session *database.ProcessingSession) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSessionID++
	cp := *session
	cp.ID = b.nextSessionID
	if cp.Status == "" {
		cp.Status = database.SessionStatusRunning
	}
	if cp.StartedAt.IsZero() {
		cp.StartedAt = time.Now()
	}
	b.sessions[cp.SessionID] = &cp
	return cp.ID, nil
}

// UpdateSessionProgress overwrites the live counters of a running session.
func (b *Backend) UpdateSessionProgress(
	ctx context.Context, sessionID string, processedFrames, facesDetected, attendanceRecorded int,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	s.ProcessedFrames = processedFrames
	s.FacesDetected = facesDetected
	s.AttendanceRecorded = attendanceRecorded
	return nil
}

// CompleteSession sets the terminal status and completion time.
func (b *Backend) CompleteSession(
	ctx context.Context, sessionID string, status string, completedAt time.Time,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	s.Status = status
	s.CompletedAt = &completedAt
	return nil
}

// GetSession retrieves a session by its session_id, returns nil if not found.
func (b *Backend) GetSession(ctx context.Context, sessionID string) (*database.ProcessingSession, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// --- StatsReader ---

// ProcessingStats aggregates counts over the in-memory tables.
func (b *Backend) ProcessingStats(ctx context.Context) (*database.Stats, error) {
	if b.StatsError != nil {
		return nil, b.StatsError
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	people := make(map[string]struct{})
	for _, f := range b.faces {
		people[f.PersonName] = struct{}{}
	}

	var confidenceSum float64
	for _, d := range b.detections {
		confidenceSum += d.Confidence
	}
	var avgConfidence float64
	if len(b.detections) > 0 {
		avgConfidence = confidenceSum / float64(len(b.detections))
	}

	return &database.Stats{
		TotalFaces:        len(b.faces),
		TotalRecordings:   len(b.recordings),
		TotalFrames:       len(b.frames),
		TotalDetections:   len(b.detections),
		TotalAttendance:   len(b.attendance),
		UniquePeople:      len(people),
		AverageConfidence: avgConfidence,
	}, nil
}

var _ database.FaceWriter = (*Backend)(nil)
var _ database.RecordingStore = (*Backend)(nil)
var _ database.FrameStore = (*Backend)(nil)
var _ database.DetectionWriter = (*Backend)(nil)
var _ database.AttendanceStore = (*Backend)(nil)
var _ database.SessionStore = (*Backend)(nil)
var _ database.StatsReader = (*Backend)(nil)
