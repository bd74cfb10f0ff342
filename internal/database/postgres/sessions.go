package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
)

// SessionRepository tracks batch processing runs in PostgreSQL.
type SessionRepository struct {
	pool *Pool
}

// NewSessionRepository creates a new PostgreSQL session repository.
func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// CreateSession inserts a processing session in the "running" state.
func (r *SessionRepository) CreateSession(ctx context.Context, session *database.ProcessingSession) (int64, error) {
	metadata, err := marshalMetadata(session.Metadata)
	if err != nil {
		return 0, fmt.Errorf("marshal session metadata: %w", err)
	}

	status := session.Status
	if status == "" {
		status = database.SessionStatusRunning
	}

	query := `
		INSERT INTO processing_sessions (session_id, status, total_frames, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err = r.pool.QueryRow(ctx, query,
		session.SessionID,
		status,
		session.TotalFrames,
		metadata,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert processing session: %w", err)
	}

	return id, nil
}

// UpdateSessionProgress overwrites the live counters of a running session.
func (r *SessionRepository) UpdateSessionProgress(
	ctx context.Context, sessionID string, processedFrames, facesDetected, attendanceRecorded int,
) error {
	query := `
		UPDATE processing_sessions
		SET processed_frames = $2, faces_detected = $3, attendance_recorded = $4
		WHERE session_id = $1
	`

	result, err := r.pool.Exec(ctx, query, sessionID, processedFrames, facesDetected, attendanceRecorded)
	if err != nil {
		return fmt.Errorf("update session progress: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return nil
}

// CompleteSession sets the terminal status and completion time.
func (r *SessionRepository) CompleteSession(
	ctx context.Context, sessionID string, status string, completedAt time.Time,
) error {
	query := `
		UPDATE processing_sessions
		SET status = $2, completed_at = $3
		WHERE session_id = $1
	`

	result, err := r.pool.Exec(ctx, query, sessionID, status, completedAt)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return nil
}

// GetSession retrieves a session by its session_id, returns nil if not found.
func (r *SessionRepository) GetSession(ctx context.Context, sessionID string) (*database.ProcessingSession, error) {
	query := `
		SELECT id, session_id, status, total_frames, processed_frames,
		       faces_detected, attendance_recorded, metadata, started_at, completed_at
		FROM processing_sessions
		WHERE session_id = $1
	`

	var (
		session     database.ProcessingSession
		metadata    []byte
		completedAt sql.NullTime
	)
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&session.ID,
		&session.SessionID,
		&session.Status,
		&session.TotalFrames,
		&session.ProcessedFrames,
		&session.FacesDetected,
		&session.AttendanceRecorded,
		&metadata,
		&session.StartedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if completedAt.Valid {
		session.CompletedAt = &completedAt.Time
	}
	if session.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return nil, fmt.Errorf("session %s metadata: %w", sessionID, err)
	}

	return &session, nil
}

var _ database.SessionStore = (*SessionRepository)(nil)
