package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
)

// RecordingRepository provides PostgreSQL-backed storage for capture sessions.
type RecordingRepository struct {
	pool *Pool
}

// NewRecordingRepository creates a new PostgreSQL recording repository.
func NewRecordingRepository(pool *Pool) *RecordingRepository {
	return &RecordingRepository{pool: pool}
}

// CreateRecording inserts a recording in the "recording" state.
func (r *RecordingRepository) CreateRecording(ctx context.Context, rec *database.Recording) (int64, error) {
	metadata, err := marshalMetadata(rec.Metadata)
	if err != nil {
		return 0, fmt.Errorf("marshal recording metadata: %w", err)
	}

	query := `
		INSERT INTO recordings (session_id, source, status, fps, started_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	status := rec.Status
	if status == "" {
		status = database.RecordingStatusRecording
	}
	startedAt := rec.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	var id int64
	err = r.pool.QueryRow(ctx, query,
		rec.SessionID,
		rec.Source,
		status,
		rec.FPS,
		startedAt,
		metadata,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert recording: %w", err)
	}

	return id, nil
}

// FinishRecording sets the final status, frame count and stop time.
func (r *RecordingRepository) FinishRecording(
	ctx context.Context, id int64, status string, frameCount int, stoppedAt time.Time,
) error {
	query := `
		UPDATE recordings
		SET status = $2, frame_count = $3, stopped_at = $4
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, status, frameCount, stoppedAt)
	if err != nil {
		return fmt.Errorf("finish recording: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("recording %d not found", id)
	}
	return nil
}

// GetRecording retrieves a recording by ID, returns nil if not found.
func (r *RecordingRepository) GetRecording(ctx context.Context, id int64) (*database.Recording, error) {
	query := `
		SELECT id, session_id, source, status, fps, frame_count, started_at, stopped_at, metadata
		FROM recordings
		WHERE id = $1
	`

	rec, err := scanRecording(r.pool.QueryRow(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	return rec, nil
}

// LatestRecording returns the most recently started recording, nil if none
// exist.
func (r *RecordingRepository) LatestRecording(ctx context.Context) (*database.Recording, error) {
	query := `
		SELECT id, session_id, source, status, fps, frame_count, started_at, stopped_at, metadata
		FROM recordings
		ORDER BY started_at DESC
		LIMIT 1
	`

	rec, err := scanRecording(r.pool.QueryRow(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest recording: %w", err)
	}
	return rec, nil
}

// CountRecordings returns the total number of recordings.
func (r *RecordingRepository) CountRecordings(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM recordings").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recordings: %w", err)
	}
	return count, nil
}

// scanRecording scans a single recording row.
func scanRecording(row *sql.Row) (*database.Recording, error) {
	var (
		rec       database.Recording
		stoppedAt sql.NullTime
		metadata  []byte
	)
	err := row.Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.Source,
		&rec.Status,
		&rec.FPS,
		&rec.FrameCount,
		&rec.StartedAt,
		&stoppedAt,
		&metadata,
	)
	if err != nil {
		return nil, err
	}
	if stoppedAt.Valid {
		rec.StoppedAt = &stoppedAt.Time
	}
	if rec.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return nil, fmt.Errorf("recording %d metadata: %w", rec.ID, err)
	}
	return &rec, nil
}

var _ database.RecordingStore = (*RecordingRepository)(nil)
