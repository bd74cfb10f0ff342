package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
)

// FrameRepository provides PostgreSQL-backed storage for extracted frames.
type FrameRepository struct {
	pool *Pool
}

// NewFrameRepository creates a new PostgreSQL frame repository.
func NewFrameRepository(pool *Pool) *FrameRepository {
	return &FrameRepository{pool: pool}
}

// SaveFrame registers an extracted frame and returns its ID.
func (r *FrameRepository) SaveFrame(ctx context.Context, frame *database.Frame) (int64, error) {
	query := `
		INSERT INTO frames (recording_id, frame_number, frame_path, frame_hash, captured_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	capturedAt := frame.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}

	var id int64
	err := r.pool.QueryRow(ctx, query,
		frame.RecordingID,
		frame.FrameNumber,
		frame.FramePath,
		frame.FrameHash,
		capturedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert frame: %w", err)
	}

	return id, nil
}

// ListFrames returns frames of a recording in frame order.
func (r *FrameRepository) ListFrames(
	ctx context.Context, recordingID int64, unprocessedOnly bool,
) ([]database.Frame, error) {
	query := `
		SELECT id, recording_id, frame_number, frame_path, frame_hash, captured_at, processed
		FROM frames
		WHERE recording_id = $1
	`
	if unprocessedOnly {
		query += " AND NOT processed"
	}
	query += " ORDER BY frame_number"

	rows, err := r.pool.Query(ctx, query, recordingID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var frames []database.Frame
	for rows.Next() {
		var f database.Frame
		err := rows.Scan(
			&f.ID,
			&f.RecordingID,
			&f.FrameNumber,
			&f.FramePath,
			&f.FrameHash,
			&f.CapturedAt,
			&f.Processed,
		)
		if err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}

	return frames, nil
}

// MarkFrameProcessed flags a frame as processed.
func (r *FrameRepository) MarkFrameProcessed(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, "UPDATE frames SET processed = TRUE WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("mark frame processed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("frame %d not found", id)
	}
	return nil
}

// CountFrames returns the total number of frames registered.
func (r *FrameRepository) CountFrames(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM frames").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count frames: %w", err)
	}
	return count, nil
}

var _ database.FrameStore = (*FrameRepository)(nil)
