package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/database"
)

// DetectionRepository logs per-frame recognition results.
type DetectionRepository struct {
	pool *Pool
}

// NewDetectionRepository creates a new PostgreSQL detection repository.
func NewDetectionRepository(pool *Pool) *DetectionRepository {
	return &DetectionRepository{pool: pool}
}

// SaveDetection stores one detection and returns its ID.
func (r *DetectionRepository) SaveDetection(ctx context.Context, det *database.FaceDetection) (int64, error) {
	bbox, err := json.Marshal(det.BoundingBox)
	if err != nil {
		return 0, fmt.Errorf("marshal bounding box: %w", err)
	}

	var frameID sql.NullInt64
	if det.FrameID != nil {
		frameID = sql.NullInt64{Int64: *det.FrameID, Valid: true}
	}

	query := `
		INSERT INTO face_detections (frame_id, person_name, confidence, bounding_box, track_key, stable)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err = r.pool.QueryRow(ctx, query,
		frameID,
		det.PersonName,
		det.Confidence,
		bbox,
		det.TrackKey,
		det.Stable,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert detection: %w", err)
	}

	return id, nil
}

// CountDetections returns the total number of detections logged.
func (r *DetectionRepository) CountDetections(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM face_detections").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count detections: %w", err)
	}
	return count, nil
}

var _ database.DetectionWriter = (*DetectionRepository)(nil)
