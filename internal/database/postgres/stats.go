package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/database"
)

// StatsRepository aggregates store-wide processing statistics.
type StatsRepository struct {
	pool *Pool
}

// NewStatsRepository creates a new PostgreSQL stats repository.
func NewStatsRepository(pool *Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// ProcessingStats returns row counts per table, distinct people and the mean
// detection confidence. Collected in one round trip; the counts are small
// enough that subselects beat six queries.
func (r *StatsRepository) ProcessingStats(ctx context.Context) (*database.Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM faces),
			(SELECT COUNT(*) FROM recordings),
			(SELECT COUNT(*) FROM frames),
			(SELECT COUNT(*) FROM face_detections),
			(SELECT COUNT(*) FROM attendance_records),
			(SELECT COUNT(DISTINCT person_name) FROM faces),
			(SELECT COALESCE(AVG(confidence), 0) FROM face_detections)
	`

	var stats database.Stats
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalFaces,
		&stats.TotalRecordings,
		&stats.TotalFrames,
		&stats.TotalDetections,
		&stats.TotalAttendance,
		&stats.UniquePeople,
		&stats.AverageConfidence,
	)
	if err != nil {
		return nil, fmt.Errorf("query processing stats: %w", err)
	}

	return &stats, nil
}

var _ database.StatsReader = (*StatsRepository)(nil)
