package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/database"
)

// AttendanceRepository is the PostgreSQL attendance sink. One row per person
// per day is enforced by the UNIQUE(person_name, attendance_date) constraint;
// RecordAttendance folds repeated recordings into that row.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// RecordAttendance upserts a person's attendance for the record's date. The
// first recording of a person+date inserts detection_count=1; conflicts
// increment the counter, accumulate confidence_sum and refresh last_seen and
// last_confidence. Returns the row ID either way.
func (r *AttendanceRepository) RecordAttendance(ctx context.Context, rec *database.AttendanceRecord) (int64, error) {
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

	deviceInfo, err := marshalMetadata(rec.DeviceInfo)
	if err != nil {
		return 0, fmt.Errorf("marshal device info: %w", err)
	}

	query := `
		INSERT INTO attendance_records
			(person_name, attendance_date, first_seen, last_seen,
			 detection_count, confidence_sum, last_confidence,
			 session_id, location, device_info)
		VALUES ($1, $2, $3, $4, 1, $5, $5, $6, $7, $8)
		ON CONFLICT (person_name, attendance_date) DO UPDATE SET
			detection_count = attendance_records.detection_count + 1,
			confidence_sum = attendance_records.confidence_sum + EXCLUDED.confidence_sum,
			last_seen = EXCLUDED.last_seen,
			last_confidence = EXCLUDED.last_confidence
		RETURNING id
	`

	var id int64
	err = r.pool.QueryRow(ctx, query,
		rec.PersonName,
		date,
		firstSeen,
		lastSeen,
		rec.LastConfidence,
		rec.SessionID,
		rec.Location,
		deviceInfo,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("record attendance: %w", err)
	}

	return id, nil
}

// AttendanceSummary returns per-person totals for one date, ordered by
// detection count descending.
func (r *AttendanceRepository) AttendanceSummary(ctx context.Context, date string) ([]database.AttendanceSummaryRow, error) {
	query := `
		SELECT person_name, detection_count,
		       CASE WHEN detection_count > 0
		            THEN confidence_sum / detection_count
		            ELSE 0 END AS average_confidence
		FROM attendance_records
		WHERE attendance_date = $1
		ORDER BY detection_count DESC, person_name
	`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("query attendance summary: %w", err)
	}
	defer rows.Close()

	var summary []database.AttendanceSummaryRow
	for rows.Next() {
		var row database.AttendanceSummaryRow
		if err := rows.Scan(&row.PersonName, &row.TotalDetections, &row.AverageConfidence); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summary = append(summary, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}

	return summary, nil
}

// ListAttendance returns raw records, newest first. Empty date means all
// dates.
func (r *AttendanceRepository) ListAttendance(
	ctx context.Context, date string, limit int,
) ([]database.AttendanceRecord, error) {
	if limit <= 0 {
		limit = constants.DefaultRecordsLimit
	}

	query := `
		SELECT id, person_name, attendance_date, first_seen, last_seen,
		       detection_count, confidence_sum, last_confidence,
		       COALESCE(session_id, ''), COALESCE(location, ''), device_info, created_at
		FROM attendance_records
	`
	args := []any{}
	if date != "" {
		query += " WHERE attendance_date = $1"
		args = append(args, date)
	}
	query += fmt.Sprintf(" ORDER BY last_seen DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance records: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		var (
			rec        database.AttendanceRecord
			day        time.Time
			deviceInfo []byte
		)
		err := rows.Scan(
			&rec.ID,
			&rec.PersonName,
			&day,
			&rec.FirstSeen,
			&rec.LastSeen,
			&rec.DetectionCount,
			&rec.ConfidenceSum,
			&rec.LastConfidence,
			&rec.SessionID,
			&rec.Location,
			&deviceInfo,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		rec.AttendanceDate = day.Format("2006-01-02")
		if rec.DeviceInfo, err = unmarshalMetadata(deviceInfo); err != nil {
			return nil, fmt.Errorf("attendance record %d device info: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}

	return records, nil
}

// CountAttendance returns the total number of attendance rows.
func (r *AttendanceRepository) CountAttendance(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM attendance_records").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count attendance records: %w", err)
	}
	return count, nil
}

var _ database.AttendanceStore = (*AttendanceRepository)(nil)
