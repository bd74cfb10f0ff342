package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/database"
)

// AttendanceHandler serves manual attendance recording and reporting.
type AttendanceHandler struct {
	store           database.AttendanceStore
	defaultLocation string
	stats           *StatsHandler
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(store database.AttendanceStore, defaultLocation string, stats *StatsHandler) *AttendanceHandler {
	return &AttendanceHandler{
		store:           store,
		defaultLocation: defaultLocation,
		stats:           stats,
	}
}

// AttendanceRecordRequest represents a manual attendance recording.
type AttendanceRecordRequest struct {
	PersonName string         `json:"person_name"`
	Confidence float64        `json:"confidence"`
	Location   string         `json:"location,omitempty"`
	DeviceInfo map[string]any `json:"device_info,omitempty"`
}

// AttendanceRecordResponse represents the result of recording attendance.
type AttendanceRecordResponse struct {
	Success      bool    `json:"success"`
	AttendanceID int64   `json:"attendance_id"`
	PersonName   string  `json:"person_name"`
	Confidence   float64 `json:"confidence"`
}

// Record handles manually recording a person's attendance for today.
func (h *AttendanceHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req AttendanceRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	name := strings.TrimSpace(req.PersonName)
	if name == "" {
		respondError(w, http.StatusBadRequest, "person_name is required")
		return
	}
	if name == constants.UnknownPerson {
		respondError(w, http.StatusBadRequest, "cannot record attendance for unidentified people")
		return
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		respondError(w, http.StatusBadRequest, "confidence must be between 0 and 1")
		return
	}

	location := req.Location
	if location == "" {
		location = h.defaultLocation
	}
	deviceInfo := req.DeviceInfo
	if deviceInfo == nil {
		deviceInfo = map[string]any{"detection_method": "manual"}
	}

	id, err := h.store.RecordAttendance(r.Context(), &database.AttendanceRecord{
		PersonName:     name,
		LastConfidence: req.Confidence,
		Location:       location,
		DeviceInfo:     deviceInfo,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to record attendance: %v", err))
		return
	}

	if h.stats != nil {
		h.stats.InvalidateCache()
	}

	respondJSON(w, http.StatusOK, AttendanceRecordResponse{
		Success:      true,
		AttendanceID: id,
		PersonName:   name,
		Confidence:   req.Confidence,
	})
}

// AttendanceSummaryEntry is one person's totals for a date.
type AttendanceSummaryEntry struct {
	PersonName        string  `json:"person_name"`
	TotalDetections   int     `json:"total_detections"`
	AverageConfidence float64 `json:"average_confidence"`
}

// AttendanceSummaryResponse represents per-person attendance totals for a date.
type AttendanceSummaryResponse struct {
	Date        string                   `json:"date"`
	TotalPeople int                      `json:"total_people"`
	Summary     []AttendanceSummaryEntry `json:"summary"`
}

// Summary handles the per-person attendance summary for a date (today by default).
func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	rows, err := h.store.AttendanceSummary(r.Context(), date)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load summary: %v", err))
		return
	}

	summary := make([]AttendanceSummaryEntry, len(rows))
	for i, row := range rows {
		summary[i] = AttendanceSummaryEntry{
			PersonName:        row.PersonName,
			TotalDetections:   row.TotalDetections,
			AverageConfidence: row.AverageConfidence,
		}
	}

	respondJSON(w, http.StatusOK, AttendanceSummaryResponse{
		Date:        date,
		TotalPeople: len(rows),
		Summary:     summary,
	})
}

// AttendanceRecordJSON is one attendance row in API shape.
type AttendanceRecordJSON struct {
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

// AttendanceRecordsResponse represents a list of attendance rows.
type AttendanceRecordsResponse struct {
	Count   int                    `json:"count"`
	Records []AttendanceRecordJSON `json:"records"`
}

// Records handles listing raw attendance rows, newest first. An optional
// date narrows to one day; limit caps the result.
func (h *AttendanceHandler) Records(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	rows, err := h.store.ListAttendance(r.Context(), date, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list attendance: %v", err))
		return
	}

	records := make([]AttendanceRecordJSON, len(rows))
	for i, row := range rows {
		records[i] = AttendanceRecordJSON{
			ID:                row.ID,
			PersonName:        row.PersonName,
			AttendanceDate:    row.AttendanceDate,
			FirstSeen:         row.FirstSeen,
			LastSeen:          row.LastSeen,
			DetectionCount:    row.DetectionCount,
			AverageConfidence: row.AverageConfidence(),
			LastConfidence:    row.LastConfidence,
			SessionID:         row.SessionID,
			Location:          row.Location,
			DeviceInfo:        row.DeviceInfo,
		}
	}

	respondJSON(w, http.StatusOK, AttendanceRecordsResponse{
		Count:   len(records),
		Records: records,
	})
}
