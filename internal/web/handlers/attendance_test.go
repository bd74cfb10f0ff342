package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/database/mock"
)

func TestAttendanceRecord_Success(t *testing.T) {
	backend := mock.New()
	handler := NewAttendanceHandler(backend, "Lobby", NewStatsHandler(backend))

	body := strings.NewReader(`{"person_name": "alice", "confidence": 0.92}`)
	recorder := httptest.NewRecorder()
	handler.Record(recorder, httptest.NewRequest("POST", "/api/v1/attendance/record", body))

	assertStatusCode(t, recorder, http.StatusOK)

	var resp AttendanceRecordResponse
	parseJSONResponse(t, recorder, &resp)

	if !resp.Success {
		t.Error("expected success")
	}
	if resp.AttendanceID == 0 {
		t.Error("expected an attendance ID")
	}
	if resp.PersonName != "alice" {
		t.Errorf("expected alice, got %s", resp.PersonName)
	}

	rows, err := backend.ListAttendance(context.Background(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Location != "Lobby" {
		t.Errorf("expected default location Lobby, got %s", rows[0].Location)
	}
	if rows[0].DeviceInfo["detection_method"] != "manual" {
		t.Errorf("expected manual detection method, got %v", rows[0].DeviceInfo)
	}
}

func TestAttendanceRecord_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"missing name", `{"confidence": 0.9}`},
		{"blank name", `{"person_name": "   ", "confidence": 0.9}`},
		{"unknown person", `{"person_name": "Unknown", "confidence": 0.9}`},
		{"negative confidence", `{"person_name": "alice", "confidence": -0.1}`},
		{"confidence above one", `{"person_name": "alice", "confidence": 1.5}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			backend := mock.New()
			handler := NewAttendanceHandler(backend, "", nil)

			recorder := httptest.NewRecorder()
			handler.Record(recorder, httptest.NewRequest("POST", "/api/v1/attendance/record", strings.NewReader(tc.body)))

			assertStatusCode(t, recorder, http.StatusBadRequest)
		})
	}
}

func TestAttendanceRecord_TrimsName(t *testing.T) {
	backend := mock.New()
	handler := NewAttendanceHandler(backend, "", nil)

	body := strings.NewReader(`{"person_name": "  alice  ", "confidence": 0.8}`)
	recorder := httptest.NewRecorder()
	handler.Record(recorder, httptest.NewRequest("POST", "/api/v1/attendance/record", body))

	assertStatusCode(t, recorder, http.StatusOK)

	var resp AttendanceRecordResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.PersonName != "alice" {
		t.Errorf("expected trimmed name, got '%s'", resp.PersonName)
	}
}

func TestAttendanceSummary_DefaultsToToday(t *testing.T) {
	backend := mock.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := backend.RecordAttendance(ctx, &database.AttendanceRecord{
			PersonName:     "alice",
			LastConfidence: 0.9,
		}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := backend.RecordAttendance(ctx, &database.AttendanceRecord{
		PersonName:     "bob",
		LastConfidence: 0.7,
	}); err != nil {
		t.Fatal(err)
	}

	handler := NewAttendanceHandler(backend, "", nil)

	recorder := httptest.NewRecorder()
	handler.Summary(recorder, httptest.NewRequest("GET", "/api/v1/attendance/summary", nil))

	assertStatusCode(t, recorder, http.StatusOK)

	var resp AttendanceSummaryResponse
	parseJSONResponse(t, recorder, &resp)

	today := time.Now().Format("2006-01-02")
	if resp.Date != today {
		t.Errorf("expected date %s, got %s", today, resp.Date)
	}
	if resp.TotalPeople != 2 {
		t.Fatalf("expected 2 people, got %d", resp.TotalPeople)
	}
	// Ordered by detection count descending.
	if resp.Summary[0].PersonName != "alice" || resp.Summary[0].TotalDetections != 3 {
		t.Errorf("expected alice with 3 detections first, got %+v", resp.Summary[0])
	}
}

func TestAttendanceSummary_InvalidDate(t *testing.T) {
	handler := NewAttendanceHandler(mock.New(), "", nil)

	recorder := httptest.NewRecorder()
	handler.Summary(recorder, httptest.NewRequest("GET", "/api/v1/attendance/summary?date=tomorrow", nil))

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestAttendanceRecords_ListsWithLimit(t *testing.T) {
	backend := mock.New()
	ctx := context.Background()

	for _, name := range []string{"alice", "bob", "carol"} {
		if _, err := backend.RecordAttendance(ctx, &database.AttendanceRecord{
			PersonName:     name,
			LastConfidence: 0.8,
		}); err != nil {
			t.Fatal(err)
		}
	}

	handler := NewAttendanceHandler(backend, "", nil)

	recorder := httptest.NewRecorder()
	handler.Records(recorder, httptest.NewRequest("GET", "/api/v1/attendance/records?limit=2", nil))

	assertStatusCode(t, recorder, http.StatusOK)

	var resp AttendanceRecordsResponse
	parseJSONResponse(t, recorder, &resp)

	if resp.Count != 2 {
		t.Errorf("expected 2 records, got %d", resp.Count)
	}
	if len(resp.Records) != 2 {
		t.Fatalf("expected 2 records in body, got %d", len(resp.Records))
	}
	if resp.Records[0].AverageConfidence == 0 {
		t.Error("expected average confidence to be filled in")
	}
}

func TestAttendanceRecords_InvalidLimit(t *testing.T) {
	handler := NewAttendanceHandler(mock.New(), "", nil)

	recorder := httptest.NewRecorder()
	handler.Records(recorder, httptest.NewRequest("GET", "/api/v1/attendance/records?limit=abc", nil))

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestAttendanceRecord_StoreFailure(t *testing.T) {
	backend := mock.New()
	backend.RecordAttendanceError = errors.New("connection refused")
	handler := NewAttendanceHandler(backend, "", nil)

	body := strings.NewReader(`{"person_name": "alice", "confidence": 0.9}`)
	recorder := httptest.NewRecorder()
	handler.Record(recorder, httptest.NewRequest("POST", "/api/v1/attendance/record", body))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
}
