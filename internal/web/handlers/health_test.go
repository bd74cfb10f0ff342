package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attend/internal/recognizer"
)

func TestHealth_ReturnsHealthy(t *testing.T) {
	handler := NewHealthHandler(newTestRecognizer(t))

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	recorder := httptest.NewRecorder()
	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var resp HealthResponse
	parseJSONResponse(t, recorder, &resp)

	if resp.Status != "healthy" {
		t.Errorf("expected status 'healthy', got '%s'", resp.Status)
	}
	if !resp.FaceRecognitionLoaded {
		t.Error("expected face recognition to be loaded")
	}
	if resp.Timestamp.IsZero() {
		t.Error("expected a timestamp")
	}
}

func TestHealth_EmptyIndex(t *testing.T) {
	handler := NewHealthHandler(recognizer.New(nil, 0.6, 5))

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	recorder := httptest.NewRecorder()
	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp HealthResponse
	parseJSONResponse(t, recorder, &resp)

	if resp.FaceRecognitionLoaded {
		t.Error("expected face recognition to be reported as not loaded")
	}
}
