package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/face-attend/internal/recognizer"
)

// HealthHandler reports service liveness and whether the face index is ready.
type HealthHandler struct {
	recognizer *recognizer.Recognizer
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(rec *recognizer.Recognizer) *HealthHandler {
	return &HealthHandler{recognizer: rec}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status                string    `json:"status"`
	Timestamp             time.Time `json:"timestamp"`
	FaceRecognitionLoaded bool      `json:"face_recognition_loaded"`
}

// Get handles the health check endpoint.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:                "healthy",
		Timestamp:             time.Now(),
		FaceRecognitionLoaded: h.recognizer != nil && h.recognizer.Loaded(),
	})
}
