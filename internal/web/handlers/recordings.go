package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/metrics"
	"github.com/kozaktomas/face-attend/internal/processor"
)

// RecordingsHandler controls the camera capture lifecycle.
type RecordingsHandler struct {
	recorder      *processor.Recorder
	defaultSource string
	defaultFPS    int
	metrics       *metrics.Metrics
	stats         *StatsHandler
}

// NewRecordingsHandler creates a new recordings handler. The default source
// and FPS come from the camera configuration and apply when a start request
// leaves them out.
func NewRecordingsHandler(rec *processor.Recorder, defaultSource string, defaultFPS int, m *metrics.Metrics, stats *StatsHandler) *RecordingsHandler {
	return &RecordingsHandler{
		recorder:      rec,
		defaultSource: defaultSource,
		defaultFPS:    defaultFPS,
		metrics:       m,
		stats:         stats,
	}
}

// RecordingStartRequest represents a request to start a recording.
type RecordingStartRequest struct {
	// Source is a camera stream URL or a directory of frames. Falls back to
	// the configured camera source when empty.
	Source string `json:"source,omitempty"`
	// CameraIndex identifies the physical device on the capture host. It is
	// stored with the recording for bookkeeping; source selection is done
	// through Source.
	CameraIndex *int `json:"camera_index,omitempty"`
	// Duration of the capture in seconds.
	Duration float64 `json:"duration,omitempty"`
	FPS      int     `json:"fps,omitempty"`
}

// RecordingStartResponse represents the result of starting a recording.
type RecordingStartResponse struct {
	Success         bool    `json:"success"`
	Message         string  `json:"message"`
	RecordingID     int64   `json:"recording_id"`
	SessionID       string  `json:"session_id"`
	Source          string  `json:"source"`
	DurationSeconds float64 `json:"duration_seconds"`
	FPS             int     `json:"fps"`
}

// RecordingStopResponse represents the result of stopping a recording.
type RecordingStopResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	RecordingID    int64  `json:"recording_id"`
	SessionID      string `json:"session_id"`
	FramesCaptured int    `json:"frames_captured"`
}

// RecordingStatusResponse represents the current recorder state.
type RecordingStatusResponse struct {
	IsRecording    bool      `json:"is_recording"`
	RecordingID    int64     `json:"recording_id,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	FramesCaptured int       `json:"frames_captured"`
	Timestamp      time.Time `json:"timestamp"`
}

// Start handles starting a new recording.
func (h *RecordingsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req RecordingStartRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	source := req.Source
	if source == "" {
		source = h.defaultSource
	}
	if source == "" {
		respondError(w, http.StatusBadRequest, "source is required: no camera source configured")
		return
	}

	fps := req.FPS
	if fps <= 0 {
		fps = h.defaultFPS
	}

	opts := processor.RecordOptions{
		Source:   source,
		Duration: time.Duration(req.Duration * float64(time.Second)),
		FPS:      fps,
	}
	if req.CameraIndex != nil {
		opts.Metadata = map[string]any{"camera_index": *req.CameraIndex}
	}
	if h.metrics != nil {
		opts.OnFrame = func(captured int) {
			h.metrics.FramesCaptured.Add(1)
		}
	}

	rec, err := h.recorder.Start(r.Context(), opts)
	if err != nil {
		if errors.Is(err, processor.ErrAlreadyRecording) {
			respondError(w, http.StatusConflict, "a recording is already in progress")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.metrics != nil {
		h.metrics.SetRecording(true)
		// Clear the gauge when the capture ends on its own (duration
		// reached or source exhausted), not only through Stop.
		go func(done <-chan struct{}) {
			<-done
			h.metrics.SetRecording(false)
		}(h.recorder.Wait())
	}

	duration := req.Duration
	if duration <= 0 {
		duration = constants.DefaultRecordingDuration.Seconds()
	}

	respondJSON(w, http.StatusOK, RecordingStartResponse{
		Success:         true,
		Message:         "recording started",
		RecordingID:     rec.ID,
		SessionID:       rec.SessionID,
		Source:          rec.Source,
		DurationSeconds: duration,
		FPS:             rec.FPS,
	})
}

// Stop handles stopping the active recording.
func (h *RecordingsHandler) Stop(w http.ResponseWriter, r *http.Request) {
	status, err := h.recorder.Stop()
	if err != nil {
		if errors.Is(err, processor.ErrNotRecording) {
			respondError(w, http.StatusConflict, "no recording in progress")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.stats != nil {
		h.stats.InvalidateCache()
	}

	respondJSON(w, http.StatusOK, RecordingStopResponse{
		Success:        true,
		Message:        "recording stopped",
		RecordingID:    status.RecordingID,
		SessionID:      status.SessionID,
		FramesCaptured: status.FramesCaptured,
	})
}

// Status handles the recording status endpoint.
func (h *RecordingsHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.recorder.Status()

	respondJSON(w, http.StatusOK, RecordingStatusResponse{
		IsRecording:    status.IsRecording,
		RecordingID:    status.RecordingID,
		SessionID:      status.SessionID,
		FramesCaptured: status.FramesCaptured,
		Timestamp:      time.Now(),
	})
}
