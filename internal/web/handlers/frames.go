package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/metrics"
	"github.com/kozaktomas/face-attend/internal/processor"
	"github.com/kozaktomas/face-attend/internal/recognizer"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// FramesHandler covers frame extraction and recognition endpoints.
type FramesHandler struct {
	proc       *processor.Processor
	extractor  *processor.Extractor
	batch      *processor.Batch
	recognizer *recognizer.Recognizer
	recordings database.RecordingStore
	jobManager *JobManager
	metrics    *metrics.Metrics
	stats      *StatsHandler
}

// NewFramesHandler creates a new frames handler.
func NewFramesHandler(
	proc *processor.Processor,
	extractor *processor.Extractor,
	batch *processor.Batch,
	rec *recognizer.Recognizer,
	recordings database.RecordingStore,
	jm *JobManager,
	m *metrics.Metrics,
	stats *StatsHandler,
) *FramesHandler {
	return &FramesHandler{
		proc:       proc,
		extractor:  extractor,
		batch:      batch,
		recognizer: rec,
		recordings: recordings,
		jobManager: jm,
		metrics:    m,
		stats:      stats,
	}
}

// FrameExtractRequest represents a request to register captured frames.
type FrameExtractRequest struct {
	// RecordingID of the recording to extract; the most recent one when 0.
	RecordingID int64 `json:"recording_id,omitempty"`
	// FrameInterval registers every Nth captured frame.
	FrameInterval int `json:"frame_interval,omitempty"`
}

// FrameExtractResponse represents the result of a frame extraction.
type FrameExtractResponse struct {
	Success       bool   `json:"success"`
	RecordingID   int64  `json:"recording_id"`
	SessionID     string `json:"session_id"`
	FrameInterval int    `json:"frame_interval"`
	FramesSeen    int    `json:"frames_seen"`
	FramesSaved   int    `json:"frames_saved"`
}

// Extract handles registering captured frames of a recording for processing.
func (h *FramesHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req FrameExtractRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	result, err := h.extractor.Extract(r.Context(), req.RecordingID, req.FrameInterval)
	if err != nil {
		if errors.Is(err, processor.ErrRecordingNotFound) {
			respondError(w, http.StatusNotFound, "recording not found")
			return
		}
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to extract frames: %v", err))
		return
	}

	if h.stats != nil {
		h.stats.InvalidateCache()
	}

	respondJSON(w, http.StatusOK, FrameExtractResponse{
		Success:       true,
		RecordingID:   result.RecordingID,
		SessionID:     result.SessionID,
		FrameInterval: result.Interval,
		FramesSeen:    result.FramesSeen,
		FramesSaved:   result.FramesSaved,
	})
}

// FrameProcessRequest represents a JSON request to process a single frame.
// Multipart requests carry the image in a frame_file field instead.
type FrameProcessRequest struct {
	FramePath   string `json:"frame_path,omitempty"`
	FrameBase64 string `json:"frame_base64,omitempty"`
}

// DetectionResponse is one recognized face in a processed frame.
type DetectionResponse struct {
	Name       string               `json:"name"`
	Confidence float64              `json:"confidence"`
	BBox       database.BoundingBox `json:"bbox"`
	TrackKey   string               `json:"track_key"`
	Stable     bool                 `json:"stable"`
}

// AttendanceEventResponse is one attendance row written during processing.
type AttendanceEventResponse struct {
	AttendanceID int64   `json:"attendance_id"`
	PersonName   string  `json:"person_name"`
	Confidence   float64 `json:"confidence"`
}

// FrameProcessResponse represents the result of processing a single frame.
type FrameProcessResponse struct {
	Success              bool                      `json:"success"`
	Detections           []DetectionResponse       `json:"detections"`
	FacesFound           int                       `json:"faces_found"`
	Attendance           []AttendanceEventResponse `json:"attendance"`
	AnnotatedFrameBase64 string                    `json:"annotated_frame_base64,omitempty"`
	Timestamp            time.Time                 `json:"timestamp"`
}

// Process handles running recognition over a single uploaded frame.
func (h *FramesHandler) Process(w http.ResponseWriter, r *http.Request) {
	if !h.recognizer.Loaded() {
		respondError(w, http.StatusBadRequest, "face recognition index not loaded")
		return
	}

	data, err := readFrameData(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	img, err := vision.DecodeImage(data)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to decode image")
		return
	}

	result, err := h.proc.ProcessImage(r.Context(), img, processor.FrameMeta{})
	if err != nil {
		if h.metrics != nil {
			h.metrics.ProcessErrors.Add(1)
		}
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to process frame: %v", err))
		return
	}

	if h.metrics != nil {
		h.metrics.FramesProcessed.Add(1)
		h.metrics.FacesDetected.Add(uint64(result.FacesFound))
		h.metrics.AttendanceRecorded.Add(uint64(len(result.Attendance)))
	}
	if len(result.Attendance) > 0 && h.stats != nil {
		h.stats.InvalidateCache()
	}

	resp := FrameProcessResponse{
		Success:    true,
		Detections: make([]DetectionResponse, len(result.Detections)),
		FacesFound: result.FacesFound,
		Attendance: make([]AttendanceEventResponse, len(result.Attendance)),
		Timestamp:  result.ProcessedAt,
	}
	for i, d := range result.Detections {
		resp.Detections[i] = DetectionResponse{
			Name:       d.Name,
			Confidence: d.Confidence,
			BBox:       d.Box,
			TrackKey:   d.TrackKey,
			Stable:     d.Stable,
		}
	}
	for i, a := range result.Attendance {
		resp.Attendance[i] = AttendanceEventResponse{
			AttendanceID: a.AttendanceID,
			PersonName:   a.PersonName,
			Confidence:   a.Confidence,
		}
	}

	if len(result.Detections) > 0 {
		boxes := make([]vision.LabeledBox, len(result.Detections))
		for i, d := range result.Detections {
			boxes[i] = vision.LabeledBox{
				Box:        image.Rect(d.Box.X, d.Box.Y, d.Box.X+d.Box.Width, d.Box.Y+d.Box.Height),
				Label:      d.Name,
				Confidence: d.Confidence,
			}
		}
		// Annotation failures only cost the preview image.
		if annotated, err := vision.Annotate(img, boxes, h.recognizer.Threshold()); err == nil {
			resp.AnnotatedFrameBase64 = base64.StdEncoding.EncodeToString(annotated)
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// readFrameData extracts raw image bytes from a process request: a multipart
// frame_file field, or a JSON body with frame_path or frame_base64.
func readFrameData(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
			return nil, errors.New("failed to parse multipart form")
		}
		file, _, err := r.FormFile("frame_file")
		if err != nil {
			return nil, errors.New("frame_file is required")
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, errors.New("failed to read frame_file")
		}
		return data, nil
	}

	var req FrameProcessRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		return nil, errors.New(errInvalidRequestBody)
	}

	switch {
	case req.FrameBase64 != "":
		encoded := req.FrameBase64
		// Tolerate data URLs ("data:image/jpeg;base64,...").
		if _, rest, ok := strings.Cut(encoded, ","); ok {
			encoded = rest
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, errors.New("invalid base64 frame data")
		}
		return data, nil
	case req.FramePath != "":
		data, err := os.ReadFile(req.FramePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read frame: %v", err)
		}
		return data, nil
	}

	return nil, errors.New("frame_file, frame_path or frame_base64 is required")
}

// ProcessAllRequest configures an async batch recognition run.
type ProcessAllRequest struct {
	// RecordingID of the recording to process; the most recent one when 0.
	RecordingID int64 `json:"recording_id,omitempty"`
	// FrameInterval, when positive, registers every Nth captured frame
	// before processing, so a raw recording can be handled in one call.
	FrameInterval int `json:"frame_interval,omitempty"`
	Workers       int `json:"workers,omitempty"`
}

// ProcessAllResult is the final payload of a batch recognition job.
type ProcessAllResult struct {
	SessionID          string   `json:"session_id"`
	RecordingID        int64    `json:"recording_id"`
	TotalFrames        int      `json:"total_frames"`
	ProcessedFrames    int      `json:"processed_frames"`
	FacesDetected      int      `json:"faces_detected"`
	AttendanceRecorded int      `json:"attendance_recorded"`
	Errors             []string `json:"errors,omitempty"`
}

// ProcessAll handles starting an async batch run over the frames of a recording.
func (h *FramesHandler) ProcessAll(w http.ResponseWriter, r *http.Request) {
	if !h.recognizer.Loaded() {
		respondError(w, http.StatusBadRequest, "face recognition index not loaded")
		return
	}

	var req ProcessAllRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if req.RecordingID != 0 {
		rec, err := h.recordings.GetRecording(r.Context(), req.RecordingID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to look up recording")
			return
		}
		if rec == nil {
			respondError(w, http.StatusNotFound, "recording not found")
			return
		}
	}

	if active := h.jobManager.ActiveJob(); active != nil {
		respondError(w, http.StatusConflict, fmt.Sprintf("job %s is already running", active.ID))
		return
	}

	job := h.jobManager.CreateJob(uuid.New().String(), "process_frames")

	go h.runProcessAllJob(job, req)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(JobStatusPending),
	})
}

func (h *FramesHandler) runProcessAllJob(job *Job, req ProcessAllRequest) {
	ctx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel
	defer cancel()

	job.mu.Lock()
	job.Status = JobStatusRunning
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "started", Message: "Frame processing started"})

	if req.FrameInterval > 0 {
		extracted, err := h.extractor.Extract(ctx, req.RecordingID, req.FrameInterval)
		if err != nil {
			h.failJob(job, fmt.Sprintf("frame extraction failed: %v", err))
			return
		}
		job.SendEvent(JobEvent{Type: "frames_extracted", Data: map[string]any{
			"recording_id": extracted.RecordingID,
			"frames_saved": extracted.FramesSaved,
		}})
		if req.RecordingID == 0 {
			req.RecordingID = extracted.RecordingID
		}
	}

	result, err := h.batch.Process(ctx, processor.BatchOptions{
		RecordingID: req.RecordingID,
		Workers:     req.Workers,
		OnProgress: func(info processor.ProgressInfo) {
			job.mu.Lock()
			job.ProcessedFrames = info.Current
			job.TotalFrames = info.Total
			if info.Total > 0 {
				job.Progress = int(float64(info.Current) / float64(info.Total) * 100)
			}
			job.mu.Unlock()
			job.SendEvent(JobEvent{
				Type: "progress",
				Data: map[string]any{
					"phase":            info.Phase,
					"current":          info.Current,
					"total":            info.Total,
					"frame_path":       info.FramePath,
					"processed_frames": info.Current,
					"total_frames":     info.Total,
				},
			})
		},
	})

	if err != nil {
		if ctx.Err() != nil {
			job.mu.Lock()
			job.Status = JobStatusCancelled
			job.mu.Unlock()
			job.SendEvent(JobEvent{Type: "cancelled", Message: "Job was cancelled"})
			return
		}
		h.failJob(job, fmt.Sprintf("frame processing failed: %v", err))
		return
	}

	if h.metrics != nil {
		h.metrics.FramesProcessed.Add(uint64(result.ProcessedFrames))
		h.metrics.FacesDetected.Add(uint64(result.FacesDetected))
		h.metrics.AttendanceRecorded.Add(uint64(result.AttendanceRecorded))
	}
	if h.stats != nil {
		h.stats.InvalidateCache()
	}

	errs := make([]string, len(result.Errors))
	for i, e := range result.Errors {
		errs[i] = e.Error()
	}

	jobResult := &ProcessAllResult{
		SessionID:          result.SessionID,
		RecordingID:        result.RecordingID,
		TotalFrames:        result.TotalFrames,
		ProcessedFrames:    result.ProcessedFrames,
		FacesDetected:      result.FacesDetected,
		AttendanceRecorded: result.AttendanceRecorded,
		Errors:             errs,
	}

	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	job.ProcessedFrames = result.ProcessedFrames
	job.TotalFrames = result.TotalFrames
	job.Progress = 100
	job.Result = jobResult
	job.mu.Unlock()

	job.SendEvent(JobEvent{Type: "completed", Data: jobResult})
}

func (h *FramesHandler) failJob(job *Job, message string) {
	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Error = message
	job.CompletedAt = &now
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "job_error", Message: message})
}
