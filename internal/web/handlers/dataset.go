package handlers

import (
	"fmt"
	"net/http"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/recognizer"
)

// DatasetHandler loads reference faces into the recognizer index.
type DatasetHandler struct {
	datasetDir string
	recognizer *recognizer.Recognizer
	faces      database.FaceWriter
	stats      *StatsHandler
}

// NewDatasetHandler creates a new dataset handler.
func NewDatasetHandler(datasetDir string, rec *recognizer.Recognizer, faces database.FaceWriter, stats *StatsHandler) *DatasetHandler {
	return &DatasetHandler{
		datasetDir: datasetDir,
		recognizer: rec,
		faces:      faces,
		stats:      stats,
	}
}

// DatasetLoadRequest represents a request to reload the face index.
type DatasetLoadRequest struct {
	// DatasetDir overrides the configured dataset directory for this load.
	DatasetDir string `json:"dataset_dir,omitempty"`
}

// DatasetLoadResponse represents the result of a face index reload.
type DatasetLoadResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	FacesLoaded  int    `json:"faces_loaded"`
	UniquePeople int    `json:"unique_people"`
}

// Load handles reloading the face index from the database or dataset directory.
func (h *DatasetHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req DatasetLoadRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	dir := h.datasetDir
	if req.DatasetDir != "" {
		dir = req.DatasetDir
	}

	result, err := h.recognizer.Reload(r.Context(), dir, h.faces)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load dataset: %v", err))
		return
	}

	if h.stats != nil {
		h.stats.InvalidateCache()
	}

	respondJSON(w, http.StatusOK, DatasetLoadResponse{
		Success:      true,
		Message:      fmt.Sprintf("loaded %d faces for %d people from %s", result.FacesLoaded, result.UniquePeople, result.Source),
		FacesLoaded:  result.FacesLoaded,
		UniquePeople: result.UniquePeople,
	})
}
