package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
)

const statsCacheTTL = 10 * time.Minute

// StatsHandler serves aggregate pipeline statistics.
type StatsHandler struct {
	store database.StatsReader
	cache *statsCache
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(store database.StatsReader) *StatsHandler {
	return &StatsHandler{
		store: store,
		cache: &statsCache{},
	}
}

// StatsResponse represents aggregate statistics about the pipeline.
type StatsResponse struct {
	TotalFaces        int     `json:"total_faces"`
	TotalRecordings   int     `json:"total_recordings"`
	TotalFrames       int     `json:"total_frames"`
	TotalDetections   int     `json:"total_detections"`
	TotalAttendance   int     `json:"total_attendance"`
	UniquePeople      int     `json:"unique_people"`
	AverageConfidence float64 `json:"average_confidence"`
}

// statsCache caches the stats response to avoid hitting the database
// on every request. Mutating endpoints invalidate it.
type statsCache struct {
	mu        sync.RWMutex
	data      *StatsResponse
	expiresAt time.Time
}

func (c *statsCache) get() *StatsResponse {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil
	}
	return c.data
}

func (c *statsCache) set(data *StatsResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = data
	c.expiresAt = time.Now().Add(statsCacheTTL)
}

func (c *statsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = nil
}

// Get handles the statistics endpoint.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if cached := h.cache.get(); cached != nil {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	stats, err := h.store.ProcessingStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load statistics")
		return
	}

	resp := &StatsResponse{
		TotalFaces:        stats.TotalFaces,
		TotalRecordings:   stats.TotalRecordings,
		TotalFrames:       stats.TotalFrames,
		TotalDetections:   stats.TotalDetections,
		TotalAttendance:   stats.TotalAttendance,
		UniquePeople:      stats.UniquePeople,
		AverageConfidence: stats.AverageConfidence,
	}
	h.cache.set(resp)

	respondJSON(w, http.StatusOK, resp)
}

// InvalidateCache drops the cached stats response. Handlers that write
// to the database call this so the next stats request sees fresh data.
func (h *StatsHandler) InvalidateCache() {
	h.cache.invalidate()
}
