package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attend/internal/web/handlers"
	"github.com/kozaktomas/face-attend/internal/web/middleware"
)

func (s *Server) setupRoutes(deps Deps) {
	// Create handlers
	healthHandler := handlers.NewHealthHandler(deps.Recognizer)
	statsHandler := handlers.NewStatsHandler(deps.Stats)
	datasetHandler := handlers.NewDatasetHandler(s.config.Recognition.DatasetDir, deps.Recognizer, deps.Faces, statsHandler)
	recordingsHandler := handlers.NewRecordingsHandler(deps.Recorder, s.config.Camera.URL, s.config.Camera.FPS, deps.Metrics, statsHandler)
	framesHandler := handlers.NewFramesHandler(deps.Processor, deps.Extractor, deps.Batch, deps.Recognizer,
		deps.Recordings, s.jobManager, deps.Metrics, statsHandler)
	attendanceHandler := handlers.NewAttendanceHandler(deps.Attendance, s.config.Camera.Location, statsHandler)
	jobsHandler := handlers.NewJobsHandler(s.jobManager)

	// Health check and metrics (no auth required)
	s.router.Get("/api/v1/health", healthHandler.Get)
	s.router.Method("GET", "/metrics", deps.Metrics.Handler())

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Read endpoints stay open; only mutating ones require the token.
		r.Get("/stats", statsHandler.Get)
		r.Get("/recordings/status", recordingsHandler.Status)
		r.Get("/jobs/{jobId}", jobsHandler.Status)
		r.Get("/jobs/{jobId}/events", jobsHandler.Events)
		r.Get("/attendance/summary", attendanceHandler.Summary)
		r.Get("/attendance/records", attendanceHandler.Records)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireToken(s.config.Security.APIToken))

			// Dataset
			r.Post("/dataset/load", datasetHandler.Load)

			// Recordings
			r.Post("/recordings/start", recordingsHandler.Start)
			r.Post("/recordings/stop", recordingsHandler.Stop)

			// Frames
			r.Post("/frames/extract", framesHandler.Extract)
			r.Post("/frames/process", framesHandler.Process)
			r.Post("/frames/process-all", framesHandler.ProcessAll)

			// Jobs (long-running operations)
			r.Delete("/jobs/{jobId}", jobsHandler.Cancel)

			// Attendance
			r.Post("/attendance/record", attendanceHandler.Record)
		})
	})
}
