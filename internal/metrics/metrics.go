// Package metrics exports pipeline counters on a Prometheus registry.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters scraped at /metrics. The counters are plain
// atomics bumped by the HTTP layer; live values such as the engine's track
// count are pulled through callbacks at scrape time.
type Metrics struct {
	FramesCaptured     atomic.Uint64
	FramesProcessed    atomic.Uint64
	FacesDetected      atomic.Uint64
	AttendanceRecorded atomic.Uint64
	ProcessErrors      atomic.Uint64
	RecordingActive    atomic.Uint64 // 0 = idle, 1 = recording

	registry *prometheus.Registry
}

// New creates a metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.registerCounters()
	return m
}

func (m *Metrics) registerCounters() {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "attend_frames_captured_total",
			Help: "Total frames captured by the recorder",
		},
		func() float64 { return float64(m.FramesCaptured.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "attend_frames_processed_total",
			Help: "Total frames run through the recognition pipeline",
		},
		func() float64 { return float64(m.FramesProcessed.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "attend_faces_detected_total",
			Help: "Total faces detected across processed frames",
		},
		func() float64 { return float64(m.FacesDetected.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "attend_attendance_recorded_total",
			Help: "Total attendance records written",
		},
		func() float64 { return float64(m.AttendanceRecorded.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "attend_process_errors_total",
			Help: "Total frame processing errors",
		},
		func() float64 { return float64(m.ProcessErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "attend_recording_active",
			Help: "Recording in progress (0=idle, 1=recording)",
		},
		func() float64 { return float64(m.RecordingActive.Load()) },
	))
}

// RegisterPipeline exposes live pipeline state: the engine's active track
// count and the size of the recognition index. Nil callbacks are skipped.
// Must be called at most once.
func (m *Metrics) RegisterPipeline(activeTracks, knownFaces func() int) {
	if activeTracks != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "attend_active_tracks",
				Help: "Live face tracks in the aggregation engine",
			},
			func() float64 { return float64(activeTracks()) },
		))
	}
	if knownFaces != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "attend_known_faces",
				Help: "Face samples in the recognition index",
			},
			func() float64 { return float64(knownFaces()) },
		))
	}
}

// SetRecording flips the recording-active gauge.
func (m *Metrics) SetRecording(active bool) {
	if active {
		m.RecordingActive.Store(1)
	} else {
		m.RecordingActive.Store(0)
	}
}

// Handler returns the Prometheus scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
