package engine

import (
	"fmt"
	"time"
)

// Config carries the tunable values of the aggregation pipeline.
type Config struct {
	WindowCapacity     int           // observations kept per track
	StabilityThreshold int           // most recent observations that must agree
	MinConfidence      float64       // confidence floor for attendance decisions
	Cooldown           time.Duration // minimum gap between records for one person
	TrackMaxAge        time.Duration // tracks older than this are evicted
	BucketSize         int           // grid cell size for position track keys
}

// Validate rejects configurations the engine cannot honor. A stability
// threshold larger than the window could never be reached, so construction
// fails loudly instead of producing an engine that never stabilizes.
func (c Config) Validate() error {
	if c.WindowCapacity <= 0 {
		return fmt.Errorf("window capacity must be positive, got %d", c.WindowCapacity)
	}
	if c.StabilityThreshold <= 0 {
		return fmt.Errorf("stability threshold must be positive, got %d", c.StabilityThreshold)
	}
	if c.StabilityThreshold > c.WindowCapacity {
		return fmt.Errorf("stability threshold %d exceeds window capacity %d",
			c.StabilityThreshold, c.WindowCapacity)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be within [0,1], got %g", c.MinConfidence)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative, got %s", c.Cooldown)
	}
	if c.TrackMaxAge <= 0 {
		return fmt.Errorf("track max age must be positive, got %s", c.TrackMaxAge)
	}
	if c.BucketSize <= 0 {
		return fmt.Errorf("bucket size must be positive, got %d", c.BucketSize)
	}
	return nil
}

// Detection is one labelled face region of a frame: where it is and what the
// per-frame classifier thinks it is.
type Detection struct {
	Box        BoundingBox
	Name       string
	Confidence float64
}

// TrackedDetection is the engine's view of one detection after a frame pass.
type TrackedDetection struct {
	Detection
	TrackKey string
	Verdict  Verdict
	Decision Decision
}

// Engine drives tracker, aggregator and gate for one camera stream. It is
// not safe for concurrent use; callers sharing an engine across goroutines
// must serialize access externally.
type Engine struct {
	cfg     Config
	tracker Tracker
	agg     *Aggregator
	gate    *Gate
}

// New builds an engine with the default grid tracker. Returns an error for
// configurations that could never produce a stable verdict.
func New(cfg Config) (*Engine, error) {
	return NewWithTracker(cfg, nil)
}

// NewWithTracker builds an engine with a custom tracker implementation; a
// nil tracker selects the grid tracker with the configured bucket size.
func NewWithTracker(cfg Config, tracker Tracker) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	agg, err := NewAggregator(cfg.WindowCapacity, cfg.StabilityThreshold)
	if err != nil {
		return nil, err
	}
	if tracker == nil {
		tracker = NewGridTracker(cfg.BucketSize)
	}
	return &Engine{
		cfg:     cfg,
		tracker: tracker,
		agg:     agg,
		gate:    NewGate(cfg.MinConfidence, cfg.Cooldown),
	}, nil
}

// ProcessFrame feeds a frame's labelled detections through the pipeline:
// track assignment, window update, stability evaluation and the attendance
// gate, followed by stale-track eviction. Durable writes for record
// decisions are the caller's job and happen after this returns, so a slow
// sink never stalls the gate's cooldown bookkeeping.
func (e *Engine) ProcessFrame(detections []Detection, now time.Time) []TrackedDetection {
	boxes := make([]BoundingBox, len(detections))
	for i, d := range detections {
		boxes[i] = d.Box
	}
	keys := e.tracker.Assign(boxes)

	out := make([]TrackedDetection, len(detections))
	for i, d := range detections {
		e.agg.Observe(keys[i], d.Name, d.Confidence, now)
		verdict := e.agg.Evaluate(keys[i])
		out[i] = TrackedDetection{
			Detection: d,
			TrackKey:  keys[i],
			Verdict:   verdict,
			Decision:  e.gate.Consider(keys[i], verdict, now),
		}
	}

	e.agg.EvictStale(now, e.cfg.TrackMaxAge)
	return out
}

// ActiveTracks returns the number of live tracks after the last frame.
func (e *Engine) ActiveTracks() int {
	return e.agg.Tracks()
}

// RecordedToday returns how many distinct people the gate has recorded for
// the current day.
func (e *Engine) RecordedToday(now time.Time) int {
	return e.gate.RecordedToday(now)
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}
