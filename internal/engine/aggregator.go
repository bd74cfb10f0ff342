// Package engine turns a noisy per-frame stream of face classifications into
// stable identity verdicts and at-most-once-per-day attendance decisions.
//
// The pipeline is tracker -> aggregator -> gate, driven synchronously once
// per frame. The package does no I/O and no locking of its own; callers that
// share an engine between goroutines must serialize access.
package engine

import (
	"fmt"
	"time"
)

// Observation is a single per-frame classifier result for one track.
type Observation struct {
	Name       string
	Confidence float64
	Timestamp  time.Time
}

// Verdict is the aggregator's judgement of a track, computed on demand and
// never stored. Name is the consensus of the most recent observations and
// Confidence the mean confidence of the entries that agree with it; both are
// zero while a track has fewer observations than the stability threshold.
type Verdict struct {
	TrackKey   string
	Stable     bool
	Name       string
	Confidence float64
}

// window is a fixed-capacity ring buffer of observations, oldest first.
type window struct {
	obs   []Observation
	start int
	count int
}

func newWindow(capacity int) *window {
	return &window{obs: make([]Observation, capacity)}
}

func (w *window) push(o Observation) {
	if w.count < len(w.obs) {
		w.obs[(w.start+w.count)%len(w.obs)] = o
		w.count++
		return
	}
	w.obs[w.start] = o
	w.start = (w.start + 1) % len(w.obs)
}

// at returns the i-th observation counted from the oldest.
func (w *window) at(i int) Observation {
	return w.obs[(w.start+i)%len(w.obs)]
}

func (w *window) newest() Observation {
	return w.at(w.count - 1)
}

// Aggregator smooths classifier noise by voting over a bounded window of
// recent observations per track. A track is stable only when the most recent
// threshold observations are unanimous about the name.
type Aggregator struct {
	capacity  int
	threshold int
	windows   map[string]*window
}

// NewAggregator creates an aggregator with the given window capacity and
// stability threshold. A threshold larger than the capacity could never be
// met, so construction fails instead of silently misbehaving.
func NewAggregator(capacity, threshold int) (*Aggregator, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("window capacity must be positive, got %d", capacity)
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("stability threshold must be positive, got %d", threshold)
	}
	if threshold > capacity {
		return nil, fmt.Errorf("stability threshold %d exceeds window capacity %d", threshold, capacity)
	}
	return &Aggregator{
		capacity:  capacity,
		threshold: threshold,
		windows:   make(map[string]*window),
	}, nil
}

// Observe appends a classifier result to the track's window, creating the
// track on first sight and evicting the oldest entry once at capacity.
// Confidence is taken as-is; the upstream classifier owns the [0,1] range.
func (a *Aggregator) Observe(key, name string, confidence float64, ts time.Time) {
	w, ok := a.windows[key]
	if !ok {
		w = newWindow(a.capacity)
		a.windows[key] = w
	}
	w.push(Observation{Name: name, Confidence: confidence, Timestamp: ts})
}

// Evaluate computes the current verdict for a track without mutating state.
// It inspects only the most recent threshold observations: the most frequent
// name among them wins, ties broken by the most recent occurrence, and the
// track is stable only when that name fills the whole slice.
func (a *Aggregator) Evaluate(key string) Verdict {
	v := Verdict{TrackKey: key}
	w, ok := a.windows[key]
	if !ok || w.count < a.threshold {
		return v
	}

	counts := make(map[string]int, a.threshold)
	lastSeen := make(map[string]int, a.threshold)
	first := w.count - a.threshold
	for i := first; i < w.count; i++ {
		o := w.at(i)
		counts[o.Name]++
		lastSeen[o.Name] = i
	}

	consensus := ""
	for name := range counts {
		if consensus == "" ||
			counts[name] > counts[consensus] ||
			(counts[name] == counts[consensus] && lastSeen[name] > lastSeen[consensus]) {
			consensus = name
		}
	}

	var sum float64
	for i := first; i < w.count; i++ {
		if o := w.at(i); o.Name == consensus {
			sum += o.Confidence
		}
	}

	v.Name = consensus
	v.Confidence = sum / float64(counts[consensus])
	v.Stable = counts[consensus] == a.threshold
	return v
}

// EvictStale drops every track whose newest observation is strictly older
// than maxAge and returns how many were removed. Eviction is never automatic;
// drivers invoke it periodically, typically once per processed frame.
func (a *Aggregator) EvictStale(now time.Time, maxAge time.Duration) int {
	evicted := 0
	for key, w := range a.windows {
		if w.count == 0 || now.Sub(w.newest().Timestamp) > maxAge {
			delete(a.windows, key)
			evicted++
		}
	}
	return evicted
}

// Tracks returns the number of live tracks.
func (a *Aggregator) Tracks() int {
	return len(a.windows)
}
