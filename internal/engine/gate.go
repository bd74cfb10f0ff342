package engine

import (
	"time"

	"github.com/kozaktomas/face-attend/internal/constants"
)

// DecisionKind says whether a verdict should be recorded as attendance.
type DecisionKind string

const (
	DecisionSkip   DecisionKind = "skip"
	DecisionRecord DecisionKind = "record"
)

// Decision is the gate's answer for a single verdict. PersonName and
// Confidence are set only for record decisions.
type Decision struct {
	Kind       DecisionKind
	PersonName string
	Confidence float64
}

// Gate converts stability verdicts into at-most-once recording decisions.
// State is keyed by person name rather than track key, so two tracks
// resolving to the same person inside the cooldown yield a single record.
// State advances optimistically on the record decision itself and is not
// rolled back when the downstream attendance write fails; the durable
// once-per-day guarantee lives in the store's unique constraint.
type Gate struct {
	minConfidence float64
	cooldown      time.Duration
	lastRecorded  map[string]time.Time
	recordedToday map[string]struct{}
	day           string
}

// NewGate creates a gate with the given confidence floor and per-person
// cooldown between record decisions.
func NewGate(minConfidence float64, cooldown time.Duration) *Gate {
	return &Gate{
		minConfidence: minConfidence,
		cooldown:      cooldown,
		lastRecorded:  make(map[string]time.Time),
		recordedToday: make(map[string]struct{}),
	}
}

// Consider decides whether a verdict should be recorded now. The Unknown
// sentinel is refused unconditionally, independent of its confidence. Skip
// decisions never advance per-person state.
func (g *Gate) Consider(trackKey string, v Verdict, now time.Time) Decision {
	skip := Decision{Kind: DecisionSkip}

	if !v.Stable {
		return skip
	}
	if v.Name == "" || v.Name == constants.UnknownPerson {
		return skip
	}
	if v.Confidence < g.minConfidence {
		return skip
	}

	g.rollDay(now)
	if _, done := g.recordedToday[v.Name]; done {
		return skip
	}
	if last, ok := g.lastRecorded[v.Name]; ok && now.Sub(last) < g.cooldown {
		return skip
	}

	g.lastRecorded[v.Name] = now
	g.recordedToday[v.Name] = struct{}{}
	return Decision{Kind: DecisionRecord, PersonName: v.Name, Confidence: v.Confidence}
}

// RecordedToday returns how many distinct people have a record decision for
// the current day.
func (g *Gate) RecordedToday(now time.Time) int {
	g.rollDay(now)
	return len(g.recordedToday)
}

// rollDay resets per-day state when the calendar day changes.
func (g *Gate) rollDay(now time.Time) {
	day := now.Format("2006-01-02")
	if day == g.day {
		return
	}
	g.day = day
	g.recordedToday = make(map[string]struct{})
	g.lastRecorded = make(map[string]time.Time)
}
