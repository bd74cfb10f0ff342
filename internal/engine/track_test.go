package engine

import (
	"math"
	"testing"
)

func TestGridTrackerAssign(t *testing.T) {
	tests := []struct {
		name     string
		box      BoundingBox
		expected string
	}{
		{name: "origin", box: BoundingBox{X: 0, Y: 0, W: 80, H: 80}, expected: "face_0_0"},
		{name: "inside first cell", box: BoundingBox{X: 49, Y: 49, W: 80, H: 80}, expected: "face_0_0"},
		{name: "cell boundary", box: BoundingBox{X: 50, Y: 0, W: 80, H: 80}, expected: "face_1_0"},
		{name: "far cell", box: BoundingBox{X: 120, Y: 260, W: 80, H: 80}, expected: "face_2_5"},
		{name: "size does not matter", box: BoundingBox{X: 120, Y: 260, W: 300, H: 10}, expected: "face_2_5"},
	}

	tracker := NewGridTracker(50)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := tracker.Assign([]BoundingBox{tt.box})
			if keys[0] != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, keys[0])
			}
		})
	}
}

func TestGridTrackerAssign_JitterStaysInCell(t *testing.T) {
	tracker := NewGridTracker(50)

	// Small positional noise around one face must keep producing the same
	// key, otherwise the stability window never fills.
	positions := []BoundingBox{
		{X: 210, Y: 110, W: 80, H: 80},
		{X: 214, Y: 108, W: 82, H: 79},
		{X: 208, Y: 113, W: 78, H: 81},
	}

	for _, box := range positions {
		keys := tracker.Assign([]BoundingBox{box})
		if keys[0] != "face_4_2" {
			t.Errorf("expected jittered box at (%d,%d) to stay in face_4_2, got %q", box.X, box.Y, keys[0])
		}
	}
}

func TestGridTrackerAssign_MultipleBoxes(t *testing.T) {
	tracker := NewGridTracker(50)

	keys := tracker.Assign([]BoundingBox{
		{X: 10, Y: 10, W: 80, H: 80},
		{X: 400, Y: 200, W: 80, H: 80},
	})

	if len(keys) != 2 {
		t.Fatalf("expected one key per box, got %d", len(keys))
	}
	if keys[0] != "face_0_0" || keys[1] != "face_8_4" {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestIoUTrackerAssign_FollowsMovingBox(t *testing.T) {
	tracker := NewIoUTracker(0.3)

	first := tracker.Assign([]BoundingBox{{X: 100, Y: 100, W: 80, H: 80}})
	second := tracker.Assign([]BoundingBox{{X: 110, Y: 105, W: 80, H: 80}})

	if first[0] != "track_0" {
		t.Fatalf("expected first detection to open track_0, got %q", first[0])
	}
	if second[0] != first[0] {
		t.Errorf("expected overlapping box to keep %q, got %q", first[0], second[0])
	}
}

func TestIoUTrackerAssign_DisjointBoxOpensNewTrack(t *testing.T) {
	tracker := NewIoUTracker(0.3)

	tracker.Assign([]BoundingBox{{X: 100, Y: 100, W: 80, H: 80}})
	keys := tracker.Assign([]BoundingBox{{X: 500, Y: 400, W: 80, H: 80}})

	if keys[0] != "track_1" {
		t.Errorf("expected fresh key for disjoint box, got %q", keys[0])
	}
}

func TestIoUTrackerAssign_TrackClaimedOnce(t *testing.T) {
	tracker := NewIoUTracker(0.3)

	tracker.Assign([]BoundingBox{{X: 100, Y: 100, W: 80, H: 80}})

	// Two detections over the same previous box: only one may inherit the
	// track, the other opens its own.
	keys := tracker.Assign([]BoundingBox{
		{X: 102, Y: 100, W: 80, H: 80},
		{X: 98, Y: 102, W: 80, H: 80},
	})

	if keys[0] == keys[1] {
		t.Errorf("expected distinct keys for two detections, got %q twice", keys[0])
	}
	if keys[0] != "track_0" {
		t.Errorf("expected first detection to inherit track_0, got %q", keys[0])
	}
}

func TestIoUTrackerAssign_LostTrackIsNotRevived(t *testing.T) {
	tracker := NewIoUTracker(0.3)

	tracker.Assign([]BoundingBox{{X: 100, Y: 100, W: 80, H: 80}})
	tracker.Assign(nil)
	keys := tracker.Assign([]BoundingBox{{X: 100, Y: 100, W: 80, H: 80}})

	if keys[0] == "track_0" {
		t.Error("expected a box reappearing after an empty frame to open a new track")
	}
}

func TestBoxIoU(t *testing.T) {
	tests := []struct {
		name     string
		a        BoundingBox
		b        BoundingBox
		expected float64
	}{
		{
			name:     "identical",
			a:        BoundingBox{X: 0, Y: 0, W: 100, H: 100},
			b:        BoundingBox{X: 0, Y: 0, W: 100, H: 100},
			expected: 1.0,
		},
		{
			name:     "disjoint",
			a:        BoundingBox{X: 0, Y: 0, W: 100, H: 100},
			b:        BoundingBox{X: 200, Y: 200, W: 100, H: 100},
			expected: 0.0,
		},
		{
			name:     "touching edges",
			a:        BoundingBox{X: 0, Y: 0, W: 100, H: 100},
			b:        BoundingBox{X: 100, Y: 0, W: 100, H: 100},
			expected: 0.0,
		},
		{
			name:     "half horizontal shift",
			a:        BoundingBox{X: 0, Y: 0, W: 100, H: 100},
			b:        BoundingBox{X: 50, Y: 0, W: 100, H: 100},
			expected: 1.0 / 3.0,
		},
		{
			name:     "contained box",
			a:        BoundingBox{X: 0, Y: 0, W: 100, H: 100},
			b:        BoundingBox{X: 25, Y: 25, W: 50, H: 50},
			expected: 0.25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := boxIoU(tt.a, tt.b)
			if math.Abs(result-tt.expected) > 0.0001 {
				t.Errorf("expected IoU %f, got %f", tt.expected, result)
			}
		})
	}
}
