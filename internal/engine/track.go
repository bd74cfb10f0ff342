package engine

import "fmt"

// BoundingBox is a detected face region in frame pixel coordinates.
type BoundingBox struct {
	X int
	Y int
	W int
	H int
}

// Tracker assigns track keys to the detections of a single frame. A key must
// survive small inter-frame motion of the same face and must differ for two
// faces visible at the same time.
type Tracker interface {
	Assign(boxes []BoundingBox) []string
}

// GridTracker derives track keys by quantizing the box origin into coarse
// grid cells. A face that moves less than one cell keeps its key; a face
// straddling a cell boundary may split into two tracks across frames, which
// the aggregation window absorbs as noise.
type GridTracker struct {
	bucketSize int
}

// NewGridTracker creates a tracker with the given cell size in pixels.
func NewGridTracker(bucketSize int) *GridTracker {
	return &GridTracker{bucketSize: bucketSize}
}

func (t *GridTracker) Assign(boxes []BoundingBox) []string {
	keys := make([]string, len(boxes))
	for i, box := range boxes {
		keys[i] = fmt.Sprintf("face_%d_%d", box.X/t.bucketSize, box.Y/t.bucketSize)
	}
	return keys
}

// IoUTracker matches each detection against the previous frame's boxes by
// best intersection over union and reuses the matched key, assigning a fresh
// key when nothing overlaps enough. A drop-in alternative to GridTracker for
// scenes with faster motion; aggregator and gate are unaffected by the choice.
type IoUTracker struct {
	minOverlap float64
	nextID     int
	previous   []trackedBox
}

type trackedBox struct {
	key string
	box BoundingBox
}

// NewIoUTracker creates a tracker that requires at least minOverlap IoU to
// consider a detection the continuation of an existing track.
func NewIoUTracker(minOverlap float64) *IoUTracker {
	return &IoUTracker{minOverlap: minOverlap}
}

func (t *IoUTracker) Assign(boxes []BoundingBox) []string {
	keys := make([]string, len(boxes))
	claimed := make([]bool, len(t.previous))

	for i, box := range boxes {
		bestIdx := -1
		bestIoU := t.minOverlap
		for j, prev := range t.previous {
			if claimed[j] {
				continue
			}
			if iou := boxIoU(box, prev.box); iou >= bestIoU {
				bestIoU = iou
				bestIdx = j
			}
		}
		if bestIdx >= 0 {
			keys[i] = t.previous[bestIdx].key
			claimed[bestIdx] = true
			continue
		}
		keys[i] = fmt.Sprintf("track_%d", t.nextID)
		t.nextID++
	}

	current := make([]trackedBox, len(boxes))
	for i, box := range boxes {
		current[i] = trackedBox{key: keys[i], box: box}
	}
	t.previous = current

	return keys
}

// boxIoU computes intersection over union for two boxes in x, y, w, h form.
func boxIoU(a, b BoundingBox) float64 {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.W, b.X+b.W)
	y2 := min(a.Y+a.H, b.Y+b.H)

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	intersection := float64((x2 - x1) * (y2 - y1))
	union := float64(a.W*a.H+b.W*b.H) - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}
