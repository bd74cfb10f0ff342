// Package vision provides face detection, template extraction and frame
// annotation on top of the pigo cascade classifier.
package vision

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/kozaktomas/face-attend/internal/constants"
)

// Detection is one face candidate found in a frame. Box coordinates are
// relative to the frame origin.
type Detection struct {
	Box     image.Rectangle
	Quality float32 // classifier score, higher means more face-like
}

// Detector finds face regions in a frame. Implementations must be safe for
// concurrent use.
type Detector interface {
	Detect(img image.Image) []Detection
}

// Cascade sweep parameters mirroring the reference detector.
const (
	shiftFactor  = 0.1
	scaleFactor  = 1.1
	iouThreshold = 0.2
	minQuality   = 5.0
)

// CascadeDetector detects faces with a pigo cascade classifier. The
// classifier is read-only after construction so Detect can run concurrently.
type CascadeDetector struct {
	classifier *pigo.Pigo
}

// NewCascadeDetector reads and unpacks a binary cascade file.
func NewCascadeDetector(cascadeFile string) (*CascadeDetector, error) {
	data, err := os.ReadFile(cascadeFile)
	if err != nil {
		return nil, fmt.Errorf("read cascade file: %w", err)
	}

	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade: %w", err)
	}

	return &CascadeDetector{classifier: classifier}, nil
}

// Detect runs the cascade over the grayscale frame and returns clustered
// detections above the quality floor, clamped to the frame bounds.
func (d *CascadeDetector) Detect(img image.Image) []Detection {
	src := pigo.ImgToNRGBA(img)
	pixels := pigo.RgbToGrayscale(src)
	cols, rows := src.Bounds().Max.X, src.Bounds().Max.Y

	params := pigo.CascadeParams{
		MinSize:     constants.MinFaceSize,
		MaxSize:     constants.MaxFaceSize,
		ShiftFactor: shiftFactor,
		ScaleFactor: scaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, iouThreshold)

	out := make([]Detection, 0, len(dets))
	for _, det := range dets {
		if det.Q < minQuality {
			continue
		}
		box := detectionRect(det, src.Bounds())
		if box.Empty() {
			continue
		}
		out = append(out, Detection{Box: box, Quality: det.Q})
	}
	return out
}

// detectionRect converts a center+scale detection to a rectangle clamped to
// the frame bounds.
func detectionRect(det pigo.Detection, bounds image.Rectangle) image.Rectangle {
	half := det.Scale / 2
	r := image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half)
	return r.Intersect(bounds)
}

var _ Detector = (*CascadeDetector)(nil)
