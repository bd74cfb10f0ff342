package vision

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/kozaktomas/face-attend/internal/constants"
)

// Template converts an image to its matching vector: grayscale, resized to
// TemplateSize×TemplateSize, flattened, mean-subtracted and L2-normalized.
// The dot product of two templates is their normalized cross-correlation.
func Template(img image.Image) []float32 {
	return TemplateFromRegion(img, img.Bounds())
}

// TemplateFromRegion builds the matching vector for one region of a frame,
// typically a detector box. Regions outside the frame yield the zero vector,
// which never matches anything.
func TemplateFromRegion(img image.Image, box image.Rectangle) []float32 {
	v := make([]float32, constants.TemplateDim)

	box = box.Intersect(img.Bounds())
	if box.Empty() {
		return v
	}

	gray := image.NewGray(image.Rect(0, 0, constants.TemplateSize, constants.TemplateSize))
	draw.BiLinear.Scale(gray, gray.Bounds(), img, box, draw.Src, nil)

	var sum float64
	for i, p := range gray.Pix {
		v[i] = float32(p)
		sum += float64(p)
	}

	mean := float32(sum / float64(len(v)))
	var sq float64
	for i := range v {
		v[i] -= mean
		sq += float64(v[i]) * float64(v[i])
	}

	norm := float32(math.Sqrt(sq))
	if norm == 0 {
		// Flat region, correlation is undefined
		return v
	}
	for i := range v {
		v[i] /= norm
	}
	return v
}
