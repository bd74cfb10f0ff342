package vision

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// LabeledBox is a recognized face region ready to be drawn on a frame.
type LabeledBox struct {
	Box        image.Rectangle
	Label      string
	Confidence float64
}

var (
	colorConfident = color.RGBA{G: 200, A: 255}
	colorTentative = color.RGBA{R: 220, G: 200, A: 255}
	colorWeak      = color.RGBA{R: 220, A: 255}
)

// annotateLowThreshold separates tentative (yellow) from weak (red) boxes.
const annotateLowThreshold = 0.4

// Annotate draws labelled boxes on a copy of the frame and returns JPEG
// bytes. Boxes at or above the threshold are green, above the tentative
// floor yellow, everything else red.
func Annotate(img image.Image, boxes []LabeledBox, threshold float64) ([]byte, error) {
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)

	for _, b := range boxes {
		col := boxColor(b.Confidence, threshold)
		box := b.Box.Intersect(dst.Bounds())
		if box.Empty() {
			continue
		}
		drawRect(dst, box, col)
		drawLabel(dst, box, b, col)
	}

	return EncodeJPEG(dst)
}

func boxColor(confidence, threshold float64) color.RGBA {
	switch {
	case confidence >= threshold:
		return colorConfident
	case confidence >= annotateLowThreshold:
		return colorTentative
	default:
		return colorWeak
	}
}

func drawRect(img *image.RGBA, r image.Rectangle, col color.RGBA) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, col)
		img.SetRGBA(x, r.Max.Y-1, col)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, col)
		img.SetRGBA(r.Max.X-1, y, col)
	}
}

func drawLabel(img *image.RGBA, box image.Rectangle, b LabeledBox, col color.RGBA) {
	label := fmt.Sprintf("%s (%.2f)", b.Label, b.Confidence)

	// Above the box when there is room, inside it otherwise
	dot := fixed.P(box.Min.X, box.Min.Y-4)
	if box.Min.Y-4-basicfont.Face7x13.Ascent < img.Bounds().Min.Y {
		dot = fixed.P(box.Min.X+2, box.Min.Y+basicfont.Face7x13.Ascent+2)
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  dot,
	}
	d.DrawString(label)
}
