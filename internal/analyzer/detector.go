package analyzer

import (
	"image"
	"math"
)

// Block is one connected foreground region of a mask.
type Block struct {
	Rect image.Rectangle
	Area int // foreground pixels, not the bounding box area
}

// Center is the middle of the bounding box in pixel coordinates.
func (b Block) Center() (float64, float64) {
	return float64(b.Rect.Min.X+b.Rect.Max.X) / 2, float64(b.Rect.Min.Y+b.Rect.Max.Y) / 2
}

// Radius is the radius of the circle through the bounding box corners.
func (b Block) Radius() float64 {
	w, h := float64(b.Rect.Dx()), float64(b.Rect.Dy())
	return math.Sqrt(w*w+h*h) / 2
}
