package assemble

import (
	"image"
	"math"

	"github.com/ivlev/trajclip/internal/analyzer"
)

// sphereMask replaces the mask with filled discs, one per object blob, each
// circumscribing the blob's bounding box. With no blob a centred disc of
// fallback * min(H, W) is drawn.
func sphereMask(m *image.Gray, detector *analyzer.MaskDetector, fallback float64) {
	blocks := detector.Detect(m)
	fillGray(m, 0)

	b := m.Bounds()
	if len(blocks) == 0 {
		cx := float64(b.Min.X+b.Max.X) / 2
		cy := float64(b.Min.Y+b.Max.Y) / 2
		r := fallback * float64(min(b.Dx(), b.Dy()))
		drawDisc(m, cx, cy, r)
		return
	}
	for _, blk := range blocks {
		cx, cy := blk.Center()
		drawDisc(m, cx, cy, blk.Radius())
	}
}

func drawDisc(m *image.Gray, cx, cy, r float64) {
	b := m.Bounds()
	x0 := max(b.Min.X, int(math.Floor(cx-r)))
	x1 := min(b.Max.X, int(math.Ceil(cx+r)))
	y0 := max(b.Min.Y, int(math.Floor(cy-r)))
	y1 := min(b.Max.Y, int(math.Ceil(cy+r)))
	r2 := r * r

	for y := y0; y < y1; y++ {
		dy := float64(y) + 0.5 - cy
		for x := x0; x < x1; x++ {
			dx := float64(x) + 0.5 - cx
			if dx*dx+dy*dy <= r2 {
				m.Pix[m.PixOffset(x, y)] = 255
			}
		}
	}
}

func fillGray(m *image.Gray, v uint8) {
	w := m.Rect.Dx()
	for y := 0; y < m.Rect.Dy(); y++ {
		row := m.Pix[y*m.Stride : y*m.Stride+w]
		for i := range row {
			row[i] = v
		}
	}
}
