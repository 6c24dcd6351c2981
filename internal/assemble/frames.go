package assemble

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// coverRect is the centred part of src that, scaled, covers dst exactly
// without distortion.
func coverRect(src, dst image.Rectangle) image.Rectangle {
	sw, sh := float64(src.Dx()), float64(src.Dy())
	dw, dh := float64(dst.Dx()), float64(dst.Dy())

	scale := math.Max(dw/sw, dh/sh)
	cw := int(math.Round(dw / scale))
	ch := int(math.Round(dh / scale))
	if cw > src.Dx() {
		cw = src.Dx()
	}
	if ch > src.Dy() {
		ch = src.Dy()
	}

	x0 := src.Min.X + (src.Dx()-cw)/2
	y0 := src.Min.Y + (src.Dy()-ch)/2
	return image.Rect(x0, y0, x0+cw, y0+ch)
}

// resizeInto scales the cover crop of src into dst.
func resizeInto(dst draw.Image, src image.Image, interp draw.Interpolator) {
	sr := coverRect(src.Bounds(), dst.Bounds())
	if sr.Size() == dst.Bounds().Size() {
		draw.Copy(dst, dst.Bounds().Min, src, sr, draw.Src, nil)
		return
	}
	interp.Scale(dst, dst.Bounds(), src, sr, draw.Src, nil)
}

// flipRGBA mirrors img left-right in place.
func flipRGBA(img *image.RGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for l, r := 0, w-1; l < r; l, r = l+1, r-1 {
			for c := 0; c < 4; c++ {
				row[l*4+c], row[r*4+c] = row[r*4+c], row[l*4+c]
			}
		}
	}
}

// flipGray mirrors img left-right in place.
func flipGray(img *image.Gray) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for l, r := 0, w-1; l < r; l, r = l+1, r-1 {
			row[l], row[r] = row[r], row[l]
		}
	}
}
