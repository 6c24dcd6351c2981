package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"github.com/skip2/go-qrcode"

	"github.com/ivlev/trajclip/internal/assemble"
)

const (
	sheetColumns = 4
	qrSize       = 96
)

var (
	sheetBackground = color.RGBA{R: 24, G: 24, B: 24, A: 255}
	maskTint        = color.RGBA{R: 255, G: 48, B: 48, A: 255}
)

// Provenance is the text stamped into a sheet's QR code: enough to find
// the source scene and replay the clip.
func Provenance(ex *assemble.Example) string {
	return fmt.Sprintf("trajclip id=%s scene=%s/%d offset=%d window=%d fps=%g flip=%t",
		ex.ID, ex.Category, ex.SequenceID, ex.Offset, ex.WindowLen, ex.TargetFPS, ex.Flipped)
}

// ContactSheet tiles the example's frames, tinting masked pixels, and adds
// a strip with a provenance QR code underneath.
func ContactSheet(ex *assemble.Example) (*image.RGBA, error) {
	n := ex.Len()
	if n == 0 {
		return nil, fmt.Errorf("example %s has no frames", ex.ID)
	}
	h, w := ex.Size()
	cols := min(n, sheetColumns)
	rows := (n + cols - 1) / cols

	sheetW := max(cols*w, qrSize)
	sheetH := rows*h + qrSize
	sheet := image.NewRGBA(image.Rect(0, 0, sheetW, sheetH))
	draw.Draw(sheet, sheet.Bounds(), &image.Uniform{C: sheetBackground}, image.Point{}, draw.Src)

	for i, frame := range ex.Frames {
		origin := image.Pt((i%cols)*w, (i/cols)*h)
		cell := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(w, h))}
		draw.Draw(sheet, cell, frame, frame.Bounds().Min, draw.Src)
		if i < len(ex.Masks) {
			overlayMask(sheet, ex.Masks[i], origin)
		}
	}

	qr, err := qrcode.New(Provenance(ex), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}
	stamp := qr.Image(qrSize)
	at := image.Pt(0, rows*h)
	draw.Draw(sheet, image.Rectangle{Min: at, Max: at.Add(stamp.Bounds().Size())}, stamp, stamp.Bounds().Min, draw.Src)
	return sheet, nil
}

// overlayMask blends the tint into dst at half strength wherever the mask
// is set.
func overlayMask(dst *image.RGBA, mask *image.Gray, origin image.Point) {
	b := mask.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.GrayAt(x, y).Y == 0 {
				continue
			}
			p := origin.Add(image.Pt(x-b.Min.X, y-b.Min.Y))
			c := dst.RGBAAt(p.X, p.Y)
			dst.SetRGBA(p.X, p.Y, color.RGBA{
				R: uint8((uint16(c.R) + uint16(maskTint.R)) / 2),
				G: uint8((uint16(c.G) + uint16(maskTint.G)) / 2),
				B: uint8((uint16(c.B) + uint16(maskTint.B)) / 2),
				A: 255,
			})
		}
	}
}

// WriteSheet renders the contact sheet to a PNG file.
func WriteSheet(ex *assemble.Example, path string) error {
	sheet, err := ContactSheet(ex)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, sheet); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
