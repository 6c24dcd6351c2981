// Package analyzer finds object regions in per-frame masks.
package analyzer

import (
	"image"
)

// MaskDetector finds connected foreground regions in a mask.
type MaskDetector struct {
	Threshold uint8 // pixels above it are foreground
	MinArea   int   // smaller regions are treated as noise
}

// NewMaskDetector creates a detector with defaults suited to binary masks.
func NewMaskDetector() *MaskDetector {
	return &MaskDetector{
		Threshold: 128,
		MinArea:   1,
	}
}

// Detect returns the regions in scan order (top-to-bottom, left-to-right
// by first pixel).
func (d *MaskDetector) Detect(mask *image.Gray) []Block {
	bounds := mask.Bounds()
	visited := make([][]bool, bounds.Dy())
	for i := range visited {
		visited[i] = make([]bool, bounds.Dx())
	}

	var blocks []Block
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if mask.GrayAt(x, y).Y > d.Threshold && !visited[y-bounds.Min.Y][x-bounds.Min.X] {
				b := d.floodFill(mask, visited, x, y)
				if b.Area >= d.MinArea {
					blocks = append(blocks, b)
				}
			}
		}
	}
	return blocks
}

// floodFill marks one 4-connected region and returns its bounds and area.
func (d *MaskDetector) floodFill(img *image.Gray, visited [][]bool, startX, startY int) Block {
	bounds := img.Bounds()
	minX, minY := startX, startY
	maxX, maxY := startX, startY
	area := 0

	stack := []image.Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		x, y := p.X, p.Y

		if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}

		if visited[y-bounds.Min.Y][x-bounds.Min.X] || img.GrayAt(x, y).Y <= d.Threshold {
			continue
		}

		visited[y-bounds.Min.Y][x-bounds.Min.X] = true
		area++

		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}

		stack = append(stack,
			image.Point{X: x + 1, Y: y},
			image.Point{X: x - 1, Y: y},
			image.Point{X: x, Y: y + 1},
			image.Point{X: x, Y: y - 1},
		)
	}

	return Block{Rect: image.Rect(minX, minY, maxX+1, maxY+1), Area: area}
}
