package analyzer

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(img *image.Gray, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
}

func TestMaskDetector_TwoObjects(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 200, 100))
	fill(mask, image.Rect(10, 10, 50, 40))
	fill(mask, image.Rect(120, 30, 180, 90))

	blocks := NewMaskDetector().Detect(mask)
	require.Len(t, blocks, 2)

	assert.Equal(t, image.Rect(10, 10, 50, 40), blocks[0].Rect)
	assert.Equal(t, 40*30, blocks[0].Area)
	assert.Equal(t, image.Rect(120, 30, 180, 90), blocks[1].Rect)

	cx, cy := blocks[1].Center()
	assert.Equal(t, 150.0, cx)
	assert.Equal(t, 60.0, cy)
	assert.InDelta(t, math.Hypot(60, 60)/2, blocks[1].Radius(), 1e-9)
}

func TestMaskDetector_MinAreaDropsNoise(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 50, 50))
	fill(mask, image.Rect(5, 5, 6, 6))
	fill(mask, image.Rect(20, 20, 30, 30))

	d := NewMaskDetector()
	d.MinArea = 4
	blocks := d.Detect(mask)
	require.Len(t, blocks, 1)
	assert.Equal(t, 100, blocks[0].Area)
}

func TestMaskDetector_EmptyMask(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 20, 20))
	assert.Empty(t, NewMaskDetector().Detect(mask))
}

func TestMaskDetector_OffsetBounds(t *testing.T) {
	mask := image.NewGray(image.Rect(10, 10, 30, 30))
	fill(mask, image.Rect(12, 12, 15, 15))
	blocks := NewMaskDetector().Detect(mask)
	require.Len(t, blocks, 1)
	assert.Equal(t, image.Rect(12, 12, 15, 15), blocks[0].Rect)
}
