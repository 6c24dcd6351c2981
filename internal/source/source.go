package source

import (
	"image"
)

// FrameSource gives indexed access to the frames of one stream (video or
// mask) without decoding the ones nobody asks for.
type FrameSource interface {
	Len() int
	Dimensions(index int) (width, height int, err error)
	Frame(index int) (image.Image, error)
	Close() error
}
