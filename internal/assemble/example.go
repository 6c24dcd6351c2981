package assemble

import (
	"image"

	"github.com/google/uuid"

	"github.com/ivlev/trajclip/internal/pose"
	"github.com/ivlev/trajclip/internal/scene"
	"github.com/ivlev/trajclip/internal/system"
)

// Example is one training sample. It is built per request and owned by
// the caller; Release hands the frame buffers back for reuse.
type Example struct {
	ID         uuid.UUID
	Category   scene.Category
	SequenceID int

	Offset    int
	WindowLen int
	TargetFPS float64
	Indices   []int // source frame indices, one per frame below

	Flipped    bool
	SphereMask bool
	MaskedLoss bool

	Frames  []*image.RGBA
	Masks   []*image.Gray
	Camera  []scene.Pose   // normalized, one per frame
	Objects [][]scene.Pose // per object, normalized, one per frame
	Caption string
}

// Len is the number of frames (1 for image-only examples).
func (e *Example) Len() int {
	return len(e.Frames)
}

// Size returns the frame height and width.
func (e *Example) Size() (int, int) {
	if len(e.Frames) == 0 {
		return 0, 0
	}
	b := e.Frames[0].Bounds()
	return b.Dy(), b.Dx()
}

// VideoTensor lays the frames out as float32 [N, H, W, 3] in [-1, 1].
func (e *Example) VideoTensor() ([]float32, []int) {
	h, w := e.Size()
	n := len(e.Frames)
	out := make([]float32, 0, n*h*w*3)
	for _, f := range e.Frames {
		for y := 0; y < h; y++ {
			row := f.Pix[y*f.Stride : y*f.Stride+w*4]
			for x := 0; x < w; x++ {
				px := row[x*4 : x*4+3]
				out = append(out,
					float32(px[0])/127.5-1,
					float32(px[1])/127.5-1,
					float32(px[2])/127.5-1,
				)
			}
		}
	}
	return out, []int{n, h, w, 3}
}

// MaskTensor lays the masks out as float32 [N, H, W, 1] in [0, 1].
func (e *Example) MaskTensor() ([]float32, []int) {
	h, w := e.Size()
	n := len(e.Masks)
	out := make([]float32, 0, n*h*w)
	for _, m := range e.Masks {
		for y := 0; y < h; y++ {
			for _, v := range m.Pix[y*m.Stride : y*m.Stride+w] {
				out = append(out, float32(v)/255)
			}
		}
	}
	return out, []int{n, h, w, 1}
}

// PoseTensor lays the camera poses out as [N, 7].
func (e *Example) PoseTensor() ([]float32, []int) {
	return poseTensor(e.Camera), []int{len(e.Camera), 7}
}

// ObjectTensor lays the object poses out as [O, N, 7].
func (e *Example) ObjectTensor() ([]float32, []int) {
	var out []float32
	for _, traj := range e.Objects {
		out = append(out, poseTensor(traj)...)
	}
	return out, []int{len(e.Objects), len(e.Camera), 7}
}

// Release returns frames and masks to the shared pool. The example must not
// be used afterwards.
func (e *Example) Release() {
	for _, f := range e.Frames {
		system.PutImage(f)
	}
	for _, m := range e.Masks {
		system.PutMask(m)
	}
	e.Frames = nil
	e.Masks = nil
}

func poseTensor(ps []scene.Pose) []float32 {
	out := make([]float32, 0, len(ps)*7)
	for _, p := range ps {
		for _, v := range pose.Vector(p) {
			out = append(out, float32(v))
		}
	}
	return out
}
