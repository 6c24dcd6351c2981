// Package assemble turns a loaded scene and a resampled clip into a training
// example: resized frames, loss masks and normalized poses.
package assemble

import (
	"context"
	"fmt"
	"image"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/ivlev/trajclip/internal/analyzer"
	"github.com/ivlev/trajclip/internal/config"
	"github.com/ivlev/trajclip/internal/loader"
	"github.com/ivlev/trajclip/internal/pose"
	"github.com/ivlev/trajclip/internal/resample"
	"github.com/ivlev/trajclip/internal/scene"
	"github.com/ivlev/trajclip/internal/system"
)

// Params are the per-run assembly settings.
type Params struct {
	Height, Width    int
	CamFactor        float64
	ObjFactor        float64
	SphereMaskRadius float64
}

// ParamsFromConfig reads the assembly settings out of the data section.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		Height:           cfg.Height(),
		Width:            cfg.Width(),
		CamFactor:        cfg.Data.CamTranslationRescaleFactor,
		ObjFactor:        cfg.Data.ObjTranslationRescaleFactor,
		SphereMaskRadius: cfg.Data.SphereMaskRadius,
	}
}

// Request describes one example to build.
type Request struct {
	Category        scene.Category
	Data            *loader.SceneData
	Clip            resample.Clip
	UseFlip         bool
	UseSphereMask   bool
	ApplyMaskedLoss bool
	ImageOnly       bool
	ImageIndex      int // position within Clip.Indices, used with ImageOnly
	Caption         string
}

type Assembler struct {
	params   Params
	detector *analyzer.MaskDetector
}

func New(p Params) (*Assembler, error) {
	if p.Height <= 0 || p.Width <= 0 {
		return nil, fmt.Errorf("sample size must be positive, got %dx%d", p.Height, p.Width)
	}
	if p.CamFactor <= 0 || p.ObjFactor <= 0 {
		return nil, fmt.Errorf("rescale factors must be positive, got cam=%g obj=%g", p.CamFactor, p.ObjFactor)
	}
	return &Assembler{params: p, detector: analyzer.NewMaskDetector()}, nil
}

// Assemble decodes the clip's frames and masks and builds the example. On
// error every buffer taken so far is released.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Example, error) {
	if req.Data == nil {
		return nil, fmt.Errorf("assemble: nil scene data")
	}
	indices := req.Clip.Indices
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: empty clip", scene.ErrInsufficientFrames)
	}
	if req.ImageOnly {
		if req.ImageIndex < 0 || req.ImageIndex >= len(indices) {
			return nil, fmt.Errorf("image index %d outside clip of %d frames", req.ImageIndex, len(indices))
		}
		indices = []int{indices[req.ImageIndex]}
	}
	for _, idx := range indices {
		if idx < 0 || idx >= req.Data.NumFrames() {
			return nil, fmt.Errorf("%w: index %d beyond %d frames", scene.ErrInsufficientFrames, idx, req.Data.NumFrames())
		}
	}

	ex := &Example{
		ID:         uuid.New(),
		Category:   req.Category,
		SequenceID: req.Data.Record.SequenceID,
		Offset:     req.Clip.Offset,
		WindowLen:  req.Clip.WindowLen,
		TargetFPS:  req.Clip.TargetFPS,
		Indices:    append([]int(nil), indices...),
		Flipped:    req.UseFlip,
		SphereMask: req.UseSphereMask,
		MaskedLoss: req.ApplyMaskedLoss,
		Caption:    req.Caption,
	}

	rect := image.Rect(0, 0, a.params.Width, a.params.Height)
	for _, idx := range indices {
		if err := ctx.Err(); err != nil {
			ex.Release()
			return nil, err
		}
		frame, mask, err := a.decode(req.Data, idx, rect)
		if err != nil {
			ex.Release()
			return nil, err
		}
		if req.UseFlip {
			flipRGBA(frame)
			flipGray(mask)
		}
		switch {
		case !req.ApplyMaskedLoss:
			fillGray(mask, 255)
		case req.UseSphereMask:
			sphereMask(mask, a.detector, a.params.SphereMaskRadius)
		}
		ex.Frames = append(ex.Frames, frame)
		ex.Masks = append(ex.Masks, mask)
	}

	ex.Camera = a.poses(gather(req.Data.Camera, indices), a.params.CamFactor, req.UseFlip)
	for _, obj := range req.Data.Objects {
		ex.Objects = append(ex.Objects, a.poses(gather(obj.Trajectory, indices), a.params.ObjFactor, req.UseFlip))
	}
	return ex, nil
}

func (a *Assembler) decode(d *loader.SceneData, idx int, rect image.Rectangle) (*image.RGBA, *image.Gray, error) {
	src, err := d.Frames.Frame(idx)
	if err != nil {
		return nil, nil, err
	}
	msrc, err := d.Masks.Frame(idx)
	if err != nil {
		return nil, nil, err
	}
	if src.Bounds().Size() != msrc.Bounds().Size() {
		return nil, nil, fmt.Errorf("%w: frame %d is %v but mask is %v",
			scene.ErrCorruptTrajectory, idx, src.Bounds().Size(), msrc.Bounds().Size())
	}

	frame := system.GetImage(rect)
	resizeInto(frame, src, draw.CatmullRom)
	mask := system.GetMask(rect)
	resizeInto(mask, msrc, draw.NearestNeighbor)
	return frame, mask, nil
}

func (a *Assembler) poses(ps []scene.Pose, factor float64, flip bool) []scene.Pose {
	out := pose.NormalizeAll(ps, factor)
	if flip {
		out = pose.FlipAll(out)
	}
	return out
}

func gather(traj scene.Trajectory, indices []int) []scene.Pose {
	out := make([]scene.Pose, len(indices))
	for i, idx := range indices {
		out[i] = traj[idx]
	}
	return out
}
