// Package resample picks the source frames of a training clip: a window of
// time_duration seconds inside the trajectory and, within it,
// sample_n_frames frames evenly spaced at the target frame rate.
package resample

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/ivlev/trajclip/internal/config"
	"github.com/ivlev/trajclip/internal/scene"
)

var ErrInvalidParams = errors.New("invalid resample parameters")

// Clip is the outcome of one resampling draw.
type Clip struct {
	Offset    int     // first source frame of the window
	WindowLen int     // window length in source frames
	TargetFPS float64 // rate the clip is played back at
	Stride    float64 // source frames per clip frame, ori_fps / TargetFPS
	Indices   []int   // strictly increasing, inside [Offset, Offset+WindowLen)
}

// Span is the number of source frames from the first to the last index, inclusive.
func (c Clip) Span() int {
	if len(c.Indices) == 0 {
		return 0
	}
	return c.Indices[len(c.Indices)-1] - c.Indices[0] + 1
}

// WindowLen is ori_fps * time_duration rounded to whole source frames.
func WindowLen(p config.ClipParams) int {
	return p.Window()
}

// Resample draws a window offset and a target rate from rng and plans the
// clip. numFrames is the recorded trajectory length.
func Resample(rng *rand.Rand, numFrames int, p config.ClipParams) (Clip, error) {
	if err := validate(p); err != nil {
		return Clip{}, err
	}

	window := WindowLen(p)
	if numFrames < window {
		return Clip{}, fmt.Errorf("%d frames, window needs %d: %w", numFrames, window, scene.ErrWindowTooShort)
	}

	offset := rng.IntN(numFrames - window + 1)

	target := p.TgtFPSList[0]
	if p.AllowChangeTgt {
		target = p.TgtFPSList[rng.IntN(len(p.TgtFPSList))]
	}

	return Plan(offset, window, target, p)
}

// Plan is the deterministic half of Resample. Clip frame k sits at
// offset + round(k * stride); an index that rounds onto or before its
// predecessor moves to predecessor+1, so indices never repeat.
func Plan(offset, window int, target float64, p config.ClipParams) (Clip, error) {
	if err := validate(p); err != nil {
		return Clip{}, err
	}
	if target <= 0 {
		return Clip{}, fmt.Errorf("target fps %v: %w", target, ErrInvalidParams)
	}

	stride := p.OriFPS / target
	end := offset + window
	indices := make([]int, p.SampleNFrames)
	prev := offset - 1

	for k := range indices {
		idx := offset + int(math.Round(float64(k)*stride))
		if idx <= prev {
			idx = prev + 1
		}
		if idx >= end {
			return Clip{}, fmt.Errorf("%d frames at stride %.3f need %d source frames, window has %d: %w",
				p.SampleNFrames, stride, idx-offset+1, window, scene.ErrInsufficientFrames)
		}
		indices[k] = idx
		prev = idx
	}

	return Clip{
		Offset:    offset,
		WindowLen: window,
		TargetFPS: target,
		Stride:    stride,
		Indices:   indices,
	}, nil
}

func validate(p config.ClipParams) error {
	switch {
	case p.OriFPS <= 0:
		return fmt.Errorf("ori_fps %v: %w", p.OriFPS, ErrInvalidParams)
	case p.TimeDuration <= 0:
		return fmt.Errorf("time_duration %v: %w", p.TimeDuration, ErrInvalidParams)
	case p.SampleNFrames <= 0:
		return fmt.Errorf("sample_n_frames %d: %w", p.SampleNFrames, ErrInvalidParams)
	case len(p.TgtFPSList) == 0:
		return fmt.Errorf("empty tgt_fps_list: %w", ErrInvalidParams)
	case WindowLen(p) < 1:
		return fmt.Errorf("window of %v s at %v fps is empty: %w", p.TimeDuration, p.OriFPS, ErrInvalidParams)
	}
	for _, fps := range p.TgtFPSList {
		if fps <= 0 {
			return fmt.Errorf("target fps %v: %w", fps, ErrInvalidParams)
		}
	}
	return nil
}
