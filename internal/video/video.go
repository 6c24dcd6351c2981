// Package video encodes sampled clips to MP4 through an ffmpeg subprocess.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
	"strconv"
)

type ClipEncoder interface {
	EncodeClip(ctx context.Context, frames []*image.RGBA, fps float64, videoPath string) error
}

// FFmpegEncoder pipes raw RGBA frames to ffmpeg over stdin, so nothing is
// staged on disk.
type FFmpegEncoder struct {
	Encoder string // libx264, h264_nvenc or h264_videotoolbox
	Quality int
}

func NewFFmpegEncoder(encoder string, quality int) *FFmpegEncoder {
	if encoder == "" {
		encoder = "libx264"
	}
	return &FFmpegEncoder{Encoder: encoder, Quality: quality}
}

func (e *FFmpegEncoder) EncodeClip(ctx context.Context, frames []*image.RGBA, fps float64, videoPath string) error {
	if len(frames) == 0 {
		return errors.New("no frames to encode")
	}
	if fps <= 0 {
		return fmt.Errorf("invalid frame rate %g", fps)
	}
	b := frames[0].Bounds()
	for i, f := range frames {
		if f.Bounds().Size() != b.Size() {
			return fmt.Errorf("frame %d is %v, want %v", i, f.Bounds().Size(), b.Size())
		}
	}

	args := e.buildFFmpegArgs(b.Dx(), b.Dy(), fps, videoPath)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	for i, f := range frames {
		if err := writeRawRGBA(stdin, f); err != nil {
			stdin.Close()
			cmd.Wait()
			return fmt.Errorf("write raw frame %d: %w", i, err)
		}
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w, output: %s", err, out.String())
	}
	return nil
}

func (e *FFmpegEncoder) buildFFmpegArgs(w, h int, fps float64, videoPath string) []string {
	rate := strconv.FormatFloat(fps, 'f', -1, 64)
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", w, h),
		"-framerate", rate,
		"-i", "-",
		// yuv420p needs even dimensions
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-r", rate,
		"-pix_fmt", "yuv420p",
		"-c:v", e.Encoder,
	}

	switch e.Encoder {
	case "h264_videotoolbox":
		args = append(args, "-b:v", fmt.Sprintf("%dk", e.Quality*100))
	case "h264_nvenc":
		args = append(args, "-cq", strconv.Itoa(e.Quality))
	default: // libx264
		args = append(args, "-crf", strconv.Itoa(e.Quality), "-preset", "medium")
	}
	return append(args, videoPath)
}

func writeRawRGBA(w io.Writer, img *image.RGBA) error {
	bounds := img.Bounds()
	if img.Stride != bounds.Dx()*4 || bounds.Min != (image.Point{}) {
		packed := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(packed, packed.Bounds(), img, bounds.Min, draw.Src)
		img = packed
	}
	_, err := w.Write(img.Pix)
	return err
}
