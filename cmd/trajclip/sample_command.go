package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ivlev/trajclip/internal/assemble"
	"github.com/ivlev/trajclip/internal/preview"
	"github.com/ivlev/trajclip/internal/system"
	"github.com/ivlev/trajclip/internal/video"
)

type sampleOptions struct {
	count     int
	batchSize int
	step      int
	outDir    string
	video     bool
	encoder   string
	quality   int
}

func newSampleCommand(ctx *commandContext) *cobra.Command {
	opts := sampleOptions{}

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Draw examples and write previews with a manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSample(cmd, ctx, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.count, "count", "n", 8, "Number of examples to draw")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 4, "Examples per batch")
	cmd.Flags().IntVar(&opts.step, "step", 0, "First training step to replay")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "previews", "Output directory")
	cmd.Flags().BoolVar(&opts.video, "video", false, "Also encode each clip to MP4 with ffmpeg")
	cmd.Flags().StringVar(&opts.encoder, "encoder", "", "ffmpeg H.264 encoder (default: best available)")
	cmd.Flags().IntVar(&opts.quality, "quality", 0, "Encoder quality (0 = per-encoder default)")
	return cmd
}

func runSample(cmd *cobra.Command, ctx *commandContext, opts sampleOptions) error {
	if opts.count <= 0 || opts.batchSize <= 0 {
		return fmt.Errorf("count and batch-size must be positive")
	}
	p, err := ctx.pipeline()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var enc video.ClipEncoder
	if opts.video {
		enc = newEncoder(opts.encoder, opts.quality)
	}

	out := cmd.OutOrStdout()
	manifest := &preview.Manifest{Seed: p.cfg.Seed, Rank: p.cfg.Rank}
	ctx.log.Info().Int("count", opts.count).Int("workers", p.sampler.Workers()).Str("out", opts.outDir).Msg("sampling")

	for step, done := opts.step, 0; done < opts.count; step++ {
		size := min(opts.batchSize, opts.count-done)
		batch, err := p.sampler.Batch(cmd.Context(), step, size)
		if err != nil {
			return err
		}
		for slot, ex := range batch {
			entry, err := writePreviews(cmd, ex, step, slot, opts.outDir, enc)
			ex.Release()
			if err != nil {
				for _, rest := range batch[slot+1:] {
					rest.Release()
				}
				return err
			}
			manifest.Examples = append(manifest.Examples, entry)
			fmt.Fprintf(out, "[>] %d/%d %s/%d %s\n", done+slot+1, opts.count, entry.Category, entry.SequenceID, entry.Caption)
		}
		done += size
	}

	manifestPath := filepath.Join(opts.outDir, "manifest.yaml")
	if err := preview.WriteManifest(manifest, manifestPath); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	fmt.Fprint(out, p.sampler.Stats().Report())
	fmt.Fprintf(out, "Manifest: %s\n", manifestPath)
	return nil
}

func writePreviews(cmd *cobra.Command, ex *assemble.Example, step, slot int, dir string, enc video.ClipEncoder) (preview.Entry, error) {
	entry := preview.NewEntry(ex, step, slot)
	base := fmt.Sprintf("s%05d_%02d", step, slot)

	entry.Sheet = base + "_sheet.png"
	if err := preview.WriteSheet(ex, filepath.Join(dir, entry.Sheet)); err != nil {
		return entry, fmt.Errorf("contact sheet %s: %w", base, err)
	}
	entry.Plot = base + "_traj.png"
	if err := preview.WritePlot(ex, filepath.Join(dir, entry.Plot)); err != nil {
		return entry, fmt.Errorf("trajectory plot %s: %w", base, err)
	}
	if enc != nil && ex.Len() > 1 {
		entry.Video = base + ".mp4"
		if err := enc.EncodeClip(cmd.Context(), ex.Frames, ex.TargetFPS, filepath.Join(dir, entry.Video)); err != nil {
			return entry, fmt.Errorf("encode %s: %w", base, err)
		}
	}
	return entry, nil
}

func newEncoder(name string, quality int) *video.FFmpegEncoder {
	if name == "" {
		name = system.GetBestH264Encoder()
	}
	if quality == 0 {
		switch name {
		case "h264_videotoolbox":
			quality = 75
		case "h264_nvenc":
			quality = 28
		default:
			quality = 23
		}
	}
	return video.NewFFmpegEncoder(name, quality)
}
