// Package engine drives sampling: scene draw, load, resample and assembly
// per batch slot, with retries and a bounded worker pool.
package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/trajclip/internal/assemble"
	"github.com/ivlev/trajclip/internal/catalogue"
	"github.com/ivlev/trajclip/internal/config"
	"github.com/ivlev/trajclip/internal/loader"
	"github.com/ivlev/trajclip/internal/prompt"
	"github.com/ivlev/trajclip/internal/resample"
	"github.com/ivlev/trajclip/internal/scene"
	"github.com/ivlev/trajclip/internal/system"
)

// SceneLoader is the part of loader.Loader the sampler needs.
type SceneLoader interface {
	Load(ctx context.Context, rec scene.Record) (*loader.SceneData, error)
}

// Sampler is safe for concurrent use. Every call gets its randomness from
// the RNG it is handed, never from shared state.
type Sampler struct {
	cfg     *config.Config
	cat     *catalogue.Catalogue
	loader  SceneLoader
	asm     *assemble.Assembler
	prompts *prompt.Builder
	clip    config.ClipParams
	workers int
	log     zerolog.Logger

	examples atomic.Int64
	retries  atomic.Int64
	elapsed  atomic.Int64
}

func New(cfg *config.Config, cat *catalogue.Catalogue, ld SceneLoader, asm *assemble.Assembler, pb *prompt.Builder, log zerolog.Logger) *Sampler {
	s := &Sampler{
		cfg:     cfg,
		cat:     cat,
		loader:  ld,
		asm:     asm,
		prompts: pb,
		clip:    cfg.Clip(),
		workers: cfg.Workers,
		log:     log,
	}
	if s.workers <= 0 {
		s.workers = system.DefaultWorkers(system.Probe(), exampleBytes(cfg))
	}
	log.Debug().Int("workers", s.workers).Msg("sampler ready")
	return s
}

// exampleBytes estimates the memory one in-flight example holds: RGBA frame
// and gray mask per clip frame, doubled for the decoded source images.
func exampleBytes(cfg *config.Config) uint64 {
	px := uint64(cfg.Height()) * uint64(cfg.Width())
	return px * 5 * uint64(cfg.Data.SampleNFrames) * 2
}

func (s *Sampler) Workers() int { return s.workers }

// Sample draws scenes until one yields an example. Per-scene failures are
// logged and retried with a new draw, up to max_retries attempts.
func (s *Sampler) Sample(ctx context.Context, rng *rand.Rand) (*assemble.Example, error) {
	var last error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.cat.Pick(rng)
		if err != nil {
			return nil, err
		}
		ex, err := s.build(ctx, rng, rec)
		if err == nil {
			s.examples.Add(1)
			return ex, nil
		}
		if !scene.Skippable(err) {
			return nil, err
		}
		s.retries.Add(1)
		s.log.Warn().Err(err).
			Str("category", rec.Category.String()).
			Int("seq_id", rec.SequenceID).
			Int("attempt", attempt).
			Msg("scene skipped")
		last = err
	}
	return nil, fmt.Errorf("no usable scene after %d attempts: %w", s.cfg.MaxRetries, last)
}

func (s *Sampler) build(ctx context.Context, rng *rand.Rand, rec scene.Record) (*assemble.Example, error) {
	sd, err := s.loader.Load(ctx, rec)
	if err != nil {
		return nil, err
	}
	defer sd.Close()

	clip, err := resample.Resample(rng, sd.NumFrames(), s.clip)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rec.Key(), err)
	}

	d := s.cfg.Data
	req := assemble.Request{
		Category:        rec.Category,
		Data:            sd,
		Clip:            clip,
		UseFlip:         d.UseFlip && rng.Float64() < d.FlipProb,
		UseSphereMask:   d.UseSphereMask,
		ApplyMaskedLoss: d.ApplyMaskedLoss,
		ImageOnly:       d.ImageOnly,
		Caption:         s.prompts.Caption(sd),
	}
	if d.ImageOnly {
		req.ImageIndex = rng.IntN(len(clip.Indices))
	}

	ex, err := s.asm.Assemble(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rec.Key(), err)
	}
	return ex, nil
}

// Batch fills size slots in parallel. Slot i always draws from
// SlotRNG(seed, rank, step, i), so a batch is reproducible regardless of
// scheduling. On error the examples already built are released.
func (s *Sampler) Batch(ctx context.Context, step, size int) ([]*assemble.Example, error) {
	start := time.Now()
	out := make([]*assemble.Example, size)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for slot := range size {
		g.Go(func() error {
			rng := SlotRNG(s.cfg.Seed, s.cfg.Rank, step, slot)
			ex, err := s.Sample(gctx, rng)
			if err != nil {
				return fmt.Errorf("step %d slot %d: %w", step, slot, err)
			}
			out[slot] = ex
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, ex := range out {
			if ex != nil {
				ex.Release()
			}
		}
		return nil, err
	}

	s.elapsed.Add(int64(time.Since(start)))
	s.log.Debug().Int("step", step).Int("size", size).Dur("took", time.Since(start)).Msg("batch ready")
	return out, nil
}

// SlotRNG derives an independent PCG stream for one batch slot.
func SlotRNG(seed uint64, rank, step, slot int) *rand.Rand {
	h := splitmix(seed)
	h = splitmix(h ^ uint64(rank))
	h = splitmix(h ^ uint64(step))
	h = splitmix(h ^ uint64(slot))
	return rand.New(rand.NewPCG(h, splitmix(h)))
}

func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
