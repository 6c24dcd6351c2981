package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/trajclip/internal/assemble"
	"github.com/ivlev/trajclip/internal/catalogue"
	"github.com/ivlev/trajclip/internal/config"
	"github.com/ivlev/trajclip/internal/loader"
	"github.com/ivlev/trajclip/internal/prompt"
	"github.com/ivlev/trajclip/internal/scene"
	"github.com/ivlev/trajclip/internal/testutil"
)

type fixture struct {
	ds  *testutil.Dataset
	cfg *config.Config
	cat *catalogue.Catalogue
	ld  *loader.Loader
}

func newFixture(t *testing.T, written ...int) *fixture {
	t.Helper()
	ds := testutil.NewDataset(t)
	for _, id := range written {
		ds.WriteScene(t, scene.SingleDynamic, id, testutil.SceneSpec{Frames: 8})
	}

	cfg := &config.Config{
		Seed:       7,
		Workers:    2,
		MaxRetries: 64,
		Data: config.Data{
			VideoRoot:                   ds.VideoRoot,
			MaskRoot:                    ds.MaskRoot,
			LabelRoot:                   ds.LabelRoot,
			TrajMetaRoot:                ds.TrajMetaRoot,
			SampleSize:                  []int{6, 8},
			SampleNFrames:               4,
			OriFPS:                      4,
			TimeDuration:                2,
			TgtFPSList:                  []float64{4, 2},
			FlipProb:                    0.5,
			SphereMaskRadius:            0.25,
			ApplyMaskedLoss:             true,
			CamTranslationRescaleFactor: 1,
			ObjTranslationRescaleFactor: 1,
		},
	}
	counts := map[scene.Category]int{scene.SingleDynamic: 3}
	cat, err := catalogue.New(counts, counts, catalogue.Layout{
		VideoRoot: ds.VideoRoot, MaskRoot: ds.MaskRoot, LabelRoot: ds.LabelRoot, TrajMetaRoot: ds.TrajMetaRoot,
	})
	require.NoError(t, err)
	ld, err := loader.New(ds.EnvMetaFile, ds.AssetMetaFile, zerolog.Nop())
	require.NoError(t, err)
	return &fixture{ds: ds, cfg: cfg, cat: cat, ld: ld}
}

func (f *fixture) sampler(t *testing.T, ld SceneLoader) *Sampler {
	t.Helper()
	if ld == nil {
		ld = f.ld
	}
	asm, err := assemble.New(assemble.ParamsFromConfig(f.cfg))
	require.NoError(t, err)
	return New(f.cfg, f.cat, ld, asm, prompt.New(f.ld.Assets(), f.ld.Environments()), zerolog.Nop())
}

func release(batch []*assemble.Example) {
	for _, ex := range batch {
		ex.Release()
	}
}

func TestBatch_IsReproducible(t *testing.T) {
	f := newFixture(t, 0, 1, 2)
	f.cfg.Data.UseFlip = true

	a, err := f.sampler(t, nil).Batch(context.Background(), 3, 6)
	require.NoError(t, err)
	defer release(a)
	b, err := f.sampler(t, nil).Batch(context.Background(), 3, 6)
	require.NoError(t, err)
	defer release(b)

	require.Len(t, a, 6)
	for i := range a {
		assert.Equal(t, a[i].SequenceID, b[i].SequenceID, "slot %d", i)
		assert.Equal(t, a[i].Indices, b[i].Indices, "slot %d", i)
		assert.Equal(t, a[i].Flipped, b[i].Flipped, "slot %d", i)
		assert.Equal(t, a[i].Camera, b[i].Camera, "slot %d", i)
		assert.NotEqual(t, a[i].ID, b[i].ID)
		assert.Equal(t, 4, a[i].Len())
		assert.Equal(t, scene.SingleDynamic, a[i].Category)
	}
}

func TestSample_CaptionAndClip(t *testing.T) {
	f := newFixture(t, 0, 1, 2)
	ex, err := f.sampler(t, nil).Sample(context.Background(), SlotRNG(1, 0, 0, 0))
	require.NoError(t, err)
	defer ex.Release()

	assert.Equal(t, "a red sports car moves along path 1, a bright photo studio", ex.Caption)
	assert.Equal(t, 8, ex.WindowLen)
	assert.Equal(t, 4.0, ex.TargetFPS)
	assert.Equal(t, []int{0, 1, 2, 3}, ex.Indices)
	assert.False(t, ex.Flipped)
}

func TestSample_RetriesPastBrokenScenes(t *testing.T) {
	f := newFixture(t, 1)
	s := f.sampler(t, nil)

	ex, err := s.Sample(context.Background(), SlotRNG(9, 0, 0, 0))
	require.NoError(t, err)
	defer ex.Release()

	assert.Equal(t, 1, ex.SequenceID)
	assert.Equal(t, int64(1), s.Stats().Examples)
}

func TestSample_SkipsUnreadableLabels(t *testing.T) {
	f := newFixture(t, 0, 1, 2)
	for _, id := range []int{0, 2} {
		path := filepath.Join(f.ds.LabelRoot, scene.SingleDynamic.String(), fmt.Sprintf("%d.yaml", id))
		require.NoError(t, os.Remove(path))
		require.NoError(t, os.Mkdir(path, 0755))
	}
	s := f.sampler(t, nil)

	for seed := uint64(0); seed < 6; seed++ {
		ex, err := s.Sample(context.Background(), SlotRNG(seed, 0, 0, 0))
		require.NoError(t, err, "seed %d", seed)
		assert.Equal(t, 1, ex.SequenceID)
		ex.Release()
	}
}

func TestSample_GivesUp(t *testing.T) {
	f := newFixture(t)
	f.cfg.MaxRetries = 3
	s := f.sampler(t, nil)

	_, err := s.Sample(context.Background(), SlotRNG(9, 0, 0, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, scene.ErrMissingAsset)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int64(3), s.Stats().Retries)
}

type failingLoader struct {
	err   error
	calls atomic.Int64
}

func (l *failingLoader) Load(context.Context, scene.Record) (*loader.SceneData, error) {
	l.calls.Add(1)
	return nil, l.err
}

func TestSample_StopsOnFatalError(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("disk on fire")
	ld := &failingLoader{err: boom}

	_, err := f.sampler(t, ld).Sample(context.Background(), SlotRNG(1, 0, 0, 0))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), ld.calls.Load())
}

func TestSample_TooShortIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.ds.WriteScene(t, scene.SingleDynamic, 0, testutil.SceneSpec{Frames: 5})
	f.cfg.MaxRetries = 2

	_, err := f.sampler(t, nil).Sample(context.Background(), SlotRNG(1, 0, 0, 0))
	require.Error(t, err)
	assert.True(t, scene.Skippable(err), "got %v", err)
}

func TestBatch_Error(t *testing.T) {
	f := newFixture(t)
	f.cfg.MaxRetries = 1

	out, err := f.sampler(t, nil).Batch(context.Background(), 0, 4)
	assert.Nil(t, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 0 slot")
}

func TestBatch_Options(t *testing.T) {
	t.Run("always flip", func(t *testing.T) {
		f := newFixture(t, 0, 1, 2)
		f.cfg.Data.UseFlip = true
		f.cfg.Data.FlipProb = 1
		batch, err := f.sampler(t, nil).Batch(context.Background(), 0, 4)
		require.NoError(t, err)
		defer release(batch)
		for _, ex := range batch {
			assert.True(t, ex.Flipped)
			assert.LessOrEqual(t, ex.Camera[len(ex.Camera)-1].Translation.X, 0.0)
		}
	})
	t.Run("flip disabled", func(t *testing.T) {
		f := newFixture(t, 0, 1, 2)
		f.cfg.Data.FlipProb = 1
		batch, err := f.sampler(t, nil).Batch(context.Background(), 0, 4)
		require.NoError(t, err)
		defer release(batch)
		for _, ex := range batch {
			assert.False(t, ex.Flipped)
		}
	})
	t.Run("image only", func(t *testing.T) {
		f := newFixture(t, 0, 1, 2)
		f.cfg.Data.ImageOnly = true
		batch, err := f.sampler(t, nil).Batch(context.Background(), 0, 3)
		require.NoError(t, err)
		defer release(batch)
		for _, ex := range batch {
			assert.Equal(t, 1, ex.Len())
			assert.Len(t, ex.Camera, 1)
		}
	})
}

func TestSlotRNG(t *testing.T) {
	first := func(seed uint64, rank, step, slot int) uint64 {
		return SlotRNG(seed, rank, step, slot).Uint64()
	}
	assert.Equal(t, first(1, 0, 2, 3), first(1, 0, 2, 3))
	assert.NotEqual(t, first(1, 0, 2, 3), first(1, 0, 2, 4))
	assert.NotEqual(t, first(1, 0, 2, 3), first(1, 1, 2, 3))
	assert.NotEqual(t, first(1, 0, 2, 3), first(1, 0, 3, 3))
	assert.NotEqual(t, first(1, 0, 2, 3), first(2, 0, 2, 3))
}

func TestStatsReport(t *testing.T) {
	st := Stats{Examples: 10, Retries: 2, Elapsed: 2e9}
	assert.Equal(t, 5.0, st.Rate())
	assert.Contains(t, st.Report(), "Examples: 10")
	assert.Zero(t, Stats{}.Rate())
}
