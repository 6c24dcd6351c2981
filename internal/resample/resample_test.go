package resample

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/trajclip/internal/config"
	"github.com/ivlev/trajclip/internal/scene"
)

func params() config.ClipParams {
	return config.ClipParams{
		OriFPS:        16,
		TimeDuration:  4,
		TgtFPSList:    []float64{16, 8},
		SampleNFrames: 16,
	}
}

func seq(start, step, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = start + i*step
	}
	return out
}

func TestPlan_NativeRateIsContiguous(t *testing.T) {
	clip, err := Plan(0, 64, 16, params())
	require.NoError(t, err)
	assert.Equal(t, seq(0, 1, 16), clip.Indices)
	assert.Equal(t, 1.0, clip.Stride)
	assert.Equal(t, 64, clip.WindowLen)
	assert.Equal(t, 16, clip.Span())
}

func TestPlan_HalfRateStrideTwo(t *testing.T) {
	clip, err := Plan(0, 64, 8, params())
	require.NoError(t, err)
	assert.Equal(t, seq(0, 2, 16), clip.Indices)
	assert.Equal(t, 30, clip.Indices[15])
	assert.Equal(t, 31, clip.Span())
}

func TestResample_NativeWhenChangeDisallowed(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	// a 64-frame trajectory has exactly one 64-frame window
	clip, err := Resample(rng, 64, params())
	require.NoError(t, err)
	assert.Equal(t, 0, clip.Offset)
	assert.Equal(t, 16.0, clip.TargetFPS)
	assert.Equal(t, seq(0, 1, 16), clip.Indices)
}

func TestResample_ExactWindowAlwaysOffsetZero(t *testing.T) {
	p := params()
	p.AllowChangeTgt = true
	rng := rand.New(rand.NewPCG(5, 6))
	for i := 0; i < 200; i++ {
		clip, err := Resample(rng, 64, p)
		require.NoError(t, err)
		require.Equal(t, 0, clip.Offset)
	}
}

func TestResample_WindowTooShort(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	_, err := Resample(rng, 63, params())
	require.Error(t, err)
	assert.True(t, errors.Is(err, scene.ErrWindowTooShort))
}

func TestResample_InsufficientFrames(t *testing.T) {
	p := params()
	p.TimeDuration = 1 // 16-frame window
	p.TgtFPSList = []float64{4}
	p.AllowChangeTgt = true

	rng := rand.New(rand.NewPCG(1, 1))
	_, err := Resample(rng, 100, p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, scene.ErrInsufficientFrames))
}

func TestResample_PropertyIndicesValid(t *testing.T) {
	tests := []struct {
		name string
		p    config.ClipParams
	}{
		{"16fps window 4s", config.ClipParams{OriFPS: 16, TimeDuration: 4, TgtFPSList: []float64{16, 8, 4}, SampleNFrames: 16, AllowChangeTgt: true}},
		{"fractional strides", config.ClipParams{OriFPS: 30, TimeDuration: 3, TgtFPSList: []float64{30, 24, 12, 7}, SampleNFrames: 20, AllowChangeTgt: true}},
		{"single frame", config.ClipParams{OriFPS: 25, TimeDuration: 2, TgtFPSList: []float64{25, 5}, SampleNFrames: 1, AllowChangeTgt: true}},
	}

	rng := rand.New(rand.NewPCG(2024, 10))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window := WindowLen(tt.p)
			for i := 0; i < 500; i++ {
				numFrames := window + rng.IntN(100)
				clip, err := Resample(rng, numFrames, tt.p)
				require.NoError(t, err)

				require.Len(t, clip.Indices, tt.p.SampleNFrames)
				require.GreaterOrEqual(t, clip.Offset, 0)
				require.LessOrEqual(t, clip.Offset+window, numFrames)
				assert.Contains(t, tt.p.TgtFPSList, clip.TargetFPS)
				for k, idx := range clip.Indices {
					require.GreaterOrEqual(t, idx, clip.Offset)
					require.Less(t, idx, clip.Offset+window)
					if k > 0 {
						require.Greater(t, idx, clip.Indices[k-1])
					}
				}
			}
		})
	}
}

func TestPlan_FractionalStrideRounds(t *testing.T) {
	p := config.ClipParams{OriFPS: 30, TimeDuration: 2, TgtFPSList: []float64{30}, SampleNFrames: 5}
	clip, err := Plan(10, 60, 12, p) // stride 2.5
	require.NoError(t, err)
	// round half away from zero: 0, 2.5->3, 5, 7.5->8, 10
	assert.Equal(t, []int{10, 13, 15, 18, 20}, clip.Indices)
}

func TestPlan_DuplicateRoundingAdvances(t *testing.T) {
	p := config.ClipParams{OriFPS: 16, TimeDuration: 1, TgtFPSList: []float64{16}, SampleNFrames: 6}
	clip, err := Plan(3, 16, 24, p) // stride 2/3 would repeat indices
	require.NoError(t, err)
	assert.Equal(t, seq(3, 1, 6), clip.Indices)
}

func TestResample_AllowChangeCoversList(t *testing.T) {
	p := params()
	p.AllowChangeTgt = true
	rng := rand.New(rand.NewPCG(8, 8))
	seen := map[float64]int{}
	for i := 0; i < 400; i++ {
		clip, err := Resample(rng, 80, p)
		require.NoError(t, err)
		seen[clip.TargetFPS]++
	}
	assert.Len(t, seen, 2)
	assert.InDelta(t, 200, seen[8], 60)
}

func TestResample_Deterministic(t *testing.T) {
	p := params()
	p.AllowChangeTgt = true
	a, err := Resample(rand.New(rand.NewPCG(4, 2)), 300, p)
	require.NoError(t, err)
	b, err := Resample(rand.New(rand.NewPCG(4, 2)), 300, p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResample_InvalidParams(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	bad := []config.ClipParams{
		{OriFPS: 0, TimeDuration: 4, TgtFPSList: []float64{16}, SampleNFrames: 16},
		{OriFPS: 16, TimeDuration: 0, TgtFPSList: []float64{16}, SampleNFrames: 16},
		{OriFPS: 16, TimeDuration: 4, TgtFPSList: nil, SampleNFrames: 16},
		{OriFPS: 16, TimeDuration: 4, TgtFPSList: []float64{16, -8}, SampleNFrames: 16},
		{OriFPS: 16, TimeDuration: 4, TgtFPSList: []float64{16}, SampleNFrames: 0},
		{OriFPS: 1, TimeDuration: 0.1, TgtFPSList: []float64{1}, SampleNFrames: 1},
	}
	for _, p := range bad {
		_, err := Resample(rng, 100, p)
		assert.True(t, errors.Is(err, ErrInvalidParams), "params %+v: %v", p, err)
	}
}

func TestPlan_AgreesWithConfigSpan(t *testing.T) {
	p := config.ClipParams{OriFPS: 30, TimeDuration: 2, TgtFPSList: []float64{30}, SampleNFrames: 12}
	window := WindowLen(p)
	for _, target := range []float64{30, 24, 12, 7, 5, 3} {
		clip, err := Plan(0, window, target, p)
		if p.Span(target) > window {
			assert.True(t, errors.Is(err, scene.ErrInsufficientFrames), "target %v: got %v", target, err)
			continue
		}
		require.NoError(t, err, "target %v", target)
		assert.Equal(t, p.Span(target), clip.Span(), "target %v", target)
	}
}
