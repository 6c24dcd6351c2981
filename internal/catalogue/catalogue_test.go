package catalogue

import (
	"errors"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/trajclip/internal/scene"
)

var layout = Layout{VideoRoot: "/v", MaskRoot: "/m", LabelRoot: "/l", TrajMetaRoot: "/t"}

func allMax(n int) map[scene.Category]int {
	return map[scene.Category]int{
		scene.SingleStatic: n, scene.SingleDynamic: n, scene.MultiStatic: n, scene.MultiDynamic: n,
	}
}

func TestNew_AllZeroIsExhausted(t *testing.T) {
	_, err := New(map[scene.Category]int{}, allMax(10), layout)
	require.Error(t, err)
	assert.True(t, errors.Is(err, scene.ErrCategoryExhausted))
}

func TestNew_RejectsBadCounts(t *testing.T) {
	_, err := New(map[scene.Category]int{scene.SingleStatic: -1}, allMax(10), layout)
	assert.Error(t, err)

	_, err = New(map[scene.Category]int{scene.MultiDynamic: 5}, map[scene.Category]int{}, layout)
	assert.Error(t, err)
}

func TestPickCategory_SingleCategory(t *testing.T) {
	c, err := New(map[scene.Category]int{scene.SingleDynamic: 120}, allMax(10), layout)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		require.Equal(t, scene.SingleDynamic, c.PickCategory(rng))
	}
	assert.Equal(t, 120, c.Len())
	assert.Equal(t, 1.0, c.Share(scene.SingleDynamic))
}

func TestPickCategory_MixtureConverges(t *testing.T) {
	counts := map[scene.Category]int{
		scene.SingleStatic:  10,
		scene.SingleDynamic: 40,
		scene.MultiStatic:   0,
		scene.MultiDynamic:  50,
	}
	c, err := New(counts, allMax(10), layout)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(42, 7))
	const draws = 200000
	seen := map[scene.Category]int{}
	for i := 0; i < draws; i++ {
		seen[c.PickCategory(rng)]++
	}

	assert.Zero(t, seen[scene.MultiStatic])
	for cat := range counts {
		got := float64(seen[cat]) / draws
		assert.InDelta(t, c.Share(cat), got, 0.01, "category %s", cat)
	}
}

func TestPickSequenceID_InRange(t *testing.T) {
	c, err := New(map[scene.Category]int{scene.MultiStatic: 1},
		map[scene.Category]int{scene.MultiStatic: 7}, layout)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(3, 3))
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		id := c.PickSequenceID(rng, scene.MultiStatic)
		require.GreaterOrEqual(t, id, 0)
		require.Less(t, id, 7)
		seen[id] = true
	}
	assert.Len(t, seen, 7)
}

func TestPickIsReproducible(t *testing.T) {
	c, err := New(allMax(3), allMax(100), layout)
	require.NoError(t, err)

	a := rand.New(rand.NewPCG(9, 9))
	b := rand.New(rand.NewPCG(9, 9))
	for i := 0; i < 50; i++ {
		ra, err := c.Pick(a)
		require.NoError(t, err)
		rb, err := c.Pick(b)
		require.NoError(t, err)
		assert.Equal(t, ra, rb)
	}
}

func TestRecord_Paths(t *testing.T) {
	c, err := New(allMax(1), allMax(10), layout)
	require.NoError(t, err)

	rec, err := c.Record(scene.SingleDynamic, 4)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/v", "single_dynamic", "4"), rec.FrameDir)
	assert.Equal(t, filepath.Join("/m", "single_dynamic", "4"), rec.MaskDir)
	assert.Equal(t, filepath.Join("/l", "single_dynamic", "4.yaml"), rec.LabelFile)
	assert.Equal(t, filepath.Join("/t", "single_dynamic", "4.yaml"), rec.TrajMetaFile)
	assert.Equal(t, "single_dynamic/4", rec.Key())

	_, err = c.Record(scene.SingleDynamic, 10)
	assert.Error(t, err)
}
