package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ivlev/trajclip/internal/scene"
)

var sample = scene.Pose{
	Translation: r3.Vec{X: 300, Y: -120, Z: 4500},
	Rotation:    quat.Number{Real: 0.5, Imag: 0.5, Jmag: -0.5, Kmag: 0.5},
}

func TestNormalize_ScalesTranslationOnly(t *testing.T) {
	got := Normalize(sample, 100)
	assert.Equal(t, r3.Vec{X: 3, Y: -1.2, Z: 45}, got.Translation)
	assert.Equal(t, sample.Rotation, got.Rotation)
}

func TestNormalize_UnitFactorIsIdentity(t *testing.T) {
	once := Normalize(sample, 100)
	assert.Equal(t, once, Normalize(once, 1))
}

func TestNormalize_TwiceEqualsSquaredFactor(t *testing.T) {
	const f = 7.0
	twice := Normalize(Normalize(sample, f), f)
	squared := Normalize(sample, f*f)
	assert.InDelta(t, squared.Translation.X, twice.Translation.X, 1e-12)
	assert.InDelta(t, squared.Translation.Y, twice.Translation.Y, 1e-12)
	assert.InDelta(t, squared.Translation.Z, twice.Translation.Z, 1e-12)
	assert.Equal(t, squared.Rotation, twice.Rotation)
}

func TestNormalizeAll_DoesNotMutateInput(t *testing.T) {
	in := []scene.Pose{sample, sample}
	out := NormalizeAll(in, 10)
	assert.Equal(t, 300.0, in[0].Translation.X)
	assert.Equal(t, 30.0, out[1].Translation.X)
}

func TestFlip_IsInvolution(t *testing.T) {
	assert.Equal(t, sample, Flip(Flip(sample)))

	flipped := Flip(sample)
	assert.Equal(t, -300.0, flipped.Translation.X)
	assert.Equal(t, sample.Translation.Y, flipped.Translation.Y)
	assert.Equal(t, sample.Translation.Z, flipped.Translation.Z)
}

func TestFlip_MirrorsRotation(t *testing.T) {
	// 90 degrees about Y turns +Z into +X; mirrored it must turn +Z into -X.
	s := math.Sqrt(0.5)
	p := scene.Pose{Rotation: quat.Number{Real: s, Jmag: s}}
	apply := func(q quat.Number, v r3.Vec) r3.Vec {
		out := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
		return r3.Vec{X: out.Imag, Y: out.Jmag, Z: out.Kmag}
	}

	z := r3.Vec{Z: 1}
	before := apply(p.Rotation, z)
	after := apply(Flip(p).Rotation, z)
	assert.InDelta(t, 1, before.X, 1e-12)
	assert.InDelta(t, -1, after.X, 1e-12)
	assert.InDelta(t, before.Z, after.Z, 1e-12)
}

func TestVector(t *testing.T) {
	assert.Equal(t, [7]float64{300, -120, 4500, 0.5, 0.5, -0.5, 0.5}, Vector(sample))
}
