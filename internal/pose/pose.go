// Package pose rescales and mirrors camera and object poses before they
// reach the network.
package pose

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ivlev/trajclip/internal/scene"
)

// Normalize divides the translation by factor and keeps the rotation.
// The factor is fixed per stream (camera or object), never per sample.
func Normalize(p scene.Pose, factor float64) scene.Pose {
	return scene.Pose{
		Translation: r3.Vec{
			X: p.Translation.X / factor,
			Y: p.Translation.Y / factor,
			Z: p.Translation.Z / factor,
		},
		Rotation: p.Rotation,
	}
}

// NormalizeAll applies Normalize to every pose and returns a new slice.
func NormalizeAll(ps []scene.Pose, factor float64) []scene.Pose {
	out := make([]scene.Pose, len(ps))
	for i, p := range ps {
		out[i] = Normalize(p, factor)
	}
	return out
}

// Flip mirrors a pose across the image's vertical centre line, matching a
// horizontal flip of the frames: X translation changes sign and the
// rotation is conjugated by the mirror, (w, x, y, z) -> (w, x, -y, -z).
// Flip(Flip(p)) == p.
func Flip(p scene.Pose) scene.Pose {
	return scene.Pose{
		Translation: r3.Vec{X: -p.Translation.X, Y: p.Translation.Y, Z: p.Translation.Z},
		Rotation: quat.Number{
			Real: p.Rotation.Real,
			Imag: p.Rotation.Imag,
			Jmag: -p.Rotation.Jmag,
			Kmag: -p.Rotation.Kmag,
		},
	}
}

// FlipAll applies Flip to every pose and returns a new slice.
func FlipAll(ps []scene.Pose) []scene.Pose {
	out := make([]scene.Pose, len(ps))
	for i, p := range ps {
		out[i] = Flip(p)
	}
	return out
}

// Vector lays a pose out as [tx ty tz qw qx qy qz].
func Vector(p scene.Pose) [7]float64 {
	return [7]float64{
		p.Translation.X, p.Translation.Y, p.Translation.Z,
		p.Rotation.Real, p.Rotation.Imag, p.Rotation.Jmag, p.Rotation.Kmag,
	}
}
