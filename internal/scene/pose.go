package scene

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pose places a camera or object at one frame.
type Pose struct {
	Translation r3.Vec
	Rotation    quat.Number // unit quaternion, w = Real
}

// Identity is the pose at the origin with no rotation.
var Identity = Pose{Rotation: quat.Number{Real: 1}}

// Trajectory is one pose per source frame.
type Trajectory []Pose

// RawPose is the on-disk form of a pose: t = [x, y, z], r = [w, x, y, z].
type RawPose struct {
	T []float64 `yaml:"t"`
	R []float64 `yaml:"r"`
}

// Pose validates the raw arrays and converts them.
func (r RawPose) Pose() (Pose, error) {
	if len(r.T) != 3 {
		return Pose{}, fmt.Errorf("translation needs 3 components, got %d", len(r.T))
	}
	if len(r.R) != 4 {
		return Pose{}, fmt.Errorf("rotation needs 4 components, got %d", len(r.R))
	}
	q := quat.Number{Real: r.R[0], Imag: r.R[1], Jmag: r.R[2], Kmag: r.R[3]}
	n := quat.Abs(q)
	if n == 0 {
		return Pose{}, fmt.Errorf("rotation quaternion has zero norm")
	}
	return Pose{
		Translation: r3.Vec{X: r.T[0], Y: r.T[1], Z: r.T[2]},
		Rotation:    quat.Scale(1/n, q),
	}, nil
}

// Raw converts back to the on-disk form.
func (p Pose) Raw() RawPose {
	return RawPose{
		T: []float64{p.Translation.X, p.Translation.Y, p.Translation.Z},
		R: []float64{p.Rotation.Real, p.Rotation.Imag, p.Rotation.Jmag, p.Rotation.Kmag},
	}
}
