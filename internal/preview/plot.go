package preview

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ivlev/trajclip/internal/assemble"
	"github.com/ivlev/trajclip/internal/scene"
)

var (
	cameraColor  = color.RGBA{R: 30, G: 90, B: 200, A: 255}
	objectColors = []color.RGBA{
		{R: 220, G: 60, B: 40, A: 255},
		{R: 40, G: 160, B: 70, A: 255},
		{R: 200, G: 140, B: 20, A: 255},
		{R: 140, G: 60, B: 180, A: 255},
	}
)

// TrajectoryPlot draws the camera and object paths of an example from
// above (X against Z) in normalized units.
func TrajectoryPlot(ex *assemble.Example) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s/%d @ %g fps", ex.Category, ex.SequenceID, ex.TargetFPS)
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Z"

	if err := addPath(p, "camera", ex.Camera, cameraColor); err != nil {
		return nil, err
	}
	for i, traj := range ex.Objects {
		if err := addPath(p, fmt.Sprintf("object %d", i+1), traj, objectColors[i%len(objectColors)]); err != nil {
			return nil, err
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

func addPath(p *plot.Plot, label string, traj []scene.Pose, c color.Color) error {
	if len(traj) == 0 {
		return nil
	}
	pts := make(plotter.XYs, len(traj))
	for i, ps := range traj {
		pts[i] = plotter.XY{X: ps.Translation.X, Y: ps.Translation.Z}
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	line.Color = c
	line.Width = vg.Points(1)
	points.Color = c
	points.Radius = vg.Points(2)
	p.Add(line, points)
	p.Legend.Add(label, line)
	return nil
}

// WritePlot saves the trajectory plot; the format follows the extension.
func WritePlot(ex *assemble.Example, path string) error {
	p, err := TrajectoryPlot(ex)
	if err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}
