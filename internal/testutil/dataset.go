// Package testutil writes small on-disk scene datasets for tests.
package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/trajclip/internal/scene"
)

// Dataset is a temporary dataset tree with metadata files already written.
type Dataset struct {
	VideoRoot     string
	MaskRoot      string
	LabelRoot     string
	TrajMetaRoot  string
	EnvMetaFile   string
	AssetMetaFile string
}

// SceneSpec controls what WriteScene puts on disk. Zero values pick
// consistent defaults so a test only states what it breaks.
type SceneSpec struct {
	Frames     int // video frames
	Masks      int // mask frames, default Frames, -1 for none
	CamPoses   int // default Frames
	ObjPoses   int // per object; default Frames (dynamic) or 1 (static)
	Objects    int // default 1 (single) or 2 (multi)
	Width      int // default 8
	Height     int // default 6
	MaskWidth  int // default Width
	HDRI       string
	Asset      string
	Caption    string
	NoTrajMeta bool
}

func NewDataset(t testing.TB) *Dataset {
	t.Helper()
	root := t.TempDir()
	d := &Dataset{
		VideoRoot:     filepath.Join(root, "videos"),
		MaskRoot:      filepath.Join(root, "masks"),
		LabelRoot:     filepath.Join(root, "labels"),
		TrajMetaRoot:  filepath.Join(root, "traj"),
		EnvMetaFile:   filepath.Join(root, "hdri.yaml"),
		AssetMetaFile: filepath.Join(root, "assets.yaml"),
	}
	writeYAML(t, d.EnvMetaFile, map[string]any{
		"studio": map[string]string{"description": "a bright photo studio"},
		"sunset": map[string]string{"description": "a field at sunset"},
	})
	writeYAML(t, d.AssetMetaFile, map[string]any{
		"car": map[string]string{"class": "car", "description": "a red sports car"},
		"dog": map[string]string{"class": "dog", "description": "a brown shaggy dog"},
	})
	return d
}

// FramePixel is the colour WriteScene paints at (x, y) of frame i. Red
// encodes the column, green the frame index, so both flips and frame
// selection are visible in tests.
func FramePixel(i, x, y int) color.RGBA {
	return color.RGBA{R: uint8(x * 20), G: uint8(i), B: uint8(y * 20), A: 255}
}

// WriteScene writes frames, masks, label and trajectory metadata for one scene.
func (d *Dataset) WriteScene(t testing.TB, cat scene.Category, id int, spec SceneSpec) {
	t.Helper()
	spec = withDefaults(cat, spec)
	name := strconv.Itoa(id)

	frameDir := filepath.Join(d.VideoRoot, cat.String(), name)
	mustMkdir(t, frameDir)
	for i := 0; i < spec.Frames; i++ {
		img := image.NewRGBA(image.Rect(0, 0, spec.Width, spec.Height))
		for y := 0; y < spec.Height; y++ {
			for x := 0; x < spec.Width; x++ {
				img.SetRGBA(x, y, FramePixel(i, x, y))
			}
		}
		writePNG(t, filepath.Join(frameDir, fmt.Sprintf("frame_%04d.png", i)), img)
	}

	if spec.Masks >= 0 {
		maskDir := filepath.Join(d.MaskRoot, cat.String(), name)
		mustMkdir(t, maskDir)
		for i := 0; i < spec.Masks; i++ {
			m := image.NewGray(image.Rect(0, 0, spec.MaskWidth, spec.Height))
			// one blob in the left half, 2x2 pixels
			for y := 1; y < 3; y++ {
				for x := 1; x < 3; x++ {
					m.SetGray(x, y, color.Gray{Y: 255})
				}
			}
			writePNG(t, filepath.Join(maskDir, fmt.Sprintf("mask_%04d.png", i)), m)
		}
	}

	label := map[string]any{"hdri": spec.HDRI}
	if spec.Caption != "" {
		label["caption"] = spec.Caption
	}
	var cam []scene.RawPose
	for i := 0; i < spec.CamPoses; i++ {
		cam = append(cam, scene.RawPose{T: []float64{float64(i), 2 * float64(i), 100}, R: []float64{1, 0, 0, 0}})
	}
	label["camera"] = cam
	var objects []map[string]any
	var motions []map[string]string
	for o := 0; o < spec.Objects; o++ {
		var poses []scene.RawPose
		for i := 0; i < spec.ObjPoses; i++ {
			poses = append(poses, scene.RawPose{T: []float64{10 * float64(o+1), float64(i), -50}, R: []float64{0, 0, 1, 0}})
		}
		objects = append(objects, map[string]any{"asset": spec.Asset, "poses": poses})
		motions = append(motions, map[string]string{"description": fmt.Sprintf("moves along path %d", o+1)})
	}
	label["objects"] = objects
	labelFile := filepath.Join(d.LabelRoot, cat.String(), name+".yaml")
	mustMkdir(t, filepath.Dir(labelFile))
	writeYAML(t, labelFile, label)

	if !spec.NoTrajMeta {
		metaFile := filepath.Join(d.TrajMetaRoot, cat.String(), name+".yaml")
		mustMkdir(t, filepath.Dir(metaFile))
		writeYAML(t, metaFile, map[string]any{"objects": motions})
	}
}

func withDefaults(cat scene.Category, s SceneSpec) SceneSpec {
	if s.Masks == 0 {
		s.Masks = s.Frames
	}
	if s.CamPoses == 0 {
		s.CamPoses = s.Frames
	}
	if s.ObjPoses == 0 {
		s.ObjPoses = 1
		if cat.Dynamic() {
			s.ObjPoses = s.Frames
		}
	}
	if s.Objects == 0 {
		s.Objects = 1
		if cat.Multi() {
			s.Objects = 2
		}
	}
	if s.Width == 0 {
		s.Width = 8
	}
	if s.Height == 0 {
		s.Height = 6
	}
	if s.MaskWidth == 0 {
		s.MaskWidth = s.Width
	}
	if s.HDRI == "" {
		s.HDRI = "studio"
	}
	if s.Asset == "" {
		s.Asset = "car"
	}
	return s
}

func mustMkdir(t testing.TB, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
}

func writePNG(t testing.TB, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func writeYAML(t testing.TB, path string, v any) {
	t.Helper()
	data, err := yaml.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
