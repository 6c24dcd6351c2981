// Package preview writes human-checkable artefacts for sampled examples:
// a YAML manifest, contact sheets and trajectory plots.
package preview

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/trajclip/internal/assemble"
	"github.com/ivlev/trajclip/internal/pose"
)

const ManifestVersion = "1.0"

// Manifest lists every example a sampling run produced
type Manifest struct {
	Version  string  `yaml:"version"`
	Seed     uint64  `yaml:"seed"`
	Rank     int     `yaml:"rank"`
	Examples []Entry `yaml:"examples"`
}

// Entry is one example and the files written for it
type Entry struct {
	ID         string  `yaml:"id"`
	Step       int     `yaml:"step"`
	Slot       int     `yaml:"slot"`
	Category   string  `yaml:"category"`
	SequenceID int     `yaml:"seq_id"`
	Offset     int     `yaml:"offset"`
	Window     int     `yaml:"window"`
	TargetFPS  float64 `yaml:"target_fps"`
	Flipped    bool    `yaml:"flipped"`
	Caption    string  `yaml:"caption"`
	Frames     []Frame `yaml:"frames"`

	Sheet string `yaml:"sheet,omitempty"`
	Plot  string `yaml:"plot,omitempty"`
	Video string `yaml:"video,omitempty"`
}

// Frame is one kept source frame with its normalized camera pose
type Frame struct {
	Index  int        `yaml:"index"`
	Time   float64    `yaml:"time"` // seconds from clip start at the target rate
	Camera [7]float64 `yaml:"camera,flow"`
}

func NewEntry(ex *assemble.Example, step, slot int) Entry {
	e := Entry{
		ID:         ex.ID.String(),
		Step:       step,
		Slot:       slot,
		Category:   ex.Category.String(),
		SequenceID: ex.SequenceID,
		Offset:     ex.Offset,
		Window:     ex.WindowLen,
		TargetFPS:  ex.TargetFPS,
		Flipped:    ex.Flipped,
		Caption:    ex.Caption,
	}
	for k, idx := range ex.Indices {
		f := Frame{Index: idx}
		if ex.TargetFPS > 0 {
			f.Time = float64(k) / ex.TargetFPS
		}
		if k < len(ex.Camera) {
			f.Camera = pose.Vector(ex.Camera[k])
		}
		e.Frames = append(e.Frames, f)
	}
	return e
}

// WriteManifest writes a manifest to a YAML file
func WriteManifest(m *Manifest, path string) error {
	if m.Version == "" {
		m.Version = ManifestVersion
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadManifest reads a manifest from a YAML file
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
