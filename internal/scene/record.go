package scene

import "fmt"

// Record identifies one catalogued scene and where its files live.
// Records are values; nothing mutates them after the catalogue builds them.
type Record struct {
	Category   Category
	SequenceID int

	FrameDir     string
	MaskDir      string
	LabelFile    string
	TrajMetaFile string
}

// Key is the category/sequence pair used in logs and error messages.
func (r Record) Key() string {
	return fmt.Sprintf("%s/%d", r.Category, r.SequenceID)
}

// Environment describes the HDRI lighting a scene was rendered under.
type Environment struct {
	Name        string `yaml:"-"`
	Description string `yaml:"description"`
}

// Asset describes one object model placed in a scene.
type Asset struct {
	Name        string `yaml:"-"`
	Class       string `yaml:"class"`
	Description string `yaml:"description"`
}

// Object is an asset together with its trajectory in a loaded scene.
type Object struct {
	Asset      Asset
	Motion     string // trajectory description, empty for static scenes
	Trajectory Trajectory
}
