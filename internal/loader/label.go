package loader

import (
	"github.com/ivlev/trajclip/internal/scene"
)

// label is the per-scene trajectory file.
type label struct {
	HDRI    string          `yaml:"hdri"`
	Caption string          `yaml:"caption"`
	Camera  []scene.RawPose `yaml:"camera"`
	Objects []labelObject   `yaml:"objects"`
}

type labelObject struct {
	Asset string          `yaml:"asset"`
	Poses []scene.RawPose `yaml:"poses"`
}

// trajMeta is the per-scene trajectory metadata file.
type trajMeta struct {
	Objects []struct {
		Description string `yaml:"description"`
	} `yaml:"objects"`
}
