package source

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/ivlev/trajclip/internal/scene"
)

var frameExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

// ImageSource is a directory of per-frame image files in lexical order.
type ImageSource struct {
	dir   string
	paths []string
}

func NewImageSource(dir string) (*ImageSource, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("frame directory %s: %w", dir, scene.ErrMissingAsset)
		}
		return nil, fmt.Errorf("stat %s: %v: %w", dir, err, scene.ErrMissingAsset)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("frame path %s is not a directory: %w", dir, scene.ErrMissingAsset)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %v: %w", dir, err, scene.ErrMissingAsset)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if frameExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	return &ImageSource{dir: dir, paths: paths}, nil
}

func (s *ImageSource) Len() int {
	return len(s.paths)
}

// Path returns the file backing frame index.
func (s *ImageSource) Path(index int) string {
	return s.paths[index]
}

func (s *ImageSource) Dimensions(index int) (int, int, error) {
	f, err := s.open(index)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode header %s: %v: %w", s.paths[index], err, scene.ErrCorruptTrajectory)
	}
	return cfg.Width, cfg.Height, nil
}

func (s *ImageSource) Frame(index int) (image.Image, error) {
	f, err := s.open(index)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", s.paths[index], err, scene.ErrCorruptTrajectory)
	}
	return img, nil
}

func (s *ImageSource) Close() error {
	return nil
}

func (s *ImageSource) open(index int) (*os.File, error) {
	if index < 0 || index >= len(s.paths) {
		return nil, fmt.Errorf("frame %d out of range [0, %d) in %s: %w", index, len(s.paths), s.dir, scene.ErrCorruptTrajectory)
	}
	f, err := os.Open(s.paths[index])
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("frame %s: %w", s.paths[index], scene.ErrMissingAsset)
		}
		return nil, err
	}
	return f, nil
}
