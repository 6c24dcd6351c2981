// Package loader reads one catalogued scene: poses, environment and asset
// descriptors, and the frame and mask streams.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/trajclip/internal/scene"
	"github.com/ivlev/trajclip/internal/source"
)

const (
	defaultReadAttempts = 3
	defaultReadBackoff  = 50 * time.Millisecond
)

// SceneData is a loaded scene at the source frame rate. Frames and Masks
// are decoded lazily, only for the indices the assembler keeps.
type SceneData struct {
	Record      scene.Record
	Environment scene.Environment
	Camera      scene.Trajectory
	Objects     []scene.Object
	Frames      source.FrameSource
	Masks       source.FrameSource
	Caption     string
}

// NumFrames is the recorded trajectory length in source frames.
func (d *SceneData) NumFrames() int {
	return len(d.Camera)
}

func (d *SceneData) Close() error {
	return errors.Join(d.Frames.Close(), d.Masks.Close())
}

// Loader is safe for concurrent use; its metadata maps are never written
// after New.
type Loader struct {
	envs   map[string]scene.Environment
	assets map[string]scene.Asset
	log    zerolog.Logger

	attempts int
	backoff  time.Duration
}

func New(envMetaFile, assetMetaFile string, log zerolog.Logger) (*Loader, error) {
	envs, err := ReadEnvironments(envMetaFile)
	if err != nil {
		return nil, err
	}
	assets, err := ReadAssets(assetMetaFile)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("environments", len(envs)).Int("assets", len(assets)).Msg("metadata loaded")

	return &Loader{
		envs:     envs,
		assets:   assets,
		log:      log,
		attempts: defaultReadAttempts,
		backoff:  defaultReadBackoff,
	}, nil
}

// Assets exposes the asset table for caption and prompt building.
func (l *Loader) Assets() map[string]scene.Asset { return l.assets }

// Environments exposes the HDRI table.
func (l *Loader) Environments() map[string]scene.Environment { return l.envs }

// Load reads the scene behind rec. Missing files fail with
// scene.ErrMissingAsset, inconsistent streams with scene.ErrCorruptTrajectory.
func (l *Loader) Load(ctx context.Context, rec scene.Record) (*SceneData, error) {
	var lbl label
	if err := l.readYAML(ctx, rec.LabelFile, &lbl); err != nil {
		return nil, fmt.Errorf("%s label: %w", rec.Key(), err)
	}

	env, ok := l.envs[lbl.HDRI]
	if !ok {
		return nil, fmt.Errorf("%s hdri %q not in environment metadata: %w", rec.Key(), lbl.HDRI, scene.ErrMissingAsset)
	}

	camera, err := convertPoses(lbl.Camera)
	if err != nil {
		return nil, fmt.Errorf("%s camera: %v: %w", rec.Key(), err, scene.ErrCorruptTrajectory)
	}
	n := len(camera)
	if n == 0 {
		return nil, fmt.Errorf("%s has no camera poses: %w", rec.Key(), scene.ErrCorruptTrajectory)
	}

	if err := checkObjectCount(rec.Category, len(lbl.Objects)); err != nil {
		return nil, fmt.Errorf("%s: %w", rec.Key(), err)
	}

	var motions []string
	if rec.Category.Dynamic() {
		var meta trajMeta
		if err := l.readYAML(ctx, rec.TrajMetaFile, &meta); err != nil {
			return nil, fmt.Errorf("%s trajectory metadata: %w", rec.Key(), err)
		}
		for _, o := range meta.Objects {
			motions = append(motions, o.Description)
		}
	}

	objects := make([]scene.Object, 0, len(lbl.Objects))
	for i, lo := range lbl.Objects {
		asset, ok := l.assets[lo.Asset]
		if !ok {
			return nil, fmt.Errorf("%s object %d asset %q not in asset metadata: %w", rec.Key(), i, lo.Asset, scene.ErrMissingAsset)
		}
		traj, err := objectTrajectory(rec.Category, lo.Poses, n)
		if err != nil {
			return nil, fmt.Errorf("%s object %d: %w", rec.Key(), i, err)
		}
		obj := scene.Object{Asset: asset, Trajectory: traj}
		if i < len(motions) {
			obj.Motion = motions[i]
		}
		objects = append(objects, obj)
	}

	frames, err := source.NewImageSource(rec.FrameDir)
	if err != nil {
		return nil, fmt.Errorf("%s frames: %w", rec.Key(), err)
	}
	masks, err := source.NewImageSource(rec.MaskDir)
	if err != nil {
		return nil, fmt.Errorf("%s masks: %w", rec.Key(), err)
	}
	if frames.Len() != n || masks.Len() != n {
		return nil, fmt.Errorf("%s has %d camera poses, %d frames, %d masks: %w",
			rec.Key(), n, frames.Len(), masks.Len(), scene.ErrCorruptTrajectory)
	}
	if err := checkResolution(frames, masks); err != nil {
		return nil, fmt.Errorf("%s: %w", rec.Key(), err)
	}

	return &SceneData{
		Record:      rec,
		Environment: env,
		Camera:      camera,
		Objects:     objects,
		Frames:      frames,
		Masks:       masks,
		Caption:     lbl.Caption,
	}, nil
}

// checkResolution compares the first frame with the first mask. Later
// frames are checked by the assembler as they are decoded.
func checkResolution(frames, masks source.FrameSource) error {
	fw, fh, err := frames.Dimensions(0)
	if err != nil {
		return fmt.Errorf("frame 0: %w", err)
	}
	mw, mh, err := masks.Dimensions(0)
	if err != nil {
		return fmt.Errorf("mask 0: %w", err)
	}
	if fw != mw || fh != mh {
		return fmt.Errorf("frame is %dx%d, mask is %dx%d: %w", fw, fh, mw, mh, scene.ErrCorruptTrajectory)
	}
	return nil
}

func checkObjectCount(cat scene.Category, n int) error {
	switch {
	case !cat.Multi() && n != 1:
		return fmt.Errorf("%s scene needs exactly one object, got %d: %w", cat, n, scene.ErrCorruptTrajectory)
	case cat.Multi() && n < 2:
		return fmt.Errorf("%s scene needs at least two objects, got %d: %w", cat, n, scene.ErrCorruptTrajectory)
	}
	return nil
}

// objectTrajectory expands static objects to a constant trajectory and
// checks dynamic ones against the camera length.
func objectTrajectory(cat scene.Category, raw []scene.RawPose, n int) (scene.Trajectory, error) {
	poses, err := convertPoses(raw)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, scene.ErrCorruptTrajectory)
	}

	if !cat.Dynamic() {
		if len(poses) == 0 {
			return nil, fmt.Errorf("static object has no pose: %w", scene.ErrCorruptTrajectory)
		}
		traj := make(scene.Trajectory, n)
		for i := range traj {
			traj[i] = poses[0]
		}
		return traj, nil
	}

	if len(poses) != n {
		return nil, fmt.Errorf("%d object poses for %d frames: %w", len(poses), n, scene.ErrCorruptTrajectory)
	}
	return poses, nil
}

func convertPoses(raw []scene.RawPose) (scene.Trajectory, error) {
	out := make(scene.Trajectory, len(raw))
	for i, r := range raw {
		p, err := r.Pose()
		if err != nil {
			return nil, fmt.Errorf("pose %d: %v", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// readYAML retries transient read failures; a missing file is reported at once.
// A file that stays unreadable counts as a missing asset.
func (l *Loader) readYAML(ctx context.Context, path string, v any) error {
	var data []byte
	var err error
	for attempt := 1; attempt <= l.attempts; attempt++ {
		data, err = os.ReadFile(path)
		if err == nil {
			break
		}
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, scene.ErrMissingAsset)
		}
		if attempt == l.attempts {
			return fmt.Errorf("read %s: %v: %w", path, err, scene.ErrMissingAsset)
		}
		l.log.Warn().Err(err).Str("path", path).Int("attempt", attempt).Msg("read failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.backoff * time.Duration(attempt)):
		}
	}

	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %v: %w", path, err, scene.ErrCorruptTrajectory)
	}
	return nil
}
