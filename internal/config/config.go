package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"

	"github.com/ivlev/trajclip/internal/scene"
)

type Config struct {
	Seed       uint64     `mapstructure:"seed"`
	Rank       int        `mapstructure:"rank"`
	Workers    int        `mapstructure:"workers"`
	MaxRetries int        `mapstructure:"max_retries"`
	LogLevel   string     `mapstructure:"log_level"`
	LogFormat  string     `mapstructure:"log_format"`
	Data       Data       `mapstructure:"data"`
	Validation Validation `mapstructure:"validation"`
}

// Data mirrors the train_data.params block of the training config.
type Data struct {
	VideoRoot     string `mapstructure:"video_root"`
	LabelRoot     string `mapstructure:"label_root"`
	MaskRoot      string `mapstructure:"mask_root"`
	TrajMetaRoot  string `mapstructure:"traj_meta_root"`
	EnvMetaFile   string `mapstructure:"env_meta_file"`
	AssetMetaFile string `mapstructure:"asset_meta_file"`

	SampleSize     []int     `mapstructure:"sample_size"` // [H, W]
	SampleNFrames  int       `mapstructure:"sample_n_frames"`
	OriFPS         float64   `mapstructure:"ori_fps"`
	TimeDuration   float64   `mapstructure:"time_duration"`
	TgtFPSList     []float64 `mapstructure:"tgt_fps_list"`
	AllowChangeTgt bool      `mapstructure:"allow_change_tgt"`

	UseFlip          bool    `mapstructure:"use_flip"`
	FlipProb         float64 `mapstructure:"flip_prob"`
	UseSphereMask    bool    `mapstructure:"use_sphere_mask"`
	SphereMaskRadius float64 `mapstructure:"sphere_mask_radius"`
	ApplyMaskedLoss  bool    `mapstructure:"apply_masked_loss"`
	ImageOnly        bool    `mapstructure:"image_only"`

	CamTranslationRescaleFactor float64 `mapstructure:"cam_translation_rescale_factor"`
	ObjTranslationRescaleFactor float64 `mapstructure:"obj_translation_rescale_factor"`

	SingleStaticNum  int            `mapstructure:"single_static_num"`
	SingleDynamicNum int            `mapstructure:"single_dynamic_num"`
	MultiStaticNum   int            `mapstructure:"multi_static_num"`
	MultiDynamicNum  int            `mapstructure:"multi_dynamic_num"`
	SeqIDMaxMap      map[string]int `mapstructure:"seq_id_max_map"`
}

type Validation struct {
	Num       int      `mapstructure:"num"`
	MaxObjNum int      `mapstructure:"max_obj_num"`
	Prompts   []string `mapstructure:"prompts"`
}

// ClipParams is what the temporal resampler needs from the config.
type ClipParams struct {
	OriFPS         float64
	TimeDuration   float64
	TgtFPSList     []float64
	SampleNFrames  int
	AllowChangeTgt bool
}

// Window is ori_fps * time_duration rounded to whole source frames.
func (p ClipParams) Window() int {
	return int(math.Round(p.OriFPS * p.TimeDuration))
}

// Span is how many source frames sample_n_frames clip frames cover at
// target, first to last inclusive. Indices that round onto their
// predecessor move one frame forward.
func (p ClipParams) Span(target float64) int {
	stride := p.OriFPS / target
	last := -1
	for k := 0; k < p.SampleNFrames; k++ {
		idx := int(math.Round(float64(k) * stride))
		if idx <= last {
			idx = last + 1
		}
		last = idx
	}
	return last + 1
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("seed", 42)
	v.SetDefault("rank", 0)
	v.SetDefault("workers", 0)
	v.SetDefault("max_retries", 16)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	v.SetDefault("data.sample_size", []int{256, 384})
	v.SetDefault("data.sample_n_frames", 16)
	v.SetDefault("data.ori_fps", 16.0)
	v.SetDefault("data.time_duration", 4.0)
	v.SetDefault("data.tgt_fps_list", []float64{16, 8})
	v.SetDefault("data.allow_change_tgt", false)
	v.SetDefault("data.use_flip", false)
	v.SetDefault("data.flip_prob", 0.5)
	v.SetDefault("data.use_sphere_mask", false)
	v.SetDefault("data.sphere_mask_radius", 0.25)
	v.SetDefault("data.apply_masked_loss", true)
	v.SetDefault("data.image_only", false)
	v.SetDefault("data.cam_translation_rescale_factor", 1.0)
	v.SetDefault("data.obj_translation_rescale_factor", 1.0)

	v.SetDefault("validation.num", 8)
	v.SetDefault("validation.max_obj_num", 2)
}

// Load reads a YAML config file. TRAJCLIP_* environment variables override
// file values (data.ori_fps -> TRAJCLIP_DATA_ORI_FPS).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TRAJCLIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every problem at once so a broken config is fixed in one pass.
func (c *Config) Validate() error {
	var errs []error
	d := c.Data

	for name, path := range map[string]string{
		"data.video_root":      d.VideoRoot,
		"data.label_root":      d.LabelRoot,
		"data.mask_root":       d.MaskRoot,
		"data.traj_meta_root":  d.TrajMetaRoot,
		"data.env_meta_file":   d.EnvMetaFile,
		"data.asset_meta_file": d.AssetMetaFile,
	} {
		if strings.TrimSpace(path) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	if len(d.SampleSize) != 2 || d.SampleSize[0] <= 0 || d.SampleSize[1] <= 0 {
		errs = append(errs, fmt.Errorf("data.sample_size must be [H, W] with positive values, got %v", d.SampleSize))
	}
	if d.SampleNFrames <= 0 {
		errs = append(errs, fmt.Errorf("data.sample_n_frames must be positive"))
	}
	if d.OriFPS <= 0 {
		errs = append(errs, fmt.Errorf("data.ori_fps must be positive"))
	}
	if d.TimeDuration <= 0 {
		errs = append(errs, fmt.Errorf("data.time_duration must be positive"))
	}
	if len(d.TgtFPSList) == 0 {
		errs = append(errs, fmt.Errorf("data.tgt_fps_list must not be empty"))
	}
	for _, fps := range d.TgtFPSList {
		if fps <= 0 {
			errs = append(errs, fmt.Errorf("data.tgt_fps_list entries must be positive, got %v", fps))
		}
	}
	if !d.AllowChangeTgt && len(d.TgtFPSList) > 0 && d.TgtFPSList[0] != d.OriFPS {
		errs = append(errs, fmt.Errorf("data.tgt_fps_list[0] (%v) must equal data.ori_fps (%v) when allow_change_tgt is false", d.TgtFPSList[0], d.OriFPS))
	}
	if d.OriFPS > 0 && d.TimeDuration > 0 && d.SampleNFrames > 0 {
		errs = append(errs, checkClip(c.Clip())...)
	}
	if d.CamTranslationRescaleFactor <= 0 || d.ObjTranslationRescaleFactor <= 0 {
		errs = append(errs, fmt.Errorf("translation rescale factors must be positive"))
	}
	if d.FlipProb < 0 || d.FlipProb > 1 {
		errs = append(errs, fmt.Errorf("data.flip_prob must be within [0, 1]"))
	}
	if d.SphereMaskRadius <= 0 || d.SphereMaskRadius > 1 {
		errs = append(errs, fmt.Errorf("data.sphere_mask_radius must be within (0, 1]"))
	}
	for name := range d.SeqIDMaxMap {
		if _, err := scene.ParseCategory(name); err != nil {
			errs = append(errs, fmt.Errorf("data.seq_id_max_map: %w", err))
		}
	}
	if c.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("max_retries must be positive"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative"))
	}

	return errors.Join(errs...)
}

// checkClip rejects clip settings no trajectory can satisfy.
func checkClip(p ClipParams) []error {
	window := p.Window()
	if p.SampleNFrames > window {
		return []error{fmt.Errorf("data.sample_n_frames (%d) exceeds the %d-frame window of data.time_duration at data.ori_fps",
			p.SampleNFrames, window)}
	}
	var errs []error
	for _, fps := range p.TgtFPSList {
		if fps <= 0 {
			continue
		}
		if span := p.Span(fps); span > window {
			errs = append(errs, fmt.Errorf("data.tgt_fps_list entry %v needs %d source frames for %d clip frames, window has %d",
				fps, span, p.SampleNFrames, window))
		}
	}
	return errs
}

// Clip returns the resampler parameters.
func (c *Config) Clip() ClipParams {
	return ClipParams{
		OriFPS:         c.Data.OriFPS,
		TimeDuration:   c.Data.TimeDuration,
		TgtFPSList:     append([]float64(nil), c.Data.TgtFPSList...),
		SampleNFrames:  c.Data.SampleNFrames,
		AllowChangeTgt: c.Data.AllowChangeTgt,
	}
}

// Counts returns the per-category mixture counts.
func (c *Config) Counts() map[scene.Category]int {
	return map[scene.Category]int{
		scene.SingleStatic:  c.Data.SingleStaticNum,
		scene.SingleDynamic: c.Data.SingleDynamicNum,
		scene.MultiStatic:   c.Data.MultiStaticNum,
		scene.MultiDynamic:  c.Data.MultiDynamicNum,
	}
}

// SeqMax returns the per-category sequence id bounds. Unknown names are
// skipped here; Validate reports them.
func (c *Config) SeqMax() map[scene.Category]int {
	out := make(map[scene.Category]int, len(scene.Categories))
	for name, n := range c.Data.SeqIDMaxMap {
		cat, err := scene.ParseCategory(name)
		if err != nil {
			continue
		}
		out[cat] = n
	}
	return out
}

// Height and Width unpack sample_size.
func (c *Config) Height() int { return c.Data.SampleSize[0] }
func (c *Config) Width() int  { return c.Data.SampleSize[1] }
