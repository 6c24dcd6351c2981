package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ivlev/trajclip/internal/assemble"
	"github.com/ivlev/trajclip/internal/catalogue"
	"github.com/ivlev/trajclip/internal/config"
	"github.com/ivlev/trajclip/internal/engine"
	"github.com/ivlev/trajclip/internal/loader"
	"github.com/ivlev/trajclip/internal/logging"
	"github.com/ivlev/trajclip/internal/prompt"
	"github.com/ivlev/trajclip/internal/system"
)

type globalFlags struct {
	config   string
	logLevel string
	seed     uint64
	workers  int

	seedSet    bool
	workersSet bool
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	log        zerolog.Logger
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags, log: zerolog.Nop()}
}

// overrides records which global flags were given explicitly, so that only
// those replace config values.
func (c *commandContext) overrides(cmd *cobra.Command) {
	c.flags.seedSet = cmd.Flags().Changed("seed")
	c.flags.workersSet = cmd.Flags().Changed("workers")
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := loadConfig(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if c.flags.seedSet {
			cfg.Seed = c.flags.seed
		}
		if c.flags.workersSet {
			cfg.Workers = c.flags.workers
		}
		if c.flags.logLevel != "" {
			cfg.LogLevel = c.flags.logLevel
		}
		log, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
		if err != nil {
			c.configErr = err
			return
		}
		system.InitResourceLimits(logging.Component(log, "system"))
		c.config = cfg
		c.log = log
	})
	return c.config, c.configErr
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s:\n%w", path, err)
	}
	return cfg, nil
}

// pipeline holds the wired sampling stages.
type pipeline struct {
	cfg     *config.Config
	cat     *catalogue.Catalogue
	loader  *loader.Loader
	prompts *prompt.Builder
	sampler *engine.Sampler
}

func (c *commandContext) pipeline() (*pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	cat, err := newCatalogue(cfg)
	if err != nil {
		return nil, err
	}
	ld, err := loader.New(cfg.Data.EnvMetaFile, cfg.Data.AssetMetaFile, logging.Component(c.log, "loader"))
	if err != nil {
		return nil, err
	}
	asm, err := assemble.New(assemble.ParamsFromConfig(cfg))
	if err != nil {
		return nil, err
	}
	pb := prompt.New(ld.Assets(), ld.Environments())
	return &pipeline{
		cfg:     cfg,
		cat:     cat,
		loader:  ld,
		prompts: pb,
		sampler: engine.New(cfg, cat, ld, asm, pb, logging.Component(c.log, "engine")),
	}, nil
}

func newCatalogue(cfg *config.Config) (*catalogue.Catalogue, error) {
	return catalogue.New(cfg.Counts(), cfg.SeqMax(), catalogue.Layout{
		VideoRoot:    cfg.Data.VideoRoot,
		MaskRoot:     cfg.Data.MaskRoot,
		LabelRoot:    cfg.Data.LabelRoot,
		TrajMetaRoot: cfg.Data.TrajMetaRoot,
	})
}
