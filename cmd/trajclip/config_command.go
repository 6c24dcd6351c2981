package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(ctx.flags.config)
			cfg, err := loadConfig(path)
			if err != nil {
				return err
			}
			cat, err := newCatalogue(cfg)
			if err != nil {
				return fmt.Errorf("invalid config %s: %w", path, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration valid: %s\n", path)
			fmt.Fprintf(out, "  epoch length %d, window %gs at %g fps, %d frames per clip\n",
				cat.Len(), cfg.Data.TimeDuration, cfg.Data.OriFPS, cfg.Data.SampleNFrames)
			return nil
		},
	}
}
