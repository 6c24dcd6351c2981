package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"
)

func newPromptsCommand(ctx *commandContext) *cobra.Command {
	var num int

	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Print the validation prompt set",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.pipeline()
			if err != nil {
				return err
			}
			v := p.cfg.Validation
			if cmd.Flags().Changed("num") {
				v.Num = num
			}
			rng := rand.New(rand.NewPCG(p.cfg.Seed, uint64(p.cfg.Rank)))
			prompts, err := p.prompts.Validation(rng, v)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range prompts {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&num, "num", 0, "Number of generated prompts (default validation.num)")
	return cmd
}
