package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/trajclip/internal/resample"
	"github.com/ivlev/trajclip/internal/scene"
)

type scanStatus int

const (
	scanOK scanStatus = iota
	scanMissing
	scanCorrupt
	scanTooShort
	scanFailed
)

func classify(err error) scanStatus {
	switch {
	case err == nil:
		return scanOK
	case errors.Is(err, scene.ErrMissingAsset):
		return scanMissing
	case errors.Is(err, scene.ErrCorruptTrajectory):
		return scanCorrupt
	case errors.Is(err, scene.ErrWindowTooShort):
		return scanTooShort
	default:
		return scanFailed
	}
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarise the catalogue and scan scenes for problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.pipeline()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			rows := make([][]string, 0, len(scene.Categories))
			for _, c := range scene.Categories {
				rows = append(rows, []string{
					c.String(),
					strconv.Itoa(p.cat.Count(c)),
					fmt.Sprintf("%.1f%%", 100*p.cat.Share(c)),
					strconv.Itoa(p.cat.SeqMax(c)),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Category", "Count", "Share", "Seq IDs"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(out, "Epoch length: %d\n", p.cat.Len())

			report, err := scanCatalogue(cmd.Context(), p, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Category", "Scanned", "OK", "Missing", "Corrupt", "Too short", "Failed"},
				report,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Scan at most this many sequence ids per category (0 = all)")
	return cmd
}

// scanCatalogue loads every sequence id of the enabled categories and
// checks it is long enough for the sampling window.
func scanCatalogue(ctx context.Context, p *pipeline, limit int) ([][]string, error) {
	window := resample.WindowLen(p.cfg.Clip())
	var rows [][]string

	for _, c := range scene.Categories {
		if p.cat.Count(c) == 0 {
			continue
		}
		n := p.cat.SeqMax(c)
		if limit > 0 {
			n = min(n, limit)
		}
		statuses := make([]scanStatus, n)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.sampler.Workers())
		for id := range n {
			g.Go(func() error {
				rec, err := p.cat.Record(c, id)
				if err != nil {
					return err
				}
				sd, err := p.loader.Load(gctx, rec)
				if err == nil {
					if sd.NumFrames() < window {
						err = fmt.Errorf("%s: %d frames: %w", rec.Key(), sd.NumFrames(), scene.ErrWindowTooShort)
					}
					sd.Close()
				}
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				statuses[id] = classify(err)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var counts [scanFailed + 1]int
		for _, s := range statuses {
			counts[s]++
		}
		row := []string{c.String(), strconv.Itoa(n)}
		for _, v := range counts {
			row = append(row, strconv.Itoa(v))
		}
		rows = append(rows, row)
	}
	return rows, nil
}
