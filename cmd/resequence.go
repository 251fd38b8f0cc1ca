package main

import (
	"context"

	"github.com/desertthunder/chartlog/internal/formatter"
	"github.com/desertthunder/chartlog/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Resequence recomputes the catalog's sequence order. With --dry-run the plan
// is printed without writes; with --legacy sequences are renumbered 1..N with
// no undated-block preservation.
func (r *Runner) Resequence(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	songs, _ := r.repos(db)
	resequencer := tasks.NewResequencer(songs, r.logger)

	if cmd.Bool("legacy") {
		report, err := resequencer.Renumber()
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(report, cmd.Bool("pretty"))
		}
		return r.writeBytes(formatter.ReportToText(report))
	}

	opts := tasks.ResequenceOpts{
		FromSeq: int(cmd.Int("from")),
		ToSeq:   int(cmd.Int("to")),
	}

	if cmd.Bool("dry-run") {
		plan, err := resequencer.Diagnose(opts)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(plan, cmd.Bool("pretty"))
		}
		return r.writeBytes(formatter.PlanToText(plan))
	}

	report, err := resequencer.Apply(opts)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, cmd.Bool("pretty"))
	}
	return r.writeBytes(formatter.ReportToText(report))
}

// resequenceCommand handles sequence recomputation.
func resequenceCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "resequence",
		Aliases: []string{"reseq"},
		Usage:   "Reorder the catalog chronologically, keeping undated blocks anchored",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print the plan without writing",
			},
			&cli.BoolFlag{
				Name:  "legacy",
				Usage: "Renumber 1..N in current order instead",
			},
			&cli.IntFlag{
				Name:  "from",
				Usage: "Lower sequence bound (0 = start of catalog)",
			},
			&cli.IntFlag{
				Name:  "to",
				Usage: "Upper sequence bound (0 = end of catalog)",
			},
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
			&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
		},
		Action: r.Resequence,
	}
}
