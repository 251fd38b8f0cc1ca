package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/chartlog/internal/formatter"
	"github.com/desertthunder/chartlog/internal/shared"
	"github.com/desertthunder/chartlog/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ImportRun imports delimited paste text into the catalog.
func (r *Runner) ImportRun(ctx context.Context, cmd *cli.Command) error {
	text, err := r.readText(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	songs, imports := r.repos(db)
	pipeline := r.importer(songs, imports)

	result, err := pipeline.Run(text, tasks.ImportOpts{
		Source:    cmd.String("source"),
		Delimiter: cmd.String("delimiter"),
		HasHeader: cmd.Bool("header"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}
	return r.writeBytes(formatter.ImportResultToText(result))
}

// ImportPreview inspects paste text without writing anything.
func (r *Runner) ImportPreview(ctx context.Context, cmd *cli.Command) error {
	text, err := r.readText(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	songs, imports := r.repos(db)
	pipeline := r.importer(songs, imports)

	preview, err := pipeline.Preview(text, tasks.ImportOpts{
		Delimiter: cmd.String("delimiter"),
		HasHeader: cmd.Bool("header"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(preview, cmd.Bool("pretty"))
	}
	return r.writeBytes(formatter.PreviewToText(preview))
}

// ImportLog lists past import batches, newest first.
func (r *Runner) ImportLog(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	_, imports := r.repos(db)
	records, err := imports.ListRecords()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(records, cmd.Bool("pretty"))
	}
	return r.writeBytes(formatter.ImportRecordsToText(records))
}

// ImportRows lists the audit rows of one batch in input order.
func (r *Runner) ImportRows(ctx context.Context, cmd *cli.Command) error {
	importID := cmd.StringArg("id")
	if importID == "" {
		return fmt.Errorf("%w: import id", shared.ErrMissingArgument)
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	_, imports := r.repos(db)

	if _, err := imports.GetRecord(importID); err != nil {
		return err
	}

	rows, err := imports.ListRows(importID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	r.writePlain("Rows in %s: %d\n\n", importID, len(rows))
	for _, row := range rows {
		detail := ""
		switch {
		case row.ErrorDetail() != "":
			detail = fmt.Sprintf("  (%s)", row.ErrorDetail())
		case row.SongID() != nil:
			detail = fmt.Sprintf("  -> %s", *row.SongID())
		}
		r.writePlain("%4d. [%-9s] %s%s\n", row.Position(), row.Status(), row.Raw(), detail)
	}

	return nil
}

// importCommand handles paste-import operations.
func importCommand(r *Runner) *cli.Command {
	inputFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "Read input from file instead of stdin",
		},
		&cli.StringFlag{
			Name:    "delimiter",
			Aliases: []string{"d"},
			Usage:   "Field delimiter override (default: auto-detect)",
		},
		&cli.BoolFlag{
			Name:  "header",
			Usage: "Treat the first row as a header",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		},
	}

	return &cli.Command{
		Name:    "import",
		Aliases: []string{"imp"},
		Usage:   "Import listening history from pasted text",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Import delimited rows into the catalog",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source tag recorded on the batch",
						Value: "sheet",
					},
				}, inputFlags...),
				Action: r.ImportRun,
			},
			{
				Name:   "preview",
				Usage:  "Inspect rows and matches without writing",
				Flags:  inputFlags,
				Action: r.ImportPreview,
			},
			{
				Name:  "log",
				Usage: "List past import batches",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
				},
				Action: r.ImportLog,
			},
			{
				Name:  "rows",
				Usage: "Show the audit rows of one batch",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
				},
				Action: r.ImportRows,
			},
		},
	}
}
