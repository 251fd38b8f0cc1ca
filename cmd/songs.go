package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/chartlog/internal/formatter"
	"github.com/desertthunder/chartlog/internal/match"
	"github.com/desertthunder/chartlog/internal/shared"
	"github.com/desertthunder/chartlog/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SongsList prints the catalog in sequence order.
func (r *Runner) SongsList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	songs, _ := r.repos(db)
	list, err := songs.ListBySequence(int(cmd.Int("from")), int(cmd.Int("to")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(list, cmd.Bool("pretty"))
	}
	return r.writeBytes(formatter.SongsToText(list))
}

// SongsDelete removes a song from the catalog.
func (r *Runner) SongsDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: song id", shared.ErrMissingArgument)
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	songs, _ := r.repos(db)
	if err := songs.Delete(id); err != nil {
		return err
	}

	r.logger.Info("song deleted", "id", id)
	return r.writePlain("Deleted %s\n", id)
}

// SongsMove repositions a song at a 1-based position in the current order.
func (r *Runner) SongsMove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: song id", shared.ErrMissingArgument)
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	songs, _ := r.repos(db)
	resequencer := tasks.NewResequencer(songs, r.logger)

	report, err := resequencer.Move(id, int(cmd.Int("to")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, cmd.Bool("pretty"))
	}
	return r.writeBytes(formatter.ReportToText(report))
}

// SongsSetDate sets or clears a song's first-listen date. The date argument
// goes through the same day-first parser as imported rows.
func (r *Runner) SongsSetDate(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: song id", shared.ErrMissingArgument)
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	songs, _ := r.repos(db)
	song, err := songs.Get(id)
	if err != nil {
		return err
	}

	dateText := cmd.StringArg("date")
	if cmd.Bool("clear") {
		song.SetFirstListenDate(nil)
	} else {
		if dateText == "" {
			return fmt.Errorf("%w: date", shared.ErrMissingArgument)
		}
		iso, ok := match.ParseDate(dateText)
		if !ok {
			return fmt.Errorf("%w: unparseable date %q", shared.ErrInvalidInput, dateText)
		}
		song.SetFirstListenDate(&iso)
	}

	if err := songs.Update(song); err != nil {
		return err
	}

	if date := song.FirstListenDate(); date != nil {
		return r.writePlain("Set first listen of %s to %s\n", id, *date)
	}
	return r.writePlain("Cleared first listen of %s\n", id)
}

// songsCommand handles direct catalog operations.
func songsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "songs",
		Aliases: []string{"s"},
		Usage:   "Browse and edit the catalog",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List songs in sequence order",
				Flags: []cli.Flag{
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
				Action: r.SongsList,
			},
			{
				Name:  "delete",
				Usage: "Remove a song from the catalog",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.SongsDelete,
			},
			{
				Name:  "move",
				Usage: "Move a song to a new position in the order",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "to",
						Usage:    "Target 1-based position",
						Required: true,
					},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
				},
				Action: r.SongsMove,
			},
			{
				Name:  "set-date",
				Usage: "Set or clear a song's first-listen date",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "date"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "clear",
						Usage: "Remove the stored date",
					},
				},
				Action: r.SongsSetDate,
			},
		},
	}
}
