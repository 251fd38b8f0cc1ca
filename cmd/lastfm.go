package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/chartlog/internal/formatter"
	"github.com/desertthunder/chartlog/internal/shared"
	"github.com/desertthunder/chartlog/internal/tasks"
	"github.com/urfave/cli/v3"
)

// LastFMHistory pulls the full scrobble history in chronological order.
func (r *Runner) LastFMHistory(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	songs, _ := r.repos(db)
	feed, err := r.feed(songs)
	if err != nil {
		return err
	}

	result, err := feed.History(ctx, tasks.HistoryOpts{
		MaxPages: int(cmd.Int("pages")),
		Annotate: cmd.Bool("annotate"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}
	return r.writeBytes(formatter.HistoryToText(result))
}

// LastFMSearch scans the scrobble feed for entries matching a query.
func (r *Runner) LastFMSearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	songs, _ := r.repos(db)
	feed, err := r.feed(songs)
	if err != nil {
		return err
	}

	result, err := feed.Search(ctx, query, tasks.SearchOpts{
		MaxPages:   int(cmd.Int("pages")),
		MaxResults: int(cmd.Int("limit")),
		Threshold:  cmd.Float("threshold"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}
	return r.writeBytes(formatter.SearchToText(result))
}

// lastfmCommand handles scrobble feed operations.
func lastfmCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "lastfm",
		Aliases: []string{"fm"},
		Usage:   "Last.fm scrobble feed operations",
		Commands: []*cli.Command{
			{
				Name:  "history",
				Usage: "Pull dated plays from the feed, oldest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "pages",
						Usage: "Maximum feed pages to fetch",
						Value: tasks.DefaultMaxPages,
					},
					&cli.BoolFlag{
						Name:  "annotate",
						Usage: "Mark plays already present in the catalog",
					},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
				},
				Action: r.LastFMHistory,
			},
			{
				Name:  "search",
				Usage: "Scan the feed for plays matching a query",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "pages",
						Usage: "Maximum feed pages to scan",
						Value: tasks.DefaultMaxPages,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum hits to return",
						Value: tasks.DefaultMaxResults,
					},
					&cli.FloatFlag{
						Name:  "threshold",
						Usage: "Fuzzy match score gate (0 disables fuzzy matching)",
					},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
				},
				Action: r.LastFMSearch,
			},
		},
	}
}
