package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/chartlog/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive catalog browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	songs, imports := r.repos(db)
	model := ui.NewModel(songs, imports)

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// tuiCommand returns the top-level TUI command for interactive catalog browsing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "browse",
		Aliases: []string{"tui", "ui"},
		Usage:   "Launch interactive catalog browser",
		Action:  r.TUI,
	}
}
