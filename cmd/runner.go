package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chartlog/internal/match"
	"github.com/desertthunder/chartlog/internal/repositories"
	"github.com/desertthunder/chartlog/internal/services"
	"github.com/desertthunder/chartlog/internal/shared"
	"github.com/desertthunder/chartlog/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, importCommand, lastfmCommand, resequenceCommand, songsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openDB opens the configured database and applies connection settings.
// Callers own the returned handle and must close it.
func (r *Runner) openDB() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	return db, nil
}

// repos builds the repository pair over one database handle.
func (r *Runner) repos(db *sql.DB) (*repositories.SongRepository, *repositories.ImportRepository) {
	return repositories.NewSongRepository(db), repositories.NewImportRepository(db)
}

// importer builds the paste-import pipeline with configured tunables.
func (r *Runner) importer(songs *repositories.SongRepository, imports *repositories.ImportRepository) *tasks.Importer {
	matcher := match.NewSongMatcher(songs, r.config.Import.CandidateLimit)
	return tasks.NewImporter(songs, imports, matcher, r.config.Import.FuzzyThreshold, r.logger)
}

// feed builds the Last.fm feed pipeline from configured credentials.
func (r *Runner) feed(songs *repositories.SongRepository) (*tasks.FeedImporter, error) {
	service, err := services.NewLastFMService(r.config.LastFM, r.httpClient)
	if err != nil {
		return nil, err
	}
	return tasks.NewFeedImporter(service, songs, r.logger), nil
}

// readText reads import input from the --file flag or stdin.
func (r *Runner) readText(cmd *cli.Command) (string, error) {
	if path := cmd.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(r.input)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
