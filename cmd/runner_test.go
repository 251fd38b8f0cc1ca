package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/chartlog/internal/shared"
	tu "github.com/desertthunder/chartlog/internal/testing"
	"github.com/urfave/cli/v3"
)

// testRunner builds a Runner backed by a migrated temp database and a capture buffer.
func testRunner(t *testing.T, input string) (*Runner, *bytes.Buffer) {
	t.Helper()

	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "test.db")

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	db.Close()

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: shared.NewLogger(&bytes.Buffer{}),
		Output: output,
		Input:  strings.NewReader(input),
	})

	return runner, output
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			input := strings.NewReader("")
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				Input:      input,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.input != input {
				t.Error("expected input to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil input uses stdin", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, true)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writePlain("test"); err == nil {
				t.Fatal("expected error from failing writer")
			}
		})
	})

	t.Run("readText", func(t *testing.T) {
		runReadText := func(t *testing.T, runner *Runner, args []string) (string, error) {
			t.Helper()

			var got string
			var gotErr error
			cmd := &cli.Command{
				Name:  "test",
				Flags: []cli.Flag{&cli.StringFlag{Name: "file"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					got, gotErr = runner.readText(c)
					return nil
				},
			}
			if err := cmd.Run(context.Background(), args); err != nil {
				t.Fatalf("command run failed: %v", err)
			}
			return got, gotErr
		}

		t.Run("reads from stdin by default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Input: strings.NewReader("piped rows\n")})

			text, err := runReadText(t, runner, []string{"test"})
			if err != nil {
				t.Fatalf("readText() error: %v", err)
			}
			if text != "piped rows\n" {
				t.Errorf("expected stdin content, got %q", text)
			}
		})

		t.Run("reads from file when flag set", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "input.tsv")
			if err := os.WriteFile(path, []byte("file rows\n"), 0644); err != nil {
				t.Fatalf("failed to write input: %v", err)
			}

			runner := NewRunner(RunnerOpts{Input: strings.NewReader("ignored")})
			text, err := runReadText(t, runner, []string{"test", "--file", path})
			if err != nil {
				t.Fatalf("readText() error: %v", err)
			}
			if text != "file rows\n" {
				t.Errorf("expected file content, got %q", text)
			}
		})

		t.Run("missing file errors", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			_, err := runReadText(t, runner, []string{"test", "--file", "/nonexistent/input.tsv"})
			if err == nil {
				t.Error("expected error for missing file")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		names := make(map[string]bool)
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"setup", "import", "lastfm", "resequence", "songs", "browse"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})
}

func TestImportCommandEndToEnd(t *testing.T) {
	runner, output := testRunner(t, "Wonderwall\tOasis\t25/12/2005\nCreep\tRadiohead\t\n")

	newApp := func() *cli.Command {
		return &cli.Command{
			Name:     "chartlog",
			Commands: runner.register(),
		}
	}

	if err := newApp().Run(context.Background(), []string{"chartlog", "import", "run"}); err != nil {
		t.Fatalf("import run failed: %v", err)
	}

	text := output.String()
	if !strings.Contains(text, "Rows: 2 (merged 2, ambiguous 0, errors 0)") {
		t.Errorf("unexpected import summary:\n%s", text)
	}

	output.Reset()
	if err := newApp().Run(context.Background(), []string{"chartlog", "songs", "list"}); err != nil {
		t.Fatalf("songs list failed: %v", err)
	}

	text = output.String()
	if !strings.Contains(text, "Oasis - Wonderwall [2005-12-25]") {
		t.Errorf("expected imported song in listing:\n%s", text)
	}
	if !strings.Contains(text, "Radiohead - Creep [undated]") {
		t.Errorf("expected undated song in listing:\n%s", text)
	}
}
