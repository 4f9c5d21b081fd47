package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/focusync/internal/drafter"
	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/server"
	"github.com/desertthunder/focusync/internal/shared"
	tu "github.com/desertthunder/focusync/internal/testing"
)

const testToken = "secret"

// newTestRunner builds a runner over an in-memory store. When online, the remote is a reference backend on an
// in-memory database.
func newTestRunner(t *testing.T, online bool, completer drafter.Completer) (*Runner, *bytes.Buffer) {
	t.Helper()

	config := shared.DefaultConfig()
	config.Store.Driver = "memory"
	config.Remote.BaseURL = ""
	config.Remote.Token = testToken
	config.Remote.Timeout = 5 * time.Second
	config.Remote.RateLimit = 0

	if online {
		db, err := shared.NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create test database: %v", err)
		}
		if err := shared.RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		ts := httptest.NewServer(server.NewBackend(db, testToken, shared.NewLogger(io.Discard)))
		t.Cleanup(func() {
			ts.Close()
			db.Close()
		})
		config.Remote.BaseURL = ts.URL
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:    config,
		Logger:    shared.NewLogger(io.Discard),
		Output:    output,
		Completer: completer,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := runner.Close(ctx); err != nil {
			t.Errorf("failed to close runner: %v", err)
		}
	})
	return runner, output
}

// run executes one command line against runner and returns what it printed.
func run(t *testing.T, runner *Runner, output *bytes.Buffer, args ...string) (string, error) {
	t.Helper()
	output.Reset()

	app := &cli.Command{
		Name:      "focusync",
		Commands:  runner.register(),
		Writer:    io.Discard,
		ErrWriter: io.Discard,
	}
	err := app.Run(context.Background(), append([]string{"focusync"}, args...))
	return output.String(), err
}

func mustRun(t *testing.T, runner *Runner, output *bytes.Buffer, args ...string) string {
	t.Helper()
	out, err := run(t, runner, output, args...)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			completer := drafter.CompleterFunc(func(context.Context, string) (string, error) { return "", nil })

			runner := NewRunner(RunnerOpts{
				Config:    config,
				Logger:    logger,
				Output:    output,
				Completer: completer,
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
			if runner.completer == nil {
				t.Error("expected completer to be set")
			}
			if runner.app != nil {
				t.Error("expected runtime to open lazily")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
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

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
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
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, name := range []string{"setup", "serve", "login", "quotes", "tasks", "playlists", "validate", "timer", "bridge", "focus"} {
			if !names[name] {
				t.Errorf("expected %s command to be registered", name)
			}
		}
	})
}

func TestQuoteCommands(t *testing.T) {
	runner, output := newTestRunner(t, true, nil)
	mustRun(t, runner, output, "login", "--user", "u1")

	t.Run("add confirms against the remote", func(t *testing.T) {
		out := mustRun(t, runner, output, "quotes", "add", "--author", "Seneca", "Luck is what happens when preparation meets opportunity.")
		if !strings.Contains(out, "added") {
			t.Errorf("expected confirmation, got %q", out)
		}
		if strings.Contains(out, "locally") {
			t.Errorf("expected a confirmed create, got %q", out)
		}
	})

	t.Run("add requires text", func(t *testing.T) {
		_, err := run(t, runner, output, "quotes", "add")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("list filters with where", func(t *testing.T) {
		mustRun(t, runner, output, "quotes", "add", "--author", "Marcus Aurelius", "Waste no more time arguing.")

		out := mustRun(t, runner, output, "quotes", "list", "--where", `author == "Seneca"`)
		if !strings.Contains(out, "Luck is what happens") {
			t.Errorf("expected Seneca quote, got %q", out)
		}
		if strings.Contains(out, "Waste no more time") {
			t.Errorf("expected Marcus Aurelius filtered out, got %q", out)
		}
	})

	t.Run("list as JSON", func(t *testing.T) {
		out := mustRun(t, runner, output, "quotes", "list", "--json")

		var quotes []models.Quote
		if err := json.Unmarshal([]byte(out), &quotes); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", out, err)
		}
		if len(quotes) != 2 {
			t.Errorf("expected 2 quotes, got %d", len(quotes))
		}
		for _, q := range quotes {
			if q.LocalOnly || models.IsTemporaryID(q.ID) {
				t.Errorf("expected confirmed quote, got %+v", q)
			}
		}
	})

	t.Run("fav toggles", func(t *testing.T) {
		id := runner.app.quotes.Merged()[0].ID

		if out := mustRun(t, runner, output, "quotes", "fav", id); !strings.Contains(out, "is a favorite") {
			t.Errorf("expected favorite, got %q", out)
		}
		if out := mustRun(t, runner, output, "quotes", "list", "--favorites"); strings.Count(out, "\n") != 1 {
			t.Errorf("expected one favorite, got %q", out)
		}
		if out := mustRun(t, runner, output, "quotes", "fav", id); !strings.Contains(out, "no longer") {
			t.Errorf("expected favorite cleared, got %q", out)
		}
	})

	t.Run("edit patches set flags", func(t *testing.T) {
		id := runner.app.quotes.Merged()[0].ID

		mustRun(t, runner, output, "quotes", "edit", "--category", "stoic", id)
		q, ok := runner.app.quotes.Find(id)
		if !ok || q.Category != "stoic" {
			t.Errorf("expected category stoic, got %+v", q)
		}
	})

	t.Run("edit without flags", func(t *testing.T) {
		_, err := run(t, runner, output, "quotes", "edit", "q1")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("rm deletes", func(t *testing.T) {
		id := runner.app.quotes.Merged()[1].ID

		if out := mustRun(t, runner, output, "quotes", "rm", id); !strings.Contains(out, "deleted") {
			t.Errorf("expected deletion, got %q", out)
		}
		if _, ok := runner.app.quotes.Find(id); ok {
			t.Error("expected quote to be gone")
		}
	})

	t.Run("rm unknown id", func(t *testing.T) {
		_, err := run(t, runner, output, "quotes", "rm", "missing")
		if !errors.Is(err, shared.ErrEntityNotFound) {
			t.Errorf("expected ErrEntityNotFound, got %v", err)
		}
	})
}

func TestQuoteCommandsOffline(t *testing.T) {
	runner, output := newTestRunner(t, false, nil)

	out := mustRun(t, runner, output, "quotes", "add", "Begin.")
	if !strings.Contains(out, "locally") {
		t.Errorf("expected local-only warning, got %q", out)
	}

	out = mustRun(t, runner, output, "quotes", "list")
	if !strings.Contains(out, "[local]") {
		t.Errorf("expected local marker, got %q", out)
	}

	out = mustRun(t, runner, output, "whoami")
	if !strings.Contains(out, "offline") {
		t.Errorf("expected offline remote, got %q", out)
	}
}

func TestQuoteDraft(t *testing.T) {
	t.Run("save adds the draft", func(t *testing.T) {
		completer := drafter.CompleterFunc(func(context.Context, string) (string, error) {
			return `{"text":"Do the hard thing first.","author":"Anonymous","category":"focus"}`, nil
		})
		runner, output := newTestRunner(t, true, completer)
		mustRun(t, runner, output, "login", "--user", "u1")

		out := mustRun(t, runner, output, "quotes", "draft", "--save", "mornings")
		if !strings.Contains(out, "Do the hard thing first.") || !strings.Contains(out, "added") {
			t.Errorf("expected draft and confirmation, got %q", out)
		}
		if quotes := runner.app.quotes.Merged(); len(quotes) != 1 || quotes[0].Category != "focus" {
			t.Errorf("expected drafted quote saved, got %+v", quotes)
		}
	})

	t.Run("malformed reply creates nothing", func(t *testing.T) {
		completer := drafter.CompleterFunc(func(context.Context, string) (string, error) {
			return "I'd be happy to help!", nil
		})
		runner, output := newTestRunner(t, false, completer)

		if _, err := run(t, runner, output, "quotes", "draft", "--save", "mornings"); err == nil {
			t.Fatal("expected malformed reply error")
		}
		if runner.app != nil && len(runner.app.quotes.Merged()) != 0 {
			t.Error("expected no quote created")
		}
	})
}

func TestTaskCommands(t *testing.T) {
	runner, output := newTestRunner(t, true, nil)
	mustRun(t, runner, output, "login", "--user", "u1")

	mustRun(t, runner, output, "tasks", "add", "--priority", "2", "--notes", "first section", "write intro")
	tasks := runner.app.tasks.Merged()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	id := tasks[0].ID

	t.Run("list", func(t *testing.T) {
		out := mustRun(t, runner, output, "tasks", "list")
		if !strings.Contains(out, "[ ]") || !strings.Contains(out, "write intro") || !strings.Contains(out, "(p2)") {
			t.Errorf("unexpected listing %q", out)
		}
	})

	t.Run("done and undo", func(t *testing.T) {
		if out := mustRun(t, runner, output, "tasks", "done", id); !strings.Contains(out, "completed") {
			t.Errorf("expected completion, got %q", out)
		}
		if task, _ := runner.app.tasks.Find(id); !task.Done {
			t.Error("expected task done")
		}

		mustRun(t, runner, output, "tasks", "done", "--undo", id)
		if task, _ := runner.app.tasks.Find(id); task.Done {
			t.Error("expected task reopened")
		}
	})

	t.Run("edit priority", func(t *testing.T) {
		mustRun(t, runner, output, "tasks", "edit", "--priority", "5", id)
		if task, _ := runner.app.tasks.Find(id); task.Priority != 5 {
			t.Errorf("expected priority 5, got %d", task.Priority)
		}
	})

	t.Run("export", func(t *testing.T) {
		path := t.TempDir() + "/tasks.csv"
		out := mustRun(t, runner, output, "tasks", "export", "--format", "csv", "--output", path)
		if !strings.Contains(out, "Exported 1") {
			t.Errorf("expected export summary, got %q", out)
		}
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "write intro") {
			t.Errorf("expected task in export, got %q", content)
		}
	})

	t.Run("rm", func(t *testing.T) {
		mustRun(t, runner, output, "tasks", "rm", id)
		if out := mustRun(t, runner, output, "tasks", "list"); !strings.Contains(out, "No tasks") {
			t.Errorf("expected empty list, got %q", out)
		}
	})
}

func TestPlaylistCommands(t *testing.T) {
	runner, output := newTestRunner(t, true, nil)
	mustRun(t, runner, output, "login", "--user", "u1")
	mustRun(t, runner, output, "quotes", "add", "--author", "Seneca", "While we wait for life, life passes.")
	quoteID := runner.app.quotes.Merged()[0].ID

	mustRun(t, runner, output, "playlists", "create", "Morning", quoteID)
	playlists := runner.app.quotes.Playlists()
	if len(playlists) != 1 {
		t.Fatalf("expected 1 playlist, got %d", len(playlists))
	}
	playlistID := playlists[0].ID

	t.Run("create reaches the backend", func(t *testing.T) {
		if models.IsTemporaryID(playlistID) || playlists[0].LocalOnly {
			t.Fatalf("expected promoted playlist, got %+v", playlists[0])
		}
		stored, err := runner.app.playlists.List(context.Background(), "u1", "")
		if err != nil {
			t.Fatalf("failed to list backend playlists: %v", err)
		}
		if len(stored) != 1 || stored[0].ID != playlistID || len(stored[0].MemberIDs) != 1 {
			t.Errorf("expected backend to hold %s, got %+v", playlistID, stored)
		}
	})

	t.Run("list", func(t *testing.T) {
		out := mustRun(t, runner, output, "playlists", "list")
		if !strings.Contains(out, "Morning (1 quotes)") {
			t.Errorf("unexpected listing %q", out)
		}
	})

	t.Run("show resolves members", func(t *testing.T) {
		out := mustRun(t, runner, output, "playlists", "show", playlistID)
		if !strings.Contains(out, "While we wait for life") {
			t.Errorf("expected member text, got %q", out)
		}
	})

	t.Run("use drives rotation", func(t *testing.T) {
		mustRun(t, runner, output, "playlists", "use", playlistID)
		out := mustRun(t, runner, output, "quotes", "next")
		if !strings.Contains(out, "While we wait for life") || !strings.Contains(out, "from Morning") {
			t.Errorf("expected playlist rotation, got %q", out)
		}
	})

	t.Run("validate", func(t *testing.T) {
		out := mustRun(t, runner, output, "validate")
		if !strings.Contains(out, "playlists are valid") {
			t.Errorf("expected valid report, got %q", out)
		}
	})

	t.Run("add requires two arguments", func(t *testing.T) {
		_, err := run(t, runner, output, "playlists", "add", playlistID)
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("deleting a quote removes it from the playlist", func(t *testing.T) {
		mustRun(t, runner, output, "quotes", "rm", quoteID)
		if pl := runner.app.quotes.Playlists()[0]; len(pl.MemberIDs) != 0 {
			t.Errorf("expected member removed, got %v", pl.MemberIDs)
		}

		runner.app.quotes.Drain(context.Background())
		stored, _ := runner.app.playlists.List(context.Background(), "u1", "")
		if len(stored) != 1 || len(stored[0].MemberIDs) != 0 {
			t.Errorf("expected backend members updated, got %+v", stored)
		}
	})

	t.Run("rm unknown playlist", func(t *testing.T) {
		_, err := run(t, runner, output, "playlists", "rm", "missing")
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})
}

func TestTimerCommands(t *testing.T) {
	runner, output := newTestRunner(t, false, nil)

	t.Run("pause when idle", func(t *testing.T) {
		_, err := run(t, runner, output, "timer", "pause")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("start and status", func(t *testing.T) {
		out := mustRun(t, runner, output, "timer", "start", "--duration", "10m", "--label", "deep work")
		if !strings.Contains(out, "running") || !strings.Contains(out, "deep work") {
			t.Errorf("unexpected start output %q", out)
		}

		out = mustRun(t, runner, output, "timer", "status", "--json")
		var msg struct {
			Status           string `json:"status"`
			RemainingSeconds int    `json:"remaining_seconds"`
		}
		if err := json.Unmarshal([]byte(out), &msg); err != nil {
			t.Fatalf("expected JSON status, got %q: %v", out, err)
		}
		if msg.Status != "running" || msg.RemainingSeconds <= 0 || msg.RemainingSeconds > 600 {
			t.Errorf("unexpected status %+v", msg)
		}
	})

	t.Run("pause resume reset", func(t *testing.T) {
		if out := mustRun(t, runner, output, "timer", "pause"); !strings.Contains(out, "paused") {
			t.Errorf("expected paused, got %q", out)
		}
		if out := mustRun(t, runner, output, "timer", "resume"); !strings.Contains(out, "running") {
			t.Errorf("expected running, got %q", out)
		}
		if out := mustRun(t, runner, output, "timer", "reset"); !strings.Contains(out, "idle") {
			t.Errorf("expected idle, got %q", out)
		}
	})

	t.Run("history is empty after reset", func(t *testing.T) {
		if out := mustRun(t, runner, output, "timer", "history"); !strings.Contains(out, "No completed sessions") {
			t.Errorf("expected empty history, got %q", out)
		}
	})
}
