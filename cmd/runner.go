package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/focusync/internal/drafter"
	"github.com/desertthunder/focusync/internal/identity"
	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/pipeline"
	"github.com/desertthunder/focusync/internal/rotation"
	"github.com/desertthunder/focusync/internal/services"
	"github.com/desertthunder/focusync/internal/shared"
	"github.com/desertthunder/focusync/internal/state"
	"github.com/desertthunder/focusync/internal/storage"
	"github.com/desertthunder/focusync/internal/timer"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The local store and pipelines are opened on first use, so commands such as setup and serve never touch them.
type Runner struct {
	config    *shared.Config
	logger    *log.Logger
	output    io.Writer
	completer drafter.Completer

	mu      sync.Mutex
	app     *app
	logFile io.Closer // logFile is set when logs are redirected to a file
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config    *shared.Config
	Logger    *log.Logger
	Output    io.Writer
	Completer drafter.Completer // Completer replaces the configured drafter provider
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

	return &Runner{
		config:    opts.Config,
		logger:    opts.Logger,
		output:    opts.Output,
		completer: opts.Completer,
	}
}

// app is the client runtime shared by the entity commands.
type app struct {
	adapter     storage.Adapter
	session     *identity.SessionProvider
	quoteStore  *state.PersistedState[models.Record[models.Quote]]
	taskStore   *state.PersistedState[models.Record[models.Task]]
	quotes      *pipeline.Pipeline[models.Quote]
	tasks       *pipeline.Pipeline[models.Task]
	playlists   services.Remote[models.Playlist]
	api         *services.APIService // api is nil without a remote base URL
	timer       *timer.Timer
	rotation    *rotation.Engine[models.Quote]
	unbindScope func()
}

// open builds the client runtime from config. Every scoped container follows the signed-in user.
func (r *Runner) open() (*app, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.app != nil {
		return r.app, nil
	}

	adapter, broadcaster, err := storage.Open(r.config.Store, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	a := &app{adapter: adapter}
	a.session = identity.NewSessionProvider(adapter, broadcaster, r.config.Remote.Token, r.logger)
	a.quoteStore = pipeline.OpenRecord[models.Quote](adapter, broadcaster, pipeline.QuotesKey, state.LastWriterWins, r.logger)
	a.taskStore = pipeline.OpenRecord[models.Task](adapter, broadcaster, pipeline.TasksKey, state.LastWriterWins, r.logger)
	a.timer = timer.New(adapter, broadcaster, timer.Options{Logger: r.logger})
	a.unbindScope = state.BindScope(a.session, a.quoteStore, a.taskStore, a.timer.Container())

	var (
		quoteRemote    services.Remote[models.Quote]    = services.Offline[models.Quote]{}
		taskRemote     services.Remote[models.Task]     = services.Offline[models.Task]{}
		playlistRemote services.Remote[models.Playlist] = services.Offline[models.Playlist]{}
	)
	if base := r.config.Remote.BaseURL; base != "" {
		client := services.NewAuthorizedClient(a.session, r.config.Remote.Timeout)
		api := services.NewAPIService(base, client)
		a.api = api
		quoteRemote = services.NewHTTPRemote(api, services.QuoteCodec, r.logger)
		taskRemote = services.NewHTTPRemote(api, services.TaskCodec, r.logger)
		playlistRemote = services.NewHTTPRemote(api, services.PlaylistCodec, r.logger)
	}

	opts := pipeline.Options{RateLimit: r.config.Remote.RateLimit, Logger: r.logger}
	a.tasks = pipeline.New(a.taskStore, taskRemote, a.session, opts)
	opts.Playlists = playlistRemote
	a.quotes = pipeline.New(a.quoteStore, quoteRemote, a.session, opts)
	a.playlists = playlistRemote
	a.rotation = rotation.New(a.quoteStore, nil, r.logger)

	r.app = a
	return a, nil
}

// Close waits for in-flight remote mutations and closes the store.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	a, logFile := r.app, r.logFile
	r.app, r.logFile = nil, nil
	r.mu.Unlock()
	if logFile != nil {
		defer logFile.Close()
	}
	if a == nil {
		return nil
	}

	var errs []error
	if err := a.quotes.Drain(ctx); err != nil {
		errs = append(errs, fmt.Errorf("quotes: %w", err))
	}
	if err := a.tasks.Drain(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tasks: %w", err))
	}

	a.unbindScope()
	for _, c := range []io.Closer{a.quoteStore, a.taskStore, a.timer, a.session, a.adapter} {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetLogger replaces the logger used by commands that have not opened the runtime yet.
func (r *Runner) SetLogger(l *log.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, loginCommand, logoutCommand, whoamiCommand,
		quotesCommand, tasksCommand, playlistsCommand, validateCommand, timerCommand, bridgeCommand, focusCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
