package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/focusync/internal/shared"
	"github.com/desertthunder/focusync/internal/ui"
)

// Focus launches the dashboard: timer, rotated quote and task list.
func (r *Runner) Focus(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, closer, err := shared.NewFileLogger(cmd.String("log"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)
	r.mu.Lock()
	r.logFile = closer
	r.mu.Unlock()

	a, err := r.open()
	if err != nil {
		return err
	}

	d := r.config.Timer.DefaultDuration
	if cmd.IsSet("duration") {
		d = cmd.Duration("duration")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(ctx, a.timer, a.rotation, a.tasks, ui.Options{
		Duration: d,
		Label:    cmd.String("label"),
		Playlist: cmd.String("playlist"),
		Tick:     r.config.Timer.Tick,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := ui.Watch(p, a.timer)
	defer unsubscribe()

	if a.api != nil {
		go func() {
			if err := a.tasks.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				fileLogger.Warn("task updates stopped", "error", err)
			}
		}()
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
