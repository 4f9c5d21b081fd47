package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/focusync/internal/bridge"
	"github.com/desertthunder/focusync/internal/timer"
	"github.com/desertthunder/focusync/internal/ui"
)

// TimerStart begins a focus run. Without --duration the configured default is used.
func (r *Runner) TimerStart(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}

	d := r.config.Timer.DefaultDuration
	if cmd.IsSet("duration") {
		d = cmd.Duration("duration")
	}
	snap, err := a.timer.Start(d, cmd.String("label"))
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Styles.Timer(snap))
}

func (r *Runner) TimerPause(ctx context.Context, cmd *cli.Command) error {
	return r.timerAction(func(t *timer.Timer) (timer.Snapshot, error) { return t.Pause() })
}

func (r *Runner) TimerResume(ctx context.Context, cmd *cli.Command) error {
	return r.timerAction(func(t *timer.Timer) (timer.Snapshot, error) { return t.Resume() })
}

func (r *Runner) TimerReset(ctx context.Context, cmd *cli.Command) error {
	return r.timerAction(func(t *timer.Timer) (timer.Snapshot, error) { return t.Reset(), nil })
}

// TimerStatus prints the timer once, or every tick with --watch.
func (r *Runner) TimerStatus(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}

	show := func(snap timer.Snapshot) {
		if cmd.Bool("json") {
			r.writeJSON(bridge.NewStateMessage(snap), false)
			return
		}
		r.writePlain("%s\n", ui.Styles.Timer(snap))
	}

	if !cmd.Bool("watch") {
		show(a.timer.Observe())
		return nil
	}
	return a.timer.Run(ctx, r.config.Timer.Tick, show)
}

// TimerHistory lists completed sessions, oldest first.
func (r *Runner) TimerHistory(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}

	history := a.timer.History()
	if cmd.Bool("json") {
		return r.writeJSON(history, true)
	}
	if len(history) == 0 {
		return r.writePlain("No completed sessions\n")
	}

	for _, s := range history {
		label := s.Label
		if label == "" {
			label = "focus"
		}
		r.writePlain("%s  %s  %s\n", s.CompletedAt.Local().Format("2006-01-02 15:04"), ui.Clock(s.Duration), label)
	}
	return nil
}

// Bridge relays the timer to websocket surfaces until interrupted.
func (r *Runner) Bridge(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", r.config.Bridge.Host, r.config.Bridge.Port)
	}

	srv := bridge.NewServer(a.timer, addr, r.logger)
	if err := srv.Start(); err != nil {
		return err
	}
	r.writePlain("%s Bridge listening on ws://%s/ws, press Ctrl+C to stop\n", ui.Styles.OK("✓"), srv.Addr())

	<-ctx.Done()
	return srv.Stop()
}

func (r *Runner) timerAction(fn func(*timer.Timer) (timer.Snapshot, error)) error {
	a, err := r.open()
	if err != nil {
		return err
	}
	snap, err := fn(a.timer)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Styles.Timer(snap))
}
