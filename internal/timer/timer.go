// package timer implements a focus timer that survives suspension and restarts.
//
// A running timer persists its absolute deadline rather than a countdown, so the remaining time is recomputed from the
// clock on every observation and a timer whose deadline passed while nothing was running completes on the next look.
package timer

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
	"github.com/desertthunder/focusync/internal/state"
	"github.com/desertthunder/focusync/internal/storage"
)

// StateKey is the logical key of the persisted timer.
const StateKey = "focus-timer-state"

// historyLimit bounds the persisted session history.
const historyLimit = 100

// Status is the phase of the timer.
type Status string

const (
	Idle      Status = "idle" // Idle covers both a fresh and a paused timer; a paused timer keeps its remaining time
	Running   Status = "running"
	Completed Status = "completed"
)

// State is the persisted timer.
type State struct {
	Status    Status                `json:"status"`
	Deadline  time.Time             `json:"deadline,omitzero"` // Deadline is set while running
	Remaining time.Duration         `json:"remaining"`         // Remaining is the time left while paused
	Duration  time.Duration         `json:"duration"`          // Duration is the length of the current run
	Label     string                `json:"label,omitempty"`
	StartedAt time.Time             `json:"started_at,omitzero"`
	History   []models.TimerSession `json:"history"`
}

// Snapshot is the user-facing view of the timer at one instant.
type Snapshot struct {
	Status    Status
	Remaining time.Duration
	Deadline  time.Time
	Duration  time.Duration
	Label     string
}

// Paused reports whether the timer is idle with time left.
func (s Snapshot) Paused() bool { return s.Status == Idle && s.Remaining > 0 }

// Options configures a [Timer].
type Options struct {
	Now    func() time.Time // Now defaults to [time.Now]
	Policy state.ConflictPolicy
	Logger *log.Logger
}

// Timer is a persisted focus timer in the current user scope.
type Timer struct {
	st     *state.PersistedState[State]
	now    func() time.Time
	logger *log.Logger
}

// New loads the timer from adapter. Changes from other contexts arrive through broadcaster.
func New(adapter storage.Adapter, broadcaster storage.Broadcaster, opts Options) *Timer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Timer{
		st: state.New(adapter, broadcaster, state.Options[State]{
			Key:       StateKey,
			Default:   func() State { return State{Status: Idle, History: []models.TimerSession{}} },
			Normalize: normalize,
			Policy:    opts.Policy,
			Logger:    opts.Logger,
		}),
		now:    opts.Now,
		logger: shared.WithLogger(opts.Logger, "component", "timer"),
	}
}

func normalize(s State) State {
	if s.Status == "" {
		s.Status = Idle
	}
	if s.History == nil {
		s.History = []models.TimerSession{}
	}
	return s
}

// Container exposes the underlying state so it can be bound to an identity scope.
func (t *Timer) Container() *state.PersistedState[State] { return t.st }

// Start begins a run of d, replacing any current run.
func (t *Timer) Start(d time.Duration, label string) (Snapshot, error) {
	if d <= 0 {
		return Snapshot{}, fmt.Errorf("%w: duration must be positive, got %s", shared.ErrInvalidArgument, d)
	}

	now := t.now()
	s := t.st.Write(func(s State) State {
		s = normalize(s)
		s.Status = Running
		s.Deadline = now.Add(d)
		s.Remaining = 0
		s.Duration = d
		s.Label = label
		s.StartedAt = now
		return s
	})
	t.logger.Info("timer started", "duration", d, "deadline", s.Deadline)
	return t.snapshot(s, now), nil
}

// Pause stops a running timer, keeping the time left.
func (t *Timer) Pause() (Snapshot, error) {
	if snap := t.Observe(); snap.Status != Running {
		return snap, fmt.Errorf("%w: timer is %s", shared.ErrInvalidArgument, snap.Status)
	}

	now := t.now()
	s := t.st.Write(func(s State) State {
		if s.Status != Running {
			return s
		}
		s.Status = Idle
		s.Remaining = max(0, s.Deadline.Sub(now))
		s.Deadline = time.Time{}
		return s
	})
	return t.snapshot(s, now), nil
}

// Resume continues a paused timer.
func (t *Timer) Resume() (Snapshot, error) {
	if snap := t.Observe(); !snap.Paused() {
		return snap, fmt.Errorf("%w: timer is not paused", shared.ErrInvalidArgument)
	}

	now := t.now()
	s := t.st.Write(func(s State) State {
		if s.Status != Idle || s.Remaining <= 0 {
			return s
		}
		s.Status = Running
		s.Deadline = now.Add(s.Remaining)
		s.Remaining = 0
		return s
	})
	return t.snapshot(s, now), nil
}

// Reset returns the timer to idle without recording a session.
func (t *Timer) Reset() Snapshot {
	now := t.now()
	s := t.st.Write(func(s State) State {
		s = normalize(s)
		return State{Status: Idle, History: s.History}
	})
	return t.snapshot(s, now)
}

// Observe returns the current snapshot. A running timer whose deadline has passed completes and records a session.
func (t *Timer) Observe() Snapshot {
	now := t.now()
	s := t.st.Read()
	if s.Status != Running || now.Before(s.Deadline) {
		return t.snapshot(s, now)
	}

	completed := false
	s = t.st.Write(func(s State) State {
		if s.Status != Running || now.Before(s.Deadline) {
			return s
		}
		s = normalize(s)
		history := append([]models.TimerSession{}, s.History...)
		history = append(history, models.TimerSession{
			ID:          shared.GenerateID(),
			Label:       s.Label,
			Duration:    s.Duration,
			StartedAt:   s.StartedAt,
			CompletedAt: s.Deadline,
		})
		if len(history) > historyLimit {
			history = history[len(history)-historyLimit:]
		}
		s.History = history
		s.Status = Completed
		s.Remaining = 0
		completed = true
		return s
	})
	if completed {
		t.logger.Info("timer completed", "label", s.Label, "late_by", now.Sub(s.Deadline))
	}
	return t.snapshot(s, now)
}

// Snapshot is [Timer.Observe].
func (t *Timer) Snapshot() Snapshot { return t.Observe() }

// History returns completed sessions, oldest first.
func (t *Timer) History() []models.TimerSession {
	return append([]models.TimerSession{}, t.st.Read().History...)
}

// Subscribe calls fn with a fresh snapshot after every change, including changes made by other contexts.
func (t *Timer) Subscribe(fn func(Snapshot)) func() {
	return t.st.Subscribe(func(s State) { fn(t.snapshot(s, t.now())) })
}

// Run observes the timer every tick until ctx is done, calling fn with each snapshot. fn may be nil.
func (t *Timer) Run(ctx context.Context, tick time.Duration, fn func(Snapshot)) error {
	if tick <= 0 {
		tick = time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		snap := t.Observe()
		if fn != nil {
			fn(snap)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ApplyRemote adopts a timer state reported by another surface. A zero deadline or a non-running status stops the
// timer.
func (t *Timer) ApplyRemote(status Status, deadline time.Time, label string) Snapshot {
	now := t.now()
	s := t.st.Write(func(s State) State {
		s = normalize(s)
		if status != Running || deadline.IsZero() {
			return State{Status: Idle, History: s.History}
		}
		if s.Status != Running {
			s.StartedAt = now
			s.Duration = deadline.Sub(now)
		}
		s.Status = Running
		s.Deadline = deadline
		s.Remaining = 0
		s.Label = label
		return s
	})
	return t.snapshot(s, now)
}

// Close stops watching for changes from other contexts.
func (t *Timer) Close() error { return t.st.Close() }

func (t *Timer) snapshot(s State, now time.Time) Snapshot {
	snap := Snapshot{Status: s.Status, Deadline: s.Deadline, Duration: s.Duration, Label: s.Label}
	switch s.Status {
	case Running:
		snap.Remaining = max(0, s.Deadline.Sub(now))
	case Idle:
		snap.Remaining = s.Remaining
	}
	return snap
}
