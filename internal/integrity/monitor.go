package integrity

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/focusync/internal/identity"
	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
)

const (
	DefaultGrace    = 5 * time.Second
	DefaultInterval = 30 * time.Second
)

// MonitorOptions configures a [Monitor].
type MonitorOptions struct {
	Grace      time.Duration // Grace delays the first check after start or an identity change
	Interval   time.Duration // Interval separates later checks
	AutoRepair bool          // AutoRepair runs the repairer after every invalid report
	Identity   identity.Provider
	Logger     *log.Logger
	// OnCheck, if set, receives every report and the repair result when a repair ran.
	OnCheck func(Report, *RepairReport)
}

// Monitor validates periodically in the background.
type Monitor[E models.Entity] struct {
	validator *Validator[E]
	repairer  *Repairer[E]
	opts      MonitorOptions
	logger    *log.Logger
}

// NewMonitor creates a monitor. repairer may be nil, which disables auto-repair.
func NewMonitor[E models.Entity](validator *Validator[E], repairer *Repairer[E], opts MonitorOptions) *Monitor[E] {
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Monitor[E]{
		validator: validator,
		repairer:  repairer,
		opts:      opts,
		logger:    shared.WithLogger(opts.Logger, "component", "integrity"),
	}
}

// Run checks once after the grace delay and then every interval until ctx is done. An identity change restarts the
// grace delay.
func (m *Monitor[E]) Run(ctx context.Context) error {
	restart := make(chan struct{}, 1)
	if m.opts.Identity != nil {
		unsubscribe := m.opts.Identity.Subscribe(func(string) {
			select {
			case restart <- struct{}{}:
			default:
			}
		})
		defer unsubscribe()
	}

	timer := time.NewTimer(m.opts.Grace)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-restart:
			timer.Reset(m.opts.Grace)
		case <-timer.C:
			m.Check(ctx)
			timer.Reset(m.opts.Interval)
		}
	}
}

// Check runs one validation pass and, when enabled and needed, a repair.
func (m *Monitor[E]) Check(ctx context.Context) (Report, *RepairReport) {
	report := m.validator.Validate()
	if !report.Valid {
		m.logger.Warn("integrity issues found", "count", len(report.Issues))
		for _, issue := range report.Issues {
			m.logger.Debug(issue)
		}
	}

	var repaired *RepairReport
	if !report.Valid && m.opts.AutoRepair && m.repairer != nil {
		rr, err := m.repairer.Repair(ctx)
		if err != nil {
			m.logger.Error("repair failed", "error", err)
		}
		repaired = &rr
		if rr.Changed() {
			report = m.validator.Validate()
		}
	}

	if m.opts.OnCheck != nil {
		m.opts.OnCheck(report, repaired)
	}
	return report, repaired
}
