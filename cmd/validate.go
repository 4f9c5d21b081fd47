package main

import (
	"context"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/focusync/internal/integrity"
	"github.com/desertthunder/focusync/internal/ui"
)

// Validate checks that every playlist resolves against the merged quote collection.
func (r *Runner) Validate(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}

	validator := integrity.NewValidator(a.quoteStore)
	repairer := integrity.NewRepairer(a.quoteStore, a.playlists, a.session, r.logger)

	if cmd.Bool("watch") {
		monitor := integrity.NewMonitor(validator, repairer, integrity.MonitorOptions{
			Grace:      r.config.Integrity.Grace,
			Interval:   r.config.Integrity.Interval,
			AutoRepair: r.config.Integrity.AutoRepair || cmd.Bool("repair"),
			Identity:   a.session,
			Logger:     r.logger,
			OnCheck: func(report integrity.Report, repaired *integrity.RepairReport) {
				r.printReport(report)
				if repaired != nil {
					r.printRepair(*repaired)
				}
			},
		})
		r.writePlain("Watching playlists, press Ctrl+C to stop\n")
		return monitor.Run(ctx)
	}

	report := validator.Validate()
	r.printReport(report)
	if !cmd.Bool("repair") {
		return nil
	}

	repaired, err := repairer.Repair(ctx)
	r.printRepair(repaired)
	if repaired.Changed() {
		r.printReport(validator.Validate())
	}
	return err
}

func (r *Runner) printReport(report integrity.Report) {
	stamp := report.CheckedAt.Format("15:04:05")
	if report.Valid {
		r.writePlain("%s %s playlists are valid\n", ui.Styles.OK("✓"), ui.Styles.Help(stamp))
		return
	}
	r.writePlain("%s %s %d issue(s)\n", ui.Styles.Err("✗"), ui.Styles.Help(stamp), len(report.Issues))
	for _, issue := range report.Issues {
		r.writePlain("  - %s\n", issue)
	}
}

func (r *Runner) printRepair(rr integrity.RepairReport) {
	r.writePlainHeader("Repair")
	if rr.Stale {
		r.writePlain("%s remote unreachable, used the cached mirror\n", ui.Styles.Warn("!"))
	}
	r.writePlain("Adopted: %s\n", joinOrNone(rr.Adopted))
	r.writePlain("Pushed: %s\n", joinOrNone(rr.Pushed))
	if len(rr.Failed) > 0 {
		r.writePlain("%s Failed: %s\n", ui.Styles.Err("✗"), joinOrNone(rr.Failed))
	}
	for _, c := range rr.Conflicts {
		r.writePlain("%s conflict on %q (%s): local %d, remote %d members\n",
			ui.Styles.Warn("!"), c.Name, c.PlaylistID, len(c.Local), len(c.Remote))
	}
}

func joinOrNone(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}
