package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/focusync/internal/filter"
	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/pipeline"
	"github.com/desertthunder/focusync/internal/ui"
)

// settle waits for a mutation and reports how it ended. Rollbacks and reverts are returned as errors; a change kept
// locally is a warning.
func settle[E models.Entity](ctx context.Context, r *Runner, verb string, applied bool, pending *pipeline.Pending[E]) (E, error) {
	res, err := pending.Wait(ctx)
	if err != nil {
		return res.Entity, fmt.Errorf("%s did not settle: %w", verb, err)
	}
	if !applied {
		return res.Entity, res.Err
	}

	switch res.State {
	case pipeline.Confirmed:
		r.writePlain("%s %s %s\n", ui.Styles.OK("✓"), verb, res.Entity.EntityID())
		return res.Entity, nil
	case pipeline.LocalOnly:
		r.writePlain("%s %s %s locally; the remote is unreachable, run sync later\n",
			ui.Styles.Warn("!"), verb, res.Entity.EntityID())
		return res.Entity, nil
	default:
		return res.Entity, fmt.Errorf("%s %s: %w", verb, res.State, res.Err)
	}
}

// where applies a --where expression to items.
func where[E models.Item[E]](expr string, items []E) ([]E, error) {
	f, err := filter.Compile(expr)
	if err != nil {
		return nil, err
	}
	return filter.Apply(f, items)
}

// refresh replaces the cached mirror when asked, falling back to the local view when the remote fails.
func refresh[E models.Item[E]](ctx context.Context, r *Runner, p *pipeline.Pipeline[E], enabled bool) []E {
	if !enabled {
		return p.Merged()
	}
	items, err := p.Refresh(ctx)
	if err != nil {
		r.logger.Warn("refresh failed, showing cached collection", "error", err)
	}
	return items
}

// syncLocal creates every local-only entity of p remotely, printing one line per entity.
func syncLocal[E models.Item[E]](ctx context.Context, r *Runner, p *pipeline.Pipeline[E]) error {
	progress := make(chan pipeline.SyncProgress, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if update.Err != nil {
				r.writePlain("   [%d/%d] %s %s\n", update.Step, update.Total, ui.Styles.Err("✗"), update.Message)
			} else {
				r.writePlain("   [%d/%d] %s %s\n", update.Step, update.Total, ui.Styles.OK("✓"), update.Message)
			}
		}
	}()

	report, err := p.SyncLocalOnlyWithProgress(ctx, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	if report.Attempted == 0 {
		return r.writePlain("Nothing to sync\n")
	}
	r.writePlainHeader("Sync Complete")
	r.writePlain("Promoted: %d/%d\n", report.Promoted, report.Attempted)
	if report.Failed > 0 {
		r.writePlain("Left local-only: %d\n", report.Failed)
		for _, e := range report.Errors {
			r.writePlain("  - %v\n", e)
		}
	}
	return nil
}

func localMark(local bool) string {
	if local {
		return " " + ui.Styles.Warn("[local]")
	}
	return ""
}
