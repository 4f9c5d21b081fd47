package pipeline

import (
	"context"
	"fmt"

	"github.com/desertthunder/focusync/internal/identity"
	"github.com/desertthunder/focusync/internal/models"
)

// SyncReport summarizes a [Pipeline.SyncLocalOnly] run.
type SyncReport struct {
	Attempted int     // Attempted counts entities sent to the remote
	Promoted  int     // Promoted counts entities confirmed and moved to the cached mirror
	Failed    int     // Failed counts entities left local-only
	Errors    []error // Errors holds one [*Error] per failed entity
}

// SyncProgress is emitted after each entity during a sync.
type SyncProgress struct {
	Step    int    // Step is the 1-based position of the entity
	Total   int    // Total is the number of local-only entities at the start of the run
	ID      string // ID is the entity's identifier after the step
	Message string
	Err     error
}

// SyncLocalOnly creates every local-only entity and playlist remotely. See [Pipeline.SyncLocalOnlyWithProgress].
func (p *Pipeline[E]) SyncLocalOnly(ctx context.Context) (SyncReport, error) {
	return p.SyncLocalOnlyWithProgress(ctx, nil)
}

type syncJob struct {
	id  string
	run func(ctx context.Context) (string, error)
}

// SyncLocalOnlyWithProgress creates every local-only entity remotely, then every local-only playlist, one at a time
// and paced by the configured rate limit. Each item is promoted only after its own create succeeds; failures leave it
// local-only.
//
// Progress is reported on prog without blocking. It returns early with ctx's error if ctx is done, and stops when the
// user scope changes.
func (p *Pipeline[E]) SyncLocalOnlyWithProgress(ctx context.Context, prog chan<- SyncProgress) (SyncReport, error) {
	var report SyncReport
	scope := p.store.Scope()
	userID := identity.UserID(p.identity)
	r := p.store.Read()

	jobs := make([]syncJob, 0, len(r.LocalOnly)+len(r.Playlists))
	for _, e := range r.LocalOnly {
		id := e.EntityID()
		jobs = append(jobs, syncJob{id: id, run: func(ctx context.Context) (string, error) {
			return p.syncOne(ctx, scope, id, userID)
		}})
	}
	for _, pl := range r.Playlists {
		if !pl.LocalOnly {
			continue
		}
		id := pl.ID
		jobs = append(jobs, syncJob{id: id, run: func(ctx context.Context) (string, error) {
			return p.syncPlaylist(ctx, scope, id, userID)
		}})
	}

	for i, job := range jobs {
		if err := p.limiter.Wait(ctx); err != nil {
			return report, err
		}
		if p.store.Scope() != scope {
			return report, errScopeChanged
		}

		step := SyncProgress{Step: i + 1, Total: len(jobs), ID: job.id}

		remoteID, err := job.run(ctx)
		switch {
		case err != nil:
			report.Attempted++
			report.Failed++
			report.Errors = append(report.Errors, err)
			step.Message, step.Err = "failed", err
		case remoteID == "":
			step.Message = "skipped"
		default:
			report.Attempted++
			report.Promoted++
			step.ID = remoteID
			step.Message = fmt.Sprintf("promoted %s", job.id)
		}
		sendProgress(prog, step)
	}

	p.logger.Info("sync complete", "promoted", report.Promoted, "failed", report.Failed)
	return report, nil
}

// syncOne creates a single local-only entity. An empty remote ID with no error means the entity no longer needed
// syncing.
func (p *Pipeline[E]) syncOne(ctx context.Context, scope, id, userID string) (string, error) {
	prev, done := p.queue.enqueue(id)
	defer done()
	wait(prev)

	entity, ok := find(p.store.ReadScope(scope), id)
	if !ok || !entity.IsLocalOnly() {
		return "", nil
	}

	remoteID, err := p.remote.Create(context.WithoutCancel(ctx), userID, entity)
	if err != nil {
		p.logger.Warn("sync create failed", "id", id, "error", err)
		return "", newError("sync", id, err)
	}

	var playlists []string
	p.store.WriteScope(scope, func(r models.Record[E]) models.Record[E] {
		r, _, _ = promote(r, id, remoteID)
		playlists = containing(r.Playlists, remoteID)
		return r
	})
	p.queue.alias(id, remoteID)
	p.pushMembers(ctx, scope, playlists)
	return remoteID, nil
}

// syncPlaylist creates a single local-only playlist, with the same contract as syncOne.
func (p *Pipeline[E]) syncPlaylist(ctx context.Context, scope, id, userID string) (string, error) {
	prev, done := p.plQueue.enqueue(id)
	defer done()
	wait(prev)

	pl, ok := findPlaylist(p.store.ReadScope(scope), id)
	if !ok || !pl.LocalOnly {
		return "", nil
	}

	promoted, _, err := p.createPlaylist(context.WithoutCancel(ctx), scope, userID, id)
	if err != nil {
		p.logger.Warn("sync playlist create failed", "playlist", id, "error", err)
		return "", newError("sync", id, err)
	}
	return promoted.ID, nil
}

// Refresh replaces the cached mirror with the remote collection.
//
// On failure the cached mirror is left untouched, so the merged view keeps serving the last known remote state.
func (p *Pipeline[E]) Refresh(ctx context.Context) ([]E, error) {
	items, err := p.remote.List(ctx, identity.UserID(p.identity), "")
	if err != nil {
		return p.Merged(), newError("refresh", p.store.Key(), err)
	}
	p.adoptMirror(items)
	return p.Merged(), nil
}

// Query asks the remote for the entities matching filter. The cached mirror is not touched.
func (p *Pipeline[E]) Query(ctx context.Context, filter string) ([]E, error) {
	items, err := p.remote.List(ctx, identity.UserID(p.identity), filter)
	if err != nil {
		return nil, newError("query", p.store.Key(), err)
	}
	return items, nil
}

// Watch feeds remote pushes into the cached mirror until ctx is done or the subscription ends.
func (p *Pipeline[E]) Watch(ctx context.Context) error {
	updates, err := p.remote.Subscribe(ctx, identity.UserID(p.identity))
	if err != nil {
		return newError("watch", p.store.Key(), err)
	}

	for items := range updates {
		p.adoptMirror(items)
		p.logger.Debug("adopted push", "count", len(items))
	}
	return ctx.Err()
}

func (p *Pipeline[E]) adoptMirror(items []E) {
	now := p.now()
	p.store.Write(func(r models.Record[E]) models.Record[E] {
		r = r.Normalize()
		mirror := make([]E, 0, len(items))
		for _, e := range items {
			mirror = append(mirror, e.WithLocalOnly(false))
		}
		r.CachedMirror = mirror
		r.SyncedAt = now
		return r
	})
}

// sendProgress delivers an update without blocking when the receiver is slow or absent.
func sendProgress(prog chan<- SyncProgress, update SyncProgress) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
	default:
	}
}
