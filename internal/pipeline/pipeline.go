// package pipeline applies user mutations to scoped state immediately and confirms them against the remote in the
// background.
//
// Creates are written under a temporary ID and promoted in a single store write once the remote assigns a real one.
// Every remote failure settles the [Pending] handle with an explicit [OpState] transition:
//
//   - create: rejected creates are rolled back, unreachable remotes leave the entity local-only for [Pipeline.SyncLocalOnly]
//   - update: the touched fields are reverted if they still hold the patched values
//   - delete: the failure is logged and the local removal stands
//
// Playlists follow the same rules through their own remote; see [Pipeline.CreatePlaylist].
//
// The remote halves of mutations on the same entity run in issue order, and run to completion even when the caller's
// context is cancelled.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/focusync/internal/identity"
	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/reconcile"
	"github.com/desertthunder/focusync/internal/services"
	"github.com/desertthunder/focusync/internal/shared"
	"github.com/desertthunder/focusync/internal/state"
	"github.com/desertthunder/focusync/internal/storage"
)

// Logical keys of the persisted records.
const (
	QuotesKey = "quotes-state"
	TasksKey  = "task-state"
)

// OpenRecord creates the scoped record container for one entity type under the logical key.
func OpenRecord[E any](adapter storage.Adapter, broadcaster storage.Broadcaster, key string, policy state.ConflictPolicy, logger *log.Logger) *state.PersistedState[models.Record[E]] {
	return state.New(adapter, broadcaster, state.Options[models.Record[E]]{
		Key:       key,
		Default:   models.NewRecord[E],
		Normalize: models.Record[E].Normalize,
		Policy:    policy,
		Logger:    logger,
	})
}

// Options configures a [Pipeline].
type Options struct {
	RateLimit float64                          // RateLimit bounds remote creates per second during [Pipeline.SyncLocalOnly]; 0 is unlimited
	Now       func() time.Time                 // Now stamps new entities; defaults to [time.Now]
	Playlists services.Remote[models.Playlist] // Playlists receives playlist mutations; nil keeps playlists local-only
	Logger    *log.Logger
}

// Pipeline mutates one entity type.
type Pipeline[E models.Item[E]] struct {
	store     *state.PersistedState[models.Record[E]]
	remote    services.Remote[E]
	playlists services.Remote[models.Playlist]
	identity  identity.Provider
	limiter   *rate.Limiter
	now       func() time.Time
	logger    *log.Logger

	queue    *queue // entity chains
	plQueue  *queue // playlist chains
	inflight sync.WaitGroup
}

// New creates a pipeline over store. A nil identity is treated as signed out.
func New[E models.Item[E]](store *state.PersistedState[models.Record[E]], remote services.Remote[E], ident identity.Provider, opts Options) *Pipeline[E] {
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Playlists == nil {
		opts.Playlists = services.Offline[models.Playlist]{}
	}

	return &Pipeline[E]{
		store:     store,
		remote:    remote,
		playlists: opts.Playlists,
		identity:  ident,
		limiter:   rate.NewLimiter(limit, 1),
		now:       opts.Now,
		logger:    shared.WithLogger(opts.Logger, "component", "pipeline", "key", store.Key()),
		queue:     newQueue(),
		plQueue:   newQueue(),
	}
}

// Record returns the current scoped record.
func (p *Pipeline[E]) Record() models.Record[E] { return p.store.Read() }

// Merged returns the reconciled collection: cached mirror plus local-only entities, deduplicated and ordered.
func (p *Pipeline[E]) Merged() []E {
	return reconcile.MergeRecord(nil, p.store.Read())
}

// Find returns the entity with id from the merged collection. Promoted temporary IDs resolve to their remote ID.
func (p *Pipeline[E]) Find(id string) (E, bool) {
	return find(p.store.Read(), p.queue.resolve(id))
}

// Drain waits until every issued remote mutation has settled or ctx is done.
func (p *Pipeline[E]) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// background runs fn after every earlier mutation on id in q, detached from ctx's cancellation.
func (p *Pipeline[E]) background(ctx context.Context, q *queue, id string, fn func(ctx context.Context)) {
	prev, done := q.enqueue(id)
	ctx = context.WithoutCancel(ctx)

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		defer done()
		wait(prev)
		fn(ctx)
	}()
}

// Create writes draft to the local-only list under a temporary ID and creates it remotely.
//
// The returned entity is the optimistic local value. The outcome is applied to the scope the entity was created in,
// even if the user scope changes before the remote answers.
func (p *Pipeline[E]) Create(ctx context.Context, draft E) (E, *Pending[E]) {
	tempID := shared.GenerateTempID()
	entity := draft.WithID(tempID).WithLocalOnly(true)
	if entity.Created().IsZero() {
		entity = entity.WithCreatedAt(p.now())
	}

	scope := p.store.Scope()
	userID := identity.UserID(p.identity)
	p.store.WriteScope(scope, func(r models.Record[E]) models.Record[E] {
		r = r.Normalize()
		r.LocalOnly = append(r.LocalOnly, entity)
		return r
	})
	p.logger.Debug("created locally", "id", tempID)

	pending := newPending[E]()
	p.background(ctx, p.queue, tempID, func(ctx context.Context) {
		current, ok := find(p.store.ReadScope(scope), tempID)
		if !ok {
			current = entity
		}

		remoteID, err := p.remote.Create(ctx, userID, current)
		if err != nil {
			pending.resolve(p.failCreate(scope, current, err))
			return
		}

		var (
			promoted  E
			playlists []string
		)
		p.store.WriteScope(scope, func(r models.Record[E]) models.Record[E] {
			r, promoted, _ = promote(r, tempID, remoteID)
			playlists = containing(r.Playlists, remoteID)
			return r
		})
		p.queue.alias(tempID, remoteID)
		p.logger.Debug("promoted", "id", tempID, "remote_id", remoteID, "scope", scope)
		p.pushMembers(ctx, scope, playlists)

		if promoted.EntityID() == "" {
			promoted = current.WithID(remoteID).WithLocalOnly(false)
		}
		pending.resolve(Result[E]{Entity: promoted, State: Confirmed})
	})

	return entity, pending
}

func (p *Pipeline[E]) failCreate(scope string, entity E, err error) Result[E] {
	id := entity.EntityID()
	opErr := newError("create", id, err)
	if opErr.Transient {
		p.logger.Warn("remote unavailable, keeping entity local-only", "id", id, "error", err)
		return Result[E]{Entity: entity, State: LocalOnly, Err: opErr}
	}

	p.logger.Warn("create rejected, rolling back", "id", id, "error", err)
	p.store.WriteScope(scope, func(r models.Record[E]) models.Record[E] { return discard(r, id) })
	return Result[E]{Entity: entity, State: RolledBack, Err: opErr}
}

// Update patches the entity in place and sends the patch to the remote.
//
// It reports false without writing when the entity is unknown or the patch does not apply.
func (p *Pipeline[E]) Update(ctx context.Context, id string, patch models.Patch) (bool, *Pending[E]) {
	id = p.queue.resolve(id)

	current, ok := find(p.store.Read(), id)
	if !ok {
		return false, settled(Result[E]{State: Failed, Err: newError("update", id, shared.ErrEntityNotFound)})
	}
	if _, _, err := current.Apply(patch); err != nil {
		return false, settled(Result[E]{Entity: current, State: Failed, Err: newError("update", id, err)})
	}

	var (
		updated E
		prev    models.Patch
		applied bool
	)
	scope := p.store.Scope()
	p.store.WriteScope(scope, func(r models.Record[E]) models.Record[E] {
		r = r.Normalize()
		e, ok := find(r, id)
		if !ok {
			return r
		}
		next, before, err := e.Apply(patch)
		if err != nil {
			return r
		}
		updated, prev, applied = next, before, replace(&r, next)
		return r
	})
	if !applied {
		return false, settled(Result[E]{State: Failed, Err: newError("update", id, shared.ErrEntityNotFound)})
	}

	keys := patch.Keys()
	want := updated.Fields().Subset(keys)

	pending := newPending[E]()
	p.background(ctx, p.queue, id, func(ctx context.Context) {
		remoteID := p.queue.resolve(id)
		if models.IsTemporaryID(remoteID) {
			latest, ok := find(p.store.ReadScope(scope), remoteID)
			if !ok {
				pending.resolve(Result[E]{Entity: updated, State: Failed, Err: newError("update", remoteID, shared.ErrEntityNotFound)})
				return
			}
			pending.resolve(Result[E]{Entity: latest, State: LocalOnly})
			return
		}

		if err := p.remote.Update(ctx, remoteID, patch); err != nil {
			pending.resolve(p.revertUpdate(scope, remoteID, keys, want, prev, err))
			return
		}

		latest, _ := find(p.store.ReadScope(scope), remoteID)
		pending.resolve(Result[E]{Entity: latest, State: Confirmed})
	})

	return true, pending
}

// revertUpdate restores prev on the fields in keys, provided they still hold the values in want.
func (p *Pipeline[E]) revertUpdate(scope, id string, keys []string, want, prev models.Patch, cause error) Result[E] {
	opErr := newError("update", id, cause)

	var (
		latest   E
		reverted bool
	)
	p.store.WriteScope(scope, func(r models.Record[E]) models.Record[E] {
		r = r.Normalize()
		e, ok := find(r, id)
		if !ok {
			return r
		}
		latest = e
		if !want.Matches(e.Fields().Subset(keys)) {
			return r
		}
		restored, _, err := e.Apply(prev)
		if err != nil {
			return r
		}
		latest, reverted = restored, replace(&r, restored)
		return r
	})

	if !reverted {
		p.logger.Warn("update failed, fields changed since", "id", id, "error", cause)
		return Result[E]{Entity: latest, State: Failed, Err: opErr}
	}
	p.logger.Warn("update failed, reverted", "id", id, "fields", keys, "error", cause)
	return Result[E]{Entity: latest, State: Reverted, Err: opErr}
}

// Delete removes the entity and every reference to it, then deletes it remotely.
//
// It reports false when the entity is unknown. A failed remote delete is not reverted. Confirmed playlists that held
// the entity receive their new member list.
func (p *Pipeline[E]) Delete(ctx context.Context, id string) (bool, *Pending[E]) {
	id = p.queue.resolve(id)

	entity, ok := find(p.store.Read(), id)
	if !ok {
		return false, settled(Result[E]{State: Failed, Err: newError("delete", id, shared.ErrEntityNotFound)})
	}

	scope := p.store.Scope()
	var playlists []string
	p.store.WriteScope(scope, func(r models.Record[E]) models.Record[E] {
		playlists = containing(r.Playlists, id)
		return discard(r, id)
	})
	if !models.IsTemporaryID(id) {
		p.pushMembers(ctx, scope, playlists)
	}

	pending := newPending[E]()
	p.background(ctx, p.queue, id, func(ctx context.Context) {
		remoteID := p.queue.resolve(id)
		if models.IsTemporaryID(remoteID) {
			pending.resolve(Result[E]{Entity: entity, State: Confirmed})
			return
		}

		if err := p.remote.Delete(ctx, remoteID); err != nil {
			p.logger.Warn("remote delete failed", "id", remoteID, "error", err)
			pending.resolve(Result[E]{Entity: entity, State: Failed, Err: newError("delete", remoteID, err)})
			return
		}
		pending.resolve(Result[E]{Entity: entity.WithID(remoteID), State: Confirmed})
	})

	return true, pending
}
