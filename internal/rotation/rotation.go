// package rotation picks the next entity to show, walking the active playlist when there is one and falling back to a
// uniform random pick from the merged collection.
package rotation

import (
	"math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/reconcile"
	"github.com/desertthunder/focusync/internal/shared"
	"github.com/desertthunder/focusync/internal/state"
)

// Source tells where a selection came from.
type Source string

const (
	SourcePlaylist Source = "playlist"
	SourceRandom   Source = "random"
)

// Selection is the result of [Engine.Next].
type Selection[E any] struct {
	Entity       E
	Source       Source
	PlaylistName string // PlaylistName is set when Source is [SourcePlaylist]
}

// Engine selects entities from one scoped record.
type Engine[E models.Entity] struct {
	store  *state.PersistedState[models.Record[E]]
	logger *log.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// New creates an engine. A nil rng uses a randomly seeded source.
func New[E models.Entity](store *state.PersistedState[models.Record[E]], rng *rand.Rand, logger *log.Logger) *Engine[E] {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine[E]{
		store:  store,
		rng:    rng,
		logger: shared.WithLogger(logger, "component", "rotation"),
	}
}

// Next returns the next selection for activePlaylistID. An empty ID uses the record's active playlist.
//
// With a non-empty playlist the member at the cursor is chosen and the cursor advances, even when the member no longer
// resolves, so a dangling entry cannot stall rotation. Otherwise, or when the member is dangling, a random entity is
// chosen. It reports false when the merged collection is empty.
func (e *Engine[E]) Next(activePlaylistID string) (Selection[E], bool) {
	r := e.store.Read()
	if activePlaylistID == "" {
		activePlaylistID = r.ActivePlaylist
	}

	if i := models.FindPlaylist(r.Playlists, activePlaylistID); i < 0 || len(r.Playlists[i].MemberIDs) == 0 {
		return e.random(reconcile.MergeRecord(nil, r))
	}

	var (
		sel      Selection[E]
		ok       bool
		dangling string
	)
	e.store.Write(func(r models.Record[E]) models.Record[E] {
		r = r.Normalize()
		merged := reconcile.MergeRecord(nil, r)

		i := models.FindPlaylist(r.Playlists, activePlaylistID)
		if i < 0 || len(r.Playlists[i].MemberIDs) == 0 {
			sel, ok = e.random(merged)
			return r
		}

		pl := r.Playlists[i]
		n := len(pl.MemberIDs)
		cursor := ((r.PlaylistCursor[pl.ID] % n) + n) % n
		r.PlaylistCursor[pl.ID] = (cursor + 1) % n

		id := pl.MemberIDs[cursor]
		if entity, found := reconcile.Index(merged)[id]; found {
			sel, ok = Selection[E]{Entity: entity, Source: SourcePlaylist, PlaylistName: pl.Name}, true
			return r
		}
		dangling = id
		sel, ok = e.random(merged)
		return r
	})

	if dangling != "" {
		e.logger.Warn("playlist member not found, picked at random", "id", dangling)
	}
	return sel, ok
}

func (e *Engine[E]) random(items []E) (Selection[E], bool) {
	if len(items) == 0 {
		return Selection[E]{}, false
	}
	e.mu.Lock()
	i := e.rng.IntN(len(items))
	e.mu.Unlock()
	return Selection[E]{Entity: items[i], Source: SourceRandom}, true
}
