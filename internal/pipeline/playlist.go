package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/focusync/internal/identity"
	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
)

// Playlists returns the scope's local playlists.
func (p *Pipeline[E]) Playlists() []models.Playlist {
	return p.store.Read().Playlists
}

// CreatePlaylist adds a playlist under a temporary ID and creates it remotely. Members must exist in the merged
// collection.
//
// On confirmation the playlist, its cursor and the active selection move to the remote ID in one write. Members that
// are still temporary are held back from the remote until they are promoted.
func (p *Pipeline[E]) CreatePlaylist(ctx context.Context, name string, members ...string) (models.Playlist, *Pending[models.Playlist], error) {
	tempID := shared.GenerateTempID()
	playlist := models.NewPlaylist(strings.TrimSpace(name)).WithID(tempID).WithLocalOnly(true).WithCreatedAt(p.now())
	if err := playlist.Validate(); err != nil {
		return models.Playlist{}, nil, err
	}

	r := p.store.Read()
	for _, m := range members {
		m = p.queue.resolve(m)
		if _, ok := find(r, m); !ok {
			return models.Playlist{}, nil, fmt.Errorf("%w: %s", shared.ErrEntityNotFound, m)
		}
		if !playlist.Contains(m) {
			playlist.MemberIDs = append(playlist.MemberIDs, m)
		}
	}

	scope := p.store.Scope()
	userID := identity.UserID(p.identity)
	p.store.WriteScope(scope, func(r models.Record[E]) models.Record[E] {
		r = r.Normalize()
		r.Playlists = append(r.Playlists, playlist)
		r.PlaylistCursor[playlist.ID] = 0
		return r
	})
	p.logger.Debug("created playlist", "playlist", tempID, "members", len(playlist.MemberIDs))

	pending := newPending[models.Playlist]()
	p.background(ctx, p.plQueue, tempID, func(ctx context.Context) {
		promoted, found, err := p.createPlaylist(ctx, scope, userID, tempID)
		switch {
		case !found:
			pending.resolve(Result[models.Playlist]{Entity: playlist, State: RolledBack, Err: newError("create", tempID, shared.ErrPlaylistNotFound)})
		case err != nil:
			pending.resolve(p.failPlaylistCreate(scope, playlist, err))
		default:
			pending.resolve(Result[models.Playlist]{Entity: promoted, State: Confirmed})
		}
	})

	return playlist, pending, nil
}

// createPlaylist sends the local-only playlist id to the remote and promotes it. found is false when the playlist was
// deleted before it could be sent.
func (p *Pipeline[E]) createPlaylist(ctx context.Context, scope, userID, id string) (promoted models.Playlist, found bool, err error) {
	current, ok := findPlaylist(p.store.ReadScope(scope), id)
	if !ok {
		return models.Playlist{}, false, nil
	}

	payload := current
	payload.MemberIDs = confirmedMembers(current.MemberIDs)
	remoteID, err := p.playlists.Create(ctx, userID, payload)
	if err != nil {
		return current, true, err
	}

	p.store.WriteScope(scope, func(r models.Record[E]) models.Record[E] {
		r, promoted, _ = promotePlaylist(r, id, remoteID, payload.MemberIDs)
		return r
	})
	p.plQueue.alias(id, remoteID)
	p.logger.Debug("promoted playlist", "playlist", id, "remote_id", remoteID, "scope", scope)

	if promoted.ID == "" {
		promoted = payload.WithID(remoteID).WithLocalOnly(false)
	}
	return promoted, true, nil
}

func (p *Pipeline[E]) failPlaylistCreate(scope string, playlist models.Playlist, err error) Result[models.Playlist] {
	opErr := newError("create", playlist.ID, err)
	if opErr.Transient {
		p.logger.Warn("remote unavailable, keeping playlist local-only", "playlist", playlist.ID, "error", err)
		return Result[models.Playlist]{Entity: playlist, State: LocalOnly, Err: opErr}
	}

	p.logger.Warn("playlist create rejected, rolling back", "playlist", playlist.ID, "error", err)
	p.store.WriteScope(scope, func(r models.Record[E]) models.Record[E] { return dropPlaylist(r, playlist.ID) })
	return Result[models.Playlist]{Entity: playlist, State: RolledBack, Err: opErr}
}

// AddToPlaylist appends an entity to a playlist and sends the new member list. Adding an existing member is a no-op.
func (p *Pipeline[E]) AddToPlaylist(ctx context.Context, playlistID, entityID string) (*Pending[models.Playlist], error) {
	entityID = p.queue.resolve(entityID)
	if _, ok := find(p.store.Read(), entityID); !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrEntityNotFound, entityID)
	}
	return p.editPlaylist(ctx, playlistID, func(pl models.Playlist) models.Playlist {
		if !pl.Contains(entityID) {
			pl.MemberIDs = append(pl.MemberIDs, entityID)
		}
		return pl
	})
}

// RemoveFromPlaylist drops an entity from a playlist and sends the new member list.
func (p *Pipeline[E]) RemoveFromPlaylist(ctx context.Context, playlistID, entityID string) (*Pending[models.Playlist], error) {
	entityID = p.queue.resolve(entityID)
	return p.editPlaylist(ctx, playlistID, func(pl models.Playlist) models.Playlist {
		return pl.Rewrite(entityID, "")
	})
}

// editPlaylist applies fn locally, then updates the remote member list. A failed update restores the previous members
// if nothing changed them since.
func (p *Pipeline[E]) editPlaylist(ctx context.Context, playlistID string, fn func(models.Playlist) models.Playlist) (*Pending[models.Playlist], error) {
	playlistID = p.plQueue.resolve(playlistID)
	if models.FindPlaylist(p.store.Read().Playlists, playlistID) < 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}

	var before, after models.Playlist
	scope := p.store.Scope()
	p.store.WriteScope(scope, func(r models.Record[E]) models.Record[E] {
		r = r.Normalize()
		if i := models.FindPlaylist(r.Playlists, playlistID); i >= 0 {
			before = r.Playlists[i]
			r.Playlists[i] = fn(r.Playlists[i])
			after = r.Playlists[i]
		}
		return clampCursors(r)
	})
	if slices.Equal(before.MemberIDs, after.MemberIDs) {
		return settled(Result[models.Playlist]{Entity: after, State: Confirmed}), nil
	}

	pending := newPending[models.Playlist]()
	p.background(ctx, p.plQueue, playlistID, func(ctx context.Context) {
		pending.resolve(p.updateMembers(ctx, scope, playlistID, before.MemberIDs, after.MemberIDs))
	})
	return pending, nil
}

func (p *Pipeline[E]) updateMembers(ctx context.Context, scope, id string, prev, want []string) Result[models.Playlist] {
	remoteID := p.plQueue.resolve(id)
	latest, ok := findPlaylist(p.store.ReadScope(scope), remoteID)
	if !ok {
		return Result[models.Playlist]{State: Failed, Err: newError("update", remoteID, shared.ErrPlaylistNotFound)}
	}
	if models.IsTemporaryID(remoteID) {
		return Result[models.Playlist]{Entity: latest, State: LocalOnly}
	}

	sent := confirmedMembers(want)
	if err := p.playlists.Update(ctx, remoteID, models.Patch{"member_ids": sent}); err != nil {
		return p.revertMembers(scope, remoteID, prev, want, err)
	}

	p.store.WriteScope(scope, func(r models.Record[E]) models.Record[E] {
		r = r.Normalize()
		r.PlaylistMirror = mirrorPlaylist(r.PlaylistMirror, latest.WithID(remoteID), sent)
		latest, _ = findPlaylist(r, remoteID)
		return r
	})
	return Result[models.Playlist]{Entity: latest, State: Confirmed}
}

func (p *Pipeline[E]) revertMembers(scope, id string, prev, want []string, cause error) Result[models.Playlist] {
	opErr := newError("update", id, cause)

	var (
		latest   models.Playlist
		reverted bool
	)
	p.store.WriteScope(scope, func(r models.Record[E]) models.Record[E] {
		r = r.Normalize()
		i := models.FindPlaylist(r.Playlists, id)
		if i < 0 {
			return r
		}
		latest = r.Playlists[i]
		if !slices.Equal(latest.MemberIDs, want) {
			return r
		}
		r.Playlists[i].MemberIDs = slices.Clone(prev)
		latest, reverted = r.Playlists[i], true
		return clampCursors(r)
	})

	if !reverted {
		p.logger.Warn("playlist update failed, members changed since", "playlist", id, "error", cause)
		return Result[models.Playlist]{Entity: latest, State: Failed, Err: opErr}
	}
	p.logger.Warn("playlist update failed, reverted", "playlist", id, "error", cause)
	return Result[models.Playlist]{Entity: latest, State: Reverted, Err: opErr}
}

// pushMembers sends the current member list of each confirmed playlist in ids. It follows entity promotions and
// deletes, so failures are logged and left for the integrity repair.
func (p *Pipeline[E]) pushMembers(ctx context.Context, scope string, ids []string) {
	for _, id := range ids {
		if models.IsTemporaryID(id) {
			continue
		}
		p.background(ctx, p.plQueue, id, func(ctx context.Context) {
			pl, ok := findPlaylist(p.store.ReadScope(scope), id)
			if !ok {
				return
			}
			sent := confirmedMembers(pl.MemberIDs)
			if err := p.playlists.Update(ctx, id, models.Patch{"member_ids": sent}); err != nil {
				p.logger.Warn("playlist member push failed", "playlist", id, "error", err)
				return
			}
			p.store.WriteScope(scope, func(r models.Record[E]) models.Record[E] {
				r = r.Normalize()
				r.PlaylistMirror = mirrorPlaylist(r.PlaylistMirror, pl, sent)
				return r
			})
		})
	}
}

// DeletePlaylist removes a playlist and its cursor, then deletes it remotely. Deleting the active playlist clears the
// selection. A failed remote delete is not reverted.
func (p *Pipeline[E]) DeletePlaylist(ctx context.Context, playlistID string) (*Pending[models.Playlist], error) {
	playlistID = p.plQueue.resolve(playlistID)
	playlist, ok := findPlaylist(p.store.Read(), playlistID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}

	scope := p.store.Scope()
	p.store.WriteScope(scope, func(r models.Record[E]) models.Record[E] { return dropPlaylist(r, playlistID) })

	pending := newPending[models.Playlist]()
	p.background(ctx, p.plQueue, playlistID, func(ctx context.Context) {
		remoteID := p.plQueue.resolve(playlistID)
		if models.IsTemporaryID(remoteID) {
			pending.resolve(Result[models.Playlist]{Entity: playlist, State: Confirmed})
			return
		}

		if err := p.playlists.Delete(ctx, remoteID); err != nil {
			p.logger.Warn("remote playlist delete failed", "playlist", remoteID, "error", err)
			pending.resolve(Result[models.Playlist]{Entity: playlist, State: Failed, Err: newError("delete", remoteID, err)})
			return
		}
		p.store.WriteScope(scope, func(r models.Record[E]) models.Record[E] {
			r = r.Normalize()
			r.PlaylistMirror = slices.DeleteFunc(r.PlaylistMirror, func(pl models.Playlist) bool { return pl.ID == remoteID })
			return r
		})
		pending.resolve(Result[models.Playlist]{Entity: playlist.WithID(remoteID), State: Confirmed})
	})
	return pending, nil
}

// SetActivePlaylist selects the playlist rotation draws from. An empty ID clears the selection.
func (p *Pipeline[E]) SetActivePlaylist(playlistID string) error {
	playlistID = p.plQueue.resolve(playlistID)
	if playlistID != "" && models.FindPlaylist(p.store.Read().Playlists, playlistID) < 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	p.store.Write(func(r models.Record[E]) models.Record[E] {
		r = r.Normalize()
		r.ActivePlaylist = playlistID
		return r
	})
	return nil
}

func findPlaylist[E any](r models.Record[E], id string) (models.Playlist, bool) {
	if i := models.FindPlaylist(r.Playlists, id); i >= 0 {
		return r.Playlists[i], true
	}
	return models.Playlist{}, false
}

// containing returns the IDs of playlists that list id as a member.
func containing(playlists []models.Playlist, id string) []string {
	out := []string{}
	for _, pl := range playlists {
		if pl.Contains(id) {
			out = append(out, pl.ID)
		}
	}
	return out
}

// confirmedMembers drops members whose IDs are still temporary.
func confirmedMembers(members []string) []string {
	return slices.DeleteFunc(slices.Clone(members), models.IsTemporaryID)
}

// mirrorPlaylist records pl with members as the last known remote copy.
func mirrorPlaylist(mirror []models.Playlist, pl models.Playlist, members []string) []models.Playlist {
	pl = pl.WithLocalOnly(false)
	pl.MemberIDs = slices.Clone(members)
	if i := models.FindPlaylist(mirror, pl.ID); i >= 0 {
		mirror[i] = pl
		return mirror
	}
	return append(mirror, pl)
}

// promotePlaylist moves the playlist from to the remote ID to, with its cursor and the active selection.
func promotePlaylist[E any](r models.Record[E], from, to string, sent []string) (models.Record[E], models.Playlist, bool) {
	r = r.Normalize()
	i := models.FindPlaylist(r.Playlists, from)
	if i < 0 {
		return r, models.Playlist{}, false
	}

	r.Playlists[i] = r.Playlists[i].WithID(to).WithLocalOnly(false)
	if c, ok := r.PlaylistCursor[from]; ok {
		delete(r.PlaylistCursor, from)
		r.PlaylistCursor[to] = c
	}
	if r.ActivePlaylist == from {
		r.ActivePlaylist = to
	}
	r.PlaylistMirror = mirrorPlaylist(r.PlaylistMirror, r.Playlists[i], sent)
	return clampCursors(r), r.Playlists[i], true
}

// dropPlaylist removes a playlist, its cursor and the active selection if it pointed there.
func dropPlaylist[E any](r models.Record[E], id string) models.Record[E] {
	r = r.Normalize()
	r.Playlists = slices.DeleteFunc(r.Playlists, func(pl models.Playlist) bool { return pl.ID == id })
	delete(r.PlaylistCursor, id)
	if r.ActivePlaylist == id {
		r.ActivePlaylist = ""
	}
	return r
}
