package pipeline

import (
	"slices"

	"github.com/desertthunder/focusync/internal/models"
)

// find returns the entity with id from the local-only list or the cached mirror.
func find[E models.Item[E]](r models.Record[E], id string) (E, bool) {
	for _, l := range [][]E{r.LocalOnly, r.CachedMirror} {
		for _, e := range l {
			if e.EntityID() == id {
				return e, true
			}
		}
	}
	var zero E
	return zero, false
}

// replace swaps the stored entity carrying updated's ID. r must be normalized.
func replace[E models.Item[E]](r *models.Record[E], updated E) bool {
	id := updated.EntityID()
	for _, l := range [][]E{r.LocalOnly, r.CachedMirror} {
		for i, e := range l {
			if e.EntityID() == id {
				l[i] = updated
				return true
			}
		}
	}
	return false
}

// promote replaces from with to across every collection in one record.
//
// The entity leaves the local-only list and enters the cached mirror as confirmed. It reports whether the entity was
// still present; a deleted entity is not resurrected.
func promote[E models.Item[E]](r models.Record[E], from, to string) (models.Record[E], E, bool) {
	r = r.Normalize()

	var promoted E
	found := false
	local := make([]E, 0, len(r.LocalOnly))
	for _, e := range r.LocalOnly {
		if e.EntityID() == from {
			promoted, found = e.WithID(to).WithLocalOnly(false).Rewrite(from, to), true
			continue
		}
		local = append(local, e.Rewrite(from, to))
	}
	r.LocalOnly = local

	mirror := make([]E, 0, len(r.CachedMirror)+1)
	for _, e := range r.CachedMirror {
		if id := e.EntityID(); id == from || id == to {
			continue
		}
		mirror = append(mirror, e.Rewrite(from, to))
	}
	if found {
		mirror = append(mirror, promoted)
	}
	r.CachedMirror = mirror

	r.Favorites = renameID(r.Favorites, from, to)
	r.CustomOrder = renameID(r.CustomOrder, from, to)
	for i := range r.Playlists {
		r.Playlists[i] = r.Playlists[i].Rewrite(from, to)
	}
	for i := range r.PlaylistMirror {
		r.PlaylistMirror[i] = r.PlaylistMirror[i].Rewrite(from, to)
	}
	if c, ok := r.PlaylistCursor[from]; ok {
		delete(r.PlaylistCursor, from)
		r.PlaylistCursor[to] = c
	}
	if r.ActivePlaylist == from {
		r.ActivePlaylist = to
	}

	return clampCursors(r), promoted, found
}

// discard removes the entity and drops every reference to it.
func discard[E models.Item[E]](r models.Record[E], id string) models.Record[E] {
	r = r.Normalize()
	drop := func(e E) bool { return e.EntityID() == id }
	r.LocalOnly = slices.DeleteFunc(r.LocalOnly, drop)
	r.CachedMirror = slices.DeleteFunc(r.CachedMirror, drop)

	for i, e := range r.LocalOnly {
		r.LocalOnly[i] = e.Rewrite(id, "")
	}
	for i, e := range r.CachedMirror {
		r.CachedMirror[i] = e.Rewrite(id, "")
	}
	r.Favorites = renameID(r.Favorites, id, "")
	r.CustomOrder = renameID(r.CustomOrder, id, "")
	for i := range r.Playlists {
		r.Playlists[i] = r.Playlists[i].Rewrite(id, "")
	}
	return clampCursors(r)
}

// clampCursors keeps each cursor inside its playlist and forgets cursors of playlists that no longer exist.
func clampCursors[E any](r models.Record[E]) models.Record[E] {
	for key, c := range r.PlaylistCursor {
		i := models.FindPlaylist(r.Playlists, key)
		if i < 0 {
			delete(r.PlaylistCursor, key)
			continue
		}
		n := len(r.Playlists[i].MemberIDs)
		if n == 0 {
			r.PlaylistCursor[key] = 0
			continue
		}
		r.PlaylistCursor[key] = ((c % n) + n) % n
	}
	return r
}

// renameID replaces from with to in ids. An empty to removes it; duplicates collapse to the first occurrence.
func renameID(ids []string, from, to string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == from {
			id = to
		}
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
