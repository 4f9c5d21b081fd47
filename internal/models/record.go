package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/focusync/internal/shared"
)

// SortMode selects how a merged collection is ordered.
type SortMode string

const (
	SortCustom SortMode = "custom" // SortCustom orders by the record's custom order, then newest first
	SortNewest SortMode = "newest"
	SortOldest SortMode = "oldest"
	SortField  SortMode = "field" // SortField orders lexicographically by Record.SortField
)

// ParseSortMode accepts a mode name or, as a shorthand for [SortField], a field name such as "author".
//
// It returns the mode and the sort field (empty unless the mode is [SortField]).
func ParseSortMode(s string) (SortMode, string, error) {
	switch SortMode(s) {
	case SortCustom, SortNewest, SortOldest:
		return SortMode(s), "", nil
	case SortField, "":
		return "", "", fmt.Errorf("%w: sort mode %q needs a field name", shared.ErrInvalidArgument, s)
	}
	return SortField, s, nil
}

// Record is the persisted state for one entity type and user scope.
type Record[E any] struct {
	LocalOnly      []E            `json:"local_only_entities"`
	CachedMirror   []E            `json:"cached_mirror"`
	Favorites      []string       `json:"favorites"`
	Playlists      []Playlist     `json:"playlists"`
	PlaylistMirror []Playlist     `json:"playlist_mirror"` // last-known remote playlists
	PlaylistCursor map[string]int `json:"playlist_cursor"`
	ActivePlaylist string         `json:"active_playlist,omitempty"`
	SortMode       SortMode       `json:"sort_mode"`
	SortField      string         `json:"sort_field,omitempty"`
	CustomOrder    []string       `json:"custom_order"`
	SyncedAt       time.Time      `json:"synced_at,omitzero"`
}

// NewRecord returns the record a scope starts with on first access.
func NewRecord[E any]() Record[E] {
	return Record[E]{
		LocalOnly:      []E{},
		CachedMirror:   []E{},
		Favorites:      []string{},
		Playlists:      []Playlist{},
		PlaylistMirror: []Playlist{},
		PlaylistCursor: map[string]int{},
		SortMode:       SortNewest,
		CustomOrder:    []string{},
	}
}

// Normalize replaces nil collections left by older or hand-edited blobs.
//
// Callers may mutate the returned record's collections without aliasing r.
func (r Record[E]) Normalize() Record[E] {
	out := r
	out.LocalOnly = append([]E{}, r.LocalOnly...)
	out.CachedMirror = append([]E{}, r.CachedMirror...)
	out.Favorites = append([]string{}, r.Favorites...)
	out.Playlists = clonePlaylists(r.Playlists)
	out.PlaylistMirror = clonePlaylists(r.PlaylistMirror)
	out.CustomOrder = append([]string{}, r.CustomOrder...)
	out.PlaylistCursor = make(map[string]int, len(r.PlaylistCursor))
	for k, v := range r.PlaylistCursor {
		out.PlaylistCursor[k] = v
	}
	if out.SortMode == "" {
		out.SortMode = SortNewest
	}
	return out
}

func clonePlaylists(in []Playlist) []Playlist {
	out := make([]Playlist, len(in))
	for i, p := range in {
		p.MemberIDs = append([]string{}, p.MemberIDs...)
		out[i] = p
	}
	return out
}

// TimerSession is a completed focus run.
type TimerSession struct {
	ID          string        `json:"id"`
	Label       string        `json:"label,omitempty"`
	Duration    time.Duration `json:"duration"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
}
