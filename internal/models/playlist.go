package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/focusync/internal/shared"
)

// Playlist is a named, ordered list of entity identifiers.
//
// Playlists reference entities by ID and never own them; members may dangle until the integrity
// validator reports them.
type Playlist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MemberIDs []string  `json:"member_ids"`
	LocalOnly bool      `json:"local_only,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPlaylist creates an unsaved playlist with the given members.
func NewPlaylist(name string, members ...string) Playlist {
	return Playlist{Name: name, MemberIDs: append([]string{}, members...), CreatedAt: time.Now()}
}

func (p Playlist) EntityID() string   { return p.ID }
func (p Playlist) Created() time.Time { return p.CreatedAt }
func (p Playlist) IsLocalOnly() bool  { return p.LocalOnly }

func (p Playlist) SortValue(field string) string {
	if field == "name" {
		return strings.ToLower(p.Name)
	}
	return ""
}

func (p Playlist) WithID(id string) Playlist          { p.ID = id; return p }
func (p Playlist) WithLocalOnly(local bool) Playlist  { p.LocalOnly = local; return p }
func (p Playlist) WithCreatedAt(t time.Time) Playlist { p.CreatedAt = t; return p }
func (p Playlist) References() []string               { return p.MemberIDs }

// Fields returns a copy of the member list alongside the name.
func (p Playlist) Fields() Patch {
	return Patch{"name": p.Name, "member_ids": slices.Clone(p.MemberIDs)}
}

// Rewrite replaces member from with to. An empty to removes the member.
//
// A rewrite that would duplicate an existing member collapses it into one entry.
func (p Playlist) Rewrite(from, to string) Playlist {
	if !slices.Contains(p.MemberIDs, from) {
		return p
	}
	members := make([]string, 0, len(p.MemberIDs))
	for _, id := range p.MemberIDs {
		if id == from {
			id = to
		}
		if id == "" || slices.Contains(members, id) {
			continue
		}
		members = append(members, id)
	}
	p.MemberIDs = members
	return p
}

// Apply patches the name and member list.
func (p Playlist) Apply(patch Patch) (Playlist, Patch, error) {
	next := p
	prev := make(Patch, len(patch))
	for field, v := range patch {
		switch field {
		case "name":
			s, err := patchString(field, v)
			if err != nil {
				return p, nil, err
			}
			prev[field], next.Name = next.Name, s
		case "member_ids":
			members, err := patchStrings(field, v)
			if err != nil {
				return p, nil, err
			}
			prev[field] = slices.Clone(next.MemberIDs)
			next.MemberIDs = members
		default:
			return p, nil, unknownField(KindPlaylist, field)
		}
	}
	if err := next.Validate(); err != nil {
		return p, nil, err
	}
	return next, prev, nil
}

// Validate checks that the playlist is named.
func (p Playlist) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}
	return nil
}

// Contains reports whether id is a member.
func (p Playlist) Contains(id string) bool {
	return slices.Contains(p.MemberIDs, id)
}

// FindPlaylist returns the index of the playlist with the given ID, or -1.
func FindPlaylist(playlists []Playlist, id string) int {
	return slices.IndexFunc(playlists, func(p Playlist) bool { return p.ID == id })
}
