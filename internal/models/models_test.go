package models

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/desertthunder/focusync/internal/shared"
)

func TestQuote(t *testing.T) {
	t.Run("Apply returns previous values of touched fields", func(t *testing.T) {
		q := NewQuote("Stay hungry", "Jobs", "work")
		next, prev, err := q.Apply(Patch{"author": "Steve Jobs"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if next.Author != "Steve Jobs" {
			t.Errorf("expected patched author, got %q", next.Author)
		}
		if q.Author != "Jobs" {
			t.Errorf("original quote should not change, got %q", q.Author)
		}
		if len(prev) != 1 || prev["author"] != "Jobs" {
			t.Errorf("expected previous author only, got %v", prev)
		}
	})

	t.Run("Apply rejects unknown fields", func(t *testing.T) {
		q := NewQuote("text", "", "")
		_, _, err := q.Apply(Patch{"color": "red"})
		if !errors.Is(err, shared.ErrInvalidPatch) {
			t.Errorf("expected ErrInvalidPatch, got %v", err)
		}
	})

	t.Run("Apply rejects empty text", func(t *testing.T) {
		q := NewQuote("text", "", "")
		got, _, err := q.Apply(Patch{"text": "  "})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if got.Text != "text" {
			t.Errorf("rejected patch should leave quote unchanged, got %q", got.Text)
		}
	})

	t.Run("SortValue is case-insensitive", func(t *testing.T) {
		q := NewQuote("Text", "Seneca", "")
		if got := q.SortValue("author"); got != "seneca" {
			t.Errorf("expected seneca, got %q", got)
		}
		if got := q.SortValue("unknown"); got != "" {
			t.Errorf("expected empty value for unknown field, got %q", got)
		}
	})
}

func TestTask(t *testing.T) {
	t.Run("Apply accepts JSON numbers", func(t *testing.T) {
		var p Patch
		if err := json.Unmarshal([]byte(`{"priority": 3, "done": true}`), &p); err != nil {
			t.Fatalf("failed to decode patch: %v", err)
		}

		next, prev, err := NewTask("write", "", 1).Apply(p)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if next.Priority != 3 || !next.Done {
			t.Errorf("expected priority 3 and done, got %d %v", next.Priority, next.Done)
		}
		if prev["priority"] != 1 || prev["done"] != false {
			t.Errorf("unexpected previous values: %v", prev)
		}
	})

	t.Run("Apply rejects fractional priority", func(t *testing.T) {
		_, _, err := NewTask("write", "", 1).Apply(Patch{"priority": 1.5})
		if !errors.Is(err, shared.ErrInvalidPatch) {
			t.Errorf("expected ErrInvalidPatch, got %v", err)
		}
	})

	t.Run("priority sorts most urgent first", func(t *testing.T) {
		low := NewTask("low", "", 1)
		high := NewTask("high", "", 9)
		if high.SortValue("priority") >= low.SortValue("priority") {
			t.Errorf("expected high priority to sort before low priority")
		}
	})
}

func TestPlaylist(t *testing.T) {
	t.Run("Rewrite replaces a member", func(t *testing.T) {
		p := NewPlaylist("morning", "a", "tmp_1", "b")
		got := p.Rewrite("tmp_1", "r1")
		if !slices.Equal(got.MemberIDs, []string{"a", "r1", "b"}) {
			t.Errorf("unexpected members: %v", got.MemberIDs)
		}
		if !slices.Equal(p.MemberIDs, []string{"a", "tmp_1", "b"}) {
			t.Errorf("original playlist should not change, got %v", p.MemberIDs)
		}
	})

	t.Run("Rewrite with empty target drops the member", func(t *testing.T) {
		got := NewPlaylist("morning", "a", "b").Rewrite("a", "")
		if !slices.Equal(got.MemberIDs, []string{"b"}) {
			t.Errorf("unexpected members: %v", got.MemberIDs)
		}
	})

	t.Run("Rewrite collapses duplicates", func(t *testing.T) {
		got := NewPlaylist("morning", "a", "b").Rewrite("b", "a")
		if !slices.Equal(got.MemberIDs, []string{"a"}) {
			t.Errorf("unexpected members: %v", got.MemberIDs)
		}
	})

	t.Run("Apply decodes member lists", func(t *testing.T) {
		next, prev, err := NewPlaylist("p", "a").Apply(Patch{"member_ids": []any{"x", "y"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(next.MemberIDs, []string{"x", "y"}) {
			t.Errorf("unexpected members: %v", next.MemberIDs)
		}
		if !slices.Equal(prev["member_ids"].([]string), []string{"a"}) {
			t.Errorf("unexpected previous members: %v", prev["member_ids"])
		}
	})

	t.Run("FindPlaylist", func(t *testing.T) {
		lists := []Playlist{{ID: "p1"}, {ID: "p2"}}
		if got := FindPlaylist(lists, "p2"); got != 1 {
			t.Errorf("expected index 1, got %d", got)
		}
		if got := FindPlaylist(lists, "p3"); got != -1 {
			t.Errorf("expected -1, got %d", got)
		}
	})
}

func TestPatch(t *testing.T) {
	p := Patch{"text": "a", "author": "b"}

	if !p.Matches(Patch{"text": "a", "author": "b", "category": "c"}) {
		t.Error("expected patch to match superset")
	}
	if p.Matches(Patch{"text": "a", "author": "z"}) {
		t.Error("expected patch not to match changed field")
	}

	sub := p.Subset([]string{"text", "missing"})
	if len(sub) != 1 || sub["text"] != "a" {
		t.Errorf("unexpected subset: %v", sub)
	}
}

func TestRecord(t *testing.T) {
	t.Run("Normalize fills nil collections", func(t *testing.T) {
		var r Record[Quote]
		r = r.Normalize()
		if r.LocalOnly == nil || r.CachedMirror == nil || r.PlaylistCursor == nil {
			t.Error("expected collections to be initialised")
		}
		if r.SortMode != SortNewest {
			t.Errorf("expected default sort mode, got %q", r.SortMode)
		}
	})

	t.Run("Normalize does not alias", func(t *testing.T) {
		r := NewRecord[Quote]()
		r.Playlists = []Playlist{NewPlaylist("p", "a")}
		c := r.Normalize()
		c.Playlists[0].MemberIDs[0] = "z"
		if r.Playlists[0].MemberIDs[0] != "a" {
			t.Error("normalized copy should not share member slices")
		}
	})

	t.Run("JSON layout", func(t *testing.T) {
		data, err := json.Marshal(NewRecord[Quote]())
		if err != nil {
			t.Fatalf("failed to marshal record: %v", err)
		}
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatalf("failed to unmarshal record: %v", err)
		}
		for _, key := range []string{"local_only_entities", "cached_mirror", "favorites", "playlists", "playlist_cursor", "sort_mode", "custom_order"} {
			if _, ok := raw[key]; !ok {
				t.Errorf("expected key %s in %s", key, data)
			}
		}
	})
}

func TestParseSortMode(t *testing.T) {
	tests := []struct {
		in        string
		wantMode  SortMode
		wantField string
		wantErr   bool
	}{
		{"custom", SortCustom, "", false},
		{"newest", SortNewest, "", false},
		{"oldest", SortOldest, "", false},
		{"author", SortField, "author", false},
		{"field", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			mode, field, err := ParseSortMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if mode != tt.wantMode || field != tt.wantField {
				t.Errorf("expected %q/%q, got %q/%q", tt.wantMode, tt.wantField, mode, field)
			}
		})
	}

	if !IsTemporaryID(shared.GenerateTempID()) {
		t.Error("generated temporary IDs should be recognised")
	}
}
