package filter

import (
	"errors"
	"testing"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
)

func TestCompile(t *testing.T) {
	t.Run("Blank matches everything", func(t *testing.T) {
		f, err := Compile("  ")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !f.Empty() {
			t.Error("expected empty filter")
		}
		var nilFilter *Filter
		if !nilFilter.Empty() || nilFilter.String() != "" {
			t.Error("expected nil filter to be empty")
		}
	})

	t.Run("Syntax errors are invalid arguments", func(t *testing.T) {
		if _, err := Compile(`author == `); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Non-boolean expressions are rejected", func(t *testing.T) {
		if _, err := Compile(`1 + 2`); err == nil {
			t.Error("expected error for numeric expression")
		}
	})
}

func TestApply(t *testing.T) {
	quotes := []models.Quote{
		{ID: "q1", Text: "Begin.", Author: "Seneca", Category: "stoic"},
		{ID: "q2", Text: "Ship it.", Author: "Anonymous", Category: "focus"},
		{ID: "tmp-1", Text: "Draft", Author: "Seneca", LocalOnly: true},
	}

	tests := []struct {
		name string
		src  string
		want []string
	}{
		{name: "Everything", src: "", want: []string{"q1", "q2", "tmp-1"}},
		{name: "Author", src: `author == "Seneca"`, want: []string{"q1", "tmp-1"}},
		{name: "Membership", src: `category in ["focus", "work"]`, want: []string{"q2"}},
		{name: "Confirmed only", src: `!local_only`, want: []string{"q1", "q2"}},
		{name: "Identifier", src: `id startsWith "q"`, want: []string{"q1", "q2"}},
		{name: "No match", src: `author == "Epictetus"`, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Compile(tt.src)
			if err != nil {
				t.Fatalf("failed to compile: %v", err)
			}
			got, err := Apply(f, quotes)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d matches, got %d", len(tt.want), len(got))
			}
			for i, q := range got {
				if q.ID != tt.want[i] {
					t.Errorf("expected %s at %d, got %s", tt.want[i], i, q.ID)
				}
			}
		})
	}

	t.Run("Tasks", func(t *testing.T) {
		tasks := []models.Task{
			{ID: "t1", Title: "Write", Priority: 3},
			{ID: "t2", Title: "Read", Priority: 1},
			{ID: "t3", Title: "Rest", Priority: 3, Done: true},
		}
		f, _ := Compile(`!done && priority >= 2`)
		got, err := Apply(f, tasks)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 1 || got[0].ID != "t1" {
			t.Errorf("expected only t1, got %+v", got)
		}
	})

	t.Run("Playlists", func(t *testing.T) {
		playlists := []models.Playlist{
			{ID: "p1", Name: "Morning", MemberIDs: []string{"q1"}},
			{ID: "p2", Name: "Empty", MemberIDs: []string{}},
		}
		f, _ := Compile(`len(member_ids) > 0`)
		got, err := Apply(f, playlists)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 1 || got[0].ID != "p1" {
			t.Errorf("expected only p1, got %+v", got)
		}
	})
}
