package repositories

import (
	"errors"
	"testing"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
)

func TestQuoteRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			repo := NewQuoteRepository(setupTestDB(t))

			_, err := repo.Create("u1", models.Quote{Text: "  "})
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}

			if quotes, _ := repo.List("u1", nil); len(quotes) != 0 {
				t.Errorf("expected nothing stored, got %d", len(quotes))
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewQuoteRepository(setupTestDB(t))

			if _, err := repo.Get("nonexistent-id"); !errors.Is(err, shared.ErrEntityNotFound) {
				t.Fatalf("expected ErrEntityNotFound, got %v", err)
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewQuoteRepository(setupTestDB(t))

			if _, err := repo.Update("nonexistent-id", models.Patch{"text": "x"}); !errors.Is(err, shared.ErrEntityNotFound) {
				t.Fatalf("expected ErrEntityNotFound, got %v", err)
			}
		})

		t.Run("Deleted", func(t *testing.T) {
			repo := NewQuoteRepository(setupTestDB(t))
			q, _ := repo.Create("u1", models.NewQuote("Begin.", "", ""))
			repo.Delete(q.ID)

			if _, err := repo.Update(q.ID, models.Patch{"text": "x"}); err == nil {
				t.Fatal("expected error when updating deleted quote")
			}
		})

		t.Run("InvalidPatch", func(t *testing.T) {
			repo := NewQuoteRepository(setupTestDB(t))
			q, _ := repo.Create("u1", models.NewQuote("Begin.", "", ""))

			tests := []struct {
				name  string
				patch models.Patch
			}{
				{name: "Unknown field", patch: models.Patch{"rating": 5}},
				{name: "Wrong type", patch: models.Patch{"text": 42}},
				{name: "Empty text", patch: models.Patch{"text": ""}},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					if _, err := repo.Update(q.ID, tt.patch); err == nil {
						t.Fatal("expected validation error")
					}
				})
			}

			if retrieved, _ := repo.Get(q.ID); retrieved.Text != "Begin." {
				t.Errorf("rejected patches should not change the quote, got %+v", retrieved)
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewQuoteRepository(setupTestDB(t))

			if err := repo.Delete("nonexistent-id"); !errors.Is(err, shared.ErrEntityNotFound) {
				t.Fatalf("expected ErrEntityNotFound, got %v", err)
			}
		})

		t.Run("AlreadyDeleted", func(t *testing.T) {
			repo := NewQuoteRepository(setupTestDB(t))
			q, _ := repo.Create("u1", models.NewQuote("Begin.", "", ""))

			if err := repo.Delete(q.ID); err != nil {
				t.Fatalf("failed to delete quote: %v", err)
			}
			if err := repo.Delete(q.ID); err == nil {
				t.Fatal("expected error when deleting twice")
			}
		})
	})
}

func TestTaskRepositoryErrors(t *testing.T) {
	repo := NewTaskRepository(setupTestDB(t))

	t.Run("ValidationError", func(t *testing.T) {
		if _, err := repo.Create("u1", models.Task{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrEntityNotFound) {
			t.Errorf("expected ErrEntityNotFound, got %v", err)
		}
		if err := repo.Delete("missing"); !errors.Is(err, shared.ErrEntityNotFound) {
			t.Errorf("expected ErrEntityNotFound, got %v", err)
		}
	})
}

func TestPlaylistRepositoryErrors(t *testing.T) {
	repo := NewPlaylistRepository(setupTestDB(t))

	t.Run("ValidationError", func(t *testing.T) {
		if _, err := repo.Create("u1", models.Playlist{Name: ""}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
		if _, err := repo.Update("missing", models.Patch{"name": "x"}); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})
}
