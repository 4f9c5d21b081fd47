package repositories

import (
	"database/sql"
	"testing"
	"time"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "quotes")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if got, _ := NextSequence(db, "tasks"); got != 1 {
		t.Errorf("expected independent sequence per table, got %d", got)
	}
}

func TestQuoteRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewQuoteRepository(setupTestDB(t))

		q, err := repo.Create("u1", models.Quote{ID: "tmp-1", Text: "Begin.", Author: "Seneca", LocalOnly: true})
		if err != nil {
			t.Fatalf("failed to create quote: %v", err)
		}

		if q.ID == "" || q.ID == "tmp-1" {
			t.Errorf("expected server-assigned ID, got %q", q.ID)
		}
		if q.LocalOnly {
			t.Error("created quote should be confirmed")
		}
		if q.CreatedAt.IsZero() || q.UpdatedAt.IsZero() {
			t.Error("timestamps should be set")
		}
	})

	t.Run("Create keeps the creation time", func(t *testing.T) {
		repo := NewQuoteRepository(setupTestDB(t))
		created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

		q, err := repo.Create("u1", models.Quote{Text: "Imported", CreatedAt: created})
		if err != nil {
			t.Fatalf("failed to create quote: %v", err)
		}
		got, err := repo.Get(q.ID)
		if err != nil {
			t.Fatalf("failed to get quote: %v", err)
		}
		if !got.CreatedAt.Equal(created) {
			t.Errorf("expected %v, got %v", created, got.CreatedAt)
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewQuoteRepository(setupTestDB(t))
		q, _ := repo.Create("u1", models.NewQuote("Begin.", "Seneca", "stoic"))

		retrieved, err := repo.Get(q.ID)
		if err != nil {
			t.Fatalf("failed to get quote: %v", err)
		}

		if retrieved.ID != q.ID || retrieved.Text != "Begin." || retrieved.Category != "stoic" {
			t.Errorf("unexpected quote %+v", retrieved)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewQuoteRepository(setupTestDB(t))
		q, _ := repo.Create("u1", models.NewQuote("Begin.", "Seneca", ""))

		updated, err := repo.Update(q.ID, models.Patch{"author": "Marcus Aurelius"})
		if err != nil {
			t.Fatalf("failed to update quote: %v", err)
		}
		if updated.Author != "Marcus Aurelius" || updated.Text != "Begin." {
			t.Errorf("unexpected quote %+v", updated)
		}

		retrieved, _ := repo.Get(q.ID)
		if retrieved.Author != "Marcus Aurelius" {
			t.Errorf("expected update to persist, got %+v", retrieved)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewQuoteRepository(setupTestDB(t))
		q, _ := repo.Create("u1", models.NewQuote("Begin.", "", ""))

		if err := repo.Delete(q.ID); err != nil {
			t.Fatalf("failed to delete quote: %v", err)
		}

		if _, err := repo.Get(q.ID); err == nil {
			t.Error("expected error when getting deleted quote")
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewQuoteRepository(setupTestDB(t))
		first, _ := repo.Create("u1", models.NewQuote("One", "Seneca", "stoic"))
		repo.Create("u1", models.NewQuote("Two", "Anonymous", "focus"))
		repo.Create("u2", models.NewQuote("Other user", "Seneca", "stoic"))
		deleted, _ := repo.Create("u1", models.NewQuote("Gone", "Seneca", ""))
		repo.Delete(deleted.ID)

		quotes, err := repo.List("u1", nil)
		if err != nil {
			t.Fatalf("failed to list quotes: %v", err)
		}
		if len(quotes) != 2 {
			t.Fatalf("expected 2 quotes, got %d", len(quotes))
		}
		if quotes[0].ID != first.ID {
			t.Errorf("expected creation order, got %+v", quotes)
		}

		filtered, _ := repo.List("u1", map[string]any{"author": "Seneca"})
		if len(filtered) != 1 || filtered[0].Text != "One" {
			t.Errorf("expected one quote by Seneca, got %+v", filtered)
		}

		empty, _ := repo.List("nobody", nil)
		if empty == nil || len(empty) != 0 {
			t.Errorf("expected empty, non-nil list, got %#v", empty)
		}
	})
}

func TestTaskRepository(t *testing.T) {
	t.Run("Create and Get", func(t *testing.T) {
		repo := NewTaskRepository(setupTestDB(t))

		task, err := repo.Create("u1", models.NewTask("Write", "draft chapter", 2))
		if err != nil {
			t.Fatalf("failed to create task: %v", err)
		}

		retrieved, err := repo.Get(task.ID)
		if err != nil {
			t.Fatalf("failed to get task: %v", err)
		}
		if retrieved.Title != "Write" || retrieved.Notes != "draft chapter" || retrieved.Priority != 2 || retrieved.Done {
			t.Errorf("unexpected task %+v", retrieved)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewTaskRepository(setupTestDB(t))
		task, _ := repo.Create("u1", models.NewTask("Write", "", 1))

		updated, err := repo.Update(task.ID, models.Patch{"done": true, "priority": float64(3)})
		if err != nil {
			t.Fatalf("failed to update task: %v", err)
		}
		if !updated.Done || updated.Priority != 3 {
			t.Errorf("unexpected task %+v", updated)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewTaskRepository(setupTestDB(t))
		open, _ := repo.Create("u1", models.NewTask("Open", "", 0))
		finished, _ := repo.Create("u1", models.NewTask("Finished", "", 0))
		repo.Update(finished.ID, models.Patch{"done": true})

		all, err := repo.List("u1", nil)
		if err != nil {
			t.Fatalf("failed to list tasks: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("expected 2 tasks, got %d", len(all))
		}

		pending, _ := repo.List("u1", map[string]any{"done": false})
		if len(pending) != 1 || pending[0].ID != open.ID {
			t.Errorf("expected only the open task, got %+v", pending)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewTaskRepository(setupTestDB(t))
		task, _ := repo.Create("u1", models.NewTask("Write", "", 0))

		if err := repo.Delete(task.ID); err != nil {
			t.Fatalf("failed to delete task: %v", err)
		}
		if tasks, _ := repo.List("u1", nil); len(tasks) != 0 {
			t.Errorf("expected no tasks, got %d", len(tasks))
		}
	})
}

func TestPlaylistRepository(t *testing.T) {
	t.Run("Create and Get", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))

		p, err := repo.Create("u1", models.NewPlaylist("Morning", "q1", "q2"))
		if err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		retrieved, err := repo.Get(p.ID)
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if retrieved.Name != "Morning" || len(retrieved.MemberIDs) != 2 || retrieved.MemberIDs[1] != "q2" {
			t.Errorf("unexpected playlist %+v", retrieved)
		}
	})

	t.Run("Nil members are stored empty", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))

		p, err := repo.Create("u1", models.Playlist{Name: "Empty"})
		if err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		retrieved, _ := repo.Get(p.ID)
		if retrieved.MemberIDs == nil || len(retrieved.MemberIDs) != 0 {
			t.Errorf("expected empty member list, got %#v", retrieved.MemberIDs)
		}
	})

	t.Run("Update replaces members", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		p, _ := repo.Create("u1", models.NewPlaylist("Morning", "q1"))

		updated, err := repo.Update(p.ID, models.Patch{"member_ids": []any{"q3", "q4"}})
		if err != nil {
			t.Fatalf("failed to update playlist: %v", err)
		}
		if len(updated.MemberIDs) != 2 || updated.MemberIDs[0] != "q3" {
			t.Errorf("unexpected members %+v", updated.MemberIDs)
		}

		retrieved, _ := repo.Get(p.ID)
		if len(retrieved.MemberIDs) != 2 || retrieved.MemberIDs[1] != "q4" {
			t.Errorf("expected members to persist, got %+v", retrieved.MemberIDs)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		repo.Create("u1", models.NewPlaylist("Morning"))
		repo.Create("u1", models.NewPlaylist("Evening"))
		repo.Create("u2", models.NewPlaylist("Morning"))

		playlists, err := repo.List("u1", nil)
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if len(playlists) != 2 || playlists[0].Name != "Morning" {
			t.Errorf("unexpected playlists %+v", playlists)
		}

		named, _ := repo.List("u1", map[string]any{"name": "Evening"})
		if len(named) != 1 {
			t.Errorf("expected one playlist named Evening, got %d", len(named))
		}
	})
}
