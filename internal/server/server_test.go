package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/services"
	"github.com/desertthunder/focusync/internal/shared"
)

func newTestBackend(t *testing.T, token string) (*Backend, *httptest.Server) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	b := NewBackend(db, token, shared.NewLogger(io.Discard))
	ts := httptest.NewServer(b)
	t.Cleanup(func() {
		ts.Close()
		db.Close()
	})
	return b, ts
}

func newRemote[E any](url, token string, codec services.Codec[E]) *services.HTTPRemote[E] {
	var src oauth2.TokenSource
	if token != "" {
		src = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	}
	api := services.NewAPIService(url, services.NewAuthorizedClient(src, 5*time.Second))
	return services.NewHTTPRemote(api, codec, shared.NewLogger(io.Discard))
}

func TestBasicRouter(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := NewBasicRouter()
	r.Use(mw("outer"), mw("inner"))
	r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("Middleware order", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}
		if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
			t.Errorf("unexpected middleware order %v", order)
		}
	})

	t.Run("Routes", func(t *testing.T) {
		if routes := r.Routes(); len(routes) != 1 || routes[0] != "GET /ping" {
			t.Errorf("unexpected routes %v", routes)
		}
	})

	t.Run("Method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("Quote lifecycle", func(t *testing.T) {
		_, ts := newTestBackend(t, "")
		remote := newRemote(ts.URL, "", services.QuoteCodec)

		id, err := remote.Create(ctx, "u1", models.Quote{ID: "tmp-1", Text: "Begin.", Author: "Seneca", LocalOnly: true})
		if err != nil {
			t.Fatalf("failed to create: %v", err)
		}
		if id == "" || id == "tmp-1" {
			t.Fatalf("expected server-assigned ID, got %q", id)
		}
		remote.Create(ctx, "u1", models.NewQuote("Ship it.", "Anonymous", ""))
		remote.Create(ctx, "u2", models.NewQuote("Not yours.", "Seneca", ""))

		quotes, err := remote.List(ctx, "u1", "")
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(quotes) != 2 || quotes[0].ID != id {
			t.Fatalf("expected the user's two quotes in order, got %+v", quotes)
		}

		filtered, err := remote.List(ctx, "u1", `author == "Seneca"`)
		if err != nil {
			t.Fatalf("failed to list with filter: %v", err)
		}
		if len(filtered) != 1 || filtered[0].Text != "Begin." {
			t.Errorf("expected one filtered quote, got %+v", filtered)
		}

		if err := remote.Update(ctx, id, models.Patch{"category": "stoic"}); err != nil {
			t.Fatalf("failed to update: %v", err)
		}
		quotes, _ = remote.List(ctx, "u1", `category == "stoic"`)
		if len(quotes) != 1 {
			t.Errorf("expected update to apply, got %+v", quotes)
		}

		if err := remote.Delete(ctx, id); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		quotes, _ = remote.List(ctx, "u1", "")
		if len(quotes) != 1 {
			t.Errorf("expected one quote after delete, got %d", len(quotes))
		}
	})

	t.Run("Errors", func(t *testing.T) {
		_, ts := newTestBackend(t, "")
		remote := newRemote(ts.URL, "", services.QuoteCodec)

		if err := remote.Update(ctx, "missing", models.Patch{"text": "x"}); !errors.Is(err, shared.ErrEntityNotFound) {
			t.Errorf("expected ErrEntityNotFound, got %v", err)
		}
		if err := remote.Delete(ctx, "missing"); !errors.Is(err, shared.ErrEntityNotFound) {
			t.Errorf("expected ErrEntityNotFound, got %v", err)
		}
		if _, err := remote.Create(ctx, "u1", models.Quote{Text: ""}); !errors.Is(err, shared.ErrRemoteRejected) {
			t.Errorf("expected ErrRemoteRejected for invalid quote, got %v", err)
		}
		if _, err := remote.List(ctx, "u1", "author =="); !errors.Is(err, shared.ErrRemoteRejected) {
			t.Errorf("expected ErrRemoteRejected for bad filter, got %v", err)
		}

		resp, err := http.Get(ts.URL + "/api/quotes")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400 without user_id, got %d", resp.StatusCode)
		}
	})

	t.Run("Token", func(t *testing.T) {
		_, ts := newTestBackend(t, "secret")

		if _, err := newRemote(ts.URL, "", services.TaskCodec).List(ctx, "u1", ""); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if _, err := newRemote(ts.URL, "secret", services.TaskCodec).List(ctx, "u1", ""); err != nil {
			t.Errorf("expected token to be accepted, got %v", err)
		}

		resp, err := http.Get(ts.URL + "/health")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected health without token, got %d", resp.StatusCode)
		}
	})

	t.Run("Subscribe pushes after mutations", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		b, ts := newTestBackend(t, "")
		remote := newRemote(ts.URL, "", services.PlaylistCodec)

		updates, err := remote.Subscribe(ctx, "u1")
		if err != nil {
			t.Fatalf("failed to subscribe: %v", err)
		}
		for b.Playlists.Subscribers() == 0 {
			select {
			case <-ctx.Done():
				t.Fatal("subscriber never registered")
			case <-time.After(10 * time.Millisecond):
			}
		}

		id, err := remote.Create(ctx, "u1", models.NewPlaylist("Morning", "q1"))
		if err != nil {
			t.Fatalf("failed to create: %v", err)
		}

		select {
		case items := <-updates:
			if len(items) != 1 || items[0].ID != id || items[0].MemberIDs[0] != "q1" {
				t.Errorf("unexpected push %+v", items)
			}
		case <-ctx.Done():
			t.Fatal("expected a push after create")
		}

		remote.Delete(ctx, id)
		select {
		case items := <-updates:
			if len(items) != 0 {
				t.Errorf("expected empty push after delete, got %+v", items)
			}
		case <-ctx.Done():
			t.Fatal("expected a push after delete")
		}
	})

	t.Run("Tasks", func(t *testing.T) {
		_, ts := newTestBackend(t, "")
		remote := newRemote(ts.URL, "", services.TaskCodec)

		id, err := remote.Create(ctx, "u1", models.NewTask("Write", "", 2))
		if err != nil {
			t.Fatalf("failed to create: %v", err)
		}
		remote.Update(ctx, id, models.Patch{"done": true})

		open, _ := remote.List(ctx, "u1", "!done")
		if len(open) != 0 {
			t.Errorf("expected no open tasks, got %+v", open)
		}
	})
}
