package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/oauth2"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
)

func newQuoteRemote(url string, src oauth2.TokenSource) *HTTPRemote[models.Quote] {
	client := NewAuthorizedClient(src, 5*time.Second)
	return NewHTTPRemote(NewAPIService(url, client), QuoteCodec, shared.NewLogger(io.Discard))
}

func TestHTTPRemote(t *testing.T) {
	t.Run("List", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/quotes" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("user_id") != "u1" || r.URL.Query().Get("where") != `author == "Seneca"` {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			if r.Header.Get("Authorization") != "Bearer secret" {
				t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
			}
			w.Write([]byte(`{"data":[{"id":"r1","text":" Be still ","author":"Seneca","created_at":"2025-01-02T03:04:05Z"}]}`))
		}))
		defer server.Close()

		remote := newQuoteRemote(server.URL, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "secret"}))
		quotes, err := remote.List(context.Background(), "u1", `author == "Seneca"`)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(quotes) != 1 {
			t.Fatalf("expected one quote, got %d", len(quotes))
		}
		if quotes[0].Text != "Be still" || quotes[0].LocalOnly {
			t.Errorf("expected normalized, confirmed quote, got %+v", quotes[0])
		}
		if quotes[0].CreatedAt.Year() != 2025 {
			t.Errorf("expected parsed timestamp, got %v", quotes[0].CreatedAt)
		}
	})

	t.Run("List Malformed Payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":[{"id":"r1","text":"x","created_at":"yesterday"}]}`))
		}))
		defer server.Close()

		_, err := newQuoteRemote(server.URL, nil).List(context.Background(), "u1", "")
		if !errors.Is(err, shared.ErrMalformedResponse) {
			t.Errorf("expected ErrMalformedResponse, got %v", err)
		}
	})

	t.Run("Create", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var dto QuoteDTO
			if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if dto.ID != "" {
				t.Errorf("temporary IDs should not be sent, got %q", dto.ID)
			}
			if dto.UserID != "u1" || dto.Text != "hello" {
				t.Errorf("unexpected payload %+v", dto)
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"data":{"id":"r42","text":"hello"}}`))
		}))
		defer server.Close()

		q := models.NewQuote("hello", "", "").WithID(shared.GenerateTempID())
		id, err := newQuoteRemote(server.URL, nil).Create(context.Background(), "u1", q)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "r42" {
			t.Errorf("expected r42, got %s", id)
		}
	})

	t.Run("Create Without ID", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":{}}`))
		}))
		defer server.Close()

		_, err := newQuoteRemote(server.URL, nil).Create(context.Background(), "u1", models.NewQuote("x", "", ""))
		if !errors.Is(err, shared.ErrMalformedResponse) {
			t.Errorf("expected ErrMalformedResponse, got %v", err)
		}
	})

	t.Run("Update And Delete", func(t *testing.T) {
		var got []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = append(got, r.Method+" "+r.URL.Path)
			if r.Method == http.MethodDelete {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error":"quote not found"}`))
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		remote := newQuoteRemote(server.URL, nil)
		if err := remote.Update(context.Background(), "r1", models.Patch{"text": "new"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		err := remote.Delete(context.Background(), "r1")
		if !errors.Is(err, shared.ErrEntityNotFound) {
			t.Errorf("expected ErrEntityNotFound, got %v", err)
		}
		if len(got) != 2 || got[0] != "PATCH /api/quotes/r1" || got[1] != "DELETE /api/quotes/r1" {
			t.Errorf("unexpected requests %v", got)
		}
	})

	t.Run("Subscribe", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/quotes/subscribe" {
				http.NotFound(w, r)
				return
			}
			conn, err := websocket.Accept(w, r, nil)
			if err != nil {
				t.Errorf("accept failed: %v", err)
				return
			}
			defer conn.CloseNow()

			ctx := r.Context()
			wsjson.Write(ctx, conn, PushMessage{Kind: models.KindTask, Data: []json.RawMessage{json.RawMessage(`{"id":"t1","title":"x"}`)}})
			wsjson.Write(ctx, conn, PushMessage{Kind: models.KindQuote, Data: []json.RawMessage{json.RawMessage(`{"id":"r1","text":"pushed"}`)}})
			conn.Close(websocket.StatusNormalClosure, "")
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		updates, err := newQuoteRemote(server.URL, nil).Subscribe(ctx, "u1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		select {
		case quotes := <-updates:
			if len(quotes) != 1 || quotes[0].ID != "r1" {
				t.Errorf("unexpected push %+v", quotes)
			}
		case <-ctx.Done():
			t.Fatal("timed out waiting for push")
		}

		for range updates {
		}
	})

	t.Run("Unreachable", func(t *testing.T) {
		_, err := newQuoteRemote("http://127.0.0.1:1", nil).List(context.Background(), "u1", "")
		if !errors.Is(err, shared.ErrRemoteUnavailable) {
			t.Errorf("expected ErrRemoteUnavailable, got %v", err)
		}
	})
}

func TestOffline(t *testing.T) {
	var remote Remote[models.Task] = Offline[models.Task]{}
	ctx := context.Background()

	if _, err := remote.List(ctx, "u1", ""); !errors.Is(err, shared.ErrRemoteUnavailable) {
		t.Errorf("expected ErrRemoteUnavailable, got %v", err)
	}
	if _, err := remote.Create(ctx, "u1", models.NewTask("x", "", 0)); !errors.Is(err, shared.ErrRemoteUnavailable) {
		t.Errorf("expected ErrRemoteUnavailable, got %v", err)
	}
	if _, err := remote.Subscribe(ctx, "u1"); !errors.Is(err, shared.ErrRemoteUnavailable) {
		t.Errorf("expected ErrRemoteUnavailable, got %v", err)
	}
}

func TestCodecs(t *testing.T) {
	t.Run("Playlist null members", func(t *testing.T) {
		p, err := PlaylistCodec.Decode(json.RawMessage(`{"id":"p1","name":"focus","member_ids":null}`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p.MemberIDs == nil || len(p.MemberIDs) != 0 {
			t.Errorf("expected empty member list, got %v", p.MemberIDs)
		}
	})

	t.Run("Task round trip", func(t *testing.T) {
		task := models.NewTask("write", "notes", 2).WithID("t1")
		data, _ := json.Marshal(TaskCodec.Encode("u1", task))
		got, err := TaskCodec.Decode(data)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.ID != "t1" || got.Priority != 2 || !got.CreatedAt.Equal(task.CreatedAt) {
			t.Errorf("unexpected task %+v", got)
		}
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		if _, err := TaskCodec.Decode(json.RawMessage(`[]`)); !errors.Is(err, shared.ErrMalformedResponse) {
			t.Errorf("expected ErrMalformedResponse, got %v", err)
		}
	})
}
