package drafter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/desertthunder/focusync/internal/shared"
)

func TestParseDraft(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    Draft
		wantErr bool
	}{
		{
			name:  "Plain JSON",
			reply: `{"text":"Waste no more time arguing.","author":"Marcus Aurelius","category":"stoic"}`,
			want:  Draft{Text: "Waste no more time arguing.", Author: "Marcus Aurelius", Category: "stoic"},
		},
		{
			name:  "Fenced JSON",
			reply: "Here you go:\n```json\n{\"text\":\" Begin. \",\"author\":\"Seneca\"}\n```",
			want:  Draft{Text: "Begin.", Author: "Seneca"},
		},
		{name: "Prose", reply: "Stay focused!", wantErr: true},
		{name: "Broken JSON", reply: `{"text": "unterminated}`, wantErr: true},
		{name: "Missing text", reply: `{"author":"Anonymous"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDraft(tt.reply)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrMalformedResponse) {
					t.Errorf("expected ErrMalformedResponse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestQuoteDrafter(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("Draft", func(t *testing.T) {
		var prompt string
		d := NewQuoteDrafter(CompleterFunc(func(_ context.Context, p string) (string, error) {
			prompt = p
			return `{"text":"Do the hard thing first.","category":"focus"}`, nil
		}), logger)

		draft, err := d.Draft(context.Background(), "mornings")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(prompt, "about mornings") {
			t.Errorf("expected topic in prompt, got %q", prompt)
		}
		if q := draft.Quote(); q.Text != "Do the hard thing first." || q.Category != "focus" || q.ID != "" {
			t.Errorf("unexpected quote %+v", q)
		}
	})

	t.Run("Malformed reply is a soft failure", func(t *testing.T) {
		d := NewQuoteDrafter(CompleterFunc(func(context.Context, string) (string, error) {
			return "I cannot help with that.", nil
		}), logger)

		draft, err := d.Draft(context.Background(), "")
		if !errors.Is(err, shared.ErrMalformedResponse) {
			t.Errorf("expected ErrMalformedResponse, got %v", err)
		}
		if draft != (Draft{}) {
			t.Errorf("expected no draft, got %+v", draft)
		}
	})

	t.Run("Completer errors pass through", func(t *testing.T) {
		d := NewQuoteDrafter(CompleterFunc(func(context.Context, string) (string, error) {
			return "", shared.ErrRemoteUnavailable
		}), logger)
		if _, err := d.Draft(context.Background(), ""); !errors.Is(err, shared.ErrRemoteUnavailable) {
			t.Errorf("expected ErrRemoteUnavailable, got %v", err)
		}
	})
}

func TestAnthropicCompleter(t *testing.T) {
	t.Run("Requires an API key", func(t *testing.T) {
		if _, err := NewAnthropicCompleter(shared.DrafterConfig{}); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Complete", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.Header.Get("X-Api-Key") != "test-key" {
				t.Errorf("expected api key header, got %q", r.Header.Get("X-Api-Key"))
			}

			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if body["model"] != DefaultModel {
				t.Errorf("expected default model, got %v", body["model"])
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"id": "msg_1",
				"type": "message",
				"role": "assistant",
				"model": "claude-sonnet-4-5",
				"content": [{"type": "text", "text": "{\"text\":\"Begin.\"}"}],
				"stop_reason": "end_turn",
				"usage": {"input_tokens": 10, "output_tokens": 5}
			}`))
		}))
		defer server.Close()

		c, err := NewAnthropicCompleter(shared.DrafterConfig{APIKey: "test-key"},
			option.WithBaseURL(server.URL), option.WithMaxRetries(0))
		if err != nil {
			t.Fatalf("failed to create completer: %v", err)
		}

		reply, err := c.Complete(context.Background(), Prompt(""))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if reply != `{"text":"Begin."}` {
			t.Errorf("unexpected reply %q", reply)
		}
	})

	t.Run("Transport errors are unavailable", func(t *testing.T) {
		c, _ := NewAnthropicCompleter(shared.DrafterConfig{APIKey: "k"},
			option.WithBaseURL("http://127.0.0.1:1"), option.WithMaxRetries(0))
		if _, err := c.Complete(context.Background(), "x"); !errors.Is(err, shared.ErrRemoteUnavailable) {
			t.Errorf("expected ErrRemoteUnavailable, got %v", err)
		}
	})
}
