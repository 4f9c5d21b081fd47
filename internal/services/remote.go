package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/oauth2"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
)

// maxPushBytes bounds a single subscription message.
const maxPushBytes = 4 << 20

// ListResponse wraps list results.
type ListResponse struct {
	Data []json.RawMessage `json:"data"`
}

// ItemResponse wraps a single entity.
type ItemResponse struct {
	Data json.RawMessage `json:"data"`
}

// PushMessage is sent over a subscription after every change.
type PushMessage struct {
	Kind models.Kind       `json:"kind"`
	Data []json.RawMessage `json:"data"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewAuthorizedClient returns an HTTP client that adds a bearer token from src to every request.
// A nil src returns a client without authorization.
func NewAuthorizedClient(src oauth2.TokenSource, timeout time.Duration) *http.Client {
	if src == nil {
		return &http.Client{Timeout: timeout}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &oauth2.Transport{Source: src, Base: http.DefaultTransport},
	}
}

// HTTPRemote implements [Remote] against the reference backend.
type HTTPRemote[E any] struct {
	api    *APIService
	codec  Codec[E]
	logger *log.Logger
}

// NewHTTPRemote creates a remote for the collection named by codec.Kind.
func NewHTTPRemote[E any](api *APIService, codec Codec[E], logger *log.Logger) *HTTPRemote[E] {
	return &HTTPRemote[E]{
		api:    api,
		codec:  codec,
		logger: shared.WithLogger(logger, "component", "remote", "kind", string(codec.Kind)),
	}
}

func (r *HTTPRemote[E]) collection() string {
	return "/api/" + string(r.codec.Kind)
}

func (r *HTTPRemote[E]) List(ctx context.Context, userID, filter string) ([]E, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	if filter != "" {
		q.Set("where", filter)
	}

	resp, err := r.api.Get(ctx, r.collection()+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	var body ListResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", shared.ErrMalformedResponse, r.codec.Kind, err)
	}
	return r.codec.DecodeList(body.Data)
}

func (r *HTTPRemote[E]) Create(ctx context.Context, userID string, entity E) (string, error) {
	payload, err := json.Marshal(r.codec.Encode(userID, entity))
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", r.codec.Kind, err)
	}

	resp, err := r.api.Post(ctx, r.collection(), payload)
	if err != nil {
		return "", err
	}
	if err := resp.Err(); err != nil {
		return "", err
	}

	var body struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil || body.Data.ID == "" {
		return "", fmt.Errorf("%w: create %s returned no id", shared.ErrMalformedResponse, r.codec.Kind)
	}

	r.logger.Debug("created", "id", body.Data.ID)
	return body.Data.ID, nil
}

func (r *HTTPRemote[E]) Update(ctx context.Context, id string, patch models.Patch) error {
	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}

	resp, err := r.api.Patch(ctx, r.collection()+"/"+url.PathEscape(id), payload)
	if err != nil {
		return err
	}
	return resp.Err()
}

func (r *HTTPRemote[E]) Delete(ctx context.Context, id string) error {
	resp, err := r.api.Delete(ctx, r.collection()+"/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	return resp.Err()
}

// Subscribe dials the collection's websocket endpoint.
func (r *HTTPRemote[E]) Subscribe(ctx context.Context, userID string) (<-chan []E, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	endpoint := r.api.BaseURL() + r.collection() + "/subscribe?" + q.Encode()

	// Dial timeouts come from ctx; the subscription itself is long-lived.
	client := *r.api.Client()
	client.Timeout = 0

	conn, _, err := websocket.Dial(ctx, endpoint, &websocket.DialOptions{HTTPClient: &client})
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe %s: %w", shared.ErrRemoteUnavailable, r.codec.Kind, err)
	}
	conn.SetReadLimit(maxPushBytes)

	out := make(chan []E, 1)
	go func() {
		defer close(out)
		defer conn.CloseNow()

		for {
			var msg PushMessage
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				if ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
					r.logger.Warn("subscription ended", "error", err)
				}
				return
			}
			if msg.Kind != r.codec.Kind {
				continue
			}

			items, err := r.codec.DecodeList(msg.Data)
			if err != nil {
				r.logger.Warn("dropped malformed push", "error", err)
				continue
			}

			select {
			case out <- items:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Offline is a [Remote] that is never reachable. Every call fails with [shared.ErrRemoteUnavailable].
type Offline[E any] struct{}

func (Offline[E]) List(context.Context, string, string) ([]E, error) {
	return nil, fmt.Errorf("%w: offline", shared.ErrRemoteUnavailable)
}

func (Offline[E]) Create(context.Context, string, E) (string, error) {
	return "", fmt.Errorf("%w: offline", shared.ErrRemoteUnavailable)
}

func (Offline[E]) Update(context.Context, string, models.Patch) error {
	return fmt.Errorf("%w: offline", shared.ErrRemoteUnavailable)
}

func (Offline[E]) Delete(context.Context, string) error {
	return fmt.Errorf("%w: offline", shared.ErrRemoteUnavailable)
}

func (Offline[E]) Subscribe(context.Context, string) (<-chan []E, error) {
	return nil, fmt.Errorf("%w: offline", shared.ErrRemoteUnavailable)
}
