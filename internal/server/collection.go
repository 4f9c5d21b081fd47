package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/desertthunder/focusync/internal/filter"
	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/services"
	"github.com/desertthunder/focusync/internal/shared"
)

const (
	maxBodyBytes = 1 << 20
	writeTimeout = 5 * time.Second
)

// Collection serves one entity type over REST and pushes changes to websocket subscribers.
type Collection[E models.Item[E]] struct {
	repo   models.Repository[E]
	codec  services.Codec[E]
	logger *log.Logger

	mu   sync.Mutex
	subs map[*websocket.Conn]string // connection -> user ID
}

// NewCollection creates a handler for the collection named by codec.Kind.
func NewCollection[E models.Item[E]](repo models.Repository[E], codec services.Codec[E], logger *log.Logger) *Collection[E] {
	return &Collection[E]{
		repo:   repo,
		codec:  codec,
		logger: shared.WithLogger(logger, "component", "server", "kind", string(codec.Kind)),
		subs:   make(map[*websocket.Conn]string),
	}
}

func (c *Collection[E]) base() string { return "/api/" + string(c.codec.Kind) }

// Routes implements [Handler].
func (c *Collection[E]) Routes() []string {
	return []string{
		"GET " + c.base(),
		"POST " + c.base(),
		"GET " + c.base() + "/subscribe",
		"PATCH " + c.base() + "/{id}",
		"DELETE " + c.base() + "/{id}",
	}
}

func (c *Collection[E]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == c.base()+"/subscribe":
		c.handleSubscribe(w, r)
	case r.Method == http.MethodGet:
		c.handleList(w, r)
	case r.Method == http.MethodPost:
		c.handleCreate(w, r)
	case r.Method == http.MethodPatch:
		c.handleUpdate(w, r)
	case r.Method == http.MethodDelete:
		c.handleDelete(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (c *Collection[E]) handleList(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	f, err := filter.Compile(r.URL.Query().Get("where"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := c.repo.List(userID, nil)
	if err != nil {
		c.fail(w, err)
		return
	}
	if items, err = filter.Apply(f, items); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := c.encodeList(userID, items)
	if err != nil {
		c.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, services.ListResponse{Data: data})
}

func (c *Collection[E]) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var owner struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(body, &owner); err != nil || owner.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	entity, err := c.codec.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := c.repo.Create(owner.UserID, entity)
	if err != nil {
		c.fail(w, err)
		return
	}

	c.logger.Info("created", "id", created.EntityID(), "user", owner.UserID)
	c.respondItem(w, http.StatusCreated, owner.UserID, created)
	c.publish()
}

func (c *Collection[E]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch models.Patch
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON object of fields")
		return
	}

	updated, err := c.repo.Update(r.PathValue("id"), patch)
	if err != nil {
		c.fail(w, err)
		return
	}

	c.respondItem(w, http.StatusOK, "", updated)
	c.publish()
}

func (c *Collection[E]) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := c.repo.Delete(r.PathValue("id")); err != nil {
		c.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	c.publish()
}

func (c *Collection[E]) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		c.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c.mu.Lock()
	c.subs[conn] = userID
	c.mu.Unlock()
	c.logger.Debug("subscriber connected", "user", userID)

	defer c.unsubscribe(conn)

	// Subscribers only listen; reading drives ping/pong and notices the close.
	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()
}

func (c *Collection[E]) unsubscribe(conn *websocket.Conn) {
	c.mu.Lock()
	delete(c.subs, conn)
	c.mu.Unlock()
	conn.CloseNow()
}

// Subscribers returns the number of open subscriptions.
func (c *Collection[E]) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// publish pushes each subscribed user's current list to their connections.
func (c *Collection[E]) publish() {
	c.mu.Lock()
	byUser := make(map[string][]*websocket.Conn)
	for conn, userID := range c.subs {
		byUser[userID] = append(byUser[userID], conn)
	}
	c.mu.Unlock()

	for userID, conns := range byUser {
		items, err := c.repo.List(userID, nil)
		if err != nil {
			c.logger.Warn("failed to list for push", "user", userID, "error", err)
			continue
		}
		data, err := c.encodeList(userID, items)
		if err != nil {
			c.logger.Warn("failed to encode push", "user", userID, "error", err)
			continue
		}

		msg := services.PushMessage{Kind: c.codec.Kind, Data: data}
		for _, conn := range conns {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := wsjson.Write(ctx, conn, msg)
			cancel()
			if err != nil {
				c.logger.Warn("dropping subscriber", "user", userID, "error", err)
				c.unsubscribe(conn)
			}
		}
	}
}

func (c *Collection[E]) encodeList(userID string, items []E) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(items))
	for _, e := range items {
		data, err := json.Marshal(c.codec.Encode(userID, e))
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", c.codec.Kind, err)
		}
		out = append(out, data)
	}
	return out, nil
}

func (c *Collection[E]) respondItem(w http.ResponseWriter, status int, userID string, e E) {
	data, err := json.Marshal(c.codec.Encode(userID, e))
	if err != nil {
		c.fail(w, err)
		return
	}
	writeJSON(w, status, services.ItemResponse{Data: data})
}

// fail maps repository errors onto status codes.
func (c *Collection[E]) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrEntityNotFound), errors.Is(err, shared.ErrPlaylistNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidPatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		c.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, services.ErrorResponse{Error: msg})
}
