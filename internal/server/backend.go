package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/repositories"
	"github.com/desertthunder/focusync/internal/services"
	"github.com/desertthunder/focusync/internal/shared"
)

// Backend wires the quote, task and playlist collections onto one router.
type Backend struct {
	Quotes    *Collection[models.Quote]
	Tasks     *Collection[models.Task]
	Playlists *Collection[models.Playlist]

	router *BasicRouter
	logger *log.Logger
}

// NewBackend creates the reference backend over a migrated database. A non-empty token is required as a bearer
// token on every /api route.
func NewBackend(db *sql.DB, token string, logger *log.Logger) *Backend {
	b := &Backend{
		Quotes:    NewCollection(repositories.NewQuoteRepository(db), services.QuoteCodec, logger),
		Tasks:     NewCollection(repositories.NewTaskRepository(db), services.TaskCodec, logger),
		Playlists: NewCollection(repositories.NewPlaylistRepository(db), services.PlaylistCodec, logger),
		router:    NewBasicRouter(),
		logger:    shared.WithLogger(logger, "component", "server"),
	}

	b.router.Handle(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))

	b.router.Use(Recover(b.logger), Logging(b.logger), RequireToken(token))
	b.router.Handler(b.Quotes)
	b.router.Handler(b.Tasks)
	b.router.Handler(b.Playlists)
	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) { b.router.ServeHTTP(w, r) }

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (b *Backend) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: b, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		b.logger.Info("backend listening", "addr", ln.Addr().String(), "routes", len(b.router.Routes()))
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("backend shutdown failed: %w", err)
	}
	return nil
}
