// package bridge exposes the focus timer to other surfaces over a websocket.
//
// Surfaces send commands and every connected surface receives the resulting timer state:
//
//	-> {"kind":"start","duration_seconds":1500,"metadata":{"label":"write"}}
//	-> {"kind":"stop"}
//	<- {"kind":"state","deadline":"2025-03-01T09:25:00Z","remaining_seconds":1500,"status":"running"}
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/desertthunder/focusync/internal/shared"
	"github.com/desertthunder/focusync/internal/timer"
)

// Message kinds.
const (
	KindStart = "start"
	KindStop  = "stop"
	KindState = "state"
	KindError = "error"
)

const writeTimeout = 5 * time.Second

// Command is sent by a surface.
type Command struct {
	Kind            string            `json:"kind"`
	DurationSeconds int               `json:"duration_seconds,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// StateMessage is sent to every surface after each timer change.
type StateMessage struct {
	Kind             string    `json:"kind"`
	Deadline         time.Time `json:"deadline,omitzero"`
	RemainingSeconds int       `json:"remaining_seconds"`
	Status           string    `json:"status"`
	Label            string    `json:"label,omitempty"`
	Error            string    `json:"error,omitempty"`
}

// NewStateMessage converts a timer snapshot to its wire form.
func NewStateMessage(s timer.Snapshot) StateMessage {
	return StateMessage{
		Kind:             KindState,
		Deadline:         s.Deadline,
		RemainingSeconds: int(s.Remaining.Round(time.Second) / time.Second),
		Status:           string(s.Status),
		Label:            s.Label,
	}
}

// Server relays timer commands and state between surfaces.
type Server struct {
	timer  *timer.Timer
	addr   string
	logger *log.Logger

	clients   map[*websocket.Conn]struct{}
	clientsMu sync.RWMutex
	broadcast chan StateMessage

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	listener    net.Listener
	server      *http.Server
	unsubscribe func()
}

// NewServer creates a bridge for t listening on addr, e.g. "127.0.0.1:7777".
func NewServer(t *timer.Timer, addr string, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		timer:     t,
		addr:      addr,
		logger:    shared.WithLogger(logger, "component", "bridge"),
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan StateMessage, 64),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Handler returns the bridge routes: /ws for surfaces and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Start listens and begins relaying timer changes.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	s.Run()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("bridge listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("bridge server failed", "error", err)
		}
	}()
	return nil
}

// Run starts relaying timer changes without listening. Use it with [Server.Handler] under another server.
func (s *Server) Run() {
	s.unsubscribe = s.timer.Subscribe(func(snap timer.Snapshot) { s.Broadcast(NewStateMessage(snap)) })

	s.wg.Add(1)
	go s.broadcastLoop()
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop disconnects every surface and shuts the server down.
func (s *Server) Stop() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		conn.Close(websocket.StatusGoingAway, "bridge shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("bridge shutdown failed: %w", err)
		}
	}

	s.wg.Wait()
	return nil
}

// Broadcast queues msg for every surface. Messages are dropped when the queue is full.
func (s *Server) Broadcast(msg StateMessage) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.logger.Warn("broadcast queue full, dropping state")
	}
}

// ClientCount returns the number of connected surfaces.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.broadcast:
			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range clients {
				if err := s.send(conn, msg); err != nil {
					s.logger.Warn("failed to send state", "error", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) send(conn *websocket.Conn, msg StateMessage) error {
	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = struct{}{}
	count := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Debug("surface connected", "clients", count)

	if err := s.send(conn, NewStateMessage(s.timer.Observe())); err != nil {
		s.removeClient(conn)
		return
	}
	s.readLoop(conn)
}

// readLoop applies commands until the surface disconnects.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		var cmd Command
		if err := wsjson.Read(s.ctx, conn, &cmd); err != nil {
			return
		}
		if err := s.apply(cmd); err != nil {
			s.logger.Warn("rejected command", "kind", cmd.Kind, "error", err)
			msg := NewStateMessage(s.timer.Observe())
			msg.Kind, msg.Error = KindError, err.Error()
			if err := s.send(conn, msg); err != nil {
				return
			}
		}
	}
}

func (s *Server) apply(cmd Command) error {
	switch cmd.Kind {
	case KindStart:
		_, err := s.timer.Start(time.Duration(cmd.DurationSeconds)*time.Second, cmd.Metadata["label"])
		return err
	case KindStop:
		s.timer.Reset()
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", shared.ErrInvalidArgument, cmd.Kind)
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, ok := s.clients[conn]; !ok {
		s.clientsMu.Unlock()
		return
	}
	delete(s.clients, conn)
	count := len(s.clients)
	s.clientsMu.Unlock()

	conn.Close(websocket.StatusNormalClosure, "")
	s.logger.Debug("surface disconnected", "clients", count)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","clients":%d}`, s.ClientCount())
}
