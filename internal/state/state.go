// package state implements PersistedState, a user-scoped, persisted and broadcast state container.
//
// A container caches one value in memory, flushes every write to a [storage.Adapter] before returning and publishes it
// through a [storage.Broadcaster] so other containers watching the same key converge on the latest write.
//
// Cross-context consistency is last writer wins: two contexts editing the same record concurrently can silently overwrite
// each other. This is the primary consistency weak point of the system. [ConflictPolicy] makes the choice explicit per
// container; merging entity collections happens one layer up, in the reconcile package.
package state

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/focusync/internal/shared"
	"github.com/desertthunder/focusync/internal/storage"
)

// ConflictPolicy decides what a container does with a value written by another context.
type ConflictPolicy int

const (
	// LastWriterWins adopts incoming values unless the container is mid-write.
	LastWriterWins ConflictPolicy = iota
	// KeepLocal ignores incoming values; the container only sees other contexts' writes after a scope reload.
	KeepLocal
)

func (p ConflictPolicy) String() string {
	switch p {
	case LastWriterWins:
		return "last-writer-wins"
	case KeepLocal:
		return "keep-local"
	default:
		return "unknown"
	}
}

// Options configures a [PersistedState].
type Options[T any] struct {
	Key        string       // Key is the logical key, e.g. "quotes-state"
	Default    func() T     // Default builds the value for a scope with nothing persisted
	Normalize  func(T) T    // Normalize, if set, runs on every loaded or adopted value
	Version    int          // Version is the current envelope version; zero means 1
	Migrations map[int]Migration
	Policy     ConflictPolicy
	Logger     *log.Logger
}

// PersistedState is a scoped, persisted value of type T.
//
// Values passed to listeners and returned by [PersistedState.Read] are shared with the container and must be treated as
// immutable; updaters given to [PersistedState.Write] return a new value instead of mutating their argument.
type PersistedState[T any] struct {
	adapter     storage.Adapter
	broadcaster storage.Broadcaster
	opts        Options[T]
	origin      string
	logger      *log.Logger

	mu          sync.Mutex // guards value, scope, unsubscribe and lastErr
	pubMu       sync.Mutex // keeps broadcasts in write order
	writes      atomic.Int32
	value       T
	scope       string
	unsubscribe func()
	lastErr     error

	lmu          sync.Mutex
	listeners    map[int]func(T)
	nextListener int
}

// ScopedKey derives the persisted key for a logical key and user. An empty user ID maps to the anonymous scope.
func ScopedKey(logical, userID string) string {
	if userID == "" {
		userID = shared.AnonymousScope
	}
	return logical + "_" + userID
}

// New creates a container in the anonymous scope and loads its persisted value. A nil broadcaster disables
// cross-context propagation.
func New[T any](adapter storage.Adapter, broadcaster storage.Broadcaster, opts Options[T]) *PersistedState[T] {
	if opts.Version <= 0 {
		opts.Version = 1
	}
	if opts.Default == nil {
		opts.Default = func() T {
			var zero T
			return zero
		}
	}

	s := &PersistedState[T]{
		adapter:     adapter,
		broadcaster: broadcaster,
		opts:        opts,
		origin:      shared.GenerateID(),
		logger:      shared.WithLogger(opts.Logger, "component", "state", "key", opts.Key),
		listeners:   make(map[int]func(T)),
	}

	s.mu.Lock()
	s.switchScope(shared.AnonymousScope)
	s.mu.Unlock()
	return s
}

// Key returns the scoped key currently in use.
func (s *PersistedState[T]) Key() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ScopedKey(s.opts.Key, s.scope)
}

// Scope returns the current user scope.
func (s *PersistedState[T]) Scope() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}

// Policy returns the container's conflict policy.
func (s *PersistedState[T]) Policy() ConflictPolicy { return s.opts.Policy }

// Read returns the current in-memory value.
func (s *PersistedState[T]) Read() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Write applies fn to the current value, persists the result and broadcasts it.
//
// The in-memory value advances even when persisting fails; see [PersistedState.LastPersistError].
func (s *PersistedState[T]) Write(fn func(T) T) T {
	return s.write("", fn)
}

// ReadScope returns the value of userID's scope. Other scopes are read from the adapter.
func (s *PersistedState[T]) ReadScope(userID string) T {
	if userID == "" {
		userID = shared.AnonymousScope
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if userID == s.scope {
		return s.value
	}
	return s.load(ScopedKey(s.opts.Key, userID))
}

// WriteScope is [PersistedState.Write] against userID's scope. When the container has moved to another scope the
// stored value is loaded, updated and persisted without touching the in-memory value or notifying listeners.
func (s *PersistedState[T]) WriteScope(userID string, fn func(T) T) T {
	if userID == "" {
		userID = shared.AnonymousScope
	}
	return s.write(userID, fn)
}

// write updates scope, or the current scope when scope is empty.
func (s *PersistedState[T]) write(scope string, fn func(T) T) T {
	s.writes.Add(1)
	s.mu.Lock()

	current := scope == "" || scope == s.scope
	if scope == "" {
		scope = s.scope
	}
	key := ScopedKey(s.opts.Key, scope)

	base := s.value
	if !current {
		base = s.load(key)
	}
	next := fn(base)

	data, err := s.encode(next)
	if err == nil {
		err = s.adapter.Set(key, data)
	}
	if current {
		s.value = next
		s.lastErr = err
	}
	if err != nil {
		s.logger.Warn("persist failed", "key", key, "error", err)
	}

	s.pubMu.Lock()
	s.mu.Unlock()
	s.writes.Add(-1)

	if s.broadcaster != nil && data != nil {
		s.broadcaster.Publish(storage.Change{Key: key, Value: data, Origin: s.origin})
	}
	s.pubMu.Unlock()

	if current {
		s.notify(next)
	}
	return next
}

// LastPersistError returns the error from the most recent write, or nil if it was persisted.
func (s *PersistedState[T]) LastPersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Subscribe registers fn to run after every local write, adopted remote write and scope switch.
func (s *PersistedState[T]) Subscribe(fn func(T)) func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn

	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		delete(s.listeners, id)
	}
}

// SetScope re-keys the container for userID. The previous scope's value is discarded from memory.
func (s *PersistedState[T]) SetScope(userID string) {
	if userID == "" {
		userID = shared.AnonymousScope
	}

	s.mu.Lock()
	if userID == s.scope {
		s.mu.Unlock()
		return
	}
	s.switchScope(userID)
	value := s.value
	s.mu.Unlock()

	s.notify(value)
}

// Reload discards the in-memory value and reads the current scope from the adapter.
func (s *PersistedState[T]) Reload() T {
	s.mu.Lock()
	s.value = s.load(ScopedKey(s.opts.Key, s.scope))
	value := s.value
	s.mu.Unlock()

	s.notify(value)
	return value
}

// Close stops receiving broadcasts and drops all listeners.
func (s *PersistedState[T]) Close() error {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.mu.Unlock()

	s.lmu.Lock()
	clear(s.listeners)
	s.lmu.Unlock()
	return nil
}

// switchScope must be called with s.mu held.
func (s *PersistedState[T]) switchScope(scope string) {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}

	s.scope = scope
	key := ScopedKey(s.opts.Key, scope)
	s.value = s.load(key)
	s.lastErr = nil

	if s.broadcaster != nil {
		s.unsubscribe = s.broadcaster.Subscribe(key, s.receive)
	}
	s.logger.Debug("scope loaded", "key", key)
}

func (s *PersistedState[T]) load(key string) T {
	data, ok, err := s.adapter.Get(key)
	if err != nil {
		s.logger.Warn("load failed, using default", "key", key, "error", err)
		return s.normalize(s.opts.Default())
	}
	if !ok {
		return s.normalize(s.opts.Default())
	}

	value, err := s.decode(data)
	if err != nil {
		s.logger.Warn("stored value unreadable, using default", "key", key, "error", err)
		return s.normalize(s.opts.Default())
	}
	return value
}

// receive adopts a broadcast value written by another container.
func (s *PersistedState[T]) receive(change storage.Change) {
	if change.Origin == s.origin || s.opts.Policy == KeepLocal {
		return
	}
	if s.writes.Load() > 0 {
		s.logger.Debug("dropped change received mid-write", "key", change.Key)
		return
	}

	value, err := s.decode(change.Value)
	if err != nil {
		s.logger.Warn("ignored unreadable change", "key", change.Key, "error", err)
		return
	}

	s.mu.Lock()
	if change.Key != ScopedKey(s.opts.Key, s.scope) || s.writes.Load() > 0 {
		s.mu.Unlock()
		return
	}
	s.value = value
	s.mu.Unlock()

	s.notify(value)
}

func (s *PersistedState[T]) notify(value T) {
	s.lmu.Lock()
	fns := make([]func(T), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

func (s *PersistedState[T]) normalize(value T) T {
	if s.opts.Normalize != nil {
		return s.opts.Normalize(value)
	}
	return value
}

func (s *PersistedState[T]) encode(value T) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return json.Marshal(envelope{Version: s.opts.Version, Data: data})
}

func (s *PersistedState[T]) decode(raw []byte) (T, error) {
	var zero T

	env := parseEnvelope(raw)
	data, err := migrate(env, s.opts.Version, s.opts.Migrations)
	if err != nil {
		return zero, err
	}

	value := s.opts.Default()
	if err := json.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to decode state: %w", err)
	}
	return s.normalize(value), nil
}
