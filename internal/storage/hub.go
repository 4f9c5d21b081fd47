package storage

import "sync"

// Hub is an in-process [Broadcaster]. Subscribers run synchronously in the publisher's goroutine.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[int]func(Change)
	nextID int
}

// NewHub creates a Hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]func(Change))}
}

// Publish delivers change to every subscriber of change.Key.
func (h *Hub) Publish(change Change) {
	h.mu.RLock()
	fns := make([]func(Change), 0, len(h.subs[change.Key]))
	for _, fn := range h.subs[change.Key] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}

// Subscribe registers fn for changes to key.
func (h *Hub) Subscribe(key string, fn func(Change)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	if h.subs[key] == nil {
		h.subs[key] = make(map[int]func(Change))
	}
	h.subs[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[key], id)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
		})
	}
}

// Subscribers returns the number of subscribers for key.
func (h *Hub) Subscribers(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key])
}
