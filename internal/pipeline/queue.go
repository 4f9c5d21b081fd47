package pipeline

import "sync"

// queue serializes the remote halves of mutations on the same entity.
//
// A temporary ID is aliased to its remote ID once promoted, so work queued under either name shares one chain.
type queue struct {
	mu      sync.Mutex
	tails   map[string]chan struct{}
	aliases map[string]string
}

func newQueue() *queue {
	return &queue{tails: map[string]chan struct{}{}, aliases: map[string]string{}}
}

// resolve returns the remote ID a temporary ID was promoted to, or id itself.
func (q *queue) resolve(id string) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.resolveLocked(id)
}

func (q *queue) resolveLocked(id string) string {
	if to, ok := q.aliases[id]; ok {
		return to
	}
	return id
}

// enqueue reserves the next slot for id. The caller waits on prev (nil if the chain was idle) and calls done when
// finished.
func (q *queue) enqueue(id string) (prev <-chan struct{}, done func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := q.resolveLocked(id)
	prev = q.tails[key]
	ch := make(chan struct{})
	q.tails[key] = ch

	return prev, func() {
		close(ch)
		q.mu.Lock()
		defer q.mu.Unlock()
		for k, tail := range q.tails {
			if tail == ch {
				delete(q.tails, k)
			}
		}
	}
}

// alias records a promotion. Work queued under from stays ahead of later work on to.
func (q *queue) alias(from, to string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.aliases[from] = to
	if tail, ok := q.tails[from]; ok {
		q.tails[to] = tail
	}
}

func wait(prev <-chan struct{}) {
	if prev != nil {
		<-prev
	}
}
