package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/focusync/internal/shared"
)

// OpState is the terminal state of an optimistic mutation.
type OpState int

const (
	Confirmed  OpState = iota // Confirmed means the remote accepted the mutation
	LocalOnly                 // LocalOnly means the remote was unreachable and the change is kept for a later sync
	RolledBack                // RolledBack means an optimistic create was removed
	Reverted                  // Reverted means the touched fields of an update were restored
	Failed                    // Failed means the mutation was not applied remotely and local state was left as is
)

func (s OpState) String() string {
	switch s {
	case Confirmed:
		return "confirmed"
	case LocalOnly:
		return "local_only"
	case RolledBack:
		return "rolled_back"
	case Reverted:
		return "reverted"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("OpState(%d)", int(s))
	}
}

// Result describes how a mutation settled.
type Result[E any] struct {
	Entity E       // Entity is the final local value, or the last known value for rollbacks and deletes
	State  OpState // State is the transition the mutation ended in
	Err    error   // Err is a [*Error] unless State is [Confirmed]
}

// Pending is the handle of a mutation whose remote half may still be running.
type Pending[E any] struct {
	done   chan struct{}
	result Result[E]
}

func newPending[E any]() *Pending[E] {
	return &Pending[E]{done: make(chan struct{})}
}

func settled[E any](r Result[E]) *Pending[E] {
	p := newPending[E]()
	p.resolve(r)
	return p
}

func (p *Pending[E]) resolve(r Result[E]) {
	p.result = r
	close(p.done)
}

// Done is closed once the result is available.
func (p *Pending[E]) Done() <-chan struct{} { return p.done }

// Wait blocks until the mutation settles or ctx is done. Cancelling ctx does not cancel the mutation.
func (p *Pending[E]) Wait(ctx context.Context) (Result[E], error) {
	select {
	case <-p.done:
		return p.result, nil
	case <-ctx.Done():
		var zero Result[E]
		return zero, ctx.Err()
	}
}

var errScopeChanged = fmt.Errorf("user scope changed during sync")

// Error is a failed remote half of a mutation.
type Error struct {
	Op        string // Op is create, update, delete or sync
	ID        string // ID is the entity identifier the operation targeted
	Transient bool   // Transient reports whether the remote was unreachable rather than refusing the request
	Err       error
}

func newError(op, id string, err error) *Error {
	return &Error{Op: op, ID: id, Transient: isTransient(err), Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

// Unwrap exposes the cause and, for transient failures, [shared.ErrRemoteUnavailable].
func (e *Error) Unwrap() []error {
	if e.Transient && !errors.Is(e.Err, shared.ErrRemoteUnavailable) {
		return []error{shared.ErrRemoteUnavailable, e.Err}
	}
	return []error{e.Err}
}

func isTransient(err error) bool {
	return errors.Is(err, shared.ErrRemoteUnavailable) ||
		errors.Is(err, shared.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}
