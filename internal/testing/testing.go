// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/focusync/internal/models"
)

// FakeRemote is an in-memory remote collaborator for one entity type.
//
// Create assigns sequential IDs r1, r2, ... and Update applies patches to stored items. Set the *Err fields to make the
// matching call fail, UpdateErrs to fail updates of single IDs, and Gate to hold creates until it is closed.
type FakeRemote[E identifiable[E]] struct {
	mu         sync.Mutex
	items      []E
	calls      []string
	next       int
	pushes     chan []E
	CreateErr  error
	UpdateErr  error
	UpdateErrs map[string]error
	DeleteErr  error
	ListErr    error
	Gate       chan struct{}
}

type identifiable[E any] interface {
	EntityID() string
	WithID(id string) E
}

// NewFakeRemote returns a remote holding items.
func NewFakeRemote[E identifiable[E]](items ...E) *FakeRemote[E] {
	return &FakeRemote[E]{items: append([]E{}, items...), pushes: make(chan []E, 8)}
}

func (f *FakeRemote[E]) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

// Calls returns the calls received so far, e.g. "create", "update r1" or "delete r1".
func (f *FakeRemote[E]) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

// Items returns the remote collection.
func (f *FakeRemote[E]) Items() []E {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]E{}, f.items...)
}

// SetItems replaces the remote collection.
func (f *FakeRemote[E]) SetItems(items ...E) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append([]E{}, items...)
}

// Push sends items to subscribers.
func (f *FakeRemote[E]) Push(items ...E) { f.pushes <- items }

// EndSubscription closes the subscription channel.
func (f *FakeRemote[E]) EndSubscription() { close(f.pushes) }

func (f *FakeRemote[E]) List(_ context.Context, _, filter string) ([]E, error) {
	f.record("list " + filter)
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Items(), nil
}

func (f *FakeRemote[E]) Create(ctx context.Context, _ string, entity E) (string, error) {
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.record("create")
	if f.CreateErr != nil {
		return "", f.CreateErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := fmt.Sprintf("r%d", f.next)
	f.items = append(f.items, entity.WithID(id))
	return id, nil
}

// patchable items are updated in place by [FakeRemote.Update].
type patchable[E any] interface {
	Apply(p models.Patch) (E, models.Patch, error)
}

func (f *FakeRemote[E]) Update(_ context.Context, id string, patch models.Patch) error {
	f.record("update " + id)
	if err := f.UpdateErrs[id]; err != nil {
		return err
	}
	if f.UpdateErr != nil {
		return f.UpdateErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, item := range f.items {
		if item.EntityID() != id {
			continue
		}
		if p, ok := any(item).(patchable[E]); ok {
			if next, _, err := p.Apply(patch); err == nil {
				f.items[i] = next
			}
		}
	}
	return nil
}

func (f *FakeRemote[E]) Delete(_ context.Context, id string) error {
	f.record("delete " + id)
	if f.DeleteErr != nil {
		return f.DeleteErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = slices.DeleteFunc(f.items, func(e E) bool { return e.EntityID() == id })
	return nil
}

func (f *FakeRemote[E]) Subscribe(context.Context, string) (<-chan []E, error) {
	f.record("subscribe")
	return f.pushes, nil
}

// ManualClock is a settable clock.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(t time.Time) *ManualClock { return &ManualClock{now: t} }

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
