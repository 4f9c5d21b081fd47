package storage

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/desertthunder/focusync/internal/shared"
)

// ExternalOrigin tags changes written by another process.
const ExternalOrigin = "external"

// DirWatcher broadcasts writes to a [FileAdapter] directory, including writes made by other processes.
//
// Local publishes are delivered in-process like a [Hub]. File events whose content matches the last value this
// process wrote or saw are dropped, so a process never receives its own writes twice.
type DirWatcher struct {
	hub     *Hub
	adapter *FileAdapter
	watcher *fsnotify.Watcher
	logger  *log.Logger

	mu      sync.Mutex
	seen    map[string][]byte
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewDirWatcher starts watching the adapter's directory.
func NewDirWatcher(adapter *FileAdapter, logger *log.Logger) (*DirWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(adapter.Dir()); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch store directory %s: %w", adapter.Dir(), err)
	}

	w := &DirWatcher{
		hub:     NewHub(),
		adapter: adapter,
		watcher: watcher,
		logger:  shared.WithLogger(logger, "component", "watcher"),
		seen:    make(map[string][]byte),
		running: true,
		done:    make(chan struct{}),
	}
	adapter.observe(w.remember)

	w.wg.Add(1)
	go w.processEvents()
	return w, nil
}

func (w *DirWatcher) Publish(change Change) {
	w.remember(change.Key, change.Value)
	w.hub.Publish(change)
}

func (w *DirWatcher) Subscribe(key string, fn func(Change)) func() {
	return w.hub.Subscribe(key, fn)
}

// Stop stops watching and blocks until the event loop exits.
func (w *DirWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *DirWatcher) remember(key string, value []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seen[key] = append([]byte(nil), value...)
}

// fresh records value as seen and reports whether it differs from the previous value for key.
func (w *DirWatcher) fresh(key string, value []byte) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.seen[key]; ok && bytes.Equal(prev, value) {
		return false
	}
	w.seen[key] = append([]byte(nil), value...)
	return true
}

func (w *DirWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *DirWatcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	key, ok := w.adapter.keyFor(event.Name)
	if !ok {
		return
	}

	value, found, err := w.adapter.Get(key)
	if err != nil {
		w.logger.Warn("failed to read changed record", "key", key, "error", err)
		return
	}
	if !found || !w.fresh(key, value) {
		return
	}

	w.logger.Debug("external change", "key", key, "bytes", len(value))
	w.hub.Publish(Change{Key: key, Value: value, Origin: ExternalOrigin})
}
