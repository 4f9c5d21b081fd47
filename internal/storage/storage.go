// package storage provides the durable key-value adapters and change broadcasters that scoped state is built on.
//
// An [Adapter] stores opaque JSON blobs under namespaced keys. A [Broadcaster] fans out every write to the other
// execution contexts watching the same key: [Hub] connects contexts inside one process, [DirWatcher] connects
// processes that share a [FileAdapter] directory.
package storage

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/focusync/internal/shared"
)

// ErrQuotaExceeded is returned when an adapter refuses a write because it would exceed its capacity.
var ErrQuotaExceeded = fmt.Errorf("storage quota exceeded")

// Adapter is a durable, synchronous key-value store.
type Adapter interface {
	Get(key string) ([]byte, bool, error) // Get returns the stored value and whether the key exists
	Set(key string, value []byte) error   // Set durably writes value before returning
	Delete(key string) error              // Delete removes key; removing a missing key is not an error
	Close() error
}

// Change is a single write observed by a [Broadcaster].
type Change struct {
	Key    string
	Value  []byte
	Origin string // Origin identifies the context that wrote the value
}

// Broadcaster notifies subscribers about writes made by other contexts.
type Broadcaster interface {
	Publish(change Change)
	Subscribe(key string, fn func(Change)) (unsubscribe func())
}

// Open builds the adapter and broadcaster selected by config.
func Open(config shared.StoreConfig, logger *log.Logger) (Adapter, Broadcaster, error) {
	switch config.Driver {
	case "", "sqlite":
		db, err := shared.NewDatabase(config.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate store: %w", err)
		}
		return NewSQLiteAdapter(db), NewHub(), nil
	case "file":
		adapter, err := NewFileAdapter(config.Dir)
		if err != nil {
			return nil, nil, err
		}
		watcher, err := NewDirWatcher(adapter, logger)
		if err != nil {
			return nil, nil, err
		}
		return &watchedAdapter{FileAdapter: adapter, watcher: watcher}, watcher, nil
	case "memory":
		return NewMemoryAdapter(0), NewHub(), nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown store driver %q", shared.ErrInvalidConfig, config.Driver)
	}
}

// watchedAdapter stops the directory watcher when the store is closed.
type watchedAdapter struct {
	*FileAdapter
	watcher *DirWatcher
}

func (w *watchedAdapter) Close() error {
	if err := w.watcher.Stop(); err != nil {
		return err
	}
	return w.FileAdapter.Close()
}
