package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
)

const (
	fileExt     = ".json"
	tempPattern = ".focusync-*.tmp"
)

// FileAdapter stores each key as a JSON file in one directory.
//
// Writes go to a temporary file that is renamed into place, so readers in other processes never see a partial value.
type FileAdapter struct {
	dir string

	mu      sync.RWMutex
	onWrite func(key string, value []byte)
}

// NewFileAdapter creates dir if needed and returns an adapter rooted at it.
func NewFileAdapter(dir string) (*FileAdapter, error) {
	if dir == "" {
		return nil, fmt.Errorf("store directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileAdapter{dir: dir}, nil
}

// Dir returns the directory the adapter writes to.
func (a *FileAdapter) Dir() string { return a.dir }

func (a *FileAdapter) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(a.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, true, nil
}

func (a *FileAdapter) Set(key string, value []byte) error {
	tmp, err := os.CreateTemp(a.dir, tempPattern)
	if err != nil {
		return a.wrapWriteErr(key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return a.wrapWriteErr(key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return a.wrapWriteErr(key, err)
	}
	if err := tmp.Close(); err != nil {
		return a.wrapWriteErr(key, err)
	}

	a.mu.RLock()
	notify := a.onWrite
	a.mu.RUnlock()
	if notify != nil {
		notify(key, value)
	}

	if err := os.Rename(tmp.Name(), a.path(key)); err != nil {
		return a.wrapWriteErr(key, err)
	}
	return nil
}

func (a *FileAdapter) Delete(key string) error {
	if err := os.Remove(a.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (a *FileAdapter) Close() error { return nil }

// observe registers fn to run with every value this adapter is about to make visible.
func (a *FileAdapter) observe(fn func(key string, value []byte)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onWrite = fn
}

func (a *FileAdapter) path(key string) string {
	return filepath.Join(a.dir, url.PathEscape(key)+fileExt)
}

// keyFor maps a store file path back to its key. Temporary and foreign files are rejected.
func (a *FileAdapter) keyFor(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, fileExt) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(base, fileExt))
	if err != nil {
		return "", false
	}
	return key, true
}

func (a *FileAdapter) wrapWriteErr(key string, err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("%w: %s: %v", ErrQuotaExceeded, key, err)
	}
	return fmt.Errorf("failed to write %s: %w", key, err)
}
