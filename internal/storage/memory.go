package storage

import (
	"fmt"
	"sync"
)

// MemoryAdapter keeps values in process memory. A positive quota caps the total stored bytes.
type MemoryAdapter struct {
	mu     sync.RWMutex
	values map[string][]byte
	size   int
	quota  int
}

// NewMemoryAdapter creates an empty adapter. A quota of zero disables the limit.
func NewMemoryAdapter(quota int) *MemoryAdapter {
	return &MemoryAdapter{values: make(map[string][]byte), quota: quota}
}

func (m *MemoryAdapter) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryAdapter) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.size - len(m.values[key]) + len(value)
	if m.quota > 0 && next > m.quota {
		return fmt.Errorf("%w: %s needs %d bytes, quota is %d", ErrQuotaExceeded, key, next, m.quota)
	}
	m.values[key] = append([]byte(nil), value...)
	m.size = next
	return nil
}

func (m *MemoryAdapter) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.size -= len(m.values[key])
	delete(m.values, key)
	return nil
}

func (m *MemoryAdapter) Close() error { return nil }

// SetQuota changes the byte limit. Existing values are kept even if they exceed it.
func (m *MemoryAdapter) SetQuota(quota int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quota = quota
}
