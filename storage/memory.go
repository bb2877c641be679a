package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryKV keeps everything in a map. A positive quota caps the summed size of
// keys and values, mirroring the LocalStorage quota of a browser.
type MemoryKV struct {
	mu    sync.RWMutex
	data  map[string]string
	size  int
	quota int
}

func NewMemoryKV(quotaBytes int) *MemoryKV {
	return &MemoryKV{
		data:  make(map[string]string),
		quota: quotaBytes,
	}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	newSize := m.size + len(key) + len(value)
	if old, ok := m.data[key]; ok {
		newSize -= len(key) + len(old)
	}
	if m.quota > 0 && newSize > m.quota {
		return ErrQuotaExceeded
	}

	m.data[key] = value
	m.size = newSize
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		if old, ok := m.data[key]; ok {
			m.size -= len(key) + len(old)
			delete(m.data, key)
		}
	}
	return nil
}

func (m *MemoryKV) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Size returns the bytes currently counted against the quota.
func (m *MemoryKV) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryKV) Close() error {
	return nil
}
