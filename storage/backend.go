// Package storage provides validated, fallback-safe key/value persistence
// for connector preferences. A Backend supplies raw item storage; Adapter
// layers validation, error recovery and an in-memory fallback on top so
// reads never fail from the caller's perspective.
package storage

import "sync"

// Backend is the raw persistence contract. Implementations may fail on any
// call (quota exceeded, connection loss, disabled storage); Adapter absorbs
// those failures.
type Backend interface {
	// GetItem returns the stored value and whether the key was present.
	GetItem(key string) (value string, ok bool, err error)

	// SetItem stores a value under key, overwriting any existing value.
	SetItem(key, value string) error

	// RemoveItem deletes the key. Removing an absent key is not an error.
	RemoveItem(key string) error
}

// MemoryBackend is an in-process Backend. It never fails and is the default
// when no durable backend is configured.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]string)}
}

func (m *MemoryBackend) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryBackend) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MemoryBackend) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

var _ Backend = (*MemoryBackend)(nil)
