package status

import (
	"context"
	"sync"
)

// MemoryStore keeps the status record in process memory.
// It backs tests and dev builds; production builds wrap the platform's
// on-device key-value store behind the same interface.
// All methods are safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	current *Status
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(ctx context.Context) (*Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return nil, ErrStatusNotFound
	}
	// Copy on read so callers cannot mutate the stored record in place.
	return m.current.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Status) error {
	if s == nil {
		return ErrNilStatus
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = s.Clone()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = nil
	return nil
}
