package session

import (
	"context"
	"sync"
)

const (
	// UserKey is the key under which the serialized user is persisted.
	UserKey = "user"
	// AccessTokenKey is the key under which the access token is persisted.
	AccessTokenKey = "access_token"
)

// Persister is an interface for components that durably store the string
// entries backing session state across process restarts.
type Persister interface {
	// Get retrieves the entry stored under the specified key. The boolean return
	// value indicates whether the entry was found.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under the specified key, overwriting any existing entry.
	Set(ctx context.Context, key string, value string) error
	// Delete removes the entry stored under the specified key. Deleting a
	// non-existent entry is not an error.
	Delete(ctx context.Context, key string) error
}

type memoryPersister struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryPersister returns a Persister that keeps entries in process memory
// only. It is useful for short-lived programs and for tests.
func NewMemoryPersister() Persister {
	return &memoryPersister{
		entries: map[string]string{},
	}
}

func (m *memoryPersister) Get(
	_ context.Context,
	key string,
) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.entries[key]
	return value, ok, nil
}

func (m *memoryPersister) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *memoryPersister) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
