// Package settings reads clinic configuration rows kept in the database.
// Values are plain strings keyed by name; callers parse them as needed.
package settings

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a configuration key does not exist.
var ErrNotFound = errors.New("setting not found")

// DefaultTTL is how long a fetched value is served from cache.
const DefaultTTL = 60 * time.Second

// Store reads and writes configuration values.
type Store interface {
	// Get returns the value for key, serving from cache within DefaultTTL.
	Get(ctx context.Context, key string) (string, error)
	// GetTTL is Get with a caller-chosen cache window.
	GetTTL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Set upserts a value and refreshes the cache entry.
	Set(ctx context.Context, key, value string) error
}

// MemoryStore is a map-backed Store for tests and local development.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates a MemoryStore seeded with the given values.
func NewMemoryStore(seed map[string]string) *MemoryStore {
	values := make(map[string]string, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &MemoryStore{values: values}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	return s.GetTTL(ctx, key, DefaultTTL)
}

func (s *MemoryStore) GetTTL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
