package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore implements Backend using in-memory storage
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates a new in-memory store seeded with values
func NewMemoryStore(values map[string]string) *MemoryStore {
	s := &MemoryStore{
		values: make(map[string]string, len(values)),
	}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// Get returns the value stored under key
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.values[key]
	return value, exists, nil
}

// Put stores value under key
func (s *MemoryStore) Put(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}


// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
