// Package memory provides an in-process ports.Storage, the default when no
// persistent storage is configured. Suited to tests and ephemeral hosts; state
// does not survive the process.
package memory

import (
	"context"
	"sync"

	"github.com/nearwallets/selector/pkg/domain"
)

// Storage implements ports.Storage in memory. Safe for concurrent use.
type Storage struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewStorage creates an empty in-memory storage.
func NewStorage() *Storage {
	return &Storage{data: make(map[string]string)}
}

// Get returns the value for key, or domain.ErrKeyNotFound.
func (s *Storage) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return value, nil
}

// Set stores value under key.
func (s *Storage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// Remove deletes key. Absent keys are not an error.
func (s *Storage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
