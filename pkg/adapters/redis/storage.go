// Package redis provides a Redis-backed ports.Storage for hosts that share
// wallet selection across processes or restarts.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/nearwallets/selector/pkg/domain"
)

// Storage implements ports.Storage on a Redis client.
type Storage struct {
	client *backend.Client
	prefix string
	ttl    time.Duration // 0 means no expiry
}

// Option configures the Storage.
type Option func(*Storage)

// WithPrefix namespaces all keys, letting several selectors share one Redis.
func WithPrefix(prefix string) Option {
	return func(s *Storage) {
		s.prefix = prefix
	}
}

// WithTTL expires entries after the given duration. Selection state is
// rebuildable (the user signs in again), so aging it out is safe.
func WithTTL(ttl time.Duration) Option {
	return func(s *Storage) {
		s.ttl = ttl
	}
}

// NewFromClient wraps an existing Redis client.
func NewFromClient(client *backend.Client, opts ...Option) *Storage {
	s := &Storage{client: client, prefix: "selector:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New connects to the given address and wraps the resulting client.
func New(addr string, opts ...Option) *Storage {
	return NewFromClient(backend.NewClient(&backend.Options{Addr: addr}), opts...)
}

// Get returns the value for key, or domain.ErrKeyNotFound.
func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, backend.Nil) {
		return "", domain.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, applying the configured TTL.
func (s *Storage) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Remove deletes key. Absent keys are not an error.
func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}
