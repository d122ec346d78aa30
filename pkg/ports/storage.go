package ports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nearwallets/selector/pkg/domain"
)

// Storage is the persistent key-value collaborator. Semantics are
// last-writer-wins with no transactions; removing a key and its absence are
// equivalent states.
type Storage interface {
	// Get returns the value for a key, or domain.ErrKeyNotFound if absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores the value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes the key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// GetJSON reads a key and unmarshals its JSON value into T.
// Absence is reported as domain.ErrKeyNotFound.
func GetJSON[T any](ctx context.Context, s Storage, key string) (T, error) {
	var out T

	raw, err := s.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("decode stored value %q: %w", key, err)
	}
	return out, nil
}

// SetJSON marshals v and stores it under key.
func SetJSON(ctx context.Context, s Storage, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode value for %q: %w", key, err)
	}
	return s.Set(ctx, key, string(raw))
}

// IsNotFound reports whether err means the key is simply absent.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrKeyNotFound)
}
