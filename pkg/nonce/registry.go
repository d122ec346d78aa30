// Package nonce serializes nonce assignment per signing account.
//
// Nonces must be strictly increasing and gap-free per access key, and are
// assigned before any signing round-trip. Two concurrent batches against the
// same signer must therefore not interleave their assignment sections. The
// Registry provides a per-account sequence point rather than a global lock, so
// unrelated signers never contend.
package nonce

import (
	"context"
	"sync"
)

// lockEntry holds the per-account mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Registry hands out per-account critical sections. Entries are reference
// counted and garbage collected when no caller holds them.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*lockEntry)}
}

func (r *Registry) acquire(accountID string) *lockEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.locks[accountID]
	if !ok {
		entry = &lockEntry{}
		r.locks[accountID] = entry
	}
	entry.refs++
	return entry
}

func (r *Registry) release(accountID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.locks[accountID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(r.locks, accountID)
	}
}

// WithAccount runs fn while holding the account's sequence point. Assignment
// sections for the same account execute strictly one at a time; once fn has
// assigned nonces, they are consumed whether or not the submission succeeds
// (the chain rejects reuse, which is the system's backpressure signal).
func (r *Registry) WithAccount(ctx context.Context, accountID string, fn func(context.Context) error) error {
	entry := r.acquire(accountID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		r.release(accountID)
	}()

	return fn(ctx)
}
