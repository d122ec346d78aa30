// Package store implements the session store: a reducer-driven state container
// with a synchronous "current value + subscribe" contract and selective
// persistence of the selected wallet id.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nearwallets/selector/internal/logging"
	"github.com/nearwallets/selector/pkg/events"
	"github.com/nearwallets/selector/pkg/ports"
)

// SelectedWalletKey is the storage key holding the selected wallet id.
const SelectedWalletKey = "selectedWalletId"

// Store owns the session state and is its single writer. Reads are
// non-blocking and always return the latest committed state.
type Store struct {
	storage ports.Storage
	logger  *slog.Logger

	// dispatchMu serializes transitions and fan-out so no two reducer
	// applications interleave and subscribers observe every state in order.
	dispatchMu sync.Mutex

	stateMu sync.RWMutex
	state   State

	subs events.Emitter[State]
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger used to record dispatched events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a store hydrated from persisted storage: if a selected wallet id
// was previously written it becomes the initial selection, pending validation
// by the controller's ModulesReady dispatch.
func New(ctx context.Context, storage ports.Storage, opts ...Option) (*Store, error) {
	s := &Store{
		storage: storage,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	selected, err := storage.Get(ctx, SelectedWalletKey)
	if err != nil && !ports.IsNotFound(err) {
		return nil, fmt.Errorf("read persisted selection: %w", err)
	}
	s.state = State{SelectedWalletID: selected}

	return s, nil
}

// State returns the current state synchronously.
func (s *Store) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Subscribe registers a handler for state transitions. The handler fires
// immediately with the current state, then once per subsequent transition in
// publish order.
func (s *Store) Subscribe(handler func(State)) events.Subscription {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	handler(s.State())
	return s.subs.Subscribe(handler)
}

// Dispatch applies a pure transition to the current state, persists the
// selected wallet id when it changed, and publishes the new state to
// subscribers. Persistence writes are skipped when the selection is unchanged.
func (s *Store) Dispatch(ctx context.Context, event Event) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.logger.Debug("store event", "event", event.Name(), "payload", fmt.Sprintf("%+v", event))

	prev := s.State()
	next := Reduce(prev, event)

	s.stateMu.Lock()
	s.state = next
	s.stateMu.Unlock()

	var syncErr error
	if next.SelectedWalletID != prev.SelectedWalletID {
		syncErr = s.syncStorage(ctx, next.SelectedWalletID)
	}

	s.subs.Emit(next)
	return syncErr
}

func (s *Store) syncStorage(ctx context.Context, selected string) error {
	if selected == "" {
		if err := s.storage.Remove(ctx, SelectedWalletKey); err != nil {
			return fmt.Errorf("remove persisted selection: %w", err)
		}
		return nil
	}
	if err := s.storage.Set(ctx, SelectedWalletKey, selected); err != nil {
		return fmt.Errorf("persist selection: %w", err)
	}
	return nil
}
