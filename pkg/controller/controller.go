/*
Package controller owns the configured wallet set: it instantiates modules from
their factories, resolves the active wallet through the session store, and
routes sign-in, sign-out and account reads.

The controller holds a non-owning lookup from wallet id to adapter instance;
each adapter remains the sole owner of its connection state.
*/
package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nearwallets/selector/internal/logging"
	"github.com/nearwallets/selector/pkg/domain"
	"github.com/nearwallets/selector/pkg/events"
	"github.com/nearwallets/selector/pkg/observability"
	"github.com/nearwallets/selector/pkg/ports"
	"github.com/nearwallets/selector/pkg/store"
)

// Config carries the collaborators shared by every instantiated wallet.
type Config struct {
	Network    domain.Network
	ContractID string
	Factories  []ports.ModuleFactory
	Storage    ports.Storage
	Provider   ports.Provider
	Metrics    *observability.Metrics
}

// Controller routes public API calls to the active wallet adapter.
type Controller struct {
	cfg    Config
	store  *store.Store
	bus    *events.Bus
	logger *slog.Logger

	modules []domain.ModuleDescriptor
	wallets map[string]ports.Wallet
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New creates a controller over the session store and event bus. Call Init to
// instantiate modules and hydrate the selection.
func New(cfg Config, sessionStore *store.Store, bus *events.Bus, opts ...Option) *Controller {
	c := &Controller{
		cfg:     cfg,
		store:   sessionStore,
		bus:     bus,
		logger:  logging.NewNop(),
		wallets: map[string]ports.Wallet{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init runs every module factory, instantiates the resulting wallets, and
// dispatches the hydration event. A persisted selection survives only when it
// resolves to a wallet that is still signed in; anything else is discarded.
//
// A factory returning nil opted out (its backend is unreachable); a factory
// returning an error is skipped with a warning so one broken backend cannot
// take down the rest.
func (c *Controller) Init(ctx context.Context) error {
	for _, factory := range c.cfg.Factories {
		module, err := factory(ctx)
		if err != nil {
			c.logger.Warn("wallet module failed to set up", "err", err)
			continue
		}
		if module == nil {
			continue
		}
		if _, exists := c.wallets[module.Descriptor.ID]; exists {
			return fmt.Errorf("duplicate wallet module %q", module.Descriptor.ID)
		}

		wallet, err := module.Setup(ctx, ports.WalletDeps{
			Network:    c.cfg.Network,
			ContractID: c.cfg.ContractID,
			Storage:    c.cfg.Storage,
			Provider:   c.cfg.Provider,
			Bus:        c.bus,
			Logger:     c.logger,
			Metrics:    c.cfg.Metrics,
		})
		if err != nil {
			return fmt.Errorf("set up wallet %q: %w", module.Descriptor.ID, err)
		}

		c.modules = append(c.modules, module.Descriptor)
		c.wallets[module.Descriptor.ID] = wallet
	}

	selected := c.store.State().SelectedWalletID
	var accounts []domain.Account
	if selected != "" {
		wallet, ok := c.wallets[selected]
		if ok {
			accounts = wallet.Accounts()
		}
		if len(accounts) == 0 {
			c.logger.Debug("discarding stale selection", "wallet", selected)
			selected = ""
		}
	}

	// Adapters report reactive changes on the bus; fold them into the store so
	// the session state tracks forced sign-outs and account rotations.
	c.bus.SignedOut.Subscribe(func(e events.SignedOut) {
		if err := c.store.Dispatch(context.Background(), store.WalletDisconnected{WalletID: e.WalletID}); err != nil {
			c.logger.Warn("record disconnect", "wallet", e.WalletID, "err", err)
		}
	})
	c.bus.AccountsChanged.Subscribe(func(e events.AccountsChanged) {
		if err := c.store.Dispatch(context.Background(), store.AccountsChanged{WalletID: e.WalletID, Accounts: e.Accounts}); err != nil {
			c.logger.Warn("record account change", "wallet", e.WalletID, "err", err)
		}
	})

	return c.store.Dispatch(ctx, store.ModulesReady{
		Modules:          c.modules,
		Accounts:         accounts,
		SelectedWalletID: selected,
	})
}

// Wallets returns the static descriptors of every configured module.
func (c *Controller) Wallets() []domain.ModuleDescriptor {
	return c.modules
}

// Wallet resolves a module id to its adapter instance.
func (c *Controller) Wallet(id string) (ports.Wallet, error) {
	wallet, ok := c.wallets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownWallet, id)
	}
	return wallet, nil
}

// SelectedWallet returns the adapter matching the current selection, or
// ErrNoWalletSelected when none is active.
func (c *Controller) SelectedWallet() (ports.Wallet, error) {
	state := c.store.State()
	if !state.Selected() {
		return nil, domain.ErrNoWalletSelected
	}
	return c.Wallet(state.SelectedWalletID)
}

// SignIn authenticates against the named wallet and records the selection.
func (c *Controller) SignIn(ctx context.Context, walletID string, params ports.SignInParams) ([]domain.Account, error) {
	wallet, err := c.Wallet(walletID)
	if err != nil {
		return nil, err
	}

	accounts, err := wallet.SignIn(ctx, params)
	if err != nil {
		return nil, err
	}

	if err := c.store.Dispatch(ctx, store.WalletConnected{WalletID: walletID, Accounts: accounts}); err != nil {
		return nil, err
	}
	return accounts, nil
}

// SignOut signs out of the selected wallet and clears the selection. The store
// update rides on the adapter's signed-out notification.
func (c *Controller) SignOut(ctx context.Context) error {
	wallet, err := c.SelectedWallet()
	if err != nil {
		return err
	}
	return wallet.SignOut(ctx)
}

// Accounts reads the active account list from the session store.
func (c *Controller) Accounts() []domain.Account {
	return c.store.State().Accounts
}

// IsSignedIn reports whether a wallet is selected with at least one account.
func (c *Controller) IsSignedIn() bool {
	state := c.store.State()
	return state.Selected() && len(state.Accounts) > 0
}
