package selector

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/nearwallets/selector/internal/logging"
	"github.com/nearwallets/selector/pkg/adapters/jsonrpc"
	"github.com/nearwallets/selector/pkg/adapters/memory"
	"github.com/nearwallets/selector/pkg/controller"
	"github.com/nearwallets/selector/pkg/domain"
	"github.com/nearwallets/selector/pkg/events"
	"github.com/nearwallets/selector/pkg/observability"
	"github.com/nearwallets/selector/pkg/ports"
	"github.com/nearwallets/selector/pkg/store"
)

// Event names accepted by On.
const (
	EventSignedOut       = "signedOut"
	EventAccountsChanged = "accountsChanged"
	EventNetworkChanged  = "networkChanged"
)

// Config declares the network, the contract the application talks to, and the
// wallet modules to offer.
type Config struct {
	// Network is "mainnet" or "testnet". Use WithNetwork for a custom endpoint.
	Network string

	// ContractID is the default receiver of transactions sent without one.
	ContractID string

	// Modules are the wallet backends to probe and offer for selection.
	Modules []ports.ModuleFactory
}

// Selector is the high-level entry point: it wires the session store, the
// controller and the wallet modules behind one API.
type Selector struct {
	cfg      Config
	network  domain.Network
	storage  ports.Storage
	provider ports.Provider
	bus      *events.Bus
	logger   *slog.Logger
	metrics  *observability.Metrics

	store      *store.Store
	controller *controller.Controller

	// shown is a UI hint for selection modals; the core never reads it.
	shown atomic.Bool
}

// Option defines a functional option for configuring the Selector.
type Option func(*Selector)

// WithStorage overrides the default in-memory storage, enabling selections and
// wallet sessions to survive restarts.
func WithStorage(storage ports.Storage) Option {
	return func(s *Selector) {
		s.storage = storage
	}
}

// WithProvider overrides the default JSON-RPC chain client.
func WithProvider(provider ports.Provider) Option {
	return func(s *Selector) {
		s.provider = provider
	}
}

// WithNetwork pins a custom network instead of resolving Config.Network.
func WithNetwork(network domain.Network) Option {
	return func(s *Selector) {
		s.network = network
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Selector) {
		s.logger = logger
	}
}

// WithMetrics enables signing pipeline instrumentation.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Selector) {
		s.metrics = metrics
	}
}

// New validates the configuration and wires defaults. Call Init to probe
// modules and hydrate persisted state.
func New(cfg Config, opts ...Option) (*Selector, error) {
	if cfg.ContractID == "" {
		return nil, fmt.Errorf("contract id is required")
	}

	s := &Selector{
		cfg: cfg,
		bus: events.NewBus(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.network.NetworkID == "" {
		network, err := domain.ResolveNetwork(cfg.Network)
		if err != nil {
			return nil, err
		}
		s.network = network
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.storage == nil {
		s.storage = memory.NewStorage()
	}
	if s.provider == nil {
		s.provider = jsonrpc.NewClient(s.network.NodeURL, jsonrpc.WithLogger(s.logger))
	}

	return s, nil
}

// Init hydrates the session store from storage, probes every configured
// module, and validates a persisted selection against the instantiated
// wallets.
func (s *Selector) Init(ctx context.Context) error {
	sessionStore, err := store.New(ctx, s.storage, store.WithLogger(s.logger))
	if err != nil {
		return err
	}
	s.store = sessionStore

	s.controller = controller.New(controller.Config{
		Network:    s.network,
		ContractID: s.cfg.ContractID,
		Factories:  s.cfg.Modules,
		Storage:    s.storage,
		Provider:   s.provider,
		Metrics:    s.metrics,
	}, sessionStore, s.bus, controller.WithLogger(s.logger))

	return s.controller.Init(ctx)
}

// Network returns the resolved network.
func (s *Selector) Network() domain.Network {
	return s.network
}

// Show marks the selection UI visible. The flag is advisory; rendering is the
// host application's concern.
func (s *Selector) Show() {
	s.shown.Store(true)
}

// Hide marks the selection UI hidden.
func (s *Selector) Hide() {
	s.shown.Store(false)
}

// Shown reports the current UI visibility hint.
func (s *Selector) Shown() bool {
	return s.shown.Load()
}

// On subscribes a handler to a named selector event. The returned subscription
// unsubscribes the handler; unsubscribing twice is harmless.
func (s *Selector) On(event string, handler func(payload any)) (events.Subscription, error) {
	switch event {
	case EventSignedOut:
		return s.bus.SignedOut.Subscribe(func(e events.SignedOut) { handler(e) }), nil
	case EventAccountsChanged:
		return s.bus.AccountsChanged.Subscribe(func(e events.AccountsChanged) { handler(e) }), nil
	case EventNetworkChanged:
		return s.bus.NetworkChanged.Subscribe(func(e events.NetworkChanged) { handler(e) }), nil
	}
	return nil, fmt.Errorf("unknown event %q", event)
}

// SubscribeState registers a session state handler. It fires immediately with
// the current state, then once per transition.
func (s *Selector) SubscribeState(handler func(store.State)) events.Subscription {
	return s.store.Subscribe(handler)
}

// State returns the current session state.
func (s *Selector) State() store.State {
	return s.store.State()
}

// Wallets lists the descriptors of every configured module.
func (s *Selector) Wallets() []domain.ModuleDescriptor {
	return s.controller.Wallets()
}

// Wallet resolves a module id to its adapter instance.
func (s *Selector) Wallet(id string) (ports.Wallet, error) {
	return s.controller.Wallet(id)
}

// SignIn authenticates against the named wallet and selects it.
func (s *Selector) SignIn(ctx context.Context, walletID string, params ports.SignInParams) ([]domain.Account, error) {
	return s.controller.SignIn(ctx, walletID, params)
}

// SignOut signs out of the selected wallet.
func (s *Selector) SignOut(ctx context.Context) error {
	return s.controller.SignOut(ctx)
}

// Accounts returns the active account list.
func (s *Selector) Accounts() []domain.Account {
	return s.controller.Accounts()
}

// IsSignedIn reports whether a wallet is selected with at least one account.
func (s *Selector) IsSignedIn() bool {
	return s.controller.IsSignedIn()
}

// VerifyOwner asks the selected wallet for a signed ownership proof.
func (s *Selector) VerifyOwner(ctx context.Context, message string) (*domain.VerifiedOwner, error) {
	wallet, err := s.controller.SelectedWallet()
	if err != nil {
		return nil, err
	}
	return wallet.VerifyOwner(ctx, ports.VerifyOwnerParams{Message: message})
}

// SignAndSendTransaction signs and submits one transaction through the
// selected wallet, defaulting the signer to the first active account and the
// receiver to the configured contract.
func (s *Selector) SignAndSendTransaction(ctx context.Context, tx domain.Transaction) (*domain.ExecutionOutcome, error) {
	wallet, resolved, err := s.resolveForSend([]domain.Transaction{tx})
	if err != nil {
		return nil, err
	}
	return wallet.SignAndSendTransaction(ctx, resolved[0])
}

// SignAndSendTransactions signs and submits a batch through the selected
// wallet. Results match input order; inspect each element for failure.
func (s *Selector) SignAndSendTransactions(ctx context.Context, txs []domain.Transaction) ([]domain.TransactionResult, error) {
	wallet, resolved, err := s.resolveForSend(txs)
	if err != nil {
		return nil, err
	}
	return wallet.SignAndSendTransactions(ctx, resolved)
}

// resolveForSend applies the send guards: a wallet must be selected, it must
// report accounts, and any caller-supplied signer must be among them.
func (s *Selector) resolveForSend(txs []domain.Transaction) (ports.Wallet, []domain.Transaction, error) {
	wallet, err := s.controller.SelectedWallet()
	if err != nil {
		return nil, nil, err
	}

	accounts := s.controller.Accounts()
	if len(accounts) == 0 {
		return nil, nil, domain.ErrNoAccounts
	}

	resolved := make([]domain.Transaction, len(txs))
	for i, tx := range txs {
		if tx.SignerID != "" && !hasAccount(accounts, tx.SignerID) {
			return nil, nil, fmt.Errorf("%w: %q", domain.ErrInvalidSigner, tx.SignerID)
		}
		if tx.SignerID == "" {
			tx.SignerID = accounts[0].AccountID
		}
		if tx.ReceiverID == "" {
			tx.ReceiverID = s.cfg.ContractID
		}
		resolved[i] = tx
	}
	return wallet, resolved, nil
}

func hasAccount(accounts []domain.Account, accountID string) bool {
	for _, a := range accounts {
		if a.AccountID == accountID {
			return true
		}
	}
	return false
}
