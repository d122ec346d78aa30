package selector_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	selector "github.com/nearwallets/selector"
	"github.com/nearwallets/selector/pkg/adapters/bridge"
	"github.com/nearwallets/selector/pkg/adapters/memory"
	"github.com/nearwallets/selector/pkg/domain"
	"github.com/nearwallets/selector/pkg/events"
	"github.com/nearwallets/selector/pkg/ports"
	"github.com/nearwallets/selector/pkg/store"
	"github.com/nearwallets/selector/pkg/wallet/injected"
)

// recordingWallet captures what the facade forwards after applying its guards.
type recordingWallet struct {
	id       string
	accounts []domain.Account
	bus      *events.Bus
	sent     [][]domain.Transaction
}

func (w *recordingWallet) ID() string                      { return w.id }
func (w *recordingWallet) Type() domain.WalletType         { return domain.WalletTypeInjected }
func (w *recordingWallet) Metadata() domain.ModuleMetadata { return domain.ModuleMetadata{} }
func (w *recordingWallet) Accounts() []domain.Account      { return w.accounts }

func (w *recordingWallet) SignIn(ctx context.Context, params ports.SignInParams) ([]domain.Account, error) {
	return w.accounts, nil
}

func (w *recordingWallet) SignOut(ctx context.Context) error {
	w.accounts = nil
	w.bus.SignedOut.Emit(events.SignedOut{WalletID: w.id})
	return nil
}

func (w *recordingWallet) VerifyOwner(ctx context.Context, params ports.VerifyOwnerParams) (*domain.VerifiedOwner, error) {
	return &domain.VerifiedOwner{Message: params.Message}, nil
}

func (w *recordingWallet) SignAndSendTransaction(ctx context.Context, tx domain.Transaction) (*domain.ExecutionOutcome, error) {
	w.sent = append(w.sent, []domain.Transaction{tx})
	return &domain.ExecutionOutcome{TransactionHash: "recorded"}, nil
}

func (w *recordingWallet) SignAndSendTransactions(ctx context.Context, txs []domain.Transaction) ([]domain.TransactionResult, error) {
	w.sent = append(w.sent, txs)
	results := make([]domain.TransactionResult, len(txs))
	for i := range results {
		results[i] = domain.TransactionResult{Hash: "recorded"}
	}
	return results, nil
}

func recordingModule(w *recordingWallet) ports.ModuleFactory {
	return func(ctx context.Context) (*ports.Module, error) {
		return &ports.Module{
			Descriptor: domain.ModuleDescriptor{ID: w.id, Type: domain.WalletTypeInjected},
			Setup: func(ctx context.Context, deps ports.WalletDeps) (ports.Wallet, error) {
				w.bus = deps.Bus
				return w, nil
			},
		}, nil
	}
}

func newFacade(t *testing.T, modules ...ports.ModuleFactory) *selector.Selector {
	t.Helper()
	sel, err := selector.New(selector.Config{
		Network:    domain.Testnet,
		ContractID: "guest-book.testnet",
		Modules:    modules,
	})
	require.NoError(t, err)
	require.NoError(t, sel.Init(context.Background()))
	return sel
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := selector.New(selector.Config{Network: domain.Testnet})
	require.ErrorContains(t, err, "contract id")

	_, err = selector.New(selector.Config{Network: "moonnet", ContractID: "app.near"})
	require.Error(t, err)

	// A custom network skips resolution entirely.
	_, err = selector.New(
		selector.Config{ContractID: "app.near"},
		selector.WithNetwork(domain.Network{NetworkID: "localnet", NodeURL: "http://127.0.0.1:3030"}),
	)
	require.NoError(t, err)
}

func TestSendGuards(t *testing.T) {
	ctx := context.Background()
	w := &recordingWallet{
		id:       "stub-wallet",
		accounts: []domain.Account{{AccountID: "alice.testnet"}, {AccountID: "bob.testnet"}},
	}
	sel := newFacade(t, recordingModule(w))

	tx := domain.Transaction{Actions: []domain.Action{domain.NewCreateAccount()}}

	// Nothing selected yet.
	_, err := sel.SignAndSendTransaction(ctx, tx)
	require.ErrorIs(t, err, domain.ErrNoWalletSelected)

	_, err = sel.SignIn(ctx, "stub-wallet", ports.SignInParams{})
	require.NoError(t, err)

	// Unknown signer is rejected before reaching the wallet.
	_, err = sel.SignAndSendTransaction(ctx, domain.Transaction{SignerID: "mallory.testnet"})
	require.ErrorIs(t, err, domain.ErrInvalidSigner)
	assert.Empty(t, w.sent)

	// Defaults: first account signs, configured contract receives.
	_, err = sel.SignAndSendTransaction(ctx, tx)
	require.NoError(t, err)
	require.Len(t, w.sent, 1)
	assert.Equal(t, "alice.testnet", w.sent[0][0].SignerID)
	assert.Equal(t, "guest-book.testnet", w.sent[0][0].ReceiverID)

	// A caller-supplied signer among the accounts passes through untouched.
	_, err = sel.SignAndSendTransactions(ctx, []domain.Transaction{{SignerID: "bob.testnet"}})
	require.NoError(t, err)
	assert.Equal(t, "bob.testnet", w.sent[1][0].SignerID)

	// Selected but with zero accounts reported.
	w.bus.AccountsChanged.Emit(events.AccountsChanged{WalletID: "stub-wallet", Accounts: nil})
	_, err = sel.SignAndSendTransaction(ctx, tx)
	require.ErrorIs(t, err, domain.ErrNoAccounts)
}

func TestOnMapsEventNames(t *testing.T) {
	ctx := context.Background()
	w := &recordingWallet{id: "stub-wallet", accounts: []domain.Account{{AccountID: "alice.testnet"}}}
	sel := newFacade(t, recordingModule(w))

	var signedOut []any
	sub, err := sel.On(selector.EventSignedOut, func(payload any) {
		signedOut = append(signedOut, payload)
	})
	require.NoError(t, err)

	_, err = sel.On("walletExploded", func(any) {})
	require.Error(t, err)

	_, err = sel.SignIn(ctx, "stub-wallet", ports.SignInParams{})
	require.NoError(t, err)
	require.NoError(t, sel.SignOut(ctx))

	require.Len(t, signedOut, 1)
	assert.Equal(t, events.SignedOut{WalletID: "stub-wallet"}, signedOut[0])

	sub.Unsubscribe()
	sub.Unsubscribe()
}

func TestShowHideFlag(t *testing.T) {
	sel := newFacade(t)
	assert.False(t, sel.Shown())
	sel.Show()
	assert.True(t, sel.Shown())
	sel.Hide()
	assert.False(t, sel.Shown())
}

func TestStateSubscriptionFiresImmediately(t *testing.T) {
	w := &recordingWallet{id: "stub-wallet", accounts: []domain.Account{{AccountID: "alice.testnet"}}}
	sel := newFacade(t, recordingModule(w))

	var states []store.State
	sub := sel.SubscribeState(func(s store.State) { states = append(states, s) })
	defer sub.Unsubscribe()

	require.Len(t, states, 1)

	_, err := sel.SignIn(context.Background(), "stub-wallet", ports.SignInParams{})
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "stub-wallet", states[1].SelectedWalletID)
}

// TestEndToEndBridgeWallet drives the full path: sign in against a daemon at
// nonce 10, send a two-transaction batch, and observe nonces 11 and 12
// consumed with outcomes in input order.
func TestEndToEndBridgeWallet(t *testing.T) {
	ctx := context.Background()

	sim, err := bridge.NewSimulator("alice.testnet", domain.Testnet, bridge.WithBaseNonce(10))
	require.NoError(t, err)
	server := httptest.NewServer(sim.Handler())
	t.Cleanup(server.Close)

	storage := memory.NewStorage()
	sel, err := selector.New(selector.Config{
		Network:    domain.Testnet,
		ContractID: "guest-book.testnet",
		Modules:    []ports.ModuleFactory{bridge.SetupModule(server.URL, injected.Params{})},
	}, selector.WithStorage(storage))
	require.NoError(t, err)
	require.NoError(t, sel.Init(ctx))

	wallets := sel.Wallets()
	require.Len(t, wallets, 1)
	assert.Equal(t, domain.WalletTypeBridge, wallets[0].Type)

	accounts, err := sel.SignIn(ctx, "bridge-wallet", ports.SignInParams{})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.True(t, sel.IsSignedIn())

	deposit, err := domain.BalanceFromString("250000000000000000000000")
	require.NoError(t, err)

	results, err := sel.SignAndSendTransactions(ctx, []domain.Transaction{
		{Actions: []domain.Action{domain.NewTransfer(deposit)}},
		{Actions: []domain.Action{domain.NewFunctionCall("addMessage", []byte(`{"text":"hi"}`), 0, domain.Balance{})}},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, result := range results {
		require.NoError(t, result.Err)
		require.NotNil(t, result.Outcome)
		assert.Equal(t, "alice.testnet", result.Outcome.SignerID)
	}
	assert.Equal(t, uint64(12), sim.Nonce())

	// Ownership proof rides the same connection.
	proof, err := sel.VerifyOwner(ctx, "are you alice?")
	require.NoError(t, err)
	assert.Equal(t, "alice.testnet", proof.AccountID)
	assert.NotEmpty(t, proof.Signature)

	// A second selector over the same storage restores the session.
	restored, err := selector.New(selector.Config{
		Network:    domain.Testnet,
		ContractID: "guest-book.testnet",
		Modules:    []ports.ModuleFactory{bridge.SetupModule(server.URL, injected.Params{})},
	}, selector.WithStorage(storage))
	require.NoError(t, err)
	require.NoError(t, restored.Init(ctx))
	assert.True(t, restored.IsSignedIn())
	assert.Equal(t, "bridge-wallet", restored.State().SelectedWalletID)
}
