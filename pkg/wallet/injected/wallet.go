/*
Package injected implements the reference wallet adapter: a backend reachable
through a ports.WalletConn handle speaking the common wallet request protocol.

The same behavior serves injected-provider and bridge backends; only the
transport behind the connection differs. Connection state (the cached account
and the per-adapter persisted record) is owned exclusively by the Wallet
instance.
*/
package injected

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"golang.org/x/sync/singleflight"

	"github.com/nearwallets/selector/internal/logging"
	"github.com/nearwallets/selector/pkg/domain"
	"github.com/nearwallets/selector/pkg/events"
	"github.com/nearwallets/selector/pkg/nonce"
	"github.com/nearwallets/selector/pkg/observability"
	"github.com/nearwallets/selector/pkg/ports"
	"github.com/nearwallets/selector/pkg/txsign"
)

// Wallet is the adapter instance for one external wallet backend.
type Wallet struct {
	descriptor domain.ModuleDescriptor
	conn       ports.WalletConn
	network    domain.Network
	contractID string
	storage    ports.Storage
	provider   ports.Provider
	bus        *events.Bus
	logger     *slog.Logger
	metrics    *observability.Metrics

	builder *txsign.Builder
	nonces  *nonce.Registry

	// signInGroup collapses concurrent sign-in attempts: the second caller
	// observes the in-flight result instead of triggering a duplicate prompt.
	signInGroup singleflight.Group

	mu          sync.Mutex
	account     *domain.Account
	eventsBound bool
}

// Option configures the Wallet.
type Option func(*Wallet)

// WithMetrics enables signing pipeline instrumentation.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(w *Wallet) {
		w.metrics = metrics
	}
}

// WithNonceRegistry shares nonce sequence points with other components signing
// for the same accounts.
func WithNonceRegistry(registry *nonce.Registry) Option {
	return func(w *Wallet) {
		w.nonces = registry
	}
}

// New creates the adapter and restores its persisted account, if any.
func New(ctx context.Context, descriptor domain.ModuleDescriptor, conn ports.WalletConn, deps ports.WalletDeps, opts ...Option) (*Wallet, error) {
	w := &Wallet{
		descriptor: descriptor,
		conn:       conn,
		network:    deps.Network,
		contractID: deps.ContractID,
		storage:    deps.Storage,
		provider:   deps.Provider,
		bus:        deps.Bus,
		logger:     deps.Logger,
	}
	if w.logger == nil {
		w.logger = logging.NewNop()
	}
	w.logger = w.logger.With("wallet", descriptor.ID)

	w.metrics = deps.Metrics
	for _, opt := range opts {
		opt(w)
	}
	if w.nonces == nil {
		w.nonces = nonce.NewRegistry()
	}
	w.builder = txsign.NewBuilder(w.provider, &signer{wallet: w},
		txsign.WithRegistry(w.nonces),
		txsign.WithMetrics(w.metrics),
		txsign.WithLogger(w.logger),
	)

	account, err := ports.GetJSON[domain.Account](ctx, w.storage, w.accountKey())
	switch {
	case err == nil:
		w.account = &account
		w.bindEvents()
	case ports.IsNotFound(err):
		// Fresh adapter, nothing persisted.
	default:
		return nil, fmt.Errorf("restore account: %w", err)
	}

	return w, nil
}

// ID returns the module identifier.
func (w *Wallet) ID() string {
	return w.descriptor.ID
}

// Type returns the backend category.
func (w *Wallet) Type() domain.WalletType {
	return w.descriptor.Type
}

// Metadata returns the static display information.
func (w *Wallet) Metadata() domain.ModuleMetadata {
	return w.descriptor.Metadata
}

// Accounts is a pure read of the adapter's current accounts.
func (w *Wallet) Accounts() []domain.Account {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.account == nil {
		return nil
	}
	return []domain.Account{*w.account}
}

func (w *Wallet) accountKey() string {
	return "wallet:" + w.descriptor.ID + ":account"
}

// SignIn authenticates against the external wallet. Idempotent: an already
// resolved account is returned without a new prompt, and concurrent callers
// share one external round-trip.
func (w *Wallet) SignIn(ctx context.Context, params ports.SignInParams) ([]domain.Account, error) {
	result, err, _ := w.signInGroup.Do("sign-in", func() (any, error) {
		return w.signIn(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Account), nil
}

func (w *Wallet) signIn(ctx context.Context, _ ports.SignInParams) ([]domain.Account, error) {
	if existing := w.Accounts(); len(existing) > 0 {
		return existing, nil
	}
	if w.conn == nil {
		return nil, domain.ErrWalletNotInstalled
	}

	account, err := w.queryAccount(ctx)
	if err != nil {
		return nil, err
	}

	accessKey, err := w.validateAccessKey(ctx, account)
	if err != nil {
		// Leaving a half-authenticated identity behind is worse than the
		// failed attempt, so drop any wallet-side state proactively.
		_ = w.SignOut(ctx)
		return nil, err
	}

	w.logger.Debug("signed in", "account", account.AccountID, "nonce", accessKey.Nonce)

	if err := ports.SetJSON(ctx, w.storage, w.accountKey(), account); err != nil {
		return nil, fmt.Errorf("persist account: %w", err)
	}

	w.mu.Lock()
	w.account = &account
	w.mu.Unlock()

	w.bindEvents()
	return w.Accounts(), nil
}

// SignOut clears persisted account state and emits a signed-out notification.
// No-op when already signed out.
func (w *Wallet) SignOut(ctx context.Context) error {
	w.mu.Lock()
	if w.account == nil {
		w.mu.Unlock()
		return nil
	}
	w.account = nil
	w.mu.Unlock()

	if err := w.storage.Remove(ctx, w.accountKey()); err != nil {
		return fmt.Errorf("clear persisted account: %w", err)
	}

	w.bus.SignedOut.Emit(events.SignedOut{WalletID: w.descriptor.ID})
	return nil
}

// VerifyOwner signs a canonical ownership proof anchored to the latest
// finalized block.
func (w *Wallet) VerifyOwner(ctx context.Context, params ports.VerifyOwnerParams) (*domain.VerifiedOwner, error) {
	w.mu.Lock()
	account := w.account
	w.mu.Unlock()
	if account == nil {
		return nil, domain.ErrNotSignedIn
	}

	publicKey, err := domain.ParsePublicKey(account.PublicKey)
	if err != nil {
		return nil, err
	}

	header, err := w.queryBlock(ctx)
	if err != nil {
		return nil, err
	}

	proof := domain.VerifiedOwner{
		AccountID: account.AccountID,
		Message:   params.Message,
		BlockID:   header.Hash,
		PublicKey: publicKey.Base64(),
		KeyType:   publicKey.Type.String(),
	}

	// Field order of the struct fixes the serialization, so the payload is
	// deterministic for verifiers.
	encoded, err := proof.CanonicalPayload()
	if err != nil {
		return nil, err
	}

	signed, err := (&signer{wallet: w}).SignMessage(ctx, encoded, account.AccountID)
	if err != nil {
		return nil, err
	}

	proof.Signature = base64Encode(signed.Signature)
	return &proof, nil
}

// SignAndSendTransaction runs the provider-backed pipeline for one transaction.
func (w *Wallet) SignAndSendTransaction(ctx context.Context, tx domain.Transaction) (*domain.ExecutionOutcome, error) {
	resolved, err := txsign.ResolveTransactions([]domain.Transaction{tx}, w.Accounts(), w.contractID)
	if err != nil {
		return nil, err
	}

	results, err := w.builder.SignAndSend(ctx, resolved)
	if err != nil {
		return nil, err
	}
	if results[0].Err != nil {
		return nil, results[0].Err
	}
	w.logger.Debug("transaction finalized", "hash", results[0].Hash)
	return results[0].Outcome, nil
}

// SignAndSendTransactions signs a batch through the wallet's native batching
// entry point: nonces are assigned up front inside the account's sequence
// point, payloads are submitted together in input order, and receipts are
// collected sequentially. Per-index failures do not abort submitted
// predecessors.
func (w *Wallet) SignAndSendTransactions(ctx context.Context, txs []domain.Transaction) ([]domain.TransactionResult, error) {
	if w.conn == nil {
		return nil, domain.ErrWalletNotInstalled
	}

	w.mu.Lock()
	account := w.account
	w.mu.Unlock()
	if account == nil {
		return nil, domain.ErrNotSignedIn
	}

	resolved, err := txsign.ResolveTransactions(txs, w.Accounts(), w.contractID)
	if err != nil {
		return nil, err
	}

	var results []domain.TransactionResult
	err = w.nonces.WithAccount(ctx, account.AccountID, func(ctx context.Context) error {
		var err error
		results, err = w.sendBatchLocked(ctx, *account, resolved)
		return err
	})
	return results, err
}

func (w *Wallet) sendBatchLocked(ctx context.Context, account domain.Account, txs []domain.Transaction) ([]domain.TransactionResult, error) {
	accessKey, err := w.validateAccessKey(ctx, account)
	if err != nil {
		return nil, err
	}

	publicKey, err := domain.ParsePublicKey(account.PublicKey)
	if err != nil {
		return nil, err
	}

	// Claim the whole nonce range before any signing round-trip.
	payloads := make([]string, len(txs))
	for i, tx := range txs {
		raw, err := domain.NewRawTransaction(tx, publicKey, accessKey.Nonce+uint64(i)+1, accessKey.BlockHash)
		if err != nil {
			w.metrics.PipelineFailure(observability.StageEncode)
			return nil, err
		}
		encoded, err := raw.EncodeBase64()
		if err != nil {
			w.metrics.PipelineFailure(observability.StageEncode)
			return nil, err
		}
		payloads[i] = encoded
	}

	w.logger.Debug("submitting batch", "count", len(payloads), "base_nonce", accessKey.Nonce)

	response, err := w.conn.Request(ctx, ports.ConnSendTransaction, payloads)
	if err != nil {
		w.metrics.PipelineFailure(observability.StageSubmit)
		return nil, fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, err)
	}

	var hashes []string
	if err := mapstructure.Decode(response, &hashes); err != nil {
		return nil, fmt.Errorf("decode transaction hashes: %w", err)
	}

	// Receipts are collected strictly in input order.
	results := make([]domain.TransactionResult, len(txs))
	for i := range txs {
		if i >= len(hashes) {
			results[i] = domain.TransactionResult{
				Err: fmt.Errorf("%w: wallet returned no hash for transaction %d", domain.ErrSubmissionFailed, i),
			}
			continue
		}
		results[i] = w.collectOutcome(ctx, hashes[i], txs[i].SignerID)
	}
	return results, nil
}

func (w *Wallet) collectOutcome(ctx context.Context, hash, signerID string) domain.TransactionResult {
	response, err := w.conn.Request(ctx, ports.ConnTxStatus, []string{hash, signerID})
	if err != nil {
		w.metrics.PipelineFailure(observability.StageFinality)
		return domain.TransactionResult{
			Hash: hash,
			Err:  fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, err),
		}
	}

	var outcome domain.ExecutionOutcome
	if err := mapstructure.Decode(response, &outcome); err != nil {
		return domain.TransactionResult{
			Hash: hash,
			Err:  fmt.Errorf("decode outcome for %s: %w", hash, err),
		}
	}
	if outcome.TransactionHash == "" {
		outcome.TransactionHash = hash
	}
	w.metrics.TransactionSubmitted()
	return domain.TransactionResult{Hash: hash, Outcome: &outcome}
}

// remoteAccount is the wallet protocol's account representation.
type remoteAccount struct {
	AccountID string `mapstructure:"accountId"`
	PublicKey string `mapstructure:"publicKey"`
}

func (w *Wallet) queryAccount(ctx context.Context) (domain.Account, error) {
	response, err := w.conn.Request(ctx, ports.ConnAccounts, nil)
	if err != nil {
		return domain.Account{}, fmt.Errorf("%w: %w", domain.ErrWalletNotInstalled, err)
	}

	var remotes []remoteAccount
	if err := mapstructure.Decode(response, &remotes); err != nil {
		return domain.Account{}, fmt.Errorf("decode accounts: %w", err)
	}
	if len(remotes) == 0 {
		return domain.Account{}, domain.ErrNotSignedIn
	}

	return domain.Account{AccountID: remotes[0].AccountID, PublicKey: remotes[0].PublicKey}, nil
}

// validateAccessKey fetches the signer's current access key through the wallet
// and enforces the FullAccess gate.
func (w *Wallet) validateAccessKey(ctx context.Context, account domain.Account) (domain.AccessKeyView, error) {
	w.logger.Debug("validate access key", "account", account.AccountID, "public_key", account.PublicKey)

	response, err := w.conn.Request(ctx, ports.ConnViewAccessKey, map[string]any{
		"accountId": account.AccountID,
		"publicKey": account.PublicKey,
	})
	if err != nil {
		return domain.AccessKeyView{}, fmt.Errorf("view access key: %w", err)
	}

	var decoded struct {
		Nonce      uint64 `mapstructure:"nonce"`
		Permission any    `mapstructure:"permission"`
		BlockHash  string `mapstructure:"block_hash"`
	}
	if err := mapstructure.Decode(response, &decoded); err != nil {
		return domain.AccessKeyView{}, fmt.Errorf("decode access key: %w", err)
	}

	accessKey := domain.AccessKeyView{
		Nonce:      decoded.Nonce,
		Permission: domain.ParsePermission(decoded.Permission),
		BlockHash:  decoded.BlockHash,
	}
	if !accessKey.Permission.FullAccess() {
		w.metrics.PipelineFailure(observability.StagePermission)
		return domain.AccessKeyView{}, domain.ErrInsufficientPermission
	}
	return accessKey, nil
}

func (w *Wallet) queryBlock(ctx context.Context) (domain.BlockHeader, error) {
	response, err := w.conn.Request(ctx, ports.ConnBlock, map[string]any{
		"finality": domain.FinalityFinal,
	})
	if err != nil {
		return domain.BlockHeader{}, fmt.Errorf("query block: %w", err)
	}

	var decoded struct {
		Header domain.BlockHeader `mapstructure:"header"`
	}
	if err := mapstructure.Decode(response, &decoded); err != nil {
		return domain.BlockHeader{}, fmt.Errorf("decode block: %w", err)
	}
	return decoded.Header, nil
}

// bindEvents registers the reactive handlers once per adapter instance.
func (w *Wallet) bindEvents() {
	w.mu.Lock()
	if w.eventsBound || w.conn == nil {
		w.mu.Unlock()
		return
	}
	w.eventsBound = true
	w.mu.Unlock()

	w.conn.On(ports.ConnEventAccountsChanged, func(payload string) {
		// The previously authenticated identity is no longer trustworthy.
		w.logger.Debug("external account change", "account", payload)
		_ = w.SignOut(context.Background())
	})

	w.conn.On(ports.ConnEventChainChanged, func(payload string) {
		networkID := resolveChainID(payload)
		w.logger.Debug("external network change", "network", networkID)

		if networkID == w.network.NetworkID {
			return
		}
		_ = w.SignOut(context.Background())
		w.bus.NetworkChanged.Emit(events.NetworkChanged{
			WalletID:  w.descriptor.ID,
			NetworkID: networkID,
		})
	})
}

// resolveChainID normalizes a wallet-reported chain identifier. Wallets report
// either the bare network id or a namespaced form like "near:testnet".
func resolveChainID(payload string) string {
	if i := strings.LastIndex(payload, ":"); i >= 0 {
		return payload[i+1:]
	}
	return payload
}
