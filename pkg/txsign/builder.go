/*
Package txsign implements the transaction signing pipeline: resolve defaults,
check key permission, assign nonces, encode, sign and submit.

Each invocation walks the stages in order. Validation failures surface before
any signing round-trip; submission failures surface per transaction without
rolling back already-submitted predecessors.
*/
package txsign

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nearwallets/selector/internal/logging"
	"github.com/nearwallets/selector/pkg/domain"
	"github.com/nearwallets/selector/pkg/nonce"
	"github.com/nearwallets/selector/pkg/observability"
	"github.com/nearwallets/selector/pkg/ports"
)

// ResolveTransactions defaults unset signer ids to the first active account
// and unset receiver ids to the contract id. It fails with ErrNotSignedIn when
// there are no accounts, before any external round-trip.
func ResolveTransactions(txs []domain.Transaction, accounts []domain.Account, contractID string) ([]domain.Transaction, error) {
	if len(accounts) == 0 {
		return nil, domain.ErrNotSignedIn
	}

	resolved := make([]domain.Transaction, len(txs))
	for i, tx := range txs {
		if tx.SignerID == "" {
			tx.SignerID = accounts[0].AccountID
		}
		if tx.ReceiverID == "" {
			tx.ReceiverID = contractID
		}
		resolved[i] = tx
	}
	return resolved, nil
}

// Builder drives the pipeline against a chain provider and a signer.
type Builder struct {
	provider ports.Provider
	signer   ports.Signer
	registry *nonce.Registry
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// Option configures the Builder.
type Option func(*Builder)

// WithRegistry shares a nonce registry between builders signing for the same
// accounts. Builders default to a private registry.
func WithRegistry(registry *nonce.Registry) Option {
	return func(b *Builder) {
		b.registry = registry
	}
}

// WithMetrics enables pipeline instrumentation.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(b *Builder) {
		b.metrics = metrics
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a pipeline over the given provider and signer.
func NewBuilder(provider ports.Provider, signer ports.Signer, opts ...Option) *Builder {
	b := &Builder{
		provider: provider,
		signer:   signer,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.registry == nil {
		b.registry = nonce.NewRegistry()
	}
	return b
}

// SignTransactions signs a batch for a single signer. All transactions must
// already be resolved (non-empty signer and receiver) and share one signer id;
// nonces are assigned baseNonce+1..baseNonce+N inside the signer's sequence
// point, before any signing round-trip.
func (b *Builder) SignTransactions(ctx context.Context, txs []domain.Transaction) ([]domain.SignedTransaction, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	signerID := txs[0].SignerID
	for _, tx := range txs {
		if tx.SignerID == "" || tx.ReceiverID == "" {
			return nil, fmt.Errorf("unresolved transaction: %w", domain.ErrInvalidSigner)
		}
		if tx.SignerID != signerID {
			return nil, fmt.Errorf("batch mixes signers %q and %q", signerID, tx.SignerID)
		}
	}

	var signed []domain.SignedTransaction
	err := b.registry.WithAccount(ctx, signerID, func(ctx context.Context) error {
		var err error
		signed, err = b.signLocked(ctx, signerID, txs)
		return err
	})
	return signed, err
}

func (b *Builder) signLocked(ctx context.Context, signerID string, txs []domain.Transaction) ([]domain.SignedTransaction, error) {
	publicKey, err := b.signer.PublicKey(ctx, signerID)
	if err != nil {
		return nil, fmt.Errorf("resolve public key for %q: %w", signerID, err)
	}

	accessKey, err := b.provider.ViewAccessKey(ctx, signerID, publicKey.String())
	if err != nil {
		b.metrics.PipelineFailure(observability.StagePermission)
		return nil, fmt.Errorf("view access key for %q: %w", signerID, err)
	}
	if !accessKey.Permission.FullAccess() {
		b.metrics.PipelineFailure(observability.StagePermission)
		return nil, domain.ErrInsufficientPermission
	}

	b.logger.Debug("signing batch",
		"signer", signerID,
		"count", len(txs),
		"base_nonce", accessKey.Nonce,
	)

	// Nonces are claimed for the whole batch up front; from here on they are
	// consumed even if a later stage fails.
	raws := make([]domain.RawTransaction, len(txs))
	for i, tx := range txs {
		raw, err := domain.NewRawTransaction(tx, publicKey, accessKey.Nonce+uint64(i)+1, accessKey.BlockHash)
		if err != nil {
			b.metrics.PipelineFailure(observability.StageEncode)
			return nil, err
		}
		raws[i] = raw
	}

	signed := make([]domain.SignedTransaction, len(raws))
	for i, raw := range raws {
		encoded, err := raw.Encode()
		if err != nil {
			b.metrics.PipelineFailure(observability.StageEncode)
			return nil, err
		}

		start := time.Now()
		payload, err := b.signer.SignMessage(ctx, encoded, signerID)
		if err != nil {
			b.metrics.PipelineFailure(observability.StageSign)
			return nil, fmt.Errorf("sign transaction %d: %w", i, err)
		}
		b.metrics.TransactionSigned(time.Since(start))

		sig, err := domain.NewSignature(payload.Signature)
		if err != nil {
			b.metrics.PipelineFailure(observability.StageSign)
			return nil, err
		}
		signed[i] = domain.SignedTransaction{Transaction: raw, Signature: sig}
	}
	return signed, nil
}

// SubmitTransactions broadcasts signed transactions in input order, collecting
// each outcome before issuing the next so chain ordering stays nonce
// consistent. A failed entry is recorded at its index and later entries are
// still attempted.
func (b *Builder) SubmitTransactions(ctx context.Context, signed []domain.SignedTransaction) []domain.TransactionResult {
	results := make([]domain.TransactionResult, len(signed))
	for i, tx := range signed {
		outcome, err := b.provider.SendTransaction(ctx, tx)
		if err != nil {
			b.metrics.PipelineFailure(observability.StageSubmit)
			results[i] = domain.TransactionResult{
				Err: fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, err),
			}
			continue
		}
		b.metrics.TransactionSubmitted()
		results[i] = domain.TransactionResult{Hash: outcome.TransactionHash, Outcome: outcome}
	}
	return results
}

// SignAndSend runs the full pipeline for one resolved batch.
func (b *Builder) SignAndSend(ctx context.Context, txs []domain.Transaction) ([]domain.TransactionResult, error) {
	signed, err := b.SignTransactions(ctx, txs)
	if err != nil {
		return nil, err
	}
	return b.SubmitTransactions(ctx, signed), nil
}
