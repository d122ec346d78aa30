package ports

import (
	"context"

	"github.com/nearwallets/selector/pkg/domain"
)

// Provider is the chain RPC boundary used to read signing context and to
// broadcast transactions. The wire-level client lives in pkg/adapters/jsonrpc.
type Provider interface {
	// ViewAccessKey fetches the current access key record for an account/key
	// pair at final finality.
	ViewAccessKey(ctx context.Context, accountID, publicKey string) (domain.AccessKeyView, error)

	// Block fetches the header of the latest block at the given finality.
	Block(ctx context.Context, finality string) (domain.BlockHeader, error)

	// SendTransaction broadcasts a signed transaction and waits for its
	// finalized outcome.
	SendTransaction(ctx context.Context, signed domain.SignedTransaction) (*domain.ExecutionOutcome, error)

	// TxStatus fetches the finalized outcome of a previously submitted
	// transaction.
	TxStatus(ctx context.Context, txHash, signerID string) (*domain.ExecutionOutcome, error)
}
