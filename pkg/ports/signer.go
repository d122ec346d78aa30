package ports

import (
	"context"

	"github.com/nearwallets/selector/pkg/domain"
)

// Signer produces signatures for opaque byte payloads on behalf of an account.
// Implementations route to the external wallet's signing entry point; test
// doubles sign locally.
type Signer interface {
	// PublicKey returns the signing key registered for the account.
	PublicKey(ctx context.Context, accountID string) (domain.PublicKey, error)

	// SignMessage signs an opaque payload. For transaction payloads the bytes
	// are the Borsh-encoded transaction.
	SignMessage(ctx context.Context, message []byte, accountID string) (domain.SignedPayload, error)
}
