package injected

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/nearwallets/selector/pkg/domain"
	"github.com/nearwallets/selector/pkg/ports"
)

// signer routes signing requests to the external wallet's sign entry point.
//
// Transaction payloads are offered in their structured hex form first; when the
// payload is not a decodable transaction, or the backend reports it cannot
// process the structured form, the raw payload is signed as text instead.
// Rejection by the user is terminal and never triggers the fallback.
type signer struct {
	wallet *Wallet
}

var _ ports.Signer = (*signer)(nil)

func (s *signer) PublicKey(ctx context.Context, accountID string) (domain.PublicKey, error) {
	s.wallet.mu.Lock()
	account := s.wallet.account
	s.wallet.mu.Unlock()

	if account == nil || account.AccountID != accountID {
		return domain.PublicKey{}, domain.ErrNotSignedIn
	}
	return domain.ParsePublicKey(account.PublicKey)
}

func (s *signer) SignMessage(ctx context.Context, message []byte, accountID string) (domain.SignedPayload, error) {
	if s.wallet.conn == nil {
		return domain.SignedPayload{}, domain.ErrWalletNotInstalled
	}

	if _, err := domain.DecodeRawTransaction(message); err == nil {
		signed, err := s.request(ctx, "0x"+hex.EncodeToString(message))
		if err == nil {
			return signed, nil
		}
		if !errors.Is(err, domain.ErrUnsupportedPayload) {
			return domain.SignedPayload{}, err
		}
		s.wallet.logger.Debug("structured signing unsupported, retrying raw", "account", accountID)
	}

	return s.request(ctx, string(message))
}

func (s *signer) request(ctx context.Context, payload string) (domain.SignedPayload, error) {
	response, err := s.wallet.conn.Request(ctx, ports.ConnSign, []string{payload})
	if err != nil {
		if errors.Is(err, domain.ErrSigningRejected) || errors.Is(err, domain.ErrUnsupportedPayload) {
			return domain.SignedPayload{}, err
		}
		return domain.SignedPayload{}, fmt.Errorf("%w: %w", domain.ErrSigningFailed, err)
	}

	var decoded struct {
		Signature string `mapstructure:"signature"`
		PublicKey string `mapstructure:"publicKey"`
	}
	if err := mapstructure.Decode(response, &decoded); err != nil {
		return domain.SignedPayload{}, fmt.Errorf("decode signature: %w", err)
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(decoded.Signature, "0x"))
	if err != nil {
		return domain.SignedPayload{}, fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(raw) != 64 {
		return domain.SignedPayload{}, fmt.Errorf("invalid signature length %d", len(raw))
	}

	publicKey, err := domain.ParsePublicKey(decoded.PublicKey)
	if err != nil {
		return domain.SignedPayload{}, fmt.Errorf("invalid signing key: %w", err)
	}

	return domain.SignedPayload{Signature: raw, PublicKey: publicKey}, nil
}

func base64Encode(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}
