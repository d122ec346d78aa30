package domain

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// Account is an authenticated identity reported by a wallet.
// It is an immutable value: state transitions replace accounts wholesale.
type Account struct {
	AccountID string `json:"accountId"`
	PublicKey string `json:"publicKey"`
}

// KeyType identifies the curve of a public key. Only ed25519 is supported.
type KeyType uint8

const KeyTypeED25519 KeyType = 0

func (k KeyType) String() string {
	return "ed25519"
}

// PublicKey is a chain public key in its binary form.
// Borsh layout: key type (u8) followed by 32 raw bytes.
type PublicKey struct {
	Type KeyType
	Data [32]byte
}

// ParsePublicKey parses the canonical "ed25519:<base58>" string form.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey

	encoded := s
	if prefix, rest, found := strings.Cut(s, ":"); found {
		if prefix != "ed25519" {
			return pk, fmt.Errorf("unsupported key type %q", prefix)
		}
		encoded = rest
	}

	raw, err := base58.Decode(encoded)
	if err != nil {
		return pk, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != len(pk.Data) {
		return pk, fmt.Errorf("invalid public key length %d", len(raw))
	}

	copy(pk.Data[:], raw)
	return pk, nil
}

// String returns the canonical "ed25519:<base58>" form.
func (pk PublicKey) String() string {
	return pk.Type.String() + ":" + base58.Encode(pk.Data[:])
}

// Base64 returns the raw key bytes in base64, the form used in ownership proofs.
func (pk PublicKey) Base64() string {
	return base64.StdEncoding.EncodeToString(pk.Data[:])
}

// Signature is a chain signature.
// Borsh layout: key type (u8) followed by 64 raw bytes.
type Signature struct {
	Type KeyType
	Data [64]byte
}

// NewSignature wraps raw ed25519 signature bytes.
func NewSignature(raw []byte) (Signature, error) {
	var sig Signature
	if len(raw) != len(sig.Data) {
		return sig, fmt.Errorf("invalid signature length %d", len(raw))
	}
	copy(sig.Data[:], raw)
	return sig, nil
}

// SignedPayload is the result of a signing round-trip: the signature plus the
// public key the wallet actually signed with.
type SignedPayload struct {
	Signature []byte
	PublicKey PublicKey
}

// AccessKeyView is the on-chain authorization record for an (account, key) pair.
// It is fetched fresh per signing operation and never cached across sessions, so
// the nonce always reflects on-chain truth at signing time.
type AccessKeyView struct {
	Nonce      uint64
	Permission Permission
	BlockHash  string
}

// Permission is the permission level of an access key.
// The chain reports FullAccess as the literal string "FullAccess" and scoped keys
// as a structured FunctionCall object; both decode into this type.
type Permission struct {
	full bool
}

// PermissionFullAccess is the permission level required before the selector will
// sign on a user's behalf.
var PermissionFullAccess = Permission{full: true}

// PermissionFunctionCall is any scoped, non-FullAccess permission.
var PermissionFunctionCall = Permission{}

// FullAccess reports whether the key allows arbitrary transaction signing.
func (p Permission) FullAccess() bool {
	return p.full
}

// ParsePermission interprets the wire representation of a permission: the string
// "FullAccess", or any structured value for scoped keys.
func ParsePermission(v any) Permission {
	if s, ok := v.(string); ok && s == "FullAccess" {
		return PermissionFullAccess
	}
	return PermissionFunctionCall
}

func (p Permission) String() string {
	if p.full {
		return "FullAccess"
	}
	return "FunctionCall"
}
