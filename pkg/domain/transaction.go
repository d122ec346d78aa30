package domain

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/near/borsh-go"
)

// Transaction is the abstract form accepted by the public API. SignerID and
// ReceiverID may be left empty; the pipeline defaults them to the first active
// account and the configured contract id respectively.
type Transaction struct {
	SignerID   string
	ReceiverID string
	Actions    []Action
}

// RawTransaction is the fully resolved, encodable transaction: signer, key,
// assigned nonce, receiver, recent block hash and actions. Field order is the
// chain's Borsh schema and must not change.
type RawTransaction struct {
	SignerID   string
	PublicKey  PublicKey
	Nonce      uint64
	ReceiverID string
	BlockHash  [32]byte
	Actions    []Action
}

// NewRawTransaction resolves an abstract transaction against a signing key,
// an assigned nonce and a recent block hash in base58 form.
func NewRawTransaction(tx Transaction, publicKey PublicKey, nonce uint64, blockHash string) (RawTransaction, error) {
	raw := RawTransaction{
		SignerID:   tx.SignerID,
		PublicKey:  publicKey,
		Nonce:      nonce,
		ReceiverID: tx.ReceiverID,
		Actions:    tx.Actions,
	}

	if raw.SignerID == "" {
		return raw, fmt.Errorf("resolve transaction: %w", ErrInvalidSigner)
	}
	if raw.ReceiverID == "" {
		return raw, fmt.Errorf("resolve transaction: missing receiver id")
	}

	hash, err := base58.Decode(blockHash)
	if err != nil {
		return raw, fmt.Errorf("decode block hash: %w", err)
	}
	if len(hash) != len(raw.BlockHash) {
		return raw, fmt.Errorf("invalid block hash length %d", len(hash))
	}
	copy(raw.BlockHash[:], hash)

	return raw, nil
}

// Encode serializes the transaction to its canonical Borsh form.
func (t RawTransaction) Encode() ([]byte, error) {
	data, err := borsh.Serialize(t)
	if err != nil {
		return nil, fmt.Errorf("borsh encode transaction: %w", err)
	}
	return data, nil
}

// EncodeBase64 returns the Borsh form in base64, the representation external
// wallets expect on their signing entry points.
func (t RawTransaction) EncodeBase64() (string, error) {
	data, err := t.Encode()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Hash returns the sha256 digest of the encoded transaction, the value an
// ed25519 signer actually signs.
func (t RawTransaction) Hash() ([32]byte, []byte, error) {
	data, err := t.Encode()
	if err != nil {
		return [32]byte{}, nil, err
	}
	return sha256.Sum256(data), data, nil
}

// DecodeRawTransaction parses Borsh transaction bytes. Failure indicates the
// payload is not a structured transaction, which steers the signing fallback.
func DecodeRawTransaction(data []byte) (RawTransaction, error) {
	var raw RawTransaction
	if err := borsh.Deserialize(&raw, data); err != nil {
		return raw, fmt.Errorf("borsh decode transaction: %w", err)
	}
	return raw, nil
}

// SignedTransaction pairs a raw transaction with its signature, ready for
// broadcast.
type SignedTransaction struct {
	Transaction RawTransaction
	Signature   Signature
}

// Encode serializes the signed transaction to its canonical Borsh form.
func (s SignedTransaction) Encode() ([]byte, error) {
	data, err := borsh.Serialize(s)
	if err != nil {
		return nil, fmt.Errorf("borsh encode signed transaction: %w", err)
	}
	return data, nil
}

// EncodeBase64 returns the broadcast form expected by the chain RPC.
func (s SignedTransaction) EncodeBase64() (string, error) {
	data, err := s.Encode()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// ExecutionStatus is the terminal status of a submitted transaction.
type ExecutionStatus struct {
	// SuccessValue is the base64 return value when the transaction succeeded.
	SuccessValue string `mapstructure:"SuccessValue" json:"SuccessValue,omitempty"`
	// Failure carries the chain's structured failure description, if any.
	Failure map[string]any `mapstructure:"Failure" json:"Failure,omitempty"`
}

// Failed reports whether the chain recorded a failure for the transaction.
func (s ExecutionStatus) Failed() bool {
	return len(s.Failure) > 0
}

// ExecutionOutcome is the finalized result of one submitted transaction.
type ExecutionOutcome struct {
	TransactionHash string          `mapstructure:"transaction_hash" json:"transaction_hash"`
	SignerID        string          `mapstructure:"signer_id" json:"signer_id,omitempty"`
	Status          ExecutionStatus `mapstructure:"status" json:"status"`
}

// TransactionResult is the per-index result of a batch submission. Either
// Outcome or Err is set; a failed entry never aborts already-submitted
// predecessors, so callers must inspect each element.
type TransactionResult struct {
	Hash    string
	Outcome *ExecutionOutcome
	Err     error
}

// VerifiedOwner is the signed ownership proof returned by VerifyOwner: the
// canonical payload fields plus the base64 signature over their serialization.
type VerifiedOwner struct {
	AccountID string `json:"accountId"`
	Message   string `json:"message"`
	BlockID   string `json:"blockId"`
	PublicKey string `json:"publicKey"`
	KeyType   string `json:"keyType"`
	Signature string `json:"signature"`
}

// CanonicalPayload serializes the proof fields that are covered by the
// signature. Struct field order fixes the serialization, so the bytes are
// deterministic for verifiers.
func (v VerifiedOwner) CanonicalPayload() ([]byte, error) {
	payload := struct {
		AccountID string `json:"accountId"`
		Message   string `json:"message"`
		BlockID   string `json:"blockId"`
		PublicKey string `json:"publicKey"`
		KeyType   string `json:"keyType"`
	}{
		AccountID: v.AccountID,
		Message:   v.Message,
		BlockID:   v.BlockID,
		PublicKey: v.PublicKey,
		KeyType:   v.KeyType,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode ownership payload: %w", err)
	}
	return encoded, nil
}
