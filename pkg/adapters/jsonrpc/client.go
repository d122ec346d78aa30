// Package jsonrpc implements ports.Provider against a chain node's JSON-RPC
// endpoint. It is the wire-level broadcast collaborator; core packages only
// see the Provider interface.
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nearwallets/selector/internal/logging"
	"github.com/nearwallets/selector/pkg/domain"
)

// Client is a minimal JSON-RPC 2.0 client for the node methods the signing
// pipeline needs: query, block, broadcast_tx_commit and tx.
type Client struct {
	url    string
	client *http.Client
	logger *slog.Logger
	nextID atomic.Int64
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a provider for the given node URL.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("encode rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("rpc call", "method", method)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rpc %s: unexpected status %s", method, resp.Status)
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("rpc %s: %w", method, decoded.Error)
	}
	return decoded.Result, nil
}

type accessKeyResult struct {
	Nonce      uint64 `json:"nonce"`
	Permission any    `json:"permission"`
	BlockHash  string `json:"block_hash"`
	Error      string `json:"error"`
}

// ViewAccessKey fetches the access key record at final finality.
func (c *Client) ViewAccessKey(ctx context.Context, accountID, publicKey string) (domain.AccessKeyView, error) {
	result, err := c.call(ctx, "query", map[string]any{
		"request_type": "view_access_key",
		"finality":     domain.FinalityFinal,
		"account_id":   accountID,
		"public_key":   publicKey,
	})
	if err != nil {
		return domain.AccessKeyView{}, err
	}

	var decoded accessKeyResult
	if err := json.Unmarshal(result, &decoded); err != nil {
		return domain.AccessKeyView{}, fmt.Errorf("decode access key: %w", err)
	}
	// The node reports "key does not exist" inside the result, not as an rpc error.
	if decoded.Error != "" {
		return domain.AccessKeyView{}, fmt.Errorf("view access key %s for %s: %s", publicKey, accountID, decoded.Error)
	}

	return domain.AccessKeyView{
		Nonce:      decoded.Nonce,
		Permission: domain.ParsePermission(decoded.Permission),
		BlockHash:  decoded.BlockHash,
	}, nil
}

// Block fetches the latest block header at the given finality.
func (c *Client) Block(ctx context.Context, finality string) (domain.BlockHeader, error) {
	result, err := c.call(ctx, "block", map[string]any{"finality": finality})
	if err != nil {
		return domain.BlockHeader{}, err
	}

	var decoded struct {
		Header domain.BlockHeader `json:"header"`
	}
	if err := json.Unmarshal(result, &decoded); err != nil {
		return domain.BlockHeader{}, fmt.Errorf("decode block: %w", err)
	}
	return decoded.Header, nil
}

type outcomeResult struct {
	Status      json.RawMessage `json:"status"`
	Transaction struct {
		Hash     string `json:"hash"`
		SignerID string `json:"signer_id"`
	} `json:"transaction"`
}

func (r outcomeResult) toOutcome() (*domain.ExecutionOutcome, error) {
	outcome := &domain.ExecutionOutcome{
		TransactionHash: r.Transaction.Hash,
		SignerID:        r.Transaction.SignerID,
	}
	if len(r.Status) > 0 {
		if err := json.Unmarshal(r.Status, &outcome.Status); err != nil {
			return nil, fmt.Errorf("decode outcome status: %w", err)
		}
	}
	return outcome, nil
}

// SendTransaction broadcasts a signed transaction and waits for finality.
func (c *Client) SendTransaction(ctx context.Context, signed domain.SignedTransaction) (*domain.ExecutionOutcome, error) {
	encoded, err := signed.EncodeBase64()
	if err != nil {
		return nil, err
	}

	result, err := c.call(ctx, "broadcast_tx_commit", []string{encoded})
	if err != nil {
		return nil, err
	}

	var decoded outcomeResult
	if err := json.Unmarshal(result, &decoded); err != nil {
		return nil, fmt.Errorf("decode broadcast result: %w", err)
	}
	return decoded.toOutcome()
}

// TxStatus fetches the finalized outcome of a submitted transaction.
func (c *Client) TxStatus(ctx context.Context, txHash, signerID string) (*domain.ExecutionOutcome, error) {
	result, err := c.call(ctx, "tx", []string{txHash, signerID})
	if err != nil {
		return nil, err
	}

	var decoded outcomeResult
	if err := json.Unmarshal(result, &decoded); err != nil {
		return nil, fmt.Errorf("decode tx status: %w", err)
	}
	outcome, err := decoded.toOutcome()
	if err != nil {
		return nil, err
	}
	if outcome.TransactionHash == "" {
		outcome.TransactionHash = txHash
	}
	if outcome.SignerID == "" {
		outcome.SignerID = signerID
	}
	return outcome, nil
}
