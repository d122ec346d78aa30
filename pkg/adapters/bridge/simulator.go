/*
Package bridge connects the selector to wallet daemons over HTTP: Conn is a
ports.WalletConn speaking JSON-RPC against a daemon, and Simulator is an
in-process daemon holding a real ed25519 key, used by the CLI's simulate
command and by end-to-end tests.
*/
package bridge

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mr-tron/base58"

	"github.com/nearwallets/selector/internal/logging"
	"github.com/nearwallets/selector/pkg/domain"
	"github.com/nearwallets/selector/pkg/ports"
)

// Application-level JSON-RPC error codes the wallet protocol reserves.
const (
	codeSigningRejected    = 4001
	codeUnsupportedPayload = 4100
)

// longPollWait caps how long an event poll blocks before returning empty.
const longPollWait = 25 * time.Second

type eventRecord struct {
	Seq     uint64 `json:"seq"`
	Event   string `json:"event"`
	Payload string `json:"payload"`
}

// Simulator is a deterministic wallet daemon: one account, one ed25519 key,
// FullAccess permission and an in-memory ledger of submitted transactions.
type Simulator struct {
	accountID string
	networkID string
	key       ed25519.PrivateKey
	logger    *slog.Logger

	mu        sync.Mutex
	nonce     uint64
	outcomes  map[string]domain.ExecutionOutcome
	events    []eventRecord
	notify    chan struct{}
	rejecting bool
	rawOnly   bool
}

// SimulatorOption configures the Simulator.
type SimulatorOption func(*Simulator)

// WithSimulatorLogger sets the daemon logger.
func WithSimulatorLogger(logger *slog.Logger) SimulatorOption {
	return func(s *Simulator) {
		s.logger = logger
	}
}

// WithKey pins the signing key instead of generating one, for reproducible runs.
func WithKey(key ed25519.PrivateKey) SimulatorOption {
	return func(s *Simulator) {
		s.key = key
	}
}

// WithBaseNonce sets the access key's starting nonce.
func WithBaseNonce(nonce uint64) SimulatorOption {
	return func(s *Simulator) {
		s.nonce = nonce
	}
}

// NewSimulator creates a daemon for the given account on the given network.
func NewSimulator(accountID, networkID string, opts ...SimulatorOption) (*Simulator, error) {
	s := &Simulator{
		accountID: accountID,
		networkID: networkID,
		logger:    logging.NewNop(),
		outcomes:  map[string]domain.ExecutionOutcome{},
		notify:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.key == nil {
		_, key, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate wallet key: %w", err)
		}
		s.key = key
	}
	return s, nil
}

// PublicKey returns the daemon's signing key in canonical string form.
func (s *Simulator) PublicKey() string {
	pub := s.key.Public().(ed25519.PublicKey)
	return "ed25519:" + base58.Encode(pub)
}

// AccountID returns the daemon's account.
func (s *Simulator) AccountID() string {
	return s.accountID
}

// Nonce returns the highest nonce consumed so far.
func (s *Simulator) Nonce() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonce
}

// SetRejecting makes subsequent sign requests fail as user rejections.
func (s *Simulator) SetRejecting(rejecting bool) {
	s.mu.Lock()
	s.rejecting = rejecting
	s.mu.Unlock()
}

// SetRawOnly makes the daemon refuse structured transaction payloads, forcing
// clients onto the raw signing path.
func (s *Simulator) SetRawOnly(rawOnly bool) {
	s.mu.Lock()
	s.rawOnly = rawOnly
	s.mu.Unlock()
}

// SwitchNetwork changes the daemon's network and notifies connected clients.
func (s *Simulator) SwitchNetwork(networkID string) {
	s.mu.Lock()
	s.networkID = networkID
	s.mu.Unlock()
	s.publish(ports.ConnEventChainChanged, "near:"+networkID)
}

// SwitchAccount changes the daemon's account and notifies connected clients.
func (s *Simulator) SwitchAccount(accountID string) {
	s.mu.Lock()
	s.accountID = accountID
	s.mu.Unlock()
	s.publish(ports.ConnEventAccountsChanged, accountID)
}

func (s *Simulator) publish(event, payload string) {
	s.mu.Lock()
	s.events = append(s.events, eventRecord{
		Seq:     uint64(len(s.events) + 1),
		Event:   event,
		Payload: payload,
	})
	close(s.notify)
	s.notify = make(chan struct{})
	s.mu.Unlock()
}

// Handler returns the daemon's HTTP surface: POST /rpc for requests and
// GET /events for long-poll notification delivery.
func (s *Simulator) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/rpc", s.handleRPC)
	r.Get("/events", s.handleEvents)
	return r
}

func (s *Simulator) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Debug("wallet request", "method", req.Method)

	result, rpcErr := s.dispatch(req)
	response := rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	if rpcErr == nil {
		encoded, err := json.Marshal(result)
		if err != nil {
			response.Error = &rpcError{Code: -32603, Message: err.Error()}
		} else {
			response.Result = encoded
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func (s *Simulator) dispatch(req rpcRequest) (any, *rpcError) {
	switch req.Method {
	case ports.ConnAccounts:
		s.mu.Lock()
		defer s.mu.Unlock()
		return []map[string]string{{
			"accountId": s.accountID,
			"publicKey": s.PublicKey(),
		}}, nil

	case ports.ConnViewAccessKey:
		s.mu.Lock()
		defer s.mu.Unlock()
		return map[string]any{
			"nonce":      s.nonce,
			"permission": "FullAccess",
			"block_hash": s.blockHashLocked(),
		}, nil

	case ports.ConnBlock:
		s.mu.Lock()
		defer s.mu.Unlock()
		return map[string]any{
			"header": map[string]any{
				"hash":   s.blockHashLocked(),
				"height": 1000 + s.nonce,
			},
		}, nil

	case ports.ConnSign:
		return s.sign(req)

	case ports.ConnSendTransaction:
		return s.sendTransactions(req)

	case ports.ConnTxStatus:
		return s.txStatus(req)
	}
	return nil, &rpcError{Code: -32601, Message: fmt.Sprintf("unknown method %q", req.Method)}
}

// blockHashLocked derives a stable per-state block hash.
func (s *Simulator) blockHashLocked() string {
	seed := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", s.networkID, s.nonce/100)))
	return base58.Encode(seed[:])
}

func (s *Simulator) sign(req rpcRequest) (any, *rpcError) {
	var params []string
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) == 0 {
		return nil, &rpcError{Code: -32602, Message: "sign expects one payload"}
	}

	s.mu.Lock()
	rejecting, rawOnly := s.rejecting, s.rawOnly
	s.mu.Unlock()
	if rejecting {
		return nil, &rpcError{Code: codeSigningRejected, Message: "user rejected the request"}
	}

	message := []byte(params[0])
	if strings.HasPrefix(params[0], "0x") {
		if rawOnly {
			return nil, &rpcError{Code: codeUnsupportedPayload, Message: "structured payloads not supported"}
		}
		decoded, err := hex.DecodeString(params[0][2:])
		if err != nil {
			return nil, &rpcError{Code: -32602, Message: "invalid hex payload"}
		}
		message = decoded
	}

	digest := sha256.Sum256(message)
	return map[string]string{
		"signature": "0x" + hex.EncodeToString(ed25519.Sign(s.key, digest[:])),
		"publicKey": s.PublicKey(),
	}, nil
}

// sendTransactions accepts base64 Borsh transactions, signs them with the
// daemon key and records their outcomes. Nonces must be strictly increasing.
func (s *Simulator) sendTransactions(req rpcRequest) (any, *rpcError) {
	var payloads []string
	if err := json.Unmarshal(req.Params, &payloads); err != nil {
		return nil, &rpcError{Code: -32602, Message: "sendTransaction expects transaction payloads"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hashes := make([]string, len(payloads))
	for i, payload := range payloads {
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, &rpcError{Code: -32602, Message: "invalid base64 payload"}
		}
		tx, err := domain.DecodeRawTransaction(raw)
		if err != nil {
			return nil, &rpcError{Code: -32602, Message: "invalid transaction payload"}
		}
		if tx.Nonce <= s.nonce {
			return nil, &rpcError{Code: -32000, Message: fmt.Sprintf("nonce %d already used", tx.Nonce)}
		}
		s.nonce = tx.Nonce

		digest, _, err := tx.Hash()
		if err != nil {
			return nil, &rpcError{Code: -32603, Message: err.Error()}
		}
		hash := base58.Encode(digest[:])
		s.outcomes[hash] = domain.ExecutionOutcome{
			TransactionHash: hash,
			SignerID:        tx.SignerID,
			Status:          domain.ExecutionStatus{SuccessValue: ""},
		}
		hashes[i] = hash
	}

	s.logger.Debug("batch accepted", "count", len(hashes), "nonce", s.nonce)
	return hashes, nil
}

func (s *Simulator) txStatus(req rpcRequest) (any, *rpcError) {
	var params []string
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) == 0 {
		return nil, &rpcError{Code: -32602, Message: "txStatus expects [hash, signerId]"}
	}

	s.mu.Lock()
	outcome, ok := s.outcomes[params[0]]
	s.mu.Unlock()
	if !ok {
		return nil, &rpcError{Code: -32000, Message: fmt.Sprintf("unknown transaction %s", params[0])}
	}
	return outcome, nil
}

func (s *Simulator) handleEvents(w http.ResponseWriter, r *http.Request) {
	cursor, _ := strconv.ParseUint(r.URL.Query().Get("cursor"), 10, 64)

	deadline := time.NewTimer(longPollWait)
	defer deadline.Stop()

	for {
		s.mu.Lock()
		pending := make([]eventRecord, 0)
		for _, e := range s.events {
			if e.Seq > cursor {
				pending = append(pending, e)
			}
		}
		next := uint64(len(s.events))
		notify := s.notify
		s.mu.Unlock()

		if len(pending) > 0 {
			writeEvents(w, pending, next)
			return
		}

		select {
		case <-notify:
		case <-deadline.C:
			writeEvents(w, nil, cursor)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeEvents(w http.ResponseWriter, events []eventRecord, cursor uint64) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"events": events,
		"cursor": cursor,
	})
}
