package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nearwallets/selector/internal/logging"
	"github.com/nearwallets/selector/pkg/domain"
	"github.com/nearwallets/selector/pkg/ports"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("wallet error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// Conn is a ports.WalletConn over a wallet daemon's HTTP surface. Requests go
// through POST /rpc; notifications arrive through a long-poll loop on
// GET /events that starts with the first registered handler.
type Conn struct {
	url        string
	client     *http.Client
	pollClient *http.Client
	logger     *slog.Logger
	nextID     atomic.Int64

	mu       sync.Mutex
	handlers map[string][]func(string)

	pollOnce sync.Once
	stop     context.CancelFunc
	done     chan struct{}
}

var _ ports.WalletConn = (*Conn)(nil)

// ConnOption configures the Conn.
type ConnOption func(*Conn)

// WithConnLogger sets the connection logger.
func WithConnLogger(logger *slog.Logger) ConnOption {
	return func(c *Conn) {
		c.logger = logger
	}
}

// WithHTTPClient overrides the request client. The long-poll loop keeps its
// own client so poll waits are not capped by the request timeout.
func WithHTTPClient(client *http.Client) ConnOption {
	return func(c *Conn) {
		c.client = client
	}
}

// NewConn creates a connection to the wallet daemon at url.
func NewConn(url string, opts ...ConnOption) *Conn {
	c := &Conn{
		url:        url,
		client:     &http.Client{Timeout: 30 * time.Second},
		pollClient: &http.Client{Timeout: longPollWait + 10*time.Second},
		logger:     logging.NewNop(),
		handlers:   map[string][]func(string){},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request performs one wallet call and returns the decoded result.
func (c *Conn) Request(ctx context.Context, method string, params any) (any, error) {
	var encodedParams json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode params for %q: %w", method, err)
		}
		encodedParams = encoded
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  encodedParams,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/rpc", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wallet daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wallet daemon status %d", resp.StatusCode)
	}

	var response rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if response.Error != nil {
		return nil, translateError(response.Error)
	}

	var result any
	if len(response.Result) > 0 {
		if err := json.Unmarshal(response.Result, &result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	return result, nil
}

// translateError maps the protocol's reserved codes onto domain sentinels so
// callers can branch with errors.Is across the transport boundary.
func translateError(rpcErr *rpcError) error {
	switch rpcErr.Code {
	case codeSigningRejected:
		return fmt.Errorf("%w: %s", domain.ErrSigningRejected, rpcErr.Message)
	case codeUnsupportedPayload:
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedPayload, rpcErr.Message)
	}
	return rpcErr
}

// On registers a notification handler. The first registration starts the
// long-poll loop.
func (c *Conn) On(event string, handler func(payload string)) {
	c.mu.Lock()
	c.handlers[event] = append(c.handlers[event], handler)
	c.mu.Unlock()

	c.pollOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		c.stop = cancel
		c.done = make(chan struct{})
		go c.poll(ctx)
	})
}

// Close stops the long-poll loop and waits for it to exit. Safe to call when
// the loop never started.
func (c *Conn) Close() error {
	if c.stop == nil {
		return nil
	}
	c.stop()
	<-c.done
	return nil
}

func (c *Conn) poll(ctx context.Context) {
	defer close(c.done)

	var cursor uint64
	for {
		if ctx.Err() != nil {
			return
		}

		next, events, err := c.fetchEvents(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Debug("event poll failed", "err", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		cursor = next

		for _, event := range events {
			c.dispatch(event)
		}
	}
}

func (c *Conn) fetchEvents(ctx context.Context, cursor uint64) (uint64, []eventRecord, error) {
	url := fmt.Sprintf("%s/events?cursor=%d", c.url, cursor)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return cursor, nil, err
	}

	resp, err := c.pollClient.Do(req)
	if err != nil {
		return cursor, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cursor, nil, fmt.Errorf("event poll status %d", resp.StatusCode)
	}

	var decoded struct {
		Events []eventRecord `json:"events"`
		Cursor uint64        `json:"cursor"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return cursor, nil, err
	}
	return decoded.Cursor, decoded.Events, nil
}

func (c *Conn) dispatch(event eventRecord) {
	c.mu.Lock()
	handlers := append([]func(string){}, c.handlers[event.Event]...)
	c.mu.Unlock()

	c.logger.Debug("wallet event", "event", event.Event, "seq", event.Seq)
	for _, h := range handlers {
		h(event.Payload)
	}
}
