package jsonrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearwallets/selector/pkg/domain"
)

// rpcStub serves canned JSON-RPC results keyed by method.
func rpcStub(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, ok := results[req.Method]
		if !ok {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
	}))
}

func TestViewAccessKeyFullAccess(t *testing.T) {
	srv := rpcStub(t, map[string]string{
		"query": `{"nonce":85,"permission":"FullAccess","block_hash":"GJ1W","block_height":19}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL)
	key, err := c.ViewAccessKey(context.Background(), "alice.near", "ed25519:abc")
	require.NoError(t, err)
	assert.Equal(t, uint64(85), key.Nonce)
	assert.True(t, key.Permission.FullAccess())
	assert.Equal(t, "GJ1W", key.BlockHash)
}

func TestViewAccessKeyScoped(t *testing.T) {
	srv := rpcStub(t, map[string]string{
		"query": `{"nonce":1,"permission":{"FunctionCall":{"receiver_id":"app.near","method_names":[]}},"block_hash":"GJ1W"}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL)
	key, err := c.ViewAccessKey(context.Background(), "alice.near", "ed25519:abc")
	require.NoError(t, err)
	assert.False(t, key.Permission.FullAccess())
}

func TestViewAccessKeyMissingKey(t *testing.T) {
	srv := rpcStub(t, map[string]string{
		"query": `{"error":"access key ed25519:abc does not exist while viewing","block_hash":"GJ1W"}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.ViewAccessKey(context.Background(), "alice.near", "ed25519:abc")
	assert.ErrorContains(t, err, "does not exist")
}

func TestBlock(t *testing.T) {
	srv := rpcStub(t, map[string]string{
		"block": `{"header":{"hash":"9wV7","height":117}}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL)
	header, err := c.Block(context.Background(), domain.FinalityFinal)
	require.NoError(t, err)
	assert.Equal(t, "9wV7", header.Hash)
	assert.Equal(t, uint64(117), header.Height)
}

func TestSendTransaction(t *testing.T) {
	srv := rpcStub(t, map[string]string{
		"broadcast_tx_commit": `{"status":{"SuccessValue":""},"transaction":{"hash":"7cJ2","signer_id":"alice.near"}}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL)
	outcome, err := c.SendTransaction(context.Background(), domain.SignedTransaction{})
	require.NoError(t, err)
	assert.Equal(t, "7cJ2", outcome.TransactionHash)
	assert.Equal(t, "alice.near", outcome.SignerID)
	assert.False(t, outcome.Status.Failed())
}

func TestTxStatusFailureSurfaces(t *testing.T) {
	srv := rpcStub(t, map[string]string{
		"tx": `{"status":{"Failure":{"ActionError":{"index":0}}},"transaction":{"hash":"7cJ2"}}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL)
	outcome, err := c.TxStatus(context.Background(), "7cJ2", "alice.near")
	require.NoError(t, err)
	assert.True(t, outcome.Status.Failed())
	assert.Equal(t, "alice.near", outcome.SignerID)
}

func TestRPCErrorPropagates(t *testing.T) {
	srv := rpcStub(t, nil)
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Block(context.Background(), domain.FinalityFinal)
	assert.ErrorContains(t, err, "Method not found")
}
