package injected

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearwallets/selector/pkg/adapters/memory"
	"github.com/nearwallets/selector/pkg/domain"
	"github.com/nearwallets/selector/pkg/events"
	"github.com/nearwallets/selector/pkg/ports"
)

const testAccountID = "alice.testnet"

var testBlockHash = base58.Encode(make([]byte, 32))

func deposit(t *testing.T, amount string) domain.Balance {
	t.Helper()
	b, err := domain.BalanceFromString(amount)
	require.NoError(t, err)
	return b
}

// fakeConn is an in-process wallet backend with a real ed25519 key. It speaks
// the connection protocol the adapter expects and records every request.
type fakeConn struct {
	mu       sync.Mutex
	key      ed25519.PrivateKey
	nonce    uint64
	scoped   bool
	rawOnly  bool
	reject   bool
	failTx   map[string]bool
	handlers map[string][]func(string)

	accountCalls int
	signPayloads []string
	sentBatches  [][]string

	// accountsGate, when set, blocks account queries until closed.
	accountsGate chan struct{}
}

func newFakeConn(t *testing.T) *fakeConn {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	copy(seed, "injected-wallet-test-seed")
	return &fakeConn{
		key:      ed25519.NewKeyFromSeed(seed),
		nonce:    5,
		failTx:   map[string]bool{},
		handlers: map[string][]func(string){},
	}
}

func (c *fakeConn) publicKey() string {
	pub := c.key.Public().(ed25519.PublicKey)
	return "ed25519:" + base58.Encode(pub)
}

func (c *fakeConn) On(event string, handler func(payload string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

func (c *fakeConn) emit(event, payload string) {
	c.mu.Lock()
	handlers := append([]func(string){}, c.handlers[event]...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(payload)
	}
}

func (c *fakeConn) Request(ctx context.Context, method string, params any) (any, error) {
	switch method {
	case ports.ConnAccounts:
		if gate := c.accountsGate; gate != nil {
			<-gate
		}
		c.mu.Lock()
		c.accountCalls++
		c.mu.Unlock()
		return []any{map[string]any{
			"accountId": testAccountID,
			"publicKey": c.publicKey(),
		}}, nil

	case ports.ConnViewAccessKey:
		permission := any("FullAccess")
		if c.scoped {
			permission = map[string]any{
				"FunctionCall": map[string]any{"receiver_id": "app.testnet"},
			}
		}
		return map[string]any{
			"nonce":      c.nonce,
			"permission": permission,
			"block_hash": testBlockHash,
		}, nil

	case ports.ConnBlock:
		return map[string]any{
			"header": map[string]any{"hash": testBlockHash, "height": 100},
		}, nil

	case ports.ConnSign:
		payload := params.([]string)[0]
		c.mu.Lock()
		c.signPayloads = append(c.signPayloads, payload)
		c.mu.Unlock()
		if c.reject {
			return nil, domain.ErrSigningRejected
		}
		message := []byte(payload)
		if strings.HasPrefix(payload, "0x") {
			if c.rawOnly {
				return nil, domain.ErrUnsupportedPayload
			}
			decoded, err := hex.DecodeString(payload[2:])
			if err != nil {
				return nil, err
			}
			message = decoded
		}
		digest := sha256.Sum256(message)
		return map[string]any{
			"signature": "0x" + hex.EncodeToString(ed25519.Sign(c.key, digest[:])),
			"publicKey": c.publicKey(),
		}, nil

	case ports.ConnSendTransaction:
		payloads := params.([]string)
		c.mu.Lock()
		c.sentBatches = append(c.sentBatches, payloads)
		c.mu.Unlock()
		hashes := make([]any, len(payloads))
		for i, p := range payloads {
			raw, err := base64.StdEncoding.DecodeString(p)
			if err != nil {
				return nil, err
			}
			tx, err := domain.DecodeRawTransaction(raw)
			if err != nil {
				return nil, err
			}
			hashes[i] = fmt.Sprintf("hash-%d", tx.Nonce)
		}
		return hashes, nil

	case ports.ConnTxStatus:
		args := params.([]string)
		if c.failTx[args[0]] {
			return nil, fmt.Errorf("transaction %s expired", args[0])
		}
		return map[string]any{
			"transaction_hash": args[0],
			"signer_id":        args[1],
			"status":           map[string]any{"SuccessValue": ""},
		}, nil
	}
	return nil, fmt.Errorf("unexpected method %q", method)
}

func newTestWallet(t *testing.T, conn ports.WalletConn, storage ports.Storage) (*Wallet, *events.Bus) {
	t.Helper()
	if storage == nil {
		storage = memory.NewStorage()
	}
	bus := events.NewBus()
	w, err := New(context.Background(),
		domain.ModuleDescriptor{ID: "test-wallet", Type: domain.WalletTypeInjected},
		conn,
		ports.WalletDeps{
			Network:    domain.Network{NetworkID: domain.Testnet},
			ContractID: "guest-book.testnet",
			Storage:    storage,
			Bus:        bus,
		})
	require.NoError(t, err)
	return w, bus
}

func TestSignInPersistsAndRestoresAccount(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn(t)
	storage := memory.NewStorage()
	w, _ := newTestWallet(t, conn, storage)

	accounts, err := w.SignIn(ctx, ports.SignInParams{})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, testAccountID, accounts[0].AccountID)

	// Repeated sign-in returns the cached account without a new prompt.
	again, err := w.SignIn(ctx, ports.SignInParams{})
	require.NoError(t, err)
	assert.Equal(t, accounts, again)
	assert.Equal(t, 1, conn.accountCalls)

	// A fresh instance over the same storage restores the session.
	restored, _ := newTestWallet(t, conn, storage)
	require.Len(t, restored.Accounts(), 1)
	assert.Equal(t, testAccountID, restored.Accounts()[0].AccountID)
}

func TestSignInRejectsScopedKey(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn(t)
	conn.scoped = true
	storage := memory.NewStorage()
	w, _ := newTestWallet(t, conn, storage)

	_, err := w.SignIn(ctx, ports.SignInParams{})
	require.ErrorIs(t, err, domain.ErrInsufficientPermission)
	assert.Empty(t, w.Accounts())

	_, err = ports.GetJSON[domain.Account](ctx, storage, "wallet:test-wallet:account")
	assert.True(t, ports.IsNotFound(err))
}

func TestSignInDeduplicatesConcurrentCalls(t *testing.T) {
	conn := newFakeConn(t)
	conn.accountsGate = make(chan struct{})
	w, _ := newTestWallet(t, conn, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = w.SignIn(context.Background(), ports.SignInParams{})
		}(i)
	}
	close(conn.accountsGate)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 1, conn.accountCalls)
}

func TestSignOutIsIdempotentAndNotifies(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn(t)
	w, bus := newTestWallet(t, conn, nil)

	var signedOut []events.SignedOut
	bus.SignedOut.Subscribe(func(e events.SignedOut) {
		signedOut = append(signedOut, e)
	})

	_, err := w.SignIn(ctx, ports.SignInParams{})
	require.NoError(t, err)

	require.NoError(t, w.SignOut(ctx))
	require.NoError(t, w.SignOut(ctx))

	require.Len(t, signedOut, 1)
	assert.Equal(t, "test-wallet", signedOut[0].WalletID)
	assert.Empty(t, w.Accounts())
}

func TestAccountsChangedEventSignsOut(t *testing.T) {
	conn := newFakeConn(t)
	w, bus := newTestWallet(t, conn, nil)

	var signedOut int
	bus.SignedOut.Subscribe(func(events.SignedOut) { signedOut++ })

	_, err := w.SignIn(context.Background(), ports.SignInParams{})
	require.NoError(t, err)

	conn.emit(ports.ConnEventAccountsChanged, "mallory.testnet")

	assert.Empty(t, w.Accounts())
	assert.Equal(t, 1, signedOut)
}

func TestChainChangedSignsOutOnMismatch(t *testing.T) {
	conn := newFakeConn(t)
	w, bus := newTestWallet(t, conn, nil)

	var changes []events.NetworkChanged
	bus.NetworkChanged.Subscribe(func(e events.NetworkChanged) {
		changes = append(changes, e)
	})

	_, err := w.SignIn(context.Background(), ports.SignInParams{})
	require.NoError(t, err)

	// Matching network is a no-op.
	conn.emit(ports.ConnEventChainChanged, "near:testnet")
	assert.Len(t, w.Accounts(), 1)
	assert.Empty(t, changes)

	conn.emit(ports.ConnEventChainChanged, "near:mainnet")
	assert.Empty(t, w.Accounts())
	require.Len(t, changes, 1)
	assert.Equal(t, "mainnet", changes[0].NetworkID)
	assert.Equal(t, "test-wallet", changes[0].WalletID)
}

func TestSignerFallsBackToRawPayload(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn(t)
	conn.rawOnly = true
	w, _ := newTestWallet(t, conn, nil)

	_, err := w.SignIn(ctx, ports.SignInParams{})
	require.NoError(t, err)

	publicKey, err := domain.ParsePublicKey(conn.publicKey())
	require.NoError(t, err)
	raw, err := domain.NewRawTransaction(domain.Transaction{
		SignerID:   testAccountID,
		ReceiverID: "guest-book.testnet",
		Actions:    []domain.Action{domain.NewTransfer(deposit(t, "1"))},
	}, publicKey, 6, testBlockHash)
	require.NoError(t, err)
	encoded, err := raw.Encode()
	require.NoError(t, err)

	signed, err := (&signer{wallet: w}).SignMessage(ctx, encoded, testAccountID)
	require.NoError(t, err)

	// Structured attempt first, then the raw retry.
	require.Len(t, conn.signPayloads, 2)
	assert.True(t, strings.HasPrefix(conn.signPayloads[0], "0x"))
	assert.Equal(t, string(encoded), conn.signPayloads[1])

	digest := sha256.Sum256(encoded)
	pub := conn.key.Public().(ed25519.PublicKey)
	assert.True(t, ed25519.Verify(pub, digest[:], signed.Signature))
}

func TestSignerPropagatesRejection(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn(t)
	conn.reject = true
	w, _ := newTestWallet(t, conn, nil)

	_, err := w.SignIn(ctx, ports.SignInParams{})
	require.NoError(t, err)
	conn.signPayloads = nil

	_, err = (&signer{wallet: w}).SignMessage(ctx, []byte("hello"), testAccountID)
	require.ErrorIs(t, err, domain.ErrSigningRejected)

	// Rejection is terminal; no fallback attempt follows.
	assert.Len(t, conn.signPayloads, 1)
}

func TestSignAndSendTransactionsAssignsSequentialNonces(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn(t)
	w, _ := newTestWallet(t, conn, nil)

	_, err := w.SignIn(ctx, ports.SignInParams{})
	require.NoError(t, err)

	txs := []domain.Transaction{
		{Actions: []domain.Action{domain.NewTransfer(deposit(t, "1"))}},
		{Actions: []domain.Action{domain.NewTransfer(deposit(t, "2"))}},
		{Actions: []domain.Action{domain.NewTransfer(deposit(t, "3"))}},
	}

	results, err := w.SignAndSendTransactions(ctx, txs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// One batched submission, nonces 6..8 gap free in input order.
	require.Len(t, conn.sentBatches, 1)
	for i, result := range results {
		require.NoError(t, result.Err)
		assert.Equal(t, fmt.Sprintf("hash-%d", 6+i), result.Hash)
		require.NotNil(t, result.Outcome)
		assert.Equal(t, testAccountID, result.Outcome.SignerID)
		assert.False(t, result.Outcome.Status.Failed())
	}
}

func TestSignAndSendTransactionsRecordsPartialFailure(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn(t)
	conn.failTx["hash-7"] = true
	w, _ := newTestWallet(t, conn, nil)

	_, err := w.SignIn(ctx, ports.SignInParams{})
	require.NoError(t, err)

	txs := []domain.Transaction{
		{Actions: []domain.Action{domain.NewTransfer(deposit(t, "1"))}},
		{Actions: []domain.Action{domain.NewTransfer(deposit(t, "2"))}},
		{Actions: []domain.Action{domain.NewTransfer(deposit(t, "3"))}},
	}

	results, err := w.SignAndSendTransactions(ctx, txs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	require.ErrorIs(t, results[1].Err, domain.ErrSubmissionFailed)
	require.NoError(t, results[2].Err)
	assert.Equal(t, "hash-8", results[2].Hash)
}

func TestSignAndSendTransactionsRequiresSignIn(t *testing.T) {
	conn := newFakeConn(t)
	w, _ := newTestWallet(t, conn, nil)

	_, err := w.SignAndSendTransactions(context.Background(), []domain.Transaction{
		{Actions: []domain.Action{domain.NewTransfer(deposit(t, "1"))}},
	})
	require.ErrorIs(t, err, domain.ErrNotSignedIn)
}

func TestVerifyOwnerSignsCanonicalPayload(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn(t)
	w, _ := newTestWallet(t, conn, nil)

	_, err := w.SignIn(ctx, ports.SignInParams{})
	require.NoError(t, err)

	proof, err := w.VerifyOwner(ctx, ports.VerifyOwnerParams{Message: "prove it"})
	require.NoError(t, err)
	assert.Equal(t, testAccountID, proof.AccountID)
	assert.Equal(t, "prove it", proof.Message)
	assert.Equal(t, testBlockHash, proof.BlockID)
	assert.Equal(t, "ed25519", proof.KeyType)

	payload, err := proof.CanonicalPayload()
	require.NoError(t, err)
	signature, err := base64.StdEncoding.DecodeString(proof.Signature)
	require.NoError(t, err)

	digest := sha256.Sum256(payload)
	pub := conn.key.Public().(ed25519.PublicKey)
	assert.True(t, ed25519.Verify(pub, digest[:], signature))
}

func TestVerifyOwnerRequiresSignIn(t *testing.T) {
	conn := newFakeConn(t)
	w, _ := newTestWallet(t, conn, nil)

	_, err := w.VerifyOwner(context.Background(), ports.VerifyOwnerParams{Message: "m"})
	require.ErrorIs(t, err, domain.ErrNotSignedIn)
}

func TestModuleFactoryMarksAvailability(t *testing.T) {
	ctx := context.Background()

	module, err := SetupModule(newFakeConn(t), Params{ID: "dapp-wallet", Name: "Dapp"})(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dapp-wallet", module.Descriptor.ID)
	assert.Equal(t, domain.WalletTypeInjected, module.Descriptor.Type)
	assert.True(t, module.Descriptor.Metadata.Available)

	missing, err := SetupModule(nil, Params{ID: "dapp-wallet"})(ctx)
	require.NoError(t, err)
	assert.False(t, missing.Descriptor.Metadata.Available)
}
