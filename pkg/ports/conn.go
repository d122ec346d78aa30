package ports

import "context"

// Wallet connection request methods. Every backend speaks this small protocol,
// whatever its native transport (injected handle, extension port, HTTP bridge).
const (
	ConnAccounts        = "accounts"
	ConnViewAccessKey   = "viewAccessKey"
	ConnBlock           = "block"
	ConnSign            = "sign"
	ConnSendTransaction = "sendTransaction"
	ConnTxStatus        = "txStatus"
)

// Wallet connection notification events.
const (
	ConnEventAccountsChanged = "accountsChanged"
	ConnEventChainChanged    = "chainChanged"
)

// WalletConn is the handle to one external wallet. It is an explicit,
// passed-in dependency owned by its adapter instance, never a process-wide
// singleton, so multiple adapters and test doubles can coexist.
type WalletConn interface {
	// Request performs one round-trip against the wallet. Results are untyped;
	// adapters decode them into domain structures.
	Request(ctx context.Context, method string, params any) (any, error)

	// On registers a handler for a notification event. Handlers are invoked
	// with the event's string payload (an account id for accountsChanged, a
	// chain identifier for chainChanged).
	On(event string, handler func(payload string))
}
