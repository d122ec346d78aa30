package events

import "github.com/nearwallets/selector/pkg/domain"

// SignedOut is emitted when a wallet clears its authenticated state.
type SignedOut struct {
	WalletID string
}

// AccountsChanged is emitted when the active wallet's account list changes.
type AccountsChanged struct {
	WalletID string
	Accounts []domain.Account
}

// NetworkChanged is emitted when a wallet reports a network different from the
// configured one, so the host application can prompt reconfiguration.
type NetworkChanged struct {
	WalletID  string
	NetworkID string
}

// Bus aggregates the selector's notification channels. A single Bus instance
// is shared by the controller and every wallet adapter.
type Bus struct {
	SignedOut       Emitter[SignedOut]
	AccountsChanged Emitter[AccountsChanged]
	NetworkChanged  Emitter[NetworkChanged]
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}
