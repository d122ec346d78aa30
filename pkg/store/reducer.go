package store

import "github.com/nearwallets/selector/pkg/domain"

// State is the wallet-selection snapshot. Accounts is non-empty only while
// SelectedWalletID is set; clearing the selection clears the accounts.
type State struct {
	Modules          []domain.ModuleDescriptor
	Accounts         []domain.Account
	SelectedWalletID string
}

// Selected reports whether a wallet is currently active.
func (s State) Selected() bool {
	return s.SelectedWalletID != ""
}

// Event is a typed store transition input. The set is closed; the reducer
// treats anything it does not recognize as a no-op for forward compatibility.
type Event interface {
	// Name identifies the event in logs.
	Name() string

	isEvent()
}

// ModulesReady is the initial hydration event: it replaces modules, accounts
// and the selected wallet unconditionally.
type ModulesReady struct {
	Modules          []domain.ModuleDescriptor
	Accounts         []domain.Account
	SelectedWalletID string
}

// WalletConnected records a successful sign-in. Connecting with zero accounts
// is treated as a non-event, not an error.
type WalletConnected struct {
	WalletID string
	Accounts []domain.Account
}

// WalletDisconnected records a sign-out. It only applies when the wallet is
// the currently selected one.
type WalletDisconnected struct {
	WalletID string
}

// AccountsChanged replaces the account list of the currently selected wallet.
type AccountsChanged struct {
	WalletID string
	Accounts []domain.Account
}

func (ModulesReady) Name() string       { return "ModulesReady" }
func (WalletConnected) Name() string    { return "WalletConnected" }
func (WalletDisconnected) Name() string { return "WalletDisconnected" }
func (AccountsChanged) Name() string    { return "AccountsChanged" }

func (ModulesReady) isEvent()       {}
func (WalletConnected) isEvent()    {}
func (WalletDisconnected) isEvent() {}
func (AccountsChanged) isEvent()    {}

// Reduce applies a pure transition: deterministic, never mutating its input.
// Accounts are replaced wholesale, never edited in place.
func Reduce(state State, event Event) State {
	switch ev := event.(type) {
	case ModulesReady:
		state.Modules = ev.Modules
		state.Accounts = ev.Accounts
		state.SelectedWalletID = ev.SelectedWalletID
		return state

	case WalletConnected:
		if len(ev.Accounts) == 0 {
			return state
		}
		state.Accounts = ev.Accounts
		state.SelectedWalletID = ev.WalletID
		return state

	case WalletDisconnected:
		if ev.WalletID != state.SelectedWalletID {
			return state
		}
		state.Accounts = nil
		state.SelectedWalletID = ""
		return state

	case AccountsChanged:
		if ev.WalletID != state.SelectedWalletID {
			return state
		}
		state.Accounts = ev.Accounts
		return state

	default:
		return state
	}
}
