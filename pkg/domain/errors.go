package domain

import "errors"

// ErrWalletNotInstalled is returned when the external wallet handle is unreachable.
var ErrWalletNotInstalled = errors.New("wallet is not installed")

// ErrNotSignedIn is returned when an operation requires an authenticated account.
var ErrNotSignedIn = errors.New("wallet not signed in")

// ErrNoWalletSelected is returned by the facade when no wallet is active.
var ErrNoWalletSelected = errors.New("no wallet selected")

// ErrNoAccounts is returned when the active wallet reports zero accounts.
var ErrNoAccounts = errors.New("no accounts available for signing")

// ErrInvalidSigner is returned when a caller-supplied signer id is not among the
// active accounts.
var ErrInvalidSigner = errors.New("invalid signer id")

// ErrInsufficientPermission is returned when an access key does not carry
// FullAccess permission.
var ErrInsufficientPermission = errors.New("access key requires FullAccess permission")

// ErrNetworkMismatch is returned when the wallet reports a network different from
// the configured one.
var ErrNetworkMismatch = errors.New("wallet network does not match configuration")

// ErrSigningRejected is returned when the external signer refused to sign
// (user rejection). It never triggers the raw-payload signing fallback.
var ErrSigningRejected = errors.New("signing rejected by wallet")

// ErrSigningFailed is returned when the external signer errored for any other reason.
var ErrSigningFailed = errors.New("signing failed")

// ErrSubmissionFailed is returned per transaction when broadcast or finality
// retrieval fails. Earlier transactions of the batch are not rolled back.
var ErrSubmissionFailed = errors.New("transaction submission failed")

// ErrUnsupportedPayload is returned by wallets that cannot sign a structured
// transaction payload. It triggers the raw-payload signing fallback.
var ErrUnsupportedPayload = errors.New("wallet cannot sign structured payload")

// ErrUnknownWallet is returned when a wallet id does not resolve to a configured module.
var ErrUnknownWallet = errors.New("unknown wallet id")

// ErrKeyNotFound is returned by storage adapters when a key is absent.
// Removing a key and absence of a key are equivalent states.
var ErrKeyNotFound = errors.New("storage key not found")
