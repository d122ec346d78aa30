package ports

import (
	"context"
	"log/slog"

	"github.com/nearwallets/selector/pkg/domain"
	"github.com/nearwallets/selector/pkg/events"
	"github.com/nearwallets/selector/pkg/observability"
)

// SignInParams carries the optional sign-in scoping a caller may request.
// Backends that cannot honor scoping ignore it.
type SignInParams struct {
	ContractID  string
	MethodNames []string
}

// VerifyOwnerParams carries the caller message to embed in an ownership proof.
type VerifyOwnerParams struct {
	Message string
}

// Wallet is the behavior contract every backend adapter implements.
//
// Implementations own their connection state exclusively: a cached account, the
// external handle, and the per-adapter persisted data. The controller holds
// only a non-owning lookup from wallet id to instance.
type Wallet interface {
	// ID returns the stable module identifier.
	ID() string

	// Type returns the backend category.
	Type() domain.WalletType

	// Metadata returns the static display information.
	Metadata() domain.ModuleMetadata

	// SignIn authenticates against the external wallet. It is idempotent: if
	// accounts are already resolved they are returned without re-prompting.
	// The returned access key must carry FullAccess permission; otherwise the
	// adapter signs out proactively and returns domain.ErrInsufficientPermission.
	SignIn(ctx context.Context, params SignInParams) ([]domain.Account, error)

	// SignOut clears persisted account state and emits a signed-out
	// notification. Signing out while signed out is a no-op.
	SignOut(ctx context.Context) error

	// Accounts is a pure read of the adapter's current accounts.
	Accounts() []domain.Account

	// VerifyOwner signs a canonical ownership proof anchored to the latest
	// finalized block. Returns domain.ErrNotSignedIn without an account.
	VerifyOwner(ctx context.Context, params VerifyOwnerParams) (*domain.VerifiedOwner, error)

	// SignAndSendTransaction runs the signing pipeline for one transaction and
	// returns its finalized outcome.
	SignAndSendTransaction(ctx context.Context, tx domain.Transaction) (*domain.ExecutionOutcome, error)

	// SignAndSendTransactions signs a batch with gap-free increasing nonces and
	// submits in input order. Results match input order; per-index failures do
	// not roll back submitted predecessors.
	SignAndSendTransactions(ctx context.Context, txs []domain.Transaction) ([]domain.TransactionResult, error)
}

// WalletDeps are the collaborators handed to a module's setup function.
type WalletDeps struct {
	Network    domain.Network
	ContractID string
	Storage    Storage
	Provider   Provider
	Bus        *events.Bus
	Logger     *slog.Logger
	Metrics    *observability.Metrics
}

// SetupFunc instantiates a wallet behavior with its collaborators.
type SetupFunc func(ctx context.Context, deps WalletDeps) (Wallet, error)

// Module couples a descriptor with the lazy construction of its wallet.
type Module struct {
	Descriptor domain.ModuleDescriptor
	Setup      SetupFunc
}

// ModuleFactory probes backend availability and yields a module. Factories run
// once during selector initialization; a nil module means the backend opted out
// (for example, its daemon is unreachable and it prefers to stay hidden).
type ModuleFactory func(ctx context.Context) (*Module, error)
