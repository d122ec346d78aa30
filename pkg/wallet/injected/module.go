package injected

import (
	"context"

	"github.com/nearwallets/selector/pkg/domain"
	"github.com/nearwallets/selector/pkg/ports"
)

// Params customizes a module built around an external connection handle.
type Params struct {
	// ID overrides the default module identifier.
	ID string

	// Type overrides the default backend category. Bridge-daemon wallets reuse
	// this adapter with WalletTypeBridge.
	Type domain.WalletType

	Name        string
	Description string
	IconURL     string
	DownloadURL string
	Deprecated  bool

	// Options are forwarded to every Wallet built from this module.
	Options []Option
}

// SetupModule returns a factory for a wallet reachable through conn. A nil
// connection yields a module whose metadata marks it unavailable, so selection
// UIs can still list it with an install hint.
func SetupModule(conn ports.WalletConn, params Params) ports.ModuleFactory {
	if params.ID == "" {
		params.ID = "injected-wallet"
	}
	if params.Type == "" {
		params.Type = domain.WalletTypeInjected
	}
	if params.Name == "" {
		params.Name = "Injected Wallet"
	}

	descriptor := domain.ModuleDescriptor{
		ID:   params.ID,
		Type: params.Type,
		Metadata: domain.ModuleMetadata{
			Name:        params.Name,
			Description: params.Description,
			IconURL:     params.IconURL,
			DownloadURL: params.DownloadURL,
			Deprecated:  params.Deprecated,
			Available:   conn != nil,
		},
	}

	return func(ctx context.Context) (*ports.Module, error) {
		return &ports.Module{
			Descriptor: descriptor,
			Setup: func(ctx context.Context, deps ports.WalletDeps) (ports.Wallet, error) {
				return New(ctx, descriptor, conn, deps, params.Options...)
			},
		}, nil
	}
}
