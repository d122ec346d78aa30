package bridge

import (
	"context"

	"github.com/nearwallets/selector/pkg/domain"
	"github.com/nearwallets/selector/pkg/ports"
	"github.com/nearwallets/selector/pkg/wallet/injected"
)

// SetupModule returns a factory for a wallet daemon at url. The factory probes
// the daemon during selector initialization and opts out when it is
// unreachable, so dead daemons never appear in the module list.
func SetupModule(url string, params injected.Params) ports.ModuleFactory {
	if params.ID == "" {
		params.ID = "bridge-wallet"
	}
	if params.Name == "" {
		params.Name = "Bridge Wallet"
	}
	params.Type = domain.WalletTypeBridge

	return func(ctx context.Context) (*ports.Module, error) {
		conn := NewConn(url)
		if _, err := conn.Request(ctx, ports.ConnAccounts, nil); err != nil {
			return nil, nil
		}
		return injected.SetupModule(conn, params)(ctx)
	}
}
