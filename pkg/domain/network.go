package domain

import "fmt"

// Network selects the chain the selector operates against: an identifier used
// for mismatch detection plus the RPC endpoint transactions are read from and
// broadcast to.
type Network struct {
	NetworkID string `yaml:"networkId"`
	NodeURL   string `yaml:"nodeUrl"`
}

// Well-known network identifiers.
const (
	Mainnet = "mainnet"
	Testnet = "testnet"
)

// BlockHeader is the slice of a chain block the signing pipeline needs: a
// recent hash to anchor transactions and ownership proofs to.
type BlockHeader struct {
	Hash   string `mapstructure:"hash" json:"hash"`
	Height uint64 `mapstructure:"height" json:"height"`
}

// Finality levels accepted by block queries.
const (
	FinalityFinal      = "final"
	FinalityOptimistic = "optimistic"
)

// ResolveNetwork maps a well-known network id to its preset configuration.
// Custom networks should be passed as a fully populated Network instead.
func ResolveNetwork(networkID string) (Network, error) {
	switch networkID {
	case Mainnet:
		return Network{NetworkID: Mainnet, NodeURL: "https://rpc.mainnet.near.org"}, nil
	case Testnet:
		return Network{NetworkID: Testnet, NodeURL: "https://rpc.testnet.near.org"}, nil
	default:
		return Network{}, fmt.Errorf("unknown network %q", networkID)
	}
}
