package registry

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"

	clierr "solflow/internal/errors"
)

type AddressKind string

const (
	AddressKindSolana AddressKind = "solana"
	AddressKindEVM    AddressKind = "evm"
)

// Network describes a settlement network reachable by the bridge boundary.
type Network struct {
	Slug       string
	Name       string
	Kind       AddressKind
	EVMChainID int64
}

var networks = map[string]Network{
	"solana":   {Slug: "solana", Name: "Solana", Kind: AddressKindSolana},
	"ethereum": {Slug: "ethereum", Name: "Ethereum", Kind: AddressKindEVM, EVMChainID: 1},
	"polygon":  {Slug: "polygon", Name: "Polygon", Kind: AddressKindEVM, EVMChainID: 137},
	"arbitrum": {Slug: "arbitrum", Name: "Arbitrum One", Kind: AddressKindEVM, EVMChainID: 42161},
	"base":     {Slug: "base", Name: "Base", Kind: AddressKindEVM, EVMChainID: 8453},
	"optimism": {Slug: "optimism", Name: "OP Mainnet", Kind: AddressKindEVM, EVMChainID: 10},
}

var networkAliases = map[string]string{
	"sol":   "solana",
	"eth":   "ethereum",
	"matic": "polygon",
	"arb":   "arbitrum",
	"op":    "optimism",
}

// LookupNetwork resolves a user-supplied chain name to a known network.
func LookupNetwork(slug string) (Network, bool) {
	key := strings.ToLower(strings.TrimSpace(slug))
	if canonical, ok := networkAliases[key]; ok {
		key = canonical
	}
	network, ok := networks[key]
	return network, ok
}

// ValidateAddress checks that addr is well-formed for the network's
// address scheme. EVM checks use go-ethereum, Solana checks use base58
// public key parsing.
func ValidateAddress(network Network, addr string) error {
	addr = strings.TrimSpace(addr)
	switch network.Kind {
	case AddressKindEVM:
		if !common.IsHexAddress(addr) {
			return clierr.New(clierr.CodeValidation, fmt.Sprintf("%q is not a valid %s address", addr, network.Name))
		}
	case AddressKindSolana:
		if _, err := solana.PublicKeyFromBase58(addr); err != nil {
			return clierr.Wrap(clierr.CodeValidation, fmt.Sprintf("%q is not a valid Solana address", addr), err)
		}
	default:
		return clierr.New(clierr.CodeUnsupported, fmt.Sprintf("unsupported network kind %q", network.Kind))
	}
	return nil
}
