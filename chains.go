package checkout

import (
	"fmt"
	"math/big"
)

// ChainConfig contains the per-network constants the SDK needs to talk to a
// rollup deployment: the chain id used in signing domains and the native
// currency metadata used for formatting fee amounts.
type ChainConfig struct {
	// NetworkID is the network identifier (e.g., "zkevm-mainnet").
	NetworkID string

	// ChainID is the EVM chain id, used in sub-digest domain separation.
	ChainID uint64

	// NativeSymbol is the native currency ticker.
	NativeSymbol string

	// NativeDecimals is the number of decimals of the native currency.
	NativeDecimals uint8

	// Testnet marks non-production deployments.
	Testnet bool
}

// Supported rollup deployments.
var (
	// ZkEVMMainnet is the production rollup deployment.
	ZkEVMMainnet = ChainConfig{
		NetworkID:      "zkevm-mainnet",
		ChainID:        13371,
		NativeSymbol:   "IMX",
		NativeDecimals: 18,
	}

	// ZkEVMTestnet is the public test deployment.
	ZkEVMTestnet = ChainConfig{
		NetworkID:      "zkevm-testnet",
		ChainID:        13473,
		NativeSymbol:   "tIMX",
		NativeDecimals: 18,
		Testnet:        true,
	}

	// ZkEVMDevnet is the internal development deployment.
	ZkEVMDevnet = ChainConfig{
		NetworkID:      "zkevm-devnet",
		ChainID:        15003,
		NativeSymbol:   "dIMX",
		NativeDecimals: 18,
		Testnet:        true,
	}
)

var chainsByNetworkID = map[string]ChainConfig{
	ZkEVMMainnet.NetworkID: ZkEVMMainnet,
	ZkEVMTestnet.NetworkID: ZkEVMTestnet,
	ZkEVMDevnet.NetworkID:  ZkEVMDevnet,
}

// ChainByNetworkID resolves a network identifier to its chain configuration.
func ChainByNetworkID(networkID string) (ChainConfig, error) {
	if networkID == "" {
		return ChainConfig{}, fmt.Errorf("networkID: cannot be empty: %w", ErrInvalidNetwork)
	}
	chain, ok := chainsByNetworkID[networkID]
	if !ok {
		return ChainConfig{}, fmt.Errorf("networkID %q: %w", networkID, ErrInvalidNetwork)
	}
	return chain, nil
}

// ChainByID resolves an EVM chain id to its chain configuration.
func ChainByID(chainID uint64) (ChainConfig, error) {
	for _, chain := range chainsByNetworkID {
		if chain.ChainID == chainID {
			return chain, nil
		}
	}
	return ChainConfig{}, fmt.Errorf("chainID %d: %w", chainID, ErrInvalidNetwork)
}

// ChainIDBig returns the chain id as a *big.Int for signing-domain use.
func (c ChainConfig) ChainIDBig() *big.Int {
	return new(big.Int).SetUint64(c.ChainID)
}

// NativeToken returns the TokenInfo describing the chain's native currency.
func (c ChainConfig) NativeToken() TokenInfo {
	return TokenInfo{
		Name:     c.NativeSymbol,
		Symbol:   c.NativeSymbol,
		Decimals: c.NativeDecimals,
		Address:  NativeTokenAddress,
	}
}
