package checkout

import (
	"errors"
	"testing"
)

func TestChainByNetworkID(t *testing.T) {
	tests := []struct {
		name        string
		networkID   string
		wantChainID uint64
		wantErr     bool
	}{
		{"mainnet", "zkevm-mainnet", 13371, false},
		{"testnet", "zkevm-testnet", 13473, false},
		{"devnet", "zkevm-devnet", 15003, false},
		{"empty", "", 0, true},
		{"unknown", "base", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, err := ChainByNetworkID(tt.networkID)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidNetwork) {
					t.Errorf("error = %v, want ErrInvalidNetwork", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if chain.ChainID != tt.wantChainID {
				t.Errorf("chainID = %d, want %d", chain.ChainID, tt.wantChainID)
			}
		})
	}
}

func TestChainByID(t *testing.T) {
	chain, err := ChainByID(13371)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chain.NetworkID != "zkevm-mainnet" {
		t.Errorf("networkID = %q", chain.NetworkID)
	}

	if _, err := ChainByID(1); !errors.Is(err, ErrInvalidNetwork) {
		t.Errorf("unknown chain id error = %v, want ErrInvalidNetwork", err)
	}
}

func TestChainConfig_NativeToken(t *testing.T) {
	token := ZkEVMMainnet.NativeToken()
	if token.Symbol != "IMX" || token.Decimals != 18 {
		t.Errorf("native token = %+v", token)
	}
	if !IsNativeToken(token.Address) {
		t.Errorf("native token address %q not recognized as native", token.Address)
	}
}

func TestChainConfig_ChainIDBig(t *testing.T) {
	if ZkEVMTestnet.ChainIDBig().Uint64() != 13473 {
		t.Errorf("ChainIDBig = %s", ZkEVMTestnet.ChainIDBig())
	}
}
