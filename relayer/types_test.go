package relayer

import (
	"errors"
	"math/big"
	"testing"

	checkout "github.com/lumenlabs/checkout-go"
)

func TestNativeFeeOption(t *testing.T) {
	options := []FeeOption{
		{TokenSymbol: "USDC", TokenPrice: "500", TokenAddress: "0x1111111111111111111111111111111111111111"},
		{TokenSymbol: "timx", TokenPrice: "1000"},
	}

	option, err := NativeFeeOption(options, checkout.ZkEVMTestnet)
	if err != nil {
		t.Fatalf("NativeFeeOption: %v", err)
	}
	if option.TokenPrice != "1000" {
		t.Errorf("picked option %+v, want the native one", option)
	}
}

func TestNativeFeeOption_NoneOffered(t *testing.T) {
	options := []FeeOption{
		{TokenSymbol: "USDC", TokenPrice: "500"},
	}

	_, err := NativeFeeOption(options, checkout.ZkEVMMainnet)
	if !errors.Is(err, checkout.ErrRelayerUnavailable) {
		t.Errorf("error = %v, want %v", err, checkout.ErrRelayerUnavailable)
	}
}

func TestFeeItemRequirement(t *testing.T) {
	tests := []struct {
		name   string
		option FeeOption
		want   checkout.ItemRequirement
	}{
		{
			name:   "native fee",
			option: FeeOption{TokenSymbol: "IMX", TokenPrice: "5000"},
			want: checkout.ItemRequirement{
				Type:   checkout.ItemTypeNative,
				Amount: big.NewInt(5000),
				IsFee:  true,
			},
		},
		{
			name: "erc20 fee",
			option: FeeOption{
				TokenSymbol:      "USDC",
				TokenPrice:       "250",
				TokenAddress:     "0x2222222222222222222222222222222222222222",
				RecipientAddress: "0xfee0000000000000000000000000000000000000",
			},
			want: checkout.ItemRequirement{
				Type:           checkout.ItemTypeERC20,
				Amount:         big.NewInt(250),
				TokenAddress:   "0x2222222222222222222222222222222222222222",
				SpenderAddress: "0xfee0000000000000000000000000000000000000",
				IsFee:          true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := FeeItemRequirement(tt.option)
			if err != nil {
				t.Fatalf("FeeItemRequirement: %v", err)
			}

			if item.Type != tt.want.Type {
				t.Errorf("type = %s, want %s", item.Type, tt.want.Type)
			}
			if item.Amount.Cmp(tt.want.Amount) != 0 {
				t.Errorf("amount = %s, want %s", item.Amount, tt.want.Amount)
			}
			if item.TokenAddress != tt.want.TokenAddress {
				t.Errorf("token address = %s, want %s", item.TokenAddress, tt.want.TokenAddress)
			}
			if item.SpenderAddress != tt.want.SpenderAddress {
				t.Errorf("spender = %s, want %s", item.SpenderAddress, tt.want.SpenderAddress)
			}
			if !item.IsFee {
				t.Error("fee item not flagged as fee")
			}
		})
	}
}

func TestFeeItemRequirement_BadPrice(t *testing.T) {
	_, err := FeeItemRequirement(FeeOption{TokenSymbol: "IMX", TokenPrice: "1.5"})
	if err == nil {
		t.Error("expected error for non-integer fee price")
	}
}
