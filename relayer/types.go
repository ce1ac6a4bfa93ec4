package relayer

import (
	"fmt"
	"math/big"
	"strings"

	checkout "github.com/lumenlabs/checkout-go"
)

// TransactionStatus is the relayer-side lifecycle state of a submitted
// transaction.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "PENDING"
	StatusSubmitted  TransactionStatus = "SUBMITTED"
	StatusSuccessful TransactionStatus = "SUCCESSFUL"
	StatusReverted   TransactionStatus = "REVERTED"
	StatusFailed     TransactionStatus = "FAILED"
	StatusCancelled  TransactionStatus = "CANCELLED"
)

// Transaction is the relayer's view of a submitted transaction.
type Transaction struct {
	Status    TransactionStatus `json:"status"`
	ChainID   string            `json:"chainId"`
	RelayerID string            `json:"relayerId"`
	Hash      string            `json:"hash"`
	StatusMsg string            `json:"statusMessage,omitempty"`
}

// FeeOption describes one way a wallet may pay the relay fee.
type FeeOption struct {
	TokenPrice       string `json:"tokenPrice"`
	TokenSymbol      string `json:"tokenSymbol"`
	TokenDecimals    int    `json:"tokenDecimals"`
	TokenAddress     string `json:"tokenAddress"`
	RecipientAddress string `json:"recipientAddress"`
}

// Amount parses the fee price into a big integer.
func (o FeeOption) Amount() (*big.Int, error) {
	amount, ok := new(big.Int).SetString(o.TokenPrice, 10)
	if !ok {
		return nil, fmt.Errorf("invalid fee token price %q", o.TokenPrice)
	}
	return amount, nil
}

// NativeFeeOption picks the option paying the relay fee in the chain's
// native currency.
func NativeFeeOption(options []FeeOption, chain checkout.ChainConfig) (FeeOption, error) {
	for _, option := range options {
		if strings.EqualFold(option.TokenSymbol, chain.NativeSymbol) {
			return option, nil
		}
	}
	return FeeOption{}, fmt.Errorf("%w: no %s fee option offered", checkout.ErrRelayerUnavailable, chain.NativeSymbol)
}

// FeeItemRequirement converts a fee option into an item requirement so the
// balance checker can treat relay fees like any other checkout line.
func FeeItemRequirement(option FeeOption) (checkout.ItemRequirement, error) {
	amount, err := option.Amount()
	if err != nil {
		return checkout.ItemRequirement{}, err
	}

	item := checkout.ItemRequirement{
		Amount: amount,
		IsFee:  true,
	}
	if option.TokenAddress == "" || strings.EqualFold(option.TokenAddress, checkout.NativeTokenAddress) {
		item.Type = checkout.ItemTypeNative
	} else {
		item.Type = checkout.ItemTypeERC20
		item.TokenAddress = option.TokenAddress
		item.SpenderAddress = option.RecipientAddress
	}

	return item, nil
}
