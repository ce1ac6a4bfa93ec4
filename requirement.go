package checkout

import (
	"math/big"
	"strings"
)

// IsNativeToken reports whether a balance-snapshot token address denotes the
// native currency. Empty addresses and the case-insensitive "native"
// sentinel both qualify.
func IsNativeToken(address string) bool {
	return address == "" || strings.EqualFold(address, NativeTokenAddress)
}

// TokenRequirement computes the sufficiency verdict for a fungible
// (NATIVE or ERC20) item requirement against a balance snapshot.
//
// A required amount of zero or less is always sufficient regardless of
// balance presence. The delta is a plain subtraction (required minus
// current) and may be zero or negative when the owner holds enough.
func TokenRequirement(item ItemRequirement, balances []ItemBalance, token TokenInfo) BalanceRequirement {
	required := new(big.Int)
	if item.Amount != nil {
		required.Set(item.Amount)
	}

	current, found := findTokenBalance(item, balances)
	if !found {
		current = ItemBalance{
			Type:             item.Type,
			Balance:          new(big.Int),
			FormattedBalance: "0",
			Token:            token,
		}
	}

	sufficient := required.Sign() <= 0 || (found && current.Balance.Cmp(required) >= 0)
	delta := new(big.Int).Sub(required, current.Balance)

	return BalanceRequirement{
		Type:       item.Type,
		Sufficient: sufficient,
		Delta: BalanceDelta{
			Balance:          delta,
			FormattedBalance: FormatUnits(delta, token.Decimals),
		},
		Current: current,
		Required: ItemBalance{
			Type:             item.Type,
			Balance:          required,
			FormattedBalance: FormatUnits(required, token.Decimals),
			Token:            token,
		},
		IsFee: item.IsFee,
	}
}

// findTokenBalance locates the first snapshot entry matching the item:
// the native sentinel for NATIVE items, a case-insensitive token address
// match for ERC20 items.
func findTokenBalance(item ItemRequirement, balances []ItemBalance) (ItemBalance, bool) {
	for _, bal := range balances {
		switch item.Type {
		case ItemTypeNative:
			if IsNativeToken(bal.Token.Address) {
				return bal, true
			}
		case ItemTypeERC20:
			if strings.EqualFold(bal.Token.Address, item.TokenAddress) {
				return bal, true
			}
		}
	}
	return ItemBalance{}, false
}

// ERC721Requirement computes the sufficiency verdict for an ERC-721 item.
// Exactly one token is required; the item matches a balance entry on
// case-insensitive contract address and exact id equality.
func ERC721Requirement(item ItemRequirement, balances []ItemBalance) BalanceRequirement {
	required := big.NewInt(1)

	current := ItemBalance{
		Type:             ItemTypeERC721,
		Balance:          new(big.Int),
		FormattedBalance: "0",
		ContractAddress:  item.ContractAddress,
		ID:               item.ID,
	}
	found := false
	for _, bal := range balances {
		if strings.EqualFold(bal.ContractAddress, item.ContractAddress) && bal.ID == item.ID {
			current = bal
			found = true
			break
		}
	}

	sufficient := found && current.Balance.Cmp(required) >= 0
	delta := new(big.Int).Sub(required, current.Balance)

	return BalanceRequirement{
		Type:       ItemTypeERC721,
		Sufficient: sufficient,
		Delta: BalanceDelta{
			Balance:          delta,
			FormattedBalance: delta.String(),
		},
		Current: current,
		Required: ItemBalance{
			Type:             ItemTypeERC721,
			Balance:          required,
			FormattedBalance: "1",
			ContractAddress:  item.ContractAddress,
			ID:               item.ID,
		},
		IsFee: false,
	}
}

// FormatUnits renders an atomic-unit value as a fixed-point decimal string
// with the given number of decimals. The conversion is exact integer
// arithmetic, never floating point, so uint256-scale values round-trip
// without precision loss. Trailing fractional zeros are trimmed.
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}

	sign := ""
	abs := new(big.Int).Abs(value)
	if value.Sign() < 0 {
		sign = "-"
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	quo, rem := new(big.Int).QuoRem(abs, divisor, new(big.Int))

	if rem.Sign() == 0 {
		return sign + quo.String()
	}

	frac := rem.String()
	for len(frac) < int(decimals) {
		frac = "0" + frac
	}
	frac = strings.TrimRight(frac, "0")

	return sign + quo.String() + "." + frac
}
