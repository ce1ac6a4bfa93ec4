// Package checkout provides the core building blocks of a smart-checkout
// flow: purchase item requirements, deterministic aggregation of those
// requirements, and per-item balance sufficiency calculations against a
// snapshot of on-chain balances. Collaborator-facing machinery (balance
// fetching, wallet signing, relayer transport) lives in subpackages.
package checkout

import "math/big"

// ItemType identifies the variant of an ItemRequirement.
type ItemType string

const (
	// ItemTypeNative is the chain's native currency (e.g., ETH, IMX).
	ItemTypeNative ItemType = "NATIVE"

	// ItemTypeERC20 is a fungible ERC-20 token.
	ItemTypeERC20 ItemType = "ERC20"

	// ItemTypeERC721 is a non-fungible ERC-721 token.
	ItemTypeERC721 ItemType = "ERC721"

	// ItemTypeERC1155 is a semi-fungible ERC-1155 token.
	ItemTypeERC1155 ItemType = "ERC1155"
)

// NativeTokenAddress is the sentinel token address denoting the native
// currency in balance snapshots. An empty address means native as well.
const NativeTokenAddress = "native"

// ItemRequirement describes a single cost of a purchase: an amount of native
// currency, an ERC-20 amount, or ownership of an ERC-721/ERC-1155 token.
//
// The Type field is an open discriminant: values outside the known ItemType
// constants are legal and flow through aggregation untouched, so new item
// kinds added by a newer server never break an older client.
type ItemRequirement struct {
	// Type is the item variant tag.
	Type ItemType `json:"type"`

	// Amount is the required amount in atomic units (wei-style).
	// Unused for ERC721 items.
	Amount *big.Int `json:"amount,omitempty"`

	// TokenAddress is the ERC-20 contract address. Empty for other types.
	TokenAddress string `json:"tokenAddress,omitempty"`

	// ContractAddress is the ERC-721/ERC-1155 collection address.
	ContractAddress string `json:"contractAddress,omitempty"`

	// SpenderAddress is the address approved to spend or transfer the item.
	SpenderAddress string `json:"spenderAddress,omitempty"`

	// ID is the token identifier for ERC-721/ERC-1155 items, as a decimal string.
	ID string `json:"id,omitempty"`

	// IsFee marks gas/service-fee items. Fee items are never merged during
	// aggregation; each one stays a distinct line.
	IsFee bool `json:"isFee,omitempty"`
}

// TokenInfo describes a token used for formatting and display.
type TokenInfo struct {
	// Name is the human-readable token name.
	Name string `json:"name"`

	// Symbol is the token ticker symbol.
	Symbol string `json:"symbol"`

	// Decimals is the number of decimal places of the token.
	Decimals uint8 `json:"decimals"`

	// Address is the token contract address, or the native sentinel.
	Address string `json:"address,omitempty"`
}

// ItemBalance is a point-in-time balance snapshot for one token or NFT.
type ItemBalance struct {
	// Type is the item variant this balance corresponds to.
	Type ItemType `json:"type"`

	// Balance is the owned amount in atomic units. For NFTs this is an
	// ownership count (0 or 1 for ERC-721).
	Balance *big.Int `json:"balance"`

	// FormattedBalance is Balance rendered with the token's decimals.
	FormattedBalance string `json:"formattedBalance"`

	// Token carries display metadata for fungible balances.
	Token TokenInfo `json:"token,omitempty"`

	// ContractAddress is set for NFT balances.
	ContractAddress string `json:"contractAddress,omitempty"`

	// ID is set for NFT balances.
	ID string `json:"id,omitempty"`
}

// BalanceDelta is the shortfall between a required and a current balance.
// Balance may be zero or negative when the holder already has enough.
type BalanceDelta struct {
	// Balance is required minus current, in atomic units.
	Balance *big.Int `json:"balance"`

	// FormattedBalance is Balance rendered with the token's decimals.
	FormattedBalance string `json:"formattedBalance"`
}

// BalanceRequirement is the sufficiency verdict for one aggregated item.
type BalanceRequirement struct {
	// Type is the item variant tag.
	Type ItemType `json:"type"`

	// Sufficient reports whether the current balance covers the requirement.
	Sufficient bool `json:"sufficient"`

	// Delta is the shortfall (required minus current).
	Delta BalanceDelta `json:"delta"`

	// Current is the balance the owner holds right now.
	Current ItemBalance `json:"current"`

	// Required is the balance the purchase needs.
	Required ItemBalance `json:"required"`

	// IsFee is copied from the source item requirement.
	IsFee bool `json:"isFee"`
}

// BalanceCheckResult is the outcome of checking a full set of item
// requirements against an owner's balances.
type BalanceCheckResult struct {
	// Sufficient is true iff no requirement is insufficient.
	Sufficient bool `json:"sufficient"`

	// BalanceRequirements holds one verdict per aggregated item.
	BalanceRequirements []BalanceRequirement `json:"balanceRequirements"`
}
