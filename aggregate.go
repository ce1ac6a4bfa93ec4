package checkout

import (
	"math/big"
	"strings"
)

// AggregateItems collapses a list of item requirements into the minimal
// deduplicated list suitable for balance checking. Aggregation runs in
// fixed stages, each consuming the previous stage's full output: native
// currency first, then ERC-20 keyed by token address, then ERC-721 keyed
// by (contract, id).
//
// Within each stage, items that do not merge keep their original relative
// order and precede the merged buckets, which appear in first-insertion
// order. Fee items (IsFee) are never merged and pass through unmodified.
// Unknown item types always pass through untouched.
func AggregateItems(items []ItemRequirement) []ItemRequirement {
	out := aggregateNative(items)
	out = aggregateFungible(out, ItemTypeERC20, erc20Key)
	return aggregateNFT(out, erc721Key, false)
}

// AggregateItemsBySpender is the stricter variant of AggregateItems: ERC-20
// buckets are additionally keyed by spender address, ERC-721 buckets by
// (contract, spender, id), and ERC-1155 items are merged by
// (contract, spender, id) with amounts summed. Use this at call sites where
// the same token routed through different spenders must stay distinct.
func AggregateItemsBySpender(items []ItemRequirement) []ItemRequirement {
	out := aggregateNative(items)
	out = aggregateFungible(out, ItemTypeERC20, erc20SpenderKey)
	out = aggregateNFT(out, erc721SpenderKey, false)
	return aggregateNFT(out, erc1155Key, true)
}

func erc20Key(item ItemRequirement) string {
	return strings.ToLower(item.TokenAddress)
}

func erc20SpenderKey(item ItemRequirement) string {
	return strings.ToLower(item.TokenAddress) + "-" + strings.ToLower(item.SpenderAddress)
}

func erc721Key(item ItemRequirement) string {
	return strings.ToLower(item.ContractAddress) + "-" + item.ID
}

func erc721SpenderKey(item ItemRequirement) string {
	return strings.ToLower(item.ContractAddress) + "-" + strings.ToLower(item.SpenderAddress) + "-" + item.ID
}

func erc1155Key(item ItemRequirement) string {
	return strings.ToLower(item.ContractAddress) + "-" + strings.ToLower(item.SpenderAddress) + "-" + item.ID
}

// aggregateNative merges all non-fee NATIVE items into a single bucket by
// summing amounts. Fee-flagged NATIVE items stay distinct.
func aggregateNative(items []ItemRequirement) []ItemRequirement {
	return aggregateStage(items, func(item ItemRequirement) (string, bool) {
		if item.Type != ItemTypeNative || item.IsFee {
			return "", false
		}
		return "native", true
	}, sumAmounts)
}

// aggregateFungible merges non-fee items of the given fungible type by key,
// summing amounts.
func aggregateFungible(items []ItemRequirement, typ ItemType, key func(ItemRequirement) string) []ItemRequirement {
	return aggregateStage(items, func(item ItemRequirement) (string, bool) {
		if item.Type != typ || item.IsFee {
			return "", false
		}
		return key(item), true
	}, sumAmounts)
}

// aggregateNFT buckets NFT items by key. ERC-721 items carry no amount so
// the bucket simply keeps the first occurrence; ERC-1155 buckets sum amounts.
func aggregateNFT(items []ItemRequirement, key func(ItemRequirement) string, sum bool) []ItemRequirement {
	typ := ItemTypeERC721
	if sum {
		typ = ItemTypeERC1155
	}
	return aggregateStage(items, func(item ItemRequirement) (string, bool) {
		if item.Type != typ {
			return "", false
		}
		return key(item), true
	}, func(acc *ItemRequirement, item ItemRequirement) {
		if sum {
			sumAmounts(acc, item)
		}
	})
}

// aggregateStage is the shared bucketing pass. keyFn returns (key, true) for
// items that belong in a bucket and false for pass-throughs. The output is
// all pass-throughs in their original order followed by the buckets in
// first-insertion order.
func aggregateStage(
	items []ItemRequirement,
	keyFn func(ItemRequirement) (string, bool),
	merge func(acc *ItemRequirement, item ItemRequirement),
) []ItemRequirement {
	passthrough := make([]ItemRequirement, 0, len(items))
	buckets := make(map[string]*ItemRequirement)
	order := make([]string, 0, len(items))

	for _, item := range items {
		key, ok := keyFn(item)
		if !ok {
			passthrough = append(passthrough, item)
			continue
		}

		acc, exists := buckets[key]
		if !exists {
			// Copy the item so later merges never mutate the caller's slice.
			first := item
			if item.Amount != nil {
				first.Amount = new(big.Int).Set(item.Amount)
			}
			buckets[key] = &first
			order = append(order, key)
			continue
		}

		merge(acc, item)
	}

	out := passthrough
	for _, key := range order {
		out = append(out, *buckets[key])
	}
	return out
}

func sumAmounts(acc *ItemRequirement, item ItemRequirement) {
	if item.Amount == nil {
		return
	}
	if acc.Amount == nil {
		acc.Amount = new(big.Int)
	}
	acc.Amount = new(big.Int).Add(acc.Amount, item.Amount)
}
