// Package balance checks aggregated item requirements against an owner's
// on-chain balances and produces per-item sufficiency verdicts.
package balance

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	checkout "github.com/lumenlabs/checkout-go"
)

// NFTRef identifies one ERC-721 token.
type NFTRef struct {
	ContractAddress string
	ID              string
}

// BalancesProvider fetches the owner's fungible balance snapshot for the
// referenced tokens only; checkout.NativeTokenAddress marks the native
// entry. When forceFetch is set, any caching layer must bypass its cache
// and read fresh balances.
type BalancesProvider interface {
	Balances(ctx context.Context, owner string, tokens []string, forceFetch bool) ([]checkout.ItemBalance, error)
}

// ERC721Reader reports which of the referenced tokens the owner holds. The
// returned snapshot carries one entry per owned token with Balance 1.
type ERC721Reader interface {
	OwnedItems(ctx context.Context, owner string, refs []NFTRef) ([]checkout.ItemBalance, error)
}

// Checker runs the balance-requirement pipeline: aggregate, fetch, verdict.
type Checker struct {
	balances BalancesProvider
	nfts     ERC721Reader
	chain    checkout.ChainConfig
	log      *zap.Logger
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithLogger attaches a structured logger.
func WithLogger(log *zap.Logger) CheckerOption {
	return func(c *Checker) {
		c.log = log
	}
}

// NewChecker creates a Checker over the given balance collaborators.
func NewChecker(balances BalancesProvider, nfts ERC721Reader, chain checkout.ChainConfig, opts ...CheckerOption) *Checker {
	c := &Checker{
		balances: balances,
		nfts:     nfts,
		chain:    chain,
		log:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CheckOptions tune a single balance check.
type CheckOptions struct {
	// ForceFetch bypasses any balance caching layer.
	ForceFetch bool
}

// Check aggregates the item requirements, fetches the relevant balances
// concurrently and returns one sufficiency verdict per aggregated item.
// ERC-1155 and unrecognised item types pass through aggregation but are not
// balance-checked.
func (c *Checker) Check(ctx context.Context, owner string, items []checkout.ItemRequirement, opts CheckOptions) (checkout.BalanceCheckResult, error) {
	aggregated := checkout.AggregateItems(items)

	// Aggregation merged per token, so the referenced list is duplicate-free.
	var tokens []string
	var nftRefs int
	for _, item := range aggregated {
		switch item.Type {
		case checkout.ItemTypeNative:
			tokens = append(tokens, checkout.NativeTokenAddress)
		case checkout.ItemTypeERC20:
			tokens = append(tokens, item.TokenAddress)
		case checkout.ItemTypeERC721:
			nftRefs++
		}
	}
	if len(tokens) == 0 && nftRefs == 0 {
		return checkout.BalanceCheckResult{}, checkout.NewCheckoutError(
			checkout.ErrCodeNoItemRequirements,
			"no checkable item requirements",
			checkout.ErrNoItemRequirements,
		)
	}

	var (
		tokenBalances []checkout.ItemBalance
		nftBalances   []checkout.ItemBalance
	)

	g, gctx := errgroup.WithContext(ctx)

	if len(tokens) > 0 {
		g.Go(func() error {
			balances, err := c.balances.Balances(gctx, owner, tokens, opts.ForceFetch)
			if err != nil {
				c.log.Warn("token balance fetch failed", zap.String("owner", owner), zap.Error(err))
				return checkout.NewCheckoutError(
					checkout.ErrCodeGetBalanceFailed,
					"failed to fetch token balances",
					checkout.ErrGetBalanceFailed,
				).WithDetails("cause", err.Error())
			}
			tokenBalances = balances
			return nil
		})
	}

	if nftRefs > 0 {
		refs := make([]NFTRef, 0, nftRefs)
		for _, item := range aggregated {
			if item.Type == checkout.ItemTypeERC721 {
				refs = append(refs, NFTRef{ContractAddress: item.ContractAddress, ID: item.ID})
			}
		}
		g.Go(func() error {
			balances, err := c.nfts.OwnedItems(gctx, owner, refs)
			if err != nil {
				c.log.Warn("nft ownership fetch failed", zap.String("owner", owner), zap.Error(err))
				return checkout.NewCheckoutError(
					checkout.ErrCodeGetERC721BalanceFailed,
					"failed to fetch ERC721 balances",
					checkout.ErrGetERC721BalanceFailed,
				).WithDetails("cause", err.Error())
			}
			nftBalances = balances
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return checkout.BalanceCheckResult{}, err
	}

	result := checkout.BalanceCheckResult{Sufficient: true}
	for _, item := range aggregated {
		var req checkout.BalanceRequirement
		switch item.Type {
		case checkout.ItemTypeNative, checkout.ItemTypeERC20:
			req = checkout.TokenRequirement(item, tokenBalances, c.tokenInfo(item, tokenBalances))
		case checkout.ItemTypeERC721:
			req = checkout.ERC721Requirement(item, nftBalances)
		default:
			continue
		}
		if !req.Sufficient {
			result.Sufficient = false
		}
		result.BalanceRequirements = append(result.BalanceRequirements, req)
	}

	c.log.Debug("balance check complete",
		zap.String("owner", owner),
		zap.Bool("sufficient", result.Sufficient),
		zap.Int("requirements", len(result.BalanceRequirements)),
	)

	return result, nil
}

// tokenInfo resolves display metadata for a fungible item, preferring the
// snapshot's own metadata when the token was found.
func (c *Checker) tokenInfo(item checkout.ItemRequirement, balances []checkout.ItemBalance) checkout.TokenInfo {
	if item.Type == checkout.ItemTypeNative {
		for _, bal := range balances {
			if checkout.IsNativeToken(bal.Token.Address) {
				return bal.Token
			}
		}
		return c.chain.NativeToken()
	}

	for _, bal := range balances {
		if strings.EqualFold(bal.Token.Address, item.TokenAddress) {
			return bal.Token
		}
	}
	return checkout.TokenInfo{Address: item.TokenAddress, Decimals: 18}
}
