package balance

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	checkout "github.com/lumenlabs/checkout-go"
)

// maxConcurrentReads bounds the balance-call fan-out per snapshot.
const maxConcurrentReads = 8

const erc20ABIJSON = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const erc721ABIJSON = `[
	{"name":"ownerOf","type":"function","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]}
]`

var (
	erc20ABI  = mustParseABI(erc20ABIJSON)
	erc721ABI = mustParseABI(erc721ABIJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// ChainReader is the subset of an Ethereum RPC client the provider needs.
type ChainReader interface {
	ethereum.ContractCaller
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// RPCProvider reads balances straight from the chain. It serves the native
// balance plus balanceOf for a configured list of ERC-20 tokens, and ownerOf
// lookups for ERC-721 references.
type RPCProvider struct {
	reader ChainReader
	chain  checkout.ChainConfig
	tokens []checkout.TokenInfo
}

// NewRPCProvider creates a provider over reader. tokens lists the ERC-20
// contracts the provider knows how to read.
func NewRPCProvider(reader ChainReader, chain checkout.ChainConfig, tokens []checkout.TokenInfo) *RPCProvider {
	return &RPCProvider{
		reader: reader,
		chain:  chain,
		tokens: tokens,
	}
}

// Balances implements BalancesProvider, reading only the referenced tokens.
// Referenced ERC-20 contracts outside the configured list are skipped; they
// show up as absent from the snapshot. The forceFetch flag is meaningless at
// this layer; every call reads the chain.
func (p *RPCProvider) Balances(ctx context.Context, owner string, tokens []string, _ bool) ([]checkout.ItemBalance, error) {
	readNative, selected := p.selectTokens(tokens)

	account := common.HexToAddress(owner)
	results := make([]checkout.ItemBalance, len(selected))
	var native checkout.ItemBalance

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)

	if readNative {
		g.Go(func() error {
			amount, err := p.reader.BalanceAt(gctx, account, nil)
			if err != nil {
				return fmt.Errorf("native balance for %s: %w", owner, err)
			}
			token := p.chain.NativeToken()
			native = checkout.ItemBalance{
				Type:             checkout.ItemTypeNative,
				Balance:          amount,
				FormattedBalance: checkout.FormatUnits(amount, token.Decimals),
				Token:            token,
			}
			return nil
		})
	}

	for i, token := range selected {
		g.Go(func() error {
			amount, err := p.erc20Balance(gctx, common.HexToAddress(token.Address), account)
			if err != nil {
				return fmt.Errorf("%s balance for %s: %w", token.Symbol, owner, err)
			}
			results[i] = checkout.ItemBalance{
				Type:             checkout.ItemTypeERC20,
				Balance:          amount,
				FormattedBalance: checkout.FormatUnits(amount, token.Decimals),
				Token:            token,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if readNative {
		results = append([]checkout.ItemBalance{native}, results...)
	}
	return results, nil
}

// selectTokens resolves the referenced token addresses against the
// configured ERC-20 list.
func (p *RPCProvider) selectTokens(tokens []string) (readNative bool, selected []checkout.TokenInfo) {
	for _, want := range tokens {
		if checkout.IsNativeToken(want) {
			readNative = true
			continue
		}
		for _, token := range p.tokens {
			if strings.EqualFold(token.Address, want) {
				selected = append(selected, token)
				break
			}
		}
	}
	return readNative, selected
}

func (p *RPCProvider) erc20Balance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	input, err := erc20ABI.Pack("balanceOf", account)
	if err != nil {
		return nil, err
	}

	output, err := p.reader.CallContract(ctx, ethereum.CallMsg{To: &token, Data: input}, nil)
	if err != nil {
		return nil, err
	}

	values, err := erc20ABI.Unpack("balanceOf", output)
	if err != nil {
		return nil, err
	}

	return abi.ConvertType(values[0], new(big.Int)).(*big.Int), nil
}

// OwnedItems implements ERC721Reader via per-token ownerOf calls. Tokens the
// owner does not hold, including ones whose lookup reverts because the id
// was never minted, are reported with a zero balance. Any other lookup
// failure aborts the snapshot.
func (p *RPCProvider) OwnedItems(ctx context.Context, owner string, refs []NFTRef) ([]checkout.ItemBalance, error) {
	account := common.HexToAddress(owner)
	results := make([]checkout.ItemBalance, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)

	for i, ref := range refs {
		g.Go(func() error {
			tokenID, ok := new(big.Int).SetString(ref.ID, 10)
			if !ok {
				return fmt.Errorf("invalid token id %q for %s", ref.ID, ref.ContractAddress)
			}

			balance := new(big.Int)
			holder, err := p.ownerOf(gctx, common.HexToAddress(ref.ContractAddress), tokenID)
			switch {
			case err == nil:
				if holder == account {
					balance.SetInt64(1)
				}
			case isExecutionRevert(err):
				// Unminted id, ownerOf reverts. Nobody owns it.
			default:
				return fmt.Errorf("ownerOf %s/%s: %w", ref.ContractAddress, ref.ID, err)
			}

			results[i] = checkout.ItemBalance{
				Type:             checkout.ItemTypeERC721,
				Balance:          balance,
				FormattedBalance: balance.String(),
				ContractAddress:  ref.ContractAddress,
				ID:               ref.ID,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// isExecutionRevert distinguishes a contract revert from transport and node
// failures, which must surface as fetch errors rather than zero balances.
func isExecutionRevert(err error) bool {
	return strings.Contains(err.Error(), "execution reverted")
}

func (p *RPCProvider) ownerOf(ctx context.Context, contract common.Address, tokenID *big.Int) (common.Address, error) {
	input, err := erc721ABI.Pack("ownerOf", tokenID)
	if err != nil {
		return common.Address{}, err
	}

	output, err := p.reader.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: input}, nil)
	if err != nil {
		return common.Address{}, err
	}

	values, err := erc721ABI.Unpack("ownerOf", output)
	if err != nil {
		return common.Address{}, err
	}

	return *abi.ConvertType(values[0], new(common.Address)).(*common.Address), nil
}
