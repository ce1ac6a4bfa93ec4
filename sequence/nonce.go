package sequence

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// nonceSpaceShift is the bit position of the nonce space within the packed
// 256-bit nonce: [space: upper 160 bits][sequence: lower 96 bits].
const nonceSpaceShift = 96

// ContractCaller is the read-only chain surface nonce reads need: a code
// probe plus eth_call. ethclient.Client and bind.ContractCaller satisfy it.
type ContractCaller interface {
	CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// EncodeNonce packs a nonce space and a per-space sequence number into the
// single uint256 the wallet contract expects: nonce + space * 2^96.
func EncodeNonce(space, nonce *big.Int) *big.Int {
	encoded := new(big.Int).Lsh(space, nonceSpaceShift)
	return encoded.Add(encoded, nonce)
}

// DecodeNonceSpace recovers the nonce space from a packed nonce.
func DecodeNonceSpace(encoded *big.Int) *big.Int {
	return new(big.Int).Rsh(encoded, nonceSpaceShift)
}

// GetNonce reads the wallet's next nonce for the given space and returns it
// packed via EncodeNonce. A nil space selects space zero.
//
// Counterfactual wallets have no code deployed yet; their first nonce in any
// space is zero and no contract call is made.
func GetNonce(ctx context.Context, caller ContractCaller, wallet common.Address, space *big.Int) (*big.Int, error) {
	if space == nil {
		space = new(big.Int)
	}

	code, err := caller.CodeAt(ctx, wallet, nil)
	if err != nil {
		return nil, fmt.Errorf("sequence: code probe for %s: %w", wallet, err)
	}
	if len(code) == 0 {
		return EncodeNonce(space, new(big.Int)), nil
	}

	data, err := walletABI.Pack("readNonce", space)
	if err != nil {
		return nil, fmt.Errorf("sequence: pack readNonce: %w", err)
	}

	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &wallet, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("sequence: readNonce call: %w", err)
	}

	results, err := walletABI.Unpack("readNonce", out)
	if err != nil {
		return nil, fmt.Errorf("sequence: unpack readNonce result: %w", err)
	}
	nonce, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("sequence: readNonce returned unexpected type %T", results[0])
	}

	return EncodeNonce(space, nonce), nil
}
