// Package sequence implements the signing protocol of a multi-signer
// smart-contract wallet: nonce encoding, transaction-batch digests,
// contract-specific sub-digest domain separation, and the binary
// multi-signature blob the wallet contract verifies on-chain.
package sequence

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Transaction is a single meta-transaction to be executed through the
// wallet contract. Optional fields default per Normalise.
type Transaction struct {
	// To is the call target. The zero address is legal (contract creation
	// is not supported through the wallet; a zero target is a no-op call).
	To common.Address

	// Value is the native currency amount to forward. Nil means zero.
	Value *big.Int

	// Data is the call data. Nil means empty.
	Data []byte

	// GasLimit bounds the inner call's gas. Nil means unlimited (zero).
	GasLimit *big.Int

	// DelegateCall executes the call via delegatecall when true.
	DelegateCall bool

	// RevertOnError aborts the whole batch if this call reverts when true.
	RevertOnError bool
}

// NormalisedTransaction is a Transaction with every optional field filled
// in. The field order and types mirror the wallet contract's transaction
// tuple exactly; the ABI encoding of this shape is verified on-chain.
type NormalisedTransaction struct {
	DelegateCall  bool           `abi:"delegateCall"`
	RevertOnError bool           `abi:"revertOnError"`
	GasLimit      *big.Int       `abi:"gasLimit"`
	Target        common.Address `abi:"target"`
	Value         *big.Int       `abi:"value"`
	Data          []byte         `abi:"data"`
}

// Normalise fills the optional fields of each transaction with their
// contract-level defaults.
func Normalise(txs []Transaction) []NormalisedTransaction {
	out := make([]NormalisedTransaction, 0, len(txs))
	for _, tx := range txs {
		norm := NormalisedTransaction{
			DelegateCall:  tx.DelegateCall,
			RevertOnError: tx.RevertOnError,
			GasLimit:      tx.GasLimit,
			Target:        tx.To,
			Value:         tx.Value,
			Data:          tx.Data,
		}
		if norm.GasLimit == nil {
			norm.GasLimit = new(big.Int)
		}
		if norm.Value == nil {
			norm.Value = new(big.Int)
		}
		if norm.Data == nil {
			norm.Data = []byte{}
		}
		out = append(out, norm)
	}
	return out
}

// walletABIJSON is the subset of the wallet contract interface the SDK
// calls: batch execution and per-space nonce reads.
const walletABIJSON = `[
	{
		"name": "execute",
		"type": "function",
		"inputs": [
			{"name": "_txs", "type": "tuple[]", "components": [
				{"name": "delegateCall", "type": "bool"},
				{"name": "revertOnError", "type": "bool"},
				{"name": "gasLimit", "type": "uint256"},
				{"name": "target", "type": "address"},
				{"name": "value", "type": "uint256"},
				{"name": "data", "type": "bytes"}
			]},
			{"name": "_nonce", "type": "uint256"},
			{"name": "_signature", "type": "bytes"}
		],
		"outputs": []
	},
	{
		"name": "readNonce",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "_space", "type": "uint256"}],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`

var walletABI = mustParseABI(walletABIJSON)

func mustParseABI(abiJSON string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(fmt.Sprintf("sequence: invalid wallet ABI: %v", err))
	}
	return parsed
}

// ExecuteCallData builds the call data for the wallet contract's
// execute(txs, nonce, signature) entry point.
func ExecuteCallData(txs []NormalisedTransaction, nonce *big.Int, signature []byte) ([]byte, error) {
	data, err := walletABI.Pack("execute", txs, nonce, signature)
	if err != nil {
		return nil, fmt.Errorf("sequence: pack execute call data: %w", err)
	}
	return data, nil
}
