package sequence

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var digestArguments = mustDigestArguments()

func mustDigestArguments() abi.Arguments {
	uint256Type, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(fmt.Sprintf("sequence: uint256 type: %v", err))
	}
	txsType, err := abi.NewType("tuple[]", "", []abi.ArgumentMarshaling{
		{Name: "delegateCall", Type: "bool"},
		{Name: "revertOnError", Type: "bool"},
		{Name: "gasLimit", Type: "uint256"},
		{Name: "target", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "data", Type: "bytes"},
	})
	if err != nil {
		panic(fmt.Sprintf("sequence: transaction tuple type: %v", err))
	}
	return abi.Arguments{
		{Name: "nonce", Type: uint256Type},
		{Name: "txs", Type: txsType},
	}
}

// DigestOfTransactions computes the digest the wallet contract derives for a
// transaction batch: keccak256 of the ABI encoding of (nonce, txs[]). The
// tuple shape and field order must match the contract bit-for-bit or
// on-chain verification fails.
func DigestOfTransactions(nonce *big.Int, txs []NormalisedTransaction) (common.Hash, error) {
	packed, err := digestArguments.Pack(nonce, txs)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sequence: pack transaction digest: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}

// EncodeMessageSubDigest packs the wallet's domain separation envelope
// around a digest: the two-byte 0x1901 prefix, the chain id as a 32-byte
// big-endian word, the 20-byte wallet address, and the 32-byte digest,
// concatenated with no padding. This mirrors EIP-191/712 domain separation
// but is specific to the wallet contract, not the literal EIP-712 domain.
func EncodeMessageSubDigest(chainID *big.Int, wallet common.Address, digest common.Hash) []byte {
	packed := make([]byte, 0, 2+32+common.AddressLength+common.HashLength)
	packed = append(packed, 0x19, 0x01)
	packed = append(packed, common.BigToHash(chainID).Bytes()...)
	packed = append(packed, wallet.Bytes()...)
	packed = append(packed, digest.Bytes()...)
	return packed
}

// SubDigest is the keccak256 of EncodeMessageSubDigest: the final signable
// hash for the given digest under the given wallet and chain.
func SubDigest(chainID *big.Int, wallet common.Address, digest common.Hash) common.Hash {
	return crypto.Keccak256Hash(EncodeMessageSubDigest(chainID, wallet, digest))
}
