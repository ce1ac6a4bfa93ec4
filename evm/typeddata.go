package evm

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	checkout "github.com/lumenlabs/checkout-go"
)

// ParseTypedData decodes EIP-712 typed data from its JSON form and checks
// the required top-level fields are present.
func ParseTypedData(raw []byte) (*apitypes.TypedData, error) {
	var typedData apitypes.TypedData
	if err := json.Unmarshal(raw, &typedData); err != nil {
		return nil, fmt.Errorf("%w: %v", checkout.ErrInvalidTypedData, err)
	}

	if typedData.PrimaryType == "" || len(typedData.Types) == 0 || typedData.Message == nil {
		return nil, fmt.Errorf("%w: missing types, primaryType or message", checkout.ErrInvalidTypedData)
	}

	return &typedData, nil
}

// ValidateTypedDataChain rejects typed data whose domain chain id does not
// match the chain the signer operates on.
func ValidateTypedDataChain(typedData *apitypes.TypedData, chainID *big.Int) error {
	if typedData.Domain.ChainId == nil {
		return fmt.Errorf("%w: domain chainId is required", checkout.ErrInvalidTypedData)
	}

	domainChainID := (*big.Int)(typedData.Domain.ChainId)
	if domainChainID.Cmp(chainID) != 0 {
		return fmt.Errorf("%w: domain chainId %s does not match network chain id %s",
			checkout.ErrInvalidTypedData, domainChainID, chainID)
	}

	return nil
}

// HashTypedData computes the EIP-712 digest of the typed data:
// keccak256("\x19\x01" || domainSeparator || hashStruct(message)).
func HashTypedData(typedData *apitypes.TypedData) (common.Hash, error) {
	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: failed to hash domain: %v", checkout.ErrInvalidTypedData, err)
	}

	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: failed to hash message: %v", checkout.ErrInvalidTypedData, err)
	}

	rawData := append([]byte{0x19, 0x01}, append(domainSeparator, messageHash...)...)

	return crypto.Keccak256Hash(rawData), nil
}
