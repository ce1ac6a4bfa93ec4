// Package evm provides the session EOA signer used to sign wallet
// sub-digests, personal messages and EIP-712 typed data.
package evm

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	checkout "github.com/lumenlabs/checkout-go"
)

// Signer holds the session key that co-signs smart wallet transactions.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chain      checkout.ChainConfig
}

// SignerOption configures a Signer.
type SignerOption func(*Signer) error

// NewSigner creates a new session signer with the given options. A key
// source (private key, keystore or mnemonic) and a network are required.
func NewSigner(opts ...SignerOption) (*Signer, error) {
	s := &Signer{}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.privateKey == nil {
		return nil, checkout.ErrInvalidKey
	}
	if s.chain.NetworkID == "" {
		return nil, checkout.ErrInvalidNetwork
	}

	s.address = crypto.PubkeyToAddress(s.privateKey.PublicKey)

	return s, nil
}

// WithPrivateKey sets the private key from a hex string.
func WithPrivateKey(hexKey string) SignerOption {
	return func(s *Signer) error {
		hexKey = strings.TrimPrefix(hexKey, "0x")

		privateKey, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return checkout.ErrInvalidKey
		}

		s.privateKey = privateKey
		return nil
	}
}

// WithNetwork selects the rollup deployment the signer operates on.
func WithNetwork(networkID string) SignerOption {
	return func(s *Signer) error {
		chain, err := checkout.ChainByNetworkID(networkID)
		if err != nil {
			return err
		}
		s.chain = chain
		return nil
	}
}

// Address returns the signer's Ethereum address.
func (s *Signer) Address() common.Address {
	return s.address
}

// Chain returns the chain configuration the signer was built for.
func (s *Signer) Chain() checkout.ChainConfig {
	return s.chain
}

// ChainID returns the EVM chain id used in signing domains.
func (s *Signer) ChainID() *big.Int {
	return s.chain.ChainIDBig()
}

// SignMessage signs an EIP-191 personal message. The returned signature is
// 65 bytes with the recovery id adjusted to 27/28.
func (s *Signer) SignMessage(message []byte) ([]byte, error) {
	signature, err := crypto.Sign(accounts.TextHash(message), s.privateKey)
	if err != nil {
		return nil, checkout.NewCheckoutError(checkout.ErrCodeSigningFailed, "failed to sign message", err)
	}

	signature[64] += 27

	return signature, nil
}

// SignHash signs a raw 32-byte digest without any message prefix. The
// recovery id is adjusted to 27/28.
func (s *Signer) SignHash(digest common.Hash) ([]byte, error) {
	signature, err := crypto.Sign(digest.Bytes(), s.privateKey)
	if err != nil {
		return nil, checkout.NewCheckoutError(checkout.ErrCodeSigningFailed, "failed to sign digest", err)
	}

	signature[64] += 27

	return signature, nil
}
