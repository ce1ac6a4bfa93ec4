package sequence

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	checkout "github.com/lumenlabs/checkout-go"
)

// signatureTypeEthSign is the trailing flag appended to a raw 65-byte EOA
// signature, marking it as produced by standard Ethereum message signing
// (EIP-191 prefixed) rather than a bare digest signature.
const signatureTypeEthSign = 0x02

// Signer signs EIP-191 personal messages with a single EOA key. The
// returned signature is the raw 65-byte r||s||v form with v in {27, 28}.
type Signer interface {
	Address() common.Address
	SignMessage(message []byte) ([]byte, error)
}

// SignSubDigest signs the sub-digest bytes as a personal message and
// appends the eth_sign type flag, producing the 66-byte encoded signature
// the wallet contract expects inside an EOA signature part.
func SignSubDigest(signer Signer, subDigest common.Hash) ([]byte, error) {
	sig, err := signer.SignMessage(subDigest.Bytes())
	if err != nil {
		return nil, fmt.Errorf("sequence: sign sub-digest: %w", err)
	}
	if len(sig) != 65 {
		return nil, fmt.Errorf("sequence: signer returned %d-byte signature, want 65: %w",
			len(sig), checkout.ErrSigningFailed)
	}
	encoded := make([]byte, 0, eoaSignatureLength)
	encoded = append(encoded, sig...)
	encoded = append(encoded, signatureTypeEthSign)
	return encoded, nil
}

// SignDigest wraps a digest in the wallet's sub-digest envelope for the
// given chain and signs it, returning the signer's 66-byte encoded
// signature part payload.
func SignDigest(signer Signer, chainID *big.Int, wallet common.Address, digest common.Hash) ([]byte, error) {
	return SignSubDigest(signer, SubDigest(chainID, wallet, digest))
}

// SignMetaTransactions signs a transaction batch with the local signer
// alone and returns the complete execute(txs, nonce, signature) call data.
// The single signer is wrapped at threshold 1; the relayer receives this
// call data for submission rather than co-signing it.
func SignMetaTransactions(signer Signer, chainID *big.Int, wallet common.Address, nonce *big.Int, txs []Transaction) ([]byte, error) {
	norm := Normalise(txs)

	digest, err := DigestOfTransactions(nonce, norm)
	if err != nil {
		return nil, err
	}

	encodedSig, err := SignDigest(signer, chainID, wallet, digest)
	if err != nil {
		return nil, err
	}

	blob, err := Signature{
		Version:   1,
		Threshold: 1,
		Signers: []SignaturePart{{
			Type:      PartTypeEOASignature,
			Weight:    1,
			Address:   signer.Address(),
			Signature: encodedSig,
		}},
	}.Encode()
	if err != nil {
		return nil, err
	}

	return ExecuteCallData(norm, nonce, blob)
}

// CombineSignatures merges the relayer's co-signature share with the local
// signer's part into one on-chain-verifiable blob.
//
// The relayer transmits signer parts only, without a threshold; a zero
// threshold is prepended before decoding and the decoded value is ignored.
// The combined signer list is sorted ascending by address before encoding
// and the final threshold is 2: both the relayer and the local signer must
// weigh in.
func CombineSignatures(relayerSignature []byte, local SignaturePart) ([]byte, error) {
	prefixed := make([]byte, 0, 2+len(relayerSignature))
	prefixed = append(prefixed, 0x00, 0x00)
	prefixed = append(prefixed, relayerSignature...)

	relayer, err := DecodeSignature(prefixed)
	if err != nil {
		return nil, fmt.Errorf("sequence: decode relayer signature: %w", err)
	}

	signers := append(relayer.Signers, local)
	SortSignaturePartsByAddress(signers)

	return Signature{
		Version:   1,
		Threshold: 2,
		Signers:   signers,
	}.Encode()
}

// SignAndCombine signs a digest locally and merges the result with the
// relayer's signature share. The local part carries the signer's address so
// the combined list can be address-sorted.
func SignAndCombine(signer Signer, chainID *big.Int, wallet common.Address, digest common.Hash, relayerSignature []byte) ([]byte, error) {
	encodedSig, err := SignDigest(signer, chainID, wallet, digest)
	if err != nil {
		return nil, err
	}

	return CombineSignatures(relayerSignature, SignaturePart{
		Type:      PartTypeEOASignature,
		Weight:    1,
		Address:   signer.Address(),
		Signature: encodedSig,
	})
}
