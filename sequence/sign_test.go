package sequence

import (
	"bytes"
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// testSigner signs EIP-191 personal messages with an in-memory key.
type testSigner struct {
	key *ecdsa.PrivateKey
}

func newTestSigner(t *testing.T) testSigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return testSigner{key: key}
}

func (s testSigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

func (s testSigner) SignMessage(message []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(message), s.key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

func TestSignSubDigest(t *testing.T) {
	signer := newTestSigner(t)
	subDigest := common.HexToHash("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	encoded, err := SignSubDigest(signer, subDigest)
	if err != nil {
		t.Fatalf("SignSubDigest: %v", err)
	}

	if len(encoded) != 66 {
		t.Fatalf("encoded length = %d, want 66", len(encoded))
	}
	if encoded[65] != signatureTypeEthSign {
		t.Errorf("type suffix = %#x, want %#x", encoded[65], signatureTypeEthSign)
	}

	// The first 65 bytes recover the signer over the EIP-191 hash of the
	// sub-digest bytes.
	recoverable := make([]byte, 65)
	copy(recoverable, encoded[:65])
	recoverable[64] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash(subDigest.Bytes()), recoverable)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if crypto.PubkeyToAddress(*pub) != signer.Address() {
		t.Error("signature does not recover the signer's address")
	}
}

type badSigner struct{}

func (badSigner) Address() common.Address { return common.Address{} }

func (badSigner) SignMessage([]byte) ([]byte, error) {
	return []byte{0x01}, nil
}

func TestSignSubDigest_BadSignatureLength(t *testing.T) {
	if _, err := SignSubDigest(badSigner{}, common.Hash{}); err == nil {
		t.Error("expected error for short signature")
	}
}

func TestSignMetaTransactions(t *testing.T) {
	signer := newTestSigner(t)
	wallet := common.HexToAddress("0x3333333333333333333333333333333333333333")
	chainID := big.NewInt(13473)
	nonce := EncodeNonce(big.NewInt(0), big.NewInt(1))
	txs := sampleTransactions()

	callData, err := SignMetaTransactions(signer, chainID, wallet, nonce, txs)
	if err != nil {
		t.Fatalf("SignMetaTransactions: %v", err)
	}

	if !bytes.Equal(callData[:4], walletABI.Methods["execute"].ID) {
		t.Fatalf("call data selector = %x, want execute", callData[:4])
	}

	unpacked, err := walletABI.Methods["execute"].Inputs.Unpack(callData[4:])
	if err != nil {
		t.Fatalf("unpack execute args: %v", err)
	}

	blob, ok := unpacked[2].([]byte)
	if !ok {
		t.Fatalf("signature arg type %T", unpacked[2])
	}
	sig, err := DecodeSignature(blob)
	if err != nil {
		t.Fatalf("decode embedded signature: %v", err)
	}

	if sig.Threshold != 1 {
		t.Errorf("threshold = %d, want 1", sig.Threshold)
	}
	if len(sig.Signers) != 1 {
		t.Fatalf("signer count = %d, want 1", len(sig.Signers))
	}
	part := sig.Signers[0]
	if part.Type != PartTypeEOASignature || part.Weight != 1 {
		t.Errorf("signer part = %+v", part)
	}
	if len(part.Signature) != 66 || part.Signature[65] != signatureTypeEthSign {
		t.Errorf("embedded signature malformed: %x", part.Signature)
	}
}

func TestCombineSignatures(t *testing.T) {
	relayerAddr := common.HexToAddress("0xffffffffffffffffffffffffffffffffffffffff")
	localAddr := common.HexToAddress("0x0000000000000000000000000000000000000001")

	// The relayer transmits signer parts only; its threshold is never sent.
	// Simulate by encoding with an arbitrary threshold and stripping it.
	relayerFull, err := Signature{
		Threshold: 999,
		Signers: []SignaturePart{
			dynamicPart(1, relayerAddr, bytes.Repeat([]byte{0x0b}, 70)),
		},
	}.Encode()
	if err != nil {
		t.Fatal(err)
	}
	relayerBlob := relayerFull[2:]

	local := eoaPart(1, localAddr, 0xaa)

	combined, err := CombineSignatures(relayerBlob, local)
	if err != nil {
		t.Fatalf("CombineSignatures: %v", err)
	}

	sig, err := DecodeSignature(combined)
	if err != nil {
		t.Fatalf("decode combined: %v", err)
	}

	// Relayer-supplied threshold is ignored; the combined blob requires both.
	if sig.Threshold != 2 {
		t.Errorf("threshold = %d, want 2", sig.Threshold)
	}
	if len(sig.Signers) != 2 {
		t.Fatalf("signer count = %d, want 2", len(sig.Signers))
	}

	// Ascending address order: the local signer's low address sorts first.
	if sig.Signers[0].Type != PartTypeEOASignature {
		t.Errorf("first part type = %d, want local EOA part", sig.Signers[0].Type)
	}
	if sig.Signers[1].Address != relayerAddr {
		t.Errorf("second part address = %s, want relayer", sig.Signers[1].Address)
	}
}

func TestCombineSignatures_MalformedRelayerBlob(t *testing.T) {
	local := eoaPart(1, common.Address{}, 0xaa)
	if _, err := CombineSignatures([]byte{0x09, 0x01}, local); err == nil {
		t.Error("expected error for unknown relayer part type")
	}
}

func TestSignAndCombine(t *testing.T) {
	signer := newTestSigner(t)
	wallet := common.HexToAddress("0x4444444444444444444444444444444444444444")
	chainID := big.NewInt(13371)
	digest := common.HexToHash("0x5555555555555555555555555555555555555555555555555555555555555555")

	relayerAddr := common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	relayerFull, err := Signature{
		Threshold: 0,
		Signers:   []SignaturePart{dynamicPart(1, relayerAddr, bytes.Repeat([]byte{0x0c}, 66))},
	}.Encode()
	if err != nil {
		t.Fatal(err)
	}

	combined, err := SignAndCombine(signer, chainID, wallet, digest, relayerFull[2:])
	if err != nil {
		t.Fatalf("SignAndCombine: %v", err)
	}

	sig, err := DecodeSignature(combined)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Threshold != 2 || len(sig.Signers) != 2 {
		t.Fatalf("combined = threshold %d, %d signers", sig.Threshold, len(sig.Signers))
	}

	// Find the EOA part and verify it recovers the local signer over the
	// wallet sub-digest.
	var eoa *SignaturePart
	for i := range sig.Signers {
		if sig.Signers[i].Type == PartTypeEOASignature {
			eoa = &sig.Signers[i]
		}
	}
	if eoa == nil {
		t.Fatal("no EOA part in combined signature")
	}

	sub := SubDigest(chainID, wallet, digest)
	recoverable := make([]byte, 65)
	copy(recoverable, eoa.Signature[:65])
	recoverable[64] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash(sub.Bytes()), recoverable)
	if err != nil {
		t.Fatal(err)
	}
	if crypto.PubkeyToAddress(*pub) != signer.Address() {
		t.Error("combined EOA part does not recover the local signer")
	}
}
