package sequence

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func sampleTransactions() []Transaction {
	return []Transaction{
		{
			To:            common.HexToAddress("0x1111111111111111111111111111111111111111"),
			Value:         big.NewInt(1000),
			Data:          []byte{0xca, 0xfe},
			RevertOnError: true,
		},
		{
			To: common.HexToAddress("0x2222222222222222222222222222222222222222"),
		},
	}
}

func TestNormalise_Defaults(t *testing.T) {
	norm := Normalise([]Transaction{{}})
	if len(norm) != 1 {
		t.Fatalf("normalised %d txs, want 1", len(norm))
	}

	tx := norm[0]
	if tx.DelegateCall || tx.RevertOnError {
		t.Errorf("flags default = (%v %v), want (false false)", tx.DelegateCall, tx.RevertOnError)
	}
	if tx.GasLimit.Sign() != 0 || tx.Value.Sign() != 0 {
		t.Errorf("gasLimit=%s value=%s, want both 0", tx.GasLimit, tx.Value)
	}
	if tx.Data == nil || len(tx.Data) != 0 {
		t.Errorf("data = %v, want empty non-nil", tx.Data)
	}
	if tx.Target != (common.Address{}) {
		t.Errorf("target = %s, want zero address", tx.Target)
	}
}

func TestDigestOfTransactions_Deterministic(t *testing.T) {
	nonce := EncodeNonce(big.NewInt(0), big.NewInt(4))
	txs := Normalise(sampleTransactions())

	a, err := DigestOfTransactions(nonce, txs)
	if err != nil {
		t.Fatal(err)
	}
	b, err := DigestOfTransactions(nonce, txs)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("same inputs produced different digests")
	}
}

func TestDigestOfTransactions_SensitiveToInputs(t *testing.T) {
	txs := Normalise(sampleTransactions())
	base, err := DigestOfTransactions(big.NewInt(1), txs)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("nonce changes digest", func(t *testing.T) {
		other, err := DigestOfTransactions(big.NewInt(2), txs)
		if err != nil {
			t.Fatal(err)
		}
		if other == base {
			t.Error("different nonces produced equal digests")
		}
	})

	t.Run("transaction order changes digest", func(t *testing.T) {
		swapped := []NormalisedTransaction{txs[1], txs[0]}
		other, err := DigestOfTransactions(big.NewInt(1), swapped)
		if err != nil {
			t.Fatal(err)
		}
		if other == base {
			t.Error("reordered batch produced equal digest")
		}
	})

	t.Run("value changes digest", func(t *testing.T) {
		modified := Normalise(sampleTransactions())
		modified[0].Value = big.NewInt(1001)
		other, err := DigestOfTransactions(big.NewInt(1), modified)
		if err != nil {
			t.Fatal(err)
		}
		if other == base {
			t.Error("modified value produced equal digest")
		}
	})
}

func TestEncodeMessageSubDigest_Layout(t *testing.T) {
	chainID := big.NewInt(13371)
	wallet := common.HexToAddress("0xAbcDef0123456789abcdef0123456789ABCDEF01")
	digest := common.HexToHash("0x00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff")

	packed := EncodeMessageSubDigest(chainID, wallet, digest)

	// [2 prefix][32 chainId][20 wallet][32 digest], no padding between.
	if len(packed) != 86 {
		t.Fatalf("packed length = %d, want 86", len(packed))
	}
	if packed[0] != 0x19 || packed[1] != 0x01 {
		t.Errorf("prefix = %x %x, want 19 01", packed[0], packed[1])
	}
	if !bytes.Equal(packed[2:34], common.BigToHash(chainID).Bytes()) {
		t.Errorf("chainId word = %x", packed[2:34])
	}
	if !bytes.Equal(packed[34:54], wallet.Bytes()) {
		t.Errorf("wallet bytes = %x", packed[34:54])
	}
	if !bytes.Equal(packed[54:86], digest.Bytes()) {
		t.Errorf("digest bytes = %x", packed[54:86])
	}
}

func TestSubDigest_DomainSeparation(t *testing.T) {
	digest := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	walletA := common.HexToAddress("0x1111111111111111111111111111111111111111")
	walletB := common.HexToAddress("0x2222222222222222222222222222222222222222")

	if SubDigest(big.NewInt(1), walletA, digest) == SubDigest(big.NewInt(2), walletA, digest) {
		t.Error("different chain ids produced equal sub-digests")
	}
	if SubDigest(big.NewInt(1), walletA, digest) == SubDigest(big.NewInt(1), walletB, digest) {
		t.Error("different wallets produced equal sub-digests")
	}
	if SubDigest(big.NewInt(1), walletA, digest) != SubDigest(big.NewInt(1), walletA, digest) {
		t.Error("sub-digest is not deterministic")
	}
}

func TestExecuteCallData(t *testing.T) {
	txs := Normalise(sampleTransactions())
	nonce := big.NewInt(3)
	sig := []byte{0x01, 0x02, 0x03}

	data, err := ExecuteCallData(txs, nonce, sig)
	if err != nil {
		t.Fatalf("ExecuteCallData: %v", err)
	}

	if !bytes.Equal(data[:4], walletABI.Methods["execute"].ID) {
		t.Errorf("selector = %x, want execute selector %x", data[:4], walletABI.Methods["execute"].ID)
	}

	// The arguments must round-trip through the ABI.
	unpacked, err := walletABI.Methods["execute"].Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if len(unpacked) != 3 {
		t.Fatalf("unpacked %d args, want 3", len(unpacked))
	}
	gotNonce, ok := unpacked[1].(*big.Int)
	if !ok || gotNonce.Cmp(nonce) != 0 {
		t.Errorf("nonce arg = %v, want %s", unpacked[1], nonce)
	}
	gotSig, ok := unpacked[2].([]byte)
	if !ok || !bytes.Equal(gotSig, sig) {
		t.Errorf("signature arg = %v, want %x", unpacked[2], sig)
	}
}
