package sequence

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	checkout "github.com/lumenlabs/checkout-go"
)

func eoaPart(weight uint8, addr common.Address, fill byte) SignaturePart {
	sig := bytes.Repeat([]byte{fill}, eoaSignatureLength)
	return SignaturePart{Type: PartTypeEOASignature, Weight: weight, Address: addr, Signature: sig}
}

func addressPart(weight uint8, addr common.Address) SignaturePart {
	return SignaturePart{Type: PartTypeAddress, Weight: weight, Address: addr}
}

func dynamicPart(weight uint8, addr common.Address, sig []byte) SignaturePart {
	return SignaturePart{Type: PartTypeDynamicSignature, Weight: weight, Address: addr, Signature: sig}
}

func TestSignature_RoundTrip(t *testing.T) {
	addrA := common.HexToAddress("0x1111111111111111111111111111111111111111")
	addrB := common.HexToAddress("0x2222222222222222222222222222222222222222")

	tests := []struct {
		name string
		sig  Signature
	}{
		{
			name: "single EOA part",
			sig: Signature{
				Version:   1,
				Threshold: 1,
				Signers:   []SignaturePart{eoaPart(1, common.Address{}, 0xab)},
			},
		},
		{
			name: "address-only part",
			sig: Signature{
				Version:   1,
				Threshold: 2,
				Signers:   []SignaturePart{addressPart(3, addrA)},
			},
		},
		{
			name: "dynamic part",
			sig: Signature{
				Version:   1,
				Threshold: 2,
				Signers:   []SignaturePart{dynamicPart(1, addrA, []byte{0xde, 0xad, 0xbe, 0xef})},
			},
		},
		{
			name: "mixed parts sorted ascending",
			sig: Signature{
				Version:   1,
				Threshold: 2,
				Signers: []SignaturePart{
					dynamicPart(1, addrA, bytes.Repeat([]byte{0x01}, 66)),
					addressPart(2, addrB),
				},
			},
		},
		{
			name: "empty dynamic signature",
			sig: Signature{
				Version:   1,
				Threshold: 1,
				Signers:   []SignaturePart{dynamicPart(1, addrA, []byte{})},
			},
		},
		{
			name: "no signers",
			sig:  Signature{Version: 1, Threshold: 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := tt.sig.Encode()
			if err != nil {
				t.Fatalf("encode: %v", err)
			}

			decoded, err := DecodeSignature(encoded)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}

			assertSignatureEqual(t, decoded, tt.sig)
		})
	}
}

func TestSignature_WireLayout(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000AA")
	sig := Signature{
		Version:   1,
		Threshold: 0x0102,
		Signers: []SignaturePart{
			addressPart(5, addr),
			dynamicPart(7, addr, []byte{0xCC, 0xDD}),
		},
	}

	encoded, err := sig.Encode()
	if err != nil {
		t.Fatal(err)
	}

	// [2 threshold][1 type][1 weight][20 addr][1 type][1 weight][20 addr][2 len][2 sig]
	wantLen := 2 + 2 + 20 + 2 + 20 + 2 + 2
	if len(encoded) != wantLen {
		t.Fatalf("encoded length = %d, want %d", len(encoded), wantLen)
	}
	if encoded[0] != 0x01 || encoded[1] != 0x02 {
		t.Errorf("threshold bytes = %x %x, want big-endian 0102", encoded[0], encoded[1])
	}
	if encoded[2] != byte(PartTypeAddress) || encoded[3] != 5 {
		t.Errorf("first part header = %x %x", encoded[2], encoded[3])
	}
	if encoded[24] != byte(PartTypeDynamicSignature) || encoded[25] != 7 {
		t.Errorf("second part header = %x %x", encoded[24], encoded[25])
	}
	if encoded[46] != 0x00 || encoded[47] != 0x02 {
		t.Errorf("dynamic length bytes = %x %x, want 0002", encoded[46], encoded[47])
	}
	if encoded[48] != 0xCC || encoded[49] != 0xDD {
		t.Errorf("dynamic payload = %x %x", encoded[48], encoded[49])
	}
}

func TestSignature_CodecPreservesOrder(t *testing.T) {
	// The codec never sorts: an unsorted signer list round-trips in the
	// same unsorted order. Sorting is the caller's responsibility.
	addrHigh := common.HexToAddress("0xffffffffffffffffffffffffffffffffffffffff")
	addrLow := common.HexToAddress("0x0000000000000000000000000000000000000001")

	sig := Signature{
		Version:   1,
		Threshold: 2,
		Signers: []SignaturePart{
			addressPart(1, addrHigh),
			addressPart(1, addrLow),
		},
	}

	encoded, err := sig.Encode()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeSignature(encoded)
	if err != nil {
		t.Fatal(err)
	}

	if decoded.Signers[0].Address != addrHigh || decoded.Signers[1].Address != addrLow {
		t.Errorf("codec reordered signers: %+v", decoded.Signers)
	}
}

func TestSignature_EncodeErrors(t *testing.T) {
	tests := []struct {
		name string
		sig  Signature
	}{
		{
			name: "EOA signature wrong length",
			sig: Signature{Threshold: 1, Signers: []SignaturePart{
				{Type: PartTypeEOASignature, Weight: 1, Signature: make([]byte, 65)},
			}},
		},
		{
			name: "unknown part type",
			sig: Signature{Threshold: 1, Signers: []SignaturePart{
				{Type: PartType(9), Weight: 1},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.sig.Encode(); !errors.Is(err, checkout.ErrInvalidSignature) {
				t.Errorf("error = %v, want ErrInvalidSignature", err)
			}
		})
	}
}

func TestDecodeSignature_Errors(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	valid, err := Signature{
		Threshold: 1,
		Signers:   []SignaturePart{addressPart(1, addr)},
	}.Encode()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short threshold", []byte{0x00}},
		{"unknown part type", append([]byte{0x00, 0x01}, 0x09, 0x01)},
		{"truncated header", append(append([]byte{}, valid...), 0x01)},
		{"truncated address payload", valid[:len(valid)-4]},
		{"truncated EOA payload", append([]byte{0x00, 0x01, 0x00, 0x01}, make([]byte, 10)...)},
		{"truncated dynamic payload", append(append([]byte{0x00, 0x01, 0x02, 0x01}, addr.Bytes()...), 0x00, 0x10, 0xaa)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeSignature(tt.data); !errors.Is(err, checkout.ErrInvalidSignature) {
				t.Errorf("error = %v, want ErrInvalidSignature", err)
			}
		})
	}
}

func TestSortSignaturePartsByAddress(t *testing.T) {
	low := common.HexToAddress("0x0000000000000000000000000000000000000001")
	mid := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	high := common.HexToAddress("0x0100000000000000000000000000000000000000")

	parts := []SignaturePart{
		addressPart(1, high),
		addressPart(2, low),
		addressPart(3, mid),
	}

	SortSignaturePartsByAddress(parts)

	if parts[0].Address != low || parts[1].Address != mid || parts[2].Address != high {
		t.Errorf("sort order wrong: %+v", parts)
	}
}

func TestSortSignaturePartsByAddress_StableOnEqual(t *testing.T) {
	// Equal addresses keep their relative order; parts differing only in
	// weight are never deduplicated or swapped.
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	parts := []SignaturePart{
		addressPart(1, addr),
		addressPart(2, addr),
	}

	SortSignaturePartsByAddress(parts)

	if len(parts) != 2 || parts[0].Weight != 1 || parts[1].Weight != 2 {
		t.Errorf("equal-address parts disturbed: %+v", parts)
	}
}

func assertSignatureEqual(t *testing.T, got, want Signature) {
	t.Helper()
	if got.Version != 1 {
		t.Errorf("decoded version = %d, want 1", got.Version)
	}
	if got.Threshold != want.Threshold {
		t.Errorf("threshold = %d, want %d", got.Threshold, want.Threshold)
	}
	if len(got.Signers) != len(want.Signers) {
		t.Fatalf("signer count = %d, want %d", len(got.Signers), len(want.Signers))
	}
	for i := range want.Signers {
		g, w := got.Signers[i], want.Signers[i]
		if g.Type != w.Type || g.Weight != w.Weight {
			t.Errorf("signer %d header = (%d %d), want (%d %d)", i, g.Type, g.Weight, w.Type, w.Weight)
		}
		// EOA parts do not carry an address on the wire.
		if w.Type != PartTypeEOASignature && g.Address != w.Address {
			t.Errorf("signer %d address = %s, want %s", i, g.Address, w.Address)
		}
		if !bytes.Equal(g.Signature, w.Signature) {
			t.Errorf("signer %d signature = %x, want %x", i, g.Signature, w.Signature)
		}
	}
}
