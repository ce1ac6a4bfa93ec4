package sequence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	checkout "github.com/lumenlabs/checkout-go"
)

// PartType tags the wire encoding of one signer part.
type PartType uint8

const (
	// PartTypeEOASignature is a raw EOA signature part: a 66-byte payload
	// (65-byte signature plus a 1-byte signature-type flag). The signer's
	// address is not encoded; the contract recovers it from the signature.
	PartTypeEOASignature PartType = 0

	// PartTypeAddress is an address-only part: a signer known to the wallet
	// image that did not sign this request. 20-byte payload.
	PartTypeAddress PartType = 1

	// PartTypeDynamicSignature is a variable-length signature part: 20-byte
	// address, 2-byte length, then the signature bytes.
	PartTypeDynamicSignature PartType = 2
)

// eoaSignatureLength is the fixed payload size of an EOA signature part.
const eoaSignatureLength = 66

// SignaturePart is one weighted signer entry in a wallet signature.
//
// Address is always available for sorting, but is only written to the wire
// for address and dynamic parts; EOA parts are recovered on-chain.
type SignaturePart struct {
	Type      PartType
	Weight    uint8
	Address   common.Address
	Signature []byte
}

// Signature is the wallet contract's multi-signer signature: a threshold
// followed by weighted signer parts. The wallet contract recovers signers
// in encoded order and compares against its stored image hash, so the
// on-wire part order is load-bearing.
type Signature struct {
	// Version of the signature scheme. Always 1.
	Version int

	// Threshold is the minimum combined weight required.
	Threshold uint16

	// Signers are the weighted parts, in wire order.
	Signers []SignaturePart
}

// Encode serialises the signature to the wallet contract's binary layout.
//
// Signers are written in the order given. Callers combining multiple
// signature shares must pre-sort by address ascending (numeric) before
// encoding; the codec itself never sorts.
func (s Signature) Encode() ([]byte, error) {
	var buf bytes.Buffer

	var threshold [2]byte
	binary.BigEndian.PutUint16(threshold[:], s.Threshold)
	buf.Write(threshold[:])

	for i, part := range s.Signers {
		buf.WriteByte(byte(part.Type))
		buf.WriteByte(part.Weight)

		switch part.Type {
		case PartTypeEOASignature:
			if len(part.Signature) != eoaSignatureLength {
				return nil, fmt.Errorf("signer %d: EOA signature is %d bytes, want %d: %w",
					i, len(part.Signature), eoaSignatureLength, checkout.ErrInvalidSignature)
			}
			buf.Write(part.Signature)

		case PartTypeAddress:
			buf.Write(part.Address.Bytes())

		case PartTypeDynamicSignature:
			if len(part.Signature) > 0xffff {
				return nil, fmt.Errorf("signer %d: dynamic signature of %d bytes exceeds uint16 length: %w",
					i, len(part.Signature), checkout.ErrInvalidSignature)
			}
			buf.Write(part.Address.Bytes())
			var length [2]byte
			binary.BigEndian.PutUint16(length[:], uint16(len(part.Signature)))
			buf.Write(length[:])
			buf.Write(part.Signature)

		default:
			return nil, fmt.Errorf("signer %d: unknown part type %d: %w", i, part.Type, checkout.ErrInvalidSignature)
		}
	}

	return buf.Bytes(), nil
}

// DecodeSignature parses a wallet signature blob. Part order is preserved
// exactly as encoded. An unknown part type or a truncated payload is a
// fatal parse error; the input is assumed attacker-controlled and partial
// recovery would mask corruption.
func DecodeSignature(data []byte) (Signature, error) {
	if len(data) < 2 {
		return Signature{}, fmt.Errorf("signature blob of %d bytes is shorter than a threshold: %w",
			len(data), checkout.ErrInvalidSignature)
	}

	sig := Signature{
		Version:   1,
		Threshold: binary.BigEndian.Uint16(data[:2]),
	}

	pos := 2
	for pos < len(data) {
		if len(data)-pos < 2 {
			return Signature{}, fmt.Errorf("truncated signer header at offset %d: %w", pos, checkout.ErrInvalidSignature)
		}
		part := SignaturePart{
			Type:   PartType(data[pos]),
			Weight: data[pos+1],
		}
		pos += 2

		switch part.Type {
		case PartTypeEOASignature:
			if len(data)-pos < eoaSignatureLength {
				return Signature{}, fmt.Errorf("truncated EOA signature at offset %d: %w", pos, checkout.ErrInvalidSignature)
			}
			part.Signature = append([]byte(nil), data[pos:pos+eoaSignatureLength]...)
			pos += eoaSignatureLength

		case PartTypeAddress:
			if len(data)-pos < common.AddressLength {
				return Signature{}, fmt.Errorf("truncated address part at offset %d: %w", pos, checkout.ErrInvalidSignature)
			}
			part.Address = common.BytesToAddress(data[pos : pos+common.AddressLength])
			pos += common.AddressLength

		case PartTypeDynamicSignature:
			if len(data)-pos < common.AddressLength+2 {
				return Signature{}, fmt.Errorf("truncated dynamic part at offset %d: %w", pos, checkout.ErrInvalidSignature)
			}
			part.Address = common.BytesToAddress(data[pos : pos+common.AddressLength])
			pos += common.AddressLength
			length := int(binary.BigEndian.Uint16(data[pos : pos+2]))
			pos += 2
			if len(data)-pos < length {
				return Signature{}, fmt.Errorf("truncated dynamic signature at offset %d: %w", pos, checkout.ErrInvalidSignature)
			}
			part.Signature = append([]byte(nil), data[pos:pos+length]...)
			pos += length

		default:
			return Signature{}, fmt.Errorf("unknown signature part type %d at offset %d: %w",
				part.Type, pos-2, checkout.ErrInvalidSignature)
		}

		sig.Signers = append(sig.Signers, part)
	}

	return sig, nil
}

// SortSignaturePartsByAddress sorts signer parts ascending by address
// treated as an unsigned big-endian integer. The sort is stable: parts with
// equal addresses keep their relative order and are not deduplicated.
//
// The wallet contract requires ascending address order in a combined
// signature; encoding an unsorted list produces a blob the contract rejects.
func SortSignaturePartsByAddress(parts []SignaturePart) {
	sort.SliceStable(parts, func(i, j int) bool {
		return bytes.Compare(parts[i].Address.Bytes(), parts[j].Address.Bytes()) < 0
	})
}
