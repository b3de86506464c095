// Package codec implements the P4Runtime canonical value encoding (spec
// §4.1): arbitrary-width unsigned integers, MAC/IPv4/IPv6 addresses, and
// the match-key encodings (LPM, ternary, range) with wildcard-omission.
//
// Every function here is pure: no I/O, no suspension points (spec §5).
package codec

import (
	"math/big"
	"net"
	"net/netip"
)

// maxBitwidth guards against pathological bitwidths; P4Info schemas in
// practice stay well under this (the widest standard header field is a
// few hundred bits).
const maxBitwidth = 4096

// EncodeUint returns the minimal-length big-endian byte string for value,
// which must fit in bitwidth bits. A value of zero encodes to the empty
// byte string, never a single zero byte (spec §3, "Canonical value").
func EncodeUint(value *big.Int, bitwidth int) ([]byte, error) {
	if bitwidth < 1 || bitwidth > maxBitwidth {
		return nil, &InvalidMaskError{Reason: "bitwidth out of range"}
	}
	if value.Sign() < 0 {
		return nil, &ValueOverflowError{Value: value.String(), Bitwidth: bitwidth}
	}
	if value.BitLen() > bitwidth {
		return nil, &ValueOverflowError{Value: value.String(), Bitwidth: bitwidth}
	}
	if value.Sign() == 0 {
		return []byte{}, nil
	}
	return value.Bytes(), nil
}

// DecodeUint parses a canonical (or zero-padded) big-endian byte string
// into its integer value, rejecting magnitudes that exceed bitwidth.
// Leading zero bytes are accepted on decode since targets may zero-pad
// (spec §4.1).
func DecodeUint(b []byte, bitwidth int) (*big.Int, error) {
	if bitwidth < 1 || bitwidth > maxBitwidth {
		return nil, &InvalidMaskError{Reason: "bitwidth out of range"}
	}
	v := new(big.Int).SetBytes(b)
	if v.BitLen() > bitwidth {
		return nil, &ValueOverflowError{Value: v.String(), Bitwidth: bitwidth}
	}
	return v, nil
}

// StripLeadingZeros trims leading 0x00 bytes from a byte string, the
// canonicalization spec invariant 2 refers to.
func StripLeadingZeros(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	return b[i:]
}

// EncodeMAC parses a colon-separated MAC address and encodes it with
// bitwidth 48.
func EncodeMAC(s string) ([]byte, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return nil, &InvalidMaskError{Reason: "invalid MAC address: " + s}
	}
	return EncodeUint(new(big.Int).SetBytes(hw), 48)
}

// DecodeMAC renders a 48-bit canonical value as a colon-separated MAC
// address string.
func DecodeMAC(b []byte) (string, error) {
	v, err := DecodeUint(b, 48)
	if err != nil {
		return "", err
	}
	full := padLeft(v.Bytes(), 6)
	return net.HardwareAddr(full).String(), nil
}

// EncodeIP4 parses a dotted-decimal IPv4 address and encodes it with
// bitwidth 32.
func EncodeIP4(s string) ([]byte, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return nil, &InvalidMaskError{Reason: "invalid IPv4 address: " + s}
	}
	b4 := addr.As4()
	return EncodeUint(new(big.Int).SetBytes(b4[:]), 32)
}

// DecodeIP4 renders a 32-bit canonical value as a dotted-decimal IPv4
// address string.
func DecodeIP4(b []byte) (string, error) {
	v, err := DecodeUint(b, 32)
	if err != nil {
		return "", err
	}
	full := padLeft(v.Bytes(), 4)
	var a [4]byte
	copy(a[:], full)
	return netip.AddrFrom4(a).String(), nil
}

// EncodeIP6 parses an IPv6 address and encodes it with bitwidth 128.
func EncodeIP6(s string) ([]byte, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is6() {
		return nil, &InvalidMaskError{Reason: "invalid IPv6 address: " + s}
	}
	b16 := addr.As16()
	return EncodeUint(new(big.Int).SetBytes(b16[:]), 128)
}

// DecodeIP6 renders a 128-bit canonical value as an IPv6 address string.
func DecodeIP6(b []byte) (string, error) {
	v, err := DecodeUint(b, 128)
	if err != nil {
		return "", err
	}
	full := padLeft(v.Bytes(), 16)
	var a [16]byte
	copy(a[:], full)
	return netip.AddrFrom16(a).String(), nil
}

// LPM is the encoded (value, prefix) pair for a longest-prefix-match
// field, or Wildcard=true when prefix==0 and the field must be omitted
// from the wire entry (spec §3, §4.1).
type LPM struct {
	Value    []byte
	Prefix   int
	Wildcard bool
}

// EncodeLPM rejects a value with bits set outside its prefix and returns
// the canonical (value, prefix) pair. prefix==bitwidth means a full exact match;
// prefix==0 is the wildcard, omitted from the wire entry.
func EncodeLPM(value *big.Int, prefix, bitwidth int) (LPM, error) {
	if prefix < 0 || prefix > bitwidth {
		return LPM{}, &InvalidMaskError{Reason: "prefix out of range"}
	}
	if prefix == 0 {
		return LPM{Wildcard: true}, nil
	}
	mask := prefixMask(prefix, bitwidth)
	masked := new(big.Int).And(value, mask)
	if masked.Cmp(value) != 0 {
		return LPM{}, &InvalidMaskError{Reason: "value has bits set outside prefix"}
	}
	enc, err := EncodeUint(masked, bitwidth)
	if err != nil {
		return LPM{}, err
	}
	return LPM{Value: enc, Prefix: prefix}, nil
}

// Ternary is the encoded (value, mask) pair, or Wildcard=true when
// mask==0, the field that must be omitted from the wire entry.
type Ternary struct {
	Value    []byte
	Mask     []byte
	Wildcard bool
}

// EncodeTernary validates value & ~mask == 0 and returns the canonical
// (value, mask) pair. mask==0 is the wildcard, omitted on the wire.
func EncodeTernary(value, mask *big.Int, bitwidth int) (Ternary, error) {
	if mask.Sign() < 0 || mask.BitLen() > bitwidth {
		return Ternary{}, &InvalidMaskError{Reason: "mask out of range"}
	}
	if mask.Sign() == 0 {
		return Ternary{Wildcard: true}, nil
	}
	notMask := new(big.Int).AndNot(fullMask(bitwidth), mask)
	if new(big.Int).And(value, notMask).Sign() != 0 {
		return Ternary{}, &InvalidMaskError{Reason: "value has bits set outside mask"}
	}
	encV, err := EncodeUint(value, bitwidth)
	if err != nil {
		return Ternary{}, err
	}
	encM, err := EncodeUint(mask, bitwidth)
	if err != nil {
		return Ternary{}, err
	}
	return Ternary{Value: encV, Mask: encM}, nil
}

// Range is the encoded (low, high) pair, or Wildcard=true when the range
// spans the full bitwidth ([0, 2^bitwidth-1]), the field that must be
// omitted from the wire entry.
type Range struct {
	Low, High []byte
	Wildcard  bool
}

// EncodeRange validates low <= high and returns the canonical pair.
func EncodeRange(low, high *big.Int, bitwidth int) (Range, error) {
	if low.Cmp(high) > 0 {
		return Range{}, &InvalidRangeError{Low: low.String(), High: high.String()}
	}
	full := fullMask(bitwidth)
	if low.Sign() == 0 && high.Cmp(full) == 0 {
		return Range{Wildcard: true}, nil
	}
	encLow, err := EncodeUint(low, bitwidth)
	if err != nil {
		return Range{}, err
	}
	encHigh, err := EncodeUint(high, bitwidth)
	if err != nil {
		return Range{}, err
	}
	return Range{Low: encLow, High: encHigh}, nil
}

func prefixMask(prefix, bitwidth int) *big.Int {
	// bits [bitwidth-prefix, bitwidth) set.
	shift := uint(bitwidth - prefix)
	top := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(prefix)), big.NewInt(1))
	return new(big.Int).Lsh(top, shift)
}

func fullMask(bitwidth int) *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), uint(bitwidth))
	return m.Sub(m, big.NewInt(1))
}

func padLeft(b []byte, n int) []byte {
	if len(b) >= n {
		return b[len(b)-n:]
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}
