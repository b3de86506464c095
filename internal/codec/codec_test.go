package codec

import (
	"bytes"
	"math/big"
	"testing"
)

func TestEncodeZeroIsEmpty(t *testing.T) {
	b, err := EncodeUint(big.NewInt(0), 32)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 0 {
		t.Fatalf("encode(0) = %x, want empty", b)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	// Invariant 1: decode(encode(v, b), b) == v for all v < 2^b.
	cases := []struct {
		v int64
		b int
	}{
		{0, 1}, {1, 1}, {0, 8}, {255, 8}, {256, 9}, {65535, 16}, {1 << 20, 24},
	}
	for _, c := range cases {
		enc, err := EncodeUint(big.NewInt(c.v), c.b)
		if err != nil {
			t.Fatalf("encode(%d, %d): %v", c.v, c.b, err)
		}
		dec, err := DecodeUint(enc, c.b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if dec.Int64() != c.v {
			t.Fatalf("round trip %d/%d = %d", c.v, c.b, dec.Int64())
		}
	}
}

func TestDecodeEncodeRoundTripAcceptsZeroPadding(t *testing.T) {
	// Invariant 2: encode(decode(s, b), b) == strip_leading_zeros(s).
	padded := []byte{0x00, 0x00, 0x01}
	v, err := DecodeUint(padded, 32)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := EncodeUint(v, 32)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(enc, StripLeadingZeros(padded)) {
		t.Fatalf("re-encode = %x, want %x", enc, StripLeadingZeros(padded))
	}
}

func TestBitwidth1Boundary(t *testing.T) {
	if _, err := EncodeUint(big.NewInt(0), 1); err != nil {
		t.Fatal(err)
	}
	if _, err := EncodeUint(big.NewInt(1), 1); err != nil {
		t.Fatal(err)
	}
	if _, err := EncodeUint(big.NewInt(2), 1); err == nil {
		t.Fatal("expected ValueOverflowError for 2 at bitwidth 1")
	} else if _, ok := err.(*ValueOverflowError); !ok {
		t.Fatalf("wrong error type: %T", err)
	}
}

func TestBitwidth128Boundary(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	if _, err := EncodeUint(max, 128); err != nil {
		t.Fatalf("max 128-bit value should encode: %v", err)
	}
	over := new(big.Int).Lsh(big.NewInt(1), 128)
	if _, err := EncodeUint(over, 128); err == nil {
		t.Fatal("expected overflow for 2^128")
	}
}

func TestEncode256AtBitwidth8Overflows(t *testing.T) {
	if _, err := EncodeUint(big.NewInt(256), 8); err == nil {
		t.Fatal("expected overflow")
	}
}

func TestEncodeIP4(t *testing.T) {
	b, err := EncodeIP4("10.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x0A, 0x00, 0x00, 0x01}
	if !bytes.Equal(b, want) {
		t.Fatalf("EncodeIP4 = %x, want %x", b, want)
	}
	s, err := DecodeIP4(b)
	if err != nil || s != "10.0.0.1" {
		t.Fatalf("DecodeIP4 = %q, %v", s, err)
	}
}

func TestEncodeIP4Zero(t *testing.T) {
	b, err := EncodeIP4("0.0.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 0 {
		t.Fatalf("EncodeIP4(0.0.0.0) = %x, want empty", b)
	}
}

func TestEncodeMACRoundTrip(t *testing.T) {
	b, err := EncodeMAC("aa:bb:cc:dd:ee:ff")
	if err != nil {
		t.Fatal(err)
	}
	s, err := DecodeMAC(b)
	if err != nil {
		t.Fatal(err)
	}
	if s != "aa:bb:cc:dd:ee:ff" {
		t.Fatalf("DecodeMAC = %q", s)
	}
}

func TestEncodeIP6RoundTrip(t *testing.T) {
	b, err := EncodeIP6("2001:db8::1")
	if err != nil {
		t.Fatal(err)
	}
	s, err := DecodeIP6(b)
	if err != nil {
		t.Fatal(err)
	}
	if s != "2001:db8::1" {
		t.Fatalf("DecodeIP6 = %q", s)
	}
}

func TestLPMWildcardAtPrefixZero(t *testing.T) {
	lpm, err := EncodeLPM(big.NewInt(0), 0, 32)
	if err != nil {
		t.Fatal(err)
	}
	if !lpm.Wildcard {
		t.Fatal("prefix 0 should be wildcard")
	}
}

func TestLPMFullPrefixIsExact(t *testing.T) {
	lpm, err := EncodeLPM(big.NewInt(10), 32, 32)
	if err != nil {
		t.Fatal(err)
	}
	if lpm.Wildcard || lpm.Prefix != 32 {
		t.Fatalf("full prefix should not be wildcard: %+v", lpm)
	}
}

func TestLPMRejectsBitsOutsidePrefix(t *testing.T) {
	// 10.0.0.1 with /8 has low bits set.
	v := new(big.Int).SetBytes([]byte{10, 0, 0, 1})
	if _, err := EncodeLPM(v, 8, 32); err == nil {
		t.Fatal("expected InvalidMaskError")
	}
}

func TestTernaryWildcardAtMaskZero(t *testing.T) {
	tern, err := EncodeTernary(big.NewInt(0), big.NewInt(0), 32)
	if err != nil {
		t.Fatal(err)
	}
	if !tern.Wildcard {
		t.Fatal("mask 0 should be wildcard")
	}
}

func TestTernaryAllOnesIsExact(t *testing.T) {
	full := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 8), big.NewInt(1))
	tern, err := EncodeTernary(big.NewInt(0xAB), full, 8)
	if err != nil {
		t.Fatal(err)
	}
	if tern.Wildcard {
		t.Fatal("all-ones mask should not be wildcard")
	}
}

func TestTernaryRejectsValueOutsideMask(t *testing.T) {
	if _, err := EncodeTernary(big.NewInt(0x0F), big.NewInt(0xF0), 8); err == nil {
		t.Fatal("expected InvalidMaskError")
	}
}

func TestRangeWildcardWhenFullSpan(t *testing.T) {
	full := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 8), big.NewInt(1))
	rng, err := EncodeRange(big.NewInt(0), full, 8)
	if err != nil {
		t.Fatal(err)
	}
	if !rng.Wildcard {
		t.Fatal("full range should be wildcard")
	}
}

func TestRangeRejectsLowGreaterThanHigh(t *testing.T) {
	if _, err := EncodeRange(big.NewInt(10), big.NewInt(5), 8); err == nil {
		t.Fatal("expected InvalidRangeError")
	}
}
