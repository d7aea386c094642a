package xz

import (
	"bytes"
	"testing"
)

func TestVLIRoundTrip(t *testing.T) {
	tests := []uint64{0, 1, 0x7f, 0x80, 0x100, 0xffffffff, 0x100000000, maxVLI}
	p := make([]byte, maxVLIBytes)
	for _, u := range tests {
		n := putVLI(p, u)
		if n != vliLen(u) {
			t.Fatalf("vliLen(%#x) = %d; putVLI wrote %d", u, vliLen(u), n)
		}
		x, m, err := readVLI(bytes.NewReader(p[:n]))
		if err != nil {
			t.Fatalf("readVLI(%#x) error %s", u, err)
		}
		if m != n {
			t.Fatalf("readVLI read %d bytes; want %d", m, n)
		}
		if x != u {
			t.Fatalf("readVLI returned %#x; want %#x", x, u)
		}
	}
}

func TestVLIOverflow(t *testing.T) {
	// ten continuation bytes followed by a terminator: exceeds the
	// nine-byte limit.
	a := []byte{0x81, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87, 0x88, 0x89, 0x01}
	_, _, err := readVLI(bytes.NewReader(a))
	if err != errVLIOverflow {
		t.Fatalf("readVLI error %v; want errVLIOverflow", err)
	}
}

func TestVLIMaxOutOfRange(t *testing.T) {
	// nine bytes whose ninth carries a continuation bit is always out of
	// range: 63 bits fit exactly in nine 7-bit groups.
	a := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	_, _, err := readVLI(bytes.NewReader(a))
	if err != errVLIOverflow {
		t.Fatalf("readVLI error %v; want errVLIOverflow", err)
	}
}

func TestVLINonCanonical(t *testing.T) {
	// encodes zero as two bytes instead of one.
	a := []byte{0x80, 0x00}
	_, _, err := readVLI(bytes.NewReader(a))
	if err != errVLINonCanonical {
		t.Fatalf("readVLI error %v; want errVLINonCanonical", err)
	}
}

func TestVLICanonicalZeroPayloadGroup(t *testing.T) {
	// 16384 = 1<<14 legitimately encodes with a zero-payload
	// continuation byte in the middle: 0x80, 0x80, 0x01.
	a := []byte{0x80, 0x80, 0x01}
	x, n, err := readVLI(bytes.NewReader(a))
	if err != nil {
		t.Fatalf("readVLI error %s", err)
	}
	if n != 3 || x != 1<<14 {
		t.Fatalf("readVLI = %#x, %d bytes; want %#x, 3 bytes", x, n, uint64(1<<14))
	}
}
