package xz

import (
	"testing"
)

func TestNewHashDispatchesEveryCheckKind(t *testing.T) {
	cases := []struct {
		kind byte
		size int
	}{
		{None, 0},
		{CRC32, 4},
		{CRC64, 8},
		{SHA256, 32},
	}
	for _, tc := range cases {
		h, err := newHash(tc.kind)
		if err != nil {
			t.Fatalf("newHash(%#x) error %s", tc.kind, err)
		}
		if _, err := h.Write([]byte("abc")); err != nil {
			t.Fatalf("Write error %s", err)
		}
		if n := len(h.Sum(nil)); n != tc.size {
			t.Fatalf("Sum length %d; want %d", n, tc.size)
		}
	}
}

func TestNewHashRejectsReservedCheck(t *testing.T) {
	// Nibble 5 names a reserved-but-unassigned check kind: valid size
	// table entry, no implementation.
	if _, err := newHash(5); err != errUnsupportedCheck {
		t.Fatalf("newHash(5) error %v; want errUnsupportedCheck", err)
	}
}

func TestCheckKindSize(t *testing.T) {
	if CheckCRC64.Size() != 8 {
		t.Fatalf("CheckCRC64.Size() = %d; want 8", CheckCRC64.Size())
	}
	if !CheckCRC64.supported() {
		t.Fatalf("CheckCRC64.supported() = false; want true")
	}
}
