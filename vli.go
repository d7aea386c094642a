package xz

import (
	"errors"
	"io"
)

// maxVLI is the largest value a variable-length integer may hold, as
// fixed by the xz format: 2^63 - 1. Sizes absent from a block header are
// represented as -1, not by this value.
const maxVLI = 1<<63 - 1

// maxVLIBytes is the longest a canonically encoded variable-length
// integer may be: ceil(63/7) = 9 groups of 7 bits.
const maxVLIBytes = 9

var (
	errVLIOverflow    = errors.New("xz: variable-length integer overflows 63 bits")
	errVLINonCanonical = errors.New("xz: variable-length integer not minimally encoded")
)

// putVLI writes the canonical variable-length-integer encoding of x into
// p, returning the number of bytes written. It panics if x exceeds
// maxVLI; callers must range-check ahead of time since a VLI never
// represents an error case on its own.
func putVLI(p []byte, x uint64) int {
	if x > maxVLI {
		panic("xz: variable-length integer out of range")
	}
	i := 0
	for x >= 0x80 {
		p[i] = byte(x) | 0x80
		x >>= 7
		i++
	}
	p[i] = byte(x)
	return i + 1
}

// readVLI reads a canonical variable-length integer from r. It enforces
// the xz format's rules strictly: at most 9 groups, the 9th group may
// not set the continuation bit (nine 7-bit groups hold exactly 63
// bits), and the encoding must be the shortest one that represents the
// value (a multi-byte encoding may not end in a zero byte).
func readVLI(r io.ByteReader) (x uint64, n int, err error) {
	var s uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, n, err
		}
		n++

		if n == maxVLIBytes && b >= 0x80 {
			return 0, n, errVLIOverflow
		}

		if b == 0x00 && n > 1 {
			// A final byte carrying no payload bits after other
			// bytes can only appear if the encoding wasn't minimal.
			return 0, n, errVLINonCanonical
		}

		x |= uint64(b&0x7f) << s
		if b < 0x80 {
			break
		}
		s += 7
	}
	if x > maxVLI {
		return 0, n, errVLIOverflow
	}
	return x, n, nil
}

// vliLen returns the number of bytes the canonical encoding of x
// occupies, without encoding it.
func vliLen(x uint64) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}
	return n
}
