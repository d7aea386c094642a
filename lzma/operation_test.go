package lzma

import "testing"

func TestOperationLiteral(t *testing.T) {
	for _, c := range []byte{0x00, 'a', 0xff} {
		op := makeLitOp(c)
		if !op.isLiteral() {
			t.Fatalf("makeLitOp(%#02x).isLiteral() false; want true", c)
		}
		if got := op.literal(); got != c {
			t.Fatalf("op.literal() %#02x; want %#02x", got, c)
		}
		if got := op.length(); got != 1 {
			t.Fatalf("op.length() %d; want 1", got)
		}
	}
}

func TestOperationMatch(t *testing.T) {
	tests := []struct {
		distance int64
		length   int
	}{
		{0, minMatchLen},
		{1, maxMatchLen},
		{maxDistance - 1, 300},
	}
	for _, tc := range tests {
		op := makeMatchOp(tc.distance, tc.length)
		if op.isLiteral() {
			t.Fatalf("makeMatchOp(%d, %d).isLiteral() true; want false",
				tc.distance, tc.length)
		}
		if got := op.distance(); got != tc.distance {
			t.Fatalf("op.distance() %d; want %d", got, tc.distance)
		}
		if got := op.length(); got != tc.length {
			t.Fatalf("op.length() %d; want %d", got, tc.length)
		}
	}
}

func TestOperationString(t *testing.T) {
	if s := makeLitOp('a').String(); s != "L{a/61}" {
		t.Fatalf("makeLitOp('a').String() %q; want %q", s, "L{a/61}")
	}
	if s := makeMatchOp(5, 10).String(); s != "M{5,10}" {
		t.Fatalf("makeMatchOp(5, 10).String() %q; want %q", s, "M{5,10}")
	}
}
