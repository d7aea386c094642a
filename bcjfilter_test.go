package xz

import (
	"bytes"
	"testing"
)

func TestBCJFilterMarshalRoundTrip(t *testing.T) {
	cases := []bcjFilter{
		{kind: idBCJX86},
		{kind: idBCJARM, startOffset: 0x1000},
		{kind: idBCJARM64, startOffset: 4},
	}
	for _, f := range cases {
		data, err := f.MarshalBinary()
		if err != nil {
			t.Fatalf("MarshalBinary error %s", err)
		}
		var g bcjFilter
		if err := g.UnmarshalBinary(data); err != nil {
			t.Fatalf("UnmarshalBinary error %s", err)
		}
		if g != f {
			t.Fatalf("filter %+v; want %+v", g, f)
		}
	}
}

func TestBCJTransformRoundTrip(t *testing.T) {
	kinds := []uint64{
		idBCJX86, idBCJARM, idBCJARMT, idBCJARM64,
		idBCJPPC, idBCJSPARC, idBCJIA64,
	}
	for _, kind := range kinds {
		orig := make([]byte, 256)
		for i := range orig {
			orig[i] = byte(i * 37 % 251)
		}

		buf := append([]byte(nil), orig...)
		bcjTransform(kind, buf, 0, true)
		bcjTransform(kind, buf, 0, false)

		if !bytes.Equal(buf, orig) {
			t.Fatalf("kind %#x: encode+decode did not restore original", kind)
		}
	}
}

func TestBCJX86KnownCallConverts(t *testing.T) {
	// E8 rel32 call instruction at offset 0, relative target +0x10.
	buf := []byte{0xe8, 0x10, 0x00, 0x00, 0x00, 0x90, 0x90, 0x90}
	orig := append([]byte(nil), buf...)

	bcjX86(buf, 0, true)
	if bytes.Equal(buf, orig) {
		t.Fatalf("bcjX86 encode left buffer unchanged")
	}

	bcjX86(buf, 0, false)
	if !bytes.Equal(buf, orig) {
		t.Fatalf("bcjX86 decode(encode(x)) = %x; want %x", buf, orig)
	}
}
