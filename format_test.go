package xz

import (
	"bytes"
	"testing"
)

func TestStreamHeaderRoundTrip(t *testing.T) {
	h := streamHeader{flags: byte(CheckCRC32)}

	data, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary error %s", err)
	}
	if len(data) != headerLen {
		t.Fatalf("header length %d; want %d", len(data), headerLen)
	}

	var g streamHeader
	if err = g.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary error %s", err)
	}
	if g.flags != h.flags {
		t.Fatalf("flags %#x; want %#x", g.flags, h.flags)
	}
}

func TestStreamHeaderBadMagic(t *testing.T) {
	h := streamHeader{flags: byte(CheckCRC32)}
	data, _ := h.MarshalBinary()
	data[0] ^= 0xff

	var g streamHeader
	if err := g.UnmarshalBinary(data); err != errHeaderMagic {
		t.Fatalf("UnmarshalBinary error %v; want errHeaderMagic", err)
	}
}

func TestStreamFooterRoundTrip(t *testing.T) {
	f := footer{indexSize: 1236, flags: byte(CheckCRC64)}

	data, err := f.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary error %s", err)
	}
	if len(data) != footerLen {
		t.Fatalf("footer length %d; want %d", len(data), footerLen)
	}

	g, err := readFooter(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("readFooter error %s", err)
	}
	if g != f {
		t.Fatalf("footer %+v; want %+v", g, f)
	}
}

func TestBlockHeaderRoundTrip(t *testing.T) {
	h := &blockHeader{
		compressedSize:   -1,
		uncompressedSize: -1,
		filters:          []filter{lzmaFilter{dictSize: 1 << 20}},
	}

	data, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary error %s", err)
	}
	if len(data)%4 != 0 {
		t.Fatalf("block header length %d not a multiple of 4", len(data))
	}

	g, n, err := readBlockHeader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("readBlockHeader error %s", err)
	}
	if n != len(data) {
		t.Fatalf("readBlockHeader consumed %d bytes; want %d", n, len(data))
	}
	if len(g.filters) != 1 || g.filters[0].id() != lzmaFilterID {
		t.Fatalf("unexpected filters %+v", g.filters)
	}
}

func TestBlockHeaderRejectsNonLastLZMA2(t *testing.T) {
	h := &blockHeader{
		filters: []filter{
			lzmaFilter{dictSize: 1 << 20},
			lzmaFilter{dictSize: 1 << 20},
		},
	}
	if _, err := h.MarshalBinary(); err == nil {
		t.Fatalf("MarshalBinary accepted a chain with LZMA2 not last")
	}
}
