package xz

import (
	"bytes"
	"io"
	"testing"
)

func TestStreamHeaderFooterRoundTrip(t *testing.T) {
	const text = "The quick brown fox jumps over the lazy dog."
	var buf bytes.Buffer
	w, err := NewWriterConfig(&buf, WriterConfig{Checksum: CRC64})
	if err != nil {
		t.Fatalf("NewWriterConfig error %s", err)
	}
	if _, err := io.WriteString(w, text); err != nil {
		t.Fatalf("WriteString error %s", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close error %s", err)
	}

	data := buf.Bytes()

	var h streamHeader
	if err := h.UnmarshalBinary(data[:headerLen]); err != nil {
		t.Fatalf("stream header UnmarshalBinary error %s", err)
	}
	if h.check() != CheckCRC64 {
		t.Fatalf("header check = %s; want %s", h.check(), CheckCRC64)
	}

	var f footer
	if err := f.UnmarshalBinary(data[len(data)-footerLen:]); err != nil {
		t.Fatalf("footer UnmarshalBinary error %s", err)
	}
	if f.flags != h.flags {
		t.Fatalf("footer flags %#x; want %#x", f.flags, h.flags)
	}
}
