package xz

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/xzio/xz/randtxt"
)

func TestMTReaderRoundTripThreaded(t *testing.T) {
	const txtlen = 64 * 1024
	var txtbuf bytes.Buffer
	io.CopyN(&txtbuf, randtxt.NewReader(rand.NewSource(7)), txtlen)
	txt := txtbuf.String()

	var buf bytes.Buffer
	w, err := NewWriterConfig(&buf, WriterConfig{
		Workers:     4,
		XZBlockSize: 8 << 10,
	})
	if err != nil {
		t.Fatalf("NewWriterConfig error %s", err)
	}
	if _, err := io.WriteString(w, txt); err != nil {
		t.Fatalf("WriteString error %s", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close error %s", err)
	}

	mr, err := NewMTReader(&buf, MTReaderConfig{Workers: 4})
	if err != nil {
		t.Fatalf("NewMTReader error %s", err)
	}

	var out bytes.Buffer
	if _, err := io.Copy(&out, mr); err != nil {
		t.Fatalf("io.Copy error %s", err)
	}
	if err := mr.Close(); err != nil {
		t.Fatalf("mr.Close error %s", err)
	}

	if out.String() != txt {
		t.Fatalf("decoded %d bytes; want %d bytes (content mismatch)",
			out.Len(), len(txt))
	}

	in, outN := mr.Progress()
	if outN != int64(len(txt)) {
		t.Fatalf("Progress() out=%d; want %d", outN, len(txt))
	}
	if in <= 0 {
		t.Fatalf("Progress() in=%d; want > 0", in)
	}
}

func TestMTReaderRoundTripSingleWorker(t *testing.T) {
	const text = "The quick brown fox jumps over the lazy dog."
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter error %s", err)
	}
	if _, err := io.WriteString(w, text); err != nil {
		t.Fatalf("WriteString error %s", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close error %s", err)
	}

	mr, err := NewMTReader(&buf, MTReaderConfig{Workers: 1})
	if err != nil {
		t.Fatalf("NewMTReader error %s", err)
	}
	var out bytes.Buffer
	if _, err := io.Copy(&out, mr); err != nil {
		t.Fatalf("io.Copy error %s", err)
	}
	if out.String() != text {
		t.Fatalf("decoded %q; want %q", out.String(), text)
	}
}

func TestMTReaderCheckReportsKind(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriterConfig(&buf, WriterConfig{Checksum: CRC32})
	if err != nil {
		t.Fatalf("NewWriterConfig error %s", err)
	}
	io.WriteString(w, "x")
	if err := w.Close(); err != nil {
		t.Fatalf("Close error %s", err)
	}

	mr, err := NewMTReader(&buf, MTReaderConfig{})
	if err != nil {
		t.Fatalf("NewMTReader error %s", err)
	}
	io.Copy(io.Discard, mr)

	c, err := mr.Check()
	if err != nil {
		t.Fatalf("Check error %s", err)
	}
	if c != CheckCRC32 {
		t.Fatalf("Check() = %v; want CheckCRC32", c)
	}
}
