package xz

import (
	"bufio"
	"bytes"
	"io"
	"testing"
)

// recordingWalker implements Walker, recording every callback it sees so
// tests can assert on a Stream's framing without decompressing it.
type recordingWalker struct {
	headers      []streamHeader
	blockHeaders []blockHeader
	blockLens    []int
	index        []record
	footers      []footer
}

func (w *recordingWalker) StreamHeader(h streamHeader) error {
	w.headers = append(w.headers, h)
	return nil
}

func (w *recordingWalker) BlockHeader(bh blockHeader, headerLen int) error {
	w.blockHeaders = append(w.blockHeaders, bh)
	w.blockLens = append(w.blockLens, headerLen)
	return nil
}

func (w *recordingWalker) Index(records []record) error {
	w.index = append(w.index, records...)
	return nil
}

func (w *recordingWalker) StreamFooter(f footer) error {
	w.footers = append(w.footers, f)
	return nil
}

func TestWalkSingleBlockKnownSizes(t *testing.T) {
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

	var rw recordingWalker
	if err := Walk(bufio.NewReader(&buf), &rw, 0); err != nil {
		t.Fatalf("Walk error %s", err)
	}

	if len(rw.headers) != 1 {
		t.Fatalf("got %d stream headers; want 1", len(rw.headers))
	}
	if len(rw.blockHeaders) != 1 {
		t.Fatalf("got %d block headers; want 1", len(rw.blockHeaders))
	}
	if len(rw.index) != 1 {
		t.Fatalf("got %d index records; want 1", len(rw.index))
	}
	if rw.index[0].uncompressedSize != int64(len(text)) {
		t.Fatalf("index uncompressedSize %d; want %d",
			rw.index[0].uncompressedSize, len(text))
	}
	if len(rw.footers) != 1 {
		t.Fatalf("got %d stream footers; want 1", len(rw.footers))
	}
}

func TestWalkMultipleBlocksThreaded(t *testing.T) {
	text := make([]byte, 64*1024)
	for i := range text {
		text[i] = byte(i)
	}

	var buf bytes.Buffer
	w, err := NewWriterConfig(&buf, WriterConfig{
		Workers:     4,
		XZBlockSize: 8 << 10,
	})
	if err != nil {
		t.Fatalf("NewWriterConfig error %s", err)
	}
	if _, err := w.Write(text); err != nil {
		t.Fatalf("Write error %s", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close error %s", err)
	}

	var rw recordingWalker
	if err := Walk(bufio.NewReader(&buf), &rw, 0); err != nil {
		t.Fatalf("Walk error %s", err)
	}

	if len(rw.blockHeaders) < 2 {
		t.Fatalf("got %d block headers; want >= 2 for an 8KiB block size over 64KiB input",
			len(rw.blockHeaders))
	}
	if len(rw.blockHeaders) != len(rw.index) {
		t.Fatalf("got %d block headers but %d index records",
			len(rw.blockHeaders), len(rw.index))
	}

	var total int64
	for _, rec := range rw.index {
		total += rec.uncompressedSize
	}
	if total != int64(len(text)) {
		t.Fatalf("index uncompressedSize total %d; want %d", total, len(text))
	}
}

func TestWalkRejectsTrailingGarbageInSingleStreamMode(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter error %s", err)
	}
	io.WriteString(w, "x")
	if err := w.Close(); err != nil {
		t.Fatalf("Close error %s", err)
	}
	buf.WriteByte(0xff)

	var rw recordingWalker
	err = Walk(bufio.NewReader(&buf), &rw, SingleStream)
	if err == nil {
		t.Fatalf("Walk succeeded with trailing garbage; want an error")
	}
}
