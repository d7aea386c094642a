package xz

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// writeSingleBlockStream compresses text with the single-threaded
// writer and returns the full xz Stream bytes plus the Stream Header's
// flags, for tests that want to drive blockDecoder directly against
// real, well-formed input instead of hand-crafted bytes.
func writeSingleBlockStream(t *testing.T, text string) (data []byte, flags byte) {
	t.Helper()
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
	data = buf.Bytes()

	var h streamHeader
	if err := h.UnmarshalBinary(data[:headerLen]); err != nil {
		t.Fatalf("stream header UnmarshalBinary error %s", err)
	}
	return data, h.flags
}

func TestBlockDecoderDecodesSingleBlock(t *testing.T) {
	const text = "The quick brown fox jumps over the lazy dog. " +
		"The quick brown fox jumps over the lazy dog."
	data, flags := writeSingleBlockStream(t, text)

	r := bytes.NewReader(data[headerLen:])
	h, err := newHash(flags)
	if err != nil {
		t.Fatalf("newHash error %s", err)
	}

	var cfg ReaderConfig
	cfg.SetDefaults()

	var bd blockDecoder
	bd.init(r, &cfg, h)

	var out bytes.Buffer
	var tmp [256]byte
	for {
		n, err := bd.Read(tmp[:])
		out.Write(tmp[:n])
		if err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("blockDecoder.Read error %s", err)
		}
	}

	if out.String() != text {
		t.Fatalf("decoded %q; want %q", out.String(), text)
	}

	rec := bd.record()
	if rec.uncompressedSize != int64(len(text)) {
		t.Fatalf("record.uncompressedSize %d; want %d", rec.uncompressedSize, len(text))
	}
	if rec.unpaddedSize <= 0 {
		t.Fatalf("record.unpaddedSize %d; want > 0", rec.unpaddedSize)
	}

	if err := bd.Close(); err != nil {
		t.Fatalf("Close error %s", err)
	}
}

func TestBlockDecoderRejectsSyncFlush(t *testing.T) {
	var bd blockDecoder
	if err := bd.SyncFlush(); !errors.Is(err, ErrOptions) {
		t.Fatalf("SyncFlush error %v; want ErrOptions", err)
	}
}
