package xz

import (
	"bytes"
	"testing"
)

func TestRecordReadWrite(t *testing.T) {
	r := record{1234567, 10000}
	data, err := r.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary error %s", err)
	}
	buf := bytes.NewBuffer(data)
	var g record
	if _, err := g.readFrom(buf); err != nil {
		t.Fatalf("readFrom error %s", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("buffer still has %d bytes", buf.Len())
	}
	if g.unpaddedSize != r.unpaddedSize {
		t.Fatalf("got unpaddedSize %d; want %d", g.unpaddedSize, r.unpaddedSize)
	}
	if g.uncompressedSize != r.uncompressedSize {
		t.Fatalf("got uncompressedSize %d; want %d", g.uncompressedSize, r.uncompressedSize)
	}
}

func TestIndexRoundTrip(t *testing.T) {
	records := []record{{100, 500}, {4, 0}, {1 << 20, 1 << 24}}
	var buf bytes.Buffer
	if _, err := writeIndex(&buf, records); err != nil {
		t.Fatalf("writeIndex error %s", err)
	}

	ind := buf.Bytes()
	if ind[0] != 0 {
		t.Fatalf("index indicator byte = %#x; want 0", ind[0])
	}

	got, _, err := readIndexBody(bytes.NewReader(ind[1:]), len(records))
	if err != nil {
		t.Fatalf("readIndexBody error %s", err)
	}
	if len(got) != len(records) {
		t.Fatalf("got %d records; want %d", len(got), len(records))
	}
	for i, rec := range got {
		if rec != records[i] {
			t.Fatalf("record %d = %+v; want %+v", i, rec, records[i])
		}
	}
}

func TestIndexHashVerify(t *testing.T) {
	records := []record{{100, 500}, {4, 0}}

	h := newIndexHash()
	for _, rec := range records {
		h.append(rec)
	}

	var buf bytes.Buffer
	if _, err := writeIndex(&buf, records); err != nil {
		t.Fatalf("writeIndex error %s", err)
	}

	if err := h.verify(bytes.NewReader(buf.Bytes()[1:])); err != nil {
		t.Fatalf("indexHash.verify error %s", err)
	}
}

func TestIndexHashVerifyMismatch(t *testing.T) {
	h := newIndexHash()
	h.append(record{100, 500})

	var buf bytes.Buffer
	// on-disk index disagrees with what was appended above.
	if _, err := writeIndex(&buf, []record{{100, 999}}); err != nil {
		t.Fatalf("writeIndex error %s", err)
	}

	if err := h.verify(bytes.NewReader(buf.Bytes()[1:])); err == nil {
		t.Fatalf("indexHash.verify did not detect mismatch")
	}
}
