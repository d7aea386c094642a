package xz

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// record describes one Block in an xz Stream's index: its unpadded
// size (header, compressed data and check, without Block Padding) and
// its uncompressed size.
type record struct {
	unpaddedSize     int64
	uncompressedSize int64
}

// paddedLen returns the size record.unpaddedSize occupies on disk once
// padded to a four-byte boundary.
func (rec record) paddedLen() int64 {
	n := rec.unpaddedSize
	if k := n % 4; k != 0 {
		n += 4 - k
	}
	return n
}

// readFrom reads the record from the byte reader.
func (rec *record) readFrom(r io.ByteReader) (n int, err error) {
	u, k, err := readVLI(r)
	n += k
	if err != nil {
		return n, err
	}
	rec.unpaddedSize = int64(u)

	u, k, err = readVLI(r)
	n += k
	if err != nil {
		return n, err
	}
	rec.uncompressedSize = int64(u)

	return n, nil
}

// MarshalBinary converts an index record into its binary encoding.
func (rec *record) MarshalBinary() (data []byte, err error) {
	p := make([]byte, 2*maxVLIBytes)
	n := putVLI(p, uint64(rec.unpaddedSize))
	n += putVLI(p[n:], uint64(rec.uncompressedSize))
	return p[:n], nil
}

// writeIndex writes the index: the indicator byte, record count, the
// records themselves, zero padding to a four-byte boundary, and a
// trailing CRC32.
func writeIndex(w io.Writer, index []record) (n int, err error) {
	crc := crc32.NewIEEE()
	mw := io.MultiWriter(w, crc)

	k, err := mw.Write([]byte{0})
	n += k
	if err != nil {
		return n, err
	}

	p := make([]byte, maxVLIBytes)
	k = putVLI(p, uint64(len(index)))
	k, err = mw.Write(p[:k])
	n += k
	if err != nil {
		return n, err
	}

	for _, rec := range index {
		data, err := rec.MarshalBinary()
		if err != nil {
			return n, err
		}
		k, err = mw.Write(data)
		n += k
		if err != nil {
			return n, err
		}
	}

	if k = n % 4; k > 0 {
		k, err = mw.Write(make([]byte, 4-k))
		n += k
		if err != nil {
			return n, err
		}
	}

	putUint32LE(p, crc.Sum32())
	k, err = w.Write(p[:4])
	n += k

	return n, err
}

// bReader adapts an io.Reader to io.ByteReader one byte at a time.
type bReader struct {
	io.Reader
	p []byte
}

func (br *bReader) ReadByte() (c byte, err error) {
	n, err := br.Read(br.p)
	if n == 1 {
		return br.p[0], nil
	}
	if err == nil {
		return 0, errors.New("xz: no data")
	}
	return 0, err
}

// byteReader converts r into an io.ByteReader, reusing r's own
// ReadByte if it already implements one.
func byteReader(r io.Reader) io.ByteReader {
	if br, ok := r.(io.ByteReader); ok {
		return br
	}
	return &bReader{r, make([]byte, 1)}
}

// readIndexBody reads the index from r, assuming the index indicator
// byte (0x00) has already been consumed. want, if >= 0, is the number
// of records the caller expects (from counting Blocks while decoding);
// a mismatch is reported immediately rather than after reading however
// many records the stream claims to have.
func readIndexBody(r io.Reader, want int) (records []record, n int, err error) {
	crc := crc32.NewIEEE()
	crc.Write([]byte{0})

	br := byteReader(io.TeeReader(r, crc))

	u, k, err := readVLI(br)
	n += k
	if err != nil {
		return nil, n, err
	}
	recLen := int(u)
	if recLen < 0 || uint64(recLen) != u {
		return nil, n, errors.New("xz: record number overflow")
	}
	if want >= 0 && recLen != want {
		return nil, n, fmt.Errorf("xz: index has %d records; want %d", recLen, want)
	}

	records = make([]record, recLen)
	for i := range records {
		k, err = records[i].readFrom(br)
		n += k
		if err != nil {
			return records[:i], n, err
		}
	}

	if k = (n + 1) % 4; k > 0 {
		k = 4 - k
		for i := 0; i < k; i++ {
			c, err := br.ReadByte()
			if err != nil {
				return records, n, err
			}
			n++
			if c != 0 {
				return records, n, errors.New("xz: non-zero byte in index padding")
			}
		}
	}

	s := crc.Sum32()
	p := make([]byte, 4)
	k, err = io.ReadFull(br.(io.Reader), p)
	n += k
	if err != nil {
		return records, n, err
	}
	if uint32LE(p) != s {
		return records, n, errors.New("xz: wrong checksum for index")
	}

	return records, n, nil
}

// indexHash accumulates an index incrementally, the way the
// multithreaded decoder must: one Block's record at a time, without
// ever materializing the whole []record slice. It mirrors
// lzma_index_hash_append/lzma_index_hash_decode's role, expressed as a
// running CRC32 fed the same record bytes writeIndex would have
// produced, relying on readVLI's rejection of non-canonical VLIs to
// guarantee that re-marshaling a record read back off disk reproduces
// the exact bytes decoding originally appended.
type indexHash struct {
	crc        hash32 // running CRC32 over record bytes only, append order
	blockCount int64
	indexSize  int64 // record bytes contributed so far (no indicator, no count)
}

// hash32 is the subset of hash.Hash32 indexHash needs; kept narrow so
// tests can substitute a fake.
type hash32 interface {
	io.Writer
	Sum32() uint32
}

func newIndexHash() *indexHash {
	return &indexHash{crc: crc32.NewIEEE()}
}

// append folds one Block's record into the running hash, mirroring
// what a freshly decoded Block contributes to the Stream's index.
func (h *indexHash) append(rec record) {
	data, _ := rec.MarshalBinary()
	h.crc.Write(data)
	h.indexSize += int64(len(data))
	h.blockCount++
}

// encodedSize returns the size, in bytes, the index occupies on disk:
// indicator byte, record count VLI, every record, zero padding to a
// four-byte boundary, and the trailing CRC32. Called only once all
// Blocks are known, so the count VLI is sized here rather than kept in
// the running hash.
func (h *indexHash) encodedSize() int64 {
	p := make([]byte, maxVLIBytes)
	countLen := putVLI(p, uint64(h.blockCount))
	size := int64(1+countLen) + h.indexSize
	if k := size % 4; k != 0 {
		size += 4 - k
	}
	return size + 4 // trailing CRC32
}

// verify reads the on-disk index from r (indicator byte already
// consumed) and checks it against the running hash without ever
// materializing the full record slice: the record count must match
// blockCount, a CRC32 recomputed over the on-disk records — read and
// re-marshaled one at a time into a single reused record — must equal
// the CRC32 accumulated via append, and the index's own trailing CRC32
// must match its indicator+count+records+padding, exactly as
// readIndexBody checks for the single-threaded reader. Memory use is
// one record and a couple of CRC32 accumulators, independent of the
// number of Blocks in the Stream.
func (h *indexHash) verify(r io.Reader) error {
	full := crc32.NewIEEE()
	full.Write([]byte{0})
	br := byteReader(io.TeeReader(r, full))

	u, n, err := readVLI(br)
	if err != nil {
		return err
	}
	if int64(u) != h.blockCount {
		return statusErr(StatusData,
			fmt.Sprintf("index has %d records; want %d", u, h.blockCount))
	}

	recs := crc32.NewIEEE()
	var rec record
	for i := int64(0); i < h.blockCount; i++ {
		k, err := rec.readFrom(br)
		n += k
		if err != nil {
			return err
		}
		data, _ := rec.MarshalBinary()
		recs.Write(data)
	}
	if recs.Sum32() != h.crc.Sum32() {
		return statusErr(StatusData, "index does not match decoded blocks")
	}

	if k := (n + 1) % 4; k > 0 {
		k = 4 - k
		for i := 0; i < k; i++ {
			c, err := br.ReadByte()
			if err != nil {
				return err
			}
			n++
			if c != 0 {
				return statusErr(StatusData, "non-zero byte in index padding")
			}
		}
	}

	s := full.Sum32()
	p := make([]byte, 4)
	if _, err := io.ReadFull(br.(io.Reader), p); err != nil {
		return err
	}
	if uint32LE(p) != s {
		return statusErr(StatusData, "wrong checksum for index")
	}
	return nil
}

// readTailHash reads the index body and the Stream Footer the way
// readTail does for the single-threaded reader, but verifies the index
// against an indexHash accumulated incrementally during decoding
// instead of a materialized []record, the multithreaded decoder's O(1)
// memory counterpart.
func readTailHash(xz io.Reader, ih *indexHash, flags byte) error {
	if err := ih.verify(xz); err != nil {
		return err
	}

	p := make([]byte, footerLen)
	if _, err := io.ReadFull(xz, p); err != nil {
		return truncated(err)
	}
	var f footer
	if err := f.UnmarshalBinary(p); err != nil {
		return err
	}
	if f.flags != flags {
		return errors.New("xz: footer flags incorrect")
	}
	if f.indexSize != ih.encodedSize() {
		return errors.New("xz: index size in footer wrong")
	}
	return nil
}
