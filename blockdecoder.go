package xz

import (
	"bytes"
	"errors"
	"hash"
	"io"

	"github.com/xzio/xz/internal/stream"
)

// blockDecoder decodes a single Block: it drives the Block's filter
// chain (C3) over the compressed bytes that follow the Block Header,
// accumulates the Stream's integrity check over the decompressed
// bytes, and on completion verifies consumed/produced sizes against
// whatever the Block Header declared plus the trailing check value.
//
// It is driven the way a teacher blockReader always was, by repeated
// Read calls terminated by io.EOF; Run and Finish are thin aliases
// naming that same protocol the way spec.md's action enum does.
// SyncFlush is rejected: none of the filters this registry supports
// (LZMA2, delta, the BCJ family) implements partial flushing.
type blockDecoder struct {
	cfg *ReaderConfig

	hash hash.Hash

	header    *blockHeader
	headerLen int

	xz           io.Reader
	cxz          stream.Streamer
	fr           io.ReadCloser
	r            io.Reader
	uncompressed int64

	err error
}

func (bd *blockDecoder) init(xz io.Reader, cfg *ReaderConfig, h hash.Hash) {
	*bd = blockDecoder{
		cfg:  cfg,
		xz:   xz,
		hash: h,
	}
	h.Reset()
}

func (bd *blockDecoder) reset() {
	*bd = blockDecoder{
		cfg:  bd.cfg,
		xz:   bd.xz,
		hash: bd.hash,
	}
	bd.hash.Reset()
}

func (bd *blockDecoder) setHeader(hdr *blockHeader, hdrLen int) error {
	if bd.err != nil {
		return bd.err
	}
	if bd.header != nil {
		return errors.New("xz: header already set")
	}
	bd.header = hdr
	bd.headerLen = hdrLen

	bd.cxz = stream.Wrap(bd.xz)

	var err error
	bd.fr, err = bd.cfg.newFilterReader(bd.cxz, hdr.filters)
	if err != nil {
		bd.err = err
		return err
	}
	if bd.hash.Size() != 0 {
		bd.r = io.TeeReader(bd.fr, bd.hash)
	} else {
		bd.r = bd.fr
	}

	return nil
}

// unpaddedSize computes the unpadded size for the block.
func (bd *blockDecoder) unpaddedSize() int64 {
	n := int64(bd.headerLen)
	n += bd.cxz.Offset()
	n += int64(bd.hash.Size())
	return n
}

// record returns the index record for the current block.
func (bd *blockDecoder) record() record {
	return record{bd.unpaddedSize(), bd.uncompressed}
}

var errUnexpectedEndOfBlock = errors.New("xz: unexpected end of block")

// Read decodes into p, reading and parsing the Block Header on the
// first call. It returns io.EOF once the Block's trailing padding and
// check value have been read and verified.
func (bd *blockDecoder) Read(p []byte) (n int, err error) {
	if bd.err != nil {
		return 0, bd.err
	}

	if bd.header == nil {
		hdr, hdrLen, err := readBlockHeader(bd.xz)
		if err != nil {
			bd.err = err
			return 0, err
		}
		if err = bd.setHeader(hdr, hdrLen); err != nil {
			bd.err = err
			return 0, err
		}
	}

	n, err = bd.r.Read(p)
	bd.uncompressed += int64(n)

	u := bd.header.uncompressedSize
	if u >= 0 && bd.uncompressed > u {
		bd.err = statusErr(StatusData, "wrong uncompressed size for block")
		return n, bd.err
	}
	c := bd.header.compressedSize
	if c >= 0 && bd.cxz.Offset() > c {
		bd.err = statusErr(StatusData, "wrong compressed size for block")
		return n, bd.err
	}
	if err != io.EOF {
		if err != nil {
			bd.err = err
		}
		return n, err
	}

	// EOF of the filter chain.
	if bd.uncompressed < u || bd.cxz.Offset() < c {
		bd.err = errUnexpectedEndOfBlock
		return n, bd.err
	}

	s := bd.hash.Size()
	k := padLen(bd.cxz.Offset())
	q := make([]byte, k+s, k+2*s)
	if _, err = io.ReadFull(bd.xz, q); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		bd.err = err
		return n, err
	}
	if !allZeros(q[:k]) {
		bd.err = statusErr(StatusData, "non-zero block padding")
		return n, bd.err
	}
	checkSum := q[k:]
	computedSum := bd.hash.Sum(checkSum[s:])
	if !bd.ignoreCheck() && !bytes.Equal(checkSum, computedSum) {
		bd.err = statusErr(StatusData, "checksum error for block")
		return n, bd.err
	}

	bd.err = io.EOF
	return n, io.EOF
}

func (bd *blockDecoder) ignoreCheck() bool {
	return bd.header != nil && bd.header.ignoreCheck
}

// Run decodes the next chunk into p; an alias for Read naming spec.md's
// Run action.
func (bd *blockDecoder) Run(p []byte) (n int, err error) { return bd.Read(p) }

// Finish drains the Block to completion, discarding any remaining
// decoded bytes; callers that want the trailing bytes should keep
// calling Read/Run until io.EOF instead.
func (bd *blockDecoder) Finish() error {
	var buf [32 * 1024]byte
	for {
		_, err := bd.Read(buf[:])
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// SyncFlush is not supported by any filter in this registry (LZMA2,
// delta, the BCJ family); asking for it is an option error, not a
// silent no-op.
func (bd *blockDecoder) SyncFlush() error {
	return statusErr(StatusOptions, "block decoder does not support sync flush")
}

// Close closes the block decoder and its filter chain.
func (bd *blockDecoder) Close() error {
	if bd.err == errReaderClosed {
		return errReaderClosed
	}
	if bd.fr != nil {
		if err := bd.fr.Close(); err != nil {
			bd.err = err
			return err
		}
	}
	bd.err = errReaderClosed
	return nil
}
