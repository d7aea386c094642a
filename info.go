package xz

import (
	"errors"
	"io"

	"github.com/xzio/xz/internal/discard"
)

// Walker receives callbacks as Walk inspects an xz Stream's framing. It
// never sees decompressed bytes; StreamHeader/BlockHeader/Index/
// StreamFooter together describe everything Walk can determine without
// running a Block's filter chain to completion.
type Walker interface {
	// StreamHeader is called once per Stream, before its first Block
	// Header.
	StreamHeader(h streamHeader) error
	// BlockHeader is called for every Block in order. headerLen is the
	// number of bytes the Block Header itself occupied on disk.
	BlockHeader(bh blockHeader, headerLen int) error
	// Index is called once per Stream with every Block's index record,
	// in order, after the last Block Header and before StreamFooter.
	Index(records []record) error
	// StreamFooter is called once per Stream, after Index.
	StreamFooter(f footer) error
}

// peeker is the subset of *bufio.Reader Walk needs to tell a Block
// Header from the index indicator byte without consuming it.
type peeker interface {
	io.Reader
	Peek(n int) ([]byte, error)
}

// Flags for Walk.
const (
	// SingleStream tells Walk to stop after the first Stream and treat
	// any trailing bytes other than EOF as an error, instead of
	// scanning for further concatenated Streams.
	SingleStream = 1 << iota
)

// Walk inspects the framing of the xz data read from r, driving w's
// callbacks in Stream order. r must support Peek (e.g. *bufio.Reader),
// since distinguishing a Block Header from the index indicator requires
// looking at the next byte without consuming it.
//
// Walk reads every Block Header but skips each Block's body (compressed
// data, padding and check value) using the discard package's seek-or-
// copy strategy, so memory use stays O(1) regardless of how large a
// Block's declared sizes are. A Block whose compressed or uncompressed
// size is not declared in its header is skipped by running its filter chain and
// discarding the output instead, which stays O(1) extra memory too (a
// single fixed-size scratch buffer) but does cost a full decode pass
// over that one Block.
func Walk(r peeker, w Walker, flags byte) error {
	if flags&SingleStream != 0 {
		if err := walkOneStream(r, w, false); err != nil {
			return err
		}
		var a [1]byte
		if _, err := r.Read(a[:]); err != io.EOF {
			return errors.New(
				"xz: expected EOF at end of single stream")
		}
		return nil
	}

	if err := walkOneStream(r, w, false); err != nil {
		return err
	}
	for {
		if err := walkOneStream(r, w, true); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// walkOneStream drives w over a single Stream: header, every Block,
// index, footer. expectPad allows leading Stream Padding before the
// header, for every Stream after the first in a concatenated sequence.
func walkOneStream(r peeker, w Walker, expectPad bool) error {
	hdr, err := readHeader(r, expectPad)
	if err != nil {
		return err
	}
	if err := w.StreamHeader(*hdr); err != nil {
		return err
	}

	dr := discard.Wrap(r)

	var index []record
	for {
		b, err := r.Peek(1)
		if err != nil {
			return err
		}
		if b[0] == 0 {
			if _, err := r.Read(b[:1]); err != nil {
				return err
			}
			break
		}

		bh, n, err := readBlockHeader(r)
		if err != nil {
			return err
		}
		if err := w.BlockHeader(*bh, n); err != nil {
			return err
		}

		rec, err := skipBlockBody(r, dr, bh, n, hdr.flags)
		if err != nil {
			return err
		}
		index = append(index, rec)
	}

	records, _, err := readIndexBody(r, len(index))
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	for i, rec := range records {
		if rec != index[i] {
			return statusErr(StatusData, "index record does not match block")
		}
	}
	if err := w.Index(records); err != nil {
		return err
	}

	f, err := readFooter(r)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	if f.flags != hdr.flags {
		return errors.New("xz: footer flags incorrect")
	}
	return w.StreamFooter(f)
}

// skipBlockBody advances r past one Block's compressed data, padding and
// check value without decoding it when both sizes are declared in bh,
// using dr.Discard64 so the skip costs no memory proportional to the
// Block's size. When a size is not declared, it falls back to running
// the Block's filter chain and discarding the output, the only way to
// learn where an open-ended Block actually ends. headerLen is the
// number of bytes readBlockHeader already consumed for bh, needed to
// compute the record's unpaddedSize.
func skipBlockBody(r io.Reader, dr discard.Reader, bh *blockHeader, headerLen int, flags byte) (record, error) {
	checkSz := int64(checkKind(flags & 0x0f).Size())

	if bh.compressedSize >= 0 && bh.uncompressedSize >= 0 {
		total := bh.compressedSize + int64(padLen(bh.compressedSize)) + checkSz
		if _, err := dr.Discard64(total); err != nil {
			return record{}, err
		}
		return record{
			unpaddedSize:     int64(headerLen) + bh.compressedSize + checkSz,
			uncompressedSize: bh.uncompressedSize,
		}, nil
	}

	h, err := newHash(flags)
	if err != nil {
		return record{}, err
	}
	var cfg ReaderConfig
	cfg.SetDefaults()
	var bd blockDecoder
	bd.init(r, &cfg, h)
	if err := bd.setHeader(bh, headerLen); err != nil {
		return record{}, err
	}
	var tmp [32 * 1024]byte
	for {
		_, err := bd.Read(tmp[:])
		if err != nil {
			if err == io.EOF {
				break
			}
			return record{}, err
		}
	}
	return bd.record(), nil
}
