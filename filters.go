package xz

import (
	"errors"
	"io"
)

// Constants used for marshalling and unmarshalling filters in the xz
// block header.
const (
	minFilters    = 1
	maxFilters    = 4
	minReservedID = 1 << 62
)

// filter represents one member of a Block's filter chain. lzmaFilter is
// the only filter allowed to be the chain's last (and compressing)
// member; deltaFilter and the bcjFilter family may only appear before
// it.
type filter interface {
	id() uint64
	MarshalBinary() (data []byte, err error)
	UnmarshalBinary(data []byte) error

	// last reports whether this filter is allowed to be the last
	// (compressing) member of a chain.
	last() bool

	// reader wraps r with this filter's decoding transform. For the
	// last filter in the chain, cfg selects the LZMA2 reader's
	// parallelism; prefilters ignore cfg.
	reader(r io.Reader, cfg *ReaderConfig) (io.ReadCloser, error)

	// writeCloser wraps w with this filter's encoding transform.
	writeCloser(w io.WriteCloser, cfg *WriterConfig) (io.WriteCloser, error)

	// memSize estimates the decoder-side memory this filter instance
	// needs, for the output queue's admission accounting.
	memSize() uint64
}

// Filter ids, as assigned by the xz format. Only the last filter
// (lzmaFilterID) performs the actual compression; the others are
// reversible byte-stream transforms applied before it.
const (
	idDelta    uint64 = 0x03
	idBCJX86   uint64 = 0x04
	idBCJPPC   uint64 = 0x05
	idBCJIA64  uint64 = 0x06
	idBCJARM   uint64 = 0x07
	idBCJARMT  uint64 = 0x08
	idBCJSPARC uint64 = 0x09
	idBCJARM64 uint64 = 0x0a
)

var errFilterChain = errors.New("xz: illegal filter chain")

// verifyFilters checks the 1-4 filter count and last-filter-is-LZMA2
// rules spec.md requires of every Block Header and WriterConfig filter
// chain.
func verifyFilters(f []filter) error {
	if !(minFilters <= len(f) && len(f) <= maxFilters) {
		return errFilterChain
	}
	for i, flt := range f {
		isLast := i == len(f)-1
		if flt.last() != isLast {
			return errFilterChain
		}
	}
	return nil
}

// readFilter reads a single filter record from the block header.
func readFilter(r io.Reader) (f filter, err error) {
	br := byteReader(r)

	id, _, err := readVLI(br)
	if err != nil {
		return nil, err
	}

	switch id {
	case lzmaFilterID:
		f = new(lzmaFilter)
	case idDelta:
		f = new(deltaFilter)
	case idBCJX86, idBCJPPC, idBCJIA64, idBCJARM, idBCJARMT, idBCJSPARC, idBCJARM64:
		f = &bcjFilter{kind: id}
	default:
		if id >= minReservedID {
			return nil, statusErr(StatusOptions, "reserved filter id in block header")
		}
		return nil, statusErr(StatusOptions, "unknown filter id")
	}

	size, _, err := readVLI(br)
	if err != nil {
		return nil, err
	}
	data := make([]byte, vliLen(id)+vliLen(size)+int(size))
	k := putVLI(data, id)
	k += putVLI(data[k:], size)
	if _, err = io.ReadFull(r, data[k:]); err != nil {
		return nil, err
	}
	if err = f.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return f, nil
}

// readFilters reads count filter records from the block header.
func readFilters(r io.Reader, count int) (filters []filter, err error) {
	if !(minFilters <= count && count <= maxFilters) {
		return nil, statusErr(StatusOptions, "unsupported filter count")
	}
	filters = make([]filter, count)
	for i := range filters {
		filters[i], err = readFilter(r)
		if err != nil {
			return nil, err
		}
	}
	return filters, nil
}

// writeFilters writes the filters in chain order.
func writeFilters(w io.Writer, filters []filter) (n int, err error) {
	for _, f := range filters {
		p, err := f.MarshalBinary()
		if err != nil {
			return n, err
		}
		k, err := w.Write(p)
		n += k
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// newFilterReader builds the full decoding chain for a Block, last
// filter innermost, per cfg.
func (cfg *ReaderConfig) newFilterReader(r io.Reader, f []filter) (fr io.ReadCloser, err error) {
	if err = verifyFilters(f); err != nil {
		return nil, err
	}

	fr = io.NopCloser(r)
	for i := len(f) - 1; i >= 0; i-- {
		fr, err = f[i].reader(fr, cfg)
		if err != nil {
			return nil, err
		}
	}
	return fr, nil
}

// newFilterWriteCloser builds the full encoding chain for a Block, last
// filter innermost, per cfg.
func (cfg *WriterConfig) newFilterWriteCloser(w io.WriteCloser, f []filter) (fw io.WriteCloser, err error) {
	if err = verifyFilters(f); err != nil {
		return nil, err
	}

	fw = w
	for i := len(f) - 1; i >= 0; i-- {
		fw, err = f[i].writeCloser(fw, cfg)
		if err != nil {
			return nil, err
		}
	}
	return fw, nil
}
