// Copyright 2014-2022 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xz supports the compression and decompression of xz files. It
// supports version 1.1.0 of the specification, including the delta and
// BCJ filters. See http://tukaani.org/xz/xz-file-format-1.1.0.txt
package xz

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/xzio/xz/lzma"
)

var errReaderClosed = errors.New("xz: reader closed")
var errUnexpectedData = errors.New("xz: unexpected Data after stream")

// ReaderConfig defines the parameters for the xz reader. The SingleStream
// parameter requests the reader to assume that the underlying stream contains
// only a single stream without padding.
//
// The reader created by NewReaderConfig decodes Blocks one after another;
// MTReader, configured by MTReaderConfig, decodes Blocks concurrently.
type ReaderConfig struct {
	LZMA lzma.Reader2Config

	// SingleStream indicates that the underlying io.Reader contains only a
	// single xz Stream with no Stream Padding following it.
	SingleStream bool

	// Workers defines the number of LZMA2 decoding workers used when
	// LZMAParallel is set. The default is GOMAXPROCS.
	Workers int

	// LZMAParallel requests that a Block's LZMA2 filter itself be
	// dictionary-parallelized across LZMAWorkSize-sized chunks, the way
	// lzma.Reader2Config does for a standalone .lzma2 stream. Ignored for
	// Blocks with non-LZMA2 tail filters.
	LZMAParallel bool

	// LZMAWorkSize sets the chunk size used when LZMAParallel is set. Zero
	// selects a library default.
	LZMAWorkSize int

	// MemlimitThreading is not read by the reader NewReaderConfig
	// creates, which never decodes Blocks in parallel; the limit used by
	// MTReader is MTReaderConfig.MemlimitThreading.
	MemlimitThreading uint64

	// Memlimit is not read by the reader NewReaderConfig creates, which
	// enforces no memory limit; the limit used by MTReader is
	// MTReaderConfig.Memlimit.
	Memlimit uint64
}

// SetDefaults fills in zero-valued fields with their defaults.
func (cfg *ReaderConfig) SetDefaults() {
	cfg.LZMA.SetDefaults()
	if cfg.Workers == 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
}

// Verify checks the reader parameters for Validity.
func (cfg *ReaderConfig) Verify() error {
	if cfg == nil {
		return errors.New("xz: reader parameters are nil")
	}

	if err := cfg.LZMA.Verify(); err != nil {
		return err
	}

	if cfg.Workers < 1 {
		return errors.New("xz: reader workers must be >= 1")
	}

	return nil
}

type streamReader interface {
	io.ReadCloser
	reset(hdr *header) error
}

// reader supports the reading of one or multiple xz streams.
type reader struct {
	cfg ReaderConfig

	xz io.Reader
	sr streamReader

	err error
}

// NewReader creates an io.ReadCloser. The function should never fail.
func NewReader(xz io.Reader) (r io.ReadCloser, err error) {
	r, err = NewReaderConfig(xz, ReaderConfig{})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func NewReaderConfig(xz io.Reader, cfg ReaderConfig) (r io.ReadCloser, err error) {
	cfg.SetDefaults()
	if err = cfg.Verify(); err != nil {
		return nil, err
	}

	rp := &reader{cfg: cfg}

	// for the single thread reader we are buffering
	rp.xz = bufio.NewReader(xz)
	rp.sr = newSingleThreadStreamReader(rp.xz, &rp.cfg)

	// read header without padding
	hdr, err := readHeader(rp.xz, false)
	if err != nil {
		return nil, err
	}
	if err = rp.sr.reset(hdr); err != nil {
		return nil, err
	}
	return rp, err
}

func (r *reader) Read(p []byte) (n int, err error) {
	if r.err != nil {
		return 0, r.err
	}
	for n < len(p) {
		k, err := r.sr.Read(p[n:])
		n += k
		if err != nil {
			if err == io.EOF {
				if err = r.sr.Close(); err != nil {
					r.err = err
					return n, err
				}
				if r.cfg.SingleStream {
					var q [1]byte
					_, err = io.ReadFull(r.xz, q[:1])
					if err == nil {
						err = errUnexpectedData
					} else if err == io.ErrUnexpectedEOF {
						err = io.EOF
					}
					r.err = err
					return n, err
				}
				// read header with padding
				hdr, err := readHeader(r.xz, true)
				if err != nil {
					r.err = err
					return n, err
				}
				if err = r.sr.reset(hdr); err != nil {
					r.err = err
					return n, err
				}
				continue
			}
			r.err = err
			return n, err
		}
	}
	return n, nil
}

func (r *reader) Close() error {
	if r.err == errReaderClosed {
		return errReaderClosed
	}
	if err := r.sr.Close(); err != nil && err != errReaderClosed {
		r.err = err
		return err
	}
	r.err = errReaderClosed
	return nil
}

type stReader struct {
	cfg *ReaderConfig
	xz  io.Reader

	br    blockDecoder
	index []record
	flags byte

	err error
}

func newSingleThreadStreamReader(xz io.Reader, cfg *ReaderConfig) streamReader {
	return &stReader{cfg: cfg, xz: xz}
}

func (sr *stReader) reset(hdr *header) error {
	h, err := newHash(hdr.flags)
	if err != nil {
		return err
	}
	*sr = stReader{
		cfg:   sr.cfg,
		xz:    sr.xz,
		flags: hdr.flags,
	}
	sr.br.init(sr.xz, sr.cfg, h)
	return nil
}

func (sr *stReader) Read(p []byte) (n int, err error) {
	if sr.err != nil {
		return 0, sr.err
	}
	for n < len(p) {
		k, err := sr.br.Read(p[n:])
		n += k
		if err != nil {
			if err == io.EOF {
				sr.index = append(sr.index, sr.br.record())
				if err = sr.br.Close(); err != nil {
					sr.err = err
					return n, err
				}
				sr.br.reset()
				continue
			}
			if err == errIndexIndicator {
				err = readTail(sr.xz, sr.index, sr.flags)
				if err != nil {
					sr.err = err
					return n, err
				}
				err = io.EOF
			}
			sr.err = err
			return n, err
		}
	}

	return n, nil
}

func (sr *stReader) Close() error {
	if sr.err == errReaderClosed {
		return errReaderClosed
	}
	if err := sr.br.Close(); err != nil {
		sr.err = err
		return err
	}
	sr.err = errReaderClosed
	return nil
}

// readHeader reads header from the reader and skips padding if the padding
// argument is true. A possible outcome is io. EOF. If there is a problem with
// the padding errPadding is returned.
func readHeader(r io.Reader, padding bool) (hdr *header, err error) {
	p := make([]byte, HeaderLen)
	if padding {
	loop:
		for {
			n, err := io.ReadFull(r, p)
			if err != nil {
				if err == io.ErrUnexpectedEOF {
					if allZeros(p[:n]) {
						if n%4 != 0 {
							return nil, errPadding
						}
						return nil, io.EOF
					}
				}
				return nil, err
			}
			for i, b := range p {
				if b != 0 {
					if i == 0 {
						break loop
					}
					if i%4 != 0 {
						return nil, errPadding
					}
					n = copy(p, p[i:])
					_, err = io.ReadFull(r, p[n:])
					if err != nil {
						return nil, err
					}
					break loop
				}
			}
		}
	} else {
		_, err = io.ReadFull(r, p)
		if err != nil {
			return nil, err
		}
	}
	hdr = new(header)
	if err = hdr.UnmarshalBinary(p); err != nil {
		return nil, err
	}
	return hdr, nil
}

// readTail reads the index body and the xz footer.
func readTail(xz io.Reader, rindex []record, flags byte) error {
	index, n, err := readIndexBody(xz, len(rindex))
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}

	for i, rec := range index {
		if rec != rindex[i] {
			return fmt.Errorf("xz: record %d is %v; want %v",
				i, rec, rindex[i])
		}
	}

	p := make([]byte, footerLen)
	if _, err = io.ReadFull(xz, p); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	var f footer
	if err = f.UnmarshalBinary(p); err != nil {
		return err
	}
	if f.flags != flags {
		return errors.New("xz: footer flags incorrect")
	}
	if f.indexSize != int64(n)+1 {
		return errors.New("xz: index size in footer wrong")
	}
	return nil
}
