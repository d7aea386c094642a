package xz

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

/*** Stream Header ***/

// headerMagic stores the magic bytes for the stream header.
var headerMagic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

// headerLen defines the length of the stream header.
const headerLen = 12

// HeaderLen is the public name for the stream header length, exported
// for callers implementing their own framing-aware tooling (e.g. an
// inspector seeking over Stream boundaries).
const HeaderLen = headerLen

// streamFlagsLen is the length, in bytes, of the two-byte stream flags
// field stored in both the header and the footer.
const streamFlagsLen = 2

// errInvalidFlags indicates that reserved bits of the stream flags are
// set.
var errInvalidFlags = errors.New("xz: invalid flags")

// verifyFlags returns errInvalidFlags if the reserved upper nibble of
// flags is non-zero. Reserved check kinds in the lower nibble pass.
func verifyFlags(flags byte) error {
	c := checkKind(flags & 0x0f)
	if flags&0xf0 != 0 {
		return errInvalidFlags
	}
	if int(c) >= len(checkSizes) {
		return errInvalidFlags
	}
	return nil
}

// streamHeader provides the actual content of the xz stream header: the
// flags, which name the Stream's integrity check kind.
type streamHeader struct {
	flags byte
}

// header is an alias kept for the single-threaded reader's existing
// call sites; streamHeader is the canonical name used by new code.
type header = streamHeader

// Errors returned while reading a stream header.
var (
	errPadding     = errors.New("xz: found padding")
	errHeaderMagic = errors.New("xz: invalid header magic bytes")
)

// check returns the integrity check kind this header's flags select.
func (h *streamHeader) check() checkKind { return checkKind(h.flags & 0x0f) }

// UnmarshalBinary reads the stream header from the provided data slice.
func (h *streamHeader) UnmarshalBinary(data []byte) error {
	if len(data) != headerLen {
		return errors.New("xz: wrong stream header length")
	}

	if !bytes.Equal(headerMagic, data[:6]) {
		return errHeaderMagic
	}

	crc := crc32.NewIEEE()
	crc.Write(data[6:8])
	if uint32LE(data[8:]) != crc.Sum32() {
		return errors.New("xz: invalid checksum for stream header")
	}

	if data[6] != 0 {
		return errInvalidFlags
	}
	flags := data[7]
	if err := verifyFlags(flags); err != nil {
		return err
	}

	h.flags = flags
	return nil
}

// UnmarshalReader reads and unmarshals a stream header directly from r.
func (h *streamHeader) UnmarshalReader(r io.Reader) error {
	p := make([]byte, headerLen)
	if _, err := io.ReadFull(r, p); err != nil {
		return err
	}
	return h.UnmarshalBinary(p)
}

// MarshalBinary generates the xz stream header.
func (h *streamHeader) MarshalBinary() (data []byte, err error) {
	if err = verifyFlags(h.flags); err != nil {
		return nil, err
	}

	data = make([]byte, headerLen)
	copy(data, headerMagic)
	data[7] = h.flags

	crc := crc32.NewIEEE()
	crc.Write(data[6:8])
	putUint32LE(data[8:], crc.Sum32())

	return data, nil
}

func (h streamHeader) String() string {
	return fmt.Sprintf("stream header, check %s", h.check())
}

/*** Stream Footer ***/

// footerLen defines the length of the stream footer.
const footerLen = 12

// footerMagic contains the footer magic bytes.
var footerMagic = []byte{'Y', 'Z'}

// footer represents the content of the xz stream footer.
type footer struct {
	indexSize int64
	flags     byte
}

// Minimum and maximum values for the index size in bytes; the footer
// stores it as the backward size (the index size divided by four,
// minus one).
const (
	minIndexSize = 4
	maxIndexSize = (1 << 32) * 4
)

// MarshalBinary converts a footer value into an xz stream footer.
func (f *footer) MarshalBinary() (data []byte, err error) {
	if err = verifyFlags(f.flags); err != nil {
		return nil, err
	}
	if !(minIndexSize <= f.indexSize && f.indexSize <= maxIndexSize) {
		return nil, errors.New("xz: index size out of range")
	}
	if f.indexSize%4 != 0 {
		return nil, errors.New("xz: index size not aligned to four bytes")
	}

	data = make([]byte, footerLen)

	s := (f.indexSize / 4) - 1
	putUint32LE(data[4:], uint32(s))
	data[9] = f.flags
	copy(data[10:], footerMagic)

	crc := crc32.NewIEEE()
	crc.Write(data[4:10])
	putUint32LE(data, crc.Sum32())

	return data, nil
}

// UnmarshalBinary sets the footer value by unmarshalling an xz stream
// footer.
func (f *footer) UnmarshalBinary(data []byte) error {
	if len(data) != footerLen {
		return errors.New("xz: wrong footer length")
	}

	if !bytes.Equal(data[10:], footerMagic) {
		return errors.New("xz: footer magic invalid")
	}

	crc := crc32.NewIEEE()
	crc.Write(data[4:10])
	if uint32LE(data) != crc.Sum32() {
		return errors.New("xz: footer checksum error")
	}

	var g footer
	g.indexSize = (int64(uint32LE(data[4:])) + 1) * 4

	if data[8] != 0 {
		return errInvalidFlags
	}
	g.flags = data[9]
	if err := verifyFlags(g.flags); err != nil {
		return err
	}

	*f = g
	return nil
}

func readFooter(r io.Reader) (f footer, err error) {
	p := make([]byte, footerLen)
	if _, err = io.ReadFull(r, p); err != nil {
		return f, err
	}
	err = f.UnmarshalBinary(p)
	return f, err
}

/*** Block Header ***/

// blockOptions are the options governing a single Block's encode/decode,
// generalizing blockHeader with the version and ignoreCheck knobs
// spec.md's Block Options entity names.
type blockOptions struct {
	compressedSize   int64
	uncompressedSize int64
	filters          []filter
	version          byte
	ignoreCheck      bool
}

// blockHeader represents the content of an xz block header.
type blockHeader = blockOptions

// Masks for the block flags byte.
const (
	filterCountMask         = 0x03
	compressedSizePresent   = 0x40
	uncompressedSizePresent = 0x80
	reservedBlockFlags      = 0x3C
)

// errIndexIndicator signals that an index indicator (0x00) has been
// found instead of an expected block header indicator.
var errIndexIndicator = errors.New("xz: found index indicator")

// minBlockHeaderLen / maxBlockHeaderLen bound the block header size
// field (stored as (size/4)-1 in a single byte).
const (
	minBlockHeaderLen = 8
	maxBlockHeaderLen = 1024
)

// readBlockHeader reads the block header from r, returning the number
// of bytes consumed.
func readBlockHeader(r io.Reader) (h *blockHeader, n int, err error) {
	var buf bytes.Buffer
	buf.Grow(20)

	z, err := io.CopyN(&buf, r, 1)
	n = int(z)
	if err != nil {
		return nil, n, err
	}
	s := buf.Bytes()[0]
	if s == 0 {
		return nil, n, errIndexIndicator
	}

	hlen := (int(s) + 1) * 4
	buf.Grow(hlen - 1)
	z, err = io.CopyN(&buf, r, int64(hlen-1))
	n += int(z)
	if err != nil {
		return nil, n, err
	}

	h = new(blockHeader)
	if err = h.UnmarshalBinary(buf.Bytes()); err != nil {
		return nil, n, err
	}

	return h, n, nil
}

// readSizeInBlockHeader reads the uncompressed or compressed size field
// in the block header, or returns -1 if the field is absent.
func readSizeInBlockHeader(r io.ByteReader, present bool) (n int64, err error) {
	if !present {
		return -1, nil
	}
	x, _, err := readVLI(r)
	if err != nil {
		return 0, err
	}
	return int64(x), nil
}

// UnmarshalBinary unmarshals the block header.
func (h *blockHeader) UnmarshalBinary(data []byte) error {
	s := data[0]
	if s == 0 {
		return errIndexIndicator
	}
	hlen := (int(s) + 1) * 4
	if len(data) != hlen {
		return fmt.Errorf("xz: data length %d; want %d", len(data), hlen)
	}
	if hlen < minBlockHeaderLen || hlen > maxBlockHeaderLen {
		return statusErr(StatusOptions, "block header size out of range")
	}

	crc := crc32.NewIEEE()
	crc.Write(data[:hlen-4])
	if crc.Sum32() != uint32LE(data[hlen-4:]) {
		return errors.New("xz: checksum error for block header")
	}

	flags := data[1]
	if flags&reservedBlockFlags != 0 {
		return statusErr(StatusOptions, "reserved block header flags set")
	}
	h.version = 0

	r := bytes.NewReader(data[2 : hlen-4])

	var err error
	h.compressedSize, err = readSizeInBlockHeader(r, flags&compressedSizePresent != 0)
	if err != nil {
		return err
	}

	h.uncompressedSize, err = readSizeInBlockHeader(r, flags&uncompressedSizePresent != 0)
	if err != nil {
		return err
	}

	h.filters, err = readFilters(r, int(flags&filterCountMask)+1)
	if err != nil {
		return err
	}

	if r.Len() > 3 {
		return errors.New("xz: unexpected padding size")
	}
	for r.Len() > 0 {
		c, _ := r.ReadByte()
		if c != 0 {
			return statusErr(StatusOptions, "non-zero block header padding")
		}
	}

	return nil
}

// MarshalBinary marshals the block header.
func (h *blockHeader) MarshalBinary() (data []byte, err error) {
	if err = verifyFilters(h.filters); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte(0) // header size placeholder

	flags := byte(len(h.filters) - 1)
	if h.compressedSize >= 0 {
		flags |= compressedSizePresent
	}
	if h.uncompressedSize >= 0 {
		flags |= uncompressedSizePresent
	}
	buf.WriteByte(flags)

	p := make([]byte, maxVLIBytes)
	if h.compressedSize >= 0 {
		k := putVLI(p, uint64(h.compressedSize))
		buf.Write(p[:k])
	}
	if h.uncompressedSize >= 0 {
		k := putVLI(p, uint64(h.uncompressedSize))
		buf.Write(p[:k])
	}

	if _, err = writeFilters(&buf, h.filters); err != nil {
		return nil, err
	}

	if k := buf.Len() % 4; k > 0 {
		for i := k; i < 4; i++ {
			buf.WriteByte(0)
		}
	}

	buf.Write(p[:4]) // crc placeholder

	data = buf.Bytes()
	if len(data)%4 != 0 {
		panic("xz: block header length not aligned")
	}
	s := len(data)/4 - 1
	if !(1 <= s && s <= 255) {
		return nil, statusErr(StatusOptions, "block header too large")
	}
	data[0] = byte(s)

	crc := crc32.NewIEEE()
	crc.Write(data[:len(data)-4])
	putUint32LE(data[len(data)-4:], crc.Sum32())

	return data, nil
}
