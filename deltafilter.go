package xz

import (
	"errors"
	"io"
)

// deltaFilterLen is the on-the-wire length of a delta filter record:
// one VLI byte for the id, one for the properties size, one property
// byte (distance-1).
const deltaFilterLen = 3

// deltaFilter implements the byte-distance delta prefilter (id 0x03).
// It is never the last filter in a chain; it has to precede the
// compressing filter so the compressor sees the delta-transformed
// bytes.
type deltaFilter struct {
	distance int // 1..256
}

func (f deltaFilter) id() uint64 { return idDelta }

func (f deltaFilter) last() bool { return false }

func (f deltaFilter) MarshalBinary() (data []byte, err error) {
	if !(1 <= f.distance && f.distance <= 256) {
		return nil, errors.New("xz: delta distance out of range")
	}
	return []byte{byte(idDelta), 1, byte(f.distance - 1)}, nil
}

func (f *deltaFilter) UnmarshalBinary(data []byte) error {
	if len(data) != deltaFilterLen {
		return statusErr(StatusOptions, "delta filter record has wrong length")
	}
	if data[0] != byte(idDelta) {
		return errors.New("xz: wrong delta filter id")
	}
	if data[1] != 1 {
		return statusErr(StatusOptions, "delta filter properties size wrong")
	}
	f.distance = int(data[2]) + 1
	return nil
}

// memSize is a fixed, small history buffer.
func (f deltaFilter) memSize() uint64 { return uint64(f.distance) }

func (f deltaFilter) reader(r io.Reader, cfg *ReaderConfig) (io.ReadCloser, error) {
	return io.NopCloser(&deltaDecodeReader{r: r, distance: f.distance}), nil
}

func (f deltaFilter) writeCloser(w io.WriteCloser, cfg *WriterConfig) (io.WriteCloser, error) {
	return &deltaEncodeWriter{w: w, distance: f.distance}, nil
}

// deltaDecodeReader reverses the delta transform: out[i] = in[i] +
// out[i-distance], using a ring buffer of the last `distance` output
// bytes, initialized to zero as the format requires.
type deltaDecodeReader struct {
	r        io.Reader
	distance int
	hist     []byte
	pos      int
}

func (d *deltaDecodeReader) Read(p []byte) (n int, err error) {
	if d.hist == nil {
		d.hist = make([]byte, d.distance)
	}
	n, err = d.r.Read(p)
	for i := 0; i < n; i++ {
		p[i] += d.hist[d.pos]
		d.hist[d.pos] = p[i]
		d.pos++
		if d.pos == d.distance {
			d.pos = 0
		}
	}
	return n, err
}

// deltaEncodeWriter applies the forward delta transform: out[i] =
// in[i] - hist[i-distance].
type deltaEncodeWriter struct {
	w        io.WriteCloser
	distance int
	hist     []byte
	pos      int
}

func (d *deltaEncodeWriter) Write(p []byte) (n int, err error) {
	if d.hist == nil {
		d.hist = make([]byte, d.distance)
	}
	out := make([]byte, len(p))
	for i, b := range p {
		out[i] = b - d.hist[d.pos]
		d.hist[d.pos] = b
		d.pos++
		if d.pos == d.distance {
			d.pos = 0
		}
	}
	k, err := d.w.Write(out)
	if k == len(out) {
		return len(p), err
	}
	// partial write: report how much of the original input it
	// corresponds to.
	return k, err
}

func (d *deltaEncodeWriter) Close() error { return d.w.Close() }
