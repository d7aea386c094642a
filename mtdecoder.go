package xz

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/xzio/xz/basics/i64"
	"github.com/xzio/xz/lzma"
)

// MTFlags are the bit flags MTReaderConfig.Flags accepts, modeled on
// original_source's lzma_decoder flags for lzma_stream_decoder_mt.
type MTFlags uint32

const (
	// TellNoCheck requests that Check report CheckNone Streams via
	// ErrNoCheck instead of silently accepting them.
	TellNoCheck MTFlags = 1 << iota
	// TellUnsupportedCheck requests that Check report check kinds this
	// package cannot compute via ErrUnsupportedCheck.
	TellUnsupportedCheck
	// IgnoreCheck disables verification of every Block's integrity
	// check value, trading safety for speed.
	IgnoreCheck
	// Concatenated requests that decoding continue past a Stream's
	// footer into any further concatenated Streams rather than
	// stopping at the first one.
	Concatenated
)

// MTReaderConfig holds the parameters of a multithreaded Stream decoder.
type MTReaderConfig struct {
	// Workers bounds how many Blocks may be decoded concurrently. The
	// default is GOMAXPROCS.
	Workers int

	// MemlimitThreading caps the memory the output queue and in-flight
	// filter chains may occupy before the decoder falls back to
	// decoding Blocks one at a time in its loop goroutine. Zero
	// means unlimited.
	MemlimitThreading uint64

	// Memlimit caps total decoder memory; exceeding it fails the
	// Stream with ErrMemlimit. Zero means unlimited.
	Memlimit uint64

	// TimeoutMs bounds how long Read may block waiting for output
	// before returning ErrTimedOut. Zero means wait indefinitely,
	// matching original_source's lzma_stream_decoder_mt default.
	TimeoutMs int

	Flags MTFlags

	LZMA lzma.Reader2Config
}

// SetDefaults fills in zero-valued fields with their defaults.
func (cfg *MTReaderConfig) SetDefaults() {
	cfg.LZMA.SetDefaults()
	if cfg.Workers == 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
}

// Verify checks the configuration for validity.
func (cfg *MTReaderConfig) Verify() error {
	if cfg.Workers < 1 {
		return errors.New("xz: MTReaderConfig Workers must be >= 1")
	}
	return cfg.LZMA.Verify()
}

// ErrNoCheck is returned by Check when TellNoCheck is set and the
// Stream carries no integrity check.
var ErrNoCheck = errNoCheckInfo

// ErrUnsupportedCheck is returned by Check when TellUnsupportedCheck is
// set and the Stream's check kind cannot be computed by this package.
var ErrUnsupportedCheck = errUnsupportedCheck

// MTReader decodes an xz Stream using a pool of goroutines that decode
// distinct Blocks concurrently, draining their output through an
// outQueue (C6) in Stream order regardless of completion order.
//
// It follows the shape of writer.go's mtWriter/mtwStream/mtwWorker
// pipeline, turned around for decoding: a single loop goroutine walks
// the Stream's framing sequentially (it alone touches the underlying
// io.Reader) while worker goroutines, one per in-flight Block, run the
// filter chain over already-read compressed bytes.
type MTReader struct {
	cfg  MTReaderConfig
	rcfg ReaderConfig

	xz   *bufio.Reader
	outq *outQueue

	mu         sync.Mutex
	progressIn int64
	progressOut int64
	check      checkKind
	checkSet   bool
	threadErr  error
	pendingErr error

	done chan struct{}

	closeOnce sync.Once
	closed    bool
}

// NewMTReader creates a multithreaded Stream decoder reading from xz.
func NewMTReader(xz io.Reader, cfg MTReaderConfig) (*MTReader, error) {
	cfg.SetDefaults()
	if err := cfg.Verify(); err != nil {
		return nil, err
	}

	mr := &MTReader{
		cfg:  cfg,
		rcfg: ReaderConfig{LZMA: cfg.LZMA, Workers: 1},
		xz:   bufio.NewReader(xz),
		outq: newOutQueue(cfg.Workers),
		done: make(chan struct{}),
	}
	mr.rcfg.SetDefaults()

	go mr.run()
	return mr, nil
}

// setCheck records the integrity check kind of the most recently parsed
// Stream Header; each later concatenated Stream overwrites the value.
func (mr *MTReader) setCheck(c checkKind) {
	mr.mu.Lock()
	mr.check = c
	mr.checkSet = true
	mr.mu.Unlock()
}

// Check reports the integrity check kind of the Stream currently being
// decoded, honoring TellNoCheck and TellUnsupportedCheck.
func (mr *MTReader) Check() (checkKind, error) {
	mr.mu.Lock()
	c, ok := mr.check, mr.checkSet
	mr.mu.Unlock()
	if !ok {
		return CheckNone, errors.New("xz: stream header not yet read")
	}
	if c == CheckNone && mr.cfg.Flags&TellNoCheck != 0 {
		return c, ErrNoCheck
	}
	if !c.supported() && mr.cfg.Flags&TellUnsupportedCheck != 0 {
		return c, ErrUnsupportedCheck
	}
	return c, nil
}

// Progress reports the compressed bytes consumed and uncompressed bytes
// produced so far, across every Block and Stream seen.
func (mr *MTReader) Progress() (in, out int64) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	return mr.progressIn, mr.progressOut
}

// addProgress accumulates consumed/produced byte counts, saturating at
// i64.Max instead of wrapping if a pathological Stream ever drives a
// counter past what an int64 can hold.
func (mr *MTReader) addProgress(in, out int64) {
	mr.mu.Lock()
	if v, overflow := i64.Add(mr.progressIn, in); !overflow {
		mr.progressIn = v
	} else {
		mr.progressIn = i64.Max
	}
	if v, overflow := i64.Add(mr.progressOut, out); !overflow {
		mr.progressOut = v
	} else {
		mr.progressOut = i64.Max
	}
	mr.mu.Unlock()
}

// MemlimitThreadingSet raises the multithreading memory limit while
// decoding is in progress. Unlike MemlimitSet, it cannot be used to
// lower the limit: original_source treats memlimit_threading as a
// scheduling hint tuned once at startup from available RAM, and letting
// it drop later could strand a Block already dispatched to a worker
// under the new, smaller limit. Lowering it returns ErrProg.
func (mr *MTReader) MemlimitThreadingSet(limit uint64) error {
	mr.mu.Lock()
	cur := mr.cfg.MemlimitThreading
	if limit != 0 && (cur == 0 || limit < cur) {
		mr.mu.Unlock()
		return statusErr(StatusProg, "MemlimitThreadingSet cannot lower the limit")
	}
	mr.cfg.MemlimitThreading = limit
	mr.mu.Unlock()
	mr.outq.cond.Broadcast()
	return nil
}

// MemlimitSet adjusts the overall memory limit while decoding is in
// progress. Lowering it trims the output queue's reuse cache toward the
// new ceiling on a best-effort basis; buffers already handed to a
// worker are never reclaimed.
func (mr *MTReader) MemlimitSet(limit uint64) error {
	mr.mu.Lock()
	mr.cfg.Memlimit = limit
	mr.mu.Unlock()
	if limit > 0 {
		inUse, _, _ := mr.outq.memUsage()
		var keep uint64
		if limit > inUse {
			keep = limit - inUse
		}
		mr.outq.clearCache2(keep)
	}
	mr.outq.cond.Broadcast()
	return nil
}

func (mr *MTReader) setThreadErr(err error) {
	mr.mu.Lock()
	if mr.threadErr == nil {
		mr.threadErr = err
	}
	mr.mu.Unlock()
	mr.outq.cond.Broadcast()
}

func (mr *MTReader) getThreadErr() error {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	return mr.threadErr
}

// finish records the terminal error (nil on a clean end-of-data) for a
// pending Read to pick up once the output queue has drained.
func (mr *MTReader) finish(err error) {
	mr.mu.Lock()
	if mr.pendingErr == nil {
		mr.pendingErr = err
		if err == nil {
			mr.pendingErr = io.EOF
		}
	}
	mr.mu.Unlock()
	mr.outq.cond.Broadcast()
}

// truncated maps a raw io.EOF/io.ErrUnexpectedEOF from a framing read
// that expected more bytes into ErrBuf: input ending mid-Block or
// mid-index is a no-progress-possible condition distinct from the
// clean end of a Stream, which the callers below detect separately
// before ever reaching a read that could truncate.
func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return statusErr(StatusBuf, "truncated input")
	}
	return err
}

// run walks the Stream's framing: Stream Header, a sequence of Block
// Headers each dispatched to either the threaded or the direct decode
// path, the Index, and the Stream Footer, looping back for further
// concatenated Streams when Concatenated is set.
func (mr *MTReader) run() {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(mr.done)
	}()

	first := true
	for {
		hdr, err := readHeader(mr.xz, !first)
		if err != nil {
			if err == io.EOF && !first {
				mr.finish(nil)
				return
			}
			mr.finish(err)
			return
		}
		first = false
		mr.setCheck(hdr.check())

		ih := newIndexHash()
		for {
			b, err := mr.xz.Peek(1)
			if err != nil {
				mr.finish(truncated(err))
				return
			}
			if b[0] == 0 {
				mr.xz.ReadByte()
				if err := readTailHash(mr.xz, ih, hdr.flags); err != nil {
					mr.finish(err)
					return
				}
				break
			}

			bh, n, err := readBlockHeader(mr.xz)
			if err != nil {
				mr.finish(truncated(err))
				return
			}

			rec, err := mr.dispatchBlock(bh, n, hdr.flags, &wg)
			if err != nil {
				mr.finish(err)
				return
			}
			ih.append(rec)
		}

		if mr.cfg.Flags&Concatenated == 0 {
			mr.finish(nil)
			return
		}
	}
}

// dispatchBlock decides between the threaded and direct decode paths
// and starts decoding bh, returning its index record. Per spec.md's
// mode-selection rule, a Block whose compressed or uncompressed size is
// not declared in its header cannot be preallocated a buffer and always
// decodes directly.
func (mr *MTReader) dispatchBlock(bh *blockHeader, headerLen int, flags byte, wg *sync.WaitGroup) (record, error) {
	ignoreCheck := mr.cfg.Flags&IgnoreCheck != 0
	bh.ignoreCheck = ignoreCheck

	sizesKnown := bh.compressedSize >= 0 && bh.uncompressedSize >= 0
	if sizesKnown {
		mr.mu.Lock()
		memlimit := mr.cfg.Memlimit
		mr.mu.Unlock()
		needed := uint64(bh.uncompressedSize) + uint64(bh.compressedSize)
		if err := mr.outq.checkMemlimit(memlimit, needed); err != nil {
			return record{}, err
		}

		if mr.cfg.Workers > 1 {
			checkSz := int64(checkKind(flags & 0x0f).Size())
			mr.mu.Lock()
			limit := mr.cfg.MemlimitThreading
			mr.mu.Unlock()
			if mr.outq.admitThreaded(limit, needed) {
				mr.outq.waitForSlot()
				return mr.decodeBlockThreaded(bh, headerLen, checkSz, flags, wg)
			}
		}
	}
	return mr.decodeBlockDirect(bh, headerLen, flags)
}

// decodeBlockThreaded reads the Block's compressed bytes synchronously
// (so the main loop can move on to the next Block Header immediately
// after) and hands the actual filter-chain decode to a worker
// goroutine. The index record is computable immediately because a
// threaded Block's header always declares both sizes.
func (mr *MTReader) decodeBlockThreaded(bh *blockHeader, headerLen int, checkSz int64, flags byte, wg *sync.WaitGroup) (record, error) {
	total := bh.compressedSize + int64(padLen(bh.compressedSize)) + checkSz
	body := make([]byte, total)
	if _, err := io.ReadFull(mr.xz, body); err != nil {
		return record{}, truncated(err)
	}

	rec := record{
		unpaddedSize:     int64(headerLen) + bh.compressedSize + checkSz,
		uncompressedSize: bh.uncompressedSize,
	}

	ob := mr.outq.getBuf(bh.uncompressedSize)
	rcfg := mr.rcfg
	ignoreCheck := bh.ignoreCheck

	wg.Add(1)
	go func() {
		defer wg.Done()
		progress := func(pos int) {
			if mr.outq.isPartial(ob) {
				mr.outq.publish(ob, pos, false, record{}, nil)
			}
		}
		err := decodeBlockBuffer(ob.data, body, bh.compressedSize, bh.filters, &rcfg, flags, ignoreCheck, progress)
		mr.outq.publish(ob, len(ob.data), true, rec, err)
		if err != nil {
			mr.setThreadErr(err)
		}
		mr.addProgress(bh.compressedSize, bh.uncompressedSize)
	}()

	return rec, nil
}

// decodeBlockDirect decodes a Block synchronously in the loop goroutine
// using the single-threaded blockDecoder (C7), used whenever a Block's
// sizes are not both known up front or the worker pool is saturated
// past its memory limit. When the uncompressed size is known the Block
// is decoded straight into an output-queue buffer, so large direct-mode
// Blocks don't carry a second, fully-materialized copy in a
// bytes.Buffer; when it isn't, a growing buffer is unavoidable and is
// checked against Memlimit as it grows.
func (mr *MTReader) decodeBlockDirect(bh *blockHeader, headerLen int, flags byte) (record, error) {
	h, err := newHash(flags)
	if err != nil {
		return record{}, err
	}

	var bd blockDecoder
	bd.init(mr.xz, &mr.rcfg, h)
	if err := bd.setHeader(bh, headerLen); err != nil {
		return record{}, err
	}

	if bh.uncompressedSize >= 0 {
		ob := mr.outq.getBuf(bh.uncompressedSize)
		pos := 0
		for pos < len(ob.data) {
			n, err := bd.Read(ob.data[pos:])
			pos += n
			if n > 0 && mr.outq.isPartial(ob) {
				mr.outq.publish(ob, pos, false, record{}, nil)
			}
			if err != nil {
				if err == io.EOF {
					break
				}
				mr.outq.publish(ob, pos, true, record{}, err)
				return record{}, err
			}
		}
		rec := bd.record()
		mr.outq.publish(ob, pos, true, rec, nil)
		mr.addProgress(bd.cxz.Offset(), rec.uncompressedSize)
		return rec, nil
	}

	mr.mu.Lock()
	memlimit := mr.cfg.Memlimit
	mr.mu.Unlock()

	var buf bytes.Buffer
	var tmp [32 * 1024]byte
	for {
		n, err := bd.Read(tmp[:])
		buf.Write(tmp[:n])
		if memlimit > 0 {
			inUse, _, cached := mr.outq.memUsage()
			if inUse+cached+uint64(buf.Len()) > memlimit {
				mr.outq.clearCache()
				inUse, _, cached = mr.outq.memUsage()
				if inUse+cached+uint64(buf.Len()) > memlimit {
					return record{}, statusErr(StatusMemlimit, "decoder memory limit exceeded")
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return record{}, err
		}
	}

	rec := bd.record()
	mr.outq.pushFinished(buf.Bytes(), rec, nil)
	mr.addProgress(bd.cxz.Offset(), rec.uncompressedSize)
	return rec, nil
}

// decodeBlockBuffer decodes the filter chain's output for a single
// Block fully held in memory: body holds the Block's compressed data
// (the first compressedSize bytes) followed by block padding and the
// trailing check value, and dst is sized exactly to the Block's
// declared uncompressed size. progress, if non-nil, is called after
// every successful Read with the number of bytes of dst filled so far.
func decodeBlockBuffer(dst []byte, body []byte, compressedSize int64, filters []filter, cfg *ReaderConfig, flags byte, ignoreCheck bool, progress func(pos int)) error {
	h, err := newHash(flags)
	if err != nil {
		return err
	}

	fr, err := cfg.newFilterReader(bytes.NewReader(body[:compressedSize]), filters)
	if err != nil {
		return err
	}
	defer fr.Close()

	var r io.Reader = fr
	if h.Size() != 0 {
		r = io.TeeReader(fr, h)
	}

	pos := 0
	for pos < len(dst) {
		n, err := r.Read(dst[pos:])
		pos += n
		if n > 0 && progress != nil {
			progress(pos)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
	}
	if pos != len(dst) {
		return io.ErrUnexpectedEOF
	}

	var extra [1]byte
	if n, _ := r.Read(extra[:]); n != 0 {
		return statusErr(StatusData, "block produced more data than declared")
	}

	rest := body[compressedSize:]
	k := padLen(compressedSize)
	if !allZeros(rest[:k]) {
		return statusErr(StatusData, "non-zero block padding")
	}
	checkSum := rest[k:]
	if !ignoreCheck && h.Size() != 0 {
		computed := h.Sum(nil)
		if !bytes.Equal(checkSum, computed) {
			return statusErr(StatusData, "checksum error for block")
		}
	}
	return nil
}

// Read implements io.Reader, draining decoded Blocks from the output
// queue strictly in Stream order. If MTReaderConfig.TimeoutMs is set
// and no output becomes available before it elapses, Read returns
// ErrTimedOut; a later call may still succeed once more output arrives.
func (mr *MTReader) Read(p []byte) (n int, err error) {
	var deadline time.Time
	if mr.cfg.TimeoutMs > 0 {
		deadline = time.Now().Add(time.Duration(mr.cfg.TimeoutMs) * time.Millisecond)
	}
	abort := func() error {
		mr.mu.Lock()
		pend := mr.pendingErr
		mr.mu.Unlock()
		if pend != nil {
			return pend
		}
		return mr.getThreadErr()
	}

	for n == 0 {
		if err := abort(); err != nil {
			return n, err
		}

		timedOut, aerr := mr.outq.waitForReadable(deadline, abort)
		if aerr != nil {
			return n, aerr
		}
		if timedOut {
			return n, ErrTimedOut
		}

		k, streamEnd, rerr := mr.outq.read(p[n:])
		n += k
		if rerr != nil {
			return n, rerr
		}
		if streamEnd {
			mr.outq.enablePartialOutput()
			return n, nil
		}
		if k == 0 {
			if terr := mr.getThreadErr(); terr != nil {
				return n, terr
			}
		}
	}
	return n, nil
}

// Close releases the decoder. It does not attempt to interrupt
// in-flight worker goroutines; it waits for the Stream walk to finish
// draining.
func (mr *MTReader) Close() error {
	mr.closeOnce.Do(func() {
		<-mr.done
		mr.closed = true
	})
	return nil
}
