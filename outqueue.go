package xz

import (
	"sync"
	"time"
)

// outbuf is a single slot in the output queue: the decoded bytes of
// one Block, filled by a worker goroutine and drained, strictly in
// arrival order, by the main decoder loop.
type outbuf struct {
	data    []byte
	pos     int // bytes the producer has written so far
	readPos int // bytes the consumer has copied out so far

	uncompressedSize int64

	finished bool
	err      error
	rec      record

	partialOutput bool
}

// remaining reports how many produced-but-undrained bytes the slot
// currently holds.
func (ob *outbuf) remaining() int { return ob.pos - ob.readPos }

// outQueue is an ordered, bounded pipeline of outbuf slots: producers
// (worker goroutines decoding distinct Blocks) may fill their slot out
// of order, but the consumer always drains slot 0 first, preserving
// Block order in the Stream regardless of completion order.
//
// Grounded on the shape of original_source's lzma_outq (outqueue.h,
// stream_decoder_mt.c), expressed with a Go slice-backed ring and a
// sync.Mutex/sync.Cond pair instead of a manual free-stack of pointers.
type outQueue struct {
	mu   sync.Mutex
	cond *sync.Cond

	slots   []*outbuf
	threads int

	memInUse     uint64
	memAllocated uint64
	memCached    uint64
	cache        [][]byte
}

func newOutQueue(threads int) *outQueue {
	if threads < 1 {
		threads = 1
	}
	q := &outQueue{threads: threads}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// hasBufLocked is hasBuf's body, callable by code already holding q.mu.
func (q *outQueue) hasBufLocked() bool { return len(q.slots) < q.threads }

// hasBuf reports whether the queue has room for one more in-flight
// Block.
func (q *outQueue) hasBuf() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.hasBufLocked()
}

// isEmptyLocked is isEmpty's body, callable by code already holding q.mu.
func (q *outQueue) isEmptyLocked() bool { return len(q.slots) == 0 }

// isEmpty reports whether the queue currently holds no slots at all.
func (q *outQueue) isEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.isEmptyLocked()
}

// isReadableLocked is isReadable's body, callable by code already
// holding q.mu.
func (q *outQueue) isReadableLocked() bool {
	if len(q.slots) == 0 {
		return false
	}
	head := q.slots[0]
	return head.remaining() > 0 || head.finished
}

// isReadable reports whether the head slot has bytes ready to copy out
// or is finished (so a final, possibly zero-length, drain can release
// it).
func (q *outQueue) isReadable() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.isReadableLocked()
}

// isPartial reports whether ob currently streams partial output,
// i.e. it is the head slot and has been released into streaming by a
// prior drain.
func (q *outQueue) isPartial(ob *outbuf) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return ob.partialOutput
}

// waitDeadline waits on the queue's condition variable, bounded by
// deadline (the zero Time means wait indefinitely). Callers must hold
// q.mu; it is released for the duration of the wait exactly as
// sync.Cond.Wait requires. Reports whether the deadline passed without
// a broadcast waking it first.
func (q *outQueue) waitDeadline(deadline time.Time) (timedOut bool) {
	if deadline.IsZero() {
		q.cond.Wait()
		return false
	}
	d := time.Until(deadline)
	if d <= 0 {
		return true
	}
	timer := time.AfterFunc(d, q.cond.Broadcast)
	defer timer.Stop()
	q.cond.Wait()
	return !time.Now().Before(deadline)
}

// preallocBuf reserves a new tail slot sized for uncompressedSize,
// reusing a cached buffer of sufficient capacity when one is
// available, and returns it for a worker to fill.
func (q *outQueue) preallocBuf(uncompressedSize int64) *outbuf {
	q.mu.Lock()
	defer q.mu.Unlock()

	var data []byte
	for i, c := range q.cache {
		if int64(cap(c)) >= uncompressedSize {
			data = c[:uncompressedSize]
			q.cache = append(q.cache[:i], q.cache[i+1:]...)
			q.memCached -= uint64(cap(c))
			break
		}
	}
	if data == nil {
		data = make([]byte, uncompressedSize)
		q.memAllocated += uint64(len(data))
	}

	ob := &outbuf{data: data, uncompressedSize: uncompressedSize}
	if q.isEmptyLocked() {
		// ob becomes the head with nothing ahead of it to drain first;
		// its producer should stream progress from the start.
		ob.partialOutput = true
	}
	q.slots = append(q.slots, ob)
	q.memInUse += uint64(len(data))
	return ob
}

// getBuf is an alias for preallocBuf naming spec.md's two-step
// prealloc/hand-to-worker protocol; this implementation hands the slot
// to its worker at allocation time, since Go's ownership (the caller
// holds the only *outbuf reference) makes a separate handoff step
// unnecessary.
func (q *outQueue) getBuf(uncompressedSize int64) *outbuf {
	return q.preallocBuf(uncompressedSize)
}

// enablePartialOutput marks the current head slot so its producer
// should publish pos updates promptly, used whenever an earlier slot
// has just been drained and this one is now streaming to the caller.
func (q *outQueue) enablePartialOutput() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.slots) > 0 {
		q.slots[0].partialOutput = true
	}
}

// publish sets ob's produced byte count to pos (and, if done, the
// terminal error/record) for ob under the queue mutex, then wakes any
// goroutine waiting in waitForReadable.
func (q *outQueue) publish(ob *outbuf, pos int, finished bool, rec record, err error) {
	q.mu.Lock()
	ob.pos = pos
	if finished {
		ob.finished = true
		ob.rec = rec
		ob.err = err
	}
	q.mu.Unlock()
	q.cond.Broadcast()
}

// waitForReadable blocks until the head slot is readable (which, per
// isReadableLocked, is also false for as long as the queue is empty, so
// this doubles as "wait for the next Block to be dispatched"), abort
// reports a non-nil error, or deadline passes. abort is consulted under
// q.mu on every wakeup, so it must not itself try to take q.mu.
func (q *outQueue) waitForReadable(deadline time.Time, abort func() error) (timedOut bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.isReadableLocked() {
		if err := abort(); err != nil {
			return false, err
		}
		if q.waitDeadline(deadline) {
			return true, nil
		}
	}
	return false, nil
}

// read copies from the head slot into p, releasing the slot (and
// caching its buffer) once it is finished and fully drained.
func (q *outQueue) read(p []byte) (n int, streamEnd bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.slots) == 0 {
		return 0, false, nil
	}
	head := q.slots[0]

	if r := head.remaining(); r > 0 {
		k := copy(p, head.data[head.readPos:head.pos])
		head.readPos += k
		n = k
	}

	if head.finished && head.remaining() == 0 {
		err = head.err
		q.release(head)
		streamEnd = true
	}

	return n, streamEnd, err
}

// release removes the head slot, folding its buffer into the cache for
// reuse by a later, same-or-smaller Block.
func (q *outQueue) release(ob *outbuf) {
	q.slots = q.slots[1:]
	q.memInUse -= uint64(len(ob.data))
	q.cache = append(q.cache, ob.data)
	q.memCached += uint64(cap(ob.data))
	q.cond.Broadcast()
}

// clearCacheLocked is clearCache's body, callable by code already
// holding q.mu.
func (q *outQueue) clearCacheLocked() {
	q.cache = nil
	q.memCached = 0
}

// clearCache drops every cached buffer, for use under memory pressure.
func (q *outQueue) clearCache() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.clearCacheLocked()
}

// clearCache2Locked is clearCache2's body, callable by code already
// holding q.mu.
func (q *outQueue) clearCache2Locked(keepSize uint64) {
	for q.memCached > keepSize && len(q.cache) > 0 {
		maxIdx := 0
		for i, c := range q.cache {
			if cap(c) > cap(q.cache[maxIdx]) {
				maxIdx = i
			}
		}
		q.memCached -= uint64(cap(q.cache[maxIdx]))
		q.cache = append(q.cache[:maxIdx], q.cache[maxIdx+1:]...)
	}
}

// clearCache2 evicts cached buffers, largest first, until the total
// cached size is at or below keepSize.
func (q *outQueue) clearCache2(keepSize uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.clearCache2Locked(keepSize)
}

// memUsage reports the admission-control totals the scheduler weighs
// against memlimit_threading.
func (q *outQueue) memUsage() (inUse, allocated, cached uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.memInUse, q.memAllocated, q.memCached
}

// checkMemlimit reports ErrMemlimit if admitting needed more bytes
// would push total decoder memory (buffers in flight plus cached for
// reuse) past limit, first dropping the reuse cache to try to make
// room. A zero limit means unlimited.
func (q *outQueue) checkMemlimit(limit, needed uint64) error {
	if limit == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.memInUse+q.memCached+needed <= limit {
		return nil
	}
	q.clearCacheLocked()
	if q.memInUse+needed > limit {
		return statusErr(StatusMemlimit, "decoder memory limit exceeded")
	}
	return nil
}

// pushFinished appends an already-fully-decoded slot directly, used by
// the direct (sequential, single-goroutine) decode path: there is no
// producer to wait on, so the slot is born finished.
func (q *outQueue) pushFinished(data []byte, rec record, err error) {
	q.mu.Lock()
	ob := &outbuf{
		data:             data,
		pos:              len(data),
		uncompressedSize: int64(len(data)),
		finished:         true,
		rec:              rec,
		err:              err,
	}
	q.slots = append(q.slots, ob)
	q.memInUse += uint64(len(data))
	q.mu.Unlock()
	q.cond.Broadcast()
}

// waitForSlot blocks until the queue has room for one more in-flight
// Block (fewer in-flight slots than configured threads).
func (q *outQueue) waitForSlot() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.hasBufLocked() {
		q.cond.Wait()
	}
}

// admitThreaded reports whether a threaded Block needing `needed` extra
// bytes of memory may start now, blocking until either admission
// becomes possible or the queue drains completely with the limit still
// exceeded (in which case the caller should fall back to direct mode).
// A zero limit means unlimited.
func (q *outQueue) admitThreaded(limit, needed uint64) bool {
	if limit == 0 {
		return true
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.memInUse+needed > limit {
		if q.isEmptyLocked() {
			return false
		}
		q.cond.Wait()
	}
	return true
}
