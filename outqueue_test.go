package xz

import (
	"sync"
	"testing"
)

func TestOutQueueFIFOOrderDespiteOutOfOrderFill(t *testing.T) {
	q := newOutQueue(4)

	ob0 := q.getBuf(4)
	ob1 := q.getBuf(4)

	// ob1 (the second slot) finishes first; ob0 still has to drain
	// before it per Stream order.
	copy(ob1.data, []byte("BBBB"))
	q.publish(ob1, 4, true, record{unpaddedSize: 10, uncompressedSize: 4}, nil)

	var buf [8]byte
	n, streamEnd, err := q.read(buf[:])
	if err != nil {
		t.Fatalf("read error %s", err)
	}
	if n != 0 || streamEnd {
		t.Fatalf("read returned data before head slot finished: n=%d streamEnd=%v", n, streamEnd)
	}

	copy(ob0.data, []byte("AAAA"))
	q.publish(ob0, 4, true, record{unpaddedSize: 10, uncompressedSize: 4}, nil)

	n, streamEnd, err = q.read(buf[:])
	if err != nil || !streamEnd || string(buf[:n]) != "AAAA" {
		t.Fatalf("read = %q, streamEnd=%v, err=%v; want AAAA/true/nil", buf[:n], streamEnd, err)
	}

	n, streamEnd, err = q.read(buf[:])
	if err != nil || !streamEnd || string(buf[:n]) != "BBBB" {
		t.Fatalf("read = %q, streamEnd=%v, err=%v; want BBBB/true/nil", buf[:n], streamEnd, err)
	}
}

func TestOutQueueCacheReuse(t *testing.T) {
	q := newOutQueue(2)

	ob := q.getBuf(64)
	q.publish(ob, 64, true, record{}, nil)
	var buf [64]byte
	if _, _, err := q.read(buf[:]); err != nil {
		t.Fatalf("read error %s", err)
	}

	_, allocated, cached := q.memUsage()
	if allocated != 64 || cached != 64 {
		t.Fatalf("after release: allocated=%d cached=%d; want 64/64", allocated, cached)
	}

	ob2 := q.getBuf(32)
	_, allocated2, _ := q.memUsage()
	if allocated2 != 64 {
		t.Fatalf("getBuf(32) allocated fresh memory instead of reusing cache: allocated=%d", allocated2)
	}
	if len(ob2.data) != 32 {
		t.Fatalf("ob2 len %d; want 32", len(ob2.data))
	}
}

func TestOutQueuePushFinished(t *testing.T) {
	q := newOutQueue(2)
	q.pushFinished([]byte("hello"), record{unpaddedSize: 5, uncompressedSize: 5}, nil)

	var buf [16]byte
	n, streamEnd, err := q.read(buf[:])
	if err != nil || !streamEnd || string(buf[:n]) != "hello" {
		t.Fatalf("read = %q, streamEnd=%v, err=%v; want hello/true/nil", buf[:n], streamEnd, err)
	}
}

func TestOutQueueWaitForSlotBlocksAtCapacity(t *testing.T) {
	q := newOutQueue(1)
	q.getBuf(4)

	done := make(chan struct{})
	go func() {
		q.waitForSlot()
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("waitForSlot returned before the queue had room")
	default:
	}

	q.mu.Lock()
	ob := q.slots[0]
	q.mu.Unlock()
	q.publish(ob, 4, true, record{}, nil)
	var buf [4]byte
	q.read(buf[:])

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-done
	}()
	wg.Wait()
}
