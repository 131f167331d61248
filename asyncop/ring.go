// ring.go
//
// Lock-free descriptor ring carrying issued asynchronous operations from
// kernel lanes to the data-mover lane. Same sequence-stamped slot protocol
// as a classic SPSC ring — each slot carries a sequence number so push/pop
// need no additional atomics — with producer and consumer cursors separated
// by full cache lines to eliminate false sharing.
//
// The issue side is serialized by the mover's issue lock (multiple kernel
// lanes share one mover), so the ring itself still sees exactly one
// producer; the mover is the only consumer.

package asyncop

import "sync/atomic"

// slot couples one op descriptor with its sequence stamp.
type slot struct {
	seq uint64 // position in the sequence space
	op  Op     // descriptor payload
}

// ring is a fixed-capacity circular buffer dedicated to one producer side
// and one consumer.
type ring struct {
	_    [64]byte // mover-side cursor isolated on its own cache-line
	head uint64
	_    [56]byte
	tail uint64
	_    [56]byte
	mask uint64
	buf  []slot
}

// newRing allocates a ring whose size must be a power-of-two; otherwise it
// panics so the bit-masking arithmetic stays valid.
func newRing(size int) *ring {
	if size <= 0 || size&(size-1) != 0 {
		panic("asyncop: ring size must be >0 and a power of two")
	}
	r := &ring{
		mask: uint64(size - 1),
		buf:  make([]slot, size),
	}
	for i := range r.buf {
		r.buf[i].seq = uint64(i)
	}
	return r
}

// push enqueues one descriptor, returning false if the buffer is full.
//
//go:nosplit
func (r *ring) push(op *Op) bool {
	t := r.tail
	s := &r.buf[t&r.mask]
	if atomic.LoadUint64(&s.seq) != t {
		return false // mover has not yet reclaimed the slot
	}
	s.op = *op
	atomic.StoreUint64(&s.seq, t+1)
	r.tail = t + 1
	return true
}

// pop dequeues one descriptor into out, or returns false if empty.
//
//go:nosplit
func (r *ring) pop(out *Op) bool {
	h := r.head
	s := &r.buf[h&r.mask]
	if atomic.LoadUint64(&s.seq) != h+1 {
		return false // producer has not yet published to the slot
	}
	*out = s.op
	s.op = Op{} // drop closure/barrier references for the collector
	atomic.StoreUint64(&s.seq, h+uint64(len(r.buf)))
	r.head = h + 1
	return true
}
