// ============================================================================
// CLUSTER-SCOPE BARRIER
// ============================================================================
//
// Barrier spanning a cooperating group of execution units broader than a
// single thread-group. Split arrive/wait: members signal arrival (possibly
// long before they need the rendezvous) and block only when they finally
// need every peer's prior work to be visible.
//
// Arrival modes:
//   - Arrive(relaxed=false): sequentially-consistent arrival; everything
//     the member wrote before arriving is visible to any peer that returns
//     from Wait in the same generation
//   - Arrive(relaxed=true): arrival counts toward the rendezvous but makes
//     no visibility promise of its own; members pairing relaxed arrival
//     with their own later fence use this to cut ordering cost
//
// Both modes are single atomic adds here — Go's atomics are already
// sequentially consistent, so the relaxed form is a documentation contract
// for portability, not a cheaper instruction. Callers must not rely on
// relaxed arrivals publishing anything.
//
// Generation packing mirrors the named-barrier table: high 32 generation,
// low 32 arrivals, CAS rollover by the last member.
//
// ============================================================================

package cluster

import (
	"sync/atomic"

	"main/spin"
)

// Cluster is the rendezvous state for one cooperating group. Allocate once
// per cluster launch; member count is fixed for the cluster's lifetime.
//
//go:notinheap
//go:align 64
type Cluster struct {
	state   uint64 // generation<<32 | arrivals
	members uint32
	_       [52]byte // pad to 64 bytes
}

// New creates a cluster barrier for the given member count.
// ⚠️ members must be nonzero; unchecked.
func New(members uint32) *Cluster {
	return &Cluster{members: members}
}

// Arrive signals this member's cluster-scope arrival and returns without
// blocking. Every member must arrive exactly once per generation.
//
//go:nosplit
//go:registerparams
func (c *Cluster) Arrive(relaxed bool) {
	_ = relaxed // ordering contract only; see package comment
	for {
		cur := atomic.LoadUint64(&c.state)
		gen := uint32(cur >> 32)
		count := uint32(cur) + 1
		var next uint64
		if count == c.members {
			next = uint64(gen+1) << 32
		} else {
			next = uint64(gen)<<32 | uint64(count)
		}
		if atomic.CompareAndSwapUint64(&c.state, cur, next) {
			return
		}
	}
}

// Generation returns the current rendezvous generation. Capture before
// Arrive when the wait happens far from the arrival.
//
//go:nosplit
//go:inline
//go:registerparams
func (c *Cluster) Generation() uint32 {
	return uint32(atomic.LoadUint64(&c.state) >> 32)
}

// Wait stalls until the generation the caller arrived in has completed —
// until all members' arrivals of that generation are in. gen is the value
// Generation() returned before the caller's own Arrive.
//
//go:nosplit
//go:registerparams
func (c *Cluster) Wait(gen uint32) {
	var bo spin.Backoff
	for uint32(atomic.LoadUint64(&c.state)>>32) == gen {
		bo.Pause()
	}
}

// ArriveAndWait is the fused form for members with nothing to overlap:
// non-relaxed arrival immediately followed by the rendezvous wait.
//
//go:nosplit
//go:registerparams
func (c *Cluster) ArriveAndWait() {
	gen := c.Generation()
	c.Arrive(false)
	c.Wait(gen)
}
