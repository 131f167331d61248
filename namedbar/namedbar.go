// ============================================================================
// NAMED BARRIER TABLE
// ============================================================================
//
// Counting barriers addressed by a small integer id with an explicit
// participant count, orthogonal to the memory-barrier mechanism: nothing is
// allocated, arrive/wait calls reference a slot in a fixed process-wide
// table and agree on the participant count out of band.
//
// Slot state packing (one 64-bit word per id, CAS transitions):
//   - High 32: generation counter (monotonic, wraps)
//   - Low  32: arrivals recorded in the current generation
//
// The generation counter makes slots reusable back to back: waiters of
// generation G spin on the generation field, not the count, so a fast
// participant starting generation G+1 can never be confused with a straggler
// from G.
//
// Safety model:
//   - ⚠️  Participant counts are never validated; if callers sharing an id
//     disagree on n, some of them stall forever — undefined by contract
//   - Ids index the table unmasked; id >= NamedBarrierSlots is out of
//     bounds and undefined
//
// ============================================================================

package namedbar

import (
	"sync/atomic"

	"main/constants"
	"main/spin"
)

// table is the process-wide slot array. Slots are padded to a cache line
// apiece; distinct ids never false-share.
var table [constants.NamedBarrierSlots]struct {
	state uint64
	_     [56]byte
}

// Arrive records this participant's arrival at barrier id without blocking
// and returns the generation the arrival belongs to, for a later split
// Wait. The nth arrival of a generation rolls the slot into the next
// generation, releasing every waiter. n must match across all participants
// of id.
//
//go:nosplit
//go:registerparams
func Arrive(id, n uint32) uint32 {
	return arrive(id, n)
}

// ArriveWait records the arrival and then blocks until all n participants
// of barrier id have arrived. The combined form almost every caller wants.
//
//go:nosplit
//go:registerparams
func ArriveWait(id, n uint32) {
	gen := arrive(id, n)
	Wait(id, gen)
}

// Wait blocks until the slot has moved past generation gen.
// Use the generation returned by Arrive; calling with a stale generation
// returns immediately.
//
//go:nosplit
//go:registerparams
func Wait(id, gen uint32) {
	s := &table[id].state
	var bo spin.Backoff
	for uint32(atomic.LoadUint64(s)>>32) == gen {
		bo.Pause()
	}
}

// arrive performs the CAS transition and returns the generation this
// arrival belongs to.
//
//go:nosplit
//go:inline
//go:registerparams
func arrive(id, n uint32) uint32 {
	s := &table[id].state
	for {
		cur := atomic.LoadUint64(s)
		gen := uint32(cur >> 32)
		count := uint32(cur) + 1
		var next uint64
		if count == n {
			// Last participant: advance generation, zero the count.
			next = uint64(gen+1) << 32
		} else {
			next = uint64(gen)<<32 | uint64(count)
		}
		if atomic.CompareAndSwapUint64(s, cur, next) {
			return gen
		}
	}
}
