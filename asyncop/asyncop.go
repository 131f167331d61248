// ============================================================================
// ASYNC OPERATION COMPLETION TRACKING
// ============================================================================
//
// The convention by which asynchronous bulk-copy, bulk-store, and async
// multiply-accumulate operations report completion through the same
// counting mechanisms as everything else — a barrier's transfer credits or
// a group's outstanding-operation count — instead of returning when done.
//
// Completion styles:
//   - Group ops (DotAsync, StoreAsync): outstanding count incremented at
//     issue, decremented by the mover on completion; Wait(pendings)
//     drains down to a tolerated lookahead, not necessarily to zero
//   - Credit ops (CopyAsync): the declared unit count is posted to a
//     barrier as transfer credits at issue time and retired by the mover on
//     completion — the barrier, not the issuer, observes delivery
//   - Deferred arrivals (ArriveAsync): an ordinary arrival whose decrement
//     is withheld until the associated operation completes
//
// Execution model:
//   - One Mover per copy/compute engine being modeled: a pinned lane
//     draining a sequence-stamped descriptor ring in issue order
//   - Issue never blocks unless the descriptor ring is full, in which case
//     the issuing lane stalls in place — the hardware queue-full behavior
//   - On teardown the mover drains every issued descriptor before exiting:
//     promised completions are always delivered
//
// ============================================================================

package asyncop

import (
	"sync/atomic"

	"main/constants"
	"main/control"
	"main/lane"
	"main/mbar"
	"main/mutex"
	"main/spin"
)

// Op kinds. The mover's retirement action is the only behavioral split.
const (
	kindGroup  = uint32(iota) // retire: group outstanding--
	kindCopy                  // retire: barrier CompleteTx(tx)
	kindArrive                // retire: barrier Arrive(true)
)

// Op is one issued-but-not-retired asynchronous operation.
type Op struct {
	kind uint32
	tx   uint32
	bar  *mbar.Barrier
	grp  *Group
	fn   func() // the modeled work; nil means pure signaling
}

// Group tracks outstanding operation counts for bounded-lookahead drains.
// Padded so two groups polled by different lanes never share a line.
//
//go:notinheap
//go:align 64
type Group struct {
	outstanding uint64
	_           [56]byte
}

// Outstanding returns the live count of issued, unretired ops.
//
//go:nosplit
//go:inline
func (g *Group) Outstanding() uint32 {
	return uint32(atomic.LoadUint64(&g.outstanding))
}

// Wait stalls until at most pendings operations of this group remain
// outstanding — a bounded-lookahead drain. Wait(0) is the full drain.
//
//go:nosplit
//go:registerparams
func (g *Group) Wait(pendings uint32) {
	var bo spin.Backoff
	for uint32(atomic.LoadUint64(&g.outstanding)) > pendings {
		bo.Pause()
	}
}

// ============================================================================
// MOVER (MODELED COPY/COMPUTE ENGINE)
// ============================================================================

// Mover drains issued descriptors in order on its own pinned lane.
type Mover struct {
	r     *ring
	issue mutex.Mutex // serializes multi-lane issue onto the SPSC ring
	done  <-chan struct{}
}

// NewMover allocates a mover with the default descriptor ring depth.
func NewMover() *Mover {
	return &Mover{r: newRing(constants.AsyncRingSize)}
}

// Start launches the drain lane pinned to core (core < 0 floats).
// The lane exits once teardown is signaled AND every issued descriptor has
// been retired — completion promises survive shutdown.
func (m *Mover) Start(core int) {
	m.done = lane.Launch(core, 0, func(c *lane.Ctx) {
		var op Op
		var bo spin.Backoff
		for {
			if m.r.pop(&op) {
				m.retire(&op)
				bo.Reset()
				continue
			}
			if c.Stopping() {
				return // ring empty and teardown signaled
			}
			control.PollCooldown()
			bo.Pause()
		}
	})
}

// Join blocks until the drain lane has exited.
func (m *Mover) Join() {
	if m.done != nil {
		<-m.done
	}
}

// retire executes one descriptor's modeled work and delivers its promised
// completion signal.
//
//go:nosplit
//go:registerparams
func (m *Mover) retire(op *Op) {
	if op.fn != nil {
		op.fn()
	}
	switch op.kind {
	case kindGroup:
		atomic.AddUint64(&op.grp.outstanding, ^uint64(0))
	case kindCopy:
		op.bar.CompleteTx(op.tx)
	case kindArrive:
		op.bar.Arrive(true)
	}
}

// enqueue serializes issue onto the ring, stalling in place when full.
//
//go:nosplit
//go:registerparams
func (m *Mover) enqueue(op *Op) {
	m.issue.Lock()
	var bo spin.Backoff
	for !m.r.push(op) {
		bo.Pause() // queue full: issuing lane stalls, mover is draining
	}
	m.issue.Unlock()
	control.SignalActivity()
}

// ============================================================================
// ISSUE FORMS
// ============================================================================

// DotAsync issues an asynchronous multiply-accumulate against g.
// Returns immediately; g's outstanding count carries the completion.
//
//go:registerparams
func (m *Mover) DotAsync(g *Group, fn func()) {
	atomic.AddUint64(&g.outstanding, 1)
	m.enqueue(&Op{kind: kindGroup, grp: g, fn: fn})
}

// StoreAsync issues an asynchronous bulk store against g. Identical
// retirement mechanics to DotAsync; the name preserves the op taxonomy.
//
//go:registerparams
func (m *Mover) StoreAsync(g *Group, fn func()) {
	atomic.AddUint64(&g.outstanding, 1)
	m.enqueue(&Op{kind: kindGroup, grp: g, fn: fn})
}

// CopyAsync issues a bulk copy of tx units whose completion lands on b:
// the credits are posted at issue time and retired by the mover when fn
// has run. Waiters on b observe delivery, the issuer never does.
//
//go:registerparams
func (m *Mover) CopyAsync(b *mbar.Barrier, tx uint32, fn func()) {
	b.ExpectTx(tx)
	m.enqueue(&Op{kind: kindCopy, tx: tx, bar: b, fn: fn})
}

// ArriveAsync issues a deferred ordinary arrival on b: the pending-count
// decrement is withheld until fn completes on the mover. The trackAsync
// arrival form.
//
//go:registerparams
func (m *Mover) ArriveAsync(b *mbar.Barrier, fn func()) {
	m.enqueue(&Op{kind: kindArrive, bar: b, fn: fn})
}
