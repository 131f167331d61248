// ============================================================================
// PIPELINE TOKEN PROTOCOL
// ============================================================================
//
// Producer/consumer handshake over a depth-N circular buffer of slots,
// built entirely on the counting phase-barrier: one single-arrival barrier
// pair (empty, full) per slot, plus per-role phase-parity trackers.
//
// Slot lifecycle:
//   EMPTY → ACQUIRED → FULL → EMPTY
//
//   - ProducerAcquire blocks until the slot is EMPTY, claims it
//   - ProducerCommit publishes ACQUIRED → FULL, releasing the consumer
//   - ConsumerWait blocks until the slot is FULL
//   - ConsumerRelease returns FULL → EMPTY, releasing the producer
//
// Phase-parity scheme:
//   Each reuse of a slot flips its barriers' phases once. The producer
//   tracks the empty-barrier parity per slot (starting at 1 so the first
//   acquire of a fresh pipeline is non-blocking); the consumer tracks the
//   full-barrier parity (starting at 0 so the first wait blocks until the
//   first commit). Trackers toggle on every pass.
//
// Safety model:
//   - ⚠️  FOOTGUN GRADE 10/10: Zero protocol validation
//   - Exactly one producer role and one consumer role per pipeline; the
//     parity trackers are unsynchronized single-owner state
//   - Strict alternation per slot is the caller's obligation; a repeated
//     acquire or commit without the matching release/wait does not fault —
//     it stalls forever or corrupts the handshake, as on hardware
//
// ============================================================================

package token

import "main/mbar"

// Pipeline is a depth-N ring of handshake slots. Allocate once, index by
// iteration mod depth for the kernel's lifetime.
type Pipeline struct {
	empty *mbar.Array // flips when a consumer returns a slot
	full  *mbar.Array // flips when a producer publishes a slot

	// Single-owner parity trackers; no atomics by SPSC contract.
	prodParity []uint32
	consParity []uint32
}

// New allocates a pipeline of the given depth with every slot EMPTY.
// Depth is fixed for the pipeline's lifetime. The only failure mode is
// barrier arena exhaustion.
func New(depth uint32) (*Pipeline, error) {
	empty, err := mbar.Alloc(1, depth)
	if err != nil {
		return nil, err
	}
	full, err := mbar.Alloc(1, depth)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		empty:      empty,
		full:       full,
		prodParity: make([]uint32, depth),
		consParity: make([]uint32, depth),
	}
	for i := range p.prodParity {
		p.prodParity[i] = 1 // fresh slots are EMPTY: first acquire must pass
	}
	return p, nil
}

// Depth reports the slot count fixed at creation.
//
//go:nosplit
//go:inline
func (p *Pipeline) Depth() uint32 {
	return p.empty.Len()
}

// ============================================================================
// PRODUCER SIDE
// ============================================================================

// ProducerAcquire stalls until slot idx is EMPTY and claims it.
// ⚠️ idx unchecked; producer role only; no re-acquire before release.
//
//go:nosplit
//go:registerparams
func (p *Pipeline) ProducerAcquire(idx uint32) {
	p.empty.At(idx).Wait(p.prodParity[idx])
	p.prodParity[idx] ^= 1
}

// ProducerCommit publishes slot idx as FULL, releasing a blocked consumer.
// Must follow the matching ProducerAcquire.
//
//go:nosplit
//go:inline
//go:registerparams
func (p *Pipeline) ProducerCommit(idx uint32) {
	p.full.At(idx).Arrive(true)
}

// ============================================================================
// CONSUMER SIDE
// ============================================================================

// ConsumerWait stalls until slot idx is FULL.
// ⚠️ idx unchecked; consumer role only.
//
//go:nosplit
//go:registerparams
func (p *Pipeline) ConsumerWait(idx uint32) {
	p.full.At(idx).Wait(p.consParity[idx])
	p.consParity[idx] ^= 1
}

// ConsumerRelease returns slot idx to EMPTY, releasing a blocked producer.
// Must follow the matching ConsumerWait.
//
//go:nosplit
//go:inline
//go:registerparams
func (p *Pipeline) ConsumerRelease(idx uint32) {
	p.empty.At(idx).Arrive(true)
}
