// ============================================================================
// SPIN-WAIT BACKOFF SYSTEM
// ============================================================================
//
// Graduated busy-wait helper shared by every blocking primitive in the
// layer (barrier wait, token acquire, mutex lock, named/cluster barriers,
// bounded async drains).
//
// Core capabilities:
//   - Raw spinning inside the budget window for minimum hand-off latency
//   - CPU relax hints past the budget to cooperate with SMT siblings
//   - Periodic scheduler yield so oversubscribed test runs stay live
//
// Safety model:
//   - No timeouts, no cancellation — a waiter whose condition never comes
//     true stalls forever, exactly like the hardware it models
//   - Zero allocation, zero atomics; Backoff is caller-local state
//
// ============================================================================

package spin

import (
	"runtime"

	"main/constants"
)

// Backoff tracks consecutive failed polls for one waiter.
// The zero value is ready to use; reset by assigning Backoff{}.
type Backoff struct {
	miss uint32 // consecutive failed polls since last hit
}

// Pause records one failed poll and applies the graduated stall strategy:
// spin freely inside the budget, relax past it, and yield to the Go
// scheduler once per full budget so waiters sharing a P cannot livelock
// the goroutine that would release them.
//
//go:nosplit
//go:inline
//go:registerparams
func (b *Backoff) Pause() {
	b.miss++
	if b.miss < constants.SpinBudget {
		return // stay hot — hand-off is usually imminent
	}
	if b.miss >= constants.SpinBudget*8 {
		b.miss = constants.SpinBudget
		runtime.Gosched()
		return
	}
	Relax()
}

// Reset clears the miss counter after a successful poll.
//
//go:nosplit
//go:inline
//go:registerparams
func (b *Backoff) Reset() {
	b.miss = 0
}
