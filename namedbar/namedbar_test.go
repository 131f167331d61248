// ============================================================================
// NAMED BARRIER TABLE VALIDATION SUITE
// ============================================================================
//
// Participant-count rendezvous semantics over the process-wide slot table.
// Tests use distinct barrier ids so suites never interfere through the
// shared table — exactly the out-of-band agreement real callers make.
//
// ============================================================================

package namedbar

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestAllParticipantsObserveEachOther runs 8 participants through
// ArriveWait on one id. Each sets its flag before arriving; after the wait
// every participant must read all 8 flags set — no one passes the barrier
// before everyone's pre-barrier write.
func TestAllParticipantsObserveEachOther(t *testing.T) {
	const id, n = 3, 8
	var flags [n]uint32

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			atomic.StoreUint32(&flags[i], 1)
			ArriveWait(id, n)
			for j := 0; j < n; j++ {
				if atomic.LoadUint32(&flags[j]) != 1 {
					t.Errorf("participant %d passed before %d arrived", i, j)
				}
			}
		}(i)
	}
	wg.Wait()
}

// TestLastArrivalReleases verifies n-1 participants stay blocked until the
// final arrival.
func TestLastArrivalReleases(t *testing.T) {
	const id, n = 5, 4

	var released uint32
	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n-1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ArriveWait(id, n)
			atomic.AddUint32(&released, 1)
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadUint32(&released); got != 0 {
		t.Fatalf("%d participants released before the last arrival", got)
	}

	Arrive(id, n) // the missing participant; arrive-only form
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("barrier never released after final arrival")
	}
}

// TestGenerationsReuse drives one id through many back-to-back generations
// from a fixed party. A stale-generation confusion deadlocks or releases
// early; either fails the run.
func TestGenerationsReuse(t *testing.T) {
	const id, n, rounds = 7, 4, 500

	var wg sync.WaitGroup
	var passes uint64
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				ArriveWait(id, n)
				atomic.AddUint64(&passes, 1)
			}
		}()
	}
	wg.Wait()

	if passes != n*rounds {
		t.Fatalf("passes=%d, want %d", passes, n*rounds)
	}
}

// TestSplitArriveWait exercises the split form: arrive without blocking,
// wait later against the generation the arrival belonged to.
func TestSplitArriveWait(t *testing.T) {
	const id, n = 9, 2

	done := make(chan struct{})
	go func() {
		ArriveWait(id, n)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("released with one participant missing")
	default:
	}

	gen := Arrive(id, n) // completing arrival: generation rolls over
	Wait(id, gen)        // that generation is done; returns immediately
	<-done
}
