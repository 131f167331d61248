// ============================================================================
// CLUSTER-SCOPE BARRIER VALIDATION SUITE
// ============================================================================
//
// Split arrive/wait rendezvous across a cooperating member group, including
// generation reuse and the relaxed arrival mode's counting behavior.
//
// ============================================================================

package cluster

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestRendezvousVisibility has every member publish a value before arriving
// and read all peers' values after the wait.
func TestRendezvousVisibility(t *testing.T) {
	const members = 6
	c := New(members)
	var published [members]uint64

	var wg sync.WaitGroup
	for i := 0; i < members; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			atomic.StoreUint64(&published[i], uint64(i)+1)
			c.ArriveAndWait()
			for j := 0; j < members; j++ {
				if atomic.LoadUint64(&published[j]) == 0 {
					t.Errorf("member %d passed rendezvous before %d published", i, j)
				}
			}
		}(i)
	}
	wg.Wait()
}

// TestWaitBlocksUntilLastMember verifies early members stall until the
// final arrival, then all release together.
func TestWaitBlocksUntilLastMember(t *testing.T) {
	const members = 3
	c := New(members)

	var passed uint32
	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < members-1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.ArriveAndWait()
			atomic.AddUint32(&passed, 1)
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if atomic.LoadUint32(&passed) != 0 {
		t.Fatal("member passed rendezvous before the group completed")
	}

	c.Arrive(false)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("rendezvous never completed after final arrival")
	}
}

// TestSplitArriveOverlapsWork exercises the arrive-early/wait-late shape:
// the arrival is posted, independent work happens, the wait settles at the
// rendezvous point.
func TestSplitArriveOverlapsWork(t *testing.T) {
	const members = 4
	c := New(members)

	var overlapped uint32
	var wg sync.WaitGroup
	for i := 0; i < members; i++ {
		wg.Add(1)
		go func(relaxed bool) {
			defer wg.Done()
			atomic.AddUint32(&overlapped, 1) // published before the arrival
			gen := c.Generation()
			c.Arrive(relaxed)
			// Anything here overlaps peers still on their way in.
			c.Wait(gen)
			if atomic.LoadUint32(&overlapped) != members {
				// The wait settles only after every member arrived, and
				// each member published before arriving.
				t.Error("rendezvous completed before all arrivals")
			}
		}(i%2 == 0)
	}
	wg.Wait()
}

// TestGenerationReuse runs the same cluster through many rendezvous rounds.
func TestGenerationReuse(t *testing.T) {
	const members = 4
	const rounds = 500
	c := New(members)

	var wg sync.WaitGroup
	for i := 0; i < members; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				c.ArriveAndWait()
			}
		}()
	}
	wg.Wait()

	if got := c.Generation(); got != rounds {
		t.Fatalf("generation=%d after %d rounds, want %d", got, rounds, rounds)
	}
}
