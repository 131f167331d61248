// ============================================================================
// COUNTING PHASE-BARRIER CORRECTNESS VALIDATION SUITE
// ============================================================================
//
// Unit testing framework for the split arrive/wait barrier with emphasis
// on counter semantics and phase-transition edge cases.
//
// Test categories:
//   - Allocation: initial counter state, scalar and array forms, failures
//   - Arrival accounting: ordinary, predicated-off, credit-carrying
//   - Phase transitions: flip-and-reload atomicity, parity probes, reuse
//   - Transfer credits: independent gating of completion
//   - Waiter release: single and multiple waiters, blocking guarantees
//   - Remote arrival: cluster-shared arenas
//
// Validation methodology:
//   - "Must block" cases run the waiter in a goroutine under a bounded
//     harness timeout, then deliver the missing arrival and require release
//   - Counter inspection via the cold-path accessors only
//
// ============================================================================

package mbar

import (
	"sync"
	"testing"
	"time"
)

// waitAsync runs b.Wait(parity) in a goroutine and returns its completion
// channel.
func waitAsync(b *Barrier, parity uint32) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		b.Wait(parity)
		close(done)
	}()
	return done
}

// mustBeBlocked asserts the waiter has made no progress within the harness
// window.
func mustBeBlocked(t *testing.T, done <-chan struct{}, context string) {
	t.Helper()
	select {
	case <-done:
		t.Fatalf("%s: wait returned but phase cannot be complete", context)
	case <-time.After(50 * time.Millisecond):
	}
}

// mustRelease asserts the waiter completes promptly.
func mustRelease(t *testing.T, done <-chan struct{}, context string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("%s: wait never released", context)
	}
}

// ============================================================================
// ALLOCATION
// ============================================================================

func TestAllocInitialState(t *testing.T) {
	for _, n := range []uint32{1, 2, 7, 64} {
		a, err := Alloc(3, n)
		if err != nil {
			t.Fatalf("Alloc(3, %d): %v", n, err)
		}
		if a.Len() != n {
			t.Fatalf("Len: got %d, want %d", a.Len(), n)
		}
		for i := uint32(0); i < n; i++ {
			b := a.At(i)
			if b.Pending() != 3 || b.Expected() != 3 {
				t.Fatalf("element %d: pending=%d expected=%d, want 3/3", i, b.Pending(), b.Expected())
			}
			if b.Phase() != 0 {
				t.Fatalf("element %d: phase=%d, want 0", i, b.Phase())
			}
			if b.Tx() != 0 {
				t.Fatalf("element %d: tx=%d, want 0", i, b.Tx())
			}
		}
	}
}

func TestAllocFailures(t *testing.T) {
	if _, err := Alloc(0, 1); err != ErrBadConfig {
		t.Fatalf("zero count: got %v, want ErrBadConfig", err)
	}
	if _, err := Alloc(1, 0); err != ErrBadConfig {
		t.Fatalf("zero length: got %v, want ErrBadConfig", err)
	}
	if _, err := Alloc(1, 1<<20); err != ErrArenaExhausted {
		t.Fatalf("oversized: got %v, want ErrArenaExhausted", err)
	}
}

// ============================================================================
// ARRIVAL ACCOUNTING
// ============================================================================

func TestArrivalsCompletePhase(t *testing.T) {
	const c = 5
	a, _ := Alloc(c, 1)
	b := a.At(0)

	for i := 0; i < c-1; i++ {
		b.Arrive(true)
		if b.TryWait(0) {
			t.Fatalf("phase complete after %d of %d arrivals", i+1, c)
		}
	}
	b.Arrive(true)

	if !b.TryWait(0) {
		t.Fatal("phase not complete after full arrival count")
	}
	if b.Phase() != 1 {
		t.Fatalf("phase=%d after flip, want 1", b.Phase())
	}
	if b.Pending() != c {
		t.Fatalf("pending=%d after flip, want reload to %d", b.Pending(), c)
	}
	if b.Tx() != 0 {
		t.Fatalf("tx=%d after flip, want 0", b.Tx())
	}
}

func TestPredicatedArriveIsNoop(t *testing.T) {
	const c = 4
	a, _ := Alloc(c, 1)
	b := a.At(0)

	for i := 0; i < c-1; i++ {
		b.Arrive(true)
	}
	b.Arrive(false) // must not count

	done := waitAsync(b, 0)
	mustBeBlocked(t, done, "after c-1 true arrivals and one false")

	if b.Pending() != 1 {
		t.Fatalf("pending=%d, want 1 (false arrive counted)", b.Pending())
	}

	b.Arrive(true)
	mustRelease(t, done, "after the final true arrival")
}

func TestWaitersReleaseTogether(t *testing.T) {
	a, _ := Alloc(1, 1)
	b := a.At(0)

	const waiters = 8
	var wg sync.WaitGroup
	release := make(chan struct{})
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-release
			b.Wait(0)
		}()
	}
	close(release)
	time.Sleep(10 * time.Millisecond)
	b.Arrive(true)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	mustRelease(t, done, "all waiters on one flip")
}

// ============================================================================
// TRANSFER CREDITS
// ============================================================================

func TestTxCreditsGateCompletion(t *testing.T) {
	const c, k = 2, 1024
	a, _ := Alloc(c, 1)
	b := a.At(0)

	b.ExpectTx(k)
	b.Arrive(true)
	b.Arrive(true)

	done := waitAsync(b, 0)
	mustBeBlocked(t, done, "arrivals complete but credits outstanding")
	if b.Pending() != 0 || b.Tx() != k {
		t.Fatalf("pending=%d tx=%d, want 0/%d", b.Pending(), b.Tx(), k)
	}

	b.CompleteTx(k - 1)
	mustBeBlocked(t, done, "one credit still outstanding")

	b.CompleteTx(1)
	mustRelease(t, done, "final credit retired")
	if b.Phase() != 1 || b.Pending() != c {
		t.Fatalf("phase=%d pending=%d after flip, want 1/%d", b.Phase(), b.Pending(), c)
	}
}

func TestArriveTxEquivalence(t *testing.T) {
	// Posting k credits through the arrive-with-expectation form then
	// retiring exactly k must complete the same as k extra ordinary
	// arrivals with an adjusted expected count: both counters gate
	// completion independently.
	const k = 7

	a1, _ := Alloc(1, 1)
	b1 := a1.At(0)
	b1.ArriveTx(true, k) // pending 1→0, tx 0→k
	for i := 0; i < k; i++ {
		if b1.TryWait(0) {
			t.Fatalf("complete with %d credits left", k-i)
		}
		b1.CompleteTx(1)
	}
	if !b1.TryWait(0) {
		t.Fatal("credit path: phase not complete")
	}

	a2, _ := Alloc(1+k, 1)
	b2 := a2.At(0)
	for i := 0; i < 1+k; i++ {
		b2.Arrive(true)
	}
	if !b2.TryWait(0) {
		t.Fatal("arrival path: phase not complete")
	}
}

func TestArriveTxPredicatedOff(t *testing.T) {
	a, _ := Alloc(1, 1)
	b := a.At(0)
	b.ArriveTx(false, 512)
	if b.Pending() != 1 || b.Tx() != 0 {
		t.Fatalf("pred=false ArriveTx touched state: pending=%d tx=%d", b.Pending(), b.Tx())
	}
}

// ============================================================================
// PHASE REUSE AND ARRAY INDEPENDENCE
// ============================================================================

func TestPhaseReuseAcrossGenerations(t *testing.T) {
	const c, phases = 3, 50
	a, _ := Alloc(c, 1)
	b := a.At(0)

	for p := uint32(0); p < phases; p++ {
		parity := b.Phase()
		if parity != p&1 {
			t.Fatalf("phase %d: parity=%d, want %d", p, parity, p&1)
		}
		for i := 0; i < c; i++ {
			b.Arrive(true)
		}
		b.Wait(parity) // already flipped; must not block
	}
}

func TestArrayElementsIndependent(t *testing.T) {
	a, _ := Alloc(1, 4)
	a.At(2).Arrive(true)

	for i := uint32(0); i < 4; i++ {
		want := uint32(0)
		if i == 2 {
			want = 1
		}
		if got := a.At(i).Phase(); got != want {
			t.Fatalf("element %d: phase=%d, want %d", i, got, want)
		}
	}
}

// ============================================================================
// REMOTE ARRIVAL (CLUSTER-SHARED ARENAS)
// ============================================================================

func TestSharedRemoteArrive(t *testing.T) {
	s, err := AllocShared(1, 2, 2)
	if err != nil {
		t.Fatalf("AllocShared: %v", err)
	}

	// Rank 1 waits on its own instance; rank 0 arrives remotely on it.
	peer := s.Local(1).At(0)
	done := waitAsync(peer, 0)
	mustBeBlocked(t, done, "before any remote arrival")

	s.Remote(1, 0).Arrive(true)
	mustRelease(t, done, "after remote arrival from rank 0")

	// Rank 0's own instance is untouched.
	if s.Local(0).At(0).Phase() != 0 {
		t.Fatal("remote arrival leaked onto the wrong rank")
	}
}
