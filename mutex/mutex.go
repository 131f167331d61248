// ============================================================================
// ROLE-SERIALIZED SPIN MUTEX
// ============================================================================
//
// Coarse-grained mutual exclusion for warp-group roles that must not
// execute a critical region concurrently. A single padded TTAS word —
// test-and-test-and-set keeps the contended path reading a shared cache
// line instead of bouncing it with failed CAS traffic.
//
// Fairness: none specified and none provided. The winner of the releasing
// CAS race proceeds; acquisition order under contention is
// implementation-defined (whoever's CAS lands first).
//
// Safety model:
//   - ⚠️  No recursion detection, no owner tracking, no deadlock detection
//   - Recursive Lock stalls the caller forever
//   - Unlock without a held lock silently corrupts the exclusion contract
//   - Every exit path must Unlock; nothing releases automatically
//
// ============================================================================

package mutex

import (
	"sync/atomic"

	"main/spin"
)

// Mutex is a single exclusive-ownership flag, padded to a full cache line
// so independent mutexes never contend through false sharing.
//
//go:notinheap
//go:align 64
type Mutex struct {
	word uint32   // 0 = unlocked, 1 = held
	_    [60]byte // pad to 64 bytes
}

// New allocates one mutex, initially unlocked.
func New() *Mutex {
	return &Mutex{}
}

// Lock stalls until exclusive ownership is acquired.
//
//go:nosplit
//go:registerparams
func (m *Mutex) Lock() {
	var bo spin.Backoff
	for {
		// Read-only probe first: failed CAS attempts on a held lock would
		// keep the line in modified state and starve the owner's unlock.
		if atomic.LoadUint32(&m.word) == 0 &&
			atomic.CompareAndSwapUint32(&m.word, 0, 1) {
			return
		}
		bo.Pause()
	}
}

// Unlock releases ownership. Caller must hold the lock.
//
//go:nosplit
//go:inline
//go:registerparams
func (m *Mutex) Unlock() {
	atomic.StoreUint32(&m.word, 0)
}

// ============================================================================
// ROLE ASSIGNMENT
// ============================================================================

// RoleID maps an execution-unit identity onto one of totalRoles statically
// assigned roles. Pure function: the same lane always lands on the same
// role, which is what lets mutex usage be partitioned by role rather than
// by dynamic value.
// ⚠️ totalRoles must be nonzero; unchecked.
//
//go:nosplit
//go:inline
//go:registerparams
func RoleID(lane, totalRoles uint32) uint32 {
	return lane % totalRoles
}
