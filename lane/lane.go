// ════════════════════════════════════════════════════════════════════════════════════════════════
// ⚡ CORE-PINNED EXECUTION LANES
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Warp Synchronization Layer
// Component: Dedicated Core Execution Model
//
// Description:
//   Execution-unit abstraction for the synchronization layer: a lane is a goroutine locked to
//   an OS thread and pinned to a CPU core, carrying a small integer identity. Lanes model the
//   hardware contract the primitives assume — an execution unit that stalls in place when it
//   waits, never yielding its core to other work.
//
// Identity model:
//   - Lane ids are dense small integers assigned at launch
//   - Role partitioning (producer vs consumer warp-groups) derives from the lane id via
//     mutex.RoleID — a pure function, so role assignment is static
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package lane

import (
	"runtime"

	"main/control"
)

// Ctx is the per-lane context handed to the body: the lane's identity plus
// the global run-state flags for polling between kernel phases.
type Ctx struct {
	ID   uint32  // dense lane identity, fixed at launch
	Core int     // CPU core the lane is pinned to (-1 if unpinned)
	stop *uint32 // global teardown flag
	hot  *uint32 // global activity flag
}

// Stopping reports whether global teardown has been signaled. Poll between
// phases, never inside a barrier wait — waits must be satisfied, not
// abandoned.
//
//go:norace
//go:nosplit
//go:inline
//go:registerparams
func (c *Ctx) Stopping() bool {
	return *c.stop != 0
}

// Hot reports whether the issuing side is actively producing work.
//
//go:norace
//go:nosplit
//go:inline
//go:registerparams
func (c *Ctx) Hot() bool {
	return *c.hot == 1
}

// Launch starts body on a goroutine locked to an OS thread and pinned to
// the given core. The returned channel closes when the body returns.
//
// THREADING MODEL:
//
//	The goroutine locks to an OS thread and sets CPU affinity to ensure
//	consistent cache residency and predictable spin behavior. core < 0
//	skips pinning (test harnesses, oversubscribed hosts).
//
//go:registerparams
func Launch(core int, id uint32, body func(*Ctx)) <-chan struct{} {
	done := make(chan struct{})
	stop, hot := control.Flags()
	go func() {
		runtime.LockOSThread()
		if core >= 0 {
			setAffinity(core)
		}
		defer func() {
			runtime.UnlockOSThread()
			close(done)
		}()
		body(&Ctx{ID: id, Core: core, stop: stop, hot: hot})
	}()
	return done
}

// Pool launches a warp-group: n lanes with dense ids 0..n-1 spread across
// cores starting at baseCore (round-robin over NumCPU). Join blocks until
// every lane's body has returned.
type Pool struct {
	done []<-chan struct{}
}

// LaunchPool starts the group. baseCore < 0 launches every lane unpinned.
func LaunchPool(baseCore int, n uint32, body func(*Ctx)) *Pool {
	p := &Pool{done: make([]<-chan struct{}, n)}
	ncpu := runtime.NumCPU()
	for i := uint32(0); i < n; i++ {
		core := -1
		if baseCore >= 0 {
			core = (baseCore + int(i)) % ncpu
		}
		p.done[i] = Launch(core, i, body)
	}
	return p
}

// Join blocks until all lanes in the group have exited.
func (p *Pool) Join() {
	for _, d := range p.done {
		<-d
	}
}
