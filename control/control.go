// control.go — Global run-state flags and activity management for pinned lanes
// ============================================================================
// KERNEL CONTROL ORCHESTRATION
// ============================================================================
//
// Control package provides lightweight global signaling infrastructure for
// coordinating activity states and graceful teardown across core-pinned
// execution lanes with nanosecond-precision timing and zero-allocation
// operations.
//
// Architecture overview:
//   • Global hot/stop flags for lock-free inter-lane communication
//   • Nanosecond-precision activity tracking with automatic cooldown
//   • Zero-allocation flag access for hot path performance
//   • Graceful teardown coordination across all pinned lanes
//
// Threading model:
//   • Issuing lanes signal activity via SignalActivity()
//   • Mover and drain lanes poll flags via Flags() for coordination
//   • Automatic cooldown prevents unnecessary hot spinning between kernels
//   • Teardown ensures every lane exits its spin loop cleanly
//
// Safety guarantees:
//   • Race-free flag access with proper memory ordering
//   • Bounded cooldown periods prevent infinite hot spinning
//   • Deterministic teardown behavior across all cores
//
// ============================================================================

package control

import "time"

// ============================================================================
// GLOBAL STATE MANAGEMENT
// ============================================================================

var (
	// Global coordination flags - polled by all service lanes
	hot  uint32 // Activity indicator: 1 = kernels in flight, 0 = idle
	stop uint32 // Teardown signal: 1 = initiate graceful exit, 0 = running

	// Activity timing for automatic cooldown management
	lastHot    int64                    // Nanosecond timestamp of last issue-side activity
	cooldownNs = int64(1 * time.Second) // Cooldown duration: 1 second idle period
)

// ============================================================================
// ACTIVITY SIGNALING (ISSUE-SIDE INTEGRATION)
// ============================================================================

// SignalActivity marks the system as active and records precise timing for
// automatic cooldown management. Called whenever a kernel issues work that a
// service lane (data mover, trace drain) will have to chase.
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func SignalActivity() {
	hot = 1
	lastHot = time.Now().UnixNano()
}

// ============================================================================
// COOLDOWN MANAGEMENT (AUTOMATIC EFFICIENCY)
// ============================================================================

// PollCooldown implements automatic hot-flag clearance based on elapsed time
// since last activity. Integrates into service-lane spin loops to stop hot
// polling once the issuing side has gone quiet.
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func PollCooldown() {
	if hot == 1 && time.Now().UnixNano()-lastHot > cooldownNs {
		hot = 0
	}
}

// ============================================================================
// SYSTEM TEARDOWN (GRACEFUL TERMINATION)
// ============================================================================

// Shutdown initiates graceful termination by setting the global stop flag.
// Every pinned lane monitors this flag between polls and exits cleanly upon
// detection. Barrier waiters are NOT interrupted — callers must drain their
// own liveness obligations before signaling stop.
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func Shutdown() {
	stop = 1
}

// ============================================================================
// FLAG ACCESS (LANE INTEGRATION)
// ============================================================================

// Flags returns direct pointers to global coordination flags for
// zero-allocation polling by pinned lanes.
//
// Return values: (*stop_flag, *hot_flag) for lane.Launch integration
// Memory safety: Returned pointers remain valid for application lifetime
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func Flags() (*uint32, *uint32) {
	return &stop, &hot
}
