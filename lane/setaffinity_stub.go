// setaffinity_stub.go - CPU Affinity No-Op Implementation
// ============================================================================
//
// Cross-platform compatibility stub for CPU affinity operations on systems
// where sched_setaffinity(2) is unavailable or unsupported.
//
// Compatibility strategy:
//   - Maintains identical API surface for conditional compilation elimination
//   - Zero overhead: Function completely eliminated by compiler inlining
//   - Safe fallback: No-op behavior prevents compilation failures
//   - Transparent operation: Higher-level code requires no modifications

//go:build !linux || tinygo

package lane

// setAffinity provides no-op CPU affinity for unsupported platforms.
// Lanes still lock their OS thread; they just float across cores.
//
//go:nosplit
//go:inline
func setAffinity(cpu int) {
	// No-op implementation for platform compatibility
}
