// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: constants.go — Global Synchronization Tunables (OPTIMIZED)
//
// Purpose:
//   - Defines layer-wide constants for barrier arenas, spin budgets, and
//     pipeline depths.
//   - Includes trace-recorder sizing shared by the hot path and the drain lane.
//
// Notes:
//   - Tuned for sub-microsecond hand-off latency on pinned lanes
//   - Power-of-2 sizing throughout for mask-based index arithmetic
//   - Arena caps exist to surface impossible allocations early, not to police
//     callers — every post-allocation access is unchecked
//
// ⚠️ No runtime logic here — all values must be compile-time resolvable
// ─────────────────────────────────────────────────────────────────────────────

package constants

// ───────────────────────────── Barrier Arenas ──────────────────────────────

const (
	// MaxBarriersPerAlloc caps a single barrier-array allocation.
	// Sized for:
	// - Deepest realistic software pipeline (dozens of stages) with margin
	// - One full arena stays well inside L2 (4096 × 128 B = 512 KiB)
	// - Anything larger is a caller bug, reported synchronously at Alloc
	MaxBarriersPerAlloc = 4096

	// MaxTxCredit bounds a single transfer-credit post.
	// 2^31-1 units keeps the credit field clear of the phase bit even under
	// pathological accumulation across a phase.
	MaxTxCredit = 1<<31 - 1
)

// ───────────────────────────── Spin Behavior ───────────────────────────────

const (
	// SpinBudget is the number of failed polls a waiter tolerates before
	// issuing a CPU relax hint. Matches the hand-off latency of a producer
	// running on a sibling core:
	// - Too low wastes the common fast path on PAUSE latency
	// - Too high burns power and starves SMT siblings during real stalls
	SpinBudget = 224
)

// ───────────────────────────── Named Barriers ──────────────────────────────

const (
	// NamedBarrierSlots is the size of the static named-barrier table.
	// Mirrors the 16-slot hardware budget; ids are 4 bits by contract and
	// are NOT validated on the hot path.
	NamedBarrierSlots = 16
)

// ───────────────────────────── Pipelines ───────────────────────────────────

const (
	// DefaultPipelineDepth is the multi-buffering depth the demo kernel uses.
	// Two stages hide one copy behind one compute; deeper pipelines only pay
	// off when the copy engine is the bottleneck.
	DefaultPipelineDepth = 2
)

// ───────────────────────────── Async Operations ────────────────────────────

const (
	// AsyncRingBits sizes the per-mover descriptor ring: 2^10 = 1024 slots.
	// - 1024 × 64 B descriptors = 64 KiB, inside L2
	// - Deep enough that issue never stalls behind the mover in practice
	AsyncRingBits = 10

	// AsyncRingSize is the derived slot count.
	AsyncRingSize = 1 << AsyncRingBits
)

// ───────────────────────────── Trace Recorder ──────────────────────────────

const (
	// TraceRingBits sizes the event ring between instrumented call sites and
	// the drain lane: 2^14 = 16,384 events in flight.
	// Bursts past this drop events rather than stall the hot path.
	TraceRingBits = 14

	// TraceRingSize is the derived slot count.
	TraceRingSize = 1 << TraceRingBits

	// TraceBatchRows is the number of event rows inserted per transaction
	// by the drain lane. Large batches amortize fsync; 512 keeps worst-case
	// replay loss bounded to one batch.
	TraceBatchRows = 512

	// TraceDBPath is the default on-disk event store.
	TraceDBPath = "sync_trace.db"
)
