// ════════════════════════════════════════════════════════════════════════════════════════════════
// Warp Synchronization Layer - Main Entry Point
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Warp Synchronization Layer
// Component: Demo Kernel & System Orchestration
//
// Description:
//   System orchestration with phased lifecycle and clean separation of concerns.
//   Bootstrap → Pipelined Kernel Execution → Graceful Teardown
//
// Architecture:
//   - Phase 0: Service lanes (data mover, trace drain) and arena allocation
//   - Phase 1: Multi-buffered producer/consumer kernel across role-partitioned lanes
//   - Phase 2: Teardown with full drain of promised completions
//
// The demo kernel is the reference composition of the layer: transfer-credit barriers hide
// bulk copies, token pipelines hand slots between warp-group roles, bounded async drains
// overlap compute, and mutex/named/cluster barriers serialize everything that must not
// overlap.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package main

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"main/asyncop"
	"main/cluster"
	"main/constants"
	"main/control"
	"main/debug"
	"main/lane"
	"main/mbar"
	"main/mutex"
	"main/namedbar"
	"main/token"
	"main/trace"
	"main/utils"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// KERNEL GEOMETRY
// ═══════════════════════════════════════════════════════════════════════════════════════════════

const (
	kernelLanes   = 4   // two producer/consumer pairs
	kernelRoles   = 2   // role 0 = producer, role 1 = consumer
	kernelIters   = 64  // pipeline iterations per pair
	kernelBlock   = 512 // words per staged block
	kernelPairs   = kernelLanes / 2
	epochInterval = 16 // iterations between named-barrier epoch syncs
)

// pair bundles the per-pair coordination state shared by one producer lane
// and one consumer lane.
type pair struct {
	pipe   *token.Pipeline
	stage  *mbar.Array                                         // one tx-credit barrier per slot
	buf    [constants.DefaultPipelineDepth][kernelBlock]uint64 // staged blocks
	parity [constants.DefaultPipelineDepth]uint32              // producer-side stage parities
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// MAIN ORCHESTRATION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func main() {
	// PHASE 0: Service infrastructure
	debug.DropMessage("INIT", "Starting warp synchronization demo kernel")

	_ = os.Remove(constants.TraceDBPath)
	rec, err := trace.Open(constants.TraceDBPath)
	if err != nil {
		debug.DropError("TRACE", err)
		rec = nil // tracing is removable; the kernel runs without it
	}
	if rec != nil {
		rec.Start(1)
	}

	mover := asyncop.NewMover()
	mover.Start(2)

	setupSignalHandling()

	// Per-pair pipelines and stage barriers, allocated once and reused by
	// index for the kernel's whole lifetime.
	pairs := [kernelPairs]*pair{}
	for i := range pairs {
		p := &pair{}
		p.pipe, err = token.New(constants.DefaultPipelineDepth)
		if err != nil {
			debug.DropError("ALLOC", err)
			os.Exit(1)
		}
		p.stage, err = mbar.Alloc(1, constants.DefaultPipelineDepth)
		if err != nil {
			debug.DropError("ALLOC", err)
			os.Exit(1)
		}
		pairs[i] = p
	}

	clu := cluster.New(kernelLanes)
	var totalMu mutex.Mutex
	var total uint64

	debug.DropMessage("READY", utils.Itoa(kernelPairs)+" pipelines, depth "+
		utils.Itoa(constants.DefaultPipelineDepth))

	// PHASE 1: Pipelined kernel across role-partitioned lanes
	control.SignalActivity()
	pool := lane.LaunchPool(3, kernelLanes, func(c *lane.Ctx) {
		p := pairs[c.ID/2]
		switch mutex.RoleID(c.ID, kernelRoles) {
		case 0:
			runProducer(c, p, mover, rec)
		case 1:
			runConsumer(c, p, mover, rec, &totalMu, &total)
		}
		clu.ArriveAndWait() // no lane leaves until every lane's work is visible
	})
	pool.Join()

	// PHASE 2: Teardown — drain promised completions, then the trace store
	control.Shutdown()
	mover.Join()

	want := expectedTotal()
	if total == want {
		debug.DropMessage("RESULT", "OK total="+utils.Utoa(total))
	} else {
		debug.DropMessage("RESULT", "MISMATCH got="+utils.Utoa(total)+" want="+utils.Utoa(want))
	}

	if rec != nil {
		drops := rec.Drops()
		if err := rec.Close(); err != nil {
			debug.DropError("TRACE", err)
		}
		debug.DropMessage("TRACE", "store closed, drops="+utils.Utoa(drops))
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// PRODUCER ROLE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// runProducer stages blocks through the pipeline: acquire a slot, issue the
// bulk copy with its transfer-credit expectation, stall on credit delivery,
// publish the slot.
func runProducer(c *lane.Ctx, p *pair, mover *asyncop.Mover, rec *trace.Recorder) {
	pairID := c.ID / 2
	for i := uint32(0); i < kernelIters; i++ {
		slot := i % constants.DefaultPipelineDepth
		p.pipe.ProducerAcquire(slot)

		// TMA-style issue: kernelBlock words of credit posted at issue,
		// retired by the mover when the copy lands; the producer's own
		// arrival follows the credit post so the phase cannot complete
		// before the expectation is declared.
		b := p.stage.At(slot)
		base := uint64(pairID)*1_000_000 + uint64(i)
		buf := &p.buf[slot]
		mover.CopyAsync(b, kernelBlock, func() {
			for j := range buf {
				buf[j] = base + uint64(j)
			}
		})
		b.Arrive(true)

		b.Wait(p.parity[slot])
		p.parity[slot] ^= 1

		p.pipe.ProducerCommit(slot)
		if rec != nil {
			rec.Emit(&trace.Event{Kind: trace.KindCommit, Lane: c.ID, Obj: uint64(pairID), Slot: slot, A: i})
		}

		if (i+1)%epochInterval == 0 {
			namedbar.ArriveWait(uint32(pairID), 2) // epoch sync with the pair's consumer
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CONSUMER ROLE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// runConsumer drains published slots with bounded lookahead: the newest
// async accumulate may stay in flight while the previous slot is released,
// because the mover retires in issue order. The pair's partial sum folds
// into the shared total under the role-serialization mutex.
func runConsumer(c *lane.Ctx, p *pair, mover *asyncop.Mover, rec *trace.Recorder,
	totalMu *mutex.Mutex, total *uint64) {

	pairID := c.ID / 2
	var grp asyncop.Group
	var sum uint64

	for i := uint32(0); i < kernelIters; i++ {
		slot := i % constants.DefaultPipelineDepth
		p.pipe.ConsumerWait(slot)

		buf := &p.buf[slot]
		mover.DotAsync(&grp, func() {
			var s uint64
			for j := range buf {
				s += buf[j]
			}
			atomic.AddUint64(&sum, s)
		})

		// Bounded lookahead drain: only the op just issued may remain in
		// flight. FIFO retirement then guarantees the previous slot's op
		// has landed, so that slot can go back to the producer.
		grp.Wait(1)
		if i > 0 {
			prev := (i - 1) % constants.DefaultPipelineDepth
			p.pipe.ConsumerRelease(prev)
			if rec != nil {
				rec.Emit(&trace.Event{Kind: trace.KindRelease, Lane: c.ID, Obj: uint64(pairID), Slot: prev, A: i, B: grp.Outstanding()})
			}
		}

		if (i+1)%epochInterval == 0 {
			namedbar.ArriveWait(uint32(pairID), 2)
		}
	}

	// Full drain, then retire the last slot.
	grp.Wait(0)
	p.pipe.ConsumerRelease((kernelIters - 1) % constants.DefaultPipelineDepth)

	totalMu.Lock()
	*total += atomic.LoadUint64(&sum)
	totalMu.Unlock()
	if rec != nil {
		rec.Emit(&trace.Event{Kind: trace.KindUnlock, Lane: c.ID, Obj: uint64(pairID)})
	}
}

// expectedTotal computes the checksum the kernel must produce.
func expectedTotal() uint64 {
	var want uint64
	for p := uint64(0); p < kernelPairs; p++ {
		for i := uint64(0); i < kernelIters; i++ {
			base := p*1_000_000 + i
			for j := uint64(0); j < kernelBlock; j++ {
				want += base + j
			}
		}
	}
	return want
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// SIGNAL HANDLING
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// setupSignalHandling wires SIGINT/SIGTERM to graceful teardown. Service
// lanes observe the stop flag; kernel lanes finish their iterations — waits
// are never abandoned mid-phase.
func setupSignalHandling() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		debug.DropMessage("SIGNAL", "Teardown requested")
		control.Shutdown()
	}()
}
