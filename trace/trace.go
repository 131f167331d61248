// ════════════════════════════════════════════════════════════════════════════════════════════════
// Synchronization Event Recorder
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Warp Synchronization Layer
// Component: Removable Debug Tracing
//
// Description:
//   Optional observation layer for post-mortem stall analysis. Instrumented call sites emit
//   fixed-size event records into a sequence-stamped ring; a dedicated drain lane batches them
//   into a sqlite event store. The primitives themselves carry no instrumentation — callers
//   emit around their arrive/wait/acquire sites, and a disabled recorder costs one nil check.
//
// Design constraints:
//   - Emit never blocks the hot path: a full ring drops the event and counts the drop
//   - Drain lane owns the database exclusively; batched transactions amortize fsync
//   - Event kinds mirror the primitive operations one-to-one so a recorded stream replays
//     the interleaving that led to a hang
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package trace

import (
	"database/sql"
	"sync/atomic"
	"time"

	"main/constants"
	"main/control"
	"main/lane"
	"main/mutex"
	"main/spin"

	_ "github.com/mattn/go-sqlite3"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// EVENT MODEL
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Event kinds, one per primitive operation worth replaying.
const (
	KindArrive   = uint32(iota + 1) // barrier arrival (ordinary or with credits)
	KindTx                          // credit post or retirement
	KindWait                        // barrier wait returned
	KindAcquire                     // token producer acquire
	KindCommit                      // token producer commit
	KindConsume                     // token consumer wait returned
	KindRelease                     // token consumer release
	KindLock                        // mutex acquired
	KindUnlock                      // mutex released
	KindNamed                       // named barrier passed
	KindCluster                     // cluster rendezvous passed
	KindIssue                       // async op issued
	KindRetire                      // async op retired
)

// Event is one fixed-size trace record. 48 bytes of payload; the ring slot
// pads it with its sequence stamp.
type Event struct {
	Kind uint32 `json:"kind"`
	Lane uint32 `json:"lane"`
	Obj  uint64 `json:"obj"`  // object identity (barrier/pipeline/mutex address or id)
	Slot uint32 `json:"slot"` // array index / slot index / barrier id
	A    uint32 `json:"a"`    // op-specific: pending, parity, role, credits
	B    uint32 `json:"b"`    // op-specific: tx, generation, outstanding
	TS   int64  `json:"ts"`   // UnixNano at emit
}

// slot couples an event with its ring sequence stamp.
type evslot struct {
	seq uint64
	ev  Event
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// RECORDER
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Recorder is the drain side: ring, database handle, and drop accounting.
type Recorder struct {
	_     [64]byte
	head  uint64 // drain cursor
	_     [56]byte
	tail  uint64 // emit cursor, guarded by emitMu
	drops uint64 // events lost to a full ring
	_     [40]byte

	mask   uint64
	buf    []evslot
	emitMu mutex.Mutex

	db   *sql.DB
	done <-chan struct{}
}

// Open creates a recorder backed by the sqlite store at path, creating the
// schema if absent. The second surfaced error class in the repo besides
// barrier allocation — tracing is infrastructure, not a primitive.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			kind INTEGER NOT NULL,
			lane INTEGER NOT NULL,
			obj  INTEGER NOT NULL,
			slot INTEGER NOT NULL,
			a    INTEGER NOT NULL,
			b    INTEGER NOT NULL,
			ts   INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS checkpoint (
			id      INTEGER PRIMARY KEY CHECK (id = 1),
			drained INTEGER NOT NULL,
			dropped INTEGER NOT NULL,
			ts      INTEGER NOT NULL
		);`)
	if err != nil {
		db.Close()
		return nil, err
	}
	r := &Recorder{
		mask: constants.TraceRingSize - 1,
		buf:  make([]evslot, constants.TraceRingSize),
		db:   db,
	}
	for i := range r.buf {
		r.buf[i].seq = uint64(i)
	}
	return r, nil
}

// Drops reports events lost to ring overflow so far.
//
//go:nosplit
//go:inline
func (r *Recorder) Drops() uint64 {
	return atomic.LoadUint64(&r.drops)
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// EMIT PATH (INSTRUMENTED CALL SITES)
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Emit records one event without ever blocking: a full ring drops the event
// and bumps the drop counter instead of stalling the primitive's caller.
// Multi-lane emit is serialized by a spin lock; the drain lane reads
// lock-free through the sequence stamps.
//
//go:nosplit
//go:registerparams
func (r *Recorder) Emit(ev *Event) {
	ev.TS = time.Now().UnixNano()
	r.emitMu.Lock()
	t := r.tail
	s := &r.buf[t&r.mask]
	if atomic.LoadUint64(&s.seq) != t {
		r.emitMu.Unlock()
		atomic.AddUint64(&r.drops, 1)
		return
	}
	s.ev = *ev
	atomic.StoreUint64(&s.seq, t+1)
	r.tail = t + 1
	r.emitMu.Unlock()
	control.SignalActivity()
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// DRAIN LANE (SQLITE PERSISTENCE)
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Start launches the drain lane on the given core (core < 0 floats).
// Events are flushed in TraceBatchRows transactions; on teardown the lane
// drains the ring fully and writes the checkpoint row before exiting.
func (r *Recorder) Start(core int) {
	r.done = lane.Launch(core, 0, func(c *lane.Ctx) {
		batch := make([]Event, 0, constants.TraceBatchRows)
		var drained uint64
		var bo spin.Backoff
		for {
			if r.drainOne(&batch) {
				drained++
				bo.Reset()
				if len(batch) == constants.TraceBatchRows {
					r.flush(&batch)
				}
				continue
			}
			if len(batch) > 0 {
				r.flush(&batch) // ring idle: push out the partial batch
				continue
			}
			if c.Stopping() {
				r.checkpoint(drained)
				return
			}
			control.PollCooldown()
			bo.Pause()
		}
	})
}

// Close joins the drain lane and releases the database. Callers signal
// control.Shutdown first; Close then observes the fully drained store.
func (r *Recorder) Close() error {
	if r.done != nil {
		<-r.done
	}
	return r.db.Close()
}

// drainOne moves one event from the ring into the batch, if available.
//
//go:nosplit
func (r *Recorder) drainOne(batch *[]Event) bool {
	h := r.head
	s := &r.buf[h&r.mask]
	if atomic.LoadUint64(&s.seq) != h+1 {
		return false
	}
	*batch = append(*batch, s.ev)
	atomic.StoreUint64(&s.seq, h+uint64(len(r.buf)))
	r.head = h + 1
	return true
}

// flush writes the batch in one transaction and resets it.
func (r *Recorder) flush(batch *[]Event) {
	tx, err := r.db.Begin()
	if err != nil {
		*batch = (*batch)[:0]
		return // event loss over hot-path stalls, always
	}
	stmt, err := tx.Prepare(
		"INSERT INTO events (kind, lane, obj, slot, a, b, ts) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		*batch = (*batch)[:0]
		return
	}
	for i := range *batch {
		ev := &(*batch)[i]
		_, _ = stmt.Exec(ev.Kind, ev.Lane, int64(ev.Obj), ev.Slot, ev.A, ev.B, ev.TS)
	}
	stmt.Close()
	_ = tx.Commit()
	*batch = (*batch)[:0]
}

// checkpoint records the final drain accounting row.
func (r *Recorder) checkpoint(drained uint64) {
	_, _ = r.db.Exec(
		"INSERT OR REPLACE INTO checkpoint (id, drained, dropped, ts) VALUES (1, ?, ?, ?)",
		int64(drained), int64(atomic.LoadUint64(&r.drops)), time.Now().UnixNano())
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// READBACK (POST-MORTEM ANALYSIS)
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Load reads every persisted event from the store at path in insertion
// order. Offline path; allocates freely.
func Load(path string) ([]Event, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query("SELECT kind, lane, obj, slot, a, b, ts FROM events ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var obj int64
		if err := rows.Scan(&ev.Kind, &ev.Lane, &obj, &ev.Slot, &ev.A, &ev.B, &ev.TS); err != nil {
			return nil, err
		}
		ev.Obj = uint64(obj)
		out = append(out, ev)
	}
	return out, rows.Err()
}
