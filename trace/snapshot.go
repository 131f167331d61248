// snapshot.go — Textual round-trip of recorded event streams
//
// The event store's interchange format: a recorded stream serializes to
// JSON for inspection and diffing, deserializes back bit-identically, and
// folds to a 64-bit fingerprint so two runs (or a run and its reload) can
// be compared without replaying either.

package trace

import (
	"github.com/sugawarayuuta/sonnet"

	"main/utils"
)

// Snapshot encodes an event stream as JSON.
func Snapshot(events []Event) ([]byte, error) {
	return sonnet.Marshal(events)
}

// Restore decodes a Snapshot back into an event stream.
func Restore(data []byte) ([]Event, error) {
	var events []Event
	if err := sonnet.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Fingerprint folds an event stream into a 64-bit replay digest.
// Timestamps are excluded — two runs with identical interleavings
// fingerprint identically regardless of wall-clock spacing.
//
//go:nosplit
func Fingerprint(events []Event) uint64 {
	var h uint64 = 0x9e3779b97f4a7c15
	for i := range events {
		ev := &events[i]
		h = utils.Mix64(h ^ uint64(ev.Kind)<<32 ^ uint64(ev.Lane))
		h = utils.Mix64(h ^ ev.Obj)
		h = utils.Mix64(h ^ uint64(ev.Slot)<<32 ^ uint64(ev.A))
		h = utils.Mix64(h ^ uint64(ev.B))
	}
	return h
}
