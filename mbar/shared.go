// shared.go — Cluster-shared barrier arenas for cross-unit arrival
//
// A Shared arena gives every rank in a cooperating group its own barrier
// array while keeping all of them addressable from every member via the
// DSMEM-style remote path: a lane arrives on a peer's barrier instance
// instead of its own. The remote form is how split producer/consumer units
// signal each other across unit boundaries.
//
// Addressing is unchecked on both axes — rank and index — matching the
// local Array contract.

package mbar

// Shared is a per-rank collection of identically configured barrier arrays.
type Shared struct {
	ranks []*Array
}

// AllocShared reserves a barrier array of n elements with arrival count
// `count` for each of `ranks` cooperating units. Fails only on impossible
// configuration, like local Alloc.
func AllocShared(count, n, ranks uint32) (*Shared, error) {
	if ranks == 0 {
		return nil, ErrBadConfig
	}
	s := &Shared{ranks: make([]*Array, ranks)}
	for r := range s.ranks {
		a, err := Alloc(count, n)
		if err != nil {
			return nil, err
		}
		s.ranks[r] = a
	}
	return s, nil
}

// Local returns the calling rank's own array.
// ⚠️ rank must be < the allocated rank count; unchecked.
//
//go:nosplit
//go:inline
//go:registerparams
func (s *Shared) Local(rank uint32) *Array {
	return s.ranks[rank]
}

// Remote projects barrier idx belonging to peer rank, for arrivals directed
// at a cooperating unit rather than the caller's own instance. The returned
// barrier accepts the full arrive protocol; waiting on a remote instance is
// legal but unusual.
// ⚠️ Both coordinates are unchecked.
//
//go:nosplit
//go:inline
//go:registerparams
func (s *Shared) Remote(rank, idx uint32) *Barrier {
	return s.ranks[rank].At(idx)
}
