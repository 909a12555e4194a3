package pagestore

import (
	"sync"
	"sync/atomic"
)

// pending is one address waiting to be freed once no guard that was
// active when it was retired could still be dereferencing it.
type pending struct {
	addr    PageAddr
	atEpoch uint64
}

// reclaimer defers arena.dealloc until every guard alive at schedule
// time has closed. It is a simple epoch-based scheme: each open guard
// bumps one shared count of open guards, the epoch advances each time
// that count drops to zero, and a retired address is freed once the
// epoch is at least two past the one it was retired in.
type reclaimer struct {
	arena *arena

	epoch  atomic.Uint64
	active atomic.Int64 // guards currently open, whatever epoch they entered in
	mu     sync.Mutex
	waiting []pending
}

func newReclaimer(a *arena) *reclaimer {
	r := &reclaimer{arena: a}
	r.epoch.Store(1)
	return r
}

// enter marks a guard open in the current epoch and returns that
// epoch so the guard can record it for exit bookkeeping.
func (r *reclaimer) enter() uint64 {
	r.active.Add(1)
	return r.epoch.Load()
}

// exit closes a guard. When it was the last guard open, the epoch
// advances (unless another exit already moved it past atEpoch) and every
// waiting address retired two or more epochs ago is freed.
func (r *reclaimer) exit(atEpoch uint64) {
	if r.active.Add(-1) != 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.epoch.CompareAndSwap(atEpoch, atEpoch+1)
	cur := r.epoch.Load()

	kept := r.waiting[:0]
	for _, p := range r.waiting {
		if p.atEpoch+1 < cur {
			r.arena.dealloc(p.addr)
		} else {
			kept = append(kept, p)
		}
	}
	r.waiting = kept
}

// schedule retires addr once it is safe: no guard opened at epoch or
// earlier can still be alive.
func (r *reclaimer) schedule(addr PageAddr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waiting = append(r.waiting, pending{addr: addr, atEpoch: r.epoch.Load()})
	if r.active.Load() == 0 {
		cur := r.epoch.Load()
		kept := r.waiting[:0]
		for _, p := range r.waiting {
			if p.atEpoch+1 < cur {
				r.arena.dealloc(p.addr)
			} else {
				kept = append(kept, p)
			}
		}
		r.waiting = kept
	}
}
