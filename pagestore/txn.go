package pagestore

import (
	"context"
	"sync/atomic"
)

// Txn is a single writer's handle into the page store: an epoch pin
// (so the reclaimer knows it must not free anything retired while the
// txn is open) plus the install/update/replace operations. Unlike the
// original's move-based API, a *Txn is never consumed by a failed
// call -- Go has no ownership to move, so the same *Txn is simply
// reused across CAS retries.
type Txn struct {
	store   *Store
	atEpoch uint64
	closed  atomic.Bool
}

// Begin opens a transaction pinned to the store's current epoch. ctx
// is accepted for interface symmetry with the rest of Guard and to
// leave room for a future blocking admission-control step; the
// in-memory reclaimer never actually blocks on it.
func (s *Store) Begin(ctx context.Context) *Txn {
	_ = ctx
	return &Txn{store: s, atEpoch: s.reclaimer.enter()}
}

// Commit releases the transaction's epoch pin. It is idempotent.
func (t *Txn) Commit() {
	if t.closed.CompareAndSwap(false, true) {
		t.store.reclaimer.exit(t.atEpoch)
	}
}

func (t *Txn) checkOpen() error {
	if t.closed.Load() {
		return ErrAbort
	}
	return nil
}

// AllocPage reserves a new logical page id and installs buf as its
// first physical version. It is used for pages that have no prior
// existence, such as the new right sibling created by a split or the
// two halves of a root split.
func (t *Txn) AllocPage(buf []byte) (PageId, PageAddr, error) {
	if err := t.checkOpen(); err != nil {
		return 0, NilAddr, err
	}
	id := t.store.table.alloc()
	addr := t.store.arena.alloc(buf)
	t.store.table.install(id, addr)
	if t.store.wal != nil {
		if err := t.store.wal.Append(Record{Op: OpAlloc, ID: id, Addr: addr}); err != nil {
			return 0, NilAddr, err
		}
	}
	t.store.stats.recordWrite(len(buf))
	return id, addr, nil
}

// InsertPage installs buf as the current version of an existing page
// id whose slot is still nil, e.g. the fixed root id when a tree is
// first initialised. It fails with ErrInvalidArgument if the
// slot is already occupied.
func (t *Txn) InsertPage(id PageId, buf []byte) (PageAddr, error) {
	if err := t.checkOpen(); err != nil {
		return NilAddr, err
	}
	addr := t.store.arena.alloc(buf)
	if !t.store.table.cas(id, NilAddr, addr) {
		t.store.arena.dealloc(addr)
		return NilAddr, ErrInvalidArgument
	}
	if t.store.wal != nil {
		if err := t.store.wal.Append(Record{Op: OpInstall, ID: id, Addr: addr}); err != nil {
			return NilAddr, err
		}
	}
	t.store.stats.recordWrite(len(buf))
	return addr, nil
}

// UpdatePage CASes id's address from old to a freshly allocated buf.
// On a mismatch it returns *ConflictError carrying the address the
// table actually held, so the caller can re-read and retry with the
// same *Txn; a mismatch where the current address is nil means id was
// never installed and the caller should give up instead of retrying.
func (t *Txn) UpdatePage(id PageId, old PageAddr, buf []byte) (PageAddr, error) {
	if err := t.checkOpen(); err != nil {
		return NilAddr, err
	}
	addr := t.store.arena.alloc(buf)
	if !t.store.table.cas(id, old, addr) {
		t.store.arena.dealloc(addr)
		current := t.store.table.load(id)
		if current.IsNil() {
			return NilAddr, ErrInvalidArgument
		}
		t.store.stats.recordConflict()
		return NilAddr, &ConflictError{Current: current}
	}
	if t.store.wal != nil {
		if err := t.store.wal.Append(Record{Op: OpInstall, ID: id, Addr: addr}); err != nil {
			return NilAddr, err
		}
	}
	t.store.stats.recordWrite(len(buf))
	return addr, nil
}

// Dealloc schedules addr for reclamation once no guard that might
// still be dereferencing it remains open. It is exposed directly for
// callers (consolidation) that must free more than the single address
// ReplacePage's CAS already covers -- the rest of a collapsed chain.
func (t *Txn) Dealloc(addr PageAddr) {
	t.store.reclaimer.schedule(addr)
}

// ReplacePage CASes id's address from old to buf exactly like
// UpdatePage, but additionally schedules old for reclamation once no
// guard that might still be dereferencing it remains open. It is used
// by consolidation, which replaces a whole chain with one compacted
// base page and must eventually free every page in the old chain.
func (t *Txn) ReplacePage(id PageId, old PageAddr, buf []byte) (PageAddr, error) {
	addr, err := t.UpdatePage(id, old, buf)
	if err != nil {
		return NilAddr, err
	}
	t.store.reclaimer.schedule(old)
	if t.store.wal != nil {
		_ = t.store.wal.Append(Record{Op: OpDealloc, ID: id, Addr: old})
	}
	return addr, nil
}
