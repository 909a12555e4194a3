package pagestore

import (
	"context"

	"github.com/kazumano/bwtree/page"
	"github.com/kazumano/bwtree/perf"
)

// PageRef is a page fetched through a Guard: its physical address (for
// a later CAS), the decoded chain header, and the full encoded bytes
// (header followed by payload) a caller can hand to page.DecodeInfo /
// page.New to get at the sorted entries.
type PageRef struct {
	Addr PageAddr
	Info page.Info
	Buf  []byte
}

// Guard is the read-side contract the tree package drives every
// traversal through. A *Store implements it directly; tests can swap
// in a fake that injects conflicts or epoch bumps deterministically.
// Every read method and Begin take a context.Context since a real store's reads may
// block on I/O (a disk-backed arena, a cold cache) even though the
// in-memory Store below never does.
type Guard interface {
	// ReadPage fetches the current bytes at id under the given cache
	// hint, returning ErrInvalidArgument if id has never been
	// installed (or has since been deallocated).
	ReadPage(ctx context.Context, id PageId, opt CacheOption) (PageRef, error)

	// ReadPageInfo is a header-only fast path for epoch checks during
	// descent, skipping a full payload decode.
	ReadPageInfo(ctx context.Context, id PageId) (page.Info, PageAddr, error)

	// ReadPageAt fetches the bytes at a physical address directly,
	// bypassing the indirection table. Chain links (chain_next) are
	// addresses, not logical ids, so walking a delta chain past its
	// head needs this rather than ReadPage.
	ReadPageAt(ctx context.Context, addr PageAddr, opt CacheOption) (PageRef, error)

	// Begin opens a transaction pinned to the guard's current epoch.
	Begin(ctx context.Context) *Txn

	// MarkCold demotes addr in the clock cache immediately, instead of
	// waiting for an eviction sweep to find it untouched. Consolidation
	// uses this on every page it folds in, since a page already being
	// merged into a compacted tail gains nothing from staying hot.
	MarkCold(addr PageAddr)
}

func (s *Store) MarkCold(addr PageAddr) {
	s.cache.Touch(addr, CacheRefillColdWhenNotFull).ReturnAsCold()
}

func (s *Store) ReadPage(ctx context.Context, id PageId, opt CacheOption) (PageRef, error) {
	defer perf.Track(&perfOrNop(ctx).GetPage)()
	addr := s.table.load(id)
	if addr.IsNil() {
		return PageRef{}, ErrInvalidArgument
	}
	buf, ok := s.arena.read(addr)
	if !ok {
		return PageRef{}, ErrInvalidArgument
	}
	info, err := page.DecodeInfo(buf)
	if err != nil {
		return PageRef{}, err
	}
	s.touchCache(ctx, addr, opt)
	s.stats.recordRead(len(buf))
	return PageRef{Addr: addr, Info: info, Buf: buf}, nil
}

func (s *Store) ReadPageAt(ctx context.Context, addr PageAddr, opt CacheOption) (PageRef, error) {
	defer perf.Track(&perfOrNop(ctx).GetPage)()
	if addr.IsNil() {
		return PageRef{}, ErrInvalidArgument
	}
	buf, ok := s.arena.read(addr)
	if !ok {
		return PageRef{}, ErrInvalidArgument
	}
	info, err := page.DecodeInfo(buf)
	if err != nil {
		return PageRef{}, err
	}
	s.touchCache(ctx, addr, opt)
	s.stats.recordRead(len(buf))
	return PageRef{Addr: addr, Info: info, Buf: buf}, nil
}

func (s *Store) ReadPageInfo(ctx context.Context, id PageId) (page.Info, PageAddr, error) {
	defer perf.Track(&perfOrNop(ctx).GetPageInfo)()
	if p := perf.From(ctx); p != nil {
		p.GetPageInfoCount++
	}
	addr := s.table.load(id)
	if addr.IsNil() {
		return page.Info{}, NilAddr, ErrInvalidArgument
	}
	buf, ok := s.arena.read(addr)
	if !ok {
		return page.Info{}, NilAddr, ErrInvalidArgument
	}
	info, err := page.DecodeInfo(buf)
	return info, addr, err
}

// touchCache records the cache hit/miss counters perf tracks alongside
// the actual clock-cache touch.
func (s *Store) touchCache(ctx context.Context, addr PageAddr, opt CacheOption) {
	wasHot := s.cache.IsHot(addr)
	s.cache.Touch(addr, opt)
	if p := perf.From(ctx); p != nil {
		if wasHot {
			p.GetPageFromCacheCount++
		} else {
			p.GetPageFromCacheMissCount++
		}
	}
}

// perfOrNop returns ctx's attached *perf.Ctx, or a scratch one that is
// discarded immediately if none was attached -- callers can always
// take its address unconditionally.
func perfOrNop(ctx context.Context) *perf.Ctx {
	if p := perf.From(ctx); p != nil {
		return p
	}
	return &perf.Ctx{}
}
