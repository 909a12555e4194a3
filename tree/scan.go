package tree

import (
	"context"

	"github.com/kazumano/bwtree/page"
	"github.com/kazumano/bwtree/pagestore"
)

// visibleLeafIter resolves a merged leaf stream down to one value per
// raw key: the newest version at or below maxLSN (0 meaning no cap),
// with Deletes suppressed entirely from the output.
type visibleLeafIter struct {
	src     *page.Merger[page.Key, page.Value]
	maxLSN  uint64
	lastRaw []byte
	hasLast bool
}

func (it *visibleLeafIter) Next() (page.Entry[page.Key, page.Value], bool) {
	for {
		e, ok := it.src.Next()
		if !ok {
			var zero page.Entry[page.Key, page.Value]
			return zero, false
		}
		if it.hasLast && compareBytes(e.Key.Raw, it.lastRaw) == 0 {
			continue // visibility for this raw key already resolved
		}
		if it.maxLSN != 0 && e.Key.LSN > it.maxLSN {
			continue // not visible yet; an older version may still qualify
		}
		it.lastRaw = e.Key.Raw
		it.hasLast = true
		if e.Value.IsDelete() {
			continue
		}
		return e, true
	}
}

// PageIter yields the visible entries of a single leaf page in key
// order. Callers drain it fully before asking TreeIter for the next one.
type PageIter struct {
	src *visibleLeafIter
}

// Next returns the next visible (key, value), or false once the page
// is exhausted.
func (p *PageIter) Next() (page.Entry[page.Key, page.Value], bool) { return p.src.Next() }

// TreeIter drives a forward, leaf-by-leaf range scan: Seek positions
// at a starting key, and repeated NextPage calls walk sibling leaves
// using the parent's index entries rather than re-descending from the
// root for every page.
type TreeIter struct {
	tx   *TreeTxn
	opts ReadOptions

	pending *PageIter

	parentIter  *page.MergingInnerIter
	fallback    []byte
	hasFallback bool

	done bool
}

// NewIter builds a scan iterator bound to tx, visible up to opts.MaxLSN.
func NewIter(tx *TreeTxn, opts ReadOptions) *TreeIter {
	return &TreeIter{tx: tx, opts: opts}
}

// Seek descends to the leaf covering target, seeds a leaf iterator at
// the first entry >= target, and positions an iterator over the
// parent's own index entries just past the one covering target -- so
// the next NextPage call walks to the following sibling, not back to
// the current leaf.
func (it *TreeIter) Seek(ctx context.Context, target []byte) error {
	view, parent, err := it.tx.findLeaf(ctx, target)
	if err != nil {
		return err
	}

	leafMerger, err := it.tx.buildLeafMerger(ctx, view)
	if err != nil {
		return err
	}
	leafMerger.Seek(page.Key{Raw: target, LSN: ^uint64(0)})
	it.pending = &PageIter{src: &visibleLeafIter{src: leafMerger, maxLSN: it.opts.MaxLSN}}
	it.done = false

	if parent == nil {
		it.parentIter = nil
		it.hasFallback = false
		return nil
	}

	innerMerger, err := it.tx.buildInnerMerger(ctx, *parent)
	if err != nil {
		return err
	}
	if innerMerger.Seek(target) {
		innerMerger.Next() // that entry covers the leaf we already have
	}
	it.parentIter = page.NewMergingInnerIter(innerMerger)
	it.fallback = parent.Range.End
	it.hasFallback = parent.Range.HasEnd
	return nil
}

// NextPage returns an iterator over the next leaf in key order, or
// (nil, nil) once the scan is exhausted.
func (it *TreeIter) NextPage(ctx context.Context) (*PageIter, error) {
	if it.pending != nil {
		p := it.pending
		it.pending = nil
		return p, nil
	}
	if it.done {
		return nil, nil
	}

	if it.parentIter != nil {
		if e, ok := it.parentIter.Next(); ok {
			childInfo, childAddr, err := it.tx.guard.ReadPageInfo(ctx, pagestore.PageId(e.Value.ID))
			if err != nil {
				return nil, err
			}
			if childInfo.Epoch != e.Value.Epoch {
				// The subtree below this index entry has changed shape
				// since the parent snapshot; its key is still a valid
				// lower bound, so reseek from there instead of trusting
				// the stale (id, epoch) pair.
				return it.reseekFrom(ctx, e.Key)
			}
			childView := PageView{ID: pagestore.PageId(e.Value.ID), Addr: childAddr, Info: childInfo, Range: Range{Start: e.Key}}
			merger, merr := it.tx.buildLeafMerger(ctx, childView)
			if merr != nil {
				return nil, merr
			}
			return &PageIter{src: &visibleLeafIter{src: merger, maxLSN: it.opts.MaxLSN}}, nil
		}
		it.parentIter = nil
	}

	if it.hasFallback {
		key := it.fallback
		it.hasFallback = false
		return it.reseekFrom(ctx, key)
	}

	it.done = true
	return nil, nil
}

func (it *TreeIter) reseekFrom(ctx context.Context, key []byte) (*PageIter, error) {
	if err := it.Seek(ctx, key); err != nil {
		return nil, err
	}
	return it.NextPage(ctx)
}

// buildLeafMerger walks view's whole chain head to tail into a single
// merged stream. A Split-kind node contributes no entries, but the first
// one met bounds the stream at its split key: everything at or above it
// now lives in the right sibling, so the older pages' copies are cut off.
func (tx *TreeTxn) buildLeafMerger(ctx context.Context, view PageView) (*page.Merger[page.Key, page.Value], error) {
	mb := page.NewMergerBuilder[page.Key, page.Value](page.Compare, int(view.Info.ChainLen))
	var limit []byte
	addr := view.Addr
	for !addr.IsNil() {
		ref, err := tx.guard.ReadPageAt(ctx, addr, pagestore.CacheRefillColdWhenNotFull)
		if err != nil {
			return nil, err
		}
		if ref.Info.Kind.IsData() {
			sorted, derr := leafData(ref.Buf)
			if derr != nil {
				return nil, derr
			}
			mb.Add(sorted.Iter())
		} else if limit == nil {
			sd, derr := splitDelta(ref.Buf)
			if derr != nil {
				return nil, derr
			}
			limit = sd.SplitKey
		}
		addr = pagestore.PageAddr(ref.Info.ChainNext)
	}
	if limit != nil {
		return page.NewMerger(mb.Build(), &page.Key{Raw: limit, LSN: ^uint64(0)}), nil
	}
	return mb.Build(), nil
}

// buildInnerMerger is buildLeafMerger's inner-tier counterpart.
func (tx *TreeTxn) buildInnerMerger(ctx context.Context, view PageView) (*page.Merger[[]byte, page.Index], error) {
	mb := page.NewMergerBuilder[[]byte, page.Index](compareRawKeys, int(view.Info.ChainLen))
	addr := view.Addr
	for !addr.IsNil() {
		ref, err := tx.guard.ReadPageAt(ctx, addr, pagestore.CacheRefillColdWhenNotFull)
		if err != nil {
			return nil, err
		}
		if ref.Info.Kind.IsData() {
			sorted, derr := innerData(ref.Buf)
			if derr != nil {
				return nil, derr
			}
			mb.Add(sorted.Iter())
		}
		addr = pagestore.PageAddr(ref.Info.ChainNext)
	}
	return mb.Build(), nil
}
