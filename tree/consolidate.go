package tree

import (
	"context"

	"github.com/kazumano/bwtree/page"
	"github.com/kazumano/bwtree/pagestore"
	"github.com/kazumano/bwtree/perf"
)

// chainPage is one page pulled in while walking a chain toward
// consolidation: its address, header, and payload.
type chainPage struct {
	addr pagestore.PageAddr
	info page.Info
	buf  []byte
}

// consolidate collapses view's chain (or a cache-friendly prefix of
// it, for a leaf) into a single new base page.
func (tx *TreeTxn) consolidate(ctx context.Context, view PageView) (PageView, error) {
	defer perf.Track(&perfOrNop(ctx).ConsolidatePage)()
	collected, rangeLimit, lastInfo, err := tx.collectChain(ctx, view)
	if err != nil {
		return PageView{}, err
	}
	if len(collected) < 1 {
		return view, nil
	}
	if p := perf.From(ctx); p != nil {
		p.ConsolidateLength += uint64(len(collected))
		for _, cp := range collected {
			p.ConsolidatePageSize += uint64(cp.info.Size)
		}
	}

	var newPayload []byte
	if view.Info.Tier.IsLeaf() {
		mb := page.NewMergerBuilder[page.Key, page.Value](page.Compare, len(collected))
		for _, cp := range collected {
			sorted, derr := leafData(cp.buf)
			if derr != nil {
				return PageView{}, derr
			}
			mb.Add(sorted.Iter())
		}
		merged := mb.Build()
		var limited *page.Merger[page.Key, page.Value]
		if rangeLimit != nil {
			limited = page.NewMerger(merged, &page.Key{Raw: rangeLimit, LSN: ^uint64(0)})
		} else {
			limited = merged
		}
		leafIter := page.NewMergingLeafIter(limited, tx.tree.SafeLSN())

		b := page.NewBuilder[page.Key, page.Value](page.LeafCodec{})
		b.WithIter(leafIter)
		newPayload = make([]byte, b.PayloadSize())
		b.Build(newPayload)
	} else {
		mb := page.NewMergerBuilder[[]byte, page.Index](compareRawKeys, len(collected))
		for _, cp := range collected {
			sorted, derr := innerData(cp.buf)
			if derr != nil {
				return PageView{}, derr
			}
			mb.Add(sorted.Iter())
		}
		merged := mb.Build()
		var limited *page.Merger[[]byte, page.Index]
		if rangeLimit != nil {
			limited = page.NewMerger(merged, &rangeLimit)
		} else {
			limited = merged
		}
		innerIter := page.NewMergingInnerIter(limited)

		b := page.NewBuilder[[]byte, page.Index](page.InnerCodec{})
		b.WithIter(innerIter)
		newPayload = make([]byte, b.PayloadSize())
		b.Build(newPayload)
	}

	buf := make([]byte, page.HeaderSize+len(newPayload))
	page.EncodeHeader(buf, view.Info.Tier, page.Data, view.Info.Epoch, lastInfo.ChainLen, lastInfo.ChainNext)
	copy(buf[page.HeaderSize:], newPayload)

	txn := tx.guard.Begin(ctx)
	defer txn.Commit()

	replaceDone := perf.Track(&perfOrNop(ctx).ReplacePage)
	newAddr, err := txn.ReplacePage(view.ID, view.Addr, buf)
	replaceDone()
	if err != nil {
		tx.tree.stats.consolidateConflict.Add(1)
		return PageView{}, ErrAgain
	}
	for _, cp := range collected {
		if cp.addr == view.Addr {
			continue // already scheduled by ReplacePage's own old-address reclaim
		}
		txn.Dealloc(cp.addr)
	}

	tx.tree.stats.consolidateSuccess.Add(1)
	view.Addr = newAddr
	view.Info.ChainLen = lastInfo.ChainLen
	view.Info.ChainNext = lastInfo.ChainNext
	return view, nil
}

// consolidateAndRestructure consolidates, then immediately attempts a
// split if the compacted result is still oversized. Both steps are
// best-effort; failures are swallowed by the caller.
func (tx *TreeTxn) consolidateAndRestructure(ctx context.Context, view PageView) (PageView, error) {
	newView, err := tx.consolidate(ctx, view)
	if err != nil {
		return PageView{}, err
	}
	if shouldSplit(newView.Info, tx.tree.opts) {
		if split, serr := tx.split(ctx, newView); serr == nil {
			return split, nil
		}
	}
	return newView, nil
}

// collectChain walks view's chain head to tail, gathering Data pages
// to fold into a new base page. It stops at the first Split delta it
// meets (recording its split key as the range limit that truncates
// stale upper entries out of the merge) and applies the leaf-only
// partial-consolidation heuristic: once at least two pages are
// collected and no split is pending, it stops extending as soon as
// the next page is more than twice the size accumulated so far
// while that next page does not yet itself warrant consolidating
// -- this keeps hot recent deltas from being dragged into every
// consolidation of a busy page.
func (tx *TreeTxn) collectChain(ctx context.Context, view PageView) ([]chainPage, []byte, page.Info, error) {
	defer perf.Track(&perfOrNop(ctx).CollectInfo)()
	var (
		collected  []chainPage
		rangeLimit []byte
		accSize    int
		lastInfo   page.Info
	)

	addr := view.Addr
	for !addr.IsNil() {
		ref, err := tx.guard.ReadPageAt(ctx, addr, pagestore.CacheRefillColdWhenNotFull)
		if err != nil {
			return nil, nil, page.Info{}, err
		}
		tx.guard.MarkCold(addr)

		if ref.Info.Kind.IsSplit() {
			if rangeLimit == nil {
				sd, derr := splitDelta(ref.Buf)
				if derr != nil {
					return nil, nil, page.Info{}, derr
				}
				rangeLimit = sd.SplitKey
			}
			addr = pagestore.PageAddr(ref.Info.ChainNext)
			continue
		}

		if view.Info.Tier.IsLeaf() && rangeLimit == nil && len(collected) >= 2 {
			nextSize := int(ref.Info.Size)
			if nextSize > 2*accSize && !shouldConsolidate(ref.Info, tx.tree.opts) {
				break
			}
		}

		collected = append(collected, chainPage{addr: addr, info: ref.Info, buf: ref.Buf})
		accSize += int(ref.Info.Size)
		lastInfo = ref.Info

		if ref.Info.ChainNext == 0 {
			break
		}
		addr = pagestore.PageAddr(ref.Info.ChainNext)
	}

	return collected, rangeLimit, lastInfo, nil
}

func compareRawKeys(a, b []byte) int { return compareBytes(a, b) }
