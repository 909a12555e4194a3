package tree

import (
	"context"

	"github.com/kazumano/bwtree/page"
	"github.com/kazumano/bwtree/pagestore"
	"github.com/kazumano/bwtree/perf"
)

// descendStep is one (index, range, parent) triple tracked while
// walking from the root toward a leaf.
type descendStep struct {
	index  page.Index
	rng    Range
	parent *PageView
}

// findLeaf descends from the root to the leaf whose range contains
// rawKey, retrying internally on ErrAgain until it either reaches a
// leaf or hits a non-retryable error.
func (tx *TreeTxn) findLeaf(ctx context.Context, rawKey []byte) (PageView, *PageView, error) {
	defer perf.Track(&perfOrNop(ctx).FindLeaf)()
	for {
		view, parent, err := tx.tryFindLeaf(ctx, rawKey)
		if err == nil {
			tx.tree.stats.findSuccess.Add(1)
			return view, parent, nil
		}
		if err == ErrAgain {
			tx.tree.stats.findConflict.Add(1)
			continue
		}
		return PageView{}, nil, err
	}
}

// tryFindLeaf makes one descent attempt, restarting (returning
// ErrAgain) the instant it observes a stale epoch.
func (tx *TreeTxn) tryFindLeaf(ctx context.Context, rawKey []byte) (PageView, *PageView, error) {
	step := descendStep{
		index: page.Index{ID: uint64(RootID), Epoch: 0},
		rng:   RootRange(),
	}

	for {
		view, err := pageView(ctx, tx.guard, pagestore.PageId(step.index.ID), step.rng)
		if err != nil {
			return PageView{}, nil, err
		}

		if view.Info.Epoch != step.index.Epoch {
			_ = tx.reconcile(ctx, view, step.parent)
			return PageView{}, nil, ErrAgain
		}

		if view.Info.Tier.IsLeaf() {
			return view, step.parent, nil
		}

		left, right, hasRight, err := tx.findChild(ctx, view, rawKey)
		if err != nil {
			return PageView{}, nil, err
		}

		nextRange := Range{Start: left.Key}
		if hasRight {
			nextRange.End = right.Key
			nextRange.HasEnd = true
		} else if step.rng.HasEnd {
			nextRange.End = step.rng.End
			nextRange.HasEnd = true
		}

		parent := view
		step = descendStep{index: left.Value, rng: nextRange, parent: &parent}
	}
}

// findChild walks view's own chain (head to tail) looking for the
// first page whose bracketing entries enclose rawKey. A left bracket
// resolving to NULL_INDEX is a placeholder installed by reconciliation
// and is skipped in favour of an older page further down the chain.
func (tx *TreeTxn) findChild(ctx context.Context, view PageView, rawKey []byte) (left, right page.Entry[[]byte, page.Index], hasRight bool, err error) {
	addr := view.Addr
	for !addr.IsNil() {
		ref, rerr := tx.guard.ReadPageAt(ctx, addr, pagestore.CacheDefault)
		if rerr != nil {
			return left, right, false, rerr
		}
		if ref.Info.Kind.IsData() {
			sorted, derr := innerData(ref.Buf)
			if derr != nil {
				return left, right, false, derr
			}
			i, exact := sorted.Rank(rawKey)
			var li, ri int
			if exact {
				li, ri = i, i+1
			} else {
				li, ri = i-1, i
			}
			if li >= 0 {
				if le, ok := sorted.Get(li); ok && !le.Value.IsNull() {
					if re, ok := sorted.Get(ri); ok {
						return le, re, true, nil
					}
					return le, page.Entry[[]byte, page.Index]{}, false, nil
				}
			}
		}
		addr = pagestore.PageAddr(ref.Info.ChainNext)
	}
	return left, right, false, errChainExhausted
}
