package tree

import (
	"context"

	"github.com/kazumano/bwtree/page"
	"github.com/kazumano/bwtree/pagestore"
	"github.com/kazumano/bwtree/perf"
)

// split dispatches a base-page split. It requires view.Info.Kind ==
// Data and view.Info.ChainNext == 0; it is the caller's job to have
// already checked shouldSplit. A page with fewer than two distinct
// keys has nothing to split and returns nil without changing anything.
func (tx *TreeTxn) split(ctx context.Context, view PageView) (PageView, error) {
	defer perf.Track(&perfOrNop(ctx).SplitPage)()
	if !view.Info.Kind.IsData() || view.Info.ChainNext != 0 {
		return PageView{}, ErrInvalidArgument
	}
	if view.ID == RootID {
		return tx.splitRoot(ctx, view)
	}

	ref, err := tx.guard.ReadPageAt(ctx, view.Addr, pagestore.CacheDefault)
	if err != nil {
		return PageView{}, err
	}

	var (
		rightBuf []byte
		splitKey []byte
	)
	if view.Info.Tier.IsLeaf() {
		sorted, derr := leafData(ref.Buf)
		if derr != nil {
			return PageView{}, derr
		}
		sk, _, right, ok := sorted.IntoSplitIter()
		if !ok {
			return view, nil
		}
		splitKey = sk.Raw
		b := page.NewBuilder[page.Key, page.Value](page.LeafCodec{})
		b.WithIter(right)
		buf := make([]byte, page.HeaderSize+b.PayloadSize())
		page.EncodeHeader(buf, page.Leaf, page.Data, 0, 1, 0)
		b.Build(buf[page.HeaderSize:])
		rightBuf = buf
	} else {
		sorted, derr := innerData(ref.Buf)
		if derr != nil {
			return PageView{}, derr
		}
		sk, _, right, ok := sorted.IntoSplitIter()
		if !ok {
			return view, nil
		}
		splitKey = sk
		b := page.NewBuilder[[]byte, page.Index](page.InnerCodec{})
		b.WithIter(right)
		buf := make([]byte, page.HeaderSize+b.PayloadSize())
		page.EncodeHeader(buf, page.Inner, page.Data, 0, 1, 0)
		b.Build(buf[page.HeaderSize:])
		rightBuf = buf
	}

	txn := tx.guard.Begin(ctx)
	defer txn.Commit()

	rightID, _, err := txn.AllocPage(rightBuf)
	if err != nil {
		tx.tree.stats.splitConflict.Add(1)
		return PageView{}, ErrAgain
	}

	delta := page.SplitDelta{SplitKey: splitKey, RightID: uint64(rightID)}
	deltaBuf := make([]byte, page.HeaderSize+delta.EncodedLen())
	page.EncodeHeader(deltaBuf, view.Info.Tier, page.Split, view.Info.Epoch+1, view.Info.ChainLen+1, uint64(view.Addr))
	page.EncodeSplitDelta(deltaBuf[page.HeaderSize:], delta)

	newAddr, err := txn.UpdatePage(view.ID, view.Addr, deltaBuf)
	if err != nil {
		tx.tree.stats.splitConflict.Add(1)
		return PageView{}, ErrAgain
	}

	tx.tree.stats.splitSuccess.Add(1)
	view.Info.ChainNext = uint64(view.Addr)
	view.Addr = newAddr
	view.Info.Kind = page.Split
	view.Info.Epoch++
	view.Info.ChainLen++
	return view, nil
}

// splitRoot handles the one case a split can never demote: the root.
// Both halves become fresh logical pages, and a brand-new inner base
// page listing them atomically replaces the root head. The root keeps
// epoch=0, chain_len=1 after growth -- it is never itself "split" the
// way an ordinary page is.
func (tx *TreeTxn) splitRoot(ctx context.Context, view PageView) (PageView, error) {
	ref, err := tx.guard.ReadPageAt(ctx, view.Addr, pagestore.CacheDefault)
	if err != nil {
		return PageView{}, err
	}

	txn := tx.guard.Begin(ctx)
	defer txn.Commit()

	var leftID, rightID pagestore.PageId
	var splitKey []byte

	if view.Info.Tier.IsLeaf() {
		sorted, derr := leafData(ref.Buf)
		if derr != nil {
			return PageView{}, derr
		}
		sk, left, right, ok := sorted.IntoSplitIter()
		if !ok {
			return view, nil
		}
		splitKey = sk.Raw
		leftBuf := buildLeafBase(left)
		rightBuf := buildLeafBase(right)
		if leftID, _, err = txn.AllocPage(leftBuf); err != nil {
			return PageView{}, ErrAgain
		}
		if rightID, _, err = txn.AllocPage(rightBuf); err != nil {
			return PageView{}, ErrAgain
		}
	} else {
		sorted, derr := innerData(ref.Buf)
		if derr != nil {
			return PageView{}, derr
		}
		sk, left, right, ok := sorted.IntoSplitIter()
		if !ok {
			return view, nil
		}
		splitKey = sk
		leftBuf := buildInnerBase(left)
		rightBuf := buildInnerBase(right)
		if leftID, _, err = txn.AllocPage(leftBuf); err != nil {
			return PageView{}, ErrAgain
		}
		if rightID, _, err = txn.AllocPage(rightBuf); err != nil {
			return PageView{}, ErrAgain
		}
	}

	rootEntries := []page.Entry[[]byte, page.Index]{
		{Key: []byte{}, Value: page.Index{ID: uint64(leftID)}},
		{Key: splitKey, Value: page.Index{ID: uint64(rightID)}},
	}
	b := page.NewBuilder[[]byte, page.Index](page.InnerCodec{})
	b.WithSlice(rootEntries)
	newRootBuf := make([]byte, page.HeaderSize+b.PayloadSize())
	page.EncodeHeader(newRootBuf, page.Inner, page.Data, 0, 1, 0)
	b.Build(newRootBuf[page.HeaderSize:])

	newAddr, err := txn.ReplacePage(RootID, view.Addr, newRootBuf)
	if err != nil {
		tx.tree.stats.splitConflict.Add(1)
		return PageView{}, ErrAgain
	}

	tx.tree.stats.splitSuccess.Add(1)
	return PageView{
		ID:    RootID,
		Addr:  newAddr,
		Info:  page.Info{Tier: page.Inner, Kind: page.Data, Epoch: 0, ChainLen: 1, ChainNext: 0},
		Range: RootRange(),
	}, nil
}

func buildLeafBase(src page.Source[page.Key, page.Value]) []byte {
	b := page.NewBuilder[page.Key, page.Value](page.LeafCodec{})
	b.WithIter(src)
	buf := make([]byte, page.HeaderSize+b.PayloadSize())
	page.EncodeHeader(buf, page.Leaf, page.Data, 0, 1, 0)
	b.Build(buf[page.HeaderSize:])
	return buf
}

func buildInnerBase(src page.Source[[]byte, page.Index]) []byte {
	b := page.NewBuilder[[]byte, page.Index](page.InnerCodec{})
	b.WithIter(src)
	buf := make([]byte, page.HeaderSize+b.PayloadSize())
	page.EncodeHeader(buf, page.Inner, page.Data, 0, 1, 0)
	b.Build(buf[page.HeaderSize:])
	return buf
}
