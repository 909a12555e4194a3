package tree

import (
	"context"

	"github.com/kazumano/bwtree/page"
	"github.com/kazumano/bwtree/pagestore"
)

// reconcile installs a child's split into its parent's index entries.
// It is called the moment a descender notices the child's epoch has
// moved past what the parent recorded; it is best-effort, since a
// concurrent reconciler may win the race, and idempotent, since a
// later descent simply finds matching epochs and never reconciles
// twice.
func (tx *TreeTxn) reconcile(ctx context.Context, view PageView, parent *PageView) error {
	if parent == nil {
		return ErrInvalidArgument
	}

	ref, err := tx.guard.ReadPageAt(ctx, view.Addr, pagestore.CacheDefault)
	if err != nil {
		return err
	}
	if !ref.Info.Kind.IsSplit() {
		// Nothing to reconcile; some other range change beat us here.
		return nil
	}
	split, err := splitDelta(ref.Buf)
	if err != nil {
		return err
	}

	leftKey := view.Range.Start
	leftIndex := page.Index{ID: uint64(view.ID), Epoch: view.Info.Epoch}
	splitIndex := page.Index{ID: split.RightID, Epoch: 0}

	entries := []page.Entry[[]byte, page.Index]{
		{Key: leftKey, Value: leftIndex},
		{Key: split.SplitKey, Value: splitIndex},
	}
	if view.Range.HasEnd {
		entries = append(entries, page.Entry[[]byte, page.Index]{Key: view.Range.End, Value: page.NullIndex})
	}

	b := page.NewBuilder[[]byte, page.Index](page.InnerCodec{})
	b.WithSlice(entries)
	buf := make([]byte, page.HeaderSize+b.PayloadSize())
	page.EncodeHeader(buf, page.Inner, page.Data, parent.Info.Epoch, parent.Info.ChainLen+1, uint64(parent.Addr))
	b.Build(buf[page.HeaderSize:])

	txn := tx.guard.Begin(ctx)
	defer txn.Commit()
	newAddr, err := txn.UpdatePage(parent.ID, parent.Addr, buf)
	if err != nil {
		return err
	}

	if shouldConsolidate(page.Info{Tier: page.Inner, ChainLen: parent.Info.ChainLen + 1}, tx.tree.opts) {
		newParent := *parent
		newParent.Addr = newAddr
		newParent.Info.ChainLen = parent.Info.ChainLen + 1
		newParent.Info.ChainNext = uint64(parent.Addr)
		_, _ = tx.consolidate(ctx, newParent)
	}
	return nil
}
