package tree

import (
	"context"

	"github.com/kazumano/bwtree/page"
	"github.com/kazumano/bwtree/pagestore"
	"github.com/kazumano/bwtree/perf"
)

// Get returns the value visible at key, or (nil, false, nil) if the
// key has no visible Put (either never written, or shadowed by a
// Delete at or before key.LSN).
func (tx *TreeTxn) Get(ctx context.Context, key page.Key) ([]byte, bool, error) {
	defer perf.Track(&perfOrNop(ctx).FindValue)()
	view, _, err := tx.findLeaf(ctx, key.Raw)
	if err != nil {
		return nil, false, err
	}

	addr := view.Addr
	for !addr.IsNil() {
		ref, err := tx.guard.ReadPageAt(ctx, addr, pagestore.CacheDefault)
		if err != nil {
			return nil, false, err
		}
		if ref.Info.Kind.IsData() {
			sorted, derr := leafData(ref.Buf)
			if derr != nil {
				return nil, false, derr
			}
			i, _ := sorted.Rank(key)
			if e, ok := sorted.Get(i); ok && compareBytes(e.Key.Raw, key.Raw) == 0 {
				if e.Value.IsDelete() {
					return nil, false, nil
				}
				return e.Value.Payload, true, nil
			}
		}
		addr = pagestore.PageAddr(ref.Info.ChainNext)
	}
	return nil, false, nil
}

// Write installs value for key, retrying internally on conflicts
// until it either lands the delta or hits a non-retryable error.
func (tx *TreeTxn) Write(ctx context.Context, key page.Key, value page.Value) error {
	for {
		err := tx.tryWrite(ctx, key, value)
		if err == nil {
			tx.tree.stats.writeSuccess.Add(1)
			return nil
		}
		if err == ErrAgain {
			tx.tree.stats.writeConflict.Add(1)
			continue
		}
		return err
	}
}

func (tx *TreeTxn) tryWrite(ctx context.Context, key page.Key, value page.Value) error {
	view, _, err := tx.findLeaf(ctx, key.Raw)
	if err != nil {
		return err
	}

	if shouldSplit(view.Info, tx.tree.opts) {
		if _, serr := tx.split(ctx, view); serr == nil {
			return ErrAgain
		}
	}

	defer perf.Track(&perfOrNop(ctx).WriteBuildPage)()

	b := page.NewBuilder[page.Key, page.Value](page.LeafCodec{})
	b.WithItem(page.Entry[page.Key, page.Value]{Key: key, Value: value})

	chainLen := view.Info.ChainLen + 1
	if chainLen < view.Info.ChainLen {
		chainLen = view.Info.ChainLen // saturate rather than wrap
	}

	buf := make([]byte, page.HeaderSize+b.PayloadSize())
	page.EncodeHeader(buf, page.Leaf, page.Data, view.Info.Epoch, chainLen, uint64(view.Addr))
	b.Build(buf[page.HeaderSize:])

	txn := tx.guard.Begin(ctx)
	defer txn.Commit()

	curAddr := view.Addr
	for {
		newAddr, werr := txn.UpdatePage(view.ID, curAddr, buf)
		if werr == nil {
			view.Addr = newAddr
			view.Info.ChainLen = chainLen
			view.Info.ChainNext = uint64(curAddr)
			if shouldConsolidate(view.Info, tx.tree.opts) {
				_, _ = tx.consolidate(ctx, view)
			}
			return nil
		}

		conflict, ok := werr.(*pagestore.ConflictError)
		if !ok {
			return ErrAgain
		}
		if view.ID == RootID {
			return ErrAgain
		}
		ref, ierr := tx.guard.ReadPageAt(ctx, conflict.Current, pagestore.CacheDefault)
		if ierr != nil {
			return ErrAgain
		}
		if ref.Info.Epoch != view.Info.Epoch {
			return ErrAgain
		}
		curAddr = conflict.Current
		chainLen = ref.Info.ChainLen + 1
		page.SetChainNext(buf, uint64(curAddr))
		page.SetChainLen(buf, chainLen)
	}
}
