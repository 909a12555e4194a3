package tree

import (
	"context"

	"github.com/kazumano/bwtree/page"
	"github.com/kazumano/bwtree/pagestore"
)

// PageView is a per-visit snapshot taken while descending the tree: the
// logical id, its current head address, the decoded chain header, and
// the key range this logical page claims at the moment of the read.
// It is never stored; a fresh view is built on every hop.
type PageView struct {
	ID    pagestore.PageId
	Addr  pagestore.PageAddr
	Info  page.Info
	Range Range
}

// pageView reads table[id]'s header through the guard and returns a
// view scoped to rng. Reading the header never pins payload bytes.
func pageView(ctx context.Context, g pagestore.Guard, id pagestore.PageId, rng Range) (PageView, error) {
	info, addr, err := g.ReadPageInfo(ctx, id)
	if err != nil {
		return PageView{}, err
	}
	return PageView{ID: id, Addr: addr, Info: info, Range: rng}, nil
}

// index returns the child index value a parent would install to point
// at this view's current (id, epoch) pair.
func (v PageView) index() page.Index {
	return page.Index{ID: uint64(v.ID), Epoch: v.Info.Epoch}
}
