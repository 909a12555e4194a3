package tree

import (
	"context"
	"sync/atomic"

	"github.com/kazumano/bwtree/page"
	"github.com/kazumano/bwtree/pagestore"
)

// RootID is the fixed, reserved logical id of the tree's root page.
const RootID pagestore.PageId = 0

// Options configures a Tree's sizing thresholds.
type Options struct {
	// PageSize is the target base-page byte size; a base page larger
	// than this (halved for inner pages) becomes a split candidate.
	PageSize int
	// PageChainLength is the target delta-chain length cap; a chain
	// longer than this (halved for inner pages) becomes a
	// consolidation candidate.
	PageChainLength int
}

// DefaultOptions returns the sizing thresholds used when a caller
// doesn't have an informed opinion yet.
func DefaultOptions() Options {
	return Options{PageSize: 8 << 10, PageChainLength: 8}
}

// ReadOptions configures a scan. Get takes no ReadOptions; its
// visibility bound is the LSN of the key it is given.
type ReadOptions struct {
	// MaxLSN bounds visibility: only versions with Key.LSN <= MaxLSN
	// are visible. Zero means "no cap", i.e. read the latest.
	MaxLSN uint64
}

// WriteOptions configures a single write. Reserved for forward
// compatibility; the write protocol takes no options today.
type WriteOptions struct{}

// Tree holds the sizing options and the shared safe_lsn watermark;
// it carries no page-store state of its own; every operation goes
// through a Guard a caller begins a TreeTxn with.
type Tree struct {
	opts    Options
	safeLSN atomic.Uint64
	stats   TreeStats
}

// New builds a Tree with the given sizing options.
func New(opts Options) *Tree {
	return &Tree{opts: opts}
}

// SafeLSN returns the current watermark below which shadowed leaf
// versions may be discarded on consolidation.
func (t *Tree) SafeLSN() uint64 { return t.safeLSN.Load() }

// SetSafeLSN advances the watermark. It never moves backward: a
// caller racing an older value against a newer one loses silently.
func (t *Tree) SetSafeLSN(lsn uint64) {
	for {
		cur := t.safeLSN.Load()
		if lsn <= cur {
			return
		}
		if t.safeLSN.CompareAndSwap(cur, lsn) {
			return
		}
	}
}

// Stats returns a snapshot of the tree's operation counters.
func (t *Tree) Stats() TreeStatsSnapshot { return t.stats.snapshot() }

// TreeTxn is a single caller's handle into the tree, bound to one
// Guard for the duration of however many operations the caller issues
// through it.
type TreeTxn struct {
	tree  *Tree
	guard pagestore.Guard
}

// Begin opens a TreeTxn against guard.
func (t *Tree) Begin(guard pagestore.Guard) *TreeTxn {
	return &TreeTxn{tree: t, guard: guard}
}

// Init creates an empty leaf at RootID if one is not already present.
// It is idempotent: calling it against an already-initialised tree is
// a no-op.
func (tx *TreeTxn) Init(ctx context.Context) error {
	if _, _, err := tx.guard.ReadPageInfo(ctx, RootID); err == nil {
		return nil
	}

	b := page.NewBuilder[page.Key, page.Value](page.LeafCodec{})
	buf := make([]byte, page.HeaderSize+b.PayloadSize())
	page.EncodeHeader(buf, page.Leaf, page.Data, 0, 1, 0)
	b.Build(buf[page.HeaderSize:])

	txn := tx.guard.Begin(ctx)
	defer txn.Commit()
	_, err := txn.InsertPage(RootID, buf)
	if err != nil {
		// Lost the race to initialise against another caller; the
		// tree now exists either way.
		if _, _, rerr := tx.guard.ReadPageInfo(ctx, RootID); rerr == nil {
			return nil
		}
		return err
	}
	return nil
}
