package pagestore

import (
	"context"
	"sync"
	"testing"

	"github.com/kazumano/bwtree/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{CacheCapacity: 16})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// testPage returns bytes ReadPage can serve: a zeroed page header
// followed by payload.
func testPage(payload string) []byte {
	return append(make([]byte, page.HeaderSize), payload...)
}

func TestStore_allocInsertReadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	txn := s.Begin(ctx)
	defer txn.Commit()

	buf := testPage("page-bytes")
	id, _, err := txn.AllocPage(buf)
	require.NoError(t, err)

	ref, err := s.ReadPage(ctx, id, CacheDefault)
	require.NoError(t, err)
	assert.Equal(t, buf, ref.Buf)
}

func TestStore_readPage_unknownID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.ReadPage(ctx, PageId(9999), CacheDefault)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTxn_updatePage_conflictReturnsCurrentAddr(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	txn := s.Begin(ctx)
	defer txn.Commit()

	id, addr, err := txn.AllocPage([]byte("v1"))
	require.NoError(t, err)

	// A winning update moves the head.
	newAddr, err := txn.UpdatePage(id, addr, []byte("v2"))
	require.NoError(t, err)
	assert.NotEqual(t, addr, newAddr)

	// Retrying against the now-stale old address reports a conflict
	// carrying the address the table actually holds.
	_, err = txn.UpdatePage(id, addr, []byte("v3"))
	require.Error(t, err)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, newAddr, conflict.Current)
}

func TestTxn_insertPage_rejectsOccupiedSlot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	txn := s.Begin(ctx)
	defer txn.Commit()

	id, _, err := txn.AllocPage([]byte("v1"))
	require.NoError(t, err)
	_, err = txn.InsertPage(id, []byte("v2"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTxn_replacePage_schedulesOldForReclamation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	txn := s.Begin(ctx)

	id, addr, err := txn.AllocPage(testPage("v1"))
	require.NoError(t, err)
	newAddr, err := txn.ReplacePage(id, addr, testPage("v2"))
	require.NoError(t, err)
	txn.Commit()
	// Reclamation frees a retired address once the epoch is two past the
	// one it was retired in. The commit above advances it once; an
	// uneventful extra guard cycle advances it the second time in this
	// single-threaded test.
	s.Begin(ctx).Commit()

	ref, err := s.ReadPage(ctx, id, CacheDefault)
	require.NoError(t, err)
	assert.Equal(t, newAddr, ref.Addr)
	assert.Equal(t, 1, s.arena.size(), "the old address is reclaimed once no guard references it")
}

func TestStore_concurrentCASOnSameID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	txn := s.Begin(ctx)
	id, addr, err := txn.AllocPage([]byte("seed"))
	require.NoError(t, err)
	txn.Commit()

	var (
		successes int
		mu        sync.Mutex
	)
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		i := i
		g.Go(func() error {
			t := s.Begin(ctx)
			defer t.Commit()
			if _, err := t.UpdatePage(id, addr, []byte{byte(i)}); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, successes, "exactly one writer linearises on the table slot")
}
