package pagestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAL_appendAndReplayPreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.db")
	w, err := OpenWAL(path)
	require.NoError(t, err)
	defer w.Close()

	records := []Record{
		{Op: OpAlloc, ID: 1, Addr: 10},
		{Op: OpInstall, ID: 1, Addr: 11},
		{Op: OpDealloc, ID: 1, Addr: 10},
	}
	for _, r := range records {
		require.NoError(t, w.Append(r))
	}

	var got []Record
	require.NoError(t, w.Replay(func(r Record) error {
		got = append(got, r)
		return nil
	}))
	assert.Equal(t, records, got)
}

func TestStore_withWALPathDurablyLogsMutations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := Open(Options{CacheCapacity: 16, WALPath: path})
	require.NoError(t, err)

	txn := s.Begin(context.Background())
	_, _, err = txn.AllocPage([]byte("durable"))
	require.NoError(t, err)
	txn.Commit()
	require.NoError(t, s.Close())

	w, err := OpenWAL(path)
	require.NoError(t, err)
	defer w.Close()
	var count int
	require.NoError(t, w.Replay(func(Record) error { count++; return nil }))
	assert.Equal(t, 1, count)
}
