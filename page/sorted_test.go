package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLeafPage(t *testing.T, entries []Entry[Key, Value]) *Sorted[Key, Value] {
	t.Helper()
	b := NewBuilder[Key, Value](LeafCodec{})
	b.WithSlice(entries)
	buf := make([]byte, b.PayloadSize())
	b.Build(buf)
	sorted, err := New[Key, Value](LeafCodec{}, buf)
	require.NoError(t, err)
	return sorted
}

func TestSorted_rankAndGet(t *testing.T) {
	entries := []Entry[Key, Value]{
		{Key: Key{Raw: []byte("a"), LSN: 1}, Value: Put([]byte("1"))},
		{Key: Key{Raw: []byte("b"), LSN: 1}, Value: Put([]byte("2"))},
		{Key: Key{Raw: []byte("d"), LSN: 1}, Value: Put([]byte("4"))},
	}
	sorted := buildLeafPage(t, entries)
	require.Equal(t, 3, sorted.Len())

	i, ok := sorted.Rank(Key{Raw: []byte("b"), LSN: 1})
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	i, ok = sorted.Rank(Key{Raw: []byte("c"), LSN: 1})
	assert.False(t, ok)
	assert.Equal(t, 2, i)

	e, ok := sorted.Get(0)
	require.True(t, ok)
	assert.Equal(t, "a", string(e.Key.Raw))

	_, ok = sorted.Get(99)
	assert.False(t, ok)
}

func TestSorted_iterForward(t *testing.T) {
	entries := []Entry[Key, Value]{
		{Key: Key{Raw: []byte("a"), LSN: 1}, Value: Put([]byte("1"))},
		{Key: Key{Raw: []byte("b"), LSN: 1}, Value: Put([]byte("2"))},
	}
	sorted := buildLeafPage(t, entries)
	it := sorted.Iter()
	var got []string
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, string(e.Key.Raw))
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestSorted_intoSplitIter_fewerThanTwoDistinct(t *testing.T) {
	sorted := buildLeafPage(t, []Entry[Key, Value]{
		{Key: Key{Raw: []byte("only"), LSN: 1}, Value: Put([]byte("1"))},
	})
	_, _, _, ok := sorted.IntoSplitIter()
	assert.False(t, ok)
}

func TestSorted_intoSplitIter_nonEmptyHalves(t *testing.T) {
	var entries []Entry[Key, Value]
	for i := byte(0); i < 10; i++ {
		entries = append(entries, Entry[Key, Value]{
			Key:   Key{Raw: []byte{'a' + i}, LSN: 1},
			Value: Put([]byte{i}),
		})
	}
	sorted := buildLeafPage(t, entries)
	splitKey, left, right, ok := sorted.IntoSplitIter()
	require.True(t, ok)

	var leftCount, rightCount int
	for {
		e, ok := left.Next()
		if !ok {
			break
		}
		leftCount++
		assert.True(t, Compare(e.Key, splitKey) < 0)
	}
	for {
		e, ok := right.Next()
		if !ok {
			break
		}
		rightCount++
		assert.True(t, Compare(e.Key, splitKey) >= 0)
	}
	assert.Greater(t, leftCount, 0)
	assert.Greater(t, rightCount, 0)
	assert.Equal(t, 10, leftCount+rightCount)
}

func TestSorted_intoSplitIter_keepsVersionsOfSameKeyTogether(t *testing.T) {
	entries := []Entry[Key, Value]{
		{Key: Key{Raw: []byte("hot"), LSN: 5}, Value: Put([]byte("v5"))},
		{Key: Key{Raw: []byte("hot"), LSN: 4}, Value: Put([]byte("v4"))},
		{Key: Key{Raw: []byte("hot"), LSN: 3}, Value: Put([]byte("v3"))},
		{Key: Key{Raw: []byte("z"), LSN: 1}, Value: Put([]byte("vz"))},
	}
	sorted := buildLeafPage(t, entries)
	_, left, right, ok := sorted.IntoSplitIter()
	require.True(t, ok)

	seenHotOnLeft, seenHotOnRight := false, false
	for {
		e, ok := left.Next()
		if !ok {
			break
		}
		if string(e.Key.Raw) == "hot" {
			seenHotOnLeft = true
		}
	}
	for {
		e, ok := right.Next()
		if !ok {
			break
		}
		if string(e.Key.Raw) == "hot" {
			seenHotOnRight = true
		}
	}
	assert.False(t, seenHotOnLeft && seenHotOnRight, "versions of the same raw key must not straddle the split")
}

func TestIter_seek(t *testing.T) {
	entries := []Entry[Key, Value]{
		{Key: Key{Raw: []byte("a"), LSN: 1}, Value: Put([]byte("1"))},
		{Key: Key{Raw: []byte("c"), LSN: 1}, Value: Put([]byte("3"))},
		{Key: Key{Raw: []byte("e"), LSN: 1}, Value: Put([]byte("5"))},
	}
	sorted := buildLeafPage(t, entries)
	it := sorted.Iter()
	it.Seek(Key{Raw: []byte("b"), LSN: 1})
	e, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, "c", string(e.Key.Raw))
}
