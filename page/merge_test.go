package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kv(raw string, lsn uint64, v string) Entry[Key, Value] {
	return Entry[Key, Value]{Key: Key{Raw: []byte(raw), LSN: lsn}, Value: Put([]byte(v))}
}

func TestMerger_kWayMergeOrder(t *testing.T) {
	// Lane 0 is the chain head (newest), lane 1 is older -- on a tie the
	// head-first lane must win.
	mb := NewMergerBuilder[Key, Value](Compare, 2)
	mb.Add(SourceFromSlice([]Entry[Key, Value]{kv("b", 2, "head-b")}))
	mb.Add(SourceFromSlice([]Entry[Key, Value]{kv("a", 1, "tail-a"), kv("b", 2, "tail-b")}))
	m := mb.Build()

	e, ok := m.Next()
	require.True(t, ok)
	assert.Equal(t, "a", string(e.Key.Raw))

	e, ok = m.Next()
	require.True(t, ok)
	assert.Equal(t, "b", string(e.Key.Raw))
	assert.Equal(t, "head-b", string(e.Value.Payload), "earlier-added lane wins a key tie")

	_, ok = m.Next()
	assert.False(t, ok)
}

func TestMerger_rangeLimitTruncates(t *testing.T) {
	mb := NewMergerBuilder[Key, Value](Compare, 1)
	mb.Add(SourceFromSlice([]Entry[Key, Value]{kv("a", 1, "1"), kv("m", 1, "2"), kv("z", 1, "3")}))
	built := mb.Build()
	limit := Key{Raw: []byte("m"), LSN: ^uint64(0)}
	m := NewMerger(built, &limit)

	var got []string
	for {
		e, ok := m.Next()
		if !ok {
			break
		}
		got = append(got, string(e.Key.Raw))
	}
	assert.Equal(t, []string{"a"}, got, "entries at or past the range limit belong to the right sibling")
}

func TestMerger_seek(t *testing.T) {
	mb := NewMergerBuilder[Key, Value](Compare, 1)
	mb.Add(SourceFromSlice([]Entry[Key, Value]{kv("a", 1, "1"), kv("c", 1, "3"), kv("e", 1, "5")}))
	m := mb.Build()

	exact := m.Seek(Key{Raw: []byte("c"), LSN: 1})
	assert.True(t, exact)
	e, ok := m.Next()
	require.True(t, ok)
	assert.Equal(t, "c", string(e.Key.Raw))
}

func TestMergingLeafIter_dropsShadowedOldVersions(t *testing.T) {
	// "hot" has three versions: 20 (above safe_lsn), 15 (below, shadowed
	// by 20), and 3 (below, shadowed). Only the newest survives.
	mb := NewMergerBuilder[Key, Value](Compare, 1)
	mb.Add(SourceFromSlice([]Entry[Key, Value]{kv("hot", 20, "v20"), kv("hot", 15, "v15"), kv("hot", 3, "v3")}))
	merged := mb.Build()
	it := NewMergingLeafIter(merged, 16)

	var got []string
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, string(e.Value.Payload))
	}
	assert.Equal(t, []string{"v20"}, got)
}

func TestMergingLeafIter_keepsAllVersionsBelowSafeLSN(t *testing.T) {
	// Every version is below safe_lsn=100: none is "dominated by a
	// version at or above safe_lsn", so none may be discarded.
	mb := NewMergerBuilder[Key, Value](Compare, 1)
	mb.Add(SourceFromSlice([]Entry[Key, Value]{kv("k", 5, "v5"), kv("k", 3, "v3")}))
	merged := mb.Build()
	it := NewMergingLeafIter(merged, 100)

	var got []string
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, string(e.Value.Payload))
	}
	assert.Equal(t, []string{"v5", "v3"}, got)
}

func TestMergingLeafIter_deleteShadowsOlderPuts(t *testing.T) {
	mb := NewMergerBuilder[Key, Value](Compare, 1)
	mb.Add(SourceFromSlice([]Entry[Key, Value]{
		{Key: Key{Raw: []byte("k"), LSN: 12}, Value: Delete},
		kv("k", 5, "v5"),
	}))
	merged := mb.Build()
	it := NewMergingLeafIter(merged, 10)

	e, ok := it.Next()
	require.True(t, ok)
	assert.True(t, e.Value.IsDelete())
	_, ok = it.Next()
	assert.False(t, ok, "the put below safe_lsn is shadowed by the delete at/above it")
}

func TestMergingInnerIter_dropsNullIndex(t *testing.T) {
	mb := NewMergerBuilder[[]byte, Index](compareBytes, 1)
	mb.Add(SourceFromSlice([]Entry[[]byte, Index]{
		{Key: []byte("a"), Value: Index{ID: 1}},
		{Key: []byte("b"), Value: NullIndex},
		{Key: []byte("c"), Value: Index{ID: 2}},
	}))
	merged := mb.Build()
	it := NewMergingInnerIter(merged)

	var got []string
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, string(e.Key))
	}
	assert.Equal(t, []string{"a", "c"}, got)
}
