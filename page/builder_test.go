package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_payloadSizeMatchesBuild(t *testing.T) {
	b := NewBuilder[Key, Value](LeafCodec{})
	b.WithItem(Entry[Key, Value]{Key: Key{Raw: []byte("a"), LSN: 1}, Value: Put([]byte("x"))})
	b.WithSlice([]Entry[Key, Value]{{Key: Key{Raw: []byte("b"), LSN: 1}, Value: Put([]byte("y"))}})

	buf := make([]byte, b.PayloadSize())
	b.Build(buf)

	sorted, err := New[Key, Value](LeafCodec{}, buf)
	require.NoError(t, err)
	assert.Equal(t, 2, sorted.Len())
}

func TestBuilder_withIterDrainsSource(t *testing.T) {
	src := SourceFromSlice([]Entry[Key, Value]{
		{Key: Key{Raw: []byte("a"), LSN: 1}, Value: Put([]byte("1"))},
		{Key: Key{Raw: []byte("b"), LSN: 1}, Value: Put([]byte("2"))},
	})
	b := NewBuilder[Key, Value](LeafCodec{})
	b.WithIter(src)
	buf := make([]byte, b.PayloadSize())
	b.Build(buf)

	sorted, err := New[Key, Value](LeafCodec{}, buf)
	require.NoError(t, err)
	assert.Equal(t, 2, sorted.Len())
}

func TestBuilder_empty(t *testing.T) {
	b := NewBuilder[Key, Value](LeafCodec{})
	buf := make([]byte, b.PayloadSize())
	b.Build(buf)

	sorted, err := New[Key, Value](LeafCodec{}, buf)
	require.NoError(t, err)
	assert.Equal(t, 0, sorted.Len())
}
