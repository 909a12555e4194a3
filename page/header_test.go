package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader_roundTripAndPatch(t *testing.T) {
	buf := make([]byte, HeaderSize+3)
	EncodeHeader(buf, Inner, Split, 7, 2, 99)
	copy(buf[HeaderSize:], []byte("abc"))

	info, err := DecodeInfo(buf)
	require.NoError(t, err)
	assert.Equal(t, Inner, info.Tier)
	assert.Equal(t, Split, info.Kind)
	assert.EqualValues(t, 7, info.Epoch)
	assert.EqualValues(t, 2, info.ChainLen)
	assert.EqualValues(t, 99, info.ChainNext)
	assert.EqualValues(t, 3, info.Size)

	SetEpoch(buf, 8)
	SetChainLen(buf, 3)
	SetChainNext(buf, 100)
	info, err = DecodeInfo(buf)
	require.NoError(t, err)
	assert.EqualValues(t, 8, info.Epoch)
	assert.EqualValues(t, 3, info.ChainLen)
	assert.EqualValues(t, 100, info.ChainNext)
}

func TestDecodeInfo_truncated(t *testing.T) {
	_, err := DecodeInfo(make([]byte, HeaderSize-1))
	require.Error(t, err)
}

func TestIndex_roundTripAndNull(t *testing.T) {
	idx := Index{ID: 42, Epoch: 3}
	buf := make([]byte, idx.EncodedLen())
	EncodeIndex(buf, idx)
	got, n, err := DecodeIndex(buf)
	require.NoError(t, err)
	assert.Equal(t, idx.EncodedLen(), n)
	assert.Equal(t, idx, got)
	assert.False(t, got.IsNull())
	assert.True(t, NullIndex.IsNull())
}

func TestRawKey_roundTrip(t *testing.T) {
	raw := []byte("lower-bound")
	buf := make([]byte, EncodeRawKeyLen(raw))
	n := EncodeRawKey(buf, raw)
	require.Equal(t, len(buf), n)
	got, consumed, err := DecodeRawKey(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), consumed)
	assert.Equal(t, raw, got)
}
