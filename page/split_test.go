package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitDelta_roundTrip(t *testing.T) {
	d := SplitDelta{SplitKey: []byte("mid"), RightID: 7}
	buf := make([]byte, d.EncodedLen())
	n := EncodeSplitDelta(buf, d)
	require.Equal(t, len(buf), n)

	got, err := DecodeSplitDelta(buf)
	require.NoError(t, err)
	assert.Equal(t, d.SplitKey, got.SplitKey)
	assert.Equal(t, d.RightID, got.RightID)
}

func TestDecodeSplitDelta_truncated(t *testing.T) {
	_, err := DecodeSplitDelta([]byte{0xff, 0xff, 0xff, 0xff})
	require.Error(t, err)
}
