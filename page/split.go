package page

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// SplitDelta is the payload of a Kind=Split page: a record, prepended
// to a page's chain, announcing that the upper portion of its key
// range (everything >= SplitKey) now lives under RightID. Chain
// walkers step over a split delta to the pages below it; keys at or
// above SplitKey are routed to RightID once reconciliation has added
// the new sibling to the parent.
type SplitDelta struct {
	SplitKey []byte
	RightID  uint64
}

// EncodedLen returns the bytes EncodeSplitDelta will write.
func (d SplitDelta) EncodedLen() int { return 4 + len(d.SplitKey) + 8 }

// EncodeSplitDelta writes a length-prefixed split key and the right
// sibling's page id into dst, the payload region of a Split page.
func EncodeSplitDelta(dst []byte, d SplitDelta) int {
	binary.LittleEndian.PutUint32(dst, uint32(len(d.SplitKey)))
	n := 4 + copy(dst[4:], d.SplitKey)
	binary.LittleEndian.PutUint64(dst[n:], d.RightID)
	return n + 8
}

// DecodeSplitDelta parses a SplitDelta from a page's payload region.
func DecodeSplitDelta(src []byte) (SplitDelta, error) {
	if len(src) < 4 {
		return SplitDelta{}, errors.New("page: truncated split delta length")
	}
	l := int(binary.LittleEndian.Uint32(src))
	if len(src) < 4+l+8 {
		return SplitDelta{}, errors.New("page: truncated split delta body")
	}
	return SplitDelta{
		SplitKey: src[4 : 4+l],
		RightID:  binary.LittleEndian.Uint64(src[4+l:]),
	}, nil
}
