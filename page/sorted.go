package page

import (
	"encoding/binary"
	"sort"

	"github.com/pkg/errors"
)

// Sorted is a decoded view over a sorted-page payload: a count, an offset
// table, and the entry bytes. Offsets are read once at construction;
// entries themselves are decoded on demand by Get/rank so a page that is
// never fully scanned never pays to materialise it.
type Sorted[K any, V any] struct {
	codec   Codec[K, V]
	payload []byte
	offsets []uint32
}

// New decodes the offset table at the front of payload. payload is the
// page's payload region only (header already stripped by the caller).
func New[K any, V any](codec Codec[K, V], payload []byte) (*Sorted[K, V], error) {
	if len(payload) < 4 {
		return nil, errors.New("page: truncated sorted page count")
	}
	n := int(binary.LittleEndian.Uint32(payload))
	hdr := 4 + 4*n
	if len(payload) < hdr {
		return nil, errors.New("page: truncated sorted page offsets")
	}
	offsets := make([]uint32, n)
	for i := 0; i < n; i++ {
		offsets[i] = binary.LittleEndian.Uint32(payload[4+4*i:])
	}
	return &Sorted[K, V]{codec: codec, payload: payload, offsets: offsets}, nil
}

// Len returns the number of entries on the page.
func (s *Sorted[K, V]) Len() int { return len(s.offsets) }

// Get decodes the i'th entry, 0-based.
func (s *Sorted[K, V]) Get(i int) (Entry[K, V], bool) {
	if i < 0 || i >= len(s.offsets) {
		var zero Entry[K, V]
		return zero, false
	}
	off := s.offsets[i]
	k, n, err := s.codec.DecodeKey(s.payload[off:])
	if err != nil {
		var zero Entry[K, V]
		return zero, false
	}
	v, _, err := s.codec.DecodeValue(s.payload[off+uint32(n):])
	if err != nil {
		var zero Entry[K, V]
		return zero, false
	}
	return Entry[K, V]{Key: k, Value: v}, true
}

func (s *Sorted[K, V]) key(i int) K {
	off := s.offsets[i]
	k, _, _ := s.codec.DecodeKey(s.payload[off:])
	return k
}

// Rank returns (i, true) when entry i's key equals key, or (i, false)
// when key would be inserted at position i to keep the page sorted.
func (s *Sorted[K, V]) Rank(key K) (int, bool) {
	n := len(s.offsets)
	i := sort.Search(n, func(i int) bool {
		return s.codec.CompareKey(s.key(i), key) >= 0
	})
	if i < n && s.codec.CompareKey(s.key(i), key) == 0 {
		return i, true
	}
	return i, false
}

// Iter returns a forward iterator over the whole page.
func (s *Sorted[K, V]) Iter() *Iter[K, V] { return &Iter[K, V]{page: s} }

// IntoSplitIter picks a midpoint such that both halves are non-empty and
// returns the smallest key of the right half plus iterators over each
// half. It returns ok=false if the page has fewer than two distinct keys.
func (s *Sorted[K, V]) IntoSplitIter() (splitKey K, left, right *Iter[K, V], ok bool) {
	n := s.Len()
	if n < 2 {
		var zero K
		return zero, nil, nil, false
	}
	mid := n / 2
	// Never split inside a run of leaf entries sharing the same raw key:
	// advance mid until the key changes, and if no boundary lies above
	// n/2, search downward from n/2 instead, so every version of a key
	// stays on one side of the split.
	for mid < n && s.codec.SameGroup(s.key(mid), s.key(mid-1)) {
		mid++
	}
	if mid == n {
		mid = n / 2
		for mid > 0 && s.codec.SameGroup(s.key(mid), s.key(mid-1)) {
			mid--
		}
	}
	if mid == 0 {
		// The whole page is one raw-key group (many versions, no group
		// boundary at all): there is no split point that would not
		// straddle a key's versions, so report "no split" rather than
		// cut the group.
		var zero K
		return zero, nil, nil, false
	}
	return s.key(mid), &Iter[K, V]{page: s, end: mid}, &Iter[K, V]{page: s, pos: mid}, true
}

// Iter is a forward cursor over a Sorted page, optionally bounded to
// [pos,end) for split halves.
type Iter[K any, V any] struct {
	page *Sorted[K, V]
	pos  int
	end  int // 0 means "to the end of the page"
}

func (it *Iter[K, V]) limit() int {
	if it.end == 0 {
		return it.page.Len()
	}
	return it.end
}

// Next returns the next entry, advancing the cursor.
func (it *Iter[K, V]) Next() (Entry[K, V], bool) {
	if it.pos >= it.limit() {
		var zero Entry[K, V]
		return zero, false
	}
	e, ok := it.page.Get(it.pos)
	it.pos++
	return e, ok
}

// Seek advances the cursor to the first entry whose key is >= target.
func (it *Iter[K, V]) Seek(target K) {
	lim := it.limit()
	start := it.pos
	idx := start + sort.Search(lim-start, func(i int) bool {
		return it.page.codec.CompareKey(it.page.key(start+i), target) >= 0
	})
	it.pos = idx
}
