package page

import "encoding/binary"

// Source is anything the builder can drain into a sorted page: a plain
// page Iter, a merging iterator, or a single-item/slice adapter.
type Source[K any, V any] interface {
	Next() (Entry[K, V], bool)
}

// sliceSource iterates a borrowed slice without copying it.
type sliceSource[K any, V any] struct {
	items []Entry[K, V]
	pos   int
}

func (s *sliceSource[K, V]) Next() (Entry[K, V], bool) {
	if s.pos >= len(s.items) {
		var zero Entry[K, V]
		return zero, false
	}
	e := s.items[s.pos]
	s.pos++
	return e, true
}

// itemSource iterates exactly one entry, or zero if empty.
type itemSource[K any, V any] struct {
	item Entry[K, V]
	done bool
	has  bool
}

func (s *itemSource[K, V]) Next() (Entry[K, V], bool) {
	if s.done || !s.has {
		var zero Entry[K, V]
		return zero, false
	}
	s.done = true
	return s.item, true
}

// Builder accumulates entries (via an iterator, a single item, or a
// slice) and computes the exact encoded size before Build writes the
// payload out.
type Builder[K any, V any] struct {
	codec Codec[K, V]
	items []Entry[K, V]
}

// NewBuilder starts an empty builder for the given codec.
func NewBuilder[K any, V any](codec Codec[K, V]) *Builder[K, V] {
	return &Builder[K, V]{codec: codec}
}

// WithIter drains src into the builder. src may be nil, meaning empty.
func (b *Builder[K, V]) WithIter(src Source[K, V]) *Builder[K, V] {
	if src == nil {
		return b
	}
	for {
		e, ok := src.Next()
		if !ok {
			break
		}
		b.items = append(b.items, e)
	}
	return b
}

// WithItem seeds the builder with exactly one entry.
func (b *Builder[K, V]) WithItem(e Entry[K, V]) *Builder[K, V] {
	b.items = append(b.items, e)
	return b
}

// WithSlice seeds the builder with a borrowed slice of entries, assumed
// already sorted by the caller (as every call site in the tree protocol
// constructs them).
func (b *Builder[K, V]) WithSlice(items []Entry[K, V]) *Builder[K, V] {
	b.items = append(b.items, items...)
	return b
}

// PayloadSize returns the exact payload byte length Build will write.
func (b *Builder[K, V]) PayloadSize() int {
	n := 4 + 4*len(b.items)
	for _, e := range b.items {
		n += b.codec.KeyLen(e.Key) + b.codec.ValueLen(e.Value)
	}
	return n
}

// Size returns the full page size (header + payload) Build expects.
func (b *Builder[K, V]) Size() int { return HeaderSize + b.PayloadSize() }

// Build writes the payload (count, offset table, then entries) into the
// payload region of dst; dst must be at least PayloadSize() long. It does
// not touch any header bytes -- callers write those separately once the
// page's chain position (epoch, chain_len, chain_next) is known.
func (b *Builder[K, V]) Build(dst []byte) {
	n := len(b.items)
	binary.LittleEndian.PutUint32(dst, uint32(n))
	offTable := dst[4 : 4+4*n]
	cursor := 4 + 4*n
	for i, e := range b.items {
		binary.LittleEndian.PutUint32(offTable[4*i:], uint32(cursor))
		cursor += b.codec.EncodeKey(dst[cursor:], e.Key)
		cursor += b.codec.EncodeValue(dst[cursor:], e.Value)
	}
}

// SourceFromSlice adapts a borrowed slice into a Source.
func SourceFromSlice[K any, V any](items []Entry[K, V]) Source[K, V] {
	return &sliceSource[K, V]{items: items}
}

// SourceFromItem adapts a single optional entry into a Source.
func SourceFromItem[K any, V any](e Entry[K, V], has bool) Source[K, V] {
	return &itemSource[K, V]{item: e, has: has}
}
