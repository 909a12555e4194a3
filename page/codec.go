package page

// Codec encodes/decodes/orders the (K,V) pairs stored on a sorted page.
// Leaf pages use LeafCodec (K=Key, V=Value); inner pages use InnerCodec
// (K=[]byte, V=Index). Keeping this behind a small interface lets the
// sorted-page layout, rank/seek, builder, and merging iterator be written
// once and shared by both tiers.
type Codec[K any, V any] interface {
	CompareKey(a, b K) int
	// SameGroup reports whether a and b must stay on the same side of a
	// split. Leaf keys group by Raw alone (every LSN version of one raw
	// key, regardless of CompareKey's LSN tie-break); inner keys are
	// already one distinct raw key per entry, so every pair differs.
	SameGroup(a, b K) bool
	KeyLen(k K) int
	EncodeKey(dst []byte, k K) int
	DecodeKey(src []byte) (K, int, error)
	ValueLen(v V) int
	EncodeValue(dst []byte, v V) int
	DecodeValue(src []byte) (V, int, error)
}

// Entry is one (K,V) pair on a sorted page.
type Entry[K any, V any] struct {
	Key   K
	Value V
}

// LeafCodec orders and serialises leaf (Key,Value) entries.
type LeafCodec struct{}

func (LeafCodec) CompareKey(a, b Key) int       { return Compare(a, b) }
func (LeafCodec) SameGroup(a, b Key) bool       { return compareBytes(a.Raw, b.Raw) == 0 }
func (LeafCodec) KeyLen(k Key) int              { return k.EncodedLen() }
func (LeafCodec) EncodeKey(dst []byte, k Key) int { return EncodeKey(dst, k) }
func (LeafCodec) DecodeKey(src []byte) (Key, int, error) { return DecodeKey(src) }
func (LeafCodec) ValueLen(v Value) int          { return v.EncodedLen() }
func (LeafCodec) EncodeValue(dst []byte, v Value) int { return EncodeValue(dst, v) }
func (LeafCodec) DecodeValue(src []byte) (Value, int, error) { return DecodeValue(src) }

// InnerCodec orders and serialises inner ([]byte,Index) entries: a raw
// lower-bound key mapped to a child Index.
type InnerCodec struct{}

func (InnerCodec) CompareKey(a, b []byte) int          { return compareBytes(a, b) }
func (InnerCodec) SameGroup(a, b []byte) bool          { return compareBytes(a, b) == 0 }
func (InnerCodec) KeyLen(k []byte) int                 { return EncodeRawKeyLen(k) }
func (InnerCodec) EncodeKey(dst []byte, k []byte) int  { return EncodeRawKey(dst, k) }
func (InnerCodec) DecodeKey(src []byte) ([]byte, int, error) { return DecodeRawKey(src) }
func (InnerCodec) ValueLen(v Index) int                { return v.EncodedLen() }
func (InnerCodec) EncodeValue(dst []byte, v Index) int { return EncodeIndex(dst, v) }
func (InnerCodec) DecodeValue(src []byte) (Index, int, error) { return DecodeIndex(src) }
