// Package page defines the on-disk layout of a Bw-tree page: the chain
// header every page carries, the sorted (key,value) payload format, and
// the key/value codecs for leaf and inner pages. It has no dependency on
// the page store or the tree engine, so both can build on top of it.
package page

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Key is a leaf key: the caller's raw bytes tagged with an MVCC version.
// Ordering is lexicographic on Raw ascending, then LSN descending so the
// newest version of a raw key sorts first.
type Key struct {
	Raw []byte
	LSN uint64
}

// Compare orders a before b per the leaf key ordering law (L8).
func Compare(a, b Key) int {
	if c := compareBytes(a.Raw, b.Raw); c != 0 {
		return c
	}
	switch {
	case a.LSN > b.LSN:
		return -1
	case a.LSN < b.LSN:
		return 1
	default:
		return 0
	}
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// Equal reports whether two keys are identical in both raw bytes and LSN.
func Equal(a, b Key) bool {
	return a.LSN == b.LSN && compareBytes(a.Raw, b.Raw) == 0
}

// ValueKind distinguishes a put from a tombstone.
type ValueKind uint8

const (
	KindPut ValueKind = iota
	KindDelete
)

// Value is either Put(bytes) or Delete.
type Value struct {
	Kind    ValueKind
	Payload []byte
}

// Put builds a Value carrying the given bytes.
func Put(b []byte) Value { return Value{Kind: KindPut, Payload: b} }

// Delete is the tombstone value.
var Delete = Value{Kind: KindDelete}

func (v Value) IsPut() bool    { return v.Kind == KindPut }
func (v Value) IsDelete() bool { return v.Kind == KindDelete }

// EncodedLen returns the number of bytes EncodeKey/EncodeValue will write.
func (k Key) EncodedLen() int { return 4 + len(k.Raw) + 8 }
func (v Value) EncodedLen() int {
	if v.Kind == KindDelete {
		return 1
	}
	return 1 + 4 + len(v.Payload)
}

// EncodeKey writes a length-prefixed raw key followed by the LSN.
func EncodeKey(dst []byte, k Key) int {
	n := 0
	binary.LittleEndian.PutUint32(dst[n:], uint32(len(k.Raw)))
	n += 4
	n += copy(dst[n:], k.Raw)
	binary.LittleEndian.PutUint64(dst[n:], k.LSN)
	n += 8
	return n
}

// DecodeKey parses a Key from src and returns the key plus bytes consumed.
// The returned Raw slice aliases src.
func DecodeKey(src []byte) (Key, int, error) {
	if len(src) < 4 {
		return Key{}, 0, errors.New("page: truncated key length")
	}
	rawLen := int(binary.LittleEndian.Uint32(src))
	n := 4
	if len(src) < n+rawLen+8 {
		return Key{}, 0, errors.New("page: truncated key body")
	}
	raw := src[n : n+rawLen]
	n += rawLen
	lsn := binary.LittleEndian.Uint64(src[n:])
	n += 8
	return Key{Raw: raw, LSN: lsn}, n, nil
}

// EncodeValue writes the 1-byte tag followed by the length-prefixed
// payload for Put; Delete writes only the tag byte.
func EncodeValue(dst []byte, v Value) int {
	dst[0] = byte(v.Kind)
	if v.Kind == KindDelete {
		return 1
	}
	binary.LittleEndian.PutUint32(dst[1:], uint32(len(v.Payload)))
	n := 1 + 4
	n += copy(dst[n:], v.Payload)
	return n
}

// DecodeValue parses a Value from src and returns it plus bytes consumed.
// An unrecognised tag byte is a format error.
func DecodeValue(src []byte) (Value, int, error) {
	if len(src) < 1 {
		return Value{}, 0, errors.New("page: truncated value tag")
	}
	switch ValueKind(src[0]) {
	case KindDelete:
		return Delete, 1, nil
	case KindPut:
		if len(src) < 5 {
			return Value{}, 0, errors.New("page: truncated value length")
		}
		l := int(binary.LittleEndian.Uint32(src[1:]))
		if len(src) < 5+l {
			return Value{}, 0, errors.New("page: truncated value payload")
		}
		return Put(src[5 : 5+l]), 5 + l, nil
	default:
		return Value{}, 0, errors.Errorf("page: unknown value tag %d", src[0])
	}
}
