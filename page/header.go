package page

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Tier is the level of a page in the tree.
type Tier uint8

const (
	Leaf Tier = iota
	Inner
)

func (t Tier) IsLeaf() bool  { return t == Leaf }
func (t Tier) IsInner() bool { return t == Inner }

func (t Tier) String() string {
	if t == Leaf {
		return "leaf"
	}
	return "inner"
}

// Kind is the payload shape of a page.
type Kind uint8

const (
	Data Kind = iota
	Split
)

func (k Kind) IsData() bool  { return k == Data }
func (k Kind) IsSplit() bool { return k == Split }

// HeaderSize is the fixed byte length of the chain header every page
// carries ahead of its payload.
const HeaderSize = 1 + 1 + 8 + 4 + 8

// Info is a header snapshot: everything needed to drive the find/write/
// split/consolidate protocol without paging in the payload.
type Info struct {
	Tier      Tier
	Kind      Kind
	Epoch     uint64
	ChainLen  uint32
	ChainNext uint64 // address, 0 terminates the chain
	Size      uint32 // payload length, not including the header
}

// DecodeInfo reads the header from the front of a full page buffer.
func DecodeInfo(buf []byte) (Info, error) {
	if len(buf) < HeaderSize {
		return Info{}, errors.New("page: buffer shorter than header")
	}
	var info Info
	info.Tier = Tier(buf[0])
	info.Kind = Kind(buf[1])
	info.Epoch = binary.LittleEndian.Uint64(buf[2:10])
	info.ChainLen = binary.LittleEndian.Uint32(buf[10:14])
	info.ChainNext = binary.LittleEndian.Uint64(buf[14:22])
	info.Size = uint32(len(buf) - HeaderSize)
	return info, nil
}

// EncodeHeader writes tier/kind/epoch/chain_len/chain_next into the front
// of buf; buf must be at least HeaderSize long. Size is derived from the
// buffer length by readers, so it is never written.
func EncodeHeader(buf []byte, tier Tier, kind Kind, epoch uint64, chainLen uint32, chainNext uint64) {
	buf[0] = byte(tier)
	buf[1] = byte(kind)
	binary.LittleEndian.PutUint64(buf[2:10], epoch)
	binary.LittleEndian.PutUint32(buf[10:14], chainLen)
	binary.LittleEndian.PutUint64(buf[14:22], chainNext)
}

// SetEpoch/SetChainLen/SetChainNext patch a single header field in place;
// used by the tree to stitch a freshly built delta onto an observed head.
func SetEpoch(buf []byte, epoch uint64)         { binary.LittleEndian.PutUint64(buf[2:10], epoch) }
func SetChainLen(buf []byte, chainLen uint32)   { binary.LittleEndian.PutUint32(buf[10:14], chainLen) }
func SetChainNext(buf []byte, chainNext uint64) { binary.LittleEndian.PutUint64(buf[14:22], chainNext) }

// Index is a value-typed pointer to a logical child page: its id plus the
// epoch the parent last observed. It is never a pointer, which is what
// lets a split reconcile into the parent without corrupting in-flight
// descenders: they simply notice the epoch mismatch and restart.
type Index struct {
	ID    uint64
	Epoch uint64
}

// NullIndex is the placeholder installed at the upper bound of a
// reconciled split range; it never resolves to a real child.
var NullIndex = Index{}

func (i Index) IsNull() bool { return i == NullIndex }

// EncodedLen/Encode/Decode for Index, used by the inner-page codec.
func (i Index) EncodedLen() int { return 16 }

func EncodeIndex(dst []byte, i Index) int {
	binary.LittleEndian.PutUint64(dst[0:8], i.ID)
	binary.LittleEndian.PutUint64(dst[8:16], i.Epoch)
	return 16
}

func DecodeIndex(src []byte) (Index, int, error) {
	if len(src) < 16 {
		return Index{}, 0, errors.New("page: truncated index")
	}
	return Index{
		ID:    binary.LittleEndian.Uint64(src[0:8]),
		Epoch: binary.LittleEndian.Uint64(src[8:16]),
	}, 16, nil
}

// EncodeRawKey/DecodeRawKey handle the inner-page key, a bare length
// prefixed byte string (the lower bound of a child subrange).
func EncodeRawKeyLen(raw []byte) int { return 4 + len(raw) }

func EncodeRawKey(dst []byte, raw []byte) int {
	binary.LittleEndian.PutUint32(dst, uint32(len(raw)))
	n := 4 + copy(dst[4:], raw)
	return n
}

func DecodeRawKey(src []byte) ([]byte, int, error) {
	if len(src) < 4 {
		return nil, 0, errors.New("page: truncated inner key length")
	}
	l := int(binary.LittleEndian.Uint32(src))
	if len(src) < 4+l {
		return nil, 0, errors.New("page: truncated inner key body")
	}
	return src[4 : 4+l], 4 + l, nil
}
