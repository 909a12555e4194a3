package tree

import (
	"github.com/kazumano/bwtree/page"
	"github.com/pkg/errors"
)

func leafData(buf []byte) (*page.Sorted[page.Key, page.Value], error) {
	return page.New[page.Key, page.Value](page.LeafCodec{}, buf[page.HeaderSize:])
}

func innerData(buf []byte) (*page.Sorted[[]byte, page.Index], error) {
	return page.New[[]byte, page.Index](page.InnerCodec{}, buf[page.HeaderSize:])
}

func splitDelta(buf []byte) (page.SplitDelta, error) {
	return page.DecodeSplitDelta(buf[page.HeaderSize:])
}

var errChainExhausted = errors.New("tree: chain exhausted without a covering entry")
