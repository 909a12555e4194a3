package tree

import (
	"context"

	"github.com/kazumano/bwtree/perf"
)

// perfOrNop returns ctx's attached *perf.Ctx, or a scratch one a
// caller can still safely take the address of when none is attached
// -- so every call site can write defer perf.Track(&perfOrNop(ctx).X)()
// unconditionally, whether or not the caller opted into tracking.
func perfOrNop(ctx context.Context) *perf.Ctx {
	if p := perf.From(ctx); p != nil {
		return p
	}
	return &perf.Ctx{}
}
