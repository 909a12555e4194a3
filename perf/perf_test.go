package perf

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewContext_fromReturnsAttachedCtx(t *testing.T) {
	ctx, c := NewContext(context.Background())
	assert.Same(t, c, From(ctx))
}

func TestFrom_noneAttachedReturnsNil(t *testing.T) {
	assert.Nil(t, From(context.Background()))
}

func TestWith_noopWhenNoneAttached(t *testing.T) {
	called := false
	With(context.Background(), func(c *Ctx) { called = true })
	assert.False(t, called)
}

func TestTrack_accumulatesDuration(t *testing.T) {
	var total time.Duration
	done := Track(&total)
	time.Sleep(time.Millisecond)
	done()
	assert.Greater(t, total, time.Duration(0))
}

func TestReset_mirrorsSourceOmission(t *testing.T) {
	c := &Ctx{
		Total:                     time.Second,
		FindLeaf:                  time.Second,
		GetPageFromCacheCount:     7,
		GetPageFromCacheMissCount: 3,
		GetPageInfoCount:          2,
		ConsolidatePageSize:       100,
		ConsolidateLength:         5,
	}
	c.Reset()
	assert.Zero(t, c.Total)
	assert.Zero(t, c.FindLeaf)
	assert.EqualValues(t, 7, c.GetPageFromCacheCount, "Reset mirrors the source's omission of this counter")
	assert.EqualValues(t, 3, c.GetPageFromCacheMissCount)
	assert.EqualValues(t, 2, c.GetPageInfoCount)
	assert.EqualValues(t, 100, c.ConsolidatePageSize)
	assert.EqualValues(t, 5, c.ConsolidateLength)
}
