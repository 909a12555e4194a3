package pagestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCache_touchMarksHot(t *testing.T) {
	c := NewCache(16)
	assert.False(t, c.IsHot(PageAddr(5)))
	c.Touch(PageAddr(5), CacheDefault)
	assert.True(t, c.IsHot(PageAddr(5)))
}

func TestCache_refillColdWhenNotFullStaysOld(t *testing.T) {
	c := NewCache(16)
	c.Touch(PageAddr(5), CacheRefillColdWhenNotFull)
	assert.False(t, c.IsHot(PageAddr(5)), "a cold-hinted insert does not mark the clock bit")
}

func TestCacheToken_returnAsColdDemotes(t *testing.T) {
	c := NewCache(16)
	tok := c.Touch(PageAddr(7), CacheDefault)
	assert.True(t, c.IsHot(PageAddr(7)))
	tok.ReturnAsCold()
	assert.False(t, c.IsHot(PageAddr(7)))
}
