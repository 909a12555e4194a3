package pagestore

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// CacheOption controls how ReadPage treats a page's hotness.
type CacheOption uint8

const (
	// CacheDefault marks the page hot on every read, the common case
	// for pages on the active search path.
	CacheDefault CacheOption = iota
	// CacheRefillColdWhenNotFull inserts a previously-uncached page as
	// cold and leaves an already-cached page's clock bit as it is; the
	// cache's fill level is not consulted. Used by scans and
	// consolidation reads, which touch many pages once and should not
	// mark them hot.
	CacheRefillColdWhenNotFull
)

const clockBit uint32 = 1 << 31

// cacheSlot is one clock-cache entry: which address it holds, a pin
// count, and the clock ("recently used") bit packed into the same word
// so a touch is a single atomic op. No code path raises the pin count,
// and Touch does not consult it before replacing a slot.
// The pin/clock-bit split mirrors a conventional buffer pool's pin
// count plus reference bit, just tracking hotness rather than holding
// the page bytes themselves -- those stay in the arena.
type cacheSlot struct {
	mu   sync.Mutex
	addr PageAddr
	used bool
	pin  atomic.Uint32 // low 31 bits: pin count, high bit: clock/ref bit
}

// Cache is a fixed-size, direct-mapped table of page addresses, hashed
// by xxhash into a flat slot table, with one clock bit per slot. There
// is no second-chance sweep: a new address takes over its hashed slot
// whatever the previous occupant's clock bit. It never holds
// page bytes; it only tracks which addresses are hot, so a consumer
// under memory pressure knows which pages are safe to demote or drop
// from any secondary, evictable representation it keeps.
type Cache struct {
	slots  []cacheSlot
	victim atomic.Uint64
}

// NewCache builds a clock cache with room for approximately capacity
// distinct addresses.
func NewCache(capacity int) *Cache {
	if capacity < 16 {
		capacity = 16
	}
	return &Cache{slots: make([]cacheSlot, capacity)}
}

func (c *Cache) hash(addr PageAddr) uint64 {
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(addr >> (8 * i))
	}
	return xxhash.Sum64(buf[:])
}

// CacheToken is a handle to a cache touch; its caller can explicitly
// demote the entry back to cold, e.g. once a one-shot scan has moved
// past the page and it need not compete with the hot working set.
type CacheToken struct {
	cache *Cache
	slot  *cacheSlot
}

// ReturnAsCold clears the clock bit early instead of waiting for an
// eviction sweep to find it untouched.
func (t CacheToken) ReturnAsCold() {
	if t.slot == nil {
		return
	}
	for {
		old := t.slot.pin.Load()
		if old&clockBit == 0 {
			return
		}
		if t.slot.pin.CompareAndSwap(old, old&^clockBit) {
			return
		}
	}
}

// Touch records a read of addr under the given option, returning a
// token the caller can use to demote it again. If the hashed slot is
// empty or holds another address, addr replaces it, whether or not the
// previous address was hot.
func (c *Cache) Touch(addr PageAddr, opt CacheOption) CacheToken {
	idx := c.hash(addr) % uint64(len(c.slots))
	s := &c.slots[idx]

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.used && s.addr == addr {
		if opt == CacheDefault {
			s.pin.Store(s.pin.Load() | clockBit)
		}
		return CacheToken{cache: c, slot: s}
	}

	// Slot occupied by a different address, or empty: take it.
	s.addr = addr
	s.used = true
	if opt == CacheDefault {
		s.pin.Store(clockBit)
	} else {
		s.pin.Store(0)
	}
	return CacheToken{cache: c, slot: s}
}

// IsHot reports whether addr currently occupies the cache with its
// clock bit set.
func (c *Cache) IsHot(addr PageAddr) bool {
	idx := c.hash(addr) % uint64(len(c.slots))
	s := &c.slots[idx]
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used && s.addr == addr && s.pin.Load()&clockBit != 0
}
