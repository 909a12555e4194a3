package page

// lane is one input to a k-way merge: its next unread entry, if any.
type lane[K any, V any] struct {
	src   Source[K, V]
	cur   Entry[K, V]
	valid bool
}

func (l *lane[K, V]) refill() { l.cur, l.valid = l.src.Next() }

// Merger is a k-way merge over chain iterators, in head-to-tail add
// order. Ties (equal keys from two lanes) favour the lane added first,
// which callers add in head-first order so a more recent delta wins a
// tie against an older one. An optional range_limit truncates the
// stream: once a key >= range_limit is reached, the merge ends -- that
// key range now belongs to a right sibling that has already split off.
type Merger[K any, V any] struct {
	lanes      []*lane[K, V]
	cmp        func(a, b K) int
	limit      *K
	done       bool
	pending    Entry[K, V]
	hasPending bool
}

// MergerBuilder collects per-chain-page sources before building a Merger.
type MergerBuilder[K any, V any] struct {
	cmp   func(a, b K) int
	lanes []*lane[K, V]
}

// NewMergerBuilder starts a builder with the given key comparator and an
// optional capacity hint.
func NewMergerBuilder[K any, V any](cmp func(a, b K) int, capHint int) *MergerBuilder[K, V] {
	b := &MergerBuilder[K, V]{cmp: cmp}
	if capHint > 0 {
		b.lanes = make([]*lane[K, V], 0, capHint)
	}
	return b
}

// Add registers one more source, in head-to-tail priority order.
func (b *MergerBuilder[K, V]) Add(src Source[K, V]) {
	b.lanes = append(b.lanes, &lane[K, V]{src: src})
}

// Len reports how many sources have been added so far.
func (b *MergerBuilder[K, V]) Len() int { return len(b.lanes) }

// Build primes every lane and returns the merger.
func (b *MergerBuilder[K, V]) Build() *Merger[K, V] {
	for _, l := range b.lanes {
		l.refill()
	}
	return &Merger[K, V]{lanes: b.lanes, cmp: b.cmp}
}

// NewMerger wraps an already-built Merger with a range limit.
func NewMerger[K any, V any](m *Merger[K, V], limit *K) *Merger[K, V] {
	m.limit = limit
	return m
}

func (m *Merger[K, V]) selectMin() (int, bool) {
	best := -1
	for i, l := range m.lanes {
		if !l.valid {
			continue
		}
		if best == -1 || m.cmp(l.cur.Key, m.lanes[best].cur.Key) < 0 {
			best = i
		}
	}
	return best, best != -1
}

// Next returns the next merged entry in ascending key order.
func (m *Merger[K, V]) Next() (Entry[K, V], bool) {
	if m.hasPending {
		m.hasPending = false
		return m.pending, true
	}
	if m.done {
		var zero Entry[K, V]
		return zero, false
	}
	i, ok := m.selectMin()
	if !ok {
		var zero Entry[K, V]
		return zero, false
	}
	entry := m.lanes[i].cur
	if m.limit != nil && m.cmp(entry.Key, *m.limit) >= 0 {
		m.done = true
		var zero Entry[K, V]
		return zero, false
	}
	m.lanes[i].refill()
	return entry, true
}

// Seek discards entries until the first one with key >= target, buffers
// it as pending, and reports whether that entry's key equals target
// exactly (so a caller can choose to consume it with one more Next).
func (m *Merger[K, V]) Seek(target K) bool {
	for {
		e, ok := m.Next()
		if !ok {
			return false
		}
		if m.cmp(e.Key, target) >= 0 {
			m.pending = e
			m.hasPending = true
			return m.cmp(e.Key, target) == 0
		}
	}
}

// MergingLeafIter collapses multiple versions of the same raw key
// produced by Merger[Key,Value] during consolidation. A version older
// than safeLSN is dropped once a newer version (put or delete) at or
// above safeLSN has been seen for the same raw key; every other version
// is preserved, since readers may still address it by LSN.
type MergingLeafIter struct {
	src      Source[Key, Value]
	safeLSN  uint64
	buffered []Entry[Key, Value]
	bufPos   int
	peeked   *Entry[Key, Value]
}

// NewMergingLeafIter builds the consolidation-time leaf collapsing
// iterator over an already-merged stream.
func NewMergingLeafIter(src Source[Key, Value], safeLSN uint64) *MergingLeafIter {
	return &MergingLeafIter{src: src, safeLSN: safeLSN}
}

// Next returns the next surviving (Key,Value), skipping GC'd versions.
func (it *MergingLeafIter) Next() (Entry[Key, Value], bool) {
	for it.bufPos >= len(it.buffered) {
		if !it.fillGroup() {
			var zero Entry[Key, Value]
			return zero, false
		}
	}
	e := it.buffered[it.bufPos]
	it.bufPos++
	return e, true
}

// fillGroup pulls one full raw-key group from src, applies the
// dominance rule, and buffers the survivors.
func (it *MergingLeafIter) fillGroup() bool {
	it.buffered = it.buffered[:0]
	it.bufPos = 0

	first, ok := it.pullNext()
	if !ok {
		return false
	}
	group := []Entry[Key, Value]{first}
	for {
		e, ok := it.peekNext()
		if !ok || compareBytes(e.Key.Raw, first.Key.Raw) != 0 {
			break
		}
		it.pullNext()
		group = append(group, e)
	}

	sawShadow := false
	for _, e := range group {
		if e.Key.LSN < it.safeLSN && sawShadow {
			continue
		}
		it.buffered = append(it.buffered, e)
		if e.Key.LSN >= it.safeLSN {
			sawShadow = true
		}
	}
	return true
}

func (it *MergingLeafIter) pullNext() (Entry[Key, Value], bool) {
	if it.peeked != nil {
		e := *it.peeked
		it.peeked = nil
		return e, true
	}
	return it.src.Next()
}

func (it *MergingLeafIter) peekNext() (Entry[Key, Value], bool) {
	if it.peeked != nil {
		return *it.peeked, true
	}
	e, ok := it.src.Next()
	if !ok {
		return Entry[Key, Value]{}, false
	}
	it.peeked = &e
	return e, true
}

// MergingInnerIter drops NULL_INDEX placeholders from a merged inner
// stream. It is used both during consolidation (collapsing the inner
// chain) and by the scan iterator to walk a parent's index entries.
type MergingInnerIter struct {
	src *Merger[[]byte, Index]
}

// NewMergingInnerIter wraps a built inner Merger.
func NewMergingInnerIter(src *Merger[[]byte, Index]) *MergingInnerIter {
	return &MergingInnerIter{src: src}
}

func (it *MergingInnerIter) Next() (Entry[[]byte, Index], bool) {
	for {
		e, ok := it.src.Next()
		if !ok {
			return Entry[[]byte, Index]{}, false
		}
		if e.Value.IsNull() {
			continue
		}
		return e, true
	}
}

// Seek forwards to the underlying Merger's Seek.
func (it *MergingInnerIter) Seek(target []byte) bool { return it.src.Seek(target) }
