package pagestore

import "go.uber.org/zap"

// Options configures a Store at construction time.
type Options struct {
	// CacheCapacity bounds the number of distinct addresses the clock
	// cache tracks as hot at once.
	CacheCapacity int
	// WALPath, if non-empty, backs the write-ahead log with a bbolt
	// file at this path. An empty path runs without durability, which
	// is enough for in-process use and tests.
	WALPath string
	Logger  *zap.Logger
}

// Store is the concrete, in-process implementation of Guard: an
// indirection table, an arena, a clock cache, an epoch-based
// reclaimer, and an optional durability log.
type Store struct {
	table     *table
	arena     *arena
	cache     *Cache
	reclaimer *reclaimer
	wal       *WAL
	stats     *Stats
	log       *zap.Logger
}

// Open builds a Store. Callers must Close it to flush and release the
// durability log, if one was configured.
func Open(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	a := newArena()
	s := &Store{
		table:     newTable(),
		arena:     a,
		cache:     NewCache(opts.CacheCapacity),
		reclaimer: newReclaimer(a),
		stats:     newStats(),
		log:       logger,
	}
	if opts.WALPath != "" {
		w, err := OpenWAL(opts.WALPath)
		if err != nil {
			return nil, err
		}
		s.wal = w
	}
	s.log.Debug("pagestore opened", zap.String("wal_path", opts.WALPath))
	return s, nil
}

// Close releases the durability log, if any.
func (s *Store) Close() error {
	if s.wal != nil {
		return s.wal.Close()
	}
	return nil
}

// Stats exposes a point-in-time snapshot of store activity.
func (s *Store) Stats() StatsSnapshot { return s.stats.snapshot() }
