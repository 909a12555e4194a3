package tree

import "sync/atomic"

// TreeStats counts tree-level operation outcomes, split across the
// success/conflict buckets the original tracks: a find/write/split/
// consolidate that had to retry on ErrAgain increments the matching
// conflict counter in addition to whatever eventually succeeds.
type TreeStats struct {
	findSuccess, findConflict             atomic.Uint64
	writeSuccess, writeConflict           atomic.Uint64
	splitSuccess, splitConflict           atomic.Uint64
	consolidateSuccess, consolidateConflict atomic.Uint64
}

// TreeStatsSnapshot is a point-in-time read of TreeStats.
type TreeStatsSnapshot struct {
	FindSuccess, FindConflict                 uint64
	WriteSuccess, WriteConflict               uint64
	SplitSuccess, SplitConflict               uint64
	ConsolidateSuccess, ConsolidateConflict   uint64
}

func (s *TreeStats) snapshot() TreeStatsSnapshot {
	return TreeStatsSnapshot{
		FindSuccess:              s.findSuccess.Load(),
		FindConflict:             s.findConflict.Load(),
		WriteSuccess:             s.writeSuccess.Load(),
		WriteConflict:            s.writeConflict.Load(),
		SplitSuccess:             s.splitSuccess.Load(),
		SplitConflict:            s.splitConflict.Load(),
		ConsolidateSuccess:       s.consolidateSuccess.Load(),
		ConsolidateConflict:      s.consolidateConflict.Load(),
	}
}
