package pagestore

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats accumulates page-store activity counters with plain atomics;
// Collector below exports the same numbers as prometheus counters
// for processes that scrape rather than poll Stats() directly.
type Stats struct {
	reads      atomic.Uint64
	writes     atomic.Uint64
	readBytes  atomic.Uint64
	writeBytes atomic.Uint64
	conflicts  atomic.Uint64
}

func newStats() *Stats { return &Stats{} }

func (s *Stats) recordRead(n int) {
	s.reads.Add(1)
	s.readBytes.Add(uint64(n))
}

func (s *Stats) recordWrite(n int) {
	s.writes.Add(1)
	s.writeBytes.Add(uint64(n))
}

func (s *Stats) recordConflict() { s.conflicts.Add(1) }

// StatsSnapshot is a point-in-time read of Stats.
type StatsSnapshot struct {
	Reads      uint64
	Writes     uint64
	ReadBytes  uint64
	WriteBytes uint64
	Conflicts  uint64
}

func (s *Stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		Reads:      s.reads.Load(),
		Writes:     s.writes.Load(),
		ReadBytes:  s.readBytes.Load(),
		WriteBytes: s.writeBytes.Load(),
		Conflicts:  s.conflicts.Load(),
	}
}

var (
	readsDesc = prometheus.NewDesc(
		"bwtree_pagestore_reads_total", "Total page reads served.", nil, nil)
	writesDesc = prometheus.NewDesc(
		"bwtree_pagestore_writes_total", "Total page versions installed.", nil, nil)
	readBytesDesc = prometheus.NewDesc(
		"bwtree_pagestore_read_bytes_total", "Total bytes read from pages.", nil, nil)
	writeBytesDesc = prometheus.NewDesc(
		"bwtree_pagestore_write_bytes_total", "Total bytes written to pages.", nil, nil)
	conflictsDesc = prometheus.NewDesc(
		"bwtree_pagestore_conflicts_total", "Total CAS conflicts observed on update/replace.", nil, nil)
)

// Collector adapts a Store's Stats into a prometheus.Collector, so a
// process embedding the tree can register it alongside its own metrics
// without polling Stats() on a timer itself.
type Collector struct {
	store *Store
}

// NewCollector wraps store for prometheus registration.
func NewCollector(store *Store) *Collector { return &Collector{store: store} }

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- readsDesc
	ch <- writesDesc
	ch <- readBytesDesc
	ch <- writeBytesDesc
	ch <- conflictsDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.store.Stats()
	ch <- prometheus.MustNewConstMetric(readsDesc, prometheus.CounterValue, float64(snap.Reads))
	ch <- prometheus.MustNewConstMetric(writesDesc, prometheus.CounterValue, float64(snap.Writes))
	ch <- prometheus.MustNewConstMetric(readBytesDesc, prometheus.CounterValue, float64(snap.ReadBytes))
	ch <- prometheus.MustNewConstMetric(writeBytesDesc, prometheus.CounterValue, float64(snap.WriteBytes))
	ch <- prometheus.MustNewConstMetric(conflictsDesc, prometheus.CounterValue, float64(snap.Conflicts))
}
