// Command bwtreebench opens a pagestore-backed Bw-tree, runs a short
// battery of basic put/get/delete scenarios plus a configurable
// random workload, and prints the resulting tree and store stats. It
// exists only so the module is runnable end to end; it is not part of
// the tree engine itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/kazumano/bwtree/page"
	"github.com/kazumano/bwtree/pagestore"
	"github.com/kazumano/bwtree/perf"
	"github.com/kazumano/bwtree/tree"
	"go.uber.org/zap"
)

func main() {
	var (
		keys     = flag.Int("keys", 10_000, "number of distinct keys in the random workload")
		pageSize = flag.Int("page-size", 8<<10, "target base-page byte size")
		chainCap = flag.Int("chain-length", 8, "target delta-chain length")
		walPath  = flag.String("wal", "", "path to a bbolt WAL file; empty runs without durability")
		seed     = flag.Int64("seed", 1, "random seed for the workload")
		verbose  = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		logger = l
	}
	defer logger.Sync()

	if err := run(runConfig{
		keys:     *keys,
		pageSize: *pageSize,
		chainCap: *chainCap,
		walPath:  *walPath,
		seed:     *seed,
		logger:   logger,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "bwtreebench:", err)
		os.Exit(1)
	}
}

type runConfig struct {
	keys     int
	pageSize int
	chainCap int
	walPath  string
	seed     int64
	logger   *zap.Logger
}

func run(cfg runConfig) error {
	store, err := pagestore.Open(pagestore.Options{
		CacheCapacity: 4096,
		WALPath:       cfg.walPath,
		Logger:        cfg.logger,
	})
	if err != nil {
		return fmt.Errorf("open pagestore: %w", err)
	}
	defer store.Close()

	tr := tree.New(tree.Options{PageSize: cfg.pageSize, PageChainLength: cfg.chainCap})
	ctx, perfCtx := perf.NewContext(context.Background())
	tx := tr.Begin(store)
	if err := tx.Init(ctx); err != nil {
		return fmt.Errorf("init tree: %w", err)
	}

	if err := runBasicScenarios(ctx, tx); err != nil {
		return fmt.Errorf("basic scenarios: %w", err)
	}

	start := time.Now()
	if err := runRandomWorkload(ctx, tx, cfg); err != nil {
		return fmt.Errorf("random workload: %w", err)
	}
	elapsed := time.Since(start)

	tr.SetSafeLSN(uint64(cfg.keys))

	snap := tr.Stats()
	storeSnap := store.Stats()
	fmt.Printf("workload: %d keys in %s\n", cfg.keys, elapsed)
	fmt.Printf("tree stats: find(ok=%d conflict=%d) write(ok=%d conflict=%d) split(ok=%d conflict=%d) consolidate(ok=%d conflict=%d)\n",
		snap.FindSuccess, snap.FindConflict,
		snap.WriteSuccess, snap.WriteConflict,
		snap.SplitSuccess, snap.SplitConflict,
		snap.ConsolidateSuccess, snap.ConsolidateConflict)
	fmt.Printf("store stats: reads=%d writes=%d read_bytes=%d write_bytes=%d conflicts=%d\n",
		storeSnap.Reads, storeSnap.Writes, storeSnap.ReadBytes, storeSnap.WriteBytes, storeSnap.Conflicts)
	fmt.Printf("perf: find_leaf=%s find_value=%s split_page=%s consolidate_page=%s\n",
		perfCtx.FindLeaf, perfCtx.FindValue, perfCtx.SplitPage, perfCtx.ConsolidatePage)
	return nil
}

// runBasicScenarios drives a basic put/get and a put/put/delete MVCC
// sequence against a throwaway key prefix, so their assertions never
// collide with the random workload that follows.
func runBasicScenarios(ctx context.Context, tx *tree.TreeTxn) error {
	put := func(raw string, lsn uint64, val string) error {
		return tx.Write(ctx, page.Key{Raw: []byte(raw), LSN: lsn}, page.Put([]byte(val)))
	}
	get := func(raw string, lsn uint64) ([]byte, bool, error) {
		return tx.Get(ctx, page.Key{Raw: []byte(raw), LSN: lsn})
	}

	if err := put("basic:a", 1, "x"); err != nil {
		return err
	}
	if v, ok, err := get("basic:a", 1); err != nil {
		return err
	} else if !ok || string(v) != "x" {
		return fmt.Errorf("basic put/get: expected Some(x), got %q/%v", v, ok)
	}

	if err := put("mvcc:k", 1, "v1"); err != nil {
		return err
	}
	if err := put("mvcc:k", 2, "v2"); err != nil {
		return err
	}
	if err := tx.Write(ctx, page.Key{Raw: []byte("mvcc:k"), LSN: 3}, page.Delete); err != nil {
		return err
	}
	if _, ok, err := get("mvcc:k", 3); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("mvcc put/put/delete: expected None after delete")
	}
	return nil
}

// runRandomWorkload writes cfg.keys distinct keys with random values,
// then reads every one back, to exercise splits and consolidation at
// whatever scale the caller asked for.
func runRandomWorkload(ctx context.Context, tx *tree.TreeTxn, cfg runConfig) error {
	rng := rand.New(rand.NewSource(cfg.seed))
	for i := 0; i < cfg.keys; i++ {
		key := fmt.Sprintf("key-%08d", i)
		val := make([]byte, 16+rng.Intn(64))
		rng.Read(val)
		if err := tx.Write(ctx, page.Key{Raw: []byte(key), LSN: uint64(i + 1)}, page.Put(val)); err != nil {
			return err
		}
	}
	for i := 0; i < cfg.keys; i++ {
		key := fmt.Sprintf("key-%08d", i)
		if _, ok, err := tx.Get(ctx, page.Key{Raw: []byte(key), LSN: uint64(cfg.keys + 1)}); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("missing key %s after workload", key)
		}
	}
	return nil
}
