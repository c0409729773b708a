// Command dalloc-cluster stands up a tree of allocator processes plus a
// partition of application processes bound to them, then drives one of
// the sample scenarios against the live cluster: the same process split,
// the same per-rank seeded PRNG, and the same
// --node_size/--nb_children/--verbose/--quicksort flags across runs.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"github.com/algorep/dalloc"
	"github.com/algorep/dalloc/cmd/dalloc-cluster/internal/quicksort"
	"github.com/algorep/dalloc/cmd/dalloc-cluster/internal/scenario"
	"github.com/algorep/dalloc/internal/logging"
	"github.com/algorep/dalloc/internal/wire"
)

func main() {
	var (
		nodeSize   = flag.Int("node_size", 2, "initial free-cell capacity of each allocator")
		nbChildren = flag.Int("nb_children", 3, "allocator tree fan-out")
		size       = flag.Int("size", 6, "total process count (allocators + applications, split in half)")
		runQS      = flag.Bool("quicksort", false, "run the quicksort sample app instead of the scenario suite")
		verbose    = flag.Bool("verbose", false, "verbose logging, also streamed to stderr per process")
		logDir     = flag.String("log_dir", ".", "directory for each allocator's process<rank>_allocator.log")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	allocatorCount := *size / 2
	appCount := *size - allocatorCount
	if allocatorCount < 1 || appCount < 1 {
		fmt.Fprintln(os.Stderr, "size must be at least 2 (one allocator, one application)")
		os.Exit(1)
	}

	params := dalloc.ClusterParams{
		NbChildren:     *nbChildren,
		NodeSize:       *nodeSize,
		AllocatorCount: allocatorCount,
		LogDir:         *logDir,
		Verbose:        *verbose,
	}
	cluster := dalloc.StartCluster(params, logger)

	clients := make([]*dalloc.Client, appCount)
	for i := 0; i < appCount; i++ {
		appRank := allocatorCount + i
		rng := rand.New(rand.NewSource(int64(appRank)))
		allocator := wire.Rank(rng.Intn(allocatorCount))
		clients[i] = dalloc.NewClient(cluster.Bus(), wire.Rank(appRank), allocator)
		clients[i].SetMetrics(cluster.Metrics())
		logger.Info("application bound", "rank", appRank, "allocator", allocator)
	}

	if *runQS {
		quicksort.Run(clients[0], rand.New(rand.NewSource(int64(clients[0].Rank()))), logger)
	} else {
		var wg sync.WaitGroup
		for _, c := range clients {
			wg.Add(1)
			go func(c *dalloc.Client) {
				defer wg.Done()
				scenario.RunAll(c, logger)
			}(c)
		}
		wg.Wait()
	}

	clients[0].RequestStop("cluster run complete")
	<-cluster.Done()

	if err := cluster.Err(); err != nil {
		logger.Error("cluster aborted", "error", err)
		os.Exit(1)
	}
	snap := cluster.Metrics().Snapshot()
	for _, counter := range snap.Counters {
		logger.Info("metric", "name", counter.Name, "count", counter.Count)
	}
}
