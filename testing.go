package dalloc

import (
	"sync"

	"github.com/algorep/dalloc/internal/wire"
)

// World is a test harness bundling a running Cluster with a fixed set of
// application Clients, plus barrier/gather primitives the seed scenarios
// use to synchronize and exchange vids across application ranks: a
// focused test double, not a production path.
type World struct {
	Cluster *Cluster
	Clients []*Client

	mu       sync.Mutex
	barriers map[string]*sync.WaitGroup
	gathers  map[string][]any
}

// NewWorld starts a cluster per params and binds appCount application
// Clients, ranked right after the allocators, each to the allocator rank
// bind returns for its index.
func NewWorld(params ClusterParams, appCount int, bind func(appIndex int) wire.Rank) *World {
	c := StartCluster(params, nil)
	w := &World{Cluster: c, gathers: make(map[string][]any)}
	for i := 0; i < appCount; i++ {
		allocator := bind(i)
		w.Clients = append(w.Clients, NewClient(c.Bus(), wire.Rank(params.AllocatorCount+i), allocator))
	}
	return w
}

// Barrier blocks the calling goroutine until n calls to Barrier(n) for
// the same key have arrived.
func (w *World) Barrier(key string, n int) {
	w.mu.Lock()
	if w.barriers == nil {
		w.barriers = make(map[string]*sync.WaitGroup)
	}
	bw, ok := w.barriers[key]
	if !ok {
		bw = &sync.WaitGroup{}
		bw.Add(n)
		w.barriers[key] = bw
	}
	w.mu.Unlock()
	bw.Done()
	bw.Wait()
}

// Gather collects one value per participant under key, returning the full
// set once all n participants have contributed — the Go analogue of
// comm.allgather used by the MultipleRead scenario.
func (w *World) Gather(key string, n int, value any) []any {
	w.mu.Lock()
	w.gathers[key] = append(w.gathers[key], value)
	done := len(w.gathers[key]) == n
	result := append([]any(nil), w.gathers[key]...)
	w.mu.Unlock()
	if !done {
		// Busy-wait is acceptable here: this harness drives short-lived
		// deterministic test scenarios, never a production path.
		for {
			w.mu.Lock()
			full := len(w.gathers[key]) >= n
			result = append([]any(nil), w.gathers[key]...)
			w.mu.Unlock()
			if full {
				break
			}
		}
	}
	return result
}

// Stop issues the tree-wide stop protocol from the first client, waits
// for the cluster's goroutines to exit, and returns the combined
// terminal errors (if any) collected from every allocator node during
// teardown.
func (w *World) Stop() error {
	if len(w.Clients) == 0 {
		return nil
	}
	w.Clients[0].RequestStop("test world shutdown")
	<-w.Cluster.done
	return w.Cluster.Err()
}
