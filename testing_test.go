package dalloc

import (
	"sync"
	"testing"
	"time"

	"github.com/algorep/dalloc/internal/wire"
)

func TestWorldGatherCollectsAllParticipants(t *testing.T) {
	w := &World{gathers: make(map[string][]any)}
	const n = 3
	var wg sync.WaitGroup
	results := make([][]any, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = w.Gather("k", n, i)
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if len(r) != n {
			t.Fatalf("participant %d: expected %d gathered values, got %d", i, n, len(r))
		}
	}
}

func TestWorldBarrierReleasesAllWaiters(t *testing.T) {
	w := &World{gathers: make(map[string][]any)}
	const n = 4
	var wg sync.WaitGroup
	done := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w.Barrier("b", n)
			done <- i
		}(i)
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("expected all barrier waiters to be released")
	}
	if len(done) != n {
		t.Fatalf("expected %d goroutines past the barrier, got %d", n, len(done))
	}
}

func TestNewWorldBindsClientsAndStops(t *testing.T) {
	params := ClusterParams{NbChildren: 3, NodeSize: 2, AllocatorCount: 1}
	w := NewWorld(params, 2, func(i int) wire.Rank { return 0 })

	if len(w.Clients) != 2 {
		t.Fatalf("expected 2 application clients, got %d", len(w.Clients))
	}
	vid := w.Clients[0].Allocate(1)
	if vid == nil {
		t.Fatal("expected allocation through a World-bound client to succeed")
	}

	if err := w.Stop(); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}
