package quicksort

import (
	"math/rand"
	stdsort "sort"
	"testing"

	"github.com/algorep/dalloc"
	"github.com/algorep/dalloc/internal/logging"
	"github.com/algorep/dalloc/internal/wire"
)

func TestSortOrdersArray(t *testing.T) {
	c := dalloc.StartCluster(dalloc.ClusterParams{NbChildren: 3, NodeSize: sampleSize + 1, AllocatorCount: 1}, nil)
	client := dalloc.NewClient(c.Bus(), 1, 0)

	values := rand.New(rand.NewSource(2)).Perm(sampleSize * 3)[:sampleSize]
	vid := client.Allocate(sampleSize)
	if vid == nil {
		t.Fatal("expected allocation to succeed")
	}
	for i, v := range values {
		client.Write(*vid, v, i)
	}

	sort_(client, *vid, 0, sampleSize-1)

	got := make([]int, sampleSize)
	for i := range got {
		got[i] = client.Read(*vid, i).(int)
	}
	want := append([]int(nil), values...)
	stdsort.Ints(want)
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("array not sorted at index %d: got %v, want %v", i, got, want)
		}
	}
}

// sort_ forwards to the package's own recursive sort, avoiding a name
// collision with the standard library import used for verification above.
func sort_(c *dalloc.Client, vid wire.Vid, start, end int) {
	sort(c, vid, start, end)
}

func TestRunCompletesWithinCapacity(t *testing.T) {
	c := dalloc.StartCluster(dalloc.ClusterParams{NbChildren: 3, NodeSize: sampleSize + 1, AllocatorCount: 1}, nil)
	client := dalloc.NewClient(c.Bus(), 1, 0)

	// Run logs before/after rather than returning the vid, so this just
	// exercises the full allocate-write-sort-read path without panicking
	// and without exhausting the single allocator's capacity.
	Run(client, rand.New(rand.NewSource(1)), logging.Default())
}
