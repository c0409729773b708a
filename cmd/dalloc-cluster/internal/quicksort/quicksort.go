// Package quicksort implements a sample application that sorts an array
// allocated in the cluster entirely from one driver rank, using only the
// Client's allocate/read/write calls: a single rank's in-place Lomuto
// partition over a remote array rather than a distributed dispatch
// across ranks.
package quicksort

import (
	"math/rand"

	"github.com/algorep/dalloc"
	"github.com/algorep/dalloc/internal/logging"
	"github.com/algorep/dalloc/internal/wire"
)

const sampleSize = 50

// Run allocates a random permutation of sampleSize distinct values,
// writes it into the cluster, quicksorts it in place via read/write RPCs,
// and logs the before/after arrays.
func Run(c *dalloc.Client, rng *rand.Rand, logger *logging.Logger) {
	log := logger.Named("quicksort")

	values := rng.Perm(sampleSize * 3)[:sampleSize]

	vid := c.Allocate(sampleSize)
	if vid == nil {
		log.Error("allocation exhausted, cannot run quicksort sample")
		return
	}
	for i, v := range values {
		c.Write(*vid, v, i)
	}

	before := readAll(c, *vid, sampleSize)
	log.Info("quicksort: before", "values", before)

	sort(c, *vid, 0, sampleSize-1)

	after := readAll(c, *vid, sampleSize)
	log.Info("quicksort: after", "values", after)
}

func readAll(c *dalloc.Client, vid wire.Vid, size int) []any {
	out := make([]any, size)
	for i := 0; i < size; i++ {
		out[i] = c.Read(vid, i)
	}
	return out
}

// sort is the classic recursive Lomuto quicksort, expressed over
// partition instead of a local slice: every comparison and swap is a
// remote read/write pair.
func sort(c *dalloc.Client, vid wire.Vid, start, end int) {
	if start >= end {
		return
	}
	p := partition(c, vid, start, end)
	sort(c, vid, start, p-1)
	sort(c, vid, p+1, end)
}

func partition(c *dalloc.Client, vid wire.Vid, start, end int) int {
	pivot := c.Read(vid, end).(int)
	i := start - 1
	for j := start; j < end; j++ {
		v := c.Read(vid, j).(int)
		if v <= pivot {
			i++
			swap(c, vid, i, j)
		}
	}
	swap(c, vid, i+1, end)
	return i + 1
}

func swap(c *dalloc.Client, vid wire.Vid, a, b int) {
	if a == b {
		return
	}
	va := c.Read(vid, a)
	vb := c.Read(vid, b)
	c.Write(vid, vb, a)
	c.Write(vid, va, b)
}
