package scenario

import (
	"testing"

	"github.com/algorep/dalloc"
	"github.com/algorep/dalloc/internal/logging"
)

func newTestClient(t *testing.T, nodeSize int) *dalloc.Client {
	t.Helper()
	c := dalloc.StartCluster(dalloc.ClusterParams{NbChildren: 3, NodeSize: nodeSize, AllocatorCount: 1}, nil)
	return dalloc.NewClient(c.Bus(), 1, 0)
}

func TestSimpleAlloc(t *testing.T) {
	client := newTestClient(t, 5)
	SimpleAlloc(client, logging.Default())
}

func TestSimpleWrite(t *testing.T) {
	client := newTestClient(t, 5)
	SimpleWrite(client, logging.Default())
}

func TestSimpleFree(t *testing.T) {
	client := newTestClient(t, 2)
	SimpleFree(client, logging.Default())
}

func TestSimpleArrayWrite(t *testing.T) {
	client := newTestClient(t, 4)
	SimpleArrayWrite(client, logging.Default())
}

func TestBigArrayWrite(t *testing.T) {
	// node_size equal to the array size lets the single allocator satisfy
	// the 6-cell allocation locally, without spanning ranks, which is
	// enough to exercise the read/write-after-alloc path end to end.
	client := newTestClient(t, 6)
	BigArrayWrite(client, logging.Default())
}
