package dalloc

import (
	"fmt"
	"sync"

	"github.com/algorep/dalloc/internal/logging"
	"github.com/algorep/dalloc/internal/node"
	"github.com/algorep/dalloc/internal/transport"
	"github.com/algorep/dalloc/internal/wire"
)

// ClusterParams configures the allocator tree.
type ClusterParams struct {
	// NbChildren is the tree fan-out (--nb_children, default 3).
	NbChildren int
	// NodeSize is each allocator's initial free-cell capacity
	// (--node_size, default 2).
	NodeSize int
	// AllocatorCount is the number of allocator ranks (the tree size).
	AllocatorCount int
	// LogDir, if non-empty, enables the per-process log file
	// (process<rank>_allocator.log) for every allocator node, written
	// under this directory.
	LogDir string
	// Verbose additionally streams every process log line to stderr.
	Verbose bool
}

// DefaultClusterParams returns the standard fan-out and per-node capacity.
func DefaultClusterParams(allocatorCount int) ClusterParams {
	return ClusterParams{NbChildren: 3, NodeSize: 2, AllocatorCount: allocatorCount}
}

// Cluster is a running allocator tree: a bus and one Node goroutine per
// allocator rank. Applications bind a Client to one of its ranks.
type Cluster struct {
	bus     *transport.Bus
	nodes   []*node.Node
	logger  *logging.Logger
	metrics *Metrics
	done    chan struct{}

	mu   sync.Mutex
	errs []error
}

// StartCluster builds the allocator tree described by params and starts
// every node's dispatch loop in its own goroutine, handing back a live
// handle to the running cluster.
func StartCluster(params ClusterParams, logger *logging.Logger) *Cluster {
	if logger == nil {
		logger = logging.Default()
	}
	bus := transport.NewBus()
	c := &Cluster{bus: bus, logger: logger, metrics: NewMetrics("dalloc"), done: make(chan struct{})}
	c.nodes = make([]*node.Node, params.AllocatorCount)
	for r := 0; r < params.AllocatorCount; r++ {
		var plog *logging.ProcessLog
		if params.LogDir != "" {
			p, err := logging.NewProcessLog(params.LogDir, r, "allocator", params.Verbose)
			if err != nil {
				logger.Error("failed to open process log", "rank", r, "error", err)
			} else {
				plog = p
			}
		}
		n := node.New(wire.Rank(r), params.NbChildren, params.AllocatorCount, params.NodeSize, bus, logger.Named(fmt.Sprintf("allocator.%d", r)), plog)
		c.nodes[r] = n
	}
	var wg sync.WaitGroup
	wg.Add(len(c.nodes))
	for _, n := range c.nodes {
		go func(n *node.Node) {
			defer wg.Done()
			n.Run()
			if err := n.Err(); err != nil {
				c.mu.Lock()
				c.errs = append(c.errs, err)
				c.mu.Unlock()
			}
		}(n)
	}
	go func() {
		wg.Wait()
		close(c.done)
	}()
	return c
}

// Bus exposes the underlying transport, for building a Client or a
// second partition of application endpoints.
func (c *Cluster) Bus() *transport.Bus { return c.bus }

// NodeCount returns the number of allocator ranks in the cluster.
func (c *Cluster) NodeCount() int { return len(c.nodes) }

// Metrics returns the cluster's shared allocate/read/write/free counters.
func (c *Cluster) Metrics() *Metrics { return c.metrics }

// Done is closed once every allocator node's dispatch loop has returned,
// whether from the stop protocol or a world abort.
func (c *Cluster) Done() <-chan struct{} { return c.done }

// Err returns the combined terminal errors reported by every allocator
// node that aborted, or nil if every node ran to a clean stop. Call
// after Done is closed.
func (c *Cluster) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CombineErrors(c.errs...)
}

// Client is a synchronous application bound to one allocator rank: every
// call sends on the control tag and blocks for the reply on the
// application tag.
type Client struct {
	ep            *transport.Endpoint
	allocatorRank wire.Rank
	metrics       *Metrics
}

// NewClient builds a Client for application rank bound to allocatorRank,
// both addressed on bus.
func NewClient(bus *transport.Bus, rank wire.Rank, allocatorRank wire.Rank) *Client {
	return &Client{ep: transport.NewEndpoint(bus, rank), allocatorRank: allocatorRank}
}

// SetMetrics attaches m so every subsequent Allocate/Read/Write/Free call
// this Client makes is recorded against it.
func (c *Client) SetMetrics(m *Metrics) { c.metrics = m }

// Rank returns the client's own (application) rank.
func (c *Client) Rank() wire.Rank { return c.ep.Rank() }

// Allocate requests size cells (1 for a scalar Variable) and blocks for
// the resulting vid, or nil if the cluster has no room.
func (c *Client) Allocate(size int) *wire.Vid {
	c.ep.Send(c.allocatorRank, wire.TagControl, wire.DmallocMsg{
		RouteFields: wire.RouteFields{Master: wire.NoRank, Caller: wire.NoRank},
		Size:        size,
	})
	env, ok := c.ep.Receive(c.allocatorRank, wire.TagReply)
	if !ok {
		if c.metrics != nil {
			c.metrics.RecordAllocate(size, false)
		}
		return nil
	}
	resp := env.Payload.(wire.DmallocResponseMsg)
	if c.metrics != nil {
		c.metrics.RecordAllocate(size, resp.Vid != nil)
	}
	return resp.Vid
}

// Read returns the value stored at vid (index selects an array cell; -1
// for a plain Variable).
func (c *Client) Read(vid wire.Vid, index int) any {
	var idx *int
	if index >= 0 {
		idx = &index
	}
	c.ep.Send(c.allocatorRank, wire.TagControl, wire.ReadMsg{
		RouteFields: wire.RouteFields{Master: wire.NoRank, Caller: wire.NoRank},
		Vid:         vid,
		Index:       idx,
	})
	env, ok := c.ep.Receive(c.allocatorRank, wire.TagReply)
	if c.metrics != nil {
		c.metrics.RecordRead()
	}
	if !ok {
		return nil
	}
	return env.Payload.(wire.ReadResponseMsg).Value
}

// Write stores value at vid (index selects an array cell; -1 for a plain
// Variable). Returns false on a stale-clock rejection.
func (c *Client) Write(vid wire.Vid, value any, index int) bool {
	var idx *int
	if index >= 0 {
		idx = &index
	}
	c.ep.Send(c.allocatorRank, wire.TagControl, wire.DwriteMsg{
		RouteFields: wire.RouteFields{Master: wire.NoRank, Caller: wire.NoRank},
		Vid:         vid,
		Value:       value,
		Index:       idx,
	})
	env, ok := c.ep.Receive(c.allocatorRank, wire.TagReply)
	if !ok {
		if c.metrics != nil {
			c.metrics.RecordWrite(false)
		}
		return false
	}
	accepted := env.Payload.(wire.DwriteResponseMsg).Accepted
	if c.metrics != nil {
		c.metrics.RecordWrite(accepted)
	}
	return accepted
}

// Free releases vid (and, for an Array, its whole chain).
func (c *Client) Free(vid wire.Vid) bool {
	c.ep.Send(c.allocatorRank, wire.TagControl, wire.DfreeMsg{
		RouteFields: wire.RouteFields{Master: wire.NoRank, Caller: wire.NoRank},
		Vid:         vid,
	})
	env, ok := c.ep.Receive(c.allocatorRank, wire.TagReply)
	if !ok {
		if c.metrics != nil {
			c.metrics.RecordFree(false)
		}
		return false
	}
	freed := env.Payload.(wire.DfreeResponseMsg).Freed
	if c.metrics != nil {
		c.metrics.RecordFree(freed)
	}
	return freed
}

// RequestStop triggers the tree-wide stop protocol, originating the
// RequestStopMsg at the client's bound allocator.
func (c *Client) RequestStop(message string) {
	c.ep.Send(c.allocatorRank, wire.TagControl, wire.RequestStopMsg{Message: message})
}
