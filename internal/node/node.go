// Package node implements one allocator process: the tree-topology
// bootstrap, the single-threaded dispatch loop, and the four public
// operations (dmalloc, read, dwrite, dfree) with their response-phase
// counterparts.
//
// Dispatch is a compile-time type switch over wire.Payload: there is no
// handler name on the wire, and an unrecognized Go type can't reach
// dispatch at all except through a logic error in this package itself.
package node

import (
	"fmt"

	"github.com/hashicorp/go-set/v3"

	"github.com/algorep/dalloc/internal/errs"
	"github.com/algorep/dalloc/internal/logging"
	"github.com/algorep/dalloc/internal/store"
	"github.com/algorep/dalloc/internal/transport"
	"github.com/algorep/dalloc/internal/wire"
)

// pendingFree is the continuation state kept while waiting for a chained
// Array segment's own free to complete before answering the caller who
// asked us to free the head of the chain. See handleDfree/handleDfreeResponse.
type pendingFree struct {
	rf  wire.RouteFields
	vid wire.Vid
}

// Node is one allocator in the tree: its topology, its local storage
// arena, and the transport endpoint it sends and receives through.
type Node struct {
	rank       wire.Rank
	parent     wire.Rank
	children   []wire.Rank
	nbChildren int
	treeSize   int

	ep  *transport.Endpoint
	bus *transport.Bus

	store *store.Store

	// memoryMap is the bootstrap-time hint of each child's subtree free
	// capacity; stale by design, corrected lazily by the per-request
	// excluded set.
	memoryMap map[wire.Rank]int
	// seedExcluded holds children whose bootstrap report showed zero
	// remaining capacity: a child known empty at startup is excluded from
	// the very first dmalloc descent instead of being discovered the hard
	// way.
	seedExcluded []wire.Rank

	pendingChainFrees map[wire.Vid]pendingFree

	stop bool
	err  *errs.Error

	logger *logging.Logger
	plog   *logging.ProcessLog
}

// New builds the allocator for rank within a tree of treeSize allocator
// ranks with fan-out nbChildren, each starting with nodeSize free scalar
// cells, communicating over bus.
func New(rank wire.Rank, nbChildren, treeSize, nodeSize int, bus *transport.Bus, logger *logging.Logger, plog *logging.ProcessLog) *Node {
	parent := wire.NoRank
	if rank != 0 {
		parent = wire.Rank((int(rank) - 1) / nbChildren)
	}
	var children []wire.Rank
	for r := int(rank)*nbChildren + 1; r <= int(rank+1)*nbChildren; r++ {
		if r < treeSize {
			children = append(children, wire.Rank(r))
		}
	}
	return &Node{
		rank:              rank,
		parent:            parent,
		children:          children,
		nbChildren:        nbChildren,
		treeSize:          treeSize,
		ep:                transport.NewEndpoint(bus, rank),
		bus:               bus,
		store:             store.New(rank, nodeSize),
		pendingChainFrees: make(map[wire.Vid]pendingFree),
		logger:            logger,
		plog:              plog,
	}
}

// Rank returns the node's own rank.
func (n *Node) Rank() wire.Rank { return n.rank }

// Store exposes the node's storage arena, for tests asserting the
// capacity-conservation invariant.
func (n *Node) Store() *store.Store { return n.store }

// Err returns the structured error that aborted this node's dispatch
// loop, or nil if it ran to a clean stop.
func (n *Node) Err() error {
	if n.err == nil {
		return nil
	}
	return n.err
}

func (n *Node) isChild(r wire.Rank) bool {
	for _, c := range n.children {
		if c == r {
			return true
		}
	}
	return false
}

// lowestUnexcludedChild returns the lowest-ranked child not present in
// excluded (children are already built in ascending order). Deterministic
// tie-break eases testing and debugging of routing traces.
func (n *Node) lowestUnexcludedChild(excluded *set.Set[wire.Rank]) (wire.Rank, bool) {
	for _, c := range n.children {
		if excluded == nil || !excluded.Contains(c) {
			return c, true
		}
	}
	return 0, false
}

func (n *Node) logf(format string, args ...any) {
	if n.plog == nil {
		return
	}
	n.plog.Log(n.ep.Clock(), fmt.Sprintf(format, args...))
}

// send delivers payload to dst on tag and records it in this node's
// process log, if one is configured.
func (n *Node) send(dst wire.Rank, tag wire.Tag, payload wire.Payload) {
	n.ep.Send(dst, tag, payload)
	n.logf("send dst=%d tag=%d payload=%T", dst, tag, payload)
}

// receive blocks for a message from src on tag and records it in this
// node's process log, if one is configured.
func (n *Node) receive(src wire.Rank, tag wire.Tag) (wire.Envelope, bool) {
	env, ok := n.ep.Receive(src, tag)
	if ok {
		n.logf("recv src=%d tag=%d payload=%T clock=%d", env.Src, tag, env.Payload, env.Clock)
	}
	return env, ok
}

// fatalf flags a condition that is fatal for the receiving process: it
// builds a structured error tagged with code, logs it, and panics with
// it. The recover in dispatchSafe records the error on the node and
// turns the panic into stop=true plus a bus-wide abort.
func (n *Node) fatalf(code errs.Code, format string, args ...any) {
	err := errs.New(fmt.Sprintf("node[%d]", n.rank), code, fmt.Sprintf(format, args...))
	n.logger.Error(err.Error(), "rank", n.rank, "code", code)
	panic(err)
}

// bootstrap collects each child's reported subtree capacity on the
// bootstrap tag, then (if not root) reports the accumulated total
// upward. This runs before the dispatch loop starts, so the blocking
// per-child receives here cannot deadlock with the any-source
// control-tag dispatch that follows.
func (n *Node) bootstrap() bool {
	n.memoryMap = make(map[wire.Rank]int)
	total := n.store.LocalSize()
	for _, c := range n.children {
		env, ok := n.receive(c, wire.TagBootstrap)
		if !ok {
			return false
		}
		msg, ok := env.Payload.(wire.BootstrapMsg)
		if !ok {
			n.fatalf(errs.CodeUnknownHandler, "bootstrap: unexpected payload %T from rank %d", env.Payload, c)
			return false
		}
		n.memoryMap[c] = msg.Capacity
		if msg.Capacity == 0 {
			n.seedExcluded = append(n.seedExcluded, c)
		}
		total += msg.Capacity
	}
	if n.parent != wire.NoRank {
		n.send(n.parent, wire.TagBootstrap, wire.BootstrapMsg{Capacity: total})
	}
	return true
}

// Run bootstraps the node, then loops receiving and dispatching control
// messages until the stop protocol fires. stop is tested at the top of
// the loop so any message already delivered for this node is dispatched
// before it exits. The node's process log, if any, is closed on exit.
func (n *Node) Run() {
	if n.plog != nil {
		defer n.plog.Close()
	}
	if !n.bootstrap() {
		return
	}
	for !n.stop {
		env, ok := n.receive(wire.AnySource, wire.TagControl)
		if !ok {
			return
		}
		n.dispatchSafe(env)
	}
}

// dispatchSafe wraps dispatch with recovery: any handler panic is
// recorded as this node's terminal error, logged, and turns into
// stop=true plus a bus-wide abort.
func (n *Node) dispatchSafe(env wire.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*errs.Error); ok {
				n.err = e
			} else {
				n.err = errs.New(fmt.Sprintf("node[%d]", n.rank), errs.CodeTransport, fmt.Sprint(r))
			}
			n.logger.Error("handler error, aborting world", "rank", n.rank, "error", n.err)
			n.stop = true
			n.bus.Abort()
		}
	}()
	n.dispatch(env)
}

// dispatch routes an envelope to its handler by the concrete payload type.
func (n *Node) dispatch(env wire.Envelope) {
	switch msg := env.Payload.(type) {
	case wire.DmallocMsg:
		n.handleDmalloc(env, msg)
	case wire.DmallocResponseMsg:
		n.handleDmallocResponse(env, msg)
	case wire.ReadMsg:
		n.handleRead(env, msg)
	case wire.ReadResponseMsg:
		n.handleReadResponse(env, msg)
	case wire.DwriteMsg:
		n.handleDwrite(env, msg)
	case wire.DwriteResponseMsg:
		n.handleDwriteResponse(env, msg)
	case wire.DfreeMsg:
		n.handleDfree(env, msg)
	case wire.DfreeResponseMsg:
		n.handleDfreeResponse(env, msg)
	case wire.StopMsg:
		n.handleStop(msg)
	case wire.RequestStopMsg:
		n.handleRequestStop(msg)
	default:
		n.fatalf(errs.CodeUnknownHandler, "unknown payload type %T", env.Payload)
	}
}

// routeResponse delivers a Phase-B response toward rf.Master, using the
// same child/parent/ancestor rule Phase A uses to find the owner. If this
// node is already master, the result goes straight to the waiting
// application on the reply tag.
func (n *Node) routeResponse(rf wire.RouteFields, resp wire.Payload) {
	if n.rank == rf.Master {
		n.send(rf.Caller, wire.TagReply, resp)
		return
	}
	n.send(n.nextHop(rf.Master), wire.TagControl, resp)
}

// stamp fills in Master/Caller on first entry to a public operation,
// using env.Src as the application's caller rank.
func stamp(rf *wire.RouteFields, self wire.Rank, src wire.Rank) {
	if rf.Master == wire.NoRank {
		rf.Master = self
		rf.Caller = src
	}
}

// handleStop latches stop and fans the message out to every child.
func (n *Node) handleStop(msg wire.StopMsg) {
	n.stop = true
	for _, c := range n.children {
		n.send(c, wire.TagControl, wire.StopMsg{Message: msg.Message})
	}
	n.logf("end of process %d, %d local variables remaining", n.rank, n.store.Len())
}

// handleRequestStop forwards upward until the root converts it into a
// StopMsg fan-out.
func (n *Node) handleRequestStop(msg wire.RequestStopMsg) {
	if n.rank != 0 {
		n.send(n.parent, wire.TagControl, wire.RequestStopMsg{Message: msg.Message})
		return
	}
	n.handleStop(wire.StopMsg{Message: msg.Message})
}
