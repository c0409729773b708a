package node

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/algorep/dalloc/internal/store"
	"github.com/algorep/dalloc/internal/wire"
)

// handleDmalloc implements the dmalloc placement algorithm. The request
// may travel both downward (descending toward a child
// with capacity) and back upward (once a node's own children are
// exhausted, it forwards to its parent still as a DmallocMsg, which is
// what lets an ancestor retry a different branch rather than needing to
// wait for a full subtree failure response).
func (n *Node) handleDmalloc(env wire.Envelope, msg wire.DmallocMsg) {
	stamp(&msg.RouteFields, n.rank, env.Src)

	excluded := msg.Excluded
	if excluded == nil {
		excluded = set.New[wire.Rank](len(n.seedExcluded))
		for _, r := range n.seedExcluded {
			excluded.Insert(r)
		}
	}
	if n.isChild(env.Src) {
		excluded.Insert(env.Src)
	}

	size := msg.Size
	if size == 0 {
		size = 1
	}
	localAlloc := min(size, n.store.LocalSize())
	childAlloc := size - localAlloc

	var allocated *wire.Vid
	if localAlloc > 0 {
		n.store.ReserveLocal(localAlloc)
		vid := n.store.NextVid(msg.Caller)
		var e *store.Entity
		if size == 1 {
			e = store.NewVariable(vid)
		} else {
			e = store.NewArray(vid, localAlloc, msg.Prev)
		}
		n.store.Put(e)
		allocated = &vid
		if childAlloc == 0 {
			n.finishDmalloc(msg.RouteFields, allocated)
			return
		}
	}

	prev := msg.Prev
	if allocated != nil {
		prev = allocated
	}
	next := wire.DmallocMsg{RouteFields: msg.RouteFields, Size: childAlloc, Prev: prev, Excluded: excluded}
	if child, ok := n.lowestUnexcludedChild(excluded); ok {
		n.send(child, wire.TagControl, next)
		return
	}
	if n.parent != wire.NoRank {
		n.send(n.parent, wire.TagControl, next)
		return
	}
	n.finishDmalloc(msg.RouteFields, nil)
}

// finishDmalloc transitions a locally-resolved allocation (success or
// final failure) into the response phase without a wire round-trip.
func (n *Node) finishDmalloc(rf wire.RouteFields, vid *wire.Vid) {
	n.handleDmallocResponse(wire.Envelope{Src: wire.NoRank, Dst: n.rank}, wire.DmallocResponseMsg{RouteFields: rf, Vid: vid})
}

// handleDmallocResponse is Phase B for dmalloc: just route the outcome
// toward master, same as every other operation's response.
func (n *Node) handleDmallocResponse(_ wire.Envelope, msg wire.DmallocResponseMsg) {
	n.routeResponse(msg.RouteFields, msg)
}
