package node

import (
	"github.com/algorep/dalloc/internal/errs"
	"github.com/algorep/dalloc/internal/store"
	"github.com/algorep/dalloc/internal/wire"
)

func cellIndex(idx *int) int {
	if idx == nil {
		return 0
	}
	return *idx
}

// handleRead implements read_variable. If the vid isn't locally owned it
// is forwarded unchanged toward its owner; once it arrives, an
// out-of-range index walks the Array chain by re-entering this same
// handler against the segment's next vid, which may itself be local (a
// direct recursive call) or remote (a forwarded message).
func (n *Node) handleRead(env wire.Envelope, msg wire.ReadMsg) {
	stamp(&msg.RouteFields, n.rank, env.Src)

	if msg.Vid.OwnerRank != n.rank {
		n.send(n.nextHop(msg.Vid.OwnerRank), wire.TagControl, msg)
		return
	}

	e, ok := n.store.Get(msg.Vid)
	if !ok {
		n.fatalf(errs.CodeVidNotFound, "read of non-existent vid %s", msg.Vid)
		return
	}
	index := cellIndex(msg.Index)
	if e.Kind == store.KindArray && index >= e.Size {
		if e.Next == nil {
			n.fatalf(errs.CodeIndexOutOfRange, "read index %d out of range on vid %s", index, msg.Vid)
			return
		}
		nextIndex := index - e.Size
		n.handleRead(wire.Envelope{Src: wire.NoRank, Dst: n.rank}, wire.ReadMsg{RouteFields: msg.RouteFields, Vid: *e.Next, Index: &nextIndex})
		return
	}

	n.handleReadResponse(wire.Envelope{Src: wire.NoRank, Dst: n.rank}, wire.ReadResponseMsg{RouteFields: msg.RouteFields, Value: e.Read(index)})
}

func (n *Node) handleReadResponse(_ wire.Envelope, msg wire.ReadResponseMsg) {
	n.routeResponse(msg.RouteFields, msg)
}

// handleDwrite implements dwrite: last-writer-wins against the envelope
// clock of whichever hop actually delivered the write to the owner.
// Out-of-range indices walk the chain exactly like handleRead.
func (n *Node) handleDwrite(env wire.Envelope, msg wire.DwriteMsg) {
	stamp(&msg.RouteFields, n.rank, env.Src)

	if msg.Vid.OwnerRank != n.rank {
		n.send(n.nextHop(msg.Vid.OwnerRank), wire.TagControl, msg)
		return
	}

	e, ok := n.store.Get(msg.Vid)
	if !ok {
		n.fatalf(errs.CodeVidNotFound, "write of non-existent vid %s", msg.Vid)
		return
	}
	index := cellIndex(msg.Index)
	if e.Kind == store.KindArray && index >= e.Size {
		if e.Next == nil {
			n.fatalf(errs.CodeIndexOutOfRange, "write index %d out of range on vid %s", index, msg.Vid)
			return
		}
		nextIndex := index - e.Size
		n.handleDwrite(env, wire.DwriteMsg{RouteFields: msg.RouteFields, Vid: *e.Next, Value: msg.Value, Index: &nextIndex})
		return
	}

	accepted := e.Write(index, msg.Value, env.Clock)
	n.handleDwriteResponse(wire.Envelope{Src: wire.NoRank, Dst: n.rank}, wire.DwriteResponseMsg{RouteFields: msg.RouteFields, Accepted: accepted})
}

func (n *Node) handleDwriteResponse(_ wire.Envelope, msg wire.DwriteResponseMsg) {
	n.routeResponse(msg.RouteFields, msg)
}

// handleDfree implements dfree for Array chains: freeing a segment with a
// Next issues a further dfree against it and waits (via pendingChainFrees,
// keyed by the vid being waited on) before answering the caller, so a
// multi-segment array releases every cell and replies true only once the
// whole chain is gone.
func (n *Node) handleDfree(env wire.Envelope, msg wire.DfreeMsg) {
	stamp(&msg.RouteFields, n.rank, env.Src)

	if msg.Vid.OwnerRank != n.rank {
		n.send(n.nextHop(msg.Vid.OwnerRank), wire.TagControl, msg)
		return
	}

	e, ok := n.store.Delete(msg.Vid)
	if !ok {
		n.fatalf(errs.CodeVidNotFound, "free of non-existent vid %s", msg.Vid)
		return
	}
	n.store.ReleaseLocal(e.Size)

	if e.Next == nil {
		n.handleDfreeResponse(wire.Envelope{Src: wire.NoRank, Dst: n.rank}, wire.DfreeResponseMsg{RouteFields: msg.RouteFields, Freed: true, Vid: msg.Vid})
		return
	}

	n.pendingChainFrees[*e.Next] = pendingFree{rf: msg.RouteFields, vid: msg.Vid}
	sub := wire.DfreeMsg{RouteFields: wire.RouteFields{Master: n.rank, Caller: n.rank}, Vid: *e.Next}
	n.handleDfree(wire.Envelope{Src: wire.NoRank, Dst: n.rank}, sub)
}

// handleDfreeResponse either completes a pending chain-free continuation
// (if msg.Vid matches one this node is waiting on) or routes the result
// toward master like every other response.
func (n *Node) handleDfreeResponse(_ wire.Envelope, msg wire.DfreeResponseMsg) {
	if p, ok := n.pendingChainFrees[msg.Vid]; ok {
		delete(n.pendingChainFrees, msg.Vid)
		n.handleDfreeResponse(wire.Envelope{Src: wire.NoRank, Dst: n.rank}, wire.DfreeResponseMsg{RouteFields: p.rf, Freed: msg.Freed, Vid: p.vid})
		return
	}
	n.routeResponse(msg.RouteFields, msg)
}
