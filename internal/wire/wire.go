// Package wire defines the envelope and payload types exchanged between
// allocator and application processes. The original program modeled a
// message as a dict with a string `handler` field; here every operation has
// its own payload type and dispatch is a compile-time type switch (see
// internal/node) instead of a name lookup.
package wire

import (
	"fmt"

	"github.com/hashicorp/go-set/v3"
)

// Rank identifies a process in the world. Allocators occupy ranks
// [0, treeSize); applications occupy the remaining ranks.
type Rank int

// NoRank marks a rank field that is logically absent (e.g. the
// Master/Caller of a request not yet stamped, or the root's parent).
const NoRank Rank = -1

// Tag selects the logical channel a message travels on.
type Tag int

const (
	// TagBootstrap carries subtree-capacity reports during startup.
	TagBootstrap Tag = 0
	// TagControl carries every allocator-to-allocator operation message.
	TagControl Tag = 1
	// TagReply carries the bare result of a public operation back to the
	// application that issued it.
	TagReply Tag = 10
)

// AnySource is passed to Bus.Receive to accept a message from any sender.
const AnySource Rank = -1

// Vid is the opaque variable identifier applications and allocators pass
// around: the application rank that requested the allocation, the
// allocator rank that physically holds the first segment (this is what
// drives routing), and a sequence number unique on the owner.
type Vid struct {
	RequestRank Rank
	OwnerRank   Rank
	Sequence    uint64
}

// String formats v as "(request,owner,sequence)" for logs and error
// messages. Callers that need "no vid" use a *Vid rather than a sentinel
// value.
func (v Vid) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.RequestRank, v.OwnerRank, v.Sequence)
}

// RouteFields are the master/caller pair every public operation stamps
// exactly once, on first entry to the handler that originates it. Master
// is the allocator rank the application's request first reached; caller is
// the application rank awaiting the eventual reply.
type RouteFields struct {
	Master Rank
	Caller Rank
}

// Stamped reports whether the routing fields have already been set.
func (r RouteFields) Stamped() bool {
	return r.Master != NoRank
}

// Payload is the sealed set of messages exchanged over the Bus, on
// TagControl, TagReply, or (BootstrapMsg) TagBootstrap.
// Dispatch in internal/node is a type switch over this interface instead
// of a registry keyed by handler name.
type Payload interface {
	isPayload()
}

// DmallocMsg requests allocation of size cells (default 1), optionally
// chaining to a previously allocated segment (Prev) and excluding ranks
// already known to be full.
type DmallocMsg struct {
	RouteFields
	Size     int
	Prev     *Vid
	Excluded *set.Set[Rank]
}

func (DmallocMsg) isPayload() {}

// DmallocResponseMsg carries the outcome of a dmalloc descent back toward
// master. Vid is nil on allocation failure.
type DmallocResponseMsg struct {
	RouteFields
	Vid *Vid
}

func (DmallocResponseMsg) isPayload() {}

// ReadMsg requests the value stored at Vid (Index selects an array cell;
// nil for a plain Variable).
type ReadMsg struct {
	RouteFields
	Vid   Vid
	Index *int
}

func (ReadMsg) isPayload() {}

// ReadResponseMsg carries the value read back toward master.
type ReadResponseMsg struct {
	RouteFields
	Value any
}

func (ReadResponseMsg) isPayload() {}

// DwriteMsg requests that Value be written at Vid (optionally at Index
// within an array).
type DwriteMsg struct {
	RouteFields
	Vid   Vid
	Value any
	Index *int
}

func (DwriteMsg) isPayload() {}

// DwriteResponseMsg carries the accept/reject outcome of a write back
// toward master.
type DwriteResponseMsg struct {
	RouteFields
	Accepted bool
}

func (DwriteResponseMsg) isPayload() {}

// DfreeMsg requests that the segment at Vid be released.
type DfreeMsg struct {
	RouteFields
	Vid Vid
}

func (DfreeMsg) isPayload() {}

// DfreeResponseMsg carries the completion of a free back toward master.
// For an Array, Freed only becomes true once the whole chain is released.
// Vid identifies which segment this particular response is about — used
// internally to match a chain-free continuation to the pending free that
// is waiting on it (see internal/node's pendingChainFrees).
type DfreeResponseMsg struct {
	RouteFields
	Freed bool
	Vid   Vid
}

func (DfreeResponseMsg) isPayload() {}

// BootstrapMsg reports a subtree's accumulated free capacity to its
// parent during _init_memory.
type BootstrapMsg struct {
	Capacity int
}

func (BootstrapMsg) isPayload() {}

// StopMsg is fanned out from the root to every node once the stop
// protocol has been triggered.
type StopMsg struct {
	Message string
}

func (StopMsg) isPayload() {}

// RequestStopMsg travels upward from wherever it was issued until it
// reaches the root, which converts it into a StopMsg fan-out.
type RequestStopMsg struct {
	Message string
}

func (RequestStopMsg) isPayload() {}

// Envelope is the logical unit exchanged over the Bus: sender, receiver,
// the sender's Lamport clock at send time, and the payload.
type Envelope struct {
	Src     Rank
	Dst     Rank
	Clock   uint64
	Payload Payload
}
