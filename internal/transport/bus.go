// Package transport simulates the reliable, ordered, rank-addressed
// message world the allocator runs on. A real deployment would bind this
// to MPI or a comparable transport; Bus models only the behavior the
// core depends on: per-(src,dst,tag) FIFO ordering, an any-source receive
// on a tag, and Lamport clock stamping.
package transport

import (
	"fmt"
	"sync"

	"github.com/algorep/dalloc/internal/wire"
)

// Bus is an in-process rank-addressed message world shared by every
// allocator and application goroutine in a run.
type Bus struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queues  map[queueKey][]wire.Envelope
	aborted bool
	abortMu sync.Mutex
}

type queueKey struct {
	dst wire.Rank
	tag wire.Tag
}

// NewBus creates an empty message world.
func NewBus() *Bus {
	b := &Bus{queues: make(map[queueKey][]wire.Envelope)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Send delivers env, already stamped with the sender's clock by
// Endpoint.Send, to dst's queue for tag. Send never blocks: the transport is assumed to have unbounded
// buffering, matching the "no retries, no duplication, reliable and
// in-order" assumption the core is built against.
func (b *Bus) Send(env wire.Envelope, tag wire.Tag) {
	b.mu.Lock()
	key := queueKey{dst: env.Dst, tag: tag}
	b.queues[key] = append(b.queues[key], env)
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Receive blocks until a message addressed to dst on tag is available.
// If src is wire.AnySource, the oldest message from any sender queued for
// (dst, tag) is returned; otherwise only messages whose Src matches src
// are considered, preserving per-(src,dst,tag) order.
func (b *Bus) Receive(dst wire.Rank, src wire.Rank, tag wire.Tag) (wire.Envelope, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		if b.isAborted() {
			return wire.Envelope{}, false
		}
		key := queueKey{dst: dst, tag: tag}
		q := b.queues[key]
		if src == wire.AnySource {
			if len(q) > 0 {
				env := q[0]
				b.queues[key] = q[1:]
				return env, true
			}
		} else {
			for i, env := range q {
				if env.Src == src {
					b.queues[key] = append(q[:i:i], q[i+1:]...)
					return env, true
				}
			}
		}
		b.cond.Wait()
	}
}

// Abort wakes every blocked receiver and makes all subsequent Receive
// calls return ok=false. Used when a handler panics and the dispatch loop
// decides the world cannot continue.
func (b *Bus) Abort() {
	b.abortMu.Lock()
	b.aborted = true
	b.abortMu.Unlock()
	b.cond.Broadcast()
}

func (b *Bus) isAborted() bool {
	b.abortMu.Lock()
	defer b.abortMu.Unlock()
	return b.aborted
}

// Endpoint binds a Bus to one rank and owns that rank's Lamport clock.
// Every allocator and application goroutine uses exactly one Endpoint.
type Endpoint struct {
	bus   *Bus
	rank  wire.Rank
	mu    sync.Mutex
	clock uint64
}

// NewEndpoint returns an Endpoint for rank on bus.
func NewEndpoint(bus *Bus, rank wire.Rank) *Endpoint {
	return &Endpoint{bus: bus, rank: rank}
}

// Rank returns the endpoint's own rank.
func (e *Endpoint) Rank() wire.Rank { return e.rank }

// Clock returns the endpoint's current Lamport clock value.
func (e *Endpoint) Clock() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock
}

// Send stamps the envelope with the current clock, then increments it,
// and hands the envelope to the bus.
func (e *Endpoint) Send(dst wire.Rank, tag wire.Tag, payload wire.Payload) {
	e.mu.Lock()
	clock := e.clock
	e.clock++
	e.mu.Unlock()
	e.bus.Send(wire.Envelope{Src: e.rank, Dst: dst, Clock: clock, Payload: payload}, tag)
}

// Receive blocks for the next envelope addressed to this endpoint on tag
// from src (or wire.AnySource), merges the sender's clock into the local
// one, and returns the envelope.
func (e *Endpoint) Receive(src wire.Rank, tag wire.Tag) (wire.Envelope, bool) {
	env, ok := e.bus.Receive(e.rank, src, tag)
	if !ok {
		return env, false
	}
	e.mu.Lock()
	if env.Clock > e.clock {
		e.clock = env.Clock
	}
	e.clock++
	e.mu.Unlock()
	return env, true
}

func (e *Endpoint) String() string {
	return fmt.Sprintf("endpoint(rank=%d)", e.rank)
}
