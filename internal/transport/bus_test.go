package transport

import (
	"testing"
	"time"

	"github.com/algorep/dalloc/internal/wire"
)

func TestEndpointSendReceiveStampsClock(t *testing.T) {
	bus := NewBus()
	a := NewEndpoint(bus, 0)
	b := NewEndpoint(bus, 1)

	a.Send(1, wire.TagControl, wire.ReadMsg{Vid: wire.Vid{OwnerRank: 1}})
	env, ok := b.Receive(0, wire.TagControl)
	if !ok {
		t.Fatal("expected a message")
	}
	if env.Clock != 0 {
		t.Errorf("expected first send to carry clock 0, got %d", env.Clock)
	}
	if b.Clock() != 1 {
		t.Errorf("expected receiver clock to become 1 (max(0,0)+1), got %d", b.Clock())
	}
}

func TestEndpointClockMerge(t *testing.T) {
	bus := NewBus()
	a := NewEndpoint(bus, 0)
	b := NewEndpoint(bus, 1)

	// Exchange five messages in lockstep; every receive merges a's clock
	// into b's, so b ends past the value 1 of its first receive.
	for i := 0; i < 5; i++ {
		a.Send(1, wire.TagControl, wire.ReadMsg{})
		b.Receive(0, wire.TagControl)
	}
	if b.Clock() <= 1 {
		t.Fatalf("expected b's clock to have advanced past the initial receive, got %d", b.Clock())
	}
}

func TestReceiveAnySourcePreservesFIFOPerSender(t *testing.T) {
	bus := NewBus()
	a := NewEndpoint(bus, 0)
	c := NewEndpoint(bus, 2)
	dst := NewEndpoint(bus, 1)

	a.Send(1, wire.TagControl, wire.ReadMsg{Index: intPtr(1)})
	a.Send(1, wire.TagControl, wire.ReadMsg{Index: intPtr(2)})
	c.Send(1, wire.TagControl, wire.ReadMsg{Index: intPtr(3)})

	var gotFromA []int
	var gotFromC []int
	for i := 0; i < 3; i++ {
		env, ok := dst.Receive(wire.AnySource, wire.TagControl)
		if !ok {
			t.Fatal("unexpected closed receive")
		}
		idx := *env.Payload.(wire.ReadMsg).Index
		if env.Src == 0 {
			gotFromA = append(gotFromA, idx)
		} else {
			gotFromC = append(gotFromC, idx)
		}
	}
	if len(gotFromA) != 2 || gotFromA[0] != 1 || gotFromA[1] != 2 {
		t.Errorf("expected rank 0's messages in FIFO order [1 2], got %v", gotFromA)
	}
	if len(gotFromC) != 1 || gotFromC[0] != 3 {
		t.Errorf("expected rank 2's message [3], got %v", gotFromC)
	}
}

func TestReceiveBlocksUntilSend(t *testing.T) {
	bus := NewBus()
	a := NewEndpoint(bus, 0)
	b := NewEndpoint(bus, 1)

	done := make(chan struct{})
	go func() {
		b.Receive(0, wire.TagControl)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("receive returned before any send")
	case <-time.After(20 * time.Millisecond):
	}

	a.Send(1, wire.TagControl, wire.ReadMsg{})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("receive did not unblock after send")
	}
}

func TestAbortUnblocksReceivers(t *testing.T) {
	bus := NewBus()
	b := NewEndpoint(bus, 1)

	done := make(chan bool)
	go func() {
		_, ok := b.Receive(wire.AnySource, wire.TagControl)
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	bus.Abort()

	select {
	case ok := <-done:
		if ok {
			t.Error("expected Receive to report ok=false after Abort")
		}
	case <-time.After(time.Second):
		t.Fatal("Abort did not unblock the receiver")
	}
}

func intPtr(i int) *int { return &i }
