package dalloc

import (
	"errors"
	"testing"

	"github.com/algorep/dalloc/internal/wire"
)

func TestStructuredError(t *testing.T) {
	err := NewError("Allocate", ErrCodeAllocationExhausted, "no capacity remaining")

	if err.Op != "Allocate" {
		t.Errorf("expected Op=Allocate, got %s", err.Op)
	}
	if err.Code != ErrCodeAllocationExhausted {
		t.Errorf("expected Code=ErrCodeAllocationExhausted, got %s", err.Code)
	}

	expected := "dalloc: Allocate: no capacity remaining"
	if err.Error() != expected {
		t.Errorf("expected error message %q, got %q", expected, err.Error())
	}
}

func TestVidError(t *testing.T) {
	vid := wire.Vid{RequestRank: 2, OwnerRank: 0, Sequence: 3}
	err := NewVidError("Read", ErrCodeIndexOutOfRange, vid, "index 9 out of range")

	expected := "dalloc: Read: index 9 out of range (vid=(2,0,3))"
	if err.Error() != expected {
		t.Errorf("expected error message %q, got %q", expected, err.Error())
	}
}

func TestWrapErrorPreservesCode(t *testing.T) {
	inner := NewError("Write", ErrCodeStaleWrite, "clock regressed")
	wrapped := WrapError("Client.Write", inner)

	if wrapped.Code != ErrCodeStaleWrite {
		t.Errorf("expected wrapped error to preserve code, got %s", wrapped.Code)
	}
	if wrapped.Op != "Client.Write" {
		t.Errorf("expected wrapped error's Op to be overwritten, got %s", wrapped.Op)
	}
}

func TestWrapErrorNilIsNil(t *testing.T) {
	if WrapError("Op", nil) != nil {
		t.Error("expected WrapError(nil) to return nil")
	}
}

func TestIsCode(t *testing.T) {
	err := NewError("Free", ErrCodeVidNotFound, "vid never allocated")

	if !IsCode(err, ErrCodeVidNotFound) {
		t.Error("expected IsCode to match the error's own code")
	}
	if IsCode(err, ErrCodeTransport) {
		t.Error("expected IsCode to reject a non-matching code")
	}
	if IsCode(nil, ErrCodeVidNotFound) {
		t.Error("expected IsCode(nil, ...) to be false")
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	a := &Error{Code: ErrCodeWorldAborted}
	b := &Error{Code: ErrCodeWorldAborted, Op: "different op"}
	if !errors.Is(a, b) {
		t.Error("expected two errors with the same code to match via errors.Is")
	}
}

func TestCombineErrors(t *testing.T) {
	if CombineErrors() != nil {
		t.Error("expected CombineErrors() with no arguments to return nil")
	}
	if CombineErrors(nil, nil) != nil {
		t.Error("expected CombineErrors with only nils to return nil")
	}
	e1 := NewError("a", ErrCodeTransport, "one")
	e2 := NewError("b", ErrCodeTransport, "two")
	combined := CombineErrors(nil, e1, e2)
	if combined == nil {
		t.Fatal("expected a non-nil combined error")
	}
}
