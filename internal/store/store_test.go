package store

import (
	"testing"

	"github.com/algorep/dalloc/internal/wire"
)

func TestNewVariable(t *testing.T) {
	vid := wire.Vid{OwnerRank: 1, Sequence: 0}
	e := NewVariable(vid)
	if e.Kind != KindVariable || e.Size != 1 {
		t.Fatalf("unexpected variable shape: %+v", e)
	}
	if e.Read(0) != nil {
		t.Errorf("expected unwritten variable to read nil, got %v", e.Read(0))
	}
}

func TestEntityWriteLastWriterWins(t *testing.T) {
	e := NewVariable(wire.Vid{})
	if !e.Write(0, "first", 5) {
		t.Fatal("expected first write at clock 5 to be accepted")
	}
	if e.Write(0, "stale", 3) {
		t.Error("expected write at an older clock to be rejected")
	}
	if e.Read(0) != "first" {
		t.Errorf("expected stale write to be rejected without changing value, got %v", e.Read(0))
	}
	if !e.Write(0, "second", 6) {
		t.Fatal("expected write at a newer clock to be accepted")
	}
	if e.Read(0) != "second" {
		t.Errorf("expected accepted write to update value, got %v", e.Read(0))
	}
}

func TestStoreReserveAndReleaseLocal(t *testing.T) {
	s := New(0, 4)
	if s.LocalSize() != 4 {
		t.Fatalf("expected initial capacity 4, got %d", s.LocalSize())
	}
	if !s.ReserveLocal(3) {
		t.Fatal("expected reserving 3 of 4 cells to succeed")
	}
	if s.LocalSize() != 1 {
		t.Errorf("expected 1 remaining cell, got %d", s.LocalSize())
	}
	if s.ReserveLocal(2) {
		t.Error("expected reserving more than remains to fail")
	}
	s.ReleaseLocal(3)
	if s.LocalSize() != 4 {
		t.Errorf("expected capacity restored to 4, got %d", s.LocalSize())
	}
}

func TestStorePutGetDelete(t *testing.T) {
	s := New(0, 4)
	vid := s.NextVid(9)
	e := NewVariable(vid)
	s.Put(e)

	got, ok := s.Get(vid)
	if !ok || got != e {
		t.Fatalf("expected Get to return the entity just put, got %v ok=%v", got, ok)
	}
	if s.Len() != 1 {
		t.Errorf("expected Len()==1, got %d", s.Len())
	}

	deleted, ok := s.Delete(vid)
	if !ok || deleted != e {
		t.Fatalf("expected Delete to return the removed entity")
	}
	if _, ok := s.Get(vid); ok {
		t.Error("expected vid to be gone after Delete")
	}
	if s.Len() != 0 {
		t.Errorf("expected Len()==0 after delete, got %d", s.Len())
	}
}

func TestStoreNextVidIsUniquePerOwner(t *testing.T) {
	s := New(5, 10)
	v1 := s.NextVid(0)
	v2 := s.NextVid(0)
	if v1 == v2 {
		t.Fatal("expected successive NextVid calls to differ")
	}
	if v1.OwnerRank != 5 || v2.OwnerRank != 5 {
		t.Error("expected every vid's OwnerRank to be the store's own rank")
	}
}

func TestStoreCellsHeld(t *testing.T) {
	s := New(0, 10)
	s.Put(NewVariable(s.NextVid(0)))
	next := s.NextVid(0)
	s.Put(NewArray(s.NextVid(0), 3, &next))
	if got := s.CellsHeld(); got != 4 {
		t.Errorf("expected 4 cells held (1 variable + 3-cell array), got %d", got)
	}
}
