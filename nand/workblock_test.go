// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

import "testing"

func TestWorkBlockPoolAllocFind(t *testing.T) {
	p := NewWorkBlockPool(3, 64)
	slot := p.Alloc(10, 5)
	got, ok := p.Find(5)
	if !ok || got != slot {
		t.Fatalf("got (%d, %v), want (%d, true)", got, ok, slot)
	}
	if g, e := p.Len(), 1; g != e {
		t.Fatal(g, e)
	}
}

func TestWorkBlockPoolMRUOrder(t *testing.T) {
	p := NewWorkBlockPool(3, 64)
	s0 := p.Alloc(0, 0)
	s1 := p.Alloc(1, 1)
	s2 := p.Alloc(2, 2)

	// Allocation order is MRU-first: s2, s1, s0. LRU is s0.
	lru, ok := p.LRU()
	if !ok || lru != s0 {
		t.Fatalf("got %d, want %d", lru, s0)
	}

	p.Touch(s0)
	lru, ok = p.LRU()
	if !ok || lru != s1 {
		t.Fatalf("after touching s0, LRU got %d, want %d", lru, s1)
	}
	_ = s2
}

func TestWorkBlockPoolReleaseFreesSlot(t *testing.T) {
	p := NewWorkBlockPool(1, 64)
	slot := p.Alloc(0, 0)
	p.Release(slot)
	if g, e := p.Len(), 0; g != e {
		t.Fatal(g, e)
	}
	if _, ok := p.Find(0); ok {
		t.Fatal("expected lbi 0 to no longer resolve after release")
	}
	// Slot must be reusable.
	p.Alloc(1, 1)
}

func TestWorkBlockPoolAllocExhaustedPanics(t *testing.T) {
	p := NewWorkBlockPool(1, 64)
	p.Alloc(0, 0)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	p.Alloc(1, 1)
}

func TestWorkBlockPoolAssignmentTable(t *testing.T) {
	p := NewWorkBlockPool(1, 8)
	slot := p.Alloc(0, 0)
	if _, ok := p.Assignment(slot, 3); ok {
		t.Fatal("expected no assignment yet")
	}
	p.SetAssignment(slot, 3, 5)
	got, ok := p.Assignment(slot, 3)
	if !ok || got != 5 {
		t.Fatalf("got (%d, %v), want (5, true)", got, ok)
	}
}
