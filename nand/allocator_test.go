// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

import "testing"

func TestAllocatorAllocPicksLowestEraseCount(t *testing.T) {
	a := NewAllocator(0, 4)
	a.SetEraseCnt(0, 10)
	a.SetEraseCnt(1, 2)
	a.SetEraseCnt(2, 7)
	a.SetEraseCnt(3, 9)

	pbi, err := a.Alloc()
	if err != nil {
		t.Fatal(err)
	}
	if g, e := pbi, PBI(1); g != e {
		t.Fatal(g, e)
	}
	if a.IsFree(1) {
		t.Fatal("allocated block should no longer be free")
	}
}

func TestAllocatorMarkBadRemovesFromFreeList(t *testing.T) {
	a := NewAllocator(0, 3)
	a.MarkBad(1)
	if !a.IsBad(1) {
		t.Fatal("expected block 1 bad")
	}
	if a.IsFree(1) {
		t.Fatal("bad block must not be free")
	}
	if g, e := a.NumFree(), 2; g != e {
		t.Fatal(g, e)
	}
}

func TestAllocatorOutOfFreeBlocks(t *testing.T) {
	a := NewAllocator(0, 2)
	if _, err := a.Alloc(); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Alloc(); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Alloc(); err == nil {
		t.Fatal("expected ErrOutOfFreeBlocks")
	} else if _, ok := err.(*ErrOutOfFreeBlocks); !ok {
		t.Fatalf("wrong error type: %T", err)
	}
}

func TestAllocatorFreeReturnsBlockToPool(t *testing.T) {
	a := NewAllocator(0, 2)
	pbi, err := a.Alloc()
	if err != nil {
		t.Fatal(err)
	}
	a.Free(pbi)
	if !a.IsFree(pbi) {
		t.Fatal("expected block free after Free")
	}
}

func TestAllocatorFreeBadBlockPanics(t *testing.T) {
	a := NewAllocator(0, 1)
	a.MarkBad(0)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	a.Free(0)
}

func TestAllocatorForEachFree(t *testing.T) {
	a := NewAllocator(10, 5)
	a.MarkUsed(11)
	a.MarkBad(13)

	var got []PBI
	a.ForEachFree(func(pbi PBI) { got = append(got, pbi) })
	want := []PBI{10, 12, 14}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
