// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

import "testing"

func TestWearLevelerTracksMinMax(t *testing.T) {
	a := NewAllocator(0, 4)
	a.SetEraseCnt(0, 5)
	a.SetEraseCnt(1, 50)
	a.SetEraseCnt(2, 20)
	a.SetEraseCnt(3, 5)

	opts := DefaultOptions()
	wl := newWearLeveler(a, &opts)

	if g, e := wl.EraseCntMin(), uint32(5); g != e {
		t.Fatal(g, e)
	}
	if g, e := wl.EraseCntMax(), uint32(50); g != e {
		t.Fatal(g, e)
	}
}

func TestWearLevelerNeedsSwap(t *testing.T) {
	a := NewAllocator(0, 2)
	a.SetEraseCnt(0, 0)
	a.SetEraseCnt(1, 2000)

	opts := DefaultOptions()
	opts.MaxEraseCntDiff = 1000
	wl := newWearLeveler(a, &opts)

	if !wl.NeedsSwap(0) {
		t.Fatal("expected block 0 to need a wear-leveling swap")
	}
	if wl.NeedsSwap(1) {
		t.Fatal("block 1 is the hottest block, should not need a swap")
	}
}

func TestWearLevelerObserveUpdatesMax(t *testing.T) {
	a := NewAllocator(0, 2)
	opts := DefaultOptions()
	wl := newWearLeveler(a, &opts)

	a.SetEraseCnt(0, 500)
	wl.Observe(0)
	if g, e := wl.EraseCntMax(), uint32(500); g != e {
		t.Fatal(g, e)
	}
}
