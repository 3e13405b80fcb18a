// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

import (
	"github.com/bits-and-blooms/bitset"
)

// Allocator owns the free-block bitmap and per-block erase counts for the
// physical blocks between firstBlock and firstBlock+numBlocks. Allocation
// picks the lowest-erase-count free block (passive wear leveling, §4.5);
// rebalancing already-allocated blocks against fresh ones is the job of
// the active wear leveler in wearlevel.go.
type Allocator struct {
	firstBlock PBI
	numBlocks  int

	free     *bitset.BitSet // bit i set <=> block firstBlock+i is free
	bad      *bitset.BitSet // bit i set <=> block firstBlock+i is bad
	eraseCnt []uint32
}

// NewAllocator returns an Allocator over numBlocks physical blocks
// starting at firstBlock, all initially free with erase count 0.
func NewAllocator(firstBlock PBI, numBlocks int) *Allocator {
	a := &Allocator{
		firstBlock: firstBlock,
		numBlocks:  numBlocks,
		free:       bitset.New(uint(numBlocks)),
		bad:        bitset.New(uint(numBlocks)),
		eraseCnt:   make([]uint32, numBlocks),
	}
	for i := 0; i < numBlocks; i++ {
		a.free.Set(uint(i))
	}
	return a
}

func (a *Allocator) index(pbi PBI) int {
	i := int(pbi - a.firstBlock)
	if i < 0 || i >= a.numBlocks {
		panic("nand: pbi out of managed range")
	}
	return i
}

// NumBlocks returns the number of physical blocks under management.
func (a *Allocator) NumBlocks() int { return a.numBlocks }

// FirstBlock returns the first managed physical block.
func (a *Allocator) FirstBlock() PBI { return a.firstBlock }

// IsBad reports whether pbi is marked bad.
func (a *Allocator) IsBad(pbi PBI) bool { return a.bad.Test(uint(a.index(pbi))) }

// MarkBad removes pbi from the free pool (if present) and marks it
// permanently unavailable.
func (a *Allocator) MarkBad(pbi PBI) {
	i := uint(a.index(pbi))
	a.free.Clear(i)
	a.bad.Set(i)
}

// ReclaimBad clears pbi's bad marking, returning it to service as free.
// Used only when Options.ReclaimDriverBadBlocks is set at format time.
func (a *Allocator) ReclaimBad(pbi PBI) {
	i := uint(a.index(pbi))
	a.bad.Clear(i)
	a.free.Set(i)
}

// IsFree reports whether pbi is currently on the free list.
func (a *Allocator) IsFree(pbi PBI) bool { return a.free.Test(uint(a.index(pbi))) }

// MarkUsed removes pbi from the free pool without marking it bad, used
// while replaying a mount scan that finds a block already holding data.
func (a *Allocator) MarkUsed(pbi PBI) { a.free.Clear(uint(a.index(pbi))) }

// Free returns pbi to the free pool. pbi must not be bad.
func (a *Allocator) Free(pbi PBI) {
	i := uint(a.index(pbi))
	if a.bad.Test(i) {
		panic("nand: attempt to free a bad block")
	}
	a.free.Set(i)
}

// EraseCnt returns the last recorded erase count of pbi.
func (a *Allocator) EraseCnt(pbi PBI) uint32 { return a.eraseCnt[a.index(pbi)] }

// SetEraseCnt records pbi's erase count, e.g. after reading it back from
// the block's erase-count page during a mount scan.
func (a *Allocator) SetEraseCnt(pbi PBI, v uint32) { a.eraseCnt[a.index(pbi)] = v }

// NumFree returns the number of blocks currently on the free list.
func (a *Allocator) NumFree() int { return int(a.free.Count()) }

// Alloc removes and returns the free, non-bad block with the lowest erase
// count. It returns ErrOutOfFreeBlocks if none remain.
func (a *Allocator) Alloc() (PBI, error) {
	best := -1
	var bestCnt uint32
	for i := uint(0); i < uint(a.numBlocks); i++ {
		if !a.free.Test(i) {
			continue
		}
		c := a.eraseCnt[i]
		if best == -1 || c < bestCnt {
			best = int(i)
			bestCnt = c
		}
	}
	if best == -1 {
		return 0, &ErrOutOfFreeBlocks{}
	}
	a.free.Clear(uint(best))
	return a.firstBlock + PBI(best), nil
}

// ForEachFree calls fn for every free, non-bad block in ascending order.
func (a *Allocator) ForEachFree(fn func(pbi PBI)) {
	for i := uint(0); i < uint(a.numBlocks); i++ {
		if a.free.Test(i) {
			fn(a.firstBlock + PBI(i))
		}
	}
}
