// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

// wbSlot is one entry of the work-block pool's intrusive slot table: the
// descriptor of a single in-use work block plus the prev/next indices
// threading it into the pool's MRU list. Unused slots sit on the pool's
// free stack and carry the zero value.
type wbSlot struct {
	used     bool
	pbi      PBI
	lbi      LBI
	brsiFree int   // next writable BRSI in this work block
	assign   []int // assign[logicalBRSI] = physical BRSI, or -1 if unwritten
	blockCnt byte
	mergeCnt byte

	prev, next int // MRU list links within the pool's slots; -1 = none
}

// WorkBlockPool manages the small, fixed number of work blocks in
// service at once. It replaces a doubly-linked free/in-use list with a
// flat slot table addressed by integer index, so allocation, MRU
// reordering and eviction are all O(1) array operations with no pointer
// chasing or garbage.
type WorkBlockPool struct {
	pagesPerBlock int
	slots         []wbSlot
	freeSlots     []int
	head, tail    int // MRU list: head = most recently used, tail = least
	byLBI         map[LBI]int
}

// NewWorkBlockPool returns a pool with room for capacity work blocks, each
// spanning pagesPerBlock physical pages.
func NewWorkBlockPool(capacity, pagesPerBlock int) *WorkBlockPool {
	p := &WorkBlockPool{
		pagesPerBlock: pagesPerBlock,
		slots:         make([]wbSlot, capacity),
		head:          -1,
		tail:          -1,
		byLBI:         make(map[LBI]int, capacity),
	}
	for i := capacity - 1; i >= 0; i-- {
		p.freeSlots = append(p.freeSlots, i)
	}
	return p
}

// Capacity returns the configured number of work-block slots.
func (p *WorkBlockPool) Capacity() int { return len(p.slots) }

// Len returns the number of work blocks currently in use.
func (p *WorkBlockPool) Len() int { return len(p.slots) - len(p.freeSlots) }

func (p *WorkBlockPool) unlink(i int) {
	s := &p.slots[i]
	if s.prev != -1 {
		p.slots[s.prev].next = s.next
	} else {
		p.head = s.next
	}
	if s.next != -1 {
		p.slots[s.next].prev = s.prev
	} else {
		p.tail = s.prev
	}
	s.prev, s.next = -1, -1
}

func (p *WorkBlockPool) pushFront(i int) {
	s := &p.slots[i]
	s.prev = -1
	s.next = p.head
	if p.head != -1 {
		p.slots[p.head].prev = i
	}
	p.head = i
	if p.tail == -1 {
		p.tail = i
	}
}

// Touch moves slot i to the front of the MRU list, marking it most
// recently used.
func (p *WorkBlockPool) Touch(i int) {
	p.unlink(i)
	p.pushFront(i)
}

// Alloc claims a free slot for a newly allocated work block at pbi serving
// lbi, and marks it most recently used. It panics if the pool is full;
// callers must evict via LRU first.
func (p *WorkBlockPool) Alloc(pbi PBI, lbi LBI) int {
	if len(p.freeSlots) == 0 {
		panic("nand: work-block pool exhausted")
	}
	i := p.freeSlots[len(p.freeSlots)-1]
	p.freeSlots = p.freeSlots[:len(p.freeSlots)-1]

	assign := make([]int, p.pagesPerBlock)
	for j := range assign {
		assign[j] = -1
	}
	p.slots[i] = wbSlot{
		used:     true,
		pbi:      pbi,
		lbi:      lbi,
		brsiFree: int(brsiBlockInfo), // the first page written also doubles as the block-info page
		assign:   assign,
	}
	p.byLBI[lbi] = i
	p.pushFront(i)
	return i
}

// restoreWorkBlock installs a descriptor for a work block already found on
// the medium by the low-level mount scan, rather than freshly allocating
// one: brsiFree and the assignment table are filled in by the caller after
// this returns, once it has scanned the block's actual contents.
func (p *WorkBlockPool) restoreWorkBlock(pbi PBI, lbi LBI, blockCnt, mergeCnt byte) int {
	if len(p.freeSlots) == 0 {
		panic("nand: work-block pool exhausted during mount")
	}
	i := p.freeSlots[len(p.freeSlots)-1]
	p.freeSlots = p.freeSlots[:len(p.freeSlots)-1]

	assign := make([]int, p.pagesPerBlock)
	for j := range assign {
		assign[j] = -1
	}
	p.slots[i] = wbSlot{
		used:     true,
		pbi:      pbi,
		lbi:      lbi,
		brsiFree: 1,
		assign:   assign,
		blockCnt: blockCnt,
		mergeCnt: mergeCnt,
	}
	p.byLBI[lbi] = i
	p.pushFront(i)
	return i
}

// Find returns the slot index serving lbi, if any work block currently
// does.
func (p *WorkBlockPool) Find(lbi LBI) (int, bool) {
	i, ok := p.byLBI[lbi]
	return i, ok
}

// Slot returns the descriptor for slot i. The returned pointer is valid
// only until the next Release of the same slot.
func (p *WorkBlockPool) Slot(i int) *wbSlot { return &p.slots[i] }

// LRU returns the least-recently-used in-use slot, the one clean() and the
// converter evict first when the pool is full or a reservation threshold
// is crossed.
func (p *WorkBlockPool) LRU() (int, bool) {
	if p.tail == -1 {
		return 0, false
	}
	return p.tail, true
}

// ForEachInUse calls fn once per in-use slot, in no particular order.
func (p *WorkBlockPool) ForEachInUse(fn func(slot int, s *wbSlot)) {
	for i := range p.slots {
		if p.slots[i].used {
			fn(i, &p.slots[i])
		}
	}
}

// Release returns slot i to the free pool, forgetting its LBI mapping.
func (p *WorkBlockPool) Release(i int) {
	lbi := p.slots[i].lbi
	p.unlink(i)
	delete(p.byLBI, lbi)
	p.slots[i] = wbSlot{}
	p.freeSlots = append(p.freeSlots, i)
}

// SetAssignment records that logical BRSI maps to physical BRSI
// brsiPhysical within slot i's work block.
func (p *WorkBlockPool) SetAssignment(i, brsiLogical, brsiPhysical int) {
	p.slots[i].assign[brsiLogical] = brsiPhysical
}

// Assignment returns the physical BRSI logical BRSI resolves to within
// slot i's work block, if it has been written there.
func (p *WorkBlockPool) Assignment(i, brsiLogical int) (int, bool) {
	phys := p.slots[i].assign[brsiLogical]
	return phys, phys >= 0
}
