// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

// wearStats tracks the aggregate erase-count bookkeeping active wear
// leveling needs: the running min/max across all managed blocks and how
// many blocks currently sit at the minimum, mirroring the kind of
// AllocStats bookkeeping a storage allocator keeps across a full scan.
type wearStats struct {
	eraseCntMax      uint32
	eraseCntMin      uint32
	numBlocksAtMin   int
	initialized      bool
}

func (w *wearStats) observe(cnt uint32) {
	if !w.initialized {
		w.eraseCntMax, w.eraseCntMin = cnt, cnt
		w.numBlocksAtMin = 1
		w.initialized = true
		return
	}
	if cnt > w.eraseCntMax {
		w.eraseCntMax = cnt
	}
	if cnt < w.eraseCntMin {
		w.eraseCntMin = cnt
		w.numBlocksAtMin = 1
	} else if cnt == w.eraseCntMin {
		w.numBlocksAtMin++
	}
}

func (w *wearStats) spread() uint32 {
	if !w.initialized {
		return 0
	}
	return w.eraseCntMax - w.eraseCntMin
}

// wearLeveler decides, after each passive allocation, whether an
// in-service block is cold enough relative to the device's maximum erase
// count to warrant an active swap (§4.6): its content is relocated into
// another freshly allocated block (the block the caller just allocated is
// left to the caller) and the cold block itself is returned to the free
// list for future (low-wear) reuse.
type wearLeveler struct {
	alloc *Allocator
	opts  *Options
	stats wearStats
}

func newWearLeveler(alloc *Allocator, opts *Options) *wearLeveler {
	wl := &wearLeveler{alloc: alloc, opts: opts}
	for i := 0; i < alloc.NumBlocks(); i++ {
		wl.stats.observe(alloc.EraseCnt(alloc.FirstBlock() + PBI(i)))
	}
	return wl
}

// Observe records pbi's current erase count in the running statistics.
// Call after every erase.
func (wl *wearLeveler) Observe(pbi PBI) {
	wl.stats.observe(wl.alloc.EraseCnt(pbi))
}

// EraseCntMax and EraseCntMin report the tracked extremes.
func (wl *wearLeveler) EraseCntMax() uint32 { return wl.stats.eraseCntMax }
func (wl *wearLeveler) EraseCntMin() uint32 { return wl.stats.eraseCntMin }

// NeedsSwap reports whether candidate (an in-service block, DATA or WORK)
// is cold enough that active wear leveling should swap it out for a
// freshly allocated block, per the MaxEraseCntDiff threshold of §4.6.
func (wl *wearLeveler) NeedsSwap(candidate PBI) bool {
	diff := int64(wl.stats.eraseCntMax) - int64(wl.alloc.EraseCnt(candidate))
	return diff >= int64(wl.opts.MaxEraseCntDiff)
}

// maybeActiveWearLevel runs one opportunistic active-WL pass (§4.6): if any
// in-service WORK or DATA block has fallen MaxEraseCntDiff or more behind
// the device's hottest block, its content is relocated onto a freshly
// allocated block and it is returned to the free pool. Called once per
// passive allocation, with recursion guarded by suppressActiveWL so the
// relocation's own allocation doesn't re-trigger this pass.
func (d *Device) maybeActiveWearLevel() error {
	if slot, ok := d.coldestWorkBlock(); ok {
		return d.relocateWorkBlock(slot)
	}
	if pbi, ok := d.coldestDataBlock(); ok {
		return d.relocateDataBlock(pbi)
	}
	return nil
}

func (d *Device) coldestWorkBlock() (slot int, ok bool) {
	d.wb.ForEachInUse(func(i int, s *wbSlot) {
		if ok {
			return
		}
		if d.wl.NeedsSwap(s.pbi) {
			slot, ok = i, true
		}
	})
	return
}

func (d *Device) coldestDataBlock() (PBI, bool) {
	for lbi := 0; lbi < d.l2p.NumLogicalBlocks(); lbi++ {
		if pbi, mapped := d.l2p.PBI(LBI(lbi)); mapped && d.wl.NeedsSwap(pbi) {
			return pbi, true
		}
	}
	return 0, false
}
