// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

// DataBlockIndex is the logical-to-physical map (L2P table): for every
// LBI, which PBI (if any) currently holds its committed DATA block, plus a
// small cache of bookkeeping a read/write needs without re-reading the
// block-info page every time.
type DataBlockIndex struct {
	l2p      []PBI
	lastBRSI []int // cache of the highest BRSI known written, -1 if none
	blockCnt []byte
	mergeCnt []byte
}

// NewDataBlockIndex returns an index sized for numLogicalBlocks LBIs, all
// initially unmapped.
func NewDataBlockIndex(numLogicalBlocks int) *DataBlockIndex {
	d := &DataBlockIndex{
		l2p:      make([]PBI, numLogicalBlocks),
		lastBRSI: make([]int, numLogicalBlocks),
		blockCnt: make([]byte, numLogicalBlocks),
		mergeCnt: make([]byte, numLogicalBlocks),
	}
	for i := range d.l2p {
		d.l2p[i] = noPBI
		d.lastBRSI[i] = -1
	}
	return d
}

// NumLogicalBlocks returns the number of LBIs this index covers.
func (d *DataBlockIndex) NumLogicalBlocks() int { return len(d.l2p) }

// PBI returns the physical block currently holding lbi's DATA block, and
// whether one is assigned at all.
func (d *DataBlockIndex) PBI(lbi LBI) (PBI, bool) {
	p := d.l2p[lbi]
	return p, p != noPBI
}

// FindLBI returns the LBI whose DATA block currently lives at pbi, if any.
// A linear scan, mirroring the spec's own "linear search" framing for the
// handful of lookups (§4.8's findWorkBlock) that aren't worth a reverse
// index at this table's scale.
func (d *DataBlockIndex) FindLBI(pbi PBI) (LBI, bool) {
	for lbi, p := range d.l2p {
		if p == pbi {
			return LBI(lbi), true
		}
	}
	return 0, false
}

// SetPBI assigns lbi's DATA block to pbi. This is the atomic RAM-only
// commit point of a conversion (§4.10 step 7): once this call returns, the
// new block is visible to every subsequent read.
func (d *DataBlockIndex) SetPBI(lbi LBI, pbi PBI) { d.l2p[lbi] = pbi }

// Clear removes lbi's DATA block mapping, e.g. after the old block has
// been erased following a conversion.
func (d *DataBlockIndex) Clear(lbi LBI) {
	d.l2p[lbi] = noPBI
	d.lastBRSI[lbi] = -1
}

// LastBRSI returns the highest BRSI known to have been written in lbi's
// current DATA block, and whether anything has been written at all.
func (d *DataBlockIndex) LastBRSI(lbi LBI) (int, bool) {
	b := d.lastBRSI[lbi]
	return b, b >= 0
}

// SetLastBRSI updates the last-written-BRSI cache for lbi.
func (d *DataBlockIndex) SetLastBRSI(lbi LBI, brsi int) { d.lastBRSI[lbi] = brsi }

// BlockCnt returns the BlockCnt most recently observed for lbi's DATA
// block (§3's "highest block count among blocks sharing an LBI is the
// newest").
func (d *DataBlockIndex) BlockCnt(lbi LBI) byte { return d.blockCnt[lbi] }

// SetBlockCnt records lbi's current BlockCnt. The field is 4 bits wide and
// wraps; see MergeCntNewer for the comparison rule this implies.
func (d *DataBlockIndex) SetBlockCnt(lbi LBI, v byte) { d.blockCnt[lbi] = v & 0x0F }

// MergeCnt returns the MergeCnt most recently observed for lbi.
func (d *DataBlockIndex) MergeCnt(lbi LBI) byte { return d.mergeCnt[lbi] }

// SetMergeCnt records lbi's current MergeCnt. The field is 4 bits wide and
// wraps; callers compare deltas modulo 16, never absolute values.
func (d *DataBlockIndex) SetMergeCnt(lbi LBI, v byte) { d.mergeCnt[lbi] = v & 0x0F }

// MergeCntNewer reports whether candidate is a newer merge generation than
// current under 4-bit wraparound comparison: a delta of exactly 1 (mod 16)
// is treated as "one generation ahead". A delta of 15 is indistinguishable
// from -1 and is a known, documented limitation of the 4-bit field.
func MergeCntNewer(candidate, current byte) bool {
	return (candidate-current)&0x0F == 1
}
