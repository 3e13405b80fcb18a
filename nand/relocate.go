// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

import "nandtl/spare"

// relocateDataBlock moves the DATA block at pbi onto a freshly allocated
// physical block, preserving its LBI and content but bumping BlockCnt as
// if it had been rewritten (§4.11). It is invoked when a read reports
// corrected bits at or above Options.MaxBitErrorCnt, or when active wear
// leveling (§4.6) selects pbi as a cold block. Unlike convertWorkBlockSlot
// this never touches a work block or MergeCnt: it is a pure relocation,
// not a merge.
func (d *Device) relocateDataBlock(pbi PBI) error {
	lbi, ok := d.l2p.FindLBI(pbi)
	if !ok {
		// Already superseded by a conversion since this relocation was
		// scheduled; nothing to do.
		return nil
	}

	oldBlockCnt := d.l2p.BlockCnt(lbi)
	newBlockCnt := (oldBlockCnt + 1) & 0x0F
	mergeCnt := d.l2p.MergeCnt(lbi)

	var firstErr error
	sectorBuf := make([]byte, d.geo.mainSize)

	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		destPBI, err := d.allocErasedBlock()
		if err != nil {
			return d.fatal(FatalOutOfFreeBlocks, int64(lbi)*int64(d.sectorsPerBlock), err)
		}
		ec := d.alloc.EraseCnt(destPBI)

		err = d.convertInto(nil, lbi, pbi, true, destPBI, -1, BRSI(-1), nil, newBlockCnt, mergeCnt, ec, sectorBuf, &firstErr)
		if err != nil {
			_ = MarkBlockBad(d.phy, d.info, destPBI, FatalWriteFailed, 0)
			d.alloc.MarkBad(destPBI)
			continue
		}

		d.l2p.SetPBI(lbi, destPBI)
		d.l2p.SetBlockCnt(lbi, newBlockCnt)
		d.l2p.SetLastBRSI(lbi, d.info.PagesPerBlock()-1)

		if err := d.freeBlock(pbi); err != nil && firstErr == nil {
			firstErr = err
		}
		return firstErr
	}
	return d.fatal(FatalWriteFailed, int64(lbi)*int64(d.sectorsPerBlock), firstErr)
}

// relocateWorkBlock moves the work block at slot onto a freshly allocated
// physical block, copying every assigned page to the same physical BRSI it
// already occupies so the assignment table stays valid unchanged, then
// updates the slot's pbi in place. Used for the same two triggers as
// relocateDataBlock, but against an in-progress work block rather than a
// committed one.
func (d *Device) relocateWorkBlock(slot int) error {
	s := d.wb.Slot(slot)
	oldPBI := s.pbi

	newPBI, err := d.allocErasedBlock()
	if err != nil {
		return d.fatal(FatalOutOfFreeBlocks, int64(s.lbi)*int64(d.sectorsPerBlock), err)
	}
	ec := d.alloc.EraseCnt(newPBI)
	if err := d.writeEraseCountPage(newPBI, spare.BlockTypeWork, ec); err != nil {
		_ = MarkBlockBad(d.phy, d.info, newPBI, FatalWriteFailed, 0)
		d.alloc.MarkBad(newPBI)
		return d.fatal(FatalWriteFailed, int64(s.lbi)*int64(d.sectorsPerBlock), err)
	}

	buf := make([]byte, d.geo.mainSize)
	var firstErr error
	for logical, phys := range s.assign {
		if phys < 0 {
			continue
		}
		if err := d.readSourcePage(oldPBI, BRSI(phys), buf, &firstErr); err != nil {
			continue
		}

		meta := pageMeta{}
		sectorStat := spare.SectorWritten
		meta.sectorStat = &sectorStat
		brsiU16 := uint16(logical)
		meta.brsi = &brsiU16

		if phys == int(brsiBlockInfo) {
			lbiU16 := uint16(s.lbi)
			bt := spare.BlockTypeWork
			bc := s.blockCnt
			mc := s.mergeCnt
			meta.lbi = &lbiU16
			meta.blockType = &bt
			meta.eraseCnt = &ec
			meta.blockCnt = &bc
			meta.mergeCnt = &mc
		}

		if err := d.writePage(newPBI, BRSI(phys), buf, meta); err != nil {
			firstErr = err
			break
		}
	}

	if firstErr != nil {
		_ = MarkBlockBad(d.phy, d.info, newPBI, FatalWriteFailed, 0)
		d.alloc.MarkBad(newPBI)
		return d.fatal(FatalWriteFailed, int64(s.lbi)*int64(d.sectorsPerBlock), firstErr)
	}

	if err := d.freeBlock(oldPBI); err != nil {
		firstErr = err
	}
	s.pbi = newPBI
	return firstErr
}
