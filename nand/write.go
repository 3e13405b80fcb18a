// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

import "nandtl/spare"

// maxWriteRetries bounds the write-retry loops: how many destination
// blocks convertWorkBlockSlot and relocateDataBlock try before reporting a
// fatal error. writeLogSector's loop returns on its first iteration.
const maxWriteRetries = 3

// findWorkBlock looks up lbi's in-use work block; WorkBlockPool keeps a
// map, so this is an O(1) lookup rather than the linear search of §4.8.
func (d *Device) findWorkBlock(lbi LBI) (int, bool) { return d.wb.Find(lbi) }

// allocWorkBlock returns the slot index of a work block serving lbi,
// allocating a fresh one (cleaning the LRU in-use block first if the pool
// is full) per §4.8 step 1-3.
func (d *Device) allocWorkBlock(lbi LBI) (int, error) {
	if slot, ok := d.wb.Find(lbi); ok {
		return slot, nil
	}
	if d.wb.Len() == d.wb.Capacity() {
		lru, ok := d.wb.LRU()
		if !ok {
			return 0, d.fatal(FatalOutOfFreeBlocks, int64(lbi)*int64(d.sectorsPerBlock), nil)
		}
		if err := d.convertWorkBlockSlot(lru, -1, -1, nil); err != nil {
			return 0, err
		}
	}
	pbi, err := d.allocErasedBlock()
	if err != nil {
		return 0, d.fatal(FatalOutOfFreeBlocks, int64(lbi)*int64(d.sectorsPerBlock), err)
	}
	if err := d.writeEraseCountPage(pbi, spare.BlockTypeWork, d.alloc.EraseCnt(pbi)); err != nil {
		d.alloc.Free(pbi)
		return 0, d.fatal(FatalWriteFailed, int64(lbi)*int64(d.sectorsPerBlock), err)
	}
	return d.wb.Alloc(pbi, lbi), nil
}

// allocErasedBlock allocates a free physical block via passive wear
// leveling (§4.5), triggering an active wear-leveling swap (§4.6) when the
// newly allocated block reveals the erase-count spread has grown past
// MaxEraseCntDiff.
func (d *Device) allocErasedBlock() (PBI, error) {
	pbi, err := d.alloc.Alloc()
	if err != nil {
		return 0, err
	}
	d.wl.Observe(pbi)

	if !d.suppressActiveWL {
		d.suppressActiveWL = true
		err := d.maybeActiveWearLevel()
		d.suppressActiveWL = false
		if err != nil {
			return 0, err
		}
	}
	return pbi, nil
}

// writeLogSector implements writeLogSectorToWorkBlock (§4.8): find or
// allocate lbi's work block, pick the next free physical slot (or convert
// the block if it is full or the fast-write reserve would be violated), and
// write data with ECC. If the page write fails, the work block is converted
// with data substituted for brsi instead.
func (d *Device) writeLogSector(lbi LBI, brsi BRSI, data []byte) error {
	if d.hasFatalError {
		return &ErrFatal{Kind: d.errorKind, SectorIndex: d.errorSectorIndex}
	}
	if d.writeProtected {
		return &ErrWriteProtected{}
	}

	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		slot, err := d.allocWorkBlock(lbi)
		if err != nil {
			return err
		}
		s := d.wb.Slot(slot)

		remaining := d.info.PagesPerBlock() - s.brsiFree
		if remaining <= 0 || remaining < d.opts.NumSectorsFree {
			if err := d.convertWorkBlockSlot(slot, -1, brsi, data); err != nil {
				return err
			}
			return nil
		}

		brsiDest := s.brsiFree
		s.brsiFree++

		meta := pageMeta{}
		sectorStat := spare.SectorWritten
		meta.sectorStat = &sectorStat
		brsiU16 := uint16(brsi)
		meta.brsi = &brsiU16

		if brsiDest == int(brsiBlockInfo) {
			ec := d.alloc.EraseCnt(s.pbi)
			lbiU16 := uint16(lbi)
			btWork := spare.BlockTypeWork
			mergeCnt := d.l2p.MergeCnt(lbi)
			meta.eraseCnt = &ec
			meta.lbi = &lbiU16
			meta.blockType = &btWork
			meta.mergeCnt = &mergeCnt
			s.blockCnt = d.l2p.BlockCnt(lbi)
			s.mergeCnt = mergeCnt
		}

		if err := d.writePage(s.pbi, BRSI(brsiDest), data, meta); err != nil {
			if convErr := d.convertWorkBlockSlot(slot, brsiDest, brsi, data); convErr != nil {
				return convErr
			}
			return nil
		}

		d.wb.SetAssignment(slot, int(brsi), brsiDest)
		d.wb.Touch(slot)
		return nil
	}
	return d.fatal(FatalWriteFailed, int64(lbi)*int64(d.sectorsPerBlock)+int64(brsi), nil)
}
