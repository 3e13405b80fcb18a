// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

import (
	"nandtl/ecc"
	"nandtl/spare"
)

// convertWorkBlockSlot is the central converter (§4.10): it merges the
// work block at slot with its source DATA block (if any) into a fresh
// DATA block, optionally skipping one physical page of the work block
// (brsiToSkip, when the write that triggered the conversion must not be
// re-copied from its old slot) and optionally injecting one new sector on
// the fly (brsiWrite/dataToWrite). On return the work block has been
// erased and released back to the pool, and the old DATA block (if any)
// has been erased.
func (d *Device) convertWorkBlockSlot(slot int, brsiToSkip int, brsiWrite BRSI, dataToWrite []byte) error {
	s := d.wb.Slot(slot)
	lbi := s.lbi
	oldWorkPBI := s.pbi
	oldDataPBI, hasOldData := d.l2p.PBI(lbi)

	oldBlockCnt := d.l2p.BlockCnt(lbi)
	oldMergeCnt := d.l2p.MergeCnt(lbi)
	newBlockCnt := (oldBlockCnt + 1) & 0x0F
	newMergeCnt := (oldMergeCnt + 1) & 0x0F

	var firstErr error
	sectorBuf := make([]byte, d.geo.mainSize)

	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		destPBI, err := d.allocErasedBlock()
		if err != nil {
			return d.fatal(FatalOutOfFreeBlocks, int64(lbi)*int64(d.sectorsPerBlock), err)
		}
		ec := d.alloc.EraseCnt(destPBI)

		err = d.convertInto(s, lbi, oldDataPBI, hasOldData, destPBI, brsiToSkip, brsiWrite, dataToWrite, newBlockCnt, newMergeCnt, ec, sectorBuf, &firstErr)
		if err != nil {
			_ = MarkBlockBad(d.phy, d.info, destPBI, FatalWriteFailed, brsiWrite)
			d.alloc.MarkBad(destPBI)
			continue
		}

		// Commit point (§4.10 step 7): the new block is fully written and
		// durable with BlockCnt/MergeCnt bumped before anything old is
		// erased, so a crash here leaves mount able to pick the newer
		// block by BlockCnt.
		d.l2p.SetPBI(lbi, destPBI)
		d.l2p.SetBlockCnt(lbi, newBlockCnt)
		d.l2p.SetMergeCnt(lbi, newMergeCnt)
		d.l2p.SetLastBRSI(lbi, d.info.PagesPerBlock()-1)

		if hasOldData {
			if err := d.freeBlock(oldDataPBI); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if err := d.freeBlock(oldWorkPBI); err != nil && firstErr == nil {
			firstErr = err
		}

		d.wb.Release(slot)
		return firstErr
	}
	return d.fatal(FatalWriteFailed, int64(lbi)*int64(d.sectorsPerBlock), firstErr)
}

// convertInto writes every physical page of the destination DATA block,
// selecting each logical BRSI's source per §4.10 step 3, and writes the
// BRSI0 erase-count page first.
func (d *Device) convertInto(s *wbSlot, lbi LBI, oldDataPBI PBI, hasOldData bool, destPBI PBI, brsiToSkip int, brsiWrite BRSI, dataToWrite []byte, newBlockCnt, newMergeCnt byte, eraseCnt uint32, sectorBuf []byte, firstReadErr *error) error {
	if err := d.writeEraseCountPage(destPBI, spare.BlockTypeData, eraseCnt); err != nil {
		return err
	}

	last := d.info.PagesPerBlock() - 1
	grouped := d.opts.BlocksPerGroupLog > 0

	for brsi := 1; brsi <= last; brsi++ {
		var src []byte
		switch {
		case BRSI(brsi) == brsiWrite && dataToWrite != nil:
			src = dataToWrite
		case s != nil && s.assign[brsi] != -1 && s.assign[brsi] != brsiToSkip:
			if err := d.readSourcePage(s.pbi, BRSI(s.assign[brsi]), sectorBuf, firstReadErr); err != nil {
				continue
			}
			src = sectorBuf
		case hasOldData:
			if err := d.readSourcePage(oldDataPBI, BRSI(brsi), sectorBuf, firstReadErr); err != nil {
				if !d.opts.AllowBlankUnusedSectors {
					fill(sectorBuf, 0)
					src = sectorBuf
				} else {
					continue
				}
			} else {
				src = sectorBuf
			}
		default:
			if !d.opts.AllowBlankUnusedSectors {
				fill(sectorBuf, 0)
				src = sectorBuf
			} else {
				continue
			}
		}

		meta := pageMeta{}
		sectorStat := spare.SectorWritten
		meta.sectorStat = &sectorStat
		brsiU16 := uint16(brsi)
		meta.brsi = &brsiU16

		if brsi == int(brsiBlockInfo) {
			lbiU16 := uint16(lbi)
			bt := spare.BlockTypeData
			ec := eraseCnt
			bc := newBlockCnt
			mc := newMergeCnt
			meta.lbi = &lbiU16
			meta.blockType = &bt
			meta.eraseCnt = &ec
			meta.blockCnt = &bc
			meta.mergeCnt = &mc
		}
		if grouped && brsi == last {
			ns := uint16(last)
			meta.numSectors = &ns
		}

		if err := d.writePage(destPBI, BRSI(brsi), src, meta); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) readSourcePage(pbi PBI, brsi BRSI, out []byte, firstErr *error) error {
	res, err := d.readPage(pbi, brsi, out)
	if err != nil {
		if *firstErr == nil {
			*firstErr = err
		}
		return err
	}
	if res.outcome == ecc.UncorrectableError {
		if *firstErr == nil {
			*firstErr = &ErrCorrupt{Type: CorruptECC, PBI: int(pbi), BRSI: int(brsi)}
		}
		return *firstErr
	}
	return nil
}
