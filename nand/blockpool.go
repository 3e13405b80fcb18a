// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

// freeBlock implements the clearBlock/freeBlock pair of §4.7: the block is
// erased immediately (so it is ready for instant reuse) and its erase
// count is incremented in the allocator's RAM bookkeeping. The new count
// is not persisted to the block's erase-count page here — that page can
// only be written once per erase, so it is written the next time the
// block is actually allocated for a WORK or DATA block (page.go's
// writeEraseCountPage, called from write.go/convert.go at allocation
// time). If the erase itself fails, the block is marked bad instead, per
// the EraseError propagation rule of §7.
func (d *Device) freeBlock(pbi PBI) error {
	if err := d.phy.EraseBlock(d.pageIndex(pbi, 0)); err != nil {
		_ = MarkBlockBad(d.phy, d.info, pbi, FatalEraseFailed, 0)
		d.alloc.MarkBad(pbi)
		return err
	}
	if d.opts.VerifyErase {
		if err := d.verifyBlankBlock(pbi); err != nil {
			_ = MarkBlockBad(d.phy, d.info, pbi, FatalEraseFailed, 0)
			d.alloc.MarkBad(pbi)
			return err
		}
	}
	d.alloc.SetEraseCnt(pbi, d.alloc.EraseCnt(pbi)+1)
	d.alloc.Free(pbi)
	d.wl.Observe(pbi)
	return nil
}

// verifyBlankBlock confirms every page of pbi reads back all-fillByte
// after an erase, for Options.VerifyErase.
func (d *Device) verifyBlankBlock(pbi PBI) error {
	buf := make([]byte, d.geo.mainSize)
	for brsi := 0; brsi < d.info.PagesPerBlock(); brsi++ {
		if err := d.phy.Read(d.pageIndex(pbi, BRSI(brsi)), buf, 0, len(buf)); err != nil {
			return err
		}
		for _, b := range buf {
			if b != fillByte {
				return &ErrCorrupt{Type: CorruptECC, PBI: int(pbi), BRSI: brsi}
			}
		}
	}
	return nil
}

// isBlankBlock reports whether pbi's erase-count page (BRSI 0) reads back
// as blank, i.e. the block has never been written since its last erase.
// Used by low-level mount to tell an untouched free block apart from one
// whose block-info page merely failed to decode (§3 invariant 2).
func (d *Device) isBlankBlock(pbi PBI) bool { return d.isBlankPage(pbi, brsiEraseCnt) }

// isBlankPage reports whether pbi:brsi reads back as all-fillByte across
// both main and spare areas, checked against the raw bytes rather than
// through the ECC engine: an unwritten page's ECC essentially never
// matches its all-0xFF content by chance, so this is the only reliable way
// to tell "never written" apart from "written and corrupted".
func (d *Device) isBlankPage(pbi PBI, brsi BRSI) bool {
	buf := make([]byte, d.geo.mainSize)
	if err := d.phy.Read(d.pageIndex(pbi, brsi), buf, 0, len(buf)); err != nil {
		return false
	}
	for _, b := range buf {
		if b != fillByte {
			return false
		}
	}
	spareBuf := make([]byte, d.geo.spareSize)
	if err := d.phy.ReadEx(d.pageIndex(pbi, brsi), nil, 0, 0, spareBuf, 0, d.geo.spareSize); err != nil {
		return true
	}
	for _, b := range spareBuf {
		if b != fillByte {
			return false
		}
	}
	return true
}
