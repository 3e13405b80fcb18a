// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

import (
	"nandtl/ecc"
	"nandtl/phy"
	"nandtl/spare"
)

// pageGeometry bundles the derived sizes every page access needs: the main
// area is split into numStripes equal chunks, one per ECC code, and the
// spare area is split into the same number of stripes so each chunk keeps
// its metadata and ECC bytes alongside it.
type pageGeometry struct {
	mainSize   int
	spareSize  int
	ldBlock    uint
	numStripes int
}

func newPageGeometry(info phy.DeviceInfo, eng ecc.Engine) pageGeometry {
	mainSize := info.BytesPerPage()
	ldBlock := eng.LdBytesPerBlock()
	blockSize := 1 << ldBlock
	if mainSize%blockSize != 0 {
		panic("nand: page size is not a multiple of the ECC block size")
	}
	return pageGeometry{
		mainSize:   mainSize,
		spareSize:  info.BytesPerSpareArea,
		ldBlock:    ldBlock,
		numStripes: mainSize / blockSize,
	}
}

func (d *Device) pageIndex(pbi PBI, brsi BRSI) int {
	return int(pbi)*d.info.PagesPerBlock() + int(brsi)
}

// writeEraseCountPage writes pbi's BRSI0 page, the first page of every
// block: BlockStat (a coarse type marker letting a scan skip blank blocks
// without decoding the block-info page's ECC) and EraseCnt, per §6.3's
// "page 0 and page 1 of every block" note on the EraseCnt field.
func (d *Device) writeEraseCountPage(pbi PBI, blockStat byte, eraseCnt uint32) error {
	blank := make([]byte, d.geo.mainSize)
	fill(blank, fillByte)
	return d.writePage(pbi, brsiEraseCnt, blank, pageMeta{
		blockStat: &blockStat,
		eraseCnt:  &eraseCnt,
	})
}

// pageMeta is the set of spare-area fields a page write may need to set,
// beyond the raw main-area data. Zero-value fields that don't apply to a
// given page (e.g. LBI and BlockType on a page other than the block-info
// page) are simply not written by the caller.
type pageMeta struct {
	blockStat  *byte
	eraseCnt   *uint32
	lbi        *uint16
	blockType  *byte
	blockCnt   *byte
	sectorStat *byte
	mergeCnt   *byte
	brsi       *uint16
	numSectors *uint16
	dataCRC    *uint32
}

// writePage assembles the spare area for one page from meta, computes ECC
// over every stripe, and writes main+spare via the PHY in one call.
func (d *Device) writePage(pbi PBI, brsi BRSI, main []byte, meta pageMeta) error {
	spareBuf := make([]byte, d.geo.spareSize)
	area := spare.NewArea(spareBuf, d.geo.numStripes)

	if meta.blockStat != nil {
		area.SetBlockStat(*meta.blockStat)
	}
	if meta.eraseCnt != nil {
		area.SetEraseCnt(*meta.eraseCnt)
	}
	if meta.lbi != nil {
		area.SetLBI(*meta.lbi)
	}
	if meta.blockType != nil {
		area.SetBlockType(*meta.blockType)
	}
	if meta.blockCnt != nil {
		area.SetBlockCnt(*meta.blockCnt)
	}
	if meta.sectorStat != nil {
		area.SetSectorStat(*meta.sectorStat)
	}
	if meta.mergeCnt != nil {
		area.SetMergeCnt(*meta.mergeCnt)
	}
	if meta.brsi != nil {
		area.SetBRSI(*meta.brsi)
	}
	if meta.numSectors != nil {
		area.SetNumSectors(*meta.numSectors)
	}
	if meta.dataCRC != nil && d.opts.DataCRCEnabled {
		area.SetDataCRC(*meta.dataCRC)
	}

	for i := 0; i < d.geo.numStripes; i++ {
		chunk := spare.MainChunk(main, d.geo.ldBlock, i)
		d.eccEngine.Calc(chunk, area.SpareMeta(i), area.ECCBytes(i))
	}

	idx := d.pageIndex(pbi, brsi)
	return d.phy.WriteEx(idx, main, 0, d.geo.mainSize, spareBuf, 0, d.geo.spareSize)
}

// readResult summarizes what readPage found across every stripe of a page.
type readResult struct {
	area         *spare.Area
	outcome      ecc.Outcome
	bitsCorrected int
}

// readPage reads one page's main and spare areas, verifying and correcting
// every stripe's ECC. The worst per-stripe outcome wins: an uncorrectable
// stripe anywhere makes the whole page uncorrectable, even if other
// stripes read clean.
func (d *Device) readPage(pbi PBI, brsi BRSI, main []byte) (readResult, error) {
	spareBuf := make([]byte, d.geo.spareSize)
	idx := d.pageIndex(pbi, brsi)
	if err := d.phy.ReadEx(idx, main, 0, d.geo.mainSize, spareBuf, 0, d.geo.spareSize); err != nil {
		return readResult{}, err
	}
	area := spare.NewArea(spareBuf, d.geo.numStripes)

	res := readResult{area: area, outcome: ecc.NoError}
	for i := 0; i < d.geo.numStripes; i++ {
		chunk := spare.MainChunk(main, d.geo.ldBlock, i)
		r := d.eccEngine.Apply(chunk, area.ECCBytes(i), area.SpareMeta(i))
		if r.Outcome == ecc.UncorrectableError {
			res.outcome = ecc.UncorrectableError
		} else if r.Outcome == ecc.Corrected && res.outcome != ecc.UncorrectableError {
			res.outcome = ecc.Corrected
			res.bitsCorrected += r.BitsCorrected
		} else if r.Outcome == ecc.ErrorInECC && res.outcome == ecc.NoError {
			res.outcome = ecc.ErrorInECC
		}
	}
	return res, nil
}
