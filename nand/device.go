// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

import (
	"nandtl/ecc"
	"nandtl/phy"
)

// fillByte is returned for logical sectors that were never written, per
// Options.AllowBlankUnusedSectors.
const fillByte = 0xFF

// IoctlCmd names the out-of-band control operations a Device exposes
// alongside Read/Write, mirroring the ioctl surface a block-device driver
// offers its file-system client (§6.1).
type IoctlCmd int

const (
	IoctlGetDevInfo IoctlCmd = iota
	IoctlRequiresFormat
	IoctlUnmount
	IoctlUnmountForced
	IoctlGetSectorUsage
	IoctlFormatLowLevel
	IoctlCleanOne
	IoctlClean
	IoctlGetCleanCnt
	IoctlFreeSectors
	IoctlSetReadErrorCallback
	IoctlDeinit
)

// DeviceInfo is the result of IoctlGetDevInfo: the flat logical geometry
// the sector-device interface presents to its caller, as distinct from
// the physical geometry of the underlying phy.Phy (see GetDeviceInfo).
type DeviceInfo struct {
	NumSectors     int
	BytesPerSector int
}

// SectorUsage is the result of IoctlGetSectorUsage: how many logical
// sectors are committed, how many physical blocks remain free, and the
// tracked erase-count spread.
type SectorUsage struct {
	NumSectors     int
	NumSectorsUsed int
	NumBlocksFree  int
	EraseCntMax    uint32
	EraseCntMin    uint32
}

// ReadErrorCallback is invoked when a read hits an uncorrectable or
// physical read error, giving the caller a chance to recover the sector
// data from redundant storage (e.g. a RAID-style mirror) before the core
// falls back to the fatal-error handler. Returning ok == false means no
// recovery was possible and the core proceeds to the fatal-error handler.
type ReadErrorCallback func(lbi LBI, brsi BRSI, cause error) (data []byte, ok bool)

// Device is a mounted instance of the translation layer: a phy.Phy plus
// all bookkeeping needed to present it as a flat array of fixed-size
// logical sectors. Device is not safe for concurrent use; callers
// serialize access with their own lock, matching the single-threaded
// scheduling model the core assumes (§5).
type Device struct {
	phy  phy.Phy
	info phy.DeviceInfo
	opts Options

	eccEngine ecc.Engine
	geo       pageGeometry

	alloc *Allocator
	wl    *wearLeveler
	l2p   *DataBlockIndex
	wb    *WorkBlockPool

	firstBlock       PBI
	numManagedBlocks int
	numLogicalBlocks int // number of LBIs
	sectorsPerBlock  int // BRSI 1..sectorsPerBlock, i.e. PagesPerBlock-1

	writeProtected   bool
	hasFatalError    bool
	errorKind        FatalKind
	errorSectorIndex int64

	readErrorCB ReadErrorCallback

	cleanNumBlocksFree  int
	cleanNumSectorsFree int
	cleanCnt            int

	pendingRelocations []PBI

	// suppressActiveWL disables the active-WL swap at the end of
	// allocErasedBlock: set for the duration of low-level mount and while
	// an active-WL swap is itself in progress (to avoid unbounded
	// recursion), per §4.6.
	suppressActiveWL bool
}

// NumSectors returns the total number of flat logical sectors the device
// presents, the unit used by Read/Write/ioctl.
func (d *Device) NumSectors() int { return d.numLogicalBlocks * d.sectorsPerBlock }

// SectorSize returns the size, in bytes, of one logical sector (one
// page's main-area size).
func (d *Device) SectorSize() int { return d.geo.mainSize }

// IsWriteProtected reports whether the device currently refuses writes,
// either because the caller asked for it or because the fatal-error
// handler tripped.
func (d *Device) IsWriteProtected() bool { return d.writeProtected }

// HasFatalError reports whether the fatal-error handler has fired during
// this mount (or was restored from the error-info page at mount time).
func (d *Device) HasFatalError() bool { return d.hasFatalError }

// SetReadErrorCallback installs or clears (pass nil) the recovery hook
// invoked before an uncorrectable read reaches the fatal-error handler.
func (d *Device) SetReadErrorCallback(cb ReadErrorCallback) { d.readErrorCB = cb }

// GetDeviceInfo returns the flat logical geometry presented to the
// sector-device caller, for IoctlGetDevInfo.
func (d *Device) GetDeviceInfo() DeviceInfo {
	return DeviceInfo{NumSectors: d.NumSectors(), BytesPerSector: d.SectorSize()}
}

// PhyDeviceInfo returns the underlying PHY geometry, for callers (such as
// cmd/nandctl) that need the physical layout rather than the flat logical
// view GetDeviceInfo presents.
func (d *Device) PhyDeviceInfo() phy.DeviceInfo { return d.info }

func (d *Device) splitSector(sector int64) (LBI, BRSI) {
	lbi := LBI(sector / int64(d.sectorsPerBlock))
	brsi := BRSI(1 + sector%int64(d.sectorsPerBlock))
	return lbi, brsi
}

// GetSectorUsage reports aggregate occupancy and wear statistics, for
// IoctlGetSectorUsage.
func (d *Device) GetSectorUsage() SectorUsage {
	used := 0
	for lbi := 0; lbi < d.numLogicalBlocks; lbi++ {
		for brsi := 1; brsi <= d.sectorsPerBlock; brsi++ {
			if d.isWritten(LBI(lbi), BRSI(brsi)) {
				used++
			}
		}
	}
	return SectorUsage{
		NumSectors:     d.NumSectors(),
		NumSectorsUsed: used,
		NumBlocksFree:  d.alloc.NumFree(),
		EraseCntMax:    d.wl.EraseCntMax(),
		EraseCntMin:    d.wl.EraseCntMin(),
	}
}

func (d *Device) isWritten(lbi LBI, brsi BRSI) bool {
	if slot, ok := d.wb.Find(lbi); ok {
		if _, ok := d.wb.Assignment(slot, int(brsi)); ok {
			return true
		}
	}
	_, ok := d.l2p.PBI(lbi)
	return ok
}

// Deinit releases the underlying PHY, for IoctlDeinit.
func (d *Device) Deinit() error { return d.phy.DeInit() }

// Ioctl dispatches the out-of-band control operations of §6.1. arg and the
// return value's meaning depend on cmd:
//
//	IoctlGetDevInfo           -> DeviceInfo{NumSectors, BytesPerSector}
//	IoctlRequiresFormat       -> bool (always false for a mounted Device)
//	IoctlUnmount              -> nil (drains pending relocations first)
//	IoctlUnmountForced        -> nil (skips the relocation drain)
//	IoctlGetSectorUsage       -> SectorUsage
//	IoctlFormatLowLevel       -> not supported on a mounted Device; use Format
//	IoctlCleanOne             -> bool (moreToClean)
//	IoctlClean                -> bool (moreToClean)
//	IoctlGetCleanCnt          -> int
//	IoctlFreeSectors          -> arg is [2]int64{firstSector, numSectors}; nil
//	IoctlSetReadErrorCallback -> arg is ReadErrorCallback (or nil to clear)
//	IoctlDeinit               -> nil
func (d *Device) Ioctl(cmd IoctlCmd, arg interface{}) (interface{}, error) {
	switch cmd {
	case IoctlGetDevInfo:
		return d.GetDeviceInfo(), nil
	case IoctlRequiresFormat:
		return false, nil
	case IoctlUnmount:
		if err := d.drainRelocations(); err != nil {
			return nil, err
		}
		return nil, d.Deinit()
	case IoctlUnmountForced:
		return nil, d.Deinit()
	case IoctlGetSectorUsage:
		return d.GetSectorUsage(), nil
	case IoctlFormatLowLevel:
		return nil, &ErrInvalidArg{Msg: "low-level format requires an unmounted Phy; call nand.Format directly", Arg: cmd}
	case IoctlCleanOne:
		more, err := d.CleanOne()
		return more, err
	case IoctlClean:
		more, err := d.Clean()
		return more, err
	case IoctlGetCleanCnt:
		return d.GetCleanCnt(), nil
	case IoctlFreeSectors:
		rng, ok := arg.([2]int64)
		if !ok {
			return nil, &ErrInvalidArg{Msg: "IoctlFreeSectors requires a [2]int64{firstSector, numSectors} arg", Arg: arg}
		}
		return nil, d.trimSectors(rng[0], rng[1])
	case IoctlSetReadErrorCallback:
		cb, _ := arg.(ReadErrorCallback)
		d.SetReadErrorCallback(cb)
		return nil, nil
	case IoctlDeinit:
		return nil, d.Deinit()
	default:
		return nil, &ErrInvalidArg{Msg: "unknown ioctl command", Arg: cmd}
	}
}

// trimSectors implements IoctlFreeSectors for the logical sectors in
// [firstSector, firstSector+numSectors) without spending a physical write
// per sector: it drops each sector's assignment in its LBI's work block, if
// any. A copy already committed to the LBI's DATA block is not dropped, so a
// later read returns that copy, and conversion carries it into the next
// DATA block.
func (d *Device) trimSectors(firstSector, numSectors int64) error {
	if d.writeProtected {
		return &ErrWriteProtected{}
	}
	for i := int64(0); i < numSectors; i++ {
		lbi, brsi := d.splitSector(firstSector + i)
		if int(lbi) >= d.numLogicalBlocks {
			return &ErrInvalidArg{Msg: "sector out of range", Arg: firstSector + i}
		}
		// A DATA block's mapping is at block, not sector, granularity, so
		// a trimmed sector still committed to a DATA block is left alone.
		if slot, ok := d.wb.Find(lbi); ok {
			d.wb.SetAssignment(slot, int(brsi), -1)
		}
	}
	return nil
}

// newEngineAndGeometry picks an ECC block size of 512 bytes (4 stripes
// over a typical 2048-byte page, matching the 4 core metadata stripes of
// §6.3), falling back to smaller blocks for narrower pages.
func newEngineAndGeometry(info phy.DeviceInfo) (ecc.Engine, pageGeometry) {
	ldBlock := uint(9)
	for info.BytesPerPage()%(1<<ldBlock) != 0 && ldBlock > 3 {
		ldBlock--
	}
	eng := ecc.NewHammingEngine(ldBlock, 4)
	return eng, newPageGeometry(info, eng)
}

// ReadSectors implements the sector-device read(firstSector, out, numSectors)
// operation (§6.1): numSectors consecutive flat sectors starting at
// firstSector are read into out, which must be numSectors*SectorSize()
// bytes long.
func (d *Device) ReadSectors(firstSector int64, out []byte, numSectors int) error {
	ss := d.SectorSize()
	if len(out) < numSectors*ss {
		return &ErrInvalidArg{Msg: "out buffer too small", Arg: len(out)}
	}
	for i := 0; i < numSectors; i++ {
		lbi, brsi := d.splitSector(firstSector + int64(i))
		if int(lbi) >= d.numLogicalBlocks {
			return &ErrInvalidArg{Msg: "sector out of range", Arg: firstSector + int64(i)}
		}
		if err := d.readLogSector(lbi, brsi, out[i*ss:(i+1)*ss]); err != nil {
			return err
		}
	}
	return nil
}

// WriteSectors implements write(firstSector, buf, numSectors, repeatSame):
// when repeatSame is true, the single sector-sized buf is written
// numSectors times (e.g. to zero-fill a trimmed range cheaply).
func (d *Device) WriteSectors(firstSector int64, buf []byte, numSectors int, repeatSame bool) error {
	if d.writeProtected {
		return &ErrWriteProtected{}
	}
	ss := d.SectorSize()
	if repeatSame {
		if len(buf) < ss {
			return &ErrInvalidArg{Msg: "buf too small for repeatSame write", Arg: len(buf)}
		}
	} else if len(buf) < numSectors*ss {
		return &ErrInvalidArg{Msg: "buf too small", Arg: len(buf)}
	}
	for i := 0; i < numSectors; i++ {
		lbi, brsi := d.splitSector(firstSector + int64(i))
		if int(lbi) >= d.numLogicalBlocks {
			return &ErrInvalidArg{Msg: "sector out of range", Arg: firstSector + int64(i)}
		}
		var sector []byte
		if repeatSame {
			sector = buf[:ss]
		} else {
			sector = buf[i*ss : (i+1)*ss]
		}
		if err := d.writeLogSector(lbi, brsi, sector); err != nil {
			return err
		}
	}
	return nil
}

// readLogSector resolves lbi/brsi's current source (work block,
// data block, or unwritten) and reads it into out, per §4.9.
func (d *Device) readLogSector(lbi LBI, brsi BRSI, out []byte) error {
	if slot, ok := d.wb.Find(lbi); ok {
		if phys, ok := d.wb.Assignment(slot, int(brsi)); ok {
			pbi := d.wb.Slot(slot).pbi
			return d.readChecked(pbi, BRSI(phys), lbi, brsi, out)
		}
	}

	pbi, ok := d.l2p.PBI(lbi)
	if !ok {
		if d.opts.AllowBlankUnusedSectors {
			fill(out, fillByte)
			return nil
		}
		return &ErrInvalidArg{Msg: "sector never written", Arg: lbi}
	}
	if d.opts.AllowBlankUnusedSectors && d.isBlankPage(pbi, brsi) {
		fill(out, fillByte)
		return nil
	}
	return d.readChecked(pbi, brsi, lbi, brsi, out)
}

// readChecked reads pbi:physBRSI with ECC, handling corrected-bit
// relocation scheduling and uncorrectable/read errors per §4.9 step 3.
// logBRSI is the logical BRSI, used only for relocation bookkeeping and
// error reporting.
func (d *Device) readChecked(pbi PBI, physBRSI BRSI, lbi LBI, logBRSI BRSI, out []byte) error {
	res, err := d.readPage(pbi, physBRSI, out)
	if err != nil {
		return d.handleReadError(lbi, logBRSI, err)
	}
	switch res.outcome {
	case ecc.UncorrectableError:
		return d.handleReadError(lbi, logBRSI, &ErrCorrupt{Type: CorruptECC, PBI: int(pbi), BRSI: int(physBRSI)})
	case ecc.Corrected:
		if d.opts.MaxBitErrorCnt > 0 && res.bitsCorrected >= d.opts.MaxBitErrorCnt {
			d.scheduleRelocation(pbi)
		}
	}
	return nil
}

func (d *Device) handleReadError(lbi LBI, brsi BRSI, cause error) error {
	if d.readErrorCB != nil {
		if data, ok := d.readErrorCB(lbi, brsi, cause); ok {
			return d.writeLogSector(lbi, brsi, data)
		}
	}
	if d.opts.AllowReadErrorBadBlocks {
		if pbi, ok := d.l2p.PBI(lbi); ok {
			_ = MarkBlockBad(d.phy, d.info, pbi, FatalUncorrectableRead, brsi)
			d.alloc.MarkBad(pbi)
		}
	}
	return d.fatal(FatalUncorrectableRead, int64(lbi)*int64(d.sectorsPerBlock)+int64(brsi), cause)
}

// scheduleRelocation records pbi as needing a relocation pass rather than
// recursing into the converter mid-read; the queue is drained by
// IoctlUnmount (drainRelocations), not by writes or clean().
func (d *Device) scheduleRelocation(pbi PBI) {
	for _, p := range d.pendingRelocations {
		if p == pbi {
			return
		}
	}
	d.pendingRelocations = append(d.pendingRelocations, pbi)
}

func (d *Device) drainRelocations() error {
	for len(d.pendingRelocations) > 0 {
		pbi := d.pendingRelocations[0]
		d.pendingRelocations = d.pendingRelocations[1:]
		if err := d.relocateDataBlock(pbi); err != nil {
			return err
		}
	}
	return nil
}

func fill(buf []byte, v byte) {
	for i := range buf {
		buf[i] = v
	}
}
