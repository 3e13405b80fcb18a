// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

import "modernc.org/mathutil"

// CleanPolicy names how aggressively the fast-write reservation
// (setCleanThreshold, §4.15) pre-converts work blocks into data blocks. It
// is stored in Options only: Clean and CleanOne do not consult it, and the
// eager mode below is not implemented.
type CleanPolicy int

const (
	// CleanLazy converts a work block only when it is actually full or
	// a reservation threshold would otherwise be violated.
	CleanLazy CleanPolicy = iota

	// CleanEager converts the least-recently-used work block whenever
	// the device is otherwise idle and NumBlocksFree/NumSectorsFree
	// have headroom, smoothing the latency of later writes at the cost
	// of extra erase cycles.
	CleanEager
)

// Options amends the behavior of Format and Mount. The compatibility
// promise is the same as for struct types in the standard library:
// introduce changes only by adding new exported fields.
type Options struct {
	// MaxEraseCntDiff bounds the spread active wear leveling tries to
	// maintain between the most- and least-erased blocks.
	MaxEraseCntDiff int

	// NumWorkBlocks is the configured number of work blocks. It is
	// always clamped to [3, 10]; the number actually in use
	// is max(configured, the count recorded at format time).
	NumWorkBlocks int

	// FirstBlock is the physical block index the translation layer may
	// start using; blocks below it are reserved for other consumers
	// (e.g. a boot loader).
	FirstBlock int

	// MaxNumBlocks caps how many physical blocks past FirstBlock the
	// translation layer will manage. Zero means "every remaining
	// block".
	MaxNumBlocks int

	// PctBlocksReserved is the percentage of managed blocks held back
	// from the logical address space to absorb bad-block attrition and
	// wear-leveling swaps.
	PctBlocksReserved int

	// NumBlocksFree and NumSectorsFree are the fast-write reservation
	// targets maintained by clean() (§4.15): at least NumBlocksFree
	// free blocks and NumSectorsFree free pages in the least-full work
	// block must remain available after any write returns.
	NumBlocksFree   int
	NumSectorsFree  int

	// MaxBitErrorCnt is the corrected-bit threshold at or above which a
	// read schedules a relocation of the block it came from.
	MaxBitErrorCnt int

	// HandleWriteDisturb is accepted but has no effect: the core does not
	// count reads of a block, and relocation after reads is driven by
	// MaxBitErrorCnt alone.
	HandleWriteDisturb bool

	// AllowBlankUnusedSectors lets a read of a logical sector that was
	// never written return the fill pattern without consulting the PHY,
	// rather than treating "no PBI" as an error.
	AllowBlankUnusedSectors bool

	// AllowReadErrorBadBlocks controls whether a read hitting an
	// uncorrectable error marks the offending block bad automatically
	// (true) or only reports the error and relies on the caller /
	// relocation logic (false).
	AllowReadErrorBadBlocks bool

	// ReclaimDriverBadBlocks allows format to bring back into service
	// blocks previously marked bad by the driver (not the factory),
	// e.g. after a firmware bug is fixed.
	ReclaimDriverBadBlocks bool

	// VerifyErase reads a block back after erasing it and confirms it
	// is blank before considering the erase successful.
	VerifyErase bool

	// VerifyWrite is accepted but has no effect: pages are not read back
	// after writing.
	VerifyWrite bool

	// BlocksPerGroupLog is log2 of the number of physical blocks in a
	// block group (§3's "Block group"); 0 disables block grouping.
	BlocksPerGroupLog uint

	// CleanPolicy is recorded but not read; see CleanPolicy.
	CleanPolicy CleanPolicy

	// DataCRCEnabled names the experimental, non-normative per-page
	// DataCRC field (§6.3 stripe 3). It has no effect: no write path
	// computes or stores a DataCRC, and mount and conversion never read it.
	DataCRCEnabled bool
}

// DefaultOptions returns the tunables used when a caller does not need to
// override anything: a conservative configuration suitable for small to
// mid-size NAND parts.
func DefaultOptions() Options {
	return Options{
		MaxEraseCntDiff:         1000,
		NumWorkBlocks:           3,
		FirstBlock:              0,
		MaxNumBlocks:            0,
		PctBlocksReserved:       2,
		NumBlocksFree:           1,
		NumSectorsFree:          4,
		MaxBitErrorCnt:          4,
		HandleWriteDisturb:      false,
		AllowBlankUnusedSectors: true,
		AllowReadErrorBadBlocks: true,
		ReclaimDriverBadBlocks:  false,
		VerifyErase:             false,
		VerifyWrite:             false,
		BlocksPerGroupLog:       0,
		CleanPolicy:             CleanLazy,
		DataCRCEnabled:          false,
	}
}

func (o *Options) normalize() {
	o.NumWorkBlocks = mathutil.Max(mathutil.Min(o.NumWorkBlocks, 10), 3)
	o.NumBlocksFree = mathutil.Max(o.NumBlocksFree, 0)
	o.NumSectorsFree = mathutil.Max(o.NumSectorsFree, 0)
	o.PctBlocksReserved = mathutil.Max(mathutil.Min(o.PctBlocksReserved, 25), 0)
}
