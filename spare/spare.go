// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spare encodes and decodes the per-page spare-area metadata
// stripes that carry block/sector bookkeeping alongside NAND page data.
// The spare area of a page is divided into a fixed number of stripes, one
// per ECC-protected chunk of the main area; the first four stripes carry
// the core metadata fields. All operations work in place on a caller-owned
// buffer and never allocate.
package spare

import (
	"encoding/binary"

	"nandtl/bitfield"
)

// Block-type values stored in the high nibble of stripe 1, offset 6.
const (
	BlockTypeData  byte = 0xC
	BlockTypeWork  byte = 0xE
	BlockTypeEmpty byte = 0xF
)

// Sector-status values stored in the low nibble of stripe 1, offset 7.
const (
	SectorWritten byte = 0x0
	SectorEmpty   byte = 0xF
)

// headerBytes is the size, in bytes, of the metadata header at the front
// of every stripe (offsets 0..7); everything from offset 8 onward in a
// stripe is ECC bytes.
const headerBytes = 8

// eccMetaOff/eccMetaLen is the 4-byte window (offsets 4..7) within a
// stripe's header that travels inside that stripe's ECC coverage, per the
// bit-exact spare-area layout.
const (
	eccMetaOff = 4
	eccMetaLen = 4
)

// Area is a view over one page's spare-area bytes, partitioned into a
// fixed number of equal-size stripes.
type Area struct {
	buf        []byte
	stripeSize int
}

// NewArea wraps buf as a spare area of numStripes equal stripes. buf's
// length must be a positive multiple of numStripes, and each stripe must
// be at least headerBytes long. NewArea does not copy buf.
func NewArea(buf []byte, numStripes int) *Area {
	if numStripes <= 0 || len(buf) == 0 || len(buf)%numStripes != 0 {
		panic("spare: buf length not a positive multiple of numStripes")
	}
	stripeSize := len(buf) / numStripes
	if stripeSize < headerBytes {
		panic("spare: stripe too small for metadata header")
	}
	return &Area{buf: buf, stripeSize: stripeSize}
}

// NumStripes returns the number of stripes in the area.
func (a *Area) NumStripes() int { return len(a.buf) / a.stripeSize }

// Stripe returns the full byte range (header + ECC bytes) of stripe i.
func (a *Area) Stripe(i int) []byte {
	return a.buf[i*a.stripeSize : (i+1)*a.stripeSize]
}

// ECCBytes returns the ECC code bytes of stripe i, immediately following
// its 8-byte metadata header.
func (a *Area) ECCBytes(i int) []byte {
	return a.Stripe(i)[headerBytes:]
}

// SpareMeta returns the 4-byte window (offsets 4..7) of stripe i that is
// covered by that stripe's ECC code alongside the corresponding main-area
// chunk. This is the spareMeta argument passed to an ecc.Engine.
func (a *Area) SpareMeta(i int) []byte {
	s := a.Stripe(i)
	return s[eccMetaOff : eccMetaOff+eccMetaLen]
}

// BlockStat returns stripe 0, offset 0 — written on the first page of
// every block, outside any stripe's ECC coverage so it remains legible
// even over a block too damaged to trust its ECC.
func (a *Area) BlockStat() byte { return a.Stripe(0)[0] }

// SetBlockStat stores v at stripe 0, offset 0.
func (a *Area) SetBlockStat(v byte) { a.Stripe(0)[0] = v }

// EraseCnt returns the big-endian 32-bit erase count at stripe 0, offsets
// 4..7, written on page 0 and page 1 of every block.
func (a *Area) EraseCnt() uint32 {
	return binary.BigEndian.Uint32(a.Stripe(0)[4:8])
}

// SetEraseCnt stores v at stripe 0, offsets 4..7.
func (a *Area) SetEraseCnt(v uint32) {
	binary.BigEndian.PutUint32(a.Stripe(0)[4:8], v)
}

// LBI returns the big-endian 16-bit logical block index at stripe 1,
// offsets 4..5, written on the block-info page (BRSI 1).
func (a *Area) LBI() uint16 {
	return binary.BigEndian.Uint16(a.Stripe(1)[4:6])
}

// SetLBI stores v at stripe 1, offsets 4..5.
func (a *Area) SetLBI(v uint16) {
	binary.BigEndian.PutUint16(a.Stripe(1)[4:6], v)
}

// BlockType returns the high nibble of stripe 1, offset 6.
func (a *Area) BlockType() byte {
	return bitfield.UnpackNibble(a.Stripe(1), 6, true)
}

// SetBlockType stores v (low 4 bits) in the high nibble of stripe 1,
// offset 6.
func (a *Area) SetBlockType(v byte) {
	bitfield.PackNibble(a.Stripe(1), 6, true, v)
}

// BlockCnt returns the low nibble of stripe 1, offset 6: the per-block
// monotonic counter bumped whenever a block is rewritten to a new PBI for
// the same LBI.
func (a *Area) BlockCnt() byte {
	return bitfield.UnpackNibble(a.Stripe(1), 6, false)
}

// SetBlockCnt stores v (low 4 bits) in the low nibble of stripe 1,
// offset 6.
func (a *Area) SetBlockCnt(v byte) {
	bitfield.PackNibble(a.Stripe(1), 6, false, v)
}

// SectorStat returns the low nibble of stripe 1, offset 7: SectorWritten
// or SectorEmpty for the page this spare area belongs to.
func (a *Area) SectorStat() byte {
	return bitfield.UnpackNibble(a.Stripe(1), 7, false)
}

// SetSectorStat stores v (low 4 bits) in the low nibble of stripe 1,
// offset 7.
func (a *Area) SetSectorStat(v byte) {
	bitfield.PackNibble(a.Stripe(1), 7, false, v)
}

// MergeCnt returns the high nibble of stripe 1, offset 7: the per-LBI
// counter bumped on each work-block to data-block conversion. It is only
// 4 bits wide and wraps silently; mount logic must compare deltas modulo
// 16, not absolute values.
func (a *Area) MergeCnt() byte {
	return bitfield.UnpackNibble(a.Stripe(1), 7, true)
}

// SetMergeCnt stores v (low 4 bits) in the high nibble of stripe 1,
// offset 7.
func (a *Area) SetMergeCnt(v byte) {
	bitfield.PackNibble(a.Stripe(1), 7, true, v)
}

// BRSI returns the big-endian 16-bit block-relative sector index at
// stripe 2, offsets 4..5, written on work-block pages.
func (a *Area) BRSI() uint16 {
	return binary.BigEndian.Uint16(a.Stripe(2)[4:6])
}

// SetBRSI stores v at stripe 2, offsets 4..5.
func (a *Area) SetBRSI(v uint16) {
	binary.BigEndian.PutUint16(a.Stripe(2)[4:6], v)
}

// NumSectors returns the big-endian 16-bit sector count at stripe 2,
// offsets 6..7: written on work-block page 1, and reused as the
// block-grouping merge-completed sentinel on the last page of a
// destination DATA block.
func (a *Area) NumSectors() uint16 {
	return binary.BigEndian.Uint16(a.Stripe(2)[6:8])
}

// SetNumSectors stores v at stripe 2, offsets 6..7.
func (a *Area) SetNumSectors(v uint16) {
	binary.BigEndian.PutUint16(a.Stripe(2)[6:8], v)
}

// DataCRC returns the optional big-endian 32-bit data CRC at stripe 3,
// offsets 4..7. This field is experimental and non-normative: nothing in
// mount or conversion logic requires it to be present or correct.
func (a *Area) DataCRC() uint32 {
	return binary.BigEndian.Uint32(a.Stripe(3)[4:8])
}

// SetDataCRC stores v at stripe 3, offsets 4..7.
func (a *Area) SetDataCRC(v uint32) {
	binary.BigEndian.PutUint32(a.Stripe(3)[4:8], v)
}

// MainChunk returns the ldBlock-sized slice of main that stripe i's ECC
// code protects, alongside that stripe's SpareMeta.
func MainChunk(main []byte, ldBlock uint, stripe int) []byte {
	size := 1 << ldBlock
	return main[stripe*size : (stripe+1)*size]
}
