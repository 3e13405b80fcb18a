// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nand turns a raw NAND phy.Phy into a fixed-size logical sector
// device with wear leveling, bad-block management, ECC protection and
// power-fail-safe update semantics. It never logs; its page codec allocates
// a spare-area buffer per page read or write. Callers serialize access with
// their own lock.
package nand

// LBI is a logical block index, 0..NumLogicalBlocks-1, mapped to a
// physical block index through the L2P table.
type LBI int32

// PBI is a physical block index, as addressed on the phy.Phy.
type PBI int32

// BRSI is a block-relative sector index, 1..PagesPerBlock-1. BRSI 0 is
// reserved for the erase-count page; BRSI 1 is the block-info page.
type BRSI int

const (
	brsiEraseCnt BRSI = 0
	brsiBlockInfo BRSI = 1
)

// blockType mirrors spare.BlockType* values in a Go-native enum for
// internal bookkeeping.
type blockType byte

const (
	btEmpty blockType = iota
	btWork
	btData
)

// noPBI marks an LBI with no physical block assigned yet; reads return the
// fill pattern and writes allocate a work block on demand.
const noPBI PBI = -1
