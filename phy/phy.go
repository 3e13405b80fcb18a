// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package phy defines the physical-layer contract consumed by the
// translation layer core and provides two implementations: an in-memory
// simulator with fault injection for tests, and a file-backed device for
// standalone tools.
package phy

import "errors"

// ErrNotImplemented is returned by optional Phy operations a given
// implementation does not support.
var ErrNotImplemented = errors.New("phy: operation not implemented")

// BadBlockMarking enumerates the conventions by which a device signals a
// factory-marked bad block, since different NAND vendors place the marker
// on different pages within the block.
type BadBlockMarking int

const (
	// BBMFirstPage marks bad blocks by a non-0xFF byte on the first page
	// only.
	BBMFirstPage BadBlockMarking = iota
	// BBMFirstAndLastPage marks both the first and last page of the
	// block.
	BBMFirstAndLastPage
	// BBMFirstAndSecondPage marks the first and second page.
	BBMFirstAndSecondPage
	// BBMFirstSecondAndLastPage marks the first, second and last page.
	BBMFirstSecondAndLastPage
	// BBMFirstAndLastPageWithDuplicateMark marks the first and last page,
	// each with the marker written twice (survives one corrupted write).
	BBMFirstAndLastPageWithDuplicateMark
)

// ECCInfo describes a device's hardware ECC capability.
type ECCInfo struct {
	BitsCorrectable int
	BytesPerBlockLd uint
	HasHwECC        bool
}

// DeviceInfo describes the geometry and capabilities of a physical NAND
// device, as returned by Phy.InitGetDeviceInfo.
type DeviceInfo struct {
	BytesPerPageLd    uint
	BytesPerSpareArea int
	PagesPerBlockLd   uint
	NumBlocks         int
	DataBusWidth      int
	BadBlockMarking   BadBlockMarking
	ECC               ECCInfo
	PlanesPerOpLd     uint
}

// PagesPerBlock returns the number of pages in one block.
func (d DeviceInfo) PagesPerBlock() int { return 1 << d.PagesPerBlockLd }

// BytesPerPage returns the number of main-area bytes in one page.
func (d DeviceInfo) BytesPerPage() int { return 1 << d.BytesPerPageLd }

// ECCResult is the outcome of the last ECC-checked read, as returned by
// Phy.GetECCResult for devices with hardware ECC.
type ECCResult struct {
	Corrected  bool
	BitsFixed  int
	Uncorrectable bool
}

// Phy is the physical-layer interface consumed by the translation layer
// core. Implementations are not required to be safe for concurrent use;
// the core serializes access to a Phy through the caller's lock.
type Phy interface {
	// InitGetDeviceInfo fills out with the device's geometry.
	InitGetDeviceInfo(out *DeviceInfo) error

	// Read reads numBytes bytes of page pageIndex's main area starting
	// at offInPage into buf.
	Read(pageIndex int, buf []byte, offInPage, numBytes int) error

	// ReadEx reads main and spare sub-ranges of a page in one call.
	// Either main or spare may be nil to skip that half.
	ReadEx(pageIndex int, main []byte, offMain, numMain int, spare []byte, offSpare, numSpare int) error

	// Write writes numBytes bytes of buf to page pageIndex's main area
	// starting at offInPage.
	Write(pageIndex int, buf []byte, offInPage, numBytes int) error

	// WriteEx writes main and spare sub-ranges of a page in one call.
	// Either main or spare may be nil to skip that half.
	WriteEx(pageIndex int, main []byte, offMain, numMain int, spare []byte, offSpare, numSpare int) error

	// EraseBlock erases the block containing firstPageIndexOfBlock.
	EraseBlock(firstPageIndexOfBlock int) error

	// IsWP reports whether the device is write-protected.
	IsWP() bool

	// DeInit releases any resources held by the Phy.
	DeInit() error
}

// RawModePhy is implemented by a Phy that can disable its own ECC so the
// core can write/read bad-block markers and sentinels that must survive
// bit rot without tripping a false ECC failure.
type RawModePhy interface {
	SetRawMode(on bool) error
}

// CopyPagePhy is implemented by a Phy that can copy a page internally
// without a round trip through host memory. The nand core does not call
// CopyPage; relocation and conversion read and rewrite every page.
type CopyPagePhy interface {
	CopyPage(src, dst int) error
}

// HwECCPhy is implemented by a Phy with its own hardware ECC engine. The
// nand core does not use it and always runs its software ecc.Engine.
type HwECCPhy interface {
	EnableECC() error
	DisableECC() error
	ConfigureECC(bitsCorrectable int, bytesPerBlockLd uint) error
	GetECCResult(out *ECCResult) error
}
