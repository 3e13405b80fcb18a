// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package phy

import (
	"fmt"
	"os"

	"modernc.org/fileutil"
)

// FilePhy is a Phy backed by a single *os.File laid out as
// [page 0 main][page 0 spare][page 1 main][page 1 spare]... It exists for
// cmd/nandctl, where the simulated device must survive process restarts.
type FilePhy struct {
	f    *os.File
	info DeviceInfo

	pageStride int64 // bytes per page: main + spare
	wp         bool
}

// NewFilePhy opens or creates path and wraps it as a Phy of the given
// geometry. When the file is smaller than the full device it is grown with
// Truncate, so the new region reads as zero bytes until it is erased.
func NewFilePhy(path string, info DeviceInfo) (*FilePhy, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	stride := int64(info.BytesPerPage() + info.BytesPerSpareArea)
	total := stride * int64(info.NumBlocks) * int64(info.PagesPerBlock())
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() < total {
		if err := f.Truncate(total); err != nil {
			f.Close()
			return nil, err
		}
	}
	return &FilePhy{f: f, info: info, pageStride: stride}, nil
}

func (p *FilePhy) pageOffset(pageIndex int) int64 { return int64(pageIndex) * p.pageStride }

// InitGetDeviceInfo implements Phy.
func (p *FilePhy) InitGetDeviceInfo(out *DeviceInfo) error {
	*out = p.info
	return nil
}

// Read implements Phy.
func (p *FilePhy) Read(pageIndex int, buf []byte, offInPage, numBytes int) error {
	return p.ReadEx(pageIndex, buf, offInPage, numBytes, nil, 0, 0)
}

// ReadEx implements Phy.
func (p *FilePhy) ReadEx(pageIndex int, main []byte, offMain, numMain int, spare []byte, offSpare, numSpare int) error {
	base := p.pageOffset(pageIndex)
	if numMain > 0 {
		if _, err := p.f.ReadAt(main[:numMain], base+int64(offMain)); err != nil {
			return fmt.Errorf("phy: read page %d main: %w", pageIndex, err)
		}
	}
	if numSpare > 0 {
		spareBase := base + int64(p.info.BytesPerPage())
		if _, err := p.f.ReadAt(spare[:numSpare], spareBase+int64(offSpare)); err != nil {
			return fmt.Errorf("phy: read page %d spare: %w", pageIndex, err)
		}
	}
	return nil
}

// Write implements Phy.
func (p *FilePhy) Write(pageIndex int, buf []byte, offInPage, numBytes int) error {
	return p.WriteEx(pageIndex, buf, offInPage, numBytes, nil, 0, 0)
}

// WriteEx implements Phy.
func (p *FilePhy) WriteEx(pageIndex int, main []byte, offMain, numMain int, spare []byte, offSpare, numSpare int) error {
	if p.wp {
		return fmt.Errorf("phy: device is write-protected")
	}
	base := p.pageOffset(pageIndex)
	if numMain > 0 {
		if _, err := p.f.WriteAt(main[:numMain], base+int64(offMain)); err != nil {
			return fmt.Errorf("phy: write page %d main: %w", pageIndex, err)
		}
	}
	if numSpare > 0 {
		spareBase := base + int64(p.info.BytesPerPage())
		if _, err := p.f.WriteAt(spare[:numSpare], spareBase+int64(offSpare)); err != nil {
			return fmt.Errorf("phy: write page %d spare: %w", pageIndex, err)
		}
	}
	return p.f.Sync()
}

// EraseBlock implements Phy by writing 0xFF over every page of the block
// and punching a hole for the same range so the backing file need not
// keep disk space allocated for blocks the translation layer considers
// free.
func (p *FilePhy) EraseBlock(firstPageIndexOfBlock int) error {
	if p.wp {
		return fmt.Errorf("phy: device is write-protected")
	}
	n := p.info.PagesPerBlock()
	blockBytes := p.pageStride * int64(n)
	blockOff := p.pageOffset(firstPageIndexOfBlock)

	blank := make([]byte, p.pageStride)
	for i := range blank {
		blank[i] = 0xFF
	}
	for i := 0; i < n; i++ {
		if _, err := p.f.WriteAt(blank, blockOff+int64(i)*p.pageStride); err != nil {
			return fmt.Errorf("phy: erase block at page %d: %w", firstPageIndexOfBlock, err)
		}
	}
	if err := p.f.Sync(); err != nil {
		return err
	}
	// Best-effort: reclaim the underlying disk space for the erased
	// range. Not every filesystem supports this; ignore failures.
	_ = fileutil.PunchHole(p.f, blockOff, blockBytes)
	return nil
}

// IsWP implements Phy.
func (p *FilePhy) IsWP() bool { return p.wp }

// SetWP sets or clears write protection.
func (p *FilePhy) SetWP(on bool) { p.wp = on }

// DeInit implements Phy.
func (p *FilePhy) DeInit() error { return p.f.Close() }
