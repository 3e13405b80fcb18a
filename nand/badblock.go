// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

import (
	"encoding/binary"

	"nandtl/phy"
)

// badBlockSig is the ASCII signature written into a driver-marked bad
// block, distinguishing it from a factory-marked defect (which the phy
// reports directly through InitGetDeviceInfo/read errors rather than
// through this signature).
var badBlockSig = [4]byte{'N', 'B', 'A', 'D'}

const markerLen = 8 // 4-byte signature + 2-byte error kind + 2-byte error BRSI

// markingPages returns, for a given marking convention, the page offsets
// within a block (or block group) that must carry the signature. Several
// NAND vendors disagree about which page(s) a factory defect marker lives
// on, so the driver has to mirror whichever convention the device in hand
// actually uses when it writes its own markers.
func markingPages(conv phy.BadBlockMarking, pagesPerBlock int) []int {
	switch conv {
	case phy.BBMFirstPage:
		return []int{0}
	case phy.BBMFirstAndLastPage, phy.BBMFirstAndLastPageWithDuplicateMark:
		return []int{0, pagesPerBlock - 1}
	case phy.BBMFirstAndSecondPage:
		return []int{0, 1}
	case phy.BBMFirstSecondAndLastPage:
		return []int{0, 1, pagesPerBlock - 1}
	default:
		return []int{0}
	}
}

func markerOffset(spareLen int) int { return spareLen - markerLen }

// MarkBlockBad writes the driver bad-block signature, errorKind and
// errorBRSI into every page markingPages names for pbi's block group, with
// hardware ECC disabled so the marker stays legible over a block too
// damaged for its ECC to be trusted.
func MarkBlockBad(p phy.Phy, info phy.DeviceInfo, pbi PBI, errorKind FatalKind, errorBRSI BRSI) error {
	if raw, ok := p.(phy.RawModePhy); ok {
		if err := raw.SetRawMode(true); err != nil {
			return err
		}
		defer raw.SetRawMode(false)
	}

	marker := make([]byte, markerLen)
	copy(marker[0:4], badBlockSig[:])
	binary.BigEndian.PutUint16(marker[4:6], uint16(errorKind))
	binary.BigEndian.PutUint16(marker[6:8], uint16(errorBRSI))

	duplicate := info.BadBlockMarking == phy.BBMFirstAndLastPageWithDuplicateMark
	off := markerOffset(info.BytesPerSpareArea)

	spareBuf := marker
	writeOff := off
	if duplicate {
		spareBuf = make([]byte, 2*markerLen)
		copy(spareBuf[0:markerLen], marker)
		copy(spareBuf[markerLen:], marker)
		writeOff = off - markerLen
	}

	base := int(pbi) * info.PagesPerBlock()
	for _, pg := range markingPages(info.BadBlockMarking, info.PagesPerBlock()) {
		if err := p.WriteEx(base+pg, nil, 0, 0, spareBuf, writeOff, len(spareBuf)); err != nil {
			return err
		}
	}
	return nil
}

// IsBlockBad reports whether pbi carries a driver bad-block signature on
// any of the pages its marking convention uses, read with hardware ECC
// disabled.
func IsBlockBad(p phy.Phy, info phy.DeviceInfo, pbi PBI) (bool, error) {
	if raw, ok := p.(phy.RawModePhy); ok {
		if err := raw.SetRawMode(true); err != nil {
			return false, err
		}
		defer raw.SetRawMode(false)
	}

	off := markerOffset(info.BytesPerSpareArea)
	buf := make([]byte, markerLen)
	base := int(pbi) * info.PagesPerBlock()
	for _, pg := range markingPages(info.BadBlockMarking, info.PagesPerBlock()) {
		if err := p.ReadEx(base+pg, nil, 0, 0, buf, off, len(buf)); err != nil {
			return false, err
		}
		if buf[0] == badBlockSig[0] && buf[1] == badBlockSig[1] && buf[2] == badBlockSig[2] && buf[3] == badBlockSig[3] {
			return true, nil
		}
	}
	return false, nil
}

// BadBlockInfo decodes the error kind and BRSI recorded by MarkBlockBad,
// for diagnostics.
func BadBlockInfo(p phy.Phy, info phy.DeviceInfo, pbi PBI) (kind FatalKind, errBRSI BRSI, found bool, err error) {
	if raw, ok := p.(phy.RawModePhy); ok {
		if err = raw.SetRawMode(true); err != nil {
			return
		}
		defer raw.SetRawMode(false)
	}
	off := markerOffset(info.BytesPerSpareArea)
	buf := make([]byte, markerLen)
	base := int(pbi) * info.PagesPerBlock()
	for _, pg := range markingPages(info.BadBlockMarking, info.PagesPerBlock()) {
		if err = p.ReadEx(base+pg, nil, 0, 0, buf, off, len(buf)); err != nil {
			return
		}
		if buf[0] == badBlockSig[0] && buf[1] == badBlockSig[1] && buf[2] == badBlockSig[2] && buf[3] == badBlockSig[3] {
			kind = FatalKind(binary.BigEndian.Uint16(buf[4:6]))
			errBRSI = BRSI(binary.BigEndian.Uint16(buf[6:8]))
			found = true
			return
		}
	}
	return
}
