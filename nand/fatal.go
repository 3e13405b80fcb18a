// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

import "encoding/binary"

// errorInfoBRSI is the page within the reserved control block (PBI 0 of
// the partition, i.e. physical block d.firstBlock) that the fatal-error
// handler persists to, per §4.12 step 2 and §4.14 step 2.
const errorInfoBRSI BRSI = 1

// errorInfoLen is the encoded size of the error-info page payload:
// IsWriteProtected (1), HasFatalError (1), ErrorType (2, BE), reserved
// padding (4), ErrorSectorIndex (8, BE).
const errorInfoLen = 16

// fatal runs the fatal-error handler (§4.12, §7): it records the error
// in memory, switches the device to read-only mode (enterReadOnlyOnFatal
// always allows it) and persists an error-info page to the reserved control block so a later
// mount finds the device already write-protected. It always returns an
// *ErrFatal describing kind, so callers can simply `return d.fatal(...)`.
func (d *Device) fatal(kind FatalKind, sectorIndex int64, cause error) error {
	if !d.hasFatalError {
		d.hasFatalError = true
		d.errorKind = kind
		d.errorSectorIndex = sectorIndex

		if d.enterReadOnlyOnFatal() {
			d.writeProtected = true
			_ = d.writeErrorInfoPage()
		}
	}
	return &ErrFatal{Kind: kind, SectorIndex: sectorIndex, More: cause}
}

// enterReadOnlyOnFatal decides whether a fatal error should flip the
// device read-only. There is no registered policy callback in this core
// (§4.12 mentions one only as an optional hook for the file-system layer
// above); the default, and only, behavior here is to always enter
// read-only mode.
func (d *Device) enterReadOnlyOnFatal() bool { return true }

// writeErrorInfoPage persists IsWriteProtected/HasFatalError/ErrorType/
// ErrorSectorIndex to the reserved control block so Mount can restore this
// state after a remount (§4.14 step 2). This bypasses the normal
// ECC-striped page codec: the control block is outside the managed
// allocator range and is written/read as a plain page, matching how
// format-info is handled.
func (d *Device) writeErrorInfoPage() error {
	buf := make([]byte, errorInfoLen)
	if d.writeProtected {
		buf[0] = 1
	}
	if d.hasFatalError {
		buf[1] = 1
	}
	binary.BigEndian.PutUint16(buf[2:4], uint16(d.errorKind))
	binary.BigEndian.PutUint64(buf[8:16], uint64(d.errorSectorIndex))
	idx := d.pageIndex(d.firstBlock, errorInfoBRSI)
	return d.phy.Write(idx, buf, 0, len(buf))
}

// readErrorInfoPage restores write-protection and fatal-error state from
// the reserved control block at mount time. A read or decode failure is
// treated as "no error recorded", since a freshly formatted device has
// never written this page.
func (d *Device) readErrorInfoPage() {
	buf := make([]byte, errorInfoLen)
	idx := d.pageIndex(d.firstBlock, errorInfoBRSI)
	if err := d.phy.Read(idx, buf, 0, len(buf)); err != nil {
		return
	}
	wp := buf[0] == 1
	fatalFlag := buf[1] == 1
	if !wp && !fatalFlag {
		return
	}
	d.writeProtected = wp
	d.hasFatalError = fatalFlag
	d.errorKind = FatalKind(binary.BigEndian.Uint16(buf[2:4]))
	d.errorSectorIndex = int64(binary.BigEndian.Uint64(buf[8:16]))
}
