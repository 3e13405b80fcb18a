// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

import (
	"bytes"
	"testing"

	"nandtl/phy"
)

func testDeviceInfo() phy.DeviceInfo {
	return phy.DeviceInfo{
		BytesPerPageLd:    11, // 2048, splitting into 4 512-byte ECC stripes
		BytesPerSpareArea: 64,
		PagesPerBlockLd:   4, // 16
		NumBlocks:         48,
	}
}

func testOptions() Options {
	o := DefaultOptions()
	o.NumWorkBlocks = 3
	o.PctBlocksReserved = 2
	o.NumBlocksFree = 0
	o.NumSectorsFree = 0
	return o
}

func TestMountRequiresFormat(t *testing.T) {
	p := phy.NewSimPhy(testDeviceInfo())
	if _, err := Mount(p, testOptions()); err == nil {
		t.Fatal("expected ErrRequiresFormat on an unformatted device")
	} else if _, ok := err.(*ErrRequiresFormat); !ok {
		t.Fatalf("got %T, want *ErrRequiresFormat", err)
	}
}

func TestFormatThenMountIsEmpty(t *testing.T) {
	p := phy.NewSimPhy(testDeviceInfo())
	if err := Format(p, testOptions()); err != nil {
		t.Fatal(err)
	}
	d, err := Mount(p, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if d.HasFatalError() {
		t.Fatal("freshly formatted device should not have a fatal error")
	}
	if d.IsWriteProtected() {
		t.Fatal("freshly formatted device should not be write-protected")
	}
	if d.NumSectors() <= 0 {
		t.Fatalf("expected a positive sector count, got %d", d.NumSectors())
	}
}

func TestWriteReadRoundTripAcrossRemount(t *testing.T) {
	p := phy.NewSimPhy(testDeviceInfo())
	opts := testOptions()
	// A high NumSectorsFree makes writeLogSector's eager-conversion check
	// trip on the second sector written to the same work block, so this
	// test exercises the committed-DATA-block path of lowLevelMountScan
	// rather than loadWorkBlock's.
	opts.NumSectorsFree = 15
	if err := Format(p, opts); err != nil {
		t.Fatal(err)
	}
	d, err := Mount(p, opts)
	if err != nil {
		t.Fatal(err)
	}

	ss := d.SectorSize()
	want0 := bytes.Repeat([]byte{0xAB}, ss)
	want1 := bytes.Repeat([]byte{0xCD}, ss)
	if err := d.WriteSectors(0, want0, 1, false); err != nil {
		t.Fatal(err)
	}
	if err := d.WriteSectors(1, want1, 1, false); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, ss)
	if err := d.ReadSectors(0, got, 1); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want0) {
		t.Fatalf("read back %x, want %x", got, want0)
	}
	if err := d.ReadSectors(1, got, 1); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want1) {
		t.Fatalf("read back %x, want %x", got, want1)
	}

	d2, err := Mount(p, opts)
	if err != nil {
		t.Fatal(err)
	}
	got2 := make([]byte, ss)
	if err := d2.ReadSectors(0, got2, 1); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got2, want0) {
		t.Fatalf("after remount: read back %x, want %x", got2, want0)
	}
	if err := d2.ReadSectors(1, got2, 1); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got2, want1) {
		t.Fatalf("after remount: read back %x, want %x", got2, want1)
	}
}

func TestWriteSurvivesRemountWithoutClean(t *testing.T) {
	p := phy.NewSimPhy(testDeviceInfo())
	opts := testOptions()
	if err := Format(p, opts); err != nil {
		t.Fatal(err)
	}
	d, err := Mount(p, opts)
	if err != nil {
		t.Fatal(err)
	}

	ss := d.SectorSize()
	want := bytes.Repeat([]byte{0x5A}, ss)
	if err := d.WriteSectors(2, want, 1, false); err != nil {
		t.Fatal(err)
	}

	// Remount while the sector still lives in a work block, exercising
	// loadWorkBlock's assignment-table reconstruction.
	d2, err := Mount(p, opts)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]byte, ss)
	if err := d2.ReadSectors(2, got, 1); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("after remount: read back %x, want %x", got, want)
	}
}
