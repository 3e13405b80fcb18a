// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package phy

import "testing"

func testDeviceInfo() DeviceInfo {
	return DeviceInfo{
		BytesPerPageLd:    11, // 2048
		BytesPerSpareArea: 64,
		PagesPerBlockLd:   6, // 64
		NumBlocks:         16,
	}
}

func TestSimPhyEraseBlankReadsFF(t *testing.T) {
	s := NewSimPhy(testDeviceInfo())
	buf := make([]byte, 2048)
	if err := s.Read(5, buf, 0, len(buf)); err != nil {
		t.Fatal(err)
	}
	for i, b := range buf {
		if b != 0xFF {
			t.Fatalf("byte %d: got %#x, want 0xFF", i, b)
		}
	}
}

func TestSimPhyWriteReadRoundTrip(t *testing.T) {
	s := NewSimPhy(testDeviceInfo())
	main := make([]byte, 2048)
	for i := range main {
		main[i] = byte(i)
	}
	spare := make([]byte, 64)
	for i := range spare {
		spare[i] = byte(0xA0 + i%16)
	}

	if err := s.WriteEx(3, main, 0, len(main), spare, 0, len(spare)); err != nil {
		t.Fatal(err)
	}

	gotMain := make([]byte, 2048)
	gotSpare := make([]byte, 64)
	if err := s.ReadEx(3, gotMain, 0, len(gotMain), gotSpare, 0, len(gotSpare)); err != nil {
		t.Fatal(err)
	}
	for i := range main {
		if gotMain[i] != main[i] {
			t.Fatalf("main byte %d: got %#x, want %#x", i, gotMain[i], main[i])
		}
	}
	for i := range spare {
		if gotSpare[i] != spare[i] {
			t.Fatalf("spare byte %d: got %#x, want %#x", i, gotSpare[i], spare[i])
		}
	}
}

func TestSimPhyRejectsDoubleWriteWithoutErase(t *testing.T) {
	s := NewSimPhy(testDeviceInfo())
	buf := make([]byte, 2048)
	if err := s.Write(0, buf, 0, len(buf)); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(0, buf, 0, len(buf)); err == nil {
		t.Fatal("expected error on second write without erase")
	}
}

func TestSimPhyEraseClearsPage(t *testing.T) {
	s := NewSimPhy(testDeviceInfo())
	buf := make([]byte, 2048)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := s.Write(0, buf, 0, len(buf)); err != nil {
		t.Fatal(err)
	}
	if err := s.EraseBlock(0); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(0, buf, 0, len(buf)); err != nil {
		t.Fatal("write after erase should succeed:", err)
	}
}

func TestSimPhyFailAfter(t *testing.T) {
	s := NewSimPhy(testDeviceInfo())
	wantErr := errSentinel
	s.FailAfter(1, wantErr)

	buf := make([]byte, 2048)
	if err := s.Write(0, buf, 0, len(buf)); err != nil {
		t.Fatal("first call should succeed:", err)
	}
	if err := s.Write(1, buf, 0, len(buf)); err != wantErr {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}

func TestSimPhyInjectBitFlip(t *testing.T) {
	s := NewSimPhy(testDeviceInfo())
	main := make([]byte, 2048)
	if err := s.Write(2, main, 0, len(main)); err != nil {
		t.Fatal(err)
	}
	s.InjectBitFlip(2, false, 10, 3)

	got := make([]byte, 2048)
	if err := s.Read(2, got, 0, len(got)); err != nil {
		t.Fatal(err)
	}
	if g, e := got[10], byte(1<<3); g != e {
		t.Fatalf("byte 10: got %#x, want %#x", g, e)
	}
}

func TestSimPhySnapshotRestore(t *testing.T) {
	s := NewSimPhy(testDeviceInfo())
	main := make([]byte, 2048)
	main[0] = 0x5A
	if err := s.Write(4, main, 0, len(main)); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()

	if err := s.EraseBlock(0); err != nil {
		t.Fatal(err)
	}
	s.Restore(snap)

	got := make([]byte, 2048)
	if err := s.Read(4, got, 0, len(got)); err != nil {
		t.Fatal(err)
	}
	if g, e := got[0], byte(0x5A); g != e {
		t.Fatal(g, e)
	}
}

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

var errSentinel = sentinelError("phy: simulated failure")
