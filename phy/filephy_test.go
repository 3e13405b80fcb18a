// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package phy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFilePhyWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "device.img")
	info := testDeviceInfo()

	p, err := NewFilePhy(path, info)
	if err != nil {
		t.Fatal(err)
	}
	defer p.DeInit()

	main := make([]byte, info.BytesPerPage())
	for i := range main {
		main[i] = byte(i)
	}
	spare := make([]byte, info.BytesPerSpareArea)
	for i := range spare {
		spare[i] = byte(0xB0 + i%16)
	}

	if err := p.WriteEx(7, main, 0, len(main), spare, 0, len(spare)); err != nil {
		t.Fatal(err)
	}

	gotMain := make([]byte, info.BytesPerPage())
	gotSpare := make([]byte, info.BytesPerSpareArea)
	if err := p.ReadEx(7, gotMain, 0, len(gotMain), gotSpare, 0, len(gotSpare)); err != nil {
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

func TestFilePhyPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "device.img")
	info := testDeviceInfo()

	p, err := NewFilePhy(path, info)
	if err != nil {
		t.Fatal(err)
	}
	main := make([]byte, info.BytesPerPage())
	main[0] = 0x7E
	if err := p.Write(1, main, 0, len(main)); err != nil {
		t.Fatal(err)
	}
	if err := p.DeInit(); err != nil {
		t.Fatal(err)
	}

	p2, err := NewFilePhy(path, info)
	if err != nil {
		t.Fatal(err)
	}
	defer p2.DeInit()

	got := make([]byte, info.BytesPerPage())
	if err := p2.Read(1, got, 0, len(got)); err != nil {
		t.Fatal(err)
	}
	if g, e := got[0], byte(0x7E); g != e {
		t.Fatal(g, e)
	}
}

func TestFilePhyWriteProtected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "device.img")
	info := testDeviceInfo()

	p, err := NewFilePhy(path, info)
	if err != nil {
		t.Fatal(err)
	}
	defer p.DeInit()

	p.SetWP(true)
	if !p.IsWP() {
		t.Fatal("expected IsWP true")
	}
	buf := make([]byte, info.BytesPerPage())
	if err := p.Write(0, buf, 0, len(buf)); err == nil {
		t.Fatal("expected error writing to write-protected device")
	}
}

func TestFilePhyGrowsExistingSmallerFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "device.img")
	if err := os.WriteFile(path, []byte{0, 1, 2}, 0644); err != nil {
		t.Fatal(err)
	}
	info := testDeviceInfo()
	p, err := NewFilePhy(path, info)
	if err != nil {
		t.Fatal(err)
	}
	defer p.DeInit()

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	want := int64(info.BytesPerPage()+info.BytesPerSpareArea) * int64(info.NumBlocks) * int64(info.PagesPerBlock())
	if g, e := fi.Size(), want; g != e {
		t.Fatal(g, e)
	}
}
