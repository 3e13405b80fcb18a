// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spare

import "testing"

func newTestArea() *Area {
	return NewArea(make([]byte, 4*16), 4) // 4 stripes, 16 bytes each
}

func TestBlockInfoPageFields(t *testing.T) {
	a := newTestArea()

	a.SetBlockStat(0x00)
	a.SetEraseCnt(1234)
	a.SetLBI(77)
	a.SetBlockType(BlockTypeWork)
	a.SetBlockCnt(3)
	a.SetSectorStat(SectorWritten)
	a.SetMergeCnt(9)
	a.SetBRSI(1)
	a.SetNumSectors(63)

	if g, e := a.BlockStat(), byte(0x00); g != e {
		t.Fatal(g, e)
	}
	if g, e := a.EraseCnt(), uint32(1234); g != e {
		t.Fatal(g, e)
	}
	if g, e := a.LBI(), uint16(77); g != e {
		t.Fatal(g, e)
	}
	if g, e := a.BlockType(), BlockTypeWork; g != e {
		t.Fatal(g, e)
	}
	if g, e := a.BlockCnt(), byte(3); g != e {
		t.Fatal(g, e)
	}
	if g, e := a.SectorStat(), SectorWritten; g != e {
		t.Fatal(g, e)
	}
	if g, e := a.MergeCnt(), byte(9); g != e {
		t.Fatal(g, e)
	}
	if g, e := a.BRSI(), uint16(1); g != e {
		t.Fatal(g, e)
	}
	if g, e := a.NumSectors(), uint16(63); g != e {
		t.Fatal(g, e)
	}
}

func TestBlockTypeAndBlockCntShareByteIndependently(t *testing.T) {
	a := newTestArea()
	a.SetBlockType(BlockTypeData)
	a.SetBlockCnt(0xA)
	if g, e := a.BlockType(), BlockTypeData; g != e {
		t.Fatal(g, e)
	}
	if g, e := a.BlockCnt(), byte(0xA); g != e {
		t.Fatal(g, e)
	}

	// Changing one nibble must not disturb the other.
	a.SetBlockType(BlockTypeEmpty)
	if g, e := a.BlockCnt(), byte(0xA); g != e {
		t.Fatal(g, e)
	}
}

func TestSectorStatAndMergeCntShareByteIndependently(t *testing.T) {
	a := newTestArea()
	a.SetSectorStat(SectorEmpty)
	a.SetMergeCnt(0x5)
	if g, e := a.SectorStat(), SectorEmpty; g != e {
		t.Fatal(g, e)
	}
	if g, e := a.MergeCnt(), byte(0x5); g != e {
		t.Fatal(g, e)
	}

	a.SetMergeCnt(0x1)
	if g, e := a.SectorStat(), SectorEmpty; g != e {
		t.Fatal(g, e)
	}
}

func TestDataCRC(t *testing.T) {
	a := newTestArea()
	a.SetDataCRC(0xCAFEBABE)
	if g, e := a.DataCRC(), uint32(0xCAFEBABE); g != e {
		t.Fatal(g, e)
	}
}

func TestSpareMetaIsECCCoveredWindow(t *testing.T) {
	a := newTestArea()
	a.SetEraseCnt(0x11223344)
	meta := a.SpareMeta(0)
	if g, e := len(meta), 4; g != e {
		t.Fatal(g, e)
	}
	if g, e := meta[0], byte(0x11); g != e {
		t.Fatal(g, e)
	}

	// BlockStat lives at offset 0, outside the ECC-covered window.
	a.SetBlockStat(0xFF)
	if g, e := meta[0], byte(0x11); g != e {
		t.Fatalf("BlockStat write leaked into SpareMeta: %#x", g)
	}
}

func TestMainChunk(t *testing.T) {
	main := make([]byte, 2048)
	for i := range main {
		main[i] = byte(i)
	}
	c := MainChunk(main, 9, 1) // 512-byte chunk, second stripe
	if g, e := len(c), 512; g != e {
		t.Fatal(g, e)
	}
	if g, e := c[0], byte(512%256); g != e {
		t.Fatal(g, e)
	}
}

func TestNewAreaPanicsOnBadSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewArea(make([]byte, 10), 4)
}

func TestNewAreaPanicsOnTooSmallStripe(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewArea(make([]byte, 4*4), 4) // 4-byte stripes, below headerBytes
}
