// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ecc

import (
	"math/rand"
	"testing"
)

func newTestBlock(rng *rand.Rand, ldBlock uint) (main, spareMeta []byte) {
	main = make([]byte, 1<<ldBlock)
	spareMeta = make([]byte, 4)
	rng.Read(main)
	rng.Read(spareMeta)
	return
}

func TestHammingNoError(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	h := NewHammingEngine(9, 8) // 512-byte block
	main, meta := newTestBlock(rng, 9)
	eccBuf := make([]byte, h.ECCBytesPerBlock())
	h.Calc(main, meta, eccBuf)

	res := h.Apply(main, eccBuf, meta)
	if g, e := res.Outcome, NoError; g != e {
		t.Fatal(g, e)
	}
}

func TestHammingSingleBitCorrected(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	h := NewHammingEngine(9, 8)
	for i := 0; i < 200; i++ {
		main, meta := newTestBlock(rng, 9)
		eccBuf := make([]byte, h.ECCBytesPerBlock())
		h.Calc(main, meta, eccBuf)

		orig := append([]byte(nil), main...)
		byteIdx := rng.Intn(len(main))
		bitIdx := uint(rng.Intn(8))
		main[byteIdx] ^= 1 << bitIdx

		res := h.Apply(main, eccBuf, meta)
		if g, e := res.Outcome, Corrected; g != e {
			t.Fatalf("iter %d: got %v, want %v", i, g, e)
		}
		if g, e := res.BitsCorrected, 1; g != e {
			t.Fatalf("iter %d: BitsCorrected got %d, want %d", i, g, e)
		}
		for j := range main {
			if main[j] != orig[j] {
				t.Fatalf("iter %d: byte %d not restored: got %#x want %#x", i, j, main[j], orig[j])
			}
		}
	}
}

func TestHammingSpareMetaBitCorrected(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	h := NewHammingEngine(9, 8)
	main, meta := newTestBlock(rng, 9)
	eccBuf := make([]byte, h.ECCBytesPerBlock())
	h.Calc(main, meta, eccBuf)

	orig := append([]byte(nil), meta...)
	meta[1] ^= 1 << 3

	res := h.Apply(main, eccBuf, meta)
	if g, e := res.Outcome, Corrected; g != e {
		t.Fatal(g, e)
	}
	for j := range meta {
		if meta[j] != orig[j] {
			t.Fatalf("byte %d not restored: got %#x want %#x", j, meta[j], orig[j])
		}
	}
}

func TestHammingECCBitFlip(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	h := NewHammingEngine(9, 8)
	main, meta := newTestBlock(rng, 9)
	eccBuf := make([]byte, h.ECCBytesPerBlock())
	h.Calc(main, meta, eccBuf)

	eccBuf[0] ^= 1 << 1 // flip parity bit p=1, stored at ecc[0] bit 1

	res := h.Apply(main, eccBuf, meta)
	if g, e := res.Outcome, ErrorInECC; g != e {
		t.Fatal(g, e)
	}
}

func TestHammingDoubleBitUncorrectable(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	h := NewHammingEngine(9, 8)
	main, meta := newTestBlock(rng, 9)
	eccBuf := make([]byte, h.ECCBytesPerBlock())
	h.Calc(main, meta, eccBuf)

	main[0] ^= 0x01
	main[10] ^= 0x01

	res := h.Apply(main, eccBuf, meta)
	if g, e := res.Outcome, UncorrectableError; g != e {
		t.Fatal(g, e)
	}
}

func TestHammineEngineSizes(t *testing.T) {
	for _, ldBlock := range []uint{3, 8, 9, 11, 16} {
		h := NewHammingEngine(ldBlock, 8)
		if g, e := h.LdBytesPerBlock(), ldBlock; g != e {
			t.Fatal(g, e)
		}
		if g, e := BlockSize(h), 1<<ldBlock; g != e {
			t.Fatal(g, e)
		}
		if h.ECCBytesPerBlock() <= 0 {
			t.Fatal("non-positive ECC size")
		}
		if h.NumBitsCorrectable() != 1 {
			t.Fatal(h.NumBitsCorrectable())
		}
	}
}

func TestHammingLdBlockPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewHammingEngine(2, 8)
}

func TestOutcomeString(t *testing.T) {
	cases := map[Outcome]string{
		NoError:            "NoError",
		Corrected:          "Corrected",
		UncorrectableError: "UncorrectableError",
		ErrorInECC:         "ErrorInECC",
		Outcome(99):        "Outcome(99)",
	}
	for o, want := range cases {
		if g, e := o.String(), want; g != e {
			t.Fatal(g, e)
		}
	}
}
