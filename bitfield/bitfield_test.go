// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bitfield

import (
	"math/rand"
	"testing"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10000; i++ {
		width := uint(1 + rng.Intn(56))
		off := uint(rng.Intn(64))
		buf := make([]byte, (off+width+7)/8+2)
		rng.Read(buf)
		orig := append([]byte(nil), buf...)

		var v uint64
		if width < 64 {
			v = rng.Uint64() & (1<<width - 1)
		} else {
			v = rng.Uint64()
		}

		Pack(buf, off, width, v)
		if g, e := Unpack(buf, off, width), v; g != e {
			t.Fatalf("width %d off %d: got %#x, want %#x", width, off, g, e)
		}

		// Bytes outside the field must be untouched.
		for j := range buf {
			bitLo, bitHi := j*8, j*8+7
			if bitHi < int(off) || bitLo >= int(off+width) {
				if buf[j] != orig[j] {
					t.Fatalf("byte %d outside field [%d,%d) modified: %#x -> %#x", j, off, off+width, orig[j], buf[j])
				}
			}
		}
	}
}

func TestPackEdgeWidths(t *testing.T) {
	buf := make([]byte, 4)
	Pack(buf, 0, 32, 0xDEADBEEF)
	if g, e := Unpack(buf, 0, 32), uint64(0xDEADBEEF); g != e {
		t.Fatal(g, e)
	}

	buf2 := make([]byte, 2)
	Pack(buf2, 4, 4, 0xA)
	if g, e := buf2[0], byte(0x0A); g != e {
		t.Fatal(g, e)
	}
}

func TestNibble(t *testing.T) {
	b := []byte{0x00}
	PackNibble(b, 0, true, 0xE)
	PackNibble(b, 0, false, 0x3)
	if g, e := b[0], byte(0xE3); g != e {
		t.Fatal(g, e)
	}
	if g, e := UnpackNibble(b, 0, true), byte(0xE); g != e {
		t.Fatal(g, e)
	}
	if g, e := UnpackNibble(b, 0, false), byte(0x3); g != e {
		t.Fatal(g, e)
	}
}

func TestPackPanicsOnOverflow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Pack(make([]byte, 1), 0, 4, 0x10)
}

func TestPackPanicsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Pack(make([]byte, 1), 4, 8, 0)
}
