// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

import "testing"

func TestDataBlockIndexUnmappedByDefault(t *testing.T) {
	d := NewDataBlockIndex(4)
	if _, ok := d.PBI(2); ok {
		t.Fatal("expected lbi 2 unmapped")
	}
}

func TestDataBlockIndexSetClear(t *testing.T) {
	d := NewDataBlockIndex(4)
	d.SetPBI(2, 7)
	d.SetLastBRSI(2, 40)

	pbi, ok := d.PBI(2)
	if !ok || pbi != 7 {
		t.Fatalf("got (%d, %v), want (7, true)", pbi, ok)
	}
	brsi, ok := d.LastBRSI(2)
	if !ok || brsi != 40 {
		t.Fatalf("got (%d, %v), want (40, true)", brsi, ok)
	}

	d.Clear(2)
	if _, ok := d.PBI(2); ok {
		t.Fatal("expected lbi 2 unmapped after Clear")
	}
	if _, ok := d.LastBRSI(2); ok {
		t.Fatal("expected lastBRSI cleared after Clear")
	}
}

func TestMergeCntNewerWraps(t *testing.T) {
	cases := []struct {
		cand, cur byte
		want      bool
	}{
		{1, 0, true},
		{0, 15, true},
		{0, 0, false},
		{2, 0, false},
		{15, 0, false}, // the documented wrap ambiguity: delta 15 reads as -1, not +15
	}
	for _, c := range cases {
		if g, e := MergeCntNewer(c.cand, c.cur), c.want; g != e {
			t.Fatalf("MergeCntNewer(%d,%d): got %v, want %v", c.cand, c.cur, g, e)
		}
	}
}
