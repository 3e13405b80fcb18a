// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ecc

import "math/bits"

// HammingEngine is a single-bit-correcting, double-bit-detecting (SECDED)
// extended Hamming code over a block of main-area bytes plus the spare
// metadata bytes that travel alongside it in the same stripe. It never
// allocates in Calc/Apply: all scratch state is the caller's stack.
type HammingEngine struct {
	ldBlock   uint
	parityLen int // number of parity bits, excluding the overall parity bit
	eccBytes  int
}

// NewHammingEngine returns an Engine protecting 1<<ldBlock bytes of main
// area with a SECDED Hamming code. maxSpareMetaBytes bounds how many spare
// metadata bytes Calc/Apply may be asked to cover in the same stripe;
// ldBlock must be in [3, 16] (8 bytes .. 64KiB).
func NewHammingEngine(ldBlock uint, maxSpareMetaBytes int) *HammingEngine {
	if ldBlock < 3 || ldBlock > 16 {
		panic("ecc: ldBlock out of range")
	}
	if maxSpareMetaBytes < 0 {
		panic("ecc: negative maxSpareMetaBytes")
	}

	dataBits := (1<<ldBlock)*8 + maxSpareMetaBytes*8
	r := parityBitsNeeded(dataBits)
	// +1 for the overall (extended) parity bit, rounded up to whole bytes.
	eccBits := r + 1
	eccBytes := (eccBits + 7) / 8

	return &HammingEngine{ldBlock: ldBlock, parityLen: r, eccBytes: eccBytes}
}

func parityBitsNeeded(dataBits int) int {
	r := 0
	for (1<<r) < dataBits+r+1 {
		r++
	}
	return r
}

func (h *HammingEngine) NumBitsCorrectable() int { return 1 }
func (h *HammingEngine) LdBytesPerBlock() uint   { return h.ldBlock }
func (h *HammingEngine) ECCBytesPerBlock() int   { return h.eccBytes }

func (h *HammingEngine) totalBits(payloadBits int) int {
	return payloadBits + h.parityLen
}

// Calc implements Engine. ecc must be exactly h.ECCBytesPerBlock() long.
func (h *HammingEngine) Calc(main []byte, spareMeta []byte, ecc []byte) {
	for i := range ecc {
		ecc[i] = 0
	}

	payloadBits := len(main)*8 + len(spareMeta)*8
	total := h.totalBits(payloadBits)

	var overall byte
	for p := 1; p <= h.parityLen; p++ {
		parityPos := 1 << uint(p-1)
		var v byte
		for pos := 1; pos <= total; pos++ {
			if pos&parityPos == 0 {
				continue
			}
			if pos&(pos-1) == 0 {
				continue // skip parity positions themselves
			}
			v ^= bitAt(main, spareMeta, pos)
		}
		if v != 0 {
			ecc[p/8] |= 1 << uint(p%8)
		}
	}

	// Overall parity over every data bit and every parity bit just computed.
	for pos := 1; pos <= total; pos++ {
		if pos&(pos-1) == 0 {
			continue
		}
		overall ^= bitAt(main, spareMeta, pos)
	}
	for p := 1; p <= h.parityLen; p++ {
		bitIdx := p
		byteIdx := bitIdx / 8
		if ecc[byteIdx]>>uint(bitIdx%8)&1 != 0 {
			overall ^= 1
		}
	}
	// The overall parity bit lives at bit 0 of ecc[0], which no Hamming
	// parity bit uses (those occupy bits 1..parityLen).
	if overall != 0 {
		ecc[0] |= 1
	}
}

func bitAt(main, spareMeta []byte, pos int) byte {
	dataIdx := pos - bits.Len(uint(pos)) - 1
	if dataIdx < len(main)*8 {
		return (main[dataIdx/8] >> (7 - uint(dataIdx%8))) & 1
	}
	dataIdx -= len(main) * 8
	if dataIdx < len(spareMeta)*8 {
		return (spareMeta[dataIdx/8] >> (7 - uint(dataIdx%8))) & 1
	}
	return 0
}

// Apply implements Engine.
func (h *HammingEngine) Apply(main []byte, ecc []byte, spareMeta []byte) Result {
	payloadBits := len(main)*8 + len(spareMeta)*8
	total := h.totalBits(payloadBits)

	var want [32]byte // scratch, sized generously; ldBlock<=16 keeps eccBytes small
	wantECC := want[:h.eccBytes]
	h.Calc(main, spareMeta, wantECC)

	syndrome := 0
	for p := 1; p <= h.parityLen; p++ {
		bitIdx := p
		gotBit := ecc[bitIdx/8] >> uint(bitIdx%8) & 1
		wantBit := wantECC[bitIdx/8] >> uint(bitIdx%8) & 1
		if gotBit != wantBit {
			syndrome |= 1 << uint(p-1)
		}
	}

	overallGot := ecc[0] & 1
	overallWant := wantECC[0] & 1
	// wantECC's overall bit covers the recomputed parity bits; the received
	// parity bits differ from those exactly at the syndrome's set bits, so
	// fold that difference in before comparing.
	overallMismatch := (overallGot != overallWant) != (bits.OnesCount(uint(syndrome))%2 == 1)

	switch {
	case syndrome == 0 && !overallMismatch:
		return Result{Outcome: NoError}
	case syndrome != 0 && overallMismatch:
		// Single-bit error somewhere in the codeword; correct it.
		if syndrome > total {
			return Result{Outcome: UncorrectableError}
		}
		if syndrome&(syndrome-1) == 0 {
			// Error is in one of the parity bits themselves, stored in
			// the ECC bytes; main is untouched.
			return Result{Outcome: ErrorInECC}
		}
		cur := bitAt(main, spareMeta, syndrome)
		setDataBit(main, spareMeta, syndrome, cur^1)
		return Result{Outcome: Corrected, BitsCorrected: 1}
	case syndrome != 0 && !overallMismatch:
		// Two-bit error: syndrome nonzero but overall parity agrees.
		return Result{Outcome: UncorrectableError}
	default:
		// syndrome == 0 but overall mismatches: the overall parity bit
		// itself flipped.
		return Result{Outcome: ErrorInECC}
	}
}

func setDataBit(main, spareMeta []byte, pos int, v byte) {
	dataIdx := pos - bits.Len(uint(pos)) - 1
	if dataIdx < len(main)*8 {
		mask := byte(1) << (7 - uint(dataIdx%8))
		if v != 0 {
			main[dataIdx/8] |= mask
		} else {
			main[dataIdx/8] &^= mask
		}
		return
	}
	dataIdx -= len(main) * 8
	if dataIdx < len(spareMeta)*8 {
		mask := byte(1) << (7 - uint(dataIdx%8))
		if v != 0 {
			spareMeta[dataIdx/8] |= mask
		} else {
			spareMeta[dataIdx/8] &^= mask
		}
	}
}

