// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ecc computes and verifies error-correcting codes over NAND page
// data, with graduated outcomes (no error, corrected, uncorrectable, error in
// the ECC bytes themselves). HammingEngine is the only Engine provided; the
// package has no passthrough engine for hardware ECC.
package ecc

import "fmt"

// Outcome classifies the result of Engine.Apply.
type Outcome int

const (
	// NoError means main and the ECC bytes agree.
	NoError Outcome = iota
	// Corrected means one or more bit errors were found and fixed in main.
	Corrected
	// UncorrectableError means the block is damaged beyond repair.
	UncorrectableError
	// ErrorInECC means the ECC bytes themselves had a recoverable flip and
	// main is intact.
	ErrorInECC
)

func (o Outcome) String() string {
	switch o {
	case NoError:
		return "NoError"
	case Corrected:
		return "Corrected"
	case UncorrectableError:
		return "UncorrectableError"
	case ErrorInECC:
		return "ErrorInECC"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the outcome of Engine.Apply.
type Result struct {
	Outcome      Outcome
	BitsCorrected int
}

// Engine computes and verifies ECC over fixed-size blocks of page main-area
// data, storing/reading the code from a caller-supplied spare-area stripe.
//
// Implementations MUST NOT allocate in Calc or Apply; callers pass
// pre-sized, reusable buffers.
type Engine interface {
	// Calc computes the ECC over main plus the spare metadata bytes that
	// travel with it in the same stripe and writes it into ecc (sized
	// exactly ECCBytesPerBlock()). Implementations that don't cover
	// spare bytes (e.g. HW-ECC passthrough) ignore spareMeta.
	Calc(main []byte, spareMeta []byte, ecc []byte)

	// Apply verifies main against ecc, correcting in place when possible.
	Apply(main []byte, ecc []byte, spareMeta []byte) Result

	// NumBitsCorrectable is the maximum number of bit errors this engine
	// can correct per block.
	NumBitsCorrectable() int

	// LdBytesPerBlock is log2 of the number of main-area bytes one ECC
	// code protects.
	LdBytesPerBlock() uint

	// ECCBytesPerBlock is the size, in bytes, of one stripe's ECC code.
	ECCBytesPerBlock() int
}

// BlockSize returns 1<<e.LdBytesPerBlock().
func BlockSize(e Engine) int { return 1 << e.LdBytesPerBlock() }
