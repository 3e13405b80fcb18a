// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

import "fmt"

// ErrInvalidArg reports that a caller-supplied argument is out of range or
// otherwise malformed, carrying the offending value for diagnosis.
type ErrInvalidArg struct {
	Msg string
	Arg interface{}
}

func (e *ErrInvalidArg) Error() string {
	return fmt.Sprintf("nand: invalid argument: %s (%v)", e.Msg, e.Arg)
}

// CorruptKind classifies what ErrCorrupt found wrong.
type CorruptKind int

const (
	CorruptECC           CorruptKind = iota // uncorrectable ECC over a page
	CorruptBlockInfo                        // block-info page (BRSI 1) fails to parse
	CorruptDuplicateLBI                     // two DATA blocks claim the same LBI with equal BlockCnt
	CorruptAssignment                       // work-block assignment table entry out of range
	CorruptMergeSentinel                    // block-grouping merge-completed sentinel missing/invalid
)

func (k CorruptKind) String() string {
	switch k {
	case CorruptECC:
		return "CorruptECC"
	case CorruptBlockInfo:
		return "CorruptBlockInfo"
	case CorruptDuplicateLBI:
		return "CorruptDuplicateLBI"
	case CorruptAssignment:
		return "CorruptAssignment"
	case CorruptMergeSentinel:
		return "CorruptMergeSentinel"
	default:
		return fmt.Sprintf("CorruptKind(%d)", int(k))
	}
}

// ErrCorrupt reports data that failed validation at the PBI/BRSI named.
type ErrCorrupt struct {
	Type CorruptKind
	PBI  int
	BRSI int
	Arg  int64
}

func (e *ErrCorrupt) Error() string {
	return fmt.Sprintf("nand: corrupt data: %s at pbi=%d brsi=%d arg=%d", e.Type, e.PBI, e.BRSI, e.Arg)
}

// FatalKind classifies the condition that tripped the fatal-error handler.
type FatalKind int

const (
	FatalNone FatalKind = iota
	FatalOutOfFreeBlocks
	FatalUncorrectableRead
	FatalWriteFailed
	FatalEraseFailed
	FatalMountInconsistent
)

func (k FatalKind) String() string {
	switch k {
	case FatalNone:
		return "FatalNone"
	case FatalOutOfFreeBlocks:
		return "FatalOutOfFreeBlocks"
	case FatalUncorrectableRead:
		return "FatalUncorrectableRead"
	case FatalWriteFailed:
		return "FatalWriteFailed"
	case FatalEraseFailed:
		return "FatalEraseFailed"
	case FatalMountInconsistent:
		return "FatalMountInconsistent"
	default:
		return fmt.Sprintf("FatalKind(%d)", int(k))
	}
}

// ErrFatal reports that the device has entered the fatal-error, read-only
// state described in the design notes on error handling. Once set the
// state is sticky for the lifetime of the mounted Device: the handler also
// sets write protection, so subsequent writes fail with ErrWriteProtected,
// while reads keep working.
type ErrFatal struct {
	Kind        FatalKind
	SectorIndex int64
	More        error
}

func (e *ErrFatal) Error() string {
	if e.More != nil {
		return fmt.Sprintf("nand: fatal error %s at sector %d: %v", e.Kind, e.SectorIndex, e.More)
	}
	return fmt.Sprintf("nand: fatal error %s at sector %d", e.Kind, e.SectorIndex)
}

func (e *ErrFatal) Unwrap() error { return e.More }

// ErrOutOfFreeBlocks means the allocator could not satisfy a block
// allocation request; no free, non-bad block remains.
type ErrOutOfFreeBlocks struct{}

func (e *ErrOutOfFreeBlocks) Error() string { return "nand: out of free blocks" }

// ErrWriteProtected is returned by every write-path operation once the
// device has been placed (or found, at mount) in read-only mode.
type ErrWriteProtected struct{}

func (e *ErrWriteProtected) Error() string { return "nand: device is write-protected" }

// ErrRequiresFormat is returned by Mount when the device has never been
// low-level formatted (or its format-info page is unreadable or does not
// match this format version and the device geometry), and by
// cmd/nandctl's stat subcommand to tell an operator a format is needed
// before mount will succeed.
type ErrRequiresFormat struct{}

func (e *ErrRequiresFormat) Error() string { return "nand: device requires low-level format" }
