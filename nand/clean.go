// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nand

// SetCleanThreshold implements setCleanThreshold (§4.15): it records how
// many free blocks and how many free pages in the work block Clean would
// pick next must be kept in reserve, so a subsequent burst of writes can
// land directly without triggering a merge mid-burst.
func (d *Device) SetCleanThreshold(numBlocksFree, numSectorsFree int) {
	d.cleanNumBlocksFree = numBlocksFree
	d.cleanNumSectorsFree = numSectorsFree
}

// CleanOne converts exactly one least-recently-used work block to a DATA
// block, for IoctlCleanOne. moreToClean reports whether another work block
// remains that Clean would still want to convert.
func (d *Device) CleanOne() (moreToClean bool, err error) {
	if d.writeProtected {
		return false, &ErrWriteProtected{}
	}
	if !d.reservationSatisfied() {
		lru, ok := d.wb.LRU()
		if ok {
			if err := d.convertWorkBlockSlot(lru, -1, -1, nil); err != nil {
				return false, err
			}
			d.cleanCnt++
		}
	}
	return !d.reservationSatisfied() && d.wb.Len() > 0, nil
}

// Clean implements clean(pEventuallyMore) (§4.15): it converts LRU work
// blocks one at a time until the fast-write reservation
// targets are met or no work blocks remain, and reports whether another
// call would still find something to do.
func (d *Device) Clean() (moreToClean bool, err error) {
	if d.writeProtected {
		return false, &ErrWriteProtected{}
	}
	for !d.reservationSatisfied() && d.wb.Len() > 0 {
		more, err := d.CleanOne()
		if err != nil {
			return false, err
		}
		if !more {
			break
		}
	}
	return !d.reservationSatisfied() && d.wb.Len() > 0, nil
}

// GetCleanCnt returns the running count of work-block conversions
// performed by Clean/CleanOne, for IoctlGetCleanCnt.
func (d *Device) GetCleanCnt() int { return d.cleanCnt }

// reservationSatisfied reports whether the device currently meets both the
// NumBlocksFree and NumSectorsFree fast-write reservation targets.
func (d *Device) reservationSatisfied() bool {
	if d.alloc.NumFree() < d.cleanNumBlocksFree {
		return false
	}
	if d.cleanNumSectorsFree == 0 {
		return true
	}
	if lru, ok := d.wb.LRU(); ok {
		s := d.wb.Slot(lru)
		remaining := d.info.PagesPerBlock() - s.brsiFree
		if remaining < d.cleanNumSectorsFree {
			return false
		}
	}
	return true
}
