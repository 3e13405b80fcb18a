// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package phy

import "fmt"

// simPage holds the stored state of one simulated NAND page. A page not
// present in SimPhy's map is implicitly in the erased state (all 0xFF).
type simPage struct {
	main  []byte
	spare []byte

	// mainProgrammed/spareProgrammed track which bytes have already been
	// programmed since the last erase, at byte granularity: disjoint
	// ranges of a page may be written incrementally (e.g. sector data
	// followed later by a bad-block marker in the spare area's tail),
	// but overlapping a previously programmed range is rejected, same
	// as real NAND where a cell can only move from 1 to 0 once per
	// erase cycle.
	mainProgrammed  []bool
	spareProgrammed []bool
}

func (p *simPage) checkAndMark(programmed []bool, off, n int) error {
	for i := off; i < off+n; i++ {
		if programmed[i] {
			return fmt.Errorf("phy: byte %d already programmed since last erase", i)
		}
	}
	for i := off; i < off+n; i++ {
		programmed[i] = true
	}
	return nil
}

// SimPhy is an in-memory simulated NAND device, modeled on the page-map
// storage shape of a plain memory-backed byte store, extended with erase
// semantics and fault injection so tests can exercise ECC correction, bad
// page handling, and crash consistency across a converter in progress.
type SimPhy struct {
	info  DeviceInfo
	pages map[int]*simPage

	calls     int
	failAfter int // -1: disabled. 0: next call fails.
	failErr   error

	rawMode bool
	wp      bool
}

// NewSimPhy returns a SimPhy of the given geometry. Every page starts
// erased.
func NewSimPhy(info DeviceInfo) *SimPhy {
	return &SimPhy{
		info:      info,
		pages:     make(map[int]*simPage),
		failAfter: -1,
	}
}

// FailAfter arms the simulator to return err starting with the n+1'th Phy
// call from now (n==0 fails immediately on the next call). Used to model
// power loss partway through a multi-step operation such as a convert; the
// caller remounts a fresh SimPhy seeded from a snapshot taken after the
// failure to continue testing from that point.
func (s *SimPhy) FailAfter(n int, err error) {
	s.failAfter = n
	s.failErr = err
}

// CallCount returns the number of Phy operations performed so far.
func (s *SimPhy) CallCount() int { return s.calls }

func (s *SimPhy) tick() error {
	s.calls++
	if s.failAfter == 0 {
		return s.failErr
	}
	if s.failAfter > 0 {
		s.failAfter--
	}
	return nil
}

func (s *SimPhy) page(idx int, create bool) *simPage {
	p, ok := s.pages[idx]
	if !ok {
		if !create {
			return nil
		}
		p = &simPage{
			main:           make([]byte, s.info.BytesPerPage()),
			spare:          make([]byte, s.info.BytesPerSpareArea),
			mainProgrammed: make([]bool, s.info.BytesPerPage()),
			spareProgrammed: make([]bool, s.info.BytesPerSpareArea),
		}
		for i := range p.main {
			p.main[i] = 0xFF
		}
		for i := range p.spare {
			p.spare[i] = 0xFF
		}
		s.pages[idx] = p
	}
	return p
}

// InitGetDeviceInfo implements Phy.
func (s *SimPhy) InitGetDeviceInfo(out *DeviceInfo) error {
	if err := s.tick(); err != nil {
		return err
	}
	*out = s.info
	return nil
}

// Read implements Phy.
func (s *SimPhy) Read(pageIndex int, buf []byte, offInPage, numBytes int) error {
	return s.ReadEx(pageIndex, buf, offInPage, numBytes, nil, 0, 0)
}

// ReadEx implements Phy.
func (s *SimPhy) ReadEx(pageIndex int, main []byte, offMain, numMain int, spare []byte, offSpare, numSpare int) error {
	if err := s.tick(); err != nil {
		return err
	}
	p := s.page(pageIndex, false)
	if numMain > 0 {
		if p == nil {
			for i := 0; i < numMain; i++ {
				main[i] = 0xFF
			}
		} else {
			copy(main[:numMain], p.main[offMain:offMain+numMain])
		}
	}
	if numSpare > 0 {
		if p == nil {
			for i := 0; i < numSpare; i++ {
				spare[i] = 0xFF
			}
		} else {
			copy(spare[:numSpare], p.spare[offSpare:offSpare+numSpare])
		}
	}
	return nil
}

// Write implements Phy.
func (s *SimPhy) Write(pageIndex int, buf []byte, offInPage, numBytes int) error {
	return s.WriteEx(pageIndex, buf, offInPage, numBytes, nil, 0, 0)
}

// WriteEx implements Phy. Writing a byte range of a page that already
// holds a prior write in an overlapping range, without an intervening
// erase, is rejected, matching real NAND program semantics (a cell can
// only move from 1 to 0 once per erase cycle). Disjoint ranges of the same
// page may be programmed incrementally.
func (s *SimPhy) WriteEx(pageIndex int, main []byte, offMain, numMain int, spare []byte, offSpare, numSpare int) error {
	if err := s.tick(); err != nil {
		return err
	}
	if s.wp {
		return fmt.Errorf("phy: device is write-protected")
	}
	p := s.page(pageIndex, true)
	if numMain > 0 {
		if err := p.checkAndMark(p.mainProgrammed, offMain, numMain); err != nil {
			return fmt.Errorf("phy: page %d: %w", pageIndex, err)
		}
	}
	if numSpare > 0 {
		if err := p.checkAndMark(p.spareProgrammed, offSpare, numSpare); err != nil {
			return fmt.Errorf("phy: page %d: %w", pageIndex, err)
		}
	}
	if numMain > 0 {
		copy(p.main[offMain:offMain+numMain], main[:numMain])
	}
	if numSpare > 0 {
		copy(p.spare[offSpare:offSpare+numSpare], spare[:numSpare])
	}
	return nil
}

// EraseBlock implements Phy.
func (s *SimPhy) EraseBlock(firstPageIndexOfBlock int) error {
	if err := s.tick(); err != nil {
		return err
	}
	if s.wp {
		return fmt.Errorf("phy: device is write-protected")
	}
	n := s.info.PagesPerBlock()
	for i := 0; i < n; i++ {
		delete(s.pages, firstPageIndexOfBlock+i)
	}
	return nil
}

// IsWP implements Phy.
func (s *SimPhy) IsWP() bool { return s.wp }

// SetWP sets or clears simulated write protection.
func (s *SimPhy) SetWP(on bool) { s.wp = on }

// DeInit implements Phy.
func (s *SimPhy) DeInit() error { return nil }

// SetRawMode implements RawModePhy: while on, FlipBit-style corruption
// injected into a page is still returned verbatim by Read/ReadEx (there is
// no ECC in this package to bypass; the flag exists so core code exercising
// "disable ECC, write/read marker" paths has something to toggle).
func (s *SimPhy) SetRawMode(on bool) error {
	s.rawMode = on
	return nil
}

// RawMode reports the last value passed to SetRawMode.
func (s *SimPhy) RawMode() bool { return s.rawMode }

// InjectBitFlip permanently flips one bit of a previously written page's
// main or spare area, simulating bit rot. The page must already hold a
// write; flipping a bit in an erased page panics since real bit rot only
// affects programmed cells.
func (s *SimPhy) InjectBitFlip(pageIndex int, spareArea bool, byteOff int, bit uint) {
	p := s.pages[pageIndex]
	if p == nil {
		panic("phy: InjectBitFlip on a page with no prior write")
	}
	programmed := p.mainProgrammed
	if spareArea {
		programmed = p.spareProgrammed
	}
	if !programmed[byteOff] {
		panic("phy: InjectBitFlip on a byte with no prior write")
	}
	if spareArea {
		p.spare[byteOff] ^= 1 << bit
	} else {
		p.main[byteOff] ^= 1 << bit
	}
}

// Snapshot returns a deep copy of the simulator's stored pages, suitable
// for seeding a fresh SimPhy to resume testing from a simulated crash
// point recorded via FailAfter.
func (s *SimPhy) Snapshot() map[int]*simPage {
	out := make(map[int]*simPage, len(s.pages))
	for k, v := range s.pages {
		cp := &simPage{
			main:            append([]byte(nil), v.main...),
			spare:           append([]byte(nil), v.spare...),
			mainProgrammed:  append([]bool(nil), v.mainProgrammed...),
			spareProgrammed: append([]bool(nil), v.spareProgrammed...),
		}
		out[k] = cp
	}
	return out
}

// Restore replaces the simulator's stored pages with a snapshot taken by
// Snapshot, and resets fault-injection and call-count state.
func (s *SimPhy) Restore(snap map[int]*simPage) {
	s.pages = snap
	s.calls = 0
	s.failAfter = -1
	s.failErr = nil
}
