/*
   Machine state: register file, HI/LO, PC and paged memory at one point
   in time.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

package state

import (
	"maps"

	"github.com/rcornwell/MIPS32/emu/safe"
)

// Memory segment boundaries. These are fixed for every program the
// assembler produces.
const (
	TextBot   uint32 = 0x00400000
	TextTop   uint32 = 0x0FFFFFFF
	GlobalBot uint32 = 0x10000000
	GlobalPtr uint32 = 0x10008000
	DataBot   uint32 = 0x10010000
	HeapBot   uint32 = 0x10040000
	StackBot  uint32 = 0x7FF00000
	StackPtr  uint32 = 0x7FFFFF00
	StackTop  uint32 = 0x7FFFFFFF
	KTextBot  uint32 = 0x80000000
	KDataBot  uint32 = 0x90000000
)

// Write marker bits for HI and LO; bits 0..31 are the GP registers.
const (
	WriteMarkerLo = 32
	WriteMarkerHi = 33
)

// PageSize is the granularity of the copy-on-write memory map.
const PageSize = 64

// Segment classification of an address.
type Segment int

const (
	SegNone Segment = iota
	SegText
	SegData
	SegHeap
	SegStack
	SegKText
	SegKData
)

// ClassifySegment returns which segment an address falls into.
func ClassifySegment(addr uint32) Segment {
	switch {
	case addr < TextBot:
		return SegNone
	case addr <= TextTop:
		return SegText
	case addr >= GlobalBot && addr < HeapBot:
		return SegData
	case addr >= HeapBot && addr < StackBot:
		return SegHeap
	case addr >= StackBot && addr <= StackTop:
		return SegStack
	case addr >= KDataBot:
		return SegKData
	case addr >= KTextBot:
		return SegKText
	default:
		return SegNone
	}
}

// A page of memory. Pages are shared between successive states; gen records
// which state generation materialised this copy, so a successor knows to
// take a private copy before writing.
type page struct {
	gen  uint64
	data [PageSize]safe.Safe[uint8]
}

// State is one point in simulated time. Cloning is cheap: the page map is
// copied but page contents are shared until written.
type State struct {
	pages       map[uint32]*page
	gen         uint64
	pc          uint32
	regs        [32]safe.Safe[int32]
	hi          safe.Safe[int32]
	lo          safe.Safe[int32]
	writeMarker uint64
	heapSize    uint32
}

// New returns an empty state with all registers and memory uninitialised.
func New() *State {
	return &State{pages: map[uint32]*page{}}
}

// Clone returns a successor state sharing this state's pages. The write
// marker of the clone starts clear, so it records only what the next step
// writes.
func (s *State) Clone() *State {
	return &State{
		pages:    maps.Clone(s.pages),
		gen:      s.gen + 1,
		pc:       s.pc,
		regs:     s.regs,
		hi:       s.hi,
		lo:       s.lo,
		heapSize: s.heapSize,
	}
}

func (s *State) PC() uint32 {
	return s.pc
}

func (s *State) SetPC(pc uint32) {
	s.pc = pc
}

func (s *State) HeapSize() uint32 {
	return s.heapSize
}

func (s *State) SetHeapSize(size uint32) {
	s.heapSize = size
}

func (s *State) WriteMarker() uint64 {
	return s.writeMarker
}

// Branch adjusts PC by a signed instruction-count offset. PC has already
// advanced past the branch, so the offset is 1-based.
func (s *State) Branch(imm int16) {
	off := (int32(imm) - 1) * 4
	s.pc += uint32(off)
}

// ReadRegister returns the value of a register, or an Uninitialised error
// naming the register.
func (s *State) ReadRegister(num uint32) (int32, error) {
	value, ok := s.regs[num].Get()
	if !ok {
		return 0, &UninitialisedError{Kind: UninitRegister, Reg: num}
	}
	return value, nil
}

// ReadRegisterRaw returns the register as a Safe value for propagation.
func (s *State) ReadRegisterRaw(num uint32) safe.Safe[int32] {
	return s.regs[num]
}

// WriteRegister stores a value. Writes to register 0 are discarded.
func (s *State) WriteRegister(num uint32, value int32) {
	if num == 0 {
		return
	}
	s.regs[num] = safe.Valid(value)
	s.writeMarker |= 1 << num
}

// WriteRegisterRaw stores a Safe value, possibly uninitialised.
func (s *State) WriteRegisterRaw(num uint32, value safe.Safe[int32]) {
	if num == 0 {
		return
	}
	s.regs[num] = value
	s.writeMarker |= 1 << num
}

func (s *State) ReadHi() (int32, error) {
	value, ok := s.hi.Get()
	if !ok {
		return 0, &UninitialisedError{Kind: UninitHi}
	}
	return value, nil
}

func (s *State) ReadLo() (int32, error) {
	value, ok := s.lo.Get()
	if !ok {
		return 0, &UninitialisedError{Kind: UninitLo}
	}
	return value, nil
}

func (s *State) WriteHi(value int32) {
	s.hi = safe.Valid(value)
	s.writeMarker |= 1 << WriteMarkerHi
}

func (s *State) WriteLo(value int32) {
	s.lo = safe.Valid(value)
	s.writeMarker |= 1 << WriteMarkerLo
}

// seed the zero register so reads of $0 are always Valid(0).
func (s *State) SeedZeroRegister() {
	s.regs[0] = safe.Valid(int32(0))
}
