/*
   Runtime error values raised by state access.

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

import "fmt"

// AccessKind is the kind of access that raised a fault.
type AccessKind int

const (
	AccessRead AccessKind = iota
	AccessWrite
	AccessExecute
)

func (a AccessKind) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return "execute"
	}
}

// SegmentationFaultError reports an access outside the permitted segments.
type SegmentationFaultError struct {
	Addr   uint32
	Access AccessKind
}

func (e *SegmentationFaultError) Error() string {
	return fmt.Sprintf("segmentation fault: %s of address 0x%08x", e.Access, e.Addr)
}

// Alignment is the alignment a half or word access requires.
type Alignment int

const (
	AlignHalf Alignment = 2
	AlignWord Alignment = 4
)

func (a Alignment) String() string {
	if a == AlignHalf {
		return "half"
	}
	return "word"
}

// UnalignedAccessError reports a half or word access at a misaligned
// address. No partial data is transferred.
type UnalignedAccessError struct {
	Addr      uint32
	Alignment Alignment
}

func (e *UnalignedAccessError) Error() string {
	return fmt.Sprintf("unaligned access: address 0x%08x requires %s alignment", e.Addr, e.Alignment)
}

// UninitKind names the location class an uninitialised read came from. The
// width of a composed read is recorded, not the first failing byte.
type UninitKind int

const (
	UninitByte UninitKind = iota
	UninitHalf
	UninitWord
	UninitRegister
	UninitLo
	UninitHi
)

// UninitialisedError reports a typed read of a location that was never
// written.
type UninitialisedError struct {
	Kind UninitKind
	Addr uint32 // byte/half/word reads
	Reg  uint32 // register reads
}

func (e *UninitialisedError) Error() string {
	switch e.Kind {
	case UninitByte:
		return fmt.Sprintf("byte at 0x%08x is uninitialised", e.Addr)
	case UninitHalf:
		return fmt.Sprintf("half at 0x%08x is uninitialised", e.Addr)
	case UninitWord:
		return fmt.Sprintf("word at 0x%08x is uninitialised", e.Addr)
	case UninitRegister:
		return fmt.Sprintf("register $%d is uninitialised", e.Reg)
	case UninitLo:
		return "LO is uninitialised"
	default:
		return "HI is uninitialised"
	}
}

// MarkerBit returns the write-marker bit that records writes to the
// location, for register class errors only.
func (e *UninitialisedError) MarkerBit() (int, bool) {
	switch e.Kind {
	case UninitRegister:
		return int(e.Reg), true
	case UninitLo:
		return WriteMarkerLo, true
	case UninitHi:
		return WriteMarkerHi, true
	default:
		return 0, false
	}
}
