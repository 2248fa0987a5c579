/*
   Paged memory access with segment checks.

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
	"github.com/rcornwell/MIPS32/emu/safe"
)

// CheckSegfault applies the access policy for an address:
// below text faults, text/data/stack are open, the heap is open only up to
// the current sbrk size, and kernel space is gated on PC being in kernel
// text.
func (s *State) CheckSegfault(addr uint32, access AccessKind) error {
	fault := false
	switch {
	case addr < TextBot:
		fault = true
	case addr <= TextTop:
	case addr >= GlobalBot && addr < HeapBot:
	case addr >= HeapBot && addr < StackBot:
		fault = addr-HeapBot >= s.heapSize
	case addr >= StackBot && addr <= StackTop:
	case addr >= KTextBot:
		fault = s.pc < KTextBot
	}

	if fault {
		return &SegmentationFaultError{Addr: addr, Access: access}
	}
	return nil
}

func pageIndex(addr uint32) uint32 {
	return addr / PageSize
}

func pageOffset(addr uint32) uint32 {
	return addr % PageSize
}

// getByte returns the Safe byte at addr without a segment check.
func (s *State) getByte(addr uint32) safe.Safe[uint8] {
	pg, ok := s.pages[pageIndex(addr)]
	if !ok {
		return safe.Uninit[uint8]()
	}
	return pg.data[pageOffset(addr)]
}

// mutablePage returns a page private to this state, copying a shared page
// or materialising a fresh one on first touch.
func (s *State) mutablePage(addr uint32) *page {
	index := pageIndex(addr)
	pg, ok := s.pages[index]
	if ok && pg.gen == s.gen {
		return pg
	}

	private := &page{gen: s.gen}
	if ok {
		private.data = pg.data
	}
	s.pages[index] = private
	return private
}

// ReadByte reads a byte through the typed API; an unwritten byte is an
// Uninitialised error carrying its address.
func (s *State) ReadByte(addr uint32) (uint8, error) {
	if err := s.CheckSegfault(addr, AccessRead); err != nil {
		return 0, err
	}

	value, ok := s.getByte(addr).Get()
	if !ok {
		return 0, &UninitialisedError{Kind: UninitByte, Addr: addr}
	}
	return value, nil
}

// ReadHalf composes two byte reads, little-endian. Any uninitialised
// constituent byte promotes the whole read to an uninitialised half.
func (s *State) ReadHalf(addr uint32) (uint16, error) {
	if addr%2 != 0 {
		return 0, &UnalignedAccessError{Addr: addr, Alignment: AlignHalf}
	}

	raw, err := s.ReadHalfRaw(addr)
	if err != nil {
		return 0, err
	}
	value, ok := raw.Get()
	if !ok {
		return 0, &UninitialisedError{Kind: UninitHalf, Addr: addr}
	}
	return value, nil
}

// ReadWord composes four byte reads, little-endian.
func (s *State) ReadWord(addr uint32) (uint32, error) {
	if addr%4 != 0 {
		return 0, &UnalignedAccessError{Addr: addr, Alignment: AlignWord}
	}

	raw, err := s.ReadWordRaw(addr)
	if err != nil {
		return 0, err
	}
	value, ok := raw.Get()
	if !ok {
		return 0, &UninitialisedError{Kind: UninitWord, Addr: addr}
	}
	return value, nil
}

// ReadByteRaw reads a byte for propagation; segment faults still surface.
func (s *State) ReadByteRaw(addr uint32) (safe.Safe[uint8], error) {
	if err := s.CheckSegfault(addr, AccessRead); err != nil {
		return safe.Uninit[uint8](), err
	}
	return s.getByte(addr), nil
}

func (s *State) ReadHalfRaw(addr uint32) (safe.Safe[uint16], error) {
	for i := uint32(0); i < 2; i++ {
		if err := s.CheckSegfault(addr+i, AccessRead); err != nil {
			return safe.Uninit[uint16](), err
		}
	}

	b0, ok0 := s.getByte(addr).Get()
	b1, ok1 := s.getByte(addr + 1).Get()
	if !ok0 || !ok1 {
		return safe.Uninit[uint16](), nil
	}
	return safe.Valid(uint16(b0) | uint16(b1)<<8), nil
}

func (s *State) ReadWordRaw(addr uint32) (safe.Safe[uint32], error) {
	for i := uint32(0); i < 4; i++ {
		if err := s.CheckSegfault(addr+i, AccessRead); err != nil {
			return safe.Uninit[uint32](), err
		}
	}

	var word uint32
	for i := uint32(0); i < 4; i++ {
		b, ok := s.getByte(addr + i).Get()
		if !ok {
			return safe.Uninit[uint32](), nil
		}
		word |= uint32(b) << (8 * i)
	}
	return safe.Valid(word), nil
}

// WriteByte stores one byte after a segment check.
func (s *State) WriteByte(addr uint32, value uint8) error {
	return s.WriteByteRaw(addr, safe.Valid(value))
}

// WriteHalf stores a half little-endian; nothing is written on fault.
func (s *State) WriteHalf(addr uint32, value uint16) error {
	return s.WriteHalfRaw(addr, safe.Valid(value))
}

// WriteWord stores a word little-endian; nothing is written on fault.
func (s *State) WriteWord(addr uint32, value uint32) error {
	return s.WriteWordRaw(addr, safe.Valid(value))
}

// WriteByteRaw stores a Safe byte, possibly uninitialised.
func (s *State) WriteByteRaw(addr uint32, value safe.Safe[uint8]) error {
	if err := s.CheckSegfault(addr, AccessWrite); err != nil {
		return err
	}

	pg := s.mutablePage(addr)
	pg.data[pageOffset(addr)] = value
	return nil
}

func (s *State) WriteHalfRaw(addr uint32, value safe.Safe[uint16]) error {
	if addr%2 != 0 {
		return &UnalignedAccessError{Addr: addr, Alignment: AlignHalf}
	}
	for i := uint32(0); i < 2; i++ {
		if err := s.CheckSegfault(addr+i, AccessWrite); err != nil {
			return err
		}
	}

	half, ok := value.Get()
	for i := uint32(0); i < 2; i++ {
		b := safe.Uninit[uint8]()
		if ok {
			b = safe.Valid(uint8(half >> (8 * i)))
		}
		pg := s.mutablePage(addr + i)
		pg.data[pageOffset(addr+i)] = b
	}
	return nil
}

func (s *State) WriteWordRaw(addr uint32, value safe.Safe[uint32]) error {
	if addr%4 != 0 {
		return &UnalignedAccessError{Addr: addr, Alignment: AlignWord}
	}
	for i := uint32(0); i < 4; i++ {
		if err := s.CheckSegfault(addr+i, AccessWrite); err != nil {
			return err
		}
	}

	word, ok := value.Get()
	for i := uint32(0); i < 4; i++ {
		b := safe.Uninit[uint8]()
		if ok {
			b = safe.Valid(uint8(word >> (8 * i)))
		}
		pg := s.mutablePage(addr + i)
		pg.data[pageOffset(addr+i)] = b
	}
	return nil
}

// ReadString reads a NUL-terminated byte string.
func (s *State) ReadString(addr uint32) ([]byte, error) {
	var text []byte
	for pointer := addr; ; pointer++ {
		value, err := s.ReadByte(pointer)
		if err != nil {
			return nil, err
		}
		if value == 0 {
			return text, nil
		}
		text = append(text, value)
	}
}

// ReadBytes reads an exact number of bytes.
func (s *State) ReadBytes(addr uint32, length uint32) ([]byte, error) {
	text := make([]byte, 0, length)
	for i := uint32(0); i < length; i++ {
		value, err := s.ReadByte(addr + i)
		if err != nil {
			return nil, err
		}
		text = append(text, value)
	}
	return text, nil
}
