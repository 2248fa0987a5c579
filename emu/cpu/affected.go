/*
   Derives the registers and memory a decoded instruction reads and
   writes, for the watchpoint engine.

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

package cpu

import (
	"github.com/rcornwell/MIPS32/emu/breakpoints"
	"github.com/rcornwell/MIPS32/emu/inst"
	"github.com/rcornwell/MIPS32/emu/state"
)

// AffectedTargets decodes an instruction against its pre-execution state
// and reports every register and memory byte it reads or writes. The
// driver intersects the result with the watchpoint table after each step.
func AffectedTargets(st *state.State, word uint32) []breakpoints.TargetWatch {
	opcode := word >> 26
	rs := (word >> 21) & 0x1F
	rt := (word >> 16) & 0x1F
	rd := (word >> 11) & 0x1F
	funct := word & 0x3F
	imm := int16(word & 0xFFFF)

	var watches []breakpoints.TargetWatch
	readReg := func(reg uint32) {
		if reg != 0 {
			watches = append(watches, breakpoints.TargetWatch{
				Target: breakpoints.RegisterTarget(reg),
				Action: breakpoints.ReadOnly,
			})
		}
	}
	writeReg := func(reg uint32) {
		if reg != 0 {
			watches = append(watches, breakpoints.TargetWatch{
				Target: breakpoints.RegisterTarget(reg),
				Action: breakpoints.WriteOnly,
			})
		}
	}
	memory := func(size uint32, action breakpoints.TargetAction) {
		base, ok := st.ReadRegisterRaw(rs).Get()
		if !ok {
			return
		}
		addr := uint32(base + int32(imm))
		for i := uint32(0); i < size; i++ {
			watches = append(watches, breakpoints.TargetWatch{
				Target: breakpoints.MemoryTarget(addr + i),
				Action: action,
			})
		}
	}

	switch opcode {
	case uint32(inst.OpSpecial):
		switch funct {
		case 0x00, 0x02, 0x03: // shifts by amount
			readReg(rt)
			writeReg(rd)
		case 0x04, 0x06, 0x07: // shifts by register
			readReg(rt)
			readReg(rs)
			writeReg(rd)
		case 0x08: // jr
			readReg(rs)
		case 0x09: // jalr
			readReg(rs)
			writeReg(rd)
		case 0x0A, 0x0B: // movz, movn
			readReg(rs)
			readReg(rt)
			writeReg(rd)
		case 0x0C: // syscall reads its number and arguments
			readReg(inst.RegV0)
			readReg(inst.RegA0)
		case 0x10, 0x11:
			// mfhi/clz and mthi/clo share functs; both read rs or
			// write rd at most.
			readReg(rs)
			writeReg(rd)
		case 0x12: // mflo
			writeReg(rd)
		case 0x13: // mtlo
			readReg(rs)
		case 0x18, 0x19, 0x1A, 0x1B: // mult, multu, div, divu
			readReg(rs)
			readReg(rt)
		case 0x20, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27, 0x2A, 0x2B:
			readReg(rs)
			readReg(rt)
			writeReg(rd)
		case 0x30, 0x31, 0x32, 0x33, 0x34, 0x36: // traps
			readReg(rs)
			readReg(rt)
		}

	case uint32(inst.OpSpecial2): // madd family
		readReg(rs)
		readReg(rt)

	case uint32(inst.OpSpecial3): // wsbh, seb, seh
		readReg(rt)
		writeReg(rd)

	case 0x01: // branch-on-sign and immediate traps
		readReg(rs)
		if rt == 0x10 || rt == 0x11 {
			writeReg(inst.RegRa)
		}

	case 0x02: // j
	case 0x03: // jal
		writeReg(inst.RegRa)

	case 0x04, 0x05: // beq, bne
		readReg(rs)
		readReg(rt)

	case 0x06, 0x07: // blez, bgtz
		readReg(rs)

	case 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E: // immediate ALU
		readReg(rs)
		writeReg(rt)

	case 0x0F: // lui
		writeReg(rt)

	case 0x20, 0x24: // lb, lbu
		readReg(rs)
		writeReg(rt)
		memory(1, breakpoints.ReadOnly)
	case 0x21, 0x25: // lh, lhu
		readReg(rs)
		writeReg(rt)
		memory(2, breakpoints.ReadOnly)
	case 0x23: // lw
		readReg(rs)
		writeReg(rt)
		memory(4, breakpoints.ReadOnly)

	case 0x28: // sb
		readReg(rs)
		readReg(rt)
		memory(1, breakpoints.WriteOnly)
	case 0x29: // sh
		readReg(rs)
		readReg(rt)
		memory(2, breakpoints.WriteOnly)
	case 0x2B: // sw
		readReg(rs)
		readReg(rt)
		memory(4, breakpoints.WriteOnly)
	}

	return watches
}
