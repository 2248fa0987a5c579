/*
   CPU: instruction fetch, decode and execute.

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
	"math/bits"

	"github.com/rcornwell/MIPS32/emu/inst"
	"github.com/rcornwell/MIPS32/emu/safe"
	"github.com/rcornwell/MIPS32/emu/state"
)

// Step executes one instruction. It returns a nil suspension when
// execution simply continues; a suspension when the instruction paused
// for a syscall, breakpoint, or trap; or an error. On error the pushed
// state is rolled back so the surfaced state is the pre-failure one.
func (r *Runtime) Step() (*Suspension, error) {
	current := r.timeline.State()
	pc := current.PC()

	switch state.ClassifySegment(pc) {
	case state.SegText, state.SegKText:
	default:
		return nil, &state.SegmentationFaultError{Addr: pc, Access: state.AccessExecute}
	}

	word, err := current.ReadWord(pc)
	if err != nil {
		return nil, &UnknownInstructionError{Addr: pc}
	}

	// PC advances before dispatch; branches overwrite it. Delay slots
	// are not modelled.
	next := r.timeline.PushNext()
	next.SetPC(pc + 4)

	suspension, err := r.execute(next, word)
	if err != nil {
		r.timeline.PopLast()
		return nil, err
	}
	return suspension, nil
}

func (r *Runtime) execute(st *state.State, word uint32) (*Suspension, error) {
	opcode := word >> 26
	rs := (word >> 21) & 0x1F
	rt := (word >> 16) & 0x1F
	rd := (word >> 11) & 0x1F
	shamt := (word >> 6) & 0x1F
	funct := word & 0x3F
	imm := int16(word & 0xFFFF)
	target := word & 0x03FFFFFF

	switch opcode {
	case uint32(inst.OpSpecial), uint32(inst.OpSpecial2), uint32(inst.OpSpecial3):
		return r.executeR(st, opcode, funct, rd, rs, rt, shamt)
	case 0x02, 0x03:
		r.executeJ(st, opcode, target)
		return nil, nil
	default:
		return r.executeI(st, opcode, rs, rt, imm)
	}
}

func (r *Runtime) executeJ(st *state.State, opcode uint32, target uint32) {
	switch opcode {
	case 0x02: // J addr
		st.SetPC(st.PC()&0xF0000000 | target<<2)
	case 0x03: // JAL addr
		st.WriteRegister(inst.RegRa, int32(st.PC()))
		st.SetPC(st.PC()&0xF0000000 | target<<2)
	}
}

// executeR handles the three R-type opcode spaces. Syscall, break, and
// the trap family suspend; everything else updates state in place.
func (r *Runtime) executeR(st *state.State, opcode, funct, rd, rs, rt, shamt uint32) (*Suspension, error) {
	if opcode == uint32(inst.OpSpecial) {
		switch funct {
		case 0x0C: // SYSCALL
			return r.syscall(st)

		case 0x0D: // BREAK
			return &Suspension{Kind: SusBreakpoint}, nil

		case 0x30, 0x31, 0x32, 0x33, 0x34, 0x36: // trap family
			rsVal, err := st.ReadRegister(rs)
			if err != nil {
				return nil, err
			}
			rtVal, err := st.ReadRegister(rt)
			if err != nil {
				return nil, err
			}
			trapped := false
			switch funct {
			case 0x30: // TGE
				trapped = rsVal >= rtVal
			case 0x31: // TGEU
				trapped = uint32(rsVal) >= uint32(rtVal)
			case 0x32: // TLT
				trapped = rsVal < rtVal
			case 0x33: // TLTU
				trapped = uint32(rsVal) < uint32(rtVal)
			case 0x34: // TEQ
				trapped = rsVal == rtVal
			case 0x36: // TNE
				trapped = rsVal != rtVal
			}
			if trapped {
				return &Suspension{Kind: SusTrap}, nil
			}
			return nil, nil
		}
	}

	return nil, r.executeSimpleR(st, opcode, funct, rd, rs, rt, shamt)
}

func (r *Runtime) executeSimpleR(st *state.State, opcode, funct, rd, rs, rt, shamt uint32) error {
	switch opcode {
	case uint32(inst.OpSpecial):
		return r.executeSpecial(st, funct, rd, rs, rt, shamt)
	case uint32(inst.OpSpecial2):
		return r.executeSpecial2(st, funct, rs, rt)
	default:
		return r.executeSpecial3(st, funct, rd, rt, shamt)
	}
}

func (r *Runtime) executeSpecial(st *state.State, funct, rd, rs, rt, shamt uint32) error {
	switch funct {
	case 0x00: // SLL Rd, Rt, Sa
		value, err := st.ReadRegister(rt)
		if err != nil {
			return err
		}
		st.WriteRegister(rd, int32(uint32(value)<<shamt))

	case 0x02:
		value, err := st.ReadRegister(rt)
		if err != nil {
			return err
		}
		switch rs {
		case 0x00: // SRL Rd, Rt, Sa
			st.WriteRegister(rd, int32(uint32(value)>>shamt))
		case 0x01: // ROTR Rd, Rt, Sa
			st.WriteRegister(rd, int32(bits.RotateLeft32(uint32(value), -int(shamt))))
		}

	case 0x03: // SRA Rd, Rt, Sa
		value, err := st.ReadRegister(rt)
		if err != nil {
			return err
		}
		st.WriteRegister(rd, value>>shamt)

	case 0x04, 0x06, 0x07: // SLLV, SRLV/ROTRV, SRAV
		rtVal, err := st.ReadRegister(rt)
		if err != nil {
			return err
		}
		rsVal, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		sa := uint32(rsVal) & 0x1F
		switch {
		case funct == 0x04:
			st.WriteRegister(rd, int32(uint32(rtVal)<<sa))
		case funct == 0x06 && shamt == 0x01:
			st.WriteRegister(rd, int32(bits.RotateLeft32(uint32(rtVal), -int(sa))))
		case funct == 0x06:
			st.WriteRegister(rd, int32(uint32(rtVal)>>sa))
		default:
			st.WriteRegister(rd, rtVal>>sa)
		}

	case 0x08: // JR Rs
		value, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		st.SetPC(uint32(value))

	case 0x09: // JALR [Rd,] Rs
		value, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		st.WriteRegister(rd, int32(st.PC()))
		st.SetPC(uint32(value))

	case 0x0A: // MOVZ Rd, Rs, Rt
		rtVal, err := st.ReadRegister(rt)
		if err != nil {
			return err
		}
		if rtVal == 0 {
			rsVal, err := st.ReadRegister(rs)
			if err != nil {
				return err
			}
			st.WriteRegister(rd, rsVal)
		}

	case 0x0B: // MOVN Rd, Rs, Rt
		rtVal, err := st.ReadRegister(rt)
		if err != nil {
			return err
		}
		if rtVal != 0 {
			rsVal, err := st.ReadRegister(rs)
			if err != nil {
				return err
			}
			st.WriteRegister(rd, rsVal)
		}

	case 0x10:
		switch shamt {
		case 0x00: // MFHI Rd
			value, err := st.ReadHi()
			if err != nil {
				return err
			}
			st.WriteRegister(rd, value)
		case 0x01: // CLZ Rd, Rs
			value, err := st.ReadRegister(rs)
			if err != nil {
				return err
			}
			st.WriteRegister(rd, int32(bits.LeadingZeros32(uint32(value))))
		}

	case 0x11:
		switch shamt {
		case 0x00: // MTHI Rs
			value, err := st.ReadRegister(rs)
			if err != nil {
				return err
			}
			st.WriteHi(value)
		case 0x01: // CLO Rd, Rs
			value, err := st.ReadRegister(rs)
			if err != nil {
				return err
			}
			st.WriteRegister(rd, int32(bits.LeadingZeros32(^uint32(value))))
		}

	case 0x12: // MFLO Rd
		value, err := st.ReadLo()
		if err != nil {
			return err
		}
		st.WriteRegister(rd, value)

	case 0x13: // MTLO Rs
		value, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		st.WriteLo(value)

	case 0x18, 0x19: // MULT, MULTU
		rsVal, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		rtVal, err := st.ReadRegister(rt)
		if err != nil {
			return err
		}
		var result uint64
		if funct == 0x18 {
			result = uint64(int64(rsVal) * int64(rtVal))
		} else {
			result = uint64(uint32(rsVal)) * uint64(uint32(rtVal))
		}
		st.WriteHi(int32(result >> 32))
		st.WriteLo(int32(result))

	case 0x1A, 0x1B: // DIV, DIVU
		// Divisor first: dividing by zero is reported even when the
		// dividend register was never written.
		rtVal, err := st.ReadRegister(rt)
		if err != nil {
			return err
		}
		if rtVal == 0 {
			return &DivisionByZeroError{}
		}
		rsVal, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		if funct == 0x1A {
			st.WriteLo(rsVal / rtVal)
			st.WriteHi(rsVal % rtVal)
		} else {
			st.WriteLo(int32(uint32(rsVal) / uint32(rtVal)))
			st.WriteHi(int32(uint32(rsVal) % uint32(rtVal)))
		}

	case 0x20, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27, 0x2A, 0x2B:
		rsVal, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		rtVal, err := st.ReadRegister(rt)
		if err != nil {
			return err
		}
		switch funct {
		case 0x20: // ADD
			sum, ok := safe.CheckedAdd(rsVal, rtVal)
			if !ok {
				return &IntegerOverflowError{}
			}
			st.WriteRegister(rd, sum)
		case 0x21: // ADDU
			st.WriteRegister(rd, rsVal+rtVal)
		case 0x22: // SUB
			diff, ok := safe.CheckedSub(rsVal, rtVal)
			if !ok {
				return &IntegerOverflowError{}
			}
			st.WriteRegister(rd, diff)
		case 0x23: // SUBU
			st.WriteRegister(rd, rsVal-rtVal)
		case 0x24: // AND
			st.WriteRegister(rd, rsVal&rtVal)
		case 0x25: // OR
			st.WriteRegister(rd, rsVal|rtVal)
		case 0x26: // XOR
			st.WriteRegister(rd, rsVal^rtVal)
		case 0x27: // NOR
			st.WriteRegister(rd, ^(rsVal | rtVal))
		case 0x2A: // SLT
			st.WriteRegister(rd, boolWord(rsVal < rtVal))
		case 0x2B: // SLTU
			st.WriteRegister(rd, boolWord(uint32(rsVal) < uint32(rtVal)))
		}

		// Unused slots decode to nothing.
	}

	return nil
}

func (r *Runtime) executeSpecial2(st *state.State, funct, rs, rt uint32) error {
	switch funct {
	case 0x00, 0x01, 0x04, 0x05: // MADD, MADDU, MSUB, MSUBU
		rsVal, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		rtVal, err := st.ReadRegister(rt)
		if err != nil {
			return err
		}
		hi, err := st.ReadHi()
		if err != nil {
			return err
		}
		lo, err := st.ReadLo()
		if err != nil {
			return err
		}

		original := uint64(uint32(hi))<<32 | uint64(uint32(lo))
		var product uint64
		if funct == 0x00 || funct == 0x04 {
			product = uint64(int64(rsVal) * int64(rtVal))
		} else {
			product = uint64(uint32(rsVal)) * uint64(uint32(rtVal))
		}

		var result uint64
		if funct <= 0x01 {
			result = original + product
		} else {
			result = original - product
		}
		st.WriteHi(int32(result >> 32))
		st.WriteLo(int32(result))
	}
	return nil
}

func (r *Runtime) executeSpecial3(st *state.State, funct, rd, rt, shamt uint32) error {
	if funct != 0x20 {
		return nil
	}

	value, err := st.ReadRegister(rt)
	if err != nil {
		return err
	}

	switch shamt {
	case 0x02: // WSBH Rd, Rt
		word := uint32(value)
		low := bits.ReverseBytes16(uint16(word))
		high := bits.ReverseBytes16(uint16(word >> 16))
		st.WriteRegister(rd, int32(uint32(low)|uint32(high)<<16))
	case 0x10: // SEB Rd, Rt
		st.WriteRegister(rd, int32(int8(value)))
	case 0x18: // SEH Rd, Rt
		st.WriteRegister(rd, int32(int16(value)))
	}
	return nil
}

// executeI handles I-type instructions; the immediate trap family
// suspends.
func (r *Runtime) executeI(st *state.State, opcode, rs, rt uint32, imm int16) (*Suspension, error) {
	if opcode == 0x01 && rt >= 0x08 && rt <= 0x0E {
		rsVal, err := st.ReadRegister(rs)
		if err != nil {
			return nil, err
		}
		cmp := int32(imm)
		trapped := false
		switch rt {
		case 0x08: // TGEI
			trapped = rsVal >= cmp
		case 0x09: // TGEIU
			trapped = uint32(rsVal) >= uint32(cmp)
		case 0x0A: // TLTI
			trapped = rsVal < cmp
		case 0x0B: // TLTIU
			trapped = uint32(rsVal) < uint32(cmp)
		case 0x0C: // TEQI
			trapped = rsVal == cmp
		case 0x0E: // TNEI
			trapped = rsVal != cmp
		}
		if trapped {
			return &Suspension{Kind: SusTrap}, nil
		}
		return nil, nil
	}

	return nil, r.executeSimpleI(st, opcode, rs, rt, imm)
}

func (r *Runtime) executeSimpleI(st *state.State, opcode, rs, rt uint32, imm int16) error {
	signExtend := int32(imm)
	zeroExtend := int32(uint32(uint16(imm)))

	switch opcode {
	case 0x01:
		rsVal, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		switch rt {
		case 0x00: // BLTZ Rs, Im
			if rsVal < 0 {
				st.Branch(imm)
			}
		case 0x01: // BGEZ Rs, Im
			if rsVal >= 0 {
				st.Branch(imm)
			}
		case 0x10: // BLTZAL Rs, Im
			if rsVal < 0 {
				st.WriteRegister(inst.RegRa, int32(st.PC()))
				st.Branch(imm)
			}
		case 0x11: // BGEZAL Rs, Im
			if rsVal >= 0 {
				st.WriteRegister(inst.RegRa, int32(st.PC()))
				st.Branch(imm)
			}
		}

	case 0x04, 0x05: // BEQ, BNE
		rsVal, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		rtVal, err := st.ReadRegister(rt)
		if err != nil {
			return err
		}
		if (opcode == 0x04) == (rsVal == rtVal) {
			st.Branch(imm)
		}

	case 0x06: // BLEZ Rs, Im
		rsVal, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		if rsVal <= 0 {
			st.Branch(imm)
		}

	case 0x07: // BGTZ Rs, Im
		rsVal, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		if rsVal > 0 {
			st.Branch(imm)
		}

	case 0x08: // ADDI Rt, Rs, Im
		rsVal, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		sum, ok := safe.CheckedAdd(rsVal, signExtend)
		if !ok {
			return &IntegerOverflowError{}
		}
		st.WriteRegister(rt, sum)

	case 0x09: // ADDIU Rt, Rs, Im
		rsVal, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		st.WriteRegister(rt, rsVal+signExtend)

	case 0x0A: // SLTI Rt, Rs, Im
		rsVal, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		st.WriteRegister(rt, boolWord(rsVal < signExtend))

	case 0x0B: // SLTIU Rt, Rs, Im
		rsVal, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		st.WriteRegister(rt, boolWord(uint32(rsVal) < uint32(signExtend)))

	case 0x0C: // ANDI Rt, Rs, Im
		rsVal, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		st.WriteRegister(rt, rsVal&zeroExtend)

	case 0x0D: // ORI Rt, Rs, Im
		rsVal, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		st.WriteRegister(rt, rsVal|zeroExtend)

	case 0x0E: // XORI Rt, Rs, Im
		rsVal, err := st.ReadRegister(rs)
		if err != nil {
			return err
		}
		st.WriteRegister(rt, rsVal^zeroExtend)

	case 0x0F: // LUI Rt, Im
		st.WriteRegister(rt, zeroExtend<<16)

	case 0x20, 0x24: // LB, LBU
		addr, err := r.effectiveAddress(st, rs, imm)
		if err != nil {
			return err
		}
		value, err := st.ReadByteRaw(addr)
		if err != nil {
			return err
		}
		if opcode == 0x20 {
			st.WriteRegisterRaw(rt, safe.SignExtendByte(value))
		} else {
			st.WriteRegisterRaw(rt, safe.ZeroExtendByte(value))
		}

	case 0x21, 0x25: // LH, LHU
		addr, err := r.effectiveAddress(st, rs, imm)
		if err != nil {
			return err
		}
		if addr%2 != 0 {
			return &state.UnalignedAccessError{Addr: addr, Alignment: state.AlignHalf}
		}
		value, err := st.ReadHalfRaw(addr)
		if err != nil {
			return err
		}
		if opcode == 0x21 {
			st.WriteRegisterRaw(rt, safe.SignExtendHalf(value))
		} else {
			st.WriteRegisterRaw(rt, safe.ZeroExtendHalf(value))
		}

	case 0x23: // LW Rt, Im(Rs)
		addr, err := r.effectiveAddress(st, rs, imm)
		if err != nil {
			return err
		}
		if addr%4 != 0 {
			return &state.UnalignedAccessError{Addr: addr, Alignment: state.AlignWord}
		}
		value, err := st.ReadWordRaw(addr)
		if err != nil {
			return err
		}
		st.WriteRegisterRaw(rt, safe.SignExtendWord(value))

	case 0x22, 0x26: // LWL, LWR
		name := "lwl"
		if opcode == 0x26 {
			name = "lwr"
		}
		return &UnimplementedInstructionError{Name: name, Addr: st.PC() - 4}

	case 0x28: // SB Rt, Im(Rs)
		addr, err := r.effectiveAddress(st, rs, imm)
		if err != nil {
			return err
		}
		return st.WriteByteRaw(addr, safe.TruncateByte(st.ReadRegisterRaw(rt)))

	case 0x29: // SH Rt, Im(Rs)
		addr, err := r.effectiveAddress(st, rs, imm)
		if err != nil {
			return err
		}
		return st.WriteHalfRaw(addr, safe.TruncateHalf(st.ReadRegisterRaw(rt)))

	case 0x2B: // SW Rt, Im(Rs)
		addr, err := r.effectiveAddress(st, rs, imm)
		if err != nil {
			return err
		}
		return st.WriteWordRaw(addr, safe.TruncateWord(st.ReadRegisterRaw(rt)))

	case 0x31, 0x39: // LWC1, SWC1
		name := "lwc1"
		if opcode == 0x39 {
			name = "swc1"
		}
		return &UnimplementedInstructionError{Name: name, Addr: st.PC() - 4}

		// Unused slots decode to nothing.
	}

	return nil
}

func (r *Runtime) effectiveAddress(st *state.State, rs uint32, imm int16) (uint32, error) {
	base, err := st.ReadRegister(rs)
	if err != nil {
		return 0, err
	}
	return uint32(base + int32(imm)), nil
}

func boolWord(cond bool) int32 {
	if cond {
		return 1
	}
	return 0
}
