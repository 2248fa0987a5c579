/*
   The resolved MIPS32 instruction table: native encodings and pseudo
   expansions.

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

package inst

// Opcode values for the three R-type opcode spaces.
const (
	OpSpecial  uint8 = 0x00
	OpSpecial2 uint8 = 0x1C
	OpSpecial3 uint8 = 0x1F
)

func r(funct uint8) RuntimeSignature {
	return RuntimeSignature{Kind: SigR, Opcode: OpSpecial, Funct: funct, Rs: -1, Rt: -1, Rd: -1, Shamt: -1}
}

func r2(funct uint8) RuntimeSignature {
	sig := r(funct)
	sig.Opcode = OpSpecial2
	return sig
}

func r3(funct, shamt uint8) RuntimeSignature {
	sig := r(funct)
	sig.Opcode = OpSpecial3
	sig.Shamt = int8(shamt)
	return sig
}

func i(opcode uint8) RuntimeSignature {
	return RuntimeSignature{Kind: SigI, Opcode: opcode, Rs: -1, Rt: -1, Rd: -1, Shamt: -1}
}

func irt(opcode, rt uint8) RuntimeSignature {
	sig := i(opcode)
	sig.Rt = int8(rt)
	return sig
}

func j(opcode uint8) RuntimeSignature {
	return RuntimeSignature{Kind: SigJ, Opcode: opcode, Rs: -1, Rt: -1, Rd: -1, Shamt: -1}
}

func sig(format ...ArgumentType) CompileSignature {
	return CompileSignature{Format: format}
}

func rel(format ...ArgumentType) CompileSignature {
	return CompileSignature{Format: format, RelativeLabel: true}
}

func fixShamt(sig RuntimeSignature, shamt uint8) RuntimeSignature {
	sig.Shamt = int8(shamt)
	return sig
}

func fixRs(sig RuntimeSignature, rs uint8) RuntimeSignature {
	sig.Rs = int8(rs)
	return sig
}

func fixRd(sig RuntimeSignature, rd uint8) RuntimeSignature {
	sig.Rd = int8(rd)
	return sig
}

func expand(lines ...PseudoExpand) []PseudoExpand {
	return lines
}

func line(name string, data ...string) PseudoExpand {
	return PseudoExpand{Inst: name, Data: data}
}

// NewSet builds the resolved instruction table.
func NewSet() *InstSet {
	return &InstSet{native: nativeSet, pseudo: pseudoSet}
}

var nativeSet = []InstSignature{
	// Shifts and rotates.
	{Name: "sll", Compile: sig(ArgRd, ArgRt, ArgShamt), Runtime: r(0x00)},
	{Name: "srl", Compile: sig(ArgRd, ArgRt, ArgShamt), Runtime: fixRs(r(0x02), 0)},
	{Name: "rotr", Compile: sig(ArgRd, ArgRt, ArgShamt), Runtime: fixRs(r(0x02), 1)},
	{Name: "sra", Compile: sig(ArgRd, ArgRt, ArgShamt), Runtime: r(0x03)},
	{Name: "sllv", Compile: sig(ArgRd, ArgRt, ArgRs), Runtime: r(0x04)},
	{Name: "srlv", Compile: sig(ArgRd, ArgRt, ArgRs), Runtime: fixShamt(r(0x06), 0)},
	{Name: "rotrv", Compile: sig(ArgRd, ArgRt, ArgRs), Runtime: fixShamt(r(0x06), 1)},
	{Name: "srav", Compile: sig(ArgRd, ArgRt, ArgRs), Runtime: r(0x07)},

	// Jumps through registers.
	{Name: "jr", Compile: sig(ArgRs), Runtime: r(0x08)},
	{Name: "jalr", Compile: sig(ArgRs), Runtime: fixRd(r(0x09), 31)},
	{Name: "jalr", Compile: sig(ArgRd, ArgRs), Runtime: r(0x09)},

	// Conditional moves.
	{Name: "movz", Compile: sig(ArgRd, ArgRs, ArgRt), Runtime: r(0x0A)},
	{Name: "movn", Compile: sig(ArgRd, ArgRs, ArgRt), Runtime: r(0x0B)},

	{Name: "syscall", Compile: sig(), Runtime: r(0x0C)},
	{Name: "break", Compile: sig(), Runtime: r(0x0D)},

	// HI/LO moves and bit counts.
	{Name: "mfhi", Compile: sig(ArgRd), Runtime: fixShamt(r(0x10), 0)},
	{Name: "clz", Compile: sig(ArgRd, ArgRs), Runtime: fixShamt(r(0x10), 1)},
	{Name: "mthi", Compile: sig(ArgRs), Runtime: fixShamt(r(0x11), 0)},
	{Name: "clo", Compile: sig(ArgRd, ArgRs), Runtime: fixShamt(r(0x11), 1)},
	{Name: "mflo", Compile: sig(ArgRd), Runtime: r(0x12)},
	{Name: "mtlo", Compile: sig(ArgRs), Runtime: r(0x13)},

	// Multiply and divide.
	{Name: "mult", Compile: sig(ArgRs, ArgRt), Runtime: r(0x18)},
	{Name: "multu", Compile: sig(ArgRs, ArgRt), Runtime: r(0x19)},
	{Name: "div", Compile: sig(ArgRs, ArgRt), Runtime: r(0x1A)},
	{Name: "divu", Compile: sig(ArgRs, ArgRt), Runtime: r(0x1B)},
	{Name: "madd", Compile: sig(ArgRs, ArgRt), Runtime: r2(0x00)},
	{Name: "maddu", Compile: sig(ArgRs, ArgRt), Runtime: r2(0x01)},
	{Name: "msub", Compile: sig(ArgRs, ArgRt), Runtime: r2(0x04)},
	{Name: "msubu", Compile: sig(ArgRs, ArgRt), Runtime: r2(0x05)},

	// Arithmetic and logic.
	{Name: "add", Compile: sig(ArgRd, ArgRs, ArgRt), Runtime: r(0x20)},
	{Name: "addu", Compile: sig(ArgRd, ArgRs, ArgRt), Runtime: r(0x21)},
	{Name: "sub", Compile: sig(ArgRd, ArgRs, ArgRt), Runtime: r(0x22)},
	{Name: "subu", Compile: sig(ArgRd, ArgRs, ArgRt), Runtime: r(0x23)},
	{Name: "and", Compile: sig(ArgRd, ArgRs, ArgRt), Runtime: r(0x24)},
	{Name: "or", Compile: sig(ArgRd, ArgRs, ArgRt), Runtime: r(0x25)},
	{Name: "xor", Compile: sig(ArgRd, ArgRs, ArgRt), Runtime: r(0x26)},
	{Name: "nor", Compile: sig(ArgRd, ArgRs, ArgRt), Runtime: r(0x27)},
	{Name: "slt", Compile: sig(ArgRd, ArgRs, ArgRt), Runtime: r(0x2A)},
	{Name: "sltu", Compile: sig(ArgRd, ArgRs, ArgRt), Runtime: r(0x2B)},

	// Traps.
	{Name: "tge", Compile: sig(ArgRs, ArgRt), Runtime: r(0x30)},
	{Name: "tgeu", Compile: sig(ArgRs, ArgRt), Runtime: r(0x31)},
	{Name: "tlt", Compile: sig(ArgRs, ArgRt), Runtime: r(0x32)},
	{Name: "tltu", Compile: sig(ArgRs, ArgRt), Runtime: r(0x33)},
	{Name: "teq", Compile: sig(ArgRs, ArgRt), Runtime: r(0x34)},
	{Name: "tne", Compile: sig(ArgRs, ArgRt), Runtime: r(0x36)},
	{Name: "tgei", Compile: sig(ArgRs, ArgI16), Runtime: irt(0x01, 0x08)},
	{Name: "tgeiu", Compile: sig(ArgRs, ArgI16), Runtime: irt(0x01, 0x09)},
	{Name: "tlti", Compile: sig(ArgRs, ArgI16), Runtime: irt(0x01, 0x0A)},
	{Name: "tltiu", Compile: sig(ArgRs, ArgI16), Runtime: irt(0x01, 0x0B)},
	{Name: "teqi", Compile: sig(ArgRs, ArgI16), Runtime: irt(0x01, 0x0C)},
	{Name: "tnei", Compile: sig(ArgRs, ArgI16), Runtime: irt(0x01, 0x0E)},

	// MIPS32r2 byte manipulation.
	{Name: "wsbh", Compile: sig(ArgRd, ArgRt), Runtime: r3(0x20, 0x02)},
	{Name: "seb", Compile: sig(ArgRd, ArgRt), Runtime: r3(0x20, 0x10)},
	{Name: "seh", Compile: sig(ArgRd, ArgRt), Runtime: r3(0x20, 0x18)},

	// Branches.
	{Name: "bltz", Compile: rel(ArgRs, ArgI16), Runtime: irt(0x01, 0x00)},
	{Name: "bgez", Compile: rel(ArgRs, ArgI16), Runtime: irt(0x01, 0x01)},
	{Name: "bltzal", Compile: rel(ArgRs, ArgI16), Runtime: irt(0x01, 0x10)},
	{Name: "bgezal", Compile: rel(ArgRs, ArgI16), Runtime: irt(0x01, 0x11)},
	{Name: "beq", Compile: rel(ArgRs, ArgRt, ArgI16), Runtime: i(0x04)},
	{Name: "bne", Compile: rel(ArgRs, ArgRt, ArgI16), Runtime: i(0x05)},
	{Name: "blez", Compile: rel(ArgRs, ArgI16), Runtime: irt(0x06, 0x00)},
	{Name: "bgtz", Compile: rel(ArgRs, ArgI16), Runtime: irt(0x07, 0x00)},

	// Jumps.
	{Name: "j", Compile: sig(ArgJ), Runtime: j(0x02)},
	{Name: "jal", Compile: sig(ArgJ), Runtime: j(0x03)},

	// Immediate arithmetic and logic.
	{Name: "addi", Compile: sig(ArgRt, ArgRs, ArgI16), Runtime: i(0x08)},
	{Name: "addiu", Compile: sig(ArgRt, ArgRs, ArgI16), Runtime: i(0x09)},
	{Name: "slti", Compile: sig(ArgRt, ArgRs, ArgI16), Runtime: i(0x0A)},
	{Name: "sltiu", Compile: sig(ArgRt, ArgRs, ArgI16), Runtime: i(0x0B)},
	{Name: "andi", Compile: sig(ArgRt, ArgRs, ArgU16), Runtime: i(0x0C)},
	{Name: "ori", Compile: sig(ArgRt, ArgRs, ArgU16), Runtime: i(0x0D)},
	{Name: "xori", Compile: sig(ArgRt, ArgRs, ArgU16), Runtime: i(0x0E)},
	{Name: "lui", Compile: sig(ArgRt, ArgU16), Runtime: i(0x0F)},

	// Loads and stores.
	{Name: "lb", Compile: sig(ArgRt, ArgOffRs), Runtime: i(0x20)},
	{Name: "lh", Compile: sig(ArgRt, ArgOffRs), Runtime: i(0x21)},
	{Name: "lwl", Compile: sig(ArgRt, ArgOffRs), Runtime: i(0x22)},
	{Name: "lw", Compile: sig(ArgRt, ArgOffRs), Runtime: i(0x23)},
	{Name: "lbu", Compile: sig(ArgRt, ArgOffRs), Runtime: i(0x24)},
	{Name: "lhu", Compile: sig(ArgRt, ArgOffRs), Runtime: i(0x25)},
	{Name: "lwr", Compile: sig(ArgRt, ArgOffRs), Runtime: i(0x26)},
	{Name: "sb", Compile: sig(ArgRt, ArgOffRs), Runtime: i(0x28)},
	{Name: "sh", Compile: sig(ArgRt, ArgOffRs), Runtime: i(0x29)},
	{Name: "sw", Compile: sig(ArgRt, ArgOffRs), Runtime: i(0x2B)},
}

var pseudoSet = []PseudoSignature{
	{Name: "nop", Compile: sig(), Expand: expand(
		line("sll", "$0", "$0", "0"))},

	// Load immediate, smallest form first.
	{Name: "li", Compile: sig(ArgRt, ArgI16), Expand: expand(
		line("addiu", "$rt", "$0", "$i16"))},
	{Name: "li", Compile: sig(ArgRt, ArgU16), Expand: expand(
		line("ori", "$rt", "$0", "$u16"))},
	{Name: "li", Compile: sig(ArgRt, ArgI32), Expand: expand(
		line("lui", "$at", "$i32uhi"),
		line("ori", "$rt", "$at", "$i32ulo"))},
	{Name: "li", Compile: sig(ArgRt, ArgU32), Expand: expand(
		line("lui", "$at", "$u32uhi"),
		line("ori", "$rt", "$at", "$u32ulo"))},

	// Load address.
	{Name: "la", Compile: sig(ArgRt, ArgOff32Rs), Expand: expand(
		line("lui", "$at", "$off32uhi"),
		line("ori", "$at", "$at", "$off32ulo"),
		line("addu", "$rt", "$at", "$rs"))},

	{Name: "move", Compile: sig(ArgRd, ArgRs), Expand: expand(
		line("addu", "$rd", "$rs", "$0"))},

	// Unconditional and zero-compare branches.
	{Name: "b", Compile: rel(ArgI16), Expand: expand(
		line("beq", "$0", "$0", "$i16"))},
	{Name: "bal", Compile: rel(ArgI16), Expand: expand(
		line("bgezal", "$0", "$i16"))},
	{Name: "beqz", Compile: rel(ArgRs, ArgI16), Expand: expand(
		line("beq", "$rs", "$0", "$i16"))},
	{Name: "bnez", Compile: rel(ArgRs, ArgI16), Expand: expand(
		line("bne", "$rs", "$0", "$i16"))},

	// Two-register compare branches.
	{Name: "bge", Compile: rel(ArgRs, ArgRt, ArgI16), Expand: expand(
		line("slt", "$at", "$rs", "$rt"),
		line("beq", "$at", "$0", "$i16"))},
	{Name: "bgt", Compile: rel(ArgRs, ArgRt, ArgI16), Expand: expand(
		line("slt", "$at", "$rt", "$rs"),
		line("bne", "$at", "$0", "$i16"))},
	{Name: "ble", Compile: rel(ArgRs, ArgRt, ArgI16), Expand: expand(
		line("slt", "$at", "$rt", "$rs"),
		line("beq", "$at", "$0", "$i16"))},
	{Name: "blt", Compile: rel(ArgRs, ArgRt, ArgI16), Expand: expand(
		line("slt", "$at", "$rs", "$rt"),
		line("bne", "$at", "$0", "$i16"))},
	{Name: "bgeu", Compile: rel(ArgRs, ArgRt, ArgI16), Expand: expand(
		line("sltu", "$at", "$rs", "$rt"),
		line("beq", "$at", "$0", "$i16"))},
	{Name: "bgtu", Compile: rel(ArgRs, ArgRt, ArgI16), Expand: expand(
		line("sltu", "$at", "$rt", "$rs"),
		line("bne", "$at", "$0", "$i16"))},
	{Name: "bleu", Compile: rel(ArgRs, ArgRt, ArgI16), Expand: expand(
		line("sltu", "$at", "$rt", "$rs"),
		line("beq", "$at", "$0", "$i16"))},
	{Name: "bltu", Compile: rel(ArgRs, ArgRt, ArgI16), Expand: expand(
		line("sltu", "$at", "$rs", "$rt"),
		line("bne", "$at", "$0", "$i16"))},

	// Negation and complement.
	{Name: "neg", Compile: sig(ArgRd, ArgRs), Expand: expand(
		line("sub", "$rd", "$0", "$rs"))},
	{Name: "negu", Compile: sig(ArgRd, ArgRs), Expand: expand(
		line("subu", "$rd", "$0", "$rs"))},
	{Name: "not", Compile: sig(ArgRd, ArgRs), Expand: expand(
		line("nor", "$rd", "$rs", "$0"))},
	{Name: "abs", Compile: sig(ArgRd, ArgRs), Expand: expand(
		line("sra", "$at", "$rs", "31"),
		line("xor", "$rd", "$rs", "$at"),
		line("subu", "$rd", "$rd", "$at"))},

	// Three-register multiply and divide.
	{Name: "mul", Compile: sig(ArgRd, ArgRs, ArgRt), Expand: expand(
		line("mult", "$rs", "$rt"),
		line("mflo", "$rd"))},
	{Name: "div", Compile: sig(ArgRd, ArgRs, ArgRt), Expand: expand(
		line("div", "$rs", "$rt"),
		line("mflo", "$rd"))},
	{Name: "divu", Compile: sig(ArgRd, ArgRs, ArgRt), Expand: expand(
		line("divu", "$rs", "$rt"),
		line("mflo", "$rd"))},
	{Name: "rem", Compile: sig(ArgRd, ArgRs, ArgRt), Expand: expand(
		line("div", "$rs", "$rt"),
		line("mfhi", "$rd"))},
	{Name: "remu", Compile: sig(ArgRd, ArgRs, ArgRt), Expand: expand(
		line("divu", "$rs", "$rt"),
		line("mfhi", "$rd"))},

	// Set-on-comparison forms.
	{Name: "seq", Compile: sig(ArgRd, ArgRs, ArgRt), Expand: expand(
		line("subu", "$rd", "$rs", "$rt"),
		line("sltiu", "$rd", "$rd", "1"))},
	{Name: "sne", Compile: sig(ArgRd, ArgRs, ArgRt), Expand: expand(
		line("subu", "$rd", "$rs", "$rt"),
		line("sltu", "$rd", "$0", "$rd"))},
	{Name: "sge", Compile: sig(ArgRd, ArgRs, ArgRt), Expand: expand(
		line("slt", "$rd", "$rs", "$rt"),
		line("xori", "$rd", "$rd", "1"))},
	{Name: "sgt", Compile: sig(ArgRd, ArgRs, ArgRt), Expand: expand(
		line("slt", "$rd", "$rt", "$rs"))},
	{Name: "sle", Compile: sig(ArgRd, ArgRs, ArgRt), Expand: expand(
		line("slt", "$rd", "$rt", "$rs"),
		line("xori", "$rd", "$rd", "1"))},

	// Wide-offset loads and stores: address built in $at.
	{Name: "lb", Compile: sig(ArgRt, ArgOff32Rs), Expand: expand(
		line("lui", "$at", "$off32uhi"),
		line("ori", "$at", "$at", "$off32ulo"),
		line("addu", "$at", "$at", "$rs"),
		line("lb", "$rt", "0($at)"))},
	{Name: "lbu", Compile: sig(ArgRt, ArgOff32Rs), Expand: expand(
		line("lui", "$at", "$off32uhi"),
		line("ori", "$at", "$at", "$off32ulo"),
		line("addu", "$at", "$at", "$rs"),
		line("lbu", "$rt", "0($at)"))},
	{Name: "lh", Compile: sig(ArgRt, ArgOff32Rs), Expand: expand(
		line("lui", "$at", "$off32uhi"),
		line("ori", "$at", "$at", "$off32ulo"),
		line("addu", "$at", "$at", "$rs"),
		line("lh", "$rt", "0($at)"))},
	{Name: "lhu", Compile: sig(ArgRt, ArgOff32Rs), Expand: expand(
		line("lui", "$at", "$off32uhi"),
		line("ori", "$at", "$at", "$off32ulo"),
		line("addu", "$at", "$at", "$rs"),
		line("lhu", "$rt", "0($at)"))},
	{Name: "lw", Compile: sig(ArgRt, ArgOff32Rs), Expand: expand(
		line("lui", "$at", "$off32uhi"),
		line("ori", "$at", "$at", "$off32ulo"),
		line("addu", "$at", "$at", "$rs"),
		line("lw", "$rt", "0($at)"))},
	{Name: "sb", Compile: sig(ArgRt, ArgOff32Rs), Expand: expand(
		line("lui", "$at", "$off32uhi"),
		line("ori", "$at", "$at", "$off32ulo"),
		line("addu", "$at", "$at", "$rs"),
		line("sb", "$rt", "0($at)"))},
	{Name: "sh", Compile: sig(ArgRt, ArgOff32Rs), Expand: expand(
		line("lui", "$at", "$off32uhi"),
		line("ori", "$at", "$at", "$off32ulo"),
		line("addu", "$at", "$at", "$rs"),
		line("sh", "$rt", "0($at)"))},
	{Name: "sw", Compile: sig(ArgRt, ArgOff32Rs), Expand: expand(
		line("lui", "$at", "$off32uhi"),
		line("ori", "$at", "$at", "$off32ulo"),
		line("addu", "$at", "$at", "$rs"),
		line("sw", "$rt", "0($at)"))},
}
