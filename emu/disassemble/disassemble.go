/*
   Disassembler: renders encoded words back to source form.

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

package disassemble

import (
	"fmt"
	"strings"

	"github.com/rcornwell/MIPS32/emu/inst"
)

// Disassemble renders one encoded word at an address back into its
// source form. Returns false when no native signature matches.
func Disassemble(iset *inst.InstSet, word uint32, addr uint32) (string, bool) {
	natives := iset.NativeSet()
	for i := range natives {
		if !matches(&natives[i], word) {
			continue
		}
		return render(&natives[i], word, addr), true
	}
	return "", false
}

// matches tests the fixed encoding fields of a signature against a word.
func matches(sig *inst.InstSignature, word uint32) bool {
	opcode := uint8(word >> 26)
	rs := uint8(word >> 21 & 0x1F)
	rt := uint8(word >> 16 & 0x1F)
	rd := uint8(word >> 11 & 0x1F)
	shamt := uint8(word >> 6 & 0x1F)
	funct := uint8(word & 0x3F)

	rtSig := sig.Runtime
	if opcode != rtSig.Opcode {
		return false
	}
	if rtSig.Kind == inst.SigR && funct != rtSig.Funct {
		return false
	}

	if rtSig.Rs >= 0 && rs != uint8(rtSig.Rs) {
		return false
	}
	if rtSig.Rt >= 0 && rt != uint8(rtSig.Rt) {
		return false
	}
	if rtSig.Rd >= 0 && rd != uint8(rtSig.Rd) {
		return false
	}
	if rtSig.Shamt >= 0 && shamt != uint8(rtSig.Shamt) {
		return false
	}
	return true
}

func render(sig *inst.InstSignature, word uint32, addr uint32) string {
	rs := word >> 21 & 0x1F
	rt := word >> 16 & 0x1F
	rd := word >> 11 & 0x1F
	shamt := word >> 6 & 0x1F
	imm := int16(word & 0xFFFF)
	target := word & 0x03FFFFFF

	args := make([]string, 0, len(sig.Compile.Format))
	for _, slot := range sig.Compile.Format {
		switch slot {
		case inst.ArgRd:
			args = append(args, inst.RegisterName(rd))
		case inst.ArgRs:
			args = append(args, inst.RegisterName(rs))
		case inst.ArgRt:
			args = append(args, inst.RegisterName(rt))
		case inst.ArgShamt:
			args = append(args, fmt.Sprintf("%d", shamt))
		case inst.ArgI16:
			args = append(args, fmt.Sprintf("%d", imm))
		case inst.ArgU16:
			args = append(args, fmt.Sprintf("%d", uint16(word&0xFFFF)))
		case inst.ArgJ:
			args = append(args, fmt.Sprintf("0x%08x", addr&0xF0000000|target<<2))
		case inst.ArgOffRs:
			args = append(args, fmt.Sprintf("%d(%s)", imm, inst.RegisterName(rs)))
		case inst.ArgOffRt:
			args = append(args, fmt.Sprintf("%d(%s)", imm, inst.RegisterName(rt)))
		}
	}

	if len(args) == 0 {
		return sig.Name
	}
	return sig.Name + " " + strings.Join(args, ", ")
}
