/*
   Instruction signatures and argument matching rules.

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

import (
	"fmt"
	"strings"

	"github.com/rcornwell/MIPS32/emu/parser"
)

// ArgumentType is the slot type of one signature position. The types
// below the pseudo marker can only appear in pseudo signatures.
type ArgumentType int

const (
	ArgRd ArgumentType = iota
	ArgRs
	ArgRt
	ArgShamt
	ArgI16
	ArgU16
	ArgJ
	ArgOffRs
	ArgOffRt
	ArgF32
	ArgF64

	// pseudo only
	ArgI32
	ArgU32
	ArgOff32Rs
	ArgOff32Rt
)

func (a ArgumentType) String() string {
	switch a {
	case ArgRd:
		return "$Rd"
	case ArgRs:
		return "$Rs"
	case ArgRt:
		return "$Rt"
	case ArgShamt:
		return "shift"
	case ArgI16:
		return "i16"
	case ArgU16:
		return "u16"
	case ArgJ:
		return "label"
	case ArgOffRs:
		return "i16($Rs)"
	case ArgOffRt:
		return "i16($Rt)"
	case ArgF32:
		return "f32"
	case ArgF64:
		return "f64"
	case ArgI32:
		return "i32"
	case ArgU32:
		return "u32"
	case ArgOff32Rs:
		return "i32($Rs)"
	default:
		return "i32($Rt)"
	}
}

// SigKind is the encoding shape of a native instruction.
type SigKind int

const (
	SigR SigKind = iota
	SigI
	SigJ
)

// RuntimeSignature carries the fixed encoding fields of a native
// instruction. Field values of -1 mean the field comes from an argument.
type RuntimeSignature struct {
	Kind   SigKind
	Opcode uint8 // R-type: 0x00, 0x1C or 0x1F
	Funct  uint8
	Rs     int8
	Rt     int8
	Rd     int8
	Shamt  int8
}

// CompileSignature is the typed argument list of a signature. When
// RelativeLabel is set, a label in the final position encodes as a
// PC-relative instruction count.
type CompileSignature struct {
	Format        []ArgumentType
	RelativeLabel bool
}

// InstSignature is one native instruction.
type InstSignature struct {
	Name    string
	Compile CompileSignature
	Runtime RuntimeSignature
}

// PseudoExpand is one template line of a pseudo expansion. Data entries
// are template arguments: "$rs" style variables, literal registers, or
// literal numbers, optionally in offset form "$off32ulo($at)".
type PseudoExpand struct {
	Inst string
	Data []string
}

// PseudoSignature is one pseudo instruction form with its expansion.
type PseudoSignature struct {
	Name    string
	Compile CompileSignature
	Expand  []PseudoExpand
}

// InstSet is the resolved instruction table.
type InstSet struct {
	native []InstSignature
	pseudo []PseudoSignature
}

func (s *InstSet) NativeSet() []InstSignature {
	return s.native
}

func (s *InstSet) PseudoSet() []PseudoSignature {
	return s.pseudo
}

// FindNativeFromName returns the first native with a name, ignoring
// argument shapes. Used by pseudo expansion, where templates name exact
// natives.
func (s *InstSet) FindNativeFromName(name string) *InstSignature {
	name = strings.ToLower(name)
	for i := range s.native {
		if s.native[i].Name == name {
			return &s.native[i]
		}
	}
	return nil
}

// FindNative returns the first native whose signature accepts the parsed
// instruction.
func (s *InstSet) FindNative(instruction *parser.Instruction) *InstSignature {
	name := strings.ToLower(instruction.Name)
	for i := range s.native {
		if s.native[i].Name == name && s.native[i].Compile.Matches(instruction.Args) {
			return &s.native[i]
		}
	}
	return nil
}

// FindPseudo returns the first pseudo whose signature accepts the parsed
// instruction.
func (s *InstSet) FindPseudo(instruction *parser.Instruction) *PseudoSignature {
	name := strings.ToLower(instruction.Name)
	for i := range s.pseudo {
		if s.pseudo[i].Name == name && s.pseudo[i].Compile.Matches(instruction.Args) {
			return &s.pseudo[i]
		}
	}
	return nil
}

// UnknownInstructionError reports a mnemonic the table does not know.
type UnknownInstructionError struct {
	Name string
}

func (e *UnknownInstructionError) Error() string {
	return fmt.Sprintf("unknown instruction %s", e.Name)
}

// BadFormatError reports a known mnemonic whose arguments fit no
// signature. Formats lists the accepted shapes for diagnostics.
type BadFormatError struct {
	Name    string
	Formats []string
}

func (e *BadFormatError) Error() string {
	if len(e.Formats) == 0 {
		return fmt.Sprintf("instruction %s given wrong arguments", e.Name)
	}
	return fmt.Sprintf("instruction %s given wrong arguments, accepted forms: %s",
		e.Name, strings.Join(e.Formats, " | "))
}

// SimilarNameError reports an unknown mnemonic one edit away from known
// instructions.
type SimilarNameError struct {
	Name    string
	Similar []string
}

func (e *SimilarNameError) Error() string {
	return fmt.Sprintf("unknown instruction %s, did you mean %s?",
		e.Name, strings.Join(e.Similar, " or "))
}

// FindSignature resolves an instruction to a native or pseudo signature.
// Natives beat pseudos of the same name; otherwise the most specific
// error is chosen: bad format when the name exists, similar-name when the
// name is one edit from a known instruction, unknown otherwise.
func (s *InstSet) FindSignature(instruction *parser.Instruction) (*InstSignature, *PseudoSignature, error) {
	if native := s.FindNative(instruction); native != nil {
		return native, nil, nil
	}
	if pseudo := s.FindPseudo(instruction); pseudo != nil {
		return nil, pseudo, nil
	}

	name := strings.ToLower(instruction.Name)
	known := false
	var formats []string
	for i := range s.native {
		if s.native[i].Name == name {
			known = true
			formats = append(formats, formatString(name, s.native[i].Compile.Format))
		}
	}
	for i := range s.pseudo {
		if s.pseudo[i].Name == name {
			known = true
			formats = append(formats, formatString(name, s.pseudo[i].Compile.Format))
		}
	}
	if known {
		return nil, nil, &BadFormatError{Name: name, Formats: formats}
	}

	similar := s.similarNames(name)
	if len(similar) != 0 {
		return nil, nil, &SimilarNameError{Name: name, Similar: similar}
	}

	return nil, nil, &UnknownInstructionError{Name: name}
}

// InstructionLength is the number of words an instruction occupies:
// one for a native, the expansion length for a pseudo.
func (s *InstSet) InstructionLength(instruction *parser.Instruction) (int, error) {
	native, pseudo, err := s.FindSignature(instruction)
	if err != nil {
		return 0, err
	}
	if native != nil {
		return 1, nil
	}
	return len(pseudo.Expand), nil
}

func formatString(name string, format []ArgumentType) string {
	parts := make([]string, len(format))
	for i, arg := range format {
		parts[i] = arg.String()
	}
	return name + " " + strings.Join(parts, ", ")
}

// similarNames returns known mnemonics within edit distance one.
func (s *InstSet) similarNames(name string) []string {
	seen := map[string]bool{}
	var similar []string
	add := func(known string) {
		if !seen[known] && editDistanceOne(name, known) {
			seen[known] = true
			similar = append(similar, known)
		}
	}
	for i := range s.native {
		add(s.native[i].Name)
	}
	for i := range s.pseudo {
		add(s.pseudo[i].Name)
	}
	return similar
}

// editDistanceOne reports whether two strings differ by at most one
// insertion, deletion, or substitution (and are not equal).
func editDistanceOne(a, b string) bool {
	if a == b {
		return false
	}
	la, lb := len(a), len(b)
	if la > lb {
		a, b = b, a
		la, lb = lb, la
	}
	if lb-la > 1 {
		return false
	}

	if la == lb {
		diff := 0
		for i := 0; i < la; i++ {
			if a[i] != b[i] {
				diff++
			}
		}
		return diff == 1
	}

	// b is one longer than a: check one deletion aligns them.
	i, j, used := 0, 0, false
	for i < la {
		if a[i] == b[j] {
			i++
			j++
			continue
		}
		if used {
			return false
		}
		used = true
		j++
	}
	return true
}

// Matches tests arity and per-slot compatibility. Only the final slot may
// treat a label as a relative offset.
func (c *CompileSignature) Matches(args []parser.Argument) bool {
	if len(c.Format) != len(args) {
		return false
	}
	for i, slot := range c.Format {
		relative := c.RelativeLabel && i == len(args)-1
		if !slot.Matches(args[i], relative) {
			return false
		}
	}
	return true
}

// Matches tests one parsed argument against one slot type.
func (a ArgumentType) Matches(arg parser.Argument, relativeLabel bool) bool {
	switch arg.Kind {
	case parser.ArgRegister:
		return a == ArgRd || a == ArgRs || a == ArgRt

	case parser.ArgOffset:
		if arg.Imm.Kind == parser.ImmI16 {
			return a == ArgOffRs || a == ArgOffRt || a == ArgOff32Rs || a == ArgOff32Rt
		}
		return a == ArgOff32Rs || a == ArgOff32Rt

	default:
		switch arg.Num.Kind {
		case parser.NumChar:
			return a == ArgI16 || a == ArgU16 || a == ArgI32 || a == ArgU32
		case parser.NumFloat32:
			return a == ArgF32 || a == ArgF64
		case parser.NumFloat64:
			return a == ArgF64
		}

		imm := arg.Num.Imm
		switch imm.Kind {
		case parser.ImmI16:
			switch a {
			case ArgI16, ArgI32, ArgOff32Rs, ArgOff32Rt:
				return true
			case ArgU16, ArgU32:
				return imm.Value >= 0
			case ArgShamt:
				return imm.Value >= 0 && imm.Value <= 31
			}
			return false
		case parser.ImmU16:
			return a == ArgU16 || a == ArgI32 || a == ArgU32 || a == ArgOff32Rs || a == ArgOff32Rt
		case parser.ImmI32:
			switch a {
			case ArgI32, ArgJ, ArgOff32Rs, ArgOff32Rt:
				return true
			case ArgU32:
				return imm.Value >= 0
			}
			return false
		case parser.ImmU32:
			return a == ArgJ || a == ArgU32 || a == ArgOff32Rs || a == ArgOff32Rt
		default: // label reference
			switch a {
			case ArgI32, ArgU32, ArgJ, ArgOff32Rs, ArgOff32Rt:
				return true
			case ArgI16:
				return relativeLabel
			}
			return false
		}
	}
}
