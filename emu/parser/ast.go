/*
   Parsed program representation handed to the assembler.

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

package parser

import "fmt"

// Position locates an item in its source file for diagnostics.
type Position struct {
	FileTag string
	Line    int
	Col     int
}

func (p Position) String() string {
	if p.FileTag == "" {
		return fmt.Sprintf("line %d", p.Line)
	}
	return fmt.Sprintf("%s:%d", p.FileTag, p.Line)
}

// ItemKind discriminates program items.
type ItemKind int

const (
	ItemDirective ItemKind = iota
	ItemInstruction
	ItemLabel
	ItemConstant
)

// Item is one program element in source order.
type Item struct {
	Pos         Position
	Kind        ItemKind
	Directive   *Directive
	Instruction *Instruction
	Label       string
	Constant    *Constant
}

// DirectiveKind discriminates assembler directives.
type DirectiveKind int

const (
	DirText DirectiveKind = iota
	DirData
	DirKText
	DirKData
	DirAscii
	DirAsciiz
	DirByte
	DirHalf
	DirWord
	DirFloat
	DirDouble
	DirAlign
	DirSpace
	DirGlobl
)

func (d DirectiveKind) String() string {
	names := []string{".text", ".data", ".ktext", ".kdata", ".ascii",
		".asciiz", ".byte", ".half", ".word", ".float", ".double",
		".align", ".space", ".globl"}
	return names[d]
}

// Directive is a segment switch, data emission, alignment or global
// declaration.
type Directive struct {
	Kind   DirectiveKind
	Str    string      // ascii, asciiz
	Values []ConstExpr // byte, half, word, align, space
	Floats []float64   // float, double
	Label  string      // globl
}

// Constant is an .eqv-style named constant bound to an expression.
type Constant struct {
	Name  string
	Value ConstExpr
}

// ConstOp discriminates constant expression nodes.
type ConstOp int

const (
	ConstValue ConstOp = iota
	ConstRef
	ConstNeg
	ConstNot
	ConstAdd
	ConstSub
	ConstMul
	ConstDiv
	ConstMod
	ConstAnd
	ConstOr
	ConstXor
	ConstShl
	ConstShr
)

// ConstExpr is a node in a constant expression tree. Leaves are numeric
// values or references to other constants.
type ConstExpr struct {
	Op          ConstOp
	Value       int64
	Ref         string
	Left, Right *ConstExpr
}

// Instruction is a mnemonic plus its parsed arguments. The mnemonic is
// stored lower-cased; matching is case-insensitive throughout.
type Instruction struct {
	Name string
	Args []Argument
}

// RegIdent names a register either symbolically or by number. Resolution
// to a register number happens at compile time so bad names carry their
// source position.
type RegIdent struct {
	Name     string
	Num      int
	Numbered bool
}

func (r RegIdent) String() string {
	if r.Numbered {
		return fmt.Sprintf("$%d", r.Num)
	}
	return "$" + r.Name
}

// ImmKind classifies an immediate by the smallest natural width it fits.
type ImmKind int

const (
	ImmI16 ImmKind = iota
	ImmU16
	ImmI32
	ImmU32
	ImmLabel
)

// Immediate is a literal or a label reference.
type Immediate struct {
	Kind  ImmKind
	Value int64
	Label string
}

// NumKind discriminates number arguments.
type NumKind int

const (
	NumImmediate NumKind = iota
	NumChar
	NumFloat32
	NumFloat64
)

// Number is an immediate, character, or float argument.
type Number struct {
	Kind NumKind
	Imm  Immediate
	Char byte
	F32  float32
	F64  float64
}

// ArgKind discriminates instruction arguments.
type ArgKind int

const (
	ArgRegister ArgKind = iota
	ArgOffset
	ArgNumber
)

// Argument is a register, an offset(register) pair, or a number.
type Argument struct {
	Kind ArgKind
	Reg  RegIdent  // register and offset forms
	Imm  Immediate // offset part of the offset form
	Num  Number    // number form
}

func (a Argument) String() string {
	switch a.Kind {
	case ArgRegister:
		return a.Reg.String()
	case ArgOffset:
		return fmt.Sprintf("%s(%s)", immString(a.Imm), a.Reg)
	default:
		switch a.Num.Kind {
		case NumChar:
			return fmt.Sprintf("%q", a.Num.Char)
		case NumFloat32:
			return fmt.Sprintf("%v", a.Num.F32)
		case NumFloat64:
			return fmt.Sprintf("%v", a.Num.F64)
		default:
			return immString(a.Num.Imm)
		}
	}
}

func immString(imm Immediate) string {
	if imm.Kind == ImmLabel {
		return imm.Label
	}
	return fmt.Sprintf("%d", imm.Value)
}

// Program is a list of items from one or more source files, in order.
type Program struct {
	Items []Item
}

// Append concatenates another program's items, used to join the kernel
// program onto user files.
func (p *Program) Append(other *Program) {
	p.Items = append(p.Items, other.Items...)
}

// ParseError is a source error with its position.
type ParseError struct {
	Pos Position
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}
