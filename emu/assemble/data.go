/*
   Assembler pass one: layout, labels, constants and data emission.

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

package assemble

import (
	"fmt"
	"math"
	"strings"

	"github.com/rcornwell/MIPS32/emu/parser"
	"github.com/rcornwell/MIPS32/emu/safe"
	"github.com/rcornwell/MIPS32/emu/state"
)

// populateLabelsAndData walks the program in source order, binding labels
// and constants, emitting data bytes, and advancing the text cursors by
// each instruction's encoded size. Instructions are not encoded yet.
func (c *compilation) populateLabelsAndData(program *parser.Program) error {
	for index := range program.Items {
		item := &program.Items[index]

		switch item.Kind {
		case parser.ItemDirective:
			if err := c.evalDirective(item); err != nil {
				return err
			}

		case parser.ItemInstruction:
			c.substituteConstants(item.Instruction)

			length, err := c.iset.InstructionLength(item.Instruction)
			if err != nil {
				return compileError(item.Pos, err)
			}

			switch c.segment {
			case SegText:
				c.textLen += length * 4
				if c.textLen > int(state.TextTop-state.TextBot)+1 {
					return compileError(item.Pos, &TooMuchDataError{Segment: SegText})
				}
			case SegKText:
				c.ktextLen += length * 4
			default:
				return compileError(item.Pos, &InstructionInDataSegmentError{})
			}

		case parser.ItemLabel:
			if c.binary.HasLabel(item.Label) {
				return compileError(item.Pos, &RedefinedLabelError{Label: item.Label})
			}
			c.binary.SetLabel(item.Label, c.cursor())

		case parser.ItemConstant:
			key := strings.ToLower(item.Constant.Name)
			if _, ok := c.binary.Constants[key]; ok {
				return compileError(item.Pos, &RedefinedConstantError{Label: item.Constant.Name})
			}
			value, err := c.evalConst(&item.Constant.Value)
			if err != nil {
				return compileError(item.Pos, err)
			}
			c.binary.Constants[key] = value
		}
	}

	return nil
}

// cursor is the next address in the current segment.
func (c *compilation) cursor() uint32 {
	switch c.segment {
	case SegText:
		return state.TextBot + uint32(c.textLen)
	case SegData:
		return state.DataBot + uint32(len(c.binary.Data))
	case SegKText:
		return state.KTextBot + uint32(c.ktextLen)
	default:
		return state.KDataBot + uint32(len(c.binary.KData))
	}
}

// evalDirective handles one directive during pass one: segment switches,
// data bytes, alignment, and globals.
func (c *compilation) evalDirective(item *parser.Item) error {
	directive := item.Directive

	switch directive.Kind {
	case parser.DirText:
		c.segment = SegText
		return nil
	case parser.DirData:
		c.segment = SegData
		return nil
	case parser.DirKText:
		c.segment = SegKText
		return nil
	case parser.DirKData:
		c.segment = SegKData
		return nil
	case parser.DirGlobl:
		c.binary.Globals = append(c.binary.Globals, directive.Label)
		return nil
	}

	var bytes []safe.Safe[uint8]

	switch directive.Kind {
	case parser.DirAscii, parser.DirAsciiz:
		for _, ch := range []byte(directive.Str) {
			bytes = append(bytes, safe.Valid(ch))
		}
		if directive.Kind == parser.DirAsciiz {
			bytes = append(bytes, safe.Valid[uint8](0))
		}

	case parser.DirByte:
		for i := range directive.Values {
			value, err := c.evalConstInRange(&directive.Values[i], math.MinInt8, math.MaxUint8, directive.Kind)
			if err != nil {
				return compileError(item.Pos, err)
			}
			bytes = append(bytes, safe.Valid(uint8(value)))
		}

	case parser.DirHalf:
		for i := range directive.Values {
			value, err := c.evalConstInRange(&directive.Values[i], math.MinInt16, math.MaxUint16, directive.Kind)
			if err != nil {
				return compileError(item.Pos, err)
			}
			bytes = append(bytes, safe.Valid(uint8(value)), safe.Valid(uint8(value>>8)))
		}

	case parser.DirWord:
		for i := range directive.Values {
			value, err := c.evalConstInRange(&directive.Values[i], math.MinInt32, math.MaxUint32, directive.Kind)
			if err != nil {
				return compileError(item.Pos, err)
			}
			for shift := 0; shift < 32; shift += 8 {
				bytes = append(bytes, safe.Valid(uint8(value>>shift)))
			}
		}

	case parser.DirFloat:
		for _, value := range directive.Floats {
			word := math.Float32bits(float32(value))
			for shift := 0; shift < 32; shift += 8 {
				bytes = append(bytes, safe.Valid(uint8(word>>shift)))
			}
		}

	case parser.DirDouble:
		for _, value := range directive.Floats {
			word := math.Float64bits(value)
			for shift := 0; shift < 64; shift += 8 {
				bytes = append(bytes, safe.Valid(uint8(word>>shift)))
			}
		}

	case parser.DirAlign:
		power, err := c.evalConstInRange(&directive.Values[0], 0, 31, directive.Kind)
		if err != nil {
			return compileError(item.Pos, err)
		}
		multiple := 1 << power
		offset := c.segmentLen()
		pad := (multiple - offset%multiple) % multiple
		bytes = make([]safe.Safe[uint8], pad)
		if c.cfg.Spim {
			for i := range bytes {
				bytes[i] = safe.Valid[uint8](0)
			}
		}

	case parser.DirSpace:
		length, err := c.evalConstInRange(&directive.Values[0], 0, math.MaxUint32, directive.Kind)
		if err != nil {
			return compileError(item.Pos, err)
		}
		bytes = make([]safe.Safe[uint8], length)
		if c.cfg.Spim {
			for i := range bytes {
				bytes[i] = safe.Valid[uint8](0)
			}
		}
	}

	return c.insertData(item, bytes)
}

func (c *compilation) segmentLen() int {
	switch c.segment {
	case SegText:
		return c.textLen
	case SegData:
		return len(c.binary.Data)
	case SegKText:
		return c.ktextLen
	default:
		return len(c.binary.KData)
	}
}

// insertData appends emitted bytes to the current data segment. Data in a
// text segment is rejected, except zero-length emissions like .align 0.
func (c *compilation) insertData(item *parser.Item, bytes []safe.Safe[uint8]) error {
	if len(bytes) == 0 {
		return nil
	}

	switch c.segment {
	case SegData:
		c.binary.Data = append(c.binary.Data, bytes...)
		if uint64(len(c.binary.Data)) > uint64(state.HeapBot-state.DataBot) {
			return compileError(item.Pos, &TooMuchDataError{Segment: SegData})
		}
	case SegKData:
		c.binary.KData = append(c.binary.KData, bytes...)
	default:
		// Alignment padding in a text segment is dropped; instructions
		// are already word aligned.
		if item.Directive.Kind == parser.DirAlign {
			return nil
		}
		return compileError(item.Pos, &DataInTextSegmentError{Directive: item.Directive.Kind})
	}
	return nil
}

// substituteConstants replaces label references that name a known
// constant with the constant's value, so signature matching sees a
// literal.
func (c *compilation) substituteConstants(instruction *parser.Instruction) {
	for i := range instruction.Args {
		arg := &instruction.Args[i]
		switch {
		case arg.Kind == parser.ArgNumber && arg.Num.Kind == parser.NumImmediate &&
			arg.Num.Imm.Kind == parser.ImmLabel:
			if value, ok := c.binary.ConstantValue(arg.Num.Imm.Label); ok {
				arg.Num.Imm = parser.ClassifyImmediate(value)
			}
		case arg.Kind == parser.ArgOffset && arg.Imm.Kind == parser.ImmLabel:
			if value, ok := c.binary.ConstantValue(arg.Imm.Label); ok {
				arg.Imm = parser.ClassifyImmediate(value)
			}
		}
	}
}

// evalConst evaluates a constant expression tree against the constants
// bound so far.
func (c *compilation) evalConst(expr *parser.ConstExpr) (int64, error) {
	eval := func(sub *parser.ConstExpr) (int64, error) {
		return c.evalConst(sub)
	}

	switch expr.Op {
	case parser.ConstValue:
		return expr.Value, nil
	case parser.ConstRef:
		value, ok := c.binary.ConstantValue(expr.Ref)
		if !ok {
			return 0, &UnresolvedConstantError{Label: expr.Ref}
		}
		return value, nil
	case parser.ConstNeg:
		value, err := eval(expr.Left)
		return -value, err
	case parser.ConstNot:
		value, err := eval(expr.Left)
		return ^value, err
	}

	left, err := eval(expr.Left)
	if err != nil {
		return 0, err
	}
	right, err := eval(expr.Right)
	if err != nil {
		return 0, err
	}

	switch expr.Op {
	case parser.ConstAdd:
		return left + right, nil
	case parser.ConstSub:
		return left - right, nil
	case parser.ConstMul:
		return left * right, nil
	case parser.ConstDiv:
		if right == 0 {
			return 0, fmt.Errorf("division by zero in constant expression")
		}
		return left / right, nil
	case parser.ConstMod:
		if right == 0 {
			return 0, fmt.Errorf("division by zero in constant expression")
		}
		return left % right, nil
	case parser.ConstAnd:
		return left & right, nil
	case parser.ConstOr:
		return left | right, nil
	case parser.ConstXor:
		return left ^ right, nil
	case parser.ConstShl:
		return left << uint(right&63), nil
	default:
		return left >> uint(right&63), nil
	}
}

func (c *compilation) evalConstInRange(expr *parser.ConstExpr, low, high int64, directive parser.DirectiveKind) (int64, error) {
	value, err := c.evalConst(expr)
	if err != nil {
		return 0, err
	}
	if value < low || value > high {
		return 0, &ConstantValueDoesNotFitError{
			Directive: directive,
			Value:     value,
			RangeLow:  low,
			RangeHigh: high,
		}
	}
	return value, nil
}
