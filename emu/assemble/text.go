/*
   Assembler pass two: instruction encoding and pseudo expansion.

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
	"github.com/rcornwell/MIPS32/emu/parser"
	"github.com/rcornwell/MIPS32/emu/safe"
)

// compileText re-walks the program with the full label map and encodes
// every instruction, expanding pseudo instructions as it goes.
func (c *compilation) compileText(program *parser.Program) error {
	c.segment = SegText
	c.binary.segment = SegText

	for index := range program.Items {
		item := &program.Items[index]

		switch item.Kind {
		case parser.ItemDirective:
			switch item.Directive.Kind {
			case parser.DirText:
				c.segment = SegText
				c.binary.segment = SegText
			case parser.DirData:
				c.segment = SegData
			case parser.DirKText:
				c.segment = SegKText
				c.binary.segment = SegKText
			case parser.DirKData:
				c.segment = SegKData
			}

		case parser.ItemInstruction:
			if err := c.compileInstruction(item); err != nil {
				return err
			}
		}
	}

	return nil
}

func (c *compilation) compileInstruction(item *parser.Item) error {
	instruction := item.Instruction

	native, pseudo, err := c.iset.FindSignature(instruction)
	if err != nil {
		return compileError(item.Pos, err)
	}

	var words []uint32
	if native != nil {
		word, err := native.Assemble(c.binary, instruction.Args)
		if err != nil {
			return compileError(item.Pos, err)
		}
		words = []uint32{word}
	} else {
		words, err = pseudo.Assemble(c.iset, c.binary, instruction.Args)
		if err != nil {
			return compileError(item.Pos, err)
		}
	}

	for _, word := range words {
		addr := c.binary.CurrentAddress()
		c.binary.LineNumbers[addr] = LineInfo{FileTag: item.Pos.FileTag, Line: item.Pos.Line}
		c.appendWord(word)
	}
	return nil
}

// appendWord emits one encoded word, little-endian, into the current text
// segment.
func (c *compilation) appendWord(word uint32) {
	bytes := [4]safe.Safe[uint8]{
		safe.Valid(uint8(word)),
		safe.Valid(uint8(word >> 8)),
		safe.Valid(uint8(word >> 16)),
		safe.Valid(uint8(word >> 24)),
	}
	if c.segment == SegKText {
		c.binary.KText = append(c.binary.KText, bytes[:]...)
	} else {
		c.binary.Text = append(c.binary.Text, bytes[:]...)
	}
}
