/*
   Source parser test routines.

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

import "testing"

func parseOne(t *testing.T, src string) *Program {
	t.Helper()
	program, err := ParseFile("test", src)
	if err != nil {
		t.Fatalf("Parse of %q failed: %v", src, err)
	}
	return program
}

func TestLabelAndInstruction(t *testing.T) {
	program := parseOne(t, "main: add $t2, $t0, $t1")
	if len(program.Items) != 2 {
		t.Fatalf("Items Got: %d Expected: 2", len(program.Items))
	}
	if program.Items[0].Kind != ItemLabel || program.Items[0].Label != "main" {
		t.Error("First item is not the main label")
	}
	inst := program.Items[1].Instruction
	if inst == nil || inst.Name != "add" || len(inst.Args) != 3 {
		t.Fatalf("Instruction not parsed: %+v", program.Items[1])
	}
	if inst.Args[0].Kind != ArgRegister || inst.Args[0].Reg.Name != "t2" {
		t.Errorf("First argument Got: %+v Expected: $t2", inst.Args[0])
	}
}

func TestOffsetArgument(t *testing.T) {
	program := parseOne(t, "lw $t0, -8($sp)")
	arg := program.Items[0].Instruction.Args[1]
	if arg.Kind != ArgOffset {
		t.Fatalf("Got: %+v Expected: offset argument", arg)
	}
	if arg.Imm.Kind != ImmI16 || arg.Imm.Value != -8 || arg.Reg.Name != "sp" {
		t.Errorf("Offset Got: %+v Expected: -8($sp)", arg)
	}

	program = parseOne(t, "lw $t0, ($t1)")
	arg = program.Items[0].Instruction.Args[1]
	if arg.Kind != ArgOffset || arg.Imm.Value != 0 {
		t.Errorf("Zero offset Got: %+v Expected: 0($t1)", arg)
	}
}

func TestImmediateClassification(t *testing.T) {
	tests := []struct {
		src  string
		kind ImmKind
	}{
		{"li $t0, 5", ImmI16},
		{"li $t0, -5", ImmI16},
		{"li $t0, 40000", ImmU16},
		{"li $t0, 0x7FFFFFFF", ImmI32},
		{"li $t0, 0xFFFFFFFF", ImmU32},
		{"li $t0, -40000", ImmI32},
	}
	for _, test := range tests {
		program := parseOne(t, test.src)
		imm := program.Items[0].Instruction.Args[1].Num.Imm
		if imm.Kind != test.kind {
			t.Errorf("%s Got: kind %d Expected: kind %d", test.src, imm.Kind, test.kind)
		}
	}
}

func TestNumberBases(t *testing.T) {
	program := parseOne(t, "li $t0, 0x10\nli $t0, 0b101\nli $t0, 0o17")
	values := []int64{16, 5, 15}
	for i, expect := range values {
		imm := program.Items[i].Instruction.Args[1].Num.Imm
		if imm.Value != expect {
			t.Errorf("Item %d Got: %d Expected: %d", i, imm.Value, expect)
		}
	}
}

func TestCharArgumentAndEscape(t *testing.T) {
	program := parseOne(t, "li $a0, 'x'\nli $a0, '\\n'")
	if ch := program.Items[0].Instruction.Args[1].Num.Char; ch != 'x' {
		t.Errorf("Char Got: %q Expected: x", ch)
	}
	if ch := program.Items[1].Instruction.Args[1].Num.Char; ch != '\n' {
		t.Errorf("Escaped char Got: %q Expected: newline", ch)
	}
}

func TestDirectives(t *testing.T) {
	src := `
.data
msg: .asciiz "hi\n"
nums: .word 1, 2, 3
.align 2
.space 16
.globl main
.text
`
	program := parseOne(t, src)

	var kinds []DirectiveKind
	for _, item := range program.Items {
		if item.Kind == ItemDirective {
			kinds = append(kinds, item.Directive.Kind)
		}
	}
	expect := []DirectiveKind{DirData, DirAsciiz, DirWord, DirAlign, DirSpace, DirGlobl, DirText}
	if len(kinds) != len(expect) {
		t.Fatalf("Directives Got: %v Expected: %v", kinds, expect)
	}
	for i := range expect {
		if kinds[i] != expect[i] {
			t.Errorf("Directive %d Got: %v Expected: %v", i, kinds[i], expect[i])
		}
	}

	for _, item := range program.Items {
		if item.Kind == ItemDirective && item.Directive.Kind == DirAsciiz {
			if item.Directive.Str != "hi\n" {
				t.Errorf("String Got: %q Expected: hi\\n", item.Directive.Str)
			}
		}
	}
}

func TestConstants(t *testing.T) {
	program := parseOne(t, "SIZE = 4 * (2 + 3)\n.eqv MASK 0xFF")
	if program.Items[0].Kind != ItemConstant || program.Items[0].Constant.Name != "SIZE" {
		t.Fatal("Assignment constant not parsed")
	}
	if program.Items[1].Kind != ItemConstant || program.Items[1].Constant.Name != "MASK" {
		t.Fatal(".eqv constant not parsed")
	}
}

func TestComments(t *testing.T) {
	program := parseOne(t, "add $t0, $t1, $t2 # comment here\n# whole line\n; also a comment")
	if len(program.Items) != 1 {
		t.Errorf("Items Got: %d Expected: 1", len(program.Items))
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := ParseFile("bad.s", "main:\n.word @")
	if err == nil {
		t.Fatal("Expected a parse error")
	}
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("Got: %T Expected: *ParseError", err)
	}
	if perr.Pos.Line != 2 || perr.Pos.FileTag != "bad.s" {
		t.Errorf("Position Got: %+v Expected: bad.s line 2", perr.Pos)
	}
}
