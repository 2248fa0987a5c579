/*
   Assembler test routines.

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
	"errors"
	"testing"

	"github.com/rcornwell/MIPS32/config/simconfig"
	"github.com/rcornwell/MIPS32/emu/inst"
	"github.com/rcornwell/MIPS32/emu/parser"
	"github.com/rcornwell/MIPS32/emu/state"
)

func compileSource(t *testing.T, src string) *Binary {
	t.Helper()
	binary, err := compileSourceErr(src)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return binary
}

func compileSourceErr(src string) (*Binary, error) {
	program, err := parser.ParseFile("test.s", src)
	if err != nil {
		return nil, err
	}
	return Compile(inst.NewSet(), program, nil, nil, nil)
}

func textWord(b *Binary, index int) uint32 {
	var word uint32
	for i := 0; i < 4; i++ {
		value, _ := b.Text[index*4+i].Get()
		word |= uint32(value) << (8 * i)
	}
	return word
}

func TestCompileSimpleProgram(t *testing.T) {
	binary := compileSource(t, `
main:
	li $t0, 5
	li $t1, 7
	add $t2, $t0, $t1
`)

	addr, ok := binary.GetLabel("main")
	if !ok || addr != state.TextBot {
		t.Errorf("main Got: %#x,%v Expected: %#x", addr, ok, state.TextBot)
	}
	if len(binary.Text) != 3*4 {
		t.Errorf("Text size Got: %d Expected: 12", len(binary.Text))
	}
	if textWord(binary, 2) != 0x01095020 {
		t.Errorf("add word Got: %#08x Expected: 0x01095020", textWord(binary, 2))
	}

	// The kernel program landed in ktext with the entry vector first.
	if len(binary.KText) == 0 {
		t.Error("Kernel text missing")
	}
	if _, ok := binary.GetLabel("__start"); !ok {
		t.Error("Kernel entry label missing")
	}
}

func TestCaseInsensitiveLabels(t *testing.T) {
	binary := compileSource(t, `
Main:
	j MAIN
`)
	addr, ok := binary.GetLabel("mAiN")
	if !ok || addr != state.TextBot {
		t.Error("Labels are not case-insensitive")
	}

	labels := binary.Labels()
	found := false
	for _, label := range labels {
		if label.Name == "Main" {
			found = true
		}
	}
	if !found {
		t.Error("Original label spelling was not preserved")
	}
}

func TestDataLayout(t *testing.T) {
	binary := compileSource(t, `
.data
x: .word 0x11223344
s: .asciiz "ab"
h: .half 0x5566
.text
main:
	nop
`)

	if addr, _ := binary.GetLabel("x"); addr != state.DataBot {
		t.Errorf("x Got: %#x Expected: %#x", addr, state.DataBot)
	}
	if addr, _ := binary.GetLabel("s"); addr != state.DataBot+4 {
		t.Errorf("s Got: %#x Expected: %#x", addr, state.DataBot+4)
	}
	if addr, _ := binary.GetLabel("h"); addr != state.DataBot+7 {
		t.Errorf("h Got: %#x Expected: %#x", addr, state.DataBot+7)
	}

	// Little-endian word emission.
	expect := []uint8{0x44, 0x33, 0x22, 0x11, 'a', 'b', 0, 0x66, 0x55}
	if len(binary.Data) != len(expect) {
		t.Fatalf("Data size Got: %d Expected: %d", len(binary.Data), len(expect))
	}
	for i, want := range expect {
		value, ok := binary.Data[i].Get()
		if !ok || value != want {
			t.Errorf("Data[%d] Got: %#x,%v Expected: %#x", i, value, ok, want)
		}
	}
}

func TestAlignPadsToPowerOfTwo(t *testing.T) {
	binary := compileSource(t, `
.data
.byte 1
.align 2
w: .word 2
.text
main:
	nop
`)

	if addr, _ := binary.GetLabel("w"); addr != state.DataBot+4 {
		t.Errorf("Aligned label Got: %#x Expected: %#x", addr, state.DataBot+4)
	}
	// Padding bytes are uninitialised outside spim mode.
	if _, ok := binary.Data[1].Get(); ok {
		t.Error("Alignment padding is initialised")
	}
}

func TestSpimPadding(t *testing.T) {
	program, err := parser.ParseFile("test.s", `
.data
.byte 1
.space 3
.text
main:
	nop
`)
	if err != nil {
		t.Fatal(err)
	}
	cfg := simconfig.Default()
	cfg.Spim = true
	binary, err := Compile(inst.NewSet(), program, nil, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < 4; i++ {
		value, ok := binary.Data[i].Get()
		if !ok || value != 0 {
			t.Errorf("spim .space byte %d Got: %#x,%v Expected: 0", i, value, ok)
		}
	}
}

func TestConstantsAndExpressions(t *testing.T) {
	binary := compileSource(t, `
SIZE = 4 * (2 + 3)
MASK = ~0xF & 0xFF
.eqv SHIFTED 1 << 4
.data
buf: .space SIZE
.text
main:
	li $t0, SIZE
`)

	if value, ok := binary.ConstantValue("size"); !ok || value != 20 {
		t.Errorf("SIZE Got: %d,%v Expected: 20", value, ok)
	}
	if value, ok := binary.ConstantValue("MASK"); !ok || value != 0xF0 {
		t.Errorf("MASK Got: %#x,%v Expected: 0xf0", value, ok)
	}
	if value, ok := binary.ConstantValue("shifted"); !ok || value != 16 {
		t.Errorf("SHIFTED Got: %d,%v Expected: 16", value, ok)
	}
	if len(binary.Data) != 20 {
		t.Errorf("Space size Got: %d Expected: 20", len(binary.Data))
	}
	// li SIZE compiled as a small immediate load.
	if textWord(binary, 0) != 0x24080014 {
		t.Errorf("li SIZE Got: %#08x Expected: 0x24080014", textWord(binary, 0))
	}
}

func TestPseudoSizeMatchesExpansion(t *testing.T) {
	binary := compileSource(t, `
.data
msg: .word 1
.text
main:
	lw $t0, msg
after:
	nop
`)
	mainAddr, _ := binary.GetLabel("main")
	afterAddr, _ := binary.GetLabel("after")
	if afterAddr-mainAddr != 16 {
		t.Errorf("lw label expansion Got: %d bytes Expected: 16", afterAddr-mainAddr)
	}
}

func TestBranchToLabel(t *testing.T) {
	binary := compileSource(t, `
main:
	nop
loop:
	addi $t0, $t0, 1
	beq $t0, $t1, done
	j loop
done:
	nop
`)
	// beq is the third word; done is two instructions ahead of it.
	word := textWord(binary, 2)
	if word>>26 != 0x04 {
		t.Fatalf("Expected beq word, got %#08x", word)
	}
	if uint16(word) != 2 {
		t.Errorf("beq offset Got: %d Expected: 2", uint16(word))
	}
}

func TestMoveLabelOption(t *testing.T) {
	program, err := parser.ParseFile("test.s", `
main:
	nop
other:
	nop
`)
	if err != nil {
		t.Fatal(err)
	}
	options := &Options{MoveLabels: []LabelMove{{From: "main", To: "other"}}}
	binary, err := Compile(inst.NewSet(), program, nil, options, nil)
	if err != nil {
		t.Fatal(err)
	}
	mainAddr, _ := binary.GetLabel("main")
	otherAddr, _ := binary.GetLabel("other")
	if mainAddr != otherAddr {
		t.Errorf("main Got: %#x Expected: %#x", mainAddr, otherAddr)
	}
}

func TestCompileErrors(t *testing.T) {
	var redefined *RedefinedLabelError
	_, err := compileSourceErr("main:\nmain:\n\tnop")
	if !errors.As(err, &redefined) {
		t.Errorf("Redefined label Got: %v", err)
	}

	var redefConst *RedefinedConstantError
	_, err = compileSourceErr("A = 1\nA = 2\nmain:\tnop")
	if !errors.As(err, &redefConst) {
		t.Errorf("Redefined constant Got: %v", err)
	}

	var unresolved *UnresolvedLabelError
	_, err = compileSourceErr("main:\n\tj nowhere")
	if !errors.As(err, &unresolved) {
		t.Errorf("Unresolved label Got: %v", err)
	}

	var noFit *ConstantValueDoesNotFitError
	_, err = compileSourceErr(".data\n.byte 300\n.text\nmain:\tnop")
	if !errors.As(err, &noFit) {
		t.Errorf("Byte out of range Got: %v", err)
	}

	var inData *InstructionInDataSegmentError
	_, err = compileSourceErr(".data\n\tadd $t0, $t1, $t2\n.text\nmain:\tnop")
	if !errors.As(err, &inData) {
		t.Errorf("Instruction in data Got: %v", err)
	}

	var dataInText *DataInTextSegmentError
	_, err = compileSourceErr("main:\n.word 5\n")
	if !errors.As(err, &dataInText) {
		t.Errorf("Data in text Got: %v", err)
	}

	var unknown *inst.UnknownInstructionError
	_, err = compileSourceErr("main:\n\tfrobnicate $t0")
	if !errors.As(err, &unknown) {
		t.Errorf("Unknown instruction Got: %v", err)
	}
}

func TestErrorCarriesPosition(t *testing.T) {
	_, err := compileSourceErr("main:\n\tnop\n\tfrobnicate $t0")
	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("Got: %T Expected: CompileError", err)
	}
	if cerr.Pos.Line != 3 || cerr.Pos.FileTag != "test.s" {
		t.Errorf("Position Got: %+v Expected: test.s line 3", cerr.Pos)
	}
}

func TestUnresolvedLabelSuggestions(t *testing.T) {
	_, err := compileSourceErr("looop:\n\tj loop\n")
	var unresolved *UnresolvedLabelError
	if !errors.As(err, &unresolved) {
		t.Fatalf("Got: %v Expected: UnresolvedLabel", err)
	}
	found := false
	for _, name := range unresolved.Similar {
		if name == "looop" {
			found = true
		}
	}
	if !found {
		t.Errorf("Suggestions Got: %v Expected to contain looop", unresolved.Similar)
	}
}

func TestLineNumbers(t *testing.T) {
	binary := compileSource(t, `
main:
	nop
	li $t0, 0x12345678
`)
	info, ok := binary.LineNumbers[state.TextBot]
	if !ok || info.Line != 3 {
		t.Errorf("nop line Got: %+v,%v Expected: line 3", info, ok)
	}
	// Both words of the expanded li attribute to the same source line.
	for _, addr := range []uint32{state.TextBot + 4, state.TextBot + 8} {
		info, ok := binary.LineNumbers[addr]
		if !ok || info.Line != 4 {
			t.Errorf("li word at %#x Got: %+v,%v Expected: line 4", addr, info, ok)
		}
	}
}
