/*
   CPU test routines: end-to-end execution scenarios.

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
	"errors"
	"testing"

	"github.com/rcornwell/MIPS32/emu/assemble"
	"github.com/rcornwell/MIPS32/emu/inst"
	"github.com/rcornwell/MIPS32/emu/parser"
	"github.com/rcornwell/MIPS32/emu/state"
)

func makeRuntime(t *testing.T, src string) *Runtime {
	t.Helper()
	program, err := parser.ParseFile("test.s", src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	binary, err := assemble.Compile(inst.NewSet(), program, nil, nil, nil)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return New(binary, nil, 1000)
}

// stepToSuspension runs until the next suspension, failing on errors.
func stepToSuspension(t *testing.T, r *Runtime) *Suspension {
	t.Helper()
	for i := 0; i < 10000; i++ {
		suspension, err := r.Step()
		if err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		if suspension != nil {
			return suspension
		}
	}
	t.Fatal("No suspension within 10000 steps")
	return nil
}

// stepToError runs until a step fails.
func stepToError(t *testing.T, r *Runtime) error {
	t.Helper()
	for i := 0; i < 10000; i++ {
		suspension, err := r.Step()
		if err != nil {
			return err
		}
		if suspension != nil && (suspension.Kind == SusExit || suspension.Kind == SusExitStatus) {
			t.Fatal("Program exited without an error")
		}
	}
	t.Fatal("No error within 10000 steps")
	return nil
}

func TestPrintIntScenario(t *testing.T) {
	r := makeRuntime(t, `
main:
	li $t0, 5
	li $t1, 7
	add $t2, $t0, $t1
	li $v0, 1
	move $a0, $t2
	syscall
	li $v0, 10
	syscall
`)

	suspension := stepToSuspension(t, r)
	if suspension.Kind != SusPrintInt || suspension.Value != 12 {
		t.Fatalf("First suspension Got: %s %d Expected: print_int 12", suspension.Kind, suspension.Value)
	}

	suspension = stepToSuspension(t, r)
	if suspension.Kind != SusExit {
		t.Fatalf("Second suspension Got: %s Expected: exit", suspension.Kind)
	}
}

func TestIntegerOverflowScenario(t *testing.T) {
	r := makeRuntime(t, `
main:
	li $t0, 0x7FFFFFFF
	addi $t0, $t0, 1
`)

	err := stepToError(t, r)
	var overflow *IntegerOverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("Got: %v Expected: IntegerOverflow", err)
	}

	// The failed step was rolled back: the surfaced state still points
	// at the addi with the pre-failure registers.
	st := r.State()
	word, err2 := st.ReadWord(st.PC())
	if err2 != nil || word>>26 != 0x08 {
		t.Errorf("Rolled-back PC word Got: %#08x,%v Expected: an addi", word, err2)
	}
	value, err2 := st.ReadRegister(8)
	if err2 != nil || value != 0x7FFFFFFF {
		t.Errorf("Rolled-back $t0 Got: %#x,%v Expected: 0x7fffffff", value, err2)
	}
}

func TestDivisionByZeroScenario(t *testing.T) {
	r := makeRuntime(t, `
main:
	li $t0, 0
	div $t1, $t0
`)

	err := stepToError(t, r)
	var divZero *DivisionByZeroError
	if !errors.As(err, &divZero) {
		t.Fatalf("Got: %v Expected: DivisionByZero", err)
	}
}

func TestUnalignedScenario(t *testing.T) {
	r := makeRuntime(t, `
.data
msg: .word 0
.text
main:
	la $t0, msg
	lw $t1, 1($t0)
`)

	err := stepToError(t, r)
	var unaligned *state.UnalignedAccessError
	if !errors.As(err, &unaligned) {
		t.Fatalf("Got: %v Expected: UnalignedAccess", err)
	}
	if unaligned.Addr != state.DataBot+1 || unaligned.Alignment != state.AlignWord {
		t.Errorf("Got: addr=%#x align=%v Expected: msg+1, word", unaligned.Addr, unaligned.Alignment)
	}
}

func TestLoadThenIncrement(t *testing.T) {
	r := makeRuntime(t, `
.data
x: .word 0
.text
main:
	lw $t0, x
	addi $t0, $t0, 1
	li $v0, 10
	syscall
`)

	mainAddr := uint32(0x00400000)
	// Run the kernel preamble plus the 4-word lw expansion.
	for r.State().PC() != mainAddr+16 {
		if _, err := r.Step(); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
	}
	value, err := r.State().ReadRegister(8)
	if err != nil || value != 0 {
		t.Fatalf("After lw $t0 Got: %d,%v Expected: Valid(0)", value, err)
	}

	if _, err := r.Step(); err != nil {
		t.Fatalf("addi failed: %v", err)
	}
	value, err = r.State().ReadRegister(8)
	if err != nil || value != 1 {
		t.Errorf("After addi $t0 Got: %d,%v Expected: Valid(1)", value, err)
	}
}

func TestSbrkScenario(t *testing.T) {
	r := makeRuntime(t, `
main:
	li $a0, 16
	li $v0, 9
	syscall
	li $v0, 10
	syscall
`)

	suspension := stepToSuspension(t, r)
	if suspension.Kind != SusSbrk || suspension.Value != 16 {
		t.Fatalf("Got: %s %d Expected: sbrk 16", suspension.Kind, suspension.Value)
	}

	st := r.State()
	pointer, err := st.ReadRegister(inst.RegV0)
	if err != nil || uint32(pointer) != state.HeapBot {
		t.Fatalf("sbrk pointer Got: %#x,%v Expected: %#x", pointer, err, state.HeapBot)
	}
	if st.HeapSize() != 16 {
		t.Fatalf("Heap size Got: %d Expected: 16", st.HeapSize())
	}

	// 16 bytes are writable; the 17th faults.
	for i := uint32(0); i < 16; i++ {
		if err := st.WriteByte(uint32(pointer)+i, 0xAA); err != nil {
			t.Fatalf("Heap write %d faulted: %v", i, err)
		}
	}
	var segfault *state.SegmentationFaultError
	if err := st.WriteByte(uint32(pointer)+16, 0xAA); !errors.As(err, &segfault) {
		t.Errorf("17th heap byte Got: %v Expected: SegmentationFault", err)
	}
}

func TestReadIntResume(t *testing.T) {
	r := makeRuntime(t, `
main:
	li $v0, 5
	syscall
	li $v0, 10
	syscall
`)

	suspension := stepToSuspension(t, r)
	if suspension.Kind != SusReadInt {
		t.Fatalf("Got: %s Expected: read_int", suspension.Kind)
	}
	if err := r.ResumeInt(42); err != nil {
		t.Fatalf("ResumeInt failed: %v", err)
	}
	value, err := r.State().ReadRegister(inst.RegV0)
	if err != nil || value != 42 {
		t.Errorf("$v0 Got: %d,%v Expected: 42", value, err)
	}

	// Resuming twice is an error.
	if err := r.ResumeInt(1); err == nil {
		t.Error("Second resume did not fail")
	}
}

func TestReadStringResume(t *testing.T) {
	r := makeRuntime(t, `
.data
buf: .space 8
.text
main:
	la $a0, buf
	li $a1, 5
	li $v0, 8
	syscall
	li $v0, 10
	syscall
`)

	suspension := stepToSuspension(t, r)
	if suspension.Kind != SusReadString || suspension.MaxLen != 5 {
		t.Fatalf("Got: %s maxlen=%d Expected: read_string 5", suspension.Kind, suspension.MaxLen)
	}
	if err := r.ResumeString([]byte("hello world")); err != nil {
		t.Fatalf("ResumeString failed: %v", err)
	}

	// Only len-1 bytes plus the terminator are stored.
	got, err := r.State().ReadString(state.DataBot)
	if err != nil || string(got) != "hell" {
		t.Errorf("Buffer Got: %q,%v Expected: hell", got, err)
	}
}

func TestInvalidSyscall(t *testing.T) {
	r := makeRuntime(t, `
main:
	li $v0, 99
	syscall
`)

	err := stepToError(t, r)
	var invalid *InvalidSyscallError
	if !errors.As(err, &invalid) {
		t.Fatalf("Got: %v Expected: InvalidSyscall", err)
	}
	if invalid.Syscall != 99 || invalid.Reason != ReasonUnknown {
		t.Errorf("Got: %d %v Expected: 99 unknown", invalid.Syscall, invalid.Reason)
	}
}

func TestFloatSyscallUnimplemented(t *testing.T) {
	r := makeRuntime(t, `
main:
	li $v0, 2
	syscall
`)

	err := stepToError(t, r)
	var invalid *InvalidSyscallError
	if !errors.As(err, &invalid) || invalid.Reason != ReasonUnimplemented {
		t.Fatalf("Got: %v Expected: InvalidSyscall unimplemented", err)
	}
}

func TestExitStatus(t *testing.T) {
	r := makeRuntime(t, `
main:
	li $a0, 7
	li $v0, 17
	syscall
`)

	suspension := stepToSuspension(t, r)
	if suspension.Kind != SusExitStatus || suspension.Value != 7 {
		t.Errorf("Got: %s %d Expected: exit_status 7", suspension.Kind, suspension.Value)
	}
}

func TestStepBackRestoresState(t *testing.T) {
	r := makeRuntime(t, `
main:
	li $t0, 1
	li $t0, 2
`)

	// Step to just before the second li.
	for r.State().PC() != 0x00400004 {
		if _, err := r.Step(); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
	}
	if _, err := r.Step(); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	value, _ := r.State().ReadRegister(8)
	if value != 2 {
		t.Fatalf("$t0 Got: %d Expected: 2", value)
	}

	if !r.Timeline().PopLast() {
		t.Fatal("PopLast failed")
	}
	value, err := r.State().ReadRegister(8)
	if err != nil || value != 1 {
		t.Errorf("After back step $t0 Got: %d,%v Expected: 1", value, err)
	}
	if r.State().PC() != 0x00400004 {
		t.Errorf("After back step PC Got: %#x Expected: 0x00400004", r.State().PC())
	}
}

func TestUninitialisedDiagnostics(t *testing.T) {
	r := makeRuntime(t, `
main:
	add $t2, $t0, $t1
`)

	err := stepToError(t, r)
	var uninit *state.UninitialisedError
	if !errors.As(err, &uninit) {
		t.Fatalf("Got: %v Expected: Uninitialised", err)
	}
	if uninit.Kind != state.UninitRegister {
		t.Errorf("Got kind %d Expected: register", uninit.Kind)
	}
}

func TestTrapInstruction(t *testing.T) {
	r := makeRuntime(t, `
main:
	li $t0, 3
	teq $t0, $t0
`)

	suspension := stepToSuspension(t, r)
	if suspension.Kind != SusTrap {
		t.Errorf("Got: %s Expected: trap", suspension.Kind)
	}
}

func TestBreakInstruction(t *testing.T) {
	r := makeRuntime(t, `
main:
	break
`)

	suspension := stepToSuspension(t, r)
	if suspension.Kind != SusBreakpoint {
		t.Errorf("Got: %s Expected: breakpoint", suspension.Kind)
	}
}

func TestProgramArguments(t *testing.T) {
	program, err := parser.ParseFile("test.s", "main:\n\tnop\n")
	if err != nil {
		t.Fatal(err)
	}
	binary, err := assemble.Compile(inst.NewSet(), program, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	r := New(binary, []string{"prog", "arg1"}, 1000)
	st := r.State()

	argc, err := st.ReadRegister(inst.RegA0)
	if err != nil || argc != 2 {
		t.Fatalf("argc Got: %d,%v Expected: 2", argc, err)
	}
	argv, err := st.ReadRegister(inst.RegA1)
	if err != nil {
		t.Fatal(err)
	}

	first, err := st.ReadWord(uint32(argv))
	if err != nil {
		t.Fatal(err)
	}
	name, err := st.ReadString(first)
	if err != nil || string(name) != "prog" {
		t.Errorf("argv[0] Got: %q,%v Expected: prog", name, err)
	}

	second, err := st.ReadWord(uint32(argv) + 4)
	if err != nil {
		t.Fatal(err)
	}
	arg, err := st.ReadString(second)
	if err != nil || string(arg) != "arg1" {
		t.Errorf("argv[1] Got: %q,%v Expected: arg1", arg, err)
	}

	// Terminating null pointer.
	last, err := st.ReadWord(uint32(argv) + 8)
	if err != nil || last != 0 {
		t.Errorf("argv terminator Got: %#x,%v Expected: 0", last, err)
	}

	// No arguments: a0 = 0, a1 = NULL.
	r = New(binary, nil, 1000)
	argc, _ = r.State().ReadRegister(inst.RegA0)
	argv, _ = r.State().ReadRegister(inst.RegA1)
	if argc != 0 || argv != 0 {
		t.Errorf("Empty args Got: a0=%d a1=%d Expected: 0, 0", argc, argv)
	}
}
