/*
   Driver test routines: run loops, break and watch points.

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

package runner

import (
	"errors"
	"testing"

	"github.com/rcornwell/MIPS32/emu/assemble"
	"github.com/rcornwell/MIPS32/emu/breakpoints"
	"github.com/rcornwell/MIPS32/emu/cpu"
	"github.com/rcornwell/MIPS32/emu/inst"
	"github.com/rcornwell/MIPS32/emu/parser"
)

// testHandler records host I/O and serves canned inputs.
type testHandler struct {
	ints     []int32
	strings  []string
	chars    []byte
	readInts []int32
}

func (h *testHandler) PrintInt(value int32)       { h.ints = append(h.ints, value) }
func (h *testHandler) PrintFloat(float32)         {}
func (h *testHandler) PrintDouble(float64)        {}
func (h *testHandler) PrintString(value []byte)   { h.strings = append(h.strings, string(value)) }
func (h *testHandler) PrintChar(value byte)       { h.chars = append(h.chars, value) }
func (h *testHandler) ReadFloat() (float32, error)  { return 0, errors.New("no floats") }
func (h *testHandler) ReadDouble() (float64, error) { return 0, errors.New("no doubles") }

func (h *testHandler) ReadInt() (int32, error) {
	if len(h.readInts) == 0 {
		return 0, errors.New("no canned input")
	}
	value := h.readInts[0]
	h.readInts = h.readInts[1:]
	return value, nil
}

func (h *testHandler) ReadString(int32) ([]byte, error) { return []byte("input"), nil }
func (h *testHandler) ReadChar() (byte, error)          { return 'x', nil }

func (h *testHandler) Open([]byte, uint32, uint32) (int32, error) {
	return 0, &cpu.InvalidSyscallError{Syscall: cpu.SysOpen, Reason: cpu.ReasonDisabled}
}
func (h *testHandler) Read(uint32, uint32) (int32, []byte, error) {
	return 0, nil, &cpu.InvalidSyscallError{Syscall: cpu.SysRead, Reason: cpu.ReasonDisabled}
}
func (h *testHandler) Write(uint32, []byte) (int32, error) {
	return 0, &cpu.InvalidSyscallError{Syscall: cpu.SysWrite, Reason: cpu.ReasonDisabled}
}
func (h *testHandler) Close(uint32) (int32, error) {
	return 0, &cpu.InvalidSyscallError{Syscall: cpu.SysClose, Reason: cpu.ReasonDisabled}
}
func (h *testHandler) Sbrk(int32) {}
func (h *testHandler) Trap()      {}

func makeRunner(t *testing.T, src string) (*Runner, *testHandler) {
	t.Helper()
	program, err := parser.ParseFile("test.s", src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	binary, err := assemble.Compile(inst.NewSet(), program, nil, nil, nil)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	handler := &testHandler{}
	runtime := cpu.New(binary, nil, 1000)
	return New(inst.NewSet(), binary, runtime, handler, nil), handler
}

func TestRunToExit(t *testing.T) {
	run, handler := makeRunner(t, `
main:
	li $v0, 1
	li $a0, 42
	syscall
	li $a0, 7
	li $v0, 17
	syscall
`)

	if err := run.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	exited, code := run.Exited()
	if !exited || code != 7 {
		t.Errorf("Exit Got: %v,%d Expected: true,7", exited, code)
	}
	if len(handler.ints) != 1 || handler.ints[0] != 42 {
		t.Errorf("Printed ints Got: %v Expected: [42]", handler.ints)
	}
}

func TestReadIntThroughHandler(t *testing.T) {
	run, handler := makeRunner(t, `
main:
	li $v0, 5
	syscall
	move $a0, $v0
	li $v0, 1
	syscall
	li $v0, 10
	syscall
`)
	handler.readInts = []int32{33}

	if err := run.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(handler.ints) != 1 || handler.ints[0] != 33 {
		t.Errorf("Echoed int Got: %v Expected: [33]", handler.ints)
	}
}

func TestBreakpointPausesRun(t *testing.T) {
	run, _ := makeRunner(t, `
main:
	li $t0, 1
	li $t0, 2
	li $t0, 3
	li $v0, 10
	syscall
`)

	mainAddr, _ := run.Binary.GetLabel("main")
	run.Binary.InsertBreakpoint(mainAddr + 4)

	if err := run.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if exited, _ := run.Exited(); exited {
		t.Fatal("Run passed the breakpoint")
	}
	if pc := run.Runtime.State().PC(); pc != mainAddr+4 {
		t.Fatalf("Paused PC Got: %#x Expected: %#x", pc, mainAddr+4)
	}

	// Stepping back once restores PC to main.
	if err := run.StepBack(1); err != nil {
		t.Fatalf("StepBack failed: %v", err)
	}
	if pc := run.Runtime.State().PC(); pc != mainAddr {
		t.Errorf("Back-stepped PC Got: %#x Expected: %#x", pc, mainAddr)
	}

	// Resuming re-executes main's first instruction and stops at the
	// same breakpoint again, without error.
	if err := run.Run(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
}

func TestBreakpointIgnoreCount(t *testing.T) {
	run, _ := makeRunner(t, `
main:
	li $t1, 0
	li $t2, 5
loop:
	addi $t1, $t1, 1
	blt $t1, $t2, loop
	li $v0, 10
	syscall
`)

	loopAddr, _ := run.Binary.GetLabel("loop")
	bp := run.Binary.InsertBreakpoint(loopAddr)
	bp.IgnoreCount = 2

	if err := run.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if exited, _ := run.Exited(); exited {
		t.Fatal("Breakpoint never fired")
	}
	// Two arrivals ignored, paused on the third.
	value, err := run.Runtime.State().ReadRegister(9)
	if err != nil || value != 2 {
		t.Errorf("$t1 at pause Got: %d,%v Expected: 2", value, err)
	}
}

func TestDisabledBreakpoint(t *testing.T) {
	run, _ := makeRunner(t, `
main:
	li $t0, 1
	li $v0, 10
	syscall
`)
	mainAddr, _ := run.Binary.GetLabel("main")
	bp := run.Binary.InsertBreakpoint(mainAddr + 4)
	bp.Enabled = false

	if err := run.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if exited, _ := run.Exited(); !exited {
		t.Error("Disabled breakpoint paused the run")
	}
}

func TestWatchpointOnRegisterWrite(t *testing.T) {
	run, _ := makeRunner(t, `
main:
	add $t0, $sp, $zero
	addiu $sp, $sp, -4
	li $v0, 10
	syscall
`)

	run.Binary.InsertWatchpoint(breakpoints.RegisterTarget(inst.RegSp), breakpoints.WriteOnly)

	if err := run.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if exited, _ := run.Exited(); exited {
		t.Fatal("Watchpoint never fired")
	}

	// The read of $sp did not fire; the write did.
	mainAddr, _ := run.Binary.GetLabel("main")
	if pc := run.Runtime.State().PC(); pc != mainAddr+8 {
		t.Errorf("Paused PC Got: %#x Expected: %#x", pc, mainAddr+8)
	}
}

func TestWatchpointIgnoreCount(t *testing.T) {
	run, _ := makeRunner(t, `
main:
	addiu $sp, $sp, -4
	addiu $sp, $sp, -4
	addiu $sp, $sp, -4
	li $v0, 10
	syscall
`)

	wp := run.Binary.InsertWatchpoint(breakpoints.RegisterTarget(inst.RegSp), breakpoints.WriteOnly)
	wp.IgnoreCount = 2

	if err := run.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if exited, _ := run.Exited(); exited {
		t.Fatal("Watchpoint never fired")
	}
	// Fired on the third write.
	mainAddr, _ := run.Binary.GetLabel("main")
	if pc := run.Runtime.State().PC(); pc != mainAddr+12 {
		t.Errorf("Paused PC Got: %#x Expected: %#x", pc, mainAddr+12)
	}
}

func TestWatchpointOnMemory(t *testing.T) {
	run, _ := makeRunner(t, `
.data
x: .word 1
.text
main:
	la $t0, x
	lw $t1, 0($t0)
	li $v0, 10
	syscall
`)

	addr, _ := run.Binary.GetLabel("x")
	run.Binary.InsertWatchpoint(breakpoints.MemoryTarget(addr), breakpoints.ReadOnly)

	if err := run.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if exited, _ := run.Exited(); exited {
		t.Fatal("Memory watchpoint never fired")
	}
}

func TestBackOverHistoryEnd(t *testing.T) {
	run, _ := makeRunner(t, `
main:
	li $v0, 10
	syscall
`)

	err := run.StepBack(1)
	var out *RanOutOfHistoryError
	if !errors.As(err, &out) {
		t.Errorf("Got: %v Expected: RanOutOfHistory", err)
	}
}

func TestTemporaryBreakpointCommand(t *testing.T) {
	run, _ := makeRunner(t, `
main:
	li $t0, 1
	li $v0, 10
	syscall
`)
	mainAddr, _ := run.Binary.GetLabel("main")
	bp := run.Binary.InsertBreakpoint(mainAddr + 4)
	bp.Commands = append(bp.Commands, "remove-me")

	var got []string
	run.CommandHook = func(command string) { got = append(got, command) }

	if err := run.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(got) != 1 || got[0] != "remove-me" {
		t.Errorf("Commands Got: %v Expected: [remove-me]", got)
	}
}

func TestRunUntilSyscall(t *testing.T) {
	run, handler := makeRunner(t, `
main:
	li $a0, 1
	li $v0, 1
	syscall
	li $a0, 2
	li $v0, 1
	syscall
	li $v0, 10
	syscall
`)
	_ = handler

	err := run.RunUntil(func(s *cpu.Suspension) bool {
		return s.Kind == cpu.SusPrintInt
	})
	if err != nil {
		t.Fatalf("RunUntil failed: %v", err)
	}
	if exited, _ := run.Exited(); exited {
		t.Fatal("RunUntil ran to completion")
	}
	if len(handler.ints) != 1 || handler.ints[0] != 1 {
		t.Errorf("Prints at pause Got: %v Expected: [1]", handler.ints)
	}
}

func TestReset(t *testing.T) {
	run, _ := makeRunner(t, `
main:
	li $v0, 10
	syscall
`)

	if err := run.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if exited, _ := run.Exited(); !exited {
		t.Fatal("Program did not exit")
	}

	run.Reset()
	if exited, _ := run.Exited(); exited {
		t.Error("Reset left the runner exited")
	}
	if run.Runtime.Timeline().Len() != 1 {
		t.Error("Reset did not rewind the timeline")
	}

	// The program runs again after reset.
	if err := run.Run(); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if exited, _ := run.Exited(); !exited {
		t.Error("Second run did not exit")
	}
}
