/*
   Runtime: a loaded program's timeline plus the syscall resume slot.

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
	"fmt"

	"github.com/rcornwell/MIPS32/emu/assemble"
	"github.com/rcornwell/MIPS32/emu/inst"
	"github.com/rcornwell/MIPS32/emu/safe"
	"github.com/rcornwell/MIPS32/emu/state"
	"github.com/rcornwell/MIPS32/emu/timeline"
)

// Runtime executes a loaded binary over a timeline of states. While a
// read-class syscall suspension is outstanding, the pending slot records
// where its result must land; Resume* methods complete it.
type Runtime struct {
	timeline *timeline.Timeline

	pendingKind   SuspensionKind
	pendingActive bool
	pendingBuf    uint32
	pendingLen    int32
}

// New builds a runtime for a binary: the seed state holds the program
// image, conventional register values, and the argument vector on the
// stack. Execution begins at the kernel entry vector.
func New(program *assemble.Binary, args []string, timelineMax int) *Runtime {
	seed := state.New()
	seed.SetPC(state.KTextBot)

	loadSegment(seed, state.TextBot, program.Text)
	loadSegment(seed, state.DataBot, program.Data)
	loadSegment(seed, state.KTextBot, program.KText)
	loadSegment(seed, state.KDataBot, program.KData)

	seed.SeedZeroRegister()
	seed.WriteRegister(inst.RegSp, int32(state.StackPtr))
	seed.WriteRegister(inst.RegFp, int32(state.StackPtr))
	seed.WriteRegister(inst.RegGp, int32(state.GlobalPtr))

	includeArgs(seed, args)

	return &Runtime{timeline: timeline.New(seed, timelineMax)}
}

func loadSegment(seed *state.State, base uint32, bytes []safe.Safe[uint8]) {
	for i, b := range bytes {
		if value, ok := b.Get(); ok {
			_ = seed.WriteByte(base+uint32(i), value)
		}
	}
}

// includeArgs lays the argument vector out at the top of the stack: the
// string bytes, then the char** array with a terminating null, with
// a0/a1/sp set accordingly.
func includeArgs(seed *state.State, args []string) {
	if len(args) == 0 {
		seed.WriteRegister(inst.RegA0, 0)
		seed.WriteRegister(inst.RegA1, 0)
		return
	}

	stringsLen := uint32(0)
	for _, arg := range args {
		stringsLen += uint32(len(arg)) + 1
	}

	stringsAddr := state.StackPtr - stringsLen
	stringsAddr -= stringsAddr % 4

	vectorLen := uint32(len(args)+1) * 4
	vectorAddr := stringsAddr - vectorLen

	seed.WriteRegister(inst.RegA0, int32(len(args)))
	seed.WriteRegister(inst.RegA1, int32(vectorAddr))
	seed.WriteRegister(inst.RegSp, int32(vectorAddr-4))

	stringAddr := stringsAddr
	starAddr := vectorAddr
	for _, arg := range args {
		_ = seed.WriteWord(starAddr, stringAddr)
		for _, b := range []byte(arg) {
			_ = seed.WriteByte(stringAddr, b)
			stringAddr++
		}
		_ = seed.WriteByte(stringAddr, 0)
		stringAddr++
		starAddr += 4
	}
	_ = seed.WriteWord(starAddr, 0)
}

// Timeline exposes the state history.
func (r *Runtime) Timeline() *timeline.Timeline {
	return r.timeline
}

// Reset rewinds to the seed state, discarding history and any pending
// suspension.
func (r *Runtime) Reset() {
	r.timeline.Reset()
	r.pendingActive = false
}

// State is the current machine state.
func (r *Runtime) State() *state.State {
	return r.timeline.State()
}

// NextInstruction reads the word the next step would execute.
func (r *Runtime) NextInstruction() (uint32, error) {
	st := r.timeline.State()
	return st.ReadWord(st.PC())
}

// NextMayGuard reports whether the next instruction is a syscall or
// break, which suspend rather than step normally.
func (r *Runtime) NextMayGuard() bool {
	word, err := r.NextInstruction()
	if err != nil {
		return false
	}
	opcode := word >> 26
	funct := word & 0x3F
	return opcode == 0 && (funct == 0x0C || funct == 0x0D)
}

// LastWriteOf scans backwards for the most recent state whose write
// marker set the given bit, powering "what made this uninitialised"
// diagnostics. Returns the timeline index.
func (r *Runtime) LastWriteOf(bit int) (int, bool) {
	for n := r.timeline.Len() - 1; n >= 0; n-- {
		st := r.timeline.NthState(n)
		if st != nil && st.WriteMarker()&(1<<uint(bit)) != 0 {
			return n, true
		}
	}
	return 0, false
}

// setPending records an outstanding read-class suspension.
func (r *Runtime) setPending(kind SuspensionKind, buf uint32, length int32) {
	r.pendingKind = kind
	r.pendingActive = true
	r.pendingBuf = buf
	r.pendingLen = length
}

func (r *Runtime) clearPending() {
	r.pendingActive = false
}

func (r *Runtime) checkPending(kinds ...SuspensionKind) error {
	if !r.pendingActive {
		return fmt.Errorf("no outstanding syscall to resume")
	}
	for _, kind := range kinds {
		if r.pendingKind == kind {
			return nil
		}
	}
	return fmt.Errorf("outstanding syscall does not take this result")
}

// ResumeInt completes read_int, open, write, and close suspensions: the
// value lands in $v0.
func (r *Runtime) ResumeInt(value int32) error {
	if err := r.checkPending(SusReadInt, SusOpen, SusWrite, SusClose); err != nil {
		return err
	}
	r.clearPending()
	r.State().WriteRegister(inst.RegV0, value)
	return nil
}

// ResumeChar completes a read_char suspension.
func (r *Runtime) ResumeChar(value byte) error {
	if err := r.checkPending(SusReadChar); err != nil {
		return err
	}
	r.clearPending()
	r.State().WriteRegister(inst.RegV0, int32(value))
	return nil
}

// ResumeString completes a read_string suspension: up to len-1 bytes are
// stored at the recorded buffer, followed by a NUL. Segment faults while
// storing simply drop the remaining bytes, as the hardware would have
// nowhere to put them.
func (r *Runtime) ResumeString(value []byte) error {
	if err := r.checkPending(SusReadString); err != nil {
		return err
	}
	r.clearPending()

	if r.pendingLen <= 0 {
		return nil
	}
	max := int(r.pendingLen) - 1
	if len(value) > max {
		value = value[:max]
	}
	st := r.State()
	addr := r.pendingBuf
	for _, b := range value {
		_ = st.WriteByte(addr, b)
		addr++
	}
	_ = st.WriteByte(addr, 0)
	return nil
}

// ResumeRead completes a read (syscall 14) suspension: the host's bytes
// are stored at the recorded buffer and the count lands in $v0.
func (r *Runtime) ResumeRead(count int32, value []byte) error {
	if err := r.checkPending(SusRead); err != nil {
		return err
	}
	r.clearPending()

	if int32(len(value)) > r.pendingLen {
		value = value[:r.pendingLen]
	}
	st := r.State()
	for i, b := range value {
		_ = st.WriteByte(r.pendingBuf+uint32(i), b)
	}
	st.WriteRegister(inst.RegV0, count)
	return nil
}
