/*
   Driver: steps the CPU, services suspensions, and applies the
   breakpoint and watchpoint engine.

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
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/rcornwell/MIPS32/config/simconfig"
	"github.com/rcornwell/MIPS32/emu/assemble"
	"github.com/rcornwell/MIPS32/emu/breakpoints"
	"github.com/rcornwell/MIPS32/emu/cpu"
	"github.com/rcornwell/MIPS32/emu/disassemble"
	"github.com/rcornwell/MIPS32/emu/inst"
	"github.com/rcornwell/MIPS32/emu/state"
	"github.com/rcornwell/MIPS32/util/debug"
)

// RanOutOfHistoryError reports a back step past the retained timeline.
type RanOutOfHistoryError struct {
	LostHistory bool
}

func (e *RanOutOfHistoryError) Error() string {
	if e.LostHistory {
		return "ran out of history: older states were dropped"
	}
	return "already at the start of execution"
}

// ProgramExitedError reports stepping a program that has exited.
type ProgramExitedError struct{}

func (e *ProgramExitedError) Error() string {
	return "program has exited"
}

// Runner drives the CPU: it consumes suspensions, performs host I/O
// through the handler, consults break and watch points after every step,
// and honours the asynchronous interrupt flag between steps.
type Runner struct {
	ISet    *inst.InstSet
	Binary  *assemble.Binary
	Runtime *cpu.Runtime
	Handler Handler

	// CommandHook re-enters a point's attached command list through the
	// interactive shell; nil outside interactive mode.
	CommandHook func(command string)

	cfg         *simconfig.Config
	interrupted atomic.Bool
	exited      bool
	exitCode    int32
	lastSus     *cpu.Suspension
}

// New assembles a runner around a compiled binary.
func New(iset *inst.InstSet, binary *assemble.Binary, runtime *cpu.Runtime, handler Handler, cfg *simconfig.Config) *Runner {
	if cfg == nil {
		cfg = simconfig.Default()
	}
	return &Runner{ISet: iset, Binary: binary, Runtime: runtime, Handler: handler, cfg: cfg}
}

// Interrupt is safe to call from a signal handler; the runner observes it
// between steps.
func (r *Runner) Interrupt() {
	r.interrupted.Store(true)
}

// Exited reports whether the program finished, and its exit code.
func (r *Runner) Exited() (bool, int32) {
	return r.exited, r.exitCode
}

// LastSuspension is the suspension the most recent step produced, if any.
func (r *Runner) LastSuspension() *cpu.Suspension {
	return r.lastSus
}

// Step executes one instruction and services whatever it raised. The
// returned pause flag tells run loops to hand control back to the user.
func (r *Runner) Step() (bool, error) {
	if r.exited {
		return true, &ProgramExitedError{}
	}

	before := r.Runtime.State()
	word, wordErr := before.ReadWord(before.PC())

	suspension, err := r.Runtime.Step()
	if err != nil {
		return true, err
	}
	r.lastSus = suspension

	if wordErr == nil && debug.Enabled("CPU") {
		if text, ok := disassemble.Disassemble(r.ISet, word, before.PC()); ok {
			debug.Debugf("CPU", "0x%08x: %s", before.PC(), text)
		}
	}

	breakpointHit := false
	trapped := false
	if suspension != nil {
		pause, err := r.service(suspension)
		if err != nil {
			return true, err
		}
		breakpointHit = suspension.Kind == cpu.SusBreakpoint
		trapped = suspension.Kind == cpu.SusTrap
		if pause {
			return true, nil
		}
	}

	if r.exited {
		return true, nil
	}

	return r.checkPoints(before, word, wordErr == nil, breakpointHit, trapped), nil
}

// service performs the host side of a suspension. Returning pause stops
// run loops immediately (program exit).
func (r *Runner) service(s *cpu.Suspension) (bool, error) {
	switch s.Kind {
	case cpu.SusPrintInt:
		r.Handler.PrintInt(s.Value)
	case cpu.SusPrintString:
		r.Handler.PrintString(s.Bytes)
	case cpu.SusPrintChar:
		r.Handler.PrintChar(s.Char)

	case cpu.SusReadInt:
		value, err := r.Handler.ReadInt()
		if err != nil {
			return true, err
		}
		return false, r.Runtime.ResumeInt(value)

	case cpu.SusReadString:
		value, err := r.Handler.ReadString(s.MaxLen)
		if err != nil {
			return true, err
		}
		return false, r.Runtime.ResumeString(value)

	case cpu.SusReadChar:
		value, err := r.Handler.ReadChar()
		if err != nil {
			return true, err
		}
		return false, r.Runtime.ResumeChar(value)

	case cpu.SusSbrk:
		r.Handler.Sbrk(s.Value)

	case cpu.SusExit:
		r.exited = true
		r.exitCode = 0
		return true, nil

	case cpu.SusExitStatus:
		r.exited = true
		r.exitCode = s.Value
		return true, nil

	case cpu.SusOpen:
		fd, err := r.Handler.Open(s.Bytes, s.Flags, s.Mode)
		if err != nil {
			return true, err
		}
		return false, r.Runtime.ResumeInt(fd)

	case cpu.SusRead:
		count, data, err := r.Handler.Read(s.Fd, s.Len)
		if err != nil {
			return true, err
		}
		return false, r.Runtime.ResumeRead(count, data)

	case cpu.SusWrite:
		count, err := r.Handler.Write(s.Fd, s.Bytes)
		if err != nil {
			return true, err
		}
		return false, r.Runtime.ResumeInt(count)

	case cpu.SusClose:
		status, err := r.Handler.Close(s.Fd)
		if err != nil {
			return true, err
		}
		return false, r.Runtime.ResumeInt(status)

	case cpu.SusTrap:
		r.Handler.Trap()

	case cpu.SusBreakpoint:
		// handled by the point engine below
	}

	return false, nil
}

// checkPoints applies the watch and break point engine after a step.
func (r *Runner) checkPoints(before *state.State, word uint32, haveWord, breakpointHit, trapped bool) bool {
	// Watchpoints: intersect the step's accesses with the table.
	var watchHits []watchHit
	if haveWord {
		for _, access := range cpu.AffectedTargets(before, word) {
			point, ok := r.Binary.Watchpoints[access.Target]
			if ok && point.Enabled && point.Action.Fits(access.Action) {
				watchHits = append(watchHits, watchHit{access: access, point: point})
			}
		}
	}

	// Breakpoint at the next instruction's address.
	pc := r.Runtime.State().PC()
	bp := r.Binary.Breakpoints[pc]

	if breakpointHit || (bp != nil && bp.Enabled) {
		if bp != nil && bp.IgnoreCount > 0 {
			bp.IgnoreCount--
			return trapped
		}
		label, _ := r.Binary.LabelForAddr(pc)
		r.reportBreak(label, pc)
		if bp != nil {
			for _, command := range bp.Commands {
				r.execCommand(command)
			}
		}
		return true
	}

	if len(watchHits) != 0 {
		allIgnored := true
		var commands []string
		for _, hit := range watchHits {
			if hit.point.IgnoreCount > 0 {
				hit.point.IgnoreCount--
				continue
			}
			allIgnored = false
			r.reportWatch(hit)
			commands = append(commands, hit.point.Commands...)
		}
		for _, command := range commands {
			r.execCommand(command)
		}
		if allIgnored {
			return trapped
		}
		return true
	}

	return trapped
}

type watchHit struct {
	access breakpoints.TargetWatch
	point  *breakpoints.Watchpoint
}

func (r *Runner) execCommand(command string) {
	if r.CommandHook != nil {
		r.CommandHook(command)
	}
}

func (r *Runner) reportBreak(label string, pc uint32) {
	if label != "" {
		slog.Info(fmt.Sprintf("breakpoint hit at %s (0x%08x)", label, pc))
	} else {
		slog.Info(fmt.Sprintf("breakpoint hit at 0x%08x", pc))
	}
}

func (r *Runner) reportWatch(hit watchHit) {
	slog.Info(fmt.Sprintf("watchpoint %d hit: %s of %s",
		hit.point.ID, hit.access.Action, hit.access.Target))
}

// Run steps until something pauses execution: a point firing, program
// exit, an error, or the user interrupt flag.
func (r *Runner) Run() error {
	r.interrupted.Store(false)
	for {
		if r.interrupted.Swap(false) {
			return nil
		}
		pause, err := r.Step()
		if err != nil {
			return err
		}
		if pause {
			return nil
		}
	}
}

// StepN steps up to n times, honouring pauses and the interrupt flag.
func (r *Runner) StepN(n int) error {
	r.interrupted.Store(false)
	for i := 0; i < n; i++ {
		if r.interrupted.Swap(false) {
			return nil
		}
		pause, err := r.Step()
		if err != nil {
			return err
		}
		if pause {
			return nil
		}
	}
	return nil
}

// RunUntil steps until a suspension satisfies the predicate, used for
// "run to the next syscall of kind K" requests.
func (r *Runner) RunUntil(pred func(*cpu.Suspension) bool) error {
	r.interrupted.Store(false)
	for {
		if r.interrupted.Swap(false) {
			return nil
		}
		pause, err := r.Step()
		if err != nil {
			return err
		}
		if r.lastSus != nil && pred(r.lastSus) {
			return nil
		}
		if pause {
			return nil
		}
	}
}

// Reset rewinds the program to its seed state. Break and watch points
// live on the binary and are kept.
func (r *Runner) Reset() {
	r.Runtime.Reset()
	r.exited = false
	r.exitCode = 0
	r.lastSus = nil
}

// StepBack rewinds n states. Rewinding past the seed, or into history the
// bounded timeline already dropped, reports RanOutOfHistory.
func (r *Runner) StepBack(n int) error {
	tl := r.Runtime.Timeline()
	for i := 0; i < n; i++ {
		if !tl.PopLast() {
			return &RanOutOfHistoryError{LostHistory: tl.LostHistory()}
		}
		r.exited = false
	}
	return nil
}

// ExplainUninit augments an uninitialised-value error with the source
// line of the most recent write to the same location, found by scanning
// the timeline's write markers backwards.
func (r *Runner) ExplainUninit(err error) string {
	var uninit *state.UninitialisedError
	if !errors.As(err, &uninit) {
		return ""
	}
	bit, ok := uninit.MarkerBit()
	if !ok {
		return ""
	}
	index, ok := r.Runtime.LastWriteOf(bit)
	if !ok || index == 0 {
		return ""
	}

	writer := r.Runtime.Timeline().NthState(index - 1)
	if writer == nil {
		return ""
	}
	pc := writer.PC()
	if info, ok := r.Binary.LineNumbers[pc]; ok {
		return fmt.Sprintf("last written by the instruction at %s:%d (0x%08x)",
			info.FileTag, info.Line, pc)
	}
	return fmt.Sprintf("last written by the instruction at 0x%08x", pc)
}
