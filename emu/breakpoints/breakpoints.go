/*
   Breakpoint and watchpoint records.

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

package breakpoints

import "fmt"

// TargetAction is the access kind a watchpoint observes.
type TargetAction int

const (
	ReadOnly TargetAction = iota
	WriteOnly
	ReadWrite
)

func (a TargetAction) String() string {
	switch a {
	case ReadOnly:
		return "read"
	case WriteOnly:
		return "write"
	default:
		return "read/write"
	}
}

// Fits reports whether an observed access satisfies the watched action.
func (a TargetAction) Fits(observed TargetAction) bool {
	return a == ReadWrite || observed == ReadWrite || a == observed
}

// TargetKind discriminates watchpoint targets.
type TargetKind int

const (
	TargetRegister TargetKind = iota
	TargetMemory
)

// WatchpointTarget keys a watchpoint: a register number or a memory
// address.
type WatchpointTarget struct {
	Kind     TargetKind
	Register uint32
	Address  uint32
}

func RegisterTarget(reg uint32) WatchpointTarget {
	return WatchpointTarget{Kind: TargetRegister, Register: reg}
}

func MemoryTarget(addr uint32) WatchpointTarget {
	return WatchpointTarget{Kind: TargetMemory, Address: addr}
}

func (t WatchpointTarget) String() string {
	if t.Kind == TargetRegister {
		return fmt.Sprintf("$%d", t.Register)
	}
	return fmt.Sprintf("0x%08x", t.Address)
}

// TargetWatch is one observed access during a step, matched against the
// watchpoint table.
type TargetWatch struct {
	Target WatchpointTarget
	Action TargetAction
}

// Breakpoint pauses execution when PC reaches its address. Commands are
// debugger command lines re-entered when the point fires; temporary
// breakpoints carry a command that removes them.
type Breakpoint struct {
	ID          int
	Enabled     bool
	IgnoreCount int
	Commands    []string
}

// Watchpoint pauses execution when its target is accessed.
type Watchpoint struct {
	ID          int
	Enabled     bool
	IgnoreCount int
	Commands    []string
	Action      TargetAction
}
