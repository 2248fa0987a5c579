/*
   Runtime error values raised by the executor.

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

import "fmt"

// UnknownInstructionError reports a fetch of a word that is not a valid
// instruction.
type UnknownInstructionError struct {
	Addr uint32
}

func (e *UnknownInstructionError) Error() string {
	return fmt.Sprintf("could not find instruction at 0x%08x", e.Addr)
}

// IntegerOverflowError reports a trapping add or subtract overflowing.
type IntegerOverflowError struct{}

func (e *IntegerOverflowError) Error() string {
	return "integer overflow"
}

// DivisionByZeroError reports a div or divu with a zero divisor.
type DivisionByZeroError struct{}

func (e *DivisionByZeroError) Error() string {
	return "division by zero"
}

// InvalidReason says why a syscall was rejected.
type InvalidReason int

const (
	ReasonUnknown InvalidReason = iota
	ReasonUnimplemented
	ReasonDisabled
)

func (r InvalidReason) String() string {
	switch r {
	case ReasonUnknown:
		return "unknown"
	case ReasonUnimplemented:
		return "unimplemented"
	default:
		return "disabled"
	}
}

// InvalidSyscallError reports a syscall the runtime will not perform.
type InvalidSyscallError struct {
	Syscall int32
	Reason  InvalidReason
}

func (e *InvalidSyscallError) Error() string {
	return fmt.Sprintf("invalid syscall %d (%s)", e.Syscall, e.Reason)
}

// UnimplementedInstructionError reports a decoded instruction with no
// executor, such as lwl and lwr.
type UnimplementedInstructionError struct {
	Name string
	Addr uint32
}

func (e *UnimplementedInstructionError) Error() string {
	return fmt.Sprintf("instruction %s at 0x%08x is not implemented", e.Name, e.Addr)
}
