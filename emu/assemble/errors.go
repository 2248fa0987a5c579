/*
   Compile error values.

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
	"strings"

	"github.com/rcornwell/MIPS32/emu/parser"
)

// CompileError wraps an error kind with the source position it came from.
// Compile errors are terminal for the pipeline.
type CompileError struct {
	Pos parser.Position
	Err error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

func compileError(pos parser.Position, err error) error {
	if err == nil {
		return nil
	}
	return &CompileError{Pos: pos, Err: err}
}

// RedefinedLabelError reports a label bound twice.
type RedefinedLabelError struct {
	Label string
}

func (e *RedefinedLabelError) Error() string {
	return fmt.Sprintf("label %s is defined more than once", e.Label)
}

// RedefinedConstantError reports a constant bound twice.
type RedefinedConstantError struct {
	Label string
}

func (e *RedefinedConstantError) Error() string {
	return fmt.Sprintf("constant %s is defined more than once", e.Label)
}

// UnresolvedLabelError reports a reference to an unbound label, with
// similarly named labels as suggestions.
type UnresolvedLabelError struct {
	Label   string
	Similar []string
}

func (e *UnresolvedLabelError) Error() string {
	if len(e.Similar) == 0 {
		return fmt.Sprintf("label %s is not defined", e.Label)
	}
	return fmt.Sprintf("label %s is not defined, did you mean %s?",
		e.Label, strings.Join(e.Similar, " or "))
}

// UnresolvedConstantError reports a constant expression referencing an
// unknown constant.
type UnresolvedConstantError struct {
	Label string
}

func (e *UnresolvedConstantError) Error() string {
	return fmt.Sprintf("constant %s is not defined", e.Label)
}

// ConstantValueDoesNotFitError reports a data value outside its
// directive's width.
type ConstantValueDoesNotFitError struct {
	Directive parser.DirectiveKind
	Value     int64
	RangeLow  int64
	RangeHigh int64
}

func (e *ConstantValueDoesNotFitError) Error() string {
	return fmt.Sprintf("value %d does not fit in %s, range is %d to %d",
		e.Value, e.Directive, e.RangeLow, e.RangeHigh)
}

// InstructionInDataSegmentError reports an instruction outside text
// segments.
type InstructionInDataSegmentError struct{}

func (e *InstructionInDataSegmentError) Error() string {
	return "instructions cannot appear in a data segment"
}

// DataInTextSegmentError reports a data directive inside a text segment.
type DataInTextSegmentError struct {
	Directive parser.DirectiveKind
}

func (e *DataInTextSegmentError) Error() string {
	return fmt.Sprintf("%s data cannot appear in a text segment", e.Directive)
}

// TooMuchDataError reports a segment overflowing its address range.
type TooMuchDataError struct {
	Segment Segment
}

func (e *TooMuchDataError) Error() string {
	return fmt.Sprintf("too much data in %s segment", e.Segment)
}

// MovedLabelNotFoundError reports a --move-label naming an unbound label.
type MovedLabelNotFoundError struct {
	Label string
}

func (e *MovedLabelNotFoundError) Error() string {
	return fmt.Sprintf("cannot move label %s: not defined", e.Label)
}
