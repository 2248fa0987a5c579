/*
   Assembler entry point and the kernel program.

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

	"github.com/rcornwell/MIPS32/config/simconfig"
	"github.com/rcornwell/MIPS32/emu/inst"
	"github.com/rcornwell/MIPS32/emu/parser"
)

// LabelMove re-points one label at another's address, from the
// --move-label option. Unit tests use it to override main.
type LabelMove struct {
	From string
	To   string
}

// Options are per-invocation assembler options.
type Options struct {
	MoveLabels []LabelMove
}

// kernelSource is assembled after every user program so the entry vector
// at the bottom of kernel text is always valid: call main, then exit.
// The call goes through a register because a J-type jump keeps PC's top
// nibble and so cannot leave kernel space.
const kernelSource = `
.ktext
__start:
	la $t0, main
	jalr $t0
	li $v0, 10
	syscall
`

// KernelProgram parses the built-in kernel program.
func KernelProgram() (*parser.Program, error) {
	return parser.ParseFile("kernel", kernelSource)
}

// compilation carries the assembler's two-pass state.
type compilation struct {
	iset     *inst.InstSet
	binary   *Binary
	cfg      *simconfig.Config
	segment  Segment
	textLen  int
	ktextLen int
}

// Compile assembles a parsed program, plus a kernel program, into a
// Binary. Pass one resolves layout, labels, constants, and data; pass two
// encodes instructions against the complete label map.
func Compile(iset *inst.InstSet, program *parser.Program, kernel *parser.Program, options *Options, cfg *simconfig.Config) (*Binary, error) {
	if cfg == nil {
		cfg = simconfig.Default()
	}
	if options == nil {
		options = &Options{}
	}
	if kernel == nil {
		var err error
		kernel, err = KernelProgram()
		if err != nil {
			return nil, err
		}
	}

	full := &parser.Program{}
	full.Append(program)
	full.Append(kernel)

	binary := newBinary()
	c := &compilation{iset: iset, binary: binary, cfg: cfg}

	if err := c.populateLabelsAndData(full); err != nil {
		return nil, err
	}

	for _, move := range options.MoveLabels {
		addr, ok := binary.GetLabel(move.To)
		if !ok {
			return nil, &MovedLabelNotFoundError{Label: move.To}
		}
		if !binary.HasLabel(move.From) {
			return nil, &MovedLabelNotFoundError{Label: move.From}
		}
		binary.SetLabel(move.From, addr)
	}

	if err := c.compileText(full); err != nil {
		return nil, err
	}

	return binary, nil
}

// ParseMoveLabel parses an "old=new" move-label option value.
func ParseMoveLabel(value string) (LabelMove, error) {
	from, to, found := strings.Cut(value, "=")
	if !found || from == "" || to == "" {
		return LabelMove{}, fmt.Errorf("bad move-label %q, expected old=new", value)
	}
	return LabelMove{From: from, To: to}, nil
}
