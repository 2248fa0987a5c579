/*
   Register names and numbering.

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

package inst

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rcornwell/MIPS32/emu/parser"
)

// Conventional register numbers used by the executor and the kernel
// program.
const (
	RegZero uint32 = 0
	RegAt   uint32 = 1
	RegV0   uint32 = 2
	RegA0   uint32 = 4
	RegA1   uint32 = 5
	RegA2   uint32 = 6
	RegGp   uint32 = 28
	RegSp   uint32 = 29
	RegFp   uint32 = 30
	RegRa   uint32 = 31
)

var registerNames = []string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

// UnknownRegisterError reports a register name that is not recognised.
type UnknownRegisterError struct {
	Name string
}

func (e *UnknownRegisterError) Error() string {
	return fmt.Sprintf("unknown register $%s", e.Name)
}

// NumberedRegisterOutOfRangeError reports $N with N outside 0..31.
type NumberedRegisterOutOfRangeError struct {
	Num int
}

func (e *NumberedRegisterOutOfRangeError) Error() string {
	return fmt.Sprintf("register $%d out of range, registers are $0 to $31", e.Num)
}

// NamedRegisterOutOfRangeError reports a known family with a bad index,
// e.g. $t12.
type NamedRegisterOutOfRangeError struct {
	Name  string
	Index int
}

func (e *NamedRegisterOutOfRangeError) Error() string {
	return fmt.Sprintf("register $%s%d out of range", e.Name, e.Index)
}

// register families with an index suffix and their valid index count.
var registerFamilies = map[string]int{
	"v": 2, "a": 4, "t": 10, "s": 8, "k": 2,
}

// ParseRegister resolves a parsed register identifier to its number.
func ParseRegister(ident parser.RegIdent) (uint32, error) {
	if ident.Numbered {
		if ident.Num < 0 || ident.Num > 31 {
			return 0, &NumberedRegisterOutOfRangeError{Num: ident.Num}
		}
		return uint32(ident.Num), nil
	}

	name := strings.ToLower(ident.Name)
	for num, known := range registerNames {
		if name == known {
			return uint32(num), nil
		}
	}

	// A known family with an out-of-range index reads better as its own
	// error than as an unknown name.
	if len(name) >= 2 {
		family := name[:1]
		if count, ok := registerFamilies[family]; ok {
			if index, err := strconv.Atoi(name[1:]); err == nil && index >= count {
				return 0, &NamedRegisterOutOfRangeError{Name: family, Index: index}
			}
		}
	}

	return 0, &UnknownRegisterError{Name: ident.Name}
}

// RegisterName renders a register number in its conventional form.
func RegisterName(num uint32) string {
	if num < 32 {
		return "$" + registerNames[num]
	}
	return fmt.Sprintf("$%d", num)
}
