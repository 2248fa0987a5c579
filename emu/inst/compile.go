/*
   Native instruction encoding and pseudo instruction expansion.

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

// Resolver supplies the label and constant context encoding needs. The
// assembler's Binary implements it during pass two.
type Resolver interface {
	// ConstantValue looks up an .eqv-style constant.
	ConstantValue(name string) (int64, bool)
	// LabelAddress looks up a label; unresolved labels return an error
	// carrying suggestions.
	LabelAddress(name string) (uint32, error)
	// CurrentAddress is the address the next emitted word will occupy.
	CurrentAddress() uint32
}

// Assemble encodes one native instruction to its 32-bit word.
func (sig *InstSignature) Assemble(res Resolver, args []parser.Argument) (uint32, error) {
	rt := sig.Runtime

	var word uint32
	switch rt.Kind {
	case SigR:
		word = uint32(rt.Opcode)<<26 | uint32(rt.Funct)&0x3F
	case SigI, SigJ:
		word = uint32(rt.Opcode) << 26
	}
	if rt.Rs > 0 {
		word |= uint32(rt.Rs) << 21
	}
	if rt.Rt > 0 {
		word |= uint32(rt.Rt) << 16
	}
	if rt.Rd > 0 {
		word |= uint32(rt.Rd) << 11
	}
	if rt.Shamt > 0 {
		word |= uint32(rt.Shamt) << 6
	}

	for i, slot := range sig.Compile.Format {
		arg := args[i]
		relative := sig.Compile.RelativeLabel && i == len(args)-1

		switch slot {
		case ArgRd, ArgRs, ArgRt:
			reg, err := ParseRegister(arg.Reg)
			if err != nil {
				return 0, err
			}
			switch slot {
			case ArgRd:
				word |= reg << 11
			case ArgRs:
				word |= reg << 21
			default:
				word |= reg << 16
			}

		case ArgShamt:
			word |= uint32(arg.Num.Imm.Value&0x1F) << 6

		case ArgI16, ArgU16:
			value, err := immBits(res, arg, relative)
			if err != nil {
				return 0, err
			}
			word |= value & 0xFFFF

		case ArgJ:
			target, err := jumpTarget(res, arg)
			if err != nil {
				return 0, err
			}
			word |= (target >> 2) & 0x03FFFFFF

		case ArgOffRs, ArgOffRt:
			reg, err := ParseRegister(arg.Reg)
			if err != nil {
				return 0, err
			}
			if slot == ArgOffRs {
				word |= reg << 21
			} else {
				word |= reg << 16
			}
			word |= uint32(uint16(arg.Imm.Value)) & 0xFFFF

		default:
			return 0, fmt.Errorf("cannot encode %s argument", slot)
		}
	}

	return word, nil
}

// immBits resolves a 16-bit immediate slot: a literal, a character, a
// constant, or a label encoded as a PC-relative instruction count.
func immBits(res Resolver, arg parser.Argument, relative bool) (uint32, error) {
	num := arg.Num
	if num.Kind == parser.NumChar {
		return uint32(num.Char), nil
	}

	imm := num.Imm
	switch imm.Kind {
	case parser.ImmI16:
		return uint32(uint16(int16(imm.Value))), nil
	case parser.ImmU16:
		return uint32(uint16(imm.Value)), nil
	case parser.ImmLabel:
		if value, ok := res.ConstantValue(imm.Label); ok {
			return uint32(int32(value)), nil
		}
		addr, err := res.LabelAddress(imm.Label)
		if err != nil {
			return 0, err
		}
		if !relative {
			return 0, fmt.Errorf("label %s cannot be used here", imm.Label)
		}
		return (addr - res.CurrentAddress()) / 4 & 0xFFFF, nil
	default:
		return uint32(uint16(imm.Value)), nil
	}
}

// jumpTarget resolves a jump slot to an absolute byte address.
func jumpTarget(res Resolver, arg parser.Argument) (uint32, error) {
	imm := arg.Num.Imm
	if imm.Kind != parser.ImmLabel {
		return uint32(imm.Value), nil
	}
	if value, ok := res.ConstantValue(imm.Label); ok {
		return uint32(int32(value)), nil
	}
	return res.LabelAddress(imm.Label)
}

// variable names used in pseudo expansion templates.
func slotVarName(slot ArgumentType) string {
	switch slot {
	case ArgRd:
		return "rd"
	case ArgRs:
		return "rs"
	case ArgRt:
		return "rt"
	case ArgShamt:
		return "shamt"
	case ArgI16:
		return "i16"
	case ArgU16:
		return "u16"
	case ArgJ:
		return "j"
	case ArgOffRs:
		return "offrs"
	case ArgOffRt:
		return "offrt"
	case ArgI32:
		return "i32"
	case ArgU32:
		return "u32"
	default:
		return "off32"
	}
}

// varSet accumulates template variables. A name bound more than once is
// disambiguated with #N suffixes in definition order.
type varSet struct {
	vars map[string]parser.Argument
	used map[string]int
}

func newVarSet() *varSet {
	return &varSet{vars: map[string]parser.Argument{}, used: map[string]int{}}
}

func (v *varSet) add(name string, value parser.Argument) {
	count, ok := v.used[name]
	if !ok {
		v.used[name] = 1
		v.vars[name] = value
		return
	}
	v.used[name] = count + 1
	if count == 1 {
		old := v.vars[name]
		delete(v.vars, name)
		v.vars[name+"#1"] = old
		v.vars[name+"#2"] = value
	} else {
		v.vars[fmt.Sprintf("%s#%d", name, count+1)] = value
	}
}

func numberArg(imm parser.Immediate) parser.Argument {
	return parser.Argument{Kind: parser.ArgNumber, Num: parser.Number{Kind: parser.NumImmediate, Imm: imm}}
}

func registerArg(reg parser.RegIdent) parser.Argument {
	return parser.Argument{Kind: parser.ArgRegister, Reg: reg}
}

// lowerUpper splits a 32-bit-capable argument into halves. Relative labels
// in the final position are measured from the last expanded word.
func (p *PseudoSignature) lowerUpper(res Resolver, arg parser.Argument, last bool) (uint16, uint16, error) {
	var imm parser.Immediate
	switch arg.Kind {
	case parser.ArgOffset:
		imm = arg.Imm
	case parser.ArgNumber:
		if arg.Num.Kind == parser.NumChar {
			return uint16(arg.Num.Char), 0, nil
		}
		imm = arg.Num.Imm
	default:
		return 0, 0, fmt.Errorf("argument %s has no immediate part", arg)
	}

	switch imm.Kind {
	case parser.ImmI16:
		return uint16(int16(imm.Value)), uint16(int32(imm.Value) >> 16), nil
	case parser.ImmU16:
		return uint16(imm.Value), 0, nil
	case parser.ImmI32, parser.ImmU32:
		return uint16(imm.Value & 0xFFFF), uint16(uint32(imm.Value) >> 16), nil
	default:
		if value, ok := res.ConstantValue(imm.Label); ok {
			return uint16(value & 0xFFFF), uint16(uint32(value) >> 16), nil
		}
		addr, err := res.LabelAddress(imm.Label)
		if err != nil {
			return 0, 0, err
		}
		if p.Compile.RelativeLabel && last {
			lastWord := res.CurrentAddress() + uint32(len(p.Expand)-1)*4
			addr = (addr - lastWord) / 4
		}
		return uint16(addr & 0xFFFF), uint16(addr >> 16), nil
	}
}

// addSplit binds the four 16-bit views of a 32-bit variable.
func (v *varSet) addSplit(name string, lower, upper uint16) {
	v.add(name+"ihi", numberArg(parser.Immediate{Kind: parser.ImmI16, Value: int64(int16(upper))}))
	v.add(name+"ilo", numberArg(parser.Immediate{Kind: parser.ImmI16, Value: int64(int16(lower))}))
	v.add(name+"uhi", numberArg(parser.Immediate{Kind: parser.ImmU16, Value: int64(upper)}))
	v.add(name+"ulo", numberArg(parser.Immediate{Kind: parser.ImmU16, Value: int64(lower)}))
}

// variables binds each signature slot to its template variables.
func (p *PseudoSignature) variables(res Resolver, args []parser.Argument) (map[string]parser.Argument, error) {
	set := newVarSet()

	for i, slot := range p.Compile.Format {
		arg := args[i]
		last := i == len(args)-1

		switch slot {
		case ArgRd, ArgRs, ArgRt, ArgShamt, ArgJ:
			set.add(slotVarName(slot), arg)

		case ArgI16:
			// Relative labels become literal offsets measured from the
			// last expanded word.
			if arg.Kind == parser.ArgNumber && arg.Num.Kind == parser.NumImmediate &&
				arg.Num.Imm.Kind == parser.ImmLabel {
				if _, isConst := res.ConstantValue(arg.Num.Imm.Label); !isConst {
					addr, err := res.LabelAddress(arg.Num.Imm.Label)
					if err != nil {
						return nil, err
					}
					lastWord := res.CurrentAddress() + uint32(len(p.Expand)-1)*4
					offset := int64(int16((addr - lastWord) / 4))
					arg = numberArg(parser.Immediate{Kind: parser.ImmI16, Value: offset})
				}
			}
			set.add("i16", arg)

		case ArgU16:
			set.add("u16", arg)

		case ArgOffRs, ArgOffRt:
			set.add(slotVarName(slot), arg)
			set.add("off", numberArg(arg.Imm))
			if slot == ArgOffRs {
				set.add("rs", registerArg(arg.Reg))
			} else {
				set.add("rt", registerArg(arg.Reg))
			}

		case ArgI32, ArgU32:
			lower, upper, err := p.lowerUpper(res, arg, last)
			if err != nil {
				return nil, err
			}
			set.addSplit(slotVarName(slot), lower, upper)

		case ArgOff32Rs, ArgOff32Rt:
			reg := parser.RegIdent{Num: 0, Numbered: true}
			if arg.Kind == parser.ArgOffset {
				reg = arg.Reg
			}
			if slot == ArgOff32Rs {
				set.add("rs", registerArg(reg))
			} else {
				set.add("rt", registerArg(reg))
			}
			lower, upper, err := p.lowerUpper(res, arg, last)
			if err != nil {
				return nil, err
			}
			set.addSplit("off32", lower, upper)

		default:
			return nil, fmt.Errorf("cannot expand %s argument", slot)
		}
	}

	return set.vars, nil
}

// Assemble expands a pseudo instruction into its native words.
func (p *PseudoSignature) Assemble(set *InstSet, res Resolver, args []parser.Argument) ([]uint32, error) {
	vars, err := p.variables(res, args)
	if err != nil {
		return nil, err
	}

	words := make([]uint32, 0, len(p.Expand))
	for _, line := range p.Expand {
		native := set.FindNativeFromName(line.Inst)
		if native == nil {
			return nil, fmt.Errorf("pseudo %s expands to unknown instruction %s", p.Name, line.Inst)
		}

		targs := make([]parser.Argument, len(line.Data))
		for i, data := range line.Data {
			arg, err := templateArg(data, vars)
			if err != nil {
				return nil, fmt.Errorf("pseudo %s: %w", p.Name, err)
			}
			targs[i] = arg
		}

		word, err := native.Assemble(res, targs)
		if err != nil {
			return nil, err
		}
		words = append(words, word)
	}
	return words, nil
}

// templateArg materialises one template argument: a bound variable, a
// literal register, a literal number, or an offset(register) pair of
// those.
func templateArg(data string, vars map[string]parser.Argument) (parser.Argument, error) {
	if open := strings.IndexByte(data, '('); open >= 0 && strings.HasSuffix(data, ")") {
		offPart := data[:open]
		regPart := data[open+1 : len(data)-1]

		imm, err := templateImmediate(offPart, vars)
		if err != nil {
			return parser.Argument{}, err
		}
		regArg, err := templateArg(regPart, vars)
		if err != nil {
			return parser.Argument{}, err
		}
		if regArg.Kind != parser.ArgRegister {
			return parser.Argument{}, fmt.Errorf("template %q: %q is not a register", data, regPart)
		}
		return parser.Argument{Kind: parser.ArgOffset, Reg: regArg.Reg, Imm: imm}, nil
	}

	if strings.HasPrefix(data, "$") {
		name := strings.ToLower(data[1:])
		if arg, ok := vars[name]; ok {
			return arg, nil
		}
		if num, err := strconv.Atoi(name); err == nil {
			return registerArg(parser.RegIdent{Num: num, Numbered: true}), nil
		}
		return registerArg(parser.RegIdent{Name: name}), nil
	}

	imm, err := templateImmediate(data, vars)
	if err != nil {
		return parser.Argument{}, err
	}
	return numberArg(imm), nil
}

func templateImmediate(data string, vars map[string]parser.Argument) (parser.Immediate, error) {
	if strings.HasPrefix(data, "$") {
		name := strings.ToLower(data[1:])
		arg, ok := vars[name]
		if !ok {
			return parser.Immediate{}, fmt.Errorf("unknown template variable %q", data)
		}
		switch {
		case arg.Kind == parser.ArgNumber && arg.Num.Kind == parser.NumImmediate:
			return arg.Num.Imm, nil
		case arg.Kind == parser.ArgNumber && arg.Num.Kind == parser.NumChar:
			return parser.Immediate{Kind: parser.ImmU16, Value: int64(arg.Num.Char)}, nil
		case arg.Kind == parser.ArgOffset:
			return arg.Imm, nil
		default:
			return parser.Immediate{}, fmt.Errorf("template variable %q is not a number", data)
		}
	}

	value, err := strconv.ParseInt(data, 0, 64)
	if err != nil {
		return parser.Immediate{}, fmt.Errorf("bad template literal %q", data)
	}
	return parser.ClassifyImmediate(value), nil
}
