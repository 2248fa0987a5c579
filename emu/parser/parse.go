/*
   Assembly source parser: turns source text into program items.

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

package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Current line being parsed.
type srcLine struct {
	text    string
	pos     int
	fileTag string
	lineNo  int
}

// ParseFile parses one source file into program items.
func ParseFile(fileTag string, src string) (*Program, error) {
	program := &Program{}
	for number, text := range strings.Split(src, "\n") {
		line := &srcLine{text: text, fileTag: fileTag, lineNo: number + 1}
		if err := line.parse(program); err != nil {
			return nil, err
		}
	}
	return program, nil
}

// ParseFiles parses several files into one program, in order.
func ParseFiles(files [][2]string) (*Program, error) {
	program := &Program{}
	for _, file := range files {
		part, err := ParseFile(file[0], file[1])
		if err != nil {
			return nil, err
		}
		program.Append(part)
	}
	return program, nil
}

func (l *srcLine) position() Position {
	return Position{FileTag: l.fileTag, Line: l.lineNo, Col: l.pos + 1}
}

func (l *srcLine) errorf(format string, args ...interface{}) error {
	return &ParseError{Pos: l.position(), Msg: fmt.Sprintf(format, args...)}
}

func (l *srcLine) done() bool {
	return l.pos >= len(l.text)
}

func (l *srcLine) peek() byte {
	if l.done() {
		return 0
	}
	return l.text[l.pos]
}

func (l *srcLine) next() byte {
	ch := l.peek()
	l.pos++
	return ch
}

func (l *srcLine) skipSpace() {
	for !l.done() && unicode.IsSpace(rune(l.text[l.pos])) {
		l.pos++
	}
}

// atComment reports whether the rest of the line is comment.
func (l *srcLine) atComment() bool {
	ch := l.peek()
	return ch == '#' || ch == ';'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '.' || unicode.IsLetter(rune(ch))
}

func isIdentChar(ch byte) bool {
	return ch == '_' || ch == '.' || ch == '$' || unicode.IsLetter(rune(ch)) || unicode.IsDigit(rune(ch))
}

func (l *srcLine) ident() string {
	start := l.pos
	for !l.done() && isIdentChar(l.text[l.pos]) {
		l.pos++
	}
	return l.text[start:l.pos]
}

// parse consumes one whole source line, appending items to the program.
func (l *srcLine) parse(program *Program) error {
	for {
		l.skipSpace()
		if l.done() || l.atComment() {
			return nil
		}

		pos := l.position()

		// Labels: one or more "name:" prefixes.
		if isIdentStart(l.peek()) && l.peek() != '.' {
			save := l.pos
			name := l.ident()
			l.skipSpace()
			if l.peek() == ':' {
				l.next()
				program.Items = append(program.Items, Item{Pos: pos, Kind: ItemLabel, Label: name})
				continue
			}
			if l.peek() == '=' {
				l.next()
				value, err := l.constExpr()
				if err != nil {
					return err
				}
				program.Items = append(program.Items, Item{
					Pos:      pos,
					Kind:     ItemConstant,
					Constant: &Constant{Name: name, Value: value},
				})
				return l.expectEnd()
			}
			l.pos = save
		}

		if l.peek() == '.' {
			return l.directive(program, pos)
		}

		return l.instruction(program, pos)
	}
}

func (l *srcLine) expectEnd() error {
	l.skipSpace()
	if !l.done() && !l.atComment() {
		return l.errorf("unexpected text %q", l.text[l.pos:])
	}
	return nil
}

// directive parses an assembler directive, or an .eqv constant.
func (l *srcLine) directive(program *Program, pos Position) error {
	l.next() // leading dot
	name := strings.ToLower(l.ident())

	add := func(d *Directive) {
		program.Items = append(program.Items, Item{Pos: pos, Kind: ItemDirective, Directive: d})
	}

	switch name {
	case "text":
		add(&Directive{Kind: DirText})
	case "data":
		add(&Directive{Kind: DirData})
	case "ktext":
		add(&Directive{Kind: DirKText})
	case "kdata":
		add(&Directive{Kind: DirKData})

	case "ascii", "asciiz":
		kind := DirAscii
		if name == "asciiz" {
			kind = DirAsciiz
		}
		for {
			l.skipSpace()
			str, err := l.stringLit()
			if err != nil {
				return err
			}
			add(&Directive{Kind: kind, Str: str})
			l.skipSpace()
			if l.peek() != ',' {
				break
			}
			l.next()
		}

	case "byte", "half", "word":
		kind := DirByte
		switch name {
		case "half":
			kind = DirHalf
		case "word":
			kind = DirWord
		}
		values, err := l.constExprList()
		if err != nil {
			return err
		}
		add(&Directive{Kind: kind, Values: values})

	case "float", "double":
		kind := DirFloat
		if name == "double" {
			kind = DirDouble
		}
		floats, err := l.floatList()
		if err != nil {
			return err
		}
		add(&Directive{Kind: kind, Floats: floats})

	case "align", "space":
		kind := DirAlign
		if name == "space" {
			kind = DirSpace
		}
		value, err := l.constExpr()
		if err != nil {
			return err
		}
		add(&Directive{Kind: kind, Values: []ConstExpr{value}})

	case "globl", "global":
		l.skipSpace()
		label := l.ident()
		if label == "" {
			return l.errorf("expected label after .%s", name)
		}
		add(&Directive{Kind: DirGlobl, Label: label})

	case "eqv":
		l.skipSpace()
		cname := l.ident()
		if cname == "" {
			return l.errorf("expected constant name after .eqv")
		}
		l.skipSpace()
		if l.peek() == ',' {
			l.next()
		}
		value, err := l.constExpr()
		if err != nil {
			return err
		}
		program.Items = append(program.Items, Item{
			Pos:      pos,
			Kind:     ItemConstant,
			Constant: &Constant{Name: cname, Value: value},
		})

	default:
		return l.errorf("unknown directive .%s", name)
	}

	return l.expectEnd()
}

// instruction parses a mnemonic and comma or space separated arguments.
func (l *srcLine) instruction(program *Program, pos Position) error {
	name := strings.ToLower(l.ident())
	if name == "" {
		return l.errorf("expected instruction")
	}

	inst := &Instruction{Name: name}
	for {
		l.skipSpace()
		if l.done() || l.atComment() {
			break
		}
		arg, err := l.argument()
		if err != nil {
			return err
		}
		inst.Args = append(inst.Args, arg)
		l.skipSpace()
		if l.peek() == ',' {
			l.next()
		}
	}

	program.Items = append(program.Items, Item{Pos: pos, Kind: ItemInstruction, Instruction: inst})
	return nil
}

// argument parses a register, offset(register), number, char, or label.
func (l *srcLine) argument() (Argument, error) {
	switch {
	case l.peek() == '$':
		reg, err := l.register()
		if err != nil {
			return Argument{}, err
		}
		return Argument{Kind: ArgRegister, Reg: reg}, nil

	case l.peek() == '(':
		// Zero offset form "($reg)".
		return l.offsetTail(Immediate{Kind: ImmI16})

	case l.peek() == '\'':
		ch, err := l.charLit()
		if err != nil {
			return Argument{}, err
		}
		return Argument{Kind: ArgNumber, Num: Number{Kind: NumChar, Char: ch}}, nil

	case l.peek() == '-' || l.peek() == '+' || unicode.IsDigit(rune(l.peek())):
		value, isFloat, fval, err := l.numberLit()
		if err != nil {
			return Argument{}, err
		}
		if isFloat {
			return Argument{Kind: ArgNumber, Num: Number{Kind: NumFloat64, F64: fval, F32: float32(fval)}}, nil
		}
		imm := ClassifyImmediate(value)
		l.skipSpace()
		if l.peek() == '(' {
			return l.offsetTail(imm)
		}
		return Argument{Kind: ArgNumber, Num: Number{Kind: NumImmediate, Imm: imm}}, nil

	case isIdentStart(l.peek()):
		label := l.ident()
		imm := Immediate{Kind: ImmLabel, Label: label}
		l.skipSpace()
		if l.peek() == '(' {
			return l.offsetTail(imm)
		}
		return Argument{Kind: ArgNumber, Num: Number{Kind: NumImmediate, Imm: imm}}, nil
	}

	return Argument{}, l.errorf("unexpected argument %q", l.text[l.pos:])
}

// offsetTail parses "($reg)" after an already-parsed offset.
func (l *srcLine) offsetTail(imm Immediate) (Argument, error) {
	l.next() // '('
	l.skipSpace()
	reg, err := l.register()
	if err != nil {
		return Argument{}, err
	}
	l.skipSpace()
	if l.peek() != ')' {
		return Argument{}, l.errorf("expected ) after register")
	}
	l.next()
	return Argument{Kind: ArgOffset, Reg: reg, Imm: imm}, nil
}

func (l *srcLine) register() (RegIdent, error) {
	if l.peek() != '$' {
		return RegIdent{}, l.errorf("expected register")
	}
	l.next()
	if unicode.IsDigit(rune(l.peek())) {
		start := l.pos
		for !l.done() && unicode.IsDigit(rune(l.text[l.pos])) {
			l.pos++
		}
		num, err := strconv.Atoi(l.text[start:l.pos])
		if err != nil {
			return RegIdent{}, l.errorf("bad register number")
		}
		return RegIdent{Num: num, Numbered: true}, nil
	}
	name := l.ident()
	if name == "" {
		return RegIdent{}, l.errorf("expected register name after $")
	}
	return RegIdent{Name: strings.ToLower(name)}, nil
}

// ClassifyImmediate picks the smallest natural width for a literal.
func ClassifyImmediate(value int64) Immediate {
	switch {
	case value >= -32768 && value <= 32767:
		return Immediate{Kind: ImmI16, Value: value}
	case value >= 0 && value <= 65535:
		return Immediate{Kind: ImmU16, Value: value}
	case value >= -2147483648 && value <= 2147483647:
		return Immediate{Kind: ImmI32, Value: value}
	default:
		return Immediate{Kind: ImmU32, Value: value}
	}
}

// numberLit parses an integer in any base, or a float when it carries a
// decimal point or exponent.
func (l *srcLine) numberLit() (int64, bool, float64, error) {
	start := l.pos
	if l.peek() == '-' || l.peek() == '+' {
		l.pos++
	}
	digits := 0
	hex := false
	if l.peek() == '0' && l.pos+1 < len(l.text) &&
		(l.text[l.pos+1] == 'x' || l.text[l.pos+1] == 'X' ||
			l.text[l.pos+1] == 'b' || l.text[l.pos+1] == 'B' ||
			l.text[l.pos+1] == 'o' || l.text[l.pos+1] == 'O') {
		hex = l.text[l.pos+1] == 'x' || l.text[l.pos+1] == 'X'
		l.pos += 2
	}
	isFloat := false
	for !l.done() {
		ch := l.text[l.pos]
		switch {
		case unicode.IsDigit(rune(ch)):
			digits++
		case hex && isHexDigit(ch):
			digits++
		case !hex && (ch == '.' || ch == 'e' || ch == 'E'):
			isFloat = true
		case isFloat && (ch == '-' || ch == '+'):
		default:
			goto out
		}
		l.pos++
	}
out:
	text := l.text[start:l.pos]
	if digits == 0 {
		return 0, false, 0, l.errorf("bad number %q", text)
	}
	if isFloat {
		fval, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, false, 0, l.errorf("bad number %q", text)
		}
		return 0, true, fval, nil
	}

	value, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		// Values above MaxInt64 only arise for unsigned hex forms.
		uval, uerr := strconv.ParseUint(text, 0, 64)
		if uerr != nil {
			return 0, false, 0, l.errorf("bad number %q", text)
		}
		value = int64(uval)
	}
	return value, false, 0, nil
}

func isHexDigit(ch byte) bool {
	return (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func (l *srcLine) charLit() (byte, error) {
	l.next() // opening quote
	ch, err := l.escapedChar('\'')
	if err != nil {
		return 0, err
	}
	if l.peek() != '\'' {
		return 0, l.errorf("unterminated character literal")
	}
	l.next()
	return ch, nil
}

func (l *srcLine) stringLit() (string, error) {
	if l.peek() != '"' {
		return "", l.errorf("expected string")
	}
	l.next()
	var out []byte
	for {
		if l.done() {
			return "", l.errorf("unterminated string")
		}
		if l.peek() == '"' {
			l.next()
			return string(out), nil
		}
		ch, err := l.escapedChar('"')
		if err != nil {
			return "", err
		}
		out = append(out, ch)
	}
}

func (l *srcLine) escapedChar(quote byte) (byte, error) {
	ch := l.next()
	if ch != '\\' {
		return ch, nil
	}
	esc := l.next()
	switch esc {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case '0':
		return 0, nil
	case '\\':
		return '\\', nil
	case '\'', '"':
		return esc, nil
	default:
		return 0, l.errorf("unknown escape \\%c", esc)
	}
}

// Constant expressions. Precedence from loosest to tightest:
// | , ^ , & , << >> , + - , * / % , unary.

func (l *srcLine) constExprList() ([]ConstExpr, error) {
	var values []ConstExpr
	for {
		value, err := l.constExpr()
		if err != nil {
			return nil, err
		}
		values = append(values, value)
		l.skipSpace()
		if l.peek() != ',' {
			return values, nil
		}
		l.next()
	}
}

func (l *srcLine) floatList() ([]float64, error) {
	var values []float64
	for {
		l.skipSpace()
		ival, isFloat, fval, err := l.numberLit()
		if err != nil {
			return nil, err
		}
		if !isFloat {
			// Integer literals are fine float initialisers.
			fval = float64(ival)
		}
		values = append(values, fval)
		l.skipSpace()
		if l.peek() != ',' {
			return values, nil
		}
		l.next()
	}
}

func (l *srcLine) constExpr() (ConstExpr, error) {
	return l.binaryExpr(0)
}

var exprLevels = [][]struct {
	token string
	op    ConstOp
}{
	{{"|", ConstOr}},
	{{"^", ConstXor}},
	{{"&", ConstAnd}},
	{{"<<", ConstShl}, {">>", ConstShr}},
	{{"+", ConstAdd}, {"-", ConstSub}},
	{{"*", ConstMul}, {"/", ConstDiv}, {"%", ConstMod}},
}

func (l *srcLine) binaryExpr(level int) (ConstExpr, error) {
	if level == len(exprLevels) {
		return l.unaryExpr()
	}

	left, err := l.binaryExpr(level + 1)
	if err != nil {
		return ConstExpr{}, err
	}

	for {
		l.skipSpace()
		matched := false
		for _, candidate := range exprLevels[level] {
			if strings.HasPrefix(l.text[l.pos:], candidate.token) {
				l.pos += len(candidate.token)
				right, err := l.binaryExpr(level + 1)
				if err != nil {
					return ConstExpr{}, err
				}
				lcopy, rcopy := left, right
				left = ConstExpr{Op: candidate.op, Left: &lcopy, Right: &rcopy}
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}
	}
}

func (l *srcLine) unaryExpr() (ConstExpr, error) {
	l.skipSpace()
	switch l.peek() {
	case '-':
		l.next()
		inner, err := l.unaryExpr()
		if err != nil {
			return ConstExpr{}, err
		}
		return ConstExpr{Op: ConstNeg, Left: &inner}, nil
	case '~':
		l.next()
		inner, err := l.unaryExpr()
		if err != nil {
			return ConstExpr{}, err
		}
		return ConstExpr{Op: ConstNot, Left: &inner}, nil
	case '(':
		l.next()
		inner, err := l.constExpr()
		if err != nil {
			return ConstExpr{}, err
		}
		l.skipSpace()
		if l.peek() != ')' {
			return ConstExpr{}, l.errorf("expected )")
		}
		l.next()
		return inner, nil
	case '\'':
		ch, err := l.charLit()
		if err != nil {
			return ConstExpr{}, err
		}
		return ConstExpr{Op: ConstValue, Value: int64(ch)}, nil
	}

	if unicode.IsDigit(rune(l.peek())) {
		value, isFloat, _, err := l.numberLit()
		if err != nil {
			return ConstExpr{}, err
		}
		if isFloat {
			return ConstExpr{}, l.errorf("float in constant expression")
		}
		return ConstExpr{Op: ConstValue, Value: value}, nil
	}

	if isIdentStart(l.peek()) {
		return ConstExpr{Op: ConstRef, Ref: l.ident()}, nil
	}

	return ConstExpr{}, l.errorf("expected expression")
}
