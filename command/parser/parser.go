/*
   Interactive debugger command parsing and dispatch.

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
	"errors"
	"fmt"
	"strconv"
	"strings"

	command "github.com/rcornwell/MIPS32/command/command"
	"github.com/rcornwell/MIPS32/emu/breakpoints"
	"github.com/rcornwell/MIPS32/emu/disassemble"
	"github.com/rcornwell/MIPS32/emu/inst"
	"github.com/rcornwell/MIPS32/emu/parser"
	"github.com/rcornwell/MIPS32/emu/runner"
	"github.com/rcornwell/MIPS32/emu/safe"
	"github.com/rcornwell/MIPS32/emu/state"
	"github.com/rcornwell/MIPS32/util/hex"
)

type cmd struct {
	name    string // Command name.
	min     int    // Minimum match size.
	process func(*cmdLine, *command.Context) (bool, error)
	help    string
}

type cmdLine struct {
	line string // Current command.
	pos  int    // Position in line.
}

var cmdList []cmd

func init() {
	cmdList = []cmd{
		{name: "run", min: 1, process: run, help: "run until a breakpoint, error, or exit"},
		{name: "step", min: 1, process: step, help: "step [n]: execute n instructions"},
		{name: "back", min: 2, process: back, help: "back [n]: rewind n instructions"},
		{name: "print", min: 1, process: print, help: "print $reg | pc | hi | lo | <label> | <addr>"},
		{name: "context", min: 1, process: context, help: "disassemble around the current instruction"},
		{name: "examine", min: 1, process: examine, help: "examine <addr|label> [bytes]: hex dump of memory"},
		{name: "breakpoint", min: 2, process: breakpoint, help: "breakpoint <target> | list | delete|enable|disable <id> | ignore <id> <n> | temporary <target>"},
		{name: "watchpoint", min: 1, process: watchpoint, help: "watchpoint <$reg|addr> [r|w|rw] | list | delete|enable|disable <id> | ignore <id> <n>"},
		{name: "labels", min: 2, process: labels, help: "list labels and their addresses"},
		{name: "reset", min: 3, process: reset, help: "rewind the program to its initial state"},
		{name: "help", min: 1, process: help, help: "show this list"},
		{name: "quit", min: 1, process: quit, help: "leave the simulator"},
		{name: "exit", min: 2, process: quit, help: "leave the simulator"},
	}
}

// ProcessCommand runs one debugger command line. The bool result asks
// the reader loop to quit.
func ProcessCommand(line string, ctx *command.Context) (bool, error) {
	cl := &cmdLine{line: line}
	name := cl.word()
	if name == "" {
		return false, nil
	}

	name = strings.ToLower(name)
	for i := range cmdList {
		entry := &cmdList[i]
		if len(name) >= entry.min && strings.HasPrefix(entry.name, name) {
			return entry.process(cl, ctx)
		}
	}
	return false, fmt.Errorf("unknown command %q, try help", name)
}

// CompleteCmd offers command-name completion for the reader.
func CompleteCmd(line string) []string {
	var matches []string
	lower := strings.ToLower(line)
	for i := range cmdList {
		if strings.HasPrefix(cmdList[i].name, lower) {
			matches = append(matches, cmdList[i].name)
		}
	}
	return matches
}

func (l *cmdLine) skipSpace() {
	for l.pos < len(l.line) && (l.line[l.pos] == ' ' || l.line[l.pos] == '\t') {
		l.pos++
	}
}

// word returns the next whitespace-delimited word, empty at end of line.
func (l *cmdLine) word() string {
	l.skipSpace()
	start := l.pos
	for l.pos < len(l.line) && l.line[l.pos] != ' ' && l.line[l.pos] != '\t' {
		l.pos++
	}
	return l.line[start:l.pos]
}

func (l *cmdLine) number(def int) (int, error) {
	text := l.word()
	if text == "" {
		return def, nil
	}
	value, err := strconv.Atoi(text)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("expected a count, got %q", text)
	}
	return value, nil
}

// address resolves a word as a label or a numeric address.
func addressOf(ctx *command.Context, text string) (uint32, error) {
	if addr, ok := ctx.Binary.GetLabel(text); ok {
		return addr, nil
	}
	value, err := strconv.ParseUint(text, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is neither a label nor an address", text)
	}
	return uint32(value), nil
}

func reportError(ctx *command.Context, err error) {
	fmt.Println("Error: " + err.Error())
	if explain := ctx.Runner.ExplainUninit(err); explain != "" {
		fmt.Println("  " + explain)
	}
}

func run(_ *cmdLine, ctx *command.Context) (bool, error) {
	if err := ctx.Runner.Run(); err != nil {
		reportError(ctx, err)
		return false, nil
	}
	if exited, code := ctx.Runner.Exited(); exited {
		fmt.Printf("program exited with status %d\n", code)
	}
	return false, nil
}

func step(l *cmdLine, ctx *command.Context) (bool, error) {
	count, err := l.number(1)
	if err != nil {
		return false, err
	}
	if err := ctx.Runner.StepN(count); err != nil {
		reportError(ctx, err)
		return false, nil
	}
	if exited, code := ctx.Runner.Exited(); exited {
		fmt.Printf("program exited with status %d\n", code)
		return false, nil
	}
	showCurrent(ctx)
	return false, nil
}

func back(l *cmdLine, ctx *command.Context) (bool, error) {
	count, err := l.number(1)
	if err != nil {
		return false, err
	}
	if err := ctx.Runner.StepBack(count); err != nil {
		var out *runner.RanOutOfHistoryError
		if errors.As(err, &out) {
			fmt.Println(out.Error())
			return false, nil
		}
		return false, err
	}
	showCurrent(ctx)
	return false, nil
}

func showCurrent(ctx *command.Context) {
	st := ctx.Runner.Runtime.State()
	pc := st.PC()
	word, err := st.ReadWord(pc)
	if err != nil {
		fmt.Printf("pc 0x%08x\n", pc)
		return
	}
	text, ok := disassemble.Disassemble(ctx.ISet, word, pc)
	if !ok {
		text = fmt.Sprintf(".word 0x%08x", word)
	}
	if info, ok := ctx.Binary.LineNumbers[pc]; ok {
		fmt.Printf("0x%08x [%s:%d]  %s\n", pc, info.FileTag, info.Line, text)
	} else {
		fmt.Printf("0x%08x  %s\n", pc, text)
	}
}

func print(l *cmdLine, ctx *command.Context) (bool, error) {
	target := l.word()
	if target == "" {
		return false, fmt.Errorf("print needs a register, label, or address")
	}
	st := ctx.Runner.Runtime.State()

	switch strings.ToLower(target) {
	case "pc":
		fmt.Printf("pc = 0x%08x\n", st.PC())
		return false, nil
	case "hi":
		value, err := st.ReadHi()
		if err != nil {
			fmt.Println("hi is uninitialised")
			return false, nil
		}
		fmt.Printf("hi = %d (0x%08x)\n", value, uint32(value))
		return false, nil
	case "lo":
		value, err := st.ReadLo()
		if err != nil {
			fmt.Println("lo is uninitialised")
			return false, nil
		}
		fmt.Printf("lo = %d (0x%08x)\n", value, uint32(value))
		return false, nil
	}

	if strings.HasPrefix(target, "$") {
		reg, err := parseRegisterWord(target)
		if err != nil {
			return false, err
		}
		value, ok := st.ReadRegisterRaw(reg).Get()
		if !ok {
			fmt.Printf("%s is uninitialised\n", inst.RegisterName(reg))
			return false, nil
		}
		fmt.Printf("%s = %d (0x%08x)\n", inst.RegisterName(reg), value, uint32(value))
		return false, nil
	}

	addr, err := addressOf(ctx, target)
	if err != nil {
		return false, err
	}
	value, err := st.ReadWord(addr)
	if err != nil {
		reportError(ctx, err)
		return false, nil
	}
	fmt.Printf("0x%08x = %d (0x%08x)\n", addr, int32(value), value)
	return false, nil
}

func parseRegisterWord(text string) (uint32, error) {
	name := strings.TrimPrefix(text, "$")
	if num, err := strconv.Atoi(name); err == nil {
		return inst.ParseRegister(parser.RegIdent{Num: num, Numbered: true})
	}
	return inst.ParseRegister(parser.RegIdent{Name: name})
}

func context(_ *cmdLine, ctx *command.Context) (bool, error) {
	st := ctx.Runner.Runtime.State()
	pc := st.PC()
	for addr := pc - 8; addr <= pc+8; addr += 4 {
		word, err := st.ReadWord(addr)
		if err != nil {
			continue
		}
		text, ok := disassemble.Disassemble(ctx.ISet, word, addr)
		if !ok {
			continue
		}
		marker := "  "
		if addr == pc {
			marker = "->"
		}
		if label, ok := ctx.Binary.LabelForAddr(addr); ok {
			fmt.Printf("%s:\n", label)
		}
		fmt.Printf(" %s 0x%08x  %s\n", marker, addr, text)
	}
	return false, nil
}

func examine(l *cmdLine, ctx *command.Context) (bool, error) {
	target := l.word()
	if target == "" {
		return false, fmt.Errorf("examine needs a label or address")
	}
	addr, err := addressOf(ctx, target)
	if err != nil {
		return false, err
	}
	count, err := l.number(64)
	if err != nil {
		return false, err
	}

	st := ctx.Runner.Runtime.State()
	data := make([]safe.Safe[uint8], 0, count)
	for i := 0; i < count; i++ {
		b, err := st.ReadByteRaw(addr + uint32(i))
		if err != nil {
			break
		}
		data = append(data, b)
	}
	if len(data) == 0 {
		return false, fmt.Errorf("no readable memory at 0x%08x", addr)
	}
	fmt.Print(hex.Dump(addr, data))
	return false, nil
}

func breakpoint(l *cmdLine, ctx *command.Context) (bool, error) {
	sub := l.word()
	switch strings.ToLower(sub) {
	case "", "list":
		if len(ctx.Binary.Breakpoints) == 0 {
			fmt.Println("no breakpoints set")
			return false, nil
		}
		for addr, bp := range ctx.Binary.Breakpoints {
			status := "enabled"
			if !bp.Enabled {
				status = "disabled"
			}
			label := ""
			if name, ok := ctx.Binary.LabelForAddr(addr); ok {
				label = " (" + name + ")"
			}
			fmt.Printf("%3d: 0x%08x%s %s ignore=%d\n", bp.ID, addr, label, status, bp.IgnoreCount)
		}
		return false, nil

	case "delete", "enable", "disable", "ignore":
		id, err := l.number(0)
		if err != nil || id == 0 {
			return false, fmt.Errorf("breakpoint %s needs an id", sub)
		}
		for addr, bp := range ctx.Binary.Breakpoints {
			if bp.ID != id {
				continue
			}
			switch strings.ToLower(sub) {
			case "delete":
				delete(ctx.Binary.Breakpoints, addr)
			case "enable":
				bp.Enabled = true
			case "disable":
				bp.Enabled = false
			case "ignore":
				count, err := l.number(0)
				if err != nil {
					return false, err
				}
				bp.IgnoreCount = count
			}
			return false, nil
		}
		return false, fmt.Errorf("no breakpoint with id %d", id)

	case "temporary":
		target := l.word()
		addr, err := addressOf(ctx, target)
		if err != nil {
			return false, err
		}
		bp := ctx.Binary.InsertBreakpoint(addr)
		if bp == nil {
			return false, fmt.Errorf("breakpoint already set at 0x%08x", addr)
		}
		// Fires once: it removes itself when hit.
		bp.Commands = append(bp.Commands, fmt.Sprintf("breakpoint delete %d", bp.ID))
		fmt.Printf("temporary breakpoint %d at 0x%08x\n", bp.ID, addr)
		return false, nil

	default:
		addr, err := addressOf(ctx, sub)
		if err != nil {
			return false, err
		}
		bp := ctx.Binary.InsertBreakpoint(addr)
		if bp == nil {
			return false, fmt.Errorf("breakpoint already set at 0x%08x", addr)
		}
		fmt.Printf("breakpoint %d at 0x%08x\n", bp.ID, addr)
		return false, nil
	}
}

func watchpoint(l *cmdLine, ctx *command.Context) (bool, error) {
	sub := l.word()
	switch strings.ToLower(sub) {
	case "", "list":
		if len(ctx.Binary.Watchpoints) == 0 {
			fmt.Println("no watchpoints set")
			return false, nil
		}
		for target, wp := range ctx.Binary.Watchpoints {
			status := "enabled"
			if !wp.Enabled {
				status = "disabled"
			}
			fmt.Printf("%3d: %s %s %s ignore=%d\n", wp.ID, target, wp.Action, status, wp.IgnoreCount)
		}
		return false, nil

	case "delete", "enable", "disable", "ignore":
		id, err := l.number(0)
		if err != nil || id == 0 {
			return false, fmt.Errorf("watchpoint %s needs an id", sub)
		}
		for target, wp := range ctx.Binary.Watchpoints {
			if wp.ID != id {
				continue
			}
			switch strings.ToLower(sub) {
			case "delete":
				delete(ctx.Binary.Watchpoints, target)
			case "enable":
				wp.Enabled = true
			case "disable":
				wp.Enabled = false
			case "ignore":
				count, err := l.number(0)
				if err != nil {
					return false, err
				}
				wp.IgnoreCount = count
			}
			return false, nil
		}
		return false, fmt.Errorf("no watchpoint with id %d", id)

	default:
		var target breakpoints.WatchpointTarget
		if strings.HasPrefix(sub, "$") {
			reg, err := parseRegisterWord(sub)
			if err != nil {
				return false, err
			}
			target = breakpoints.RegisterTarget(reg)
		} else {
			addr, err := addressOf(ctx, sub)
			if err != nil {
				return false, err
			}
			target = breakpoints.MemoryTarget(addr)
		}

		action := breakpoints.ReadWrite
		switch strings.ToLower(l.word()) {
		case "r", "read":
			action = breakpoints.ReadOnly
		case "w", "write":
			action = breakpoints.WriteOnly
		case "", "rw", "readwrite":
		default:
			return false, fmt.Errorf("watch action must be r, w, or rw")
		}

		wp := ctx.Binary.InsertWatchpoint(target, action)
		if wp == nil {
			return false, fmt.Errorf("watchpoint already set on %s", target)
		}
		fmt.Printf("watchpoint %d on %s (%s)\n", wp.ID, target, wp.Action)
		return false, nil
	}
}

func labels(_ *cmdLine, ctx *command.Context) (bool, error) {
	for _, label := range ctx.Binary.Labels() {
		segment := state.ClassifySegment(label.Addr)
		fmt.Printf("0x%08x  %-20s", label.Addr, label.Name)
		switch segment {
		case state.SegText, state.SegKText:
			if info, ok := ctx.Binary.LineNumbers[label.Addr]; ok {
				fmt.Printf(" %s:%d", info.FileTag, info.Line)
			}
		}
		fmt.Println()
	}
	return false, nil
}

func reset(_ *cmdLine, ctx *command.Context) (bool, error) {
	ctx.Runner.Reset()
	fmt.Println("program reset")
	return false, nil
}

func help(_ *cmdLine, _ *command.Context) (bool, error) {
	for i := range cmdList {
		fmt.Printf("  %-12s %s\n", cmdList[i].name, cmdList[i].help)
	}
	return false, nil
}

func quit(_ *cmdLine, _ *command.Context) (bool, error) {
	return true, nil
}
