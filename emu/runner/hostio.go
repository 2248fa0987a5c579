/*
   Host I/O: the default console handler answering syscall suspensions.

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
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/eiannone/keyboard"

	"github.com/rcornwell/MIPS32/emu/cpu"
)

// Handler is the host side of the syscall protocol. Print calls cannot
// fail; read calls may, which aborts the run with the error.
type Handler interface {
	PrintInt(value int32)
	PrintFloat(value float32)
	PrintDouble(value float64)
	PrintString(value []byte)
	PrintChar(value byte)
	ReadInt() (int32, error)
	ReadFloat() (float32, error)
	ReadDouble() (float64, error)
	ReadString(maxLen int32) ([]byte, error)
	ReadChar() (byte, error)
	Open(path []byte, flags, mode uint32) (int32, error)
	Read(fd, length uint32) (int32, []byte, error)
	Write(fd uint32, buf []byte) (int32, error)
	Close(fd uint32) (int32, error)
	Sbrk(delta int32)
	Trap()
}

// ConsoleHandler answers syscalls on the terminal. File syscalls are not
// enabled; they surface as disabled-syscall errors.
type ConsoleHandler struct {
	Out io.Writer
	In  *bufio.Reader

	// RawChar reads read_char as a single unbuffered keystroke instead
	// of a line from stdin.
	RawChar bool
}

// NewConsoleHandler wires a handler to the usual streams.
func NewConsoleHandler(out io.Writer, in io.Reader, rawChar bool) *ConsoleHandler {
	return &ConsoleHandler{Out: out, In: bufio.NewReader(in), RawChar: rawChar}
}

func (h *ConsoleHandler) PrintInt(value int32) {
	fmt.Fprintf(h.Out, "%d", value)
}

func (h *ConsoleHandler) PrintFloat(value float32) {
	fmt.Fprintf(h.Out, "%v", value)
}

func (h *ConsoleHandler) PrintDouble(value float64) {
	fmt.Fprintf(h.Out, "%v", value)
}

func (h *ConsoleHandler) PrintString(value []byte) {
	fmt.Fprintf(h.Out, "%s", value)
}

func (h *ConsoleHandler) PrintChar(value byte) {
	fmt.Fprintf(h.Out, "%c", value)
}

func (h *ConsoleHandler) ReadInt() (int32, error) {
	line, err := h.In.ReadString('\n')
	if err != nil && line == "" {
		return 0, err
	}
	value, err := strconv.ParseInt(strings.TrimSpace(line), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("read_int: %q is not an integer", strings.TrimSpace(line))
	}
	return int32(value), nil
}

func (h *ConsoleHandler) ReadFloat() (float32, error) {
	return 0, &cpu.InvalidSyscallError{Syscall: cpu.SysReadFloat, Reason: cpu.ReasonUnimplemented}
}

func (h *ConsoleHandler) ReadDouble() (float64, error) {
	return 0, &cpu.InvalidSyscallError{Syscall: cpu.SysReadDouble, Reason: cpu.ReasonUnimplemented}
}

func (h *ConsoleHandler) ReadString(maxLen int32) ([]byte, error) {
	line, err := h.In.ReadString('\n')
	if err != nil && line == "" {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\n")), nil
}

// ReadChar takes one keystroke without waiting for a newline when the
// terminal allows it.
func (h *ConsoleHandler) ReadChar() (byte, error) {
	if h.RawChar {
		ch, key, err := keyboard.GetSingleKey()
		if err != nil {
			return 0, fmt.Errorf("read_char: %w", err)
		}
		if key == keyboard.KeyCtrlC {
			return 0, fmt.Errorf("read_char: interrupted")
		}
		if key == keyboard.KeyEnter {
			return '\n', nil
		}
		return byte(ch), nil
	}

	ch, err := h.In.ReadByte()
	if err != nil {
		return 0, err
	}
	return ch, nil
}

func (h *ConsoleHandler) Open([]byte, uint32, uint32) (int32, error) {
	return 0, &cpu.InvalidSyscallError{Syscall: cpu.SysOpen, Reason: cpu.ReasonDisabled}
}

func (h *ConsoleHandler) Read(uint32, uint32) (int32, []byte, error) {
	return 0, nil, &cpu.InvalidSyscallError{Syscall: cpu.SysRead, Reason: cpu.ReasonDisabled}
}

func (h *ConsoleHandler) Write(uint32, []byte) (int32, error) {
	return 0, &cpu.InvalidSyscallError{Syscall: cpu.SysWrite, Reason: cpu.ReasonDisabled}
}

func (h *ConsoleHandler) Close(uint32) (int32, error) {
	return 0, &cpu.InvalidSyscallError{Syscall: cpu.SysClose, Reason: cpu.ReasonDisabled}
}

func (h *ConsoleHandler) Sbrk(delta int32) {
	slog.Debug(fmt.Sprintf("sbrk %d", delta))
}

func (h *ConsoleHandler) Trap() {
	slog.Warn("trap raised")
}
