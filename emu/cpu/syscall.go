/*
   Syscall suspensions: execution pauses carrying the syscall's
   arguments; the driver performs the host I/O and resumes.

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

import (
	"github.com/rcornwell/MIPS32/emu/inst"
	"github.com/rcornwell/MIPS32/emu/state"
)

// Syscall numbers, taken from $v0.
const (
	SysPrintInt    int32 = 1
	SysPrintFloat  int32 = 2
	SysPrintDouble int32 = 3
	SysPrintString int32 = 4
	SysReadInt     int32 = 5
	SysReadFloat   int32 = 6
	SysReadDouble  int32 = 7
	SysReadString  int32 = 8
	SysSbrk        int32 = 9
	SysExit        int32 = 10
	SysPrintChar   int32 = 11
	SysReadChar    int32 = 12
	SysOpen        int32 = 13
	SysRead        int32 = 14
	SysWrite       int32 = 15
	SysClose       int32 = 16
	SysExitStatus  int32 = 17
)

// SuspensionKind discriminates why execution paused.
type SuspensionKind int

const (
	SusPrintInt SuspensionKind = iota
	SusPrintFloat
	SusPrintDouble
	SusPrintString
	SusReadInt
	SusReadFloat
	SusReadDouble
	SusReadString
	SusSbrk
	SusExit
	SusPrintChar
	SusReadChar
	SusOpen
	SusRead
	SusWrite
	SusClose
	SusExitStatus
	SusBreakpoint
	SusTrap
)

func (k SuspensionKind) String() string {
	names := []string{"print_int", "print_float", "print_double",
		"print_string", "read_int", "read_float", "read_double",
		"read_string", "sbrk", "exit", "print_char", "read_char", "open",
		"read", "write", "close", "exit_status", "breakpoint", "trap"}
	return names[k]
}

// Suspension is the value Step returns when execution paused. The fields
// used depend on the kind; read-class kinds are completed through the
// Runtime's Resume methods.
type Suspension struct {
	Kind SuspensionKind

	Value  int32  // print_int value, sbrk delta, exit_status code
	Char   byte   // print_char
	Bytes  []byte // print_string, write buffer, open path
	MaxLen int32  // read_string buffer length
	Fd     uint32 // read/write/close fd
	Len    uint32 // read length
	Flags  uint32 // open
	Mode   uint32 // open
}

// syscall reads $v0 and the argument registers and builds the matching
// suspension. Sbrk takes effect immediately; read-class syscalls arm the
// pending slot for the later resume.
func (r *Runtime) syscall(st *state.State) (*Suspension, error) {
	syscall, err := st.ReadRegister(inst.RegV0)
	if err != nil {
		return nil, err
	}

	readReg := func(reg uint32) (int32, error) {
		return st.ReadRegister(reg)
	}

	switch syscall {
	case SysPrintInt:
		value, err := readReg(inst.RegA0)
		if err != nil {
			return nil, err
		}
		return &Suspension{Kind: SusPrintInt, Value: value}, nil

	case SysPrintFloat, SysPrintDouble, SysReadFloat, SysReadDouble:
		// No floating point register file.
		return nil, &InvalidSyscallError{Syscall: syscall, Reason: ReasonUnimplemented}

	case SysPrintString:
		addr, err := readReg(inst.RegA0)
		if err != nil {
			return nil, err
		}
		text, err := st.ReadString(uint32(addr))
		if err != nil {
			return nil, err
		}
		return &Suspension{Kind: SusPrintString, Bytes: text}, nil

	case SysReadInt:
		r.setPending(SusReadInt, 0, 0)
		return &Suspension{Kind: SusReadInt}, nil

	case SysReadString:
		buf, err := readReg(inst.RegA0)
		if err != nil {
			return nil, err
		}
		length, err := readReg(inst.RegA1)
		if err != nil {
			return nil, err
		}
		r.setPending(SusReadString, uint32(buf), length)
		return &Suspension{Kind: SusReadString, MaxLen: length}, nil

	case SysSbrk:
		delta, err := readReg(inst.RegA0)
		if err != nil {
			return nil, err
		}
		heapSize := st.HeapSize()
		st.WriteRegister(inst.RegV0, int32(state.HeapBot+heapSize))
		if delta > 0 {
			grown := heapSize + uint32(delta)
			if grown < heapSize {
				grown = ^uint32(0)
			}
			st.SetHeapSize(grown)
		} else if delta < 0 {
			shrink := uint32(-int64(delta))
			if shrink > heapSize {
				shrink = heapSize
			}
			st.SetHeapSize(heapSize - shrink)
		}
		return &Suspension{Kind: SusSbrk, Value: delta}, nil

	case SysExit:
		return &Suspension{Kind: SusExit}, nil

	case SysPrintChar:
		value, err := readReg(inst.RegA0)
		if err != nil {
			return nil, err
		}
		return &Suspension{Kind: SusPrintChar, Char: byte(value)}, nil

	case SysReadChar:
		r.setPending(SusReadChar, 0, 0)
		return &Suspension{Kind: SusReadChar}, nil

	case SysOpen:
		pathAddr, err := readReg(inst.RegA0)
		if err != nil {
			return nil, err
		}
		path, err := st.ReadString(uint32(pathAddr))
		if err != nil {
			return nil, err
		}
		flags, err := readReg(inst.RegA1)
		if err != nil {
			return nil, err
		}
		mode, err := readReg(inst.RegA2)
		if err != nil {
			return nil, err
		}
		r.setPending(SusOpen, 0, 0)
		return &Suspension{Kind: SusOpen, Bytes: path, Flags: uint32(flags), Mode: uint32(mode)}, nil

	case SysRead:
		fd, err := readReg(inst.RegA0)
		if err != nil {
			return nil, err
		}
		buf, err := readReg(inst.RegA1)
		if err != nil {
			return nil, err
		}
		length, err := readReg(inst.RegA2)
		if err != nil {
			return nil, err
		}
		r.setPending(SusRead, uint32(buf), length)
		return &Suspension{Kind: SusRead, Fd: uint32(fd), Len: uint32(length)}, nil

	case SysWrite:
		fd, err := readReg(inst.RegA0)
		if err != nil {
			return nil, err
		}
		buf, err := readReg(inst.RegA1)
		if err != nil {
			return nil, err
		}
		length, err := readReg(inst.RegA2)
		if err != nil {
			return nil, err
		}
		text, err := st.ReadBytes(uint32(buf), uint32(length))
		if err != nil {
			return nil, err
		}
		r.setPending(SusWrite, 0, 0)
		return &Suspension{Kind: SusWrite, Fd: uint32(fd), Bytes: text}, nil

	case SysClose:
		fd, err := readReg(inst.RegA0)
		if err != nil {
			return nil, err
		}
		r.setPending(SusClose, 0, 0)
		return &Suspension{Kind: SusClose, Fd: uint32(fd)}, nil

	case SysExitStatus:
		code, _ := st.ReadRegisterRaw(inst.RegA0).Get()
		return &Suspension{Kind: SusExitStatus, Value: code}, nil

	default:
		return nil, &InvalidSyscallError{Syscall: syscall, Reason: ReasonUnknown}
	}
}
