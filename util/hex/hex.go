/*
 * MIPS32 - Convert memory to hex dump strings.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package hex

import (
	"strings"

	"github.com/rcornwell/MIPS32/emu/safe"
)

var hexMap = "0123456789abcdef"

// FormatWord appends words as eight hex digits each.
func FormatWord(str *strings.Builder, words []uint32) {
	for _, full := range words {
		shift := 28
		for range 8 {
			str.WriteByte(hexMap[(full>>shift)&0xf])
			shift -= 4
		}
		str.WriteByte(' ')
	}
}

// FormatBytes appends bytes as hex pairs; uninitialised bytes render as
// dots.
func FormatBytes(str *strings.Builder, space bool, data []safe.Safe[uint8]) {
	for _, b := range data {
		if by, ok := b.Get(); ok {
			str.WriteByte(hexMap[(by>>4)&0xf])
			str.WriteByte(hexMap[by&0xf])
		} else {
			str.WriteString("..")
		}
		if space {
			str.WriteByte(' ')
		}
	}
}

// FormatASCII appends the printable view of bytes, with dots for
// unprintable or uninitialised bytes.
func FormatASCII(str *strings.Builder, data []safe.Safe[uint8]) {
	for _, b := range data {
		by, ok := b.Get()
		if ok && by >= 0x20 && by < 0x7F {
			str.WriteByte(by)
		} else {
			str.WriteByte('.')
		}
	}
}

// Dump renders rows of 16 bytes: address, hex pairs, ASCII gutter.
func Dump(addr uint32, data []safe.Safe[uint8]) string {
	str := &strings.Builder{}
	for row := 0; row < len(data); row += 16 {
		end := row + 16
		if end > len(data) {
			end = len(data)
		}

		FormatWord(str, []uint32{addr + uint32(row)})
		str.WriteByte(' ')
		FormatBytes(str, true, data[row:end])
		for pad := end - row; pad < 16; pad++ {
			str.WriteString("   ")
		}
		str.WriteByte('|')
		FormatASCII(str, data[row:end])
		str.WriteString("|\n")
	}
	return str.String()
}
