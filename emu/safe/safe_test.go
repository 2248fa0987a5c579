/*
   Safe value test routines.

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

package safe

import "testing"

func TestValidAndUninit(t *testing.T) {
	v := Valid(int32(42))
	if !v.IsValid() {
		t.Error("Valid value reported uninitialised")
	}
	if got, ok := v.Get(); !ok || got != 42 {
		t.Errorf("Got: %d,%v Expected: 42,true", got, ok)
	}

	u := Uninit[int32]()
	if u.IsValid() {
		t.Error("Uninit value reported valid")
	}
	if _, ok := u.Get(); ok {
		t.Error("Get on uninit returned ok")
	}
}

func TestMapPropagatesUninit(t *testing.T) {
	u := Uninit[uint8]()
	if SignExtendByte(u).IsValid() {
		t.Error("Sign extension of uninit byte became valid")
	}
	if ZeroExtendHalf(Uninit[uint16]()).IsValid() {
		t.Error("Zero extension of uninit half became valid")
	}
	if TruncateByte(Uninit[int32]()).IsValid() {
		t.Error("Truncation of uninit word became valid")
	}
}

func TestExtension(t *testing.T) {
	if v, _ := SignExtendByte(Valid(uint8(0xFF))).Get(); v != -1 {
		t.Errorf("Sign extend 0xFF Got: %d Expected: -1", v)
	}
	if v, _ := ZeroExtendByte(Valid(uint8(0xFF))).Get(); v != 255 {
		t.Errorf("Zero extend 0xFF Got: %d Expected: 255", v)
	}
	if v, _ := SignExtendHalf(Valid(uint16(0x8000))).Get(); v != -32768 {
		t.Errorf("Sign extend 0x8000 Got: %d Expected: -32768", v)
	}
	if v, _ := ZeroExtendHalf(Valid(uint16(0x8000))).Get(); v != 32768 {
		t.Errorf("Zero extend 0x8000 Got: %d Expected: 32768", v)
	}
	if v, _ := TruncateHalf(Valid(int32(0x12345))).Get(); v != 0x2345 {
		t.Errorf("Truncate 0x12345 Got: %#x Expected: 0x2345", v)
	}
}

func TestCheckedArithmetic(t *testing.T) {
	if _, ok := CheckedAdd(0x7FFFFFFF, 1); ok {
		t.Error("CheckedAdd max+1 did not overflow")
	}
	if _, ok := CheckedAdd(-0x80000000, -1); ok {
		t.Error("CheckedAdd min-1 did not overflow")
	}
	if v, ok := CheckedAdd(5, 7); !ok || v != 12 {
		t.Errorf("CheckedAdd 5+7 Got: %d,%v Expected: 12,true", v, ok)
	}
	if _, ok := CheckedSub(-0x80000000, 1); ok {
		t.Error("CheckedSub min-1 did not overflow")
	}
	if _, ok := CheckedSub(0x7FFFFFFF, -1); ok {
		t.Error("CheckedSub max+1 did not overflow")
	}
	if v, ok := CheckedSub(5, 7); !ok || v != -2 {
		t.Errorf("CheckedSub 5-7 Got: %d,%v Expected: -2,true", v, ok)
	}
}
