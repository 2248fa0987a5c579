/*
   Safe values: a value paired with an initialisation flag.

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

// Safe holds either a valid value of type T or nothing. Every register and
// every memory byte of the simulated machine is a Safe value, so that reads
// of never-written locations can be diagnosed instead of producing garbage.
type Safe[T any] struct {
	value T
	valid bool
}

// Valid wraps an initialised value.
func Valid[T any](value T) Safe[T] {
	return Safe[T]{value: value, valid: true}
}

// Uninit returns the uninitialised value of type T.
func Uninit[T any]() Safe[T] {
	return Safe[T]{}
}

// IsValid reports whether the value was ever written.
func (s Safe[T]) IsValid() bool {
	return s.valid
}

// Get returns the value and whether it is initialised.
func (s Safe[T]) Get() (T, bool) {
	return s.value, s.valid
}

// Must returns the value; only for callers that already checked IsValid.
func (s Safe[T]) Must() T {
	return s.value
}

// Map applies f to a valid value and propagates uninitialised unchanged.
func Map[T, U any](s Safe[T], f func(T) U) Safe[U] {
	if !s.valid {
		return Safe[U]{}
	}
	return Valid(f(s.value))
}

// Sign and zero extension between the widths the CPU deals in. All of them
// propagate uninitialised unchanged.

func SignExtendByte(s Safe[uint8]) Safe[int32] {
	return Map(s, func(b uint8) int32 { return int32(int8(b)) })
}

func ZeroExtendByte(s Safe[uint8]) Safe[int32] {
	return Map(s, func(b uint8) int32 { return int32(b) })
}

func SignExtendHalf(s Safe[uint16]) Safe[int32] {
	return Map(s, func(h uint16) int32 { return int32(int16(h)) })
}

func ZeroExtendHalf(s Safe[uint16]) Safe[int32] {
	return Map(s, func(h uint16) int32 { return int32(h) })
}

func SignExtendWord(s Safe[uint32]) Safe[int32] {
	return Map(s, func(w uint32) int32 { return int32(w) })
}

func TruncateByte(s Safe[int32]) Safe[uint8] {
	return Map(s, func(v int32) uint8 { return uint8(v) })
}

func TruncateHalf(s Safe[int32]) Safe[uint16] {
	return Map(s, func(v int32) uint16 { return uint16(v) })
}

func TruncateWord(s Safe[int32]) Safe[uint32] {
	return Map(s, func(v int32) uint32 { return uint32(v) })
}

// CheckedAdd adds two signed words and reports overflow.
func CheckedAdd(a, b int32) (int32, bool) {
	sum := a + b
	if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0) {
		return 0, false
	}
	return sum, true
}

// CheckedSub subtracts two signed words and reports overflow.
func CheckedSub(a, b int32) (int32, bool) {
	diff := a - b
	if (a >= 0 && b < 0 && diff < 0) || (a < 0 && b > 0 && diff >= 0) {
		return 0, false
	}
	return diff, true
}
