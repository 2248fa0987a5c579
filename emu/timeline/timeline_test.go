/*
   Timeline test routines.

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

package timeline

import (
	"testing"

	"github.com/rcornwell/MIPS32/emu/state"
)

func TestSeedAlwaysPresent(t *testing.T) {
	seed := state.New()
	seed.SetPC(state.KTextBot)
	tl := New(seed, 100)

	if tl.Len() != 1 {
		t.Errorf("Fresh timeline length Got: %d Expected: 1", tl.Len())
	}
	if tl.State() != seed {
		t.Error("Fresh timeline state is not the seed")
	}
	if tl.NthState(0) != seed {
		t.Error("NthState(0) is not the seed")
	}
	if tl.PopLast() {
		t.Error("PopLast on a seed-only timeline returned true")
	}
	if tl.Len() != 1 {
		t.Error("PopLast on a seed-only timeline changed its length")
	}
}

func TestPushAndPop(t *testing.T) {
	seed := state.New()
	tl := New(seed, 100)

	first := tl.PushNext()
	first.SetPC(4)
	second := tl.PushNext()
	second.SetPC(8)

	if tl.Len() != 3 {
		t.Errorf("Length Got: %d Expected: 3", tl.Len())
	}
	if tl.State().PC() != 8 {
		t.Errorf("Head PC Got: %d Expected: 8", tl.State().PC())
	}
	if tl.PrevState().PC() != 4 {
		t.Errorf("Prev PC Got: %d Expected: 4", tl.PrevState().PC())
	}
	if tl.NthState(1).PC() != 4 {
		t.Errorf("NthState(1) PC Got: %d Expected: 4", tl.NthState(1).PC())
	}

	if !tl.PopLast() {
		t.Error("PopLast returned false with history present")
	}
	if tl.Len() != 2 || tl.State().PC() != 4 {
		t.Errorf("After pop Got: len=%d pc=%d Expected: len=2 pc=4", tl.Len(), tl.State().PC())
	}
}

func TestCapDropsOldest(t *testing.T) {
	seed := state.New()
	max := 8
	tl := New(seed, max)

	for i := 0; i < 50; i++ {
		tl.PushNext().SetPC(uint32(i + 1))
	}

	if tl.Len() != max {
		t.Errorf("Capped length Got: %d Expected: %d", tl.Len(), max)
	}
	if !tl.LostHistory() {
		t.Error("Lost-history latch not set after overflow")
	}
	// The seed survives; the head is the latest push.
	if tl.NthState(0) != seed {
		t.Error("Seed was dropped by the cap")
	}
	if tl.State().PC() != 50 {
		t.Errorf("Head PC Got: %d Expected: 50", tl.State().PC())
	}
}

func TestMonotoneUntilCap(t *testing.T) {
	tl := New(state.New(), 10)
	last := tl.Len()
	for i := 0; i < 30; i++ {
		tl.PushNext()
		if tl.Len() < last {
			t.Fatalf("Length decreased from %d to %d", last, tl.Len())
		}
		if tl.Len() > 10 {
			t.Fatalf("Length %d exceeded the cap", tl.Len())
		}
		last = tl.Len()
	}
	if last != 10 {
		t.Errorf("Final length Got: %d Expected: 10", last)
	}
}

func TestReset(t *testing.T) {
	seed := state.New()
	tl := New(seed, 4)
	for i := 0; i < 10; i++ {
		tl.PushNext()
	}
	if !tl.LostHistory() {
		t.Fatal("Expected lost history before reset")
	}

	tl.Reset()
	if tl.Len() != 1 || tl.State() != seed {
		t.Error("Reset did not restore the seed-only timeline")
	}
	if tl.LostHistory() {
		t.Error("Reset did not clear the lost-history latch")
	}
}
