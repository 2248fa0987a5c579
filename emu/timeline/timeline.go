/*
   Timeline: bounded history of machine states for reversible stepping.

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
	"github.com/rcornwell/MIPS32/emu/state"
)

// DefaultMaxLen bounds how many past states are retained. A million states
// balances memory against debugging depth.
const DefaultMaxLen = 1_000_000

// Timeline holds the seed state plus a ring of successor states. The seed
// is never dropped; once the ring fills, the oldest successor is lost and
// the lost-history latch is set.
type Timeline struct {
	seed        *state.State
	ring        []*state.State
	start       int
	count       int
	max         int
	lostHistory bool
}

// New creates a timeline holding only the seed state.
func New(seed *state.State, maxLen int) *Timeline {
	if maxLen < 2 {
		maxLen = DefaultMaxLen
	}
	return &Timeline{seed: seed, max: maxLen}
}

// Len is the number of states including the seed. Always at least 1.
func (t *Timeline) Len() int {
	return t.count + 1
}

// LostHistory reports whether any state has ever been dropped.
func (t *Timeline) LostHistory() bool {
	return t.lostHistory
}

// State returns the current (most recent) state.
func (t *Timeline) State() *state.State {
	if t.count == 0 {
		return t.seed
	}
	return t.ring[(t.start+t.count-1)%len(t.ring)]
}

// NthState returns the n-th state; 0 is the seed.
func (t *Timeline) NthState(n int) *state.State {
	if n < 0 || n >= t.Len() {
		return nil
	}
	if n == 0 {
		return t.seed
	}
	return t.ring[(t.start+n-1)%len(t.ring)]
}

// PrevState returns the state before the current one, or nil at the seed.
func (t *Timeline) PrevState() *state.State {
	if t.count == 0 {
		return nil
	}
	return t.NthState(t.Len() - 2)
}

// PushNext clones the current state onto the timeline and returns the
// clone. On overflow the oldest non-seed state is dropped and the
// lost-history latch set.
func (t *Timeline) PushNext() *state.State {
	next := t.State().Clone()

	if t.Len() >= t.max {
		// Drop the oldest successor and reuse its slot.
		t.ring[t.start] = nil
		t.start = (t.start + 1) % len(t.ring)
		t.count--
		t.lostHistory = true
	}

	if t.ring == nil {
		t.ring = make([]*state.State, 64)
	} else if t.count == len(t.ring) {
		t.grow()
	}

	t.ring[(t.start+t.count)%len(t.ring)] = next
	t.count++
	return next
}

// grow doubles the ring, capped at the configured maximum.
func (t *Timeline) grow() {
	size := len(t.ring) * 2
	if size > t.max {
		size = t.max
	}
	bigger := make([]*state.State, size)
	for i := 0; i < t.count; i++ {
		bigger[i] = t.ring[(t.start+i)%len(t.ring)]
	}
	t.ring = bigger
	t.start = 0
}

// PopLast drops the current state. Returns false if only the seed remains;
// the seed itself is never popped.
func (t *Timeline) PopLast() bool {
	if t.count == 0 {
		return false
	}
	t.ring[(t.start+t.count-1)%len(t.ring)] = nil
	t.count--
	return true
}

// Reset discards all history and clears the lost-history latch, leaving
// only the seed.
func (t *Timeline) Reset() {
	t.ring = nil
	t.start = 0
	t.count = 0
	t.lostHistory = false
}
