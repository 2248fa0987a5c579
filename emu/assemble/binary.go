/*
   Binary: the assembler's output image.

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

package assemble

import (
	"sort"
	"strings"

	"github.com/rcornwell/MIPS32/emu/breakpoints"
	"github.com/rcornwell/MIPS32/emu/safe"
	"github.com/rcornwell/MIPS32/emu/state"
)

// LineInfo attributes a text address back to its source line.
type LineInfo struct {
	FileTag string
	Line    int
}

// Segment is the assembler's current output segment.
type Segment int

const (
	SegText Segment = iota
	SegData
	SegKText
	SegKData
)

func (s Segment) String() string {
	return []string{".text", ".data", ".ktext", ".kdata"}[s]
}

// Binary is the linkable image the assembler produces: the four segment
// byte streams, the symbol maps, source attribution, and the debugger's
// break and watch points, which live with the binary and survive resets.
type Binary struct {
	Text  []safe.Safe[uint8]
	Data  []safe.Safe[uint8]
	KText []safe.Safe[uint8]
	KData []safe.Safe[uint8]

	Globals     []string
	Constants   map[string]int64
	LineNumbers map[uint32]LineInfo

	Breakpoints map[uint32]*breakpoints.Breakpoint
	Watchpoints map[breakpoints.WatchpointTarget]*breakpoints.Watchpoint

	// Labels are case-insensitive; the original spelling is kept for
	// rendering.
	labels    map[string]uint32
	labelCase map[string]string

	nextPointID int

	// Pass-two cursor, used while encoding to resolve relative labels.
	segment Segment
}

func newBinary() *Binary {
	return &Binary{
		Constants:   map[string]int64{},
		LineNumbers: map[uint32]LineInfo{},
		Breakpoints: map[uint32]*breakpoints.Breakpoint{},
		Watchpoints: map[breakpoints.WatchpointTarget]*breakpoints.Watchpoint{},
		labels:      map[string]uint32{},
		labelCase:   map[string]string{},
	}
}

// GetLabel looks up a label case-insensitively.
func (b *Binary) GetLabel(name string) (uint32, bool) {
	addr, ok := b.labels[strings.ToLower(name)]
	return addr, ok
}

// SetLabel binds or re-points a label.
func (b *Binary) SetLabel(name string, addr uint32) {
	key := strings.ToLower(name)
	b.labels[key] = addr
	b.labelCase[key] = name
}

// HasLabel reports whether a label is bound.
func (b *Binary) HasLabel(name string) bool {
	_, ok := b.labels[strings.ToLower(name)]
	return ok
}

// Labels returns all labels with their original spelling, sorted by
// address.
func (b *Binary) Labels() []struct {
	Name string
	Addr uint32
} {
	out := make([]struct {
		Name string
		Addr uint32
	}, 0, len(b.labels))
	for key, addr := range b.labels {
		out = append(out, struct {
			Name string
			Addr uint32
		}{Name: b.labelCase[key], Addr: addr})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// LabelForAddr returns a label bound exactly at an address.
func (b *Binary) LabelForAddr(addr uint32) (string, bool) {
	for key, bound := range b.labels {
		if bound == addr {
			return b.labelCase[key], true
		}
	}
	return "", false
}

// ConstantValue implements inst.Resolver.
func (b *Binary) ConstantValue(name string) (int64, bool) {
	value, ok := b.Constants[strings.ToLower(name)]
	return value, ok
}

// LabelAddress implements inst.Resolver; unknown labels carry similarly
// named suggestions.
func (b *Binary) LabelAddress(name string) (uint32, error) {
	if addr, ok := b.GetLabel(name); ok {
		return addr, nil
	}
	return 0, &UnresolvedLabelError{Label: name, Similar: b.similarLabels(name)}
}

// CurrentAddress implements inst.Resolver: the address the next emitted
// word will occupy in the current segment.
func (b *Binary) CurrentAddress() uint32 {
	if b.segment == SegKText {
		return state.KTextBot + uint32(len(b.KText))
	}
	return state.TextBot + uint32(len(b.Text))
}

func (b *Binary) similarLabels(name string) []string {
	name = strings.ToLower(name)
	var similar []string
	for key := range b.labels {
		if labelDistanceClose(name, key) {
			similar = append(similar, b.labelCase[key])
		}
	}
	sort.Strings(similar)
	return similar
}

// labelDistanceClose is a loose closeness test for suggestions: one
// substitution, insertion, or deletion away.
func labelDistanceClose(a, b string) bool {
	if a == b {
		return false
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	if len(b)-len(a) > 1 {
		return false
	}

	if len(a) == len(b) {
		diff := 0
		for i := range a {
			if a[i] != b[i] {
				diff++
			}
		}
		return diff == 1
	}

	// b is one longer: one deletion must align them.
	i, j, used := 0, 0, false
	for i < len(a) {
		if a[i] == b[j] {
			i++
			j++
			continue
		}
		if used {
			return false
		}
		used = true
		j++
	}
	return true
}

// NextPointID allocates a breakpoint or watchpoint id, unique per binary.
func (b *Binary) NextPointID() int {
	b.nextPointID++
	return b.nextPointID
}

// InsertBreakpoint creates an enabled breakpoint at a text address.
// Returns nil if one already exists there.
func (b *Binary) InsertBreakpoint(addr uint32) *breakpoints.Breakpoint {
	if _, ok := b.Breakpoints[addr]; ok {
		return nil
	}
	bp := &breakpoints.Breakpoint{ID: b.NextPointID(), Enabled: true}
	b.Breakpoints[addr] = bp
	return bp
}

// InsertWatchpoint creates an enabled watchpoint on a target. Returns nil
// if one already exists.
func (b *Binary) InsertWatchpoint(target breakpoints.WatchpointTarget, action breakpoints.TargetAction) *breakpoints.Watchpoint {
	if _, ok := b.Watchpoints[target]; ok {
		return nil
	}
	wp := &breakpoints.Watchpoint{ID: b.NextPointID(), Enabled: true, Action: action}
	b.Watchpoints[target] = wp
	return wp
}
