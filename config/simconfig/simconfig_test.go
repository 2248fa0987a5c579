/*
   Configuration loader test routines.

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

package simconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "sim.cfg")
	if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return name
}

func TestDefaults(t *testing.T) {
	config := Default()
	if config.TimelineMax != 1_000_000 {
		t.Errorf("TimelineMax Got: %d Expected: 1000000", config.TimelineMax)
	}
	if config.Spim || config.Trace {
		t.Error("Flags default on")
	}
	if config.TabSize != 8 {
		t.Errorf("TabSize Got: %d Expected: 8", config.TabSize)
	}
}

func TestLoad(t *testing.T) {
	name := writeConfig(t, `
# simulator settings
timeline = 5000
spim = on
tabsize = 4
trace = yes
`)
	config, err := Load(name)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.TimelineMax != 5000 {
		t.Errorf("TimelineMax Got: %d Expected: 5000", config.TimelineMax)
	}
	if !config.Spim || !config.Trace {
		t.Error("Boolean options not set")
	}
	if config.TabSize != 4 {
		t.Errorf("TabSize Got: %d Expected: 4", config.TabSize)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(writeConfig(t, "bogus = 1")); err == nil {
		t.Error("Unknown key did not fail")
	}
	if _, err := Load(writeConfig(t, "timeline")); err == nil {
		t.Error("Missing value did not fail")
	}
	if _, err := Load(writeConfig(t, "timeline = -3")); err == nil {
		t.Error("Bad timeline value did not fail")
	}
	if _, err := Load(writeConfig(t, "spim = maybe")); err == nil {
		t.Error("Bad boolean did not fail")
	}
}
