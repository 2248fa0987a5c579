/*
 * MIPS32 - Log trace data to a file
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

package debug

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// High-volume per-step tracing, kept apart from the application log.
// Modules are enabled by name; output goes to an optional trace file,
// falling back to stderr.

var (
	mu      sync.Mutex
	out     io.Writer
	modules = map[string]bool{}
)

// SetFile directs trace output to a file.
func SetFile(fileName string) error {
	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("unable to create trace file: %s", fileName)
	}
	mu.Lock()
	defer mu.Unlock()
	out = file
	return nil
}

// Enable turns on tracing for a module ("CPU", "ASM", ...).
func Enable(module string) {
	mu.Lock()
	defer mu.Unlock()
	modules[strings.ToUpper(module)] = true
}

// Enabled reports whether a module traces.
func Enabled(module string) bool {
	mu.Lock()
	defer mu.Unlock()
	return modules[strings.ToUpper(module)]
}

// Generic trace message.
func Debugf(module string, format string, a ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if !modules[strings.ToUpper(module)] {
		return
	}
	w := out
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, module+": "+format+"\n", a...)
}
