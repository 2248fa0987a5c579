/*
   Simulator configuration file loading.

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
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

/* Configuration file format:
 *
 * '#' indicates comment, rest of line is ignored.
 * <line> := <key> '=' <value>
 * <key>  := 'timeline' | 'spim' | 'tabsize' | 'trace'
 *
 * timeline is the maximum retained history length, spim enables SPIM
 * compatibility for .space and .align padding, tabsize is used when
 * rendering source in diagnostics, trace enables per-step trace output.
 */

// Config holds the simulator settings.
type Config struct {
	TimelineMax int  // Maximum states retained for back-stepping.
	Spim        bool // SPIM compatible padding.
	TabSize     int  // Tab width for source rendering.
	Trace       bool // Per-step trace output.
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		TimelineMax: 1_000_000,
		TabSize:     8,
	}
}

// Load reads a configuration file. Missing keys keep their defaults.
func Load(fileName string) (*Config, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	scanner := bufio.NewScanner(file)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if cut := strings.IndexByte(line, '#'); cut >= 0 {
			line = line[:cut]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("%s:%d: expected key = value", fileName, lineNumber)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "timeline":
			max, err := strconv.Atoi(value)
			if err != nil || max < 2 {
				return nil, fmt.Errorf("%s:%d: bad timeline length %q", fileName, lineNumber, value)
			}
			config.TimelineMax = max
		case "spim":
			on, err := parseBool(value)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: bad spim value %q", fileName, lineNumber, value)
			}
			config.Spim = on
		case "tabsize":
			size, err := strconv.Atoi(value)
			if err != nil || size < 1 {
				return nil, fmt.Errorf("%s:%d: bad tabsize %q", fileName, lineNumber, value)
			}
			config.TabSize = size
		case "trace":
			on, err := parseBool(value)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: bad trace value %q", fileName, lineNumber, value)
			}
			config.Trace = on
		default:
			return nil, fmt.Errorf("%s:%d: unknown option %q", fileName, lineNumber, key)
		}
	}

	return config, scanner.Err()
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("bad boolean %q", value)
}
