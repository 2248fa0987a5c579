/*
   MIPS32 assembler and time-travelling emulator.

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

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	getopt "github.com/pborman/getopt/v2"
	"golang.org/x/term"

	command "github.com/rcornwell/MIPS32/command/command"
	cmdparser "github.com/rcornwell/MIPS32/command/parser"
	reader "github.com/rcornwell/MIPS32/command/reader"
	config "github.com/rcornwell/MIPS32/config/simconfig"
	assemble "github.com/rcornwell/MIPS32/emu/assemble"
	cpu "github.com/rcornwell/MIPS32/emu/cpu"
	asmparser "github.com/rcornwell/MIPS32/emu/parser"
	runner "github.com/rcornwell/MIPS32/emu/runner"
	debug "github.com/rcornwell/MIPS32/util/debug"
	logger "github.com/rcornwell/MIPS32/util/logger"

	inst "github.com/rcornwell/MIPS32/emu/inst"
)

var Logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optMove := getopt.ListLong("move-label", 'm', "Re-point a label: old=new")
	optInteractive := getopt.BoolLong("interactive", 'i', "Interactive debugger")
	optDebug := getopt.BoolLong("debug", 'd', "Echo debug records to the console")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.SetParameters("file.s ... [args ...]")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel}, *optDebug))
	slog.SetDefault(Logger)

	cfg := config.Default()
	if *optConfig != "" {
		loaded, err := config.Load(*optConfig)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		cfg = loaded
	}

	if cfg.Trace {
		debug.Enable("CPU")
		if *optLogFile != "" {
			if err := debug.SetFile(*optLogFile + ".trace"); err != nil {
				Logger.Error(err.Error())
			}
		}
	}

	files, args := splitArgs(getopt.Args())
	if len(files) == 0 {
		Logger.Error("No assembly files given")
		getopt.Usage()
		os.Exit(1)
	}

	options := &assemble.Options{}
	for _, value := range *optMove {
		move, err := assemble.ParseMoveLabel(value)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		options.MoveLabels = append(options.MoveLabels, move)
	}

	var sources [][2]string
	for _, name := range files {
		src, err := os.ReadFile(name)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		sources = append(sources, [2]string{name, string(src)})
	}

	program, err := asmparser.ParseFiles(sources)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	iset := inst.NewSet()
	binary, err := assemble.Compile(iset, program, nil, options, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	onTerminal := term.IsTerminal(int(os.Stdin.Fd()))
	runtime := cpu.New(binary, args, cfg.TimelineMax)
	handler := runner.NewConsoleHandler(os.Stdout, os.Stdin, onTerminal)
	run := runner.New(iset, binary, runtime, handler, cfg)

	// SIGINT pauses a running program without corrupting state; the
	// runner observes the flag between steps.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	stopping := false
	go func() {
		for range interrupt {
			run.Interrupt()
			if stopping {
				os.Exit(130)
			}
		}
	}()

	if *optInteractive {
		if !onTerminal {
			Logger.Error("Interactive mode needs a terminal")
			os.Exit(1)
		}
		ctx := &command.Context{ISet: iset, Binary: binary, Runner: run, Config: cfg}
		run.CommandHook = func(line string) {
			if _, err := cmdparser.ProcessCommand(line, ctx); err != nil {
				fmt.Println("Error: " + err.Error())
			}
		}
		reader.ConsoleReader(ctx)
		return
	}

	stopping = true
	for {
		err := run.Run()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error: "+err.Error())
			if explain := run.ExplainUninit(err); explain != "" {
				fmt.Fprintln(os.Stderr, "  "+explain)
			}
			os.Exit(1)
		}
		if exited, code := run.Exited(); exited {
			os.Exit(int(code))
		}
	}
}

// splitArgs takes assembly files from the front of the argument list;
// everything after the first non-source argument is the program's argv.
func splitArgs(all []string) ([]string, []string) {
	for i, arg := range all {
		if strings.HasSuffix(arg, ".s") || strings.HasSuffix(arg, ".asm") {
			continue
		}
		return all[:i], all[i:]
	}
	return all, nil
}
