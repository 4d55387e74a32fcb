// Package main implements a CHIP-8 program disassembler.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/djwormlight/chip8-interpreter/internal/chip8"
	"github.com/djwormlight/chip8-interpreter/internal/disasm"
)

type optionFlags struct {
	input  string
	output string
	base   string
	source bool
}

func main() {
	options := readArguments()

	if err := disasmFile(options); err != nil {
		fmt.Println(fmt.Errorf("disassembling failed: %w", err))
		os.Exit(1)
	}
}

func readArguments() optionFlags {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	options := optionFlags{}

	flags.StringVar(&options.output, "o", "", "name of the output file, printed on console if no name given")
	flags.StringVar(&options.base, "base", fmt.Sprintf("%#x", chip8.ProgramStart), "load address of the program")
	flags.BoolVar(&options.source, "source", false, "emit labelled source that chip8asm accepts instead of a listing")

	err := flags.Parse(os.Args[1:])
	args := flags.Args()

	if err != nil || len(args) != 1 {
		fmt.Printf("usage: chip8dis [options] <file to disassemble>\n\n")
		flags.PrintDefaults()
		os.Exit(1)
	}
	options.input = args[0]

	return options
}

func disasmFile(options optionFlags) error {
	base, err := strconv.ParseUint(options.base, 0, 12)
	if err != nil {
		return fmt.Errorf("parsing base address: %w", err)
	}

	program, err := os.ReadFile(options.input)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	if int(base)+len(program) > chip8.MemorySize {
		return fmt.Errorf("%d bytes do not fit at $%03X", len(program), base)
	}

	out := os.Stdout
	if options.output != "" {
		out, err = os.Create(options.output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer out.Close()
	}

	w := bufio.NewWriter(out)
	if options.source {
		err = disasm.Source(w, program, uint16(base))
	} else {
		err = disasm.Listing(w, program, uint16(base))
	}
	if err != nil {
		return err
	}
	return w.Flush()
}
