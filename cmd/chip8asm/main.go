package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/djwormlight/chip8-interpreter/internal/asm"
	"github.com/djwormlight/chip8-interpreter/internal/chip8"
	"github.com/djwormlight/chip8-interpreter/internal/display"
	"github.com/djwormlight/chip8-interpreter/internal/emu"
)

// defines collects repeated -D NAME=VALUE flags.
type defines []string

func (d *defines) String() string     { return strings.Join(*d, ",") }
func (d *defines) Set(s string) error { *d = append(*d, s); return nil }

func main() {
	var output string
	var verbose bool
	var base string
	var run int
	var defs defines

	flag.StringVar(&output, "o", "", "program file to write, defaults to the source name with .ch8")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.StringVar(&base, "base", "0x200", "load address")
	flag.IntVar(&run, "run", 0, "after assembling, execute this many frames and print the display")
	flag.Var(&defs, "D", "predefine an equate, NAME=VALUE (repeatable)")

	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("%v: expected one source file, got %v", os.Args[0], flag.Args())
	}
	source := flag.Arg(0)

	a := &asm.Assembler{Verbose: verbose}
	b, err := strconv.ParseUint(base, 0, 12)
	if err != nil {
		log.Fatalf("-base: %v", err)
	}
	a.Base = uint16(b)
	for _, d := range defs {
		name, value, ok := strings.Cut(d, "=")
		if !ok {
			value = "1"
		}
		a.Predefine(name, value)
	}

	inf, err := os.Open(source)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}
	defer inf.Close()

	prog, err := a.Parse(inf)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}

	if output == "" {
		output = strings.TrimSuffix(source, ".asm") + ".ch8"
	}
	if err := os.WriteFile(output, prog, 0644); err != nil {
		log.Fatalf("%v: %v", output, err)
	}
	if verbose {
		log.Printf("wrote %s: %d bytes, %d labels", output, len(prog), len(a.Label))
	}

	if run > 0 {
		if a.Base != 0 && a.Base != chip8.ProgramStart {
			log.Fatalf("-run needs the program at %#x", chip8.ProgramStart)
		}
		m := emu.New(emu.Config{})
		if err := m.LoadProgram(prog); err != nil {
			log.Fatal(err)
		}
		for i := 0; i < run; i++ {
			if err := m.StepFrameNoRender(); err != nil {
				log.Printf("halted after %d cycles: %v", m.Cycles(), err)
				break
			}
		}
		fmt.Print(display.Text(m.Interpreter().Framebuffer()))
	}
}
