package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/djwormlight/chip8-interpreter/internal/chip8"
	"github.com/djwormlight/chip8-interpreter/internal/disasm"
	"github.com/djwormlight/chip8-interpreter/internal/display"
)

// traceEntry is the machine state before one executed instruction.
type traceEntry struct {
	pc uint16
	op chip8.Opcode
	i  uint16
	v  [16]byte
}

func (te traceEntry) String() string {
	return fmt.Sprintf("PC=%03X OP=%04X I=%03X V=% X  %s",
		te.pc, uint16(te.op), te.i, te.v[:], disasm.At(te.pc, te.op))
}


func main() {
	romPath := flag.String("rom", "", "path to program (.ch8)")
	steps := flag.Int("steps", 1_000_000, "max instructions to run")
	trace := flag.Bool("trace", false, "print every instruction")
	until := flag.String("until", "", "stop when the framebuffer CRC32 equals this hex value; empty to disable")
	auto := flag.Bool("auto", false, "exit 0 when the program parks in a jump to itself and 1 when it halts")
	timeout := flag.Duration("timeout", 0, "optional wall-clock timeout (e.g. 30s, 2m); 0 disables")
	traceOnFail := flag.Bool("traceOnFail", false, "when the program halts, print a recent trace window")
	traceWindow := flag.Int("traceWindow", 64, "number of recent instructions to include in 'traceOnFail' dump")
	screen := flag.Bool("screen", false, "print the display when done")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("-rom is required")
	}
	rom, err := os.ReadFile(*romPath)
	if err != nil {
		log.Fatalf("read rom: %v", err)
	}

	c := chip8.New()
	if err := c.LoadProgram(rom); err != nil {
		log.Fatalf("load rom: %v", err)
	}

	want := strings.TrimPrefix(strings.ToLower(*until), "0x")

	start := time.Now()
	var deadline time.Time
	if *timeout > 0 {
		deadline = start.Add(*timeout)
	}

	// ring buffer for recent traces
	window := max(*traceWindow, 1)
	ring := make([]traceEntry, window)
	ringIdx := 0
	ringFill := 0

	done := func(n int, code int) {
		if *screen {
			fmt.Print(display.Text(c.Framebuffer()))
		}
		fmt.Printf("\nDone: steps=%d pc=%03X fb_crc32=%08x elapsed=%s\n",
			n, c.ProgramCounter, display.Checksum(c.Framebuffer()), time.Since(start).Truncate(time.Millisecond))
		os.Exit(code)
	}

	for i := 0; i < *steps; i++ {
		op, _ := c.Opcode()
		te := traceEntry{pc: c.ProgramCounter, op: op, i: c.IndexRegister, v: c.Registers}

		if *auto && uint16(op)&0xF000 == 0x1000 && op.NNN() == te.pc {
			fmt.Printf("\nProgram parked at $%03X.\n", te.pc)
			done(i, 0)
		}

		if *trace {
			fmt.Println(te)
		}
		if *traceOnFail {
			ring[ringIdx] = te
			ringIdx = (ringIdx + 1) % window
			if ringFill < window {
				ringFill++
			}
		}

		if err := c.ExecuteCycle(); err != nil {
			fmt.Printf("\nHalted: %v\n", err)
			fmt.Printf("Faulting word: %03X  %04X  %s\n", te.pc, uint16(op), disasm.At(te.pc, op))
			if *traceOnFail && ringFill > 0 {
				fmt.Printf("\n--- recent trace (last %d instructions) ---\n", ringFill)
				// print in chronological order
				startIdx := (ringIdx - ringFill + window) % window
				for j := 0; j < ringFill; j++ {
					fmt.Println(ring[(startIdx+j)%window])
				}
				fmt.Printf("--- end trace ---\n")
			}
			done(i, 1)
		}

		if want != "" && fmt.Sprintf("%08x", display.Checksum(c.Framebuffer())) == want {
			fmt.Printf("\nDetected framebuffer %s.\n", want)
			done(i+1, 0)
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			fmt.Printf("\nTimeout after %s.\n", time.Since(start).Truncate(time.Millisecond))
			done(i+1, 2)
		}
	}
	code := 0
	if *auto || want != "" {
		code = 2
	}
	done(*steps, code)
}
