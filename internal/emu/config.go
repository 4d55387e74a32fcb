package emu

import (
	"io"
	"log"

	"github.com/djwormlight/chip8-interpreter/internal/display"
)

// DefaultCyclesPerFrame gives roughly 600 instructions per second at 60 frames.
const DefaultCyclesPerFrame = 10

// Config contains settings that affect emulation behavior.
type Config struct {
	CyclesPerFrame int             // cycles run by StepFrame
	Trace          bool            // log every executed instruction
	TraceWriter    io.Writer       // trace sink, defaults to the log output
	Palette        display.Palette // colors of the RGBA framebuffer
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.CyclesPerFrame <= 0 {
		c.CyclesPerFrame = DefaultCyclesPerFrame
	}
	if c.TraceWriter == nil {
		c.TraceWriter = log.Writer()
	}
	if c.Palette == (display.Palette{}) {
		c.Palette = display.DefaultPalette
	}
}
