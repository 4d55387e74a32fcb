// Package emu hosts the interpreter: it loads programs, drives cycles in
// frame sized batches, keeps an RGBA copy of the display and persists
// machine state.
package emu

import (
	"fmt"
	"io"
	"os"

	"github.com/djwormlight/chip8-interpreter/internal/chip8"
	"github.com/djwormlight/chip8-interpreter/internal/display"
)

type Machine struct {
	cfg Config
	fb  []byte // RGBA 64x32*4

	c       *chip8.Interpreter
	rom     []byte
	romPath string
	cycles  uint64
}

func New(cfg Config) *Machine {
	cfg.Defaults()
	m := &Machine{
		cfg: cfg,
		fb:  make([]byte, display.Width*display.Height*4),
		c:   chip8.New(),
	}
	m.Render()
	return m
}

// LoadProgram resets the interpreter and loads rom at the program start.
// The ROM is kept so Reset can restart it.
func (m *Machine) LoadProgram(rom []byte) error {
	c := chip8.New()
	if err := c.LoadProgram(rom); err != nil {
		return err
	}
	m.c = c
	m.rom = append([]byte(nil), rom...)
	m.romPath = ""
	m.cycles = 0
	m.Render()
	return nil
}

// LoadROMFromFile reads a raw program file and loads it.
func (m *Machine) LoadROMFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := m.LoadProgram(data); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	m.romPath = path
	return nil
}

// ROMPath returns the file the current program was loaded from, if any.
func (m *Machine) ROMPath() string { return m.romPath }

// Reset restarts the loaded program from a fresh interpreter.
func (m *Machine) Reset() {
	m.c.Reset()
	_ = m.c.LoadProgram(m.rom) // accepted once already
	m.cycles = 0
	m.Render()
}

// Interpreter exposes the core for inspection by tools and tests.
func (m *Machine) Interpreter() *chip8.Interpreter { return m.c }

// Cycles returns the number of cycles executed since the last load or reset.
func (m *Machine) Cycles() uint64 { return m.cycles }

// Step executes a single cycle, tracing it when enabled. The RGBA
// framebuffer is not refreshed.
func (m *Machine) Step() error {
	if m.cfg.Trace {
		writeTrace(m.cfg.TraceWriter, m.c)
	}
	if err := m.c.ExecuteCycle(); err != nil {
		return err
	}
	m.cycles++
	return nil
}

// StepFrame runs one frame worth of cycles and refreshes the RGBA
// framebuffer. It stops at the first fault.
func (m *Machine) StepFrame() error {
	defer m.Render()
	return m.StepFrameNoRender()
}

// StepFrameNoRender runs one frame worth of cycles without rendering.
// Headless runs use it and read the packed framebuffer directly.
func (m *Machine) StepFrameNoRender() error {
	for i := 0; i < m.cfg.CyclesPerFrame; i++ {
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Framebuffer returns the RGBA pixels as of the last rendered frame.
func (m *Machine) Framebuffer() []byte { return m.fb }

// Checksum returns the CRC32 of the packed framebuffer.
func (m *Machine) Checksum() uint32 { return display.Checksum(m.c.Framebuffer()) }

// Render refreshes the RGBA framebuffer from interpreter memory.
func (m *Machine) Render() {
	_ = display.Rasterize(m.fb, m.c.Framebuffer(), m.cfg.Palette, 1)
}

// writeTrace logs the state of c before its next cycle.
func writeTrace(w io.Writer, c *chip8.Interpreter) {
	op, _ := c.Opcode()
	v := c.Registers
	fmt.Fprintf(w,
		"PC=%03X OP=%04X I=%03X V=%02X %02X %02X %02X %02X %02X %02X %02X %02X %02X %02X %02X %02X %02X %02X %02X\n",
		c.ProgramCounter, uint16(op), c.IndexRegister,
		v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7],
		v[8], v[9], v[10], v[11], v[12], v[13], v[14], v[15])
}

// --- Save/Load state ---

func (m *Machine) SaveState() []byte { return m.c.SaveState() }

func (m *Machine) LoadState(data []byte) error {
	if err := m.c.LoadState(data); err != nil {
		return err
	}
	m.Render()
	return nil
}

func (m *Machine) SaveStateToFile(path string) error {
	return os.WriteFile(path, m.SaveState(), 0644)
}

func (m *Machine) LoadStateFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return m.LoadState(data)
}
