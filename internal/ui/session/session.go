// Package session holds the interactive state of a windowed run: pause and
// step control, save slots, ROM switching, screenshots and the menu. It
// has no dependency on the window toolkit so it can be driven by tests.
package session

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/djwormlight/chip8-interpreter/internal/display"
	"github.com/djwormlight/chip8-interpreter/internal/emu"
)

// Slots is the number of save slots.
const Slots = 4

// toastFrames is how long a message stays up, at 60 frames per second.
const toastFrames = 120

// FastForwardFrames is the number of frames run per tick while fast
// forwarding.
const FastForwardFrames = 5

type Config struct {
	ROMsDir       string          // directory browsed for programs
	StateDir      string          // where save slots are written
	ScreenshotDir string          // where F12 screenshots go
	Palette       display.Palette // screenshot colors
	ScreenshotX   int             // screenshot upscaling factor
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.ROMsDir == "" {
		c.ROMsDir = "roms"
	}
	if c.StateDir == "" {
		c.StateDir = "."
	}
	if c.ScreenshotDir == "" {
		c.ScreenshotDir = "."
	}
	if c.Palette == (display.Palette{}) {
		c.Palette = display.DefaultPalette
	}
	if c.ScreenshotX <= 0 {
		c.ScreenshotX = 4
	}
}

type Session struct {
	cfg Config
	m   *emu.Machine

	Paused bool
	Slot   int
	Halt   error // fault that stopped the program, nil while running
	Menu   Menu

	msg       string
	msgFrames int

	now      func() time.Time
	writePNG func(w io.Writer, fb []byte, pal display.Palette, scale int) error
}

func New(cfg Config, m *emu.Machine) *Session {
	cfg.Defaults()
	s := &Session{cfg: cfg, m: m, now: time.Now, writePNG: display.WritePNG}
	s.Menu.s = s
	return s
}

// Machine returns the driven machine.
func (s *Session) Machine() *emu.Machine { return s.m }

// Tick advances emulation by one host frame, or several when fast is set.
// Nothing runs while paused, halted or in the menu.
func (s *Session) Tick(fast bool) {
	if s.msgFrames > 0 {
		s.msgFrames--
	}
	if s.Paused || s.Halt != nil || s.Menu.Open {
		return
	}
	n := 1
	if fast {
		n = FastForwardFrames
	}
	for i := 0; i < n; i++ {
		if err := s.m.StepFrame(); err != nil {
			s.halt(err)
			return
		}
	}
}

func (s *Session) halt(err error) {
	s.Halt = err
	s.Toast("Halted: " + err.Error())
}

func (s *Session) TogglePause() {
	s.Paused = !s.Paused
	if s.Paused {
		s.Toast("Paused")
	} else {
		s.Toast("Running")
	}
}

// StepFrame runs exactly one frame while paused.
func (s *Session) StepFrame() {
	if !s.Paused || s.Halt != nil {
		return
	}
	if err := s.m.StepFrame(); err != nil {
		s.halt(err)
	}
}

// StepCycle runs a single instruction while paused.
func (s *Session) StepCycle() {
	if !s.Paused || s.Halt != nil {
		return
	}
	err := s.m.Step()
	s.m.Render()
	if err != nil {
		s.halt(err)
	}
}

// Reset restarts the current program and clears a halt.
func (s *Session) Reset() {
	s.m.Reset()
	s.Halt = nil
	s.Toast("Reset")
}

// SelectSlot picks the slot used by SaveSlot and LoadSlot.
func (s *Session) SelectSlot(slot int) {
	if slot < 0 || slot >= Slots {
		return
	}
	s.Slot = slot
	s.Toast(fmt.Sprintf("Slot set to %d", slot+1))
}

// StatePath is the file backing a save slot. Slots are kept per program.
func (s *Session) StatePath(slot int) string {
	name := "chip8"
	if p := s.m.ROMPath(); p != "" {
		name = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	}
	return filepath.Join(s.cfg.StateDir, fmt.Sprintf("%s.slot%d.state", name, slot+1))
}

// SlotUsed reports whether a slot has a saved state.
func (s *Session) SlotUsed(slot int) bool {
	_, err := os.Stat(s.StatePath(slot))
	return err == nil
}

func (s *Session) SaveSlot() error {
	if err := s.m.SaveStateToFile(s.StatePath(s.Slot)); err != nil {
		s.Toast("Save failed: " + err.Error())
		return err
	}
	s.Toast(fmt.Sprintf("Saved slot %d", s.Slot+1))
	return nil
}

// LoadSlot restores the selected slot and clears a halt.
func (s *Session) LoadSlot() error {
	if !s.SlotUsed(s.Slot) {
		s.Toast("Slot is empty")
		return os.ErrNotExist
	}
	if err := s.m.LoadStateFromFile(s.StatePath(s.Slot)); err != nil {
		s.Toast("Load failed: " + err.Error())
		return err
	}
	s.Halt = nil
	s.Toast(fmt.Sprintf("Loaded slot %d", s.Slot+1))
	return nil
}

// ROMs lists the programs under the ROMs directory, sorted.
func (s *Session) ROMs() []string {
	var out []string
	_ = filepath.WalkDir(s.cfg.ROMsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".ch8", ".c8", ".rom":
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out
}

// LoadROM switches to another program.
func (s *Session) LoadROM(path string) error {
	if err := s.m.LoadROMFromFile(path); err != nil {
		s.Toast("Load failed: " + err.Error())
		return err
	}
	s.Halt = nil
	s.Toast("Loaded ROM: " + filepath.Base(path))
	return nil
}

// Screenshot writes the display as a timestamped PNG and returns its path.
// A failed write leaves no file behind.
func (s *Session) Screenshot() (string, error) {
	name := filepath.Join(s.cfg.ScreenshotDir,
		fmt.Sprintf("screenshot_%s.png", s.now().Format("20060102_150405")))
	f, err := os.Create(name)
	if err != nil {
		s.Toast("Screenshot failed: " + err.Error())
		return "", err
	}
	err = s.writePNG(f, s.m.Interpreter().Framebuffer(), s.cfg.Palette, s.cfg.ScreenshotX)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(name)
		s.Toast("Screenshot failed: " + err.Error())
		return "", err
	}
	s.Toast("Saved " + filepath.Base(name))
	return name, nil
}

// Toast shows a short message over the display.
func (s *Session) Toast(msg string) {
	s.msg = msg
	s.msgFrames = toastFrames
}

// Message returns the current toast, or "" once it has expired.
func (s *Session) Message() string {
	if s.msgFrames == 0 {
		return ""
	}
	return s.msg
}
