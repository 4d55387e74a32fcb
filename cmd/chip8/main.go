package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/djwormlight/chip8-interpreter/internal/chip8"
	"github.com/djwormlight/chip8-interpreter/internal/display"
	"github.com/djwormlight/chip8-interpreter/internal/emu"
	"github.com/djwormlight/chip8-interpreter/internal/ui"
	"github.com/djwormlight/chip8-interpreter/internal/ui/session"
)

type CLIFlags struct {
	ROMPath string
	Scale   int
	Title   string
	Trace   bool
	Cycles  int    // cycles per frame
	Palette string // palette name or "auto"
	ROMsDir string
	State   string

	// free running interpreter goroutine
	Hz       int
	Duration time.Duration

	// headless
	Headless bool
	Frames   int
	PNGOut   string
	Expect   string // expected framebuffer CRC32 hex (e.g., "1a2b3c4d")
}

func parseFlags() CLIFlags {
	var f CLIFlags
	flag.StringVar(&f.ROMPath, "rom", "", "path to program (.ch8)")
	flag.IntVar(&f.Scale, "scale", 10, "window scale")
	flag.StringVar(&f.Title, "title", "chip8", "window title")
	flag.BoolVar(&f.Trace, "trace", false, "log every executed instruction")
	flag.IntVar(&f.Cycles, "cycles", emu.DefaultCyclesPerFrame, "instructions per frame")
	flag.StringVar(&f.Palette, "palette", "auto",
		"palette: auto, "+strings.Join(display.PaletteNames(), ", "))
	flag.StringVar(&f.ROMsDir, "roms", "roms", "directory listed by the ROM menu")
	flag.StringVar(&f.State, "state", ".", "directory for save slots and screenshots")

	flag.IntVar(&f.Hz, "hz", 0, "run the interpreter on its own goroutine at this many instructions per second (0 disables)")
	flag.DurationVar(&f.Duration, "duration", 5*time.Second, "how long -hz runs in headless mode")

	// headless options
	flag.BoolVar(&f.Headless, "headless", false, "run without a window")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run in headless mode")
	flag.StringVar(&f.PNGOut, "outpng", "", "write last framebuffer to PNG at path")
	flag.StringVar(&f.Expect, "expect", "", "assert framebuffer CRC32 (hex)")
	flag.Parse()
	return f
}

func pickPalette(name, romPath string, rom []byte) display.Palette {
	if name == "" || strings.EqualFold(name, "auto") {
		return display.AutoPalette(romPath, rom)
	}
	pal, ok := display.PaletteByName(name)
	if !ok {
		log.Fatalf("unknown palette %q (have %s)", name, strings.Join(display.PaletteNames(), ", "))
	}
	return pal
}

func runHeadless(m *emu.Machine, frames int, pal display.Palette, pngPath, expectCRC string) error {
	if frames <= 0 {
		frames = 1
	}

	start := time.Now()
	var halt error
	for i := 0; i < frames; i++ {
		if halt = m.StepFrameNoRender(); halt != nil {
			break
		}
	}
	dur := time.Since(start)

	fb := m.Interpreter().Framebuffer()
	log.Printf("headless: cycles=%d elapsed=%s fb_crc32=%08x",
		m.Cycles(), dur.Truncate(time.Millisecond), display.Checksum(fb))
	if halt != nil {
		log.Printf("halted: %v", halt)
	}
	return finish(fb, pal, pngPath, expectCRC)
}

// runFree drives the interpreter from a Runner goroutine and keeps the
// newest snapshot until the duration ends or the program halts.
func runFree(ctx context.Context, m *emu.Machine, hz int, trace bool, d time.Duration, pal display.Palette, pngPath, expectCRC string) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	r := emu.NewRunner(m.Interpreter(), time.Second/time.Duration(hz), 64)
	if trace {
		r.Trace = log.Writer()
	}
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	var last chip8.Snapshot
	var n uint64
	for snap := range r.Snapshots() {
		last = snap
		n++
	}
	err := <-done
	log.Printf("free run: snapshots=%d dropped=%d pc=%03X fb_crc32=%08x",
		n, r.Dropped(), last.ProgramCounter, display.Checksum(last.Framebuffer()))
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Printf("halted: %v", err)
	}
	return finish(last.Framebuffer(), pal, pngPath, expectCRC)
}

func finish(fb []byte, pal display.Palette, pngPath, expectCRC string) error {
	if pngPath != "" {
		if err := savePNG(fb, pal, pngPath); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", pngPath)
	}

	if expectCRC != "" {
		// normalize expected hex (allow with/without 0x, upper/lowercase)
		want := strings.TrimPrefix(strings.ToLower(expectCRC), "0x")
		got := fmt.Sprintf("%08x", display.Checksum(fb))
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

func savePNG(fb []byte, pal display.Palette, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return display.WritePNG(f, fb, pal, 1)
}

func mustRead(path string) []byte {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	return b
}

func main() {
	f := parseFlags()
	rom := mustRead(f.ROMPath)
	if f.Hz < 0 {
		log.Fatalf("-hz must not be negative")
	}

	pal := pickPalette(f.Palette, f.ROMPath, rom)
	m := emu.New(emu.Config{
		CyclesPerFrame: f.Cycles,
		Trace:          f.Trace,
		Palette:        pal,
	})
	if f.ROMPath != "" {
		// prefer absolute path for state placement consistency
		path := f.ROMPath
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if err := m.LoadROMFromFile(path); err != nil {
			log.Fatalf("load rom: %v", err)
		}
		log.Printf("ROM: %s size=%d bytes free=%d", filepath.Base(path), len(rom), chip8.ProgramCapacity-len(rom))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if f.Headless {
		var err error
		if f.Hz > 0 {
			err = runFree(ctx, m, f.Hz, f.Trace, f.Duration, pal, f.PNGOut, f.Expect)
		} else {
			err = runHeadless(m, f.Frames, pal, f.PNGOut, f.Expect)
		}
		if err != nil {
			log.Fatal(err)
		}
		return
	}

	uiCfg := ui.Config{
		Title: f.Title,
		Scale: f.Scale,
		Session: session.Config{
			ROMsDir:       f.ROMsDir,
			StateDir:      f.State,
			ScreenshotDir: f.State,
			Palette:       pal,
		},
	}

	if f.Hz == 0 {
		if err := ui.NewApp(uiCfg, m).Run(); err != nil {
			log.Fatal(err)
		}
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r := emu.NewRunner(m.Interpreter(), time.Second/time.Duration(f.Hz), 1)
	if f.Trace {
		r.Trace = log.Writer()
	}
	runErr := make(chan error, 1)
	go func() { runErr <- r.Run(ctx) }()

	err := ui.NewFollowApp(uiCfg, r.Snapshots(), runErr).Run()
	cancel()
	if err != nil {
		log.Fatal(err)
	}
}
