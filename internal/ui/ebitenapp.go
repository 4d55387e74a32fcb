package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/djwormlight/chip8-interpreter/internal/chip8"
	"github.com/djwormlight/chip8-interpreter/internal/display"
	"github.com/djwormlight/chip8-interpreter/internal/emu"
	"github.com/djwormlight/chip8-interpreter/internal/ui/session"
)

const lineHeight = 14

type App struct {
	cfg Config
	s   *session.Session
	tex *ebiten.Image

	// follow mode: frames come from a Runner goroutine
	snaps  <-chan chip8.Snapshot
	runErr <-chan error
	last   chip8.Snapshot
	pix    []byte
	halt   error

	shade      *ebiten.Image
	showHelp   bool
	curW, curH int
}

// NewApp drives m from the window loop, one frame per tick.
func NewApp(cfg Config, m *emu.Machine) *App {
	cfg.Defaults()
	a := &App{cfg: cfg, s: session.New(cfg.Session, m)}
	a.setupWindow()
	return a
}

// NewFollowApp shows snapshots published by an emu.Runner. The runner's
// result is read from runErr when it stops.
func NewFollowApp(cfg Config, snaps <-chan chip8.Snapshot, runErr <-chan error) *App {
	cfg.Defaults()
	a := &App{
		cfg:    cfg,
		snaps:  snaps,
		runErr: runErr,
		pix:    make([]byte, display.Width*display.Height*4),
	}
	a.setupWindow()
	return a
}

func (a *App) setupWindow() {
	ebiten.SetWindowTitle(a.cfg.Title)
	ebiten.SetWindowSize(display.Width*a.cfg.Scale, display.Height*a.cfg.Scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(a.cfg.TPS)
}

func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	// Help overlay (H)
	if inpututil.IsKeyJustPressed(ebiten.KeyH) {
		a.showHelp = !a.showHelp
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}

	if a.s == nil {
		a.follow()
		return nil
	}
	s := a.s

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		s.Menu.Toggle()
	}
	if s.Menu.Open {
		switch {
		case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp):
			s.Menu.Up()
		case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown):
			s.Menu.Down()
		case inpututil.IsKeyJustPressed(ebiten.KeyEnter):
			s.Menu.Enter()
		case inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
			s.Menu.Back()
		}
		s.Tick(false)
		return nil
	}

	// Pause toggle (P), frame step (N), instruction step (M)
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		s.TogglePause()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		s.StepFrame()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		s.StepCycle()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		s.Reset()
	}

	// Save slots: F5 save, F9 load, 1-4 select
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		_ = s.SaveSlot()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		_ = s.LoadSlot()
	}
	for i, k := range []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4} {
		if inpututil.IsKeyJustPressed(k) {
			s.SelectSlot(i)
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		_, _ = s.Screenshot()
	}

	// Fast-forward (Tab) while held
	s.Tick(ebiten.IsKeyPressed(ebiten.KeyTab))
	return nil
}

// follow keeps the newest published snapshot without blocking.
func (a *App) follow() {
	for {
		select {
		case snap, ok := <-a.snaps:
			if !ok {
				a.snaps = nil
				return
			}
			a.last = snap
		case err := <-a.runErr:
			a.halt = err
			a.runErr = nil
		default:
			return
		}
	}
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(display.Width, display.Height)
	}
	if a.s != nil {
		a.tex.WritePixels(a.s.Machine().Framebuffer())
	} else {
		_ = display.Rasterize(a.pix, a.last.Framebuffer(), a.cfg.Session.Palette, 1)
		a.tex.WritePixels(a.pix)
	}

	// Upscale to the window, keeping whole pixels
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	scale := max(1, min(sw/display.Width, sh/display.Height))
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(scale), float64(scale))
	op.GeoM.Translate(float64(sw-display.Width*scale)/2, float64(sh-display.Height*scale)/2)
	screen.DrawImage(a.tex, op)

	a.drawOverlay(screen)
}

func (a *App) drawOverlay(screen *ebiten.Image) {
	var lines []string
	switch {
	case a.s != nil && a.s.Menu.Open:
		rows := a.curH/lineHeight - 2
		lines = a.s.Menu.Lines(rows)
	case a.showHelp:
		lines = helpLines
		if a.s == nil {
			lines = followHelpLines
		}
	}
	if a.curW == 0 || a.curH == 0 {
		return
	}
	if len(lines) > 0 {
		if a.shade == nil || a.shade.Bounds().Dx() != a.curW || a.shade.Bounds().Dy() != a.curH {
			a.shade = ebiten.NewImage(a.curW, a.curH)
			a.shade.Fill(color.RGBA{0, 0, 0, 160})
		}
		screen.DrawImage(a.shade, nil)
		for i, s := range lines {
			ebitenutil.DebugPrintAt(screen, s, 10, 10+i*lineHeight)
		}
	}

	status := ""
	switch {
	case a.s != nil && a.s.Halt != nil:
		status = a.s.Halt.Error()
	case a.s != nil:
		status = a.s.Message()
	case a.halt != nil:
		status = a.halt.Error()
	}
	if status != "" {
		ebitenutil.DebugPrintAt(screen, status, 10, a.curH-lineHeight-6)
	}
}

var helpLines = []string{
	"Keys:",
	"  P      pause / resume",
	"  N      step one frame (paused)",
	"  M      step one instruction (paused)",
	"  R      reset",
	"  Tab    fast forward",
	"  F5/F9  save / load state",
	"  1-4    select slot",
	"  F12    screenshot",
	"  F11    fullscreen",
	"  Esc    menu",
	"  H      close help",
}

var followHelpLines = []string{
	"Free running: the interpreter runs on its own goroutine.",
	"  F11    fullscreen",
	"  H      close help",
}

// Layout uses the full window so text stays readable at any scale.
func (a *App) Layout(outW, outH int) (int, int) {
	a.curW, a.curH = max(outW, display.Width), max(outH, display.Height)
	return a.curW, a.curH
}
