// Package ui is the thin windowed shell around a Machine: keyboard input
// maps to button events, and the Machine's own framebuffer is blitted
// each frame. It carries none of the emulation logic itself.
package ui

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/dmgcam/gbcam/internal/emu"
)

// Button index ordering the Machine expects: 0=A,1=B,2=Select,3=Start,
// 4=Right,5=Left,6=Up,7=Down.
var keyBindings = [8]ebiten.Key{
	ebiten.KeyZ,
	ebiten.KeyX,
	ebiten.KeyShiftRight,
	ebiten.KeyEnter,
	ebiten.KeyRight,
	ebiten.KeyLeft,
	ebiten.KeyUp,
	ebiten.KeyDown,
}

type App struct {
	cfg    Config
	m      *emu.Machine
	tex    *ebiten.Image
	paused bool
	fast   bool

	wasPressed [8]bool
}

func NewApp(cfg Config, m *emu.Machine) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(160*cfg.Scale, 144*cfg.Scale)
	return &App{cfg: cfg, m: m}
}

func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	for i, key := range keyBindings {
		pressed := ebiten.IsKeyPressed(key)
		if pressed != a.wasPressed[i] {
			a.m.SetButton(i, pressed)
			a.wasPressed[i] = pressed
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)

	if a.paused && inpututil.IsKeyJustPressed(ebiten.KeyN) {
		a.m.StepFrame()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		_ = a.saveScreenshot()
	}

	if !a.paused {
		steps := 1
		if a.fast {
			steps = 5
		}
		for i := 0; i < steps; i++ {
			a.m.StepFrame()
		}
	}
	return nil
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(160, 144)
	}
	a.tex.WritePixels(a.m.Framebuffer())
	screen.DrawImage(a.tex, nil)
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) { return 160, 144 }

func (a *App) saveScreenshot() error {
	fb := a.m.Framebuffer()
	img := &image.RGBA{
		Pix:    make([]byte, len(fb)),
		Stride: 4 * 160,
		Rect:   image.Rect(0, 0, 160, 144),
	}
	copy(img.Pix, fb)
	name := fmt.Sprintf("screenshot_%s.png", time.Now().Format("20060102_150405"))
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
