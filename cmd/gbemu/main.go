// Command gbemu runs a ROM either in a window or headless.
package main

import (
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/dmgcam/gbcam/internal/emu"
	"github.com/dmgcam/gbcam/internal/ui"
)

type cli struct {
	ROM   string `arg:"" optional:"" help:"path to ROM (.gb)"`
	Scale int    `default:"3" help:"window scale"`
	Title string `default:"gbcam" help:"window title"`
	Trace bool   `help:"log each CPU step at debug level"`
	Save  bool   `default:"true" help:"persist battery RAM to ROM.sav on exit, load on start"`

	Headless bool   `help:"run without a window"`
	Frames   int    `default:"300" help:"frames to run in headless mode"`
	OutPNG   string `help:"write the last framebuffer to PNG at this path"`
	Expect   string `help:"assert the final framebuffer CRC32 (hex)"`
}

func (c *cli) savePath() string {
	return strings.TrimSuffix(c.ROM, ".gb") + ".sav"
}

func runHeadless(m *emu.Machine, frames int, pngPath, expectCRC string) error {
	if frames <= 0 {
		frames = 1
	}
	start := time.Now()
	for i := 0; i < frames; i++ {
		m.StepFrame()
	}
	dur := time.Since(start)

	fb := m.Framebuffer()
	crc := crc32.ChecksumIEEE(fb)
	logrus.WithFields(logrus.Fields{
		"frames": frames,
		"elapsed": dur.Truncate(time.Millisecond),
		"fps":     float64(frames) / dur.Seconds(),
		"fbCRC32": fmt.Sprintf("%08x", crc),
	}).Info("headless run complete")

	if pngPath != "" {
		if err := saveFramePNG(fb, 160, 144, pngPath); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
	}
	if expectCRC != "" {
		want := strings.TrimPrefix(strings.ToLower(expectCRC), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

func saveFramePNG(pix []byte, w, h int, path string) error {
	img := &image.RGBA{
		Pix:    append([]byte(nil), pix...),
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func main() {
	var c cli
	kong.Parse(&c)
	if c.Trace {
		logrus.SetLevel(logrus.DebugLevel)
	}

	m := emu.New(emu.Config{Trace: c.Trace})
	if c.ROM != "" {
		rom, err := os.ReadFile(c.ROM)
		if err != nil {
			logrus.Fatalf("read rom: %v", err)
		}
		if err := m.LoadCartridge(rom); err != nil {
			logrus.Fatalf("load cartridge: %v", err)
		}
		if c.Save {
			if data, err := os.ReadFile(c.savePath()); err == nil {
				if err := m.LoadCartridgeRAM(data); err != nil {
					logrus.Warnf("load save RAM: %v", err)
				} else {
					logrus.Infof("loaded save RAM: %s", c.savePath())
				}
			}
		}
	}

	if c.Headless {
		if err := runHeadless(m, c.Frames, c.OutPNG, c.Expect); err != nil {
			logrus.Fatal(err)
		}
		if c.Save && c.ROM != "" {
			if ram := m.CartridgeRAM(); ram != nil {
				if err := os.WriteFile(c.savePath(), ram, 0644); err != nil {
					logrus.Warnf("write save RAM: %v", err)
				}
			}
		}
		return
	}

	app := ui.NewApp(ui.Config{Title: c.Title, Scale: c.Scale}, m)
	if err := app.Run(); err != nil {
		logrus.Fatal(err)
	}
	if c.Save && c.ROM != "" {
		if ram := m.CartridgeRAM(); ram != nil {
			if err := os.WriteFile(c.savePath(), ram, 0644); err != nil {
				logrus.Warnf("write save RAM: %v", err)
			}
		}
	}
}
