// Package emu composes the CPU, bus, and cartridge into the single
// Machine a host process drives one frame or one instruction at a time.
package emu

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dmgcam/gbcam/internal/bus"
	"github.com/dmgcam/gbcam/internal/cart"
	"github.com/dmgcam/gbcam/internal/cpu"
)

// maxFrameDots is a safety cap on StepFrame's loop: if the LCD is off the
// PPU never reports a V-blank edge on its own, so StepFrame falls back to
// this many dot-cycles (one real frame) before giving up and returning
// anyway.
const maxFrameDots = 70224

// accelerometerSource is implemented by cartridges with a tilt sensor
// (MBC7). SetAccelerometer is a no-op on any cartridge that doesn't.
type accelerometerSource interface {
	SetAccelerometer(x, y int16)
}

// imageSource is implemented by the imaging cartridge. SetImage, Photo,
// and Contrast are unreachable on any other cartridge type.
type imageSource interface {
	SetImage(img []byte)
	Photo(slot int) []byte
	Contrast() int
}

// Machine owns one cartridge, bus, and CPU, and is the only type a host
// process needs to drive an emulated session.
type Machine struct {
	cfg Config

	bus    *bus.Bus
	cpu    *cpu.CPU
	header *cart.Header
}

// New creates a Machine with no cartridge loaded. LoadCartridge must be
// called before Step* does anything useful.
func New(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// LoadCartridge parses the header, builds the matching MBC, and resets
// the CPU to typical DMG post-boot register state with PC at the
// cartridge entry point. A CGB-capability hint carried in the ROM header
// (Header.CGBFlag) has no effect: this core has no color-console
// extensions beyond what the imaging cartridge needs, per this
// implementation's scope.
func (m *Machine) LoadCartridge(rom []byte) error {
	h, err := cart.ParseHeader(rom)
	if err != nil {
		return fmt.Errorf("parse header: %v: %w", err, InvalidRom)
	}
	c, err := cart.New(rom, h)
	if err != nil {
		return fmt.Errorf("build cartridge: %v: %w", err, InvalidRom)
	}

	m.header = h
	m.bus = bus.New(c)
	m.cpu = cpu.New(m.bus)
	m.cpu.ResetNoBoot()
	m.cpu.SetPC(0x0100)
	m.bus.SetWakeFunc(m.cpu.Wake)
	m.applyPostBootIO()

	logrus.WithFields(logrus.Fields{
		"title":    h.Title,
		"cartType": h.CartTypeStr,
		"romBanks": h.ROMBanks,
		"ramBytes": h.RAMSizeBytes,
	}).Info("cartridge loaded")
	return nil
}

// applyPostBootIO writes the I/O register values a real DMG boot ROM
// leaves behind, since this core never runs the boot ROM itself.
func (m *Machine) applyPostBootIO() {
	m.bus.Write(0xFF05, 0x00) // TIMA
	m.bus.Write(0xFF06, 0x00) // TMA
	m.bus.Write(0xFF07, 0x00) // TAC
	m.bus.Write(0xFF10, 0x80)
	m.bus.Write(0xFF11, 0xBF)
	m.bus.Write(0xFF12, 0xF3)
	m.bus.Write(0xFF14, 0xBF)
	m.bus.Write(0xFF16, 0x3F)
	m.bus.Write(0xFF19, 0xBF)
	m.bus.Write(0xFF1A, 0x7F)
	m.bus.Write(0xFF1B, 0xFF)
	m.bus.Write(0xFF1C, 0x9F)
	m.bus.Write(0xFF1E, 0xBF)
	m.bus.Write(0xFF20, 0xFF)
	m.bus.Write(0xFF23, 0xBF)
	m.bus.Write(0xFF24, 0x77)
	m.bus.Write(0xFF25, 0xF3)
	m.bus.Write(0xFF26, 0xF1)
	m.bus.Write(0xFF40, 0x91) // LCDC: LCD+BG on, tile data at 0x8000
	m.bus.Write(0xFF42, 0x00) // SCY
	m.bus.Write(0xFF43, 0x00) // SCX
	m.bus.Write(0xFF45, 0x00) // LYC
	m.bus.Write(0xFF47, 0xFC) // BGP
	m.bus.Write(0xFF48, 0xFF) // OBP0
	m.bus.Write(0xFF49, 0xFF) // OBP1
	m.bus.Write(0xFF4A, 0x00) // WY
	m.bus.Write(0xFF4B, 0x00) // WX
	m.bus.Write(0xFFFF, 0x00) // IE
}

// CartridgeRAM returns a copy of the loaded cartridge's battery-backed
// external RAM, or nil if the cartridge has none.
func (m *Machine) CartridgeRAM() []byte {
	if m.bus == nil {
		return nil
	}
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok {
		return nil
	}
	return bb.SaveRAM()
}

// LoadCartridgeRAM restores previously saved cartridge RAM. It is an
// error to call this against a cartridge with no battery-backed RAM, or
// with data sized for a different cartridge.
func (m *Machine) LoadCartridgeRAM(data []byte) error {
	if m.bus == nil {
		return fmt.Errorf("no cartridge loaded: %w", InvalidSave)
	}
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok {
		return fmt.Errorf("cartridge has no battery-backed RAM: %w", InvalidSave)
	}
	if current := bb.SaveRAM(); current != nil && len(data) != len(current) {
		return fmt.Errorf("save data is %d bytes, cartridge RAM is %d bytes: %w", len(data), len(current), InvalidSave)
	}
	bb.LoadRAM(data)
	return nil
}

// StepInstruction executes exactly one CPU instruction (or one dispatched
// interrupt) and returns the dot-cycles it consumed.
func (m *Machine) StepInstruction() int {
	if m.cpu == nil {
		return 0
	}
	cycles := m.cpu.Step()
	if m.cfg.Trace {
		logrus.WithFields(logrus.Fields{"pc": m.cpu.PC, "cycles": cycles}).Debug("step")
	}
	return cycles
}

// StepFrame runs instructions until the PPU reports a rising V-blank
// edge, or until maxFrameDots elapses with the LCD off (which never
// produces one on its own).
func (m *Machine) StepFrame() {
	if m.cpu == nil {
		return
	}
	wasVBlank := m.bus.PPU().Mode() == 1
	total := 0
	for total < maxFrameDots {
		total += m.cpu.Step()
		inVBlank := m.bus.PPU().Mode() == 1
		if inVBlank && !wasVBlank {
			return
		}
		wasVBlank = inVBlank
	}
}

// Framebuffer returns the PPU's RGBA framebuffer for the most recently
// rendered frame. The slice aliases the PPU's internal buffer and is only
// valid until the next Step call.
func (m *Machine) Framebuffer() []byte {
	if m.bus == nil {
		return nil
	}
	return m.bus.PPU().Framebuffer()
}

// SetButton reports a button transition. index follows the documented
// ordering: 0=A, 1=B, 2=Select, 3=Start, 4=Right, 5=Left, 6=Up, 7=Down.
func (m *Machine) SetButton(index int, pressed bool) {
	if m.bus == nil {
		return
	}
	m.bus.SetButton(index, pressed)
}

// SetAccelerometer forwards a raw tilt vector to an MBC7 cartridge. It is
// silently ignored on any other cartridge type.
func (m *Machine) SetAccelerometer(x, y int16) {
	if m.bus == nil {
		return
	}
	if a, ok := m.bus.Cart().(accelerometerSource); ok {
		a.SetAccelerometer(x, y)
	}
}

// SetCameraImage forwards a host-supplied 128x112 luminance frame to the
// imaging cartridge's sensor. It is silently ignored on any other
// cartridge type.
func (m *Machine) SetCameraImage(img []byte) {
	if m.bus == nil {
		return
	}
	if s, ok := m.bus.Cart().(imageSource); ok {
		s.SetImage(img)
	}
}

// DecodeCameraPhoto decodes photo slot 1..30 of the imaging cartridge
// into a 128x112 RGBA image; slot 0 decodes the active (not yet saved)
// capture buffer. It returns nil on any non-imaging cartridge or an
// unoccupied slot; slot 0 decodes whatever the buffer holds, even before
// any capture has run.
func (m *Machine) DecodeCameraPhoto(slot int) []byte {
	if m.bus == nil {
		return nil
	}
	s, ok := m.bus.Cart().(imageSource)
	if !ok {
		return nil
	}
	return decodeTilePlanar(s.Photo(slot))
}

// CameraContrast exposes the imaging cartridge's coarse quality estimate
// for the last capture, or -1 if the cartridge isn't an imaging cartridge
// or hasn't captured yet.
func (m *Machine) CameraContrast() int {
	if m.bus == nil {
		return -1
	}
	s, ok := m.bus.Cart().(imageSource)
	if !ok {
		return -1
	}
	return s.Contrast()
}

// SerialOutput returns everything captured on the serial port so far.
func (m *Machine) SerialOutput() string {
	if m.bus == nil {
		return ""
	}
	return string(m.bus.Serial().Output())
}

// IORead exposes a raw memory-mapped I/O byte for host diagnostics.
func (m *Machine) IORead(addr uint16) byte {
	if m.bus == nil {
		return 0xFF
	}
	return m.bus.Read(addr)
}

// CPUSnapshot is a point-in-time copy of the register file, for host
// diagnostics and debuggers.
type CPUSnapshot struct {
	A, F byte
	B, C byte
	D, E byte
	H, L byte
	SP   uint16
	PC   uint16
	IME  bool
}

// CPUSnapshot captures the current register file.
func (m *Machine) CPUSnapshot() CPUSnapshot {
	if m.cpu == nil {
		return CPUSnapshot{}
	}
	return CPUSnapshot{
		A: m.cpu.A, F: m.cpu.F,
		B: m.cpu.B, C: m.cpu.C,
		D: m.cpu.D, E: m.cpu.E,
		H: m.cpu.H, L: m.cpu.L,
		SP: m.cpu.SP, PC: m.cpu.PC,
		IME: m.cpu.IME,
	}
}
