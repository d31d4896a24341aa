// Package bus implements the 16-bit memory map arbiter: it routes CPU
// accesses to the cartridge, video RAM, work RAM, OAM, the I/O register
// file, high RAM, and the interrupt-enable byte, and owns the shared IF
// register every peripheral requests interrupts through.
package bus

import (
	"github.com/dmgcam/gbcam/internal/cart"
	"github.com/dmgcam/gbcam/internal/joypad"
	"github.com/dmgcam/gbcam/internal/ppu"
	"github.com/dmgcam/gbcam/internal/serial"
	"github.com/dmgcam/gbcam/internal/timer"
)

const dmaDots = 160 * 4 // 160 machine cycles

type Bus struct {
	cart cart.Cartridge

	wram [0x2000]byte // 0xC000-0xDFFF, mirrored at 0xE000-0xFDFF (echo)
	hram [0x7F]byte   // 0xFF80-0xFFFE

	ppu    *ppu.PPU
	timer  *timer.Timer
	joypad *joypad.Joypad
	serial *serial.Serial

	ifReg byte // 0xFF0F, low 5 bits significant
	ieReg byte // 0xFFFF

	dmaActive   bool
	dmaDotsLeft int
	dmaSrc      uint16

	cpuWake func() // called when a button/interrupt wakes a stopped CPU
}

func New(c cart.Cartridge) *Bus {
	b := &Bus{cart: c}
	b.ppu = ppu.New(&b.ifReg)
	b.timer = timer.New(&b.ifReg)
	b.joypad = joypad.New(&b.ifReg)
	b.serial = serial.New(&b.ifReg)
	return b
}

func (b *Bus) PPU() *ppu.PPU          { return b.ppu }
func (b *Bus) Timer() *timer.Timer    { return b.timer }
func (b *Bus) Joypad() *joypad.Joypad { return b.joypad }
func (b *Bus) Serial() *serial.Serial { return b.serial }
func (b *Bus) Cart() cart.Cartridge   { return b.cart }

// SetWakeFunc registers the CPU's Wake callback so a joypad transition or
// a newly-pending interrupt can end a STOP.
func (b *Bus) SetWakeFunc(f func()) { b.cpuWake = f }

func (b *Bus) Read(addr uint16) byte {
	if b.dmaActive && addr < 0xFF80 {
		return 0xFF
	}
	switch {
	case addr < 0x8000:
		return b.cart.Read(addr)
	case addr < 0xA000:
		return b.ppu.Read(addr)
	case addr < 0xC000:
		return b.cart.Read(addr)
	case addr < 0xE000:
		return b.wram[addr-0xC000]
	case addr < 0xFE00:
		return b.wram[addr-0xE000] // echo RAM
	case addr < 0xFEA0:
		return b.ppu.Read(addr)
	case addr < 0xFF00:
		return 0xFF // unusable
	case addr < 0xFF80:
		return b.readIO(addr)
	case addr < 0xFFFF:
		return b.hram[addr-0xFF80]
	default:
		return b.ieReg
	}
}

func (b *Bus) Write(addr uint16, value byte) {
	if b.dmaActive && addr < 0xFF80 {
		return
	}
	switch {
	case addr < 0x8000:
		b.cart.Write(addr, value)
	case addr < 0xA000:
		b.ppu.Write(addr, value)
	case addr < 0xC000:
		b.cart.Write(addr, value)
	case addr < 0xE000:
		b.wram[addr-0xC000] = value
	case addr < 0xFE00:
		b.wram[addr-0xE000] = value
	case addr < 0xFEA0:
		b.ppu.Write(addr, value)
	case addr < 0xFF00:
		// unusable, dropped
	case addr < 0xFF80:
		b.writeIO(addr, value)
	case addr < 0xFFFF:
		b.hram[addr-0xFF80] = value
	default:
		b.ieReg = value
	}
}

func (b *Bus) readIO(addr uint16) byte {
	switch {
	case addr == 0xFF00:
		return b.joypad.Read()
	case addr == 0xFF01:
		return b.serial.ReadSB()
	case addr == 0xFF02:
		return b.serial.ReadSC()
	case addr == 0xFF04:
		return b.timer.ReadDIV()
	case addr == 0xFF05:
		return b.timer.ReadTIMA()
	case addr == 0xFF06:
		return b.timer.ReadTMA()
	case addr == 0xFF07:
		return b.timer.ReadTAC()
	case addr == 0xFF0F:
		return 0xE0 | (b.ifReg & 0x1F)
	case addr >= 0xFF10 && addr <= 0xFF3F:
		return 0xFF // APU register space, unimplemented
	case addr >= 0xFF40 && addr <= 0xFF4B:
		return b.ppu.Read(addr)
	default:
		return 0xFF
	}
}

func (b *Bus) writeIO(addr uint16, value byte) {
	switch {
	case addr == 0xFF00:
		b.joypad.Write(value)
	case addr == 0xFF01:
		b.serial.WriteSB(value)
	case addr == 0xFF02:
		b.serial.WriteSC(value)
	case addr == 0xFF04:
		b.timer.WriteDIV()
	case addr == 0xFF05:
		b.timer.WriteTIMA(value)
	case addr == 0xFF06:
		b.timer.WriteTMA(value)
	case addr == 0xFF07:
		b.timer.WriteTAC(value)
	case addr == 0xFF0F:
		b.ifReg = value & 0x1F
	case addr >= 0xFF10 && addr <= 0xFF3F:
		// APU register space, unimplemented
	case addr == 0xFF46:
		b.startDMA(value)
	case addr >= 0xFF40 && addr <= 0xFF4B:
		b.ppu.Write(addr, value)
	}
}

func (b *Bus) startDMA(src byte) {
	b.dmaSrc = uint16(src) << 8
	for i := 0; i < 0xA0; i++ {
		b.ppu.WriteOAMByte(i, b.Read(b.dmaSrc+uint16(i)))
	}
	b.dmaActive = true
	b.dmaDotsLeft = dmaDots
}

// Tick advances every peripheral by the given number of dot-cycles, and
// wakes a stopped CPU when an interrupt source becomes pending.
func (b *Bus) Tick(cycles int) {
	b.ppu.Tick(cycles)
	b.timer.Tick(cycles)
	b.serial.Tick(cycles)
	b.cart.Tick(cycles)

	if b.dmaActive {
		b.dmaDotsLeft -= cycles
		if b.dmaDotsLeft <= 0 {
			b.dmaActive = false
		}
	}

	if b.cpuWake != nil && (b.ifReg&b.ieReg) != 0 {
		b.cpuWake()
	}
}

// SetButton forwards a button event to the joypad and wakes a stopped CPU
// on a press, since STOP must end on any button press regardless of
// whether the joypad interrupt is enabled.
func (b *Bus) SetButton(index int, pressed bool) {
	b.joypad.SetButton(index, pressed)
	if pressed && b.cpuWake != nil {
		b.cpuWake()
	}
}
