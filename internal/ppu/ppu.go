// Package ppu implements the DMG LCD controller: the OAM-scan/pixel-transfer/
// H-blank/V-blank mode state machine, background/window/sprite compositing,
// and palette application into an owned RGBA framebuffer.
package ppu

import "github.com/dmgcam/gbcam/internal/irq"

const (
	ScreenWidth  = 160
	ScreenHeight = 144

	oamScanDots = 80
	lineDots    = 456
)

// PPU owns VRAM, OAM, the LCD registers, and the RGBA framebuffer the host
// reads between frames.
type PPU struct {
	vram [0x2000]byte // 0x8000-0x9FFF
	oam  [0xA0]byte   // 0xFE00-0xFE9F

	lcdc byte // FF40
	stat byte // FF41
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	dot          int // dot within the current line [0..455]
	drawingDots  int // this line's mode-3 length, computed at mode-2 exit
	statLine     bool
	winLineCtr   byte
	windowActive bool // latched true if window became visible at any point this frame

	ifReg *byte

	fb [ScreenWidth * ScreenHeight * 4]byte

	lineRegs [ScreenHeight]LineRegs
}

// LineRegs is the register snapshot captured when a scanline enters its
// OAM-scan phase (mode 2), so mid-frame raster effects (changing SCX between
// lines) render correctly even though the frame is composed lazily.
type LineRegs struct {
	LCDC, SCY, SCX, BGP, OBP0, OBP1, WY, WX byte
	WinLine                                 byte
	WindowActiveThisLine                    bool
}

func New(ifReg *byte) *PPU {
	return &PPU{ifReg: ifReg}
}

func (p *PPU) Read(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if p.stat&0x03 == 3 {
			return 0xFF
		}
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if m := p.stat & 0x03; m == 2 || m == 3 {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

func (p *PPU) Write(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if p.stat&0x03 == 3 {
			return
		}
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if m := p.stat & 0x03; m == 2 || m == 3 {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if prev&0x80 != 0 && value&0x80 == 0 {
			p.ly, p.dot = 0, 0
			p.setMode(0)
		} else if prev&0x80 == 0 && value&0x80 != 0 {
			p.ly, p.dot = 0, 0
			p.winLineCtr = 0
			p.setMode(2)
		}
		p.updateLYC()
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
		p.evaluateStatLine()
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		// Real hardware resets the line counter on any write to LY.
		p.ly, p.dot = 0, 0
		p.setMode(2)
		p.updateLYC()
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

// WriteOAMByte is used by the bus's OAM DMA transfer, which bypasses the
// mode-2/3 access gating that Write enforces for CPU accesses.
func (p *PPU) WriteOAMByte(offset int, value byte) {
	if offset >= 0 && offset < len(p.oam) {
		p.oam[offset] = value
	}
}

func (p *PPU) Mode() byte { return p.stat & 0x03 }

// Tick advances the PPU by the given number of dots.
func (p *PPU) Tick(cycles int) {
	if p.lcdc&0x80 == 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		p.tickOne()
	}
}

func (p *PPU) tickOne() {
	p.dot++

	switch {
	case p.ly >= ScreenHeight:
		p.setMode(1)
	case p.dot == 1:
		p.setMode(2)
	case p.dot == oamScanDots:
		p.drawingDots = p.computeDrawingDots()
		p.setMode(3)
	case p.dot == oamScanDots+p.drawingDots:
		p.renderLine(int(p.ly))
		p.setMode(0)
	}

	if p.dot >= lineDots {
		p.dot = 0
		p.ly++
		if p.ly == ScreenHeight {
			irq.Request(p.ifReg, irq.VBlank)
			p.setMode(1)
		} else if p.ly > 153 {
			p.ly = 0
			p.winLineCtr = 0
			p.setMode(2)
		} else if p.ly < ScreenHeight {
			p.setMode(2)
			p.advanceWindowLine()
		}
		p.updateLYC()
	}
}

// computeDrawingDots implements the extended mode-3 timing model: a base of
// 172 dots, +6 if the window is visible anywhere on this line, plus a
// per-sprite penalty for each of the (up to 10) sprites selected during
// OAM scan.
func (p *PPU) computeDrawingDots() int {
	dots := 172
	windowVisible := p.lcdc&0x20 != 0 && p.lcdc&0x01 != 0 && p.ly >= p.wy && p.wx <= 166
	if windowVisible {
		dots += 6
	}
	sprites := p.scanSprites(int(p.ly))
	for _, s := range sprites {
		penalty := 5 + (int(p.scx)+s.x)%8
		if penalty > 11 {
			penalty = 11
		}
		dots += penalty
	}
	return dots
}

func (p *PPU) setMode(mode byte) {
	if p.stat&0x03 == mode {
		p.evaluateStatLine()
		return
	}
	p.stat = (p.stat &^ 0x03) | mode
	if mode == 2 {
		p.captureLineRegs()
	}
	p.evaluateStatLine()
}

// evaluateStatLine implements the resolved "STAT line" behavior: a single
// shared OR of all currently-enabled-and-true STAT sources, edge-triggered
// so two sources becoming true on the same dot raise only one interrupt.
func (p *PPU) evaluateStatLine() {
	mode := p.stat & 0x03
	line := false
	if p.stat&(1<<3) != 0 && mode == 0 {
		line = true
	}
	if p.stat&(1<<4) != 0 && mode == 1 {
		line = true
	}
	if p.stat&(1<<5) != 0 && mode == 2 {
		line = true
	}
	if p.stat&(1<<6) != 0 && p.stat&(1<<2) != 0 {
		line = true
	}
	if line && !p.statLine {
		irq.Request(p.ifReg, irq.LCDStat)
	}
	p.statLine = line
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
	} else {
		p.stat &^= 1 << 2
	}
	p.evaluateStatLine()
}

func (p *PPU) advanceWindowLine() {
	windowVisible := p.lcdc&0x20 != 0 && p.lcdc&0x01 != 0 && p.ly >= p.wy && p.wx <= 166
	if !windowVisible {
		return
	}
	if p.ly == p.wy {
		p.winLineCtr = 0
	} else {
		p.winLineCtr++
	}
}

func (p *PPU) captureLineRegs() {
	if int(p.ly) >= ScreenHeight {
		return
	}
	windowVisible := p.lcdc&0x20 != 0 && p.lcdc&0x01 != 0 && p.ly >= p.wy && p.wx <= 166
	p.lineRegs[p.ly] = LineRegs{
		LCDC: p.lcdc, SCY: p.scy, SCX: p.scx,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1,
		WY: p.wy, WX: p.wx, WinLine: p.winLineCtr,
		WindowActiveThisLine: windowVisible,
	}
}

// Framebuffer returns the live RGBA pixel buffer. Each visible line is
// rewritten when its pixel transfer ends, so the buffer holds one whole
// frame only between the end of line 143 and the next line 0.
func (p *PPU) Framebuffer() []byte { return p.fb[:] }

func (p *PPU) vramRead(addr uint16) byte {
	if addr >= 0x8000 && addr <= 0x9FFF {
		return p.vram[addr-0x8000]
	}
	return 0xFF
}
