package ppu

// sprite is one OAM entry selected for the current scanline.
type sprite struct {
	y, x     int
	tile     byte
	attr     byte
	oamIndex int
}

// dmgShades are the four grayscale levels a 2-bit DMG color index maps to
// through a palette register, lightest first.
var dmgShades = [4][3]byte{
	{255, 255, 255},
	{170, 170, 170},
	{85, 85, 85},
	{0, 0, 0},
}

func applyPalette(pal byte, colorIdx byte) (r, g, b byte) {
	shade := (pal >> (colorIdx * 2)) & 0x03
	c := dmgShades[shade]
	return c[0], c[1], c[2]
}

// scanSprites selects up to 10 sprites covering the given line: the first
// 10 matches of a linear OAM walk, returned in OAM order. Overlap priority
// (lower X, then lower OAM index) is applied by renderSpritesLine.
func (p *PPU) scanSprites(ly int) []sprite {
	sprite16 := p.lcdc&0x04 != 0
	height := 8
	if sprite16 {
		height = 16
	}
	out := make([]sprite, 0, 10)
	for i := 0; i < 40 && len(out) < 10; i++ {
		base := uint16(i * 4)
		sy := int(p.oam[base]) - 16
		if ly < sy || ly >= sy+height {
			continue
		}
		sx := int(p.oam[base+1]) - 8
		out = append(out, sprite{
			y: sy, x: sx,
			tile:     p.oam[base+2],
			attr:     p.oam[base+3],
			oamIndex: i,
		})
	}
	return out
}

// renderLine composes background, window, and sprites for scanline y into
// the framebuffer, using the register snapshot captured when this line's
// OAM-scan phase began.
func (p *PPU) renderLine(y int) {
	if y < 0 || y >= ScreenHeight {
		return
	}
	lr := p.lineRegs[y]

	var bgColorIdx [ScreenWidth]byte
	if lr.LCDC&0x01 != 0 {
		mapBase := uint16(0x9800)
		if lr.LCDC&0x08 != 0 {
			mapBase = 0x9C00
		}
		tileData8000 := lr.LCDC&0x10 != 0
		bgColorIdx = renderBGRow(p, mapBase, tileData8000, lr.SCX, lr.SCY, byte(y))
	}

	if lr.WindowActiveThisLine {
		p.renderWindowLine(lr, &bgColorIdx)
	}

	for x := 0; x < ScreenWidth; x++ {
		r, g, b := applyPalette(lr.BGP, bgColorIdx[x])
		p.setPixel(x, y, r, g, b)
	}

	if lr.LCDC&0x02 != 0 {
		p.renderSpritesLine(y, lr, bgColorIdx)
	}
}

func (p *PPU) setPixel(x, y int, r, g, b byte) {
	off := (y*ScreenWidth + x) * 4
	p.fb[off] = r
	p.fb[off+1] = g
	p.fb[off+2] = b
	p.fb[off+3] = 255
}

func renderBGRow(p *PPU, mapBase uint16, tileData8000 bool, scx, scy, ly byte) [ScreenWidth]byte {
	var out [ScreenWidth]byte
	bgY := uint16(ly) + uint16(scy)
	fineY := byte(bgY & 7)
	mapY := (bgY >> 3) & 31

	var q fifo
	f := newBGFetcher(vramAdapter{p}, &q)

	startX := uint16(scx)
	tileX := (startX >> 3) & 31
	fineX := int(startX & 7)
	tileIndexAddr := mapBase + mapY*32 + tileX
	f.Configure(mapBase, tileData8000, tileIndexAddr, fineY)
	f.Fetch()
	for i := 0; i < fineX; i++ {
		q.Pop()
	}

	for x := 0; x < ScreenWidth; x++ {
		if q.Len() == 0 {
			tileX = (tileX + 1) & 31
			tileIndexAddr = mapBase + mapY*32 + tileX
			f.Configure(mapBase, tileData8000, tileIndexAddr, fineY)
			f.Fetch()
		}
		px, _ := q.Pop()
		out[x] = px
	}
	return out
}

func (p *PPU) renderWindowLine(lr LineRegs, bgColorIdx *[ScreenWidth]byte) {
	mapBase := uint16(0x9800)
	if lr.LCDC&0x40 != 0 {
		mapBase = 0x9C00
	}
	tileData8000 := lr.LCDC&0x10 != 0
	winXStart := int(lr.WX) - 7

	fineY := lr.WinLine & 7
	mapY := uint16(lr.WinLine>>3) & 31

	var q fifo
	f := newBGFetcher(vramAdapter{p}, &q)
	tileX := uint16(0)
	tileIndexAddr := mapBase + mapY*32 + tileX
	f.Configure(mapBase, tileData8000, tileIndexAddr, fineY)
	f.Fetch()

	for x := winXStart; x < ScreenWidth; x++ {
		if x < 0 {
			if q.Len() == 0 {
				tileX = (tileX + 1) & 31
				tileIndexAddr = mapBase + mapY*32 + tileX
				f.Configure(mapBase, tileData8000, tileIndexAddr, fineY)
				f.Fetch()
			}
			q.Pop()
			continue
		}
		if q.Len() == 0 {
			tileX = (tileX + 1) & 31
			tileIndexAddr = mapBase + mapY*32 + tileX
			f.Configure(mapBase, tileData8000, tileIndexAddr, fineY)
			f.Fetch()
		}
		px, _ := q.Pop()
		bgColorIdx[x] = px
	}
}

func (p *PPU) renderSpritesLine(y int, lr LineRegs, bgColorIdx [ScreenWidth]byte) {
	sprites := p.scanSprites(y)
	sprite16 := lr.LCDC&0x04 != 0

	// Stable sort by X so that, drawing back to front, the lowest X wins
	// and equal X falls back to the lower OAM index.
	for i := 1; i < len(sprites); i++ {
		for j := i; j > 0 && sprites[j].x < sprites[j-1].x; j-- {
			sprites[j], sprites[j-1] = sprites[j-1], sprites[j]
		}
	}

	for i := len(sprites) - 1; i >= 0; i-- {
		s := sprites[i]
		flipX := s.attr&0x20 != 0
		flipY := s.attr&0x40 != 0
		behindBG := s.attr&0x80 != 0
		pal := lr.OBP0
		if s.attr&0x10 != 0 {
			pal = lr.OBP1
		}

		row := y - s.y
		if flipY {
			if sprite16 {
				row = 15 - row
			} else {
				row = 7 - row
			}
		}
		tile := s.tile
		if sprite16 {
			tile &^= 0x01
			if row >= 8 {
				tile |= 0x01
				row -= 8
			}
		}
		base := 0x8000 + uint16(tile)*16 + uint16(row)*2
		lo := p.vramRead(base)
		hi := p.vramRead(base + 1)

		for col := 0; col < 8; col++ {
			sx := s.x + col
			if sx < 0 || sx >= ScreenWidth {
				continue
			}
			bit := col
			if !flipX {
				bit = 7 - col
			}
			ci := ((hi>>bit)&1)<<1 | ((lo >> bit) & 1)
			if ci == 0 {
				continue
			}
			if behindBG && bgColorIdx[sx] != 0 {
				continue
			}
			r, g, b := applyPalette(pal, ci)
			p.setPixel(sx, y, r, g, b)
		}
	}
}

type vramAdapter struct{ p *PPU }

func (a vramAdapter) Read(addr uint16) byte { return a.p.vramRead(addr) }
