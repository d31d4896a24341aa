package ppu

import "testing"

func TestRenderBGRowScrollWrap(t *testing.T) {
	var ifReg byte
	p := New(&ifReg)
	mapBase := uint16(0x9800)
	for tile := 0; tile < 32; tile++ {
		p.vram[mapBase-0x8000+uint16(tile)] = byte(tile)
	}
	for tile := 0; tile < 32; tile++ {
		base := uint16(tile*16) // 0x8000 addressing, offset within vram array
		p.vram[base] = byte(tile)
		p.vram[base+1] = ^byte(tile)
	}
	out := renderBGRow(p, mapBase, true, 4, 0, 0)
	if len(out) != ScreenWidth {
		t.Fatalf("expected %d pixels, got %d", ScreenWidth, len(out))
	}
}

func TestSpriteScanCapsAtTen(t *testing.T) {
	var ifReg byte
	p := New(&ifReg)
	for i := 0; i < 15; i++ {
		base := uint16(i * 4)
		p.oam[base] = 16 // Y maps to screen row 0
		p.oam[base+1] = byte(8 + i)
	}
	got := p.scanSprites(0)
	if len(got) != 10 {
		t.Fatalf("expected at most 10 sprites selected, got %d", len(got))
	}
}

func TestApplyPaletteLevels(t *testing.T) {
	r, g, b := applyPalette(0xE4, 0) // standard identity palette, index 0 -> shade 0 (white)
	if r != 255 || g != 255 || b != 255 {
		t.Fatalf("expected white for palette index 0, got %d %d %d", r, g, b)
	}
	r, g, b = applyPalette(0xE4, 3)
	if r != 0 || g != 0 || b != 0 {
		t.Fatalf("expected black for palette index 3, got %d %d %d", r, g, b)
	}
}
