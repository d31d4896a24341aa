package emu

// grayLevels maps a 2bpp tile color index (0 brightest, 3 darkest,
// matching the sensor's own index convention) to an RGBA gray level.
var grayLevels = [4][4]byte{
	{0xFF, 0xFF, 0xFF, 0xFF},
	{0xAA, 0xAA, 0xAA, 0xFF},
	{0x55, 0x55, 0x55, 0xFF},
	{0x00, 0x00, 0x00, 0xFF},
}

const (
	photoTilesWide = 16
	photoTilesTall = 14
	photoWidth     = photoTilesWide * 8
	photoHeight    = photoTilesTall * 8
)

// decodeTilePlanar unpacks a 16x14 grid of 2bpp planar tiles (16 bytes
// each, the camera's native capture format) into a 128x112 RGBA image.
// It returns nil if buf isn't sized for that grid.
func decodeTilePlanar(buf []byte) []byte {
	if len(buf) != photoTilesWide*photoTilesTall*16 {
		return nil
	}
	out := make([]byte, photoWidth*photoHeight*4)
	for tileY := 0; tileY < photoTilesTall; tileY++ {
		for tileX := 0; tileX < photoTilesWide; tileX++ {
			tileBase := (tileY*photoTilesWide + tileX) * 16
			for row := 0; row < 8; row++ {
				lo := buf[tileBase+row*2]
				hi := buf[tileBase+row*2+1]
				y := tileY*8 + row
				for col := 0; col < 8; col++ {
					bit := uint(7 - col)
					idx := ((hi>>bit)&1)<<1 | (lo>>bit)&1
					x := tileX*8 + col
					px := (y*photoWidth + x) * 4
					copy(out[px:px+4], grayLevels[idx][:])
				}
			}
		}
	}
	return out
}
