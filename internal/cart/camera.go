package cart

import "github.com/dmgcam/gbcam/internal/sensor"

// busyDots is the fixed delay, in dot-cycles, from the triggering register
// write to the busy bit clearing. Chosen to approximate real M64282FP
// exposure+readout latency while staying shorter than one frame (70224
// dot-cycles), so busy clears in the step_frame call that contains the
// trigger or the next one, resolving the distilled specification's open question
// on busy-release timing.
const busyDots = 32446

// photoTiles is the tile-planar photo buffer: 16 tiles wide by 14 tall,
// 16 bytes per tile (2bpp planar), covering exactly the sensor's 128x112
// output, with no header rows.
const (
	photoTilesWide = 16
	photoTilesTall = 14
	photoBytes     = photoTilesWide * photoTilesTall * 16

	ramBankSize = 0x2000

	// activeCaptureOffset is where the cartridge's own ROM code looks for
	// the most recent capture: SRAM bank 0, offset 0x0100, exactly as the
	// real camera's register interface documents it.
	activeCaptureOffset = 0x0100

	// savedPhotoStateOffset is the 30-byte occupancy vector saved-photo
	// ROMs keep at SRAM bank 0, one byte per slot 1..30; 0xFF means the
	// slot is erased/unused.
	savedPhotoStateOffset = 0x11B2
)

// Camera implements the imaging MBC: ROM/RAM banking identical in shape to
// MBC1/MBC3, plus a camera register file mapped over the external-RAM
// window when bit 4 of the RAM-bank-select write is set.
//
// RAM-enable gates the register file exactly as it gates plain cartridge
// RAM on every other controller here — no PocketCamera-style bypass. See
// the cartridge section's resolution note for why this implementation
// rejects the original source's more permissive behavior.
type Camera struct {
	rom []byte
	ram []byte

	ramEnabled  bool
	romBank     byte
	ramBank     byte
	registerSel bool // RAM-bank-select bit4: registers instead of RAM

	regs    [56]byte // reg0 trigger/status, reg1-5 config, reg6-53 dither matrix
	busy    bool
	busyLeft int

	sensor sensor.Sensor
}

func NewCamera(rom []byte, ramSize int) *Camera {
	c := &Camera{rom: rom, romBank: 1}
	if ramSize > 0 {
		c.ram = make([]byte, ramSize)
	}
	return c
}

// SetImage forwards a host-supplied luminance frame to the sensor.
func (c *Camera) SetImage(img []byte) { c.sensor.SetImage(img) }

func (c *Camera) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		if int(addr) < len(c.rom) {
			return c.rom[addr]
		}
		return 0xFF
	case addr < 0x8000:
		bank := int(c.romBank & 0x7F)
		if bank == 0 {
			bank = 1
		}
		off := bank*0x4000 + int(addr-0x4000)
		if off < len(c.rom) {
			return c.rom[off]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !c.ramEnabled {
			return 0xFF
		}
		if c.registerSel {
			return c.readRegister(addr)
		}
		if len(c.ram) == 0 {
			return 0xFF
		}
		off := int(c.ramBank&0x0F)*0x2000 + int(addr-0xA000)
		if off < len(c.ram) {
			return c.ram[off]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (c *Camera) readRegister(addr uint16) byte {
	idx := int(addr-0xA000) & 0x7F
	if idx == 0 {
		if c.busy {
			return 0x01
		}
		return 0x00
	}
	if idx >= len(c.regs) {
		return 0xFF
	}
	return c.regs[idx]
}

func (c *Camera) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		c.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		v := value & 0x7F
		if v == 0 {
			v = 1
		}
		c.romBank = v
	case addr < 0x6000:
		c.registerSel = value&0x10 != 0
		c.ramBank = value & 0x0F
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !c.ramEnabled {
			return
		}
		if c.registerSel {
			c.writeRegister(addr, value)
			return
		}
		if len(c.ram) == 0 {
			return
		}
		off := int(c.ramBank&0x0F)*0x2000 + int(addr-0xA000)
		if off < len(c.ram) {
			c.ram[off] = value
		}
	}
}

func (c *Camera) writeRegister(addr uint16, value byte) {
	idx := int(addr-0xA000) & 0x7F
	if idx == 0 {
		if value&0x01 != 0 && !c.busy {
			c.busy = true
			c.busyLeft = busyDots
		}
		return
	}
	if idx >= len(c.regs) {
		return
	}
	c.regs[idx] = value
}

func (c *Camera) sensorParams() sensor.Params {
	edgeCfg := c.regs[3]
	var dither [48]byte
	copy(dither[:], c.regs[6:54])
	return sensor.Params{
		Exposure:      uint16(c.regs[1])<<8 | uint16(c.regs[2]),
		Gain:          (edgeCfg >> 4) & 0x03,
		EdgeRatio:     edgeCfg & 0x07,
		EdgeInvert:    edgeCfg&0x08 != 0,
		VoltageOffset: c.regs[4],
		Dither:        dither,
	}
}

func (c *Camera) Tick(cycles int) {
	if !c.busy {
		return
	}
	c.busyLeft -= cycles
	if c.busyLeft > 0 {
		return
	}
	c.busyLeft = 0
	c.busy = false
	c.capture()
}

// capture runs the sensor pipeline and packs the resulting 2-bit index
// image into the cartridge's own RAM at the active-capture offset, the
// same SRAM bank-0 region the guest ROM's viewfinder and save routines
// read from.
func (c *Camera) capture() {
	if len(c.ram) < activeCaptureOffset+photoBytes {
		return
	}
	indices := c.sensor.Process(c.sensorParams())
	dst := c.ram[activeCaptureOffset : activeCaptureOffset+photoBytes]
	for tileY := 0; tileY < photoTilesTall; tileY++ {
		for tileX := 0; tileX < photoTilesWide; tileX++ {
			tileBase := (tileY*photoTilesWide + tileX) * 16
			for row := 0; row < 8; row++ {
				srcY := tileY*8 + row
				var lo, hi byte
				for col := 0; col < 8; col++ {
					srcX := tileX*8 + col
					var idx byte
					if srcY < sensor.Height && srcX < sensor.Width {
						idx = indices[srcY*sensor.Width+srcX]
					}
					bit := uint(7 - col)
					lo |= (idx & 0x01) << bit
					hi |= ((idx >> 1) & 0x01) << bit
				}
				dst[tileBase+row*2] = lo
				dst[tileBase+row*2+1] = hi
			}
		}
	}
}

// Photo returns the tile-planar buffer for the given photo slot, read
// directly out of cartridge RAM. Slot 0 is the active capture buffer at
// SRAM bank 0 offset 0x0100. Slots 1..30 are saved photos, two per bank
// across banks 1..15, gated by the 30-byte occupancy vector at SRAM bank
// 0 offset 0x11B2; an erased (0xFF) or out-of-range slot returns nil.
func (c *Camera) Photo(slot int) []byte {
	if slot < 0 || slot > 30 {
		return nil
	}
	if slot >= 1 {
		stateIdx := savedPhotoStateOffset + (slot - 1)
		if stateIdx >= len(c.ram) || c.ram[stateIdx] == 0xFF {
			return nil
		}
	}

	var off int
	if slot == 0 {
		off = activeCaptureOffset
	} else {
		adjusted := slot - 1
		bank := adjusted/2 + 1
		offsetInBank := (adjusted % 2) * 0x1000
		off = bank*ramBankSize + offsetInBank
	}
	if off+photoBytes > len(c.ram) {
		return nil
	}
	return c.ram[off : off+photoBytes]
}

// Contrast exposes the sensor's coarse quality estimate for the last
// capture, or -1 if none has run yet.
func (c *Camera) Contrast() int { return c.sensor.Contrast() }

func (c *Camera) SaveRAM() []byte {
	if len(c.ram) == 0 {
		return nil
	}
	out := make([]byte, len(c.ram))
	copy(out, c.ram)
	return out
}

func (c *Camera) LoadRAM(data []byte) {
	if len(c.ram) == 0 {
		return
	}
	copy(c.ram, data)
}
