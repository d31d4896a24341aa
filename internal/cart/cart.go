package cart

import "fmt"

// Cartridge is the uniform contract the Bus drives for every cartridge
// variant: ROM/RAM banking over the 0x0000-0x7FFF and 0xA000-0xBFFF
// windows, plus a per-dot Tick for cartridges with internal clocks
// (MBC3's RTC, the imaging MBC's capture-busy countdown).
type Cartridge interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
	Tick(cycles int)
}

// BatteryBacked is implemented by cartridges with persistable external
// RAM. SaveRAM/LoadRAM round-trip the cartridge-RAM window only — not
// internal banking registers, which are session-local per §1's Non-goals
// around save-state serialization.
type BatteryBacked interface {
	SaveRAM() []byte
	LoadRAM(data []byte)
}

// New dispatches on the cartridge-type byte decoded from the header.
// The header must already have been validated by ParseHeader.
func New(rom []byte, h *Header) (Cartridge, error) {
	switch h.CartType {
	case 0x00:
		return NewROMOnly(rom), nil
	case 0x01, 0x02, 0x03:
		return NewMBC1(rom, h.RAMSizeBytes), nil
	case 0x05, 0x06:
		return NewMBC2(rom), nil
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return NewMBC3(rom, h.RAMSizeBytes), nil
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return NewMBC5(rom, h.RAMSizeBytes), nil
	case 0x22:
		return NewMBC7(rom), nil
	case 0xFC:
		return NewCamera(rom, h.RAMSizeBytes), nil
	default:
		return nil, fmt.Errorf("unsupported cartridge type 0x%02X", h.CartType)
	}
}
