package emu

import "errors"

// InvalidRom is wrapped by LoadCartridge whenever the supplied image fails
// header validation or names an unsupported cartridge type.
var InvalidRom = errors.New("invalid rom image")

// InvalidSave is wrapped by LoadCartridgeRAM when the supplied save data
// doesn't fit the cartridge currently loaded (wrong size, or no
// battery-backed RAM to load into).
var InvalidSave = errors.New("invalid save data")
