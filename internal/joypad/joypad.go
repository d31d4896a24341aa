// Package joypad models the DMG 8-button input matrix exposed at 0xFF00.
//
// Grounded on the original interpreter's joypad module (joypad.rs):
// button state is tracked as "pressed=true" internally and inverted to
// the active-low hardware encoding only when read.
package joypad

import "github.com/dmgcam/gbcam/internal/irq"

// Button indices match the host API's §6 button ordering.
const (
	A = iota
	B
	Select
	Start
	Right
	Left
	Up
	Down
)

type Joypad struct {
	pressed [8]bool

	selectButtons bool
	selectDPad    bool

	ifReg *byte
}

func New(ifReg *byte) *Joypad {
	return &Joypad{ifReg: ifReg}
}

// SetButton updates one button's pressed state, raising IF bit 4 on any
// high-to-low transition of a currently-selected line.
func (j *Joypad) SetButton(index int, pressed bool) {
	if index < 0 || index > 7 {
		return
	}
	before := j.Read()
	j.pressed[index] = pressed
	after := j.Read()
	// Active low: a transition from 1 to 0 on any selected bit triggers IF4.
	if (before&0x0F)&^(after&0x0F) != 0 {
		irq.Request(j.ifReg, irq.Joypad)
	}
}

func (j *Joypad) Read() byte {
	result := byte(0xCF)
	if !j.selectButtons {
		result |= 0x20
	}
	if !j.selectDPad {
		result |= 0x10
	}
	if j.selectButtons {
		if j.pressed[A] {
			result &^= 0x01
		}
		if j.pressed[B] {
			result &^= 0x02
		}
		if j.pressed[Select] {
			result &^= 0x04
		}
		if j.pressed[Start] {
			result &^= 0x08
		}
	}
	if j.selectDPad {
		if j.pressed[Right] {
			result &^= 0x01
		}
		if j.pressed[Left] {
			result &^= 0x02
		}
		if j.pressed[Up] {
			result &^= 0x04
		}
		if j.pressed[Down] {
			result &^= 0x08
		}
	}
	return result
}

func (j *Joypad) Write(value byte) {
	j.selectButtons = value&0x20 == 0
	j.selectDPad = value&0x10 == 0
}
