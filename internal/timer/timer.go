// Package timer models the DMG DIV/TIMA/TMA/TAC peripheral.
//
// Grounded on the falling-edge detector documented for DMG hardware and
// on the original interpreter's timer module (timer.rs), adapted from its
// "&InterruptController" callback style to a shared IF-byte-pointer field.
package timer

import "github.com/dmgcam/gbcam/internal/irq"

// selectedBit maps TAC's low two bits to the DIV bit that gates TIMA.
var selectedBit = [4]uint{9, 3, 5, 7}

// Timer tracks the free-running 16-bit DIV counter and the TIMA overflow
// pipeline, including the documented 4-dot reload delay.
type Timer struct {
	div  uint16 // internal 16-bit counter; DIV register is the high byte
	tima byte
	tma  byte
	tac  byte

	prevEdge    bool
	reloadDelay int // dots remaining until TIMA<-TMA and IF bit2, -1 when idle

	ifReg *byte
}

func New(ifReg *byte) *Timer {
	return &Timer{tac: 0xF8, reloadDelay: -1, ifReg: ifReg}
}

func (t *Timer) enabled() bool { return t.tac&0x04 != 0 }

func (t *Timer) edgeBit() bool {
	bit := selectedBit[t.tac&0x03]
	return (t.div>>bit)&1 != 0 && t.enabled()
}

// Tick advances the timer by the given number of dot-cycles.
func (t *Timer) Tick(cycles int) {
	for i := 0; i < cycles; i++ {
		t.tickOne()
	}
}

func (t *Timer) tickOne() {
	if t.reloadDelay >= 0 {
		t.reloadDelay--
		if t.reloadDelay < 0 {
			t.tima = t.tma
			irq.Request(t.ifReg, irq.Timer)
		}
	}

	t.div++
	edge := t.edgeBit()
	if t.prevEdge && !edge {
		t.incTIMA()
	}
	t.prevEdge = edge
}

func (t *Timer) incTIMA() {
	t.tima++
	if t.tima == 0 {
		// Overflow: TIMA reads 0x00 for 4 dots before TMA is loaded. The
		// countdown is checked at the top of the next tickOne calls, so it
		// starts one dot short of the visible delay.
		t.reloadDelay = 3
	}
}

func (t *Timer) ReadDIV() byte { return byte(t.div >> 8) }

func (t *Timer) WriteDIV() {
	edge := t.edgeBit()
	t.div = 0
	if t.prevEdge && !edge {
		t.incTIMA()
	}
	t.prevEdge = t.edgeBit()
}

func (t *Timer) ReadTIMA() byte { return t.tima }
func (t *Timer) WriteTIMA(v byte) {
	t.tima = v
	t.reloadDelay = -1
}

func (t *Timer) ReadTMA() byte    { return t.tma }
func (t *Timer) WriteTMA(v byte)  { t.tma = v }
func (t *Timer) ReadTAC() byte    { return t.tac | 0xF8 }

// WriteTAC applies the documented "spurious increment" rule: changing
// either the enable bit or the selected DIV bit can itself create a
// falling edge on the internal signal, incrementing TIMA once.
func (t *Timer) WriteTAC(v byte) {
	before := t.edgeBit()
	t.tac = v & 0x07
	after := t.edgeBit()
	if before && !after {
		t.incTIMA()
	}
	t.prevEdge = after
}
