package serial

import "testing"

func TestTransferCompletesAfterEightShifts(t *testing.T) {
	var ifReg byte
	s := New(&ifReg)
	s.WriteSB(0x42)
	s.WriteSC(0x81) // start, internal clock

	s.Tick(8*dotsPerShift - 1)
	if ifReg&(1<<3) != 0 {
		t.Fatalf("transfer completed one dot early, IF=%#02x", ifReg)
	}
	s.Tick(1)
	if ifReg&(1<<3) == 0 {
		t.Fatalf("expected serial IF bit 3 set after 8 shifts, IF=%#02x", ifReg)
	}
	if s.ReadSC()&0x80 != 0 {
		t.Fatalf("expected SC start bit cleared after completion")
	}
}

func TestExternalClockNeverCompletes(t *testing.T) {
	var ifReg byte
	s := New(&ifReg)
	s.WriteSB(0x7F)
	s.WriteSC(0x80) // start, external clock (bit0=0)
	s.Tick(8 * dotsPerShift * 4)
	if ifReg&(1<<3) != 0 {
		t.Fatalf("external-clock transfer should never complete on its own, IF=%#02x", ifReg)
	}
}

func TestOutputCapturesCompletedBytes(t *testing.T) {
	var ifReg byte
	s := New(&ifReg)
	s.WriteSB(0xAA)
	s.WriteSC(0x81)
	s.Tick(8 * dotsPerShift)
	out := s.Output()
	if len(out) != 1 || out[0] != 0xAA {
		t.Fatalf("expected captured byte [0xAA], got %v", out)
	}
}

func TestOutputRingBufferEvictsOldest(t *testing.T) {
	var ifReg byte
	s := New(&ifReg)
	for i := 0; i < bufferCap+3; i++ {
		s.WriteSB(byte(i))
		s.WriteSC(0x81)
		s.Tick(8 * dotsPerShift)
	}
	out := s.Output()
	if len(out) != bufferCap {
		t.Fatalf("expected ring buffer capped at %d, got %d", bufferCap, len(out))
	}
	if out[len(out)-1] != byte((bufferCap+2)%256) {
		t.Fatalf("expected most recent byte last, got %#02x", out[len(out)-1])
	}
}
