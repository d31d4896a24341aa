package sensor

import "testing"

func flatDither() [48]byte {
	var d [48]byte
	for cell := 0; cell < 16; cell++ {
		d[cell*3+0] = 64
		d[cell*3+1] = 128
		d[cell*3+2] = 192
	}
	return d
}

func TestZeroExposureProducesDarkestIndex(t *testing.T) {
	var s Sensor
	img := make([]byte, Width*Height)
	for i := range img {
		img[i] = 255
	}
	s.SetImage(img)
	out := s.Process(Params{Exposure: 0, Gain: 2, EdgeRatio: 0, Dither: flatDither()})
	for i, v := range out {
		if v != 3 {
			t.Fatalf("pixel %d: expected darkest index 3 at zero exposure, got %d", i, v)
		}
	}
}

func TestMaxExposureSaturatesToBrightestIndex(t *testing.T) {
	var s Sensor
	img := make([]byte, Width*Height)
	for i := range img {
		img[i] = 255
	}
	s.SetImage(img)
	out := s.Process(Params{Exposure: 0xFFFF, Gain: 2, EdgeRatio: 0, Dither: flatDither()})
	for i, v := range out {
		if v != 0 {
			t.Fatalf("pixel %d: expected brightest index 0 at max exposure, got %d", i, v)
		}
	}
}

func TestContrastUnsetBeforeFirstProcess(t *testing.T) {
	var s Sensor
	if c := s.Contrast(); c != -1 {
		t.Fatalf("expected -1 contrast before any capture, got %d", c)
	}
}

func TestContrastInRangeForMidGray(t *testing.T) {
	var s Sensor
	img := make([]byte, Width*Height)
	for i := range img {
		img[i] = 128
	}
	s.SetImage(img)
	// exposure=0x0300 is unity gain at gain index 2 (1.0x) so the scaled
	// value stays at the input level; with the flat dither every pixel (128)
	// lands on index 2.
	s.Process(Params{Exposure: 0x0300, Gain: 2, EdgeRatio: 0, Dither: flatDither()})
	c := s.Contrast()
	if c < 0 || c > 15 {
		t.Fatalf("expected contrast in 0..15, got %d", c)
	}
}

func TestEdgeInvertFlipsPolarity(t *testing.T) {
	var s1, s2 Sensor
	img := make([]byte, Width*Height)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if x%2 == 0 {
				img[y*Width+x] = 255
			}
		}
	}
	s1.SetImage(img)
	s2.SetImage(img)
	params := Params{Exposure: 0x0300, Gain: 2, EdgeRatio: 4, Dither: flatDither()}
	out1 := append([]byte{}, s1.Process(params)...)
	params.EdgeInvert = true
	out2 := s2.Process(params)
	same := true
	for i := range out1 {
		if out1[i] != out2[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected edge inversion to change the processed output")
	}
}
