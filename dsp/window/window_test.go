package window

import (
	"math"
	"testing"
)

func TestHannEndpointsAndPeak(t *testing.T) {
	buf := ones(64)
	Hann(buf)

	if m := real(buf[0]); m > 1e-6 {
		t.Fatalf("Hann start = %g, want 0", m)
	}
	if m := real(buf[32]); math.Abs(float64(m)-1.0) > 1e-6 {
		t.Fatalf("Hann midpoint = %g, want 1", m)
	}
}

func TestRectangleIsIdentity(t *testing.T) {
	buf := ones(16)
	Rectangle(buf)
	for i, v := range buf {
		if v != 1 {
			t.Fatalf("sample %d = %v, want 1", i, v)
		}
	}
}

func TestWindowsScaleImaginaryPart(t *testing.T) {
	buf := make([]complex64, 32)
	for i := range buf {
		buf[i] = complex(0, 1)
	}
	Hamming(buf)

	if im := imag(buf[0]); im >= 1 {
		t.Fatalf("imaginary part not attenuated: %g", im)
	}
	if re := real(buf[7]); re != 0 {
		t.Fatalf("real part invented from nothing: %g", re)
	}
}

func TestForName(t *testing.T) {
	for _, name := range []string{"", "hann", "hamming", "bartlett", "blackman", "none", "rectangle"} {
		if _, err := ForName(name); err != nil {
			t.Fatalf("ForName(%q): %v", name, err)
		}
	}
	if _, err := ForName("kaiser"); err == nil {
		t.Fatal("expected an error for an unknown name")
	}
}

func ones(size int) []complex64 {
	buf := make([]complex64, size)
	for i := range buf {
		buf[i] = 1
	}
	return buf
}
