// Package window provides window functions for spectral analysis of complex
// IQ sample frames.
//
// See https://wikipedia.org/wiki/Window_function
package window

import (
	"math"

	"github.com/pkg/errors"
)

// Function scales a frame of IQ samples in place.
type Function func(buf []complex64)

// Rectangle leaves the frame untouched.
func Rectangle(buf []complex64) {
	// do nothing
}

// CosSum applies a cosine-sum window following a0.
func CosSum(buf []complex64, a0 float64) {
	var size = len(buf)
	var a1 = 1.0 - a0
	var coef = 2.0 * math.Pi / float64(size)
	for n := 0; n < size; n++ {
		w := float32(a0 - a1*math.Cos(coef*float64(n)))
		buf[n] *= complex(w, 0)
	}
}

// Hann applies a Hann window.
func Hann(buf []complex64) {
	CosSum(buf, 0.5)
}

// Hamming applies a Hamming window.
func Hamming(buf []complex64) {
	CosSum(buf, 25.0/46.0)
}

// Bartlett applies a Bartlett window.
func Bartlett(buf []complex64) {
	var size = len(buf)
	var fSize = float64(size)
	for n := 0; n < size; n++ {
		w := float32(1.0 - math.Abs((2.0*float64(n)-fSize)/fSize))
		buf[n] *= complex(w, 0)
	}
}

// Blackman applies a Blackman window.
func Blackman(buf []complex64) {
	var size = len(buf)
	var coef = 2.0 * math.Pi / float64(size)
	for n := 0; n < size; n++ {
		x := coef * float64(n)
		w := float32(0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x))
		buf[n] *= complex(w, 0)
	}
}

// ForName resolves a window function by its config name.
func ForName(name string) (Function, error) {
	switch name {
	case "", "hann":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "bartlett":
		return Bartlett, nil
	case "blackman":
		return Blackman, nil
	case "none", "rectangle":
		return Rectangle, nil
	default:
		return nil, errors.Errorf("unknown window function %q", name)
	}
}
