package fft

import "gonum.org/v1/gonum/dsp/fourier"

type gonumTransform struct {
	fft *fourier.CmplxFFT
	in  []complex128
	out []complex128
}

func newGonumTransform(size int) *gonumTransform {
	return &gonumTransform{
		fft: fourier.NewCmplxFFT(size),
		in:  make([]complex128, size),
		out: make([]complex128, size),
	}
}

func (t *gonumTransform) execute(data []complex64) error {
	for i, v := range data {
		t.in[i] = complex128(v)
	}
	t.fft.Coefficients(t.out, t.in)
	for i, v := range t.out {
		data[i] = complex64(v)
	}
	return nil
}

func (t *gonumTransform) close() {}
