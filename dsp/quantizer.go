// Package dsp turns raw spectra into the quantized log-power rows the
// waterfall consumes. Each frame yields a pyramid: the full-resolution row
// followed by repeatedly halved rows, all packed into one int8 slice.
package dsp

import (
	"math"

	"github.com/pkg/errors"
)

// Quantizer collapses a complex spectrum into a downsample pyramid of int8
// log-power rows. Level 0 holds size bins; every further level sums adjacent
// pairs, halving the width. A Quantizer is not safe for concurrent use.
type Quantizer struct {
	size    int
	sizeLog int
	levels  int
	offsets []int
	total   int

	power []float64
	rows  []int8
	peak  float64
}

// NewQuantizer builds a quantizer for spectra of the given size. size must be
// a power of two and levels must leave at least two bins in the last row.
func NewQuantizer(size, levels int) (*Quantizer, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, errors.Errorf("spectrum size %d is not a power of two", size)
	}
	if levels < 1 {
		return nil, errors.Errorf("need at least one level, got %d", levels)
	}
	if size>>(levels-1) < 2 {
		return nil, errors.Errorf("%d levels exhaust a %d-bin spectrum", levels, size)
	}

	offsets, total := Offsets(levels, size)
	return &Quantizer{
		size:    size,
		sizeLog: int(math.Round(math.Log2(float64(size)))),
		levels:  levels,
		offsets: offsets,
		total:   total,
		power:   make([]float64, size),
		rows:    make([]int8, total),
	}, nil
}

// Offsets returns the start index of each pyramid level inside the packed row
// slice, plus the packed length. Level widths follow baseLen, baseLen/2, ...
func Offsets(levels, baseLen int) ([]int, int) {
	offsets := make([]int, 0, levels)
	cur := 0
	width := baseLen
	for level := 0; level < levels; level++ {
		offsets = append(offsets, cur)
		cur += width
		width /= 2
	}
	return offsets, cur
}

// TotalLen is the packed length of one full pyramid.
func (q *Quantizer) TotalLen() int {
	return q.total
}

// Levels is the number of pyramid levels.
func (q *Quantizer) Levels() int {
	return q.levels
}

// Process fills the pyramid from a spectrum in natural bin order. The rows
// come out shifted so the zero-frequency bin sits at the row center.
// normalize scales each bin's power before the log; pass 1/size² to undo the
// unnormalized transform gain.
func (q *Quantizer) Process(spectrum []complex64, normalize float64) error {
	if len(spectrum) != q.size {
		return errors.Errorf("got %d bins, quantizer expects %d", len(spectrum), q.size)
	}

	q.peak = 0
	half := q.size / 2
	for i, v := range spectrum {
		re := float64(real(v))
		im := float64(imag(v))
		p := (re*re + im*im) * normalize
		// fftshift: negative frequencies first.
		q.power[(i+half)%q.size] = p
		if p > q.peak {
			q.peak = p
		}
	}

	width := q.size
	for level := 0; level < q.levels; level++ {
		row := q.rows[q.offsets[level] : q.offsets[level]+width]
		offset := q.powerOffset(level)
		for i := 0; i < width; i++ {
			row[i] = quantize(q.power[i], offset)
		}
		// Halve for the next level by summing adjacent bins.
		if level+1 < q.levels {
			width /= 2
			for i := 0; i < width; i++ {
				q.power[i] = q.power[2*i] + q.power[2*i+1]
			}
		}
	}
	return nil
}

// Rows returns the packed pyramid filled by the last Process call. The slice
// is reused across calls.
func (q *Quantizer) Rows() []int8 {
	return q.rows
}

// RowOffsets returns the per-level start indexes into Rows.
func (q *Quantizer) RowOffsets() []int {
	return q.offsets
}

// MaxPower is the peak normalized bin power seen by the last Process call.
func (q *Quantizer) MaxPower() float64 {
	return q.peak
}

// powerOffset compensates the per-level gain: summing bin pairs doubles the
// power, so each level shifts the log scale by one step less.
func (q *Quantizer) powerOffset(level int) int {
	if level == 0 {
		return q.sizeLog
	}
	return q.sizeLog - level - 1
}

// quantize maps a power value to one int8 step per dB, offset by the level
// compensation. Zero and denormal powers pin to the floor.
func quantize(p float64, offset int) int8 {
	if p <= 0 || math.IsNaN(p) {
		return -128
	}
	v := math.Round(10*math.Log10(p)) + float64(offset)
	if v < -128 {
		return -128
	}
	if v > 127 {
		return 127
	}
	return int8(v)
}
