package util

import "math"

// MovingWindow keeps running mean and standard deviation over the last Cap
// values pushed into it. Values live in a ring buffer; the running sums are
// adjusted incrementally so Update stays O(1).
type MovingWindow struct {
	values []float64
	head   int
	length int

	sum      float64
	variance float64

	average float64
	stddev  float64
}

// NewMovingWindow returns a window holding up to size values.
func NewMovingWindow(size int) *MovingWindow {
	return &MovingWindow{
		values: make([]float64, size),
	}
}

func (mw *MovingWindow) calcFinal() (float64, float64) {
	if mw.length > 0 {
		mw.average = mw.sum / float64(mw.length)
	} else {
		mw.average = 0
	}

	if mw.length > 1 {
		// population-style estimate, from dpayne/cli-visualizer
		mw.stddev = (mw.variance / float64(mw.length-1)) - (mw.average * mw.average)
		mw.stddev = math.Sqrt(math.Abs(mw.stddev))
	} else {
		mw.stddev = 0
	}

	return mw.average, mw.stddev
}

// Update pushes a value, evicting the oldest once the window is full, and
// returns the new mean and standard deviation.
func (mw *MovingWindow) Update(value float64) (float64, float64) {
	if mw.length < len(mw.values) {
		mw.values[(mw.head+mw.length)%len(mw.values)] = value
		mw.length++

		mw.sum += value
		mw.variance += value * value
	} else {
		old := mw.values[mw.head]
		mw.values[mw.head] = value
		mw.head = (mw.head + 1) % len(mw.values)

		mw.sum += value - old
		mw.variance += value*value - old*old
	}

	return mw.calcFinal()
}

// Drop removes the oldest count values and returns the new mean and standard
// deviation.
func (mw *MovingWindow) Drop(count int) (float64, float64) {
	for count > 0 && mw.length > 0 {
		old := mw.values[mw.head]
		mw.head = (mw.head + 1) % len(mw.values)
		mw.length--

		mw.sum -= old
		mw.variance -= old * old
		count--
	}

	// Reset the accumulators when they can no longer matter, so rounding
	// drift does not survive an empty window.
	if mw.length < 2 {
		mw.variance = 0
		if mw.length < 1 {
			mw.sum = 0
		}
	}

	return mw.calcFinal()
}

// Len returns how many values are in the window.
func (mw *MovingWindow) Len() int {
	return mw.length
}

// Cap returns the maximum window size.
func (mw *MovingWindow) Cap() int {
	return len(mw.values)
}

// Mean is the moving average.
func (mw *MovingWindow) Mean() float64 {
	return mw.average
}

// StdDev is the moving standard deviation.
func (mw *MovingWindow) StdDev() float64 {
	return mw.stddev
}

// Stats returns the mean and standard deviation together.
func (mw *MovingWindow) Stats() (float64, float64) {
	return mw.average, mw.stddev
}
