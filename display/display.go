// Package display draws the quantized spectrum as a scrolling terminal
// waterfall. The newest row sits at the top; intensity is mapped onto shade
// runes with an auto-scale driven by a moving window over recent row peaks.
package display

import (
	"context"
	"sync"

	"github.com/nsf/termbox-go"

	"github.com/nebulasdr/nebula/util"
)

const (
	// ScalingWindow is how many seconds of row peaks feed the auto-scale.
	ScalingWindow = 5

	// DynamicRange is the span in quantizer steps between the scale floor
	// and ceiling.
	DynamicRange = 60
)

var shadeRunes = []rune{' ', '░', '▒', '▓', '█'}

// Display is a termbox waterfall. It implements the processor output
// interface; rows arrive on the processing goroutine while the event poller
// runs on its own, so the draw state is mutex-guarded.
type Display struct {
	mu sync.Mutex

	history [][]int8
	window  *util.MovingWindow

	running bool
}

// New returns an uninitialized display. Call Init before drawing.
func New() *Display {
	return &Display{}
}

// Init opens the terminal. sampleRate and frameRate size the auto-scale
// window.
func (d *Display) Init(frameRate int) error {
	if err := termbox.Init(); err != nil {
		return err
	}
	termbox.SetInputMode(termbox.InputEsc)
	termbox.HideCursor()

	if frameRate < 1 {
		frameRate = 30
	}
	d.window = util.NewMovingWindow(ScalingWindow * frameRate)
	d.running = true
	return nil
}

// Start runs the event poller. The returned context is done once the user
// quits with q or Ctrl-C.
func (d *Display) Start(ctx context.Context) context.Context {
	dispCtx, dispCancel := context.WithCancel(ctx)
	go eventPoller(dispCancel, d)
	return dispCtx
}

func eventPoller(fn context.CancelFunc, d *Display) {
	defer fn()

	for {
		ev := termbox.PollEvent()

		switch ev.Type {
		case termbox.EventKey:
			switch {
			case ev.Ch == 'q', ev.Ch == 'Q':
				return
			case ev.Key == termbox.KeyCtrlC, ev.Key == termbox.KeyEsc:
				return
			}

		case termbox.EventInterrupt:
			return

		case termbox.EventError:
			return
		}
	}
}

// Stop wakes the event poller so its context finishes.
func (d *Display) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		termbox.Interrupt()
	}
}

// Close restores the terminal.
func (d *Display) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		termbox.Close()
		d.running = false
	}
}

// Write takes one quantized pyramid and redraws the waterfall. rows and
// offsets are borrowed; the history keeps its own copy.
func (d *Display) Write(rows []int8, offsets []int, peak float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	width, height := termbox.Size()
	if width < 1 || height < 1 {
		return nil
	}

	row := pickLevel(rows, offsets, width)

	keep := make([]int8, len(row))
	copy(keep, row)
	d.history = append([][]int8{keep}, d.history...)
	if len(d.history) > height {
		d.history = d.history[:height]
	}

	// Scale ceiling follows the recent row peaks.
	rowPeak := int8(-128)
	for _, v := range keep {
		if v > rowPeak {
			rowPeak = v
		}
	}
	vMean, vSD := d.window.Update(float64(rowPeak))
	ceil := vMean + 2*vSD
	floor := ceil - DynamicRange

	termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	for y, hRow := range d.history {
		for x := 0; x < width; x++ {
			bin := x * len(hRow) / width
			termbox.SetCell(x, y, shadeRune(float64(hRow[bin]), floor, ceil),
				termbox.ColorDefault, termbox.ColorDefault)
		}
	}
	return termbox.Flush()
}

// pickLevel chooses the deepest pyramid level that still covers the screen
// width, falling back to the full-resolution row.
func pickLevel(rows []int8, offsets []int, width int) []int8 {
	if len(offsets) == 0 {
		return rows
	}

	levelWidth := func(level int) int {
		if level+1 < len(offsets) {
			return offsets[level+1] - offsets[level]
		}
		return len(rows) - offsets[level]
	}

	pick := 0
	for level := len(offsets) - 1; level >= 0; level-- {
		if levelWidth(level) >= width {
			pick = level
			break
		}
	}
	return rows[offsets[pick] : offsets[pick]+levelWidth(pick)]
}

func shadeRune(v, floor, ceil float64) rune {
	if ceil <= floor {
		return shadeRunes[0]
	}
	t := (v - floor) / (ceil - floor)
	idx := int(t * float64(len(shadeRunes)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(shadeRunes) {
		idx = len(shadeRunes) - 1
	}
	return shadeRunes[idx]
}
