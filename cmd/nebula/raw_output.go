package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/nebulasdr/nebula/processor"
)

// RawOutput prints each full-resolution row as text, one line per frame.
// Useful for piping the pipeline into other tools or eyeballing it without a
// terminal UI.
type RawOutput struct {
	w      *bufio.Writer
	frames int
}

var _ processor.Output = &RawOutput{}

// NewRawOutput writes rows to w.
func NewRawOutput(w io.Writer) *RawOutput {
	return &RawOutput{w: bufio.NewWriter(w)}
}

// Write prints the level-0 row and the frame peak.
func (d *RawOutput) Write(rows []int8, offsets []int, peak float64) error {
	width := len(rows)
	if len(offsets) > 1 {
		width = offsets[1]
	}

	d.frames++
	fmt.Fprintf(d.w, "%d %.6g", d.frames, peak)
	for _, v := range rows[:width] {
		fmt.Fprintf(d.w, " %d", v)
	}
	fmt.Fprintln(d.w)

	return d.w.Flush()
}
