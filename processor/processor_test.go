package processor

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/nebulasdr/nebula/dsp"
	"github.com/nebulasdr/nebula/dsp/window"
	"github.com/nebulasdr/nebula/fft"
	"github.com/nebulasdr/nebula/input"
)

const sampleSize = 32

type testOutput struct {
	frames int
	peaks  []float64
}

func (o *testOutput) Write(rows []int8, offsets []int, peak float64) error {
	o.frames++
	o.peaks = append(o.peaks, peak)
	return nil
}

func newTestProcessor(t *testing.T, src Source, out Output) *processor {
	t.Helper()

	plan, err := fft.NewPlan(fft.Config{Size: sampleSize, ForceCPU: true})
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	t.Cleanup(plan.Close)

	quant, err := dsp.NewQuantizer(sampleSize, 2)
	if err != nil {
		t.Fatalf("NewQuantizer: %v", err)
	}

	proc, err := New(Config{
		SampleRate: 48000,
		SampleSize: sampleSize,
		Windower:   window.Hann,
		Plan:       plan,
		Quantizer:  quant,
		Source:     src,
		Output:     out,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return proc
}

func TestProcessDrainsSource(t *testing.T) {
	const frames = 5

	raw := bytes.Repeat([]byte{0x80}, frames*sampleSize*2)
	src := input.NewSampleReader(bytes.NewReader(raw), input.FormatU8)
	out := &testOutput{}

	proc := newTestProcessor(t, src, out)
	if err := proc.Process(context.Background()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.frames != frames {
		t.Fatalf("wrote %d frames, want %d", out.frames, frames)
	}
}

func TestProcessStopsOnCancel(t *testing.T) {
	// An endless zero stream; only cancellation can stop the loop.
	src := input.NewSampleReader(endlessZeros{}, input.FormatU8)
	out := &testOutput{}

	proc := newTestProcessor(t, src, out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := proc.Process(ctx); err != context.Canceled {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if out.frames != 1 {
		t.Fatalf("wrote %d frames before noticing cancel, want 1", out.frames)
	}
}

func TestProcessPartialFrameEndsClean(t *testing.T) {
	raw := bytes.Repeat([]byte{0x80}, sampleSize*2+7)
	src := input.NewSampleReader(bytes.NewReader(raw), input.FormatU8)
	out := &testOutput{}

	proc := newTestProcessor(t, src, out)
	if err := proc.Process(context.Background()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.frames != 1 {
		t.Fatalf("wrote %d frames, want 1", out.frames)
	}
}

func TestNewRejectsBadWiring(t *testing.T) {
	plan, err := fft.NewPlan(fft.Config{Size: 16, ForceCPU: true})
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	defer plan.Close()

	quant, err := dsp.NewQuantizer(sampleSize, 1)
	if err != nil {
		t.Fatalf("NewQuantizer: %v", err)
	}

	src := input.NewSampleReader(bytes.NewReader(nil), input.FormatU8)

	// Plan size disagrees with the sample size.
	_, err = New(Config{
		SampleSize: sampleSize,
		Plan:       plan,
		Quantizer:  quant,
		Source:     src,
		Output:     &testOutput{},
	})
	if err == nil {
		t.Fatal("expected an error for a mis-sized plan")
	}

	_, err = New(Config{SampleSize: sampleSize, Plan: nil, Quantizer: quant})
	if err == nil {
		t.Fatal("expected an error for a missing plan")
	}
}

type endlessZeros struct{}

func (endlessZeros) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0x80
	}
	return len(p), nil
}

var _ io.Reader = endlessZeros{}
