// Package processor drives the capture-transform-quantize loop: it pulls IQ
// frames from the source, windows them, runs the transform and hands the
// quantized rows to the output at the configured pace.
package processor

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/nebulasdr/nebula/dsp"
	"github.com/nebulasdr/nebula/dsp/window"
	"github.com/nebulasdr/nebula/fft"
)

// Source yields one frame of IQ samples per call.
type Source interface {
	ReadFrame(dst []complex64) error
}

// Output consumes one quantized pyramid per processing pass. rows and
// offsets are reused across calls; implementations must copy what they keep.
type Output interface {
	Write(rows []int8, offsets []int, peak float64) error
}

// Config wires one processing loop together.
type Config struct {
	SampleRate  float64         // rate at which samples arrive
	SampleSize  int             // samples per frame, equals the transform size
	ProcessRate int             // target frames per second, 0 paces by input
	Normalize   float64         // power scale, 0 means 1/size²
	Windower    window.Function // applied before the transform
	Plan        *fft.Plan       // transform, sized SampleSize
	Quantizer   *dsp.Quantizer  // pyramid builder, sized SampleSize
	Source      Source          // sample input
	Output      Output          // row consumer
}

type processor struct {
	sampleSize  int
	processRate int
	normalize   float64

	frame []complex64

	plan  *fft.Plan
	quant *dsp.Quantizer
	src   Source
	out   Output
	wndwr window.Function
}

// New validates the wiring and builds a processor.
func New(cfg Config) (*processor, error) {
	if cfg.SampleSize < 1 {
		return nil, errors.Errorf("invalid sample size %d", cfg.SampleSize)
	}
	if cfg.Plan == nil || cfg.Quantizer == nil {
		return nil, errors.New("processor needs a transform plan and a quantizer")
	}
	if cfg.Plan.Size() != cfg.SampleSize {
		return nil, errors.Errorf("plan size %d does not match sample size %d",
			cfg.Plan.Size(), cfg.SampleSize)
	}
	if cfg.Source == nil || cfg.Output == nil {
		return nil, errors.New("processor needs a source and an output")
	}

	normalize := cfg.Normalize
	if normalize == 0 {
		size := float64(cfg.SampleSize)
		normalize = 1 / (size * size)
	}

	return &processor{
		sampleSize:  cfg.SampleSize,
		processRate: cfg.ProcessRate,
		normalize:   normalize,
		frame:       make([]complex64, cfg.SampleSize),
		plan:        cfg.Plan,
		quant:       cfg.Quantizer,
		src:         cfg.Source,
		out:         cfg.Output,
		wndwr:       cfg.Windower,
	}, nil
}

// Process runs the loop until the context is done or the source drains. A
// clean end of input is not an error.
func (p *processor) Process(ctx context.Context) error {
	var ticker *time.Ticker
	if p.processRate > 0 {
		ticker = time.NewTicker(time.Second / time.Duration(p.processRate))
		defer ticker.Stop()
	}

	for {
		if err := p.src.ReadFrame(p.frame); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return err
		}

		if p.wndwr != nil {
			p.wndwr(p.frame)
		}

		if err := p.plan.Execute(p.frame); err != nil {
			return errors.Wrap(err, "transform failed")
		}
		if err := p.quant.Process(p.frame, p.normalize); err != nil {
			return err
		}

		err := p.out.Write(p.quant.Rows(), p.quant.RowOffsets(), p.quant.MaxPower())
		if err != nil {
			return errors.Wrap(err, "output rejected a frame")
		}

		if ticker == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
