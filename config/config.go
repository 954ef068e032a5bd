// Package config holds the runtime parameters shared by the command line
// front end and the processing pipeline.
package config

import "errors"

// Config is the full set of runtime parameters.
type Config struct {
	// SampleRate is the rate at which IQ samples arrive
	SampleRate float64
	// SampleSize is the number of samples per frame and the transform size
	SampleSize int
	// SampleFormat is the wire format name from input.ParseFormat
	SampleFormat string
	// FrameRate is the number of frames to process every second (0 paces
	// by the input stream)
	FrameRate int
	// Levels is the number of downsample levels in the quantized pyramid
	Levels int
	// DeviceIndex picks the Vulkan device; negative picks the best one
	DeviceIndex int
	// ForceCPU skips the GPU transform even when it is available
	ForceCPU bool
	// Window is the window function name from window.ForName
	Window string
	// Normalize overrides the power scale (0 uses 1/size²)
	Normalize float64
	// Raw prints rows as text instead of drawing the waterfall
	Raw bool
}

// NewZeroConfig returns the default config.
func NewZeroConfig() Config {
	return Config{
		SampleRate:   2048000,
		SampleSize:   1024,
		SampleFormat: "u8",
		FrameRate:    30,
		Levels:       4,
		DeviceIndex:  -1,
		Window:       "hann",
	}
}

// Sanitize validates the config and normalizes what it can.
func (cfg *Config) Sanitize() error {
	if cfg.SampleSize < 4 {
		return errors.New("sample size too small (4+ required)")
	}

	if cfg.SampleSize&(cfg.SampleSize-1) != 0 {
		return errors.New("sample size must be a power of two")
	}

	if cfg.SampleRate < float64(cfg.SampleSize) {
		return errors.New("sample rate lower than sample size")
	}

	if cfg.Levels < 1 {
		cfg.Levels = 1
	}

	if cfg.SampleSize>>(cfg.Levels-1) < 2 {
		return errors.New("too many downsample levels for the sample size")
	}

	if cfg.FrameRate < 0 {
		cfg.FrameRate = 0
	}

	return nil
}
