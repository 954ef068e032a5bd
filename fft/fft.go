// Package fft computes forward 1-D complex transforms. When built with the
// vkfft tag the transform runs on the GPU through VkFFT; otherwise, or when no
// usable device exists at runtime, it runs on the CPU with gonum. Both
// backends produce unnormalized coefficients in natural order.
package fft

import "github.com/pkg/errors"

// Config selects the transform size and backend.
type Config struct {
	// Size is the number of complex points per transform. The GPU backend
	// additionally requires a power of two of at least 8.
	Size int

	// DeviceIndex picks the Vulkan physical device. Negative means choose
	// the best scoring device.
	DeviceIndex int

	// ForceCPU skips the GPU backend even when it is compiled in.
	ForceCPU bool
}

// transformer is one backend bound to a fixed size.
type transformer interface {
	execute(data []complex64) error
	close()
}

// Plan is a reusable forward transform of a fixed size. A Plan is not safe
// for concurrent use; distinct plans are independent.
type Plan struct {
	size    int
	backend string
	impl    transformer
}

// NewPlan builds a plan, trying the GPU first unless cfg.ForceCPU is set and
// falling back to the CPU when the GPU is unavailable.
func NewPlan(cfg Config) (*Plan, error) {
	if cfg.Size < 1 {
		return nil, errors.Errorf("invalid transform size %d", cfg.Size)
	}

	if !cfg.ForceCPU {
		if impl, err := newNativeTransform(cfg); err == nil {
			return &Plan{size: cfg.Size, backend: "vkfft", impl: impl}, nil
		}
	}

	return &Plan{
		size:    cfg.Size,
		backend: "gonum",
		impl:    newGonumTransform(cfg.Size),
	}, nil
}

// Execute transforms data in place. len(data) must equal the plan size.
func (p *Plan) Execute(data []complex64) error {
	if p == nil || p.impl == nil {
		return errors.New("transform plan is not initialized")
	}
	if len(data) != p.size {
		return errors.Errorf("got %d samples, plan expects %d", len(data), p.size)
	}
	return p.impl.execute(data)
}

// Size returns the number of points per transform.
func (p *Plan) Size() int {
	if p == nil {
		return 0
	}
	return p.size
}

// Backend names the backend the plan runs on, "vkfft" or "gonum".
func (p *Plan) Backend() string {
	if p == nil {
		return ""
	}
	return p.backend
}

// Close releases backend resources. Safe on nil and after a prior Close.
func (p *Plan) Close() {
	if p == nil || p.impl == nil {
		return
	}
	p.impl.close()
	p.impl = nil
}
