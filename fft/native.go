//go:build vkfft && cgo
// +build vkfft,cgo

package fft

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/nebulasdr/nebula/vkfft"
	"github.com/nebulasdr/nebula/vulkan"
)

// nativeTransform runs the transform through VkFFT on a context-owned device.
// One mapped buffer is both input and output; every execute is a full
// copy-in, submit, wait, copy-out round trip.
type nativeTransform struct {
	ctx    *vulkan.Context
	buf    *vulkan.MappedBuffer
	plan   *vkfft.Plan
	cmdBuf vkfft.Handle
	size   int
}

func newNativeTransform(cfg Config) (*nativeTransform, error) {
	if cfg.Size < 8 || cfg.Size&(cfg.Size-1) != 0 {
		return nil, errors.Errorf("GPU transform size %d is not a power of two >= 8", cfg.Size)
	}

	ctx, err := vulkan.NewContext(cfg.DeviceIndex)
	if err != nil {
		return nil, err
	}

	bufSize := uint64(cfg.Size) * 8 // complex64
	buf, err := vulkan.NewMappedBuffer(ctx, bufSize)
	if err != nil {
		ctx.Destroy()
		return nil, err
	}

	h := ctx.Handles()
	plan, err := vkfft.NewPlan(
		vkfft.Handle(h.PhysicalDevice),
		vkfft.Handle(h.Device),
		vkfft.Handle(h.Queue),
		vkfft.Handle(h.CommandPool),
		vkfft.Handle(h.Fence),
		vkfft.Handle(buf.Handle()),
		bufSize,
		uint32(cfg.Size),
	)
	if err != nil {
		buf.Destroy()
		ctx.Destroy()
		return nil, errors.Wrap(err, "failed to build the VkFFT plan")
	}

	return &nativeTransform{
		ctx:    ctx,
		buf:    buf,
		plan:   plan,
		cmdBuf: vkfft.Handle(h.CommandBuffer),
		size:   cfg.Size,
	}, nil
}

func (t *nativeTransform) execute(data []complex64) error {
	raw := complexBytes(data)

	if err := t.buf.Write(raw); err != nil {
		return err
	}
	if err := t.buf.Flush(); err != nil {
		return err
	}

	if err := t.ctx.BeginCommands(); err != nil {
		return err
	}
	if err := t.plan.RecordForward(t.cmdBuf); err != nil {
		return errors.Wrap(err, "failed to record the transform")
	}
	if err := t.ctx.SubmitAndWait(); err != nil {
		return err
	}

	if err := t.buf.Invalidate(); err != nil {
		return err
	}
	return t.buf.Read(raw)
}

func (t *nativeTransform) close() {
	t.plan.Destroy()
	t.buf.Destroy()
	t.ctx.Destroy()
}

// complexBytes views a complex64 slice as the bytes the device sees, without
// copying. complex64 matches the engine's interleaved float32 layout.
func complexBytes(data []complex64) []byte {
	if len(data) == 0 {
		return nil
	}
	n := len(data) * 8
	return (*[1 << 30]byte)(unsafe.Pointer(&data[0]))[:n:n]
}
