//go:build vkfft && cgo
// +build vkfft,cgo

package vkfft_test

import (
	"math"
	"math/cmplx"
	"testing"
	"unsafe"

	"github.com/nebulasdr/nebula/vkfft"
	"github.com/nebulasdr/nebula/vulkan"
)

// newTestRig builds a context, a mapped buffer for size points and a plan, or
// skips when no usable device exists.
func newTestRig(t *testing.T, size int) (*vulkan.Context, *vulkan.MappedBuffer, *vkfft.Plan) {
	t.Helper()

	ctx, err := vulkan.NewContext(-1)
	if err != nil {
		t.Skipf("no usable Vulkan device: %v", err)
	}

	bufSize := uint64(size) * 8
	buf, err := vulkan.NewMappedBuffer(ctx, bufSize)
	if err != nil {
		ctx.Destroy()
		t.Fatalf("NewMappedBuffer: %v", err)
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
		uint32(size),
	)
	if err != nil {
		buf.Destroy()
		ctx.Destroy()
		t.Fatalf("NewPlan: %v", err)
	}

	t.Cleanup(func() {
		plan.Destroy()
		buf.Destroy()
		ctx.Destroy()
	})
	return ctx, buf, plan
}

func TestForwardTransformMatchesDFT(t *testing.T) {
	const size = 1024

	ctx, buf, plan := newTestRig(t, size)

	input := make([]complex64, size)
	c := 0.0
	for i := range input {
		c += 0.1
		input[i] = complex(float32(math.Sin(c)), float32(math.Cos(3*c)))
	}

	raw := (*[1 << 30]byte)(unsafe.Pointer(&input[0]))[: size*8 : size*8]
	if err := buf.Write(raw); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := buf.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if err := ctx.BeginCommands(); err != nil {
		t.Fatalf("BeginCommands: %v", err)
	}
	if err := plan.RecordForward(vkfft.Handle(ctx.Handles().CommandBuffer)); err != nil {
		t.Fatalf("RecordForward: %v", err)
	}
	if err := ctx.SubmitAndWait(); err != nil {
		t.Fatalf("SubmitAndWait: %v", err)
	}
	if err := buf.Invalidate(); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	out := make([]complex64, size)
	outRaw := (*[1 << 30]byte)(unsafe.Pointer(&out[0]))[: size*8 : size*8]
	if err := buf.Read(outRaw); err != nil {
		t.Fatalf("Read: %v", err)
	}

	// Spot-check a few bins against the direct sum.
	for _, k := range []int{0, 1, 17, size / 2, size - 1} {
		var want complex128
		for j := 0; j < size; j++ {
			angle := -2 * math.Pi * float64(k) * float64(j) / float64(size)
			want += complex128(input[j]) * cmplx.Exp(complex(0, angle))
		}
		tol := 1e-3 * (1 + cmplx.Abs(want))
		if d := cmplx.Abs(complex128(out[k]) - want); d > tol {
			t.Fatalf("bin %d: got %v, want %v (delta %g)", k, out[k], want, d)
		}
	}
}

func TestRecordForwardOnNilPlan(t *testing.T) {
	var plan *vkfft.Plan

	err := plan.RecordForward(0)
	if err == nil {
		t.Fatal("expected the engine's not-initialized code")
	}
	if msg := err.Error(); msg == "" {
		t.Fatal("error has an empty description")
	}
}

func TestDestroyIsNilSafe(t *testing.T) {
	var plan *vkfft.Plan
	plan.Destroy()
	plan.Destroy()
}

func TestErrorString(t *testing.T) {
	if s := vkfft.ErrorString(vkfft.Success); s == "" {
		t.Fatal("success code has an empty description")
	}
	// Out-of-range codes still come back as printable text.
	if s := vkfft.ErrorString(vkfft.Result(-12345)); s == "" {
		t.Fatal("unknown code has an empty description")
	}
}

func TestPlansAreIndependent(t *testing.T) {
	ctx, _, plan := newTestRig(t, 256)

	buf2, err := vulkan.NewMappedBuffer(ctx, 256*8)
	if err != nil {
		t.Fatalf("NewMappedBuffer: %v", err)
	}
	defer buf2.Destroy()

	h := ctx.Handles()
	plan2, err := vkfft.NewPlan(
		vkfft.Handle(h.PhysicalDevice),
		vkfft.Handle(h.Device),
		vkfft.Handle(h.Queue),
		vkfft.Handle(h.CommandPool),
		vkfft.Handle(h.Fence),
		vkfft.Handle(buf2.Handle()),
		256*8,
		256,
	)
	if err != nil {
		t.Fatalf("second NewPlan: %v", err)
	}

	// Destroying one plan leaves the other usable.
	plan2.Destroy()

	if err := ctx.BeginCommands(); err != nil {
		t.Fatalf("BeginCommands: %v", err)
	}
	if err := plan.RecordForward(vkfft.Handle(h.CommandBuffer)); err != nil {
		t.Fatalf("RecordForward after destroying the sibling: %v", err)
	}
	if err := ctx.SubmitAndWait(); err != nil {
		t.Fatalf("SubmitAndWait: %v", err)
	}
}
