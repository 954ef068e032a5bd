//go:build vkfft && cgo
// +build vkfft,cgo

// Package vkfft is a thin bridge to the VkFFT engine. It records the GPU
// dispatch commands for a forward 1-D complex transform into a caller-owned
// Vulkan command buffer.
//
// The package never owns Vulkan resources. A Plan borrows raw handles for a
// physical device, logical device, queue, command pool, fence and one data
// buffer; the caller must keep all of them alive until the plan is destroyed,
// and stays responsible for command buffer submission and synchronization.
//
// A Plan is not safe for concurrent use. Distinct plans are independent and
// may be used from different goroutines without coordination.
package vkfft

/*
#cgo CXXFLAGS: -std=c++17 -O2
#cgo LDFLAGS: -lvulkan
#include "bridge.h"
*/
import "C"

// Native reports whether the engine is compiled in.
const Native = true

// Handle is an opaque, process-local reference to a Vulkan object, passed as
// a raw 64-bit value. No validation of liveness or type is done here; the
// owner must guarantee the resource outlives every operation that borrows it.
type Handle uint64

// Result is a code from the engine's result enumeration. Zero is success.
type Result int32

// Success is the engine's success code.
const Success Result = 0

// Error implements error with the engine's description of the code.
func (r Result) Error() string {
	return ErrorString(r)
}

// errOrNil turns an engine code into an error, keeping the code intact.
func errOrNil(code C.int32_t) error {
	if r := Result(code); r != Success {
		return r
	}
	return nil
}

// Plan is one configured forward transform over a fixed buffer and length.
// It owns only engine state; every Vulkan resource it references is borrowed.
type Plan struct {
	ptr *C.nb_fft_plan
}

// NewPlan builds a plan for a forward 1-D complex transform of fftLength
// points over the given buffer. The six handles are mirrored into plan-owned
// storage, so the caller's own handle variables may move or be reused, but the
// resources they refer to must stay alive until Destroy.
//
// Length constraints (power-of-two or otherwise) are the engine's to enforce.
// On failure nothing is leaked and the engine's code is returned as the error.
func NewPlan(physicalDevice, device, queue, commandPool, fence, buffer Handle,
	bufferSizeBytes uint64, fftLength uint32) (*Plan, error) {

	var code C.int32_t
	ptr := C.nb_fft_plan_create(
		C.uint64_t(physicalDevice),
		C.uint64_t(device),
		C.uint64_t(queue),
		C.uint64_t(commandPool),
		C.uint64_t(fence),
		C.uint64_t(buffer),
		C.uint64_t(bufferSizeBytes),
		C.uint32_t(fftLength),
		&code,
	)
	if ptr == nil {
		return nil, errOrNil(code)
	}

	return &Plan{ptr: ptr}, nil
}

// RecordForward appends the forward transform dispatch into commandBuffer,
// which must already be in the recording state. Nothing is submitted or
// awaited here. A nil or destroyed plan reports the engine's
// plan-not-initialized code without touching the command buffer.
func (p *Plan) RecordForward(commandBuffer Handle) error {
	var ptr *C.nb_fft_plan
	if p != nil {
		ptr = p.ptr
	}
	return errOrNil(C.nb_fft_plan_record_forward(ptr, C.uint64_t(commandBuffer)))
}

// Destroy releases all engine resources held by the plan. It never touches
// the borrowed Vulkan resources. Destroy on a nil plan is a no-op; using a
// plan after Destroy is undefined.
func (p *Plan) Destroy() {
	if p == nil || p.ptr == nil {
		return
	}
	C.nb_fft_plan_destroy(p.ptr)
	p.ptr = nil
}

// ErrorString describes a result code using the engine's own table. The
// engine owns the underlying storage; the returned string is a copy.
func ErrorString(code Result) string {
	return C.GoString(C.nb_fft_result_string(C.int32_t(code)))
}
