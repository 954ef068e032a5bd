//go:build !vkfft || !cgo
// +build !vkfft !cgo

// Package vulkan owns the Vulkan objects the GPU transform path runs on. In
// builds without the vkfft tag only the device listing surface exists, and it
// reports that no GPU support is compiled in.
package vulkan

import "errors"

// Native reports whether Vulkan support is compiled in.
const Native = false

// DeviceEnv names the environment variable that forces a physical device by
// index, overriding both scoring and the configured index.
const DeviceEnv = "NEBULA_VULKAN_DEVICE"

// DeviceInfo describes one physical device as reported by the driver.
type DeviceInfo struct {
	Index   int
	Name    string
	Type    string
	Compute bool
}

// Devices reports that device enumeration needs the vkfft build tag.
func Devices() ([]DeviceInfo, error) {
	return nil, errors.New("built without Vulkan support (vkfft build tag)")
}
