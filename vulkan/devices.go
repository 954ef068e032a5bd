//go:build vkfft && cgo
// +build vkfft,cgo

package vulkan

import (
	"strings"

	vk "github.com/vulkan-go/vulkan"
)

// DeviceInfo describes one physical device as reported by the driver.
type DeviceInfo struct {
	Index   int
	Name    string
	Type    string
	Compute bool
}

// Devices enumerates the physical devices visible to the loader. The index of
// each entry is the value NEBULA_VULKAN_DEVICE and the device flag accept.
func Devices() ([]DeviceInfo, error) {
	if err := initLoader(); err != nil {
		return nil, err
	}

	c := &Context{}
	if err := c.createInstance(); err != nil {
		return nil, err
	}
	defer c.Destroy()

	devices, err := enumeratePhysical(c.instance)
	if err != nil {
		return nil, err
	}

	infos := make([]DeviceInfo, 0, len(devices))
	for idx, dev := range devices {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(dev, &props)
		props.Deref()

		_, compute := computeQueueFamily(dev)

		infos = append(infos, DeviceInfo{
			Index:   idx,
			Name:    strings.TrimRight(string(props.DeviceName[:]), "\x00"),
			Type:    deviceTypeName(props.DeviceType),
			Compute: compute,
		})
	}
	return infos, nil
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	default:
		return "other"
	}
}
