//go:build vkfft && cgo
// +build vkfft,cgo

// Package vulkan owns the Vulkan objects the GPU transform path runs on: the
// instance, the device with its compute queue, a command pool and fence, and
// host-visible mapped buffers. The vkfft bridge borrows these by raw handle
// and never owns them.
package vulkan

import (
	"math"
	"os"
	"strconv"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Native reports whether Vulkan support is compiled in.
const Native = true

// DeviceEnv names the environment variable that forces a physical device by
// index, overriding both scoring and the configured index.
const DeviceEnv = "NEBULA_VULKAN_DEVICE"

var (
	loaderOnce sync.Once
	loaderErr  error
)

func initLoader() error {
	loaderOnce.Do(func() {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			loaderErr = errors.Wrap(err, "failed to locate the Vulkan loader")
			return
		}
		if err := vk.Init(); err != nil {
			loaderErr = errors.Wrap(err, "failed to initialize Vulkan")
		}
	})
	return loaderErr
}

// Context owns the Vulkan objects one transform pipeline needs: an instance,
// a logical device with one compute queue, a command pool with a single
// primary command buffer, and a fence. These are exactly the resources a
// vkfft plan borrows; the context must outlive every plan built on it.
type Context struct {
	instance vk.Instance
	physical vk.PhysicalDevice
	device   vk.Device
	queue    vk.Queue
	family   uint32
	pool     vk.CommandPool
	cmdBuf   vk.CommandBuffer
	fence    vk.Fence
}

// Handles are the raw 64-bit values of a context's Vulkan objects, in the
// form the vkfft bridge borrows them.
type Handles struct {
	PhysicalDevice uint64
	Device         uint64
	Queue          uint64
	CommandPool    uint64
	Fence          uint64
	CommandBuffer  uint64
}

// NewContext picks a compute-capable physical device and builds the full
// context on it. deviceIndex below zero means "pick the best"; the
// NEBULA_VULKAN_DEVICE environment variable overrides either way.
func NewContext(deviceIndex int) (*Context, error) {
	if err := initLoader(); err != nil {
		return nil, err
	}

	c := &Context{}

	if err := c.createInstance(); err != nil {
		return nil, err
	}
	if err := c.pickPhysicalDevice(deviceIndex); err != nil {
		c.Destroy()
		return nil, err
	}
	if err := c.createDevice(); err != nil {
		c.Destroy()
		return nil, err
	}
	if err := c.createCommandPool(); err != nil {
		c.Destroy()
		return nil, err
	}
	if err := c.createFence(); err != nil {
		c.Destroy()
		return nil, err
	}

	return c, nil
}

func (c *Context) createInstance() error {
	appInfo := &vk.ApplicationInfo{
		SType:            vk.StructureTypeApplicationInfo,
		PApplicationName: "nebula\x00",
		PEngineName:      "nebula\x00",
		ApiVersion:       vk.ApiVersion11,
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}, nil, &instance)
	if ret != vk.Success {
		return errors.Errorf("vkCreateInstance failed: %d", ret)
	}

	c.instance = instance
	return nil
}

func (c *Context) pickPhysicalDevice(deviceIndex int) error {
	devices, err := enumeratePhysical(c.instance)
	if err != nil {
		return err
	}

	if env := os.Getenv(DeviceEnv); env != "" {
		idx, err := strconv.Atoi(env)
		if err != nil {
			return errors.Wrapf(err, "bad %s value %q", DeviceEnv, env)
		}
		deviceIndex = idx
	}

	if deviceIndex >= 0 {
		if deviceIndex >= len(devices) {
			return errors.Errorf("device index %d out of range (%d devices)",
				deviceIndex, len(devices))
		}
		family, ok := computeQueueFamily(devices[deviceIndex])
		if !ok {
			return errors.Errorf("device %d has no compute queue family", deviceIndex)
		}
		c.physical = devices[deviceIndex]
		c.family = family
		return nil
	}

	// Prefer discrete, then integrated, then anything with a compute queue.
	best := -1
	bestScore := -1
	bestFamily := uint32(0)
	for idx, dev := range devices {
		family, ok := computeQueueFamily(dev)
		if !ok {
			continue
		}
		if s := deviceScore(dev); s > bestScore {
			best, bestScore, bestFamily = idx, s, family
		}
	}
	if best < 0 {
		return errors.New("no compute-capable Vulkan device found")
	}

	c.physical = devices[best]
	c.family = bestFamily
	return nil
}

func (c *Context) createDevice() error {
	queueInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: c.family,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}

	var device vk.Device
	ret := vk.CreateDevice(c.physical, &vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos:    []vk.DeviceQueueCreateInfo{queueInfo},
	}, nil, &device)
	if ret != vk.Success {
		return errors.Errorf("vkCreateDevice failed: %d", ret)
	}
	c.device = device

	var queue vk.Queue
	vk.GetDeviceQueue(device, c.family, 0, &queue)
	c.queue = queue
	return nil
}

func (c *Context) createCommandPool() error {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(c.device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: c.family,
	}, nil, &pool)
	if ret != vk.Success {
		return errors.Errorf("vkCreateCommandPool failed: %d", ret)
	}
	c.pool = pool

	cmdBufs := make([]vk.CommandBuffer, 1)
	ret = vk.AllocateCommandBuffers(c.device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, cmdBufs)
	if ret != vk.Success {
		return errors.Errorf("vkAllocateCommandBuffers failed: %d", ret)
	}
	c.cmdBuf = cmdBufs[0]
	return nil
}

func (c *Context) createFence() error {
	var fence vk.Fence
	ret := vk.CreateFence(c.device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}, nil, &fence)
	if ret != vk.Success {
		return errors.Errorf("vkCreateFence failed: %d", ret)
	}
	c.fence = fence
	return nil
}

// BeginCommands resets the fence and the command buffer and puts the command
// buffer into the recording state for a one-time submission.
func (c *Context) BeginCommands() error {
	if ret := vk.ResetFences(c.device, 1, []vk.Fence{c.fence}); ret != vk.Success {
		return errors.Errorf("vkResetFences failed: %d", ret)
	}
	if ret := vk.ResetCommandBuffer(c.cmdBuf, 0); ret != vk.Success {
		return errors.Errorf("vkResetCommandBuffer failed: %d", ret)
	}
	ret := vk.BeginCommandBuffer(c.cmdBuf, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if ret != vk.Success {
		return errors.Errorf("vkBeginCommandBuffer failed: %d", ret)
	}
	return nil
}

// SubmitAndWait ends the command buffer, submits it on the compute queue and
// blocks until the fence signals.
func (c *Context) SubmitAndWait() error {
	if ret := vk.EndCommandBuffer(c.cmdBuf); ret != vk.Success {
		return errors.Errorf("vkEndCommandBuffer failed: %d", ret)
	}

	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{c.cmdBuf},
	}
	if ret := vk.QueueSubmit(c.queue, 1, []vk.SubmitInfo{submit}, c.fence); ret != vk.Success {
		return errors.Errorf("vkQueueSubmit failed: %d", ret)
	}
	ret := vk.WaitForFences(c.device, 1, []vk.Fence{c.fence}, vk.True, math.MaxUint64)
	if ret != vk.Success {
		return errors.Errorf("vkWaitForFences failed: %d", ret)
	}
	return nil
}

// Handles returns the context's objects as the raw values a vkfft plan
// borrows. The context stays the owner.
func (c *Context) Handles() Handles {
	return Handles{
		PhysicalDevice: rawHandle(unsafe.Pointer(&c.physical)),
		Device:         rawHandle(unsafe.Pointer(&c.device)),
		Queue:          rawHandle(unsafe.Pointer(&c.queue)),
		CommandPool:    rawHandle(unsafe.Pointer(&c.pool)),
		Fence:          rawHandle(unsafe.Pointer(&c.fence)),
		CommandBuffer:  rawHandle(unsafe.Pointer(&c.cmdBuf)),
	}
}

// Destroy releases every object the context owns. Safe on a partially
// constructed context and on nil.
func (c *Context) Destroy() {
	if c == nil {
		return
	}
	if c.device != vk.Device(vk.NullHandle) {
		vk.DeviceWaitIdle(c.device)
	}
	if c.fence != vk.Fence(vk.NullHandle) {
		vk.DestroyFence(c.device, c.fence, nil)
		c.fence = vk.Fence(vk.NullHandle)
	}
	if c.cmdBuf != vk.CommandBuffer(vk.NullHandle) {
		vk.FreeCommandBuffers(c.device, c.pool, 1, []vk.CommandBuffer{c.cmdBuf})
		c.cmdBuf = vk.CommandBuffer(vk.NullHandle)
	}
	if c.pool != vk.CommandPool(vk.NullHandle) {
		vk.DestroyCommandPool(c.device, c.pool, nil)
		c.pool = vk.CommandPool(vk.NullHandle)
	}
	if c.device != vk.Device(vk.NullHandle) {
		vk.DestroyDevice(c.device, nil)
		c.device = vk.Device(vk.NullHandle)
	}
	if c.instance != vk.Instance(vk.NullHandle) {
		vk.DestroyInstance(c.instance, nil)
		c.instance = vk.Instance(vk.NullHandle)
	}
}

// rawHandle reinterprets a Vulkan handle as its raw 64-bit value. Both
// dispatchable and non-dispatchable handles are 8 bytes wide on the platforms
// this package builds for.
func rawHandle(h unsafe.Pointer) uint64 {
	return *(*uint64)(h)
}

func enumeratePhysical(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var count uint32
	if ret := vk.EnumeratePhysicalDevices(instance, &count, nil); ret != vk.Success {
		return nil, errors.Errorf("vkEnumeratePhysicalDevices failed: %d", ret)
	}
	if count == 0 {
		return nil, errors.New("no Vulkan physical devices found")
	}

	devices := make([]vk.PhysicalDevice, count)
	if ret := vk.EnumeratePhysicalDevices(instance, &count, devices); ret != vk.Success {
		return nil, errors.Errorf("vkEnumeratePhysicalDevices failed: %d", ret)
	}
	return devices, nil
}

func computeQueueFamily(dev vk.PhysicalDevice) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(dev, &count, nil)

	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(dev, &count, families)

	for idx := range families {
		families[idx].Deref()
		if families[idx].QueueCount == 0 {
			continue
		}
		if families[idx].QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			return uint32(idx), true
		}
	}
	return 0, false
}

func deviceScore(dev vk.PhysicalDevice) int {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(dev, &props)
	props.Deref()

	switch props.DeviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 3
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 2
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 1
	default:
		return 0
	}
}
