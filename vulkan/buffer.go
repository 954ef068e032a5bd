//go:build vkfft && cgo
// +build vkfft,cgo

package vulkan

import (
	"math"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// MappedBuffer is a host-visible storage buffer with a persistent mapping.
// Host-coherent memory is preferred; on non-coherent memory Flush and
// Invalidate do real work, otherwise they are no-ops.
type MappedBuffer struct {
	device   vk.Device
	buffer   vk.Buffer
	memory   vk.DeviceMemory
	mapped   unsafe.Pointer
	size     uint64
	coherent bool
}

// NewMappedBuffer allocates a storage buffer of size bytes on the context's
// device, backed by host-visible memory, and maps it for the buffer's
// lifetime.
func NewMappedBuffer(c *Context, size uint64) (*MappedBuffer, error) {
	usage := vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit |
		vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit)

	var buffer vk.Buffer
	ret := vk.CreateBuffer(c.device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buffer)
	if ret != vk.Success {
		return nil, errors.Errorf("vkCreateBuffer failed: %d", ret)
	}

	b := &MappedBuffer{device: c.device, buffer: buffer, size: size}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(c.device, buffer, &req)
	req.Deref()

	memType, coherent, err := hostVisibleMemoryType(c.physical, req.MemoryTypeBits)
	if err != nil {
		b.Destroy()
		return nil, err
	}
	b.coherent = coherent

	var memory vk.DeviceMemory
	ret = vk.AllocateMemory(c.device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memType,
	}, nil, &memory)
	if ret != vk.Success {
		b.Destroy()
		return nil, errors.Errorf("vkAllocateMemory failed: %d", ret)
	}
	b.memory = memory

	if ret = vk.BindBufferMemory(c.device, buffer, memory, 0); ret != vk.Success {
		b.Destroy()
		return nil, errors.Errorf("vkBindBufferMemory failed: %d", ret)
	}

	var mapped unsafe.Pointer
	ret = vk.MapMemory(c.device, memory, 0, vk.DeviceSize(vk.WholeSize), 0, &mapped)
	if ret != vk.Success {
		b.Destroy()
		return nil, errors.Errorf("vkMapMemory failed: %d", ret)
	}
	b.mapped = mapped

	return b, nil
}

// Size returns the buffer length in bytes.
func (b *MappedBuffer) Size() uint64 {
	return b.size
}

// Handle returns the raw buffer handle a vkfft plan borrows.
func (b *MappedBuffer) Handle() uint64 {
	return rawHandle(unsafe.Pointer(&b.buffer))
}

// Write copies src into the mapped memory starting at offset zero.
func (b *MappedBuffer) Write(src []byte) error {
	if uint64(len(src)) > b.size {
		return errors.Errorf("write of %d bytes exceeds buffer size %d", len(src), b.size)
	}
	vk.Memcopy(b.mapped, src)
	return nil
}

// Read copies the first len(dst) mapped bytes into dst.
func (b *MappedBuffer) Read(dst []byte) error {
	if uint64(len(dst)) > b.size {
		return errors.Errorf("read of %d bytes exceeds buffer size %d", len(dst), b.size)
	}
	copy(dst, (*[1 << 30]byte)(b.mapped)[:len(dst):len(dst)])
	return nil
}

// Flush makes host writes visible to the device. No-op on coherent memory.
func (b *MappedBuffer) Flush() error {
	if b.coherent {
		return nil
	}
	ret := vk.FlushMappedMemoryRanges(b.device, 1, []vk.MappedMemoryRange{{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: b.memory,
		Offset: 0,
		Size:   vk.DeviceSize(vk.WholeSize),
	}})
	if ret != vk.Success {
		return errors.Errorf("vkFlushMappedMemoryRanges failed: %d", ret)
	}
	return nil
}

// Invalidate makes device writes visible to the host. No-op on coherent
// memory.
func (b *MappedBuffer) Invalidate() error {
	if b.coherent {
		return nil
	}
	ret := vk.InvalidateMappedMemoryRanges(b.device, 1, []vk.MappedMemoryRange{{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: b.memory,
		Offset: 0,
		Size:   vk.DeviceSize(vk.WholeSize),
	}})
	if ret != vk.Success {
		return errors.Errorf("vkInvalidateMappedMemoryRanges failed: %d", ret)
	}
	return nil
}

// Destroy unmaps and releases the buffer and its memory. Safe on a partially
// constructed buffer and on nil.
func (b *MappedBuffer) Destroy() {
	if b == nil {
		return
	}
	if b.mapped != nil {
		vk.UnmapMemory(b.device, b.memory)
		b.mapped = nil
	}
	if b.buffer != vk.Buffer(vk.NullHandle) {
		vk.DestroyBuffer(b.device, b.buffer, nil)
		b.buffer = vk.Buffer(vk.NullHandle)
	}
	if b.memory != vk.DeviceMemory(vk.NullHandle) {
		vk.FreeMemory(b.device, b.memory, nil)
		b.memory = vk.DeviceMemory(vk.NullHandle)
	}
}

// hostVisibleMemoryType picks a memory type for the buffer, preferring
// HOST_VISIBLE|HOST_COHERENT and falling back to plain HOST_VISIBLE.
func hostVisibleMemoryType(physical vk.PhysicalDevice, typeBits uint32) (uint32, bool, error) {
	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(physical, &props)
	props.Deref()

	visible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	coherent := visible | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)

	pick := uint32(math.MaxUint32)
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		props.MemoryTypes[i].Deref()
		flags := props.MemoryTypes[i].PropertyFlags
		if flags&coherent == coherent {
			return i, true, nil
		}
		if flags&visible == visible && pick == math.MaxUint32 {
			pick = i
		}
	}
	if pick == math.MaxUint32 {
		return 0, false, errors.New("no host-visible Vulkan memory type found")
	}
	return pick, false, nil
}
