package vkf

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DeviceMemory is a native memory allocation, on the host or on the device.
type DeviceMemory struct {
	Device         *Device
	VKDeviceMemory vk.DeviceMemory
	Size           uint64
}

// Destroy frees this memory.
func (d *DeviceMemory) Destroy() {
	vk.FreeMemory(d.Device.VKDevice, d.VKDeviceMemory, nil)
}

// MapWithSize maps this memory starting at offset 0 with a particular size.
func (d *DeviceMemory) MapWithSize(size int) (unsafe.Pointer, error) {
	var res unsafe.Pointer
	err := vk.Error(vk.MapMemory(d.Device.VKDevice, d.VKDeviceMemory, 0, vk.DeviceSize(size), 0, &res))
	if err != nil {
		return nil, errors.Wrap(err, "vkMapMemory")
	}
	return res, nil
}

// Map maps the entirety of this memory.
func (d *DeviceMemory) Map() (unsafe.Pointer, error) {
	return d.MapWithSize(int(d.Size))
}

// Unmap this memory.
func (d *DeviceMemory) Unmap() {
	vk.UnmapMemory(d.Device.VKDevice, d.VKDeviceMemory)
}

// Buffer is a native Vulkan buffer. The handle-table layer pairs one or two
// of these with DeviceMemory to form a managed buffer.
type Buffer struct {
	Device   *Device
	VKBuffer vk.Buffer
	Size     uint64
}

func (d *Device) CreateBufferWithOptions(sizeInBytes uint64, usage vk.BufferUsageFlags, sharing vk.SharingMode) (*Buffer, error) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(sizeInBytes),
		Usage:       usage,
		SharingMode: sharing,
	}

	var buffer vk.Buffer
	err := vk.Error(vk.CreateBuffer(d.VKDevice, &bufferCreateInfo, nil, &buffer))
	if err != nil {
		return nil, errors.Wrap(err, "vkCreateBuffer")
	}

	return &Buffer{Device: d, VKBuffer: buffer, Size: sizeInBytes}, nil
}

func (b *Buffer) VKMemoryRequirements() vk.MemoryRequirements {
	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(b.Device.VKDevice, b.VKBuffer, &memoryRequirements)
	return memoryRequirements
}

// DSInfo describes this buffer for a descriptor-set write, covering rangeLen
// bytes from offset 0.
func (b *Buffer) DSInfo(rangeLen int) vk.DescriptorBufferInfo {
	return vk.DescriptorBufferInfo{
		Buffer: b.VKBuffer,
		Offset: 0,
		Range:  vk.DeviceSize(rangeLen),
	}
}

func (b *Buffer) Bind(memory *DeviceMemory, offset uint64) error {
	return vk.Error(vk.BindBufferMemory(b.Device.VKDevice, b.VKBuffer, memory.VKDeviceMemory, vk.DeviceSize(offset)))
}

func (b *Buffer) Destroy() {
	vk.DestroyBuffer(b.Device.VKDevice, b.VKBuffer, nil)
}

// CreateAndBindBufferAndMemory creates a buffer, allocates memory sized to
// whatever the device demands for it (the smallest granularity at or above
// the request) and binds the two. On any failure nothing is leaked.
func (d *Device) CreateAndBindBufferAndMemory(size uint64, usage vk.BufferUsageFlags, mprops vk.MemoryPropertyFlags, policy MemoryTypePolicy) (*Buffer, *DeviceMemory, error) {
	buffer, err := d.CreateBufferWithOptions(size, usage, vk.SharingModeExclusive)
	if err != nil {
		return nil, nil, err
	}

	mr := buffer.VKMemoryRequirements()
	mr.Deref()

	memory, err := d.Allocate(int(mr.Size), mr.MemoryTypeBits, mprops, policy)
	if err != nil {
		buffer.Destroy()
		return nil, nil, err
	}
	if err := buffer.Bind(memory, 0); err != nil {
		memory.Destroy()
		buffer.Destroy()
		return nil, nil, errors.Wrap(err, "vkBindBufferMemory")
	}
	return buffer, memory, nil
}
