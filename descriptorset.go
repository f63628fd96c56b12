package vkf

import (
	vk "github.com/vulkan-go/vulkan"
)

// DescriptorSet is one allocated set of resource bindings. Writes are staged
// with AddBuffer and pushed to the device in a single Write call; staging again
// and re-issuing Write is how a set follows a buffer through reallocation.
type DescriptorSet struct {
	Device          *Device
	DescriptorPool  *DescriptorPool
	VKDescriptorSet vk.DescriptorSet

	writes []vk.WriteDescriptorSet
}

// AddBuffer stages a buffer write for the given shader binding.
func (ds *DescriptorSet) AddBuffer(dstBinding int, dtype vk.DescriptorType, info vk.DescriptorBufferInfo) {
	ds.writes = append(ds.writes, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          ds.VKDescriptorSet,
		DstBinding:      uint32(dstBinding),
		DescriptorCount: 1,
		DescriptorType:  dtype,
		PBufferInfo:     []vk.DescriptorBufferInfo{info},
	})
}

// Write pushes the staged writes to the device and clears the staging list.
func (ds *DescriptorSet) Write() {
	if len(ds.writes) == 0 {
		return
	}
	vk.UpdateDescriptorSets(ds.Device.VKDevice, uint32(len(ds.writes)), ds.writes, 0, nil)
	ds.writes = nil
}
