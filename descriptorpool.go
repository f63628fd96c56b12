package vkf

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DescriptorPool holds the descriptor bookkeeping memory sets are carved from.
type DescriptorPool struct {
	Device           *Device
	VKDescriptorPool vk.DescriptorPool
}

func (d *Device) CreateDescriptorPool(sizes []vk.DescriptorPoolSize, maxSets int) (*DescriptorPool, error) {
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(maxSets),
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}

	var pool vk.DescriptorPool
	err := vk.Error(vk.CreateDescriptorPool(d.VKDevice, &createInfo, nil, &pool))
	if err != nil {
		return nil, errors.Wrap(err, "vkCreateDescriptorPool")
	}

	return &DescriptorPool{Device: d, VKDescriptorPool: pool}, nil
}

// Allocate carves one descriptor set shaped by the given layout out of the pool.
func (d *DescriptorPool) Allocate(layout *DescriptorSetLayout) (*DescriptorSet, error) {
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.VKDescriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout.VKDescriptorSetLayout},
	}

	var set vk.DescriptorSet
	err := vk.Error(vk.AllocateDescriptorSets(d.Device.VKDevice, &allocateInfo, &set))
	if err != nil {
		return nil, errors.Wrap(err, "vkAllocateDescriptorSets")
	}

	return &DescriptorSet{Device: d.Device, DescriptorPool: d, VKDescriptorSet: set}, nil
}

func (d *DescriptorPool) Free(ds *DescriptorSet) error {
	set := ds.VKDescriptorSet
	err := vk.Error(vk.FreeDescriptorSets(d.Device.VKDevice, d.VKDescriptorPool, 1, &set))
	if err != nil {
		return errors.Wrap(err, "vkFreeDescriptorSets")
	}
	return nil
}

func (d *DescriptorPool) Reset() error {
	return vk.Error(vk.ResetDescriptorPool(d.Device.VKDevice, d.VKDescriptorPool, 0))
}

func (d *DescriptorPool) Destroy() {
	vk.DestroyDescriptorPool(d.Device.VKDevice, d.VKDescriptorPool, nil)
}
