package vkf

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DescriptorSetLayout describes the shape of the resources a shader expects,
// one binding per managed buffer feeding it.
type DescriptorSetLayout struct {
	Device                *Device
	VKDescriptorSetLayout vk.DescriptorSetLayout
	Bindings              []vk.DescriptorSetLayoutBinding
}

func (d *Device) CreateDescriptorSetLayout(bindings []vk.DescriptorSetLayoutBinding) (*DescriptorSetLayout, error) {
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var layout vk.DescriptorSetLayout
	err := vk.Error(vk.CreateDescriptorSetLayout(d.VKDevice, &createInfo, nil, &layout))
	if err != nil {
		return nil, errors.Wrap(err, "vkCreateDescriptorSetLayout")
	}

	return &DescriptorSetLayout{
		Device:                d,
		VKDescriptorSetLayout: layout,
		Bindings:              bindings,
	}, nil
}

func (d *DescriptorSetLayout) Destroy() {
	vk.DestroyDescriptorSetLayout(d.Device.VKDevice, d.VKDescriptorSetLayout, nil)
}
