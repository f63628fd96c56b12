package vkf

import (
	vk "github.com/vulkan-go/vulkan"
)

// CommandBuffer wraps a native command buffer. Only the commands used by
// the framework are wrapped; callers needing more can reach through VK().
type CommandBuffer struct {
	VKCommandBuffer vk.CommandBuffer
}

// VK exposes the native command buffer for direct vulkan calls.
func (c *CommandBuffer) VK() vk.CommandBuffer {
	return c.VKCommandBuffer
}

// Reset returns the command buffer to the initial state so it can be re-recorded.
func (c *CommandBuffer) Reset() error {
	return vk.Error(vk.ResetCommandBuffer(c.VKCommandBuffer, 0))
}

// ResetAndRelease resets the command buffer and releases its pool resources.
func (c *CommandBuffer) ResetAndRelease() error {
	return vk.Error(vk.ResetCommandBuffer(c.VKCommandBuffer, vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit)))
}

// Begin starts recording work into this command buffer.
func (c *CommandBuffer) Begin() error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	return vk.Error(vk.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo))
}

// BeginOneTime starts recording for a buffer that will be submitted once
// and then freed, such as a staging copy.
func (c *CommandBuffer) BeginOneTime() error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	return vk.Error(vk.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo))
}

// End finishes recording.
func (c *CommandBuffer) End() error {
	return vk.Error(vk.EndCommandBuffer(c.VKCommandBuffer))
}

func (c *CommandBuffer) CmdBindPipeline(bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(c.VKCommandBuffer, bindPoint, pipeline)
}

func (c *CommandBuffer) CmdBindDescriptorSets(bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet int, descriptorSets ...*DescriptorSet) {
	sets := make([]vk.DescriptorSet, len(descriptorSets))
	for i := range descriptorSets {
		sets[i] = descriptorSets[i].VKDescriptorSet
	}

	vk.CmdBindDescriptorSets(c.VKCommandBuffer, bindPoint,
		layout, uint32(firstSet), uint32(len(sets)), sets, 0, nil)
}

func (c *CommandBuffer) CmdDispatch(x, y, z int) {
	vk.CmdDispatch(c.VKCommandBuffer, uint32(x), uint32(y), uint32(z))
}

func (c *CommandBuffer) CmdDraw(vertexCount, instanceCount, firstVertex, firstInstance int) {
	vk.CmdDraw(c.VKCommandBuffer, uint32(vertexCount), uint32(instanceCount), uint32(firstVertex), uint32(firstInstance))
}

// CmdCopyBuffer records a full copy of size bytes from src into dst.
func (c *CommandBuffer) CmdCopyBuffer(src, dst *Buffer, size int) {
	region := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(size),
	}
	vk.CmdCopyBuffer(c.VKCommandBuffer, src.VKBuffer, dst.VKBuffer, 1, []vk.BufferCopy{region})
}
