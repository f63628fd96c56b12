package vkf

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ParseTopology converts a primitive topology name to the native enum. The
// names are the ones programs pass on the command line; anything else is an
// error, reported before any native object gets created.
func ParseTopology(s string) (vk.PrimitiveTopology, error) {
	switch s {
	case "TRIANGLE_LIST":
		return vk.PrimitiveTopologyTriangleList, nil
	case "TRIANGLE_STRIP":
		return vk.PrimitiveTopologyTriangleStrip, nil
	case "LINE_LIST":
		return vk.PrimitiveTopologyLineList, nil
	case "LINE_STRIP":
		return vk.PrimitiveTopologyLineStrip, nil
	}
	return 0, errors.Newf("unrecognized topology %q", s)
}

// BuildGraphicsPipeline builds a graphics pipeline over the framework's render
// pass, so PrepareSwapchain must have run first. Vertex input state comes from
// the vertex buffers' registered descriptions; uniform and storage buffers in
// handles contribute descriptor bindings visible to both shader stages.
// Viewport and scissor are dynamic state, set per frame by DrawFrame, which is
// what lets the pipeline survive swapchain recreation. Both shader modules are
// released once the pipeline exists.
func (f *Framework) BuildGraphicsPipeline(vert, frag *ShaderModule, topology string, handles ...BufferHandle) (*PipelineRecord, error) {
	if !f.status.OK() {
		return nil, f.status.Err()
	}
	if err := f.requireDevice("BuildGraphicsPipeline"); err != nil {
		return nil, err
	}
	if f.renderPass == vk.NullRenderPass {
		return nil, f.status.failf("BuildGraphicsPipeline: PrepareSwapchain has not run")
	}

	topo, err := ParseTopology(topology)
	if err != nil {
		return nil, f.status.fail(err)
	}

	var bindingDescs []vk.VertexInputBindingDescription
	var attrDescs []vk.VertexInputAttributeDescription
	var resourceHandles []BufferHandle
	for _, h := range handles {
		rec, err := f.buffers.lookup(h)
		if err != nil {
			return nil, f.status.fail(err)
		}
		if rec.Type == VertexBuffer {
			if !rec.hasVertexDesc {
				return nil, f.status.failf("BuildGraphicsPipeline: vertex buffer %#x has no vertex descriptions", uint64(h))
			}
			bindingDescs = append(bindingDescs, rec.bindingDesc)
			attrDescs = append(attrDescs, rec.attrDescs...)
		} else {
			resourceHandles = append(resourceHandles, h)
		}
	}

	var setLayout *DescriptorSetLayout
	var setLayouts []*DescriptorSetLayout
	if len(resourceHandles) > 0 {
		stages := vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit)
		setLayout, err = f.buildSetLayout(resourceHandles, stages)
		if err != nil {
			return nil, f.status.fail(err)
		}
		setLayouts = append(setLayouts, setLayout)
	}

	pipelineLayout, err := f.device.createPipelineLayout(setLayouts...)
	if err != nil {
		if setLayout != nil {
			setLayout.Destroy()
		}
		return nil, f.status.fail(err)
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		vert.VKPipelineShaderStageCreateInfo(vk.ShaderStageVertexBit, "main"),
		frag.VKPipelineShaderStageCreateInfo(vk.ShaderStageFragmentBit, "main"),
	}

	vertexInputState := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindingDescs)),
		PVertexBindingDescriptions:      bindingDescs,
		VertexAttributeDescriptionCount: uint32(len(attrDescs)),
		PVertexAttributeDescriptions:    attrDescs,
	}

	inputAssemblyState := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               topo,
		PrimitiveRestartEnable: vk.False,
	}

	// Counts only; the actual rects are dynamic state.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterState := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisampleState := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	blendAttachments := []vk.PipelineColorBlendAttachmentState{{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
		BlendEnable:    vk.False,
	}}
	colorBlendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    blendAttachments,
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputState,
		PInputAssemblyState: &inputAssemblyState,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterState,
		PMultisampleState:   &multisampleState,
		PColorBlendState:    &colorBlendState,
		PDynamicState:       &dynamicState,
		Layout:              pipelineLayout,
		RenderPass:          f.renderPass,
		Subpass:             0,
	}

	pipelines := make([]vk.Pipeline, 1)
	err = vk.Error(vk.CreateGraphicsPipelines(f.device.VKDevice, vk.NullPipelineCache,
		1, []vk.GraphicsPipelineCreateInfo{createInfo}, nil, pipelines))
	if err != nil {
		vk.DestroyPipelineLayout(f.device.VKDevice, pipelineLayout, nil)
		if setLayout != nil {
			setLayout.Destroy()
		}
		return nil, f.status.fail(errors.Wrap(err, "vkCreateGraphicsPipelines"))
	}

	f.releaseShaderModule(vert)
	f.releaseShaderModule(frag)

	rec := &PipelineRecord{
		bindPoint:        vk.PipelineBindPointGraphics,
		VKPipeline:       pipelines[0],
		VKPipelineLayout: pipelineLayout,
		setLayout:        setLayout,
	}
	if setLayout != nil {
		f.setLayouts = append(f.setLayouts, setLayout)
	}
	f.pipelines = append(f.pipelines, rec)
	f.logf("vkf.pipeline.graphics", "graphics pipeline built, topology %s", topology)
	return rec, nil
}

// CmdBindPipeline binds a built pipeline at its native bind point. It records
// nothing once the status has failed.
func (f *Framework) CmdBindPipeline(cb *CommandBuffer, p *PipelineRecord) {
	if !f.status.OK() {
		return
	}
	cb.CmdBindPipeline(p.bindPoint, p.VKPipeline)
}

// CmdBindVertexBuffer binds a managed vertex buffer for drawing. For staged
// access the GPU-local side is bound.
func (f *Framework) CmdBindVertexBuffer(cb *CommandBuffer, h BufferHandle) error {
	if !f.status.OK() {
		return f.status.Err()
	}
	rec, err := f.buffers.lookup(h)
	if err != nil {
		return f.status.fail(err)
	}
	if rec.Type != VertexBuffer {
		return f.status.failf("CmdBindVertexBuffer: buffer %#x is %s, not VERTEX", uint64(h), rec.Type)
	}
	if !rec.created {
		return f.status.failf("CmdBindVertexBuffer: buffer %#x has not been created", uint64(h))
	}
	vk.CmdBindVertexBuffers(cb.VKCommandBuffer, 0, 1,
		[]vk.Buffer{rec.gpuBuffer().VKBuffer}, []vk.DeviceSize{0})
	return nil
}
