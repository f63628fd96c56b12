package vkf

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// PipelineRecord is one built pipeline together with the layout objects it
// was built against. Records are owned by the framework and destroyed at
// teardown; the pipeline's descriptor set layout is shared with the set
// allocation path.
type PipelineRecord struct {
	bindPoint        vk.PipelineBindPoint
	VKPipeline       vk.Pipeline
	VKPipelineLayout vk.PipelineLayout

	setLayout *DescriptorSetLayout
}

func (p *PipelineRecord) destroy(d *Device) {
	if d == nil {
		return
	}
	if p.VKPipeline != vk.NullPipeline {
		vk.DestroyPipeline(d.VKDevice, p.VKPipeline, nil)
		p.VKPipeline = vk.NullPipeline
	}
	if p.VKPipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(d.VKDevice, p.VKPipelineLayout, nil)
		p.VKPipelineLayout = vk.NullPipelineLayout
	}
}

func (d *Device) createPipelineLayout(setLayouts ...*DescriptorSetLayout) (vk.PipelineLayout, error) {
	l := make([]vk.DescriptorSetLayout, len(setLayouts))
	for i, dsl := range setLayouts {
		l[i] = dsl.VKDescriptorSetLayout
	}

	createInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(l)),
		PSetLayouts:    l,
	}

	var layout vk.PipelineLayout
	err := vk.Error(vk.CreatePipelineLayout(d.VKDevice, &createInfo, nil, &layout))
	if err != nil {
		return vk.NullPipelineLayout, errors.Wrap(err, "vkCreatePipelineLayout")
	}
	return layout, nil
}

// buildSetLayout derives a descriptor set layout from the buffer records: one
// binding per handle, at the shader binding index the buffer was described
// with. Only the record shape is needed, so pipelines can be built before
// CreateBuffer allocates anything.
func (f *Framework) buildSetLayout(handles []BufferHandle, stages vk.ShaderStageFlags) (*DescriptorSetLayout, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, 0, len(handles))
	for _, h := range handles {
		rec, err := f.buffers.lookup(h)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(rec.Binding),
			DescriptorType:  rec.descriptorType(),
			DescriptorCount: 1,
			StageFlags:      stages,
		})
	}
	return f.device.CreateDescriptorSetLayout(bindings)
}

// BuildComputePipeline builds a compute pipeline around the shader module: a
// descriptor set layout derived from the given buffers, a pipeline layout over
// it, then the pipeline itself. The shader module is released once the
// pipeline exists; the pipeline and its layouts are retained until teardown.
func (f *Framework) BuildComputePipeline(sm *ShaderModule, entryPoint string, handles ...BufferHandle) (*PipelineRecord, error) {
	if !f.status.OK() {
		return nil, f.status.Err()
	}
	if err := f.requireDevice("BuildComputePipeline"); err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, f.status.failf("BuildComputePipeline: no buffers given")
	}
	if entryPoint == "" {
		entryPoint = "main"
	}

	setLayout, err := f.buildSetLayout(handles, vk.ShaderStageFlags(vk.ShaderStageComputeBit))
	if err != nil {
		return nil, f.status.fail(err)
	}

	pipelineLayout, err := f.device.createPipelineLayout(setLayout)
	if err != nil {
		setLayout.Destroy()
		return nil, f.status.fail(err)
	}

	createInfo := vk.ComputePipelineCreateInfo{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Stage:  sm.VKPipelineShaderStageCreateInfo(vk.ShaderStageComputeBit, entryPoint),
		Layout: pipelineLayout,
	}

	pipelines := make([]vk.Pipeline, 1)
	err = vk.Error(vk.CreateComputePipelines(f.device.VKDevice, vk.NullPipelineCache,
		1, []vk.ComputePipelineCreateInfo{createInfo}, nil, pipelines))
	if err != nil {
		vk.DestroyPipelineLayout(f.device.VKDevice, pipelineLayout, nil)
		setLayout.Destroy()
		return nil, f.status.fail(errors.Wrap(err, "vkCreateComputePipelines"))
	}

	f.releaseShaderModule(sm)

	rec := &PipelineRecord{
		bindPoint:        vk.PipelineBindPointCompute,
		VKPipeline:       pipelines[0],
		VKPipelineLayout: pipelineLayout,
		setLayout:        setLayout,
	}
	f.setLayouts = append(f.setLayouts, setLayout)
	f.pipelines = append(f.pipelines, rec)
	f.logf("vkf.pipeline.compute", "compute pipeline built, %d bindings", len(handles))
	return rec, nil
}
