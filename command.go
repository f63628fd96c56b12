package vkf

import (
	"time"

	vk "github.com/vulkan-go/vulkan"
)

// submitTimeout bounds SubmitAndWait. A dispatch that runs this long has hung
// the device; a lost-device error from the wait is more useful than blocking
// the host forever.
const submitTimeout = 60 * time.Second

// AllocateCommandBuffer hands out a primary command buffer from the
// framework's pool. The buffer stays valid until freed or until teardown
// destroys the pool.
func (f *Framework) AllocateCommandBuffer() (*CommandBuffer, error) {
	if !f.status.OK() {
		return nil, f.status.Err()
	}
	if err := f.requireDevice("AllocateCommandBuffer"); err != nil {
		return nil, err
	}

	cb, err := f.commandPool.AllocateBuffer()
	if err != nil {
		return nil, f.status.fail(err)
	}
	return cb, nil
}

// FreeCommandBuffer returns a command buffer to the pool early. Buffers not
// freed explicitly are reclaimed when teardown destroys the pool.
func (f *Framework) FreeCommandBuffer(cb *CommandBuffer) {
	if f.commandPool != nil && cb != nil {
		f.commandPool.FreeBuffer(cb)
	}
}

// RecordAndDispatch records a complete compute dispatch into cb: begin, bind
// the pipeline and descriptor set, dispatch the given group counts, end. The
// caller divides its problem dimensions by the shader's local workgroup size;
// the framework does not know the shader's layout.
func (f *Framework) RecordAndDispatch(cb *CommandBuffer, p *PipelineRecord, ds *DescriptorSet, groupsX, groupsY, groupsZ int) error {
	if !f.status.OK() {
		return f.status.Err()
	}
	if err := f.requireDevice("RecordAndDispatch"); err != nil {
		return err
	}
	if groupsX < 1 || groupsY < 1 || groupsZ < 1 {
		return f.status.failf("RecordAndDispatch: group counts must be positive, got (%d,%d,%d)", groupsX, groupsY, groupsZ)
	}

	if err := cb.Begin(); err != nil {
		return f.status.fail(err)
	}
	cb.CmdBindPipeline(vk.PipelineBindPointCompute, p.VKPipeline)
	cb.CmdBindDescriptorSets(vk.PipelineBindPointCompute, p.VKPipelineLayout, 0, ds)
	cb.CmdDispatch(groupsX, groupsY, groupsZ)
	if err := cb.End(); err != nil {
		return f.status.fail(err)
	}

	f.logf("vkf.command.record", "dispatch recorded (%d,%d,%d)", groupsX, groupsY, groupsZ)
	return nil
}

// SubmitAndWait submits cb to the framework's queue and blocks until the
// device signals completion. Results written by the dispatch are visible to
// the host when it returns, subject to SyncBuffer for staged buffers.
func (f *Framework) SubmitAndWait(cb *CommandBuffer) error {
	if !f.status.OK() {
		return f.status.Err()
	}
	if err := f.requireDevice("SubmitAndWait"); err != nil {
		return err
	}
	return f.submitAndWait(cb)
}

func (f *Framework) submitAndWait(cb *CommandBuffer) error {
	fence, err := f.device.CreateFence()
	if err != nil {
		return f.status.fail(err)
	}
	defer fence.Destroy()

	if err := f.queue.SubmitWithFence(fence, cb); err != nil {
		return f.status.fail(err)
	}
	if err := fence.Wait(submitTimeout); err != nil {
		return f.status.fail(err)
	}
	return nil
}
