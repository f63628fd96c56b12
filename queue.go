package vkf

import (
	"fmt"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Queue is the single device queue the framework submits all work to.
type Queue struct {
	Device      *Device
	QueueFamily *QueueFamily
	VKQueue     vk.Queue
}

func (q *Queue) WaitIdle() error {
	return vk.Error(vk.QueueWaitIdle(q.VKQueue))
}

// SubmitWithFence submits the command buffers, signalling the fence when the
// batch completes. It does not wait.
func (q *Queue) SubmitWithFence(fence *Fence, buffers ...*CommandBuffer) error {
	b := make([]vk.CommandBuffer, len(buffers))
	for i := range buffers {
		b[i] = buffers[i].VKCommandBuffer
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(buffers)),
		PCommandBuffers:    b,
	}

	var vkFence vk.Fence
	if fence != nil {
		vkFence = fence.VKFence
	}

	err := vk.Error(vk.QueueSubmit(q.VKQueue, 1, []vk.SubmitInfo{submitInfo}, vkFence))
	if err != nil {
		return errors.Wrap(err, "vkQueueSubmit")
	}
	return nil
}

func (q *Queue) String() string {
	return fmt.Sprintf("{Device: %s QueueFamily: %s}", q.Device.String(), q.QueueFamily.String())
}
