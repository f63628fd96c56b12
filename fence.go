package vkf

import (
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Fence wraps a native fence used to observe completion of submitted work.
type Fence struct {
	Device  *Device
	VKFence vk.Fence
}

func (d *Device) VKCreateFence(signaled bool) (vk.Fence, error) {
	var fence vk.Fence
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	err := vk.Error(vk.CreateFence(d.VKDevice, &fenceCreateInfo, nil, &fence))
	if err != nil {
		return vk.NullFence, errors.Wrap(err, "vkCreateFence")
	}
	return fence, nil
}

func (d *Device) VKDestroyFence(f vk.Fence) {
	vk.DestroyFence(d.VKDevice, f, nil)
}

func (d *Device) CreateFence() (*Fence, error) {
	fence, err := d.VKCreateFence(false)
	if err != nil {
		return nil, err
	}
	return &Fence{Device: d, VKFence: fence}, nil
}

// Wait blocks until the fence signals or the timeout elapses.
func (f *Fence) Wait(ts time.Duration) error {
	err := vk.Error(vk.WaitForFences(f.Device.VKDevice, 1, []vk.Fence{f.VKFence}, vk.True, uint64(ts.Nanoseconds())))
	if err != nil {
		return errors.Wrap(err, "vkWaitForFences")
	}
	return nil
}

func (f *Fence) Reset() {
	vk.ResetFences(f.Device.VKDevice, 1, []vk.Fence{f.VKFence})
}

func (f *Fence) Destroy() {
	vk.DestroyFence(f.Device.VKDevice, f.VKFence, nil)
}
