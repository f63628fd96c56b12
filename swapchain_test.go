package vkf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vulkan-go/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

func TestDrawFrameRequiresPreparedSwapchain(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})
	err := f.DrawFrame(func(cb *CommandBuffer) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "swapchain has not been prepared")
}

func TestPrepareSwapchainFailureLeavesNoState(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})
	err := f.PrepareSwapchain()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PrepareSwapchain")
	// A failed prepare must not leave any swapchain state behind.
	assert.Nil(t, f.swap)
}

// setupWindowedFramework walks a framework through window, surface and
// swapchain creation, skipping the test on machines without a display or a
// presentation-capable device. The window is hidden.
func setupWindowedFramework(t *testing.T, name string) (*Framework, *glfw.Window) {
	t.Helper()
	if err := glfw.Init(); err != nil {
		t.Skipf("no display: %v", err)
	}
	t.Cleanup(glfw.Terminate)

	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		t.Skipf("no Vulkan loader: %v", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Visible, glfw.False)
	window, err := glfw.CreateWindow(320, 240, name, nil, nil)
	if err != nil {
		t.Skipf("no window: %v", err)
	}
	t.Cleanup(window.Destroy)

	f := NewFramework(name, Version{Major: 1})
	f.RequireInstanceExtensions(window.GetRequiredInstanceExtensions())
	if err := f.CreateInstance(); err != nil {
		t.Skipf("no Vulkan instance: %v", err)
	}

	surface, err := window.CreateWindowSurface(f.Instance().VKInstance, nil)
	if err != nil {
		f.Teardown()
		t.Skipf("no window surface: %v", err)
	}
	require.NoError(t, f.EnableGraphics(vk.SurfaceFromPointer(surface)))

	width, height := window.GetFramebufferSize()
	f.SetFrameBufferSize(width, height)

	if err := f.SelectDevice(); err != nil {
		f.Teardown()
		t.Skipf("no presentation-capable device: %v", err)
	}
	require.NoError(t, f.CreateLogicalDeviceAndQueue())
	t.Cleanup(f.Teardown)

	require.NoError(t, f.PrepareSwapchain())
	return f, window
}

func TestDrawFrameClearOnly(t *testing.T) {
	f, _ := setupWindowedFramework(t, "clear")

	// A few frames with no draw commands still cycle through both frame
	// slots and exercise acquire, submit and present.
	for i := 0; i < 4; i++ {
		require.NoError(t, f.DrawFrame(func(cb *CommandBuffer) error { return nil }))
	}
	assert.True(t, f.OK())
}

func TestDrawFrameResizeRebuildsBeforeAcquire(t *testing.T) {
	f, window := setupWindowedFramework(t, "resize")

	require.NoError(t, f.DrawFrame(func(cb *CommandBuffer) error { return nil }))

	// Flag a resize. The next frame must rebuild the swapchain without
	// acquiring an image first; an acquire here would leave its semaphore
	// signaled with nothing ever waiting on it.
	width, height := window.GetFramebufferSize()
	f.SetFrameBufferSize(width, height)

	recorded := false
	require.NoError(t, f.DrawFrame(func(cb *CommandBuffer) error {
		recorded = true
		return nil
	}))
	assert.False(t, recorded, "the rebuild frame must not record commands")

	// Frames after the rebuild draw normally again, from slot zero.
	for i := 0; i < 4; i++ {
		require.NoError(t, f.DrawFrame(func(cb *CommandBuffer) error { return nil }))
	}
	assert.True(t, f.OK())
}
