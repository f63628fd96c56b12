package vkf

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

// setupDevice walks a framework to the LogicalDeviceReady state, skipping the
// test on machines without a Vulkan loader or device.
func setupDevice(t *testing.T, name string) *Framework {
	t.Helper()
	if err := InitializeForComputeOnly(); err != nil {
		t.Skipf("no Vulkan loader: %v", err)
	}
	f := NewFramework(name, Version{Major: 1})
	if err := f.CreateInstance(); err != nil {
		t.Skipf("no Vulkan instance: %v", err)
	}
	if err := f.SelectDevice(); err != nil {
		f.Teardown()
		t.Skipf("no Vulkan device: %v", err)
	}
	require.NoError(t, f.CreateLogicalDeviceAndQueue())
	t.Cleanup(f.Teardown)
	return f
}

func TestSharedBufferRoundTrip(t *testing.T) {
	f := setupDevice(t, "roundtrip")

	h, err := f.DescribeBuffer(0, StorageBuffer, AccessShared)
	require.NoError(t, err)
	require.NoError(t, f.CreateBuffer(h, 64))

	ptr, size, err := f.MapBuffer(h)
	require.NoError(t, err)
	require.Equal(t, 64, size)

	data := (*[16]float32)(ptr)
	for i := range data {
		data[i] = float32(i)
	}

	// Mapping is idempotent.
	ptr2, _, err := f.MapBuffer(h)
	require.NoError(t, err)
	assert.Equal(t, ptr, ptr2)

	b, err := f.MappedBytes(h)
	require.NoError(t, err)
	assert.Len(t, b, 64)

	require.NoError(t, f.UnmapBuffer(h))
	require.NoError(t, f.DeleteBuffer(h))
	assert.True(t, f.OK())
}

func TestStagedBufferSync(t *testing.T) {
	f := setupDevice(t, "staged")

	up, err := f.DescribeBuffer(0, StorageBuffer, AccessStagedCPU)
	require.NoError(t, err)
	require.NoError(t, f.CreateBuffer(up, 256))

	ptr, _, err := f.MapBuffer(up)
	require.NoError(t, err)
	vals := (*[64]float32)(ptr)
	for i := range vals {
		vals[i] = float32(i) * 0.5
	}

	// Push to the GPU-local pair and confirm nothing failed.
	require.NoError(t, f.SyncBuffer(up))
	assert.True(t, f.OK())

	info, err := f.LookupBuffer(up)
	require.NoError(t, err)
	assert.True(t, info.Created)
	assert.GreaterOrEqual(t, info.AllocatedSize, info.Size)
}

func TestResizeBufferWithinAllocation(t *testing.T) {
	f := setupDevice(t, "resize")

	h, err := f.DescribeBuffer(0, StorageBuffer, AccessShared)
	require.NoError(t, err)
	require.NoError(t, f.CreateBuffer(h, 1024))

	ptr, _, err := f.MapBuffer(h)
	require.NoError(t, err)

	// Shrink then regrow within the original allocation. Neither step
	// reallocates, so the mapping stays valid.
	require.NoError(t, f.ResizeBuffer(h, 256))
	info, err := f.LookupBuffer(h)
	require.NoError(t, err)
	assert.Equal(t, 256, info.Size)
	assert.GreaterOrEqual(t, info.AllocatedSize, 1024)

	require.NoError(t, f.ResizeBuffer(h, 1024))
	ptr2, _, err := f.MapBuffer(h)
	require.NoError(t, err)
	assert.Equal(t, ptr, ptr2)
}

func TestResizeBufferGrowReallocates(t *testing.T) {
	f := setupDevice(t, "regrow")

	h, err := f.DescribeBuffer(0, StorageBuffer, AccessShared)
	require.NoError(t, err)
	require.NoError(t, f.CreateBuffer(h, 64))

	_, _, err = f.MapBuffer(h)
	require.NoError(t, err)

	require.NoError(t, f.ResizeBuffer(h, 1<<20))
	info, err := f.LookupBuffer(h)
	require.NoError(t, err)
	assert.Equal(t, 1<<20, info.Size)
	assert.False(t, info.Mapped, "a true grow drops the old mapping")

	var ptr unsafe.Pointer
	ptr, _, err = f.MapBuffer(h)
	require.NoError(t, err)
	assert.NotNil(t, ptr)
}

func TestMapLocalBufferFails(t *testing.T) {
	f := setupDevice(t, "local")

	h, err := f.DescribeBuffer(0, StorageBuffer, AccessLocal)
	require.NoError(t, err)
	require.NoError(t, f.CreateBuffer(h, 64))

	_, _, err = f.MapBuffer(h)
	assert.Error(t, err)
}

func TestComputePipelineBeforeBufferCreation(t *testing.T) {
	f := setupDevice(t, "twophase")

	// The set layout derives from the described shape alone, so the
	// pipeline can be built before any native buffer exists.
	h, err := f.DescribeBuffer(0, StorageBuffer, AccessShared)
	require.NoError(t, err)

	layout, err := f.buildSetLayout([]BufferHandle{h}, vk.ShaderStageFlags(vk.ShaderStageComputeBit))
	require.NoError(t, err)
	assert.NotNil(t, layout)
	layout.Destroy()
}
