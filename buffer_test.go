package vkf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestParseBufferType(t *testing.T) {
	for _, name := range []string{"UNIFORM", "STORAGE", "VERTEX"} {
		bt, err := ParseBufferType(name)
		require.NoError(t, err)
		assert.Equal(t, name, bt.String())
	}

	_, err := ParseBufferType("TEXTURE")
	assert.Error(t, err)
	_, err = ParseBufferType("uniform")
	assert.Error(t, err, "names are case sensitive")
}

func TestParseAccessMode(t *testing.T) {
	for _, name := range []string{"LOCAL", "SHARED", "STAGED_CPU", "STAGED_GPU"} {
		a, err := ParseAccessMode(name)
		require.NoError(t, err)
		assert.Equal(t, name, a.String())
	}

	_, err := ParseAccessMode("STAGED")
	assert.Error(t, err)
}

func TestAccessModeStaged(t *testing.T) {
	assert.False(t, AccessLocal.staged())
	assert.False(t, AccessShared.staged())
	assert.True(t, AccessStagedCPU.staged())
	assert.True(t, AccessStagedGPU.staged())
}

func TestDescriptorType(t *testing.T) {
	u := &BufferRecord{Type: UniformBuffer}
	s := &BufferRecord{Type: StorageBuffer}
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, u.descriptorType())
	assert.Equal(t, vk.DescriptorTypeStorageBuffer, s.descriptorType())
}

func TestDescribeBufferRecordsShape(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})

	h, err := f.DescribeBuffer(2, StorageBuffer, AccessStagedCPU)
	require.NoError(t, err)
	require.NotEqual(t, NilBuffer, h)

	info, err := f.LookupBuffer(h)
	require.NoError(t, err)
	assert.Equal(t, StorageBuffer, info.Type)
	assert.Equal(t, AccessStagedCPU, info.Access)
	assert.Equal(t, 2, info.Binding)
	assert.False(t, info.Created)
	assert.False(t, info.Mapped)
	assert.Equal(t, 0, info.Size)
}

func TestDescribeBufferNegativeBinding(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})

	_, err := f.DescribeBuffer(-1, StorageBuffer, AccessShared)
	require.Error(t, err)

	// The failure is sticky: the next describe short-circuits with the
	// same error instead of succeeding.
	assert.False(t, f.OK())
	_, err2 := f.DescribeBuffer(0, StorageBuffer, AccessShared)
	require.Error(t, err2)
	assert.Equal(t, err, err2)
}

func TestDescribeBufferStagedUsageFlags(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})

	h, err := f.DescribeBuffer(0, StorageBuffer, AccessStagedCPU)
	require.NoError(t, err)
	rec, err := f.buffers.lookup(h)
	require.NoError(t, err)

	// The CPU-visible primary is a pure transfer source; the GPU-local
	// secondary carries the storage usage plus transfer destination.
	assert.Equal(t, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), rec.usage)
	assert.Equal(t,
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit|vk.BufferUsageTransferDstBit),
		rec.secondaryUsage)

	h2, err := f.DescribeBuffer(1, StorageBuffer, AccessStagedGPU)
	require.NoError(t, err)
	rec2, err := f.buffers.lookup(h2)
	require.NoError(t, err)
	assert.Equal(t, vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), rec2.usage)
	assert.Equal(t,
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit|vk.BufferUsageTransferSrcBit),
		rec2.secondaryUsage)
}

func TestCreateBufferRequiresDevice(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})

	h, err := f.DescribeBuffer(0, StorageBuffer, AccessShared)
	require.NoError(t, err)

	err = f.CreateBuffer(h, 1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Uninitialized")
	assert.False(t, f.OK())
}

func TestSetVertexDescriptionsRejectsNonVertex(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})

	h, err := f.DescribeBuffer(0, StorageBuffer, AccessShared)
	require.NoError(t, err)

	err = f.SetVertexDescriptions(h, vk.VertexInputBindingDescription{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE")
}

func TestSetVertexDescriptions(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})

	h, err := f.DescribeBuffer(0, VertexBuffer, AccessShared)
	require.NoError(t, err)

	binding := vk.VertexInputBindingDescription{Binding: 0, Stride: 20}
	attrs := []vk.VertexInputAttributeDescription{
		{Location: 0, Format: vk.FormatR32g32Sfloat},
		{Location: 1, Format: vk.FormatR32g32b32Sfloat, Offset: 8},
	}
	require.NoError(t, f.SetVertexDescriptions(h, binding, attrs))

	rec, err := f.buffers.lookup(h)
	require.NoError(t, err)
	assert.True(t, rec.hasVertexDesc)
	assert.Equal(t, uint32(20), rec.bindingDesc.Stride)
	assert.Len(t, rec.attrDescs, 2)
}

func TestDeleteBufferShortCircuitsAfterFailure(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})

	h, err := f.DescribeBuffer(0, StorageBuffer, AccessShared)
	require.NoError(t, err)

	first := f.SelectDevice()
	require.Error(t, first)

	// The delete must return the first error without touching the record.
	err = f.DeleteBuffer(h)
	assert.Equal(t, first, err)

	_, err = f.LookupBuffer(h)
	assert.NoError(t, err, "buffer must survive a short-circuited delete")
}

func TestCmdBindVertexBufferShortCircuitsAfterFailure(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})

	h, err := f.DescribeBuffer(0, VertexBuffer, AccessShared)
	require.NoError(t, err)

	first := f.SelectDevice()
	require.Error(t, first)

	// A nil command buffer would crash if the bind recorded anything.
	err = f.CmdBindVertexBuffer(nil, h)
	assert.Equal(t, first, err)
	f.CmdBindPipeline(nil, nil)
}

func TestLookupBufferAfterRelease(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})

	h, err := f.DescribeBuffer(0, StorageBuffer, AccessShared)
	require.NoError(t, err)

	// No native objects exist yet, so the delete is pure bookkeeping.
	require.NoError(t, f.DeleteBuffer(h))
	_, err = f.LookupBuffer(h)
	assert.Error(t, err)
}
