package vkf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestFrameworkStartsUninitialized(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})
	assert.True(t, f.OK())
	assert.Equal(t, stateUninitialized, f.state)
}

func TestSelectDeviceRequiresInstance(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})

	err := f.SelectDevice()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Uninitialized")
	assert.False(t, f.OK())
}

func TestCreateLogicalDeviceRequiresSelectedDevice(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})

	err := f.CreateLogicalDeviceAndQueue()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Uninitialized")
}

func TestEnableGraphicsRequiresInstance(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})

	err := f.EnableGraphics(vk.NullSurface)
	require.Error(t, err)
	assert.False(t, f.graphics)
}

func TestFailureShortCircuitsLaterOperations(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})

	first := f.SelectDevice()
	require.Error(t, first)

	// Every later operation returns the first error without attempting
	// anything, even ones that would otherwise have succeeded.
	_, err := f.DescribeBuffer(0, StorageBuffer, AccessShared)
	assert.Equal(t, first, err)
	assert.Equal(t, first, f.Err())
}

func TestTeardownIsIdempotentWithoutDevice(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})
	_, err := f.DescribeBuffer(0, StorageBuffer, AccessShared)
	require.NoError(t, err)

	f.Teardown()
	f.Teardown()
	assert.Equal(t, 0, f.buffers.count())
}

func TestCloseReturnsFirstError(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})
	want := f.SelectDevice()
	require.Error(t, want)

	assert.Equal(t, want, f.Close())
}

func TestSetFrameBufferSizeMarksResize(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})
	f.swap = &swapchainState{}

	f.SetFrameBufferSize(800, 600)
	assert.Equal(t, uint32(800), f.fbWidth)
	assert.Equal(t, uint32(600), f.fbHeight)
	assert.True(t, f.swap.resized)
}

func TestVersionEncoding(t *testing.T) {
	v := Version{Major: 1, Minor: 2, Patch: 3}
	assert.Equal(t, vk.MakeVersion(1, 2, 3), v.VKVersion())
}
