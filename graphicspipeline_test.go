package vkf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestParseTopology(t *testing.T) {
	cases := []struct {
		name string
		want vk.PrimitiveTopology
	}{
		{"TRIANGLE_LIST", vk.PrimitiveTopologyTriangleList},
		{"TRIANGLE_STRIP", vk.PrimitiveTopologyTriangleStrip},
		{"LINE_LIST", vk.PrimitiveTopologyLineList},
		{"LINE_STRIP", vk.PrimitiveTopologyLineStrip},
	}
	for _, c := range cases {
		got, err := ParseTopology(c.name)
		require.NoError(t, err, c.name)
		assert.Equal(t, c.want, got, c.name)
	}
}

func TestParseTopologyUnknown(t *testing.T) {
	_, err := ParseTopology("POINT_LIST")
	assert.Error(t, err)
	_, err = ParseTopology("triangle_list")
	assert.Error(t, err, "names are case sensitive")
}

func TestBuildGraphicsPipelineRequiresSwapchain(t *testing.T) {
	f := NewFramework("test", Version{Major: 1})

	_, err := f.BuildGraphicsPipeline(nil, nil, "TRIANGLE_LIST")
	require.Error(t, err)
	assert.False(t, f.OK())
}
