package vkf

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statsDoc struct {
	Name                string `json:"name"`
	State               string `json:"state"`
	OK                  bool   `json:"ok"`
	ValidationErrorSeen bool   `json:"validationErrorSeen"`
	Buffers             []struct {
		Handle        string `json:"handle"`
		Type          string `json:"type"`
		Access        string `json:"access"`
		Binding       int    `json:"binding"`
		Size          int    `json:"size"`
		AllocatedSize int    `json:"allocatedSize"`
		Created       bool   `json:"created"`
		Mapped        bool   `json:"mapped"`
	} `json:"buffers"`
	BufferCount         int `json:"bufferCount"`
	LogicalBytes        int `json:"logicalBytes"`
	AllocatedBytes      int `json:"allocatedBytes"`
	PipelineCount       int `json:"pipelineCount"`
	DescriptorPoolCount int `json:"descriptorPoolCount"`
	ShaderModuleCount   int `json:"shaderModuleCount"`
}

func TestBuildStatsStringEmptyFramework(t *testing.T) {
	f := NewFramework("statstest", Version{Major: 1})

	out, err := f.BuildStatsString()
	require.NoError(t, err)

	var doc statsDoc
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "statstest", doc.Name)
	assert.Equal(t, "Uninitialized", doc.State)
	assert.True(t, doc.OK)
	assert.False(t, doc.ValidationErrorSeen)
	assert.Empty(t, doc.Buffers)
	assert.Equal(t, 0, doc.BufferCount)
}

func TestBuildStatsStringListsBuffers(t *testing.T) {
	f := NewFramework("statstest", Version{Major: 1})

	_, err := f.DescribeBuffer(0, StorageBuffer, AccessStagedCPU)
	require.NoError(t, err)
	_, err = f.DescribeBuffer(1, UniformBuffer, AccessShared)
	require.NoError(t, err)

	out, err := f.BuildStatsString()
	require.NoError(t, err)

	var doc statsDoc
	require.NoError(t, json.Unmarshal(out, &doc))
	require.Len(t, doc.Buffers, 2)
	assert.Equal(t, 2, doc.BufferCount)

	assert.Equal(t, "STORAGE", doc.Buffers[0].Type)
	assert.Equal(t, "STAGED_CPU", doc.Buffers[0].Access)
	assert.Equal(t, 0, doc.Buffers[0].Binding)
	assert.False(t, doc.Buffers[0].Created)

	assert.Equal(t, "UNIFORM", doc.Buffers[1].Type)
	assert.Equal(t, "SHARED", doc.Buffers[1].Access)
	assert.Equal(t, 1, doc.Buffers[1].Binding)

	// Described but uncreated buffers contribute no bytes.
	assert.Equal(t, 0, doc.LogicalBytes)
	assert.Equal(t, 0, doc.AllocatedBytes)
}

func TestBuildStatsStringReportsFailure(t *testing.T) {
	f := NewFramework("statstest", Version{Major: 1})
	require.Error(t, f.SelectDevice())

	out, err := f.BuildStatsString()
	require.NoError(t, err)

	var doc statsDoc
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.False(t, doc.OK)
}
