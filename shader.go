package vkf

import (
	"os"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ShaderModule wraps compiled SPIR-V loaded onto the device. Compute pipeline
// builds release their module once the pipeline exists; modules loaded
// directly by the caller live until teardown.
type ShaderModule struct {
	Device         *Device
	Description    string
	VKShaderModule vk.ShaderModule
}

func (d *Device) LoadShaderModuleFromBytes(data []byte) (*ShaderModule, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, errors.Newf("SPIR-V blob length %d is not a positive multiple of 4", len(data))
	}
	var module vk.ShaderModule
	err := vk.Error(vk.CreateShaderModule(d.VKDevice, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(data)),
		PCode:    sliceUint32(data),
	}, nil, &module))
	if err != nil {
		return nil, errors.Wrap(err, "vkCreateShaderModule")
	}

	return &ShaderModule{Device: d, VKShaderModule: module}, nil
}

func (d *Device) LoadShaderModuleFromFile(file string) (*ShaderModule, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "reading shader %s", file)
	}
	sm, err := d.LoadShaderModuleFromBytes(data)
	if err != nil {
		return nil, err
	}
	sm.Description = file
	return sm, nil
}

func (s *ShaderModule) VKPipelineShaderStageCreateInfo(stage vk.ShaderStageFlagBits, entryPoint string) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: s.VKShaderModule,
		PName:  safeString(entryPoint),
	}
}

func (s *ShaderModule) Destroy() {
	vk.DestroyShaderModule(s.Device.VKDevice, s.VKShaderModule, nil)
}

// LoadShaderModuleFromFile loads SPIR-V from disk and tracks the module for
// teardown. Pipeline builders that consume a module destroy it themselves and
// drop it from tracking.
func (f *Framework) LoadShaderModuleFromFile(file string) (*ShaderModule, error) {
	if !f.status.OK() {
		return nil, f.status.Err()
	}
	if err := f.requireDevice("LoadShaderModuleFromFile"); err != nil {
		return nil, err
	}
	sm, err := f.device.LoadShaderModuleFromFile(file)
	if err != nil {
		return nil, f.status.fail(err)
	}
	f.shaderModules = append(f.shaderModules, sm)
	return sm, nil
}

// LoadShaderModuleFromBytes is LoadShaderModuleFromFile for an in-memory blob.
func (f *Framework) LoadShaderModuleFromBytes(data []byte) (*ShaderModule, error) {
	if !f.status.OK() {
		return nil, f.status.Err()
	}
	if err := f.requireDevice("LoadShaderModuleFromBytes"); err != nil {
		return nil, err
	}
	sm, err := f.device.LoadShaderModuleFromBytes(data)
	if err != nil {
		return nil, f.status.fail(err)
	}
	f.shaderModules = append(f.shaderModules, sm)
	return sm, nil
}

func (f *Framework) releaseShaderModule(sm *ShaderModule) {
	for i, m := range f.shaderModules {
		if m == sm {
			f.shaderModules = append(f.shaderModules[:i], f.shaderModules[i+1:]...)
			break
		}
	}
	sm.Destroy()
}

func sliceUint32(data []byte) []uint32 {
	const m = 0x7fffffff
	return (*[m / 4]uint32)(unsafe.Pointer(unsafe.SliceData(data)))[:len(data)/4]
}
