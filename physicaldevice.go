package vkf

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

type VKPresentModes []vk.PresentMode

func (v VKPresentModes) Filter(f vk.PresentMode) VKPresentModes {
	ret := make(VKPresentModes, 0)
	for _, s := range v {
		if f == s {
			ret = append(ret, s)
		}
	}
	return ret
}

type VKSurfaceFormats []vk.SurfaceFormat

func (v VKSurfaceFormats) Filter(f func(f vk.SurfaceFormat) bool) VKSurfaceFormats {
	ret := make(VKSurfaceFormats, 0)
	for _, s := range v {
		s.Deref()
		if f(s) {
			ret = append(ret, s)
		}
	}
	return ret
}

type PhysicalDevice struct {
	DeviceName                 string
	VKPhysicalDevice           vk.PhysicalDevice
	VKPhysicalDeviceProperties vk.PhysicalDeviceProperties
}

func (p *PhysicalDevice) GetSurfacePresentModes(surface vk.Surface) (VKPresentModes, error) {
	var count uint32
	err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(p.VKPhysicalDevice, surface, &count, nil))
	if err != nil {
		return nil, err
	}

	f := make([]vk.PresentMode, count)
	err = vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(p.VKPhysicalDevice, surface, &count, f))
	if err != nil {
		return nil, err
	}

	return f, nil
}

func (p *PhysicalDevice) GetSurfaceFormats(surface vk.Surface) (VKSurfaceFormats, error) {
	var count uint32
	err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(p.VKPhysicalDevice, surface, &count, nil))
	if err != nil {
		return nil, err
	}

	f := make([]vk.SurfaceFormat, count)
	err = vk.Error(vk.GetPhysicalDeviceSurfaceFormats(p.VKPhysicalDevice, surface, &count, f))
	if err != nil {
		return nil, err
	}

	return f, nil
}

func (p *PhysicalDevice) GetSurfaceCapabilities(surface vk.Surface) (*vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(p.VKPhysicalDevice, surface, &caps))
	if err != nil {
		return nil, err
	}

	return &caps, err
}

func (p *PhysicalDevice) String() string {
	return p.DeviceName
}

func (p *PhysicalDevice) QueueFamilies() (QueueFamilySlice, error) {
	var queueFamilyCount uint32

	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &queueFamilyCount, nil)

	if queueFamilyCount == 0 {
		return nil, nil
	}

	queues := make([]vk.QueueFamilyProperties, queueFamilyCount)

	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &queueFamilyCount, queues)

	ret := make([]*QueueFamily, queueFamilyCount)
	for i, queue := range queues {
		ret[i] = &QueueFamily{Index: i, PhysicalDevice: p, VKQueueFamilyProperties: queue}
		ret[i].VKQueueFamilyProperties.Deref()
	}

	return ret, nil
}

type CreateDeviceOptions struct {
	EnabledExtensions []string
	EnabledLayers     []string
}

func (p *PhysicalDevice) CreateLogicalDeviceWithOptions(qfs QueueFamilySlice, options *CreateDeviceOptions) (*Device, error) {
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(qfs))
	for j, q := range qfs {
		queueCreateInfos[j] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(q.Index),
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceFeatures := p.VKPhysicalDeviceFeatures()

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: uint32(len(qfs)),
		PQueueCreateInfos:    queueCreateInfos,
		PEnabledFeatures:     []vk.PhysicalDeviceFeatures{deviceFeatures},
	}

	if options != nil {
		if options.EnabledExtensions != nil {
			deviceCreateInfo.EnabledExtensionCount = uint32(len(options.EnabledExtensions))
			deviceCreateInfo.PpEnabledExtensionNames = safeStrings(options.EnabledExtensions)
		}
		if options.EnabledLayers != nil {
			deviceCreateInfo.EnabledLayerCount = uint32(len(options.EnabledLayers))
			deviceCreateInfo.PpEnabledLayerNames = safeStrings(options.EnabledLayers)
		}
	}

	var ldevice vk.Device

	err := vk.Error(vk.CreateDevice(p.VKPhysicalDevice, &deviceCreateInfo, nil, &ldevice))
	if err != nil {
		return nil, errors.Wrap(err, "vkCreateDevice")
	}

	return &Device{PhysicalDevice: p, VKDevice: ldevice}, nil
}

func (p *PhysicalDevice) VKPhysicalDeviceFeatures() vk.PhysicalDeviceFeatures {
	var deviceFeatures vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(p.VKPhysicalDevice, &deviceFeatures)
	return deviceFeatures
}

func (p *PhysicalDevice) MemoryTypes() []vk.MemoryType {
	mp := p.VKPhysicalDeviceMemoryProperties()
	mp.Deref()

	ret := make([]vk.MemoryType, 0)

	var i uint32
	for i = 0; i < mp.MemoryTypeCount; i++ {
		mt := mp.MemoryTypes[i]
		mt.Deref()
		ret = append(ret, mt)
	}
	return ret
}

func (p *PhysicalDevice) VKPhysicalDeviceMemoryProperties() vk.PhysicalDeviceMemoryProperties {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(p.VKPhysicalDevice, &memoryProperties)
	return memoryProperties
}

// MemoryTypePolicy chooses among memory type indices that all satisfy the
// requested property flags. The candidates are in device order, which the
// Vulkan spec orders from fewest to most property flags.
type MemoryTypePolicy func(candidates []uint32, types []vk.MemoryType) uint32

// FirstMatchMemoryType takes the first adequate memory type. Adequate, not
// best: a policy preferring the largest heap or the fewest extra flags can be
// plugged in instead.
func FirstMatchMemoryType(candidates []uint32, types []vk.MemoryType) uint32 {
	return candidates[0]
}

// FindMemoryType returns a memory type index satisfying memoryTypeBits and
// the requested property flags, chosen by the given policy (nil means first
// match). It fails if no type qualifies.
func (p *PhysicalDevice) FindMemoryType(memoryTypeBits uint32, properties vk.MemoryPropertyFlags, policy MemoryTypePolicy) (uint32, error) {
	types := p.MemoryTypes()

	var candidates []uint32
	for i := range types {
		if memoryTypeBits&(1<<uint32(i)) != 0 &&
			vk.MemoryPropertyFlags(types[i].PropertyFlags)&properties == properties {
			candidates = append(candidates, uint32(i))
		}
	}
	if len(candidates) == 0 {
		return 0, errors.Newf("no memory type satisfies property flags %#x", properties)
	}
	if policy == nil {
		policy = FirstMatchMemoryType
	}
	return policy(candidates, types), nil
}

func (p *PhysicalDevice) SupportedExtensions() ([]string, error) {
	var count uint32
	err := vk.Error(vk.EnumerateDeviceExtensionProperties(p.VKPhysicalDevice, "", &count, nil))
	if err != nil {
		return nil, err
	}

	ext := make([]vk.ExtensionProperties, count)

	err = vk.Error(vk.EnumerateDeviceExtensionProperties(p.VKPhysicalDevice, "", &count, ext))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, count)
	for _, e := range ext {
		e.Deref()
		names = append(names, vk.ToString(e.ExtensionName[:]))
	}
	return names, nil
}

// SupportsExtensions reports whether every named extension is available on
// this device.
func (p *PhysicalDevice) SupportsExtensions(names []string) (bool, error) {
	supported, err := p.SupportedExtensions()
	if err != nil {
		return false, err
	}
	have := make(map[string]bool, len(supported))
	for _, s := range supported {
		have[s] = true
	}
	for _, n := range names {
		if !have[n] {
			return false, nil
		}
	}
	return true, nil
}

// SwapchainAdequate reports whether the device offers at least one surface
// format and one present mode for the surface. A device that cannot present
// at all is not a candidate for a graphics framework.
func (p *PhysicalDevice) SwapchainAdequate(surface vk.Surface) (bool, error) {
	formats, err := p.GetSurfaceFormats(surface)
	if err != nil {
		return false, err
	}
	modes, err := p.GetSurfacePresentModes(surface)
	if err != nil {
		return false, err
	}
	return len(formats) > 0 && len(modes) > 0, nil
}

// Score rates this device as a candidate: every device that passed the gates
// gets 1 point, a discrete GPU gets 10 more, and support for double-precision
// floats in shaders another 10.
func (p *PhysicalDevice) Score() int {
	score := 1

	props := p.VKPhysicalDeviceProperties
	props.Deref()
	if props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
		score += 10
	}

	features := p.VKPhysicalDeviceFeatures()
	features.Deref()
	if features.ShaderFloat64 == vk.True {
		score += 10
	}

	return score
}
