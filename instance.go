package vkf

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// PortabilityExtensionName is enabled at instance creation whenever the
// loader offers it, so the framework also runs on drivers exposed through a
// portability layer (MoltenVK and friends).
const PortabilityExtensionName = "VK_KHR_portability_enumeration"

// ValidationLayerName is the validation layer enabled by EnableDiagnostics.
const ValidationLayerName = "VK_LAYER_KHRONOS_validation"

const debugReportExtensionName = "VK_EXT_debug_report"

// InitializeForComputeOnly initializes the Vulkan loader for a compute based
// task. Graphics programs initialize through their window library instead.
func InitializeForComputeOnly() error {
	err := vk.SetDefaultGetInstanceProcAddr()
	if err != nil {
		return err
	}
	return vk.Init()
}

// Version is used to specify versions of components.
type Version struct {
	Major int
	Minor int
	Patch int
}

// VKVersion returns a Vulkan compatible version representation.
func (v *Version) VKVersion() uint32 {
	return vk.MakeVersion(v.Major, v.Minor, v.Patch)
}

// SupportedLayers returns the instance layers the loader offers. The loader
// must have been initialized first.
func SupportedLayers() ([]string, error) {
	var instanceLayerLen uint32
	err := vk.Error(vk.EnumerateInstanceLayerProperties(&instanceLayerLen, nil))
	if err != nil {
		return nil, err
	}
	instanceLayer := make([]vk.LayerProperties, instanceLayerLen)
	err = vk.Error(vk.EnumerateInstanceLayerProperties(&instanceLayerLen, instanceLayer))
	if err != nil {
		return nil, err
	}
	layerNames := make([]string, 0)
	for _, layer := range instanceLayer {
		layer.Deref()
		layerNames = append(layerNames, vk.ToString(layer.LayerName[:]))
	}
	return layerNames, nil
}

// SupportedExtensions returns the instance extensions the loader offers.
func SupportedExtensions() ([]string, error) {
	var instanceExtLen uint32
	err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &instanceExtLen, nil))
	if err != nil {
		return nil, err
	}
	instanceExt := make([]vk.ExtensionProperties, instanceExtLen)
	err = vk.Error(vk.EnumerateInstanceExtensionProperties("", &instanceExtLen, instanceExt))
	if err != nil {
		return nil, err
	}
	extNames := make([]string, 0)
	for _, ext := range instanceExt {
		ext.Deref()
		extNames = append(extNames, vk.ToString(ext.ExtensionName[:]))
	}
	return extNames, nil
}

// Instance is an instance of the Vulkan subsystem.
type Instance struct {
	VKInstance vk.Instance
}

func (i *Instance) Destroy() {
	vk.DestroyInstance(i.VKInstance, nil)
}

// PhysicalDevices returns a list of physical devices known to Vulkan.
func (i *Instance) PhysicalDevices() ([]*PhysicalDevice, error) {
	var deviceCount uint32
	err := vk.Error(vk.EnumeratePhysicalDevices(i.VKInstance, &deviceCount, nil))
	if err != nil {
		return nil, err
	}

	if deviceCount == 0 {
		return nil, nil
	}

	devices := make([]vk.PhysicalDevice, deviceCount)
	err = vk.Error(vk.EnumeratePhysicalDevices(i.VKInstance, &deviceCount, devices))
	if err != nil {
		return nil, err
	}

	ret := make([]*PhysicalDevice, deviceCount)
	for i, device := range devices {
		ret[i] = &PhysicalDevice{}
		ret[i].VKPhysicalDevice = device

		vk.GetPhysicalDeviceProperties(device, &ret[i].VKPhysicalDeviceProperties)

		ret[i].VKPhysicalDeviceProperties.Deref()
		ret[i].DeviceName = vk.ToString(ret[i].VKPhysicalDeviceProperties.DeviceName[:])
	}
	return ret, nil
}

// selectInstanceExtensions combines the extensions the caller requested with
// the optional ones the loader actually offers: the portability enumeration
// extension whenever present, and the debug report extension when diagnostics
// are on. The second return reports whether debug report made the list, which
// decides whether a callback gets installed.
func selectInstanceExtensions(requested, available []string, diagnostics bool) ([]string, bool) {
	extensions := append([]string{}, requested...)
	debugReport := false
	for _, ext := range available {
		switch {
		case ext == PortabilityExtensionName:
			extensions = append(extensions, PortabilityExtensionName)
		case ext == debugReportExtensionName && diagnostics:
			extensions = append(extensions, debugReportExtensionName)
			debugReport = true
		}
	}
	return extensions, debugReport
}

// CreateInstance creates the Vulkan instance. It enables the portability
// extension when the loader offers it and, when EnableDiagnostics was called
// beforehand, the validation layer plus a debug callback. Requesting
// diagnostics after this call has no effect.
func (f *Framework) CreateInstance() error {
	if !f.status.OK() {
		return f.status.Err()
	}
	if f.state != stateUninitialized {
		return f.status.failf("CreateInstance: called in state %s", f.state)
	}

	available, err := SupportedExtensions()
	if err != nil {
		return f.status.fail(errors.Wrap(err, "CreateInstance: enumerating extensions"))
	}
	extensions, debugReport := selectInstanceExtensions(f.instanceExtensions, available, f.diagnostics)
	if f.diagnostics && !debugReport {
		f.logf("vkf.instance", "extension %s not available, validation messages will not be captured", debugReportExtensionName)
	}

	var layers []string
	if f.diagnostics {
		supported, err := SupportedLayers()
		if err != nil {
			return f.status.fail(errors.Wrap(err, "CreateInstance: enumerating layers"))
		}
		for _, l := range supported {
			if l == ValidationLayerName {
				layers = append(layers, ValidationLayerName)
			}
		}
		if len(layers) == 0 {
			f.logf("vkf.instance", "validation layer %s not available, diagnostics will be limited", ValidationLayerName)
		}
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         vk.MakeVersion(1, 0, 0),
		ApplicationVersion: f.version.VKVersion(),
		PApplicationName:   safeString(f.name),
		PEngineName:        safeString("vkf"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}

	instance := &Instance{}
	res := vk.CreateInstance(&createInfo, nil, &instance.VKInstance)
	if res != vk.Success {
		return f.status.failResult("vkCreateInstance", res)
	}
	vk.InitInstance(instance.VKInstance)

	f.instance = instance
	f.state = stateInstanceCreated

	if debugReport {
		if err := f.installDebugCallback(); err != nil {
			f.logf("vkf.instance", "debug callback unavailable: %v", err)
		}
	}

	f.logf("vkf.instance", "instance created, %d extensions, %d layers", len(extensions), len(layers))
	return nil
}

func (f *Framework) installDebugCallback() error {
	ret := vk.CreateDebugReportCallback(f.instance.VKInstance, &vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit | vk.DebugReportInformationBit | vk.DebugReportDebugBit),
		PfnCallback: f.debugReport,
	}, nil, &f.debugCallback)
	return vk.Error(ret)
}

// debugReport routes validation messages by severity: verbose and
// informational traffic goes to an informational channel the logger filters
// out by default, warnings and errors are shown, and an error additionally
// sets the sticky validation flag so later operations fail even though the
// call that caused the complaint appeared to succeed.
func (f *Framework) debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		f.logf("vkf.validation.error", "[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
		f.status.setValidationError()
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0,
		flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		f.logf("vkf.validation.warning", "[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	default:
		f.logf("vkf.validation.info", "[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
