package vkf

import (
	vk "github.com/vulkan-go/vulkan"
)

type frameworkState int

const (
	stateUninitialized frameworkState = iota
	stateInstanceCreated
	stateDeviceSelected
	stateLogicalDeviceReady
)

func (s frameworkState) String() string {
	switch s {
	case stateUninitialized:
		return "Uninitialized"
	case stateInstanceCreated:
		return "InstanceCreated"
	case stateDeviceSelected:
		return "DeviceSelected"
	case stateLogicalDeviceReady:
		return "LogicalDeviceReady"
	}
	return "Invalid"
}

// DebugLogger receives the framework's diagnostic output. Levels are
// hierarchical dot-separated names such as "vkf.buffer.create" or
// "vkf.validation.error"; a logger filters on them however it likes. The
// framework only emits through this interface and never inspects the logger.
type DebugLogger interface {
	Logf(level, format string, args ...interface{})
}

// QueueFamilyPolicy chooses one family from the candidates that all satisfy
// the framework's requirements. FirstMatchQueueFamily is the default.
type QueueFamilyPolicy func(candidates QueueFamilySlice) *QueueFamily

// FirstMatchQueueFamily takes the first adequate family, making no attempt at
// an optimal assignment.
func FirstMatchQueueFamily(candidates QueueFamilySlice) *QueueFamily {
	return candidates[0]
}

// Framework is the Vulkan resource and pipeline lifecycle manager. It owns
// the instance, device, all managed buffers, pipelines, descriptor machinery
// and, for graphics programs, the swapchain, and it releases everything in
// dependency order at teardown.
//
// A Framework is single threaded: no two goroutines may call into the same
// instance concurrently. GPU work it submits runs asynchronously, but
// SubmitAndWait blocks the calling goroutine until the work completes.
type Framework struct {
	name    string
	version Version

	status *Status
	logger DebugLogger

	state       frameworkState
	diagnostics bool

	instanceExtensions []string
	instance           *Instance
	debugCallback      vk.DebugReportCallback

	physicalDevice         *PhysicalDevice
	device                 *Device
	queueFamily            *QueueFamily
	queue                  *Queue
	needsPortabilitySubset bool

	memoryPolicy MemoryTypePolicy
	queuePolicy  QueueFamilyPolicy

	buffers handleTable

	shaderModules   []*ShaderModule
	setLayouts      []*DescriptorSetLayout
	descriptorPools []*DescriptorPool
	pipelines       []*PipelineRecord

	commandPool *CommandPool

	graphics   bool
	surface    vk.Surface
	fbWidth    uint32
	fbHeight   uint32
	swap       *swapchainState
	renderPass vk.RenderPass

	closed bool
}

// NewFramework returns a framework in the Uninitialized state. The caller
// then walks it through CreateInstance, SelectDevice and
// CreateLogicalDeviceAndQueue, in that order, with no step skippable.
func NewFramework(name string, version Version) *Framework {
	return &Framework{
		name:    name,
		version: version,
		status:  NewStatus(),
	}
}

// OK reports whether every operation so far succeeded and the validation
// layer has stayed quiet. Once false it stays false, and every subsequent
// operation short-circuits; the check is authoritative over any individual
// call's apparent success, because validation failures arrive asynchronously.
func (f *Framework) OK() bool {
	return f.status.OK()
}

// Err returns the first recorded error, or nil.
func (f *Framework) Err() error {
	return f.status.Err()
}

// Status exposes the shared status object.
func (f *Framework) Status() *Status {
	return f.status
}

// SetLogger installs the diagnostic logger. A nil logger silences output.
func (f *Framework) SetLogger(l DebugLogger) {
	f.logger = l
}

func (f *Framework) logf(level, format string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Logf(level, format, args...)
	}
}

// SetMemoryTypePolicy overrides the first-match memory type selection.
func (f *Framework) SetMemoryTypePolicy(p MemoryTypePolicy) {
	f.memoryPolicy = p
}

// SetQueueFamilyPolicy overrides the first-match queue family selection.
func (f *Framework) SetQueueFamilyPolicy(p QueueFamilyPolicy) {
	f.queuePolicy = p
}

// EnableDiagnostics requests the validation layer and debug callback. It
// only has an effect before CreateInstance.
func (f *Framework) EnableDiagnostics() {
	f.diagnostics = true
}

// RequireInstanceExtensions adds instance extensions that must be enabled at
// CreateInstance time, typically the set the window library reports it needs
// for surface creation.
func (f *Framework) RequireInstanceExtensions(names []string) {
	f.instanceExtensions = append(f.instanceExtensions, names...)
}

// EnableGraphics hands the framework the presentable surface. It must be
// called after CreateInstance and before SelectDevice, since device selection
// gates on swapchain adequacy against this surface.
func (f *Framework) EnableGraphics(surface vk.Surface) error {
	if !f.status.OK() {
		return f.status.Err()
	}
	if f.state != stateInstanceCreated {
		return f.status.failf("EnableGraphics: called in state %s", f.state)
	}
	f.graphics = true
	f.surface = surface
	return nil
}

// SetFrameBufferSize records the surface pixel dimensions. The window
// provider calls this initially and again on resize; the next DrawFrame
// rebuilds the swapchain to match.
func (f *Framework) SetFrameBufferSize(width, height int) {
	f.fbWidth = uint32(width)
	f.fbHeight = uint32(height)
	if f.swap != nil {
		f.swap.resized = true
	}
}

// SelectDevice enumerates physical devices, discards those missing the
// required extensions (and, for graphics, those without an adequate
// swapchain for the surface) and keeps the highest scoring survivor.
func (f *Framework) SelectDevice() error {
	if !f.status.OK() {
		return f.status.Err()
	}
	if f.state != stateInstanceCreated {
		return f.status.failf("SelectDevice: called in state %s", f.state)
	}

	devices, err := f.instance.PhysicalDevices()
	if err != nil {
		return f.status.fail(err)
	}
	if len(devices) == 0 {
		return f.status.failf("SelectDevice: no Vulkan devices found")
	}

	required := f.requiredDeviceExtensions()

	var best *PhysicalDevice
	bestScore := 0
	for _, pd := range devices {
		ok, err := pd.SupportsExtensions(required)
		if err != nil {
			return f.status.fail(err)
		}
		if !ok {
			f.logf("vkf.device.select", "%s rejected: missing required extensions", pd)
			continue
		}
		if f.graphics {
			adequate, err := pd.SwapchainAdequate(f.surface)
			if err != nil {
				return f.status.fail(err)
			}
			if !adequate {
				f.logf("vkf.device.select", "%s rejected: swapchain inadequate", pd)
				continue
			}
		}
		score := pd.Score()
		f.logf("vkf.device.select", "%s scored %d", pd, score)
		if score > bestScore {
			best = pd
			bestScore = score
		}
	}
	if best == nil {
		return f.status.failf("SelectDevice: no suitable Vulkan device found")
	}

	subset, err := best.SupportsExtensions([]string{"VK_KHR_portability_subset"})
	if err != nil {
		return f.status.fail(err)
	}
	f.needsPortabilitySubset = subset

	f.physicalDevice = best
	f.state = stateDeviceSelected
	f.logf("vkf.device.select", "selected %s (score %d)", best, bestScore)
	return nil
}

func (f *Framework) requiredDeviceExtensions() []string {
	if f.graphics {
		return []string{"VK_KHR_swapchain"}
	}
	return nil
}

// CreateLogicalDeviceAndQueue picks a queue family supporting compute (and
// graphics with present when graphics is enabled), creates the logical device
// with exactly one queue from it, and readies the command pool.
func (f *Framework) CreateLogicalDeviceAndQueue() error {
	if !f.status.OK() {
		return f.status.Err()
	}
	if f.state != stateDeviceSelected {
		return f.status.failf("CreateLogicalDeviceAndQueue: called in state %s", f.state)
	}

	families, err := f.physicalDevice.QueueFamilies()
	if err != nil {
		return f.status.fail(err)
	}

	candidates := families.FilterCompute()
	if f.graphics {
		candidates = candidates.FilterGraphicsAndPresent(f.surface)
	}
	if len(candidates) == 0 {
		return f.status.failf("CreateLogicalDeviceAndQueue: no queue family supports the required work")
	}

	policy := f.queuePolicy
	if policy == nil {
		policy = FirstMatchQueueFamily
	}
	qf := policy(candidates)

	extensions := f.requiredDeviceExtensions()
	if f.needsPortabilitySubset {
		extensions = append(extensions, "VK_KHR_portability_subset")
	}

	device, err := f.physicalDevice.CreateLogicalDeviceWithOptions(QueueFamilySlice{qf}, &CreateDeviceOptions{
		EnabledExtensions: extensions,
	})
	if err != nil {
		return f.status.fail(err)
	}

	f.device = device
	f.queueFamily = qf
	f.queue = device.GetQueue(qf)

	pool, err := device.CreateCommandPool(qf)
	if err != nil {
		return f.status.fail(err)
	}
	f.commandPool = pool

	f.state = stateLogicalDeviceReady
	f.logf("vkf.device.create", "logical device ready, queue family %d", qf.Index)
	return nil
}

func (f *Framework) requireDevice(op string) error {
	if f.state != stateLogicalDeviceReady {
		return f.status.failf("%s: device is not ready (state %s)", op, f.state)
	}
	return nil
}

// Device exposes the logical device for programs that need native calls the
// framework does not wrap.
func (f *Framework) Device() *Device {
	return f.device
}

// PhysicalDevice exposes the selected physical device.
func (f *Framework) PhysicalDevice() *PhysicalDevice {
	return f.physicalDevice
}

// Instance exposes the Vulkan instance.
func (f *Framework) Instance() *Instance {
	return f.instance
}

// Teardown releases every outstanding resource in strict reverse dependency
// order and leaves the framework unusable. It is idempotent: a second call,
// including the one from Close, is a no-op. Teardown proceeds even when the
// status is failed, releasing whatever was created before the failure.
func (f *Framework) Teardown() {
	if f.closed {
		return
	}
	f.closed = true

	if f.device != nil {
		f.device.WaitIdle()
	}

	if f.swap != nil {
		f.destroySwapchainResources()
		f.swap = nil
	}

	for _, sm := range f.shaderModules {
		sm.Destroy()
	}
	f.shaderModules = nil

	for _, l := range f.setLayouts {
		l.Destroy()
	}
	f.setLayouts = nil

	for _, p := range f.descriptorPools {
		p.Destroy()
	}
	f.descriptorPools = nil

	if f.commandPool != nil {
		f.commandPool.Destroy()
		f.commandPool = nil
	}

	f.buffers.each(func(h BufferHandle, rec *BufferRecord) {
		if rec.mapped != nil {
			rec.primaryMem.Unmap()
			rec.mapped = nil
		}
		f.destroyNativePairs(rec)
	})
	f.buffers = handleTable{}

	for _, p := range f.pipelines {
		p.destroy(f.device)
	}
	f.pipelines = nil

	if f.renderPass != vk.NullRenderPass && f.device != nil {
		vk.DestroyRenderPass(f.device.VKDevice, f.renderPass, nil)
		f.renderPass = vk.NullRenderPass
	}

	if f.graphics && f.surface != vk.NullSurface && f.instance != nil {
		vk.DestroySurface(f.instance.VKInstance, f.surface, nil)
		f.surface = vk.NullSurface
	}

	if f.device != nil {
		f.device.Destroy()
		f.device = nil
	}

	if f.debugCallback != vk.NullDebugReportCallback && f.instance != nil {
		vk.DestroyDebugReportCallback(f.instance.VKInstance, f.debugCallback, nil)
		f.debugCallback = vk.NullDebugReportCallback
	}

	if f.instance != nil {
		f.instance.Destroy()
		f.instance = nil
	}

	f.state = stateUninitialized
	f.logf("vkf.teardown", "framework torn down")
}

// Close implements io.Closer so a Framework can sit behind a defer. It runs
// Teardown and reports the first error the framework recorded, if any.
func (f *Framework) Close() error {
	err := f.status.Err()
	f.Teardown()
	return err
}
