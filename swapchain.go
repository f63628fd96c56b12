package vkf

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Swapchain wraps the native swapchain and the properties it was created with.
type Swapchain struct {
	Extent      vk.Extent2D
	Format      vk.Format
	Device      *Device
	VKSwapchain vk.Swapchain
}

func (s *Swapchain) Destroy() {
	vk.DestroySwapchain(s.Device.VKDevice, s.VKSwapchain, nil)
}

func (s *Swapchain) GetImages() ([]vk.Image, error) {
	var imageCount uint32
	err := vk.Error(vk.GetSwapchainImages(s.Device.VKDevice, s.VKSwapchain, &imageCount, nil))
	if err != nil {
		return nil, errors.Wrap(err, "vkGetSwapchainImages")
	}

	images := make([]vk.Image, imageCount)
	err = vk.Error(vk.GetSwapchainImages(s.Device.VKDevice, s.VKSwapchain, &imageCount, images))
	if err != nil {
		return nil, errors.Wrap(err, "vkGetSwapchainImages")
	}
	return images, nil
}

// CreateSwapchain builds a swapchain for the surface: mailbox presentation
// when available with fifo as the always-supported fallback, B8G8R8A8 unorm
// when offered, one image more than the surface minimum. The framework drives
// graphics and present off a single queue, so sharing is exclusive.
func (d *Device) CreateSwapchain(surface vk.Surface, actualSize vk.Extent2D, old *Swapchain) (*Swapchain, error) {
	modes, err := d.PhysicalDevice.GetSurfacePresentModes(surface)
	if err != nil {
		return nil, err
	}
	presentMode := vk.PresentModeFifo
	if m := modes.Filter(vk.PresentModeMailbox); len(m) > 0 {
		presentMode = m[0]
	}

	formats, err := d.PhysicalDevice.GetSurfaceFormats(surface)
	if err != nil {
		return nil, err
	}
	if len(formats) == 0 {
		return nil, errors.New("surface reports no formats")
	}
	formats[0].Deref()
	format := formats[0]
	formats.Filter(func(f vk.SurfaceFormat) bool {
		f.Deref()
		if f.Format == vk.FormatB8g8r8a8Unorm {
			format = f
			return true
		}
		return false
	})

	caps, err := d.PhysicalDevice.GetSurfaceCapabilities(surface)
	if err != nil {
		return nil, err
	}
	caps.Deref()

	var extent vk.Extent2D
	caps.CurrentExtent.Deref()
	if caps.CurrentExtent.Width == vk.MaxUint32 {
		extent = actualSize
	} else {
		extent = caps.CurrentExtent
	}

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	createInfo := &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		PresentMode:      presentMode,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		Clipped:          vk.True,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		OldSwapchain:     vk.NullSwapchain,
	}
	if old != nil {
		createInfo.OldSwapchain = old.VKSwapchain
	}

	var swapchain vk.Swapchain
	err = vk.Error(vk.CreateSwapchain(d.VKDevice, createInfo, nil, &swapchain))
	if err != nil {
		return nil, errors.Wrap(err, "vkCreateSwapchain")
	}

	return &Swapchain{
		Device:      d,
		VKSwapchain: swapchain,
		Extent:      extent,
		Format:      format.Format,
	}, nil
}

// frameLag is the number of frames the CPU may record ahead of the GPU. Each
// frame slot carries its own acquire/render semaphores and in-flight fence.
const frameLag = 2

type swapchainState struct {
	swapchain    *Swapchain
	images       []vk.Image
	views        []vk.ImageView
	framebuffers []vk.Framebuffer

	// One command buffer per swapchain image, re-recorded every frame.
	commandBuffers []*CommandBuffer

	acquireSems [frameLag]vk.Semaphore
	renderSems  [frameLag]vk.Semaphore
	fences      [frameLag]*Fence

	slot    int
	resized bool
}

// PrepareSwapchain builds the swapchain and everything hanging off it: image
// views, the render pass (kept across recreations), framebuffers, per-image
// command buffers and per-slot sync objects. EnableGraphics and
// SetFrameBufferSize must have been called first.
func (f *Framework) PrepareSwapchain() error {
	if !f.status.OK() {
		return f.status.Err()
	}
	if err := f.requireDevice("PrepareSwapchain"); err != nil {
		return err
	}
	if !f.graphics {
		return f.status.failf("PrepareSwapchain: graphics was not enabled")
	}
	if f.fbWidth == 0 || f.fbHeight == 0 {
		return f.status.failf("PrepareSwapchain: frame buffer size has not been set")
	}
	if f.swap != nil {
		return f.status.failf("PrepareSwapchain: swapchain already prepared")
	}

	s := &swapchainState{}
	if err := f.buildSwapchainResources(s, nil); err != nil {
		return f.status.fail(err)
	}

	for i := 0; i < frameLag; i++ {
		var err error
		s.acquireSems[i], err = f.device.VKCreateSemaphore()
		if err != nil {
			return f.status.fail(err)
		}
		s.renderSems[i], err = f.device.VKCreateSemaphore()
		if err != nil {
			return f.status.fail(err)
		}
		// Signaled so the first frame's wait falls through.
		fence, err := f.device.VKCreateFence(true)
		if err != nil {
			return f.status.fail(err)
		}
		s.fences[i] = &Fence{Device: f.device, VKFence: fence}
	}

	f.swap = s
	f.logf("vkf.swapchain.prepare", "swapchain ready, %d images, extent %dx%d",
		len(s.images), s.swapchain.Extent.Width, s.swapchain.Extent.Height)
	return nil
}

// buildSwapchainResources creates the extent-dependent objects: swapchain,
// views, render pass (first time only), framebuffers, command buffers. Sync
// objects live in the frame slots and survive recreation.
func (f *Framework) buildSwapchainResources(s *swapchainState, old *Swapchain) (err error) {
	swapchain, err := f.device.CreateSwapchain(f.surface, vk.Extent2D{Width: f.fbWidth, Height: f.fbHeight}, old)
	if err != nil {
		return err
	}
	s.swapchain = swapchain

	// A mid-build failure must not leave half-built objects on the state; the
	// caller only ever sees everything or nothing.
	defer func() {
		if err != nil {
			f.destroyExtentResources(s)
			swapchain.Destroy()
			s.swapchain = nil
		}
	}()

	s.images, err = swapchain.GetImages()
	if err != nil {
		return err
	}

	s.views = make([]vk.ImageView, len(s.images))
	for i, img := range s.images {
		s.views[i], err = f.device.createSwapchainImageView(img, swapchain.Format)
		if err != nil {
			return err
		}
	}

	if f.renderPass == vk.NullRenderPass {
		f.renderPass, err = f.device.createColorRenderPass(swapchain.Format)
		if err != nil {
			return err
		}
	}

	s.framebuffers = make([]vk.Framebuffer, len(s.views))
	for i, view := range s.views {
		fbCreateInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      f.renderPass,
			Layers:          1,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           swapchain.Extent.Width,
			Height:          swapchain.Extent.Height,
		}
		err = vk.Error(vk.CreateFramebuffer(f.device.VKDevice, &fbCreateInfo, nil, &s.framebuffers[i]))
		if err != nil {
			return errors.Wrap(err, "vkCreateFramebuffer")
		}
	}

	s.commandBuffers, err = f.commandPool.AllocateBuffers(len(s.images))
	if err != nil {
		return err
	}
	return nil
}

func (d *Device) createSwapchainImageView(img vk.Image, format vk.Format) (vk.ImageView, error) {
	createInfo := &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	var view vk.ImageView
	err := vk.Error(vk.CreateImageView(d.VKDevice, createInfo, nil, &view))
	if err != nil {
		return vk.NullImageView, errors.Wrap(err, "vkCreateImageView")
	}
	return view, nil
}

// createColorRenderPass builds the single-subpass render pass the framework
// draws with: one color attachment cleared on load and presented on store.
func (d *Device) createColorRenderPass(format vk.Format) (vk.RenderPass, error) {
	attachments := []vk.AttachmentDescription{{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}

	colorAttachments := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpasses := []vk.SubpassDescription{{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachments,
	}}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      subpasses,
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var renderPass vk.RenderPass
	err := vk.Error(vk.CreateRenderPass(d.VKDevice, &createInfo, nil, &renderPass))
	if err != nil {
		return vk.NullRenderPass, errors.Wrap(err, "vkCreateRenderPass")
	}
	return renderPass, nil
}

// SwapchainExtent reports the current swapchain surface size in pixels.
func (f *Framework) SwapchainExtent() vk.Extent2D {
	if f.swap == nil || f.swap.swapchain == nil {
		return vk.Extent2D{}
	}
	return f.swap.swapchain.Extent
}

// DrawFrame runs one frame of the presentation cycle: wait for the frame
// slot's fence, acquire an image, re-record that image's command buffer and
// submit it, then present. The render pass begin/end and the dynamic
// viewport/scissor are recorded by the framework; record only issues the draw
// commands in between. An out-of-date swapchain, a suboptimal acquire or
// present, or a pending resize recreates the swapchain transparently; the
// frame is skipped and the next call draws normally.
func (f *Framework) DrawFrame(record func(cb *CommandBuffer) error) error {
	if !f.status.OK() {
		return f.status.Err()
	}
	if f.swap == nil {
		return f.status.failf("DrawFrame: swapchain has not been prepared")
	}

	s := f.swap

	// A pending resize rebuilds before anything is acquired. Acquiring first
	// would leave the slot's acquire semaphore signaled with no submit ever
	// waiting on it, which the next acquire may not reuse.
	if s.resized {
		return f.recreateSwapchain()
	}

	fence := s.fences[s.slot]
	if err := fence.Wait(submitTimeout); err != nil {
		return f.status.fail(err)
	}

	var imageIndex uint32
	res := vk.AcquireNextImage(f.device.VKDevice, s.swapchain.VKSwapchain, vk.MaxUint64,
		s.acquireSems[s.slot], vk.NullFence, &imageIndex)
	if res == vk.ErrorOutOfDate {
		return f.recreateSwapchain()
	}
	if err := vk.Error(res); err != nil && res != vk.Suboptimal {
		return f.status.fail(errors.Wrap(err, "vkAcquireNextImage"))
	}
	// A suboptimal acquire still delivered an image and signaled the
	// semaphore, so this frame is drawn and presented normally and the
	// rebuild happens afterwards.
	acquiredSuboptimal := res == vk.Suboptimal

	fence.Reset()

	cb := s.commandBuffers[imageIndex]
	if err := cb.Reset(); err != nil {
		return f.status.fail(err)
	}
	if err := cb.Begin(); err != nil {
		return f.status.fail(err)
	}

	extent := s.swapchain.Extent
	clearValues := []vk.ClearValue{vk.NewClearValue([]float32{0.0, 0.0, 0.0, 1.0})}
	renderPassBegin := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  f.renderPass,
		Framebuffer: s.framebuffers[imageIndex],
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: 1,
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cb.VKCommandBuffer, &renderPassBegin, vk.SubpassContentsInline)

	vk.CmdSetViewport(cb.VKCommandBuffer, 0, 1, []vk.Viewport{{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}})
	vk.CmdSetScissor(cb.VKCommandBuffer, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}})

	if err := record(cb); err != nil {
		return f.status.fail(err)
	}

	vk.CmdEndRenderPass(cb.VKCommandBuffer)
	if err := cb.End(); err != nil {
		return f.status.fail(err)
	}

	submitInfo := []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{s.acquireSems[s.slot]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{s.renderSems[s.slot]},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.VKCommandBuffer},
	}}
	if err := vk.Error(vk.QueueSubmit(f.queue.VKQueue, 1, submitInfo, fence.VKFence)); err != nil {
		return f.status.fail(errors.Wrap(err, "vkQueueSubmit"))
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.swapchain.VKSwapchain},
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{s.renderSems[s.slot]},
		PImageIndices:      []uint32{imageIndex},
	}
	res = vk.QueuePresent(f.queue.VKQueue, &presentInfo)
	s.slot = (s.slot + 1) % frameLag

	if res == vk.ErrorOutOfDate || res == vk.Suboptimal || acquiredSuboptimal || s.resized {
		return f.recreateSwapchain()
	}
	if err := vk.Error(res); err != nil {
		return f.status.fail(errors.Wrap(err, "vkQueuePresent"))
	}
	return nil
}

// recreateSwapchain tears down the extent-dependent objects and rebuilds them
// at the current frame buffer size. The render pass, pipelines and sync
// objects survive; pipelines keep working because viewport and scissor are
// dynamic state.
func (f *Framework) recreateSwapchain() error {
	s := f.swap

	f.device.WaitIdle()
	old := s.swapchain
	f.destroyExtentResources(s)

	if err := f.buildSwapchainResources(s, old); err != nil {
		old.Destroy()
		s.swapchain = nil
		return f.status.fail(err)
	}
	old.Destroy()

	s.resized = false
	s.slot = 0
	f.logf("vkf.swapchain.recreate", "swapchain recreated, extent %dx%d",
		s.swapchain.Extent.Width, s.swapchain.Extent.Height)
	return nil
}

// destroyExtentResources releases everything buildSwapchainResources created
// except the old swapchain handle itself, which recreation passes to the new
// swapchain before destroying.
func (f *Framework) destroyExtentResources(s *swapchainState) {
	for _, cb := range s.commandBuffers {
		f.commandPool.FreeBuffer(cb)
	}
	s.commandBuffers = nil

	for _, fb := range s.framebuffers {
		vk.DestroyFramebuffer(f.device.VKDevice, fb, nil)
	}
	s.framebuffers = nil

	for _, view := range s.views {
		vk.DestroyImageView(f.device.VKDevice, view, nil)
	}
	s.views = nil
	s.images = nil
}

// destroySwapchainResources is the teardown path: extent resources, the
// swapchain itself, then the sync objects. The render pass is destroyed later
// in the teardown sequence, after the pipelines built against it.
func (f *Framework) destroySwapchainResources() {
	s := f.swap
	if s == nil {
		return
	}

	f.destroyExtentResources(s)

	if s.swapchain != nil {
		s.swapchain.Destroy()
		s.swapchain = nil
	}

	for i := 0; i < frameLag; i++ {
		if s.acquireSems[i] != vk.NullSemaphore {
			f.device.VKDestroySemaphore(s.acquireSems[i])
		}
		if s.renderSems[i] != vk.NullSemaphore {
			f.device.VKDestroySemaphore(s.renderSems[i])
		}
		if s.fences[i] != nil {
			s.fences[i].Destroy()
		}
	}
}
