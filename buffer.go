package vkf

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// BufferType is the logical role of a managed buffer. It must match the
// declaration in the shader consuming it.
type BufferType int

const (
	UniformBuffer BufferType = iota
	StorageBuffer
	VertexBuffer
)

func (t BufferType) String() string {
	switch t {
	case UniformBuffer:
		return "UNIFORM"
	case StorageBuffer:
		return "STORAGE"
	case VertexBuffer:
		return "VERTEX"
	}
	return "INVALID"
}

// ParseBufferType converts a type name to a BufferType.
func ParseBufferType(s string) (BufferType, error) {
	switch s {
	case "UNIFORM":
		return UniformBuffer, nil
	case "STORAGE":
		return StorageBuffer, nil
	case "VERTEX":
		return VertexBuffer, nil
	}
	return 0, errors.Newf("unrecognized buffer type %q", s)
}

// AccessMode selects where a buffer lives and how the CPU reaches it.
//
// Local buffers live in device memory and cannot be mapped. Shared buffers
// live in host-visible coherent memory and are mapped directly. The staged
// modes keep two native buffers behind one handle: a CPU-visible primary and
// a GPU-local secondary, with SyncBuffer performing the explicit copy. The
// direction of the copy is the only difference between StagedCPU and
// StagedGPU; everything else about the call sites stays the same, which is
// what lets a program switch between shared and staged access by changing a
// single DescribeBuffer argument.
type AccessMode int

const (
	AccessLocal AccessMode = iota
	AccessShared
	AccessStagedCPU
	AccessStagedGPU
)

func (a AccessMode) String() string {
	switch a {
	case AccessLocal:
		return "LOCAL"
	case AccessShared:
		return "SHARED"
	case AccessStagedCPU:
		return "STAGED_CPU"
	case AccessStagedGPU:
		return "STAGED_GPU"
	}
	return "INVALID"
}

// ParseAccessMode converts an access-mode name to an AccessMode.
func ParseAccessMode(s string) (AccessMode, error) {
	switch s {
	case "LOCAL":
		return AccessLocal, nil
	case "SHARED":
		return AccessShared, nil
	case "STAGED_CPU":
		return AccessStagedCPU, nil
	case "STAGED_GPU":
		return AccessStagedGPU, nil
	}
	return 0, errors.Newf("unrecognized access mode %q", s)
}

func (a AccessMode) staged() bool {
	return a == AccessStagedCPU || a == AccessStagedGPU
}

// BufferRecord is the bookkeeping entry for one managed buffer. The primary
// native pair is the CPU-visible side for every mode that has one; staged
// modes additionally carry a secondary, GPU-local pair.
type BufferRecord struct {
	Type    BufferType
	Access  AccessMode
	Binding int

	// Size is the logical size in bytes. AllocatedSize is the physical
	// allocation, which may exceed Size after a shrink so that a later
	// regrow within the allocation needs no native work.
	Size          int
	AllocatedSize int

	created bool
	mapped  unsafe.Pointer

	usage    vk.BufferUsageFlags
	memProps vk.MemoryPropertyFlags

	secondaryUsage    vk.BufferUsageFlags
	secondaryMemProps vk.MemoryPropertyFlags

	primary      *Buffer
	primaryMem   *DeviceMemory
	secondary    *Buffer
	secondaryMem *DeviceMemory

	// Vertex input descriptions, only populated for vertex buffers that
	// feed a graphics pipeline.
	bindingDesc   vk.VertexInputBindingDescription
	attrDescs     []vk.VertexInputAttributeDescription
	hasVertexDesc bool
}

// gpuBuffer returns the native buffer the GPU should address: the secondary
// pair for staged modes, the primary pair otherwise.
func (r *BufferRecord) gpuBuffer() *Buffer {
	if r.Access.staged() {
		return r.secondary
	}
	return r.primary
}

func (r *BufferRecord) descriptorType() vk.DescriptorType {
	if r.Type == UniformBuffer {
		return vk.DescriptorTypeUniformBuffer
	}
	return vk.DescriptorTypeStorageBuffer
}

// DescribeBuffer allocates a buffer record with the given shader binding
// index, type and access mode, and returns its handle. No native objects are
// created; CreateBuffer does that once pipeline layouts (which only need the
// shape recorded here) have been built.
func (f *Framework) DescribeBuffer(binding int, btype BufferType, access AccessMode) (BufferHandle, error) {
	if !f.status.OK() {
		return NilBuffer, f.status.Err()
	}
	if binding < 0 {
		return NilBuffer, f.status.failf("DescribeBuffer: binding index %d is negative", binding)
	}

	var base vk.BufferUsageFlags
	switch btype {
	case UniformBuffer:
		base = vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	case StorageBuffer:
		base = vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	case VertexBuffer:
		base = vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	default:
		return NilBuffer, f.status.failf("DescribeBuffer: unrecognized buffer type %d", int(btype))
	}

	rec := &BufferRecord{
		Type:    btype,
		Access:  access,
		Binding: binding,
	}

	hostVisible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	deviceLocal := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)

	switch access {
	case AccessLocal:
		rec.usage = base
		rec.memProps = deviceLocal
	case AccessShared:
		rec.usage = base
		rec.memProps = hostVisible
	case AccessStagedCPU:
		rec.usage = vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
		rec.memProps = hostVisible
		rec.secondaryUsage = base | vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
		rec.secondaryMemProps = deviceLocal
	case AccessStagedGPU:
		rec.usage = vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
		rec.memProps = hostVisible
		rec.secondaryUsage = base | vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
		rec.secondaryMemProps = deviceLocal
	default:
		return NilBuffer, f.status.failf("DescribeBuffer: unrecognized access mode %d", int(access))
	}

	h := f.buffers.alloc(rec)
	f.logf("vkf.buffer.describe", "described buffer %#x binding=%d type=%s access=%s",
		uint64(h), binding, btype, access)
	return h, nil
}

// SetVertexDescriptions registers the vertex input binding and attribute
// descriptions for a vertex buffer. BuildGraphicsPipeline assembles its
// vertex input state from these; a vertex buffer that never receives them
// contributes no vertex input.
func (f *Framework) SetVertexDescriptions(h BufferHandle, binding vk.VertexInputBindingDescription, attrs []vk.VertexInputAttributeDescription) error {
	if !f.status.OK() {
		return f.status.Err()
	}
	rec, err := f.buffers.lookup(h)
	if err != nil {
		return f.status.fail(err)
	}
	if rec.Type != VertexBuffer {
		return f.status.failf("SetVertexDescriptions: buffer %#x is %s, not VERTEX", uint64(h), rec.Type)
	}
	rec.bindingDesc = binding
	rec.attrDescs = attrs
	rec.hasVertexDesc = true
	return nil
}

// CreateBuffer allocates the native buffer and memory for a previously
// described, not-yet-created buffer. The allocation is rounded up to the
// smallest size the device will grant for the request; staged modes allocate
// the secondary pair as well. On any failure the partially created native
// objects are released before returning.
func (f *Framework) CreateBuffer(h BufferHandle, sizeInBytes int) error {
	if !f.status.OK() {
		return f.status.Err()
	}
	if err := f.requireDevice("CreateBuffer"); err != nil {
		return err
	}
	rec, err := f.buffers.lookup(h)
	if err != nil {
		return f.status.fail(err)
	}
	if rec.created {
		return f.status.failf("CreateBuffer: buffer %#x has already been created", uint64(h))
	}
	if sizeInBytes <= 0 {
		return f.status.failf("CreateBuffer: size %d must be positive", sizeInBytes)
	}
	if err := f.createNativePairs(rec, sizeInBytes); err != nil {
		return f.status.fail(err)
	}
	f.logf("vkf.buffer.create", "created buffer %#x size=%d allocated=%d", uint64(h), rec.Size, rec.AllocatedSize)
	return nil
}

func (f *Framework) createNativePairs(rec *BufferRecord, sizeInBytes int) error {
	buf, mem, err := f.device.CreateAndBindBufferAndMemory(uint64(sizeInBytes), rec.usage, rec.memProps, f.memoryPolicy)
	if err != nil {
		return errors.Wrap(err, "primary buffer")
	}
	rec.primary = buf
	rec.primaryMem = mem

	if rec.Access.staged() {
		sbuf, smem, err := f.device.CreateAndBindBufferAndMemory(uint64(sizeInBytes), rec.secondaryUsage, rec.secondaryMemProps, f.memoryPolicy)
		if err != nil {
			mem.Destroy()
			buf.Destroy()
			rec.primary = nil
			rec.primaryMem = nil
			return errors.Wrap(err, "secondary buffer")
		}
		rec.secondary = sbuf
		rec.secondaryMem = smem
	}

	rec.Size = sizeInBytes
	rec.AllocatedSize = int(mem.Size)
	rec.created = true
	return nil
}

// ResizeBuffer changes the logical size of a buffer. A resize that fits the
// existing allocation only updates the size field, so buffers that shrink and
// regrow churn no native objects. A true grow waits for the device to go
// idle, releases the old native objects and reallocates; any mapping held
// before a true grow is invalid afterwards and must be re-established with
// MapBuffer. A descriptor set the buffer was bound to must likewise be
// re-bound, since the native handle has changed.
func (f *Framework) ResizeBuffer(h BufferHandle, newSize int) error {
	if !f.status.OK() {
		return f.status.Err()
	}
	rec, err := f.buffers.lookup(h)
	if err != nil {
		return f.status.fail(err)
	}
	if !rec.created {
		return f.status.failf("ResizeBuffer: buffer %#x has not been created", uint64(h))
	}
	if newSize <= 0 {
		return f.status.failf("ResizeBuffer: size %d must be positive", newSize)
	}

	if newSize <= rec.AllocatedSize {
		rec.Size = newSize
		return nil
	}

	if rec.mapped != nil {
		rec.primaryMem.Unmap()
		rec.mapped = nil
	}

	// A full device stall before releasing the old buffer. Waiting only on
	// the queue or fence that actually references the buffer would stall
	// less; this framework settles for being obviously correct.
	f.device.WaitIdle()

	f.destroyNativePairs(rec)
	rec.created = false

	if err := f.createNativePairs(rec, newSize); err != nil {
		return f.status.fail(err)
	}
	f.logf("vkf.buffer.resize", "reallocated buffer %#x size=%d allocated=%d", uint64(h), rec.Size, rec.AllocatedSize)
	return nil
}

func (f *Framework) destroyNativePairs(rec *BufferRecord) {
	if rec.secondaryMem != nil {
		rec.secondaryMem.Destroy()
		rec.secondaryMem = nil
	}
	if rec.secondary != nil {
		rec.secondary.Destroy()
		rec.secondary = nil
	}
	if rec.primaryMem != nil {
		rec.primaryMem.Destroy()
		rec.primaryMem = nil
	}
	if rec.primary != nil {
		rec.primary.Destroy()
		rec.primary = nil
	}
}

// MapBuffer maps the CPU-visible side of a buffer and returns the pointer and
// the buffer's logical size. Mapping is idempotent: a second call returns the
// cached pointer without a second native map. The full allocated size is
// mapped rather than the logical size, so a later non-reallocating grow does
// not invalidate the pointer. Local buffers have no CPU-visible side and
// cannot be mapped.
func (f *Framework) MapBuffer(h BufferHandle) (unsafe.Pointer, int, error) {
	if !f.status.OK() {
		return nil, 0, f.status.Err()
	}
	rec, err := f.buffers.lookup(h)
	if err != nil {
		return nil, 0, f.status.fail(err)
	}
	if rec.Access == AccessLocal {
		return nil, 0, f.status.failf("MapBuffer: buffer %#x has LOCAL access and no CPU visibility", uint64(h))
	}
	if !rec.created {
		return nil, 0, f.status.failf("MapBuffer: buffer %#x has not been created", uint64(h))
	}
	if rec.mapped != nil {
		return rec.mapped, rec.Size, nil
	}
	ptr, err := rec.primaryMem.MapWithSize(rec.AllocatedSize)
	if err != nil {
		return nil, 0, f.status.fail(errors.Wrapf(err, "MapBuffer: buffer %#x", uint64(h)))
	}
	rec.mapped = ptr
	return ptr, rec.Size, nil
}

// UnmapBuffer unmaps a mapped buffer. It is a no-op for a buffer that is not
// mapped.
func (f *Framework) UnmapBuffer(h BufferHandle) error {
	if !f.status.OK() {
		return f.status.Err()
	}
	rec, err := f.buffers.lookup(h)
	if err != nil {
		return f.status.fail(err)
	}
	if rec.mapped == nil {
		return nil
	}
	rec.primaryMem.Unmap()
	rec.mapped = nil
	return nil
}

// MappedBytes returns the mapped memory of a buffer as a byte slice of the
// logical size. The buffer must already be mapped.
func (f *Framework) MappedBytes(h BufferHandle) ([]byte, error) {
	rec, err := f.buffers.lookup(h)
	if err != nil {
		return nil, err
	}
	if rec.mapped == nil {
		return nil, errors.Newf("buffer %#x is not mapped", uint64(h))
	}
	return ToBytes(rec.mapped, rec.Size), nil
}

// SyncBuffer performs the explicit transfer for a staged buffer: primary to
// secondary for STAGED_CPU (CPU-authored data pushed to the GPU copy),
// secondary to primary for STAGED_GPU (GPU results pulled back). It records a
// single copy into a one-shot command buffer and waits for it synchronously.
// For LOCAL and SHARED buffers it is a no-op, which lets calling code be
// written identically for shared and staged access.
func (f *Framework) SyncBuffer(h BufferHandle) error {
	if !f.status.OK() {
		return f.status.Err()
	}
	rec, err := f.buffers.lookup(h)
	if err != nil {
		return f.status.fail(err)
	}
	if !rec.Access.staged() {
		return nil
	}
	if !rec.created {
		return f.status.failf("SyncBuffer: buffer %#x has not been created", uint64(h))
	}

	src, dst := rec.primary, rec.secondary
	if rec.Access == AccessStagedGPU {
		src, dst = rec.secondary, rec.primary
	}

	cb, err := f.commandPool.AllocateBuffer()
	if err != nil {
		return f.status.fail(errors.Wrap(err, "SyncBuffer: allocating command buffer"))
	}
	defer f.commandPool.FreeBuffer(cb)

	if err := cb.BeginOneTime(); err != nil {
		return f.status.fail(errors.Wrap(err, "SyncBuffer: begin"))
	}
	cb.CmdCopyBuffer(src, dst, rec.Size)
	if err := cb.End(); err != nil {
		return f.status.fail(errors.Wrap(err, "SyncBuffer: end"))
	}
	if err := f.submitAndWait(cb); err != nil {
		return f.status.fail(errors.Wrap(err, "SyncBuffer: submit"))
	}
	return nil
}

// DeleteBuffer unmaps the buffer if needed, releases its native objects and
// frees the record slot for reuse by a later DescribeBuffer. Like every other
// operation it short-circuits on a failed status; only Teardown releases
// buffers unconditionally.
func (f *Framework) DeleteBuffer(h BufferHandle) error {
	if !f.status.OK() {
		return f.status.Err()
	}
	rec, err := f.buffers.lookup(h)
	if err != nil {
		return f.status.fail(err)
	}
	if rec.mapped != nil {
		rec.primaryMem.Unmap()
		rec.mapped = nil
	}
	f.destroyNativePairs(rec)
	if err := f.buffers.release(h); err != nil {
		return f.status.fail(err)
	}
	f.logf("vkf.buffer.delete", "deleted buffer %#x", uint64(h))
	return nil
}

// BufferInfo is a read-only view of a buffer record.
type BufferInfo struct {
	Type          BufferType
	Access        AccessMode
	Binding       int
	Size          int
	AllocatedSize int
	Created       bool
	Mapped        bool
}

// LookupBuffer resolves a handle to a snapshot of its record. It fails after
// DeleteBuffer, and for a handle whose slot has been reused by a newer
// buffer.
func (f *Framework) LookupBuffer(h BufferHandle) (BufferInfo, error) {
	rec, err := f.buffers.lookup(h)
	if err != nil {
		return BufferInfo{}, err
	}
	return BufferInfo{
		Type:          rec.Type,
		Access:        rec.Access,
		Binding:       rec.Binding,
		Size:          rec.Size,
		AllocatedSize: rec.AllocatedSize,
		Created:       rec.created,
		Mapped:        rec.mapped != nil,
	}, nil
}
