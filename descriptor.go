package vkf

import (
	vk "github.com/vulkan-go/vulkan"
)

// BuildDescriptorPool creates a descriptor pool sized for the given buffers,
// counting descriptors by type, able to hand out maxSets sets. The pool is
// tracked and destroyed at teardown.
func (f *Framework) BuildDescriptorPool(handles []BufferHandle, maxSets int) (*DescriptorPool, error) {
	if !f.status.OK() {
		return nil, f.status.Err()
	}
	if err := f.requireDevice("BuildDescriptorPool"); err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, f.status.failf("BuildDescriptorPool: no buffers given")
	}
	if maxSets < 1 {
		return nil, f.status.failf("BuildDescriptorPool: maxSets %d must be positive", maxSets)
	}

	counts := map[vk.DescriptorType]int{}
	for _, h := range handles {
		rec, err := f.buffers.lookup(h)
		if err != nil {
			return nil, f.status.fail(err)
		}
		counts[rec.descriptorType()] += maxSets
	}

	sizes := make([]vk.DescriptorPoolSize, 0, len(counts))
	for dtype, count := range counts {
		sizes = append(sizes, vk.DescriptorPoolSize{
			Type:            dtype,
			DescriptorCount: uint32(count),
		})
	}

	pool, err := f.device.CreateDescriptorPool(sizes, maxSets)
	if err != nil {
		return nil, f.status.fail(err)
	}
	f.descriptorPools = append(f.descriptorPools, pool)
	f.logf("vkf.descriptor.pool", "descriptor pool built, %d size entries, maxSets=%d", len(sizes), maxSets)
	return pool, nil
}

// AllocateDescriptorSet allocates a set from the pool shaped by the pipeline's
// descriptor set layout. The set is bound to buffers in a separate step so it
// can be re-bound after a buffer reallocates.
func (f *Framework) AllocateDescriptorSet(pool *DescriptorPool, p *PipelineRecord) (*DescriptorSet, error) {
	if !f.status.OK() {
		return nil, f.status.Err()
	}
	if err := f.requireDevice("AllocateDescriptorSet"); err != nil {
		return nil, err
	}
	if p.setLayout == nil {
		return nil, f.status.failf("AllocateDescriptorSet: pipeline has no descriptor set layout")
	}

	ds, err := pool.Allocate(p.setLayout)
	if err != nil {
		return nil, f.status.fail(err)
	}
	return ds, nil
}

// BindBuffersToDescriptorSet points the set's bindings at the buffers' current
// native objects, each at its own shader binding index with its full logical
// size. For staged buffers the GPU-local side is bound. After ResizeBuffer
// performs a true reallocation the native handle changes and this must be
// called again before the set is used.
func (f *Framework) BindBuffersToDescriptorSet(ds *DescriptorSet, handles ...BufferHandle) error {
	if !f.status.OK() {
		return f.status.Err()
	}
	if err := f.requireDevice("BindBuffersToDescriptorSet"); err != nil {
		return err
	}

	for _, h := range handles {
		rec, err := f.buffers.lookup(h)
		if err != nil {
			return f.status.fail(err)
		}
		if !rec.created {
			return f.status.failf("BindBuffersToDescriptorSet: buffer %#x has not been created", uint64(h))
		}
		ds.AddBuffer(rec.Binding, rec.descriptorType(), rec.gpuBuffer().DSInfo(rec.Size))
	}
	ds.Write()
	return nil
}
