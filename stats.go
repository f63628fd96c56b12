package vkf

import (
	"fmt"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// BuildStatsString renders the framework's bookkeeping as JSON: one entry per
// live buffer plus aggregate byte counts and object tallies. Staged buffers
// count their allocation twice, once per native pair. Safe to call in any
// state, including after a failure, so a program can dump it while debugging.
func (f *Framework) BuildStatsString() ([]byte, error) {
	w := jwriter.NewWriter()
	obj := w.Object()

	obj.Name("name").String(f.name)
	obj.Name("state").String(f.state.String())
	obj.Name("ok").Bool(f.status.OK())
	obj.Name("validationErrorSeen").Bool(f.status.ValidationErrorSeen())

	var logicalBytes, allocatedBytes int
	buffers := obj.Name("buffers").Array()
	f.buffers.each(func(h BufferHandle, rec *BufferRecord) {
		o := buffers.Object()
		o.Name("handle").String(fmt.Sprintf("%#x", uint64(h)))
		o.Name("type").String(rec.Type.String())
		o.Name("access").String(rec.Access.String())
		o.Name("binding").Int(rec.Binding)
		o.Name("size").Int(rec.Size)
		o.Name("allocatedSize").Int(rec.AllocatedSize)
		o.Name("created").Bool(rec.created)
		o.Name("mapped").Bool(rec.mapped != nil)
		o.End()

		logicalBytes += rec.Size
		if rec.created {
			allocatedBytes += rec.AllocatedSize
			if rec.Access.staged() {
				allocatedBytes += rec.AllocatedSize
			}
		}
	})
	buffers.End()

	obj.Name("bufferCount").Int(f.buffers.count())
	obj.Name("logicalBytes").Int(logicalBytes)
	obj.Name("allocatedBytes").Int(allocatedBytes)
	obj.Name("pipelineCount").Int(len(f.pipelines))
	obj.Name("descriptorPoolCount").Int(len(f.descriptorPools))
	obj.Name("shaderModuleCount").Int(len(f.shaderModules))

	obj.End()
	return w.Bytes(), w.Error()
}
