package commands

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/gpulab/vkf"
	"github.com/gpulab/vkf/compute"
)

// medianWorkgroupSize matches local_size_x/y in shaders/median.comp.
const medianWorkgroupSize = 16

var medianCmd = &cobra.Command{
	Use:   "median",
	Short: "3x3 median filter, CPU pool vs GPU",
	RunE:  runMedian,
}

var (
	medianSize   int
	medianThread int
	medianShader string
	medianStaged bool
)

func init() {
	medianCmd.Flags().IntVar(&medianSize, "size", 1024, "image is size x size pixels")
	medianCmd.Flags().IntVar(&medianThread, "threads", 0, "CPU pool size, 0 = hardware concurrency")
	medianCmd.Flags().StringVar(&medianShader, "shader", "shaders/median.comp.spv", "compiled compute shader")
	medianCmd.Flags().BoolVar(&medianStaged, "staged", false, "use staged buffers instead of shared memory")
	rootCmd.AddCommand(medianCmd)
}

func runMedian(cmd *cobra.Command, args []string) error {
	w, h := medianSize, medianSize
	src := make([]float32, w*h)
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := range src {
		src[i] = r.Float32() * 255
	}

	cpuStart := time.Now()
	cpuOut := compute.MedianFilterPooled(src, w, h, medianThread)
	cpuTime := time.Since(cpuStart)

	f, err := setupCompute("median")
	if err != nil {
		reportNoValues(err)
		return nil
	}
	defer f.Close()

	// The shader reads the image dimensions from a small uniform buffer.
	inH, _ := f.DescribeBuffer(0, vkf.StorageBuffer, accessMode(medianStaged))
	outH, _ := f.DescribeBuffer(1, vkf.StorageBuffer, resultAccessMode(medianStaged))
	dimH, _ := f.DescribeBuffer(2, vkf.UniformBuffer, vkf.AccessShared)

	sm, _ := f.LoadShaderModuleFromFile(medianShader)
	pipeline, _ := f.BuildComputePipeline(sm, "main", inH, outH, dimH)

	bytes := w * h * 4
	f.CreateBuffer(inH, bytes)
	f.CreateBuffer(outH, bytes)
	f.CreateBuffer(dimH, 8)

	if ptr, _, err := f.MapBuffer(inH); err == nil {
		copy(floatsAt(ptr, w*h), src)
	}
	if ptr, _, err := f.MapBuffer(dimH); err == nil {
		dims := uintsAt(ptr, 2)
		dims[0], dims[1] = uint32(w), uint32(h)
	}
	f.SyncBuffer(inH)

	pool, _ := f.BuildDescriptorPool([]vkf.BufferHandle{inH, outH, dimH}, 1)
	ds, _ := f.AllocateDescriptorSet(pool, pipeline)
	f.BindBuffersToDescriptorSet(ds, inH, outH, dimH)

	cb, _ := f.AllocateCommandBuffer()
	f.RecordAndDispatch(cb, pipeline, ds,
		groupsFor(w, medianWorkgroupSize), groupsFor(h, medianWorkgroupSize), 1)

	gpuStart := time.Now()
	f.SubmitAndWait(cb)
	f.SyncBuffer(outH)
	gpuTime := time.Since(gpuStart)

	ptr, _, _ := f.MapBuffer(outH)
	if !f.OK() {
		reportNoValues(f.Err())
		return nil
	}
	gpuOut := floatsAt(ptr, w*h)

	mismatches := 0
	for i := range cpuOut {
		if cpuOut[i] != gpuOut[i] {
			mismatches++
		}
	}

	fmt.Printf("median: %dx%d image, %d mismatches\n", w, h, mismatches)
	fmt.Printf("  cpu pool: %v\n", cpuTime)
	fmt.Printf("  gpu:      %v\n", gpuTime)
	return nil
}
