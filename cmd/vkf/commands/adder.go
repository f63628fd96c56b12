package commands

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/gpulab/vkf"
	"github.com/gpulab/vkf/compute"
)

// adderWorkgroupSize matches local_size_x in shaders/adder.comp.
const adderWorkgroupSize = 256

var adderCmd = &cobra.Command{
	Use:   "adder",
	Short: "Element-wise float addition, CPU pool vs GPU",
	RunE:  runAdder,
}

var (
	adderSize   int
	adderThread int
	adderShader string
	adderStaged bool
)

func init() {
	adderCmd.Flags().IntVar(&adderSize, "size", 1<<20, "number of elements")
	adderCmd.Flags().IntVar(&adderThread, "threads", 0, "CPU pool size, 0 = hardware concurrency")
	adderCmd.Flags().StringVar(&adderShader, "shader", "shaders/adder.comp.spv", "compiled compute shader")
	adderCmd.Flags().BoolVar(&adderStaged, "staged", false, "use staged buffers instead of shared memory")
	rootCmd.AddCommand(adderCmd)
}

func runAdder(cmd *cobra.Command, args []string) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	a := make([]float32, adderSize)
	b := make([]float32, adderSize)
	for i := range a {
		a[i] = r.Float32() * 100
		b[i] = r.Float32() * 100
	}

	cpuOut := make([]float32, adderSize)
	cpuStart := time.Now()
	compute.AddPooled(a, b, cpuOut, adderThread)
	cpuTime := time.Since(cpuStart)

	f, err := setupCompute("adder")
	if err != nil {
		reportNoValues(err)
		return nil
	}
	defer f.Close()

	mode := accessMode(adderStaged)
	aH, _ := f.DescribeBuffer(0, vkf.StorageBuffer, mode)
	bH, _ := f.DescribeBuffer(1, vkf.StorageBuffer, mode)
	outH, _ := f.DescribeBuffer(2, vkf.StorageBuffer, resultAccessMode(adderStaged))

	sm, _ := f.LoadShaderModuleFromFile(adderShader)
	pipeline, _ := f.BuildComputePipeline(sm, "main", aH, bH, outH)

	bytes := adderSize * 4
	f.CreateBuffer(aH, bytes)
	f.CreateBuffer(bH, bytes)
	f.CreateBuffer(outH, bytes)

	if ptr, _, err := f.MapBuffer(aH); err == nil {
		copy(floatsAt(ptr, adderSize), a)
	}
	if ptr, _, err := f.MapBuffer(bH); err == nil {
		copy(floatsAt(ptr, adderSize), b)
	}
	f.SyncBuffer(aH)
	f.SyncBuffer(bH)

	pool, _ := f.BuildDescriptorPool([]vkf.BufferHandle{aH, bH, outH}, 1)
	ds, _ := f.AllocateDescriptorSet(pool, pipeline)
	f.BindBuffersToDescriptorSet(ds, aH, bH, outH)

	cb, _ := f.AllocateCommandBuffer()
	f.RecordAndDispatch(cb, pipeline, ds, groupsFor(adderSize, adderWorkgroupSize), 1, 1)

	gpuStart := time.Now()
	f.SubmitAndWait(cb)
	f.SyncBuffer(outH)
	gpuTime := time.Since(gpuStart)

	ptr, _, _ := f.MapBuffer(outH)
	if !f.OK() {
		reportNoValues(f.Err())
		return nil
	}
	gpuOut := floatsAt(ptr, adderSize)

	mismatches := 0
	for i := range cpuOut {
		if cpuOut[i] != gpuOut[i] {
			mismatches++
		}
	}

	fmt.Printf("adder: %d elements, %d mismatches\n", adderSize, mismatches)
	fmt.Printf("  cpu pool: %v\n", cpuTime)
	fmt.Printf("  gpu:      %v\n", gpuTime)
	return nil
}
