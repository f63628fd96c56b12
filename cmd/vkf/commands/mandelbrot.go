package commands

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gpulab/vkf"
	"github.com/gpulab/vkf/compute"
)

// mandelbrotWorkgroupSize matches local_size_x/y in shaders/mandelbrot.comp.
const mandelbrotWorkgroupSize = 16

var mandelbrotCmd = &cobra.Command{
	Use:   "mandelbrot",
	Short: "Mandelbrot iteration counts, CPU pool vs GPU",
	RunE:  runMandelbrot,
}

var (
	mandelSize   int
	mandelIters  int
	mandelThread int
	mandelShader string
	mandelStaged bool
	mandelOut    string
)

func init() {
	mandelbrotCmd.Flags().IntVar(&mandelSize, "size", 2048, "grid is size x size pixels")
	mandelbrotCmd.Flags().IntVar(&mandelIters, "iterations", 256, "maximum escape iterations")
	mandelbrotCmd.Flags().IntVar(&mandelThread, "threads", 0, "CPU pool size, 0 = hardware concurrency")
	mandelbrotCmd.Flags().StringVar(&mandelShader, "shader", "shaders/mandelbrot.comp.spv", "compiled compute shader")
	mandelbrotCmd.Flags().BoolVar(&mandelStaged, "staged", false, "use staged buffers instead of shared memory")
	mandelbrotCmd.Flags().StringVar(&mandelOut, "out", "", "write the GPU result as a PNG")
	rootCmd.AddCommand(mandelbrotCmd)
}

func runMandelbrot(cmd *cobra.Command, args []string) error {
	spec := compute.DefaultMandelbrot(mandelSize, mandelIters)

	cpuStart := time.Now()
	cpuOut := compute.MandelbrotPooled(spec, mandelThread)
	cpuTime := time.Since(cpuStart)

	f, err := setupCompute("mandelbrot")
	if err != nil {
		reportNoValues(err)
		return nil
	}
	defer f.Close()

	outH, _ := f.DescribeBuffer(0, vkf.StorageBuffer, resultAccessMode(mandelStaged))
	dimH, _ := f.DescribeBuffer(1, vkf.UniformBuffer, vkf.AccessShared)

	sm, _ := f.LoadShaderModuleFromFile(mandelShader)
	pipeline, _ := f.BuildComputePipeline(sm, "main", outH, dimH)

	n := spec.Width * spec.Height
	f.CreateBuffer(outH, n*4)
	f.CreateBuffer(dimH, 12)

	if ptr, _, err := f.MapBuffer(dimH); err == nil {
		dims := uintsAt(ptr, 3)
		dims[0], dims[1], dims[2] = uint32(spec.Width), uint32(spec.Height), uint32(spec.MaxIterations)
	}

	pool, _ := f.BuildDescriptorPool([]vkf.BufferHandle{outH, dimH}, 1)
	ds, _ := f.AllocateDescriptorSet(pool, pipeline)
	f.BindBuffersToDescriptorSet(ds, outH, dimH)

	cb, _ := f.AllocateCommandBuffer()
	f.RecordAndDispatch(cb, pipeline, ds,
		groupsFor(spec.Width, mandelbrotWorkgroupSize), groupsFor(spec.Height, mandelbrotWorkgroupSize), 1)

	gpuStart := time.Now()
	f.SubmitAndWait(cb)
	f.SyncBuffer(outH)
	gpuTime := time.Since(gpuStart)

	ptr, _, _ := f.MapBuffer(outH)
	if !f.OK() {
		reportNoValues(f.Err())
		return nil
	}
	gpuOut := uintsAt(ptr, n)

	mismatches := 0
	for i := range cpuOut {
		if cpuOut[i] != gpuOut[i] {
			mismatches++
		}
	}

	fmt.Printf("mandelbrot: %dx%d grid, %d iterations, %d mismatches\n",
		spec.Width, spec.Height, spec.MaxIterations, mismatches)
	fmt.Printf("  cpu pool: %v\n", cpuTime)
	fmt.Printf("  gpu:      %v\n", gpuTime)

	if mandelOut != "" {
		if err := writeMandelbrotPNG(mandelOut, gpuOut, spec); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", mandelOut)
	}
	return nil
}

func writeMandelbrotPNG(path string, counts []uint32, spec compute.MandelbrotSpec) error {
	img := image.NewGray(image.Rect(0, 0, spec.Width, spec.Height))
	for y := 0; y < spec.Height; y++ {
		for x := 0; x < spec.Width; x++ {
			c := counts[y*spec.Width+x]
			img.SetGray(x, y, color.Gray{Y: uint8(255 * c / uint32(spec.MaxIterations))})
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return png.Encode(file, img)
}
