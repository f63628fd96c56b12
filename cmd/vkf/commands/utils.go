package commands

import (
	"fmt"
	"unsafe"

	"github.com/spf13/viper"

	"github.com/gpulab/vkf"
	"github.com/gpulab/vkf/internal/logging"
)

// setupCompute brings a framework to the LogicalDeviceReady state for the
// compute-only commands. The caller owns the framework and must Close it.
func setupCompute(name string) (*vkf.Framework, error) {
	if err := vkf.InitializeForComputeOnly(); err != nil {
		return nil, err
	}

	f := vkf.NewFramework(name, vkf.Version{Major: 1, Minor: 0, Patch: 0})
	if patterns := viper.GetStringSlice("log"); len(patterns) > 0 {
		f.SetLogger(logging.New(patterns...))
	}
	if viper.GetBool("debug") {
		f.EnableDiagnostics()
	}

	f.CreateInstance()
	f.SelectDevice()
	f.CreateLogicalDeviceAndQueue()
	if !f.OK() {
		err := f.Err()
		f.Teardown()
		return nil, err
	}
	return f, nil
}

// reportNoValues is the fatal-setup path: a machine without a usable Vulkan
// device is an expected outcome for a teaching program, so the command prints
// what happened and reports cleanly instead of crashing.
func reportNoValues(err error) {
	fmt.Printf("setup failed: %v\n", err)
	fmt.Println("no values computed")
}

// accessMode maps the --staged flag onto the buffer access mode for
// CPU-authored input buffers. The call sites are identical either way; staged
// access just makes the SyncBuffer calls do real transfers.
func accessMode(staged bool) vkf.AccessMode {
	if staged {
		return vkf.AccessStagedCPU
	}
	return vkf.AccessShared
}

func resultAccessMode(staged bool) vkf.AccessMode {
	if staged {
		return vkf.AccessStagedGPU
	}
	return vkf.AccessShared
}

// floatsAt views mapped buffer memory as a float32 slice.
func floatsAt(ptr unsafe.Pointer, n int) []float32 {
	const m = 0x7fffffff
	return (*[m / 4]float32)(ptr)[:n]
}

// uintsAt views mapped buffer memory as a uint32 slice.
func uintsAt(ptr unsafe.Pointer, n int) []uint32 {
	const m = 0x7fffffff
	return (*[m / 4]uint32)(ptr)[:n]
}

func groupsFor(n, workgroupSize int) int {
	return (n + workgroupSize - 1) / workgroupSize
}
