package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/gpulab/vkf/cmd/vkf/commands"
)

func init() {
	// GLFW and the Vulkan loader want the main OS thread.
	runtime.LockOSThread()
}

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
