// Package vkf manages the lifecycle of Vulkan resources for small compute and
// graphics programs: instance and device bring-up, buffers addressed through
// generation-checked handles, compute and graphics pipelines, synchronous
// command submission and, for windowed programs, the swapchain frame cycle.
//
// A program walks a Framework through a fixed sequence:
//
//	f := vkf.NewFramework("adder", vkf.Version{1, 0, 0})
//	f.CreateInstance()
//	f.SelectDevice()
//	f.CreateLogicalDeviceAndQueue()
//
// then describes and creates buffers, builds pipelines against them, binds
// descriptor sets and submits work. Errors are sticky: the first failure,
// including asynchronous validation-layer reports, is recorded on the
// framework and every later operation short-circuits, so a program may run a
// whole setup sequence and check f.OK() once at the end. Teardown releases
// everything in dependency order and runs from Close, making
//
//	defer f.Close()
//
// the only cleanup a program needs.
package vkf
