package commands

import (
	"unsafe"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vulkan-go/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"

	"github.com/gpulab/vkf"
	"github.com/gpulab/vkf/internal/logging"
)

var triangleCmd = &cobra.Command{
	Use:   "triangle",
	Short: "Draw a triangle in a window through the swapchain frame cycle",
	RunE:  runTriangle,
}

var (
	triangleVertShader string
	triangleFragShader string
	triangleTopology   string
)

func init() {
	triangleCmd.Flags().StringVar(&triangleVertShader, "vert", "shaders/triangle.vert.spv", "compiled vertex shader")
	triangleCmd.Flags().StringVar(&triangleFragShader, "frag", "shaders/triangle.frag.spv", "compiled fragment shader")
	triangleCmd.Flags().StringVar(&triangleTopology, "topology", "TRIANGLE_LIST", "primitive topology")
	rootCmd.AddCommand(triangleCmd)
}

// triangleVertex matches the input layout of shaders/triangle.vert.
type triangleVertex struct {
	Pos   lin.Vec2
	Color lin.Vec3
}

func triangleVertexDescriptions() (vk.VertexInputBindingDescription, []vk.VertexInputAttributeDescription) {
	binding := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(triangleVertex{})),
		InputRate: vk.VertexInputRateVertex,
	}
	attrs := []vk.VertexInputAttributeDescription{
		{Binding: 0, Location: 0, Format: vk.FormatR32g32Sfloat, Offset: 0},
		{Binding: 0, Location: 1, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Sizeof(lin.Vec2{}))},
	}
	return binding, attrs
}

func runTriangle(cmd *cobra.Command, args []string) error {
	if err := glfw.Init(); err != nil {
		reportNoValues(err)
		return nil
	}
	defer glfw.Terminate()

	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		reportNoValues(err)
		return nil
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(800, 600, "vkf triangle", nil, nil)
	if err != nil {
		reportNoValues(err)
		return nil
	}
	defer window.Destroy()

	f := vkf.NewFramework("triangle", vkf.Version{Major: 1, Minor: 0, Patch: 0})
	defer f.Close()

	if patterns := viper.GetStringSlice("log"); len(patterns) > 0 {
		f.SetLogger(logging.New(patterns...))
	}
	if viper.GetBool("debug") {
		f.EnableDiagnostics()
	}

	f.RequireInstanceExtensions(window.GetRequiredInstanceExtensions())
	f.CreateInstance()

	if f.OK() {
		surface, err := window.CreateWindowSurface(f.Instance().VKInstance, nil)
		if err != nil {
			reportNoValues(err)
			return nil
		}
		f.EnableGraphics(vk.SurfaceFromPointer(surface))
	}

	width, height := window.GetFramebufferSize()
	f.SetFrameBufferSize(width, height)
	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		f.SetFrameBufferSize(width, height)
	})

	f.SelectDevice()
	f.CreateLogicalDeviceAndQueue()
	f.PrepareSwapchain()

	vertices := []triangleVertex{
		{Pos: lin.Vec2{0.0, -0.5}, Color: lin.Vec3{1, 0, 0}},
		{Pos: lin.Vec2{0.5, 0.5}, Color: lin.Vec3{0, 1, 0}},
		{Pos: lin.Vec2{-0.5, 0.5}, Color: lin.Vec3{0, 0, 1}},
	}
	vertexBytes := len(vertices) * int(unsafe.Sizeof(triangleVertex{}))

	vbH, _ := f.DescribeBuffer(0, vkf.VertexBuffer, vkf.AccessShared)
	binding, attrs := triangleVertexDescriptions()
	f.SetVertexDescriptions(vbH, binding, attrs)

	vert, _ := f.LoadShaderModuleFromFile(triangleVertShader)
	frag, _ := f.LoadShaderModuleFromFile(triangleFragShader)
	pipeline, _ := f.BuildGraphicsPipeline(vert, frag, triangleTopology, vbH)

	f.CreateBuffer(vbH, vertexBytes)
	if ptr, _, err := f.MapBuffer(vbH); err == nil {
		copy(vkf.ToBytes(ptr, vertexBytes), vkf.ToBytes(unsafe.Pointer(&vertices[0]), vertexBytes))
	}

	if !f.OK() {
		reportNoValues(f.Err())
		return nil
	}

	for !window.ShouldClose() {
		glfw.PollEvents()
		err := f.DrawFrame(func(cb *vkf.CommandBuffer) error {
			f.CmdBindPipeline(cb, pipeline)
			if err := f.CmdBindVertexBuffer(cb, vbH); err != nil {
				return err
			}
			cb.CmdDraw(len(vertices), 1, 0, 0)
			return nil
		})
		if err != nil {
			reportNoValues(err)
			return nil
		}
	}
	return nil
}
