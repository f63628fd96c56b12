package commands

import (
	"fmt"

	gu "github.com/docker/go-units"
	"github.com/spf13/cobra"
	vk "github.com/vulkan-go/vulkan"

	"github.com/gpulab/vkf"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Survey the Vulkan devices on this machine",
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	if err := vkf.InitializeForComputeOnly(); err != nil {
		reportNoValues(err)
		return nil
	}

	f := vkf.NewFramework("info", vkf.Version{Major: 1, Minor: 0, Patch: 0})
	defer f.Close()

	if err := f.CreateInstance(); err != nil {
		reportNoValues(err)
		return nil
	}

	layers, err := vkf.SupportedLayers()
	if err != nil {
		return err
	}
	printList("Instance Layers", layers)

	extensions, err := vkf.SupportedExtensions()
	if err != nil {
		return err
	}
	printList("Instance Extensions", extensions)

	devices, err := f.Instance().PhysicalDevices()
	if err != nil {
		return err
	}
	for _, pd := range devices {
		printDevice(pd)
	}
	if len(devices) == 0 {
		fmt.Println("no Vulkan devices found")
	}
	return nil
}

func printList(title string, items []string) {
	fmt.Printf("%s\n", title)
	fmt.Printf("-----------------------------\n")
	for _, item := range items {
		fmt.Printf("\t%s\n", item)
	}
	fmt.Printf("\n")
}

func printDevice(pd *vkf.PhysicalDevice) {
	fmt.Printf("\n%s (score %d)\n", pd.DeviceName, pd.Score())
	fmt.Printf("-----------------------------\n")

	fmt.Printf("\n\tQueue Families\n")
	families, err := pd.QueueFamilies()
	if err == nil {
		for _, qf := range families {
			fmt.Printf("\t\t%s\n", qf)
		}
	}

	fmt.Printf("\n\tMemory Heaps\n")
	mem := pd.VKPhysicalDeviceMemoryProperties()
	mem.Deref()
	for i := uint32(0); i < mem.MemoryHeapCount; i++ {
		h := mem.MemoryHeaps[i]
		h.Deref()
		local := ""
		if vk.MemoryHeapFlagBits(h.Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			local = " device-local"
		}
		fmt.Printf("\t\t%s%s\n", gu.BytesSize(float64(h.Size)), local)
	}

	fmt.Printf("\n\tMemory Types\n")
	for i, mt := range pd.MemoryTypes() {
		fmt.Printf("\t\t%d\theap %d\tflags %#x\n", i, mt.HeapIndex, mt.PropertyFlags)
	}

	exts, err := pd.SupportedExtensions()
	if err == nil {
		fmt.Printf("\n\t%d device extensions\n", len(exts))
	}
}
