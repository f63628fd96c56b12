package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "vkf",
	Short: "Vulkan framework teaching programs",
	Long: `vkf runs small teaching computations twice, once on the CPU thread
pool and once on the GPU through the Vulkan framework, and prints the timings
side by side. The adder, median and mandelbrot commands need a compute-capable
Vulkan device and a compiled SPIR-V shader; triangle additionally needs a
display.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().Bool("debug", false, "enable the Vulkan validation layer")
	rootCmd.PersistentFlags().StringSlice("log", nil, `diagnostic level patterns to print, e.g. "vkf.buffer.*" or "*"`)

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("log", rootCmd.PersistentFlags().Lookup("log"))
}

func initConfig() {
	viper.SetEnvPrefix("VKF")
	viper.AutomaticEnv()
}
