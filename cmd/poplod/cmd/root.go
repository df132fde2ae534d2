package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "poplod",
	Short: "build and inspect POP-buffer level of detail caches",
	Long: `poplod is the command-line application accompanying go-poplod:
	- characterize and cache triangle meshes in quantization-based LoD levels,
	- inspect cached entries,
	- view a cached mesh at a chosen level,
	- generate build settings files (YAML).`,
}

// Execute adds all child commands to the root command and runs it. This
// is called by main.main(). It only needs to happen once to RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
