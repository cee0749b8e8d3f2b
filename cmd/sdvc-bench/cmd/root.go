package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

const (
	name        = "sdvc-bench"
	description = "Benchmark selective-disclosure schemes for verifiable credentials"
)

var rootCmd = &cobra.Command{
	Use:   name,
	Short: description,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(
		commandRun(),
		commandPlot(),
	)
}
