// Command autoops runs the task orchestration engine and its CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the current version.
const Version = "0.1.0"

var (
	cfgFile string
	debug   bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "autoops",
	Short: "Natural language task orchestration for Kubernetes",
	Long: `autoops turns natural language requests into execution plans and
carries them out against a Kubernetes cluster: priority scheduling,
bounded concurrency, retries with backoff, cancellation and a live
event stream.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet mode")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
