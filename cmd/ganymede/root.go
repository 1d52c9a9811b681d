package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ganymede",
	Short: "Ganymede - OpenAI-compatible agent backend gateway",
	Long: `Ganymede is an OpenAI-compatible HTTP gateway to a proto-speaking
agent backend.

It accepts standard chat-completion requests and translates them to the
backend's enveloped streaming protocol, providing:
  - Streaming and non-streaming chat completions
  - Tool calling, vision input, and reasoning content
  - Per-conversation session reuse across turns
  - Prometheus metrics and structured logging`,
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
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "ganymede.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
