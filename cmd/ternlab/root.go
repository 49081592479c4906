package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ternlab",
	Short: "Ternlab is a ternary cellular automaton laboratory",
	Long: `Ternlab evolves an N×N grid of {-1, 0, +1} cells under a threshold rule,
tracks Shannon entropy over time and exposes the grid over HTTP, MCP and the CLI.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a ternlab.yaml config file (defaults to ./ternlab.yaml when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level (debug, info, warn, error)")
}
