// Package cli implements the Gatekeep command-line interface using
// Cobra. Each subcommand maps to a host capability (load, classify,
// rules, etc.).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gatekeep",
	Short: "Gatekeep — Local chat moderation filter",
	Long: `Gatekeep is an embeddable moderation filter for chat applications.
It acquires classifier models from a configured release channel, verifies
them, and filters messages through user rules plus the model.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
