// Package cmd provides the command-line interface of skidsim.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the skidsim command with all its subcommands.
func NewRootCommand() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "skidsim",
		Short: "skidsim simulates a one-entry ready/valid skid buffer.",
		Long: `skidsim simulates a one-entry ready/valid skid buffer ` +
			`cycle by cycle. It runs directed scenarios and writes the ` +
			`observed port signals as tables, CSV, VCD or SQLite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadDotEnv(envFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"File to load default settings from.")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newScenariosCommand())

	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}

	return 0
}
