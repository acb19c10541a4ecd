package cmd

import (
	"github.com/spf13/cobra"
)

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Start the interactive study session (same as running studiz with no arguments)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}
