package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "production",
	Short: "Wood production management service",
	Long:  `Tracks order lines through production, delivery grouping and documentation`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
