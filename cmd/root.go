package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trading-platform-client",
	Short: "Terminal client for the strategy analysis backend",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(mockServerCmd)
}
