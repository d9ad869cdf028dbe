package cmd

import (
	"os"

	"github.com/mezonai/blockworker/logx"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "blockworker",
	Short: "Tiered block storage worker CLI",
	Long:  "Command line interface for running a block storage worker and a reference block master.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
