package cmd

import (
	"fmt"

	"github.com/mezonai/blockworker/logx"
	"github.com/mezonai/blockworker/network"
	"github.com/spf13/cobra"
)

var masterListenAddr string

var masterCmd = &cobra.Command{
	Use:   "master",
	Short: "Run an in-memory reference block master",
	Long: `Run a block master that keeps every worker's block locations in memory.
It accepts worker registrations and block heartbeats, and is meant for local testing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMaster()
	},
}

func init() {
	rootCmd.AddCommand(masterCmd)
	masterCmd.Flags().StringVarP(&masterListenAddr, "listen", "l", ":19998", "gRPC listen address")
}

func runMaster() error {
	initializeFileLogger()

	grpcSrv, addr, err := network.ServeGRPC(masterListenAddr, network.NewInMemoryMaster())
	if err != nil {
		return fmt.Errorf("start master: %w", err)
	}

	ctx, stop := signalContext()
	defer stop()
	<-ctx.Done()

	logx.Info("MASTER", fmt.Sprintf("Master on %s shutting down", addr))
	grpcSrv.GracefulStop()
	return nil
}
