package cmd

import (
	"fmt"

	"github.com/mezonai/blockworker/blockstore"
	"github.com/mezonai/blockworker/config"
	"github.com/mezonai/blockworker/db"
	"github.com/mezonai/blockworker/events"
	"github.com/mezonai/blockworker/exception"
	"github.com/mezonai/blockworker/heartbeat"
	"github.com/mezonai/blockworker/logx"
	"github.com/mezonai/blockworker/monitoring"
	"github.com/mezonai/blockworker/network"
	"github.com/mezonai/blockworker/reporter"
	"github.com/spf13/cobra"
)

var (
	workerConfigPath string
	tunablesPath     string
	enableGops       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the block storage worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&workerConfigPath, "config", "c", "config/worker.yml", "Path to worker configuration file")
	runCmd.Flags().StringVar(&tunablesPath, "tunables", "config/config.ini", "Path to heartbeat and storage checker settings")
	runCmd.Flags().BoolVar(&enableGops, "gops", false, "Start the gops diagnostics agent")
}

func runWorker() error {
	initializeFileLogger()
	monitoring.InitMetrics()
	if enableGops {
		startGops()
	}

	cfg, err := config.LoadWorkerConfig(workerConfigPath)
	if err != nil {
		return fmt.Errorf("load worker config: %w", err)
	}
	hbCfg, err := config.LoadHeartbeatConfig(tunablesPath)
	if err != nil {
		return fmt.Errorf("load heartbeat config: %w", err)
	}
	checkerCfg, err := config.LoadStorageCheckerConfig(tunablesPath)
	if err != nil {
		return fmt.Errorf("load storage checker config: %w", err)
	}

	vendor, opts := cfg.DBOptions()
	provider, err := db.CreateDBProvider(vendor, opts)
	if err != nil {
		return fmt.Errorf("open metadata db: %w", err)
	}

	deltaReporter := reporter.NewDeltaReporter(cfg.Worker.RegisterToAllMasters)
	dispatcher := events.NewDispatcher()
	dispatcher.Register(deltaReporter)

	store, err := blockstore.Open(provider, dispatcher, cfg.Locations())
	if err != nil {
		_ = provider.Close()
		return fmt.Errorf("open block store: %w", err)
	}
	defer store.Close()

	masters := make([]heartbeat.MasterClient, 0, len(cfg.Masters))
	defer func() {
		for _, m := range masters {
			_ = m.Close()
		}
	}()
	for _, addr := range cfg.Masters {
		client, err := network.NewGRPCMasterClient(addr, hbCfg.Timeout())
		if err != nil {
			return err
		}
		masters = append(masters, client)
	}

	blockSync, err := heartbeat.NewBlockSync(heartbeat.Config{
		WorkerID: cfg.Worker.ID,
		Address:  cfg.Worker.Address,
		Interval: hbCfg.Interval(),
	}, deltaReporter, store, masters)
	if err != nil {
		return err
	}
	checker := blockstore.NewStorageChecker(store, checkerCfg.Interval())

	ctx, stop := signalContext()
	defer stop()

	metricsSrv := startMetricsServer(cfg.MetricsAddr)
	defer stopMetricsServer(metricsSrv)

	exception.SafeGo("Storage Checker", func() {
		checker.Run(ctx)
	})

	logx.Info("WORKER", fmt.Sprintf("Worker %s started | address=%s | locations=%d", cfg.Worker.ID, cfg.Worker.Address, len(cfg.Locations())))
	blockSync.Run(ctx)
	logx.Info("WORKER", fmt.Sprintf("Worker %s shutting down", cfg.Worker.ID))
	return nil
}
