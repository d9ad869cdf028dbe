package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/mezonai/blockworker/exception"
	"github.com/mezonai/blockworker/logx"
	"github.com/mezonai/blockworker/monitoring"
)

const metricsShutdownTimeout = 5 * time.Second

func initializeFileLogger() {
	lumberjackLogger := logx.InitFileLogger()
	logx.Info("CMD", "Logging to ", lumberjackLogger.Filename)
}

func startGops() {
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		logx.Warn("CMD", fmt.Sprintf("gops agent not started: %v", err))
	}
}

// startMetricsServer serves /metrics on addr. An empty addr disables it.
func startMetricsServer(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	monitoring.RegisterMetrics(mux)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	exception.SafeGo("Metrics Server", func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error("MONITORING", fmt.Sprintf("Metrics server stopped: %v", err))
		}
	})
	logx.Info("MONITORING", "Metrics server listening on ", addr)
	return srv
}

func stopMetricsServer(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
