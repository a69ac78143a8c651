// Command v2gsim runs a complete simulation in a single process: manager,
// controller, users, stations and grid over the configured bus.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/v2gsim/v2gsim/internal/bus"
	"github.com/v2gsim/v2gsim/internal/observability/telemetry"
	"github.com/v2gsim/v2gsim/internal/sim"
	"github.com/v2gsim/v2gsim/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	logger, err := telemetry.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	if cfg.Prometheus.Enabled {
		telemetry.ServeMetrics(cfg.Prometheus.Port, cfg.Prometheus.Path, logger)
	}

	mq, err := bus.New(cfg.Bus.Backend, cfg.Bus.RabbitMQ.URL, cfg.Bus.RabbitMQ.Exchange, cfg.Bus.NATS.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to bus", zap.Error(err))
	}
	defer mq.Close()

	simCfg, err := sim.FromConfig(cfg)
	if err != nil {
		logger.Fatal("Invalid simulation configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Shutting down...")
		cancel()
	}()

	if err := sim.New(simCfg, mq, logger).Run(ctx); err != nil {
		logger.Fatal("Simulation failed", zap.Error(err))
	}
	logger.Info("Simulation exited cleanly")
}
