// Command sim-manager drives the epoch protocol for a distributed
// simulation: it opens the run, broadcasts epochs, waits for every agent's
// ready handshake and stops the simulation.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/v2gsim/v2gsim/internal/bus"
	"github.com/v2gsim/v2gsim/internal/manager"
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

	start, err := time.Parse(time.RFC3339, cfg.Simulation.EpochStart)
	if err != nil {
		logger.Fatal("Invalid epoch start", zap.Error(err))
	}
	expected := cfg.Simulation.Agents
	if expected == 0 {
		// Controller and grid plus the configured fleet.
		expected = len(cfg.Users) + len(cfg.Stations) + 2
	}

	mq, err := bus.New(cfg.Bus.Backend, cfg.Bus.RabbitMQ.URL, cfg.Bus.RabbitMQ.Exchange, cfg.Bus.NATS.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to bus", zap.Error(err))
	}
	defer mq.Close()

	m := manager.New(manager.Config{
		SimulationID:  cfg.Simulation.ID,
		ProcessID:     "sim-manager",
		ExpectedReady: expected,
		Epochs:        cfg.Simulation.Epochs,
		EpochStart:    start,
		EpochLength:   cfg.Simulation.EpochLength,
		EpochTimeout:  cfg.Simulation.EpochTimeout,
		Lifecycle:     sim.Lifecycle(cfg.Topics),
	}, mq, logger)

	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Shutting down...")
		cancel()
	}()

	if err := m.Run(ctx); err != nil {
		logger.Fatal("Simulation failed", zap.Error(err))
	}
	logger.Info("Simulation finished")
}
