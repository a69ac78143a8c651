// Command grid-agent runs the grid capacity tracker as its own process.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/v2gsim/v2gsim/internal/bus"
	"github.com/v2gsim/v2gsim/internal/engine"
	"github.com/v2gsim/v2gsim/internal/grid"
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

	mq, err := bus.New(cfg.Bus.Backend, cfg.Bus.RabbitMQ.URL, cfg.Bus.RabbitMQ.Exchange, cfg.Bus.NATS.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to bus", zap.Error(err))
	}
	defer mq.Close()

	agentCfg := sim.GridFrom(cfg)
	name := "grid-" + agentCfg.GridID
	runner := engine.NewRunner(cfg.Simulation.ID, name, grid.New(agentCfg), mq, sim.Lifecycle(cfg.Topics), logger)
	if err := runner.Start(); err != nil {
		logger.Fatal("Failed to start grid agent", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-runner.Done():
	case <-quit:
		runner.Stop()
		<-runner.Done()
	}
	logger.Info("Grid agent exited", zap.String("process", name))
}
