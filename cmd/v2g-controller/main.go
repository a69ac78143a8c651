// Command v2g-controller runs the central scheduler as its own process,
// joining the simulation over the configured bus.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/v2gsim/v2gsim/internal/bus"
	"github.com/v2gsim/v2gsim/internal/controller"
	"github.com/v2gsim/v2gsim/internal/engine"
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

	comp := controller.New(sim.ControllerFrom(cfg), logger)
	runner := engine.NewRunner(cfg.Simulation.ID, "v2g-controller", comp, mq, sim.Lifecycle(cfg.Topics), logger)
	if err := runner.Start(); err != nil {
		logger.Fatal("Failed to start controller", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-runner.Done():
	case <-quit:
		runner.Stop()
		<-runner.Done()
	}
	logger.Info("Controller exited")
}
