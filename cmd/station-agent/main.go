// Command station-agent runs one charging station from the configured set as
// its own process. The -station flag selects the entry; the first is the
// default.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/v2gsim/v2gsim/internal/bus"
	"github.com/v2gsim/v2gsim/internal/engine"
	"github.com/v2gsim/v2gsim/internal/observability/telemetry"
	"github.com/v2gsim/v2gsim/internal/sim"
	"github.com/v2gsim/v2gsim/internal/station"
	"github.com/v2gsim/v2gsim/pkg/config"
)

func main() {
	stationID := flag.String("station", "", "station id to run (default: first configured)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	logger, err := telemetry.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	if len(cfg.Stations) == 0 {
		logger.Fatal("No stations configured")
	}
	entry := cfg.Stations[0]
	if *stationID != "" {
		found := false
		for _, s := range cfg.Stations {
			if s.ID == *stationID {
				entry, found = s, true
				break
			}
		}
		if !found {
			logger.Fatal("Station not in configuration", zap.String("station", *stationID))
		}
	}

	mq, err := bus.New(cfg.Bus.Backend, cfg.Bus.RabbitMQ.URL, cfg.Bus.RabbitMQ.Exchange, cfg.Bus.NATS.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to bus", zap.Error(err))
	}
	defer mq.Close()

	agentCfg := sim.StationFrom(entry, cfg.Grid.ID, cfg.Topics)
	name := "station-" + agentCfg.StationID
	runner := engine.NewRunner(cfg.Simulation.ID, name, station.New(agentCfg), mq, sim.Lifecycle(cfg.Topics), logger)
	if err := runner.Start(); err != nil {
		logger.Fatal("Failed to start station agent", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-runner.Done():
	case <-quit:
		runner.Stop()
		<-runner.Done()
	}
	logger.Info("Station agent exited", zap.String("process", name))
}
