// Command user-agent runs one EV user from the configured fleet as its own
// process. The -user flag selects the entry; the first is the default.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/v2gsim/v2gsim/internal/bus"
	"github.com/v2gsim/v2gsim/internal/engine"
	"github.com/v2gsim/v2gsim/internal/observability/telemetry"
	"github.com/v2gsim/v2gsim/internal/sim"
	"github.com/v2gsim/v2gsim/internal/user"
	"github.com/v2gsim/v2gsim/pkg/config"
)

func main() {
	userID := flag.Int("user", 0, "user id to run (default: first configured)")
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

	if len(cfg.Users) == 0 {
		logger.Fatal("No users configured")
	}
	entry := cfg.Users[0]
	if *userID != 0 {
		found := false
		for _, u := range cfg.Users {
			if u.ID == *userID {
				entry, found = u, true
				break
			}
		}
		if !found {
			logger.Fatal("User not in configuration", zap.Int("user", *userID))
		}
	}

	agentCfg, err := sim.UserFrom(entry, cfg.Topics)
	if err != nil {
		logger.Fatal("Invalid user configuration", zap.Error(err))
	}

	mq, err := bus.New(cfg.Bus.Backend, cfg.Bus.RabbitMQ.URL, cfg.Bus.RabbitMQ.Exchange, cfg.Bus.NATS.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to bus", zap.Error(err))
	}
	defer mq.Close()

	name := fmt.Sprintf("user-%d", agentCfg.UserID)
	runner := engine.NewRunner(cfg.Simulation.ID, name, user.New(agentCfg), mq, sim.Lifecycle(cfg.Topics), logger)
	if err := runner.Start(); err != nil {
		logger.Fatal("Failed to start user agent", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-runner.Done():
	case <-quit:
		runner.Stop()
		<-runner.Done()
	}
	logger.Info("User agent exited", zap.String("process", name))
}
