// Package sim wires a complete simulation into one process: controller,
// users, stations, grid and manager all running over a shared bus. It backs
// the v2gsim binary and the end-to-end tests.
package sim

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/v2gsim/v2gsim/internal/bus"
	"github.com/v2gsim/v2gsim/internal/controller"
	"github.com/v2gsim/v2gsim/internal/engine"
	"github.com/v2gsim/v2gsim/internal/grid"
	"github.com/v2gsim/v2gsim/internal/manager"
	"github.com/v2gsim/v2gsim/internal/station"
	"github.com/v2gsim/v2gsim/internal/user"
)

// Config assembles every agent of one simulation run.
type Config struct {
	SimulationID string
	Epochs       int
	EpochStart   time.Time
	EpochLength  time.Duration
	EpochTimeout time.Duration

	// Lifecycle topic overrides; zero value selects the defaults.
	Lifecycle engine.LifecycleTopics

	Controller controller.Config
	Users      []user.Config
	Stations   []station.Config
	Grid       grid.Config
}

// Simulation owns the assembled agents and their runners.
type Simulation struct {
	log     *zap.Logger
	mq      bus.MessageQueue
	manager *manager.Manager
	runners []*engine.Runner

	controller *controller.Controller
	users      []*user.Agent
	stations   []*station.Agent
	grid       *grid.Agent
}

// New builds the simulation on the given bus.
func New(cfg Config, mq bus.MessageQueue, log *zap.Logger) *Simulation {
	lifecycle := cfg.Lifecycle
	if lifecycle == (engine.LifecycleTopics{}) {
		lifecycle = engine.DefaultLifecycleTopics()
	}
	s := &Simulation{log: log, mq: mq}

	s.controller = controller.New(cfg.Controller, log)
	s.addRunner(cfg.SimulationID, "v2g-controller", s.controller, lifecycle)

	for _, uc := range cfg.Users {
		agent := user.New(uc)
		s.users = append(s.users, agent)
		s.addRunner(cfg.SimulationID, fmt.Sprintf("user-%d", uc.UserID), agent, lifecycle)
	}
	for _, sc := range cfg.Stations {
		agent := station.New(sc)
		s.stations = append(s.stations, agent)
		s.addRunner(cfg.SimulationID, "station-"+sc.StationID, agent, lifecycle)
	}

	s.grid = grid.New(cfg.Grid)
	s.addRunner(cfg.SimulationID, "grid-"+cfg.Grid.GridID, s.grid, lifecycle)

	s.manager = manager.New(manager.Config{
		SimulationID:  cfg.SimulationID,
		ProcessID:     "sim-manager",
		ExpectedReady: len(s.runners),
		Epochs:        cfg.Epochs,
		EpochStart:    cfg.EpochStart,
		EpochLength:   cfg.EpochLength,
		EpochTimeout:  cfg.EpochTimeout,
		Lifecycle:     lifecycle,
	}, mq, log)

	return s
}

func (s *Simulation) addRunner(simID, name string, comp engine.Component, lifecycle engine.LifecycleTopics) {
	s.runners = append(s.runners, engine.NewRunner(simID, name, comp, s.mq, lifecycle, s.log))
}

// Run starts every agent, drives the simulation to completion and waits for
// all agents to shut down.
func (s *Simulation) Run(ctx context.Context) error {
	for _, r := range s.runners {
		if err := r.Start(); err != nil {
			s.stopRunners()
			return fmt.Errorf("sim: %w", err)
		}
	}

	err := s.manager.Run(ctx)

	s.stopRunners()
	for _, r := range s.runners {
		<-r.Done()
	}
	return err
}

func (s *Simulation) stopRunners() {
	for _, r := range s.runners {
		r.Stop()
	}
}

// Users returns the user agents in configuration order.
func (s *Simulation) Users() []*user.Agent { return s.users }

// Stations returns the station agents in configuration order.
func (s *Simulation) Stations() []*station.Agent { return s.stations }

// Grid returns the grid agent.
func (s *Simulation) Grid() *grid.Agent { return s.grid }
