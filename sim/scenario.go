package sim

import (
	"log/slog"
	"time"

	"github.com/encodeous/dvsim/state"
)

// Scenario is a network run by a discrete event engine in simulated time, starting at the Unix epoch
type Scenario struct {
	*Network
	Engine *Engine
}

// NewScenario builds the network of cfg, brings up all of its links and schedules its events.
func NewScenario(cfg state.NetworkCfg, logger *slog.Logger) (*Scenario, error) {
	state.ExpandNetworkConfig(&cfg)
	if err := state.NetworkConfigValidator(&cfg); err != nil {
		return nil, err
	}
	engine := NewEngine(time.Unix(0, 0))
	net, err := NewNetwork(cfg, engine, logger)
	if err != nil {
		return nil, err
	}
	if err := net.ConnectAll(); err != nil {
		_ = net.Close()
		return nil, err
	}
	net.StartTimers()
	for _, ev := range cfg.Events {
		engine.After(ev.At, func() error {
			net.Log.Info("event", "action", ev.Action, "a", ev.A, "b", ev.B)
			return net.Apply(ev)
		})
	}
	return &Scenario{
		Network: net,
		Engine:  engine,
	}, nil
}

// Run runs the scenario for its configured duration
func (s *Scenario) Run() error {
	return s.RunUntil(s.Cfg.Sim.Duration)
}

// RunUntil runs the scenario until elapsed simulated time has passed since it started
func (s *Scenario) RunUntil(elapsed time.Duration) error {
	return s.Engine.RunUntil(s.Engine.start.Add(elapsed))
}

func (s *Scenario) RunFor(d time.Duration) error {
	return s.Engine.RunFor(d)
}
