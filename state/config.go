package state

import (
	"slices"
	"time"
)

// RouterCfg holds the loop-avoidance policy of a router. SplitHorizon and PoisonReverse are mutually exclusive.
type RouterCfg struct {
	SplitHorizon     bool          `yaml:"split_horizon,omitempty"`       // never advertise a route out of the port it was learned on
	PoisonReverse    bool          `yaml:"poison_reverse,omitempty"`      // advertise INF out of the port a route was learned on
	PoisonExpired    bool          `yaml:"poison_expired,omitempty"`      // expired routes are kept and advertised as INF instead of being deleted
	SendOnLinkUp     bool          `yaml:"send_on_link_up,omitempty"`     // send the full table to a neighbour as soon as its link comes up
	PoisonOnLinkDown bool          `yaml:"poison_on_link_down,omitempty"` // poison routes through a link when it goes down
	RouteTTL         time.Duration `yaml:"route_ttl,omitempty"`
	UpdateInterval   time.Duration `yaml:"update_interval,omitempty"`
}

// SimCfg configures the network simulator
type SimCfg struct {
	LatencyUnit time.Duration `yaml:"latency_unit,omitempty"`
	Duration    time.Duration `yaml:"duration,omitempty"`
	Seed        uint64        `yaml:"seed,omitempty"`
	MaxHops     int           `yaml:"max_hops,omitempty"`
	TraceTTL    time.Duration `yaml:"trace_ttl,omitempty"`
}

type EventAction string

const (
	ActionLinkDown EventAction = "link-down"
	ActionLinkUp   EventAction = "link-up"
	ActionPing     EventAction = "ping"
)

// EventCfg is an action applied to the network at a given simulated time
type EventCfg struct {
	At      time.Duration
	Action  EventAction
	A       NodeId
	B       NodeId
	Latency uint32 `yaml:",omitempty"` // only for link-up, defaults to the configured latency of the link
}

// NetworkCfg describes a whole simulated network
type NetworkCfg struct {
	Router  RouterCfg
	Sim     SimCfg `yaml:",omitempty"`
	Routers []NodeId
	Hosts   []NodeId   `yaml:",omitempty"`
	Links   []string   // see ParseLinks
	Events  []EventCfg `yaml:",omitempty"`
}

// LinkCfg is a single undirected link between two nodes
type LinkCfg struct {
	A       NodeId
	B       NodeId
	Latency uint32
}

func (c *NetworkCfg) IsRouter(node NodeId) bool {
	return slices.Contains(c.Routers, node)
}

func (c *NetworkCfg) IsHost(node NodeId) bool {
	return slices.Contains(c.Hosts, node)
}

func (c *NetworkCfg) IsNode(node NodeId) bool {
	return c.IsRouter(node) || c.IsHost(node)
}

func (c *NetworkCfg) GetNodes() []NodeId {
	nodes := make([]NodeId, 0, len(c.Routers)+len(c.Hosts))
	nodes = append(nodes, c.Routers...)
	nodes = append(nodes, c.Hosts...)
	return nodes
}

// GetLinks parses the link graph against the configured nodes
func (c *NetworkCfg) GetLinks() ([]LinkCfg, error) {
	nodes := make([]string, 0)
	for _, n := range c.GetNodes() {
		nodes = append(nodes, string(n))
	}
	return ParseLinks(c.Links, nodes)
}

// ExpandRouterConfig fills unset durations with their defaults
func ExpandRouterConfig(cfg *RouterCfg) {
	if cfg.RouteTTL == 0 {
		cfg.RouteTTL = RouteTTL
	}
	if cfg.UpdateInterval == 0 {
		cfg.UpdateInterval = UpdateInterval
	}
}

func ExpandNetworkConfig(cfg *NetworkCfg) {
	ExpandRouterConfig(&cfg.Router)
	if cfg.Sim.LatencyUnit == 0 {
		cfg.Sim.LatencyUnit = LatencyUnit
	}
	if cfg.Sim.Duration == 0 {
		cfg.Sim.Duration = SimulateDuration
	}
	if cfg.Sim.MaxHops == 0 {
		cfg.Sim.MaxHops = MaxHops
	}
	if cfg.Sim.TraceTTL == 0 {
		cfg.Sim.TraceTTL = TraceTTL
	}
}

// SampleNetwork is a line of three routers with a host on each end
func SampleNetwork() NetworkCfg {
	cfg := NetworkCfg{
		Router: RouterCfg{
			SplitHorizon:     true,
			PoisonExpired:    true,
			SendOnLinkUp:     true,
			PoisonOnLinkDown: true,
		},
		Routers: []NodeId{"r1", "r2", "r3"},
		Hosts:   []NodeId{"h1", "h3"},
		Links: []string{
			"r1, r2",
			"r2, r3 @ 2",
			"h1, r1",
			"h3, r3",
		},
		Events: []EventCfg{
			{At: 20 * time.Second, Action: ActionPing, A: "h1", B: "h3"},
			{At: 25 * time.Second, Action: ActionLinkDown, A: "r2", B: "r3"},
			{At: 45 * time.Second, Action: ActionLinkUp, A: "r2", B: "r3"},
			{At: 55 * time.Second, Action: ActionPing, A: "h3", B: "h1"},
		},
	}
	ExpandNetworkConfig(&cfg)
	return cfg
}
