package state

import "time"

const (
	// INF is the metric that signals an unreachable destination. It is finite so that it can still be
	// carried in an advertisement, and is larger than any real path cost in a simulated network.
	INF = uint32(100)
)

// Forever is the expiry time of routes that never time out (static routes and poison).
var Forever = time.Unix(1<<63-62135596801, 999999999)

var (
	RouteTTL       = 15 * time.Second // lifetime granted to a learned route on each acceptance
	UpdateInterval = 5 * time.Second  // period of the forced full-table broadcast
	DefaultLatency = uint32(1)

	// simulator defaults

	LatencyUnit      = 10 * time.Millisecond // wall time of one unit of link latency
	MaxHops          = 64                    // data packets are dropped as looping after this many router hops
	TraceTTL         = 10 * time.Minute
	DispatchBuffer   = 128
	SimulateDuration = 60 * time.Second

	// default paths

	NetworkConfigPath = "network.yaml"
)
