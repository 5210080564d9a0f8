package state

import (
	"fmt"
	"maps"
	"slices"
)

// Ports tracks the links of a router that are currently up, and their latencies.
type Ports struct {
	latency map[PortId]uint32
}

func NewPorts() *Ports {
	return &Ports{latency: make(map[PortId]uint32)}
}

// Add registers the port as up. Re-adding a port overwrites its latency.
func (p *Ports) Add(port PortId, latency uint32) {
	p.latency[port] = latency
}

func (p *Ports) Remove(port PortId) {
	delete(p.latency, port)
}

func (p *Ports) Has(port PortId) bool {
	_, ok := p.latency[port]
	return ok
}

func (p *Ports) Latency(port PortId) (uint32, error) {
	lat, ok := p.latency[port]
	if !ok {
		return 0, fmt.Errorf("port %d: %w", port, ErrUnknownPort)
	}
	return lat, nil
}

// All returns the ports that are up, in ascending order
func (p *Ports) All() []PortId {
	return slices.Sorted(maps.Keys(p.latency))
}

func (p *Ports) Len() int {
	return len(p.latency)
}
