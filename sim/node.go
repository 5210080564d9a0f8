package sim

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
)

// routerNode attaches a DVRouter to the network. In a live network every call into the router goes through its
// runtime, otherwise the router is called directly from the clock.
type routerNode struct {
	id     state.NodeId
	net    *Network
	router *core.DVRouter
	rt     *core.Runtime

	forwarded bool
}

func (rn *routerNode) Transmit(from state.NodeId, port state.PortId, pkt state.Packet) {
	if pkt.Kind == state.KindData {
		rn.forwarded = true
	}
	rn.net.Transmit(from, port, pkt)
}

func (rn *routerNode) Now() time.Time {
	return rn.net.Now()
}

// exec runs fn against the router. Without wait, errors from a live router stop its runtime instead of being
// returned.
func (rn *routerNode) exec(fn func(r *core.DVRouter) error, wait bool) error {
	if rn.rt == nil {
		return fn(rn.router)
	}
	if !wait {
		rn.rt.Dispatch(fn)
		return nil
	}
	select {
	case <-rn.rt.Done():
		// the main loop has exited, so nothing else can touch the router
		return fn(rn.router)
	default:
	}
	_, err := rn.rt.DispatchWait(func(r *core.DVRouter) (any, error) {
		return nil, fn(r)
	})
	return err
}

func (rn *routerNode) deliver(pkt state.Packet, port state.PortId) error {
	return rn.exec(func(r *core.DVRouter) error {
		now := r.Now()
		if !r.Ports.Has(port) {
			// the link went down after the packet arrived, but before the router got to it
			r.Logger.Debug("dropped packet on down port", "pkt", pkt, "port", port)
			perf.PacketsDropped.Add(1)
			if pkt.Kind == state.KindData {
				rn.net.Tracer.Dropped(pkt, now, fmt.Sprintf("%s port %d went down", rn.id, port))
			}
			return nil
		}
		if pkt.Kind != state.KindData {
			return r.HandlePacket(pkt, port)
		}
		if !rn.net.Tracer.Hop(pkt, rn.id, now) {
			r.Logger.Warn("dropped looping packet", "pkt", pkt)
			return nil
		}
		rn.forwarded = false
		if err := r.HandlePacket(pkt, port); err != nil {
			return err
		}
		if !rn.forwarded {
			rn.net.Tracer.Dropped(pkt, now, fmt.Sprintf("%s has no route to %s", rn.id, pkt.Dst))
		}
		return nil
	}, false)
}

func (rn *routerNode) linkUp(port state.PortId, latency uint32, peer state.NodeId) error {
	_, isHost := rn.net.Host(peer)
	return rn.exec(func(r *core.DVRouter) error {
		r.HandleLinkUp(port, latency)
		if isHost {
			return r.AddStaticRoute(peer, port)
		}
		return nil
	}, false)
}

func (rn *routerNode) linkDown(port state.PortId) error {
	return rn.exec(func(r *core.DVRouter) error {
		r.HandleLinkDown(port)
		return nil
	}, false)
}

// Host is a leaf node with a single link. It sends pings and records the data packets addressed to it.
type Host struct {
	id  state.NodeId
	net *Network

	mu       sync.Mutex
	port     state.PortId
	up       bool
	received []state.Packet
}

func (h *Host) Id() state.NodeId {
	return h.id
}

// Ping sends a data packet to dst and returns it
func (h *Host) Ping(dst state.NodeId) state.Packet {
	pkt := state.NewDataPacket(h.id, dst, []byte("ping"))
	h.net.Tracer.Sent(pkt, h.net.Now())
	h.mu.Lock()
	port, up := h.port, h.up
	h.mu.Unlock()
	if !up {
		h.net.Log.Debug("host is not linked", "host", h.id, "pkt", pkt)
		h.net.Tracer.Dropped(pkt, h.net.Now(), fmt.Sprintf("%s is not linked", h.id))
		return pkt
	}
	h.net.Transmit(h.id, port, pkt)
	return pkt
}

// Received returns the data packets delivered to the host so far
func (h *Host) Received() []state.Packet {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.received)
}

func (h *Host) deliver(pkt state.Packet, port state.PortId) error {
	if pkt.Kind != state.KindData {
		return nil
	}
	now := h.net.Now()
	if pkt.Dst != h.id {
		h.net.Log.Debug("host dropped packet for someone else", "host", h.id, "pkt", pkt)
		h.net.Tracer.Dropped(pkt, now, fmt.Sprintf("misdelivered to %s", h.id))
		return nil
	}
	h.mu.Lock()
	h.received = append(h.received, pkt)
	h.mu.Unlock()
	h.net.Tracer.Delivered(pkt, now)
	return nil
}

func (h *Host) linkUp(port state.PortId, latency uint32, peer state.NodeId) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.port = port
	h.up = true
	return nil
}

func (h *Host) linkDown(port state.PortId) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.up = false
	return nil
}
