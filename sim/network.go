package sim

import (
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
)

// node is anything that can be attached to a link
type node interface {
	deliver(pkt state.Packet, port state.PortId) error
	linkUp(port state.PortId, latency uint32, peer state.NodeId) error
	linkDown(port state.PortId) error
}

type link struct {
	cfg   state.LinkCfg
	portA state.PortId
	portB state.PortId
	up    bool
	gen   uint64 // bumped on every state change, so deliveries can tell the link went down while they were in flight
}

type endpoint struct {
	link       *link
	remote     state.NodeId
	remotePort state.PortId
}

// Network connects routers and hosts with links. Every node numbers its own ports, in the order its links are
// first connected, and a link keeps its ports when it comes back up.
type Network struct {
	Cfg    state.NetworkCfg
	Clock  Clock
	Tracer *Tracer
	Log    *slog.Logger

	mu       sync.Mutex
	routers  map[state.NodeId]*routerNode
	hosts    map[state.NodeId]*Host
	links    map[state.Pair[state.NodeId, state.NodeId]]*link
	ports    map[state.Pair[state.NodeId, state.PortId]]*endpoint
	nextPort map[state.NodeId]state.PortId
	rng      *rand.Rand
}

// NewNetwork creates the routers and hosts of cfg, without linking them. cfg must already be expanded.
func NewNetwork(cfg state.NetworkCfg, clock Clock, logger *slog.Logger) (*Network, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	n := &Network{
		Cfg:      cfg,
		Clock:    clock,
		Tracer:   NewTracer(cfg.Sim),
		Log:      logger,
		routers:  make(map[state.NodeId]*routerNode),
		hosts:    make(map[state.NodeId]*Host),
		links:    make(map[state.Pair[state.NodeId, state.NodeId]]*link),
		ports:    make(map[state.Pair[state.NodeId, state.PortId]]*endpoint),
		nextPort: make(map[state.NodeId]state.PortId),
		rng:      rand.New(rand.NewPCG(cfg.Sim.Seed, cfg.Sim.Seed^0x9e3779b97f4a7c15)),
	}
	for _, id := range cfg.Routers {
		rn := &routerNode{id: id, net: n}
		r, err := core.NewDVRouter(id, cfg.Router, rn, logger.With("router", id))
		if err != nil {
			return nil, err
		}
		rn.router = r
		n.routers[id] = rn
	}
	for _, id := range cfg.Hosts {
		n.hosts[id] = &Host{id: id, net: n, received: make([]state.Packet, 0)}
	}
	return n, nil
}

func (n *Network) Now() time.Time {
	return n.Clock.Now()
}

func (n *Network) getNode(id state.NodeId) (node, bool) {
	if r, ok := n.routers[id]; ok {
		return r, true
	}
	if h, ok := n.hosts[id]; ok {
		return h, true
	}
	return nil, false
}

func (n *Network) allocPort(id state.NodeId) state.PortId {
	p := n.nextPort[id]
	n.nextPort[id] = p + 1
	return p
}

// Connect brings up the link between a and b with the given latency, creating it if needed, and tells both ends.
// A router that gets linked to a host installs a static route to it.
func (n *Network) Connect(a, b state.NodeId, latency uint32) error {
	n.mu.Lock()
	na, okA := n.getNode(a)
	nb, okB := n.getNode(b)
	if !okA || !okB || a == b {
		n.mu.Unlock()
		return fmt.Errorf("connect %s, %s: %w", a, b, ErrUnknownNode)
	}
	if latency >= state.INF {
		n.mu.Unlock()
		return fmt.Errorf("connect %s, %s: latency %d must be less than %d", a, b, latency, state.INF)
	}
	key := state.MakeSortedPair(a, b)
	l, ok := n.links[key]
	if ok && l.up {
		n.mu.Unlock()
		n.Log.Warn("link is already up", "a", a, "b", b)
		return nil
	}
	for _, id := range []state.NodeId{a, b} {
		if _, isHost := n.hosts[id]; !isHost {
			continue
		}
		for other := range n.links {
			if other != key && (other.V1 == id || other.V2 == id) {
				n.mu.Unlock()
				return fmt.Errorf("connect %s, %s: %s: %w", a, b, id, ErrHostLinked)
			}
		}
	}
	if !ok {
		l = &link{cfg: state.LinkCfg{A: key.V1, B: key.V2}}
		l.portA = n.allocPort(key.V1)
		l.portB = n.allocPort(key.V2)
		n.links[key] = l
		n.ports[state.MakePair(key.V1, l.portA)] = &endpoint{link: l, remote: key.V2, remotePort: l.portB}
		n.ports[state.MakePair(key.V2, l.portB)] = &endpoint{link: l, remote: key.V1, remotePort: l.portA}
	}
	l.cfg.Latency = latency
	l.up = true
	l.gen++
	portA, portB := l.portA, l.portB
	if key.V1 != a {
		na, nb = nb, na
	}
	n.mu.Unlock()

	n.Log.Info("link up", "a", key.V1, "b", key.V2, "latency", latency)
	if err := na.linkUp(portA, latency, key.V2); err != nil {
		return err
	}
	return nb.linkUp(portB, latency, key.V1)
}

// Disconnect takes down the link between a and b and tells both ends. Packets still in flight on the link are lost.
func (n *Network) Disconnect(a, b state.NodeId) error {
	n.mu.Lock()
	key := state.MakeSortedPair(a, b)
	l, ok := n.links[key]
	if !ok {
		n.mu.Unlock()
		return fmt.Errorf("disconnect %s, %s: %w", a, b, ErrNoLink)
	}
	if !l.up {
		n.mu.Unlock()
		n.Log.Warn("link is already down", "a", a, "b", b)
		return nil
	}
	l.up = false
	l.gen++
	na, _ := n.getNode(key.V1)
	nb, _ := n.getNode(key.V2)
	n.mu.Unlock()

	n.Log.Info("link down", "a", key.V1, "b", key.V2)
	if err := na.linkDown(l.portA); err != nil {
		return err
	}
	return nb.linkDown(l.portB)
}

// Transmit sends pkt out of a port of from. It is delivered to the other end of the link after the link's latency,
// unless the link goes down first.
func (n *Network) Transmit(from state.NodeId, port state.PortId, pkt state.Packet) {
	n.mu.Lock()
	ep, ok := n.ports[state.MakePair(from, port)]
	if !ok || !ep.link.up {
		n.mu.Unlock()
		perf.PacketsDropped.Add(1)
		n.Log.Debug(core.SendOnDownPort.String(), "from", from, "port", port, "pkt", pkt)
		if pkt.Kind == state.KindData {
			n.Tracer.Dropped(pkt, n.Now(), fmt.Sprintf("%s sent on down port %d", from, port))
		}
		return
	}
	l := ep.link
	gen := l.gen
	delay := time.Duration(l.cfg.Latency) * n.Cfg.Sim.LatencyUnit
	dst, _ := n.getNode(ep.remote)
	n.mu.Unlock()

	n.Clock.After(delay, func() error {
		n.mu.Lock()
		lost := !l.up || l.gen != gen
		n.mu.Unlock()
		if lost {
			perf.PacketsDropped.Add(1)
			n.Log.Debug("packet lost in flight", "from", from, "to", ep.remote, "pkt", pkt)
			if pkt.Kind == state.KindData {
				n.Tracer.Dropped(pkt, n.Now(), fmt.Sprintf("link %s-%s went down", from, ep.remote))
			}
			return nil
		}
		return dst.deliver(pkt, ep.remotePort)
	})
}

// Apply performs a scheduled event
func (n *Network) Apply(ev state.EventCfg) error {
	switch ev.Action {
	case state.ActionLinkDown:
		return n.Disconnect(ev.A, ev.B)
	case state.ActionLinkUp:
		latency := ev.Latency
		if latency == 0 {
			latency = n.linkLatency(ev.A, ev.B)
		}
		return n.Connect(ev.A, ev.B, latency)
	case state.ActionPing:
		h, ok := n.Host(ev.A)
		if !ok {
			return fmt.Errorf("ping from %s: %w", ev.A, ErrUnknownNode)
		}
		h.Ping(ev.B)
		return nil
	default:
		return fmt.Errorf("unknown event action: %s", ev.Action)
	}
}

// linkLatency is the latency a link was last up with, or its configured latency
func (n *Network) linkLatency(a, b state.NodeId) uint32 {
	key := state.MakeSortedPair(a, b)
	n.mu.Lock()
	l, ok := n.links[key]
	n.mu.Unlock()
	if ok {
		return l.cfg.Latency
	}
	links, err := n.Cfg.GetLinks()
	if err == nil {
		for _, lc := range links {
			if state.MakeSortedPair(lc.A, lc.B) == key {
				return lc.Latency
			}
		}
	}
	return state.DefaultLatency
}

// ConnectAll brings up every link of the configuration
func (n *Network) ConnectAll() error {
	links, err := n.Cfg.GetLinks()
	if err != nil {
		return err
	}
	for _, l := range links {
		if err := n.Connect(l.A, l.B, l.Latency); err != nil {
			return err
		}
	}
	return nil
}

// StartTimers fires the timer of every router every update interval, starting at a random offset within the first
// interval
func (n *Network) StartTimers() {
	for _, id := range n.Routers() {
		rn := n.routers[id]
		interval := rn.router.Cfg.UpdateInterval
		if interval <= 0 {
			continue
		}
		offset := time.Duration(n.rng.Int64N(int64(interval)))
		var tick func() error
		tick = func() error {
			n.Clock.After(interval, tick)
			return rn.exec(func(r *core.DVRouter) error {
				r.HandleTimer()
				return nil
			}, false)
		}
		n.Clock.After(offset, tick)
	}
}

func (n *Network) Routers() []state.NodeId {
	return slices.Sorted(maps.Keys(n.routers))
}

func (n *Network) Hosts() []state.NodeId {
	return slices.Sorted(maps.Keys(n.hosts))
}

func (n *Network) Router(id state.NodeId) (*core.DVRouter, bool) {
	rn, ok := n.routers[id]
	if !ok {
		return nil, false
	}
	return rn.router, true
}

func (n *Network) Host(id state.NodeId) (*Host, bool) {
	h, ok := n.hosts[id]
	return h, ok
}

// Route returns the table entry router has for dst
func (n *Network) Route(router, dst state.NodeId) (state.TableEntry, bool) {
	rn, ok := n.routers[router]
	if !ok {
		return state.TableEntry{}, false
	}
	var entry state.TableEntry
	var found bool
	_ = rn.exec(func(r *core.DVRouter) error {
		entry, found = r.Table.Get(dst)
		return nil
	}, true)
	return entry, found
}

// Inspect renders every router of the network
func (n *Network) Inspect() string {
	out := make([]string, 0)
	for _, id := range n.Routers() {
		var s string
		_ = n.routers[id].exec(func(r *core.DVRouter) error {
			s = r.Inspect()
			return nil
		}, true)
		out = append(out, s)
	}
	return strings.Join(out, "\n")
}

// Close releases the resources of the network
func (n *Network) Close() error {
	return n.Tracer.Close()
}
