package core

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/encodeous/dvsim/state"
)

// Transport carries packets between nodes and keeps time. Transmit must not block.
type Transport interface {
	Transmit(from state.NodeId, port state.PortId, pkt state.Packet)
	Now() time.Time
}

// DVRouter binds the DV algorithm to a Transport: it wraps advertisements into packets tagged with our id, and
// demultiplexes received packets to the right handler.
type DVRouter struct {
	*state.RouterState
	Net    Transport
	Logger *slog.Logger
}

func NewDVRouter(id state.NodeId, cfg state.RouterCfg, net Transport, logger *slog.Logger) (*DVRouter, error) {
	state.ExpandRouterConfig(&cfg)
	s, err := state.NewRouterState(id, cfg)
	if err != nil {
		return nil, fmt.Errorf("router %s: %w", id, err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DVRouter{
		RouterState: s,
		Net:         net,
		Logger:      logger,
	}, nil
}

func (r *DVRouter) Send(pkt state.Packet, port state.PortId) {
	r.Net.Transmit(r.Id, port, pkt)
}

func (r *DVRouter) SendRouteAdvertisement(port state.PortId, dst state.NodeId, metric uint32) {
	r.Net.Transmit(r.Id, port, state.NewRoutePacket(r.Id, state.Advertisement{
		Dst:    dst,
		Metric: metric,
	}))
}

func (r *DVRouter) Now() time.Time {
	return r.Net.Now()
}

func (r *DVRouter) Log(event RouterEvent, desc string, args ...any) {
	r.Logger.Debug(fmt.Sprintf("%s %s", event.String(), desc), args...)
}

// HandlePacket is called for every packet that arrives on inPort
func (r *DVRouter) HandlePacket(pkt state.Packet, inPort state.PortId) error {
	switch pkt.Kind {
	case state.KindRoute:
		if pkt.Route == nil {
			r.Logger.Warn("received route packet without advertisement", "from", pkt.Src, "port", inPort)
			return nil
		}
		return r.HandleRouteAdvertisement(pkt.Route.Dst, pkt.Route.Metric, inPort)
	case state.KindData:
		r.HandleDataPacket(pkt, inPort)
		return nil
	default:
		r.Logger.Warn("received packet of unknown kind", "pkt", pkt, "port", inPort)
		return nil
	}
}

func (r *DVRouter) AddStaticRoute(dst state.NodeId, port state.PortId) error {
	return AddStaticRoute(r.RouterState, r, dst, port)
}

func (r *DVRouter) HandleDataPacket(pkt state.Packet, inPort state.PortId) {
	HandleDataPacket(r.RouterState, r, pkt, inPort)
}

func (r *DVRouter) HandleRouteAdvertisement(dst state.NodeId, metric uint32, inPort state.PortId) error {
	return HandleRouteAdvertisement(r.RouterState, r, dst, metric, inPort)
}

func (r *DVRouter) HandleTimer() {
	HandleTimer(r.RouterState, r)
}

func (r *DVRouter) SendRoutes(force bool, ports ...state.PortId) {
	SendRoutes(r.RouterState, r, force, ports...)
}

func (r *DVRouter) HandleLinkUp(port state.PortId, latency uint32) {
	HandleLinkUp(r.RouterState, r, port, latency)
}

func (r *DVRouter) HandleLinkDown(port state.PortId) {
	HandleLinkDown(r.RouterState, r, port)
}

func (r *DVRouter) String() string {
	return string(r.Id)
}
