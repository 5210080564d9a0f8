package core

import (
	"fmt"
	"time"

	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
)

// Router is the environment a DV router runs in. Sends are non-blocking hand-offs.
type Router interface {
	// Send forwards a data packet, unchanged, out of port
	Send(pkt state.Packet, port state.PortId)
	// SendRouteAdvertisement tells the neighbour on port that we can reach dst at the given metric
	SendRouteAdvertisement(port state.PortId, dst state.NodeId, metric uint32)
	Now() time.Time
	Log(event RouterEvent, desc string, args ...any)
}

func AddStaticRoute(s *state.RouterState, r Router, dst state.NodeId, port state.PortId) error {
	if !s.Ports.Has(port) {
		return fmt.Errorf("static route to %s via port %d: %w", dst, port, state.ErrLinkNotUp)
	}
	lat, err := s.Ports.Latency(port)
	if err != nil {
		return err
	}
	entry := state.TableEntry{
		Dst:      dst,
		Port:     port,
		Metric:   lat,
		ExpireAt: state.Forever,
	}
	s.Table.Set(entry)
	r.Log(StaticRouteAdded, "installed static route", "route", entry)
	return nil
}

func HandleDataPacket(s *state.RouterState, r Router, pkt state.Packet, inPort state.PortId) {
	route, ok := s.Table.Get(pkt.Dst)
	if !ok {
		perf.PacketsDropped.Add(1)
		r.Log(NoRouteToDestination, "dropped packet", "pkt", pkt, "in", inPort)
		return
	}
	if route.Metric >= state.INF {
		perf.PacketsDropped.Add(1)
		r.Log(UnreachableDestination, "dropped packet", "pkt", pkt, "route", route)
		return
	}
	perf.PacketsForwarded.Add(1)
	r.Log(PacketForwarded, "forwarding packet", "pkt", pkt, "out", route.Port)
	r.Send(pkt, route.Port)
}

func HandleRouteAdvertisement(s *state.RouterState, r Router, dst state.NodeId, metric uint32, inPort state.PortId) error {
	perf.AdvertisementsReceived.Add(1)
	lat, err := s.Ports.Latency(inPort)
	if err != nil {
		return fmt.Errorf("advertisement for %s: %w", dst, err)
	}
	now := r.Now()
	totalMetric := AddMetric(metric, lat)

	// poison is accepted unconditionally so that unreachability propagates quickly
	if metric >= state.INF {
		entry := state.TableEntry{
			Dst:      dst,
			Port:     inPort,
			Metric:   state.INF,
			ExpireAt: state.Forever,
		}
		s.Table.Set(entry)
		r.Log(RoutePoisoned, "received poison", "route", entry)
		return nil
	}

	newEntry := state.TableEntry{
		Dst:      dst,
		Port:     inPort,
		Metric:   totalMetric,
		ExpireAt: now.Add(s.Cfg.RouteTTL),
	}

	cur, ok := s.Table.Get(dst)
	if !ok {
		s.Table.Set(newEntry)
		r.Log(RouteAdded, "new route", "route", newEntry)
		return nil
	}

	switch {
	case totalMetric < cur.Metric:
		r.Log(RouteImproved, "better route", "old", cur, "new", newEntry)
	case totalMetric == cur.Metric && cur.HasExpired(now):
		// an equally good route is preferred over a stale one
		r.Log(RouteRefreshed, "replaced expired route", "old", cur, "new", newEntry)
	case inPort == cur.Port:
		// our next hop is authoritative for its own cost, even if it got worse
		r.Log(RouteRefreshed, "next hop refreshed route", "old", cur, "new", newEntry)
	default:
		r.Log(AdvertisementIgnored, "ignored advertisement", "current", cur, "offered", newEntry)
		return nil
	}
	s.Table.Set(newEntry)
	return nil
}

func HandleTimer(s *state.RouterState, r Router) {
	ExpireRoutes(s, r)
	SendRoutes(s, r, true)
}

func ExpireRoutes(s *state.RouterState, r Router) {
	now := r.Now()
	for dst, entry := range s.Table.All() {
		if !entry.HasExpired(now) {
			continue
		}
		if !s.Cfg.PoisonExpired {
			s.Table.Delete(dst)
			r.Log(RouteExpired, "deleted expired route", "route", entry)
			continue
		}
		if entry.IsPoisoned() {
			continue // expired poison is only removed by link down or a newer advertisement
		}
		entry.Metric = state.INF
		s.Table.Set(entry)
		r.Log(RouteExpired, "poisoned expired route", "route", entry)
	}
}

// SendRoutes advertises the table to the given ports, or to every port that is up if none are given.
// Unless force is set, a route is only sent to a port if it differs from what was last sent there.
func SendRoutes(s *state.RouterState, r Router, force bool, ports ...state.PortId) {
	if len(ports) == 0 {
		ports = s.Ports.All()
	}
	for _, port := range ports {
		for _, route := range s.Table.All() {
			if s.Cfg.SplitHorizon && route.Port == port {
				continue // never tell our next hop about the route it gave us
			}
			if !force && !s.History.Changed(port, route) {
				continue
			}
			metric := route.Metric
			if s.Cfg.PoisonReverse && route.Port == port {
				metric = state.INF
			}
			perf.AdvertisementsSent.Add(1)
			r.SendRouteAdvertisement(port, route.Dst, metric)
			s.History.Record(port, route)
		}
	}
}

func HandleLinkUp(s *state.RouterState, r Router, port state.PortId, latency uint32) {
	s.Ports.Add(port, latency)
	r.Log(LinkUp, "link up", "port", port, "latency", latency)
	if s.Cfg.SendOnLinkUp {
		// a new neighbour knows nothing, and history for a reused port may be stale
		SendRoutes(s, r, true, port)
	}
}

func HandleLinkDown(s *state.RouterState, r Router, port state.PortId) {
	s.Ports.Remove(port)
	r.Log(LinkDown, "link down", "port", port)

	affected := make([]state.TableEntry, 0)
	for _, entry := range s.Table.All() {
		if entry.Port == port {
			affected = append(affected, entry)
		}
	}

	for _, entry := range affected {
		if !s.Cfg.PoisonOnLinkDown {
			s.Table.Delete(entry.Dst)
			r.Log(RouteDeleted, "deleted route through downed link", "route", entry)
			continue
		}
		entry.Metric = state.INF
		entry.ExpireAt = r.Now().Add(s.Cfg.RouteTTL)
		s.Table.Set(entry)
		r.Log(RoutePoisoned, "poisoned route through downed link", "route", entry)
		perf.AdvertisementsSent.Add(1)
		r.SendRouteAdvertisement(port, entry.Dst, state.INF)
	}
}
