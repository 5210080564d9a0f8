package core

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/encodeous/dvsim/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddStaticRoute(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 3)

	require.NoError(t, AddStaticRoute(s, h, "h", 1))
	route, ok := s.Table.Get("h")
	require.True(t, ok)
	assert.Equal(t, state.TableEntry{Dst: "h", Port: 1, Metric: 3, ExpireAt: state.Forever}, route)
	assert.True(t, route.IsStatic())

	// static routes survive any number of timers
	for range 100 {
		h.Advance(time.Hour)
		HandleTimer(s, h)
	}
	after, ok := s.Table.Get("h")
	require.True(t, ok)
	assert.Equal(t, route, after)
}

func TestAddStaticRoute_LinkNotUp(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 3)

	err := AddStaticRoute(s, h, "h", 2)
	assert.ErrorIs(t, err, state.ErrLinkNotUp)
	assert.False(t, s.Table.Has("h"))
}

func TestHandleDataPacket(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	HandleLinkUp(s, h, 2, 1)
	h.Advert(t, s, "a", 4, 2)
	h.GetActions()

	pkt := state.NewDataPacket("x", "a", []byte("hello"))
	HandleDataPacket(s, h, pkt, 1)
	a := h.GetActions()
	require.Len(t, a, 1)
	a.AssertContains(t, "SEND", state.PortId(2), pkt)
}

func TestHandleDataPacket_NoRoute(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	h.GetActions()

	HandleDataPacket(s, h, state.NewDataPacket("x", "nowhere", nil), 1)
	assert.Contains(t, h.GetLogs(), NoRouteToDestination)
	assert.Empty(t, h.GetActions())
}

func TestHandleDataPacket_Poisoned(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	HandleLinkUp(s, h, 2, 1)
	h.Advert(t, s, "a", state.INF, 2)
	h.GetActions()
	h.GetLogs()

	HandleDataPacket(s, h, state.NewDataPacket("x", "a", nil), 1)
	assert.Contains(t, h.GetLogs(), UnreachableDestination)
	assert.Empty(t, h.GetActions())
}

func TestAdvertisement_NewRoute(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 2)

	h.Advert(t, s, "a", 5, 1)
	route, ok := s.Table.Get("a")
	require.True(t, ok)
	assert.Equal(t, state.TableEntry{Dst: "a", Port: 1, Metric: 7, ExpireAt: epoch.Add(state.RouteTTL)}, route)
	// receiving an advertisement never sends anything
	assert.Empty(t, h.GetActions())
}

func TestAdvertisement_UnknownPort(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 2)

	err := HandleRouteAdvertisement(s, h, "a", 5, 7)
	assert.ErrorIs(t, err, state.ErrUnknownPort)
	assert.False(t, s.Table.Has("a"))
}

func TestAdvertisement_Saturates(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 5)

	h.Advert(t, s, "a", state.INF-1, 1)
	route, ok := s.Table.Get("a")
	require.True(t, ok)
	assert.Equal(t, state.INF, route.Metric)
	assert.True(t, route.IsPoisoned())
	assert.False(t, route.IsStatic())
}

func TestAdvertisement_BetterRoute(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	HandleLinkUp(s, h, 2, 1)

	h.Advert(t, s, "a", 10, 1)
	h.Advert(t, s, "a", 12, 2)
	route, _ := s.Table.Get("a")
	assert.Equal(t, state.PortId(1), route.Port, "worse route from another port should be ignored")
	assert.Equal(t, uint32(11), route.Metric)

	h.Advert(t, s, "a", 3, 2)
	route, _ = s.Table.Get("a")
	assert.Equal(t, state.PortId(2), route.Port)
	assert.Equal(t, uint32(4), route.Metric)
}

func TestAdvertisement_TieBeforeAndAfterExpiry(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 5)
	HandleLinkUp(s, h, 2, 5)

	h.Advert(t, s, "d", 5, 1)
	orig, _ := s.Table.Get("d")

	// an equal route through another port does not replace a live one
	h.Advance(state.RouteTTL - time.Second)
	h.Advert(t, s, "d", 5, 2)
	route, _ := s.Table.Get("d")
	assert.Equal(t, orig, route)

	// at exactly the expiry time the route is still live
	h.now = orig.ExpireAt
	h.Advert(t, s, "d", 5, 2)
	route, _ = s.Table.Get("d")
	assert.Equal(t, orig, route)

	h.Advance(time.Second)
	h.Advert(t, s, "d", 5, 2)
	route, _ = s.Table.Get("d")
	assert.Equal(t, state.PortId(2), route.Port)
	assert.Equal(t, uint32(10), route.Metric)
	assert.Equal(t, h.Now().Add(state.RouteTTL), route.ExpireAt)
}

func TestAdvertisement_SamePortOverride(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)

	h.Advert(t, s, "d", 4, 1)
	h.Advance(time.Second)
	h.Advert(t, s, "d", 49, 1)
	route, _ := s.Table.Get("d")
	assert.Equal(t, state.TableEntry{Dst: "d", Port: 1, Metric: 50, ExpireAt: h.Now().Add(state.RouteTTL)}, route)
}

func TestAdvertisement_RefreshExtendsExpiry(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)

	h.Advert(t, s, "d", 4, 1)
	h.Advance(state.RouteTTL / 2)
	h.Advert(t, s, "d", 4, 1)
	route, _ := s.Table.Get("d")
	assert.Equal(t, h.Now().Add(state.RouteTTL), route.ExpireAt)
}

func TestAdvertisement_PoisonOverrides(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	HandleLinkUp(s, h, 2, 1)

	h.Advert(t, s, "d", 1, 1)
	h.Advert(t, s, "d", state.INF, 2)
	route, _ := s.Table.Get("d")
	assert.Equal(t, state.TableEntry{Dst: "d", Port: 2, Metric: state.INF, ExpireAt: state.Forever}, route)

	// poison even overrides static routes
	require.NoError(t, AddStaticRoute(s, h, "h", 1))
	h.Advert(t, s, "h", state.INF+7, 2)
	route, _ = s.Table.Get("h")
	assert.Equal(t, state.TableEntry{Dst: "h", Port: 2, Metric: state.INF, ExpireAt: state.Forever}, route)

	// a real route replaces the poison
	h.Advert(t, s, "d", 3, 1)
	route, _ = s.Table.Get("d")
	assert.Equal(t, uint32(4), route.Metric)
	assert.Equal(t, state.PortId(1), route.Port)
}

func TestSendRoutes_SplitHorizon(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{SplitHorizon: true})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	HandleLinkUp(s, h, 2, 2)
	h.Advert(t, s, "a", 3, 1)
	h.Advert(t, s, "b", 3, 2)
	h.GetActions()

	SendRoutes(s, h, true)
	assert.Equal(t, []string{"1 b 5", "2 a 4"}, h.GetActions().Adverts())
}

func TestSendRoutes_PoisonReverse(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{PoisonReverse: true})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	HandleLinkUp(s, h, 2, 2)
	h.Advert(t, s, "a", 3, 1)
	h.Advert(t, s, "b", 3, 2)
	h.GetActions()

	SendRoutes(s, h, true)
	assert.Equal(t, []string{"1 a 100", "1 b 5", "2 a 4", "2 b 100"}, h.GetActions().Adverts())
}

func TestSendRoutes_NoPolicy(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	HandleLinkUp(s, h, 2, 2)
	h.Advert(t, s, "a", 3, 1)
	h.GetActions()

	SendRoutes(s, h, true)
	assert.Equal(t, []string{"1 a 4", "2 a 4"}, h.GetActions().Adverts())
}

func TestSendRoutes_SinglePort(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	HandleLinkUp(s, h, 2, 2)
	h.Advert(t, s, "a", 3, 1)
	h.GetActions()

	SendRoutes(s, h, true, 2)
	assert.Equal(t, []string{"2 a 4"}, h.GetActions().Adverts())
}

func TestSendRoutes_Incremental(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	HandleLinkUp(s, h, 2, 1)
	h.Advert(t, s, "a", 3, 1)
	h.Advert(t, s, "b", 3, 2)
	h.GetActions()

	SendRoutes(s, h, false)
	assert.Len(t, h.GetActions().Adverts(), 4)

	// nothing changed, nothing is sent
	SendRoutes(s, h, false)
	assert.Empty(t, h.GetActions())

	// only the changed route is sent again
	h.Advert(t, s, "b", 1, 2)
	SendRoutes(s, h, false)
	assert.Equal(t, []string{"1 b 2", "2 b 2"}, h.GetActions().Adverts())

	// a refresh changes the expiry, so it is sent again
	h.Advance(time.Second)
	h.Advert(t, s, "a", 3, 1)
	SendRoutes(s, h, false)
	assert.Equal(t, []string{"1 a 4", "2 a 4"}, h.GetActions().Adverts())

	// forced sends ignore the history
	SendRoutes(s, h, true)
	assert.Len(t, h.GetActions().Adverts(), 4)
}

func TestSendRoutes_RecordsHistory(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{SplitHorizon: true})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	HandleLinkUp(s, h, 2, 1)
	h.Advert(t, s, "a", 3, 1)

	SendRoutes(s, h, true)
	route, _ := s.Table.Get("a")
	last, ok := s.History.Last("a", 2)
	require.True(t, ok)
	assert.Equal(t, route, last)
	// skipped by split horizon, so never recorded
	_, ok = s.History.Last("a", 1)
	assert.False(t, ok)
}

func TestExpireRoutes_Delete(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	require.NoError(t, AddStaticRoute(s, h, "h", 1))
	h.Advert(t, s, "a", 3, 1)
	h.Advance(time.Second)
	h.Advert(t, s, "b", 3, 1)

	h.Advance(state.RouteTTL)
	ExpireRoutes(s, h)
	assert.False(t, s.Table.Has("a"))
	assert.True(t, s.Table.Has("b"))
	assert.True(t, s.Table.Has("h"))

	h.Advance(time.Second)
	ExpireRoutes(s, h)
	assert.False(t, s.Table.Has("b"))
	assert.True(t, s.Table.Has("h"))
	assert.Empty(t, h.GetActions())
}

func TestExpireRoutes_Poison(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{PoisonExpired: true})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	h.Advert(t, s, "a", 3, 1)
	orig, _ := s.Table.Get("a")

	h.Advance(state.RouteTTL + time.Second)
	ExpireRoutes(s, h)
	route, ok := s.Table.Get("a")
	require.True(t, ok)
	assert.Equal(t, state.TableEntry{Dst: "a", Port: 1, Metric: state.INF, ExpireAt: orig.ExpireAt}, route)
	assert.Contains(t, h.GetLogs(), RouteExpired)

	// already poisoned routes are left alone
	h.Advance(state.RouteTTL)
	ExpireRoutes(s, h)
	again, _ := s.Table.Get("a")
	assert.Equal(t, route, again)
	assert.NotContains(t, h.GetLogs(), RouteExpired)
}

func TestHandleTimer(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{PoisonExpired: true})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	HandleLinkUp(s, h, 2, 1)
	h.Advert(t, s, "a", 3, 1)
	h.Advance(10 * time.Second)
	h.Advert(t, s, "b", 3, 1)
	h.GetActions()

	h.Advance(state.RouteTTL - 5*time.Second)
	HandleTimer(s, h)
	assert.Equal(t, []string{"1 a 100", "1 b 4", "2 a 100", "2 b 4"}, h.GetActions().Adverts())

	// timers always send, even if nothing changed
	HandleTimer(s, h)
	assert.Len(t, h.GetActions().Adverts(), 4)
}

func TestHandleTimer_DeletesBeforeSending(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	h.Advert(t, s, "a", 3, 1)
	h.GetActions()

	h.Advance(state.RouteTTL + time.Second)
	HandleTimer(s, h)
	assert.Empty(t, h.GetActions())
	assert.Equal(t, 0, s.Table.Len())
}

func TestHandleLinkUp(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	h.Advert(t, s, "a", 3, 1)
	h.GetActions()

	HandleLinkUp(s, h, 2, 4)
	assert.True(t, s.Ports.Has(2))
	lat, err := s.Ports.Latency(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), lat)
	assert.Empty(t, h.GetActions())
}

func TestHandleLinkUp_SendOnLinkUp(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{SendOnLinkUp: true})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	h.Advert(t, s, "a", 3, 1)
	h.Advert(t, s, "b", 3, 1)
	h.GetActions()

	HandleLinkUp(s, h, 2, 4)
	assert.Equal(t, []string{"2 a 4", "2 b 4"}, h.GetActions().Adverts())

	// the neighbour is told again after the link flaps, even though nothing changed
	HandleLinkDown(s, h, 2)
	HandleLinkUp(s, h, 2, 4)
	assert.Equal(t, []string{"2 a 4", "2 b 4"}, h.GetActions().Adverts())
}

func TestHandleLinkDown_Delete(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	HandleLinkUp(s, h, 2, 1)
	require.NoError(t, AddStaticRoute(s, h, "h", 1))
	h.Advert(t, s, "a", 3, 1)
	h.Advert(t, s, "b", 3, 2)
	h.GetActions()

	HandleLinkDown(s, h, 1)
	assert.False(t, s.Ports.Has(1))
	assert.False(t, s.Table.Has("a"))
	assert.False(t, s.Table.Has("h"))
	assert.True(t, s.Table.Has("b"))
	assert.Empty(t, h.GetActions())

	// later advertisements on the downed port are errors
	assert.ErrorIs(t, HandleRouteAdvertisement(s, h, "a", 1, 1), state.ErrUnknownPort)
}

func TestHandleLinkDown_Poison(t *testing.T) {
	s := NewTestState(t, state.RouterCfg{PoisonOnLinkDown: true})
	h := NewHarness()
	HandleLinkUp(s, h, 1, 1)
	HandleLinkUp(s, h, 2, 1)
	require.NoError(t, AddStaticRoute(s, h, "h", 1))
	h.Advert(t, s, "a", 3, 1)
	h.Advert(t, s, "b", 3, 2)
	h.GetActions()

	h.Advance(time.Second)
	HandleLinkDown(s, h, 1)
	for _, dst := range []state.NodeId{"a", "h"} {
		route, ok := s.Table.Get(dst)
		require.True(t, ok)
		assert.Equal(t, state.TableEntry{Dst: dst, Port: 1, Metric: state.INF, ExpireAt: h.Now().Add(state.RouteTTL)}, route)
	}
	b, _ := s.Table.Get("b")
	assert.Equal(t, uint32(4), b.Metric)
	assert.Equal(t, []string{"1 a 100", "1 h 100"}, h.GetActions().Adverts())

	// poisoned routes are advertised on the remaining ports
	SendRoutes(s, h, false)
	a := h.GetActions()
	a.AssertContains(t, "ADVERTISE", state.PortId(2), state.NodeId("a"), state.INF)
	a.AssertContains(t, "ADVERTISE", state.PortId(2), state.NodeId("h"), state.INF)
	a.AssertNotContains(t, "ADVERTISE", state.PortId(1))
}

func TestInvalidConfiguration(t *testing.T) {
	cfg := state.RouterCfg{SplitHorizon: true, PoisonReverse: true}
	state.ExpandRouterConfig(&cfg)
	_, err := state.NewRouterState("r", cfg)
	assert.ErrorIs(t, err, state.ErrInvalidConfiguration)
}

// TestRandomEvents drives a router with random events and checks that the table stays consistent
func TestRandomEvents(t *testing.T) {
	cfgs := []state.RouterCfg{
		{},
		{SplitHorizon: true, PoisonExpired: true},
		{PoisonReverse: true, PoisonOnLinkDown: true, SendOnLinkUp: true},
		{PoisonReverse: true, PoisonExpired: true, PoisonOnLinkDown: true, SendOnLinkUp: true},
	}
	dsts := []state.NodeId{"a", "b", "c", "d"}
	for i, cfg := range cfgs {
		s := NewTestState(t, cfg)
		h := NewHarness()
		rng := rand.New(rand.NewPCG(uint64(i), 42))
		everUp := make(map[state.PortId]bool)

		for range 2000 {
			port := state.PortId(rng.IntN(4))
			switch rng.IntN(6) {
			case 0:
				HandleLinkUp(s, h, port, uint32(rng.IntN(10)+1))
				everUp[port] = true
			case 1:
				HandleLinkDown(s, h, port)
			case 2, 3:
				err := HandleRouteAdvertisement(s, h, dsts[rng.IntN(len(dsts))], uint32(rng.IntN(int(state.INF)+5)), port)
				if !s.Ports.Has(port) {
					assert.ErrorIs(t, err, state.ErrUnknownPort)
				} else {
					assert.NoError(t, err)
				}
			case 4:
				HandleTimer(s, h)
			case 5:
				h.Advance(time.Duration(rng.IntN(5000)) * time.Millisecond)
			}
			h.GetActions()
			h.GetLogs()

			for dst, route := range s.Table.All() {
				assert.Equal(t, dst, route.Dst)
				assert.True(t, everUp[route.Port], "route %s uses a port that was never up", route)
				assert.LessOrEqual(t, route.Metric, state.INF)
				if !cfg.PoisonOnLinkDown {
					assert.True(t, s.Ports.Has(route.Port), "route %s uses a downed port", route)
				}
			}
		}
	}
}
