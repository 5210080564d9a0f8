package core

import (
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/encodeous/dvsim/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(1000, 0)

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

// RouterHarness records everything a router asks of its environment, and controls its clock
type RouterHarness struct {
	actions []HarnessEvent
	now     time.Time
}

func NewHarness() *RouterHarness {
	return &RouterHarness{now: epoch}
}

func (h *RouterHarness) Send(pkt state.Packet, port state.PortId) {
	h.actions = append(h.actions, MakeEvent("SEND", port, pkt))
}

func (h *RouterHarness) SendRouteAdvertisement(port state.PortId, dst state.NodeId, metric uint32) {
	h.actions = append(h.actions, MakeEvent("ADVERTISE", port, dst, metric))
}

func (h *RouterHarness) Now() time.Time {
	return h.now
}

func (h *RouterHarness) Advance(d time.Duration) {
	h.now = h.now.Add(d)
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	x := make([]any, 0)
	x = append(x, event)
	x = append(x, desc)
	x = append(x, args...)
	h.actions = append(h.actions, MakeEvent("LOG", x...))
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

// GetActions returns and clears everything recorded since the last call, except logs
func (h *RouterHarness) GetActions() HarnessEvents {
	x := make([]HarnessEvent, 0)
	for _, action := range h.actions {
		if action.Message != "LOG" {
			x = append(x, action)
		}
	}

	h.actions = make([]HarnessEvent, 0)
	return x
}

// GetLogs returns and clears the events that were logged since the last call
func (h *RouterHarness) GetLogs() []RouterEvent {
	x := make([]RouterEvent, 0)
	rest := make([]HarnessEvent, 0)
	for _, action := range h.actions {
		if action.Message == "LOG" {
			x = append(x, action.Args[0].(RouterEvent))
		} else {
			rest = append(rest, action)
		}
	}
	h.actions = rest
	return x
}

func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message == msg {
			if len(event.Args) >= len(args) {
				match := true
				for i, arg := range args {
					if !cmp.Equal(event.Args[i], arg) {
						match = false
						break
					}
				}
				if match {
					return true
				}
			}
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}

// Adverts returns the (port, dst, metric) of every advertisement, in the order they were sent
func (e HarnessEvents) Adverts() []string {
	out := make([]string, 0)
	for _, event := range e {
		if event.Message == "ADVERTISE" {
			out = append(out, fmt.Sprintf("%v %v %v", event.Args[0], event.Args[1], event.Args[2]))
		}
	}
	return out
}

func NewTestState(t *testing.T, cfg state.RouterCfg) *state.RouterState {
	t.Helper()
	state.ExpandRouterConfig(&cfg)
	s, err := state.NewRouterState("r", cfg)
	require.NoError(t, err)
	return s
}

func (h *RouterHarness) Advert(t *testing.T, s *state.RouterState, dst state.NodeId, metric uint32, port state.PortId) {
	t.Helper()
	require.NoError(t, HandleRouteAdvertisement(s, h, dst, metric, port))
}
