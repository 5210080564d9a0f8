package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/encodeous/dvsim/state"
)

// Inspect renders the ports and routing table of a router for humans
func Inspect(s *state.RouterState, now time.Time) string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("Router %s\n", s.Id))

	sb.WriteString("Ports:\n")
	if s.Ports.Len() == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, port := range s.Ports.All() {
		lat, _ := s.Ports.Latency(port)
		sb.WriteString(fmt.Sprintf("  - %d latency %d\n", port, lat))
	}

	sb.WriteString("Route Table:\n")
	if s.Table.Len() == 0 {
		sb.WriteString("  (none)\n")
	}
	for dst, route := range s.Table.All() {
		exp := "never"
		if !route.IsStatic() {
			timeRem := route.ExpireAt.Sub(now)
			if timeRem < 0 {
				exp = fmt.Sprintf("expired %.2fs ago", -timeRem.Seconds())
			} else {
				exp = fmt.Sprintf("in %.2fs", timeRem.Seconds())
			}
		}
		sb.WriteString(fmt.Sprintf("  - %s via port %d metric %s expires %s\n", dst, route.Port, state.FormatMetric(route.Metric), exp))
	}
	sb.WriteString(fmt.Sprintf("Advertisement History: %d entries\n", s.History.Len()))
	return sb.String()
}

func (r *DVRouter) Inspect() string {
	return Inspect(r.RouterState, r.Now())
}
