package core

import (
	"github.com/encodeous/dvsim/state"
)

// AddMetric adds two metrics, saturating at state.INF so that an unreachable route stays unreachable.
func AddMetric(a, b uint32) uint32 {
	if a >= state.INF || b >= state.INF {
		return state.INF
	}
	return uint32(min(uint64(state.INF), uint64(a)+uint64(b)))
}
