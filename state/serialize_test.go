package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNetworkConfig(t *testing.T) {
	data := `
router:
  split_horizon: true
  route_ttl: 20s
sim:
  seed: 7
routers: [a, b, c]
hosts: [h]
links:
  - a, b
  - b, c @ 3
  - h, a
events:
  - at: 10s
    action: link-down
    a: b
    b: c
`
	cfg, err := ParseNetworkConfig([]byte(data))
	require.NoError(t, err)
	assert.True(t, cfg.Router.SplitHorizon)
	assert.Equal(t, 20*time.Second, cfg.Router.RouteTTL)
	assert.Equal(t, UpdateInterval, cfg.Router.UpdateInterval)
	assert.Equal(t, uint64(7), cfg.Sim.Seed)
	assert.Equal(t, MaxHops, cfg.Sim.MaxHops)
	assert.Equal(t, []NodeId{"a", "b", "c"}, cfg.Routers)
	require.Len(t, cfg.Events, 1)
	assert.Equal(t, EventCfg{At: 10 * time.Second, Action: ActionLinkDown, A: "b", B: "c"}, cfg.Events[0])

	links, err := cfg.GetLinks()
	require.NoError(t, err)
	assert.Len(t, links, 3)
}

func TestParseNetworkConfig_Invalid(t *testing.T) {
	data := `
router:
  split_horizon: true
  poison_reverse: true
routers: [a]
links: []
`
	_, err := ParseNetworkConfig([]byte(data))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestWriteNetworkConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.yaml")
	cfg := SampleNetwork()
	require.NoError(t, WriteNetworkConfig(path, &cfg))

	loaded, err := ReadNetworkConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Router, loaded.Router)
	assert.Equal(t, cfg.Routers, loaded.Routers)
	assert.Equal(t, cfg.Links, loaded.Links)
	assert.Equal(t, cfg.Events, loaded.Events)
}
