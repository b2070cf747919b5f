package state

import (
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreTunables(t *testing.T) {
	total, sink := TotalNodes, SinkId
	ka, down, sensor, unit := KeepAlivePeriod, DownPeriod, SensorReadInterval, BackoffUnit
	ttl, rssi := Ttl, IgnoreRssiBelow
	t.Cleanup(func() {
		TotalNodes, SinkId = total, sink
		KeepAlivePeriod, DownPeriod, SensorReadInterval, BackoffUnit = ka, down, sensor, unit
		Ttl, IgnoreRssiBelow = ttl, rssi
	})
}

func TestCentralConfigYaml(t *testing.T) {
	doc := `
total_nodes: 5
keep_alive_seconds: 10
down_seconds: 20
backoff_millis: 100
nodes:
  - id: 2
    battery: 2900
topology:
  - a: 1
    b: 3
  - a: 2
    b: 3
    loss: 0.25
`
	var cfg CentralCfg
	require.NoError(t, yaml.Unmarshal([]byte(doc), &cfg))
	assert.Equal(t, 5, cfg.TotalNodes)
	assert.Equal(t, 10, cfg.KeepAliveSeconds)
	assert.Len(t, cfg.Topology, 2)
	assert.Equal(t, 0.25, cfg.Topology[1].Loss)
	assert.Equal(t, uint16(2900), cfg.BatteryOf(2))
	assert.Equal(t, uint16(3300), cfg.BatteryOf(4), "unlisted nodes report a full battery")
	require.NoError(t, cfg.Validate())
}

func TestApplyTunables(t *testing.T) {
	restoreTunables(t)
	cfg := CentralCfg{
		TotalNodes:       7,
		KeepAliveSeconds: 3,
		DownSeconds:      6,
		BackoffMillis:    50,
		Ttl:              9,
		IgnoreRssiBelow:  -60,
	}
	cfg.ApplyTunables()
	assert.Equal(t, 7, TotalNodes)
	assert.Equal(t, 3*time.Second, KeepAlivePeriod)
	assert.Equal(t, 6*time.Second, DownPeriod)
	assert.Equal(t, 50*time.Millisecond, BackoffUnit)
	assert.Equal(t, uint8(9), Ttl)
	assert.Equal(t, -60, IgnoreRssiBelow)
}

func TestValidateRejectsBadRosters(t *testing.T) {
	assert.Error(t, (&CentralCfg{TotalNodes: 0}).Validate())
	assert.Error(t, (&CentralCfg{TotalNodes: 300}).Validate())
	assert.Error(t, (&CentralCfg{TotalNodes: 5, SinkId: 9}).Validate())
	assert.Error(t, (&CentralCfg{TotalNodes: 5, Nodes: []NodeCfg{{Id: 8}}}).Validate())
	assert.Error(t, (&CentralCfg{TotalNodes: 5, Topology: []LinkCfg{{A: 2, B: 2}}}).Validate())

	central := &CentralCfg{TotalNodes: 5}
	require.NoError(t, central.Validate())
	assert.Error(t, (&LocalCfg{Id: 9}).Validate(central))
	assert.NoError(t, (&LocalCfg{Id: 4}).Validate(central))
}

func TestRoles(t *testing.T) {
	assert.True(t, NodeId(1).IsSink())
	assert.True(t, NodeId(1).Relays())
	assert.False(t, NodeId(1).IsBridge())
	assert.True(t, NodeId(3).IsBridge())
	assert.True(t, NodeId(3).Relays())
	assert.True(t, NodeId(8).IsLeaf())
	assert.False(t, NodeId(8).Relays())
	assert.False(t, NodeId(8).IsBridge())
}
