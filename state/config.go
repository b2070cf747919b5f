package state

import (
	"fmt"
	"time"
)

// NodeCfg is the central, per-node roster entry.
type NodeCfg struct {
	Id NodeId `yaml:"id"`
	// Battery is the baseline battery value a simulated node advertises as
	// link cost; on hardware the battery sensor overrides it.
	Battery uint16 `yaml:"battery,omitempty"`
}

// LinkCfg describes one radio adjacency for the simulator.
type LinkCfg struct {
	A    NodeId  `yaml:"a"`
	B    NodeId  `yaml:"b"`
	Rssi int     `yaml:"rssi,omitempty"`
	Loss float64 `yaml:"loss,omitempty"`
}

// CentralCfg is the network-global configuration, shared by every mote.
// Zero-valued tunables fall back to the built-in defaults.
type CentralCfg struct {
	TotalNodes int    `yaml:"total_nodes"`
	SinkId     NodeId `yaml:"sink_id,omitempty"`

	// Periods are whole seconds, matching the radio-side clock granularity;
	// the backoff unit is in milliseconds so simulations can compress time.
	KeepAliveSeconds  int   `yaml:"keep_alive_seconds,omitempty"`
	DownSeconds       int   `yaml:"down_seconds,omitempty"`
	SensorReadSeconds int   `yaml:"sensor_read_seconds,omitempty"`
	BackoffMillis     int   `yaml:"backoff_millis,omitempty"`
	Ttl               uint8 `yaml:"ttl,omitempty"`
	IgnoreRssiBelow   int   `yaml:"ignore_rssi_below,omitempty"`

	Nodes    []NodeCfg `yaml:"nodes,omitempty"`
	Topology []LinkCfg `yaml:"topology,omitempty"`
}

// LocalCfg is the node-level configuration.
type LocalCfg struct {
	Id      NodeId `yaml:"id"`
	LogPath string `yaml:"log_path,omitempty"`
	Console bool   `yaml:"console,omitempty"`
}

// ApplyTunables copies the config's non-zero overrides into the package-level
// knobs. Tunables are network-wide; every mote must run the same values.
func (c *CentralCfg) ApplyTunables() {
	if c.TotalNodes > 0 {
		TotalNodes = c.TotalNodes
	}
	if c.SinkId != 0 {
		SinkId = c.SinkId
	}
	if c.KeepAliveSeconds > 0 {
		KeepAlivePeriod = time.Duration(c.KeepAliveSeconds) * time.Second
	}
	if c.DownSeconds > 0 {
		DownPeriod = time.Duration(c.DownSeconds) * time.Second
	}
	if c.SensorReadSeconds > 0 {
		SensorReadInterval = time.Duration(c.SensorReadSeconds) * time.Second
	}
	if c.BackoffMillis > 0 {
		BackoffUnit = time.Duration(c.BackoffMillis) * time.Millisecond
	}
	if c.Ttl > 0 {
		Ttl = c.Ttl
	}
	if c.IgnoreRssiBelow != 0 {
		IgnoreRssiBelow = c.IgnoreRssiBelow
	}
}

func (c *CentralCfg) Validate() error {
	if c.TotalNodes < 1 || c.TotalNodes > 255 {
		return fmt.Errorf("total_nodes must be in [1, 255], got %d", c.TotalNodes)
	}
	sink := c.SinkId
	if sink == 0 {
		sink = 1
	}
	if int(sink) > c.TotalNodes {
		return fmt.Errorf("sink_id %d outside roster of %d", sink, c.TotalNodes)
	}
	for _, n := range c.Nodes {
		if n.Id < 1 || int(n.Id) > c.TotalNodes {
			return fmt.Errorf("node id %d outside roster of %d", n.Id, c.TotalNodes)
		}
	}
	for _, l := range c.Topology {
		if l.A < 1 || int(l.A) > c.TotalNodes || l.B < 1 || int(l.B) > c.TotalNodes {
			return fmt.Errorf("topology edge %d-%d outside roster", l.A, l.B)
		}
		if l.A == l.B {
			return fmt.Errorf("topology edge %d-%d is a self loop", l.A, l.B)
		}
	}
	return nil
}

func (c *LocalCfg) Validate(central *CentralCfg) error {
	if c.Id < 1 || int(c.Id) > central.TotalNodes {
		return fmt.Errorf("node id %d outside roster of %d", c.Id, central.TotalNodes)
	}
	return nil
}

// BatteryOf returns the configured baseline battery for a node, defaulting
// to a full 3.3 V reading in millivolts. Zero is never returned: a zero
// battery would advertise absent links.
func (c *CentralCfg) BatteryOf(id NodeId) uint16 {
	for _, n := range c.Nodes {
		if n.Id == id && n.Battery > 0 {
			return n.Battery
		}
	}
	return 3300
}
