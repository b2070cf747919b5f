package core

import (
	"github.com/motemesh/motemesh/protocol"
	"github.com/motemesh/motemesh/state"
)

// DataPlane rides on top of a stable LSDB: leaves periodically read their
// sensor and push the reading sink-ward; bridges forward with TTL and loop
// avoidance; the sink terminates and reports to the collector.
type DataPlane struct{}

func (d *DataPlane) Init(s *state.State) error {
	return nil
}

func (d *DataPlane) Cleanup(s *state.State) error {
	return nil
}

// sensorReadExpired fires on leaves only.
func sensorReadExpired(s *state.State) error {
	self := s.Self()
	var value uint16
	if s.Sensor != nil {
		value = s.Sensor()
	}
	s.Log.Debug("sensor read", "value", value)
	pkt := protocol.Datagram{
		IsData:   true,
		DataType: uint8(self),
		Data:     value,
		Ttl:      state.Ttl,
		Path:     make([]uint8, state.TotalNodes),
	}
	pkt.Path[0] = uint8(self)
	return forwardData(s, pkt, 0)
}

// handleData applies the per-hop forwarding rule to a received data packet.
func handleData(s *state.State, from state.NodeId, pkt protocol.Datagram) error {
	self := s.Self()
	if self == state.SinkId {
		emitArrival(s, pkt)
		return nil
	}
	if pkt.Ttl == 0 {
		return nil
	}
	pkt.Ttl--
	if pkt.Ttl == 0 {
		s.Log.Debug("ttl expired, discarding data packet",
			"type", pkt.DataType, "data", pkt.Data)
		return nil
	}
	for i := range pkt.Path {
		if pkt.Path[i] == 0 {
			pkt.Path[i] = uint8(self)
			break
		}
	}
	return forwardData(s, pkt, from)
}

// forwardData hands the packet to the LSDB's greedy next-hop choice. Not
// optimal, but with a consistent LSDB and a connected graph a bounded TTL
// reaches the sink.
func forwardData(s *state.State, pkt protocol.Datagram, exclude state.NodeId) error {
	next, ok := s.Db.NextHopTowardSink(s.Self(), exclude)
	if !ok {
		s.Log.Debug("no next hop toward the sink, dropping data packet",
			"type", pkt.DataType, "data", pkt.Data)
		return nil
	}
	return sendData(s, next, pkt)
}

func sendData(s *state.State, dst state.NodeId, pkt protocol.Datagram) error {
	s.Log.Debug("data packet sent", "to", dst, "type", pkt.DataType, "ttl", pkt.Ttl)
	if err := s.Radio.Unicast(uint8(dst), pkt.Encode()); err != nil {
		s.Log.Warn("unicast failed", "to", dst, "error", err)
	}
	return nil
}
