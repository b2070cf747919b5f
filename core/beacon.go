package core

import (
	"github.com/motemesh/motemesh/protocol"
	"github.com/motemesh/motemesh/state"
)

// Beacon is the neighbour discovery and liveness FSM: it emits periodic
// keep-alive beacons, harvests neighbours from incoming ones, and declares
// links down when a peer falls silent for a whole down window.
type Beacon struct{}

func (b *Beacon) Init(s *state.State) error {
	delay := state.InitPreBackoff(s.Rand)
	if s.Self().IsSink() {
		delay = state.SinkInitBackoff
	}
	s.ScheduleTask(initBackoffExpired, delay)
	s.ScheduleTask(getLsdbExpired, state.GetLsdbDelay())
	return nil
}

func (b *Beacon) Cleanup(s *state.State) error {
	return nil
}

// initBackoffExpired starts the node's protocol life: sequence number and age
// are reset, bridges ask the neighbourhood for LSDB ages, and the periodic
// timers are started so that their first expiry lands past the backoff.
func initBackoffExpired(s *state.State) error {
	s.Log.Info("initial pre-backoff expired", "node", s.Self())
	s.Seqno = state.ResetSeqno
	s.Db.ResetAge()
	if s.Self().IsBridge() {
		if err := sendBeacon(s, true); err != nil {
			return err
		}
	}
	s.RepeatTask(keepAliveExpired, state.KeepAlivePeriod)
	s.RepeatTask(downExpired, state.DownPeriod)
	if s.Self().IsLeaf() {
		s.RepeatTask(sensorReadExpired, state.SensorReadInterval)
	}
	return nil
}

func keepAliveExpired(s *state.State) error {
	return sendBeacon(s, false)
}

func sendBeacon(s *state.State, getLsdbReq bool) error {
	pkt := protocol.Beacon{
		GetLsdbReq: getLsdbReq,
		Neighbours: s.Db.NeighbourWire(),
		Battery:    s.Battery(),
	}
	s.Log.Debug("broadcasting beacon", "sync_request", getLsdbReq, "battery", pkt.Battery)
	if err := s.Radio.Broadcast(pkt.Encode()); err != nil {
		s.Log.Warn("broadcast failed", "error", err)
	}
	return nil
}

// downExpired scans the liveness window: any peer with a live link in either
// direction that produced zero beacons is declared down, and both link
// directions are retracted with a fresh sequence number. The window counters
// reset afterwards.
func downExpired(s *state.State) error {
	self := s.Self()
	for i := 0; i < state.TotalNodes; i++ {
		id := state.IdAt(i)
		if id == self || s.Db.KaCount(id) != 0 {
			continue
		}
		if !s.Db.Live(self, id) && !s.Db.Live(id, self) {
			continue
		}
		s.Log.Warn("peer fell silent, retracting links", "peer", id)
		s.Seqno = state.NextSeqno(s.Seqno)
		s.Db.ClearNeighbour(id)
		if err := originateLinkDown(s, id); err != nil {
			return err
		}
	}
	s.Db.ResetWindow()
	return nil
}

// handleBeacon processes one received broadcast-channel frame.
func handleBeacon(s *state.State, from state.NodeId, rssi int, pkt protocol.Beacon) error {
	if rssi < state.IgnoreRssiBelow {
		s.Log.Debug("ignoring beacon below rssi floor", "from", from, "rssi", rssi)
		return nil
	}
	self := s.Self()

	if pkt.GetLsdbReq {
		// The asker is alive and a neighbour, whatever else happens.
		s.Db.MarkNeighbour(from)
		s.Db.BumpKa(from)
		if self.Relays() {
			return sendAge(s, from)
		}
		s.Log.Debug("not answering age request, sensor mote", "from", from)
		return nil
	}

	s.Db.MarkNeighbour(from)
	if state.NodeId(pkt.Neighbours[self.Index()]) == self {
		// The sender hears us, so a usable link exists.
		senderSeesSink := state.NodeId(pkt.Neighbours[state.SinkId.Index()]) == state.SinkId
		selfSeesSink := s.Db.Live(self, state.SinkId) || s.Db.HasNeighbour(state.SinkId)
		switch {
		case selfSeesSink && senderSeesSink:
			// Both ends reach the sink in one hop; a direct link would only
			// add redundant mesh.
			s.Log.Debug("skipping link, both ends reach the sink", "peer", from)
		case !s.Db.Live(self, from):
			if err := originateLinkUp(s, from, pkt.Battery); err != nil {
				return err
			}
		default:
			// Refresh the cost to the sender's latest battery value.
			s.Db.SetCost(self, from, pkt.Battery)
		}
		if s.Db.Live(from, self) && !s.Db.Live(self, from) {
			// Keep the inbound half of a one-way relationship current too.
			s.Db.SetCost(from, self, s.Battery())
		}
	}
	s.Db.BumpKa(from)
	return nil
}
