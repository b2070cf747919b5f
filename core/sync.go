package core

import (
	"github.com/motemesh/motemesh/protocol"
	"github.com/motemesh/motemesh/state"
)

// Sync implements LSDB bootstrap: a joining bridge asks the neighbourhood
// for database ages, then pulls a full dump from the best-aged peer. Dumped
// links arrive as sync-reply LSAs addressed to the requester only and are
// applied without re-flooding.
type Sync struct {
	// ages records the LSDB age each peer reported during bootstrap.
	ages []uint16
}

func (y *Sync) Init(s *state.State) error {
	y.ages = make([]uint16, state.TotalNodes)
	return nil
}

func (y *Sync) Cleanup(s *state.State) error {
	return nil
}

// sendAge answers an age query. Nodes with nothing in their database stay
// quiet so the asker never pulls an empty dump.
func sendAge(s *state.State, dst state.NodeId) error {
	age := s.Db.Age()
	if age == 0 {
		s.Log.Debug("not reporting zero lsdb age", "to", dst)
		return nil
	}
	pkt := protocol.Datagram{
		LsdbAge: age,
		Path:    make([]uint8, state.TotalNodes),
	}
	s.Log.Debug("reporting lsdb age", "to", dst, "age", age)
	if err := s.Radio.Unicast(uint8(dst), pkt.Encode()); err != nil {
		s.Log.Warn("unicast failed", "to", dst, "error", err)
	}
	return nil
}

// getLsdbExpired fires once per boot: pick the peer that reported the
// largest age and ask it for its whole database. Nodes already adjacent to
// the sink skip the pull; their first-hand links suffice.
func getLsdbExpired(s *state.State) error {
	if s.Db.HasNeighbour(state.SinkId) {
		s.Log.Debug("adjacent to the sink, skipping database pull")
		return nil
	}
	y := Get[*Sync](s)
	best := state.NodeId(0)
	var max uint16
	for i, age := range y.ages {
		if age > max {
			max = age
			best = state.IdAt(i)
		}
	}
	if best == 0 {
		s.Log.Debug("got no age replies")
		return nil
	}
	s.Log.Info("pulling lsdb", "from", best, "age", max)
	pkt := protocol.Datagram{
		RequestLsdb: true,
		Path:        make([]uint8, state.TotalNodes),
	}
	if err := s.Radio.Unicast(uint8(best), pkt.Encode()); err != nil {
		s.Log.Warn("unicast failed", "to", best, "error", err)
	}
	return nil
}

// dumpTo enqueues one sync-reply LSA per live bridge/sink-sourced link,
// addressed to the requester.
func dumpTo(s *state.State, requester state.NodeId) error {
	count := 0
	s.Db.Dump(func(src, dst state.NodeId, cost uint16) {
		enqueueLsa(s, protocol.Lsa{
			Cost: cost,
			Src:  uint8(src),
			Dst:  uint8(dst),
			Seq:  s.Seqno,
		}, syncReplyTo(requester))
		count++
	})
	s.Log.Info("dumping lsdb", "to", requester, "links", count)
	return pollOutbox(s)
}

// handleDatagram routes unicast-channel frames: sensor data to the data
// plane, everything else through the sync exchanges.
func handleDatagram(s *state.State, from state.NodeId, pkt protocol.Datagram) error {
	// We heard from the sender, so it counts toward liveness.
	s.Db.BumpKa(from)

	if pkt.IsData {
		return handleData(s, from, pkt)
	}
	if pkt.RequestLsdb {
		return dumpTo(s, from)
	}
	if pkt.LsdbAge > 0 {
		y := Get[*Sync](s)
		y.ages[from.Index()] = pkt.LsdbAge
		s.Db.MarkNeighbour(from)
		s.Log.Debug("recorded lsdb age", "from", from, "age", pkt.LsdbAge)
	}
	return nil
}
