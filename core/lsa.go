package core

import (
	"github.com/jellydator/ttlcache/v3"

	"github.com/motemesh/motemesh/protocol"
	"github.com/motemesh/motemesh/state"
)

// LsaEngine owns LSA admission, origination and re-flooding, plus the
// per-peer duplicate history for the reliable-unicast channel. The MAC acks
// get lost often enough that retransmitted frames reach us twice; the history
// keeps the last seqno per peer so the admission path runs at most once per
// delivery.
type LsaEngine struct {
	history *ttlcache.Cache[state.NodeId, uint8]
}

func (e *LsaEngine) Init(s *state.State) error {
	// A peer silent for a whole down window gets retracted anyway, so its
	// seqno history may expire with it.
	e.history = ttlcache.New[state.NodeId, uint8](
		ttlcache.WithCapacity[state.NodeId, uint8](uint64(state.RunicastHistory)),
		ttlcache.WithTTL[state.NodeId, uint8](state.DownPeriod),
		ttlcache.WithDisableTouchOnHit[state.NodeId, uint8](),
	)
	go e.history.Start()
	return nil
}

func (e *LsaEngine) Cleanup(s *state.State) error {
	e.history.Stop()
	return nil
}

// handleRunicast is the admission entry for every frame on the reliable
// unicast channel.
func handleRunicast(s *state.State, from state.NodeId, seqno uint8, pkt protocol.Lsa) error {
	e := Get[*LsaEngine](s)
	// We heard from the sender, so it counts toward liveness.
	s.Db.BumpKa(from)

	if item := e.history.Get(from); item != nil && item.Value() == seqno {
		s.Log.Debug("duplicate runicast suppressed", "from", from, "seqno", seqno)
		return nil
	}
	e.history.Set(from, seqno, ttlcache.DefaultTTL)

	src := state.NodeId(pkt.Src)
	dst := state.NodeId(pkt.Dst)
	if !src.Valid() || !dst.Valid() || src == dst {
		s.Log.Debug("dropping lsa with bad endpoints", "src", pkt.Src, "dst", pkt.Dst)
		return nil
	}

	if pkt.SyncReply {
		// Part of a requested database dump: apply directly, never re-flood.
		s.Db.ApplySync(src, dst, pkt.Cost)
		s.Log.Debug("applied sync-reply link", "src", src, "dst", dst, "cost", pkt.Cost)
		return nil
	}
	if pkt.Cost > 0 {
		return admitLinkUp(s, src, dst, pkt.Cost, pkt.Seq, from)
	}
	return admitLinkDown(s, src, dst, pkt.Seq, from)
}

// admitLinkUp runs the admission algorithm for a received link-up.
func admitLinkUp(s *state.State, src, dst state.NodeId, cost uint16, seq uint8, sender state.NodeId) error {
	switch s.Db.Admit(src, dst, cost, seq) {
	case state.AdmitNewLink, state.AdmitRefreshed:
		emitNewLink(s, src, dst)
		enqueueLsa(s, protocol.Lsa{Cost: cost, Src: uint8(src), Dst: uint8(dst), Seq: seq},
			forwarded(sender))
	case state.AdmitRejuvenated:
		// The sender lags behind our record; flood the stored state back.
		s.Log.Debug("correcting stale sender", "src", src, "dst", dst, "got", seq)
		enqueueLsa(s, protocol.Lsa{
			Cost: s.Db.Cost(src, dst),
			Src:  uint8(src),
			Dst:  uint8(dst),
			Seq:  s.Db.LastSeq(src),
		}, originated())
	case state.AdmitStale:
		s.Log.Debug("ignoring stale lsa", "src", src, "dst", dst, "seq", seq)
	}
	return pollOutbox(s)
}

// admitLinkDown runs the admission algorithm for a received link-down
// (cost 0).
func admitLinkDown(s *state.State, src, dst state.NodeId, seq uint8, sender state.NodeId) error {
	switch s.Db.Drop(src, dst, seq) {
	case state.AdmitRefreshed:
		emitLostLink(s, src, dst)
		enqueueLsa(s, protocol.Lsa{Src: uint8(src), Dst: uint8(dst), Seq: seq}, forwarded(sender))
	case state.AdmitRejuvenated:
		s.Log.Debug("correcting stale sender", "src", src, "dst", dst, "got", seq)
		enqueueLsa(s, protocol.Lsa{
			Cost: s.Db.Cost(src, dst),
			Src:  uint8(src),
			Dst:  uint8(dst),
			Seq:  s.Db.LastSeq(src),
		}, originated())
	case state.AdmitStale:
		s.Log.Debug("ignoring stale link-down", "src", src, "dst", dst, "seq", seq)
	}
	return pollOutbox(s)
}

// originateLinkUp applies the role rules for a self-originated link and, when
// the link is admissible, bumps the local sequence number and floods it.
func originateLinkUp(s *state.State, dst state.NodeId, cost uint16) error {
	src := s.Self()
	switch {
	case src == state.SinkId:
		// The sink never originates outbound links.
		return nil
	case dst == state.SinkId:
		// Any node adjacent to the sink records the uplink.
	case src.IsBridge() && dst.IsBridge():
		// Bridge pairs are duplex; the reverse direction arrives through the
		// peer's own advertisement.
	case src.IsLeaf() && dst.IsBridge():
		// Leaves record their uplink into the relay tier.
	default:
		// Bridge→leaf stays one-way, leaf↔leaf never forms.
		return nil
	}
	s.Seqno = state.NextSeqno(s.Seqno)
	s.Db.SetCost(src, dst, cost)
	emitNewLink(s, src, dst)
	enqueueLsa(s, protocol.Lsa{Cost: cost, Src: uint8(src), Dst: uint8(dst), Seq: s.Seqno},
		originated())
	return pollOutbox(s)
}

// originateLinkDown retracts both directions of a locally observed failure
// toward peer, advertising each with the (already bumped) local sequence
// number. The dead peer's own sequence record rewinds to ResetSeqno so its
// first advertisements after a reboot are admitted again.
func originateLinkDown(s *state.State, peer state.NodeId) error {
	self := s.Self()
	seq := s.Seqno
	if s.Db.Live(self, peer) {
		s.Db.SetCost(self, peer, 0)
		emitLostLink(s, self, peer)
		enqueueLsa(s, protocol.Lsa{Src: uint8(self), Dst: uint8(peer), Seq: seq}, originated())
	}
	if s.Db.Live(peer, self) {
		s.Db.SetCost(peer, self, 0)
		emitLostLink(s, peer, self)
		enqueueLsa(s, protocol.Lsa{Src: uint8(peer), Dst: uint8(self), Seq: seq}, originated())
	}
	s.Db.SetLastSeq(self, seq)
	s.Db.SetLastSeq(peer, state.ResetSeqno)
	return pollOutbox(s)
}

type floodMode struct {
	forward   bool
	sender    state.NodeId
	syncReply bool
	dst       state.NodeId
}

func originated() floodMode {
	return floodMode{}
}

func forwarded(sender state.NodeId) floodMode {
	return floodMode{forward: true, sender: sender}
}

func syncReplyTo(dst state.NodeId) floodMode {
	return floodMode{syncReply: true, dst: dst}
}

// enqueueLsa stamps the randomized pre-backoff deadline and appends the entry
// to the outbound ring. A full ring drops the advertisement; the periodic
// beacon/down machinery regenerates lost state on the next tick.
func enqueueLsa(s *state.State, pkt protocol.Lsa, mode floodMode) {
	pkt.SyncReply = mode.syncReply
	e := state.Outbound{
		Packet:    pkt,
		Deadline:  s.Now().Add(state.PreBackoff(s.Self(), s.Rand)),
		Forward:   mode.forward,
		SyncReply: mode.syncReply,
		Dst:       mode.dst,
		Sender:    mode.sender,
	}
	if !s.Outbox.Enqueue(e) {
		s.Log.Error("send queue full, dropping lsa",
			"src", pkt.Src, "dst", pkt.Dst, "seq", pkt.Seq)
	}
}
