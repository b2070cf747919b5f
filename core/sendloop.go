package core

import (
	"github.com/motemesh/motemesh/state"
)

// SendLoop drains the outbound queue as a single-item pipeline: at most one
// entry is pending at any time. A dequeued entry whose pre-backoff deadline
// lies in the future arms one shared timer; when it fires (or the deadline is
// already past) the entry is committed to the radio, unless the reliable
// unicast channel is busy, in which case the entry is re-enqueued with a
// fresh backoff.
type SendLoop struct {
	pending *state.Outbound
}

func (l *SendLoop) Init(s *state.State) error {
	return nil
}

func (l *SendLoop) Cleanup(s *state.State) error {
	l.pending = nil
	return nil
}

// pollOutbox is kicked after every enqueue and after every transmission.
func pollOutbox(s *state.State) error {
	l := Get[*SendLoop](s)
	if l.pending != nil {
		return nil
	}
	e, ok := s.Outbox.Dequeue()
	if !ok {
		return nil
	}
	l.pending = &e
	if d := e.Deadline.Sub(s.Now()); d > 0 {
		s.ScheduleTask(fireSend, d)
		return nil
	}
	return fireSend(s)
}

func fireSend(s *state.State) error {
	l := Get[*SendLoop](s)
	if l.pending == nil {
		return pollOutbox(s)
	}
	e := *l.pending
	l.pending = nil

	if s.Radio.IsTransmitting() {
		s.Log.Debug("runicast busy, re-enqueueing lsa",
			"src", e.Packet.Src, "dst", e.Packet.Dst)
		e.Deadline = s.Now().Add(state.PreBackoff(s.Self(), s.Rand))
		if !s.Outbox.Enqueue(e) {
			s.Log.Error("send queue full, dropping lsa",
				"src", e.Packet.Src, "dst", e.Packet.Dst)
		}
		return pollOutbox(s)
	}

	payload := e.Packet.Encode()
	if e.SyncReply {
		s.Log.Debug("sending sync-reply lsa", "to", e.Dst,
			"src", e.Packet.Src, "dst", e.Packet.Dst)
		if err := s.Radio.Runicast(uint8(e.Dst), payload, state.RunicastMaxRetx); err != nil {
			s.Log.Warn("runicast failed", "to", e.Dst, "error", err)
		}
	} else {
		for _, target := range floodTargets(s, e) {
			s.Log.Debug("sending lsa", "to", target,
				"src", e.Packet.Src, "dst", e.Packet.Dst, "forward", e.Forward)
			if err := s.Radio.Runicast(uint8(target), payload, state.RunicastMaxRetx); err != nil {
				s.Log.Warn("runicast failed", "to", target, "error", err)
			}
		}
	}
	return pollOutbox(s)
}

// floodTargets applies the flooding policy to a drained entry. Originated
// advertisements go to every live out-neighbour, except that leaf-sourced
// link-ups are only pushed to the link's own endpoint (leaf-sourced
// retractions go to every live out-neighbour). Controlled floods go to
// every live out-neighbour except the link endpoints and the runicast peer
// the advertisement arrived from.
func floodTargets(s *state.State, e state.Outbound) []state.NodeId {
	self := s.Self()
	src := state.NodeId(e.Packet.Src)
	dst := state.NodeId(e.Packet.Dst)
	var out []state.NodeId
	for i := 0; i < state.TotalNodes; i++ {
		id := state.IdAt(i)
		if id == self || !s.Db.Live(self, id) {
			continue
		}
		if e.Forward {
			if id == src || id == dst || id == e.Sender {
				continue
			}
		} else if src.IsLeaf() && e.Packet.Cost > 0 && id != dst {
			// A leaf's own link-up concerns exactly one bridge; retractions
			// about a dead leaf still have to reach the whole mesh.
			continue
		}
		out = append(out, id)
	}
	return out
}
