package core

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/motemesh/motemesh/protocol"
	"github.com/motemesh/motemesh/radio"
	"github.com/motemesh/motemesh/state"
)

// frame is one transmission captured by the recorder radio.
type frame struct {
	kind    string // broadcast, unicast, runicast
	dst     uint8
	payload []byte
}

// recorderRadio captures what the core hands to the driver instead of
// sending anything.
type recorderRadio struct {
	busy   bool
	frames []frame
}

func (r *recorderRadio) Attach(radio.Callbacks) {}

func (r *recorderRadio) Broadcast(payload []byte) error {
	r.frames = append(r.frames, frame{kind: "broadcast", payload: payload})
	return nil
}

func (r *recorderRadio) Unicast(dst uint8, payload []byte) error {
	r.frames = append(r.frames, frame{kind: "unicast", dst: dst, payload: payload})
	return nil
}

func (r *recorderRadio) Runicast(dst uint8, payload []byte, maxRetx uint8) error {
	r.frames = append(r.frames, frame{kind: "runicast", dst: dst, payload: payload})
	return nil
}

func (r *recorderRadio) IsTransmitting() bool { return r.busy }
func (r *recorderRadio) Close() error         { return nil }

// take drains the captured frames.
func (r *recorderRadio) take() []frame {
	f := r.frames
	r.frames = nil
	return f
}

func (r *recorderRadio) runicasts() []frame {
	var out []frame
	for _, f := range r.take() {
		if f.kind == "runicast" {
			out = append(out, f)
		}
	}
	return out
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func resetTunables(t *testing.T) {
	t.Helper()
	total, sink, unit := state.TotalNodes, state.SinkId, state.BackoffUnit
	ttl, reset := state.Ttl, state.ResetSeqno
	ka, down, sensor := state.KeepAlivePeriod, state.DownPeriod, state.SensorReadInterval
	t.Cleanup(func() {
		state.TotalNodes, state.SinkId, state.BackoffUnit = total, sink, unit
		state.Ttl, state.ResetSeqno = ttl, reset
		state.KeepAlivePeriod, state.DownPeriod, state.SensorReadInterval = ka, down, sensor
	})
	state.TotalNodes = 13
	state.SinkId = 1
	state.Ttl = 5
	state.ResetSeqno = 10
	// Zero backoff makes enqueued LSAs transmit synchronously on poll.
	state.BackoffUnit = 0
}

// testNode is one mote driven directly, without its event loop running:
// handlers are invoked inline and transmissions land in the recorder.
type testNode struct {
	s   *state.State
	r   *recorderRadio
	col *bytes.Buffer
	clk *fakeClock
}

func newTestNode(t *testing.T, self state.NodeId) *testNode {
	t.Helper()
	ctx, cancel := context.WithCancelCause(context.Background())
	t.Cleanup(func() { cancel(context.Canceled) })

	dispatch := make(chan func(*state.State) error, 256)
	r := &recorderRadio{}
	col := &bytes.Buffer{}
	clk := &fakeClock{now: time.Unix(1000, 0)}
	s := &state.State{
		Modules: make(map[string]state.Module),
		Db:      state.NewLsdb(),
		Outbox:  state.NewSendQueue(),
		Seqno:   state.ResetSeqno,
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: dispatch,
			CentralCfg:      state.CentralCfg{TotalNodes: state.TotalNodes},
			LocalCfg:        state.LocalCfg{Id: self},
			Log:             slog.New(slog.NewTextHandler(io.Discard, nil)),
			Radio:           r,
			Collector:       col,
			Battery:         func() uint16 { return 3000 },
			Rand:            rand.New(rand.NewPCG(1, 2)),
			Clock:           clk.Now,
		},
	}
	for _, m := range []state.Module{&LsaEngine{}, &SendLoop{}, &Sync{}, &DataPlane{}, &Console{}} {
		s.Modules[reflect.TypeOf(m).String()] = m
		require.NoError(t, m.Init(s))
	}
	t.Cleanup(func() {
		for _, m := range s.Modules {
			_ = m.Cleanup(s)
		}
	})
	return &testNode{s: s, r: r, col: col, clk: clk}
}

// beaconFrom builds a beacon as peer would send it, listing the given
// neighbours.
func beaconFrom(battery uint16, getLsdb bool, listed ...state.NodeId) protocol.Beacon {
	neigh := make([]uint8, state.TotalNodes)
	for _, id := range listed {
		neigh[id.Index()] = uint8(id)
	}
	return protocol.Beacon{GetLsdbReq: getLsdb, Neighbours: neigh, Battery: battery}
}

func decodeLsaFrame(t *testing.T, f frame) protocol.Lsa {
	t.Helper()
	pkt, err := protocol.DecodeLsa(f.payload)
	require.NoError(t, err)
	return pkt
}

func decodeDatagramFrame(t *testing.T, f frame) protocol.Datagram {
	t.Helper()
	pkt, err := protocol.DecodeDatagram(f.payload, state.TotalNodes)
	require.NoError(t, err)
	return pkt
}

// miniMesh wires several test nodes through their recorders, shuttling
// frames between handlers deterministically and stamping runicast seqnos the
// way a MAC would.
type miniMesh struct {
	t     *testing.T
	nodes map[state.NodeId]*testNode
	edges map[[2]state.NodeId]bool
	seqno map[[2]state.NodeId]uint8
}

func newMiniMesh(t *testing.T) *miniMesh {
	return &miniMesh{
		t:     t,
		nodes: make(map[state.NodeId]*testNode),
		edges: make(map[[2]state.NodeId]bool),
		seqno: make(map[[2]state.NodeId]uint8),
	}
}

func (m *miniMesh) add(id state.NodeId) *testNode {
	n := newTestNode(m.t, id)
	m.nodes[id] = n
	return n
}

func (m *miniMesh) connect(a, b state.NodeId) {
	m.edges[[2]state.NodeId{a, b}] = true
	m.edges[[2]state.NodeId{b, a}] = true
}

func (m *miniMesh) linked(a, b state.NodeId) bool {
	return m.edges[[2]state.NodeId{a, b}]
}

// pump shuttles frames until the air is quiet.
func (m *miniMesh) pump() {
	for moved := true; moved; {
		moved = false
		for id, n := range m.nodes {
			for _, f := range n.r.take() {
				moved = true
				m.deliver(id, f)
			}
		}
	}
}

func (m *miniMesh) deliver(from state.NodeId, f frame) {
	switch f.kind {
	case "broadcast":
		for id, n := range m.nodes {
			if id != from && m.linked(from, id) {
				require.NoError(m.t, handleInbound(n.s, radio.Inbound{
					Channel: protocol.BroadcastChannel,
					From:    uint8(from),
					Rssi:    -40,
					Payload: f.payload,
				}))
			}
		}
	case "unicast":
		dst := state.NodeId(f.dst)
		if n, ok := m.nodes[dst]; ok && m.linked(from, dst) {
			require.NoError(m.t, handleInbound(n.s, radio.Inbound{
				Channel: protocol.UnicastChannel,
				From:    uint8(from),
				Rssi:    -40,
				Payload: f.payload,
			}))
		}
	case "runicast":
		dst := state.NodeId(f.dst)
		key := [2]state.NodeId{from, dst}
		m.seqno[key]++
		if n, ok := m.nodes[dst]; ok && m.linked(from, dst) {
			require.NoError(m.t, handleInbound(n.s, radio.Inbound{
				Channel: protocol.RunicastChannel,
				From:    uint8(from),
				Rssi:    -40,
				Seqno:   m.seqno[key],
				Payload: f.payload,
			}))
		}
	}
}
