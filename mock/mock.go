// Package mock provides an in-memory radio network: every joined node gets a
// radio.Radio whose frames are delivered to its link neighbours with
// configurable RSSI, loss and duplication. Used by the simulator and the
// tests; no real radio ever backs it.
package mock

import (
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/motemesh/motemesh/protocol"
	"github.com/motemesh/motemesh/radio"
)

// Link is the quality of one radio adjacency.
type Link struct {
	Rssi int
	// Loss is the per-frame drop probability in [0, 1).
	Loss float64
	// Duplicate makes every reliable unicast arrive twice with the same
	// seqno, imitating a lost ack followed by a retransmit.
	Duplicate bool
}

// DefaultRssi is used when a link is connected with a zero Rssi.
const DefaultRssi = -40

type edge struct{ from, to uint8 }

type Network struct {
	mu     sync.Mutex
	rand   *rand.Rand
	radios map[uint8]*Radio
	links  map[edge]Link
	// Airtime is how long a reliable unicast keeps the channel busy.
	Airtime time.Duration
}

func NewNetwork(seed uint64) *Network {
	return &Network{
		rand:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		radios:  make(map[uint8]*Radio),
		links:   make(map[edge]Link),
		Airtime: time.Millisecond,
	}
}

func (n *Network) Join(id uint8) *Radio {
	n.mu.Lock()
	defer n.mu.Unlock()
	r := &Radio{net: n, id: id, seqno: make(map[uint8]uint8)}
	n.radios[id] = r
	return r
}

// Connect establishes a symmetric adjacency.
func (n *Network) Connect(a, b uint8, l Link) {
	if l.Rssi == 0 {
		l.Rssi = DefaultRssi
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.links[edge{a, b}] = l
	n.links[edge{b, a}] = l
}

// Disconnect tears the adjacency down in both directions.
func (n *Network) Disconnect(a, b uint8) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.links, edge{a, b})
	delete(n.links, edge{b, a})
}

func (n *Network) drop(l Link) bool {
	return l.Loss > 0 && n.rand.Float64() < l.Loss
}

// Radio is one node's port into the network.
type Radio struct {
	net    *Network
	id     uint8
	cb     radio.Callbacks
	seqno  map[uint8]uint8
	closed atomic.Bool
	// pending counts queued reliable unicasts; txMu serializes them so only
	// one occupies the air at a time.
	pending atomic.Int32
	txMu    sync.Mutex
}

func (r *Radio) Attach(cb radio.Callbacks) {
	r.net.mu.Lock()
	defer r.net.mu.Unlock()
	r.cb = cb
}

func (r *Radio) deliver(to *Radio, in radio.Inbound) {
	r.net.mu.Lock()
	cb := to.cb
	r.net.mu.Unlock()
	if cb.Receive == nil || to.closed.Load() {
		return
	}
	go cb.Receive(in)
}

// Broadcast reaches every connected peer, subject to per-link loss.
func (r *Radio) Broadcast(payload []byte) error {
	if r.closed.Load() {
		return errors.New("mock: radio closed")
	}
	r.net.mu.Lock()
	type hop struct {
		peer *Radio
		link Link
	}
	var hops []hop
	for id, peer := range r.net.radios {
		if l, ok := r.net.links[edge{r.id, id}]; ok {
			if !r.net.drop(l) {
				hops = append(hops, hop{peer, l})
			}
		}
	}
	r.net.mu.Unlock()
	for _, h := range hops {
		r.deliver(h.peer, radio.Inbound{
			Channel: protocol.BroadcastChannel,
			From:    r.id,
			Rssi:    h.link.Rssi,
			Payload: payload,
		})
	}
	return nil
}

// Unicast is one-shot: a lossy link silently eats the frame.
func (r *Radio) Unicast(dst uint8, payload []byte) error {
	if r.closed.Load() {
		return errors.New("mock: radio closed")
	}
	r.net.mu.Lock()
	peer := r.net.radios[dst]
	l, linked := r.net.links[edge{r.id, dst}]
	dropped := linked && r.net.drop(l)
	r.net.mu.Unlock()
	if peer == nil || !linked || dropped {
		return nil
	}
	r.deliver(peer, radio.Inbound{
		Channel: protocol.UnicastChannel,
		From:    r.id,
		Rssi:    l.Rssi,
		Payload: payload,
	})
	return nil
}

// Runicast keeps the channel busy for the configured airtime, delivers with
// a per-destination seqno (twice on duplicating links), then reports the
// send. Loss consumes retransmits; a frame that exhausts them vanishes.
func (r *Radio) Runicast(dst uint8, payload []byte, maxRetx uint8) error {
	if r.closed.Load() {
		return errors.New("mock: radio closed")
	}
	r.net.mu.Lock()
	peer := r.net.radios[dst]
	l, linked := r.net.links[edge{r.id, dst}]
	r.seqno[dst]++
	seq := r.seqno[dst]
	retx := uint8(0)
	delivered := false
	if linked {
		for try := uint8(0); try <= maxRetx; try++ {
			retx = try
			if !r.net.drop(l) {
				delivered = true
				break
			}
		}
	}
	r.net.mu.Unlock()

	r.pending.Add(1)
	go func() {
		r.txMu.Lock()
		defer r.txMu.Unlock()
		if r.net.Airtime > 0 {
			time.Sleep(r.net.Airtime)
		}
		if delivered && peer != nil {
			in := radio.Inbound{
				Channel: protocol.RunicastChannel,
				From:    r.id,
				Rssi:    l.Rssi,
				Seqno:   seq,
				Payload: payload,
			}
			r.deliver(peer, in)
			if l.Duplicate {
				r.deliver(peer, in)
			}
		}
		r.pending.Add(-1)
		r.net.mu.Lock()
		cb := r.cb
		r.net.mu.Unlock()
		if delivered && cb.Sent != nil {
			cb.Sent(dst, retx)
		}
	}()
	return nil
}

func (r *Radio) IsTransmitting() bool {
	return r.pending.Load() > 0
}

func (r *Radio) Close() error {
	r.closed.Store(true)
	return nil
}
