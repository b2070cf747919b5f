// Package radio names the interface the routing core consumes from the
// radio/MAC stack. The core is oblivious to MAC and RDC details; it only
// assumes broadcast and unicast are lossy and unordered, and that reliable
// unicast is at-least-once with link-layer acks and bounded retransmits.
package radio

import "github.com/motemesh/motemesh/protocol"

// Inbound is one received frame. From is the link-layer peer that put the
// frame on the air, which for forwarded advertisements is NOT the advertised
// link source. Seqno is only meaningful on the reliable-unicast channel.
type Inbound struct {
	Channel protocol.Channel
	From    uint8
	Rssi    int
	Seqno   uint8
	Payload []byte
}

// Callbacks are invoked by the driver. Drivers may call them from any
// goroutine; the core marshals them onto its event loop.
type Callbacks struct {
	Receive func(Inbound)
	// Sent fires after a reliable unicast completes, with the number of
	// retransmissions it took.
	Sent func(dst uint8, retx uint8)
}

type Radio interface {
	Attach(Callbacks)
	// Broadcast is fire-and-forget on the broadcast channel.
	Broadcast(payload []byte) error
	// Unicast is one-shot, no retry, no ack.
	Unicast(dst uint8, payload []byte) error
	// Runicast sends with link-layer acks and up to maxRetx retransmits.
	Runicast(dst uint8, payload []byte, maxRetx uint8) error
	// IsTransmitting reports whether a reliable unicast is in flight.
	IsTransmitting() bool
	Close() error
}
