package core

import (
	"github.com/motemesh/motemesh/protocol"
	"github.com/motemesh/motemesh/state"
)

const (
	protocolBroadcast = protocol.BroadcastChannel
	protocolUnicast   = protocol.UnicastChannel
	protocolRunicast  = protocol.RunicastChannel
)

// The variable-length wire arrays are sized by the roster.

func decodeBeacon(b []byte) (protocol.Beacon, error) {
	return protocol.DecodeBeacon(b, state.TotalNodes)
}

func decodeLsa(b []byte) (protocol.Lsa, error) {
	return protocol.DecodeLsa(b)
}

func decodeDatagram(b []byte) (protocol.Datagram, error) {
	return protocol.DecodeDatagram(b, state.TotalNodes)
}
