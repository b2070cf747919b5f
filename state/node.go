package state

// NodeId is the 1-byte mote identifier, in [1, TotalNodes]. The role of a
// node is a pure function of its id: id 1 is the sink, even ids are sensor
// leaves, odd ids above 1 are bridges.
type NodeId uint8

func (n NodeId) Index() int {
	return int(n) - 1
}

func (n NodeId) IsSink() bool {
	return n == SinkId
}

// IsLeaf reports whether the node is a sensor mote. Leaves originate data and
// have no forwarding duty.
func (n NodeId) IsLeaf() bool {
	return n != 0 && n%2 == 0
}

func (n NodeId) IsBridge() bool {
	return n%2 != 0 && n != SinkId
}

// Relays reports whether the node participates in LSDB synchronization, i.e.
// it is a bridge or the sink.
func (n NodeId) Relays() bool {
	return n%2 != 0
}

func (n NodeId) Valid() bool {
	return n >= 1 && int(n) <= TotalNodes
}

// IdAt converts a zero-based matrix index back to a NodeId.
func IdAt(index int) NodeId {
	return NodeId(index + 1)
}
