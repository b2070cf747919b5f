package state

import (
	"time"

	"github.com/motemesh/motemesh/protocol"
)

// Outbound is one pending LSA transmission. Forward records the routing
// intent at enqueue time: false means we originated the advertisement and
// flood it to eligible neighbours, true means it was received and is
// controlled-flooded (excluding the link endpoints and Sender, the runicast
// peer we got it from). SyncReply entries bypass flooding and go to Dst only.
type Outbound struct {
	Packet    protocol.Lsa
	Deadline  time.Time
	Forward   bool
	SyncReply bool
	Dst       NodeId
	Sender    NodeId
}

// SendQueue is a fixed-capacity ring of pending LSA transmissions, drained
// by the send loop one entry at a time. Capacity BufferSize; one slot is kept
// open to distinguish full from empty.
type SendQueue struct {
	entries []Outbound
	read    int
	write   int
}

func NewSendQueue() *SendQueue {
	return &SendQueue{entries: make([]Outbound, BufferSize+1)}
}

// Enqueue appends an entry and reports false when the ring is full. A full
// queue drops the entry; the periodic protocol machinery regenerates lost
// advertisements on the next tick.
func (q *SendQueue) Enqueue(e Outbound) bool {
	next := q.write + 1
	if next >= len(q.entries) {
		next = 0
	}
	if next == q.read {
		return false
	}
	q.entries[q.write] = e
	q.write = next
	return true
}

func (q *SendQueue) Dequeue() (Outbound, bool) {
	if q.read == q.write {
		return Outbound{}, false
	}
	e := q.entries[q.read]
	q.read++
	if q.read >= len(q.entries) {
		q.read = 0
	}
	return e, true
}

func (q *SendQueue) Len() int {
	if q.write >= q.read {
		return q.write - q.read
	}
	return len(q.entries) - q.read + q.write
}
