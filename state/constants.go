package state

import (
	"math/rand/v2"
	"time"
)

var (
	// TotalNodes is the roster size N. Ids are well-known in [1, N].
	TotalNodes = 13
	// SinkId is the terminal for all data packets.
	SinkId = NodeId(1)

	KeepAlivePeriod    = time.Second * 100
	DownPeriod         = time.Second * 200
	SensorReadInterval = time.Second * 105

	// SinkInitBackoff replaces the jittered boot window on the sink, which
	// has nothing to desynchronize against.
	SinkInitBackoff = time.Second

	Ttl              = uint8(5)
	IgnoreRssiBelow  = -70
	RunicastMaxRetx  = uint8(2)
	RunicastHistory  = 2
	BufferSize       = 15

	// ResetSeqno anchors the lollipop sequence space: values in
	// [0, ResetSeqno] form the linear prefix and are always admitted,
	// (ResetSeqno, 255] is the circular region.
	ResetSeqno = uint8(10)

	// BackoffUnit scales every backoff window; lowered in simulations.
	BackoffUnit = time.Second
)

// GetLsdbDelay is the one-shot bootstrap delay before pulling a full LSDB
// from the best-aged neighbour.
func GetLsdbDelay() time.Duration {
	return time.Duration(TotalNodes*2+5) * BackoffUnit
}

// PreBackoff returns the randomized pre-backoff applied to every enqueued
// LSA: (self + rand mod 2N) units. Spreads floods in time so neighbouring
// nodes do not burst at once.
func PreBackoff(self NodeId, r *rand.Rand) time.Duration {
	return time.Duration(int(self)+r.IntN(TotalNodes*2)) * BackoffUnit
}

// InitPreBackoff returns the boot jitter for non-sink nodes:
// (10 + rand mod 2N) units.
func InitPreBackoff(r *rand.Rand) time.Duration {
	return time.Duration(10+r.IntN(TotalNodes*2)) * BackoffUnit
}
