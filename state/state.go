package state

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/motemesh/motemesh/radio"
)

// Module is one protocol subsystem hooked into the node lifecycle.
type Module interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// State is the per-node context: the LSDB, the outbound queue and the local
// advertisement sequence number, owned exclusively by the event loop.
// Access must be done only on the loop goroutine.
type State struct {
	*Env
	Modules map[string]Module

	Db     *Lsdb
	Outbox *SendQueue
	// Seqno is the local lollipop counter attached to every advertisement
	// this node originates.
	Seqno uint8
}

// Env is the node environment; it can be read from any goroutine.
type Env struct {
	DispatchChannel chan<- func(s *State) error
	CentralCfg
	LocalCfg
	Context context.Context
	Cancel  context.CancelCauseFunc
	Log     *slog.Logger

	Radio radio.Radio
	// Collector receives the textual event protocol consumed by the
	// visualization front-end; nil discards.
	Collector io.Writer
	// Battery yields the current battery/freshness value advertised as link
	// cost.
	Battery func() uint16
	// Sensor yields the converted reading for this mote's assigned sensor.
	Sensor func() uint16
	// ConsoleIn, when set, is scanned for serial console commands.
	ConsoleIn  io.Reader
	ConsoleOut io.Writer

	Rand  *rand.Rand
	Clock func() time.Time
}

func (e *Env) Self() NodeId {
	return e.LocalCfg.Id
}

func (e *Env) Now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}
