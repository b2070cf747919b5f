package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path"
	"reflect"
	"syscall"
	"time"

	"github.com/encodeous/tint"
	"github.com/goccy/go-yaml"
	slogmulti "github.com/samber/slog-multi"

	"github.com/motemesh/motemesh/radio"
	"github.com/motemesh/motemesh/sensors"
	"github.com/motemesh/motemesh/state"
)

// Options carries the collaborators injected into a node: the radio driver,
// the collector stream, the sensor and battery sources, and deterministic
// rand/clock overrides for tests and simulations.
type Options struct {
	Radio      radio.Radio
	Collector  io.Writer
	ConsoleIn  io.Reader
	ConsoleOut io.Writer
	Battery    func() uint16
	Sensor     func() uint16
	Rand       *rand.Rand
	Clock      func() time.Time
	// Parent, when non-nil, bounds the node lifetime; used by the simulator
	// to stop a whole fleet at once.
	Parent context.Context
	// InitState, when non-nil, receives the node state before the loop
	// starts, so the caller can inspect the node.
	InitState **state.State
	// Signals installs SIGINT/SIGTERM handling; only the run command wants
	// this.
	Signals bool
}

func ReadCentralConfig(path string) (*state.CentralCfg, error) {
	var cfg state.CentralCfg
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func ReadLocalConfig(path string) (*state.LocalCfg, error) {
	var cfg state.LocalCfg
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Start brings up one mote and blocks in its event loop until the context is
// cancelled. All protocol work happens on that single loop goroutine; timers
// and radio callbacks are marshalled onto it. The caller applies the config's
// tunables exactly once before starting any node: they are process-global,
// and a simulator runs many nodes at once.
func Start(ccfg state.CentralCfg, lcfg state.LocalCfg, logLevel slog.Level, opts Options) error {
	if err := ccfg.Validate(); err != nil {
		return err
	}
	if err := lcfg.Validate(&ccfg); err != nil {
		return err
	}

	parent := opts.Parent
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)
	dispatch := make(chan func(s *state.State) error, 128)

	handlers := []slog.Handler{
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        logLevel,
			AddSource:    false,
			CustomPrefix: fmt.Sprintf("%d", lcfg.Id),
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}),
	}
	if lcfg.LogPath != "" {
		if err := os.MkdirAll(path.Dir(lcfg.LogPath), 0700); err != nil {
			return err
		}
		f, err := os.OpenFile(lcfg.LogPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0700)
		if err != nil {
			return err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel}))
	}
	logger := slog.New(slogmulti.Fanout(handlers...))

	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Battery == nil {
		baseline := ccfg.BatteryOf(lcfg.Id)
		opts.Battery = func() uint16 { return baseline }
	}
	if opts.Sensor == nil && lcfg.Id.IsLeaf() {
		opts.Sensor = sensors.Simulated(uint8(lcfg.Id), opts.Rand)
	}

	s := state.State{
		Modules: make(map[string]state.Module),
		Db:      state.NewLsdb(),
		Outbox:  state.NewSendQueue(),
		Seqno:   state.ResetSeqno,
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: dispatch,
			CentralCfg:      ccfg,
			LocalCfg:        lcfg,
			Log:             logger,
			Radio:           opts.Radio,
			Collector:       opts.Collector,
			Battery:         opts.Battery,
			Sensor:          opts.Sensor,
			ConsoleIn:       opts.ConsoleIn,
			ConsoleOut:      opts.ConsoleOut,
			Rand:            opts.Rand,
			Clock:           opts.Clock,
		},
	}
	if opts.InitState != nil {
		*opts.InitState = &s
	}

	s.Log.Info("init modules")
	if err := initModules(&s); err != nil {
		return err
	}

	attachRadio(&s)

	if opts.Signals {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			select {
			case <-c:
				s.Cancel(errors.New("received shutdown signal"))
			case <-ctx.Done():
			}
		}()
	}

	return MainLoop(&s, dispatch)
}

func initModules(s *state.State) error {
	modules := []state.Module{
		&LsaEngine{},
		&SendLoop{},
		&Beacon{},
		&Sync{},
		&DataPlane{},
		&Console{},
	}
	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
		if err := module.Init(s); err != nil {
			return err
		}
	}
	return nil
}

// MainLoop is the node's single-threaded cooperative scheduler: handlers run
// to completion, one at a time.
func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) error {
	s.Log.Debug("started main loop")
	for {
		select {
		case fun := <-dispatch:
			if fun == nil {
				continue
			}
			if err := fun(s); err != nil {
				s.Log.Error("error occurred during dispatch", "error", err)
				s.Cancel(err)
			}
		case <-s.Context.Done():
			s.Log.Info("stopped main loop", "reason", context.Cause(s.Context).Error())
			cleanup(s)
			return nil
		}
	}
}

func cleanup(s *state.State) {
	s.Log.Debug("cleaning up modules")
	for moduleName, module := range s.Modules {
		if err := module.Cleanup(s); err != nil {
			s.Log.Error("error occurred during cleanup", "module", moduleName, "error", err)
		}
	}
	if s.Radio != nil {
		if err := s.Radio.Close(); err != nil {
			s.Log.Error("error closing radio", "error", err)
		}
	}
}

// attachRadio marshals driver callbacks onto the event loop and fans each
// frame out to its channel handler. Frames on unknown channels and frames
// that fail to decode are dropped; the link is lossy by design.
func attachRadio(s *state.State) {
	if s.Radio == nil {
		return
	}
	s.Radio.Attach(radio.Callbacks{
		Receive: func(in radio.Inbound) {
			s.Dispatch(func(s *state.State) error {
				return handleInbound(s, in)
			})
		},
		Sent: func(dst uint8, retx uint8) {
			s.Dispatch(func(s *state.State) error {
				s.Log.Debug("runicast delivered", "to", dst, "retransmissions", retx)
				return nil
			})
		},
	})
}

func handleInbound(s *state.State, in radio.Inbound) error {
	from := state.NodeId(in.From)
	if !from.Valid() {
		s.Log.Debug("dropping frame from unknown peer", "from", in.From)
		return nil
	}
	switch in.Channel {
	case protocolBroadcast:
		pkt, err := decodeBeacon(in.Payload)
		if err != nil {
			s.Log.Debug("dropping malformed beacon", "from", from, "error", err)
			return nil
		}
		return handleBeacon(s, from, in.Rssi, pkt)
	case protocolRunicast:
		pkt, err := decodeLsa(in.Payload)
		if err != nil {
			s.Log.Debug("dropping malformed lsa", "from", from, "error", err)
			return nil
		}
		return handleRunicast(s, from, in.Seqno, pkt)
	case protocolUnicast:
		pkt, err := decodeDatagram(in.Payload)
		if err != nil {
			s.Log.Debug("dropping malformed datagram", "from", from, "error", err)
			return nil
		}
		return handleDatagram(s, from, pkt)
	default:
		s.Log.Debug("dropping frame on unknown channel", "channel", in.Channel)
		return nil
	}
}
