package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/motemesh/motemesh/core"
	"github.com/motemesh/motemesh/mock"
	"github.com/motemesh/motemesh/state"
)

var (
	simDuration time.Duration
	simSpeedup  int
	simSeed     uint64
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Simulate a whole mesh in-process",
	Long: `Run every node of the roster over an in-memory radio network and
stream the collector events of all nodes to stdout. Protocol timers are
divided by the speedup factor so a full keep-alive/down cycle fits in a
coffee break.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ccfg, err := core.ReadCentralConfig(centralConfigPath)
		if err != nil {
			ccfg = defaultSimConfig()
		}
		if len(ccfg.Topology) == 0 {
			ccfg.Topology = defaultSimConfig().Topology
		}
		applySpeedup(ccfg, simSpeedup)
		ccfg.ApplyTunables()

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}

		ctx, cancel := context.WithTimeout(context.Background(), simDuration)
		defer cancel()

		net := mock.NewNetwork(simSeed)
		for _, l := range ccfg.Topology {
			net.Connect(uint8(l.A), uint8(l.B), mock.Link{Rssi: l.Rssi, Loss: l.Loss})
		}

		var wg sync.WaitGroup
		out := &lockedWriter{w: cmd.OutOrStdout()}
		for id := 1; id <= ccfg.TotalNodes; id++ {
			node := state.NodeId(id)
			r := net.Join(uint8(id))
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := core.Start(*ccfg, state.LocalCfg{Id: node}, level, core.Options{
					Parent:    ctx,
					Radio:     r,
					Collector: &eventWriter{node: node, out: out},
				})
				if err != nil {
					fmt.Fprintf(out, "node %d failed: %v\n", node, err)
				}
			}()
		}
		wg.Wait()
		return nil
	},
}

func init() {
	simCmd.Flags().DurationVarP(&simDuration, "duration", "d", time.Minute*2, "how long to run the mesh")
	simCmd.Flags().IntVar(&simSpeedup, "speedup", 20, "divide every protocol timer by this factor")
	simCmd.Flags().Uint64Var(&simSeed, "seed", 1, "radio loss/jitter seed")
	rootCmd.AddCommand(simCmd)
}

// defaultSimConfig is the stock 13-node tiered layout: a bridge backbone
// 1-3-5-7-9-11-13 with each leaf attached to its nearest bridge.
func defaultSimConfig() *state.CentralCfg {
	cfg := &state.CentralCfg{TotalNodes: 13}
	backbone := []state.NodeId{1, 3, 5, 7, 9, 11, 13}
	for i := 0; i+1 < len(backbone); i++ {
		cfg.Topology = append(cfg.Topology, state.LinkCfg{A: backbone[i], B: backbone[i+1]})
	}
	leafHomes := map[state.NodeId]state.NodeId{2: 3, 4: 3, 6: 5, 8: 7, 10: 9, 12: 11}
	for leaf, bridge := range leafHomes {
		cfg.Topology = append(cfg.Topology, state.LinkCfg{A: leaf, B: bridge})
	}
	return cfg
}

func applySpeedup(cfg *state.CentralCfg, factor int) {
	if factor <= 1 {
		return
	}
	cfg.KeepAliveSeconds = max(int(state.KeepAlivePeriod/time.Second)/factor, 1)
	cfg.DownSeconds = max(int(state.DownPeriod/time.Second)/factor, 2)
	cfg.SensorReadSeconds = max(int(state.SensorReadInterval/time.Second)/factor, 1)
	cfg.BackoffMillis = max(int(state.BackoffUnit/time.Millisecond)/factor, 10)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// eventWriter prefixes each collector line with its node and colours it by
// event kind.
type eventWriter struct {
	node state.NodeId
	out  io.Writer
}

func (w *eventWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		paint := fmt.Sprintf
		switch {
		case strings.HasPrefix(line, "NewLink:"):
			paint = color.New(color.FgGreen).Sprintf
		case strings.HasPrefix(line, "LostLink:"):
			paint = color.New(color.FgRed).Sprintf
		case strings.HasPrefix(line, "DataType:"), strings.HasPrefix(line, "PacketPath:"):
			paint = color.New(color.FgCyan).Sprintf
		}
		fmt.Fprintf(w.out, "[%2d] %s\n", w.node, paint("%s", line))
	}
	return len(p), nil
}
