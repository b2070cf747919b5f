package core

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/motemesh/motemesh/mock"
	"github.com/motemesh/motemesh/state"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Full-stack smoke: sink 1, bridge 3 and leaf 2 over the in-memory radio,
// real event loops and timers compressed ~100×. The leaf's readings must
// reach the sink through the bridge.
func TestMeshSmoke(t *testing.T) {
	if testing.Short() {
		t.Skip("runs real timers")
	}
	resetTunables(t)
	ccfg := state.CentralCfg{
		TotalNodes:        3,
		KeepAliveSeconds:  1,
		DownSeconds:       4,
		SensorReadSeconds: 2,
		BackoffMillis:     10,
	}
	ccfg.ApplyTunables()

	net := mock.NewNetwork(7)
	net.Connect(1, 3, mock.Link{})
	net.Connect(2, 3, mock.Link{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collectors := make(map[state.NodeId]*lockedBuffer)
	var wg sync.WaitGroup
	for id := state.NodeId(1); id <= 3; id++ {
		col := &lockedBuffer{}
		collectors[id] = col
		r := net.Join(uint8(id))
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := Start(ccfg, state.LocalCfg{Id: id}, slog.LevelError, Options{
				Parent:    ctx,
				Radio:     r,
				Collector: col,
			})
			assert.NoError(t, err)
		}()
	}

	deadline := time.After(30 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	delivered := false
	for !delivered {
		select {
		case <-deadline:
			t.Errorf("no sensor data reached the sink; sink saw:\n%s", collectors[1].String())
			delivered = true
		case <-tick.C:
			out := collectors[1].String()
			if strings.Contains(out, fmt.Sprintf("DataType: %d", 2)) {
				assert.Contains(t, out, "PacketPath: 2 -> 3 -> 1")
				delivered = true
			}
		}
	}

	cancel()
	wg.Wait()
}
