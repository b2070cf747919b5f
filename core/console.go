package core

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/motemesh/motemesh/protocol"
	"github.com/motemesh/motemesh/state"
)

// Console serves the serial-line side channels: inbound maintenance commands
// and the outbound textual event protocol consumed by the visualization
// front-end.
type Console struct{}

func (c *Console) Init(s *state.State) error {
	if s.ConsoleIn == nil {
		return nil
	}
	go func() {
		scanner := bufio.NewScanner(s.ConsoleIn)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			s.Dispatch(func(s *state.State) error {
				return handleConsoleLine(s, line)
			})
		}
	}()
	return nil
}

func (c *Console) Cleanup(s *state.State) error {
	return nil
}

func handleConsoleLine(s *state.State, line string) error {
	out := s.ConsoleOut
	if out == nil {
		return nil
	}
	switch line {
	case "print.lsdb":
		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{"SRC", "DST", "COST", "SEQ"})
		s.Db.Links(func(src, dst state.NodeId, cost uint16) {
			table.Append([]string{
				strconv.Itoa(int(src)),
				strconv.Itoa(int(dst)),
				strconv.Itoa(int(cost)),
				strconv.Itoa(int(s.Db.LastSeq(src))),
			})
		})
		table.Render()
		fmt.Fprintf(out, "Age: %d\n", s.Db.Age())
	case "print.n":
		fmt.Fprintln(out, "Neighbour (# keep alives)")
		for _, n := range s.Db.Neighbours() {
			fmt.Fprintf(out, "%d (%d) | ", n, s.Db.KaCount(n))
		}
		fmt.Fprintln(out)
	case "whoami":
		fmt.Fprintf(out, "I am: %d\n", s.Self())
	default:
		fmt.Fprintf(out, "unknown command: %s\n", line)
	}
	return nil
}

// Collector event protocol: one line per event, parsed by the desktop
// front-end. The formats are fixed.

func emit(s *state.State, format string, args ...any) {
	if s.Collector == nil {
		return
	}
	fmt.Fprintf(s.Collector, format+"\n", args...)
}

func emitNewLink(s *state.State, src, dst state.NodeId) {
	emit(s, "NewLink: %d -> %d", src, dst)
}

func emitLostLink(s *state.State, src, dst state.NodeId) {
	emit(s, "LostLink: %d -> %d", src, dst)
}

// emitArrival reports a data packet terminating at the sink: the reading,
// then the recorded path with the sink appended.
func emitArrival(s *state.State, pkt protocol.Datagram) {
	emit(s, "DataType: %d Data: %d", pkt.DataType, pkt.Data)
	var sb strings.Builder
	sb.WriteString("PacketPath:")
	for _, hop := range pkt.Path {
		if hop == 0 {
			break
		}
		fmt.Fprintf(&sb, " %d ->", hop)
	}
	fmt.Fprintf(&sb, " %d", s.Self())
	emit(s, "%s", sb.String())
}
