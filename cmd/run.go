package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/motemesh/motemesh/core"
	"github.com/motemesh/motemesh/radio"
)

var runLogPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one mote",
	Long: `Run one mote with the serial console on stdin and collector events
on stdout. The node runs on a stub radio (no transceiver driver is wired in),
so it sends and receives nothing over the air and is only reachable through
the console.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ccfg, err := core.ReadCentralConfig(centralConfigPath)
		if err != nil {
			return err
		}
		lcfg, err := core.ReadLocalConfig(nodeConfigPath)
		if err != nil {
			return err
		}
		if runLogPath != "" {
			lcfg.LogPath = runLogPath
		}
		ccfg.ApplyTunables()
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		return core.Start(*ccfg, *lcfg, level, core.Options{
			Radio:      radio.Stub{},
			Collector:  os.Stdout,
			ConsoleIn:  os.Stdin,
			ConsoleOut: os.Stdout,
			Signals:    true,
		})
	},
}

func init() {
	runCmd.Flags().StringVarP(&runLogPath, "log", "l", "", "also log to this file")
	rootCmd.AddCommand(runCmd)
}
