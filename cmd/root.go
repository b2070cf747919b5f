package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	centralConfigPath string
	nodeConfigPath    string
	verbose           bool
)

var rootCmd = &cobra.Command{
	Use:   "motemesh",
	Short: "Tiered wireless sensor mesh routing stack",
	Long: `Motemesh runs the routing core of a tiered wireless sensor mesh:
one sink, bridge relays and leaf sensor motes exchanging link state over a
lossy radio, with sensor readings delivered to the sink over self-healing
multi-hop paths.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&centralConfigPath, "central-config", "c", "mesh.yaml", "network-global config")
	rootCmd.PersistentFlags().StringVarP(&nodeConfigPath, "node-config", "n", "node.yaml", "node-specific config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
