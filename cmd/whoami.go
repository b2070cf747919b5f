package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/motemesh/motemesh/core"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print this node's id and role",
	RunE: func(cmd *cobra.Command, args []string) error {
		lcfg, err := core.ReadLocalConfig(nodeConfigPath)
		if err != nil {
			return err
		}
		role := "bridge"
		switch {
		case lcfg.Id.IsSink():
			role = "sink"
		case lcfg.Id.IsLeaf():
			role = "sensor mote"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "I am: %d (%s)\n", lcfg.Id, role)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
