package main

import (
	"github.com/spf13/cobra"

	"github.com/schemadrift/schemadrift/internal/graph"
)

var impactDepth int

var impactCmd = &cobra.Command{
	Use:   "impact <node-id>",
	Short: "List downstream schemas reachable from a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := openGraph()

		entries, err := store.Downstream(args[0], impactDepth)
		if err != nil {
			return err
		}
		formatter().ImpactReport(args[0], entries)
		return nil
	},
}

func init() {
	impactCmd.Flags().IntVar(&impactDepth, "depth", graph.DefaultMaxDepth, "maximum hop depth")
}
