package main

import (
	"github.com/spf13/cobra"

	"github.com/schemadrift/schemadrift/internal/drift"
	"github.com/schemadrift/schemadrift/internal/graph"
)

var driftAgainst string

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Score intent drift between a previous graph and the current one",
	RunE: func(cmd *cobra.Command, args []string) error {
		oldStore := graph.NewStore(driftAgainst, logger)
		oldStore.Load()

		newStore := openGraph()

		drifts := drift.DetectAll(oldStore.NodeMap(), newStore.NodeMap())
		formatter().DriftReport(drifts)
		return nil
	},
}

func init() {
	driftCmd.Flags().StringVar(&driftAgainst, "against", "", "previous graph file to compare intents against")
	driftCmd.MarkFlagRequired("against")
}
