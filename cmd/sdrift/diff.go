package main

import (
	"github.com/spf13/cobra"

	"github.com/schemadrift/schemadrift/internal/differ"
	"github.com/schemadrift/schemadrift/internal/graph"
	"github.com/schemadrift/schemadrift/internal/history"
)

var diffCmd = &cobra.Command{
	Use:   "diff <old-graph> [new-graph]",
	Short: "Diff two persisted graphs and classify breaking changes",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		oldStore := graph.NewStore(args[0], logger)
		oldStore.Load()

		newPath := cfg.Graph.Path
		if len(args) == 2 {
			newPath = args[1]
		}
		newStore := graph.NewStore(newPath, logger)
		newStore.Load()

		diffs, err := differ.DiffAll(oldStore.NodeMap(), newStore.NodeMap())
		if err != nil {
			return err
		}

		formatter().CompatReport(diffs)

		if len(diffs) > 0 {
			if hist, err := history.Open(cfg.History.Path, logger); err != nil {
				logger.WithError(err).Warn("history store unavailable, diffs not recorded")
			} else {
				defer hist.Close()
				if err := hist.RecordDiffs(cmd.Context(), 0, diffs); err != nil {
					logger.WithError(err).Warn("failed to record diff history")
				}
			}
		}
		return nil
	},
}
