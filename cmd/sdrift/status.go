package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/schemadrift/schemadrift/internal/history"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show graph and crawl history status",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := openGraph()

		fmt.Printf("Graph: %s\n", store.Path())
		fmt.Printf("  nodes:      %d\n", store.NodeCount())
		fmt.Printf("  edges:      %d\n", store.EdgeCount())
		fmt.Printf("  version:    %s\n", store.Version())
		if last := store.LastCrawl(); !last.IsZero() {
			fmt.Printf("  last crawl: %s\n", last.Format(time.RFC3339))
		} else {
			fmt.Println("  last crawl: never")
		}

		hist, err := history.Open(cfg.History.Path, logger)
		if err != nil {
			logger.WithError(err).Warn("history store unavailable")
			return nil
		}
		defer hist.Close()

		record, err := hist.LatestCrawl(cmd.Context())
		if err != nil {
			return err
		}
		if record == nil {
			fmt.Println("History: empty")
			return nil
		}

		breaking, err := hist.BreakingCount(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("History:\n")
		fmt.Printf("  last crawl:     %s (%dms): %d added, %d modified, %d removed, %d unchanged\n",
			record.StartedAt.Format(time.RFC3339), record.DurationMS,
			record.Added, record.Modified, record.Removed, record.Unchanged)
		fmt.Printf("  breaking diffs: %d recorded\n", breaking)
		return nil
	},
}
