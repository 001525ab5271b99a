package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/schemadrift/schemadrift/internal/crawler"
	"github.com/schemadrift/schemadrift/internal/history"
	"github.com/schemadrift/schemadrift/internal/proof"
	"github.com/schemadrift/schemadrift/internal/scanner"
)

var (
	crawlDiff     bool
	crawlPatterns []string
	crawlFinalize bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Scan schema files and reconcile them against the dependency graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := openGraph()
		registry := scanner.DefaultRegistry(logger)

		c := crawler.New(store, registry,
			cfg.Crawl.Root, cfg.Crawl.Patterns, cfg.Crawl.Exclude,
			cfg.Crawl.Concurrency, logger)

		manager := proof.NewManager(time.Duration(cfg.Proof.IntervalMS)*time.Millisecond, logger)
		c.SetEventSink(manager)

		startedAt := time.Now()
		result, err := c.Crawl(cmd.Context(), crawler.Options{
			Diff:     crawlDiff,
			Patterns: crawlPatterns,
		})
		if err != nil {
			return err
		}

		formatter().CrawlSummary(result)

		if hist, err := history.Open(cfg.History.Path, logger); err != nil {
			logger.WithError(err).Warn("history store unavailable, crawl not recorded")
		} else {
			defer hist.Close()
			if _, err := hist.RecordCrawl(cmd.Context(), startedAt, result); err != nil {
				logger.WithError(err).Warn("failed to record crawl history")
			}
		}

		if !crawlFinalize {
			return nil
		}

		epoch := manager.FinalizeEpoch()
		if epoch == nil {
			fmt.Println("No change events to seal")
			return nil
		}

		backend, err := proof.NewBackend(cfg.Proof.Backend, logger)
		if err != nil {
			return err
		}
		ref, err := backend.SubmitEpoch(cmd.Context(), epoch)
		if err != nil {
			return err
		}

		archive, err := proof.OpenArchive(cfg.Proof.ArchivePath)
		if err != nil {
			return err
		}
		defer archive.Close()
		if err := archive.SaveEpoch(epoch); err != nil {
			return err
		}
		if err := archive.SaveRef(epoch.EpochID, ref); err != nil {
			return err
		}

		formatter().EpochSummary(epoch, ref)
		return nil
	},
}

func init() {
	crawlCmd.Flags().BoolVar(&crawlDiff, "diff", false, "count nodes whose file hash is unchanged as unchanged instead of rewriting them")
	crawlCmd.Flags().StringArrayVar(&crawlPatterns, "pattern", nil, "glob pattern (repeatable, overrides config)")
	crawlCmd.Flags().BoolVar(&crawlFinalize, "finalize", false, "seal change events into an epoch after the crawl")
}
