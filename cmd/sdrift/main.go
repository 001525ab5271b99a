package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/schemadrift/schemadrift/internal/config"
	"github.com/schemadrift/schemadrift/internal/graph"
	"github.com/schemadrift/schemadrift/internal/logging"
	"github.com/schemadrift/schemadrift/internal/output"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile   string
	graphPath string
	verbose   bool
	noColor   bool
	logger    *logrus.Logger
	cfg       *config.Config
)

func main() {
	defer logging.Close()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sdrift",
	Short: "SchemaDrift - incremental schema dependency graph and drift analysis",
	Long: `SchemaDrift maintains an incremental dependency graph over a corpus of
schema definitions, classifies structural changes as breaking or
compatible, scores intent drift, and seals change events into
Merkle-rooted epochs for audit.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}
		if graphPath != "" {
			cfg.Graph.Path = graphPath
		}

		if cfg.Log.File != "" {
			if err := logging.Initialize(logging.Config{
				Level:      logging.INFO,
				OutputFile: cfg.Log.File,
				JSONFormat: true,
			}); err != nil {
				logger.WithError(err).Warn("Failed to initialize file logging")
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .schemadrift/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&graphPath, "graph", "", "graph file (default: .schemadrift/graph.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.SetVersionTemplate(`SchemaDrift {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(driftCmd)
	rootCmd.AddCommand(impactCmd)
	rootCmd.AddCommand(provenanceCmd)
	rootCmd.AddCommand(epochCmd)
	rootCmd.AddCommand(statusCmd)
}

// openGraph loads the configured graph from disk
func openGraph() *graph.Store {
	store := graph.NewStore(cfg.Graph.Path, logger)
	store.Load()
	if cfg.Graph.Version != "" {
		store.SetVersion(cfg.Graph.Version)
	}
	return store
}

// formatter builds the stdout report formatter
func formatter() *output.Formatter {
	return output.NewFormatter(os.Stdout, !noColor)
}
