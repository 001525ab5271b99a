package crawler

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/schemadrift/schemadrift/internal/graph"
	"github.com/schemadrift/schemadrift/internal/models"
	"github.com/schemadrift/schemadrift/internal/scanner"
)

// EventSink receives lifecycle proof events as the crawler reconciles
// scanner output against the graph
type EventSink interface {
	Record(event models.ProofEvent)
}

// Options controls a single crawl
type Options struct {
	// Diff counts nodes whose stored hash matches the current file hash as
	// unchanged and leaves them as stored; every file is still scanned
	Diff bool
	// Patterns overrides the configured glob pattern set
	Patterns []string
}

// Crawler orchestrates scanners across a file pattern set and reconciles
// their output against the graph store
type Crawler struct {
	store       *graph.Store
	registry    *scanner.Registry
	logger      *logrus.Logger
	root        string
	patterns    []string
	exclude     []string
	concurrency int
	events      EventSink
}

// New creates a crawler over root using the given scanner registry
func New(store *graph.Store, registry *scanner.Registry, root string, patterns, exclude []string, concurrency int, logger *logrus.Logger) *Crawler {
	if logger == nil {
		logger = logrus.New()
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Crawler{
		store:       store,
		registry:    registry,
		logger:      logger,
		root:        root,
		patterns:    patterns,
		exclude:     exclude,
		concurrency: concurrency,
	}
}

// SetEventSink attaches a sink for created/modified/deleted events
func (c *Crawler) SetEventSink(sink EventSink) {
	c.events = sink
}

// scannedFile pairs one resolved file with its scan output
type scannedFile struct {
	relPath string
	hash    string
	result  *scanner.Result
}

// Crawl runs one full crawl: resolve files, hash and scan them, then
// reconcile nodes and edges against the pre-crawl snapshot. The graph
// is persisted before the result is returned.
func (c *Crawler) Crawl(ctx context.Context, opts Options) (*models.CrawlResult, error) {
	start := time.Now()

	files, err := c.resolveFiles(opts.Patterns)
	if err != nil {
		return nil, err
	}
	c.logger.WithField("files", len(files)).Debug("resolved crawl file set")

	scanned, err := c.scanFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	existing := c.store.NodeIDs()
	processed := make(map[string]bool)
	result := &models.CrawlResult{}
	var refs []scanner.TypeRef
	var edges []*models.Edge

	for _, file := range scanned {
		for _, node := range file.result.Nodes {
			processed[node.ID] = true

			if opts.Diff && !c.store.HasNodeChanged(node.ID, node.FileHash) {
				result.Unchanged++
				continue
			}

			if existing[node.ID] {
				result.Modified++
				c.emit(node, models.ProofEventModified)
			} else {
				result.Added++
				c.emit(node, models.ProofEventCreated)
			}
			c.store.AddNode(node)
		}
		edges = append(edges, file.result.Edges...)
		refs = append(refs, file.result.Refs...)
	}

	// nodes no scanner produced this crawl are gone
	removedIDs := make([]string, 0)
	for id := range existing {
		if !processed[id] {
			removedIDs = append(removedIDs, id)
		}
	}
	sort.Strings(removedIDs)
	for _, id := range removedIDs {
		node := c.store.GetNode(id)
		c.store.RemoveNode(id)
		result.Removed++
		if node != nil {
			c.emit(node, models.ProofEventDeleted)
		}
	}

	for _, edge := range edges {
		c.store.AddEdge(edge)
	}
	c.resolveRefs(refs)

	c.store.SetLastCrawl(time.Now().UTC())
	if err := c.store.Save(); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	c.logger.WithFields(logrus.Fields{
		"added":     result.Added,
		"modified":  result.Modified,
		"removed":   result.Removed,
		"unchanged": result.Unchanged,
		"duration":  result.Duration,
	}).Info("crawl complete")

	return result, nil
}

// resolveFiles globs the pattern set under root, applying exclusions
func (c *Crawler) resolveFiles(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = c.patterns
	}

	root := c.root
	if root == "" {
		root = "."
	}
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			c.logger.WithError(err).Warnf("invalid pattern %q, skipping", pattern)
			continue
		}
		for _, match := range matches {
			if seen[match] || c.excluded(match) {
				continue
			}
			info, err := fs.Stat(fsys, match)
			if err != nil || info.IsDir() {
				continue
			}
			seen[match] = true
			files = append(files, match)
		}
	}

	sort.Strings(files)
	return files, nil
}

func (c *Crawler) excluded(relPath string) bool {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	for _, part := range parts {
		for _, excluded := range c.exclude {
			if part == excluded {
				return true
			}
		}
	}
	return false
}

// scanFiles hashes and scans the resolved files with bounded concurrency.
// The returned slice preserves the sorted file order, so reconciliation
// stays deterministic regardless of scheduling.
func (c *Crawler) scanFiles(ctx context.Context, files []string) ([]scannedFile, error) {
	results := make([]*scannedFile, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, relPath := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			fullPath := filepath.Join(c.root, filepath.FromSlash(relPath))
			sc := c.registry.Lookup(relPath)
			if sc == nil {
				return nil
			}

			hash, err := graph.ComputeFileHash(fullPath)
			if err != nil {
				return err
			}

			scanResult, err := sc.Scan(fullPath, relPath, hash)
			if err != nil {
				return err
			}

			results[i] = &scannedFile{relPath: relPath, hash: hash, result: scanResult}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]scannedFile, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// resolveRefs turns name references into edges against the post-crawl
// node set. References to names the graph does not declare are dropped,
// keeping every stored edge anchored at both ends.
func (c *Crawler) resolveRefs(refs []scanner.TypeRef) {
	for _, ref := range refs {
		target := c.store.FindNodeByName(ref.TargetName)
		if target == nil {
			c.logger.WithFields(logrus.Fields{
				"source": ref.SourceID,
				"target": ref.TargetName,
			}).Debug("dropping unresolved reference")
			continue
		}
		if target.ID == ref.SourceID {
			continue
		}
		if c.store.GetNode(ref.SourceID) == nil {
			continue
		}
		c.store.AddEdge(&models.Edge{
			ID:         scanner.EdgeID(ref.SourceID, target.ID, ref.Type),
			Source:     ref.SourceID,
			Target:     target.ID,
			Type:       ref.Type,
			Confidence: ref.Confidence,
		})
	}
}

// emit records a proof event when a sink is attached
func (c *Crawler) emit(node *models.Node, eventType models.ProofEventType) {
	if c.events == nil {
		return
	}
	c.events.Record(models.ProofEvent{
		NodeID:    node.ID,
		EventType: eventType,
		Hash:      node.FileHash,
		Metadata: map[string]any{
			"name": node.Name,
			"type": string(node.Type),
			"file": node.FilePath,
		},
		Timestamp: time.Now().UTC(),
	})
}
