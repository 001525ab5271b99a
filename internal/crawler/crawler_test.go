package crawler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemadrift/schemadrift/internal/graph"
	"github.com/schemadrift/schemadrift/internal/models"
	"github.com/schemadrift/schemadrift/internal/scanner"
)

type recordingSink struct {
	events []models.ProofEvent
}

func (r *recordingSink) Record(event models.ProofEvent) {
	r.events = append(r.events, event)
}

type fixture struct {
	root    string
	store   *graph.Store
	crawler *Crawler
	sink    *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	store := graph.NewStore(filepath.Join(root, ".schemadrift", "graph.json"), nil)
	c := New(store, scanner.DefaultRegistry(nil), root,
		[]string{"**/*.ts", "**/*.yaml"},
		[]string{"node_modules", ".git", ".schemadrift"},
		4, nil)
	sink := &recordingSink{}
	c.SetEventSink(sink)

	return &fixture{root: root, store: store, crawler: c, sink: sink}
}

func (f *fixture) write(t *testing.T, relPath, content string) {
	t.Helper()
	path := filepath.Join(f.root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

const baseSource = `export interface BaseEntity {
  id: string;
}
`

const userSource = `// intent: Primary account record
export interface User extends BaseEntity {
  email: string;
}
`

func TestCrawlAddsNodesAndResolvesEdges(t *testing.T) {
	f := newFixture(t)
	f.write(t, "base.ts", baseSource)
	f.write(t, "models/user.ts", userSource)

	result, err := f.crawler.Crawl(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 0, result.Modified)
	assert.Equal(t, 0, result.Removed)

	user := f.store.GetNode("models/user.ts:User")
	require.NotNil(t, user)
	assert.Equal(t, "Primary account record", user.Intent)

	edges := f.store.GetOutgoingEdges("models/user.ts:User")
	require.Len(t, edges, 1)
	assert.Equal(t, "base.ts:BaseEntity", edges[0].Target)
	assert.Equal(t, models.EdgeTypeExtends, edges[0].Type)

	// the graph was persisted
	reloaded := graph.NewStore(f.store.Path(), nil)
	reloaded.Load()
	assert.Equal(t, 2, reloaded.NodeCount())
	assert.False(t, reloaded.LastCrawl().IsZero())
}

func TestCrawlDiffModeSkipsUnchanged(t *testing.T) {
	f := newFixture(t)
	f.write(t, "base.ts", baseSource)
	f.write(t, "user.ts", userSource)

	_, err := f.crawler.Crawl(context.Background(), Options{})
	require.NoError(t, err)

	result, err := f.crawler.Crawl(context.Background(), Options{Diff: true})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 0, result.Modified)
	assert.Equal(t, 2, result.Unchanged)
}

func TestCrawlDetectsModification(t *testing.T) {
	f := newFixture(t)
	f.write(t, "base.ts", baseSource)
	f.write(t, "user.ts", userSource)

	_, err := f.crawler.Crawl(context.Background(), Options{})
	require.NoError(t, err)

	f.write(t, "user.ts", `// intent: Primary account record
export interface User extends BaseEntity {
  email: string;
  lastLoginAt?: Date;
}
`)

	result, err := f.crawler.Crawl(context.Background(), Options{Diff: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Modified)
	assert.Equal(t, 1, result.Unchanged)

	user := f.store.GetNode("user.ts:User")
	require.NotNil(t, user)
	assert.Len(t, user.Properties, 2)
}

func TestCrawlRemovesVanishedNodes(t *testing.T) {
	f := newFixture(t)
	f.write(t, "base.ts", baseSource)
	f.write(t, "user.ts", userSource)

	_, err := f.crawler.Crawl(context.Background(), Options{})
	require.NoError(t, err)
	require.NotNil(t, f.store.GetNode("base.ts:BaseEntity"))

	require.NoError(t, os.Remove(filepath.Join(f.root, "base.ts")))

	result, err := f.crawler.Crawl(context.Background(), Options{Diff: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)
	assert.Nil(t, f.store.GetNode("base.ts:BaseEntity"))

	// edges touching the removed node went with it
	for _, edge := range f.store.GetAllEdges() {
		assert.NotEqual(t, "base.ts:BaseEntity", edge.Source)
		assert.NotEqual(t, "base.ts:BaseEntity", edge.Target)
	}
}

func TestCrawlEmitsProofEvents(t *testing.T) {
	f := newFixture(t)
	f.write(t, "user.ts", userSource)

	_, err := f.crawler.Crawl(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, f.sink.events, 1)
	assert.Equal(t, models.ProofEventCreated, f.sink.events[0].EventType)
	assert.Equal(t, "user.ts:User", f.sink.events[0].NodeID)

	require.NoError(t, os.Remove(filepath.Join(f.root, "user.ts")))
	_, err = f.crawler.Crawl(context.Background(), Options{Diff: true})
	require.NoError(t, err)

	last := f.sink.events[len(f.sink.events)-1]
	assert.Equal(t, models.ProofEventDeleted, last.EventType)
}

func TestCrawlExcludesDirectories(t *testing.T) {
	f := newFixture(t)
	f.write(t, "user.ts", userSource)
	f.write(t, "node_modules/dep/index.ts", baseSource)

	result, err := f.crawler.Crawl(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Nil(t, f.store.GetNode("node_modules/dep/index.ts:BaseEntity"))
}

func TestCrawlPatternOverride(t *testing.T) {
	f := newFixture(t)
	f.write(t, "user.ts", userSource)
	f.write(t, "api.yaml", "info:\n  title: Things API\n")

	result, err := f.crawler.Crawl(context.Background(), Options{Patterns: []string{"**/*.yaml"}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	require.NotNil(t, f.store.GetNode("api.yaml:Things API"))
	assert.Nil(t, f.store.GetNode("user.ts:User"))
}

func TestCrawlMixedScanners(t *testing.T) {
	f := newFixture(t)
	f.write(t, "user.ts", userSource)
	f.write(t, "billing.yaml", `info:
  title: Billing API
paths:
  /charges:
    post:
      summary: Create a charge
`)

	result, err := f.crawler.Crawl(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Added)

	entries, err := f.store.Downstream("billing.yaml:Billing API", 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "billing.yaml:POST /charges", entries[0].NodeID)
}
