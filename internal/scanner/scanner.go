package scanner

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/schemadrift/schemadrift/internal/models"
)

// Result is the output of scanning one file. Edges carry references the
// scanner resolved within the file; Refs carry references to declared
// names the scanner could not resolve locally. The crawler resolves
// refs against the whole graph once every file has been scanned.
type Result struct {
	Nodes []*models.Node
	Edges []*models.Edge
	Refs  []TypeRef
}

// TypeRef is an unresolved reference from a node to a declared name
type TypeRef struct {
	SourceID   string
	TargetName string
	Type       models.EdgeType
	Confidence float64
}

// Scanner extracts nodes and edges from one schema file. Output must be
// deterministic given (file bytes, file path).
type Scanner interface {
	Scan(path, relPath, fileHash string) (*Result, error)
}

// Registry dispatches scanners by file extension suffix
type Registry struct {
	byExt map[string]Scanner
}

// NewRegistry creates an empty scanner registry
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Scanner)}
}

// Register binds a scanner to the given extensions (with leading dot)
func (r *Registry) Register(s Scanner, exts ...string) {
	for _, ext := range exts {
		r.byExt[strings.ToLower(ext)] = s
	}
}

// Lookup returns the scanner for a file path, or nil when no scanner
// claims its extension
func (r *Registry) Lookup(path string) Scanner {
	return r.byExt[strings.ToLower(filepath.Ext(path))]
}

// DefaultRegistry wires the API scanner for .json/.yaml/.yml and the
// language scanner for everything else the default patterns cover
func DefaultRegistry(logger *logrus.Logger) *Registry {
	r := NewRegistry()
	r.Register(NewAPIScanner(logger), ".json", ".yaml", ".yml")
	r.Register(NewLanguageScanner(logger), ".ts", ".tsx", ".mts", ".d.ts")
	return r
}

// NodeID derives the stable node id from the file's relative path and
// the schema's declared name. The id survives crawls as long as both
// stay unchanged.
func NodeID(relPath, name string) string {
	return fmt.Sprintf("%s:%s", filepath.ToSlash(relPath), name)
}

// EdgeID derives a deterministic edge id from its endpoints and type
func EdgeID(sourceID, targetID string, edgeType models.EdgeType) string {
	return fmt.Sprintf("%s->%s:%s", sourceID, targetID, edgeType)
}

// sortNodes orders nodes by id so scanner output is stable
func sortNodes(nodes []*models.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

// sortRefs orders refs for stable output
func sortRefs(refs []TypeRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].SourceID != refs[j].SourceID {
			return refs[i].SourceID < refs[j].SourceID
		}
		if refs[i].TargetName != refs[j].TargetName {
			return refs[i].TargetName < refs[j].TargetName
		}
		return refs[i].Type < refs[j].Type
	})
}
