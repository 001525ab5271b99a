package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/schemadrift/schemadrift/internal/models"
)

// Store is the in-memory dependency graph with a flat adjacency index.
// Nodes and edges are keyed by id; removing a node removes every edge
// touching it in the same operation.
type Store struct {
	mu       sync.RWMutex
	nodes    map[string]*models.Node
	edges    map[string]*models.Edge
	outgoing map[string][]string // node id -> edge ids where node is source
	incoming map[string][]string // node id -> edge ids where node is target

	version   string
	lastCrawl time.Time

	path   string
	logger *logrus.Logger
}

// NewStore creates an empty graph store persisting to path
func NewStore(path string, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{
		nodes:    make(map[string]*models.Node),
		edges:    make(map[string]*models.Edge),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		version:  "1.0",
		path:     path,
		logger:   logger,
	}
}

// ComputeFileHash returns the hex SHA-256 of the file's raw bytes
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HasNodeChanged reports whether the node is absent or its stored hash
// differs from the given one
func (s *Store) HasNodeChanged(id, hash string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return true
	}
	return node.FileHash != hash
}

// AddNode upserts a node by id
func (s *Store) AddNode(node *models.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes[node.ID] = node
}

// RemoveNode deletes a node and every edge with it as source or target.
// Removing an unknown id is a no-op.
func (s *Store) RemoveNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; !ok {
		return
	}
	delete(s.nodes, id)

	touched := make(map[string]bool)
	for _, edgeID := range s.outgoing[id] {
		touched[edgeID] = true
	}
	for _, edgeID := range s.incoming[id] {
		touched[edgeID] = true
	}
	for edgeID := range touched {
		s.removeEdgeLocked(edgeID)
	}
	delete(s.outgoing, id)
	delete(s.incoming, id)
}

// AddEdge upserts an edge by id and maintains the adjacency index
func (s *Store) AddEdge(edge *models.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.edges[edge.ID]; ok {
		s.removeEdgeLocked(edge.ID)
	}
	s.edges[edge.ID] = edge
	s.outgoing[edge.Source] = append(s.outgoing[edge.Source], edge.ID)
	s.incoming[edge.Target] = append(s.incoming[edge.Target], edge.ID)
}

// RemoveEdge deletes an edge by id
func (s *Store) RemoveEdge(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeEdgeLocked(id)
}

func (s *Store) removeEdgeLocked(id string) {
	edge, ok := s.edges[id]
	if !ok {
		return
	}
	delete(s.edges, id)
	s.outgoing[edge.Source] = removeString(s.outgoing[edge.Source], id)
	s.incoming[edge.Target] = removeString(s.incoming[edge.Target], id)
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}

// GetNode returns the node with the given id, or nil
func (s *Store) GetNode(id string) *models.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes[id]
}

// GetAllNodes returns every node, sorted by id for stable iteration
func (s *Store) GetAllNodes() []*models.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetAllEdges returns every edge, sorted by id for stable iteration
func (s *Store) GetAllEdges() []*models.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetOutgoingEdges returns edges with the given node as source
func (s *Store) GetOutgoingEdges(id string) []*models.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edgesFromIndexLocked(s.outgoing[id])
}

// GetIncomingEdges returns edges with the given node as target
func (s *Store) GetIncomingEdges(id string) []*models.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edgesFromIndexLocked(s.incoming[id])
}

func (s *Store) edgesFromIndexLocked(edgeIDs []string) []*models.Edge {
	out := make([]*models.Edge, 0, len(edgeIDs))
	for _, edgeID := range edgeIDs {
		if e, ok := s.edges[edgeID]; ok {
			out = append(out, e)
		}
	}
	return out
}

// NodeIDs returns a snapshot of the current node id set
func (s *Store) NodeIDs() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool, len(s.nodes))
	for id := range s.nodes {
		out[id] = true
	}
	return out
}

// NodeMap returns a snapshot copy of the id -> node mapping
func (s *Store) NodeMap() map[string]*models.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*models.Node, len(s.nodes))
	for id, n := range s.nodes {
		out[id] = n
	}
	return out
}

// FindNodeByName returns the first node with the given declared name,
// preferring lexicographically smaller ids for determinism
func (s *Store) FindNodeByName(name string) *models.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *models.Node
	for _, n := range s.nodes {
		if n.Name != name {
			continue
		}
		if best == nil || n.ID < best.ID {
			best = n
		}
	}
	return best
}

// NodeCount returns the number of nodes
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the number of edges
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// Version returns the graph schema version
func (s *Store) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SetVersion sets the graph schema version
func (s *Store) SetVersion(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = v
}

// LastCrawl returns the timestamp of the last completed crawl
func (s *Store) LastCrawl() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCrawl
}

// SetLastCrawl records the timestamp of a completed crawl
func (s *Store) SetLastCrawl(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCrawl = t
}
