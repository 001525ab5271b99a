package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schemadrift/schemadrift/internal/errors"
	"github.com/schemadrift/schemadrift/internal/models"
)

// graphFile is the on-disk shape of the graph. Unknown top-level fields
// in an existing file are ignored on load.
type graphFile struct {
	Nodes     map[string]*models.Node `json:"nodes"`
	Edges     map[string]*models.Edge `json:"edges"`
	Version   string                  `json:"version"`
	LastCrawl time.Time               `json:"lastCrawl"`
}

// Save writes the graph to its configured path as pretty-printed JSON.
// The write goes through a temp file and rename, so a failed save leaves
// the previous file intact.
func (s *Store) Save() error {
	s.mu.RLock()
	file := graphFile{
		Nodes:     s.nodes,
		Edges:     s.edges,
		Version:   s.version,
		LastCrawl: s.lastCrawl,
	}
	path := s.path
	s.mu.RUnlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return errors.FileSystemErrorf(err, "failed to marshal graph")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.FileSystemErrorf(err, "failed to create graph directory %s", dir)
	}

	tmp := fmt.Sprintf("%s.tmp", path)
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.FileSystemErrorf(err, "failed to write graph file %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.FileSystemErrorf(err, "failed to replace graph file %s", path)
	}

	return nil
}

// Load reads the graph from its configured path. A missing or corrupt
// file degrades to an empty graph with a logged warning; load never
// fails the caller.
func (s *Store) Load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).Warnf("failed to read graph file %s, starting empty", s.path)
		}
		return
	}

	var file graphFile
	if err := json.Unmarshal(data, &file); err != nil {
		s.logger.WithError(err).Warnf("graph file %s is corrupt, starting empty", s.path)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = make(map[string]*models.Node, len(file.Nodes))
	s.edges = make(map[string]*models.Edge, len(file.Edges))
	s.outgoing = make(map[string][]string)
	s.incoming = make(map[string][]string)

	for id, node := range file.Nodes {
		if node == nil {
			continue
		}
		node.ID = id
		s.nodes[id] = node
	}
	for id, edge := range file.Edges {
		if edge == nil {
			continue
		}
		edge.ID = id
		// an edge whose endpoint vanished is dropped rather than resurrected
		if _, ok := s.nodes[edge.Source]; !ok {
			continue
		}
		if _, ok := s.nodes[edge.Target]; !ok {
			continue
		}
		s.edges[id] = edge
		s.outgoing[edge.Source] = append(s.outgoing[edge.Source], id)
		s.incoming[edge.Target] = append(s.incoming[edge.Target], id)
	}

	if file.Version != "" {
		s.version = file.Version
	}
	s.lastCrawl = file.LastCrawl
}

// Path returns the persistence path
func (s *Store) Path() string {
	return s.path
}
