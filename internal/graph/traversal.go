package graph

import (
	"github.com/schemadrift/schemadrift/internal/errors"
	"github.com/schemadrift/schemadrift/internal/models"
)

// provenanceConfidence is a placeholder for a future per-edge metric
const provenanceConfidence = 0.9

// DefaultMaxDepth bounds downstream traversal when no depth is given
const DefaultMaxDepth = 3

// Downstream walks edges source->target from id using breadth-first
// search and returns every node reachable within maxDepth hops. Each
// entry records the discovery distance and the shortest path from id to
// the reached node inclusive. The walk visits each node at most once,
// so cycles terminate.
func (s *Store) Downstream(id string, maxDepth int) ([]models.ImpactEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[id]; !ok {
		return nil, errors.NotFoundErrorf("node %s not found", id)
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	type queueItem struct {
		id       string
		distance int
		path     []string
	}

	visited := map[string]bool{id: true}
	queue := []queueItem{{id: id, distance: 0, path: []string{id}}}
	var result []models.ImpactEntry

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if item.distance >= maxDepth {
			continue
		}

		for _, edgeID := range s.outgoing[item.id] {
			edge, ok := s.edges[edgeID]
			if !ok || visited[edge.Target] {
				continue
			}
			visited[edge.Target] = true

			path := make([]string, len(item.path), len(item.path)+1)
			copy(path, item.path)
			path = append(path, edge.Target)

			result = append(result, models.ImpactEntry{
				NodeID:   edge.Target,
				Distance: item.distance + 1,
				Path:     path,
			})
			queue = append(queue, queueItem{
				id:       edge.Target,
				distance: item.distance + 1,
				path:     path,
			})
		}
	}

	return result, nil
}

// Provenance walks edges target->source from id depth-first and returns
// the upstream lineage in pre-order. Each entry carries the type of the
// edge that led to the parent. A visited set keyed by node id keeps the
// walk cycle-safe; the traversal is unbounded.
func (s *Store) Provenance(id string) ([]models.ProvenanceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[id]; !ok {
		return nil, errors.NotFoundErrorf("node %s not found", id)
	}

	visited := map[string]bool{id: true}
	var result []models.ProvenanceEntry
	s.provenanceLocked(id, visited, &result)
	return result, nil
}

func (s *Store) provenanceLocked(id string, visited map[string]bool, result *[]models.ProvenanceEntry) {
	for _, edgeID := range s.incoming[id] {
		edge, ok := s.edges[edgeID]
		if !ok || visited[edge.Source] {
			continue
		}
		visited[edge.Source] = true

		*result = append(*result, models.ProvenanceEntry{
			NodeID:       edge.Source,
			Relationship: edge.Type,
			Confidence:   provenanceConfidence,
		})
		s.provenanceLocked(edge.Source, visited, result)
	}
}
