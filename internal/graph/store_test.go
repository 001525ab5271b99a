package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemadrift/schemadrift/internal/models"
)

func testNode(id, name, hash string) *models.Node {
	return &models.Node{
		ID:       id,
		Type:     models.NodeTypeSchema,
		Name:     name,
		FilePath: "schemas/" + name + ".ts",
		FileHash: hash,
	}
}

func testEdge(source, target string, edgeType models.EdgeType) *models.Edge {
	return &models.Edge{
		ID:         source + "->" + target + ":" + string(edgeType),
		Source:     source,
		Target:     target,
		Type:       edgeType,
		Confidence: 1.0,
	}
}

func TestAddNodeIdempotent(t *testing.T) {
	s := NewStore("", nil)

	s.AddNode(testNode("a", "A", "h1"))
	s.AddNode(testNode("a", "A", "h2"))

	assert.Equal(t, 1, s.NodeCount())
	assert.Equal(t, "h2", s.GetNode("a").FileHash)
}

func TestHasNodeChanged(t *testing.T) {
	s := NewStore("", nil)
	s.AddNode(testNode("a", "A", "h1"))

	assert.False(t, s.HasNodeChanged("a", "h1"))
	assert.True(t, s.HasNodeChanged("a", "h2"))
	assert.True(t, s.HasNodeChanged("missing", "h1"))
}

func TestRemoveNodeRemovesTouchingEdges(t *testing.T) {
	s := NewStore("", nil)
	s.AddNode(testNode("a", "A", "h"))
	s.AddNode(testNode("b", "B", "h"))
	s.AddNode(testNode("c", "C", "h"))
	s.AddEdge(testEdge("a", "b", models.EdgeTypeUses))
	s.AddEdge(testEdge("b", "c", models.EdgeTypeUses))
	s.AddEdge(testEdge("c", "a", models.EdgeTypeExtends))

	s.RemoveNode("b")

	assert.Nil(t, s.GetNode("b"))
	for _, edge := range s.GetAllEdges() {
		assert.NotEqual(t, "b", edge.Source)
		assert.NotEqual(t, "b", edge.Target)
	}
	assert.Equal(t, 1, s.EdgeCount())
}

func TestRemoveNodeSelfLoop(t *testing.T) {
	s := NewStore("", nil)
	s.AddNode(testNode("a", "A", "h"))
	s.AddEdge(testEdge("a", "a", models.EdgeTypeUses))

	s.RemoveNode("a")

	assert.Equal(t, 0, s.NodeCount())
	assert.Equal(t, 0, s.EdgeCount())
}

func TestAddEdgeIdempotent(t *testing.T) {
	s := NewStore("", nil)
	s.AddNode(testNode("a", "A", "h"))
	s.AddNode(testNode("b", "B", "h"))

	edge := testEdge("a", "b", models.EdgeTypeUses)
	s.AddEdge(edge)
	s.AddEdge(edge)

	assert.Equal(t, 1, s.EdgeCount())
	assert.Len(t, s.GetOutgoingEdges("a"), 1)
	assert.Len(t, s.GetIncomingEdges("b"), 1)
}

func TestComputeFileHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.ts")
	require.NoError(t, os.WriteFile(path, []byte("interface A {}"), 0644))

	h1, err := ComputeFileHash(path)
	require.NoError(t, err)
	assert.Len(t, h1, 64)

	h2, err := ComputeFileHash(path)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	require.NoError(t, os.WriteFile(path, []byte("interface B {}"), 0644))
	h3, err := ComputeFileHash(path)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)

	_, err = ComputeFileHash(filepath.Join(dir, "missing.ts"))
	assert.Error(t, err)
}

func TestFindNodeByName(t *testing.T) {
	s := NewStore("", nil)
	s.AddNode(testNode("z/user.ts:User", "User", "h"))
	s.AddNode(testNode("a/user.ts:User", "User", "h"))

	node := s.FindNodeByName("User")
	require.NotNil(t, node)
	assert.Equal(t, "a/user.ts:User", node.ID)
	assert.Nil(t, s.FindNodeByName("Missing"))
}
