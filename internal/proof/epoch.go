package proof

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/schemadrift/schemadrift/internal/models"
)

// Manager batches proof events into epochs sealed under a Merkle root.
// AddArtifact and FinalizeEpoch serialize on one mutex; finalization
// swap-snapshots the buffer, so an artifact added mid-finalization lands
// in the next epoch.
type Manager struct {
	mu       sync.Mutex
	current  []models.Artifact
	counter  int
	interval time.Duration
	logger   *logrus.Logger
}

// NewManager creates an epoch manager. The interval is advisory;
// finalization is triggered by the caller.
func NewManager(interval time.Duration, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{interval: interval, logger: logger}
}

// Interval returns the advisory finalization interval
func (m *Manager) Interval() time.Duration {
	return m.interval
}

// AddArtifact appends one event to the open epoch buffer
func (m *Manager) AddArtifact(event models.ProofEvent, severity string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = append(m.current, models.Artifact{
		ID:        event.NodeID,
		Hash:      event.Hash,
		EventType: event.EventType,
		Timestamp: event.Timestamp,
		Severity:  severity,
	})
}

// Record implements the crawler event sink, deriving severity from the
// event type: deletions break consumers, modifications warrant review.
func (m *Manager) Record(event models.ProofEvent) {
	m.AddArtifact(event, severityForEvent(event.EventType))
}

func severityForEvent(eventType models.ProofEventType) string {
	switch eventType {
	case models.ProofEventDeleted:
		return "breaking"
	case models.ProofEventModified:
		return "warning"
	default:
		return "info"
	}
}

// PendingCount returns the number of buffered artifacts
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.current)
}

// FinalizeEpoch seals the buffered artifacts into an epoch. Returns nil
// when the buffer is empty.
func (m *Manager) FinalizeEpoch() *models.Epoch {
	m.mu.Lock()
	if len(m.current) == 0 {
		m.mu.Unlock()
		return nil
	}
	artifacts := m.current
	m.current = nil
	m.counter++
	counter := m.counter
	m.mu.Unlock()

	tree := buildMerkleTree(artifacts)
	epoch := &models.Epoch{
		EpochID:    fmt.Sprintf("epoch-%d", counter),
		Timestamp:  time.Now().UTC(),
		Artifacts:  artifacts,
		MerkleRoot: tree[len(tree)-1][0],
		MerkleTree: tree,
	}

	m.logger.WithFields(logrus.Fields{
		"epoch":     epoch.EpochID,
		"artifacts": len(artifacts),
		"root":      epoch.MerkleRoot,
	}).Info("epoch finalized")

	return epoch
}

// leafInput is the canonical serialization hashed into a leaf. Severity
// is advisory metadata and deliberately not part of the input.
type leafInput struct {
	ID        string `json:"id"`
	Hash      string `json:"hash"`
	EventType string `json:"eventType"`
	Timestamp string `json:"timestamp"`
}

// LeafHash returns the hex SHA-256 of the artifact's canonical serialization
func LeafHash(a models.Artifact) string {
	data, _ := json.Marshal(leafInput{
		ID:        a.ID,
		Hash:      a.Hash,
		EventType: string(a.EventType),
		Timestamp: a.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// combineHashes hashes a pair of sibling hashes into their parent. The
// pair is ordered lexicographically before concatenation, so a proof
// path needs no left/right orientation.
func combineHashes(a, b string) string {
	if b < a {
		a, b = b, a
	}
	sum := sha256.Sum256([]byte(a + b))
	return hex.EncodeToString(sum[:])
}

// buildMerkleTree builds every level bottom-up. Level 0 holds the leaf
// hashes; an unpaired hash at an odd-length level is promoted unchanged.
func buildMerkleTree(artifacts []models.Artifact) [][]string {
	leaves := make([]string, len(artifacts))
	for i, a := range artifacts {
		leaves[i] = LeafHash(a)
	}

	tree := [][]string{leaves}
	level := leaves
	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, combineHashes(level[i], level[i+1]))
			} else {
				next = append(next, level[i])
			}
		}
		tree = append(tree, next)
		level = next
	}
	return tree
}

// GenerateMerkleProof locates the artifact by (id, hash) in the epoch's
// leaf list and records, level by level, the index of the sibling that
// combines with the current node. A promoted node has no sibling at that
// level and records -1. Returns nil when the artifact is not in the epoch.
func GenerateMerkleProof(artifact models.Artifact, epoch *models.Epoch) []int {
	if epoch == nil || len(epoch.MerkleTree) == 0 {
		return nil
	}

	index := -1
	for i, a := range epoch.Artifacts {
		if a.ID == artifact.ID && a.Hash == artifact.Hash {
			index = i
			break
		}
	}
	if index == -1 {
		return nil
	}

	proof := make([]int, 0, len(epoch.MerkleTree)-1)
	for level := 0; level < len(epoch.MerkleTree)-1; level++ {
		levelHashes := epoch.MerkleTree[level]
		sibling := index ^ 1
		if sibling >= len(levelHashes) {
			// unpaired node promoted unchanged
			proof = append(proof, -1)
		} else {
			proof = append(proof, sibling)
		}
		index /= 2
	}
	return proof
}

// VerifyArtifactInEpoch recomputes the leaf hash and folds it up the
// stored tree along the proof path, comparing the result with the
// epoch's Merkle root. A sibling index outside its level fails.
func VerifyArtifactInEpoch(artifact models.Artifact, epoch *models.Epoch, proofPath []int) bool {
	if epoch == nil || len(epoch.MerkleTree) == 0 {
		return false
	}
	if len(proofPath) != len(epoch.MerkleTree)-1 {
		return false
	}

	current := LeafHash(artifact)
	for level, siblingIndex := range proofPath {
		if siblingIndex == -1 {
			continue
		}
		levelHashes := epoch.MerkleTree[level]
		if siblingIndex < 0 || siblingIndex >= len(levelHashes) {
			return false
		}
		current = combineHashes(current, levelHashes[siblingIndex])
	}
	return current == epoch.MerkleRoot
}
