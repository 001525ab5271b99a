package proof

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/schemadrift/schemadrift/internal/config"
	"github.com/schemadrift/schemadrift/internal/errors"
	"github.com/schemadrift/schemadrift/internal/models"
)

// EpochPayload is the wire shape submitted to the ledger. The full
// Merkle tree stays local; only the root and artifact summaries cross
// the wire.
type EpochPayload struct {
	Version       string            `json:"version"`
	Type          string            `json:"type"`
	EpochID       string            `json:"epoch_id"`
	Timestamp     time.Time         `json:"timestamp"`
	MerkleRoot    string            `json:"merkle_root"`
	ArtifactCount int               `json:"artifact_count"`
	Artifacts     []PayloadArtifact `json:"artifacts"`
}

// PayloadArtifact is the per-artifact summary in an epoch payload
type PayloadArtifact struct {
	ID       string `json:"id"`
	Hash     string `json:"hash"`
	Severity string `json:"severity,omitempty"`
}

// Submitter carries a serialized payload to the ledger network. The
// transport itself lives outside this package; a consensus submitter is
// injected by the caller that owns the network session.
type Submitter interface {
	Submit(ctx context.Context, topicID string, payload []byte) (sequence string, err error)
}

// LedgerBackend submits epoch payloads to a consensus topic through the
// injected Submitter; payloads are passed on unsigned. All connection
// settings come from the environment at construction time.
type LedgerBackend struct {
	creds     *config.LedgerCredentials
	submitter Submitter
	limiter   *rate.Limiter
	logger    *logrus.Logger
}

// NewLedgerBackend reads credentials from the environment and fails
// with a config error naming the first missing variable
func NewLedgerBackend(logger *logrus.Logger) (*LedgerBackend, error) {
	creds, err := config.LedgerCredentialsFromEnv()
	if err != nil {
		return nil, err
	}
	return &LedgerBackend{
		creds:   creds,
		limiter: rate.NewLimiter(rate.Limit(2), 1),
		logger:  logger,
	}, nil
}

// SetSubmitter injects the network transport
func (b *LedgerBackend) SetSubmitter(s Submitter) {
	b.submitter = s
}

// SetRate adjusts the submission pacing
func (b *LedgerBackend) SetRate(perSecond float64) {
	if perSecond > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

func (b *LedgerBackend) Name() string { return "ledger" }

// Record submits a single proof event as its own message
func (b *LedgerBackend) Record(ctx context.Context, event models.ProofEvent) (*models.ProofRef, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, errors.InternalErrorf("failed to marshal proof event: %v", err)
	}
	return b.submit(ctx, payload)
}

// SubmitEpoch publishes a finalized epoch summary
func (b *LedgerBackend) SubmitEpoch(ctx context.Context, epoch *models.Epoch) (*models.ProofRef, error) {
	payload := BuildEpochPayload(epoch)
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.InternalErrorf("failed to marshal epoch payload: %v", err)
	}
	ref, err := b.submit(ctx, data)
	if err != nil {
		return nil, err
	}
	b.logger.WithFields(logrus.Fields{
		"epoch": epoch.EpochID,
		"ref":   ref.ID,
	}).Info("epoch submitted to ledger")
	return ref, nil
}

func (b *LedgerBackend) submit(ctx context.Context, payload []byte) (*models.ProofRef, error) {
	if b.submitter == nil {
		return nil, errors.ConfigError("ledger backend has no submitter attached")
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, errors.ExternalError(err, "ledger submission cancelled")
	}

	sequence, err := b.submitter.Submit(ctx, b.creds.TopicID, payload)
	if err != nil {
		return nil, errors.ExternalError(err, "ledger rejected submission")
	}

	ref := &models.ProofRef{
		Backend:   b.Name(),
		ID:        sequence,
		Timestamp: time.Now().UTC(),
	}
	ref.Link = b.Link(ref)
	return ref, nil
}

// Verify checks the reference shape against the configured topic. Deep
// verification requires a mirror query, which the transport owner
// performs out of band.
func (b *LedgerBackend) Verify(ctx context.Context, ref *models.ProofRef) (bool, error) {
	if ref == nil || ref.Backend != b.Name() || ref.ID == "" {
		return false, nil
	}
	return true, nil
}

// Link renders the public explorer URL for a reference
func (b *LedgerBackend) Link(ref *models.ProofRef) string {
	return fmt.Sprintf("https://explorer.ledger.example/%s/topic/%s/%s", b.creds.Network, b.creds.TopicID, ref.ID)
}

// BuildEpochPayload maps a finalized epoch onto the wire shape
func BuildEpochPayload(epoch *models.Epoch) *EpochPayload {
	payload := &EpochPayload{
		Version:       "1.0",
		Type:          "epoch",
		EpochID:       epoch.EpochID,
		Timestamp:     epoch.Timestamp,
		MerkleRoot:    epoch.MerkleRoot,
		ArtifactCount: len(epoch.Artifacts),
		Artifacts:     make([]PayloadArtifact, 0, len(epoch.Artifacts)),
	}
	for _, a := range epoch.Artifacts {
		payload.Artifacts = append(payload.Artifacts, PayloadArtifact{
			ID:       a.ID,
			Hash:     a.Hash,
			Severity: a.Severity,
		})
	}
	return payload
}
