package proof

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/schemadrift/schemadrift/internal/errors"
	"github.com/schemadrift/schemadrift/internal/models"
)

// Backend records proof events and finalized epochs in a tamper-evident
// store. Implementations are selected by a lowercase string tag.
type Backend interface {
	// Name returns the backend's registry tag
	Name() string
	// Record stores a single proof event and returns its reference
	Record(ctx context.Context, event models.ProofEvent) (*models.ProofRef, error)
	// SubmitEpoch publishes a finalized epoch and returns its reference
	SubmitEpoch(ctx context.Context, epoch *models.Epoch) (*models.ProofRef, error)
	// Verify checks that a reference is known to the backend
	Verify(ctx context.Context, ref *models.ProofRef) (bool, error)
	// Link renders a human-facing location for a reference
	Link(ref *models.ProofRef) string
}

// NewBackend builds a proof backend by name. The closed set is
// {none, ledger}; anything else is an invalid-input error.
func NewBackend(name string, logger *logrus.Logger) (Backend, error) {
	if logger == nil {
		logger = logrus.New()
	}
	switch strings.ToLower(name) {
	case "", "none":
		return &noneBackend{logger: logger}, nil
	case "ledger":
		return NewLedgerBackend(logger)
	default:
		return nil, errors.ValidationErrorf("unknown proof backend %q (valid: none, ledger)", name)
	}
}

// noneBackend records nothing and hands back locally generated opaque
// references
type noneBackend struct {
	logger *logrus.Logger
}

func (b *noneBackend) Name() string { return "none" }

func (b *noneBackend) Record(ctx context.Context, event models.ProofEvent) (*models.ProofRef, error) {
	now := time.Now()
	return &models.ProofRef{
		Backend:   b.Name(),
		ID:        fmt.Sprintf("local-%d", now.UnixMilli()),
		Timestamp: now.UTC(),
	}, nil
}

func (b *noneBackend) SubmitEpoch(ctx context.Context, epoch *models.Epoch) (*models.ProofRef, error) {
	now := time.Now()
	b.logger.WithField("epoch", epoch.EpochID).Debug("epoch recorded locally, no backend submission")
	return &models.ProofRef{
		Backend:   b.Name(),
		ID:        fmt.Sprintf("local-%d", now.UnixMilli()),
		Timestamp: now.UTC(),
	}, nil
}

func (b *noneBackend) Verify(ctx context.Context, ref *models.ProofRef) (bool, error) {
	return true, nil
}

func (b *noneBackend) Link(ref *models.ProofRef) string {
	return "local record (no proof backend configured)"
}
