package dispute

import (
	"context"
	"time"

	"github.com/google/uuid"

	"veritas/internal/domain/claim"
	"veritas/internal/domain/dispute"
	"veritas/internal/events"
	"veritas/pkg/errors"
	"veritas/pkg/logger"
)

// ClaimReader is the slice of the claim repository the dispute service reads.
type ClaimReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*claim.Claim, error)
}

// Service handles dispute filing during the window and the admin close-out.
type Service struct {
	repo      dispute.Repository
	claims    ClaimReader
	publisher *events.Publisher
	log       *logger.Logger
}

// NewService creates a new dispute service
func NewService(repo dispute.Repository, claims ClaimReader, publisher *events.Publisher) *Service {
	return &Service{
		repo:      repo,
		claims:    claims,
		publisher: publisher,
		log:       logger.Get().With("component", "dispute_service"),
	}
}

// File opens a dispute against a claim's preliminary outcome. Only claims in
// the disputable state with their window still open accept filings.
func (s *Service) File(ctx context.Context, claimID, filerID uuid.UUID, reason string) (*dispute.Dispute, error) {
	if filerID == uuid.Nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "dispute requires a filer")
	}
	if reason == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "dispute reason is required")
	}

	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if c.Status != claim.StatusDisputable {
		return nil, errors.Wrapf(errors.ErrInvalidTransition, "claim %s is %s, not disputable", claimID, c.Status)
	}
	if c.DisputeWindowClosed(now) {
		return nil, errors.Wrapf(errors.ErrInvalidTransition, "dispute window for claim %s closed", claimID)
	}

	d := &dispute.Dispute{
		ID:        uuid.New(),
		ClaimID:   claimID,
		FilerID:   filerID,
		Reason:    reason,
		Status:    dispute.StatusOpen,
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, errors.Wrap(err, "failed to store dispute")
	}

	if pubErr := s.publisher.PublishDisputeFiled(ctx, events.DisputeFiledEvent{
		DisputeID:  d.ID,
		ClaimID:    claimID,
		FilerID:    filerID,
		Reason:     reason,
		OccurredAt: now,
	}); pubErr != nil {
		s.log.Errorw("Failed to publish dispute filed event",
			"dispute_id", d.ID, "claim_id", claimID, "error", pubErr)
	}

	s.log.Infow("Dispute filed",
		"dispute_id", d.ID,
		"claim_id", claimID,
		"filer_id", filerID,
	)
	return d, nil
}

// Resolve closes an open dispute as upheld or dismissed. Closing the last
// open dispute is what clears the claim for the admin resolve path.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, status dispute.Status) (*dispute.Dispute, error) {
	if status != dispute.StatusUpheld && status != dispute.StatusDismissed {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "dispute cannot be resolved to %q", status)
	}

	if err := s.repo.Resolve(ctx, id, status); err != nil {
		return nil, err
	}

	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if pubErr := s.publisher.PublishDisputeResolved(ctx, events.DisputeResolvedEvent{
		DisputeID:  d.ID,
		ClaimID:    d.ClaimID,
		Status:     d.Status.String(),
		OccurredAt: time.Now().UTC(),
	}); pubErr != nil {
		s.log.Errorw("Failed to publish dispute resolved event",
			"dispute_id", d.ID, "claim_id", d.ClaimID, "error", pubErr)
	}

	s.log.Infow("Dispute resolved",
		"dispute_id", d.ID,
		"claim_id", d.ClaimID,
		"status", d.Status,
	)
	return d, nil
}

// ListByClaim returns every dispute filed against a claim, oldest first.
func (s *Service) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*dispute.Dispute, error) {
	return s.repo.ListByClaim(ctx, claimID)
}
