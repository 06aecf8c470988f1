package evidence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"veritas/internal/domain/evidence"
	"veritas/internal/events"
	"veritas/pkg/errors"
	"veritas/pkg/logger"
)

// Service handles evidence submission and the one-time admin review pass
type Service struct {
	repo      evidence.Repository
	scorer    *evidence.Scorer
	publisher *events.Publisher
	log       *logger.Logger
}

// NewService creates a new evidence service
func NewService(repo evidence.Repository, scorer *evidence.Scorer, publisher *events.Publisher) *Service {
	return &Service{
		repo:      repo,
		scorer:    scorer,
		publisher: publisher,
		log:       logger.Get().With("component", "evidence_service"),
	}
}

// Submit registers a new evidence item against a claim. The raw stance string
// is normalized at this boundary; everything downstream sees the closed set.
func (s *Service) Submit(ctx context.Context, item *evidence.Item, rawStance string) error {
	if item.ClaimID == uuid.Nil {
		return errors.Wrap(errors.ErrInvalidInput, "evidence requires a claim")
	}
	if item.Content == "" {
		return errors.Wrap(errors.ErrInvalidInput, "evidence content is required")
	}

	stance, known := evidence.NormalizeStance(rawStance)
	if !known {
		s.log.Warnw("Unknown stance encoding, treating as neutral",
			"claim_id", item.ClaimID, "stance", rawStance)
	}
	item.Stance = stance

	if !item.SourceType.Valid() {
		item.SourceType = evidence.SourceOther
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return errors.Wrap(err, "failed to store evidence")
	}

	if pubErr := s.publisher.PublishEvidenceSubmitted(ctx, events.EvidenceSubmittedEvent{
		EvidenceID: item.ID,
		ClaimID:    item.ClaimID,
		Stance:     item.Stance.String(),
		SourceType: item.SourceType.String(),
		OccurredAt: time.Now().UTC(),
	}); pubErr != nil {
		s.log.Errorw("Failed to publish evidence submission event",
			"evidence_id", item.ID, "claim_id", item.ClaimID, "error", pubErr)
	}

	s.log.Infow("Evidence submitted",
		"evidence_id", item.ID,
		"claim_id", item.ClaimID,
		"stance", item.Stance,
		"source_type", item.SourceType,
	)
	return nil
}

// Review applies the one-time admin review to an item, then re-scores the
// claim's full pool so the corrected weights are visible immediately. Items
// already reviewed are immutable.
func (s *Service) Review(ctx context.Context, id uuid.UUID, stance evidence.Stance, sourceType evidence.SourceType, verified bool) (*evidence.PoolScore, error) {
	if !stance.Valid() {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown stance %q", stance)
	}
	if !sourceType.Valid() {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown source type %q", sourceType)
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateReview(ctx, id, stance, sourceType, verified); err != nil {
		return nil, err
	}

	pool, err := s.ScoreClaim(ctx, item.ClaimID)
	if err != nil {
		return nil, err
	}

	if pubErr := s.publisher.PublishEvidenceReviewed(ctx, events.EvidenceReviewedEvent{
		EvidenceID: id,
		ClaimID:    item.ClaimID,
		Stance:     stance.String(),
		SourceType: sourceType.String(),
		Verified:   verified,
		OccurredAt: time.Now().UTC(),
	}); pubErr != nil {
		s.log.Errorw("Failed to publish evidence review event",
			"evidence_id", id, "claim_id", item.ClaimID, "error", pubErr)
	}

	s.log.Infow("Evidence reviewed",
		"evidence_id", id,
		"claim_id", item.ClaimID,
		"stance", stance,
		"verified", verified,
		"pool_yes", pool.WeightedYes,
		"pool_no", pool.WeightedNo,
	)
	return pool, nil
}

// ListByClaim returns a claim's evidence items, oldest first
func (s *Service) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*evidence.Item, error) {
	return s.repo.ListByClaim(ctx, claimID)
}

// ScoreClaim weighs a claim's current evidence pool
func (s *Service) ScoreClaim(ctx context.Context, claimID uuid.UUID) (*evidence.PoolScore, error) {
	items, err := s.repo.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load evidence pool")
	}
	pool := s.scorer.ScorePool(items)
	return &pool, nil
}
