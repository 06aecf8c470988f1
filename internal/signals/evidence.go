package signals

import (
	"context"

	"veritas/internal/domain/claim"
	"veritas/internal/domain/evidence"
	"veritas/internal/domain/resolution"
	"veritas/pkg/errors"
	"veritas/pkg/logger"
)

// EvidenceSource derives a signal from the credibility-weighted evidence pool:
// the implied probability of YES is the YES share of directional weight.
type EvidenceSource struct {
	repo   evidence.Repository
	scorer *evidence.Scorer
	log    *logger.Logger
}

// NewEvidenceSource creates an evidence signal source.
func NewEvidenceSource(repo evidence.Repository, scorer *evidence.Scorer) *EvidenceSource {
	return &EvidenceSource{
		repo:   repo,
		scorer: scorer,
		log:    logger.Get().With("signal", "evidence"),
	}
}

// Kind returns the source kind
func (s *EvidenceSource) Kind() resolution.SourceKind {
	return resolution.SourceEvidence
}

// Evaluate scores the claim's evidence pool. Quality reports the number of
// submitted items only when they carry directional weight; a pool of purely
// neutral items degrades to the neutral score the same way an empty pool does,
// so downstream consumers can treat Quality == 0 as "nothing usable".
func (s *EvidenceSource) Evaluate(ctx context.Context, c *claim.Claim) (resolution.SignalScore, error) {
	items, err := s.repo.ListByClaim(ctx, c.ID)
	if err != nil {
		return resolution.SignalScore{}, errors.Wrap(err, "list evidence")
	}

	pool := s.scorer.ScorePool(items)
	if pool.Total() <= 0 {
		warning := "no evidence submitted"
		if pool.Items > 0 {
			warning = "evidence carries no directional weight"
		}
		return resolution.Neutral(resolution.SourceEvidence, warning), nil
	}

	score := resolution.SignalScore{
		Kind:       resolution.SourceEvidence,
		Score:      pool.Total(),
		Percentage: pool.WeightedYes / pool.Total() * 100,
		Quality:    pool.Items,
		Warnings:   pool.Warnings,
	}

	return score, nil
}
