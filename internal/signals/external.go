package signals

import (
	"context"

	"github.com/google/uuid"

	"veritas/internal/domain/claim"
	"veritas/internal/domain/resolution"
	"veritas/pkg/errors"
	"veritas/pkg/logger"
)

// AnalysisCache stores completed analyses so one claim is not re-analyzed on
// every monitor tick within a dispute window. Get returns ErrNotFound on miss.
type AnalysisCache interface {
	Get(ctx context.Context, claimID uuid.UUID) (*Analysis, error)
	Set(ctx context.Context, claimID uuid.UUID, analysis *Analysis) error
}

// ExternalSource derives a signal from a document-retrieval and LLM analysis
// pass. Analyses are cached per claim; document sets rarely change within a
// resolution window and the pass is the most expensive of the three signals.
type ExternalSource struct {
	analyzer Analyzer
	cache    AnalysisCache
	log      *logger.Logger
}

// NewExternalSource creates an external analysis signal source. cache may be
// nil, in which case every evaluation runs a fresh analysis.
func NewExternalSource(analyzer Analyzer, cache AnalysisCache) *ExternalSource {
	return &ExternalSource{
		analyzer: analyzer,
		cache:    cache,
		log:      logger.Get().With("signal", "external"),
	}
}

// Kind returns the source kind
func (s *ExternalSource) Kind() resolution.SourceKind {
	return resolution.SourceExternal
}

// Evaluate maps the analysis verdict to an implied probability: the analysis
// confidence for YES, its complement for NO, and a coin flip when the
// documents were inconclusive.
func (s *ExternalSource) Evaluate(ctx context.Context, c *claim.Claim) (resolution.SignalScore, error) {
	analysis, err := s.cachedAnalysis(ctx, c)
	if err != nil {
		return resolution.SignalScore{}, err
	}

	score := resolution.SignalScore{
		Kind:    resolution.SourceExternal,
		Score:   analysis.Confidence,
		Quality: analysis.Articles,
	}

	switch analysis.Recommendation {
	case resolution.RecommendYes:
		score.Percentage = analysis.Confidence * 100
	case resolution.RecommendNo:
		score.Percentage = (1 - analysis.Confidence) * 100
	default:
		score.Percentage = 50
		score.Warnings = append(score.Warnings, "external analysis inconclusive")
	}

	if analysis.Articles == 0 {
		score.Warnings = append(score.Warnings, "no reference documents found")
	}

	return score, nil
}

func (s *ExternalSource) cachedAnalysis(ctx context.Context, c *claim.Claim) (*Analysis, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, c.ID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, errors.ErrNotFound) {
			s.log.Warnw("Analysis cache read failed", "claim_id", c.ID, "error", err)
		}
	}

	analysis, err := s.analyzer.Analyze(ctx, c.Text)
	if err != nil {
		return nil, errors.Wrap(err, "analyze claim")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, c.ID, analysis); err != nil {
			s.log.Warnw("Analysis cache write failed", "claim_id", c.ID, "error", err)
		}
	}

	return analysis, nil
}
