package resolution

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"veritas/internal/domain/claim"
	"veritas/internal/domain/dispute"
	"veritas/internal/domain/resolution"
	"veritas/internal/events"
	"veritas/internal/metrics"
	"veritas/pkg/errors"
	"veritas/pkg/logger"
)

// Settings carries the service-level policy knobs
type Settings struct {
	// SignalTimeout bounds each signal source evaluation
	SignalTimeout time.Duration

	// MaxTransitionTries is the per-claim failure budget before parking it for review
	MaxTransitionTries int

	// MaxEvidencePeriod bounds how long a claim may stay unresolved before refund
	MaxEvidencePeriod time.Duration
}

// Service orchestrates claim resolution: it evaluates the three signal
// sources, aggregates them into a confidence score, and drives claims through
// the lifecycle state machine. All status writes go through a compare-and-swap
// against the status the claim was loaded with, so concurrent workers cannot
// double-apply a transition.
type Service struct {
	claims   claim.Repository
	ledger   claim.LedgerReader
	disputes dispute.Registry

	sources    []resolution.Source
	aggregator *resolution.Aggregator
	machine    *claim.Machine
	audit      resolution.AuditRepository
	publisher  *events.Publisher

	settings Settings
	log      *logger.Logger
}

// NewService creates a new resolution service
func NewService(
	claims claim.Repository,
	ledger claim.LedgerReader,
	disputes dispute.Registry,
	sources []resolution.Source,
	aggregator *resolution.Aggregator,
	machine *claim.Machine,
	audit resolution.AuditRepository,
	publisher *events.Publisher,
	settings Settings,
) *Service {
	return &Service{
		claims:     claims,
		ledger:     ledger,
		disputes:   disputes,
		sources:    sources,
		aggregator: aggregator,
		machine:    machine,
		audit:      audit,
		publisher:  publisher,
		settings:   settings,
		log:        logger.Get().With("component", "resolution_service"),
	}
}

// GetClaim loads a claim by ID
func (s *Service) GetClaim(ctx context.Context, id uuid.UUID) (*claim.Claim, error) {
	return s.claims.GetByID(ctx, id)
}

// CreateClaim registers a new claim in the active state
func (s *Service) CreateClaim(ctx context.Context, c *claim.Claim) error {
	if c.Text == "" {
		return errors.Wrap(errors.ErrInvalidInput, "claim text is required")
	}
	if c.ExpiresAt.IsZero() {
		return errors.Wrap(errors.ErrInvalidInput, "claim expiry is required")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Status = claim.StatusActive

	if err := s.claims.Create(ctx, c); err != nil {
		return errors.Wrap(err, "failed to create claim")
	}

	s.log.Infow("Claim registered", "claim_id", c.ID, "expires_at", c.ExpiresAt)
	return nil
}

// EvaluateClaim runs one full aggregation pass: all signal sources are
// evaluated concurrently, each under its own timeout, and a source that fails
// or times out degrades to a neutral score instead of blocking the pass. The
// result is stored as an immutable audit row and published before it is
// returned.
func (s *Service) EvaluateClaim(ctx context.Context, c *claim.Claim) (*resolution.Result, error) {
	started := time.Now()
	scores := s.evaluateSignals(ctx, c)

	result := s.aggregator.Aggregate(
		c.ID,
		scores[resolution.SourceMarket],
		scores[resolution.SourceEvidence],
		scores[resolution.SourceExternal],
		time.Now().UTC(),
	)

	if err := s.audit.Store(ctx, result); err != nil {
		return nil, errors.Wrap(err, "failed to store aggregation result")
	}

	metrics.RecordAggregation(
		result.Strategy.String(),
		result.RecommendedOutcome.String(),
		result.FinalConfidence,
		time.Since(started),
		result.SuspectManipulation,
	)

	if err := s.publisher.PublishAggregation(ctx, events.AggregationCompletedEvent{
		ClaimID:             result.ClaimID,
		FinalConfidence:     result.FinalConfidence,
		RecommendedOutcome:  result.RecommendedOutcome,
		Strategy:            result.Strategy,
		SuspectManipulation: result.SuspectManipulation,
		Warnings:            result.Warnings,
		ComputedAt:          result.ComputedAt,
	}); err != nil {
		s.log.Errorw("Failed to publish aggregation event", "claim_id", c.ID, "error", err)
	}

	s.log.Infow("Aggregation pass completed",
		"claim_id", c.ID,
		"strategy", result.Strategy,
		"confidence", result.FinalConfidence,
		"recommendation", result.RecommendedOutcome,
		"manipulation", result.SuspectManipulation,
	)

	return result, nil
}

// evaluateSignals runs all sources concurrently. A source error never fails
// the pass: the source degrades to a neutral 50% score carrying a warning.
func (s *Service) evaluateSignals(ctx context.Context, c *claim.Claim) map[resolution.SourceKind]resolution.SignalScore {
	var mu sync.Mutex
	var wg sync.WaitGroup
	scores := make(map[resolution.SourceKind]resolution.SignalScore, len(s.sources))

	for _, src := range s.sources {
		wg.Add(1)
		go func(src resolution.Source) {
			defer wg.Done()

			evalCtx, cancel := context.WithTimeout(ctx, s.settings.SignalTimeout)
			defer cancel()

			started := time.Now()
			score, err := src.Evaluate(evalCtx, c)
			if err != nil {
				s.log.Warnw("Signal source failed, degrading to neutral",
					"claim_id", c.ID, "source", src.Kind(), "error", err)
				metrics.RecordSignalEvaluation(src.Kind().String(), "error", time.Since(started))
				score = resolution.Neutral(src.Kind(), "signal source unavailable: "+src.Kind().String())
			} else {
				status := "success"
				if score.Quality == 0 {
					status = "degraded"
				}
				metrics.RecordSignalEvaluation(src.Kind().String(), status, time.Since(started))
			}

			mu.Lock()
			scores[score.Kind] = score
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	// A missing source entry behaves the same as a failed one
	for _, kind := range []resolution.SourceKind{resolution.SourceMarket, resolution.SourceEvidence, resolution.SourceExternal} {
		if _, ok := scores[kind]; !ok {
			scores[kind] = resolution.Neutral(kind, "signal source not configured: "+kind.String())
		}
	}

	return scores
}

// LatestResult returns the most recent aggregation result for a claim
func (s *Service) LatestResult(ctx context.Context, claimID uuid.UUID) (*resolution.Result, error) {
	return s.audit.Latest(ctx, claimID)
}

// ResultHistory returns past aggregation passes for a claim, newest first
func (s *Service) ResultHistory(ctx context.Context, claimID uuid.UUID, limit int) ([]*resolution.Result, error) {
	return s.audit.ListByClaim(ctx, claimID, limit)
}

func toDecimal(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}
