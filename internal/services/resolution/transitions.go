package resolution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"veritas/internal/domain/claim"
	"veritas/internal/domain/resolution"
	"veritas/internal/events"
	"veritas/internal/metrics"
	"veritas/pkg/errors"
)

// ExpireClaim moves an active claim past its expiry into the expired state,
// which starts its evidence period.
func (s *Service) ExpireClaim(ctx context.Context, c *claim.Claim, now time.Time) error {
	t := claim.Transition{To: claim.StatusExpired, At: now}
	return s.applyTransition(ctx, c, t, "expire", false)
}

// OpenDisputeWindow moves an expired claim into the disputable state. The
// preliminary outcome follows the stake majority: more YES volume than NO
// means YES; ties and zero volume resolve to NO.
func (s *Service) OpenDisputeWindow(ctx context.Context, c *claim.Claim, now time.Time) error {
	yes, no, err := s.ledger.StakeTotals(ctx, c.ID)
	if err != nil {
		return s.recordFailure(ctx, c, "open_dispute_window", errors.Wrap(err, "failed to read stake totals"))
	}

	outcome := claim.OutcomeNo
	if yes.GreaterThan(no) {
		outcome = claim.OutcomeYes
	}
	if yes.IsZero() && no.IsZero() {
		s.log.Warnw("Opening dispute window with no stake on market",
			"claim_id", c.ID, "preliminary_outcome", outcome)
	}

	t := claim.Transition{To: claim.StatusDisputable, At: now, PreliminaryOutcome: &outcome}
	return s.applyTransition(ctx, c, t, "open_dispute_window", false)
}

// CloseDisputeWindow moves a disputable claim whose window has elapsed to
// pending final resolution. A claim with an open dispute is parked for manual
// review instead.
func (s *Service) CloseDisputeWindow(ctx context.Context, c *claim.Claim, now time.Time) error {
	active, err := s.disputes.HasActiveDispute(ctx, c.ID)
	if err != nil {
		return s.recordFailure(ctx, c, "close_dispute_window", errors.Wrap(err, "failed to check disputes"))
	}

	if active {
		t := claim.Transition{
			To:     claim.StatusFlaggedForReview,
			At:     now,
			Reason: "open dispute at dispute window close",
		}
		return s.applyTransition(ctx, c, t, "close_dispute_window", false)
	}

	t := claim.Transition{To: claim.StatusPendingFinal, At: now}
	return s.applyTransition(ctx, c, t, "close_dispute_window", false)
}

// FinalizeClaim runs a full aggregation pass over a pending-final claim and
// resolves it with the recommended outcome. A confidence below the
// auto-resolve floor counts against the claim's retry budget; once the budget
// is spent the claim is parked for manual review.
func (s *Service) FinalizeClaim(ctx context.Context, c *claim.Claim, now time.Time) error {
	active, err := s.disputes.HasActiveDispute(ctx, c.ID)
	if err != nil {
		return s.recordFailure(ctx, c, "finalize", errors.Wrap(err, "failed to check disputes"))
	}
	if active {
		t := claim.Transition{
			To:     claim.StatusFlaggedForReview,
			At:     now,
			Reason: "dispute filed after window close",
		}
		return s.applyTransition(ctx, c, t, "finalize", false)
	}

	result, err := s.EvaluateClaim(ctx, c)
	if err != nil {
		return s.recordFailure(ctx, c, "finalize", err)
	}

	outcome := claim.OutcomeNo
	if result.RecommendedOutcome == resolution.RecommendYes {
		outcome = claim.OutcomeYes
	}
	confidence := toDecimal(result.FinalConfidence)

	t := claim.Transition{
		To:           claim.StatusResolved,
		At:           now,
		FinalOutcome: &outcome,
		Confidence:   &confidence,
		Reason:       result.Explanation,
	}

	applyErr := s.applyTransition(ctx, c, t, "finalize", false)
	if errors.Is(applyErr, errors.ErrConfidenceTooLow) {
		return s.recordFailure(ctx, c, "finalize", applyErr)
	}
	return applyErr
}

// RefundClaim refunds a stale claim whose evidence period ran out without the
// engine ever reaching the confidence needed to resolve.
func (s *Service) RefundClaim(ctx context.Context, c *claim.Claim, now time.Time) error {
	elapsed := humanize.RelTime(c.EvidencePeriodStart, now, "", "")
	reason := fmt.Sprintf("evidence period elapsed after %s without reaching resolution confidence", strings.TrimSpace(elapsed))
	if c.ConfidenceScore != nil {
		reason = fmt.Sprintf("%s (last confidence %s)", reason, c.ConfidenceScore.StringFixed(1))
	}

	t := claim.Transition{To: claim.StatusRefunded, At: now, Reason: reason}
	return s.applyTransition(ctx, c, t, "refund", false)
}

// FlagClaim parks a claim for manual review with the given reason
func (s *Service) FlagClaim(ctx context.Context, c *claim.Claim, now time.Time, reason string) error {
	t := claim.Transition{To: claim.StatusFlaggedForReview, At: now, Reason: reason}
	return s.applyTransition(ctx, c, t, "flag", false)
}

// ForcePreliminaryResolve applies an admin-chosen preliminary outcome to an
// expired claim, opening its dispute window. The transition passes through the
// same state machine guards as the automated path.
func (s *Service) ForcePreliminaryResolve(ctx context.Context, claimID uuid.UUID, outcome claim.Outcome) (*claim.Claim, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}

	t := claim.Transition{
		To:                 claim.StatusDisputable,
		At:                 time.Now().UTC(),
		PreliminaryOutcome: &outcome,
		AdminOverride:      true,
	}
	if err := s.applyTransition(ctx, c, t, "force_preliminary", true); err != nil {
		return nil, err
	}
	return c, nil
}

// ForceFinalResolve applies an admin-chosen final outcome and confidence,
// bypassing the auto-resolve floor but none of the structural guards.
func (s *Service) ForceFinalResolve(ctx context.Context, claimID uuid.UUID, outcome claim.Outcome, confidence decimal.Decimal) (*claim.Claim, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}

	active, err := s.disputes.HasActiveDispute(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check disputes")
	}

	t := claim.Transition{
		To:               claim.StatusResolved,
		At:               time.Now().UTC(),
		FinalOutcome:     &outcome,
		Confidence:       &confidence,
		Reason:           "admin override",
		HasActiveDispute: active,
		AdminOverride:    true,
	}
	if err := s.applyTransition(ctx, c, t, "force_final", true); err != nil {
		return nil, err
	}
	return c, nil
}

// ForceRefund refunds a claim by admin decision, the usual exit for flagged
// claims whose evidence period ran out. The evidence-period and confidence
// guards still apply.
func (s *Service) ForceRefund(ctx context.Context, claimID uuid.UUID, reason string) (*claim.Claim, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}

	t := claim.Transition{
		To:            claim.StatusRefunded,
		At:            time.Now().UTC(),
		Reason:        reason,
		AdminOverride: true,
	}
	if err := s.applyTransition(ctx, c, t, "force_refund", true); err != nil {
		return nil, err
	}
	return c, nil
}

// applyTransition runs the state machine guard, persists the claim with a
// compare-and-swap on its prior status, and publishes the transition event.
// A stale swap means another worker already moved the claim; callers treat
// ErrStaleState as a skipped tick.
func (s *Service) applyTransition(ctx context.Context, c *claim.Claim, t claim.Transition, stage string, forced bool) error {
	from := c.Status
	snapshot := *c

	if err := s.machine.Apply(c, t); err != nil {
		metrics.RecordTransition(from.String(), t.To.String(), "error")
		return err
	}

	if err := s.claims.UpdateStatus(ctx, c, from); err != nil {
		*c = snapshot
		if errors.Is(err, errors.ErrStaleState) {
			metrics.RecordTransition(from.String(), t.To.String(), "stale")
			s.log.Debugw("Skipping stale transition",
				"claim_id", c.ID, "from", from, "to", t.To, "stage", stage)
			return err
		}
		metrics.RecordTransition(from.String(), t.To.String(), "error")
		return s.recordFailure(ctx, c, stage, errors.Wrap(err, "failed to persist transition"))
	}

	metrics.RecordTransition(from.String(), t.To.String(), "success")

	event := events.ClaimTransitionedEvent{
		ClaimID:    c.ID,
		FromStatus: from,
		ToStatus:   c.Status,
		Reason:     t.Reason,
		Forced:     forced,
		OccurredAt: t.At,
	}
	if c.FinalOutcome != nil {
		event.Outcome = c.FinalOutcome.String()
	} else if c.PreliminaryOutcome != nil {
		event.Outcome = c.PreliminaryOutcome.String()
	}
	if c.ConfidenceScore != nil {
		conf, _ := c.ConfidenceScore.Float64()
		event.Confidence = &conf
	}
	if err := s.publisher.PublishTransition(ctx, event); err != nil {
		s.log.Errorw("Failed to publish transition event",
			"claim_id", c.ID, "from", from, "to", c.Status, "error", err)
	}

	s.log.Infow("Claim transitioned",
		"claim_id", c.ID, "from", from, "to", c.Status, "stage", stage, "forced", forced)
	return nil
}

// recordFailure bumps the claim's failure counter and, once the retry budget
// is spent, parks it for manual review and emits a failure event.
func (s *Service) recordFailure(ctx context.Context, c *claim.Claim, stage string, cause error) error {
	metrics.ClaimRetries.WithLabelValues(stage).Inc()

	attempts, err := s.claims.RecordFailedAttempt(ctx, c.ID)
	if err != nil {
		s.log.Errorw("Failed to record transition failure",
			"claim_id", c.ID, "stage", stage, "error", err)
		return cause
	}

	s.log.Warnw("Transition attempt failed",
		"claim_id", c.ID, "stage", stage, "attempts", attempts, "error", cause)

	if attempts < s.settings.MaxTransitionTries {
		return cause
	}

	reason := fmt.Sprintf("%d failed %s attempts, last: %v", attempts, stage, cause)
	t := claim.Transition{To: claim.StatusFlaggedForReview, At: time.Now().UTC(), Reason: reason}
	if flagErr := s.applyTransition(ctx, c, t, stage, false); flagErr != nil {
		s.log.Errorw("Failed to park claim for review",
			"claim_id", c.ID, "stage", stage, "error", flagErr)
		return cause
	}

	if pubErr := s.publisher.PublishWorkerFailed(ctx, events.WorkerFailedEvent{
		Worker:     stage,
		ClaimID:    c.ID,
		Attempts:   attempts,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}); pubErr != nil {
		s.log.Errorw("Failed to publish worker failure event", "claim_id", c.ID, "error", pubErr)
	}

	return cause
}
