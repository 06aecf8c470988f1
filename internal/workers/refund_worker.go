package workers

import (
	"context"
	"time"

	"veritas/internal/domain/claim"
	resolutionsvc "veritas/internal/services/resolution"
)

// RefundWorker sweeps claims whose evidence period ran out without ever
// reaching the confidence needed to resolve and refunds their stakes.
type RefundWorker struct {
	*BaseWorker
	claims            claim.Repository
	svc               *resolutionsvc.Service
	maxEvidencePeriod time.Duration
	concurrency       int
}

// NewRefundWorker creates a new refund worker
func NewRefundWorker(claims claim.Repository, svc *resolutionsvc.Service, interval, maxEvidencePeriod time.Duration, concurrency int, enabled bool) *RefundWorker {
	return &RefundWorker{
		BaseWorker:        NewBaseWorker("claim_refund", interval, enabled),
		claims:            claims,
		svc:               svc,
		maxEvidencePeriod: maxEvidencePeriod,
		concurrency:       concurrency,
	}
}

// Run refunds stale low-confidence claims
func (w *RefundWorker) Run(ctx context.Context) error {
	start := time.Now()
	now := time.Now().UTC()
	cutoff := now.Add(-w.maxEvidencePeriod)

	stale, err := w.claims.ListStale(ctx, cutoff, batchLimit)
	if err != nil {
		w.RecordError(err, time.Since(start))
		return err
	}

	refunded, failed := processClaims(ctx, w.Log(), stale, w.concurrency,
		func(ctx context.Context, c *claim.Claim) error {
			return w.svc.RefundClaim(ctx, c, now)
		})

	if refunded+failed > 0 {
		w.Log().Infow("Refund pass completed",
			"refunded", refunded,
			"failed", failed,
			"duration", time.Since(start),
		)
	}

	w.RecordRun(time.Since(start))
	return nil
}
