package workers

import (
	"context"
	"time"

	"veritas/internal/domain/claim"
	resolutionsvc "veritas/internal/services/resolution"
)

// ExpiryWorker is the fast lane of the resolution monitor: it moves claims
// past their expiry into the evidence period and opens the dispute window on
// expired claims with a preliminary stake-majority outcome.
type ExpiryWorker struct {
	*BaseWorker
	claims      claim.Repository
	svc         *resolutionsvc.Service
	concurrency int
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(claims claim.Repository, svc *resolutionsvc.Service, interval time.Duration, concurrency int, enabled bool) *ExpiryWorker {
	return &ExpiryWorker{
		BaseWorker:  NewBaseWorker("claim_expiry", interval, enabled),
		claims:      claims,
		svc:         svc,
		concurrency: concurrency,
	}
}

// Run expires due claims, then opens dispute windows on the expired ones
func (w *ExpiryWorker) Run(ctx context.Context) error {
	start := time.Now()
	now := time.Now().UTC()

	expiring, err := w.claims.ListExpiring(ctx, now, batchLimit)
	if err != nil {
		w.RecordError(err, time.Since(start))
		return err
	}

	expired, expireFailed := processClaims(ctx, w.Log(), expiring, w.concurrency,
		func(ctx context.Context, c *claim.Claim) error {
			return w.svc.ExpireClaim(ctx, c, now)
		})

	awaiting, err := w.claims.ListByStatus(ctx, claim.StatusExpired, batchLimit)
	if err != nil {
		w.RecordError(err, time.Since(start))
		return err
	}

	opened, openFailed := processClaims(ctx, w.Log(), awaiting, w.concurrency,
		func(ctx context.Context, c *claim.Claim) error {
			return w.svc.OpenDisputeWindow(ctx, c, now)
		})

	if expired+opened+expireFailed+openFailed > 0 {
		w.Log().Infow("Expiry pass completed",
			"expired", expired,
			"windows_opened", opened,
			"failed", expireFailed+openFailed,
			"duration", time.Since(start),
		)
	}

	w.RecordRun(time.Since(start))
	return nil
}
